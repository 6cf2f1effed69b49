package db

// RunMigrations runs all database migrations
func RunMigrations(db *DB) error {
	if err := db.AutoMigrate(&User{}, &Book{}, &BorrowRecord{}, &AuditEvent{}); err != nil {
		return err
	}

	return createIndexes(db)
}

func createIndexes(db *DB) error {
	indexes := []string{
		// One open request or loan per user and book
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_borrow_records_open_per_book
			ON borrow_records(user_id, book_id) WHERE status IN ('pending', 'approved', 'overdue')`,

		// Active-loan counting per user
		`CREATE INDEX IF NOT EXISTS idx_borrow_records_active_user
			ON borrow_records(user_id) WHERE status IN ('approved', 'overdue')`,

		`CREATE INDEX IF NOT EXISTS idx_books_active_category ON books(active, category)`,
	}

	if db.IsPostgres() {
		indexes = append(indexes,
			`CREATE INDEX IF NOT EXISTS idx_books_title_search ON books USING gin(to_tsvector('english', title))`,
			`CREATE INDEX IF NOT EXISTS idx_books_author_search ON books USING gin(to_tsvector('english', author))`,
		)
	}

	for _, indexSQL := range indexes {
		if err := db.Exec(indexSQL).Error; err != nil {
			return err
		}
	}

	return nil
}
