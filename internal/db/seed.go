package db

import (
	"fmt"
)

// SeedBooks is the starter catalog inserted by SeedCatalog.
var SeedBooks = []Book{
	{ID: "BOOK-001", Title: "The Great Gatsby", Author: "F. Scott Fitzgerald", ISBN: "978-0743273565", Category: "Fiction", TotalCopies: 5, AvailableCopies: 5},
	{ID: "BOOK-002", Title: "To Kill a Mockingbird", Author: "Harper Lee", ISBN: "978-0061120084", Category: "Fiction", TotalCopies: 3, AvailableCopies: 3},
	{ID: "BOOK-003", Title: "1984", Author: "George Orwell", ISBN: "978-0451524935", Category: "Science Fiction", TotalCopies: 4, AvailableCopies: 4},
	{ID: "BOOK-004", Title: "A Brief History of Time", Author: "Stephen Hawking", ISBN: "978-0553380163", Category: "Science", TotalCopies: 2, AvailableCopies: 2},
	{ID: "BOOK-005", Title: "Clean Code", Author: "Robert C. Martin", ISBN: "978-0132350884", Category: "Technology", TotalCopies: 3, AvailableCopies: 3},
	{ID: "BOOK-006", Title: "The Hobbit", Author: "J.R.R. Tolkien", ISBN: "978-0547928227", Category: "Fantasy", TotalCopies: 4, AvailableCopies: 4},
	{ID: "BOOK-007", Title: "Sapiens", Author: "Yuval Noah Harari", ISBN: "978-0062316097", Category: "History", TotalCopies: 2, AvailableCopies: 2},
	{ID: "BOOK-008", Title: "The Pragmatic Programmer", Author: "Andrew Hunt", ISBN: "978-0135957059", Category: "Technology", TotalCopies: 1, AvailableCopies: 1},
}

// SeedCatalog inserts SeedBooks when the books table is empty.
func SeedCatalog(db *DB) (int, error) {
	var count int64
	if err := db.Model(&Book{}).Count(&count).Error; err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	books := make([]Book, len(SeedBooks))
	copy(books, SeedBooks)
	for i := range books {
		books[i].Active = true
	}
	if err := db.Create(&books).Error; err != nil {
		return 0, fmt.Errorf("seed catalog: %w", err)
	}
	return len(books), nil
}
