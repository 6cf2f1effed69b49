package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/librarydesk/circulation/internal/db"
	"github.com/librarydesk/circulation/internal/policy"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BookFilter narrows ListBooks. Zero values mean "no filter".
type BookFilter struct {
	Category      string
	Author        string
	Query         string // full-text on title and author
	AvailableOnly bool
	ActiveOnly    bool
	Page          int32
	PageSize      int32
}

// CategoryCount is the number of active titles in a category.
type CategoryCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// CatalogRepository is the catalog store: book records and their copy counts
type CatalogRepository struct {
	db  *db.DB
	log *zap.Logger
}

// NewCatalogRepository creates a new catalog repository
func NewCatalogRepository(database *db.DB, logger *zap.Logger) *CatalogRepository {
	return &CatalogRepository{
		db:  database,
		log: logger,
	}
}

// ListBooks returns a paginated list of books with optional filters
func (r *CatalogRepository) ListBooks(ctx context.Context, f BookFilter) ([]*db.Book, int64, error) {
	query := r.db.WithContext(ctx).Model(&db.Book{})

	if f.Category != "" {
		query = query.Where("category = ?", f.Category)
	}
	if f.Author != "" {
		query = query.Where("LOWER(author) LIKE ?", "%"+strings.ToLower(f.Author)+"%")
	}
	if f.Query != "" {
		query = r.matchText(query, f.Query)
	}
	if f.ActiveOnly {
		query = query.Where("active = ?", true)
	}
	if f.AvailableOnly {
		query = query.Where("available_copies > 0")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		r.log.Error("Failed to count books", zap.Error(err))
		return nil, 0, err
	}

	page, pageSize := NormalizePage(f.Page, f.PageSize)
	var books []*db.Book
	if err := query.Offset(pageOffset(page, pageSize)).Limit(int(pageSize)).Order("title ASC").Find(&books).Error; err != nil {
		r.log.Error("Failed to list books", zap.Error(err))
		return nil, 0, err
	}

	return books, total, nil
}

// matchText uses Postgres full-text search when available and a LIKE scan otherwise.
func (r *CatalogRepository) matchText(query *gorm.DB, text string) *gorm.DB {
	if r.db.IsPostgres() {
		return query.Where("to_tsvector('english', title || ' ' || author) @@ plainto_tsquery('english', ?)", text)
	}
	like := "%" + strings.ToLower(text) + "%"
	return query.Where("LOWER(title) LIKE ? OR LOWER(author) LIKE ? OR isbn = ?", like, like, text)
}

// GetBook retrieves a book by id
func (r *CatalogRepository) GetBook(ctx context.Context, id string) (*db.Book, error) {
	var book db.Book
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&book).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		r.log.Error("Failed to get book", zap.String("book_id", id), zap.Error(err))
		return nil, err
	}

	return &book, nil
}

// CreateBook adds a title to the catalog with all copies on the shelf
func (r *CatalogRepository) CreateBook(ctx context.Context, book *db.Book) error {
	if book.TotalCopies < 0 {
		return fmt.Errorf("%w: total copies must not be negative", ErrInvalidArgument)
	}
	if book.ID == "" {
		id, err := r.generateNextID(ctx)
		if err != nil {
			r.log.Error("Failed to generate book id", zap.Error(err))
			return err
		}
		book.ID = id
	}
	book.AvailableCopies = book.TotalCopies
	book.Active = true

	var existing db.Book
	err := r.db.WithContext(ctx).Where("id = ?", book.ID).First(&existing).Error
	if err == nil {
		return ErrBookAlreadyExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		r.log.Error("Failed to check book existence", zap.String("book_id", book.ID), zap.Error(err))
		return err
	}

	if err := r.db.WithContext(ctx).Create(book).Error; err != nil {
		if isDuplicateKey(err) {
			return ErrBookAlreadyExists
		}
		r.log.Error("Failed to create book", zap.String("book_id", book.ID), zap.Error(err))
		return err
	}

	r.log.Info("Book created", zap.String("book_id", book.ID), zap.String("title", book.Title))
	return nil
}

// generateNextID generates the next sequential id (BOOK-001, BOOK-002, etc.)
func (r *CatalogRepository) generateNextID(ctx context.Context) (string, error) {
	var lastBook db.Book

	err := r.db.WithContext(ctx).
		Where("id LIKE ?", "BOOK-%").
		Order("LENGTH(id) DESC, id DESC").
		First(&lastBook).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "BOOK-001", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get last book: %w", err)
	}

	var lastNum int
	if _, err := fmt.Sscanf(lastBook.ID, "BOOK-%d", &lastNum); err != nil {
		var count int64
		if err := r.db.WithContext(ctx).Model(&db.Book{}).Count(&count).Error; err != nil {
			return "", fmt.Errorf("failed to count books: %w", err)
		}
		return fmt.Sprintf("BOOK-%03d", count+1), nil
	}

	return fmt.Sprintf("BOOK-%03d", lastNum+1), nil
}

// UpdateBook updates the fields named in updateMask (all editable fields when
// empty) and returns the ones that actually changed. Changing total copies
// shifts available copies by the same amount; copies out on loan cannot be removed.
func (r *CatalogRepository) UpdateBook(ctx context.Context, book *db.Book, updateMask []string) ([]string, error) {
	var fieldsChanged []string

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing db.Book
		if err := lockForUpdate(tx, r.db).Where("id = ?", book.ID).First(&existing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}

		fieldsChanged = changedBookFields(&existing, book, updateMask)
		if len(fieldsChanged) == 0 {
			return nil
		}

		updates := make(map[string]interface{})
		for _, field := range fieldsChanged {
			switch field {
			case "title":
				updates["title"] = book.Title
			case "author":
				updates["author"] = book.Author
			case "isbn":
				updates["isbn"] = book.ISBN
			case "category":
				updates["category"] = book.Category
			case "description":
				updates["description"] = book.Description
			case "cover_image":
				updates["cover_image"] = book.CoverImage
			case "active":
				updates["active"] = book.Active
			case "total_copies":
				delta := book.TotalCopies - existing.TotalCopies
				if existing.AvailableCopies+delta < 0 {
					return violation(policy.ReasonCopiesOnLoan)
				}
				updates["total_copies"] = book.TotalCopies
				updates["available_copies"] = existing.AvailableCopies + delta
			}
		}

		return tx.Model(&db.Book{}).Where("id = ?", book.ID).Updates(updates).Error
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrPolicyViolation) {
			r.log.Error("Failed to update book", zap.String("book_id", book.ID), zap.Error(err))
		}
		return nil, err
	}

	if len(fieldsChanged) == 0 {
		r.log.Info("No fields changed", zap.String("book_id", book.ID))
	} else {
		r.log.Info("Book updated", zap.String("book_id", book.ID), zap.Strings("fields_changed", fieldsChanged))
	}
	return fieldsChanged, nil
}

// DeleteBook soft deletes a book by setting active to false
func (r *CatalogRepository) DeleteBook(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Model(&db.Book{}).Where("id = ?", id).Update("active", false)
	if result.Error != nil {
		r.log.Error("Failed to delete book", zap.String("book_id", id), zap.Error(result.Error))
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrBookNotFound
	}

	r.log.Info("Book deleted", zap.String("book_id", id))
	return nil
}

// ListCategories returns every category of active books with its title count
func (r *CatalogRepository) ListCategories(ctx context.Context) ([]CategoryCount, error) {
	var out []CategoryCount
	err := r.db.WithContext(ctx).Model(&db.Book{}).
		Select("category AS name, COUNT(*) AS count").
		Where("active = ? AND category <> ''", true).
		Group("category").
		Order("category ASC").
		Scan(&out).Error
	if err != nil {
		r.log.Error("Failed to list categories", zap.Error(err))
		return nil, err
	}
	return out, nil
}

// BookFields are the editable fields an update mask may name.
var BookFields = []string{"title", "author", "isbn", "category", "description", "cover_image", "total_copies", "active"}

// changedBookFields compares old and new book and returns list of changed fields
func changedBookFields(old, new *db.Book, updateMask []string) []string {
	var changed []string

	checkFields := updateMask
	if len(checkFields) == 0 {
		checkFields = BookFields
	}

	for _, field := range checkFields {
		switch field {
		case "title":
			if old.Title != new.Title {
				changed = append(changed, "title")
			}
		case "author":
			if old.Author != new.Author {
				changed = append(changed, "author")
			}
		case "isbn":
			if old.ISBN != new.ISBN {
				changed = append(changed, "isbn")
			}
		case "category":
			if old.Category != new.Category {
				changed = append(changed, "category")
			}
		case "description":
			if old.Description != new.Description {
				changed = append(changed, "description")
			}
		case "cover_image":
			if old.CoverImage != new.CoverImage {
				changed = append(changed, "cover_image")
			}
		case "total_copies":
			if old.TotalCopies != new.TotalCopies {
				changed = append(changed, "total_copies")
			}
		case "active":
			if old.Active != new.Active {
				changed = append(changed, "active")
			}
		}
	}

	return changed
}

// pageOffset is the row offset of page, computed in int so far pages cannot wrap.
func pageOffset(page, pageSize int32) int {
	return int(page-1) * int(pageSize)
}

// NormalizePage clamps pagination the same way for every list call.
func NormalizePage(page, pageSize int32) (int32, int32) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}
	return page, pageSize
}
