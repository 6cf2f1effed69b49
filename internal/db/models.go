package db

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Role is a user's access level.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleLibrarian Role = "librarian"
	RoleStudent   Role = "student"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleLibrarian, RoleStudent:
		return true
	}
	return false
}

// IsStaff reports whether the role may decide on borrow requests.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleLibrarian
}

// Status is the stored lifecycle state of a borrow record.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusReturned Status = "returned"
	StatusOverdue  Status = "overdue"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusReturned, StatusOverdue:
		return true
	}
	return false
}

// Active reports whether the status counts as a loan in the borrower's hands.
func (s Status) Active() bool {
	return s == StatusApproved || s == StatusOverdue
}

// Open reports whether the record still blocks another request for the same book.
func (s Status) Open() bool {
	return s == StatusPending || s.Active()
}

// Book represents a title in the catalog and its copy counts
type Book struct {
	ID              string    `gorm:"primaryKey;type:varchar(50)" json:"id"`
	Title           string    `gorm:"type:varchar(255);not null;index:idx_books_title" json:"title"`
	Author          string    `gorm:"type:varchar(255);not null;index:idx_books_author" json:"author"`
	ISBN            string    `gorm:"type:varchar(20);index:idx_books_isbn" json:"isbn"`
	Category        string    `gorm:"type:varchar(100);index:idx_books_category" json:"category,omitempty"`
	Description     string    `gorm:"type:text" json:"description,omitempty"`
	CoverImage      string    `gorm:"type:varchar(500)" json:"cover_image,omitempty"`
	TotalCopies     int32     `gorm:"not null;default:0;check:chk_books_total_copies,total_copies >= 0" json:"total_copies"`
	AvailableCopies int32     `gorm:"not null;default:0;check:chk_books_available_copies,available_copies >= 0 AND available_copies <= total_copies" json:"available_copies"`
	Active          bool      `gorm:"not null;default:true;index:idx_books_active" json:"active"`
	CreatedAt       time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time `gorm:"not null" json:"updated_at"`
}

// TableName specifies the table name for Book model
func (Book) TableName() string {
	return "books"
}

// BeforeCreate hook to set timestamps
func (b *Book) BeforeCreate(tx *gorm.DB) error {
	now := tx.NowFunc()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = now
	}
	return nil
}

// User is an entry in the user directory
type User struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Email        string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_users_email" json:"email"`
	Name         string    `gorm:"type:varchar(255);not null" json:"name"`
	Role         Role      `gorm:"type:varchar(20);not null;index:idx_users_role" json:"role"`
	PasswordHash string    `gorm:"type:varchar(100);not null" json:"-"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

// BeforeSave normalizes the email so uniqueness is case-insensitive.
func (u *User) BeforeSave(tx *gorm.DB) error {
	u.Email = NormalizeEmail(u.Email)
	return nil
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// BorrowRecord is one entry in the ledger: a user's request for, or loan of, a book
type BorrowRecord struct {
	ID           string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	BookID       string     `gorm:"type:varchar(50);not null;index:idx_borrow_records_book" json:"book_id"`
	UserID       string     `gorm:"type:varchar(36);not null;index:idx_borrow_records_user" json:"user_id"`
	BorrowDate   time.Time  `gorm:"not null" json:"borrow_date"`
	DueDate      time.Time  `gorm:"not null;index:idx_borrow_records_due" json:"due_date"`
	ReturnDate   *time.Time `json:"return_date,omitempty"`
	RenewalCount int32      `gorm:"not null;default:0" json:"renewal_count"`
	Status       Status     `gorm:"type:varchar(20);not null;index:idx_borrow_records_status" json:"status"`
	Version      int64      `gorm:"not null;default:1" json:"version"`
	CreatedAt    time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"not null" json:"updated_at"`
}

// TableName specifies the table name for BorrowRecord model
func (BorrowRecord) TableName() string {
	return "borrow_records"
}

// AuditEvent is a persisted copy of a ledger event received from the broker
type AuditEvent struct {
	EventID    string    `gorm:"primaryKey;type:varchar(36)" json:"event_id"`
	EventType  string    `gorm:"type:varchar(50);not null;index:idx_audit_events_type" json:"event_type"`
	RecordID   string    `gorm:"type:varchar(36);index:idx_audit_events_record" json:"record_id"`
	Payload    string    `gorm:"type:text;not null" json:"payload"`
	OccurredAt time.Time `gorm:"not null" json:"occurred_at"`
	ReceivedAt time.Time `gorm:"not null" json:"received_at"`
}

// TableName specifies the table name for AuditEvent model
func (AuditEvent) TableName() string {
	return "audit_events"
}
