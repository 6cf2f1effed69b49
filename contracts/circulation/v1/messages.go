package circulationv1

import "time"

// Pagination is the page window of a list call and, in responses, its totals.
type Pagination struct {
	Page       int32 `json:"page"`
	PageSize   int32 `json:"page_size"`
	Total      int32 `json:"total,omitempty"`
	TotalPages int32 `json:"total_pages,omitempty"`
}

func (p *Pagination) GetPage() int32 {
	if p == nil {
		return 0
	}
	return p.Page
}

func (p *Pagination) GetPageSize() int32 {
	if p == nil {
		return 0
	}
	return p.PageSize
}

type Book struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	ISBN            string    `json:"isbn,omitempty"`
	Category        string    `json:"category,omitempty"`
	Description     string    `json:"description,omitempty"`
	CoverImage      string    `json:"cover_image,omitempty"`
	TotalCopies     int32     `json:"total_copies"`
	AvailableCopies int32     `json:"available_copies"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// BorrowRecord carries both the stored status and the status as of the response.
type BorrowRecord struct {
	ID              string     `json:"id"`
	BookID          string     `json:"book_id"`
	UserID          string     `json:"user_id"`
	BorrowDate      time.Time  `json:"borrow_date"`
	DueDate         time.Time  `json:"due_date"`
	ReturnDate      *time.Time `json:"return_date,omitempty"`
	RenewalCount    int32      `json:"renewal_count"`
	Status          string     `json:"status"`
	EffectiveStatus string     `json:"effective_status"`
	Version         int64      `json:"version"`
}

type Category struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// Ledger

type RequestBorrowRequest struct {
	UserID string `json:"user_id"`
	BookID string `json:"book_id"`
}

type RequestBorrowResponse struct {
	Record *BorrowRecord `json:"record"`
}

type DecideRequestRequest struct {
	ActorID  string `json:"actor_id"`
	RecordID string `json:"record_id"`
	Approve  bool   `json:"approve"`
}

// DecideRequestResponse: on rejection Record is the deleted request and Removed is set.
type DecideRequestResponse struct {
	Record  *BorrowRecord `json:"record"`
	Book    *Book         `json:"book"`
	Removed bool          `json:"removed"`
}

type RenewLoanRequest struct {
	ActorID  string `json:"actor_id"`
	RecordID string `json:"record_id"`
}

type RenewLoanResponse struct {
	Record *BorrowRecord `json:"record"`
}

type ReturnBookRequest struct {
	ActorID  string `json:"actor_id"`
	RecordID string `json:"record_id"`
}

type ReturnBookResponse struct {
	Record *BorrowRecord `json:"record"`
	Book   *Book         `json:"book"`
}

type GetRecordRequest struct {
	RecordID string `json:"record_id"`
}

type GetRecordResponse struct {
	Record *BorrowRecord `json:"record"`
}

type ListRecordsRequest struct {
	UserID     string      `json:"user_id,omitempty"`
	BookID     string      `json:"book_id,omitempty"`
	Status     string      `json:"status,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

type ListRecordsResponse struct {
	Records    []*BorrowRecord `json:"records"`
	Pagination *Pagination     `json:"pagination"`
}

// Catalog

type ListBooksRequest struct {
	Category      string      `json:"category,omitempty"`
	Author        string      `json:"author,omitempty"`
	Query         string      `json:"query,omitempty"`
	AvailableOnly bool        `json:"available_only,omitempty"`
	ActiveOnly    bool        `json:"active_only,omitempty"`
	Pagination    *Pagination `json:"pagination,omitempty"`
}

type ListBooksResponse struct {
	Books      []*Book     `json:"books"`
	Pagination *Pagination `json:"pagination"`
}

type GetBookRequest struct {
	ID string `json:"id"`
}

type GetBookResponse struct {
	Book *Book `json:"book"`
}

type CreateBookRequest struct {
	ActorID string `json:"actor_id"`
	Book    *Book  `json:"book"`
}

type CreateBookResponse struct {
	Book *Book `json:"book"`
}

type UpdateBookRequest struct {
	ActorID    string   `json:"actor_id"`
	Book       *Book    `json:"book"`
	UpdateMask []string `json:"update_mask,omitempty"`
}

type UpdateBookResponse struct {
	Book          *Book    `json:"book"`
	FieldsChanged []string `json:"fields_changed"`
}

type DeleteBookRequest struct {
	ActorID string `json:"actor_id"`
	ID      string `json:"id"`
}

type DeleteBookResponse struct {
	Success bool `json:"success"`
}

type ListCategoriesRequest struct{}

type ListCategoriesResponse struct {
	Categories []*Category `json:"categories"`
}

// Users

// RegisterUserRequest: staff roles need an admin ActorID; an empty Role means student.
type RegisterUserRequest struct {
	ActorID  string `json:"actor_id,omitempty"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

type RegisterUserResponse struct {
	User *User `json:"user"`
}

type AuthenticateRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthenticateResponse struct {
	User *User `json:"user"`
}

type GetUserRequest struct {
	ID string `json:"id"`
}

type GetUserResponse struct {
	User *User `json:"user"`
}

type ListUsersRequest struct {
	Role       string      `json:"role,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

type ListUsersResponse struct {
	Users      []*User     `json:"users"`
	Pagination *Pagination `json:"pagination"`
}

type UpdateUserRoleRequest struct {
	ActorID string `json:"actor_id"`
	UserID  string `json:"user_id"`
	Role    string `json:"role"`
}

type UpdateUserRoleResponse struct {
	User *User `json:"user"`
}

// Reports

type DashboardStats struct {
	TotalCopies       int64 `json:"total_copies"`
	TotalTitles       int64 `json:"total_titles"`
	TotalUsers        int64 `json:"total_users"`
	TotalRecords      int64 `json:"total_records"`
	CurrentlyBorrowed int64 `json:"currently_borrowed"`
	Overdue           int64 `json:"overdue"`
	PendingRequests   int64 `json:"pending_requests"`
	Returned          int64 `json:"returned"`
}

type HistoryEntry struct {
	RecordID        string     `json:"record_id"`
	BookID          string     `json:"book_id"`
	BookTitle       string     `json:"book_title"`
	BookAuthor      string     `json:"book_author"`
	UserID          string     `json:"user_id"`
	UserName        string     `json:"user_name"`
	UserEmail       string     `json:"user_email"`
	BorrowDate      time.Time  `json:"borrow_date"`
	DueDate         time.Time  `json:"due_date"`
	ReturnDate      *time.Time `json:"return_date,omitempty"`
	RenewalCount    int32      `json:"renewal_count"`
	EffectiveStatus string     `json:"effective_status"`
}

type UserDashboard struct {
	UserID            string          `json:"user_id"`
	CurrentlyBorrowed int64           `json:"currently_borrowed"`
	TotalBorrowed     int64           `json:"total_borrowed"`
	Overdue           int64           `json:"overdue"`
	Pending           int64           `json:"pending"`
	RemainingLoans    int64           `json:"remaining_loans"`
	Loans             []*HistoryEntry `json:"loans"`
}

// GetDashboardStatsRequest: with UserID set the response also carries that user's dashboard.
type GetDashboardStatsRequest struct {
	UserID string `json:"user_id,omitempty"`
}

type GetDashboardStatsResponse struct {
	Stats *DashboardStats `json:"stats"`
	User  *UserDashboard  `json:"user,omitempty"`
}

type CategoryStat struct {
	Name       string `json:"name"`
	Count      int64  `json:"count"`
	Percentage int32  `json:"percentage"`
}

type UserActivity struct {
	UserID      string `json:"user_id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	BorrowCount int64  `json:"borrow_count"`
}

type GetReportRequest struct {
	TopN int32 `json:"top_n,omitempty"`
}

type GetReportResponse struct {
	Stats        *DashboardStats `json:"stats"`
	Categories   []*CategoryStat `json:"categories"`
	TopBorrowers []*UserActivity `json:"top_borrowers"`
	GeneratedAt  time.Time       `json:"generated_at"`
}

type ExportHistoryRequest struct {
	ActorID string `json:"actor_id"`
	UserID  string `json:"user_id,omitempty"`
	Status  string `json:"status,omitempty"`
	Query   string `json:"query,omitempty"`
}

type ExportHistoryResponse struct {
	Key  string `json:"key"`
	URL  string `json:"url"`
	Rows int32  `json:"rows"`
}
