package repo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/librarydesk/circulation/internal/db"
	"github.com/librarydesk/circulation/internal/policy"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DashboardStats are the library-wide counters shown to staff.
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

// UserDashboard is one borrower's view of their own account.
type UserDashboard struct {
	UserID            string       `json:"user_id"`
	CurrentlyBorrowed int64        `json:"currently_borrowed"`
	TotalBorrowed     int64        `json:"total_borrowed"`
	Overdue           int64        `json:"overdue"`
	Pending           int64        `json:"pending"`
	RemainingLoans    int64        `json:"remaining_loans"`
	Loans             []HistoryRow `json:"loans"`
}

// CategoryStat is a category's share of the active catalog.
type CategoryStat struct {
	Name       string `json:"name"`
	Count      int64  `json:"count"`
	Percentage int    `json:"percentage"`
}

// UserActivity is a user and how many records they ever opened.
type UserActivity struct {
	UserID      string  `json:"user_id"`
	Name        string  `json:"name"`
	Email       string  `json:"email"`
	Role        db.Role `json:"role"`
	BorrowCount int64   `json:"borrow_count"`
}

// Report bundles everything the reports page renders.
type Report struct {
	Stats        DashboardStats `json:"stats"`
	Categories   []CategoryStat `json:"categories"`
	TopBorrowers []UserActivity `json:"top_borrowers"`
	GeneratedAt  time.Time      `json:"generated_at"`
}

// HistoryFilter narrows History. Query matches book title, author or borrower name.
type HistoryFilter struct {
	UserID string
	Query  string
	Status db.Status
}

// HistoryRow is a borrow record joined with its book and borrower.
type HistoryRow struct {
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
	Status          db.Status  `json:"status"`
	EffectiveStatus db.Status  `json:"effective_status" gorm:"-"`
}

// ReportRepository computes read models over the catalog, directory and ledger
type ReportRepository struct {
	db    *db.DB
	rules policy.Rules
	log   *zap.Logger
}

// NewReportRepository creates a new report repository
func NewReportRepository(database *db.DB, rules policy.Rules, logger *zap.Logger) *ReportRepository {
	return &ReportRepository{
		db:    database,
		rules: rules,
		log:   logger,
	}
}

// DashboardStats counts copies, users and records as of now.
func (r *ReportRepository) DashboardStats(ctx context.Context, now time.Time) (*DashboardStats, error) {
	var s DashboardStats
	conn := r.db.WithContext(ctx)

	if err := conn.Model(&db.Book{}).Where("active = ?", true).
		Select("COALESCE(SUM(total_copies), 0)").Scan(&s.TotalCopies).Error; err != nil {
		return nil, r.fail("sum copies", err)
	}

	counts := []struct {
		dst   *int64
		query *gorm.DB
	}{
		{&s.TotalTitles, conn.Model(&db.Book{}).Where("active = ?", true)},
		{&s.TotalUsers, conn.Model(&db.User{})},
		{&s.TotalRecords, conn.Model(&db.BorrowRecord{})},
		{&s.CurrentlyBorrowed, conn.Model(&db.BorrowRecord{}).Where("status IN ?", []db.Status{db.StatusApproved, db.StatusOverdue})},
		{&s.Overdue, whereEffectiveStatus(conn.Model(&db.BorrowRecord{}), db.StatusOverdue, now)},
		{&s.PendingRequests, conn.Model(&db.BorrowRecord{}).Where("status = ?", db.StatusPending)},
		{&s.Returned, conn.Model(&db.BorrowRecord{}).Where("status = ?", db.StatusReturned)},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dst).Error; err != nil {
			return nil, r.fail("count dashboard stats", err)
		}
	}

	return &s, nil
}

// UserDashboard summarizes userID's loans as of now.
func (r *ReportRepository) UserDashboard(ctx context.Context, userID string, now time.Time) (*UserDashboard, error) {
	var user db.User
	if err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, r.fail("get user", err)
	}

	rows, err := r.History(ctx, HistoryFilter{UserID: userID}, now)
	if err != nil {
		return nil, err
	}

	d := &UserDashboard{UserID: userID, TotalBorrowed: int64(len(rows)), Loans: []HistoryRow{}}
	for _, row := range rows {
		switch {
		case row.EffectiveStatus == db.StatusPending:
			d.Pending++
		case row.Status.Active():
			d.CurrentlyBorrowed++
			d.Loans = append(d.Loans, row)
			if row.EffectiveStatus == db.StatusOverdue {
				d.Overdue++
			}
		}
	}
	d.RemainingLoans = int64(r.rules.MaxActiveLoans) - d.CurrentlyBorrowed
	if d.RemainingLoans < 0 {
		d.RemainingLoans = 0
	}
	return d, nil
}

// CategoryStats returns each category's title count and share of active titles.
func (r *ReportRepository) CategoryStats(ctx context.Context) ([]CategoryStat, error) {
	var counts []CategoryCount
	err := r.db.WithContext(ctx).Model(&db.Book{}).
		Select("category AS name, COUNT(*) AS count").
		Where("active = ? AND category <> ''", true).
		Group("category").
		Order("count DESC, category ASC").
		Scan(&counts).Error
	if err != nil {
		return nil, r.fail("category stats", err)
	}

	var titles int64
	for _, c := range counts {
		titles += c.Count
	}

	stats := make([]CategoryStat, len(counts))
	for i, c := range counts {
		stats[i] = CategoryStat{Name: c.Name, Count: c.Count}
		if titles > 0 {
			stats[i].Percentage = int(math.Round(float64(c.Count) / float64(titles) * 100))
		}
	}
	return stats, nil
}

// UserActivity returns the limit users with the most records, busiest first.
func (r *ReportRepository) UserActivity(ctx context.Context, limit int) ([]UserActivity, error) {
	if limit <= 0 {
		limit = 5
	}
	var out []UserActivity
	err := r.db.WithContext(ctx).Table("users AS u").
		Select("u.id AS user_id, u.name AS name, u.email AS email, u.role AS role, COUNT(r.id) AS borrow_count").
		Joins("LEFT JOIN borrow_records AS r ON r.user_id = u.id").
		Group("u.id, u.name, u.email, u.role").
		Order("borrow_count DESC, u.name ASC").
		Limit(limit).
		Scan(&out).Error
	if err != nil {
		return nil, r.fail("user activity", err)
	}
	return out, nil
}

// Report assembles the full reports page.
func (r *ReportRepository) Report(ctx context.Context, now time.Time, topN int) (*Report, error) {
	stats, err := r.DashboardStats(ctx, now)
	if err != nil {
		return nil, err
	}
	categories, err := r.CategoryStats(ctx)
	if err != nil {
		return nil, err
	}
	top, err := r.UserActivity(ctx, topN)
	if err != nil {
		return nil, err
	}
	return &Report{Stats: *stats, Categories: categories, TopBorrowers: top, GeneratedAt: now}, nil
}

// History returns records joined with their book and borrower, newest first.
func (r *ReportRepository) History(ctx context.Context, f HistoryFilter, now time.Time) ([]HistoryRow, error) {
	query := r.db.WithContext(ctx).Table("borrow_records AS r").
		Select(`r.id AS record_id, r.book_id AS book_id, b.title AS book_title, b.author AS book_author,
			r.user_id AS user_id, u.name AS user_name, u.email AS user_email,
			r.borrow_date AS borrow_date, r.due_date AS due_date, r.return_date AS return_date,
			r.renewal_count AS renewal_count, r.status AS status`).
		Joins("LEFT JOIN books AS b ON b.id = r.book_id").
		Joins("LEFT JOIN users AS u ON u.id = r.user_id")

	if f.UserID != "" {
		query = query.Where("r.user_id = ?", f.UserID)
	}
	if f.Query != "" {
		like := "%" + strings.ToLower(f.Query) + "%"
		query = query.Where("LOWER(b.title) LIKE ? OR LOWER(b.author) LIKE ? OR LOWER(u.name) LIKE ?", like, like, like)
	}
	if f.Status != "" {
		query = whereEffectiveStatus(query, f.Status, now)
	}

	var rows []HistoryRow
	if err := query.Order("r.created_at DESC, r.id ASC").Scan(&rows).Error; err != nil {
		return nil, r.fail("history", err)
	}

	for i := range rows {
		rec := db.BorrowRecord{Status: rows[i].Status, DueDate: rows[i].DueDate}
		rows[i].EffectiveStatus = policy.EffectiveStatus(&rec, now)
	}
	return rows, nil
}

func (r *ReportRepository) fail(what string, err error) error {
	r.log.Error("Report query failed", zap.String("query", what), zap.Error(err))
	return fmt.Errorf("%s: %w", what, err)
}
