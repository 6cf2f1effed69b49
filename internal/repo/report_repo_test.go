package repo

import (
	"context"
	"testing"

	"github.com/librarydesk/circulation/internal/db"
	"github.com/librarydesk/circulation/internal/policy"
	"github.com/librarydesk/circulation/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reportFixture: alice has an overdue loan and a returned one, bob has a pending request.
func reportFixture(t *testing.T) (*ledgerFixture, *ReportRepository, *db.User, *db.User) {
	t.Helper()
	f := newLedgerFixture(t)
	ctx := context.Background()

	alice := f.user(t, "alice@library.edu", db.RoleStudent)
	bob := f.user(t, "bob@library.edu", db.RoleStudent)
	f.book(t, "B1", 2)
	f.book(t, "B2", 1)
	b3 := &db.Book{ID: "B3", Title: "Cosmos", Author: "Carl Sagan", Category: "Science", TotalCopies: 3}
	require.NoError(t, f.catalog.CreateBook(ctx, b3))

	returned := f.loan(t, alice.ID, "B2")
	_, err := f.ledger.ReturnBook(ctx, returned.ID)
	require.NoError(t, err)
	f.loan(t, alice.ID, "B1")
	_, err = f.ledger.RequestBorrow(ctx, bob.ID, "B3")
	require.NoError(t, err)

	f.advance(15 * day)

	reports := NewReportRepository(f.db, policy.DefaultRules(), logger.NewLogger("test", "info"))
	return f, reports, alice, bob
}

func TestDashboardStats(t *testing.T) {
	f, reports, _, _ := reportFixture(t)

	stats, err := reports.DashboardStats(context.Background(), f.clock())
	require.NoError(t, err)
	assert.Equal(t, int64(6), stats.TotalCopies)
	assert.Equal(t, int64(3), stats.TotalTitles)
	assert.Equal(t, int64(3), stats.TotalUsers) // admin included
	assert.Equal(t, int64(3), stats.TotalRecords)
	assert.Equal(t, int64(1), stats.CurrentlyBorrowed)
	assert.Equal(t, int64(1), stats.Overdue)
	assert.Equal(t, int64(1), stats.PendingRequests)
	assert.Equal(t, int64(1), stats.Returned)
}

func TestUserDashboard(t *testing.T) {
	f, reports, alice, bob := reportFixture(t)
	ctx := context.Background()

	d, err := reports.UserDashboard(ctx, alice.ID, f.clock())
	require.NoError(t, err)
	assert.Equal(t, int64(2), d.TotalBorrowed)
	assert.Equal(t, int64(1), d.CurrentlyBorrowed)
	assert.Equal(t, int64(1), d.Overdue)
	assert.Equal(t, int64(2), d.RemainingLoans)
	require.Len(t, d.Loans, 1)
	assert.Equal(t, "B1", d.Loans[0].BookID)
	assert.Equal(t, db.StatusOverdue, d.Loans[0].EffectiveStatus)

	d, err = reports.UserDashboard(ctx, bob.ID, f.clock())
	require.NoError(t, err)
	assert.Equal(t, int64(1), d.Pending)
	assert.Equal(t, int64(3), d.RemainingLoans)
	assert.Empty(t, d.Loans)

	_, err = reports.UserDashboard(ctx, "missing", f.clock())
	assert.Equal(t, ErrUserNotFound, err)
}

func TestHistoryJoinsAndFilters(t *testing.T) {
	f, reports, alice, _ := reportFixture(t)
	ctx := context.Background()
	now := f.clock()

	rows, err := reports.History(ctx, HistoryFilter{}, now)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for _, row := range rows {
		assert.NotEmpty(t, row.BookTitle)
		assert.NotEmpty(t, row.UserEmail)
	}

	rows, err = reports.History(ctx, HistoryFilter{Query: "sagan"}, now)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Cosmos", rows[0].BookTitle)
	assert.Equal(t, "bob@library.edu", rows[0].UserEmail)
	assert.Equal(t, db.StatusPending, rows[0].EffectiveStatus)

	rows, err = reports.History(ctx, HistoryFilter{UserID: alice.ID, Status: db.StatusOverdue}, now)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "B1", rows[0].BookID)
	assert.Nil(t, rows[0].ReturnDate)

	rows, err = reports.History(ctx, HistoryFilter{Status: db.StatusReturned}, now)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.NotNil(t, rows[0].ReturnDate)
}

func TestReportCategoriesAndTopBorrowers(t *testing.T) {
	f, reports, alice, _ := reportFixture(t)

	report, err := reports.Report(context.Background(), f.clock(), 2)
	require.NoError(t, err)

	require.Len(t, report.Categories, 2)
	assert.Equal(t, CategoryStat{Name: "Fiction", Count: 2, Percentage: 67}, report.Categories[0])
	assert.Equal(t, CategoryStat{Name: "Science", Count: 1, Percentage: 33}, report.Categories[1])

	require.Len(t, report.TopBorrowers, 2)
	assert.Equal(t, alice.ID, report.TopBorrowers[0].UserID)
	assert.Equal(t, int64(2), report.TopBorrowers[0].BorrowCount)
	assert.Equal(t, int64(1), report.TopBorrowers[1].BorrowCount)
	assert.Equal(t, int64(1), report.Stats.Overdue)
}
