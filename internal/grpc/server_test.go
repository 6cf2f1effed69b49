package grpc

import (
	"context"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	pb "github.com/librarydesk/circulation/contracts/circulation/v1"
	"github.com/librarydesk/circulation/internal/db"
	"github.com/librarydesk/circulation/internal/events"
	"github.com/librarydesk/circulation/internal/export"
	"github.com/librarydesk/circulation/internal/metrics"
	"github.com/librarydesk/circulation/internal/policy"
	"github.com/librarydesk/circulation/internal/repo"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

const bufSize = 1024 * 1024

type publishedEvent struct {
	Type          string
	Subject       string
	CorrelationID string
}

// MockPublisher records published events for assertions
type MockPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (m *MockPublisher) record(ctx context.Context, eventType, subject string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, publishedEvent{Type: eventType, Subject: subject, CorrelationID: events.CorrelationID(ctx)})
	return nil
}

func (m *MockPublisher) PublishLoanEvent(ctx context.Context, eventType string, p events.LoanPayload) error {
	return m.record(ctx, eventType, p.RecordID)
}

func (m *MockPublisher) PublishBookEvent(ctx context.Context, eventType string, p events.BookPayload) error {
	return m.record(ctx, eventType, p.BookID)
}

func (m *MockPublisher) PublishUserRegistered(ctx context.Context, p events.UserPayload) error {
	return m.record(ctx, events.EventTypeUserRegistered, p.UserID)
}

func (m *MockPublisher) IsHealthy() bool { return true }

func (m *MockPublisher) Published() []publishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]publishedEvent(nil), m.events...)
}

func (m *MockPublisher) hasEvent(eventType, subject string) bool {
	for _, e := range m.Published() {
		if e.Type == eventType && e.Subject == subject {
			return true
		}
	}
	return false
}

type testEnv struct {
	client    pb.CirculationServiceClient
	publisher *MockPublisher
	users     *repo.UserRepository
	catalog   *repo.CatalogRepository
	metrics   *metrics.Metrics
	admin     *db.User

	mu  sync.Mutex
	now time.Time
}

func (e *testEnv) clock() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.now
}

func (e *testEnv) advance(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = e.now.Add(d)
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	database, err := db.OpenSQLite(filepath.Join(dir, "test.db"), "silent")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations(database))
	t.Cleanup(func() { _ = database.Close() })

	log := zap.NewNop()
	env := &testEnv{
		publisher: &MockPublisher{},
		users:     repo.NewUserRepository(database, log).WithHashCost(bcrypt.MinCost),
		catalog:   repo.NewCatalogRepository(database, log),
		metrics:   metrics.New(),
		now:       time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC),
	}
	ledger := repo.NewLedgerRepository(database, policy.DefaultRules(), log).WithClock(env.clock)
	reports := repo.NewReportRepository(database, policy.DefaultRules(), log)
	store, err := export.NewFSStore(filepath.Join(dir, "exports"))
	require.NoError(t, err)

	srv := NewCirculationServer(Deps{
		Catalog:   env.catalog,
		Users:     env.users,
		Ledger:    ledger,
		Reports:   reports,
		Exporter:  export.NewExporter(store, reports, log).WithClock(env.clock),
		Publisher: env.publisher,
		Metrics:   env.metrics,
	}, log)

	lis := bufconn.Listen(bufSize)
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(LoggingInterceptor(log), env.metrics.UnaryServerInterceptor()))
	RegisterCirculationService(s, srv)
	go func() {
		if err := s.Serve(lis); err != nil {
			t.Logf("Server exited with error: %v", err)
		}
	}()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) { return lis.Dial() }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	env.client = pb.NewCirculationServiceClient(conn)

	env.admin, err = env.users.CreateUser(context.Background(), "admin@library.edu", "Admin", db.RoleAdmin, "secret")
	require.NoError(t, err)
	return env
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func (e *testEnv) student(t *testing.T, email string) *pb.User {
	t.Helper()
	resp, err := e.client.RegisterUser(testCtx(t), &pb.RegisterUserRequest{Email: email, Name: email, Password: "pw"})
	require.NoError(t, err)
	return resp.User
}

func (e *testEnv) book(t *testing.T, title string, copies int32) *pb.Book {
	t.Helper()
	resp, err := e.client.CreateBook(testCtx(t), &pb.CreateBookRequest{
		ActorID: e.admin.ID,
		Book:    &pb.Book{Title: title, Author: "Author", Category: "Fiction", TotalCopies: copies},
	})
	require.NoError(t, err)
	return resp.Book
}

func (e *testEnv) loan(t *testing.T, userID, bookID string) *pb.BorrowRecord {
	t.Helper()
	ctx := testCtx(t)
	req, err := e.client.RequestBorrow(ctx, &pb.RequestBorrowRequest{UserID: userID, BookID: bookID})
	require.NoError(t, err)
	dec, err := e.client.DecideRequest(ctx, &pb.DecideRequestRequest{ActorID: e.admin.ID, RecordID: req.Record.ID, Approve: true})
	require.NoError(t, err)
	return dec.Record
}

func assertCode(t *testing.T, err error, code codes.Code) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, status.Code(err), "%v", err)
}

func TestLoanLifecycle(t *testing.T) {
	env := setupTestServer(t)
	ctx := testCtx(t)
	alice := env.student(t, "alice@library.edu")
	book := env.book(t, "Dune", 2)
	assert.Equal(t, "BOOK-001", book.ID)
	assert.Equal(t, int32(2), book.AvailableCopies)

	req, err := env.client.RequestBorrow(ctx, &pb.RequestBorrowRequest{UserID: alice.ID, BookID: book.ID})
	require.NoError(t, err)
	assert.Equal(t, "pending", req.Record.Status)

	dec, err := env.client.DecideRequest(ctx, &pb.DecideRequestRequest{ActorID: env.admin.ID, RecordID: req.Record.ID, Approve: true})
	require.NoError(t, err)
	assert.Equal(t, "approved", dec.Record.Status)
	assert.Equal(t, int32(1), dec.Book.AvailableCopies)
	assert.WithinDuration(t, env.clock().Add(14*24*time.Hour), dec.Record.DueDate, time.Second)

	renew, err := env.client.RenewLoan(ctx, &pb.RenewLoanRequest{ActorID: alice.ID, RecordID: req.Record.ID})
	require.NoError(t, err)
	assert.Equal(t, int32(1), renew.Record.RenewalCount)
	assert.WithinDuration(t, dec.Record.DueDate.Add(14*24*time.Hour), renew.Record.DueDate, time.Second)

	ret, err := env.client.ReturnBook(ctx, &pb.ReturnBookRequest{ActorID: alice.ID, RecordID: req.Record.ID})
	require.NoError(t, err)
	assert.Equal(t, "returned", ret.Record.Status)
	assert.NotNil(t, ret.Record.ReturnDate)
	assert.Equal(t, int32(2), ret.Book.AvailableCopies)

	_, err = env.client.ReturnBook(ctx, &pb.ReturnBookRequest{ActorID: alice.ID, RecordID: req.Record.ID})
	assertCode(t, err, codes.NotFound)

	assert.Eventually(t, func() bool {
		return env.publisher.hasEvent(events.EventTypeBorrowRequested, req.Record.ID) &&
			env.publisher.hasEvent(events.EventTypeBorrowApproved, req.Record.ID) &&
			env.publisher.hasEvent(events.EventTypeLoanRenewed, req.Record.ID) &&
			env.publisher.hasEvent(events.EventTypeLoanReturned, req.Record.ID) &&
			env.publisher.hasEvent(events.EventTypeBookCreated, book.ID) &&
			env.publisher.hasEvent(events.EventTypeUserRegistered, alice.ID)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRejectRemovesRequest(t *testing.T) {
	env := setupTestServer(t)
	ctx := testCtx(t)
	alice := env.student(t, "alice@library.edu")
	book := env.book(t, "Dune", 1)

	req, err := env.client.RequestBorrow(ctx, &pb.RequestBorrowRequest{UserID: alice.ID, BookID: book.ID})
	require.NoError(t, err)

	dec, err := env.client.DecideRequest(ctx, &pb.DecideRequestRequest{ActorID: env.admin.ID, RecordID: req.Record.ID})
	require.NoError(t, err)
	assert.True(t, dec.Removed)

	_, err = env.client.GetRecord(ctx, &pb.GetRecordRequest{RecordID: req.Record.ID})
	assertCode(t, err, codes.NotFound)

	got, err := env.client.GetBook(ctx, &pb.GetBookRequest{ID: book.ID})
	require.NoError(t, err)
	assert.Equal(t, int32(1), got.Book.AvailableCopies)

	assert.Eventually(t, func() bool {
		return env.publisher.hasEvent(events.EventTypeBorrowRejected, req.Record.ID)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPolicyViolationsMapToFailedPrecondition(t *testing.T) {
	env := setupTestServer(t)
	ctx := testCtx(t)
	alice := env.student(t, "alice@library.edu")
	book := env.book(t, "Dune", 1)
	rec := env.loan(t, alice.ID, book.ID)

	for i := 0; i < 2; i++ {
		_, err := env.client.RenewLoan(ctx, &pb.RenewLoanRequest{ActorID: alice.ID, RecordID: rec.ID})
		require.NoError(t, err)
	}
	_, err := env.client.RenewLoan(ctx, &pb.RenewLoanRequest{ActorID: alice.ID, RecordID: rec.ID})
	assertCode(t, err, codes.FailedPrecondition)
	assert.Equal(t, string(policy.ReasonRenewalLimit), status.Convert(err).Message())

	bob := env.student(t, "bob@library.edu")
	_, err = env.client.RequestBorrow(ctx, &pb.RequestBorrowRequest{UserID: bob.ID, BookID: book.ID})
	assertCode(t, err, codes.FailedPrecondition)
	assert.Equal(t, string(policy.ReasonNoCopiesAvailable), status.Convert(err).Message())

	// Two pending requests for the last copy: only the first approval wins
	emma := env.book(t, "Emma", 1)
	first, err := env.client.RequestBorrow(ctx, &pb.RequestBorrowRequest{UserID: alice.ID, BookID: emma.ID})
	require.NoError(t, err)
	second, err := env.client.RequestBorrow(ctx, &pb.RequestBorrowRequest{UserID: bob.ID, BookID: emma.ID})
	require.NoError(t, err)
	_, err = env.client.DecideRequest(ctx, &pb.DecideRequestRequest{ActorID: env.admin.ID, RecordID: first.Record.ID, Approve: true})
	require.NoError(t, err)
	_, err = env.client.DecideRequest(ctx, &pb.DecideRequestRequest{ActorID: env.admin.ID, RecordID: second.Record.ID, Approve: true})
	assertCode(t, err, codes.FailedPrecondition)
	assert.Equal(t, string(policy.ReasonNoCopiesAvailable), status.Convert(err).Message())
}

func TestOverdueLoanShowsEffectiveStatus(t *testing.T) {
	env := setupTestServer(t)
	ctx := testCtx(t)
	alice := env.student(t, "alice@library.edu")
	book := env.book(t, "Dune", 1)
	rec := env.loan(t, alice.ID, book.ID)

	env.advance(15 * 24 * time.Hour)

	got, err := env.client.GetRecord(ctx, &pb.GetRecordRequest{RecordID: rec.ID})
	require.NoError(t, err)
	assert.Equal(t, "approved", got.Record.Status)
	assert.Equal(t, "overdue", got.Record.EffectiveStatus)

	list, err := env.client.ListRecords(ctx, &pb.ListRecordsRequest{Status: "overdue"})
	require.NoError(t, err)
	require.Len(t, list.Records, 1)
	assert.Equal(t, rec.ID, list.Records[0].ID)

	stats, err := env.client.GetDashboardStats(ctx, &pb.GetDashboardStatsRequest{UserID: alice.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Stats.Overdue)
	require.NotNil(t, stats.User)
	assert.Equal(t, int64(1), stats.User.Overdue)

	ret, err := env.client.ReturnBook(ctx, &pb.ReturnBookRequest{ActorID: env.admin.ID, RecordID: rec.ID})
	require.NoError(t, err)
	assert.Equal(t, "returned", ret.Record.EffectiveStatus)
	assert.Equal(t, int32(1), ret.Book.AvailableCopies)
}

func TestPermissionChecks(t *testing.T) {
	env := setupTestServer(t)
	ctx := testCtx(t)
	alice := env.student(t, "alice@library.edu")
	bob := env.student(t, "bob@library.edu")
	book := env.book(t, "Dune", 1)

	_, err := env.client.CreateBook(ctx, &pb.CreateBookRequest{ActorID: alice.ID, Book: &pb.Book{Title: "X", Author: "Y"}})
	assertCode(t, err, codes.PermissionDenied)

	req, err := env.client.RequestBorrow(ctx, &pb.RequestBorrowRequest{UserID: alice.ID, BookID: book.ID})
	require.NoError(t, err)
	_, err = env.client.DecideRequest(ctx, &pb.DecideRequestRequest{ActorID: alice.ID, RecordID: req.Record.ID, Approve: true})
	assertCode(t, err, codes.PermissionDenied)

	_, err = env.client.DecideRequest(ctx, &pb.DecideRequestRequest{ActorID: env.admin.ID, RecordID: req.Record.ID, Approve: true})
	require.NoError(t, err)
	_, err = env.client.ReturnBook(ctx, &pb.ReturnBookRequest{ActorID: bob.ID, RecordID: req.Record.ID})
	assertCode(t, err, codes.PermissionDenied)
	_, err = env.client.RenewLoan(ctx, &pb.RenewLoanRequest{ActorID: bob.ID, RecordID: req.Record.ID})
	assertCode(t, err, codes.PermissionDenied)

	_, err = env.client.RegisterUser(ctx, &pb.RegisterUserRequest{Email: "lib@library.edu", Name: "Lib", Role: "librarian", Password: "pw"})
	assertCode(t, err, codes.PermissionDenied)
	lib, err := env.client.RegisterUser(ctx, &pb.RegisterUserRequest{ActorID: env.admin.ID, Email: "lib@library.edu", Name: "Lib", Role: "librarian", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "librarian", lib.User.Role)

	_, err = env.client.UpdateUserRole(ctx, &pb.UpdateUserRoleRequest{ActorID: lib.User.ID, UserID: alice.ID, Role: "admin"})
	assertCode(t, err, codes.PermissionDenied)
	_, err = env.client.ExportHistory(ctx, &pb.ExportHistoryRequest{ActorID: alice.ID})
	assertCode(t, err, codes.PermissionDenied)
}

func TestValidationAndLookupErrors(t *testing.T) {
	env := setupTestServer(t)
	ctx := testCtx(t)

	_, err := env.client.RequestBorrow(ctx, &pb.RequestBorrowRequest{})
	assertCode(t, err, codes.InvalidArgument)
	_, err = env.client.CreateBook(ctx, &pb.CreateBookRequest{ActorID: env.admin.ID, Book: &pb.Book{Title: "X"}})
	assertCode(t, err, codes.InvalidArgument)
	_, err = env.client.CreateBook(ctx, &pb.CreateBookRequest{ActorID: env.admin.ID, Book: &pb.Book{Title: "X", Author: "Y", TotalCopies: -1}})
	assertCode(t, err, codes.InvalidArgument)
	_, err = env.client.ListRecords(ctx, &pb.ListRecordsRequest{Status: "lost"})
	assertCode(t, err, codes.InvalidArgument)
	_, err = env.client.GetBook(ctx, &pb.GetBookRequest{ID: "BOOK-999"})
	assertCode(t, err, codes.NotFound)
	_, err = env.client.GetRecord(ctx, &pb.GetRecordRequest{RecordID: "missing"})
	assertCode(t, err, codes.NotFound)

	alice := env.student(t, "alice@library.edu")
	_, err = env.client.RequestBorrow(ctx, &pb.RequestBorrowRequest{UserID: alice.ID, BookID: "BOOK-999"})
	assertCode(t, err, codes.NotFound)

	_, err = env.client.RegisterUser(ctx, &pb.RegisterUserRequest{Email: "ALICE@library.edu", Name: "Again", Password: "pw"})
	assertCode(t, err, codes.AlreadyExists)
}

func TestAuthenticate(t *testing.T) {
	env := setupTestServer(t)
	ctx := testCtx(t)
	alice := env.student(t, "alice@library.edu")

	resp, err := env.client.Authenticate(ctx, &pb.AuthenticateRequest{Email: "Alice@Library.edu", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, resp.User.ID)

	_, err = env.client.Authenticate(ctx, &pb.AuthenticateRequest{Email: "alice@library.edu", Password: "nope"})
	assertCode(t, err, codes.Unauthenticated)
}

func TestCatalogAdministration(t *testing.T) {
	env := setupTestServer(t)
	ctx := testCtx(t)
	book := env.book(t, "Dune", 2)
	env.book(t, "Emma", 1)

	upd, err := env.client.UpdateBook(ctx, &pb.UpdateBookRequest{
		ActorID:    env.admin.ID,
		Book:       &pb.Book{ID: book.ID, TotalCopies: 5},
		UpdateMask: []string{"total_copies"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"total_copies"}, upd.FieldsChanged)
	assert.Equal(t, int32(5), upd.Book.AvailableCopies)

	list, err := env.client.ListBooks(ctx, &pb.ListBooksRequest{Pagination: &pb.Pagination{Page: 1, PageSize: 1}})
	require.NoError(t, err)
	assert.Len(t, list.Books, 1)
	assert.Equal(t, int32(2), list.Pagination.Total)
	assert.Equal(t, int32(2), list.Pagination.TotalPages)

	cats, err := env.client.ListCategories(ctx, &pb.ListCategoriesRequest{})
	require.NoError(t, err)
	require.Len(t, cats.Categories, 1)
	assert.Equal(t, int64(2), cats.Categories[0].Count)

	del, err := env.client.DeleteBook(ctx, &pb.DeleteBookRequest{ActorID: env.admin.ID, ID: book.ID})
	require.NoError(t, err)
	assert.True(t, del.Success)

	active, err := env.client.ListBooks(ctx, &pb.ListBooksRequest{ActiveOnly: true})
	require.NoError(t, err)
	assert.Len(t, active.Books, 1)

	assert.Eventually(t, func() bool {
		return env.publisher.hasEvent(events.EventTypeBookUpdated, book.ID) &&
			env.publisher.hasEvent(events.EventTypeBookDeleted, book.ID)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestUpdateBookRequiresMask(t *testing.T) {
	env := setupTestServer(t)
	ctx := testCtx(t)
	book := env.book(t, "Dune", 2)

	_, err := env.client.UpdateBook(ctx, &pb.UpdateBookRequest{
		ActorID: env.admin.ID,
		Book:    &pb.Book{ID: book.ID, Title: "Dune", Author: "Frank Herbert"},
	})
	assertCode(t, err, codes.InvalidArgument)

	_, err = env.client.UpdateBook(ctx, &pb.UpdateBookRequest{
		ActorID:    env.admin.ID,
		Book:       &pb.Book{ID: book.ID, Title: "Dune"},
		UpdateMask: []string{"title", "available_copies"},
	})
	assertCode(t, err, codes.InvalidArgument)

	got, err := env.client.GetBook(ctx, &pb.GetBookRequest{ID: book.ID})
	require.NoError(t, err)
	assert.True(t, got.Book.Active)
	assert.Equal(t, int32(2), got.Book.TotalCopies)
	assert.Equal(t, int32(2), got.Book.AvailableCopies)
}

func TestReportAndExport(t *testing.T) {
	env := setupTestServer(t)
	ctx := testCtx(t)
	alice := env.student(t, "alice@library.edu")
	bob := env.student(t, "bob@library.edu")
	dune := env.book(t, "Dune", 2)
	env.loan(t, alice.ID, dune.ID)
	env.loan(t, alice.ID, env.book(t, "Emma", 1).ID)
	env.loan(t, bob.ID, dune.ID)

	report, err := env.client.GetReport(ctx, &pb.GetReportRequest{TopN: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(3), report.Stats.CurrentlyBorrowed)
	require.Len(t, report.TopBorrowers, 1)
	assert.Equal(t, alice.ID, report.TopBorrowers[0].UserID)
	assert.Equal(t, int64(2), report.TopBorrowers[0].BorrowCount)
	require.Len(t, report.Categories, 1)
	assert.Equal(t, int32(100), report.Categories[0].Percentage)

	exp, err := env.client.ExportHistory(ctx, &pb.ExportHistoryRequest{ActorID: env.admin.ID, UserID: alice.ID})
	require.NoError(t, err)
	assert.Equal(t, int32(2), exp.Rows)
	assert.Contains(t, exp.Key, "reports/history-")
	assert.Contains(t, exp.URL, "file://")

	_, err = env.client.ExportHistory(ctx, &pb.ExportHistoryRequest{ActorID: env.admin.ID})
	assertCode(t, err, codes.AlreadyExists)
}

func TestCorrelationIDReachesEvents(t *testing.T) {
	env := setupTestServer(t)
	ctx := metadata.AppendToOutgoingContext(testCtx(t), CorrelationHeader, "corr-42")

	resp, err := env.client.RegisterUser(ctx, &pb.RegisterUserRequest{Email: "carol@library.edu", Name: "Carol", Password: "pw"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		for _, e := range env.publisher.Published() {
			if e.Subject == resp.User.ID {
				return e.CorrelationID == "corr-42"
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

func TestLedgerMetricsRecorded(t *testing.T) {
	env := setupTestServer(t)
	alice := env.student(t, "alice@library.edu")
	book := env.book(t, "Dune", 1)
	env.loan(t, alice.ID, book.ID)

	_, err := env.client.DecideRequest(testCtx(t), &pb.DecideRequestRequest{ActorID: alice.ID, RecordID: "missing", Approve: true})
	assertCode(t, err, codes.PermissionDenied)

	assert.Equal(t, 1.0, counterValue(t, env.metrics, "request", metrics.OutcomeOK))
	assert.Equal(t, 1.0, counterValue(t, env.metrics, "approve", metrics.OutcomeOK))
	assert.Equal(t, 1.0, counterValue(t, env.metrics, "approve", metrics.OutcomeDenied))
}

func counterValue(t *testing.T, m *metrics.Metrics, op, outcome string) float64 {
	t.Helper()
	return testutil.ToFloat64(m.LedgerOps.WithLabelValues(op, outcome))
}

// gatedPublisher holds every publish until release is closed
type gatedPublisher struct {
	MockPublisher
	release chan struct{}
}

func (g *gatedPublisher) PublishBookEvent(ctx context.Context, eventType string, p events.BookPayload) error {
	<-g.release
	return g.MockPublisher.PublishBookEvent(ctx, eventType, p)
}

func TestDrainWaitsForInFlightEvents(t *testing.T) {
	publisher := &gatedPublisher{release: make(chan struct{})}
	srv := NewCirculationServer(Deps{Publisher: publisher}, zap.NewNop())

	srv.publishAsync(context.Background(), events.EventTypeBookDeleted, func(ctx context.Context) error {
		return srv.publisher.PublishBookEvent(ctx, events.EventTypeBookDeleted, events.BookPayload{BookID: "BOOK-001"})
	})

	short, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, srv.Drain(short), context.DeadlineExceeded)
	assert.Empty(t, publisher.Published())

	close(publisher.release)
	require.NoError(t, srv.Drain(context.Background()))
	assert.True(t, publisher.hasEvent(events.EventTypeBookDeleted, "BOOK-001"))
}
