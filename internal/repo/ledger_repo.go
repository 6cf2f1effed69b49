package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/librarydesk/circulation/internal/db"
	"github.com/librarydesk/circulation/internal/policy"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Transition is the state after a ledger operation that touched both a record and its book.
type Transition struct {
	Record *db.BorrowRecord
	Book   *db.Book
	// Removed is set when a rejected request was deleted; Record is the last snapshot.
	Removed bool
}

// RecordView is a ledger row as shown to readers: stored state plus derived status.
type RecordView struct {
	db.BorrowRecord
	EffectiveStatus db.Status `json:"effective_status"`
}

// RecordFilter narrows ListRecords. Status filters on effective status.
type RecordFilter struct {
	UserID   string // empty means all users
	BookID   string
	Status   db.Status
	Page     int32
	PageSize int32
}

// LedgerRepository is the source of truth for borrow records and the only
// writer of book copy counts after creation.
type LedgerRepository struct {
	db    *db.DB
	rules policy.Rules
	now   func() time.Time
	log   *zap.Logger
}

// NewLedgerRepository creates a ledger enforcing rules
func NewLedgerRepository(database *db.DB, rules policy.Rules, logger *zap.Logger) *LedgerRepository {
	return &LedgerRepository{
		db:    database,
		rules: rules,
		now:   func() time.Time { return time.Now().UTC() },
		log:   logger,
	}
}

// WithClock replaces the ledger's time source.
func (r *LedgerRepository) WithClock(now func() time.Time) *LedgerRepository {
	r.now = func() time.Time { return now().UTC() }
	return r
}

// Rules returns the policy the ledger enforces.
func (r *LedgerRepository) Rules() policy.Rules {
	return r.rules
}

// Now returns the ledger's current time.
func (r *LedgerRepository) Now() time.Time {
	return r.now()
}

// lockForUpdate adds FOR UPDATE on Postgres. SQLite transactions already hold
// the database write lock (_txlock=immediate).
func lockForUpdate(tx *gorm.DB, database *db.DB) *gorm.DB {
	if database.IsPostgres() {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// RequestBorrow records a pending request by userID for bookID.
func (r *LedgerRepository) RequestBorrow(ctx context.Context, userID, bookID string) (*db.BorrowRecord, error) {
	var record *db.BorrowRecord
	now := r.now()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := r.lockUser(tx, userID)
		if err != nil {
			return err
		}

		var book db.Book
		if err := lockForUpdate(tx, r.db).Where("id = ? AND active = ?", bookID, true).First(&book).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}

		existing, err := openRecordsFor(tx, userID)
		if err != nil {
			return err
		}
		if d := r.rules.CanBorrow(user, &book, existing, now); !d.Allowed {
			return violation(d.Reason)
		}

		record = &db.BorrowRecord{
			ID:         uuid.New().String(),
			BookID:     bookID,
			UserID:     userID,
			BorrowDate: now,
			DueDate:    r.rules.DueDate(now),
			Status:     db.StatusPending,
			Version:    1,
		}
		if err := tx.Create(record).Error; err != nil {
			if isDuplicateKey(err) {
				return violation(policy.ReasonDuplicateRequest)
			}
			return err
		}
		return nil
	})
	if err != nil {
		r.logFailure("request_borrow", err, zap.String("user_id", userID), zap.String("book_id", bookID))
		return nil, err
	}

	r.log.Info("Borrow requested",
		zap.String("record_id", record.ID),
		zap.String("user_id", userID),
		zap.String("book_id", bookID),
	)
	return record, nil
}

// Decide approves or rejects a pending request. Only staff may decide.
// Approval takes a copy off the shelf; rejection deletes the request.
func (r *LedgerRepository) Decide(ctx context.Context, actorID, recordID string, approve bool) (*Transition, error) {
	var result Transition
	now := r.now()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		actor, err := findUser(tx, actorID)
		if err != nil {
			return err
		}
		if !policy.CanDecide(actor) {
			return ErrPermissionDenied
		}

		rec, err := r.lockRecord(tx, recordID)
		if err != nil {
			return err
		}
		if rec.Status != db.StatusPending {
			return ErrRecordNotFound
		}
		// The borrower's row serializes approvals against the loan limit.
		if _, err := r.lockUser(tx, rec.UserID); err != nil {
			return err
		}

		var book db.Book
		if err := lockForUpdate(tx, r.db).Where("id = ?", rec.BookID).First(&book).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}

		if !approve {
			res := tx.Where("id = ? AND version = ?", rec.ID, rec.Version).Delete(&db.BorrowRecord{})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrConflict
			}
			result = Transition{Record: rec, Book: &book, Removed: true}
			return nil
		}

		userRecords, err := openRecordsFor(tx, rec.UserID)
		if err != nil {
			return err
		}
		if d := r.rules.CanApprove(&book, userRecords); !d.Allowed {
			return violation(d.Reason)
		}

		if err := takeCopy(tx, &book); err != nil {
			return err
		}

		rec.BorrowDate = now
		rec.DueDate = r.rules.DueDate(now)
		rec.Status = db.StatusApproved
		if err := updateRecord(tx, rec, map[string]interface{}{
			"status":      rec.Status,
			"borrow_date": rec.BorrowDate,
			"due_date":    rec.DueDate,
		}); err != nil {
			return err
		}

		result = Transition{Record: rec, Book: &book}
		return nil
	})
	if err != nil {
		r.logFailure("decide", err, zap.String("record_id", recordID), zap.Bool("approve", approve))
		return nil, err
	}

	r.log.Info("Borrow request decided",
		zap.String("record_id", recordID),
		zap.Bool("approved", approve),
		zap.String("actor_id", actorID),
		zap.Int32("available_copies", result.Book.AvailableCopies),
	)
	return &result, nil
}

// Renew extends a loan's due date by one renewal period.
func (r *LedgerRepository) Renew(ctx context.Context, recordID string) (*db.BorrowRecord, error) {
	var rec *db.BorrowRecord

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		rec, err = r.lockRecord(tx, recordID)
		if err != nil {
			return err
		}
		if d := r.rules.CanRenew(rec); !d.Allowed {
			return violation(d.Reason)
		}

		rec.DueDate = r.rules.RenewedDueDate(rec)
		rec.RenewalCount++
		rec.Status = db.StatusApproved
		return updateRecord(tx, rec, map[string]interface{}{
			"due_date":      rec.DueDate,
			"renewal_count": rec.RenewalCount,
			"status":        rec.Status,
		})
	})
	if err != nil {
		r.logFailure("renew", err, zap.String("record_id", recordID))
		return nil, err
	}

	r.log.Info("Loan renewed",
		zap.String("record_id", rec.ID),
		zap.Int32("renewal_count", rec.RenewalCount),
		zap.Time("due_date", rec.DueDate),
	)
	return rec, nil
}

// ReturnBook checks a loan back in and puts the copy back on the shelf.
func (r *LedgerRepository) ReturnBook(ctx context.Context, recordID string) (*Transition, error) {
	var result Transition
	now := r.now()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := r.lockRecord(tx, recordID)
		if err != nil {
			return err
		}
		if rec.Status == db.StatusReturned {
			return ErrAlreadyReturned
		}
		if d := policy.CanReturn(rec); !d.Allowed {
			return violation(d.Reason)
		}

		var book db.Book
		if err := lockForUpdate(tx, r.db).Where("id = ?", rec.BookID).First(&book).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}

		rec.Status = db.StatusReturned
		rec.ReturnDate = &now
		if err := updateRecord(tx, rec, map[string]interface{}{
			"status":      rec.Status,
			"return_date": now,
		}); err != nil {
			return err
		}

		if err := putCopyBack(tx, &book); err != nil {
			return err
		}

		result = Transition{Record: rec, Book: &book}
		return nil
	})
	if err != nil {
		r.logFailure("return", err, zap.String("record_id", recordID))
		return nil, err
	}

	r.log.Info("Book returned",
		zap.String("record_id", recordID),
		zap.String("book_id", result.Book.ID),
		zap.Int32("available_copies", result.Book.AvailableCopies),
	)
	return &result, nil
}

// GetRecord returns a single record with its effective status.
func (r *LedgerRepository) GetRecord(ctx context.Context, recordID string) (*RecordView, error) {
	var rec db.BorrowRecord
	if err := r.db.WithContext(ctx).Where("id = ?", recordID).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		r.log.Error("Failed to get record", zap.String("record_id", recordID), zap.Error(err))
		return nil, err
	}
	return r.view(rec), nil
}

// ListRecords is the read model for rendering: one user's records or everyone's,
// optionally narrowed to an effective status. Newest first.
func (r *LedgerRepository) ListRecords(ctx context.Context, f RecordFilter) ([]*RecordView, int64, error) {
	query := r.db.WithContext(ctx).Model(&db.BorrowRecord{})
	if f.UserID != "" {
		query = query.Where("user_id = ?", f.UserID)
	}
	if f.BookID != "" {
		query = query.Where("book_id = ?", f.BookID)
	}
	if f.Status != "" {
		query = whereEffectiveStatus(query, f.Status, r.now())
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		r.log.Error("Failed to count records", zap.Error(err))
		return nil, 0, err
	}

	page, pageSize := NormalizePage(f.Page, f.PageSize)
	var records []db.BorrowRecord
	if err := query.Offset(pageOffset(page, pageSize)).Limit(int(pageSize)).Order("created_at DESC, id ASC").Find(&records).Error; err != nil {
		r.log.Error("Failed to list records", zap.Error(err))
		return nil, 0, err
	}

	views := make([]*RecordView, len(records))
	for i, rec := range records {
		views[i] = r.view(rec)
	}
	return views, total, nil
}

func (r *LedgerRepository) view(rec db.BorrowRecord) *RecordView {
	return &RecordView{BorrowRecord: rec, EffectiveStatus: policy.EffectiveStatus(&rec, r.now())}
}

// whereEffectiveStatus translates an effective-status filter into stored columns.
func whereEffectiveStatus(query *gorm.DB, status db.Status, now time.Time) *gorm.DB {
	switch status {
	case db.StatusOverdue:
		return query.Where("status = ? OR (status = ? AND due_date < ?)", db.StatusOverdue, db.StatusApproved, now)
	case db.StatusApproved:
		return query.Where("status = ? AND due_date >= ?", db.StatusApproved, now)
	default:
		return query.Where("status = ?", status)
	}
}

func (r *LedgerRepository) lockRecord(tx *gorm.DB, recordID string) (*db.BorrowRecord, error) {
	var rec db.BorrowRecord
	if err := lockForUpdate(tx, r.db).Where("id = ?", recordID).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// lockUser loads the borrower and holds their row until the transaction ends.
// Ledger transitions lock in the order record, user, book.
func (r *LedgerRepository) lockUser(tx *gorm.DB, userID string) (*db.User, error) {
	return findUser(lockForUpdate(tx, r.db), userID)
}

func (r *LedgerRepository) logFailure(op string, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("operation", op), zap.Error(err))
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrPolicyViolation) || errors.Is(err, ErrPermissionDenied) {
		r.log.Info("Ledger operation refused", fields...)
		return
	}
	r.log.Error("Ledger operation failed", fields...)
}

func findUser(tx *gorm.DB, userID string) (*db.User, error) {
	var user db.User
	if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func openRecordsFor(tx *gorm.DB, userID string) ([]db.BorrowRecord, error) {
	var records []db.BorrowRecord
	err := tx.Where("user_id = ? AND status IN ?", userID,
		[]db.Status{db.StatusPending, db.StatusApproved, db.StatusOverdue}).
		Find(&records).Error
	return records, err
}

// updateRecord writes changes only if nobody else wrote the record since it was read.
func updateRecord(tx *gorm.DB, rec *db.BorrowRecord, changes map[string]interface{}) error {
	changes["version"] = rec.Version + 1
	changes["updated_at"] = tx.NowFunc()
	res := tx.Model(&db.BorrowRecord{}).
		Where("id = ? AND version = ?", rec.ID, rec.Version).
		Updates(changes)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	rec.Version++
	return nil
}

// takeCopy decrements available copies, refusing to go below zero.
func takeCopy(tx *gorm.DB, book *db.Book) error {
	res := tx.Model(&db.Book{}).
		Where("id = ? AND available_copies > 0", book.ID).
		Update("available_copies", gorm.Expr("available_copies - 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return violation(policy.ReasonNoCopiesAvailable)
	}
	book.AvailableCopies--
	return nil
}

// putCopyBack increments available copies, never above total copies.
func putCopyBack(tx *gorm.DB, book *db.Book) error {
	res := tx.Model(&db.Book{}).
		Where("id = ? AND available_copies < total_copies", book.ID).
		Update("available_copies", gorm.Expr("available_copies + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	book.AvailableCopies++
	return nil
}
