package grpc

import (
	"context"

	pb "github.com/librarydesk/circulation/contracts/circulation/v1"
	"github.com/librarydesk/circulation/internal/db"
	"github.com/librarydesk/circulation/internal/events"
	"github.com/librarydesk/circulation/internal/policy"
	"github.com/librarydesk/circulation/internal/repo"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// RequestBorrow opens a pending request for a copy of a book
func (s *CirculationServer) RequestBorrow(ctx context.Context, req *pb.RequestBorrowRequest) (*pb.RequestBorrowResponse, error) {
	if req.UserID == "" {
		return nil, status.Error(codes.InvalidArgument, "user_id is required")
	}
	if req.BookID == "" {
		return nil, status.Error(codes.InvalidArgument, "book_id is required")
	}

	rec, err := s.ledger.RequestBorrow(ctx, req.UserID, req.BookID)
	s.metrics.ObserveLedgerOp("request", err)
	if err != nil {
		return nil, s.toStatus("request borrow", err)
	}

	s.publishAsync(ctx, events.EventTypeBorrowRequested, func(ctx context.Context) error {
		return s.publisher.PublishLoanEvent(ctx, events.EventTypeBorrowRequested, loanPayload(rec, req.UserID, nil))
	})

	return &pb.RequestBorrowResponse{Record: recordToPB(rec, s.ledger.Now())}, nil
}

// DecideRequest approves or rejects a pending request. Staff only.
func (s *CirculationServer) DecideRequest(ctx context.Context, req *pb.DecideRequestRequest) (*pb.DecideRequestResponse, error) {
	if req.ActorID == "" {
		return nil, status.Error(codes.InvalidArgument, "actor_id is required")
	}
	if req.RecordID == "" {
		return nil, status.Error(codes.InvalidArgument, "record_id is required")
	}

	op := "approve"
	if !req.Approve {
		op = "reject"
	}
	t, err := s.ledger.Decide(ctx, req.ActorID, req.RecordID, req.Approve)
	s.metrics.ObserveLedgerOp(op, err)
	if err != nil {
		return nil, s.toStatus(op+" request", err)
	}

	eventType := events.EventTypeBorrowApproved
	if t.Removed {
		eventType = events.EventTypeBorrowRejected
	}
	s.publishAsync(ctx, eventType, func(ctx context.Context) error {
		return s.publisher.PublishLoanEvent(ctx, eventType, loanPayload(t.Record, req.ActorID, t.Book))
	})

	return &pb.DecideRequestResponse{
		Record:  recordToPB(t.Record, s.ledger.Now()),
		Book:    bookToPB(t.Book),
		Removed: t.Removed,
	}, nil
}

// RenewLoan extends a loan. The actor must be staff or the borrower.
func (s *CirculationServer) RenewLoan(ctx context.Context, req *pb.RenewLoanRequest) (*pb.RenewLoanResponse, error) {
	if err := s.authorizeOnRecord(ctx, req.ActorID, req.RecordID); err != nil {
		s.metrics.ObserveLedgerOp("renew", err)
		return nil, s.toStatus("renew loan", err)
	}

	rec, err := s.ledger.Renew(ctx, req.RecordID)
	s.metrics.ObserveLedgerOp("renew", err)
	if err != nil {
		return nil, s.toStatus("renew loan", err)
	}

	s.publishAsync(ctx, events.EventTypeLoanRenewed, func(ctx context.Context) error {
		return s.publisher.PublishLoanEvent(ctx, events.EventTypeLoanRenewed, loanPayload(rec, req.ActorID, nil))
	})

	return &pb.RenewLoanResponse{Record: recordToPB(rec, s.ledger.Now())}, nil
}

// ReturnBook checks a loan back in. The actor must be staff or the borrower.
func (s *CirculationServer) ReturnBook(ctx context.Context, req *pb.ReturnBookRequest) (*pb.ReturnBookResponse, error) {
	if err := s.authorizeOnRecord(ctx, req.ActorID, req.RecordID); err != nil {
		s.metrics.ObserveLedgerOp("return", err)
		return nil, s.toStatus("return book", err)
	}

	t, err := s.ledger.ReturnBook(ctx, req.RecordID)
	s.metrics.ObserveLedgerOp("return", err)
	if err != nil {
		return nil, s.toStatus("return book", err)
	}

	s.publishAsync(ctx, events.EventTypeLoanReturned, func(ctx context.Context) error {
		return s.publisher.PublishLoanEvent(ctx, events.EventTypeLoanReturned, loanPayload(t.Record, req.ActorID, t.Book))
	})

	return &pb.ReturnBookResponse{
		Record: recordToPB(t.Record, s.ledger.Now()),
		Book:   bookToPB(t.Book),
	}, nil
}

// authorizeOnRecord checks actorID may renew or return recordID.
func (s *CirculationServer) authorizeOnRecord(ctx context.Context, actorID, recordID string) error {
	if actorID == "" {
		return status.Error(codes.InvalidArgument, "actor_id is required")
	}
	if recordID == "" {
		return status.Error(codes.InvalidArgument, "record_id is required")
	}
	actor, err := s.users.GetUser(ctx, actorID)
	if err != nil {
		return err
	}
	view, err := s.ledger.GetRecord(ctx, recordID)
	if err != nil {
		return err
	}
	if !policy.CanActOn(actor, &view.BorrowRecord) {
		return repo.ErrPermissionDenied
	}
	return nil
}

// GetRecord returns one borrow record
func (s *CirculationServer) GetRecord(ctx context.Context, req *pb.GetRecordRequest) (*pb.GetRecordResponse, error) {
	if req.RecordID == "" {
		return nil, status.Error(codes.InvalidArgument, "record_id is required")
	}
	view, err := s.ledger.GetRecord(ctx, req.RecordID)
	if err != nil {
		return nil, s.toStatus("get record", err)
	}
	return &pb.GetRecordResponse{Record: viewToPB(view)}, nil
}

// ListRecords returns a page of borrow records, newest first
func (s *CirculationServer) ListRecords(ctx context.Context, req *pb.ListRecordsRequest) (*pb.ListRecordsResponse, error) {
	st := db.Status(req.Status)
	if st != "" && !st.Valid() {
		return nil, status.Errorf(codes.InvalidArgument, "unknown status %q", req.Status)
	}
	page, pageSize := normalizePagination(req.Pagination)

	views, total, err := s.ledger.ListRecords(ctx, repo.RecordFilter{
		UserID:   req.UserID,
		BookID:   req.BookID,
		Status:   st,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return nil, s.toStatus("list records", err)
	}

	records := make([]*pb.BorrowRecord, len(views))
	for i, v := range views {
		records[i] = viewToPB(v)
	}
	return &pb.ListRecordsResponse{
		Records:    records,
		Pagination: paginationOf(page, pageSize, total),
	}, nil
}
