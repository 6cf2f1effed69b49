package events

import (
	"context"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	ExchangeName = "library.events"
	ExchangeType = "topic"

	EventVersion = "1.0.0"

	// Ledger events
	EventTypeBorrowRequested = "borrow.requested"
	EventTypeBorrowApproved  = "borrow.approved"
	EventTypeBorrowRejected  = "borrow.rejected"
	EventTypeLoanRenewed     = "loan.renewed"
	EventTypeLoanReturned    = "loan.returned"

	// Catalog events
	EventTypeBookCreated = "catalog.book_created"
	EventTypeBookUpdated = "catalog.book_updated"
	EventTypeBookDeleted = "catalog.book_deleted"

	// Directory events
	EventTypeUserRegistered = "user.registered"
)

// Event is the envelope of every message on the exchange
type Event struct {
	EventID       string      `json:"event_id"`
	EventType     string      `json:"event_type"`
	EventVersion  string      `json:"event_version"`
	Timestamp     string      `json:"timestamp"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	Payload       interface{} `json:"payload"`
}

// LoanPayload describes a borrow record after a ledger transition
type LoanPayload struct {
	RecordID        string     `json:"record_id"`
	BookID          string     `json:"book_id"`
	UserID          string     `json:"user_id"`
	ActorID         string     `json:"actor_id,omitempty"`
	Status          string     `json:"status"`
	BorrowDate      time.Time  `json:"borrow_date"`
	DueDate         time.Time  `json:"due_date"`
	ReturnDate      *time.Time `json:"return_date,omitempty"`
	RenewalCount    int32      `json:"renewal_count"`
	AvailableCopies *int32     `json:"available_copies,omitempty"`
}

// BookPayload describes a catalog change
type BookPayload struct {
	BookID          string   `json:"book_id"`
	Title           string   `json:"title,omitempty"`
	Author          string   `json:"author,omitempty"`
	Category        string   `json:"category,omitempty"`
	TotalCopies     int32    `json:"total_copies"`
	AvailableCopies int32    `json:"available_copies"`
	Active          bool     `json:"active"`
	FieldsChanged   []string `json:"fields_changed,omitempty"`
}

// UserPayload describes a new directory entry
type UserPayload struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

type correlationKey struct{}

// WithCorrelationID returns a context carrying id for events published under it.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the id stored by WithCorrelationID, or "".
func CorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationKey{}).(string); ok {
		return id
	}
	return ""
}
