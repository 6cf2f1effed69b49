package grpc

import (
	"time"

	pb "github.com/librarydesk/circulation/contracts/circulation/v1"
	"github.com/librarydesk/circulation/internal/db"
	"github.com/librarydesk/circulation/internal/events"
	"github.com/librarydesk/circulation/internal/policy"
	"github.com/librarydesk/circulation/internal/repo"
)

func bookToPB(book *db.Book) *pb.Book {
	if book == nil {
		return nil
	}
	return &pb.Book{
		ID:              book.ID,
		Title:           book.Title,
		Author:          book.Author,
		ISBN:            book.ISBN,
		Category:        book.Category,
		Description:     book.Description,
		CoverImage:      book.CoverImage,
		TotalCopies:     book.TotalCopies,
		AvailableCopies: book.AvailableCopies,
		Active:          book.Active,
		CreatedAt:       book.CreatedAt,
		UpdatedAt:       book.UpdatedAt,
	}
}

func pbToBook(b *pb.Book) *db.Book {
	return &db.Book{
		ID:          b.ID,
		Title:       b.Title,
		Author:      b.Author,
		ISBN:        b.ISBN,
		Category:    b.Category,
		Description: b.Description,
		CoverImage:  b.CoverImage,
		TotalCopies: b.TotalCopies,
		Active:      b.Active,
	}
}

func userToPB(u *db.User) *pb.User {
	if u == nil {
		return nil
	}
	return &pb.User{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
	}
}

func recordToPB(rec *db.BorrowRecord, now time.Time) *pb.BorrowRecord {
	if rec == nil {
		return nil
	}
	return &pb.BorrowRecord{
		ID:              rec.ID,
		BookID:          rec.BookID,
		UserID:          rec.UserID,
		BorrowDate:      rec.BorrowDate,
		DueDate:         rec.DueDate,
		ReturnDate:      rec.ReturnDate,
		RenewalCount:    rec.RenewalCount,
		Status:          string(rec.Status),
		EffectiveStatus: string(policy.EffectiveStatus(rec, now)),
		Version:         rec.Version,
	}
}

func viewToPB(v *repo.RecordView) *pb.BorrowRecord {
	return &pb.BorrowRecord{
		ID:              v.ID,
		BookID:          v.BookID,
		UserID:          v.UserID,
		BorrowDate:      v.BorrowDate,
		DueDate:         v.DueDate,
		ReturnDate:      v.ReturnDate,
		RenewalCount:    v.RenewalCount,
		Status:          string(v.Status),
		EffectiveStatus: string(v.EffectiveStatus),
		Version:         v.Version,
	}
}

func historyToPB(rows []repo.HistoryRow) []*pb.HistoryEntry {
	out := make([]*pb.HistoryEntry, len(rows))
	for i, row := range rows {
		out[i] = &pb.HistoryEntry{
			RecordID:        row.RecordID,
			BookID:          row.BookID,
			BookTitle:       row.BookTitle,
			BookAuthor:      row.BookAuthor,
			UserID:          row.UserID,
			UserName:        row.UserName,
			UserEmail:       row.UserEmail,
			BorrowDate:      row.BorrowDate,
			DueDate:         row.DueDate,
			ReturnDate:      row.ReturnDate,
			RenewalCount:    row.RenewalCount,
			EffectiveStatus: string(row.EffectiveStatus),
		}
	}
	return out
}

func statsToPB(s *repo.DashboardStats) *pb.DashboardStats {
	return &pb.DashboardStats{
		TotalCopies:       s.TotalCopies,
		TotalTitles:       s.TotalTitles,
		TotalUsers:        s.TotalUsers,
		TotalRecords:      s.TotalRecords,
		CurrentlyBorrowed: s.CurrentlyBorrowed,
		Overdue:           s.Overdue,
		PendingRequests:   s.PendingRequests,
		Returned:          s.Returned,
	}
}

func userDashboardToPB(d *repo.UserDashboard) *pb.UserDashboard {
	return &pb.UserDashboard{
		UserID:            d.UserID,
		CurrentlyBorrowed: d.CurrentlyBorrowed,
		TotalBorrowed:     d.TotalBorrowed,
		Overdue:           d.Overdue,
		Pending:           d.Pending,
		RemainingLoans:    d.RemainingLoans,
		Loans:             historyToPB(d.Loans),
	}
}

func loanPayload(rec *db.BorrowRecord, actorID string, book *db.Book) events.LoanPayload {
	p := events.LoanPayload{
		RecordID:     rec.ID,
		BookID:       rec.BookID,
		UserID:       rec.UserID,
		ActorID:      actorID,
		Status:       string(rec.Status),
		BorrowDate:   rec.BorrowDate,
		DueDate:      rec.DueDate,
		ReturnDate:   rec.ReturnDate,
		RenewalCount: rec.RenewalCount,
	}
	if book != nil {
		available := book.AvailableCopies
		p.AvailableCopies = &available
	}
	return p
}

func bookPayload(book *db.Book, fieldsChanged []string) events.BookPayload {
	return events.BookPayload{
		BookID:          book.ID,
		Title:           book.Title,
		Author:          book.Author,
		Category:        book.Category,
		TotalCopies:     book.TotalCopies,
		AvailableCopies: book.AvailableCopies,
		Active:          book.Active,
		FieldsChanged:   fieldsChanged,
	}
}
