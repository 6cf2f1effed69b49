package grpc

import (
	"context"

	pb "github.com/librarydesk/circulation/contracts/circulation/v1"
	"github.com/librarydesk/circulation/internal/events"
	"github.com/librarydesk/circulation/internal/repo"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ListBooks returns a paginated list of books
func (s *CirculationServer) ListBooks(ctx context.Context, req *pb.ListBooksRequest) (*pb.ListBooksResponse, error) {
	page, pageSize := normalizePagination(req.Pagination)

	books, total, err := s.catalog.ListBooks(ctx, repo.BookFilter{
		Category:      req.Category,
		Author:        req.Author,
		Query:         req.Query,
		AvailableOnly: req.AvailableOnly,
		ActiveOnly:    req.ActiveOnly,
		Page:          page,
		PageSize:      pageSize,
	})
	if err != nil {
		return nil, s.toStatus("list books", err)
	}

	pbBooks := make([]*pb.Book, len(books))
	for i, book := range books {
		pbBooks[i] = bookToPB(book)
	}
	return &pb.ListBooksResponse{
		Books:      pbBooks,
		Pagination: paginationOf(page, pageSize, total),
	}, nil
}

// GetBook retrieves a single book by id
func (s *CirculationServer) GetBook(ctx context.Context, req *pb.GetBookRequest) (*pb.GetBookResponse, error) {
	if req.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	book, err := s.catalog.GetBook(ctx, req.ID)
	if err != nil {
		return nil, s.toStatus("get book", err)
	}
	return &pb.GetBookResponse{Book: bookToPB(book)}, nil
}

// CreateBook adds a title to the catalog. Staff only.
func (s *CirculationServer) CreateBook(ctx context.Context, req *pb.CreateBookRequest) (*pb.CreateBookResponse, error) {
	if err := validateBookForCreate(req.Book); err != nil {
		return nil, err
	}
	if _, err := s.requireStaff(ctx, req.ActorID); err != nil {
		return nil, s.toStatus("create book", err)
	}

	book := pbToBook(req.Book)
	if err := s.catalog.CreateBook(ctx, book); err != nil {
		return nil, s.toStatus("create book", err)
	}

	s.publishAsync(ctx, events.EventTypeBookCreated, func(ctx context.Context) error {
		return s.publisher.PublishBookEvent(ctx, events.EventTypeBookCreated, bookPayload(book, nil))
	})

	return &pb.CreateBookResponse{Book: bookToPB(book)}, nil
}

// UpdateBook updates the fields named in the mask. Staff only.
func (s *CirculationServer) UpdateBook(ctx context.Context, req *pb.UpdateBookRequest) (*pb.UpdateBookResponse, error) {
	if err := validateBookForUpdate(req.Book, req.UpdateMask); err != nil {
		return nil, err
	}
	if _, err := s.requireStaff(ctx, req.ActorID); err != nil {
		return nil, s.toStatus("update book", err)
	}

	fieldsChanged, err := s.catalog.UpdateBook(ctx, pbToBook(req.Book), req.UpdateMask)
	if err != nil {
		return nil, s.toStatus("update book", err)
	}

	updated, err := s.catalog.GetBook(ctx, req.Book.ID)
	if err != nil {
		return nil, s.toStatus("get updated book", err)
	}

	// Publish only if something changed
	if len(fieldsChanged) > 0 {
		s.publishAsync(ctx, events.EventTypeBookUpdated, func(ctx context.Context) error {
			return s.publisher.PublishBookEvent(ctx, events.EventTypeBookUpdated, bookPayload(updated, fieldsChanged))
		})
	}

	if fieldsChanged == nil {
		fieldsChanged = []string{}
	}
	return &pb.UpdateBookResponse{Book: bookToPB(updated), FieldsChanged: fieldsChanged}, nil
}

// DeleteBook withdraws a title from the catalog. Staff only.
func (s *CirculationServer) DeleteBook(ctx context.Context, req *pb.DeleteBookRequest) (*pb.DeleteBookResponse, error) {
	if req.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	if _, err := s.requireStaff(ctx, req.ActorID); err != nil {
		return nil, s.toStatus("delete book", err)
	}

	if err := s.catalog.DeleteBook(ctx, req.ID); err != nil {
		return nil, s.toStatus("delete book", err)
	}

	s.publishAsync(ctx, events.EventTypeBookDeleted, func(ctx context.Context) error {
		return s.publisher.PublishBookEvent(ctx, events.EventTypeBookDeleted, events.BookPayload{BookID: req.ID})
	})

	return &pb.DeleteBookResponse{Success: true}, nil
}

// ListCategories returns the categories of active books with their title counts
func (s *CirculationServer) ListCategories(ctx context.Context, _ *pb.ListCategoriesRequest) (*pb.ListCategoriesResponse, error) {
	cats, err := s.catalog.ListCategories(ctx)
	if err != nil {
		return nil, s.toStatus("list categories", err)
	}
	out := make([]*pb.Category, len(cats))
	for i, c := range cats {
		out[i] = &pb.Category{Name: c.Name, Count: c.Count}
	}
	return &pb.ListCategoriesResponse{Categories: out}, nil
}

// validateBookForCreate validates a book for creation (id is optional)
func validateBookForCreate(book *pb.Book) error {
	if book == nil {
		return status.Error(codes.InvalidArgument, "book is required")
	}
	if book.Title == "" {
		return status.Error(codes.InvalidArgument, "title is required")
	}
	if book.Author == "" {
		return status.Error(codes.InvalidArgument, "author is required")
	}
	if book.TotalCopies < 0 {
		return status.Error(codes.InvalidArgument, "total_copies must not be negative")
	}
	return nil
}

// validateBookForUpdate requires an explicit mask so a partial body never
// clears fields it does not mention.
func validateBookForUpdate(book *pb.Book, mask []string) error {
	if book == nil {
		return status.Error(codes.InvalidArgument, "book is required")
	}
	if book.ID == "" {
		return status.Error(codes.InvalidArgument, "id is required")
	}
	if len(mask) == 0 {
		return status.Error(codes.InvalidArgument, "update_mask is required")
	}
	for _, field := range mask {
		if !masked(repo.BookFields, field) {
			return status.Errorf(codes.InvalidArgument, "unknown update_mask field %q", field)
		}
	}
	if book.TotalCopies < 0 {
		return status.Error(codes.InvalidArgument, "total_copies must not be negative")
	}
	if masked(mask, "title") && book.Title == "" {
		return status.Error(codes.InvalidArgument, "title is required")
	}
	if masked(mask, "author") && book.Author == "" {
		return status.Error(codes.InvalidArgument, "author is required")
	}
	return nil
}

// masked reports whether field is named in mask.
func masked(mask []string, field string) bool {
	for _, f := range mask {
		if f == field {
			return true
		}
	}
	return false
}
