package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	pb "github.com/librarydesk/circulation/contracts/circulation/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// fakeClient records the last request of each call it overrides
type fakeClient struct {
	pb.CirculationServiceClient

	listBooks *pb.ListBooksRequest
	borrow    *pb.RequestBorrowRequest
	decide    *pb.DecideRequestRequest
	register  *pb.RegisterUserRequest
	auth      *pb.AuthenticateRequest
	export    *pb.ExportHistoryRequest
	returnErr error
}

func (f *fakeClient) ListBooks(_ context.Context, in *pb.ListBooksRequest, _ ...grpc.CallOption) (*pb.ListBooksResponse, error) {
	f.listBooks = in
	return &pb.ListBooksResponse{
		Books: []*pb.Book{
			{ID: "B1", Title: "Dune", Author: "Frank Herbert", Category: "Science Fiction", TotalCopies: 3, AvailableCopies: 2, Active: true},
		},
		Pagination: &pb.Pagination{Page: 1, PageSize: 10, Total: 1, TotalPages: 1},
	}, nil
}

func (f *fakeClient) RequestBorrow(_ context.Context, in *pb.RequestBorrowRequest, _ ...grpc.CallOption) (*pb.RequestBorrowResponse, error) {
	f.borrow = in
	now := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	return &pb.RequestBorrowResponse{Record: &pb.BorrowRecord{
		ID: "R1", BookID: in.BookID, UserID: in.UserID,
		BorrowDate: now, DueDate: now.AddDate(0, 0, 14),
		Status: "pending", EffectiveStatus: "pending",
	}}, nil
}

func (f *fakeClient) DecideRequest(_ context.Context, in *pb.DecideRequestRequest, _ ...grpc.CallOption) (*pb.DecideRequestResponse, error) {
	f.decide = in
	return &pb.DecideRequestResponse{Record: &pb.BorrowRecord{ID: in.RecordID, Status: "pending"}, Removed: !in.Approve}, nil
}

func (f *fakeClient) ReturnBook(context.Context, *pb.ReturnBookRequest, ...grpc.CallOption) (*pb.ReturnBookResponse, error) {
	return nil, f.returnErr
}

func (f *fakeClient) RegisterUser(_ context.Context, in *pb.RegisterUserRequest, _ ...grpc.CallOption) (*pb.RegisterUserResponse, error) {
	f.register = in
	return &pb.RegisterUserResponse{User: &pb.User{ID: "U9", Email: in.Email, Name: in.Name, Role: in.Role}}, nil
}

func (f *fakeClient) Authenticate(_ context.Context, in *pb.AuthenticateRequest, _ ...grpc.CallOption) (*pb.AuthenticateResponse, error) {
	f.auth = in
	return &pb.AuthenticateResponse{User: &pb.User{ID: "U1", Email: in.Email, Name: "Ada", Role: "librarian"}}, nil
}

func (f *fakeClient) ExportHistory(_ context.Context, in *pb.ExportHistoryRequest, _ ...grpc.CallOption) (*pb.ExportHistoryResponse, error) {
	f.export = in
	return &pb.ExportHistoryResponse{Key: "reports/history-x.csv", URL: "file:///exports/reports/history-x.csv", Rows: 4}, nil
}

func run(t *testing.T, client *fakeClient, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	a := &app{out: &out, in: strings.NewReader(stdin), client: client}
	cmd := a.rootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	err := cmd.Execute()
	return out.String(), err
}

func TestBooksList(t *testing.T) {
	client := &fakeClient{}
	out, err := run(t, client, "", "books", "list", "--category", "Science Fiction", "--available", "--page-size", "5")
	require.NoError(t, err)

	require.NotNil(t, client.listBooks)
	assert.Equal(t, "Science Fiction", client.listBooks.Category)
	assert.True(t, client.listBooks.AvailableOnly)
	assert.True(t, client.listBooks.ActiveOnly)
	assert.Equal(t, int32(5), client.listBooks.Pagination.PageSize)

	assert.Contains(t, out, "Dune")
	assert.Contains(t, out, "2/3")
	assert.Contains(t, out, "page 1/1 (1 total)")
}

func TestBorrowRequestDefaultsToActor(t *testing.T) {
	client := &fakeClient{}
	out, err := run(t, client, "", "--actor", "U2", "borrow", "request", "B1")
	require.NoError(t, err)

	assert.Equal(t, "U2", client.borrow.UserID)
	assert.Equal(t, "B1", client.borrow.BookID)
	assert.Contains(t, out, "R1")
	assert.Contains(t, out, "2025-03-17")
}

func TestDecideCommands(t *testing.T) {
	client := &fakeClient{}
	_, err := run(t, client, "", "borrow", "approve", "R1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--actor")
	assert.Nil(t, client.decide)

	out, err := run(t, client, "", "--actor", "ADMIN", "borrow", "reject", "R1")
	require.NoError(t, err)
	assert.False(t, client.decide.Approve)
	assert.Equal(t, "ADMIN", client.decide.ActorID)
	assert.Equal(t, "Rejected R1\n", out)
}

func TestServerErrorsPropagate(t *testing.T) {
	client := &fakeClient{returnErr: status.Error(codes.NotFound, "record not found")}
	_, err := run(t, client, "", "--actor", "U1", "borrow", "return", "R1")
	require.Error(t, err)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestUsersAddReadsPassword(t *testing.T) {
	client := &fakeClient{}
	out, err := run(t, client, "s3cret-pass\n", "users", "add", "--email", "emma@example.com", "--name", "Emma")
	require.NoError(t, err)

	assert.Equal(t, "s3cret-pass", client.register.Password)
	assert.Equal(t, "student", client.register.Role)
	assert.Empty(t, client.register.ActorID)
	assert.Contains(t, out, "Registered emma@example.com (U9) as student")
}

func TestUsersAddRequiresPassword(t *testing.T) {
	client := &fakeClient{}
	_, err := run(t, client, "", "users", "add", "--email", "emma@example.com", "--name", "Emma")
	require.Error(t, err)
	assert.Nil(t, client.register)
}

func TestLoginJSON(t *testing.T) {
	client := &fakeClient{}
	out, err := run(t, client, "pw\n", "--json", "users", "login", "--email", "ada@example.com")
	require.NoError(t, err)

	assert.Equal(t, "pw", client.auth.Password)
	var resp pb.AuthenticateResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "U1", resp.User.ID)
	assert.Equal(t, "librarian", resp.User.Role)
}

func TestExportHistory(t *testing.T) {
	client := &fakeClient{}
	out, err := run(t, client, "", "--actor", "ADMIN", "export", "history", "--status", "overdue")
	require.NoError(t, err)

	assert.Equal(t, "ADMIN", client.export.ActorID)
	assert.Equal(t, "overdue", client.export.Status)
	assert.Contains(t, out, "Exported 4 rows to reports/history-x.csv")
}
