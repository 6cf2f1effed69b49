package grpc

import (
	"context"

	pb "github.com/librarydesk/circulation/contracts/circulation/v1"
	"github.com/librarydesk/circulation/internal/db"
	"github.com/librarydesk/circulation/internal/events"
	"github.com/librarydesk/circulation/internal/repo"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// RegisterUser adds a user to the directory. Anyone may register a student;
// staff accounts need an admin actor.
func (s *CirculationServer) RegisterUser(ctx context.Context, req *pb.RegisterUserRequest) (*pb.RegisterUserResponse, error) {
	if req.Email == "" {
		return nil, status.Error(codes.InvalidArgument, "email is required")
	}
	if req.Name == "" {
		return nil, status.Error(codes.InvalidArgument, "name is required")
	}
	if req.Password == "" {
		return nil, status.Error(codes.InvalidArgument, "password is required")
	}
	role := db.Role(req.Role)
	if role == "" {
		role = db.RoleStudent
	}
	if !role.Valid() {
		return nil, status.Errorf(codes.InvalidArgument, "unknown role %q", req.Role)
	}
	if role != db.RoleStudent {
		if req.ActorID == "" {
			return nil, status.Error(codes.PermissionDenied, "registering staff requires an admin")
		}
		actor, err := s.users.GetUser(ctx, req.ActorID)
		if err != nil {
			return nil, s.toStatus("register user", err)
		}
		if actor.Role != db.RoleAdmin {
			return nil, s.toStatus("register user", repo.ErrPermissionDenied)
		}
	}

	user, err := s.users.CreateUser(ctx, req.Email, req.Name, role, req.Password)
	if err != nil {
		return nil, s.toStatus("register user", err)
	}

	s.publishAsync(ctx, events.EventTypeUserRegistered, func(ctx context.Context) error {
		return s.publisher.PublishUserRegistered(ctx, events.UserPayload{
			UserID: user.ID,
			Email:  user.Email,
			Name:   user.Name,
			Role:   string(user.Role),
		})
	})

	return &pb.RegisterUserResponse{User: userToPB(user)}, nil
}

// Authenticate checks an email and password against the directory
func (s *CirculationServer) Authenticate(ctx context.Context, req *pb.AuthenticateRequest) (*pb.AuthenticateResponse, error) {
	if req.Email == "" || req.Password == "" {
		return nil, status.Error(codes.InvalidArgument, "email and password are required")
	}
	user, err := s.users.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, s.toStatus("authenticate", err)
	}
	return &pb.AuthenticateResponse{User: userToPB(user)}, nil
}

// GetUser retrieves a user by id
func (s *CirculationServer) GetUser(ctx context.Context, req *pb.GetUserRequest) (*pb.GetUserResponse, error) {
	if req.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	user, err := s.users.GetUser(ctx, req.ID)
	if err != nil {
		return nil, s.toStatus("get user", err)
	}
	return &pb.GetUserResponse{User: userToPB(user)}, nil
}

// ListUsers returns a page of users, optionally of one role
func (s *CirculationServer) ListUsers(ctx context.Context, req *pb.ListUsersRequest) (*pb.ListUsersResponse, error) {
	role := db.Role(req.Role)
	if role != "" && !role.Valid() {
		return nil, status.Errorf(codes.InvalidArgument, "unknown role %q", req.Role)
	}
	page, pageSize := normalizePagination(req.Pagination)

	users, total, err := s.users.ListUsers(ctx, role, page, pageSize)
	if err != nil {
		return nil, s.toStatus("list users", err)
	}
	out := make([]*pb.User, len(users))
	for i, u := range users {
		out[i] = userToPB(u)
	}
	return &pb.ListUsersResponse{Users: out, Pagination: paginationOf(page, pageSize, total)}, nil
}

// UpdateUserRole changes a user's role. Admin only.
func (s *CirculationServer) UpdateUserRole(ctx context.Context, req *pb.UpdateUserRoleRequest) (*pb.UpdateUserRoleResponse, error) {
	if req.ActorID == "" || req.UserID == "" {
		return nil, status.Error(codes.InvalidArgument, "actor_id and user_id are required")
	}
	user, err := s.users.UpdateRole(ctx, req.ActorID, req.UserID, db.Role(req.Role))
	if err != nil {
		return nil, s.toStatus("update user role", err)
	}
	return &pb.UpdateUserRoleResponse{User: userToPB(user)}, nil
}
