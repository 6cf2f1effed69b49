package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/librarydesk/circulation/internal/db"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserRepository is the user directory: identities, roles and credentials
type UserRepository struct {
	db   *db.DB
	log  *zap.Logger
	cost int
}

// NewUserRepository creates a new user directory
func NewUserRepository(database *db.DB, logger *zap.Logger) *UserRepository {
	return &UserRepository{
		db:   database,
		log:  logger,
		cost: bcrypt.DefaultCost,
	}
}

// WithHashCost overrides the bcrypt cost; tests use bcrypt.MinCost.
func (r *UserRepository) WithHashCost(cost int) *UserRepository {
	r.cost = cost
	return r
}

// CreateUser registers a user with a bcrypt-hashed password
func (r *UserRepository) CreateUser(ctx context.Context, email, name string, role db.Role, password string) (*db.User, error) {
	email = db.NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: email is invalid", ErrInvalidArgument)
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidArgument, role)
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidArgument)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), r.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &db.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		Role:         role,
		PasswordHash: string(hash),
	}

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, ErrEmailTaken
		}
		r.log.Error("Failed to create user", zap.String("email", email), zap.Error(err))
		return nil, err
	}

	r.log.Info("User created", zap.String("user_id", user.ID), zap.String("role", string(role)))
	return user, nil
}

// GetUser retrieves a user by id
func (r *UserRepository) GetUser(ctx context.Context, id string) (*db.User, error) {
	return r.first(ctx, "id = ?", id)
}

// GetUserByEmail retrieves a user by email, case-insensitively
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*db.User, error) {
	return r.first(ctx, "email = ?", db.NormalizeEmail(email))
}

func (r *UserRepository) first(ctx context.Context, cond string, arg string) (*db.User, error) {
	var user db.User
	if err := r.db.WithContext(ctx).Where(cond, arg).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		r.log.Error("Failed to get user", zap.String("key", arg), zap.Error(err))
		return nil, err
	}
	return &user, nil
}

// Authenticate checks an email/password pair. Unknown emails and wrong
// passwords yield the same error.
func (r *UserRepository) Authenticate(ctx context.Context, email, password string) (*db.User, error) {
	user, err := r.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// ListUsers returns users ordered by name, optionally only those with role
func (r *UserRepository) ListUsers(ctx context.Context, role db.Role, page, pageSize int32) ([]*db.User, int64, error) {
	query := r.db.WithContext(ctx).Model(&db.User{})
	if role != "" {
		query = query.Where("role = ?", role)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		r.log.Error("Failed to count users", zap.Error(err))
		return nil, 0, err
	}

	page, pageSize = NormalizePage(page, pageSize)
	var users []*db.User
	if err := query.Offset(pageOffset(page, pageSize)).Limit(int(pageSize)).Order("name ASC").Find(&users).Error; err != nil {
		r.log.Error("Failed to list users", zap.Error(err))
		return nil, 0, err
	}
	return users, total, nil
}

// UpdateRole changes a user's role. Only admins may do this.
func (r *UserRepository) UpdateRole(ctx context.Context, actorID, userID string, role db.Role) (*db.User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidArgument, role)
	}
	actor, err := r.GetUser(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if actor.Role != db.RoleAdmin {
		return nil, ErrPermissionDenied
	}

	result := r.db.WithContext(ctx).Model(&db.User{}).Where("id = ?", userID).Update("role", role)
	if result.Error != nil {
		r.log.Error("Failed to update role", zap.String("user_id", userID), zap.Error(result.Error))
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrUserNotFound
	}

	r.log.Info("User role changed", zap.String("user_id", userID), zap.String("role", string(role)), zap.String("actor_id", actorID))
	return r.GetUser(ctx, userID)
}

// EnsureAdmin creates an admin with the given credentials unless the email is already registered.
func (r *UserRepository) EnsureAdmin(ctx context.Context, email, password string) (*db.User, bool, error) {
	existing, err := r.GetUserByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}
	user, err := r.CreateUser(ctx, email, "Administrator", db.RoleAdmin, password)
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}
