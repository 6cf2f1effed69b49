package repo

import (
	"context"
	"testing"

	"github.com/librarydesk/circulation/internal/db"
	"github.com/librarydesk/circulation/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newUserRepo(t *testing.T, database *db.DB) *UserRepository {
	t.Helper()
	return NewUserRepository(database, logger.NewLogger("test", "info")).WithHashCost(bcrypt.MinCost)
}

func TestCreateUserAndAuthenticate(t *testing.T) {
	database := setupTestDB(t)
	users := newUserRepo(t, database)
	ctx := context.Background()

	user, err := users.CreateUser(ctx, "  Student@Library.EDU ", "Sam Student", db.RoleStudent, "s3cret")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "student@library.edu", user.Email)
	assert.NotEqual(t, "s3cret", user.PasswordHash)

	got, err := users.Authenticate(ctx, "STUDENT@library.edu", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = users.Authenticate(ctx, "student@library.edu", "wrong")
	assert.Equal(t, ErrInvalidCredentials, err)

	_, err = users.Authenticate(ctx, "nobody@library.edu", "s3cret")
	assert.Equal(t, ErrInvalidCredentials, err)
}

func TestCreateUserValidation(t *testing.T) {
	database := setupTestDB(t)
	users := newUserRepo(t, database)
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		role     db.Role
		password string
	}{
		{"missing email", "", db.RoleStudent, "pw"},
		{"malformed email", "not-an-email", db.RoleStudent, "pw"},
		{"unknown role", "a@b.c", db.Role("janitor"), "pw"},
		{"missing password", "a@b.c", db.RoleStudent, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := users.CreateUser(ctx, tt.email, "Name", tt.role, tt.password)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	database := setupTestDB(t)
	users := newUserRepo(t, database)
	ctx := context.Background()

	_, err := users.CreateUser(ctx, "dup@library.edu", "First", db.RoleStudent, "pw")
	require.NoError(t, err)

	_, err = users.CreateUser(ctx, "DUP@library.edu", "Second", db.RoleLibrarian, "pw")
	assert.Equal(t, ErrEmailTaken, err)
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestGetUserNotFound(t *testing.T) {
	database := setupTestDB(t)
	users := newUserRepo(t, database)

	_, err := users.GetUser(context.Background(), "missing")
	assert.Equal(t, ErrUserNotFound, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListUsersByRole(t *testing.T) {
	database := setupTestDB(t)
	users := newUserRepo(t, database)
	ctx := context.Background()

	for _, u := range []struct {
		email string
		role  db.Role
	}{
		{"b@library.edu", db.RoleStudent},
		{"a@library.edu", db.RoleStudent},
		{"lib@library.edu", db.RoleLibrarian},
	} {
		_, err := users.CreateUser(ctx, u.email, u.email, u.role, "pw")
		require.NoError(t, err)
	}

	all, total, err := users.ListUsers(ctx, "", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, all, 3)

	students, total, err := users.ListUsers(ctx, db.RoleStudent, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, "a@library.edu", students[0].Email)
}

func TestUpdateRoleRequiresAdmin(t *testing.T) {
	database := setupTestDB(t)
	users := newUserRepo(t, database)
	ctx := context.Background()

	admin, err := users.CreateUser(ctx, "admin@library.edu", "Admin", db.RoleAdmin, "pw")
	require.NoError(t, err)
	librarian, err := users.CreateUser(ctx, "lib@library.edu", "Lib", db.RoleLibrarian, "pw")
	require.NoError(t, err)
	student, err := users.CreateUser(ctx, "stu@library.edu", "Stu", db.RoleStudent, "pw")
	require.NoError(t, err)

	_, err = users.UpdateRole(ctx, librarian.ID, student.ID, db.RoleLibrarian)
	assert.Equal(t, ErrPermissionDenied, err)

	updated, err := users.UpdateRole(ctx, admin.ID, student.ID, db.RoleLibrarian)
	require.NoError(t, err)
	assert.Equal(t, db.RoleLibrarian, updated.Role)
	assert.Equal(t, "stu@library.edu", updated.Email)

	_, err = users.UpdateRole(ctx, admin.ID, "missing", db.RoleStudent)
	assert.Equal(t, ErrUserNotFound, err)

	_, err = users.UpdateRole(ctx, admin.ID, student.ID, db.Role("owner"))
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestEnsureAdmin(t *testing.T) {
	database := setupTestDB(t)
	users := newUserRepo(t, database)
	ctx := context.Background()

	admin, created, err := users.EnsureAdmin(ctx, "root@library.edu", "pw")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, db.RoleAdmin, admin.Role)

	again, created, err := users.EnsureAdmin(ctx, "root@library.edu", "other")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, admin.ID, again.ID)
}
