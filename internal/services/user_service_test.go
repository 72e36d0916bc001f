package services_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Godfather59/score-app/internal/models"
	"github.com/Godfather59/score-app/internal/services"
)

func TestUserService_RegisterAndLogin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	res, err := e.users.Register(ctx, services.RegisterInput{Username: "alice", Email: "alice@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "alice", res.User.Username)
	assert.Equal(t, models.RoleUser, res.User.Role)
	assert.Empty(t, res.User.PasswordHash)
	assert.NotEmpty(t, res.Token)

	claims, err := e.tokens.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)
	assert.Equal(t, models.RoleUser, claims.Role)

	var stored string
	require.NoError(t, e.db.Get(&stored, e.db.Rebind(`SELECT password_hash FROM users WHERE id = ?`), res.User.ID))
	assert.NotEqual(t, "secret123", stored)
	assert.NotEmpty(t, stored)

	login, err := e.users.Login(ctx, services.LoginInput{Username: "alice", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, login.User.ID)
	assert.NotEmpty(t, login.Token)
}

func TestUserService_LoginFailuresAreIndistinguishable(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.users.Register(ctx, services.RegisterInput{Username: "alice", Email: "alice@example.com", Password: "secret123"})
	require.NoError(t, err)

	_, wrongPassword := e.users.Login(ctx, services.LoginInput{Username: "alice", Password: "nope-nope"})
	_, unknownUser := e.users.Login(ctx, services.LoginInput{Username: "mallory", Password: "secret123"})

	require.ErrorIs(t, wrongPassword, services.ErrInvalidCredentials)
	require.ErrorIs(t, unknownUser, services.ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())
}

func TestUserService_RegisterIgnoresRequestedRole(t *testing.T) {
	e := newEnv(t)

	res, err := e.users.Register(context.Background(), services.RegisterInput{
		Username: "sneaky", Email: "sneaky@example.com", Password: "secret123", Role: "admin",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, res.User.Role)
}

func TestUserService_RegisterValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		in    services.RegisterInput
		field string
	}{
		{"short username", services.RegisterInput{Username: "al", Email: "al@example.com", Password: "secret123"}, "username"},
		{"bad email", services.RegisterInput{Username: "alice", Email: "not-an-email", Password: "secret123"}, "email"},
		{"short password", services.RegisterInput{Username: "alice", Email: "alice@example.com", Password: "12345"}, "password"},
		{"unknown role", services.RegisterInput{Username: "alice", Email: "alice@example.com", Password: "secret123", Role: "owner"}, "role"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.users.Register(ctx, tt.in)
			require.ErrorIs(t, err, services.ErrValidation)
			assert.Contains(t, fields(t, err), tt.field)
		})
	}
}

func TestUserService_RegisterDuplicates(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.users.Register(ctx, services.RegisterInput{Username: "alice", Email: "alice@example.com", Password: "secret123"})
	require.NoError(t, err)

	_, err = e.users.Register(ctx, services.RegisterInput{Username: "alice", Email: "other@example.com", Password: "secret123"})
	require.ErrorIs(t, err, services.ErrConflict)
	assert.Equal(t, "Username already exists", err.Error())

	_, err = e.users.Register(ctx, services.RegisterInput{Username: "alice2", Email: "alice@example.com", Password: "secret123"})
	require.ErrorIs(t, err, services.ErrConflict)
	assert.Equal(t, "Email already exists", err.Error())
}

func TestUserService_ConcurrentRegistrationCreatesOneAccount(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.users.Register(ctx, services.RegisterInput{Username: "racer", Email: "racer@example.com", Password: "secret123"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case assert.ErrorIs(t, err, services.ErrConflict):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, attempts-1, conflicts)

	var n int
	require.NoError(t, e.db.Get(&n, `SELECT COUNT(*) FROM users`))
	assert.Equal(t, 1, n)
}

func TestUserService_AdminCRUD(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	editor, err := e.users.CreateUser(ctx, services.CreateUserInput{Username: "ed", Email: "ed@example.com", Password: "secret123", Role: "editor"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleEditor, editor.Role)

	other, err := e.users.CreateUser(ctx, services.CreateUserInput{Username: "bob", Email: "bob@example.com", Password: "secret123", Role: "user"})
	require.NoError(t, err)

	_, err = e.users.CreateUser(ctx, services.CreateUserInput{Username: "x", Email: "x@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, services.ErrValidation)

	updated, err := e.users.UpdateUser(ctx, editor.ID, services.UpdateUserInput{Username: "eddie", Email: "eddie@example.com", Role: "admin"})
	require.NoError(t, err)
	assert.Equal(t, "eddie", updated.Username)
	assert.Equal(t, models.RoleAdmin, updated.Role)

	// Keeping your own email is not a conflict; taking someone else's is.
	_, err = e.users.UpdateUser(ctx, editor.ID, services.UpdateUserInput{Username: "eddie", Email: "eddie@example.com", Role: "editor"})
	require.NoError(t, err)
	_, err = e.users.UpdateUser(ctx, editor.ID, services.UpdateUserInput{Username: "eddie", Email: other.Email, Role: "editor"})
	assert.ErrorIs(t, err, services.ErrConflict)

	_, err = e.users.UpdateUser(ctx, "missing", services.UpdateUserInput{Username: "ghost", Email: "ghost@example.com", Role: "user"})
	assert.ErrorIs(t, err, services.ErrNotFound)

	all, err := e.users.GetAllUsers(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, u := range all {
		assert.Empty(t, u.PasswordHash)
	}

	require.NoError(t, e.users.DeleteUser(ctx, other.ID))
	_, err = e.users.GetUserByID(ctx, other.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)
	assert.ErrorIs(t, e.users.DeleteUser(ctx, other.ID), services.ErrNotFound)
}

func TestUserService_UpdatePassword(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	res, err := e.users.Register(ctx, services.RegisterInput{Username: "alice", Email: "alice@example.com", Password: "secret123"})
	require.NoError(t, err)

	err = e.users.UpdatePassword(ctx, res.User.ID, services.ChangePasswordInput{CurrentPassword: "wrong", NewPassword: "newsecret"})
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)

	require.NoError(t, e.users.UpdatePassword(ctx, res.User.ID, services.ChangePasswordInput{CurrentPassword: "secret123", NewPassword: "newsecret"}))

	_, err = e.users.Login(ctx, services.LoginInput{Username: "alice", Password: "secret123"})
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
	_, err = e.users.Login(ctx, services.LoginInput{Username: "alice", Password: "newsecret"})
	assert.NoError(t, err)
}

func TestUserService_EnsureAdmin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	created, err := e.users.EnsureAdmin(ctx, "root", "root@example.com", "rootpass")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = e.users.EnsureAdmin(ctx, "root", "root@example.com", "rootpass")
	require.NoError(t, err)
	assert.False(t, created)

	login, err := e.users.Login(ctx, services.LoginInput{Username: "root", Password: "rootpass"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, login.User.Role)
}
