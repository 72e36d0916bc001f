package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/Godfather59/score-app/internal/auth"
	"github.com/Godfather59/score-app/internal/database"
	"github.com/Godfather59/score-app/internal/models"
)

// RegisterInput is the self-service sign-up payload. A requested role is
// ignored; new accounts always start as plain users.
type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Role     string `json:"role,omitempty" validate:"omitempty,oneof=admin editor user"`
}

// LoginInput is the login payload.
type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// CreateUserInput is used by administrators to create accounts with any role.
type CreateUserInput struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Role     string `json:"role" validate:"required,oneof=admin editor user"`
}

// UpdateUserInput replaces a user's profile and role.
type UpdateUserInput struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Role     string `json:"role" validate:"required,oneof=admin editor user"`
}

// ChangePasswordInput lets a user replace their own password.
type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6,max=72"`
}

// AuthResult is returned by successful registration and login.
type AuthResult struct {
	User      models.User
	Token     string
	ExpiresAt time.Time
}

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	Register(ctx context.Context, in RegisterInput) (AuthResult, error)
	Login(ctx context.Context, in LoginInput) (AuthResult, error)
	GetAllUsers(ctx context.Context) ([]models.User, error)
	GetUserByID(ctx context.Context, id string) (models.User, error)
	CreateUser(ctx context.Context, in CreateUserInput) (models.User, error)
	UpdateUser(ctx context.Context, id string, in UpdateUserInput) (models.User, error)
	UpdatePassword(ctx context.Context, id string, in ChangePasswordInput) error
	DeleteUser(ctx context.Context, id string) error
	EnsureAdmin(ctx context.Context, username, email, password string) (bool, error)
}

// UserService provides business logic for accounts and authentication.
type UserService struct {
	db     *sqlx.DB
	hasher *auth.PasswordHasher
	tokens *auth.TokenManager
	events EventServiceProvider

	dummyOnce sync.Once
	dummyHash string
}

// NewUserService creates a new UserService.
func NewUserService(db *sqlx.DB, hasher *auth.PasswordHasher, tokens *auth.TokenManager, events EventServiceProvider) *UserService {
	return &UserService{db: db, hasher: hasher, tokens: tokens, events: events}
}

const userColumns = `id, username, email, password_hash, role, created_at, updated_at`

// Register creates a plain user account and logs it in.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := validateStruct(in); err != nil {
		return AuthResult{}, err
	}
	if in.Role != "" && models.Role(in.Role) != models.RoleUser {
		log.Warn().Str("username", in.Username).Str("requested_role", in.Role).Msg("Ignoring elevated role on self-registration")
	}

	user, err := s.insertUser(ctx, in.Username, in.Email, in.Password, models.RoleUser)
	if err != nil {
		return AuthResult{}, err
	}
	recordEvent(ctx, s.events, "user.register", LevelInfo, fmt.Sprintf("User '%s' registered", user.Username), &user.ID)

	return s.issue(user)
}

// Login verifies credentials and issues a token. Unknown usernames and wrong
// passwords produce the same error.
func (s *UserService) Login(ctx context.Context, in LoginInput) (AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := validateStruct(in); err != nil {
		return AuthResult{}, err
	}

	user, err := s.getUserBy(ctx, "username", in.Username)
	if errors.Is(err, ErrNotFound) {
		// Spend the same bcrypt time as a real comparison.
		_, _ = s.hasher.Verify(ctx, in.Password, s.dummy(ctx))
		recordEvent(ctx, s.events, "user.login.failed", LevelWarn, fmt.Sprintf("Failed login for unknown user '%s'", in.Username), nil)
		return AuthResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return AuthResult{}, err
	}

	ok, err := s.hasher.Verify(ctx, in.Password, user.PasswordHash)
	if err != nil {
		return AuthResult{}, err
	}
	if !ok {
		recordEvent(ctx, s.events, "user.login.failed", LevelWarn, fmt.Sprintf("Failed login for user '%s'", user.Username), &user.ID)
		return AuthResult{}, ErrInvalidCredentials
	}

	recordEvent(ctx, s.events, "user.login", LevelInfo, fmt.Sprintf("User '%s' logged in", user.Username), &user.ID)
	return s.issue(user)
}

func (s *UserService) dummy(ctx context.Context) string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash(context.WithoutCancel(ctx), uuid.NewString())
		if err != nil {
			log.Error().Err(err).Msg("Failed to prepare dummy password hash")
		}
		s.dummyHash = h
	})
	return s.dummyHash
}

func (s *UserService) issue(user models.User) (AuthResult, error) {
	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return AuthResult{}, err
	}
	user.PasswordHash = ""
	return AuthResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// GetAllUsers lists every account ordered by username.
func (s *UserService) GetAllUsers(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	if err := s.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY username`); err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	return users, nil
}

// GetUserByID retrieves a single user by their ID.
func (s *UserService) GetUserByID(ctx context.Context, id string) (models.User, error) {
	user, err := s.getUserBy(ctx, "id", id)
	if err != nil {
		return models.User{}, err
	}
	user.PasswordHash = ""
	return user, nil
}

// getUserBy loads a user including the password hash. column is one of a
// fixed set of identifiers, never user input.
func (s *UserService) getUserBy(ctx context.Context, column, value string) (models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, s.db.Rebind(`SELECT `+userColumns+` FROM users WHERE `+column+` = ?`), value)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, notFoundf("User not found")
	}
	if err != nil {
		return models.User{}, fmt.Errorf("failed to query user by %s: %w", column, err)
	}
	return user, nil
}

// CreateUser creates an account with an explicit role.
func (s *UserService) CreateUser(ctx context.Context, in CreateUserInput) (models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := validateStruct(in); err != nil {
		return models.User{}, err
	}

	user, err := s.insertUser(ctx, in.Username, in.Email, in.Password, models.Role(in.Role))
	if err != nil {
		return models.User{}, err
	}
	recordEvent(ctx, s.events, "user.create", LevelInfo, fmt.Sprintf("User '%s' created with role %s", user.Username, user.Role), &user.ID)
	return user, nil
}

// EnsureAdmin creates an admin account unless the username already exists.
// It reports whether an account was created.
func (s *UserService) EnsureAdmin(ctx context.Context, username, email, password string) (bool, error) {
	_, err := s.getUserBy(ctx, "username", username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return false, err
	}

	_, err = s.CreateUser(ctx, CreateUserInput{Username: username, Email: email, Password: password, Role: string(models.RoleAdmin)})
	if err != nil {
		return false, fmt.Errorf("failed to create admin: %w", err)
	}
	return true, nil
}

func (s *UserService) insertUser(ctx context.Context, username, email, password string, role models.Role) (models.User, error) {
	if err := s.checkAvailable(ctx, "", username, email); err != nil {
		return models.User{}, err
	}

	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return models.User{}, err
	}

	now := time.Now().UTC()
	user := models.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err = s.db.NamedExecContext(ctx, `INSERT INTO users (id, username, email, password_hash, role, created_at, updated_at)
		VALUES (:id, :username, :email, :password_hash, :role, :created_at, :updated_at)`, user)
	if database.IsUniqueViolation(err) {
		// Lost a race with a concurrent registration.
		return models.User{}, conflictf("Username or email already exists")
	}
	if err != nil {
		return models.User{}, fmt.Errorf("failed to insert user: %w", err)
	}

	user.PasswordHash = ""
	return user, nil
}

// checkAvailable reports a conflict if username or email belongs to an
// account other than exceptID.
func (s *UserService) checkAvailable(ctx context.Context, exceptID, username, email string) error {
	for _, c := range []struct{ column, value, msg string }{
		{"username", username, "Username already exists"},
		{"email", email, "Email already exists"},
	} {
		existing, err := s.getUserBy(ctx, c.column, c.value)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if existing.ID != exceptID {
			return conflictf("%s", c.msg)
		}
	}
	return nil
}

// UpdateUser replaces a user's username, email and role.
func (s *UserService) UpdateUser(ctx context.Context, id string, in UpdateUserInput) (models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := validateStruct(in); err != nil {
		return models.User{}, err
	}
	if _, err := s.getUserBy(ctx, "id", id); err != nil {
		return models.User{}, err
	}
	if err := s.checkAvailable(ctx, id, in.Username, in.Email); err != nil {
		return models.User{}, err
	}

	_, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE users SET username = ?, email = ?, role = ?, updated_at = ? WHERE id = ?`),
		in.Username, in.Email, in.Role, time.Now().UTC(), id)
	if database.IsUniqueViolation(err) {
		return models.User{}, conflictf("Username or email already exists")
	}
	if err != nil {
		return models.User{}, fmt.Errorf("failed to update user: %w", err)
	}

	recordEvent(ctx, s.events, "user.update", LevelInfo, fmt.Sprintf("User '%s' updated (role %s)", in.Username, in.Role), &id)
	return s.GetUserByID(ctx, id)
}

// UpdatePassword verifies the current password, then hashes and stores the new one.
func (s *UserService) UpdatePassword(ctx context.Context, id string, in ChangePasswordInput) error {
	if err := validateStruct(in); err != nil {
		return err
	}
	user, err := s.getUserBy(ctx, "id", id)
	if err != nil {
		return err
	}

	ok, err := s.hasher.Verify(ctx, in.CurrentPassword, user.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCredentials
	}

	hash, err := s.hasher.Hash(ctx, in.NewPassword)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`),
		hash, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	recordEvent(ctx, s.events, "user.password", LevelInfo, fmt.Sprintf("User '%s' changed their password", user.Username), &id)
	return nil
}

// DeleteUser removes a user from the database.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	if err := deleteByID(ctx, s.db, "users", id, "User not found"); err != nil {
		return err
	}
	recordEvent(ctx, s.events, "user.delete", LevelInfo, fmt.Sprintf("User %s deleted", id), &id)
	return nil
}

// deleteByID deletes one row from table and maps a missing row to ErrNotFound.
func deleteByID(ctx context.Context, db *sqlx.DB, table, id, notFoundMsg string) error {
	res, err := db.ExecContext(ctx, db.Rebind(`DELETE FROM `+table+` WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFoundf("%s", notFoundMsg)
	}
	return nil
}
