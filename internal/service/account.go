// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/chatcat/chatcat/internal/apperr"
	"github.com/chatcat/chatcat/internal/auth"
	"github.com/chatcat/chatcat/internal/metrics"
	"github.com/chatcat/chatcat/internal/model"
	"github.com/chatcat/chatcat/internal/repository"
	"github.com/oklog/ulid/v2"
)

// Service errors.
var (
	ErrMissingCredentials = errors.New("email and password are required")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// UserStore persists site owner accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

// AccountService handles registration and login.
type AccountService struct {
	users   UserStore
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewAccountService creates a new AccountService.
func NewAccountService(users UserStore, logger *slog.Logger, recorder metrics.Recorder) *AccountService {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &AccountService{users: users, logger: logger, metrics: recorder}
}

// Register creates an account for email with password.
func (s *AccountService) Register(ctx context.Context, email, password string) (*model.User, error) {
	const op = "account.register"

	email = model.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, &apperr.Error{Kind: apperr.BadRequest, Op: op, Msg: "Email and password are required", Err: ErrMissingCredentials}
	}
	if !model.ValidEmail(email) {
		return nil, &apperr.Error{Kind: apperr.BadRequest, Op: op, Msg: "Invalid email address", Err: ErrInvalidEmail}
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) {
			return nil, &apperr.Error{Kind: apperr.BadRequest, Op: op, Msg: "Password must be at least 8 characters", Err: err}
		}
		return nil, apperr.Wrap(apperr.InternalError, op, err)
	}

	user := &model.User{
		ID:           ulid.Make().String(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, &apperr.Error{Kind: apperr.BadRequest, Op: op, Msg: "Email already registered", Err: err}
		}
		return nil, apperr.Wrap(apperr.InternalError, op, err)
	}

	s.metrics.IncAccountEvent("registered")
	s.logger.Info("user registered", slog.String("user_id", user.ID))

	return user, nil
}

// Login checks credentials and returns the matching user.
func (s *AccountService) Login(ctx context.Context, email, password string) (*model.User, error) {
	const op = "account.login"

	email = model.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, &apperr.Error{Kind: apperr.BadRequest, Op: op, Msg: "Email and password are required", Err: ErrMissingCredentials}
	}

	invalid := &apperr.Error{Kind: apperr.Unauthenticated, Op: op, Msg: "Invalid credentials", Err: ErrInvalidCredentials}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.metrics.IncAccountEvent("login_failed")
			return nil, invalid
		}
		return nil, apperr.Wrap(apperr.InternalError, op, err)
	}

	ok, err := auth.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		s.logger.Error("stored password hash unreadable",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return nil, apperr.Wrap(apperr.InternalError, op, err)
	}
	if !ok {
		s.metrics.IncAccountEvent("login_failed")
		return nil, invalid
	}

	s.metrics.IncAccountEvent("login")
	return user, nil
}
