package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/civicfix/civicfix-server/internal/auth"
	"github.com/civicfix/civicfix-server/internal/config"
	"github.com/civicfix/civicfix-server/internal/domain"
	"github.com/civicfix/civicfix-server/internal/repository"
	apperrors "github.com/civicfix/civicfix-server/pkg/util"
)

// UserService coordinates registration, login, and account administration.
type UserService struct {
	store      repository.Store
	tokenMgr   *auth.TokenManager
	bcryptCost int
	pages      pageRules
	now        func() time.Time
}

// RegisterInput describes a new citizen account.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	PhotoURL string
}

// AuthResult is returned by register and login.
type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// UserPage is one page of a user listing.
type UserPage struct {
	Users      []domain.User
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// NewUserService builds the service.
func NewUserService(cfg config.Config, store repository.Store) *UserService {
	return &UserService{
		store:      store,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
		pages:      newPageRules(cfg.Limits),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a citizen account and signs a token for it.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	name := strings.TrimSpace(input.Name)
	email := normalizeEmail(input.Email)
	if name == "" || email == "" || input.Password == "" {
		return nil, apperrors.NewValidationError("name, email and password are required", nil)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperrors.NewValidationError("invalid email", map[string]any{"email": input.Email})
	}
	if len(input.Password) < auth.MinPasswordLength {
		return nil, apperrors.NewValidationError("password too short",
			map[string]any{"min_length": auth.MinPasswordLength})
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		PhotoURL:     strings.TrimSpace(input.PhotoURL),
		Role:         domain.RoleCitizen,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Repos().Users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
		}
		return nil, err
	}
	return s.issue(user)
}

// Login authenticates by email and password.
func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.store.Repos().Users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		if auth.IsMismatch(err) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, err
	}
	if user.IsBlocked {
		return nil, apperrors.NewForbidden("account is blocked")
	}
	return s.issue(user)
}

func (s *UserService) issue(user *domain.User) (*AuthResult, error) {
	token, exp, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: exp}, nil
}

// GetUser returns an account by id.
func (s *UserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.store.Repos().Users.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundAs("user", err)
	}
	return user, nil
}

// GetUserByEmail returns the account registered under email.
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.store.Repos().Users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, notFoundAs("user", err)
	}
	return user, nil
}

// ListUsers returns a page of accounts, optionally restricted to one role.
func (s *UserService) ListUsers(ctx context.Context, role *string, page, limit int) (*UserPage, error) {
	filter := repository.UserFilter{}
	if value, ok := queryValue(role); ok {
		parsed, valid := domain.ParseRole(value)
		if !valid {
			return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": value})
		}
		filter.Role = &parsed
	}
	page, limit = s.pages.clamp(page, limit)
	filter.Limit = limit
	filter.Offset = (page - 1) * limit

	users := s.store.Repos().Users
	items, err := users.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := users.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &UserPage{Users: items, Total: total, Page: page, Limit: limit, TotalPages: totalPages(total, limit)}, nil
}

// UpdateRole changes an account's role.
func (s *UserService) UpdateRole(ctx context.Context, id, role string) (*domain.User, error) {
	parsed, ok := domain.ParseRole(strings.TrimSpace(role))
	if !ok {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": role})
	}
	users := s.store.Repos().Users
	if err := users.UpdateRole(ctx, id, parsed); err != nil {
		return nil, notFoundAs("user", err)
	}
	return s.GetUser(ctx, id)
}

// SetBlocked blocks or unblocks an account.
func (s *UserService) SetBlocked(ctx context.Context, id string, blocked bool) (*domain.User, error) {
	if err := s.store.Repos().Users.SetBlocked(ctx, id, blocked); err != nil {
		return nil, notFoundAs("user", err)
	}
	return s.GetUser(ctx, id)
}

// PromoteByEmail sets the role of the account registered under email.
func (s *UserService) PromoteByEmail(ctx context.Context, email, role string) (*domain.User, error) {
	user, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.UpdateRole(ctx, user.ID, role)
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *UserService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
