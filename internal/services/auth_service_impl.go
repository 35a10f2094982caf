package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/ngavde/education-management/internal/auth"
	apperrors "github.com/ngavde/education-management/internal/errors"
	"github.com/ngavde/education-management/internal/logger"
	"github.com/ngavde/education-management/internal/models"
	"github.com/ngavde/education-management/internal/repository"
	"github.com/ngavde/education-management/pkg/config"
)

// AuthService handles accounts and tokens
type AuthService interface {
	Login(ctx context.Context, email, password string) (*models.LoginResponse, error)
	Register(ctx context.Context, req *models.RegisterRequest, by *models.Actor) (*models.User, error)
	RefreshToken(ctx context.Context, refreshToken string) (*models.LoginResponse, error)
	ValidateToken(ctx context.Context, token string) (*models.User, error)
	EnsureAdmin(ctx context.Context, email, password string) error
}

// authServiceImpl implements AuthService
type authServiceImpl struct {
	repos      *repository.Repositories
	jwtService *auth.JWTService
	logger     logger.Logger
}

// newAuthService creates a new auth service implementation
func newAuthService(repos *repository.Repositories, cfg *config.Config, log logger.Logger) AuthService {
	return &authServiceImpl{
		repos:      repos,
		jwtService: auth.NewJWTService(cfg.JWTSecret),
		logger:     log,
	}
}

func publicUser(u *models.User) models.User {
	return models.User{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (s *authServiceImpl) issue(user *models.User) (*models.LoginResponse, error) {
	claims := auth.Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	}

	token, expiresAt, err := s.jwtService.GenerateToken(claims)
	if err != nil {
		return nil, apperrors.InternalError("failed to generate token", err)
	}
	refreshToken, _, err := s.jwtService.GenerateRefreshToken(claims)
	if err != nil {
		return nil, apperrors.InternalError("failed to generate refresh token", err)
	}

	return &models.LoginResponse{
		Token:        token,
		RefreshToken: refreshToken,
		User:         publicUser(user),
		ExpiresAt:    expiresAt,
	}, nil
}

// Login authenticates a user and returns a token pair
func (s *authServiceImpl) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	user, err := s.repos.User.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Unauthorized("invalid credentials", nil).WithOperation("Login")
		}
		return nil, storeError(err, "user", "Login")
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		s.logger.Warn("Failed login attempt", "email", user.Email)
		return nil, apperrors.Unauthorized("invalid credentials", nil).WithOperation("Login")
	}
	return s.issue(user)
}

// Register creates a new account. Self-registration always gets the user
// role; other roles need an admin caller.
func (s *authServiceImpl) Register(ctx context.Context, req *models.RegisterRequest, by *models.Actor) (*models.User, error) {
	const op = "Register"

	role := req.Role
	if role == "" {
		role = string(models.RoleUser)
	}
	if !models.ValidRole(role) {
		return nil, apperrors.InvalidInput("invalid role: "+role, nil).WithOperation(op)
	}
	if role != string(models.RoleUser) && (by == nil || by.Role != string(models.RoleAdmin)) {
		return nil, apperrors.Forbidden("only administrators can assign the "+role+" role", nil).WithOperation(op)
	}
	if err := auth.ValidatePasswordStrength(req.Password); err != nil {
		return nil, apperrors.ValidationError(err.Error(), nil).WithOperation(op)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, apperrors.InternalError("failed to hash password", err).WithOperation(op)
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		FullName:     strings.TrimSpace(req.FullName),
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.repos.User.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict("user with email "+user.Email+" already exists", err).WithOperation(op)
		}
		return nil, storeError(err, "user", op)
	}

	s.logger.Info("User registered", "user_id", user.ID, "role", user.Role)
	out := publicUser(user)
	return &out, nil
}

// ValidateToken validates an access token and returns its user
func (s *authServiceImpl) ValidateToken(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.jwtService.ValidateToken(token)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid token", err).WithOperation("ValidateToken")
	}
	user, err := s.repos.User.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Unauthorized("user no longer exists", err).WithOperation("ValidateToken")
		}
		return nil, storeError(err, "user", "ValidateToken")
	}
	out := publicUser(user)
	return &out, nil
}

// RefreshToken issues a new token pair from a refresh token. The role is
// read again from the store.
func (s *authServiceImpl) RefreshToken(ctx context.Context, refreshToken string) (*models.LoginResponse, error) {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid refresh token", err).WithOperation("RefreshToken")
	}
	user, err := s.repos.User.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Unauthorized("user no longer exists", err).WithOperation("RefreshToken")
		}
		return nil, storeError(err, "user", "RefreshToken")
	}
	return s.issue(user)
}

// EnsureAdmin creates the bootstrap administrator when it does not exist
func (s *authServiceImpl) EnsureAdmin(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}
	_, err := s.repos.User.GetByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return storeError(err, "user", "EnsureAdmin")
	}

	admin := models.Actor{Role: string(models.RoleAdmin)}
	_, err = s.Register(ctx, &models.RegisterRequest{
		Email:    email,
		Password: password,
		FullName: "Administrator",
		Role:     string(models.RoleAdmin),
	}, &admin)
	if err != nil {
		return err
	}
	s.logger.Info("Bootstrap administrator created", "email", email)
	return nil
}
