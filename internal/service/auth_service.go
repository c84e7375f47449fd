package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"food-delivery/internal/auth"
	"food-delivery/internal/models"
	"food-delivery/internal/util"

	"go.uber.org/zap"
)

// AuthService registers users and issues session tokens
type AuthService struct {
	users  UserStore
	tokens TokenIssuer
	issuer string
	logger *zap.Logger
}

// NewAuthService creates a new auth service. issuer labels OTP secrets.
func NewAuthService(users UserStore, tokens TokenIssuer, issuer string) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		issuer: issuer,
		logger: util.GetLogger(),
	}
}

// RegisterRequest creates an account
type RegisterRequest struct {
	Email           string      `json:"email" binding:"required,email"`
	Username        string      `json:"username" binding:"required"`
	Password        string      `json:"password" binding:"required,min=8"`
	PasswordConfirm string      `json:"password_confirm" binding:"required"`
	Role            models.Role `json:"role"`
	FirstName       string      `json:"first_name"`
	LastName        string      `json:"last_name"`
	Phone           string      `json:"phone"`
}

// LoginRequest authenticates with email and password
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// OTPVerifyRequest completes a login that required a one-time code
type OTPVerifyRequest struct {
	UserID  int64  `json:"user_id" binding:"required"`
	OTPCode string `json:"otp_code" binding:"required,len=6"`
}

// AuthResult is the outcome of a register, login or OTP step. Tokens are
// absent while an OTP is still required.
type AuthResult struct {
	User        *models.User    `json:"user,omitempty"`
	Tokens      *auth.TokenPair `json:"tokens,omitempty"`
	RequiresOTP bool            `json:"requires_otp,omitempty"`
	UserID      int64           `json:"user_id,omitempty"`
	Message     string          `json:"message,omitempty"`
}

// Register creates a user with the profile its role needs
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*AuthResult, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.Register")
	defer span.End()

	if req.Password != req.PasswordConfirm {
		return nil, models.NewValidationError("password", "Passwords don't match")
	}

	role := req.Role
	if role == "" {
		role = models.RoleCustomer
	}
	if !role.Valid() || role == models.RoleAdmin {
		return nil, models.NewValidationError("role", fmt.Sprintf("%q cannot be registered", role))
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	secret, err := auth.NewOTPSecret(s.issuer, email)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        email,
		Username:     req.Username,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		Role:         role,
		PasswordHash: hash,
		OTPSecret:    secret,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.NewValidationError("email", "a user with this email already exists")
		}
		return nil, err
	}

	tokens, err := s.tokens.GenerateTokenPair(user.Identity())
	if err != nil {
		return nil, fmt.Errorf("failed to issue tokens: %w", err)
	}

	s.logger.Info("User registered", zap.Int64("user_id", user.ID), zap.String("role", string(role)))
	return &AuthResult{User: user, Tokens: tokens}, nil
}

// Login checks credentials. Users who have not verified an OTP get a fresh
// secret and must complete VerifyOTP before tokens are issued.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*AuthResult, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.Login")
	defer span.End()

	user, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		return nil, models.ErrInvalidCredentials
	}

	if !user.OTPVerified {
		secret, err := auth.NewOTPSecret(s.issuer, user.Email)
		if err != nil {
			return nil, err
		}
		if err := s.users.UpdateOTP(ctx, user.ID, secret, false); err != nil {
			return nil, fmt.Errorf("failed to rotate otp secret: %w", err)
		}

		// No delivery channel yet; the code only goes to the debug log.
		if code, err := auth.OTPCode(secret, time.Now()); err == nil {
			s.logger.Debug("OTP issued", zap.Int64("user_id", user.ID), zap.String("code", code))
		}

		return &AuthResult{
			RequiresOTP: true,
			UserID:      user.ID,
			Message:     "OTP required for login",
		}, nil
	}

	tokens, err := s.tokens.GenerateTokenPair(user.Identity())
	if err != nil {
		return nil, fmt.Errorf("failed to issue tokens: %w", err)
	}
	return &AuthResult{User: user, Tokens: tokens}, nil
}

// VerifyOTP completes an OTP login and marks the user verified
func (s *AuthService) VerifyOTP(ctx context.Context, req *OTPVerifyRequest) (*AuthResult, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.VerifyOTP")
	defer span.End()

	user, err := s.users.GetUserByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if !auth.VerifyOTP(user.OTPSecret, req.OTPCode) {
		return nil, models.NewValidationError("otp_code", "Invalid OTP")
	}

	if err := s.users.UpdateOTP(ctx, user.ID, user.OTPSecret, true); err != nil {
		return nil, fmt.Errorf("failed to mark otp verified: %w", err)
	}
	user.OTPVerified = true

	tokens, err := s.tokens.GenerateTokenPair(user.Identity())
	if err != nil {
		return nil, fmt.Errorf("failed to issue tokens: %w", err)
	}

	s.logger.Info("OTP verified", zap.Int64("user_id", user.ID))
	return &AuthResult{User: user, Tokens: tokens}, nil
}

// Refresh exchanges a refresh token for a new pair. The role is reloaded so
// a changed role takes effect.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.Refresh")
	defer span.End()

	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, models.ErrInvalidCredentials)
	}

	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	return s.tokens.GenerateTokenPair(user.Identity())
}
