package auth

import (
	"errors"
	"strconv"
	"time"

	"food-delivery/config"
	"food-delivery/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType distinguishes access from refresh tokens
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidTokenType = errors.New("invalid token type")
	ErrInvalidClaims    = errors.New("invalid token claims")
)

// Claims carries the caller identity
type Claims struct {
	jwt.RegisteredClaims
	UserID    int64       `json:"user_id"`
	Role      models.Role `json:"role"`
	TokenType TokenType   `json:"token_type"`
}

// Identity returns the caller identity carried by the token
func (c *Claims) Identity() models.Identity {
	return models.Identity{UserID: c.UserID, Role: c.Role}
}

// TokenPair is an access and refresh token pair
type TokenPair struct {
	AccessToken           string    `json:"access"`
	RefreshToken          string    `json:"refresh"`
	AccessTokenExpiresAt  time.Time `json:"access_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_expires_at"`
	TokenType             string    `json:"token_type"`
}

// JWTService issues and validates HS256 tokens
type JWTService struct {
	accessSecret      []byte
	refreshSecret     []byte
	accessExpiration  time.Duration
	refreshExpiration time.Duration
	issuer            string
}

// NewJWTService creates a new JWT service. Without a refresh secret the
// access secret signs both tokens.
func NewJWTService(cfg config.AuthConfig) *JWTService {
	refreshSecret := []byte(cfg.RefreshSecret)
	if cfg.RefreshSecret == "" {
		refreshSecret = []byte(cfg.JWTSecret)
	}

	return &JWTService{
		accessSecret:      []byte(cfg.JWTSecret),
		refreshSecret:     refreshSecret,
		accessExpiration:  cfg.AccessTokenTTL,
		refreshExpiration: cfg.RefreshTokenTTL,
		issuer:            cfg.Issuer,
	}
}

// GenerateTokenPair issues both tokens for an identity
func (s *JWTService) GenerateTokenPair(id models.Identity) (*TokenPair, error) {
	now := time.Now()

	access, err := s.sign(id, TokenTypeAccess, now, s.accessExpiration, s.accessSecret)
	if err != nil {
		return nil, err
	}
	refresh, err := s.sign(id, TokenTypeRefresh, now, s.refreshExpiration, s.refreshSecret)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:           access,
		RefreshToken:          refresh,
		AccessTokenExpiresAt:  now.Add(s.accessExpiration),
		RefreshTokenExpiresAt: now.Add(s.refreshExpiration),
		TokenType:             "Bearer",
	}, nil
}

func (s *JWTService) sign(id models.Identity, typ TokenType, now time.Time, ttl time.Duration, secret []byte) (string, error) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(id.UserID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID:    id.UserID,
		Role:      id.Role,
		TokenType: typ,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ValidateAccessToken validates an access token and returns its claims
func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.validate(tokenString, s.accessSecret, TokenTypeAccess)
}

// ValidateRefreshToken validates a refresh token and returns its claims
func (s *JWTService) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return s.validate(tokenString, s.refreshSecret, TokenTypeRefresh)
}

func (s *JWTService) validate(tokenString string, secret []byte, expected TokenType) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	}, jwt.WithIssuer(s.issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == 0 || !claims.Role.Valid() {
		return nil, ErrInvalidClaims
	}
	if claims.TokenType != expected {
		return nil, ErrInvalidTokenType
	}
	return claims, nil
}
