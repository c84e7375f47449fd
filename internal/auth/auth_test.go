package auth

import (
	"testing"
	"time"

	"food-delivery/config"
	"food-delivery/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:       "access-secret",
		RefreshSecret:   "refresh-secret",
		Issuer:          "food-delivery-test",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	}
}

func TestGenerateTokenPair_RoundTrip(t *testing.T) {
	svc := NewJWTService(testConfig())
	id := models.Identity{UserID: 42, Role: models.RoleRider}

	pair, err := svc.GenerateTokenPair(id)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), pair.AccessTokenExpiresAt, time.Minute)

	claims, err := svc.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, id, claims.Identity())
	assert.Equal(t, "42", claims.Subject)

	refresh, err := svc.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, id, refresh.Identity())
}

func TestValidate_RejectsWrongTokenType(t *testing.T) {
	cfg := testConfig()
	cfg.RefreshSecret = ""
	svc := NewJWTService(cfg)

	pair, err := svc.GenerateTokenPair(models.Identity{UserID: 1, Role: models.RoleCustomer})
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidTokenType)

	_, err = svc.ValidateRefreshToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidTokenType)
}

func TestValidate_RejectsExpiredAndForged(t *testing.T) {
	cfg := testConfig()
	cfg.AccessTokenTTL = -time.Minute
	svc := NewJWTService(cfg)

	pair, err := svc.GenerateTokenPair(models.Identity{UserID: 1, Role: models.RoleAdmin})
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrExpiredToken)

	other := NewJWTService(config.AuthConfig{JWTSecret: "other", Issuer: cfg.Issuer, AccessTokenTTL: time.Minute})
	forged, err := other.GenerateTokenPair(models.Identity{UserID: 1, Role: models.RoleAdmin})
	require.NoError(t, err)

	_, err = NewJWTService(testConfig()).ValidateAccessToken(forged.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.ValidateAccessToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidate_RejectsNoneAlgorithm(t *testing.T) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "food-delivery-test",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		UserID:    1,
		Role:      models.RoleAdmin,
		TokenType: TokenTypeAccess,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewJWTService(testConfig()).ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret!", hash)

	assert.True(t, CheckPassword(hash, "s3cret!"))
	assert.False(t, CheckPassword(hash, "wrong"))
	assert.False(t, CheckPassword("not-a-hash", "s3cret!"))
}

func TestOTP(t *testing.T) {
	secret, err := NewOTPSecret("food-delivery", "user@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, secret)

	code, err := OTPCode(secret, time.Now().UTC())
	require.NoError(t, err)
	assert.Len(t, code, 6)

	assert.True(t, VerifyOTP(secret, code))
	stale, err := OTPCode(secret, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	if stale != code {
		assert.False(t, VerifyOTP(secret, stale))
	}
	assert.False(t, VerifyOTP("", code))
	assert.False(t, VerifyOTP(secret, ""))
}
