package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidator(t *testing.T) *JWTValidator {
	t.Helper()
	v, err := NewJWTValidator(JWTConfig{SecretKey: "test-secret", Issuer: "nodes-backend"})
	require.NoError(t, err)
	return v
}

func TestNewJWTValidator_RequiresSecret(t *testing.T) {
	_, err := NewJWTValidator(JWTConfig{})
	assert.Error(t, err)
}

func TestJWTValidator_RoundTrip(t *testing.T) {
	v := newValidator(t)

	token, err := v.GenerateToken("user-1", "user@example.com", []string{"editor"}, time.Hour)
	require.NoError(t, err)

	claims, err := v.ValidateToken(token)
	require.NoError(t, err)
	user := UserFromClaims(claims)
	assert.Equal(t, "user-1", user.UserID)
	assert.Equal(t, "user@example.com", user.Email)
	assert.Equal(t, []string{"editor"}, user.Roles)
}

func TestJWTValidator_Rejections(t *testing.T) {
	v := newValidator(t)

	expired, err := v.GenerateToken("user-1", "", nil, -time.Minute)
	require.NoError(t, err)

	other, err := NewJWTValidator(JWTConfig{SecretKey: "other-secret", Issuer: "nodes-backend"})
	require.NoError(t, err)
	wrongKey, err := other.GenerateToken("user-1", "", nil, time.Hour)
	require.NoError(t, err)

	wrongIssuer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	noSubject, err := v.GenerateToken("", "", nil, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{name: "empty", token: "", want: ErrMissingToken},
		{name: "garbage", token: "not-a-jwt", want: ErrInvalidToken},
		{name: "expired", token: expired, want: ErrExpiredToken},
		{name: "wrong key", token: wrongKey, want: ErrInvalidSignature},
		{name: "wrong issuer", token: wrongIssuer, want: ErrInvalidToken},
		{name: "no subject", token: noSubject, want: ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := v.ValidateToken(tt.token)
			assert.Nil(t, claims)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestUserContext(t *testing.T) {
	_, err := GetUserFromContext(context.Background())
	assert.ErrorIs(t, err, ErrNoUserInContext)

	ctx := SetUserInContext(context.Background(), &UserContext{UserID: "user-1"})
	user, err := GetUserFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.UserID)
}

func TestSlidingWindowLimiter(t *testing.T) {
	ctx := context.Background()
	limiter := NewSlidingWindowLimiter(2, time.Minute)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		allowed, err := limiter.Allow(ctx, "ip:1")
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, _ := limiter.Allow(ctx, "ip:1")
	assert.False(t, allowed)

	allowed, _ = limiter.Allow(ctx, "ip:2")
	assert.True(t, allowed, "keys are limited independently")

	now = now.Add(time.Minute + time.Second)
	allowed, _ = limiter.Allow(ctx, "ip:1")
	assert.True(t, allowed, "window slides")
	assert.Equal(t, 2, limiter.Limit())
}

func TestSlidingWindowLimiter_SweepsIdleKeys(t *testing.T) {
	ctx := context.Background()
	limiter := NewSlidingWindowLimiter(5, time.Minute)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	for i := 0; i < 10000; i++ {
		allowed, err := limiter.Allow(ctx, fmt.Sprintf("ip:%d", i))
		require.NoError(t, err)
		require.True(t, allowed)
	}
	require.Len(t, limiter.windows, 10000)

	now = now.Add(time.Hour)
	allowed, err := limiter.Allow(ctx, "ip:fresh")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Len(t, limiter.windows, 1)
}

func TestSlidingWindowLimiter_KeepsActiveKeysOnSweep(t *testing.T) {
	ctx := context.Background()
	limiter := NewSlidingWindowLimiter(1, time.Minute)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	_, _ = limiter.Allow(ctx, "ip:idle")
	now = now.Add(50 * time.Second)
	_, _ = limiter.Allow(ctx, "ip:busy")
	now = now.Add(20 * time.Second)

	allowed, _ := limiter.Allow(ctx, "ip:busy")
	assert.False(t, allowed, "sweeping must not reset a key still inside its window")
	assert.NotContains(t, limiter.windows, "ip:idle")
}
