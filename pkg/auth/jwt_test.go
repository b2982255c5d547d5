package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVerifier(t *testing.T) *JWTVerifier {
	t.Helper()
	v, err := NewJWTVerifier(Config{Secret: "test-secret", Issuer: "https://id.example.com", Audience: "wellness-api"})
	require.NoError(t, err)
	return v
}

func TestIssueAndVerify(t *testing.T) {
	v := newVerifier(t)

	token, err := v.Issue("user_123", "Doc@Example.com", "Dr Doc", time.Hour)
	require.NoError(t, err)

	claims, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user_123", claims.Subject)
	assert.Equal(t, "doc@example.com", claims.Email)
	assert.Equal(t, "Dr Doc", claims.Name)
}

func TestVerifyRejects(t *testing.T) {
	v := newVerifier(t)

	expired, err := v.Issue("user_123", "doc@example.com", "", -time.Minute)
	require.NoError(t, err)

	other, err := NewJWTVerifier(Config{Secret: "other-secret", Issuer: "https://id.example.com", Audience: "wellness-api"})
	require.NoError(t, err)
	wrongKey, err := other.Issue("user_123", "doc@example.com", "", time.Hour)
	require.NoError(t, err)

	noEmail, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user_123",
			Issuer:    "https://id.example.com",
			Audience:  jwt.ClaimStrings{"wellness-api"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	tests := map[string]string{
		"empty":     "",
		"garbage":   "not.a.token",
		"expired":   expired,
		"wrong key": wrongKey,
		"no email":  noEmail,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(token)
			assert.Error(t, err)
		})
	}
}

func TestNewJWTVerifierRequiresSecret(t *testing.T) {
	_, err := NewJWTVerifier(Config{})
	assert.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	token, err := BearerToken("Bearer abc.def.ghi")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)

	token, err = BearerToken("bearer   xyz")
	require.NoError(t, err)
	assert.Equal(t, "xyz", token)

	for _, h := range []string{"", "Bearer", "Basic abc", "Bearer "} {
		_, err := BearerToken(h)
		assert.ErrorIs(t, err, ErrMissingToken, h)
	}
}
