package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt-signing-32-chars"

// createTestTokenService creates a token service for testing with symmetric key
func createTestTokenService(t *testing.T, ttl time.Duration) TokenService {
	t.Helper()
	svc, err := NewTokenService(ttl, "test-issuer", "test-audience", false, "", "", testSecret)
	require.NoError(t, err)
	return svc
}

func TestNewTokenService(t *testing.T) {
	tests := []struct {
		name        string
		useRSAKeys  bool
		privateKey  string
		publicKey   string
		secretKey   string
		expectError bool
	}{
		{name: "valid symmetric key configuration", secretKey: testSecret},
		{name: "missing secret key", expectError: true},
		{name: "rsa without keys", useRSAKeys: true, expectError: true},
		{name: "rsa with garbage keys", useRSAKeys: true, privateKey: "nope", publicKey: "nope", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewTokenService(time.Hour, "iss", "aud", tt.useRSAKeys, tt.privateKey, tt.publicKey, tt.secretKey)
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, svc)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, svc)
		})
	}
}

func TestAdminTokenRoundTrip(t *testing.T) {
	svc := createTestTokenService(t, 15*time.Minute)

	token, expiresAt, err := svc.GenerateAdminToken(42)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)

	claims, err := svc.ValidateAdminToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.AdminID)
	assert.Equal(t, "access", claims.TokenType)
	assert.NotEmpty(t, claims.TokenID)
	assert.Equal(t, expiresAt.Unix(), claims.ExpiresAt.Unix())
}

func TestValidateAdminTokenRejects(t *testing.T) {
	svc := createTestTokenService(t, 15*time.Minute)

	t.Run("expired token", func(t *testing.T) {
		expired := createTestTokenService(t, -time.Minute)
		token, _, err := expired.GenerateAdminToken(1)
		require.NoError(t, err)

		_, err = svc.ValidateAdminToken(token)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ValidateAdminToken("not-a-jwt")
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("different secret", func(t *testing.T) {
		other, err := NewTokenService(time.Hour, "test-issuer", "test-audience", false, "", "", "another-secret-key-that-is-32-chars!!")
		require.NoError(t, err)
		token, _, err := other.GenerateAdminToken(1)
		require.NoError(t, err)

		_, err = svc.ValidateAdminToken(token)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("wrong audience", func(t *testing.T) {
		other, err := NewTokenService(time.Hour, "test-issuer", "someone-else", false, "", "", testSecret)
		require.NoError(t, err)
		token, _, err := other.GenerateAdminToken(1)
		require.NoError(t, err)

		_, err = svc.ValidateAdminToken(token)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("none algorithm", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
			"admin_id":   1,
			"token_type": "access",
			"iss":        "test-issuer",
			"aud":        "test-audience",
			"iat":        time.Now().Unix(),
			"exp":        time.Now().Add(time.Hour).Unix(),
		})
		signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = svc.ValidateAdminToken(signed)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})
}
