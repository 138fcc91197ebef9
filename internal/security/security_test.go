package security_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/security"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := security.HashPassword("admin123")
	require.NoError(t, err)
	assert.Contains(t, string(hash), "$argon2id$")

	ok, err := security.VerifyPassword("admin123", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = security.VerifyPassword("admin124", hash)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, security.NeedsRehash(hash))
}

func TestLegacyBcryptHash(t *testing.T) {
	legacy, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	require.NoError(t, err)

	ok, err := security.VerifyPassword("secret1", legacy)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, security.NeedsRehash(legacy))

	ok, err = security.VerifyPassword("wrong", legacy)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAccessToken(t *testing.T) {
	token, err := security.GenerateAccessToken("secret", 7, "sess-1", "admin", time.Minute)
	require.NoError(t, err)

	claims, err := security.ParseAccessToken(token, "secret")
	require.NoError(t, err)
	assert.EqualValues(t, 7, claims.UserID)
	assert.Equal(t, "sess-1", claims.SessionID)
	assert.Equal(t, "admin", claims.Role)

	_, err = security.ParseAccessToken(token, "other")
	assert.Error(t, err)

	expired, err := security.GenerateAccessToken("secret", 7, "sess-1", "admin", -time.Minute)
	require.NoError(t, err)
	_, err = security.ParseAccessToken(expired, "secret")
	assert.Error(t, err)
}

func TestSignature(t *testing.T) {
	body := []byte(`{"temperature":21}`)
	date := "2024-05-01T10:00:00Z"
	sig := security.ComputeSignature("hook", "post", "/api/sensordata", security.ComputeBodyHash(body), date, "n1")

	assert.True(t, security.ValidateSignature("hook", sig, "POST", "/api/sensordata", body, date, "n1"))
	assert.False(t, security.ValidateSignature("hook", sig, "POST", "/api/sensordata", []byte(`{"temperature":22}`), date, "n1"))
	assert.False(t, security.ValidateSignature("hook", sig, "POST", "/api/sensordata", body, date, "n2"))
	assert.False(t, security.ValidateSignature("other", sig, "POST", "/api/sensordata", body, date, "n1"))
}

func TestAPIKeyMatches(t *testing.T) {
	assert.True(t, security.APIKeyMatches("k-123", "k-123"))
	assert.False(t, security.APIKeyMatches("k-123", "k-124"))
	assert.False(t, security.APIKeyMatches("k-123", ""))
}

func TestSignResourceIsStable(t *testing.T) {
	a := security.SignResource("s", "1", "100")
	assert.Equal(t, a, security.SignResource("s", "1", "100"))
	assert.NotEqual(t, a, security.SignResource("s", "1", "101"))
	assert.NotContains(t, a, "/")
}
