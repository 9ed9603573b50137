package crypto

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenRoundTrip(t *testing.T) {
	issuer, err := NewTokenIssuer(testSecret, time.Hour)
	require.NoError(t, err)

	userID := NewUUIDv7()
	token, expiresAt, err := issuer.Issue(userID, "alice")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	got, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestTokenRejectsWeakSecret(t *testing.T) {
	_, err := NewTokenIssuer("short", time.Hour)
	require.ErrorIs(t, err, ErrWeakSecret)
}

func TestTokenExpired(t *testing.T) {
	issuer, err := NewTokenIssuer(testSecret, time.Minute)
	require.NoError(t, err)

	issued := time.Now().Add(-time.Hour)
	issuer.now = func() time.Time { return issued }
	token, _, err := issuer.Issue(NewUUIDv7(), "bob")
	require.NoError(t, err)

	issuer.now = time.Now
	_, err = issuer.Verify(token)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenWrongSecret(t *testing.T) {
	a, err := NewTokenIssuer(testSecret, time.Hour)
	require.NoError(t, err)
	b, err := NewTokenIssuer(strings.Repeat("x", 32), time.Hour)
	require.NoError(t, err)

	token, _, err := a.Issue(NewUUIDv7(), "carol")
	require.NoError(t, err)

	_, err = b.Verify(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenRejectsOtherAlgorithms(t *testing.T) {
	issuer, err := NewTokenIssuer(testSecret, time.Hour)
	require.NoError(t, err)

	claims := jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		Issuer:    tokenIssuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = issuer.Verify(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenRejectsNonUUIDSubject(t *testing.T) {
	issuer, err := NewTokenIssuer(testSecret, time.Hour)
	require.NoError(t, err)

	claims := jwt.RegisteredClaims{
		Subject:   "42",
		Issuer:    tokenIssuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = issuer.Verify(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery", hash)

	require.NoError(t, ComparePassword(hash, "correct horse battery"))
	require.ErrorIs(t, ComparePassword(hash, "wrong"), ErrPasswordMismatch)
}

func TestULIDOrdering(t *testing.T) {
	base := time.Now()
	first := NewULID(base)
	second := NewULID(base)
	later := NewULID(base.Add(time.Second))

	assert.Len(t, first, 26)
	assert.Less(t, first, second)
	assert.Less(t, second, later)
}
