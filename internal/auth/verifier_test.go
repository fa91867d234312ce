package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-signing-secret")

func signToken(t *testing.T, claims Claims, secret []byte) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	require.NoError(t, err)
	return signed
}

func testClaims(userID uuid.UUID, issuer string, issuedAt time.Time) Claims {
	return Claims{
		UserEmail:       "dev@example.com",
		UserDisplayName: "Dev User",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
		},
	}
}

func newTestVerifier(t *testing.T, clock func() time.Time) *Verifier {
	t.Helper()
	verifier, err := NewVerifier(VerifierConfig{
		SigningSecret: testSecret,
		Issuer:        "teamspace",
		Clock:         clock,
	})
	require.NoError(t, err)
	return verifier
}

func TestNewVerifierValidatesConfig(t *testing.T) {
	_, err := NewVerifier(VerifierConfig{Issuer: "teamspace"})
	assert.ErrorIs(t, err, ErrMissingSigningSecret)

	_, err = NewVerifier(VerifierConfig{SigningSecret: testSecret})
	assert.ErrorIs(t, err, ErrMissingIssuer)
}

func TestVerifyAcceptsValidToken(t *testing.T) {
	verifier := newTestVerifier(t, nil)
	userID := uuid.New()
	token := signToken(t, testClaims(userID, "teamspace", time.Now()), testSecret)

	identity, err := verifier.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, userID, identity.UserID)
	assert.Equal(t, "dev@example.com", identity.Email)
	assert.Equal(t, "Dev User", identity.Name)
}

func TestVerifyRejectsMissingToken(t *testing.T) {
	verifier := newTestVerifier(t, nil)

	_, err := verifier.Verify("")
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = verifier.Verify("   ")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	verifier := newTestVerifier(t, nil)
	token := signToken(t, testClaims(uuid.New(), "teamspace", time.Now()), []byte("other-secret"))

	_, err := verifier.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	verifier := newTestVerifier(t, nil)
	token := signToken(t, testClaims(uuid.New(), "someone-else", time.Now()), testSecret)

	_, err := verifier.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	issued := time.Now().Add(-2 * time.Hour)
	verifier := newTestVerifier(t, time.Now)
	token := signToken(t, testClaims(uuid.New(), "teamspace", issued), testSecret)

	_, err := verifier.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerifyRejectsNonUUIDSubject(t *testing.T) {
	verifier := newTestVerifier(t, nil)
	claims := testClaims(uuid.New(), "teamspace", time.Now())
	claims.Subject = "not-a-uuid"
	token := signToken(t, claims, testSecret)

	_, err := verifier.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsUnexpectedAlgorithm(t *testing.T) {
	verifier := newTestVerifier(t, nil)
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, testClaims(uuid.New(), "teamspace", time.Now()))
	signed, err := token.SignedString(testSecret)
	require.NoError(t, err)

	_, err = verifier.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
