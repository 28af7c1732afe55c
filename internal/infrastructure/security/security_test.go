package security

import (
	"testing"
	"time"

	"github.com/TwistedArtistsGuild/tag-web/internal/domain/user"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	u := user.SessionUser{ID: "01HX", Name: "Mara", Email: "mara@example.com", Role: user.RoleMember}
	token, err := IssueSessionToken(u, "s3cret", time.Hour)
	require.NoError(t, err)

	got, err := ParseSessionToken(token, "s3cret")
	require.NoError(t, err)
	assert.Equal(t, u, *got)

	_, err = ParseSessionToken(token, "other")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSessionTokenExpired(t *testing.T) {
	token, err := IssueSessionToken(user.SessionUser{ID: "01HX"}, "s3cret", -time.Minute)
	require.NoError(t, err)
	_, err = ParseSessionToken(token, "s3cret")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSessionTokenRejectsNone(t *testing.T) {
	claims := SessionClaims{User: user.SessionUser{ID: "01HX"}}
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ParseSessionToken(signed, "s3cret")
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestHashToken(t *testing.T) {
	token, err := GenerateSecureToken(32)
	require.NoError(t, err)

	hash, err := HashToken(token)
	require.NoError(t, err)
	assert.True(t, CompareToken(hash, token))
	assert.False(t, CompareToken(hash, token+"x"))
}

func TestSealOpen(t *testing.T) {
	sealed, err := Seal("state|/dashboard", "s3cret")
	require.NoError(t, err)

	plain, err := Open(sealed, "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "state|/dashboard", plain)

	_, err = Open(sealed, "other")
	assert.ErrorIs(t, err, ErrSealedValue)
	_, err = Open("!!", "s3cret")
	assert.ErrorIs(t, err, ErrSealedValue)
}

func TestGenerateULIDUnique(t *testing.T) {
	assert.NotEqual(t, GenerateULID(), GenerateULID())
	assert.Len(t, GenerateULID(), 26)
}
