package jwt

import (
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	token, err := GenerateAccessToken("0190f7c2-0000-7000-8000-000000000001", "mina", "", "bzero", "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateAccessToken(token, "secret", "bzero")
	require.NoError(t, err)
	assert.Equal(t, "0190f7c2-0000-7000-8000-000000000001", claims.UserID())
	assert.Equal(t, "mina", claims.Nickname)
	assert.Equal(t, RoleUser, claims.Role)

	// empty issuer accepts any
	_, err = ValidateAccessToken(token, "secret", "")
	assert.NoError(t, err)
}

func TestValidateAccessTokenRejects(t *testing.T) {
	good, err := GenerateAccessToken("u-1", "", RoleAdmin, "bzero", "secret", time.Hour)
	require.NoError(t, err)

	_, err = ValidateAccessToken(good, "other", "bzero")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = ValidateAccessToken(good, "secret", "someone-else")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	expired, err := GenerateAccessToken("u-1", "", "", "bzero", "secret", -time.Minute)
	require.NoError(t, err)
	_, err = ValidateAccessToken(expired, "secret", "bzero")
	assert.ErrorIs(t, err, ErrTokenExpired)

	noSubject, err := GenerateAccessToken("", "", "", "bzero", "secret", time.Hour)
	require.NoError(t, err)
	_, err = ValidateAccessToken(noSubject, "secret", "bzero")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	none, err := gojwt.NewWithClaims(gojwt.SigningMethodNone, Claims{
		RegisteredClaims: gojwt.RegisteredClaims{Subject: "u-1", Issuer: "bzero"},
	}).SignedString(gojwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ValidateAccessToken(none, "secret", "bzero")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
