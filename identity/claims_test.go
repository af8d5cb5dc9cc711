package identity

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// signToken produces a provider-style token for the given claims
func signToken(t *testing.T, claims *Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	return signed
}

func TestParseToken(t *testing.T) {
	t.Run("valid token", func(t *testing.T) {
		tokenString := signToken(t, &Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "uid-1"},
			Email:            "x-40-001@diu.edu.bd",
			EmailVerified:    true,
			Name:             "Nabila Akter",
			Admin:            false,
			AuthTime:         1748700000,
		})

		claims, err := ParseToken(tokenString)
		require.NoError(t, err)
		assert.Equal(t, "uid-1", claims.Subject)
		assert.Equal(t, "x-40-001@diu.edu.bd", claims.Email)
		assert.True(t, claims.EmailVerified)
		assert.False(t, claims.Admin)
	})

	t.Run("missing subject", func(t *testing.T) {
		tokenString := signToken(t, &Claims{Email: "a@diu.edu.bd"})

		_, err := ParseToken(tokenString)
		assert.ErrorIs(t, err, ErrMissingClaim)
	})

	t.Run("missing email", func(t *testing.T) {
		tokenString := signToken(t, &Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "uid-1"},
		})

		_, err := ParseToken(tokenString)
		assert.ErrorIs(t, err, ErrMissingClaim)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := ParseToken("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestClaims_ToIdentity(t *testing.T) {
	t.Run("auth_time wins over iat", func(t *testing.T) {
		authTime := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
		claims := &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:  "uid-1",
				IssuedAt: jwt.NewNumericDate(authTime.Add(time.Hour)),
			},
			Email:    "x-40-001@diu.edu.bd",
			AuthTime: authTime.Unix(),
			Admin:    true,
		}

		ident := claims.ToIdentity()
		assert.Equal(t, "uid-1", ident.UID)
		assert.Equal(t, authTime.Unix(), ident.LastSignInAt.Unix())
		assert.True(t, ident.AdminClaim())
	})

	t.Run("iat fallback", func(t *testing.T) {
		issued := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
		claims := &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:  "uid-1",
				IssuedAt: jwt.NewNumericDate(issued),
			},
			Email: "x-40-001@diu.edu.bd",
		}

		ident := claims.ToIdentity()
		assert.Equal(t, issued.Unix(), ident.LastSignInAt.Unix())
	})

	t.Run("no timestamps leaves zero", func(t *testing.T) {
		claims := &Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "uid-1"},
			Email:            "x-40-001@diu.edu.bd",
		}

		ident := claims.ToIdentity()
		assert.True(t, ident.LastSignInAt.IsZero())
	})
}

func TestIdentityFromToken(t *testing.T) {
	tokenString := signToken(t, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "uid-9"},
		Email:            "x-40-009@diu.edu.bd",
		EmailVerified:    true,
	})

	ident, err := IdentityFromToken(tokenString)
	require.NoError(t, err)
	assert.Equal(t, "uid-9", ident.UID)
	assert.True(t, ident.EmailVerified)

	_, err = IdentityFromToken("garbage")
	assert.Error(t, err)
}
