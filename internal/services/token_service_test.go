package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/apperr"
	"storefront/internal/domain"
)

func testTokens() *TokenService {
	return NewTokenService("test-secret-that-is-long-enough", "storefront", 15*time.Minute, 24*time.Hour)
}

var tokenUser = &domain.User{ID: "u-1", Email: "jane@example.com", Type: domain.UserTypeAdmin}

func TestTokenService_RoundTrip(t *testing.T) {
	ts := testTokens()
	pair, err := ts.Issue(tokenUser)
	require.NoError(t, err)
	assert.NotEqual(t, pair.Token, pair.RefreshToken)

	c, err := ts.Parse(pair.Token, TokenAccess)
	require.NoError(t, err)
	assert.Equal(t, "u-1", c.Subject)
	assert.Equal(t, []string{"ADMIN"}, c.Roles)

	_, err = ts.Parse(pair.Token, TokenRefresh)
	assert.Error(t, err, "access token is not a refresh token")
	_, err = ts.Parse(pair.RefreshToken, TokenRefresh)
	assert.NoError(t, err)
}

func TestTokenService_Expiry(t *testing.T) {
	ts := testTokens()
	ts.now = func() time.Time { return time.Now().Add(-time.Hour) }
	pair, err := ts.Issue(tokenUser)
	require.NoError(t, err)

	_, err = ts.Parse(pair.Token, TokenAccess)
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "token expired", ae.Message)

	_, err = ts.Parse(pair.RefreshToken, TokenRefresh)
	assert.NoError(t, err, "refresh tokens outlive access tokens")
}

func TestTokenService_RejectsForeignTokens(t *testing.T) {
	ts := testTokens()

	other := NewTokenService("another-secret-entirely", "storefront", time.Minute, time.Minute)
	pair, err := other.Issue(tokenUser)
	require.NoError(t, err)
	_, err = ts.Parse(pair.Token, TokenAccess)
	assert.Error(t, err)

	wrongIssuer := NewTokenService("test-secret-that-is-long-enough", "elsewhere", time.Minute, time.Minute)
	pair, err = wrongIssuer.Issue(tokenUser)
	require.NoError(t, err)
	_, err = ts.Parse(pair.Token, TokenAccess)
	assert.Error(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Type: TokenAccess})
	raw, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ts.Parse(raw, TokenAccess)
	assert.Error(t, err)

	_, err = ts.Parse("not.a.token", TokenAccess)
	assert.Error(t, err)
}
