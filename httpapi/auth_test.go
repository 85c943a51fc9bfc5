package httpapi

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhivicks22/stockpulse/models"
	"github.com/abhivicks22/stockpulse/session"
)

func TestBearerTokenAuth(t *testing.T) {
	u, err := models.UpsertUser("bearer@test.com", "Bearer User", "")
	require.NoError(t, err)
	_, err = models.AddWatchlistItem(u.Id, "MSFT", "Microsoft Corporation", "stock")
	require.NoError(t, err)

	get := func(token string) *http.Response {
		req, _ := http.NewRequest(http.MethodGet, "/watchlist", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := newRecorder(req)
		return rr.Result()
	}

	assert.Equal(t, http.StatusOK, get(providerToken(t, "bearer@test.com", "", time.Hour)).StatusCode)
	assert.Equal(t, http.StatusUnauthorized, get(providerToken(t, "bearer@test.com", "", -time.Hour)).StatusCode)
	assert.Equal(t, http.StatusUnauthorized, get(providerToken(t, "nobody@test.com", "", time.Hour)).StatusCode)
	assert.Equal(t, http.StatusUnauthorized, get("garbage").StatusCode)
}

func TestVerifyProviderTokenRejectsOtherSecrets(t *testing.T) {
	token := providerToken(t, "secret@test.com", "", time.Hour)

	orig := testConfig.AuthJwtSecret
	testConfig.AuthJwtSecret = "another-secret"
	defer func() { testConfig.AuthJwtSecret = orig }()

	_, err := verifyProviderToken(token)
	assert.ErrorIs(t, err, InvalidTokenError)
}

func TestEmptySecretAcceptsNoToken(t *testing.T) {
	u, err := models.UpsertUser("victim@test.com", "Victim", "")
	require.NoError(t, err)
	_, err = models.AddWatchlistItem(u.Id, "AAPL", "Apple Inc.", "stock")
	require.NoError(t, err)

	orig := testConfig.AuthJwtSecret
	testConfig.AuthJwtSecret = ""
	defer func() { testConfig.AuthJwtSecret = orig }()

	// signed with the empty key, which is what the server would check against
	forged := providerToken(t, "victim@test.com", "", time.Hour)

	_, err = verifyProviderToken(forged)
	assert.ErrorIs(t, err, InvalidTokenError)

	req, _ := http.NewRequest(http.MethodGet, "/watchlist", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	rr := newRecorder(req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.NotContains(t, rr.Body.String(), "AAPL")

	rr = do(http.MethodGet, "/auth/callback?access_token="+forged, "", "")
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/sign-in?error=oauth_callback_error", rr.Header().Get("Location"))
	for _, c := range rr.Result().Cookies() {
		assert.NotEqual(t, sessionCookieName, c.Name)
	}
}

func TestAuthCallback(t *testing.T) {
	token := providerToken(t, "callback@test.com", "Callback User", time.Hour)

	rr := do(http.MethodGet, "/auth/callback?access_token="+token, "", "")
	require.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/dashboard", rr.Header().Get("Location"))

	var sid string
	for _, c := range rr.Result().Cookies() {
		if c.Name == sessionCookieName {
			sid = c.Value
			assert.True(t, c.HttpOnly)
		}
	}
	require.NotEmpty(t, sid)

	u, err := models.GetUserByEmail("callback@test.com")
	require.NoError(t, err)
	assert.Equal(t, "Callback User", u.Name)

	rr = do(http.MethodGet, "/watchlist", "", sid)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAuthCallbackFailure(t *testing.T) {
	for _, path := range []string{"/auth/callback", "/auth/callback?access_token=garbage"} {
		rr := do(http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusFound, rr.Code)
		assert.Equal(t, "/sign-in?error=oauth_callback_error", rr.Header().Get("Location"))
	}
}

func TestSignOut(t *testing.T) {
	_, sid := signIn(t, "signout@test.com")

	rr := do(http.MethodPost, "/auth/signout", "", sid)
	assert.Equal(t, http.StatusOK, rr.Code)

	_, err := session.Load(sid)
	assert.ErrorIs(t, err, session.InvalidSessionError)

	rr = do(http.MethodGet, "/watchlist", "", sid)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
