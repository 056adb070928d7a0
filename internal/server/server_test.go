package server_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CS3219-AY2526S2/peerprep-g15/internal/auth"
	"github.com/CS3219-AY2526S2/peerprep-g15/internal/config"
	"github.com/CS3219-AY2526S2/peerprep-g15/internal/model"
	"github.com/CS3219-AY2526S2/peerprep-g15/internal/server"
)

const (
	testAccessSecret  = "access-secret-at-least-16-chars"
	testRefreshSecret = "refresh-secret-at-least-16-chars"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:             0,
		DBPath:           ":memory:",
		JWTAccessSecret:  testAccessSecret,
		JWTRefreshSecret: testRefreshSecret,
		AccessTokenTTL:   15 * time.Minute,
		RefreshTokenTTL:  7 * 24 * time.Hour,
		BcryptCost:       4, // bcrypt minimum keeps the full-flow tests fast
	}
}

// newTestServer builds the real server (router, middleware, sqlite-backed
// store) over an in-memory database. Tests drive it through httptest, so
// they exercise the same stack production requests hit.
func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	srv, err := server.New(testConfig(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })

	return srv.Router()
}

func doJSON(t *testing.T, h http.Handler, method, path, body string, token string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// authPayload is the success shape of register/login/refresh.
type authPayload struct {
	User        map[string]any `json:"user"`
	AccessToken string         `json:"accessToken"`
}

func decodeAuth(t *testing.T, rr *httptest.ResponseRecorder) authPayload {
	t.Helper()
	var payload authPayload
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&payload))
	return payload
}

// refreshCookie plucks the refresh_token cookie from a response.
func refreshCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == "refresh_token" {
			return c
		}
	}
	t.Fatal("response did not set the refresh_token cookie")
	return nil
}

func registerAlice(t *testing.T, h http.Handler) (authPayload, *http.Cookie) {
	t.Helper()
	rr := doJSON(t, h, http.MethodPost, "/api/auth/register",
		`{"username":"alice","email":"alice@example.com","password":"correct horse battery"}`, "")
	require.Equal(t, http.StatusCreated, rr.Code, "register failed: %s", rr.Body.String())
	return decodeAuth(t, rr), refreshCookie(t, rr)
}

func TestHealth(t *testing.T) {
	h := newTestServer(t)

	rr := doJSON(t, h, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRegisterFlow(t *testing.T) {
	h := newTestServer(t)

	payload, cookie := registerAlice(t, h)

	assert.NotEmpty(t, payload.AccessToken)
	assert.Equal(t, "alice", payload.User["username"])
	assert.Equal(t, "user", payload.User["role"])

	// The public view never includes secret material.
	assert.NotContains(t, payload.User, "passwordHash")
	assert.NotContains(t, payload.User, "refreshTokenHash")

	// The refresh token travels only in a locked-down cookie.
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.Equal(t, "/api/auth", cookie.Path)
	assert.NotEmpty(t, cookie.Value)

	// And never in the body.
	assert.NotContains(t, payload.User, "refreshToken")
}

func TestRegisterValidation(t *testing.T) {
	h := newTestServer(t)

	rr := doJSON(t, h, http.MethodPost, "/api/auth/register",
		`{"username":"al","email":"not-an-email","password":"short"}`, "")
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var resp struct {
		Error   string            `json:"error"`
		Details map[string]string `json:"details"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "bad_request", resp.Error)
	for _, field := range []string{"username", "email", "password"} {
		assert.Contains(t, resp.Details, field)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	h := newTestServer(t)
	registerAlice(t, h)

	rr := doJSON(t, h, http.MethodPost, "/api/auth/register",
		`{"username":"ALICE","email":"other@example.com","password":"correct horse battery"}`, "")
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestLoginAndMe(t *testing.T) {
	h := newTestServer(t)
	registerAlice(t, h)

	rr := doJSON(t, h, http.MethodPost, "/api/auth/login",
		`{"identifier":"Alice","password":"correct horse battery"}`, "")
	require.Equal(t, http.StatusOK, rr.Code)
	payload := decodeAuth(t, rr)

	rr = doJSON(t, h, http.MethodGet, "/api/me", "", payload.AccessToken)
	require.Equal(t, http.StatusOK, rr.Code)

	var me struct {
		User map[string]any `json:"user"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&me))
	assert.Equal(t, "alice", me.User["username"])
}

func TestLoginWrongPassword(t *testing.T) {
	h := newTestServer(t)
	registerAlice(t, h)

	rr := doJSON(t, h, http.MethodPost, "/api/auth/login",
		`{"identifier":"alice","password":"wrong password!!"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// Unknown identifier must produce the identical response body.
	rr2 := doJSON(t, h, http.MethodPost, "/api/auth/login",
		`{"identifier":"nobody","password":"wrong password!!"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rr2.Code)
	assert.Equal(t, rr.Body.String(), rr2.Body.String())
}

func TestMeRequiresToken(t *testing.T) {
	h := newTestServer(t)

	rr := doJSON(t, h, http.MethodGet, "/api/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = doJSON(t, h, http.MethodGet, "/api/me", "", "garbage-token")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestUpdateMe(t *testing.T) {
	h := newTestServer(t)
	payload, _ := registerAlice(t, h)

	rr := doJSON(t, h, http.MethodPatch, "/api/me",
		`{"displayName":"Alice the Great","skillLevel":"advanced","preferredLanguages":["go","rust"]}`,
		payload.AccessToken)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var me struct {
		User map[string]any `json:"user"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&me))
	assert.Equal(t, "Alice the Great", me.User["displayName"])
	assert.Equal(t, "advanced", me.User["skillLevel"])
}

func TestUpdateMeHalfPasswordChangeRejected(t *testing.T) {
	h := newTestServer(t)
	payload, _ := registerAlice(t, h)

	rr := doJSON(t, h, http.MethodPatch, "/api/me",
		`{"currentPassword":"correct horse battery"}`, payload.AccessToken)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRefreshRotation(t *testing.T) {
	h := newTestServer(t)
	_, cookie := registerAlice(t, h)

	// First refresh succeeds and issues a new cookie.
	rr := doJSON(t, h, http.MethodPost, "/api/auth/refresh", "", "", cookie)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rotated := refreshCookie(t, rr)
	assert.NotEqual(t, cookie.Value, rotated.Value)

	// Replaying the consumed cookie fails: rotation made it single-use.
	rr = doJSON(t, h, http.MethodPost, "/api/auth/refresh", "", "", cookie)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// The rotated cookie still works.
	rr = doJSON(t, h, http.MethodPost, "/api/auth/refresh", "", "", rotated)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRefreshWithoutCookie(t *testing.T) {
	h := newTestServer(t)

	rr := doJSON(t, h, http.MethodPost, "/api/auth/refresh", "", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLoginInvalidatesPreviousSession(t *testing.T) {
	h := newTestServer(t)
	_, firstCookie := registerAlice(t, h)

	rr := doJSON(t, h, http.MethodPost, "/api/auth/login",
		`{"identifier":"alice","password":"correct horse battery"}`, "")
	require.Equal(t, http.StatusOK, rr.Code)

	// The session opened at registration died when login replaced it.
	rr = doJSON(t, h, http.MethodPost, "/api/auth/refresh", "", "", firstCookie)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLogout(t *testing.T) {
	h := newTestServer(t)
	_, cookie := registerAlice(t, h)

	rr := doJSON(t, h, http.MethodPost, "/api/auth/logout", "", "", cookie)
	require.Equal(t, http.StatusOK, rr.Code)

	// The cookie is cleared…
	cleared := refreshCookie(t, rr)
	assert.Empty(t, cleared.Value)
	assert.Less(t, cleared.MaxAge, 0)

	// …and the session is dead server-side, not just in the browser.
	rr = doJSON(t, h, http.MethodPost, "/api/auth/refresh", "", "", cookie)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLogoutWithGarbageCookie(t *testing.T) {
	h := newTestServer(t)

	garbage := &http.Cookie{Name: "refresh_token", Value: "not-a-token"}
	rr := doJSON(t, h, http.MethodPost, "/api/auth/logout", "", "", garbage)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAdminRouteRoleGate(t *testing.T) {
	h := newTestServer(t)
	payload, _ := registerAlice(t, h)

	// A regular user's valid token clears authentication but not the role
	// gate.
	rr := doJSON(t, h, http.MethodGet, "/api/admin/home", "", payload.AccessToken)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	// No operation in the service promotes to admin; mint an admin token
	// with the same signing config to exercise the allow path.
	tokens, err := auth.NewTokenService(testAccessSecret, testRefreshSecret, 15*time.Minute, time.Hour)
	require.NoError(t, err)
	adminToken, err := tokens.IssueAccess("admin-1", model.RoleAdmin)
	require.NoError(t, err)

	rr = doJSON(t, h, http.MethodGet, "/api/admin/home", "", adminToken)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "admin"))
}

func TestAccessTokenRejectedAsRefreshCookie(t *testing.T) {
	h := newTestServer(t)
	payload, _ := registerAlice(t, h)

	// Stuff the (validly signed) access token into the refresh cookie:
	// the kind check must reject it.
	forged := &http.Cookie{Name: "refresh_token", Value: payload.AccessToken}
	rr := doJSON(t, h, http.MethodPost, "/api/auth/refresh", "", "", forged)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestServerRejectsEqualSecrets(t *testing.T) {
	cfg := testConfig()
	cfg.JWTRefreshSecret = cfg.JWTAccessSecret

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	_, err := server.New(cfg, logger)
	require.Error(t, err)
}
