// Package handlers_test drives the full HTTP surface through the same
// engine main runs, backed by an in-memory database per test.
package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"emuhub/internal/models"
	"emuhub/internal/router"
	"emuhub/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *gin.Engine {
	t.Helper()
	testutil.SetupDB(t)
	return router.Setup()
}

// client carries the session cookie between requests, one per logical
// browser. Two clients against the same engine are two separate sessions.
type client struct {
	t       *testing.T
	engine  *gin.Engine
	cookies map[string]*http.Cookie
}

func newClient(t *testing.T, engine *gin.Engine) *client {
	return &client{t: t, engine: engine, cookies: make(map[string]*http.Cookie)}
}

// do sends a JSON request and keeps any cookie the server set.
func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.doRequest(req)
}

// doRequest sends a prebuilt request, for bodies that aren't JSON.
func (c *client) doRequest(req *http.Request) *httptest.ResponseRecorder {
	c.t.Helper()
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	c.engine.ServeHTTP(w, req)

	for _, cookie := range w.Result().Cookies() {
		c.cookies[cookie.Name] = cookie
	}
	return w
}

// login opens a session for a fixture user (testutil users all share
// testutil.Password).
func (c *client) login(user *models.User) {
	c.t.Helper()
	w := c.do("POST", "/auth/login", gin.H{"email": user.Email, "password": testutil.Password})
	require.Equal(c.t, http.StatusOK, w.Code, "login as %s: %s", user.Email, w.Body.String())
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), "body: %s", w.Body.String())
	return body
}

func asMap(t *testing.T, v any) map[string]any {
	t.Helper()
	m, ok := v.(map[string]any)
	require.True(t, ok, "expected a JSON object, got %T", v)
	return m
}

func asList(t *testing.T, v any) []any {
	t.Helper()
	l, ok := v.([]any)
	require.True(t, ok, "expected a JSON array, got %T", v)
	return l
}

// requireError asserts both the status and the {"error","code"} envelope.
func requireError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, w.Code, "body: %s", w.Body.String())
	body := decode(t, w)
	require.Equal(t, code, body["code"])
	require.NotEmpty(t, body["error"])
}

// configBody is a valid POST /configs payload against the given game.
func configBody(gameID uint) gin.H {
	return gin.H{
		"gameId":         gameID,
		"gamehubVersion": "1.4.2",
		"tags":           []string{"performance"},
		"details": gin.H{
			"resolution": "1920x1080",
			"gpuDriver":  "vulkan",
			"notes":      "Steady 60fps after the shader cache warms up.",
		},
	}
}
