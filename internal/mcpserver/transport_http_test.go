package mcpserver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTransport(t *testing.T, authless bool) *HTTPTransport {
	t.Helper()
	s, _ := newTestServer(t)
	return NewHTTPTransport(s, HTTPTransportOptions{Authless: authless, APIKey: "test-secret"})
}

func TestHTTPTransport_Health_NeedsNoAuth(t *testing.T) {
	tr := newTestTransport(t, false)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	tr.mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestHTTPTransport_MCP_RejectsMissingBearer(t *testing.T) {
	tr := newTestTransport(t, false)
	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	rec := httptest.NewRecorder()

	tr.mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHTTPTransport_MCP_AllowsAnyRequestInAuthlessMode(t *testing.T) {
	tr := newTestTransport(t, true)
	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	rec := httptest.NewRecorder()

	tr.mux.ServeHTTP(rec, req)

	assert.NotEqual(t, http.StatusUnauthorized, rec.Code)
}

func TestHTTPTransport_MCP_AcceptsValidBearerToken(t *testing.T) {
	tr := newTestTransport(t, false)
	tok, _, err := tr.gate.issueToken()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()

	tr.mux.ServeHTTP(rec, req)

	assert.NotEqual(t, http.StatusUnauthorized, rec.Code)
}

func TestHTTPTransport_WellKnownOAuth_AdvertisesTokenEndpoint(t *testing.T) {
	tr := newTestTransport(t, false)
	req := httptest.NewRequest(http.MethodGet, "/.well-known/oauth-authorization-server", nil)
	rec := httptest.NewRecorder()

	tr.mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/token")
	assert.Contains(t, rec.Body.String(), "/authorize")
}

func TestHTTPTransport_Token_IssuesBearerToken(t *testing.T) {
	tr := newTestTransport(t, false)
	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader("grant_type=client_credentials&client_secret=test-secret"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	tr.mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "access_token")
}
