package mcpserver

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// oauthClientID is the single, fixed client this server issues tokens to.
// The corpus has one operator, so there is no client registry to manage.
const oauthClientID = "ragmcp-cli"

var (
	errMissingBearer = errors.New("mcpserver: missing bearer token")
	errInvalidBearer = errors.New("mcpserver: invalid bearer token")
)

type authContextKey struct{}

// bearerClaims carries the subject and expiry of an issued access token.
type bearerClaims struct {
	jwt.RegisteredClaims
}

// oauthGate implements the OAuth 2.1 PKCE façade §4.11 names for the HTTP
// transport: a fixed client id, a shared secret that doubles as both the
// signing key and the bearer credential named RAGMCP_API_KEY, and no
// external identity provider. Authless mode skips verification entirely.
type oauthGate struct {
	secret   []byte
	authless bool
}

func newOAuthGate(apiKey string, authless bool) *oauthGate {
	return &oauthGate{secret: []byte(apiKey), authless: authless}
}

// issueToken signs a short-lived access token for the fixed client, the
// grant returned by the /token handler once a valid authorization code or
// client-credentials exchange lands.
func (g *oauthGate) issueToken() (string, time.Duration, error) {
	ttl := time.Hour
	claims := bearerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   oauthClientID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	return tok, ttl, err
}

func (g *oauthGate) verify(tokenStr string) error {
	if len(g.secret) > 0 && subtle.ConstantTimeCompare([]byte(tokenStr), g.secret) == 1 {
		return nil
	}
	_, err := jwt.ParseWithClaims(tokenStr, &bearerClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return g.secret, nil
	})
	if err != nil {
		return errInvalidBearer
	}
	return nil
}

// requireBearer wraps next with bearer-token enforcement, bypassed entirely
// in authless mode (§6's http_server.authless).
func (g *oauthGate) requireBearer(next http.Handler) http.Handler {
	if g.authless {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			writeOAuthError(w, http.StatusUnauthorized, "missing authorization token")
			return
		}
		if err := g.verify(parts[1]); err != nil {
			writeOAuthError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(r.WithContext(context.WithValue(r.Context(), authContextKey{}, parts[1])))
	})
}

// handleAuthorize serves the authorization endpoint of the PKCE flow. Since
// there is exactly one client and one resource owner (the operator holding
// the API key), the redirect happens immediately with the supplied state
// and a fixed authorization code.
func (g *oauthGate) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	redirectURI := r.URL.Query().Get("redirect_uri")
	state := r.URL.Query().Get("state")
	if redirectURI == "" {
		writeOAuthError(w, http.StatusBadRequest, "missing redirect_uri")
		return
	}

	target := redirectURI + "?code=" + oauthClientID
	if state != "" {
		target += "&state=" + state
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// handleToken exchanges an authorization code (or any client-credentials
// request bearing the shared secret) for a bearer access token.
func (g *oauthGate) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, http.StatusBadRequest, "malformed token request")
		return
	}
	secretOK := len(g.secret) > 0 && subtle.ConstantTimeCompare([]byte(r.Form.Get("client_secret")), g.secret) == 1
	if r.Form.Get("code") != oauthClientID && !secretOK {
		writeOAuthError(w, http.StatusUnauthorized, "invalid authorization code or client secret")
		return
	}

	tok, ttl, err := g.issueToken()
	if err != nil {
		writeOAuthError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token": tok,
		"token_type":   "Bearer",
		"expires_in":   int(ttl.Seconds()),
	})
}

func writeOAuthError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
