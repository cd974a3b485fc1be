package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// heartbeatInterval is how often the /sse stream writes a keepalive comment
// so intermediaries don't time out an otherwise idle connection.
const heartbeatInterval = 30 * time.Second

// HTTPTransportOptions configures the HTTP/SSE transport's auth mode.
type HTTPTransportOptions struct {
	Authless bool
	APIKey   string
}

// HTTPTransport serves the MCP protocol over HTTP, alongside the
// well-known discovery documents and OAuth 2.1 PKCE endpoints clients probe
// before the first tool call. The Server's stdio path (ServeStdio) never
// touches this file; they share only the *Server's registered tools.
type HTTPTransport struct {
	server *Server
	gate   *oauthGate
	mux    *http.ServeMux
}

// NewHTTPTransport builds the HTTP mux for s, wrapping /mcp and /sse in
// bearer-token enforcement unless opts.Authless is set.
func NewHTTPTransport(s *Server, opts HTTPTransportOptions) *HTTPTransport {
	gate := newOAuthGate(opts.APIKey, opts.Authless)
	t := &HTTPTransport{server: s, gate: gate, mux: http.NewServeMux()}
	t.routes()
	return t
}

func (t *HTTPTransport) routes() {
	t.mux.HandleFunc("GET /health", t.handleHealth)
	t.mux.HandleFunc("GET /.well-known/mcp-server", t.handleWellKnownServer)
	t.mux.HandleFunc("GET /.well-known/mcp.json", t.handleWellKnownServer)
	t.mux.HandleFunc("GET /.well-known/oauth-authorization-server", t.handleWellKnownOAuth)
	t.mux.HandleFunc("GET /authorize", t.gate.handleAuthorize)
	t.mux.HandleFunc("POST /token", t.gate.handleToken)

	streamable := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return t.server.MCPServer()
	}, nil)
	t.mux.Handle("POST /mcp", t.gate.requireBearer(streamable))
	t.mux.Handle("GET /sse", t.gate.requireBearer(http.HandlerFunc(t.handleSSE)))
}

// ListenAndServe blocks serving the mux until ctx is cancelled.
func (t *HTTPTransport) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: t.mux}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (t *HTTPTransport) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (t *HTTPTransport) handleWellKnownServer(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"name":        "ragmcp",
		"protocol":    "mcp",
		"transports":  []string{"streamable-http", "sse"},
		"mcp_url":     fmt.Sprintf("%s://%s/mcp", schemeOf(r), r.Host),
		"sse_url":     fmt.Sprintf("%s://%s/sse", schemeOf(r), r.Host),
		"auth_server": fmt.Sprintf("%s://%s/.well-known/oauth-authorization-server", schemeOf(r), r.Host),
	})
}

func (t *HTTPTransport) handleWellKnownOAuth(w http.ResponseWriter, r *http.Request) {
	base := fmt.Sprintf("%s://%s", schemeOf(r), r.Host)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"issuer":                 base,
		"authorization_endpoint": base + "/authorize",
		"token_endpoint":         base + "/token",
		"response_types_supported": []string{"code"},
		"grant_types_supported":    []string{"authorization_code"},
		"code_challenge_methods_supported": []string{"S256"},
		"client_id":              oauthClientID,
	})
}

// handleSSE streams the legacy SSE transport's 30s heartbeat comments. A
// connected client that wants to issue tool calls still POSTs to /mcp; this
// endpoint exists for clients that only know how to probe a long-lived
// event stream before doing so.
func (t *HTTPTransport) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
				slog.Debug("sse heartbeat write failed", slog.String("error", err.Error()))
				return
			}
			flusher.Flush()
		}
	}
}

func schemeOf(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	return "http"
}
