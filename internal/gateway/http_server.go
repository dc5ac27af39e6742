package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/micromegas/lakehouse/internal/lakehouse/query"
)

// HTTPServer is the JSON query gateway: POST /gateway/query {"sql": "..."}
// returns the result as a JSON array of row objects. Grounded on
// internal/rpc/http_server.go's listener/shutdown lifecycle and its
// exempt-health-routes-from-auth convention.
type HTTPServer struct {
	sessions func() *query.Session
	auth     Authenticator

	addr       string
	httpServer *http.Server
	listener   net.Listener
	mu         sync.RWMutex
}

// NewHTTPServer builds a gateway whose handlers call newSession() to get a
// fresh query.Session per request (a Session is meant to be short-lived,
// per spec.md §4.H).
func NewHTTPServer(addr string, auth Authenticator, newSession func() *query.Session) *HTTPServer {
	return &HTTPServer{addr: addr, auth: auth, sessions: newSession}
}

func (h *HTTPServer) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	mux.HandleFunc("/gateway/query", h.withAuth(h.handleQuery))

	h.mu.Lock()
	h.httpServer = &http.Server{
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // analytical queries can run long
		IdleTimeout:  120 * time.Second,
	}
	h.mu.Unlock()

	listener, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", h.addr, err)
	}
	h.listener = listener

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = h.httpServer.Shutdown(shutdownCtx)
	}()

	return h.httpServer.Serve(h.listener)
}

func (h *HTTPServer) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.auth.Authenticate(r); err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next(w, r)
	}
}

func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type queryRequest struct {
	SQL string `json:"sql"`
}

func (h *HTTPServer) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("decoding request body: %v", err))
		return
	}
	if req.SQL == "" {
		writeError(w, http.StatusBadRequest, "sql is required")
		return
	}

	session := h.sessions()
	if err := session.Prepare(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("preparing session: %v", err))
		return
	}
	rows, err := session.Query(r.Context(), req.SQL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer rows.Close()

	out, err := ScanRowsToMaps(rows)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
