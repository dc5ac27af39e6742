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

// ColumnarServer is the RPC-facing query surface named in spec.md §6:
// GetSchema(sql) -> column list, Execute(sql) -> a stream of row batches.
// It reuses the same HTTP transport and Bearer-token auth as HTTPServer
// (see DESIGN.md for why a full Arrow Flight SQL server isn't wired: no
// example repo in the pack pairs DuckDB with Flight, and hand-rolling a
// gRPC service definition without a .proto in the corpus would be
// inventing a wire format, not learning one). Batches are newline-
// delimited JSON objects rather than Arrow IPC frames — the same
// row-shape used throughout this repo's Batch/Result types.
type ColumnarServer struct {
	sessions func() *query.Session
	auth     Authenticator

	addr       string
	batchRows  int
	httpServer *http.Server
	listener   net.Listener
	mu         sync.RWMutex
}

func NewColumnarServer(addr string, auth Authenticator, newSession func() *query.Session, batchRows int) *ColumnarServer {
	if batchRows <= 0 {
		batchRows = 4096
	}
	return &ColumnarServer{addr: addr, auth: auth, sessions: newSession, batchRows: batchRows}
}

func (c *ColumnarServer) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", c.handleHealth)
	mux.HandleFunc("/rpc/GetSchema", c.withAuth(c.handleGetSchema))
	mux.HandleFunc("/rpc/Execute", c.withAuth(c.handleExecute))

	c.mu.Lock()
	c.httpServer = &http.Server{Handler: mux, ReadTimeout: 30 * time.Second, IdleTimeout: 120 * time.Second}
	c.mu.Unlock()

	listener, err := net.Listen("tcp", c.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", c.addr, err)
	}
	c.listener = listener

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = c.httpServer.Shutdown(shutdownCtx)
	}()
	return c.httpServer.Serve(c.listener)
}

func (c *ColumnarServer) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := c.auth.Authenticate(r); err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next(w, r)
	}
}

func (c *ColumnarServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type rpcRequest struct {
	SQL string `json:"sql"`
}

func (c *ColumnarServer) handleGetSchema(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	session := c.sessions()
	if err := session.Prepare(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	rows, err := session.Query(r.Context(), req.SQL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer rows.Close()
	schema, err := Schema(rows)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(schema)
}

// handleExecute streams the result as newline-delimited JSON batches of up
// to c.batchRows rows each, the stand-in for a columnar RecordBatch
// stream.
func (c *ColumnarServer) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	session := c.sessions()
	if err := session.Prepare(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	rows, err := session.Query(r.Context(), req.SQL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)

	batch := make([]map[string]any, 0, c.batchRows)
	flushBatch := func() {
		if len(batch) == 0 {
			return
		}
		_ = enc.Encode(batch)
		if flusher != nil {
			flusher.Flush()
		}
		batch = batch[:0]
	}

	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return // headers already sent; nothing useful left to report
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = vals[i]
		}
		batch = append(batch, row)
		if len(batch) >= c.batchRows {
			flushBatch()
		}
	}
	flushBatch()
}
