// Command http-gateway runs only the HTTP-JSON query gateway against an
// already-materialized lake — no daemon, no columnar RPC server — for
// deployments that scale query fan-out independently from
// materialization (spec.md §6's gateway is stateless aside from its
// Session pool, so running many of these behind a load balancer is safe).
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/micromegas/lakehouse/internal/gateway"
	"github.com/micromegas/lakehouse/internal/lakehouse/config"
	"github.com/micromegas/lakehouse/internal/lakehouse/lake"
	"github.com/micromegas/lakehouse/internal/lakehouse/query"
	"github.com/micromegas/lakehouse/internal/lakehouse/view"
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("loading configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	l, err := lake.Open(ctx, cfg)
	if err != nil {
		log.Error("opening lake", "error", err)
		os.Exit(1)
	}
	defer l.Close()

	registry := view.NewDefaultRegistry()
	cache, err := query.NewMetadataCache(int64(cfg.MetadataCacheMB) * 1024 * 1024)
	if err != nil {
		log.Error("building metadata cache", "error", err)
		os.Exit(1)
	}
	newSession := func() *query.Session { return query.NewSession(l, registry, cache) }

	var auth gateway.Authenticator = gateway.NoAuth{}
	if len(cfg.APIKeys) > 0 {
		auth = gateway.NewAPIKeyAuthenticator(cfg.APIKeys)
	}

	addr := ":9090"
	if v := os.Getenv("MICROMEGAS_HTTP_ADDR"); v != "" {
		addr = v
	}
	srv := gateway.NewHTTPServer(addr, auth, newSession)

	log.Info("http-gateway listening", "addr", addr)
	if err := srv.Start(ctx); err != nil && ctx.Err() == nil {
		log.Error("gateway server exited", "error", err)
		os.Exit(1)
	}
}
