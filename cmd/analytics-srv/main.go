// Command analytics-srv is the lakehouse's long-running service process:
// it owns the catalog/object-store/SQL-engine singletons, runs the
// background daemon (component I), and serves the columnar RPC and
// HTTP-JSON query gateways (component J) over the same process. Grounded
// on cmd/bd/main_daemon.go's daemon-as-a-subcommand-of-the-main-binary
// layout, generalized here to the lakehouse's always-on service shape.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/micromegas/lakehouse/internal/gateway"
	"github.com/micromegas/lakehouse/internal/lakehouse/config"
	"github.com/micromegas/lakehouse/internal/lakehouse/daemon"
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

	globalViewSets := []string{"log_entries", "measures", "processes", "streams", "log_stats"}
	d := daemon.New(l, registry, globalViewSets, daemon.Config{}, log)
	if err := d.RetireStaleSchemas(ctx); err != nil {
		log.Error("retiring stale-schema partitions at startup", "error", err)
	}
	go func() {
		if err := d.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("daemon loop exited", "error", err)
		}
	}()

	auth := buildAuthenticator(cfg)
	httpAddr := envOr("MICROMEGAS_HTTP_ADDR", ":9090")
	rpcAddr := envOr("MICROMEGAS_RPC_ADDR", ":9091")

	httpSrv := gateway.NewHTTPServer(httpAddr, auth, newSession)
	columnarSrv := gateway.NewColumnarServer(rpcAddr, auth, newSession, 4096)

	errCh := make(chan error, 2)
	go func() { errCh <- httpSrv.Start(ctx) }()
	go func() { errCh <- columnarSrv.Start(ctx) }()

	log.Info("analytics-srv listening", "http_addr", httpAddr, "rpc_addr", rpcAddr)

	select {
	case <-ctx.Done():
		log.Info("analytics-srv shutting down")
	case err := <-errCh:
		if err != nil {
			log.Error("server exited", "error", err)
		}
	}
}

func buildAuthenticator(cfg *config.Config) gateway.Authenticator {
	if len(cfg.APIKeys) > 0 {
		return gateway.NewAPIKeyAuthenticator(cfg.APIKeys)
	}
	return gateway.NoAuth{}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
