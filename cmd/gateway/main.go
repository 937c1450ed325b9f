// Package main is the entrypoint for the d1bridge gateway server.
// The gateway serves one HTTP surface over a bound local database and,
// for requests carrying Cloudflare credentials, the remote D1 API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/canonica-labs/d1bridge/internal/adapters/d1"
	"github.com/canonica-labs/d1bridge/internal/adapters/local"
	"github.com/canonica-labs/d1bridge/internal/config"
	"github.com/canonica-labs/d1bridge/internal/gateway"
	"github.com/canonica-labs/d1bridge/internal/observability"
	"github.com/canonica-labs/d1bridge/internal/storage"
	"github.com/canonica-labs/d1bridge/pkg/api"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "gateway: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "", "config file (default: ~/.d1bridge/config.yaml)")
		addr       = flag.String("addr", "", "HTTP listen address (overrides server.addr)")
		showVer    = flag.Bool("version", false, "Show version")
	)
	flag.Parse()

	if *showVer {
		fmt.Printf("d1bridge-gateway %s (commit: %s, built: %s)\n", version, commit, date)
		return nil
	}

	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gw, closer, err := buildGateway(ctx, cfg, os.Stdout)
	if err != nil {
		return err
	}
	defer closer()

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      gw,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("d1bridge gateway starting on %s", cfg.Server.Addr)
		log.Printf("Version: %s, Commit: %s", version, commit)
		log.Printf("Health check: http://localhost%s%s", cfg.Server.Addr, api.EndpointHealth)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down gateway...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Println("Gateway stopped")
	return nil
}

// buildGateway opens the configured backends and state store and returns
// the gateway with a function releasing them.
func buildGateway(ctx context.Context, cfg *config.Config, logOut io.Writer) (*gateway.Gateway, func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	opts := gateway.Options{
		Prefix:   cfg.Server.Prefix,
		Compress: cfg.Server.Compress,
	}

	if cfg.Local.Bound() {
		exec, err := local.Open(ctx, local.Config{
			Driver: cfg.Local.Driver,
			DSN:    cfg.Local.DSN,
			Name:   cfg.Local.Name,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open local database: %w", err)
		}
		closers = append(closers, func() { exec.Close() })
		opts.Local = exec
		log.Printf("Bound local %s database %q", cfg.Local.Driver, cfg.Local.Name)
	} else {
		log.Println("No local database bound (set local.dsn)")
	}

	if cfg.Remote.Enabled {
		opts.Remote = d1.NewClient(d1.Config{
			Endpoint:   cfg.Remote.Endpoint,
			Timeout:    cfg.Remote.Timeout,
			RawResults: cfg.Remote.RawResults,
		})
		log.Printf("Remote mode enabled: %s", cfg.Remote.Endpoint)
	}

	var jsonOut io.Writer
	if cfg.Logging.Format == "json" {
		jsonOut = logOut
	}

	switch {
	case cfg.Logging.Audit:
		db, err := storage.Open(ctx, cfg.State.Driver, cfg.State.DSN)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, func() { db.Close() })

		var logger *observability.PersistentLogger
		if jsonOut != nil {
			logger, err = observability.NewPersistentLoggerWithWriter(db, jsonOut)
		} else {
			logger, err = observability.NewPersistentLogger(db)
		}
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		opts.Logger = logger
		log.Printf("Audit log persisted to %s state store", cfg.State.Driver)
	case jsonOut != nil:
		opts.Logger = observability.NewJSONLogger(jsonOut)
	default:
		opts.Logger = observability.NewNoopLogger()
	}

	return gateway.New(opts), closeAll, nil
}
