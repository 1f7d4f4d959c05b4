package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	jwttoken "memberdesk/internal/jwt_token"
	"memberdesk/internal/platform/config"
	"memberdesk/internal/platform/httpserver"
	"memberdesk/internal/platform/logger"
	"memberdesk/internal/platform/metrics"
	"memberdesk/internal/store"
	httptransport "memberdesk/internal/transport/http"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps
// the server lifecycle small. Business logic lives in internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		st  store.Store
		err error
	)
	switch cfg.StoreDriver {
	case "memory":
		st = store.NewMemory()
	default:
		st, err = store.Open(ctx, cfg.DatabaseURL, log)
		if err != nil {
			log.Error("store open failed", "error", err.Error())
			os.Exit(1)
		}
	}

	if err := store.Seed(ctx, st, cfg.AdminPassword); err != nil {
		log.Error("store seed failed", "error", err.Error())
		os.Exit(1)
	}

	tokens := jwttoken.NewJWTService(cfg.JWTSigningKey, "memberdesk")
	opts := []httptransport.Option{httptransport.WithMetrics(m)}
	if cfg.RequireAuth {
		opts = append(opts, httptransport.WithRequireAuth())
	}
	handler := httptransport.NewHandler(st, tokens, log, opts...)
	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(handler))

	log.Info("starting memberdesk collection store",
		"addr", cfg.Addr,
		"driver", cfg.StoreDriver,
		"require_auth", cfg.RequireAuth,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err.Error())
		os.Exit(1)
	}
}
