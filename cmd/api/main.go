package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	fbadapter "github.com/Overland-East-Bay/plan-sharing-api/internal/adapters/firebase"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/adapters/httpapi"
	memidentity "github.com/Overland-East-Bay/plan-sharing-api/internal/adapters/memory/identity"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/app/invites"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/app/memberids"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/platform/auth/jwtverifier"
	platformclock "github.com/Overland-East-Bay/plan-sharing-api/internal/platform/clock"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/platform/config"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/platform/logging"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/platform/storage"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/ports/out/clock"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/ports/out/idempotency"
	"github.com/Overland-East-Bay/plan-sharing-api/internal/ports/out/identity"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("api exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	clk := platformclock.NewSystemClock()

	stores, err := storage.Open(ctx, cfg, cfg.StorageBackend, clk)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer stores.Close()

	// Auth configuration:
	// - firebase: Firebase ID tokens; emails resolve through Firebase Authentication
	// - jwt: RS256 tokens checked against a JWKS endpoint
	// - dev: X-Debug-Subject (or DEV_SUBJECT), no verification
	var (
		authMW    func(http.Handler) http.Handler
		directory identity.Directory = stores.Directory
	)
	switch cfg.AuthMode {
	case config.AuthModeFirebase:
		authClient, err := fbadapter.NewAuthClient(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
		if err != nil {
			return err
		}
		authMW = httpapi.NewAuthMiddleware(fbadapter.NewVerifier(authClient))
		directory = fbadapter.NewDirectory(authClient)
	case config.AuthModeJWT:
		jwtCfg, err := config.LoadJWTConfigFromEnv()
		if err != nil {
			return fmt.Errorf("invalid auth config: %w", err)
		}
		authMW = httpapi.NewAuthMiddleware(jwtverifier.New(jwtCfg))
	default:
		authMW = httpapi.NewDevAuthMiddleware(cfg.DevSubject)
	}

	if directory == nil && cfg.NeedsFirebase() {
		authClient, err := fbadapter.NewAuthClient(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
		if err != nil {
			return err
		}
		directory = fbadapter.NewDirectory(authClient)
	}
	if directory == nil {
		slog.Warn("no identity directory for this backend; inviteByEmail resolves no emails")
		directory = memidentity.NewDirectory()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	api := httpapi.NewServer(
		invites.NewService(stores.Plans, stores.Users, directory),
		memberids.NewService(stores.Plans),
		stores.Idem,
		clk,
	)
	api.ReplayWindow = cfg.IdempotencyTTL
	if cfg.IdempotencyTTL > 0 {
		go pruneIdempotency(ctx, stores.Idem, clk, cfg.IdempotencyTTL, time.Hour)
	}

	handler := httpapi.NewRouter(api, httpapi.RouterOptions{
		AuthMiddleware:       authMW,
		Metrics:              httpapi.NewMetrics(reg),
		Gatherer:             reg,
		MaintenanceEndpoints: cfg.MaintenanceEndpoints,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("api listening",
			"port", cfg.Port,
			"auth_mode", cfg.AuthMode,
			"storage", cfg.StorageBackend,
			"maintenance_endpoints", cfg.MaintenanceEndpoints,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// pruneIdempotency deletes replay records older than ttl every interval until ctx ends.
func pruneIdempotency(ctx context.Context, store idempotency.Store, clk clock.Clock, ttl, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruneOnce(ctx, store, clk, ttl)
		}
	}
}

func pruneOnce(ctx context.Context, store idempotency.Store, clk clock.Clock, ttl time.Duration) {
	n, err := store.Prune(ctx, clk.Now().Add(-ttl))
	if err != nil {
		slog.WarnContext(ctx, "idempotency prune failed", "error", err)
		return
	}
	if n > 0 {
		slog.DebugContext(ctx, "idempotency records pruned", "removed", n)
	}
}
