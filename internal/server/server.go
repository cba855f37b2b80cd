// Package server assembles the HTTP surface: Connect services, health and
// metrics endpoints, all served over h2c.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/splitledger/internal/auth"
	"github.com/mmynk/splitledger/internal/middleware"
	"github.com/mmynk/splitledger/internal/service"
	"github.com/mmynk/splitledger/internal/settlement"
	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/pkg/rpc"
)

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	Store         storage.Store
	Engine        *settlement.Engine
	Authenticator service.Authenticator
	JWT           *auth.JWTManager
	// Trigger runs after expense writes. Defaults to inline recalculation
	// by Engine.
	Trigger        service.RecalculationTrigger
	MetricsEnabled bool
	Logger         *slog.Logger
}

// Handler returns the chi router with all routes mounted.
func Handler(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Trigger == nil {
		d.Trigger = d.Engine
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimw.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	if d.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	interceptors := connect.WithInterceptors(
		middleware.RequireAuth(d.JWT, rpc.PublicProcedures...),
		middleware.LoggingInterceptor(),
	)
	r.Mount(rpc.NewAuthServiceHandler(service.NewAuthService(d.Authenticator, d.JWT, d.Store, d.Logger), interceptors))
	r.Mount(rpc.NewGroupServiceHandler(service.NewGroupService(d.Store), interceptors))
	r.Mount(rpc.NewExpenseServiceHandler(service.NewExpenseService(d.Store, d.Trigger), interceptors))
	r.Mount(rpc.NewSettlementServiceHandler(service.NewSettlementService(d.Store, d.Engine), interceptors))

	return r
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Run serves h on addr until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr: addr,
		// Wrap with h2c for HTTP/2 without TLS (required for Connect)
		Handler:           h2c.NewHandler(h, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Connect server starting", "address", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
