// Package health serves liveness and readiness over HTTP and the gRPC health protocol.
package health

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	pingTimeout     = time.Second
	shutdownTimeout = 3 * time.Second
)

// Check reports whether one dependency is usable.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// Checker runs readiness checks in order.
type Checker struct {
	checks []Check
}

func NewChecker(checks ...Check) *Checker {
	return &Checker{checks: checks}
}

// Ready returns the first failing check wrapped with its name.
func (c *Checker) Ready(ctx context.Context) error {
	for _, check := range c.checks {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		err := check.Ping(pingCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("%s not ready: %w", check.Name, err)
		}
	}
	return nil
}

// Handler serves /healthz and /readyz.
func (c *Checker) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := c.Ready(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	return mux
}

// ServeHTTP runs handler on addr until ctx is done.
func ServeHTTP(ctx context.Context, addr string, handler http.Handler, name string, logger *zerolog.Logger) {
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	logger.Info().Str("addr", addr).Msgf("%s server listening", name)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msgf("%s server error", name)
	}
}

// GRPC publishes the checker's state through grpc.health.v1.
type GRPC struct {
	checker  *Checker
	server   *grpc.Server
	health   *health.Server
	interval time.Duration
	logger   zerolog.Logger
}

func NewGRPC(checker *Checker, interval time.Duration, logger *zerolog.Logger) *GRPC {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	srv := grpc.NewServer()
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	return &GRPC{
		checker:  checker,
		server:   srv,
		health:   hs,
		interval: interval,
		logger:   logger.With().Str("component", "grpc_health").Logger(),
	}
}

// Refresh runs the checks once and records SERVING or NOT_SERVING.
func (g *GRPC) Refresh(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if err := g.checker.Ready(ctx); err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		g.logger.Warn().Err(err).Msg("readiness check failed")
	}
	g.health.SetServingStatus("", status)
}

// Serve accepts on lis until ctx is done.
func (g *GRPC) Serve(ctx context.Context, lis net.Listener) error {
	g.Refresh(ctx)
	go func() {
		ticker := time.NewTicker(g.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				g.health.Shutdown()
				g.server.GracefulStop()
				return
			case <-ticker.C:
				g.Refresh(ctx)
			}
		}
	}()
	g.logger.Info().Str("addr", lis.Addr().String()).Msg("grpc health listening")
	if err := g.server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}
