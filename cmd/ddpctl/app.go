package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/ddp-client/internal/config"
	"github.com/rickgao/ddp-client/internal/metrics"
	"github.com/rickgao/ddp-client/internal/session"
	"github.com/rickgao/ddp-client/internal/store"
	"github.com/rickgao/ddp-client/internal/transport"
	"github.com/rickgao/ddp-client/internal/version"
)

const shutdownTimeout = 10 * time.Second

// runSession wires a session from config, opens the configured endpoint and
// runs fn until it returns or the process is interrupted. sink may be nil.
func runSession(parent context.Context, o *rootOptions, sink session.EntitySink, fn func(ctx context.Context, s *session.Session) error) error {
	cfg, logger := o.cfg, o.logger

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting ddpctl",
		"version", version.Version,
		"commit", version.Commit,
		"endpoint", cfg.Session.Endpoint,
		"storage", cfg.Storage.Driver,
	)

	tokens, err := store.Open(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer tokens.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := []session.Option{
		session.WithLogger(logger),
		session.WithTransport(transport.NewWebsocket(websocketConfig(cfg.Transport), logger)),
		session.WithStore(tokens),
		session.WithMetrics(metrics.New(reg)),
	}
	if sink != nil {
		opts = append(opts, session.WithEntitySink(sink))
	}
	sess := session.New(session.ConfigFrom(cfg.Session), opts...)
	if err := sess.Start(ctx); err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = sess.Stop(shutdownCtx)
	}()

	if _, err := sess.Open(cfg.Session.Endpoint); err != nil {
		return fmt.Errorf("open socket: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	runCtx, cancelRun := context.WithCancel(gctx)
	defer cancelRun()

	if cfg.Metrics.Enabled {
		g.Go(func() error {
			return serveMetrics(runCtx, cfg.Metrics, reg)
		})
	}
	g.Go(func() error {
		defer cancelRun()
		return fn(runCtx, sess)
	})

	return g.Wait()
}

func serveMetrics(ctx context.Context, cfg config.MetricsConfig, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func websocketConfig(c config.TransportConfig) transport.WebsocketConfig {
	wc := transport.WebsocketConfig{
		HandshakeTimeout: c.HandshakeTimeout,
		WriteTimeout:     c.WriteTimeout,
	}
	if len(c.Headers) > 0 {
		wc.Header = make(http.Header, len(c.Headers))
		for k, v := range c.Headers {
			wc.Header.Set(k, v)
		}
	}
	return wc
}
