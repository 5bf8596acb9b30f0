package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/liverelay/webcast/internal/config"
	adminmw "github.com/liverelay/webcast/internal/middleware"
	"github.com/liverelay/webcast/pkg/kick"
	"github.com/liverelay/webcast/pkg/live"
	"github.com/liverelay/webcast/pkg/schema"
	"github.com/liverelay/webcast/pkg/sign"
)

func runCmd() *cobra.Command {
	var configPath string
	var listen string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the decoder daemon with the admin HTTP surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}
			return runDaemon(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to webcast.yaml")
	cmd.Flags().StringVarP(&listen, "listen", "l", "", "Admin listen address (overrides config)")

	return cmd
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// timeoutSource bounds every credential fetch with the signer timeout.
type timeoutSource struct {
	inner   live.CredentialSource
	timeout time.Duration
}

func (s timeoutSource) Fetch(ctx context.Context, target string) (*sign.Credentials, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.inner.Fetch(ctx, target)
}

// daemon wires the orchestrator to the admin surface and drains connection
// events into the log.
type daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	orch   *live.Orchestrator

	mu      sync.Mutex
	drained map[live.Conn]struct{}
}

func runDaemon(ctx context.Context, cfg *config.Config) error {
	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	s, err := schema.Load()
	if err != nil {
		return err
	}

	orch := live.NewOrchestrator(live.OrchestratorConfig{
		MaxReconnectAttempts: cfg.Reconnect.MaxAttempts,
		RemovalGrace:         cfg.Reconnect.RemovalGrace.Duration(),
		SweepRate:            rate.Limit(cfg.Reconnect.SweepRate),
		Logger:               logger,
	})
	orch.RegisterPlatform(live.PlatformTikTok, live.TikTokFactory(live.ConnConfig{
		Schema: s,
		Source: timeoutSource{
			inner:   sign.NewClient(cfg.Signer.Addr, logger),
			timeout: cfg.Signer.Timeout.Duration(),
		},
		Status:       live.NewStatusClient(live.StatusClientConfig{Logger: logger}),
		PingInterval: cfg.Transport.PingInterval.Duration(),
		Logger:       logger,
	}))
	orch.RegisterPlatform(live.PlatformKick, kick.Factory(kick.Config{
		APIBase: cfg.Kick.APIBase,
		WSURL:   cfg.Kick.WSURL,
		Logger:  logger,
	}))

	d := &daemon{
		cfg:     cfg,
		logger:  logger,
		orch:    orch,
		drained: make(map[live.Conn]struct{}),
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           d.router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("admin surface listening", "addr", cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	go d.sweepLoop(ctx)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	for _, info := range orch.Connections() {
		orch.Remove(info.Platform, info.Target)
	}
	return nil
}

// sweepLoop triggers the reconnect sweep on the configured interval.
func (d *daemon) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.Reconnect.SweepInterval.Duration())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.orch.Sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (d *daemon) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(adminmw.NewHTTPMetrics(nil).Handler)
	r.Use(adminmw.Tracing)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/connections", d.handleListConnections)
	r.Post("/connections/{platform}/{target}", d.handleJoin)
	r.Delete("/connections/{platform}/{target}", d.handleLeave)

	return r
}

func (d *daemon) handleListConnections(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, d.orch.Connections())
}

func (d *daemon) handleJoin(w http.ResponseWriter, r *http.Request) {
	platform, err := live.ParsePlatform(chi.URLParam(r, "platform"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	target := chi.URLParam(r, "target")

	conn, err := d.orch.Join(r.Context(), platform, target)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	d.drain(conn)

	writeJSON(w, http.StatusOK, map[string]any{
		"platform": platform,
		"uniqueId": conn.Target(),
		"state":    conn.State(),
	})
}

func (d *daemon) handleLeave(w http.ResponseWriter, r *http.Request) {
	platform, err := live.ParsePlatform(chi.URLParam(r, "platform"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	d.orch.Remove(platform, chi.URLParam(r, "target"))
	w.WriteHeader(http.StatusNoContent)
}

// drain logs a connection's event stream. Joining an already-drained
// connection does not start a second consumer.
func (d *daemon) drain(conn live.Conn) {
	d.mu.Lock()
	if _, ok := d.drained[conn]; ok {
		d.mu.Unlock()
		return
	}
	d.drained[conn] = struct{}{}
	d.mu.Unlock()

	go func() {
		logger := d.logger.With("target", conn.Target())
		for ev := range conn.Events() {
			switch ev.Kind {
			case live.EventError, live.EventDecodeFailed:
				logger.Warn("connection event", "kind", ev.Kind.String(), "error", ev.Err)
			case live.EventRawData, live.EventDecodedData:
				// Too chatty even for debug.
			default:
				logger.Debug("connection event", "kind", ev.Kind.String())
			}

			// The event channel outlives individual sockets, so the drain
			// ends on the terminal events instead of channel close.
			if ev.Kind == live.EventStreamEnd {
				break
			}
			if ev.Kind == live.EventDisconnected && !conn.ReconnectEligible() {
				break
			}
		}
		d.mu.Lock()
		delete(d.drained, conn)
		d.mu.Unlock()
	}()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
