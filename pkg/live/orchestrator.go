package live

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/liverelay/webcast/internal/errors"
	"github.com/liverelay/webcast/internal/metrics"
)

// DefaultRemovalGrace is how long a connection that keeps failing to
// reconnect stays in the registry before being dropped.
const DefaultRemovalGrace = 10 * time.Second

// Key identifies one registry entry.
type Key struct {
	Platform Platform
	Target   string
}

// OrchestratorConfig configures an Orchestrator.
type OrchestratorConfig struct {
	// MaxReconnectAttempts bounds consecutive failed reconnects per
	// connection before the sweep stops trying. 0 means unbounded.
	MaxReconnectAttempts int

	// RemovalGrace is the delay before a failed connection is dropped from
	// the registry. 0 uses DefaultRemovalGrace.
	RemovalGrace time.Duration

	// SweepRate caps reconnect attempts per second across the registry.
	// 0 means no cap.
	SweepRate rate.Limit

	// Logger receives orchestrator logs. Nil uses slog.Default.
	Logger *slog.Logger
}

// Orchestrator owns the connection registry and the reconnect policy. All
// registry state lives here; collaborators get it passed in, never through
// globals.
type Orchestrator struct {
	cfg    OrchestratorConfig
	logger *slog.Logger
	tracer trace.Tracer

	limiter *rate.Limiter

	mu        sync.RWMutex
	factories map[Platform]Factory
	conns     map[Key]Conn
	attempts  map[Key]int
	removals  map[Key]*time.Timer
}

// NewOrchestrator creates an orchestrator with an empty registry.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RemovalGrace <= 0 {
		cfg.RemovalGrace = DefaultRemovalGrace
	}
	var limiter *rate.Limiter
	if cfg.SweepRate > 0 {
		limiter = rate.NewLimiter(cfg.SweepRate, 1)
	}
	return &Orchestrator{
		cfg:       cfg,
		logger:    logger.With("component", "orchestrator"),
		tracer:    otel.Tracer("webcast/live"),
		limiter:   limiter,
		factories: make(map[Platform]Factory),
		conns:     make(map[Key]Conn),
		attempts:  make(map[Key]int),
		removals:  make(map[Key]*time.Timer),
	}
}

// RegisterPlatform installs the connection factory for a platform.
func (o *Orchestrator) RegisterPlatform(p Platform, f Factory) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.factories[p] = f
}

// Join returns the connection for (platform, target), creating and
// connecting it if needed. Concurrent joins for the same key share one
// connection object; at most one exists per key at any time.
func (o *Orchestrator) Join(ctx context.Context, p Platform, target string) (Conn, error) {
	ctx, span := o.tracer.Start(ctx, "live.join", trace.WithAttributes(
		attribute.String("platform", string(p)),
		attribute.String("target", target),
	))
	defer span.End()

	key := Key{Platform: p, Target: CanonicalTarget(p, target)}

	o.mu.Lock()
	conn, existed := o.conns[key]
	if !existed {
		factory := o.factories[p]
		if factory == nil {
			o.mu.Unlock()
			return nil, errors.New(errors.CodeBadPlatform).WithDetail("platform %q", p)
		}
		var err error
		conn, err = factory(key.Target, func() { o.Remove(p, key.Target) })
		if err != nil {
			o.mu.Unlock()
			return nil, err
		}
		o.conns[key] = conn
		metrics.ActiveConnections.Inc()
	}
	o.cancelRemovalLocked(key)
	o.mu.Unlock()

	if conn.Connected() {
		return conn, nil
	}
	if err := conn.Connect(ctx); err != nil {
		span.RecordError(err)
		if !existed {
			// A connection that never went live is not worth keeping; the
			// next join starts fresh.
			o.Remove(p, key.Target)
		}
		return nil, err
	}

	o.mu.Lock()
	o.attempts[key] = 0
	o.mu.Unlock()
	return conn, nil
}

// Get returns the connection for (platform, target), if registered.
func (o *Orchestrator) Get(p Platform, target string) (Conn, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	conn, ok := o.conns[Key{Platform: p, Target: CanonicalTarget(p, target)}]
	return conn, ok
}

// Remove drops the connection from the registry and shuts it down.
func (o *Orchestrator) Remove(p Platform, target string) {
	key := Key{Platform: p, Target: CanonicalTarget(p, target)}

	o.mu.Lock()
	conn, ok := o.conns[key]
	if ok {
		delete(o.conns, key)
		delete(o.attempts, key)
		metrics.ActiveConnections.Dec()
	}
	o.cancelRemovalLocked(key)
	o.mu.Unlock()

	if ok {
		conn.Disconnect(true)
		o.logger.Info("connection removed", "platform", p, "target", key.Target)
	}
}

// ConnInfo is one registry entry snapshot.
type ConnInfo struct {
	Platform  Platform       `json:"platform"`
	Target    string         `json:"uniqueId"`
	Connected bool           `json:"isConnected"`
	State     map[string]any `json:"state"`
}

// Connections returns a snapshot of the registry, ordered by key.
func (o *Orchestrator) Connections() []ConnInfo {
	o.mu.RLock()
	conns := make(map[Key]Conn, len(o.conns))
	for k, c := range o.conns {
		conns[k] = c
	}
	o.mu.RUnlock()

	out := make([]ConnInfo, 0, len(conns))
	for k, c := range conns {
		out = append(out, ConnInfo{
			Platform:  k.Platform,
			Target:    k.Target,
			Connected: c.Connected(),
			State:     c.State(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Platform != out[j].Platform {
			return out[i].Platform < out[j].Platform
		}
		return out[i].Target < out[j].Target
	})
	return out
}

// Sweep tries to revive every reconnect-eligible connection once. A
// connection whose reconnect fails is scheduled for removal after the
// grace period, unless it comes back in the meantime. Sweeps are triggered
// externally; the orchestrator keeps no timer of its own.
func (o *Orchestrator) Sweep(ctx context.Context) {
	ctx, span := o.tracer.Start(ctx, "live.sweep")
	defer span.End()

	o.mu.RLock()
	snapshot := make(map[Key]Conn, len(o.conns))
	for k, c := range o.conns {
		snapshot[k] = c
	}
	o.mu.RUnlock()

	for key, conn := range snapshot {
		if conn.Connected() || !conn.ReconnectEligible() {
			continue
		}

		o.mu.RLock()
		tries := o.attempts[key]
		o.mu.RUnlock()
		if o.cfg.MaxReconnectAttempts > 0 && tries >= o.cfg.MaxReconnectAttempts {
			o.logger.Warn("reconnect attempts exhausted",
				"platform", key.Platform, "target", key.Target, "attempts", tries)
			o.scheduleRemoval(key)
			continue
		}

		if o.limiter != nil && !o.limiter.Allow() {
			// Over budget for this sweep; the rest wait for the next one.
			return
		}

		o.logger.Info("reconnecting", "platform", key.Platform, "target", key.Target)
		if err := conn.Connect(ctx); err != nil {
			metrics.ReconnectAttempts.WithLabelValues("error").Inc()
			o.logger.Error("reconnect failed",
				"platform", key.Platform, "target", key.Target, "error", err)

			o.mu.Lock()
			o.attempts[key]++
			o.mu.Unlock()
			o.scheduleRemoval(key)
			continue
		}

		metrics.ReconnectAttempts.WithLabelValues("ok").Inc()
		o.mu.Lock()
		o.attempts[key] = 0
		o.mu.Unlock()
	}
}

// scheduleRemoval arms the grace timer for a key. The connection is dropped
// once the timer fires if it is still not live; a successful join or
// reconnect in the meantime disarms it.
func (o *Orchestrator) scheduleRemoval(key Key) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, armed := o.removals[key]; armed {
		return
	}
	o.removals[key] = time.AfterFunc(o.cfg.RemovalGrace, func() {
		o.mu.Lock()
		delete(o.removals, key)
		conn, ok := o.conns[key]
		if ok && conn.Connected() {
			o.mu.Unlock()
			return
		}
		if ok {
			delete(o.conns, key)
			delete(o.attempts, key)
			metrics.ActiveConnections.Dec()
		}
		o.mu.Unlock()

		if ok {
			conn.Disconnect(true)
			o.logger.Info("connection expired",
				"platform", key.Platform, "target", key.Target)
		}
	})
}

func (o *Orchestrator) cancelRemovalLocked(key Key) {
	if timer, ok := o.removals[key]; ok {
		timer.Stop()
		delete(o.removals, key)
	}
}
