// Package probe keeps the database connection warm and surfaces liveness
// failures as metrics and log lines. It never cancels in-flight requests.
package probe

import (
	"context"
	"database/sql"
	"time"

	"seclock.org/internal/audit"
	"seclock.org/internal/obs"
)

const (
	defaultInterval = 30 * time.Second
	pingTimeout     = 5 * time.Second
)

// WaitReady verifies the database answers a ping. Startup calls it before
// the listener opens so an unreachable dependency is fatal instead of a
// stream of failing requests.
func WaitReady(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return db.PingContext(ctx)
}

// Prober pings the database on a fixed interval.
type Prober struct {
	db       *sql.DB
	interval time.Duration
}

// Option configures Prober.
type Option func(*Prober)

// WithInterval overrides the ping interval (useful for tests).
func WithInterval(d time.Duration) Option {
	return func(p *Prober) {
		if d > 0 {
			p.interval = d
		}
	}
}

func New(db *sql.DB, opts ...Option) *Prober {
	p := &Prober{db: db, interval: defaultInterval}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run pings until ctx is done. Failures increment the probe failure counter
// and log; they do not stop the loop.
func (p *Prober) Run(ctx context.Context) {
	if p.db == nil {
		return
	}
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.ping(ctx)
		}
	}
}

func (p *Prober) ping(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := p.db.PingContext(ctx); err != nil {
		obs.ProbeFailures.Inc()
		_ = audit.LogEvent(ctx, "db.keepalive_failed", map[string]any{"error": err.Error()})
	}
}
