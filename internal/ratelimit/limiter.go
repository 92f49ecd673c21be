// Package ratelimit locks out clients after repeated failed logins.
package ratelimit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/todostack/internal/clock"
	"github.com/your-org/todostack/internal/domain"
)

// Config defines the lockout policy
type Config struct {
	MaxAttempts int
	Window      time.Duration
}

// DefaultConfig returns five attempts per fifteen minutes
func DefaultConfig() Config {
	return Config{MaxAttempts: 5, Window: 15 * time.Minute}
}

// Limiter counts failed logins per client identifier. Stale entries are
// purged whenever the table is read; there is no background sweep.
type Limiter struct {
	repo   domain.AttemptRepository
	clock  clock.Clock
	config Config
	logger *zap.Logger
}

// New creates a new limiter
func New(repo domain.AttemptRepository, clk clock.Clock, config Config, logger *zap.Logger) *Limiter {
	if clk == nil {
		clk = clock.Real{}
	}
	def := DefaultConfig()
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = def.MaxAttempts
	}
	if config.Window <= 0 {
		config.Window = def.Window
	}
	return &Limiter{repo: repo, clock: clk, config: config, logger: logger}
}

func (l *Limiter) windowSeconds() int64 {
	return int64(l.config.Window / time.Second)
}

// purge drops entries whose last attempt is older than the window
func (l *Limiter) purge(table domain.AttemptTable, now int64) {
	for id, a := range table {
		if now-a.LastAttempt > l.windowSeconds() {
			delete(table, id)
		}
	}
}

func (l *Limiter) lookup(ctx context.Context, id string) (domain.LoginAttempt, int64, error) {
	table, err := l.repo.Load(ctx)
	if err != nil {
		return domain.LoginAttempt{}, 0, err
	}
	now := l.clock.Now().Unix()
	l.purge(table, now)
	return table[id], now, nil
}

func (l *Limiter) locked(a domain.LoginAttempt) bool {
	return a.Count >= l.config.MaxAttempts
}

// IsRateLimited reports whether id is currently locked out. An expired
// lockout clears the entry so counting starts over.
func (l *Limiter) IsRateLimited(ctx context.Context, id string) (bool, error) {
	a, now, err := l.lookup(ctx, id)
	if err != nil {
		return false, err
	}
	if !l.locked(a) {
		return false, nil
	}
	if now-a.LastAttempt < l.windowSeconds() {
		return true, nil
	}
	return false, l.Clear(ctx, id)
}

// RemainingTime returns how long id stays locked out, zero when it is not
func (l *Limiter) RemainingTime(ctx context.Context, id string) (time.Duration, error) {
	a, now, err := l.lookup(ctx, id)
	if err != nil {
		return 0, err
	}
	if !l.locked(a) {
		return 0, nil
	}
	remaining := l.windowSeconds() - (now - a.LastAttempt)
	if remaining < 0 {
		remaining = 0
	}
	return time.Duration(remaining) * time.Second, nil
}

// RecordFailure increments the counter of id and stamps the attempt time
func (l *Limiter) RecordFailure(ctx context.Context, id string) (domain.LoginAttempt, error) {
	var recorded domain.LoginAttempt
	err := l.repo.Update(ctx, func(table domain.AttemptTable) error {
		now := l.clock.Now().Unix()
		l.purge(table, now)
		a := table[id]
		a.Count++
		a.LastAttempt = now
		table[id] = a
		recorded = a
		return nil
	})
	if err != nil {
		return domain.LoginAttempt{}, err
	}
	if l.locked(recorded) {
		l.logger.Warn("client locked out after failed logins",
			zap.String("client", id),
			zap.Int("attempts", recorded.Count),
		)
	}
	return recorded, nil
}

// Clear forgets every failed attempt of id
func (l *Limiter) Clear(ctx context.Context, id string) error {
	return l.repo.Update(ctx, func(table domain.AttemptTable) error {
		l.purge(table, l.clock.Now().Unix())
		delete(table, id)
		return nil
	})
}
