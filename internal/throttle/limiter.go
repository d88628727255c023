package throttle

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// LoginLimiter blocks brute-force login attempts per username. After
// maxFailures failed logins within the window the username is throttled until
// the window rolls over; a successful login resets the count. Counter errors
// fail open: availability over strictness when the backend is unreachable.
type LoginLimiter struct {
	counter     Counter
	maxFailures int
	window      time.Duration
	logger      *zap.Logger
}

// NewLoginLimiter creates a LoginLimiter over the failure counter.
func NewLoginLimiter(counter Counter, maxFailures int, window time.Duration, logger *zap.Logger) *LoginLimiter {
	return &LoginLimiter{
		counter:     counter,
		maxFailures: maxFailures,
		window:      window,
		logger:      logger,
	}
}

// Allow reports whether a login attempt for username may proceed. Call before
// checking credentials so a throttled attacker never reaches the hash compare.
func (l *LoginLimiter) Allow(ctx context.Context, username string) bool {
	n, err := l.counter.Get(ctx, username)
	if err != nil {
		if l.logger != nil {
			l.logger.Warn("login failure counter unavailable", zap.Error(err))
		}
		return true
	}
	return n < l.maxFailures
}

// RecordFailure counts a failed login for username. Once failures reach the
// limit the username is throttled for the remainder of the window.
func (l *LoginLimiter) RecordFailure(ctx context.Context, username string) {
	n, err := l.counter.Incr(ctx, username, l.window)
	if err != nil {
		if l.logger != nil {
			l.logger.Warn("login failure counter unavailable", zap.Error(err))
		}
		return
	}
	if n >= l.maxFailures && l.logger != nil {
		l.logger.Info("login throttled", zap.String("username", username), zap.Int("failures", n))
	}
}

// RecordSuccess clears the failure count for username after a successful login.
func (l *LoginLimiter) RecordSuccess(ctx context.Context, username string) {
	if err := l.counter.Reset(ctx, username); err != nil && l.logger != nil {
		l.logger.Warn("login failure counter reset failed", zap.Error(err))
	}
}
