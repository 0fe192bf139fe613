package ratelimit

import (
	"context"
	"fmt"
	"time"
)

type Class string

const (
	ClassAdmin  Class = "admin"
	ClassLogin  Class = "login"
	ClassUpload Class = "upload"
	ClassPublic Class = "public"
)

type budget struct {
	limit  int64
	window time.Duration
}

var budgets = map[Class]budget{
	ClassAdmin:  {limit: 30, window: time.Minute},
	ClassLogin:  {limit: 5, window: time.Minute},
	ClassUpload: {limit: 10, window: time.Hour},
	ClassPublic: {limit: 60, window: time.Minute},
}

type Decision struct {
	Allowed    bool
	Limit      int64
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// CounterStore increments a fixed-window counter. The increment must be
// atomic per key: a read-then-write split undercounts under concurrency.
type CounterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int64, resetAt time.Time, err error)
}

type Limiter struct {
	store CounterStore
}

func NewLimiter(store CounterStore) *Limiter {
	return &Limiter{store: store}
}

// Check increments the counter for (clientID, class) and compares it to the
// class budget. Over budget yields a deny with a retry hint; a store failure
// fails open so a counter outage does not take the API down.
func (l *Limiter) Check(ctx context.Context, clientID string, class Class) Decision {
	b, ok := budgets[class]
	if !ok {
		b = budgets[ClassPublic]
	}
	key := fmt.Sprintf("%s:%s", class, clientID)

	count, resetAt, err := l.store.Incr(ctx, key, b.window)
	if err != nil {
		return Decision{Allowed: true, Limit: b.limit, Remaining: 0, ResetAt: time.Now().Add(b.window)}
	}

	d := Decision{Limit: b.limit, ResetAt: resetAt}
	if count > b.limit {
		d.Allowed = false
		d.Remaining = 0
		retry := time.Until(resetAt)
		if retry < 0 {
			retry = 0
		}
		d.RetryAfter = retry
		return d
	}
	d.Allowed = true
	d.Remaining = b.limit - count
	return d
}
