package ratelimiter

import (
	"context"
	"time"
)

// Limiter answers whether a request from the given source may proceed. A
// denied request carries how long the caller should wait before retrying.
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
	Close() error
}
