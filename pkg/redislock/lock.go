// Package redislock provides a lease-based mutual exclusion primitive on top
// of Redis SET NX PX. A lock is owned by whoever holds the token written at
// acquisition time, and release only succeeds for the owner.
package redislock

import (
	"context"
	"time"

	"github.com/f-lab-edu/stock-simulator/pkg/errors"
	"github.com/f-lab-edu/stock-simulator/pkg/redis"
	"github.com/google/uuid"
)

// releaseScript deletes the key only when the stored token matches, so a
// lease that expired and was re-acquired elsewhere is never released by the
// previous holder.
const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

const pollInterval = 50 * time.Millisecond

// Lock is a single named lease on a Redis key.
type Lock struct {
	client redis.Client
	key    string
	token  string
	lease  time.Duration
}

// Locker acquires leases against a shared Redis.
type Locker struct {
	client redis.Client
}

func NewLocker(client redis.Client) *Locker {
	return &Locker{client: client}
}

// Acquire tries to take the lease on key, polling until waitTimeout elapses.
// It returns (nil, false, nil) when the lock stayed busy for the whole wait
// window, and a non-nil error only on Redis failure.
func (l *Locker) Acquire(ctx context.Context, key string, waitTimeout, lease time.Duration) (*Lock, bool, error) {
	if lease <= 0 {
		return nil, false, errors.NewErrorDetails("lock lease must be positive", string(errors.GeneralBadRequestError), "lease")
	}

	token := uuid.New().String()
	deadline := time.Now().Add(waitTimeout)

	for {
		ok, err := l.client.SetNX(ctx, key, token, lease)
		if err != nil {
			return nil, false, err
		}
		if ok {
			return &Lock{client: l.client, key: key, token: token, lease: lease}, true, nil
		}

		if time.Now().After(deadline) {
			return nil, false, nil
		}

		select {
		case <-ctx.Done():
			return nil, false, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// Release gives the lease back. Releasing a lease that already expired is not
// an error; the compare-and-delete script simply does nothing.
func (lk *Lock) Release(ctx context.Context) error {
	_, err := lk.client.Eval(ctx, releaseScript, []string{lk.key}, lk.token)
	return err
}

// Key returns the Redis key guarding this lease.
func (lk *Lock) Key() string {
	return lk.key
}

// Token returns the owner token written at acquisition.
func (lk *Lock) Token() string {
	return lk.token
}
