package routing

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// localLocker serializes routing per ticket within a single process.
type localLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLocalLocker returns an in-process TicketLocker. Suitable for a single
// instance deployment or as a fallback when Redis is not configured.
func NewLocalLocker() TicketLocker {
	return &localLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *localLocker) Lock(_ context.Context, ticketID string) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[ticketID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[ticketID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock, nil
}

// redisLocker takes a per-ticket lease via SET NX so concurrent routing of
// the same ticket across instances is serialized. The lease expires on its
// own if the holder dies.
type redisLocker struct {
	client    *redis.Client
	ttl       time.Duration
	retryWait time.Duration
}

// NewRedisLocker returns a TicketLocker backed by Redis leases.
func NewRedisLocker(client *redis.Client, ttl time.Duration) TicketLocker {
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	return &redisLocker{client: client, ttl: ttl, retryWait: 50 * time.Millisecond}
}

func (l *redisLocker) Lock(ctx context.Context, ticketID string) (func(), error) {
	key := "routing:lock:" + ticketID
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retryWait):
		}
	}

	release := func() {
		// Only delete the lease we own; an expired lease may have been
		// re-acquired by another routing pass.
		const script = `if redis.call("GET", KEYS[1]) == ARGV[1] then return redis.call("DEL", KEYS[1]) else return 0 end`
		_ = l.client.Eval(context.Background(), script, []string{key}, token).Err()
	}
	return release, nil
}
