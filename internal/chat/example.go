package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ExampleKey names the single transient example-problem value.
const ExampleKey = "exampleProblem"

// ExampleStore holds one example problem handed from the dashboard to the
// solver. Take returns it at most once.
type ExampleStore interface {
	Put(ctx context.Context, problem string) error
	Take(ctx context.Context) (string, bool, error)
}

// MemoryExampleStore keeps the value in process.
type MemoryExampleStore struct {
	mu      sync.Mutex
	problem string
	set     bool
}

func NewMemoryExampleStore() *MemoryExampleStore { return &MemoryExampleStore{} }

func (m *MemoryExampleStore) Put(_ context.Context, problem string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.problem, m.set = problem, true
	return nil
}

func (m *MemoryExampleStore) Take(_ context.Context) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.set {
		return "", false, nil
	}
	p := m.problem
	m.problem, m.set = "", false
	return p, true, nil
}

// RedisExampleStore shares the value across server instances.
type RedisExampleStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	log    *zap.Logger
}

// NewRedisExampleStore connects to addr and verifies it with PING.
func NewRedisExampleStore(ctx context.Context, addr string, ttl time.Duration, log *zap.Logger) (*RedisExampleStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	log.Info("Redis example store initialized", zap.String("addr", addr))
	return &RedisExampleStore{client: client, key: ExampleKey, ttl: ttl, log: log}, nil
}

func (r *RedisExampleStore) Close() error { return r.client.Close() }

func (r *RedisExampleStore) Put(ctx context.Context, problem string) error {
	if err := r.client.Set(ctx, r.key, problem, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set example problem: %w", err)
	}
	r.log.Debug("Example problem stored", zap.Int("bytes", len(problem)))
	return nil
}

// Take reads and deletes the value in one round trip.
func (r *RedisExampleStore) Take(ctx context.Context) (string, bool, error) {
	p, err := r.client.GetDel(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to take example problem: %w", err)
	}
	return p, true, nil
}
