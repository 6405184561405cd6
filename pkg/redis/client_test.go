package redis

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/annetom/pizzaria-checkout/pkg/config"
	"github.com/redis/go-redis/v9"
)

func TestSetGetAndMiss(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	key := client.SessionKey("sess-1", "cart_items")
	if err := client.Set(ctx, key, "[]", time.Hour); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	got, err := client.Get(ctx, key)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != "[]" {
		t.Fatalf("unexpected value %q", got)
	}
	if mock.ttls[key] != time.Hour {
		t.Fatalf("expected ttl to be forwarded, got %v", mock.ttls[key])
	}

	if err := client.Del(ctx, key); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if _, err := client.Get(ctx, key); !IsMiss(err) {
		t.Fatalf("expected redis.Nil after delete, got %v", err)
	}
}

func TestSetNXOnlyOnce(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newMockCmdable()}
	key := client.IdempotencyKey("submit", "abc")

	first, err := client.SetNX(ctx, key, "1", time.Minute)
	if err != nil || !first {
		t.Fatalf("expected first SetNX to win, got %v err %v", first, err)
	}
	second, err := client.SetNX(ctx, key, "1", time.Minute)
	if err != nil || second {
		t.Fatalf("expected second SetNX to lose, got %v err %v", second, err)
	}
}

func TestUninitializedClientErrors(t *testing.T) {
	client := &Client{}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected ping on empty client to fail")
	}
	if _, err := client.Get(context.Background(), "k"); err == nil {
		t.Fatal("expected get on empty client to fail")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close on empty client should be a no-op, got %v", err)
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.IdempotencyKey("submit", "id"); got != "at:idempotency:submit:id" {
		t.Fatalf("unexpected idempotency key %s", got)
	}
	if got := client.SessionKey("sess", "checkout_draft"); got != "at:session:sess:checkout_draft" {
		t.Fatalf("unexpected session key %s", got)
	}
	if got := client.SessionKey("", "checkout_draft"); got != "at:session:checkout_draft" {
		t.Fatalf("empty parts should be skipped, got %s", got)
	}
	if got := client.LockKey("maintenance-worker"); got != "at:lock:maintenance-worker" {
		t.Fatalf("unexpected lock key %s", got)
	}

	staging := &Client{prefix: "at-staging"}
	if got := staging.SessionKey("sess", "cart_items"); got != "at-staging:session:sess:cart_items" {
		t.Fatalf("expected configured prefix, got %s", got)
	}
}

func TestReleaseOwned(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock, scripts: &mockScripter{mock: mock}}
	key := client.LockKey("maintenance-worker")

	if _, err := client.SetNX(ctx, key, "owner-a", time.Minute); err != nil {
		t.Fatalf("setnx: %v", err)
	}
	released, err := client.ReleaseOwned(ctx, key, "owner-b")
	if err != nil || released {
		t.Fatalf("foreign owner must not release, got %v err %v", released, err)
	}
	released, err = client.ReleaseOwned(ctx, key, "owner-a")
	if err != nil || !released {
		t.Fatalf("owner should release, got %v err %v", released, err)
	}
	if _, err := client.Get(ctx, key); !IsMiss(err) {
		t.Fatalf("expected lock key gone, got %v", err)
	}

	if _, err := (&Client{}).ReleaseOwned(ctx, key, "x"); err == nil {
		t.Fatal("expected release on empty client to fail")
	}
}

func TestOptionsFromConfig(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected missing address to fail")
	}

	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://localhost:6379/2", PoolSize: 7, DialTimeout: time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.DB != 2 || opts.PoolSize != 7 || opts.DialTimeout != time.Second {
		t.Fatalf("unexpected options %+v", opts)
	}

	opts, err = optionsFromConfig(config.RedisConfig{Address: "cache:6379", DB: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "cache:6379" || opts.DB != 3 {
		t.Fatalf("unexpected options %+v", opts)
	}
}

type mockCmdable struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data: make(map[string]string),
		ttls: make(map[string]time.Duration),
	}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

// mockScripter evaluates the owner-release script against mockCmdable.
type mockScripter struct {
	mock *mockCmdable
}

func (s *mockScripter) release(keys []string, args []any) *redis.Cmd {
	s.mock.mu.Lock()
	defer s.mock.mu.Unlock()
	if v, ok := s.mock.data[keys[0]]; ok && v == fmt.Sprint(args[0]) {
		delete(s.mock.data, keys[0])
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(int64(0), nil)
}

func (s *mockScripter) Eval(_ context.Context, _ string, keys []string, args ...any) *redis.Cmd {
	return s.release(keys, args)
}

func (s *mockScripter) EvalSha(_ context.Context, _ string, keys []string, args ...any) *redis.Cmd {
	return s.release(keys, args)
}

func (s *mockScripter) EvalRO(_ context.Context, _ string, keys []string, args ...any) *redis.Cmd {
	return s.release(keys, args)
}

func (s *mockScripter) EvalShaRO(_ context.Context, _ string, keys []string, args ...any) *redis.Cmd {
	return s.release(keys, args)
}

func (s *mockScripter) ScriptExists(context.Context, ...string) *redis.BoolSliceCmd {
	return redis.NewBoolSliceResult([]bool{true}, nil)
}

func (s *mockScripter) ScriptLoad(context.Context, string) *redis.StringCmd {
	return redis.NewStringResult("sha", nil)
}
