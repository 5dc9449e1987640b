package cacheinfra

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testConfig() Config {
	return Config{
		Capacity:           100,
		NumShards:          2,
		TTL:                1 * time.Hour,
		EvictionPercentage: 10,
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Capacity != 10000 {
		t.Errorf("expected Capacity to be 10000, got %d", cfg.Capacity)
	}

	if cfg.NumShards != 256 {
		t.Errorf("expected NumShards to be 256, got %d", cfg.NumShards)
	}

	if cfg.TTL != 30*24*time.Hour {
		t.Errorf("expected TTL to be 30 days, got %v", cfg.TTL)
	}

	if cfg.EvictionPercentage != 10 {
		t.Errorf("expected EvictionPercentage to be 10, got %d", cfg.EvictionPercentage)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("expected default config to be valid, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		errorMsg string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "zero capacity", mutate: func(c *Config) { c.Capacity = 0 }, errorMsg: "config error in field Capacity: must be greater than 0"},
		{name: "zero shards", mutate: func(c *Config) { c.NumShards = 0 }, errorMsg: "config error in field NumShards: must be greater than 0"},
		{name: "zero TTL", mutate: func(c *Config) { c.TTL = 0 }, errorMsg: "config error in field TTL: must be greater than 0"},
		{name: "eviction too high", mutate: func(c *Config) { c.EvictionPercentage = 101 }, errorMsg: "config error in field EvictionPercentage: must be between 1 and 100"},
		{name: "negative eviction interval", mutate: func(c *Config) { c.EvictionInterval = -time.Second }, errorMsg: "config error in field EvictionInterval: must be non-negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errorMsg == "" {
				if err != nil {
					t.Errorf("expected no error but got: %v", err)
				}
				return
			}
			if err == nil || err.Error() != tt.errorMsg {
				t.Errorf("expected error message %q, got %v", tt.errorMsg, err)
			}
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Errorf("expected *ConfigError, got %T", err)
			}
		})
	}
}

func TestConfig_ToSturdycOptions(t *testing.T) {
	cfg := testConfig()
	if got := len(cfg.ToSturdycOptions()); got != 0 {
		t.Errorf("expected no options without eviction interval, got %d", got)
	}
	cfg.EvictionInterval = time.Minute
	if got := len(cfg.ToSturdycOptions()); got != 1 {
		t.Errorf("expected 1 option with eviction interval, got %d", got)
	}
}

func TestNewSturdycStore_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Capacity = 0
	store, err := NewSturdycStore(cfg)
	if err == nil {
		t.Fatal("expected error but got none")
	}
	if store != nil {
		t.Error("expected store to be nil when error occurs")
	}
}

func TestSturdycStore_Remember(t *testing.T) {
	store, err := NewSturdycStore(testConfig())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	ctx := context.Background()

	calls := 0
	fetch := func(ctx context.Context) (any, error) {
		calls++
		return map[string]any{"foo": "bar"}, nil
	}

	first, err := store.Remember(ctx, "k", 0, fetch)
	if err != nil {
		t.Fatalf("expected no error but got: %v", err)
	}
	second, err := store.Remember(ctx, "k", 0, fetch)
	if err != nil {
		t.Fatalf("expected no error but got: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected fetch to run once, ran %d times", calls)
	}
	if first.(map[string]any)["foo"] != second.(map[string]any)["foo"] {
		t.Errorf("expected cached value, got %v and %v", first, second)
	}

	ok, _ := store.Has(ctx, "k")
	if !ok {
		t.Error("expected Has to report the cached key")
	}
}

func TestSturdycStore_RememberNilValue(t *testing.T) {
	store, _ := NewSturdycStore(testConfig())
	ctx := context.Background()

	calls := 0
	fetch := func(ctx context.Context) (any, error) {
		calls++
		return nil, nil
	}

	for i := 0; i < 3; i++ {
		v, err := store.Remember(ctx, "missing", 0, fetch)
		if err != nil || v != nil {
			t.Fatalf("expected nil value, got %v, %v", v, err)
		}
	}
	if calls != 1 {
		t.Errorf("expected a cached nil to prevent refetching, fetch ran %d times", calls)
	}
}

func TestSturdycStore_RememberError(t *testing.T) {
	store, _ := NewSturdycStore(testConfig())
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := store.Remember(ctx, "k", 0, func(ctx context.Context) (any, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("expected fetch error to propagate, got %v", err)
	}
	if ok, _ := store.Has(ctx, "k"); ok {
		t.Error("expected failed fetch not to be cached")
	}
}

func TestSturdycStore_PerEntryTTL(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	store, err := NewSturdycStore(testConfig(), WithClock(clock.Now))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	ctx := context.Background()

	calls := 0
	fetch := func(ctx context.Context) (any, error) {
		calls++
		return calls, nil
	}

	v, _ := store.Remember(ctx, "short", time.Minute, fetch)
	if v != 1 {
		t.Fatalf("expected first value 1, got %v", v)
	}

	clock.Advance(30 * time.Second)
	v, _ = store.Remember(ctx, "short", time.Minute, fetch)
	if v != 1 {
		t.Errorf("expected cached value before expiry, got %v", v)
	}

	clock.Advance(31 * time.Second)
	if ok, _ := store.Has(ctx, "short"); ok {
		t.Error("expected Has to report expired entry as absent")
	}
	v, _ = store.Remember(ctx, "short", time.Minute, fetch)
	if v != 2 {
		t.Errorf("expected refetch after expiry, got %v", v)
	}

	store.Remember(ctx, "forever", 0, fetch)
	clock.Advance(50 * time.Minute)
	if ok, _ := store.Has(ctx, "forever"); !ok {
		t.Error("expected zero TTL entry to outlive per-entry deadlines")
	}
}

func TestSturdycStore_Forget(t *testing.T) {
	store, _ := NewSturdycStore(testConfig())
	ctx := context.Background()

	store.Remember(ctx, "k", 0, func(ctx context.Context) (any, error) { return "v", nil })

	if err := store.Forget(ctx, "k"); err != nil {
		t.Errorf("expected no error from Forget but got: %v", err)
	}
	if ok, _ := store.Has(ctx, "k"); ok {
		t.Error("expected key to be gone after Forget")
	}

	t.Run("forget missing key returns no error", func(t *testing.T) {
		if err := store.Forget(ctx, "never-set"); err != nil {
			t.Errorf("expected no error but got: %v", err)
		}
	})

	fetched := false
	store.Remember(ctx, "k", 0, func(ctx context.Context) (any, error) {
		fetched = true
		return "v2", nil
	})
	if !fetched {
		t.Error("expected fetch after Forget, indicating cache miss")
	}
}

func TestSturdycStore_ConcurrentMissesShareFetch(t *testing.T) {
	store, err := NewSturdycStore(testConfig())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	ctx := context.Background()

	var mu sync.Mutex
	calls := 0
	started := make(chan struct{})
	release := make(chan struct{})
	fetch := func(ctx context.Context) (any, error) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			close(started)
		}
		<-release
		return "v", nil
	}

	const workers = 10
	var wg sync.WaitGroup
	results := make(chan any, workers)
	remember := func() {
		defer wg.Done()
		v, err := store.Remember(ctx, "k", 0, fetch)
		if err != nil {
			t.Errorf("Remember() unexpected error: %v", err)
		}
		results <- v
	}

	wg.Add(1)
	go remember()
	<-started

	wg.Add(workers - 1)
	for i := 1; i < workers; i++ {
		go remember()
	}
	// let the other callers join the in-flight fetch
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(results)

	for v := range results {
		if v != "v" {
			t.Errorf("Remember() = %v, want v", v)
		}
	}
	if calls != 1 {
		t.Errorf("expected concurrent misses to share one fetch, fetch ran %d times", calls)
	}
}
