package testsupport

import (
	"context"
	"testing"

	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/goliatone/go-metafields/cache"
	"github.com/goliatone/go-metafields/config"
	"github.com/goliatone/go-metafields/metafields"
	"github.com/goliatone/go-metafields/store"
	"github.com/goliatone/go-metafields/values"
)

// Person is a sample entity with metafields.
type Person struct {
	metafields.Base
	ID   int64
	Name string
}

// MorphType implements metafields.Model.
func (p *Person) MorphType() string { return metafields.MorphTypeOf(p) }

// MorphID implements metafields.Model. Unsaved people have no identifier.
func (p *Person) MorphID() any {
	if p.ID == 0 {
		return nil
	}
	return p.ID
}

// Address is a sample user type for allow-list tests.
type Address struct {
	Street string
	City   string
	Zip    string
}

// Color is a sample string backed key enum.
type Color string

// Key enum values.
const (
	FavoriteColor Color = "favorite_color"
	EyeColor      Color = "eye_color"
)

// MetafieldKey implements keys.Enum.
func (c Color) MetafieldKey() any { return string(c) }

// Level is a sample integer backed enum; it never yields a valid key.
type Level int

// MetafieldKey implements keys.Enum.
func (l Level) MetafieldKey() any { return int(l) }

// NewSQLiteDB opens an in-memory sqlite database closed at the end of the test.
func NewSQLiteDB(t *testing.T) *bun.DB {
	t.Helper()

	db, err := store.Open(store.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// NewStore returns a record store over a fresh in-memory database with
// its table created.
func NewStore(t *testing.T, opts store.Options) *store.Store {
	t.Helper()

	s := store.New(NewSQLiteDB(t), opts)
	if err := s.CreateTable(context.Background()); err != nil {
		t.Fatalf("failed to create metafields table: %v", err)
	}
	return s
}

// Harness groups an engine with the parts it was built from so tests can
// inspect the cache and the records directly.
type Harness struct {
	Config      config.Config
	Records     *store.Store
	Cache       cache.Store
	Coordinator *cache.Coordinator
	Resolver    *values.Resolver
	Logger      *zap.Logger
}

// NewHarness builds every component from cfg over in-memory sqlite and
// sturdyc stores. A nil logger discards output.
func NewHarness(t *testing.T, cfg config.Config, logger *zap.Logger) *Harness {
	t.Helper()

	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("invalid config: %v", err)
	}

	opts := cfg.StoreOptions()
	opts.Logger = logger
	records := NewStore(t, opts)

	cacheStore, err := cache.NewStore(cache.DefaultConfig(), logger)
	if err != nil {
		t.Fatalf("failed to create cache store: %v", err)
	}

	return &Harness{
		Config:      cfg,
		Records:     records,
		Cache:       cacheStore,
		Coordinator: cache.NewCoordinator(cacheStore, cfg.CacheSettings(), cache.WithLogger(logger)),
		Resolver:    values.NewResolver(cfg.DefaultSerializer, cfg.TypeRegistry()),
		Logger:      logger,
	}
}

// Engine returns a new engine bound to m.
func (h *Harness) Engine(m metafields.Model) *metafields.Engine {
	return metafields.New(h.Records, h.Coordinator, h.Resolver, h.Config.Normalizer(),
		metafields.WithLogger(h.Logger),
	).SetModel(m)
}
