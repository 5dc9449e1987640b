package metafields

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/goliatone/go-metafields/cache"
	"github.com/goliatone/go-metafields/keys"
	"github.com/goliatone/go-metafields/store"
	"github.com/goliatone/go-metafields/values"
)

// RecordStore persists metafield records. *store.Store implements it.
type RecordStore interface {
	Find(ctx context.Context, owner store.Owner, key string) (*store.Record, error)
	FindAll(ctx context.Context, owner store.Owner) ([]store.Record, error)
	Count(ctx context.Context, owner store.Owner) (int, error)
	Upsert(ctx context.Context, owner store.Owner, key, value string) (*store.Record, error)
	Delete(ctx context.Context, owner store.Owner, key string) (bool, error)
	DeleteAll(ctx context.Context, owner store.Owner) ([]string, error)
}

var _ RecordStore = (*store.Store)(nil)

// Engine reads and writes the metafields of one bound Model, keeping the
// cache coherent with every write. Engines are cheap and meant to be used
// from a single goroutine; build one per request or per entity.
type Engine struct {
	records  RecordStore
	cache    *cache.Coordinator
	resolver *values.Resolver
	keys     *keys.Normalizer
	logger   *zap.Logger

	model Model
}

// Option customises an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for debug output.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an unbound engine.
func New(records RecordStore, coordinator *cache.Coordinator, resolver *values.Resolver, normalizer *keys.Normalizer, opts ...Option) *Engine {
	e := &Engine{
		records:  records,
		cache:    coordinator,
		resolver: resolver,
		keys:     normalizer,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetModel binds the engine to m.
func (e *Engine) SetModel(m Model) *Engine {
	e.model = m
	return e
}

// UnsetModel returns the engine to the unbound state.
func (e *Engine) UnsetModel() *Engine {
	e.model = nil
	return e
}

// Model returns the bound model, or nil.
func (e *Engine) Model() Model {
	return e.model
}

// Get returns the value stored under key, or def when there is no record.
// A record holding a nil value returns nil, not def.
func (e *Engine) Get(ctx context.Context, key keys.Input, def any) (any, error) {
	m, err := e.bound("get")
	if err != nil {
		return nil, err
	}
	k, err := e.keys.Normalize(key)
	if err != nil {
		return nil, err
	}

	v, err := e.cache.ReadThrough(ctx, entityOf(m), &k, func(ctx context.Context) (any, error) {
		return e.load(ctx, m, k)
	})
	if err != nil {
		return nil, err
	}
	stored, err := payloadOf(v)
	if err != nil {
		return nil, err
	}
	raw, found := stored[k.String()]
	if !found {
		return def, nil
	}
	return e.decode(m, k, raw)
}

// GetMany returns the values of keys in order, nil for missing ones. All
// keys are validated before anything is read.
func (e *Engine) GetMany(ctx context.Context, inputs ...keys.Input) ([]any, error) {
	if _, err := e.bound("getMany"); err != nil {
		return nil, err
	}
	ks, err := e.keys.NormalizeAll(inputs...)
	if err != nil {
		return nil, err
	}

	out := make([]any, 0, len(ks))
	for _, k := range ks {
		v, err := e.Get(ctx, k, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// GetAll returns every metafield of the model keyed by its canonical key.
func (e *Engine) GetAll(ctx context.Context) (map[string]any, error) {
	m, err := e.bound("getAll")
	if err != nil {
		return nil, err
	}

	all := e.keys.AllFields()
	v, err := e.cache.ReadThrough(ctx, entityOf(m), &all, func(ctx context.Context) (any, error) {
		return e.loadAll(ctx, m)
	})
	if err != nil {
		return nil, err
	}

	stored, err := payloadOf(v)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(stored))
	for raw, val := range stored {
		k, err := e.keys.NormalizeUnchecked(keys.Raw(raw))
		if err != nil {
			return nil, err
		}
		if out[raw], err = e.decode(m, k, val); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// GetRecord returns the stored record for key without touching the cache.
func (e *Engine) GetRecord(ctx context.Context, key keys.Input) (*store.Record, error) {
	m, err := e.bound("getRecord")
	if err != nil {
		return nil, err
	}
	k, err := e.keys.Normalize(key)
	if err != nil {
		return nil, err
	}
	return e.records.Find(ctx, ownerOf(m), k.String())
}

// Has reports whether the model has at least one metafield.
func (e *Engine) Has(ctx context.Context) (bool, error) {
	m, err := e.bound("has")
	if err != nil {
		return false, err
	}
	n, err := e.records.Count(ctx, ownerOf(m))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Set stores value under key, creating or overwriting the record, and
// drops the cached entries for key and for the whole model. It returns
// value unchanged.
func (e *Engine) Set(ctx context.Context, key keys.Input, value any) (any, error) {
	m, err := e.bound("set")
	if err != nil {
		return nil, err
	}
	k, err := e.keys.Normalize(key)
	if err != nil {
		return nil, err
	}

	serializer, err := e.resolver.Resolve(m.Metafields(), k)
	if err != nil {
		return nil, err
	}
	serialized, err := serializer.Serialize(value)
	if err != nil {
		return nil, err
	}

	if _, err := e.records.Upsert(ctx, ownerOf(m), k.String(), serialized); err != nil {
		return nil, err
	}
	e.logger.Debug("metafield set", zap.String("type", m.MorphType()), zap.String("key", k.String()))

	if err := e.invalidate(ctx, m, k); err != nil {
		return nil, err
	}
	return value, nil
}

// Delete removes the record for key. It reports false, without error,
// when there was nothing to delete.
func (e *Engine) Delete(ctx context.Context, key keys.Input) (bool, error) {
	m, err := e.bound("delete")
	if err != nil {
		return false, err
	}
	k, err := e.keys.Normalize(key)
	if err != nil {
		return false, err
	}

	deleted, err := e.records.Delete(ctx, ownerOf(m), k.String())
	if err != nil {
		return false, err
	}
	e.logger.Debug("metafield delete", zap.String("type", m.MorphType()), zap.String("key", k.String()), zap.Bool("deleted", deleted))

	// entries can outlive their record when it was removed elsewhere
	if err := e.invalidate(ctx, m, k); err != nil {
		return false, err
	}
	return deleted, nil
}

// DeleteAll removes every metafield of the model and returns how many
// records were deleted.
func (e *Engine) DeleteAll(ctx context.Context) (int, error) {
	m, err := e.bound("deleteAll")
	if err != nil {
		return 0, err
	}

	deleted, err := e.records.DeleteAll(ctx, ownerOf(m))
	if err != nil {
		return 0, err
	}

	entity := entityOf(m)
	for _, raw := range deleted {
		k, err := e.keys.NormalizeUnchecked(keys.Raw(raw))
		if err != nil {
			return 0, err
		}
		if err := e.cache.Invalidate(ctx, entity, &k); err != nil {
			return 0, err
		}
	}
	all := e.keys.AllFields()
	if err := e.cache.Invalidate(ctx, entity, &all); err != nil {
		return 0, err
	}

	e.logger.Debug("metafields deleted", zap.String("type", m.MorphType()), zap.Int("count", len(deleted)))
	return len(deleted), nil
}

// MapSerializer binds key to the serializer named id on the model's
// Fields. A key can be bound once.
func (e *Engine) MapSerializer(key keys.Input, id string) error {
	m, err := e.bound("mapSerializer")
	if err != nil {
		return err
	}
	k, err := e.keys.Normalize(key)
	if err != nil {
		return err
	}
	if !e.resolver.IsValidSerializer(id) {
		return &InvalidSerializerError{ID: id, Reason: "not registered or does not implement Serializer"}
	}
	fields := m.Metafields()
	if fields == nil {
		return &ModelNotSetError{Op: "mapSerializer"}
	}
	return fields.bind(k, id)
}

// ClearCache drops the cached entries of keys.
func (e *Engine) ClearCache(ctx context.Context, inputs ...keys.Input) error {
	m, err := e.bound("clearCache")
	if err != nil {
		return err
	}
	ks, err := e.keys.NormalizeAll(inputs...)
	if err != nil {
		return err
	}
	entity := entityOf(m)
	for i := range ks {
		if err := e.cache.Invalidate(ctx, entity, &ks[i]); err != nil {
			return err
		}
	}
	return nil
}

// ClearAllCache drops the cached GetAll result.
func (e *Engine) ClearAllCache(ctx context.Context) error {
	m, err := e.bound("clearAllCache")
	if err != nil {
		return err
	}
	all := e.keys.AllFields()
	return e.cache.Invalidate(ctx, entityOf(m), &all)
}

// IsCached reports whether key currently has a cache entry.
func (e *Engine) IsCached(ctx context.Context, key keys.Input) (bool, error) {
	m, err := e.bound("isCached")
	if err != nil {
		return false, err
	}
	k, err := e.keys.Normalize(key)
	if err != nil {
		return false, err
	}
	return e.cache.Exists(ctx, entityOf(m), &k)
}

// IsAllCached reports whether the GetAll result is currently cached.
func (e *Engine) IsAllCached(ctx context.Context) (bool, error) {
	m, err := e.bound("isAllCached")
	if err != nil {
		return false, err
	}
	all := e.keys.AllFields()
	return e.cache.Exists(ctx, entityOf(m), &all)
}

// WithoutCache returns a read-only view whose reads bypass the cache.
func (e *Engine) WithoutCache() *NoCache {
	return &NoCache{engine: e}
}

func (e *Engine) bound(op string) (Model, error) {
	if e.model == nil {
		return nil, &ModelNotSetError{Op: op}
	}
	return e.model, nil
}

// load and loadAll produce the cache payload: stored strings by key, nil
// for a NULL column. A missing record loads as nil. Payloads are decoded on
// every read so no caller shares a cached instance, and remote stores only
// ever encode strings.
func (e *Engine) load(ctx context.Context, m Model, k keys.Key) (any, error) {
	rec, err := e.records.Find(ctx, ownerOf(m), k.String())
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	return map[string]any{rec.Key: storedValue(rec)}, nil
}

func (e *Engine) loadAll(ctx context.Context, m Model) (any, error) {
	recs, err := e.records.FindAll(ctx, ownerOf(m))
	if err != nil {
		return nil, err
	}

	out := make(map[string]any, len(recs))
	for i := range recs {
		out[recs[i].Key] = storedValue(&recs[i])
	}
	return out, nil
}

func (e *Engine) decode(m Model, k keys.Key, stored any) (any, error) {
	if stored == nil {
		return nil, nil
	}
	serialized, ok := stored.(string)
	if !ok {
		return nil, fmt.Errorf("metafields: cached value for %q is %T, want string", k.String(), stored)
	}
	serializer, err := e.resolver.Resolve(m.Metafields(), k)
	if err != nil {
		return nil, err
	}
	return serializer.Deserialize(serialized)
}

func (e *Engine) invalidate(ctx context.Context, m Model, k keys.Key) error {
	entity := entityOf(m)
	if err := e.cache.Invalidate(ctx, entity, &k); err != nil {
		return err
	}
	all := e.keys.AllFields()
	return e.cache.Invalidate(ctx, entity, &all)
}

func entityOf(m Model) cache.Entity {
	e := cache.Entity{Type: m.MorphType(), ID: m.MorphID()}
	if f := m.Metafields(); f != nil {
		e.Cache = f.Cache
		e.TTL = f.CacheTTL
	}
	return e
}

func storedValue(rec *store.Record) any {
	if rec.Value == nil {
		return nil
	}
	return *rec.Value
}

func payloadOf(v any) (map[string]any, error) {
	if v == nil {
		return nil, nil
	}
	stored, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("metafields: unexpected cache payload %T", v)
	}
	return stored, nil
}

func ownerOf(m Model) store.Owner {
	return store.Owner{Type: m.MorphType(), ID: cache.Identity(m.MorphID())}
}
