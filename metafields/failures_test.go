package metafields_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-metafields/cache"
	"github.com/goliatone/go-metafields/keys"
	"github.com/goliatone/go-metafields/metafields"
	"github.com/goliatone/go-metafields/pkg/testsupport"
	"github.com/goliatone/go-metafields/store"
	"github.com/goliatone/go-metafields/values"
)

var ownerOne = store.Owner{Type: "Person", ID: "1"}

func mustSerialize(t *testing.T, h *testsupport.Harness, v any) string {
	t.Helper()
	s, err := h.Resolver.Make(values.DefaultID)
	require.NoError(t, err)
	out, err := s.Serialize(v)
	require.NoError(t, err)
	return out
}

// failingRecords returns err from every call.
type failingRecords struct {
	err error
}

func (f failingRecords) Find(context.Context, store.Owner, string) (*store.Record, error) {
	return nil, f.err
}

func (f failingRecords) FindAll(context.Context, store.Owner) ([]store.Record, error) {
	return nil, f.err
}

func (f failingRecords) Count(context.Context, store.Owner) (int, error) {
	return 0, f.err
}

func (f failingRecords) Upsert(context.Context, store.Owner, string, string) (*store.Record, error) {
	return nil, f.err
}

func (f failingRecords) Delete(context.Context, store.Owner, string) (bool, error) {
	return false, f.err
}

func (f failingRecords) DeleteAll(context.Context, store.Owner) ([]string, error) {
	return nil, f.err
}

// failingCache serves reads from the loader and fails every Forget.
type failingCache struct {
	err error
}

func (f failingCache) Remember(ctx context.Context, _ string, _ time.Duration, fetch func(context.Context) (any, error)) (any, error) {
	return fetch(ctx)
}

func (f failingCache) Forget(context.Context, string) error {
	return f.err
}

func (f failingCache) Has(context.Context, string) (bool, error) {
	return false, f.err
}

func newEngine(records metafields.RecordStore, cacheStore cache.Store) *metafields.Engine {
	coordinator := cache.NewCoordinator(cacheStore, cache.Settings{Enabled: true, Prefix: "Metafields"})
	return metafields.New(records, coordinator,
		values.NewResolver(values.StandardID, nil),
		keys.NewNormalizer("", nil),
	).SetModel(&testsupport.Person{ID: 1})
}

func TestEngine_RecordStoreErrorsPropagate(t *testing.T) {
	boom := errors.New("connection refused")
	engine := newEngine(failingRecords{err: boom}, nil)
	ctx := context.Background()

	_, err := engine.Get(ctx, keys.Raw("foo"), nil)
	assert.Same(t, boom, err)
	_, err = engine.GetAll(ctx)
	assert.Same(t, boom, err)
	_, err = engine.Has(ctx)
	assert.Same(t, boom, err)
	_, err = engine.Set(ctx, keys.Raw("foo"), "bar")
	assert.Same(t, boom, err)
	_, err = engine.Delete(ctx, keys.Raw("foo"))
	assert.Same(t, boom, err)
	_, err = engine.DeleteAll(ctx)
	assert.Same(t, boom, err)
}

func TestEngine_CacheStoreErrorsPropagate(t *testing.T) {
	boom := errors.New("cache unavailable")
	h := newHarness(t)
	engine := newEngine(h.Records, failingCache{err: boom})
	ctx := context.Background()

	// the write lands before invalidation fails
	_, err := engine.Set(ctx, keys.Raw("foo"), "bar")
	assert.Same(t, boom, err)
	n, err := h.Records.Count(ctx, ownerOne)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	v, err := engine.Get(ctx, keys.Raw("foo"), nil)
	require.NoError(t, err)
	assert.Equal(t, "bar", v)

	_, err = engine.Delete(ctx, keys.Raw("foo"))
	assert.Same(t, boom, err)
	_, err = engine.IsCached(ctx, keys.Raw("foo"))
	assert.Same(t, boom, err)
	assert.Same(t, boom, engine.ClearAllCache(ctx))
}

func TestEngine_NoCacheStore(t *testing.T) {
	h := newHarness(t)
	engine := newEngine(h.Records, nil)
	ctx := context.Background()

	_, err := engine.Set(ctx, keys.Raw("foo"), "bar")
	require.NoError(t, err)
	v, err := engine.Get(ctx, keys.Raw("foo"), nil)
	require.NoError(t, err)
	assert.Equal(t, "bar", v)

	ok, err := engine.IsCached(ctx, keys.Raw("foo"))
	require.NoError(t, err)
	assert.False(t, ok)
}
