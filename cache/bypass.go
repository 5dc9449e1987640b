package cache

import "context"

type bypassContextKey struct{}

// WithoutCache marks ctx so the coordinator skips the cache store for every
// read made with it. The bypass ends with the context's scope.
func WithoutCache(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if IsBypassed(ctx) {
		return ctx
	}
	return context.WithValue(ctx, bypassContextKey{}, true)
}

// IsBypassed reports whether ctx was derived from WithoutCache.
func IsBypassed(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	bypassed, _ := ctx.Value(bypassContextKey{}).(bool)
	return bypassed
}
