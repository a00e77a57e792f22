package authsession

import "context"

type snapshotContextKey struct{}

// WithSnapshot attaches s to ctx for request-scoped consumers such as
// templates and handlers behind the guard middleware.
func WithSnapshot(ctx context.Context, s Snapshot) context.Context {
	return context.WithValue(ctx, snapshotContextKey{}, s)
}

// SnapshotFromContext returns the snapshot attached by [WithSnapshot].
func SnapshotFromContext(ctx context.Context) (Snapshot, bool) {
	if ctx == nil {
		return Snapshot{}, false
	}
	s, ok := ctx.Value(snapshotContextKey{}).(Snapshot)
	return s, ok
}
