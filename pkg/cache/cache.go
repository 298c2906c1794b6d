// Package cache provides the key/value storage used to persist expensive
// intermediate results between builds.
//
// # Backends
//
//   - [FileCache]: one file per key under a directory (CLI default)
//   - [RedisCache]: shared cache for several processes or machines
//   - [NullCache]: stores nothing; used when caching is disabled and in tests
//
// All backends implement [Cache]. Backends that can drop every entry at
// once also implement [Clearer], and those that can drop the entries under
// a key prefix implement [PrefixClearer]. [Invalidate] picks the narrowest
// of the two for a [Keyer].
//
// # Keys
//
// A [Keyer] turns domain inputs (a map content hash plus the parameters that
// influence a result) into opaque cache keys. [DefaultKeyer] hashes the
// parameters so that any change produces a different key; [NewScopedKeyer]
// adds a namespace prefix.
package cache

import (
	"context"
	"time"
)

// Default time-to-live values for cached artifacts. Zero means no expiry.
const (
	TTLVisibility time.Duration = 0
	TTLGraph                    = 7 * 24 * time.Hour
)

// Cache is a byte-oriented key/value store.
type Cache interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases any resources held by the backend.
	Close() error
}

// Clearer is implemented by backends that can remove all of their entries.
type Clearer interface {
	Clear(ctx context.Context) error
}

// PrefixClearer is implemented by backends that can remove the entries whose
// key starts with a prefix.
type PrefixClearer interface {
	ClearPrefix(ctx context.Context, prefix string) error
}

// Invalidate removes the entries keyer can produce from backend. Backends
// without prefix support fall back to Clear, which also drops entries of
// other keyers. Backends that support neither are left untouched.
func Invalidate(ctx context.Context, backend Cache, keyer Keyer) error {
	if pc, ok := backend.(PrefixClearer); ok {
		for _, prefix := range keyer.Prefixes() {
			if err := pc.ClearPrefix(ctx, prefix); err != nil {
				return err
			}
		}
		return nil
	}
	if cl, ok := backend.(Clearer); ok {
		return cl.Clear(ctx)
	}
	return nil
}

// VisibilityKeyOpts holds the parameters that change a visibility result.
type VisibilityKeyOpts struct {
	MaxDistance float64 `json:"max_distance"`
	Algorithm   string  `json:"algorithm"`
}

// GraphKeyOpts holds the parameters that change a built patrol graph.
type GraphKeyOpts struct {
	VisibilityKeyOpts
	Connector  string `json:"connector"`
	K          int    `json:"k"`
	Partitions int    `json:"partitions"`
	WeightExpr string `json:"weight_expr"`
}

// Keyer generates cache keys.
type Keyer interface {
	// VisibilityKey returns the key for the visibility map of the given map
	// content hash.
	VisibilityKey(mapHash string, opts VisibilityKeyOpts) string
	// GraphKey returns the key for a full build result.
	GraphKey(mapHash string, opts GraphKeyOpts) string
	// Prefixes lists prefixes covering every key the keyer returns.
	Prefixes() []string
}

// DefaultKeyer hashes key parameters with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// VisibilityKey implements Keyer.
func (DefaultKeyer) VisibilityKey(mapHash string, opts VisibilityKeyOpts) string {
	return hashKey("visibility", mapHash, opts)
}

// GraphKey implements Keyer.
func (DefaultKeyer) GraphKey(mapHash string, opts GraphKeyOpts) string {
	return hashKey("graph", mapHash, opts)
}

// Prefixes implements Keyer.
func (DefaultKeyer) Prefixes() []string {
	return []string{"visibility:", "graph:"}
}
