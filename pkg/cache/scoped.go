package cache

// ScopedKeyer wraps a Keyer with a prefix for namespace isolation.
// This is useful when several map sets share one Redis instance and must
// not see each other's entries.
//
// Example usage:
//
//	// Keys for the warehouse fleet
//	keyer := NewScopedKeyer(NewDefaultKeyer(), "fleet:warehouse:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// VisibilityKey generates a prefixed key for visibility map caching.
func (k *ScopedKeyer) VisibilityKey(mapHash string, opts VisibilityKeyOpts) string {
	return k.prefix + k.inner.VisibilityKey(mapHash, opts)
}

// GraphKey generates a prefixed key for patrol graph caching.
func (k *ScopedKeyer) GraphKey(mapHash string, opts GraphKeyOpts) string {
	return k.prefix + k.inner.GraphKey(mapHash, opts)
}

// Prefixes returns the inner keyer's prefixes under this keyer's prefix.
func (k *ScopedKeyer) Prefixes() []string {
	inner := k.inner.Prefixes()
	out := make([]string, len(inner))
	for i, p := range inner {
		out[i] = k.prefix + p
	}
	return out
}
