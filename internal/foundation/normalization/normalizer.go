// Package normalization maps free-form configuration strings onto typed
// enumeration values. Lookup is case-insensitive and whitespace-tolerant.
package normalization

import (
	"fmt"
	"sort"
	"strings"
)

// Normalizer converts strings to values of a typed enumeration.
type Normalizer[T comparable] struct {
	values       map[string]T
	defaultValue T
	keys         []string
}

// NewNormalizer builds a normalizer from valid string->value pairs. Keys are
// canonicalized, so callers may list them in any case.
func NewNormalizer[T comparable](values map[string]T, defaultValue T) *Normalizer[T] {
	canonicalized := make(map[string]T, len(values))
	keys := make([]string, 0, len(values))
	for k, v := range values {
		key := canonical(k)
		canonicalized[key] = v
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return &Normalizer[T]{values: canonicalized, defaultValue: defaultValue, keys: keys}
}

// Normalize converts raw to its enum value, falling back to the default for
// unrecognized input.
func (n *Normalizer[T]) Normalize(raw string) T {
	if value, ok := n.values[canonical(raw)]; ok {
		return value
	}
	return n.defaultValue
}

// NormalizeWithError converts raw to its enum value, or reports the valid
// options when the input is unrecognized.
func (n *Normalizer[T]) NormalizeWithError(raw string) (T, error) {
	if value, ok := n.values[canonical(raw)]; ok {
		return value, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid value %q, valid options: %v", raw, n.keys)
}

// ValidKeys returns the canonical keys in sorted order.
func (n *Normalizer[T]) ValidKeys() []string {
	keys := make([]string, len(n.keys))
	copy(keys, n.keys)
	return keys
}

func canonical(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
