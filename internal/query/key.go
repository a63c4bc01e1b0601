package query

import "strings"

// Key identifies a cache entry: an entity name plus positional parameters.
// A key with fewer params acts as a prefix of every longer key of the same entity.
type Key struct {
	Entity string
	Params []string
}

// NewKey builds a key.
func NewKey(entity string, params ...string) Key {
	return Key{Entity: entity, Params: params}
}

// String returns a stable encoding usable as a map key.
func (k Key) String() string {
	if len(k.Params) == 0 {
		return k.Entity
	}
	return k.Entity + "\x1f" + strings.Join(k.Params, "\x1f")
}

// Matches reports whether k falls under prefix.
func (k Key) Matches(prefix Key) bool {
	if k.Entity != prefix.Entity || len(prefix.Params) > len(k.Params) {
		return false
	}
	for i, p := range prefix.Params {
		if k.Params[i] != p {
			return false
		}
	}
	return true
}
