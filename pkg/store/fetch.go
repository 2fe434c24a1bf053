package store

import (
	"bytes"
	"fmt"

	"memkv/pkg/dberrors"
)

// Fetch returns a copy of the value stored under key. An absent key yields
// the WithDefault value, then the WithFallback result, and otherwise an error
// wrapping dberrors.ErrNotFound.
func (s *Store) Fetch(key []byte, opts ...FetchOption) ([]byte, error) {
	if value, ok := s.lookup(key); ok {
		return bytes.Clone(value), nil
	}

	var o fetchOptions
	for _, opt := range opts {
		opt(&o)
	}

	switch {
	case o.hasDefault:
		return o.value, nil
	case o.fallback != nil:
		return o.fallback(key), nil
	}
	return nil, fmt.Errorf("%w: key %q", dberrors.ErrNotFound, key)
}

func (s *Store) SetString(key, value string) error {
	return s.Set([]byte(key), []byte(value))
}

func (s *Store) GetString(key string) (string, bool) {
	value, ok := s.lookup([]byte(key))
	return string(value), ok
}
