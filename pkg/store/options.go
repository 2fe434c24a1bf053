package store

import (
	"log/slog"

	"memkv/pkg/metrics"
)

type Option func(*Store)

// WithHasher replaces the default xxhash key hash.
func WithHasher(h Hasher) Option {
	return func(s *Store) {
		s.hash = h
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.log = l
	}
}

func WithMetrics(c metrics.Collector) Option {
	return func(s *Store) {
		s.metrics = c
	}
}

// FetchOption decides what Fetch returns for an absent key.
type FetchOption func(*fetchOptions)

type fetchOptions struct {
	value      []byte
	hasDefault bool
	fallback   func(key []byte) []byte
}

// WithDefault makes Fetch return value for an absent key. It wins over
// WithFallback.
func WithDefault(value []byte) FetchOption {
	return func(o *fetchOptions) {
		o.value = value
		o.hasDefault = true
	}
}

// WithFallback makes Fetch return fn(key) for an absent key.
func WithFallback(fn func(key []byte) []byte) FetchOption {
	return func(o *fetchOptions) {
		o.fallback = fn
	}
}
