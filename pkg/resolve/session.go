// Package resolve computes the directories published by the execroot goals:
// the execution root, the highest base directory of the reactor, and the
// base directory of a named project.
package resolve

import (
	"context"
	"log/slog"

	slogcontext "github.com/veqryn/slog-context"
)

// Resolver locates one directory
type Resolver interface {
	// Key returns the cache key for this resolution
	Key() Key

	// Label returns a human-readable name used when logging the result
	Label() string

	// Resolve computes the absolute directory
	Resolve(ctx context.Context) (string, error)
}

// Session shares one cache between every resolver of a build
type Session struct {
	cache *Cache
	quiet bool
}

// NewSession creates a session backed by cache. A nil cache gets a fresh one.
func NewSession(cache *Cache, quiet bool) *Session {
	if cache == nil {
		cache = NewCache()
	}
	return &Session{
		cache: cache,
		quiet: quiet,
	}
}

// Cache returns the session cache
func (s *Session) Cache() *Cache {
	return s.cache
}

// Resolve runs r at most once per key for the session and logs the result
func (s *Session) Resolve(ctx context.Context, r Resolver) (string, error) {
	logger := slogcontext.FromCtx(ctx).With(slog.String("key", string(r.Key())))

	dir, cached, err := s.cache.GetOrCompute(r.Key(), func() (string, error) {
		return r.Resolve(ctx)
	})
	if err != nil {
		return "", err
	}
	logger.Log(ctx, slog.LevelDebug, "resolved directory", slog.Bool("cached", cached))

	if !s.quiet {
		logger.Info(r.Label()+" set to: "+dir, slog.String("label", r.Label()), slog.String("dir", dir))
	}
	return dir, nil
}
