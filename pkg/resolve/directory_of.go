package resolve

import (
	"context"
	"log/slog"

	slogcontext "github.com/veqryn/slog-context"

	"execroot/pkg/reactor"
)

// DirectoryOf finds the base directory of one project in the reactor or its
// ancestor chain
type DirectoryOf struct {
	Reactor *reactor.Reactor
	Ref     reactor.Ref
}

// Key returns the cache key for the requested project
func (d *DirectoryOf) Key() Key {
	return DirectoryOfKey(d.Ref)
}

// Label returns the log label
func (d *DirectoryOf) Label() string {
	return "Directory of " + d.Ref.String()
}

// Resolve walks the reactor and returns the base directory of the first
// matching project. A match without a base directory ends the search.
func (d *DirectoryOf) Resolve(ctx context.Context) (string, error) {
	if err := d.Ref.Validate(); err != nil {
		return "", err
	}

	match, ok := d.Reactor.Find(d.Ref)
	if !ok || !match.HasBaseDir() {
		return "", &NotFoundError{Ref: d.Ref}
	}

	dir, err := normalizePath(match.BaseDir(), false)
	if err != nil {
		return "", err
	}

	slogcontext.FromCtx(ctx).Log(ctx, slog.LevelDebug, "found project",
		slog.String("project", d.Ref.String()),
		slog.String("dir", dir),
	)
	return dir, nil
}
