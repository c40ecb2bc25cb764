package resolve

import (
	"context"
	"log/slog"
	"slices"

	slogcontext "github.com/veqryn/slog-context"

	"execroot/pkg/reactor"
)

// HighestBaseDir finds the top-most base directory shared by every project in
// the reactor, including ancestors found on the filesystem
type HighestBaseDir struct {
	Reactor *reactor.Reactor

	// Mode controls case sensitivity of path comparison
	Mode PathMode

	// Canonicalize resolves symlinks in every base directory
	Canonicalize bool

	// Strict verifies that every collected directory lies under the result.
	// Otherwise only the runner-up candidate is checked.
	Strict bool
}

// Key returns the highest directory cache key
func (h *HighestBaseDir) Key() Key {
	return HighestDirKey
}

// Label returns the log label
func (h *HighestBaseDir) Label() string {
	return "Highest basedir"
}

// Resolve collects the distinct base directories, sorts them and returns the
// smallest one, provided it is an ancestor of the others
func (h *HighestBaseDir) Resolve(ctx context.Context) (string, error) {
	logger := slogcontext.FromCtx(ctx)

	dirs, err := h.collect()
	if err != nil {
		return "", err
	}
	if len(dirs) == 0 {
		return "", &EmptyResultError{}
	}

	slices.SortStableFunc(dirs, h.Mode.Compare)
	logger.Log(ctx, slog.LevelDebug, "collected base directories", slog.Any("dirs", dirs))

	highest := dirs[0]
	if len(dirs) == 1 {
		return highest, nil
	}

	candidates := dirs[1:2]
	if h.Strict {
		candidates = dirs[1:]
	}
	for _, dir := range candidates {
		if !h.Mode.Contains(highest, dir) {
			return "", &NoCommonRootError{First: highest, Second: dir}
		}
	}

	return highest, nil
}

// collect walks the reactor and returns each base directory once. Projects
// without a base directory were resolved from a repository, so their
// ancestors are not followed.
func (h *HighestBaseDir) collect() ([]string, error) {
	var (
		dirs    []string
		walkErr error
	)

	h.Reactor.Walk(func(p *reactor.Project) reactor.Visit {
		if !p.HasBaseDir() {
			return reactor.SkipParent
		}

		dir, err := normalizePath(p.BaseDir(), h.Canonicalize)
		if err != nil {
			walkErr = err
			return reactor.Stop
		}

		if !slices.ContainsFunc(dirs, func(d string) bool { return h.Mode.Equal(d, dir) }) {
			dirs = append(dirs, dir)
		}
		return reactor.Continue
	})

	if walkErr != nil {
		return nil, walkErr
	}
	return dirs, nil
}
