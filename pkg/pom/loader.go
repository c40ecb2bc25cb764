package pom

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/gobwas/glob"
	slogcontext "github.com/veqryn/slog-context"
	"golang.org/x/sync/errgroup"

	"execroot/pkg/reactor"
)

// DefaultParallel is the number of POMs parsed concurrently when unset
const DefaultParallel = 8

// Loader builds a reactor from the POM files found on disk
type Loader struct {
	exclude  []glob.Glob
	parallel int
}

// NewLoader creates a loader. Modules whose "groupId:artifactId" matches one
// of the exclude patterns are left out of the reactor along with their own
// modules.
func NewLoader(exclude []string, parallel int) (*Loader, error) {
	if parallel <= 0 {
		parallel = DefaultParallel
	}

	l := &Loader{parallel: parallel}
	for _, pattern := range exclude {
		g, err := glob.Compile(pattern, ':')
		if err != nil {
			return nil, fmt.Errorf("failed to compile exclude pattern %q: %w", pattern, err)
		}
		l.exclude = append(l.exclude, g)
	}
	return l, nil
}

// Load reads dir/pom.xml and every module it aggregates, and links each
// project to its parent. Parents found next to the modules on disk keep
// their base directory; parents that can't be found are added without one.
func (l *Loader) Load(ctx context.Context, dir string) (*reactor.Reactor, error) {
	logger := slogcontext.FromCtx(ctx).With(slog.String("realm", "pom"))

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	rootFile := filepath.Join(absDir, FileName)
	poms := make(map[string]*POM)
	var order []string

	seen := map[string]bool{rootFile: true}
	level := []string{rootFile}

	// Breadth-first over <modules>, one concurrent parse per level
	for len(level) > 0 {
		parsed, err := l.parseAll(ctx, level)
		if err != nil {
			return nil, err
		}

		var next []string
		for i, file := range level {
			pom := parsed[i]
			if l.excluded(pom.Ref()) {
				logger.Log(ctx, slog.LevelDebug, "excluding module",
					slog.String("project", pom.Ref().String()),
					slog.String("file", file),
				)
				continue
			}

			poms[file] = pom
			order = append(order, file)

			for _, module := range pom.AllModules() {
				moduleFile := ModuleFile(filepath.Dir(file), module)
				if seen[moduleFile] {
					continue
				}
				seen[moduleFile] = true
				next = append(next, moduleFile)
			}
		}
		level = next
	}

	link := newLinker(poms)
	projects := make([]*reactor.Project, 0, len(order))
	for _, file := range order {
		p, err := link.project(ctx, file, poms[file])
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}

	logger.Log(ctx, slog.LevelDebug, "loaded reactor",
		slog.String("dir", absDir),
		slog.Int("projects", len(projects)),
	)
	return reactor.New(projects...), nil
}

// parseAll parses files concurrently, keeping results in input order
func (l *Loader) parseAll(ctx context.Context, files []string) ([]*POM, error) {
	results := make([]*POM, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.parallel)
	for i, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			pom, err := ParseFile(file)
			if err != nil {
				return fmt.Errorf("failed to load module: %w", err)
			}
			results[i] = pom
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (l *Loader) excluded(ref reactor.Ref) bool {
	for _, g := range l.exclude {
		if g.Match(ref.String()) {
			return true
		}
	}
	return false
}

// errParentCycle is returned when relativePath links loop back on themselves
var errParentCycle = errors.New("parent cycle")

// linker turns parsed POMs into linked reactor projects, creating each
// project once per file
type linker struct {
	poms     map[string]*POM
	projects map[string]*reactor.Project
	virtual  map[reactor.Ref]*reactor.Project
	linking  map[string]bool
}

func newLinker(poms map[string]*POM) *linker {
	return &linker{
		poms:     poms,
		projects: make(map[string]*reactor.Project),
		virtual:  make(map[reactor.Ref]*reactor.Project),
		linking:  make(map[string]bool),
	}
}

func (k *linker) project(ctx context.Context, file string, pom *POM) (*reactor.Project, error) {
	if p, ok := k.projects[file]; ok {
		return p, nil
	}
	if k.linking[file] {
		return nil, fmt.Errorf("%w at %s", errParentCycle, file)
	}
	k.linking[file] = true
	defer delete(k.linking, file)

	var parent *reactor.Project
	if pom.Parent != nil {
		var err error
		parent, err = k.parent(ctx, file, pom.Parent)
		if err != nil {
			return nil, err
		}
	}

	p, err := reactor.NewProject(pom.Ref(), filepath.Dir(file), parent)
	if err != nil {
		return nil, fmt.Errorf("invalid project in %s: %w", file, err)
	}
	k.projects[file] = p
	return p, nil
}

func (k *linker) parent(ctx context.Context, childFile string, parent *Parent) (*reactor.Project, error) {
	ref := parent.Ref()

	if file, ok := parent.File(filepath.Dir(childFile)); ok {
		pom, err := k.load(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load parent of %s: %w", childFile, err)
		}
		if pom.Ref() == ref {
			return k.project(ctx, file, pom)
		}
		slogcontext.FromCtx(ctx).Log(ctx, slog.LevelDebug, "parent POM on disk doesn't match",
			slog.String("expected", ref.String()),
			slog.String("found", pom.Ref().String()),
			slog.String("file", file),
		)
	}

	// Resolved from a repository, so no base directory and no known ancestors
	if p, ok := k.virtual[ref]; ok {
		return p, nil
	}
	p, err := reactor.NewProject(ref, "", nil)
	if err != nil {
		return nil, fmt.Errorf("invalid parent in %s: %w", childFile, err)
	}
	k.virtual[ref] = p
	return p, nil
}

func (k *linker) load(file string) (*POM, error) {
	if pom, ok := k.poms[file]; ok {
		return pom, nil
	}
	pom, err := ParseFile(file)
	if err != nil {
		return nil, err
	}
	k.poms[file] = pom
	return pom, nil
}
