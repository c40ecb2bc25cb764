package resolve

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	slogcontext "github.com/veqryn/slog-context"
	"golang.org/x/sync/errgroup"

	"execroot/pkg/reactor"
)

func project(t *testing.T, artifact, dir string, parent *reactor.Project) *reactor.Project {
	t.Helper()
	p, err := reactor.NewProject(reactor.Ref{GroupID: "org.example", ArtifactID: artifact}, dir, parent)
	require.NoError(t, err)
	return p
}

func ref(artifact string) reactor.Ref {
	return reactor.Ref{GroupID: "org.example", ArtifactID: artifact}
}

func TestExecutionRoot_Resolve(t *testing.T) {
	r := &ExecutionRoot{Dir: "/build/root"}
	assert.Equal(t, ExecutionRootKey, r.Key())
	assert.Equal(t, "Execution-Root", r.Label())

	dir, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean("/build/root"), dir)

	// no existence check
	dir, err = (&ExecutionRoot{Dir: "/does/not/exist"}).Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean("/does/not/exist"), dir)
}

func TestDirectoryOf_FindsProjectsAndAncestors(t *testing.T) {
	parent := project(t, "parent", "/work", nil)
	api := project(t, "api", "/work/api", parent)
	impl := project(t, "impl", "/work/impl", parent)
	r := reactor.New(api, impl)

	for artifact, want := range map[string]string{
		"api":    "/work/api",
		"impl":   "/work/impl",
		"parent": "/work",
	} {
		d := &DirectoryOf{Reactor: r, Ref: ref(artifact)}
		dir, err := d.Resolve(context.Background())
		require.NoError(t, err, artifact)
		assert.Equal(t, want, dir, artifact)
	}
}

func TestDirectoryOf_NotFound(t *testing.T) {
	r := reactor.New(project(t, "api", "/work/api", nil))
	d := &DirectoryOf{Reactor: r, Ref: ref("missing")}

	_, err := d.Resolve(context.Background())
	require.ErrorIs(t, err, ErrNotFound)

	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, ref("missing"), nf.Ref)
	assert.Contains(t, err.Error(), "org.example:missing")
}

func TestDirectoryOf_RelativeBaseDirIsMadeAbsolute(t *testing.T) {
	r := reactor.New(project(t, "api", filepath.Join("work", "api"), nil))

	dir, err := (&DirectoryOf{Reactor: r, Ref: ref("api")}).Resolve(context.Background())
	require.NoError(t, err)

	want, err := filepath.Abs(filepath.Join("work", "api"))
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(dir))
	assert.Equal(t, want, dir)
}

func TestDirectoryOf_MatchWithoutBaseDir(t *testing.T) {
	virtual := project(t, "parent", "", nil)
	r := reactor.New(project(t, "api", "/work/api", virtual))

	_, err := (&DirectoryOf{Reactor: r, Ref: ref("parent")}).Resolve(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDirectoryOf_FirstMatchWins(t *testing.T) {
	// same coordinates in two places; the last root is popped first
	first := project(t, "dup", "/one", nil)
	second := project(t, "dup", "/two", nil)

	dir, err := (&DirectoryOf{Reactor: reactor.New(first, second), Ref: ref("dup")}).Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/two", dir)
}

func TestDirectoryOf_InvalidRef(t *testing.T) {
	d := &DirectoryOf{Reactor: reactor.New(), Ref: reactor.Ref{GroupID: "org.example"}}
	assert.Equal(t, "Directory of org.example:", d.Label())

	_, err := d.Resolve(context.Background())
	require.ErrorIs(t, err, reactor.ErrInvalidReference)

	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestHighestBaseDir_SingleProject(t *testing.T) {
	h := &HighestBaseDir{Reactor: reactor.New(project(t, "app", "/a/b", nil)), Mode: PathModeSensitive}
	assert.Equal(t, HighestDirKey, h.Key())
	assert.Equal(t, "Highest basedir", h.Label())

	dir, err := h.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/a/b", dir)
}

func TestHighestBaseDir_CommonRoot(t *testing.T) {
	r := reactor.New(
		project(t, "d", "/a/b/d", nil),
		project(t, "b", "/a/b", nil),
		project(t, "c", "/a/b/c", nil),
	)

	dir, err := (&HighestBaseDir{Reactor: r, Mode: PathModeSensitive}).Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/a/b", dir)
}

func TestHighestBaseDir_FollowsParents(t *testing.T) {
	root := project(t, "root", "/a", nil)
	mid := project(t, "mid", "/a/b", root)
	r := reactor.New(project(t, "leaf", "/a/b/c", mid))

	dir, err := (&HighestBaseDir{Reactor: r, Mode: PathModeSensitive}).Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/a", dir)
}

func TestHighestBaseDir_StopsAtResolvedParent(t *testing.T) {
	// the ancestor above a repository-resolved parent is never considered
	far := project(t, "far", "/elsewhere", nil)
	virtual := project(t, "virtual", "", far)
	r := reactor.New(project(t, "leaf", "/a/b", virtual))

	dir, err := (&HighestBaseDir{Reactor: r, Mode: PathModeSensitive}).Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/a/b", dir)
}

func TestHighestBaseDir_DisjointRoots(t *testing.T) {
	r := reactor.New(project(t, "b", "/a/b", nil), project(t, "y", "/x/y", nil))

	_, err := (&HighestBaseDir{Reactor: r, Mode: PathModeSensitive}).Resolve(context.Background())
	require.ErrorIs(t, err, ErrNoCommonRoot)

	var ncr *NoCommonRootError
	require.ErrorAs(t, err, &ncr)
	assert.Equal(t, "/a/b", ncr.First)
	assert.Equal(t, "/x/y", ncr.Second)
}

func TestHighestBaseDir_SiblingPrefixIsNotAncestor(t *testing.T) {
	r := reactor.New(project(t, "b", "/a/b", nil), project(t, "bc", "/a/bc", nil))

	_, err := (&HighestBaseDir{Reactor: r, Mode: PathModeSensitive}).Resolve(context.Background())
	assert.ErrorIs(t, err, ErrNoCommonRoot)
}

func TestHighestBaseDir_Empty(t *testing.T) {
	for name, r := range map[string]*reactor.Reactor{
		"no projects":       reactor.New(),
		"no base dirs":      reactor.New(project(t, "virtual", "", nil)),
		"nested no basedir": reactor.New(project(t, "v2", "", project(t, "v1", "", nil))),
	} {
		_, err := (&HighestBaseDir{Reactor: r}).Resolve(context.Background())
		require.ErrorIs(t, err, ErrEmptyResult, name)

		var empty *EmptyResultError
		assert.ErrorAs(t, err, &empty, name)
	}
}

func TestHighestBaseDir_StrictChecksEveryCandidate(t *testing.T) {
	// /a/b/c is checked by the compatible mode and passes, /z/q is only
	// caught when every candidate is verified
	r := reactor.New(
		project(t, "b", "/a/b", nil),
		project(t, "c", "/a/b/c", nil),
		project(t, "q", "/z/q", nil),
	)

	dir, err := (&HighestBaseDir{Reactor: r, Mode: PathModeSensitive}).Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/a/b", dir)

	_, err = (&HighestBaseDir{Reactor: r, Mode: PathModeSensitive, Strict: true}).Resolve(context.Background())
	require.ErrorIs(t, err, ErrNoCommonRoot)

	var ncr *NoCommonRootError
	require.ErrorAs(t, err, &ncr)
	assert.Equal(t, "/z/q", ncr.Second)
}

func TestHighestBaseDir_CaseModes(t *testing.T) {
	r := reactor.New(project(t, "upper", "/A/b", nil), project(t, "lower", "/a/b/c", nil))

	dir, err := (&HighestBaseDir{Reactor: r, Mode: PathModeInsensitive}).Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/A/b", dir)

	_, err = (&HighestBaseDir{Reactor: r, Mode: PathModeSensitive}).Resolve(context.Background())
	assert.ErrorIs(t, err, ErrNoCommonRoot)
}

func TestHighestBaseDir_CaseInsensitiveDedup(t *testing.T) {
	r := reactor.New(project(t, "x", "/Work", nil), project(t, "y", "/work", nil))

	dir, err := (&HighestBaseDir{Reactor: r, Mode: PathModeInsensitive}).Resolve(context.Background())
	require.NoError(t, err)
	// the last root is walked first and wins the dedup
	assert.Equal(t, "/work", dir)

	_, err = (&HighestBaseDir{Reactor: r, Mode: PathModeSensitive}).Resolve(context.Background())
	assert.ErrorIs(t, err, ErrNoCommonRoot)
}

func TestHighestBaseDir_CanonicalizeFailurePropagates(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")
	r := reactor.New(project(t, "app", missing, nil))

	_, err := (&HighestBaseDir{Reactor: r, Canonicalize: true}).Resolve(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestSession_ResolveCachesAndLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx := slogcontext.NewCtx(context.Background(), logger)

	session := NewSession(nil, false)
	r := reactor.New(project(t, "b", "/a/b", nil), project(t, "c", "/a/b/c", nil))

	dir, err := session.Resolve(ctx, &HighestBaseDir{Reactor: r, Mode: PathModeSensitive})
	require.NoError(t, err)
	assert.Equal(t, "/a/b", dir)
	assert.Contains(t, buf.String(), "Highest basedir set to: /a/b")
	assert.Contains(t, buf.String(), `label="Highest basedir"`)
	assert.Contains(t, buf.String(), "dir=/a/b")

	// a second resolver with the same key reuses the session value
	other := reactor.New(project(t, "z", "/z", nil))
	dir, err = session.Resolve(ctx, &HighestBaseDir{Reactor: other, Mode: PathModeSensitive})
	require.NoError(t, err)
	assert.Equal(t, "/a/b", dir)
	assert.Equal(t, 1, session.Cache().Len())
}

func TestSession_Quiet(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx := slogcontext.NewCtx(context.Background(), logger)

	session := NewSession(NewCache(), true)
	_, err := session.Resolve(ctx, &ExecutionRoot{Dir: "/build"})
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "set to")
}

func TestSession_ConcurrentResolversShareCache(t *testing.T) {
	session := NewSession(NewCache(), true)
	parent := project(t, "parent", "/work", nil)
	r := reactor.New(project(t, "api", "/work/api", parent), project(t, "impl", "/work/impl", parent))

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			var res Resolver
			switch i % 3 {
			case 0:
				res = &HighestBaseDir{Reactor: r, Mode: PathModeSensitive}
			case 1:
				res = &DirectoryOf{Reactor: r, Ref: ref("api")}
			default:
				res = &ExecutionRoot{Dir: "/work"}
			}
			_, err := session.Resolve(ctx, res)
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, 3, session.Cache().Len())
}
