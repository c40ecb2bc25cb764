package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/alecthomas/kong"
	slogcontext "github.com/veqryn/slog-context"

	"execroot/pkg/config"
	"execroot/pkg/logging"
	"execroot/pkg/pom"
	"execroot/pkg/properties"
	"execroot/pkg/reactor"
	"execroot/pkg/resolve"
)

const version = "1.0.0"

type CLI struct {
	Version         kong.VersionFlag  `short:"v" help:"Show version information"`
	LogLevel        string            `help:"Log level (debug, info, warn, error)" default:"info" enum:"debug,info,warn,error"`
	LogFormat       string            `help:"Log format (text, json)" default:"text" enum:"text,json"`
	Property        string            `short:"p" help:"Name of the property the directory is published as (default dirProperty)"`
	Quiet           *bool             `short:"q" help:"Don't log the resolved directory (overrides config when given)"`
	PathMode        string            `help:"Path comparison: auto, sensitive or insensitive"`
	Canonicalize    *bool             `help:"Resolve symlinks in project base directories (overrides config when given)"`
	Strict          *bool             `help:"Require every base directory to be under the highest one (overrides config when given)"`
	Parallel        int               `short:"j" help:"Number of POM files parsed concurrently"`
	ExportEnv       bool              `help:"Also set the published properties as environment variables"`
	DebugProperties bool              `help:"Log every published property at debug level"`
	Define          map[string]string `short:"D" help:"Extra property to publish (name=value)"`

	ExecutionRoot  ExecutionRootCmd  `cmd:"" name:"execution-root" help:"Publish the directory the build is executed from"`
	HighestBasedir HighestBasedirCmd `cmd:"" name:"highest-basedir" help:"Publish the top-most base directory of the reactor"`
	DirectoryOf    DirectoryOfCmd    `cmd:"" name:"directory-of" help:"Publish the base directory of one project"`
	Modules        ModulesCmd        `cmd:"" help:"List the reactor projects and their base directories"`
}

type ExecutionRootCmd struct {
	Directory string `arg:"" optional:"" help:"Execution root (defaults to current directory)"`
}

type HighestBasedirCmd struct {
	Directory string `arg:"" optional:"" help:"Directory containing the root pom.xml (defaults to current directory)"`
}

type DirectoryOfCmd struct {
	GroupID    string `short:"g" help:"Group ID of the project (not combined with a positional reference)"`
	ArtifactID string `short:"a" help:"Artifact ID of the project (not combined with a positional reference)"`
	Ref        string `arg:"" optional:"" help:"Project reference as groupId:artifactId"`
	Directory  string `arg:"" optional:"" help:"Directory containing the root pom.xml (defaults to current directory)"`
}

// reference returns the requested project and the reactor directory. A
// single positional argument without a colon is taken as the directory.
func (c *DirectoryOfCmd) reference() (reactor.Ref, string, error) {
	ref, directory := c.Ref, c.Directory
	if directory == "" && ref != "" && !strings.Contains(ref, ":") {
		ref, directory = "", ref
	}

	if ref == "" {
		return reactor.Ref{GroupID: c.GroupID, ArtifactID: c.ArtifactID}, directory, nil
	}
	if c.GroupID != "" || c.ArtifactID != "" {
		return reactor.Ref{}, "", fmt.Errorf("project reference %s can't be combined with --group-id or --artifact-id", ref)
	}

	parsed, err := reactor.ParseRef(ref)
	if err != nil {
		return reactor.Ref{}, "", err
	}
	return parsed, directory, nil
}

type ModulesCmd struct {
	Directory string `arg:"" optional:"" help:"Directory containing the root pom.xml (defaults to current directory)"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("execroot"),
		kong.Description("Resolve build directories of a Maven reactor and publish them as properties."),
		kong.Vars{"version": "execroot version " + version},
	)

	logger, err := logging.New(os.Stderr, cli.LogLevel, cli.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	runCtx := slogcontext.NewCtx(context.Background(), logger)

	switch strings.Fields(ctx.Command())[0] {
	case "execution-root":
		err = runGoal(runCtx, &cli, cli.ExecutionRoot.Directory, os.Stdout, newExecutionRoot)
	case "highest-basedir":
		err = runGoal(runCtx, &cli, cli.HighestBasedir.Directory, os.Stdout, newHighestBasedir)
	case "directory-of":
		err = runDirectoryOf(runCtx, &cli, os.Stdout)
	case "modules":
		err = runModules(runCtx, &cli, cli.Modules.Directory, os.Stdout)
	default:
		err = fmt.Errorf("unknown command: %s", ctx.Command())
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// resolverFactory builds the resolver for one goal
type resolverFactory func(ctx context.Context, cli *CLI, dir string, cfg *config.Config) (resolve.Resolver, error)

func newExecutionRoot(_ context.Context, _ *CLI, dir string, _ *config.Config) (resolve.Resolver, error) {
	return &resolve.ExecutionRoot{Dir: dir}, nil
}

func newHighestBasedir(ctx context.Context, cli *CLI, dir string, cfg *config.Config) (resolve.Resolver, error) {
	mode, err := resolve.ParsePathMode(firstNonEmpty(cli.PathMode, cfg.PathMode))
	if err != nil {
		return nil, err
	}

	r, err := loadReactor(ctx, cli, dir, cfg)
	if err != nil {
		return nil, err
	}

	return &resolve.HighestBaseDir{
		Reactor:      r,
		Mode:         mode,
		Canonicalize: flagOr(cli.Canonicalize, cfg.IsCanonicalize()),
		Strict:       flagOr(cli.Strict, cfg.IsStrictCommonRoot()),
	}, nil
}

func newDirectoryOf(ctx context.Context, cli *CLI, dir string, cfg *config.Config) (resolve.Resolver, error) {
	ref, _, err := cli.DirectoryOf.reference()
	if err != nil {
		return nil, err
	}

	// Fail on a bad reference before touching the filesystem
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	r, err := loadReactor(ctx, cli, dir, cfg)
	if err != nil {
		return nil, err
	}

	return &resolve.DirectoryOf{Reactor: r, Ref: ref}, nil
}

// runDirectoryOf publishes the base directory of the requested project
func runDirectoryOf(ctx context.Context, cli *CLI, out io.Writer) error {
	_, directory, err := cli.DirectoryOf.reference()
	if err != nil {
		return err
	}
	return runGoal(ctx, cli, directory, out, newDirectoryOf)
}

// runGoal resolves one directory and writes the published properties to out
func runGoal(ctx context.Context, cli *CLI, directory string, out io.Writer, newResolver resolverFactory) error {
	absDir, err := absDirectory(directory)
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfiguration(absDir)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	resolver, err := newResolver(ctx, cli, absDir, cfg)
	if err != nil {
		return err
	}

	session := resolve.NewSession(resolve.NewCache(), flagOr(cli.Quiet, cfg.IsQuiet()))
	dir, err := session.Resolve(ctx, resolver)
	if err != nil {
		return err
	}

	props := properties.New()
	setSorted(props, cfg.Properties)
	setSorted(props, cli.Define)
	props.Set(firstNonEmpty(cli.Property, cfg.PropertyName()), dir)
	props.Interpolate()

	if cli.ExportEnv {
		if err := props.Export(os.Setenv); err != nil {
			return err
		}
	}
	if cli.DebugProperties {
		props.Debug(ctx)
	}

	_, err = props.WriteTo(out)
	return err
}

// runModules prints every reactor project with its base directory and parent
func runModules(ctx context.Context, cli *CLI, directory string, out io.Writer) error {
	absDir, err := absDirectory(directory)
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfiguration(absDir)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	r, err := loadReactor(ctx, cli, absDir, cfg)
	if err != nil {
		return err
	}

	for _, p := range r.Projects() {
		fmt.Fprintf(out, "- %s (%s)\n", p, displayPath(absDir, p.BaseDir()))
		for parent := p.Parent(); parent != nil; parent = parent.Parent() {
			fmt.Fprintf(out, "    -> %s (%s)\n", parent, displayPath(absDir, parent.BaseDir()))
		}
	}
	return nil
}

func loadReactor(ctx context.Context, cli *CLI, dir string, cfg *config.Config) (*reactor.Reactor, error) {
	parallel := cli.Parallel
	if parallel <= 0 {
		parallel = cfg.Parallel
	}

	loader, err := pom.NewLoader(cfg.Exclude, parallel)
	if err != nil {
		return nil, err
	}

	projectDir, err := pom.FindProjectDir(dir)
	if err != nil {
		return nil, err
	}

	r, err := loader.Load(ctx, projectDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load reactor: %w", err)
	}
	return r, nil
}

// absDirectory returns the absolute form of directory, defaulting to the working directory
func absDirectory(directory string) (string, error) {
	if directory == "" {
		var err error
		directory, err = os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get current directory: %w", err)
		}
	}

	absDir, err := filepath.Abs(directory)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}
	return absDir, nil
}

// displayPath converts a base directory into a path relative to baseDir
func displayPath(baseDir, dir string) string {
	if dir == "" {
		return "resolved"
	}
	relPath, err := filepath.Rel(baseDir, dir)
	if err != nil {
		return dir
	}
	return relPath
}

func setSorted(props *properties.Properties, values map[string]string) {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		props.Set(name, values[name])
	}
}

// flagOr returns the flag value when it was given on the command line and
// the configured value otherwise
func flagOr(flag *bool, configured bool) bool {
	if flag != nil {
		return *flag
	}
	return configured
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
