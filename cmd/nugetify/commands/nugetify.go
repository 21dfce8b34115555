package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/willibrandon/nugetify/cmd/nugetify/config"
	"github.com/willibrandon/nugetify/cmd/nugetify/output"
	"github.com/willibrandon/nugetify/nugetify"
	"github.com/willibrandon/nugetify/observability"
	"github.com/willibrandon/nugetify/packaging"
	"github.com/willibrandon/nugetify/repository"
)

// Environment variables supplying flag defaults.
const (
	EnvReferenceMap = "NUGETIFY_REFERENCE_MAP"
	EnvPackagesDir  = "NUGETIFY_PACKAGES_DIR"
)

const defaultProbeTimeout = 10 * time.Second

type nugetifyOptions struct {
	sources       []string
	configFile    string
	properties    string
	packagesDir   string
	referenceMap  string
	gacRoots      []string
	probeTimeout  time.Duration
	nuspec        bool
	id            string
	title         string
	author        string
	owners        string
	description   string
	tags          string
	copyright     string
	releaseNotes  string
	projectURL    string
	licenseURL    string
	iconURL       string
	requireAccept bool
	verbosity     string
	metricsFile   string
	traceExporter string
	otlpEndpoint  string
	otlpInsecure  bool
}

// NewRootCommand creates the nugetify command. It is the root of the CLI:
// `nugetify <path>` converts the solution or project at path.
func NewRootCommand(console *output.Console) *cobra.Command {
	opts := &nugetifyOptions{}

	cmd := &cobra.Command{
		Use:   "nugetify [path]",
		Short: "Replace binary and project references with NuGet package references",
		Long: `Replace a solution's file references and project references with references
to packages found in the configured package sources.

path is a .sln file, a .csproj file, or a directory holding one; it defaults
to the current directory. Projects in the solution that are already published
as packages are removed from the solution first, and each remaining project
gets a packages.config listing the packages it now references.`,
		Example: `  nugetify MySolution.sln -s \\server\packages
  nugetify src/App/App.csproj --msbuild-properties "Configuration=Release,Platform=AnyCPU"
  nugetify . --nuspec --author "Contoso" --tags "tools"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) == 1 {
				path = args[0]
			}
			return runNugetify(cmd.Context(), console, path, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVarP(&opts.sources, "source", "s", nil, "Package source folder to search (repeatable); defaults to the enabled sources in NuGet.config")
	flags.StringVar(&opts.configFile, "configfile", "", "NuGet configuration file to read sources from")
	flags.StringVarP(&opts.properties, "msbuild-properties", "p", "", `Build properties used to evaluate projects, e.g. "Configuration=Release,Platform=AnyCPU"`)
	flags.StringVar(&opts.packagesDir, "packages-dir", os.Getenv(EnvPackagesDir), "Packages folder used in rewritten hint paths (relative to the solution directory)")
	flags.StringVar(&opts.referenceMap, "reference-map", os.Getenv(EnvReferenceMap), "JSON or YAML file mapping assembly names to package ids")
	flags.StringArrayVar(&opts.gacRoots, "gac-root", nil, "Windows directory holding the global assembly cache (repeatable); defaults to %WINDIR%")
	flags.DurationVar(&opts.probeTimeout, "probe-timeout", defaultProbeTimeout, "Time allowed to read one assembly's identity (0 disables the limit)")

	flags.BoolVar(&opts.nuspec, "nuspec", false, "Write a <AssemblyName>.nuspec next to each project")
	flags.StringVar(&opts.id, "id", "", "Package id for the generated nuspec (defaults to the assembly name)")
	flags.StringVar(&opts.title, "title", "", "Title for the generated nuspec")
	flags.StringVar(&opts.author, "author", "", "Author for the generated nuspec")
	flags.StringVar(&opts.owners, "owners", "", "Owners for the generated nuspec (defaults to the author)")
	flags.StringVar(&opts.description, "description", "", "Description for the generated nuspec")
	flags.StringVar(&opts.tags, "tags", "", "Tags for the generated nuspec")
	flags.StringVar(&opts.copyright, "copyright", "", "Copyright for the generated nuspec")
	flags.StringVar(&opts.releaseNotes, "release-notes", "", "Release notes for the generated nuspec")
	flags.StringVar(&opts.projectURL, "project-url", "", "Project URL for the generated nuspec")
	flags.StringVar(&opts.licenseURL, "license-url", "", "License URL for the generated nuspec")
	flags.StringVar(&opts.iconURL, "icon-url", "", "Icon URL for the generated nuspec")
	flags.BoolVar(&opts.requireAccept, "require-license-acceptance", false, "Require license acceptance in the generated nuspec")

	flags.StringVarP(&opts.verbosity, "verbosity", "v", "normal", "Display verbosity (quiet, normal, detailed, diagnostic)")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file when the run ends")
	flags.StringVar(&opts.traceExporter, "trace-exporter", "none", "Trace exporter (none, stdout, otlp)")
	flags.StringVar(&opts.otlpEndpoint, "otlp-endpoint", "localhost:4317", "OTLP collector endpoint")
	flags.BoolVar(&opts.otlpInsecure, "otlp-insecure", false, "Connect to the OTLP collector without TLS")

	return cmd
}

func runNugetify(ctx context.Context, console *output.Console, path string, opts *nugetifyOptions) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}

	verbosity, err := output.ParseVerbosity(opts.verbosity)
	if err != nil {
		return err
	}
	level, err := observability.ParseLogLevel(opts.verbosity)
	if err != nil {
		return err
	}
	console.SetVerbosity(verbosity)
	logger := observability.NewLogger(console.Out(), level)

	tracing := observability.DefaultTracerConfig()
	tracing.ExporterType = opts.traceExporter
	tracing.OTLPEndpoint = opts.otlpEndpoint
	tracing.OTLPInsecure = opts.otlpInsecure
	tp, err := observability.SetupTracing(ctx, tracing)
	if err != nil {
		return err
	}
	defer func() {
		if shutdownErr := observability.ShutdownTracing(context.Background(), tp); shutdownErr != nil {
			logger.Warn("Could not flush traces: {Error}", shutdownErr)
		}
	}()

	if opts.metricsFile != "" {
		defer func() {
			if metricsErr := observability.WriteMetricsFile(opts.metricsFile); metricsErr != nil && err == nil {
				err = metricsErr
			}
		}()
	}

	names, err := loadNameMap(opts.referenceMap)
	if err != nil {
		return err
	}
	if names.Len() > 0 {
		logger.Debug("Loaded {Count} reference name mappings", names.Len())
	}

	source, err := buildSource(console, logger, path, opts)
	if err != nil {
		return err
	}

	gacRoots := opts.gacRoots
	if len(gacRoots) == 0 {
		gacRoots = nugetify.DefaultGACRoots()
	}

	cmd := &nugetify.Command{
		Source: source,
		Names:  names,
		Prober: nugetify.TimeoutProber{Prober: nugetify.MetadataProber{}, Timeout: opts.probeTimeout},
		GAC:    nugetify.NewGACDirectory(gacRoots...),
		Logger: logger,
	}

	summary, err := cmd.Run(ctx, nugetify.Options{
		Path:            path,
		BuildProperties: opts.properties,
		PackagesDir:     opts.packagesDir,
		WriteNuspec:     opts.nuspec,
		Nuspec:          opts.descriptorMetadata(),
	})
	if err != nil {
		return err
	}

	printSummary(console, summary)
	if failed := summary.Failed(); failed > 0 {
		return fmt.Errorf("%d of %d projects failed", failed, len(summary.Projects))
	}
	return nil
}

func (o *nugetifyOptions) descriptorMetadata() (m packaging.DescriptorMetadata) {
	m.ID = o.id
	m.Title = o.title
	m.Author = o.author
	m.Owners = o.owners
	m.Description = o.description
	m.Tags = o.tags
	m.Copyright = o.copyright
	m.ReleaseNotes = o.releaseNotes
	m.ProjectURL = o.projectURL
	m.LicenseURL = o.licenseURL
	m.IconURL = o.iconURL
	m.RequireLicenseAcceptance = o.requireAccept
	return m
}

func loadNameMap(path string) (*nugetify.NameMap, error) {
	if path == "" {
		return nugetify.LoadDefaultNameMap()
	}
	return nugetify.LoadNameMap(path)
}

// buildSource assembles the folder sources to search. HTTP feeds are
// reported and left out.
func buildSource(console *output.Console, logger observability.Logger, path string, opts *nugetifyOptions) (repository.Source, error) {
	var resolved []config.ResolvedSource
	if len(opts.sources) > 0 {
		for _, value := range opts.sources {
			s := config.PackageSource{Key: value, Value: value}
			rs := config.ResolvedSource{Name: value, Value: value, Local: s.IsLocal()}
			if rs.Local {
				rs.Path = s.LocalPath("")
			}
			resolved = append(resolved, rs)
		}
	} else {
		configs := []string{opts.configFile}
		if opts.configFile == "" {
			configs = config.GetConfigHierarchy(inputDir(path))
		}
		var err error
		if resolved, err = config.ResolveSources(configs); err != nil {
			return nil, err
		}
	}

	var sources []repository.Source
	for _, rs := range resolved {
		if !rs.Local {
			console.Warning("Skipping source %s (%s): only folder sources can be searched", rs.Name, rs.Value)
			logger.Warn("Skipping source {Source}: only folder sources can be searched", rs.Value)
			continue
		}
		local, err := repository.NewLocalSource(rs.Path, repository.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		logger.Debug("Using package source {Source}", rs.Path)
		sources = append(sources, local)
	}

	switch len(sources) {
	case 0:
		return nil, errors.New("no folder package sources configured; pass --source or add one to NuGet.config")
	case 1:
		return sources[0], nil
	default:
		return repository.NewAggregateSource(sources...), nil
	}
}

func inputDir(path string) string {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return path
	}
	return filepath.Dir(path)
}

func printSummary(console *output.Console, summary *nugetify.Summary) {
	console.Header("Summary")
	if len(summary.Pruned) > 0 {
		console.Info("Removed %d projects from the solution", len(summary.Pruned))
		for _, name := range summary.Pruned {
			console.Detail("  %s", name)
		}
	}

	for _, p := range summary.Projects {
		switch p.Status {
		case nugetify.StatusCompleted:
			console.Success("%s: %d packages referenced, %d added", p.Name, len(p.Packages), len(p.Added))
			for _, pkg := range p.Packages {
				console.Detail("  %s %s", pkg.ID(), pkg.Version())
			}
			if p.Nuspec != "" {
				console.Detail("  wrote %s", p.Nuspec)
			}
		case nugetify.StatusSkipped:
			console.Info("%s: skipped, already published as a package", p.Name)
		default:
			console.Error("%s: %v", p.Name, p.Err)
		}
	}
}
