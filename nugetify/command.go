package nugetify

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.trai.ch/zerr"

	"github.com/willibrandon/nugetify/ledger"
	"github.com/willibrandon/nugetify/msbuild"
	"github.com/willibrandon/nugetify/observability"
	"github.com/willibrandon/nugetify/packaging"
	"github.com/willibrandon/nugetify/repository"
	"github.com/willibrandon/nugetify/solution"
)

// Project statuses reported in a Summary.
const (
	StatusCompleted = "completed"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

// ProjectResult is the outcome for one project.
type ProjectResult struct {
	Name   string
	Path   string
	Status string
	// Packages are the packages the project references after conversion.
	Packages []repository.Package
	// Added are the packages new to the project's ledger.
	Added  []repository.Package
	Nuspec string
	Err    error
}

// Summary reports a whole run.
type Summary struct {
	RunID    string
	Input    string
	Pruned   []string
	Projects []ProjectResult
}

// Failed returns the number of projects that failed.
func (s *Summary) Failed() int {
	n := 0
	for _, p := range s.Projects {
		if p.Status == StatusFailed {
			n++
		}
	}
	return n
}

// Command runs nugetify over a solution or a single project.
type Command struct {
	Source repository.Source
	Names  *NameMap
	Prober IdentityProber
	GAC    GlobalCache
	Logger observability.Logger
}

// Run converts the references of every project opts.Path names. Bad build
// properties and a missing input stop the run before anything is changed;
// a failing project is recorded and the run moves on.
func (c *Command) Run(ctx context.Context, opts Options) (summary *Summary, err error) {
	props, err := ParseBuildProperties(opts.BuildProperties)
	if err != nil {
		return nil, err
	}

	input, err := solution.DetectInput(opts.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, zerr.With(zerr.Wrap(ErrInputNotFound, err.Error()), "path", opts.Path)
		}
		return nil, err
	}

	if c.Source == nil {
		return nil, errors.New("no package source configured")
	}

	runID := uuid.NewString()
	logger := c.Logger
	if logger == nil {
		logger = observability.NewNullLogger()
	}
	logger = logger.ForContext("RunId", runID)

	ctx, span := observability.StartRunSpan(ctx, input.Path, runID)
	defer func() { observability.EndSpanWithError(span, err) }()

	summary = &Summary{RunID: runID, Input: input.Path}
	r := &run{cmd: c, opts: opts, logger: logger, summary: summary}

	switch input.Kind {
	case solution.KindSolution:
		err = r.solution(ctx, input.Path, props)
	default:
		err = r.project(ctx, input.Path, props)
	}
	if err != nil {
		return summary, err
	}

	logger.InfoContext(ctx, "Complete!")
	return summary, nil
}

type run struct {
	cmd     *Command
	opts    Options
	logger  observability.Logger
	summary *Summary
}

func (r *run) solution(ctx context.Context, slnPath string, props map[string]string) error {
	r.logger.InfoContext(ctx, "Loading projects from solution {Solution}", filepath.Base(slnPath))

	pruned, err := NewPruner(r.cmd.Source, r.logger).Prune(ctx, slnPath)
	if err != nil {
		return err
	}
	r.summary.Pruned = pruned

	sol, err := solution.ParseFile(slnPath)
	if err != nil {
		return err
	}

	props["SolutionDir"] = sol.SolutionDir
	loader := msbuild.NewLoader(props)

	var projects []*msbuild.Project
	for _, path := range sol.ProjectFiles() {
		p, err := loader.Load(path)
		if err != nil {
			r.logger.ErrorContext(ctx, "Could not load project {Path}: {Error}", path, err)
			r.record(ProjectResult{Name: projectName(path), Path: path, Status: StatusFailed, Err: err})
			continue
		}
		projects = append(projects, p)
	}

	return r.process(ctx, sol.SolutionDir, projects)
}

func (r *run) project(ctx context.Context, path string, props map[string]string) error {
	p, err := msbuild.NewLoader(props).Load(path)
	if err != nil {
		return err
	}
	return r.process(ctx, p.Dir(), []*msbuild.Project{p})
}

// process handles projects one at a time; they share the solution's
// packages folder registration.
func (r *run) process(ctx context.Context, solutionDir string, projects []*msbuild.Project) error {
	shared := ledger.NewSharedRepository(filepath.Join(solutionDir, "packages"))

	r.logger.InfoContext(ctx, "Processing {Count} projects...", len(projects))
	for _, p := range projects {
		published, err := repository.Exists(ctx, r.cmd.Source, p.Name())
		if err != nil {
			return err
		}
		if published {
			r.logger.DebugContext(ctx, "Skipping {Project}: it is published as a package", p.Name())
			r.record(ProjectResult{Name: p.Name(), Path: p.Path, Status: StatusSkipped})
			continue
		}

		r.logger.InfoContext(ctx, "Processing project: {Project}", p.Name())
		result := r.nugetify(ctx, solutionDir, p, shared)
		if result.Err != nil {
			r.logger.ErrorContext(ctx, "Project {Project} failed: {Error}", p.Name(), result.Err)
		} else {
			r.logger.InfoContext(ctx, "Project completed!")
		}
		r.record(result)
	}
	return nil
}

func (r *run) nugetify(ctx context.Context, solutionDir string, p *msbuild.Project, shared Registrar) (result ProjectResult) {
	result = ProjectResult{Name: p.Name(), Path: p.Path, Status: StatusCompleted}

	ctx, span := observability.StartProjectSpan(ctx, p.Name(), p.Path)
	defer func() {
		if result.Err != nil {
			result.Status = StatusFailed
		}
		observability.EndSpanWithError(span, result.Err)
	}()

	logger := r.logger.ForContext("Project", p.Name())
	handle := NewMSBuildProject(p, r.cmd.Prober, r.cmd.GAC, logger)

	n, err := New(Config{
		Project:   handle,
		Source:    r.cmd.Source,
		Names:     r.cmd.Names,
		HintPaths: HintPathGenerator{PackagesDir: r.opts.PackagesDir},
		Logger:    logger,
	})
	if err != nil {
		result.Err = err
		return result
	}

	if result.Packages, result.Err = n.NugetifyReferences(ctx, solutionDir); result.Err != nil {
		return result
	}
	if result.Added, result.Err = n.AddNugetReferenceMetadata(ctx, shared, result.Packages); result.Err != nil {
		return result
	}
	if result.Err = handle.Save(); result.Err != nil {
		return result
	}

	if r.opts.WriteNuspec {
		builder := packaging.NewDescriptorBuilder(handle.AssemblyName()).
			SetMetadata(r.opts.Nuspec).
			SetDependencies(n.ManifestDependencies(ctx, result.Packages))
		if result.Nuspec, result.Err = builder.Save(handle.Dir()); result.Err != nil {
			return result
		}
		logger.InfoContext(ctx, "Saved {Nuspec}", result.Nuspec)
	}

	return result
}

func (r *run) record(result ProjectResult) {
	observability.ProjectsProcessedTotal.WithLabelValues(result.Status).Inc()
	r.summary.Projects = append(r.summary.Projects, result)
}

func projectName(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}
