package nugetify

import (
	"context"
	"fmt"
	"os"
	"regexp"

	"github.com/willibrandon/nugetify/observability"
	"github.com/willibrandon/nugetify/repository"
	"github.com/willibrandon/nugetify/solution"
)

// Pruner removes projects that have been published as packages from a
// solution file.
type Pruner struct {
	source repository.Source
	logger observability.Logger
}

// NewPruner creates a pruner that checks project names against src.
func NewPruner(src repository.Source, logger observability.Logger) *Pruner {
	if logger == nil {
		logger = observability.NewNullLogger()
	}
	return &Pruner{source: src, logger: logger}
}

// Prune removes the block of every project, except the first, whose name is
// a package id in the source, and rewrites the solution in place. It returns
// the removed project names in solution order.
func (p *Pruner) Prune(ctx context.Context, slnPath string) (removed []string, err error) {
	sol, err := solution.ParseFile(slnPath)
	if err != nil {
		return nil, err
	}

	ctx, span := observability.StartSolutionPruneSpan(ctx, slnPath, len(sol.Projects))
	defer func() { observability.EndSpanWithError(span, err) }()

	p.logger.InfoContext(ctx, "Checking for projects in solution that are NuGet packages...")
	if len(sol.Projects) == 0 {
		return nil, nil
	}
	p.logger.DebugContext(ctx, "Keeping first project {Project}", sol.Projects[0].Name)

	var guids []string
	for _, project := range sol.Projects[1:] {
		published, err := repository.Exists(ctx, p.source, project.Name)
		if err != nil {
			return nil, fmt.Errorf("check %s in %s: %w", project.Name, p.source.Name(), err)
		}
		if published {
			removed = append(removed, project.Name)
			guids = append(guids, project.GUID)
		}
	}
	if len(removed) == 0 {
		return nil, nil
	}

	info, err := os.Stat(slnPath)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(slnPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", slnPath, err)
	}

	text := string(data)
	for _, guid := range guids {
		text = projectBlock(guid).ReplaceAllLiteralString(text, "")
	}

	if err := os.WriteFile(slnPath, []byte(text), info.Mode().Perm()); err != nil {
		return nil, fmt.Errorf("write %s: %w", slnPath, err)
	}

	p.logger.InfoContext(ctx, "Removed {Count} projects from the solution:", len(removed))
	for _, name := range removed {
		p.logger.InfoContext(ctx, "{Project}", name)
	}
	observability.SolutionProjectsPrunedTotal.Add(float64(len(removed)))

	return removed, nil
}

// projectBlock matches the Project ... EndProject block whose header
// carries the project GUID, with its line ending.
func projectBlock(guid string) *regexp.Regexp {
	return regexp.MustCompile(`(?mi)^Project\("[^"]*"\)\s*=\s*"[^"]*",\s*"[^"]*",\s*"` +
		regexp.QuoteMeta(guid) + `".*$[\s\S]*?^EndProject\r?\n?`)
}
