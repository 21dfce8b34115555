package nugetify

import (
	"path"
	"path/filepath"
	"strings"

	"go.trai.ch/zerr"

	"github.com/willibrandon/nugetify/repository"
)

// HintPathGenerator computes the path a converted reference uses to reach a
// file inside an installed package.
type HintPathGenerator struct {
	// PackagesDir is the shared packages folder. Empty means
	// <projectDir>/packages; a relative value is taken from the solution
	// directory.
	PackagesDir string
}

// ForAssembly returns the path, relative to projectDir and with backslash
// separators, of the package file matching filename once pkg is installed
// under the packages folder as <id>.<version>.
func (g HintPathGenerator) ForAssembly(solutionDir, projectDir string, pkg repository.Package, filename string) (string, error) {
	file, ok := findPackageFile(pkg, filename)
	if !ok {
		err := zerr.With(zerr.Wrap(ErrFileNotInPackage, filename), "package", repository.Identity(pkg))
		return "", zerr.With(err, "file", filename)
	}

	packagesDir := g.PackagesDir
	switch {
	case packagesDir == "":
		packagesDir = filepath.Join(projectDir, "packages")
	case !filepath.IsAbs(packagesDir):
		packagesDir = filepath.Join(solutionDir, packagesDir)
	}

	full := filepath.Join(packagesDir, repository.Identity(pkg), filepath.FromSlash(file))
	rel, err := filepath.Rel(projectDir, full)
	if err != nil {
		rel = full
	}
	return strings.ReplaceAll(filepath.ToSlash(rel), "/", `\`), nil
}

// findPackageFile returns the first package file named filename, falling
// back to the first whose path ends with it after a separator. Both compare
// without case.
func findPackageFile(pkg repository.Package, filename string) (string, bool) {
	files := pkg.Files()
	normalized := make([]string, len(files))
	for i, f := range files {
		normalized[i] = strings.ReplaceAll(f, `\`, "/")
	}

	for _, f := range normalized {
		if strings.EqualFold(path.Base(f), filename) {
			return f, true
		}
	}

	suffix := "/" + strings.ToLower(strings.ReplaceAll(filename, `\`, "/"))
	for _, f := range normalized {
		if strings.HasSuffix("/"+strings.ToLower(f), suffix) {
			return f, true
		}
	}
	return "", false
}
