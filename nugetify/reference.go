package nugetify

import (
	"context"
	"path"
	"path/filepath"
	"strings"

	"github.com/willibrandon/nugetify/msbuild"
	"github.com/willibrandon/nugetify/observability"
	"github.com/willibrandon/nugetify/version"
)

// Reference is one dependency edge of a project: a Reference item naming a
// binary, or a ProjectReference naming another project.
type Reference interface {
	// DllName is the binary file name used as the resolution key. It does
	// not change when the reference is converted.
	DllName() string
	// Identity returns the assembly name and, when known, its version.
	Identity() AssemblyIdentity
	// HintPath returns the explicit path the reference carries, if any.
	HintPath() (string, bool)
	// CanConvert reports whether the reference can be pointed at package
	// content safely.
	CanConvert() bool
	// Condition reports whether the reference applies under the current
	// build properties.
	Condition() bool
	IsForAssembly(filename string) bool
	// ConvertToPackageReference points the reference at hintPath. The owning
	// project must be saved for the change to persist.
	ConvertToPackageReference(hintPath string) error
}

// SafeRange returns the package versions compatible with a reference.
func SafeRange(ref Reference) *version.Range {
	return version.SafeRange(ref.Identity().Version)
}

// FileReference is a Reference item pointing at a binary.
type FileReference struct {
	item        *msbuild.Item
	identity    AssemblyIdentity
	hintPath    string
	hasHintPath bool
	dllName     string
	inGAC       bool
	applies     bool
}

// NewFileReference reads the identity of a Reference item. A fully
// qualified include is parsed and checked against the global cache;
// otherwise the binary at the hint path is probed. Probe failures leave the
// include as the name with an unknown version.
func NewFileReference(ctx context.Context, item *msbuild.Item, prober IdentityProber, gac GlobalCache, logger observability.Logger) *FileReference {
	r := &FileReference{item: item, applies: conditionMet(item, logger)}

	if hint, ok := item.Metadata("HintPath"); ok && strings.TrimSpace(hint) != "" {
		r.hintPath, r.hasHintPath = strings.TrimSpace(hint), true
	}

	include := strings.TrimSpace(item.Include())
	switch {
	case IsFullyQualified(include):
		r.identity = ParseAssemblyName(include)
		r.inGAC = gac != nil && gac.Contains(r.identity)
	case r.hasHintPath && prober != nil:
		binary := resolveItemPath(item.Project().Dir(), r.hintPath)
		id, err := prober.ProbeFile(ctx, binary)
		if err != nil {
			logger.Debug("Could not read assembly identity from {Path}: {Error}", binary, err)
			r.identity = AssemblyIdentity{Name: include}
		} else {
			r.identity = id
		}
	default:
		r.identity = AssemblyIdentity{Name: include}
	}

	if r.hasHintPath {
		r.dllName = path.Base(strings.ReplaceAll(r.hintPath, "\\", "/"))
	} else {
		r.dllName = r.identity.Name + ".dll"
	}
	return r
}

// DllName returns the original hint path's file name, or <name>.dll.
func (r *FileReference) DllName() string { return r.dllName }

func (r *FileReference) Identity() AssemblyIdentity { return r.identity }

func (r *FileReference) HintPath() (string, bool) { return r.hintPath, r.hasHintPath }

// CanConvert is true when the binary is locatable by hint path or in the
// global cache.
func (r *FileReference) CanConvert() bool { return r.hasHintPath || r.inGAC }

func (r *FileReference) Condition() bool { return r.applies }

// IsForAssembly compares file names exactly.
func (r *FileReference) IsForAssembly(filename string) bool {
	return r.DllName() == filename
}

// ConvertToPackageReference replaces the HintPath metadata.
func (r *FileReference) ConvertToPackageReference(hintPath string) error {
	r.item.SetMetadata("HintPath", hintPath)
	r.hintPath, r.hasHintPath = hintPath, true
	return nil
}

// ProjectReference is a ProjectReference item. Its identity is the
// referenced project's assembly name, with no version.
type ProjectReference struct {
	owner        *msbuild.Project
	item         *msbuild.Item
	assemblyName string
	applies      bool
	converted    bool
}

// NewProjectReference loads the referenced project to learn its assembly
// name. When it cannot be loaded the include's file name stands in.
func NewProjectReference(owner *msbuild.Project, item *msbuild.Item, logger observability.Logger) *ProjectReference {
	r := &ProjectReference{owner: owner, item: item, applies: conditionMet(item, logger)}

	target, err := owner.ResolveProjectReference(item)
	if err != nil {
		logger.Warn("Could not load referenced project {Include}: {Error}", item.Include(), err)
		base := path.Base(strings.ReplaceAll(item.Include(), "\\", "/"))
		r.assemblyName = strings.TrimSuffix(base, path.Ext(base))
	} else {
		r.assemblyName = target.AssemblyName()
	}

	return r
}

// AssemblyName returns the referenced project's assembly name.
func (r *ProjectReference) AssemblyName() string { return r.assemblyName }

func (r *ProjectReference) DllName() string { return r.assemblyName + ".dll" }

func (r *ProjectReference) Identity() AssemblyIdentity {
	return AssemblyIdentity{Name: r.assemblyName}
}

func (r *ProjectReference) HintPath() (string, bool) { return "", false }

// CanConvert is always true; the target project always exists.
func (r *ProjectReference) CanConvert() bool { return true }

func (r *ProjectReference) Condition() bool { return r.applies }

// IsForAssembly compares file names case-insensitively.
func (r *ProjectReference) IsForAssembly(filename string) bool {
	return strings.EqualFold(r.DllName(), filename)
}

// ConvertToPackageReference removes the ProjectReference and adds a
// Reference to the assembly with the given hint path, unless the project
// already references that assembly.
func (r *ProjectReference) ConvertToPackageReference(hintPath string) error {
	if r.converted {
		return nil
	}

	r.owner.RemoveItem(r.item)
	if !hasBinaryReference(r.owner, r.assemblyName) {
		r.owner.AddItem(msbuild.ItemReference, r.assemblyName, msbuild.Metadata{Name: "HintPath", Value: hintPath})
	}
	r.converted = true
	return nil
}

func hasBinaryReference(p *msbuild.Project, assemblyName string) bool {
	for _, item := range p.BinaryReferences() {
		name, _, _ := strings.Cut(item.Include(), ",")
		if strings.EqualFold(strings.TrimSpace(name), assemblyName) {
			return true
		}
	}
	return false
}

// conditionMet evaluates an item's condition; conditions that cannot be
// evaluated count as false.
func conditionMet(item *msbuild.Item, logger observability.Logger) bool {
	ok, err := item.ConditionMet()
	if err != nil {
		logger.Debug("Condition {Condition} on {Include} could not be evaluated: {Error}", item.Condition(), item.Include(), err)
		return false
	}
	return ok
}

func resolveItemPath(projectDir, p string) string {
	p = filepath.FromSlash(strings.ReplaceAll(p, "\\", "/"))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(projectDir, p)
}

// Project is the project handle the nugetifier works through.
type Project interface {
	Name() string
	Dir() string
	AssemblyName() string
	BinaryReferences(ctx context.Context) []Reference
	ProjectReferences(ctx context.Context) []Reference
	// AddFile lists a project-relative file as a tracked item, once.
	AddFile(path string) bool
	Save() error
}

// MSBuildProject adapts a loaded project file to Project.
type MSBuildProject struct {
	project *msbuild.Project
	prober  IdentityProber
	gac     GlobalCache
	logger  observability.Logger
}

// NewMSBuildProject wraps p. A nil prober disables identity probing and a
// nil gac resolves nothing.
func NewMSBuildProject(p *msbuild.Project, prober IdentityProber, gac GlobalCache, logger observability.Logger) *MSBuildProject {
	if gac == nil {
		gac = NoGlobalCache{}
	}
	if logger == nil {
		logger = observability.NewNullLogger()
	}
	return &MSBuildProject{project: p, prober: prober, gac: gac, logger: logger}
}

// File returns the underlying project file.
func (m *MSBuildProject) File() *msbuild.Project { return m.project }

func (m *MSBuildProject) Name() string { return m.project.Name() }

func (m *MSBuildProject) Dir() string { return m.project.Dir() }

func (m *MSBuildProject) AssemblyName() string { return m.project.AssemblyName() }

func (m *MSBuildProject) BinaryReferences(ctx context.Context) []Reference {
	items := m.project.BinaryReferences()
	refs := make([]Reference, 0, len(items))
	for _, item := range items {
		refs = append(refs, NewFileReference(ctx, item, m.prober, m.gac, m.logger))
	}
	return refs
}

func (m *MSBuildProject) ProjectReferences(ctx context.Context) []Reference {
	items := m.project.ProjectReferences()
	refs := make([]Reference, 0, len(items))
	for _, item := range items {
		refs = append(refs, NewProjectReference(m.project, item, m.logger))
	}
	return refs
}

func (m *MSBuildProject) AddFile(path string) bool { return m.project.AddFile(path) }

func (m *MSBuildProject) Save() error { return m.project.Save() }
