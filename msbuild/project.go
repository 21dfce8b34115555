// Package msbuild loads, edits and saves MSBuild project files (.csproj)
// without disturbing the parts of the file it does not change.
package msbuild

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Item types handled by the project handle.
const (
	ItemReference        = "Reference"
	ItemProjectReference = "ProjectReference"
	ItemNone             = "None"
)

// Project is a loaded project file.
type Project struct {
	Path string
	Doc  *Document

	globals    Properties
	properties Properties
	loader     *Loader
	modified   bool
}

// LoadProject loads and parses a project file. globals are the build
// properties supplied by the caller; they take precedence over the
// project's own property definitions.
func LoadProject(path string, globals map[string]string) (*Project, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read project file: %w", err)
	}

	doc, err := ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", absPath, err)
	}

	p := &Project{
		Path:    absPath,
		Doc:     doc,
		globals: NewProperties(globals),
	}
	p.evaluateProperties()

	return p, nil
}

// evaluateProperties walks PropertyGroups in document order. Conditions
// that fail to evaluate are treated as false.
func (p *Project) evaluateProperties() {
	props := NewProperties(nil)
	props.Set("MSBuildProjectFullPath", p.Path)
	props.Set("MSBuildProjectFile", filepath.Base(p.Path))
	props.Set("MSBuildProjectName", p.Name())
	props.Set("MSBuildProjectDirectory", p.Dir())
	props.Set("MSBuildThisFileDirectory", p.Dir()+string(filepath.Separator))
	for k, v := range p.globals {
		props[k] = v
	}

	for _, group := range p.Doc.Root.Elements() {
		if !strings.EqualFold(group.Tag(), "PropertyGroup") || !p.conditionTrue(group, props) {
			continue
		}
		for _, prop := range group.Elements() {
			if p.globals.Has(prop.Tag()) || !p.conditionTrue(prop, props) {
				continue
			}
			props.Set(prop.Tag(), props.Expand(strings.TrimSpace(prop.Text())))
		}
	}

	p.properties = props
}

func (p *Project) conditionTrue(el *Element, props Properties) bool {
	cond, ok := el.GetAttr("Condition")
	if !ok {
		return true
	}
	result, err := EvaluateCondition(cond, props, p.Dir())
	return err == nil && result
}

// Name returns the project file name without extension.
func (p *Project) Name() string {
	base := filepath.Base(p.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Dir returns the directory containing the project file.
func (p *Project) Dir() string {
	return filepath.Dir(p.Path)
}

// Property returns an evaluated property value.
func (p *Project) Property(name string) string {
	return p.properties.Get(name)
}

// Properties returns the evaluated property table.
func (p *Project) Properties() Properties {
	return p.properties
}

// AssemblyName returns the AssemblyName property, or the project name when
// it is not set.
func (p *Project) AssemblyName() string {
	if name := p.properties.Get("AssemblyName"); name != "" {
		return name
	}
	return p.Name()
}

// SetAssemblyName sets AssemblyName in the first unconditional PropertyGroup
// that defines it, adding it to the first unconditional group otherwise.
func (p *Project) SetAssemblyName(name string) {
	var target *Element
	for _, group := range p.Doc.Root.Elements() {
		if !strings.EqualFold(group.Tag(), "PropertyGroup") {
			continue
		}
		if _, conditional := group.GetAttr("Condition"); conditional {
			continue
		}
		if el := group.FindElement("AssemblyName"); el != nil {
			el.SetText(name)
			p.properties.Set("AssemblyName", name)
			p.modified = true
			return
		}
		if target == nil {
			target = group
		}
	}

	if target == nil {
		target = NewElement("PropertyGroup")
		p.Doc.Root.AppendChild(target)
	}
	el := NewElement("AssemblyName")
	target.AppendChild(el)
	el.SetText(name)
	p.properties.Set("AssemblyName", name)
	p.modified = true
}

// Items returns every item of the given type in document order.
func (p *Project) Items(itemType string) []*Item {
	var items []*Item
	for _, group := range p.Doc.Root.Elements() {
		if !strings.EqualFold(group.Tag(), "ItemGroup") {
			continue
		}
		for _, el := range group.Elements() {
			if strings.EqualFold(el.Tag(), itemType) {
				items = append(items, &Item{project: p, elem: el})
			}
		}
	}
	return items
}

// BinaryReferences returns the Reference items.
func (p *Project) BinaryReferences() []*Item {
	return p.Items(ItemReference)
}

// ProjectReferences returns the ProjectReference items.
func (p *Project) ProjectReferences() []*Item {
	return p.Items(ItemProjectReference)
}

// AddItem appends an item to the first unconditional ItemGroup that already
// holds items of the same type, or to a new ItemGroup. Metadata is written
// as child elements in the order given.
func (p *Project) AddItem(itemType, include string, metadata ...Metadata) *Item {
	group := p.itemGroupFor(itemType)

	el := NewElement(itemType)
	el.SetAttr("Include", include)
	group.AppendChild(el)

	item := &Item{project: p, elem: el}
	for _, m := range metadata {
		item.SetMetadata(m.Name, m.Value)
	}

	p.modified = true
	return item
}

func (p *Project) itemGroupFor(itemType string) *Element {
	var lastGroup *Element
	for _, group := range p.Doc.Root.Elements() {
		if !strings.EqualFold(group.Tag(), "ItemGroup") {
			continue
		}
		if _, conditional := group.GetAttr("Condition"); conditional {
			continue
		}
		lastGroup = group
		for _, el := range group.Elements() {
			if strings.EqualFold(el.Tag(), itemType) {
				return group
			}
		}
	}

	group := NewElement("ItemGroup")
	if lastGroup != nil {
		p.Doc.Root.insertAfter(lastGroup, group)
	} else {
		p.Doc.Root.AppendChild(group)
	}
	return group
}

// RemoveItem detaches an item from its ItemGroup. An ItemGroup left without
// items is removed as well.
func (p *Project) RemoveItem(item *Item) bool {
	group := item.elem.Parent()
	if group == nil || !group.RemoveChild(item.elem) {
		return false
	}

	if len(group.Elements()) == 0 && group.Parent() != nil {
		group.Parent().RemoveChild(group)
	}

	p.modified = true
	return true
}

// HasItemInclude reports whether any item includes path (case-insensitive,
// either slash direction).
func (p *Project) HasItemInclude(path string) bool {
	want := strings.ReplaceAll(path, "/", "\\")
	for _, group := range p.Doc.Root.Elements() {
		if !strings.EqualFold(group.Tag(), "ItemGroup") {
			continue
		}
		for _, el := range group.Elements() {
			include, _ := el.GetAttr("Include")
			if strings.EqualFold(strings.ReplaceAll(include, "/", "\\"), want) {
				return true
			}
		}
	}
	return false
}

// AddFile lists path as a None item unless some item already includes it.
// Paths are relative to the project directory.
func (p *Project) AddFile(path string) bool {
	if p.HasItemInclude(path) {
		return false
	}
	p.AddItem(ItemNone, strings.ReplaceAll(path, "/", "\\"))
	return true
}

// IsModified reports whether the project has unsaved changes.
func (p *Project) IsModified() bool {
	return p.modified
}

// Save writes the project back to disk when it has been modified.
func (p *Project) Save() error {
	if !p.modified {
		return nil
	}

	if err := os.WriteFile(p.Path, p.Doc.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write project file: %w", err)
	}

	p.modified = false
	return nil
}

// Loader loads referenced projects once per run.
type Loader struct {
	globals  map[string]string
	projects map[string]*Project
}

// NewLoader creates a loader applying globals to every project it loads.
func NewLoader(globals map[string]string) *Loader {
	return &Loader{globals: globals, projects: make(map[string]*Project)}
}

// Load returns the cached project for path, loading it on first use.
func (l *Loader) Load(path string) (*Project, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}
	key := strings.ToLower(filepath.Clean(absPath))

	if p, ok := l.projects[key]; ok {
		return p, nil
	}

	p, err := LoadProject(absPath, l.globals)
	if err != nil {
		return nil, err
	}
	p.loader = l
	l.projects[key] = p
	return p, nil
}

// ResolveProjectReference loads the project a ProjectReference points at.
func (p *Project) ResolveProjectReference(item *Item) (*Project, error) {
	if p.loader == nil {
		p.loader = NewLoader(p.globals)
		p.loader.projects[strings.ToLower(filepath.Clean(p.Path))] = p
	}

	include := filepath.FromSlash(strings.ReplaceAll(p.properties.Expand(item.Include()), "\\", "/"))
	if !filepath.IsAbs(include) {
		include = filepath.Join(p.Dir(), include)
	}

	return p.loader.Load(include)
}
