package msbuild

import "strings"

// Metadata is an item metadata name/value pair.
type Metadata struct {
	Name  string
	Value string
}

// Item is an item element of a project, such as a Reference.
type Item struct {
	project *Project
	elem    *Element
}

// Project returns the owning project.
func (i *Item) Project() *Project {
	return i.project
}

// ItemType returns the element name, e.g. "Reference".
func (i *Item) ItemType() string {
	return i.elem.Tag()
}

// Include returns the raw Include attribute.
func (i *Item) Include() string {
	include, _ := i.elem.GetAttr("Include")
	return include
}

// Metadata returns a metadata value from a child element or, for SDK-style
// projects, an attribute. Property references are expanded.
func (i *Item) Metadata(name string) (string, bool) {
	if el := i.elem.FindElement(name); el != nil {
		return i.project.properties.Expand(strings.TrimSpace(el.Text())), true
	}
	if !strings.EqualFold(name, "Include") && !strings.EqualFold(name, "Condition") {
		if v, ok := i.elem.GetAttr(name); ok {
			return i.project.properties.Expand(v), true
		}
	}
	return "", false
}

// SetMetadata replaces a metadata value, adding a child element when the
// metadata is not present.
func (i *Item) SetMetadata(name, value string) {
	if el := i.elem.FindElement(name); el != nil {
		el.SetText(value)
	} else if _, ok := i.elem.GetAttr(name); ok && !strings.EqualFold(name, "Include") {
		i.elem.SetAttr(name, value)
	} else {
		el := NewElement(name)
		i.elem.AppendChild(el)
		el.SetText(value)
	}
	i.project.modified = true
}

// Condition returns the item's condition combined with its ItemGroup's.
func (i *Item) Condition() string {
	var parts []string
	if group := i.elem.Parent(); group != nil {
		if c, ok := group.GetAttr("Condition"); ok && strings.TrimSpace(c) != "" {
			parts = append(parts, "("+c+")")
		}
	}
	if c, ok := i.elem.GetAttr("Condition"); ok && strings.TrimSpace(c) != "" {
		parts = append(parts, "("+c+")")
	}
	return strings.Join(parts, " and ")
}

// ConditionMet evaluates Condition against the project's properties.
func (i *Item) ConditionMet() (bool, error) {
	return EvaluateCondition(i.Condition(), i.project.properties, i.project.Dir())
}
