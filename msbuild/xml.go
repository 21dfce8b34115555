package msbuild

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Node is a node of a project document: *Element, CharData, Comment,
// ProcInst or Directive.
type Node interface {
	isNode()
}

// CharData is text content, stored unescaped.
type CharData string

// Comment is the body of an XML comment.
type Comment string

// Directive is the body of a <!...> directive.
type Directive string

// ProcInst is a processing instruction such as the XML declaration.
type ProcInst struct {
	Target string
	Inst   string
}

// Element is an XML element. Name.Space holds the raw namespace prefix.
type Element struct {
	Name     xml.Name
	Attr     []xml.Attr
	Children []Node

	parent *Element
}

func (CharData) isNode()  {}
func (Comment) isNode()   {}
func (Directive) isNode() {}
func (ProcInst) isNode()  {}
func (*Element) isNode()  {}

// Document is a parsed project file that writes back byte-for-byte for
// every part that was not edited. Line breaks in text are held as "\n" and
// written with the document's own line ending.
type Document struct {
	Prolog []Node
	Root   *Element
	Epilog []Node

	// BOM is set when the source started with a byte order mark.
	BOM bool

	newline    string
	transcoded bool
}

var encodingDecl = regexp.MustCompile(`(?i)encoding\s*=\s*["']utf-16["']`)

// ParseDocument parses project XML. UTF-16 input is transcoded to UTF-8.
func ParseDocument(data []byte) (*Document, error) {
	doc := &Document{newline: "\n"}

	switch {
	case bytes.HasPrefix(data, utf8BOM):
		doc.BOM = true
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}), bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		doc.BOM = true
		doc.transcoded = true
	}

	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	if err != nil {
		return nil, fmt.Errorf("decode project text: %w", err)
	}
	if bytes.Contains(decoded, []byte("\r\n")) {
		doc.newline = "\r\n"
	}

	dec := xml.NewDecoder(bytes.NewReader(decoded))
	dec.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	var stack []*Element
	add := func(n Node) {
		switch {
		case len(stack) > 0:
			stack[len(stack)-1].Children = append(stack[len(stack)-1].Children, n)
		case doc.Root == nil:
			doc.Prolog = append(doc.Prolog, n)
		default:
			doc.Epilog = append(doc.Epilog, n)
		}
	}

	for {
		tok, err := dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse project XML: %w", err)
		}

		switch t := xml.CopyToken(tok).(type) {
		case xml.StartElement:
			el := &Element{Name: t.Name, Attr: t.Attr}
			if len(stack) == 0 {
				if doc.Root != nil {
					return nil, fmt.Errorf("parse project XML: multiple root elements")
				}
				doc.Root = el
			} else {
				el.parent = stack[len(stack)-1]
				add(el)
			}
			stack = append(stack, el)
		case xml.EndElement:
			if len(stack) == 0 || stack[len(stack)-1].Name != t.Name {
				return nil, fmt.Errorf("parse project XML: unexpected </%s>", qualified(t.Name))
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			add(CharData(t))
		case xml.Comment:
			add(Comment(t))
		case xml.ProcInst:
			add(ProcInst{Target: t.Target, Inst: string(t.Inst)})
		case xml.Directive:
			add(Directive(t))
		}
	}

	if len(stack) > 0 {
		return nil, fmt.Errorf("parse project XML: unclosed <%s>", qualified(stack[len(stack)-1].Name))
	}
	if doc.Root == nil {
		return nil, fmt.Errorf("parse project XML: no root element")
	}

	return doc, nil
}

// Bytes serializes the document.
func (d *Document) Bytes() []byte {
	var buf bytes.Buffer
	if d.BOM {
		buf.Write(utf8BOM)
	}
	for _, n := range d.Prolog {
		d.writeNode(&buf, n)
	}
	d.writeNode(&buf, d.Root)
	for _, n := range d.Epilog {
		d.writeNode(&buf, n)
	}
	return buf.Bytes()
}

func (d *Document) writeNode(buf *bytes.Buffer, n Node) {
	switch t := n.(type) {
	case CharData:
		text := escapeText(string(t))
		if d.newline != "\n" {
			text = strings.ReplaceAll(text, "\n", d.newline)
		}
		buf.WriteString(text)
	case Comment:
		buf.WriteString("<!--")
		buf.WriteString(string(t))
		buf.WriteString("-->")
	case Directive:
		buf.WriteString("<!")
		buf.WriteString(string(t))
		buf.WriteString(">")
	case ProcInst:
		inst := t.Inst
		if d.transcoded && t.Target == "xml" {
			inst = encodingDecl.ReplaceAllString(inst, `encoding="utf-8"`)
		}
		buf.WriteString("<?")
		buf.WriteString(t.Target)
		if inst != "" {
			buf.WriteString(" ")
			buf.WriteString(inst)
		}
		buf.WriteString("?>")
	case *Element:
		buf.WriteString("<")
		buf.WriteString(qualified(t.Name))
		for _, a := range t.Attr {
			buf.WriteString(" ")
			buf.WriteString(qualified(a.Name))
			buf.WriteString(`="`)
			buf.WriteString(escapeAttr(a.Value))
			buf.WriteString(`"`)
		}
		if len(t.Children) == 0 {
			buf.WriteString(" />")
			return
		}
		buf.WriteString(">")
		for _, c := range t.Children {
			d.writeNode(buf, c)
		}
		buf.WriteString("</")
		buf.WriteString(qualified(t.Name))
		buf.WriteString(">")
	}
}

func qualified(name xml.Name) string {
	if name.Space == "" {
		return name.Local
	}
	return name.Space + ":" + name.Local
}

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
)

func escapeText(s string) string { return textEscaper.Replace(s) }
func escapeAttr(s string) string { return attrEscaper.Replace(s) }

// NewElement creates a detached element.
func NewElement(name string) *Element {
	return &Element{Name: xml.Name{Local: name}}
}

// Tag returns the element's local name.
func (e *Element) Tag() string {
	return e.Name.Local
}

// Parent returns the containing element, or nil for the root.
func (e *Element) Parent() *Element {
	return e.parent
}

// GetAttr returns an attribute value, matching the name case-insensitively.
func (e *Element) GetAttr(name string) (string, bool) {
	for _, a := range e.Attr {
		if a.Name.Space == "" && strings.EqualFold(a.Name.Local, name) {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttr sets or adds an attribute.
func (e *Element) SetAttr(name, value string) {
	for i, a := range e.Attr {
		if a.Name.Space == "" && strings.EqualFold(a.Name.Local, name) {
			e.Attr[i].Value = value
			return
		}
	}
	e.Attr = append(e.Attr, xml.Attr{Name: xml.Name{Local: name}, Value: value})
}

// Elements returns the child elements in document order.
func (e *Element) Elements() []*Element {
	var out []*Element
	for _, c := range e.Children {
		if el, ok := c.(*Element); ok {
			out = append(out, el)
		}
	}
	return out
}

// FindElement returns the first child element with the given local name.
func (e *Element) FindElement(name string) *Element {
	for _, el := range e.Elements() {
		if strings.EqualFold(el.Name.Local, name) {
			return el
		}
	}
	return nil
}

// Text returns the concatenated character data of the element.
func (e *Element) Text() string {
	var b strings.Builder
	for _, c := range e.Children {
		if cd, ok := c.(CharData); ok {
			b.WriteString(string(cd))
		}
	}
	return b.String()
}

// SetText replaces the element's content with text.
func (e *Element) SetText(text string) {
	e.Children = []Node{CharData(text)}
}

// AppendChild adds child as the last element, indented like its siblings.
func (e *Element) AppendChild(child *Element) {
	indent := e.childIndent()
	closing := e.indent()

	if n := len(e.Children); n > 0 {
		if cd, ok := e.Children[n-1].(CharData); ok && strings.TrimSpace(string(cd)) == "" {
			e.Children = e.Children[:n-1]
		}
	}

	child.parent = e
	e.Children = append(e.Children, CharData("\n"+indent), child, CharData("\n"+closing))
}

// RemoveChild detaches child together with the whitespace that precedes it.
func (e *Element) RemoveChild(child *Element) bool {
	for i, c := range e.Children {
		if c != Node(child) {
			continue
		}

		start := i
		if i > 0 {
			if cd, ok := e.Children[i-1].(CharData); ok && strings.TrimSpace(string(cd)) == "" {
				start = i - 1
			}
		}
		e.Children = append(e.Children[:start], e.Children[i+1:]...)
		child.parent = nil
		return true
	}
	return false
}

// indent returns the whitespace that starts the element's own line.
func (e *Element) indent() string {
	if e.parent == nil {
		return ""
	}
	for i, c := range e.parent.Children {
		if c != Node(e) {
			continue
		}
		if i > 0 {
			if cd, ok := e.parent.Children[i-1].(CharData); ok {
				return lineIndent(string(cd))
			}
		}
		break
	}
	return e.parent.indent() + "  "
}

func (e *Element) childIndent() string {
	for i, c := range e.Children {
		if _, ok := c.(*Element); !ok {
			continue
		}
		if i > 0 {
			if cd, ok := e.Children[i-1].(CharData); ok && strings.Contains(string(cd), "\n") {
				return lineIndent(string(cd))
			}
		}
		break
	}
	return e.indent() + "  "
}

// lineIndent returns the trailing whitespace after the last newline.
func lineIndent(s string) string {
	if i := strings.LastIndex(s, "\n"); i >= 0 {
		s = s[i+1:]
	}
	if strings.TrimSpace(s) != "" {
		return ""
	}
	return s
}

// insertAfter places child after sibling on its own line at sibling's indent.
func (e *Element) insertAfter(sibling, child *Element) {
	for i, c := range e.Children {
		if c != Node(sibling) {
			continue
		}
		child.parent = e
		tail := append([]Node{CharData("\n" + sibling.indent()), child}, e.Children[i+1:]...)
		e.Children = append(e.Children[:i+1], tail...)
		return
	}
	e.AppendChild(child)
}
