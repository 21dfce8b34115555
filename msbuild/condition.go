package msbuild

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"
)

// Properties is a case-insensitive MSBuild property table.
type Properties map[string]string

// NewProperties copies values into a property table.
func NewProperties(values map[string]string) Properties {
	props := make(Properties, len(values))
	for k, v := range values {
		props.Set(k, v)
	}
	return props
}

// Get returns a property value, or "" when undefined.
func (p Properties) Get(name string) string {
	return p[strings.ToLower(name)]
}

// Has reports whether the property is defined.
func (p Properties) Has(name string) bool {
	_, ok := p[strings.ToLower(name)]
	return ok
}

// Set defines a property.
func (p Properties) Set(name, value string) {
	p[strings.ToLower(name)] = value
}

// Expand substitutes $(Name) references. Undefined properties expand to the
// empty string; item (@) and metadata (%) references are left untouched.
func (p Properties) Expand(s string) string {
	if !strings.Contains(s, "$(") {
		return s
	}

	var b strings.Builder
	for {
		start := strings.Index(s, "$(")
		if start < 0 {
			b.WriteString(s)
			break
		}
		end := strings.IndexByte(s[start:], ')')
		if end < 0 {
			b.WriteString(s)
			break
		}
		b.WriteString(s[:start])
		b.WriteString(p.Get(strings.TrimSpace(s[start+2 : start+end])))
		s = s[start+end+1:]
	}
	return b.String()
}

// EvaluateCondition evaluates an MSBuild condition expression. An empty
// condition is true. Relative paths in Exists() resolve against baseDir.
//
// Supported: quoted and unquoted operands, == != < > <= >=, and, or, !,
// parentheses, Exists() and HasTrailingSlash(). String comparison is
// case-insensitive; ordering operators require numeric operands.
func EvaluateCondition(condition string, props Properties, baseDir string) (bool, error) {
	if strings.TrimSpace(condition) == "" {
		return true, nil
	}

	tokens, err := tokenize(condition)
	if err != nil {
		return false, fmt.Errorf("condition %q: %w", condition, err)
	}

	p := &conditionParser{tokens: tokens, props: props, baseDir: baseDir}
	result, err := p.parseOr()
	if err != nil {
		return false, fmt.Errorf("condition %q: %w", condition, err)
	}
	if p.pos != len(p.tokens) {
		return false, fmt.Errorf("condition %q: unexpected %q", condition, p.tokens[p.pos].text)
	}

	return result, nil
}

type tokenKind int

const (
	tokString tokenKind = iota // quoted
	tokWord                    // unquoted operand, keyword or function name
	tokOp                      // comparison operator
	tokNot
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind tokenKind
	text string
}

func tokenize(s string) ([]token, error) {
	var tokens []token
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			i++
		case c == '\'':
			end := strings.IndexByte(s[i+1:], '\'')
			if end < 0 {
				return nil, fmt.Errorf("unterminated string")
			}
			tokens = append(tokens, token{tokString, s[i+1 : i+1+end]})
			i += end + 2
		case c == '(':
			tokens = append(tokens, token{tokLParen, "("})
			i++
		case c == ')':
			tokens = append(tokens, token{tokRParen, ")"})
			i++
		case c == ',':
			tokens = append(tokens, token{tokComma, ","})
			i++
		case strings.HasPrefix(s[i:], "=="), strings.HasPrefix(s[i:], "!="),
			strings.HasPrefix(s[i:], "<="), strings.HasPrefix(s[i:], ">="):
			tokens = append(tokens, token{tokOp, s[i : i+2]})
			i += 2
		case c == '<' || c == '>':
			tokens = append(tokens, token{tokOp, string(c)})
			i++
		case c == '!':
			tokens = append(tokens, token{tokNot, "!"})
			i++
		case c == '$' && strings.HasPrefix(s[i:], "$("):
			end := strings.IndexByte(s[i:], ')')
			if end < 0 {
				return nil, fmt.Errorf("unterminated property reference")
			}
			tokens = append(tokens, token{tokWord, s[i : i+end+1]})
			i += end + 1
		default:
			start := i
			for i < len(s) && isWordChar(rune(s[i])) {
				i++
			}
			if start == i {
				return nil, fmt.Errorf("unexpected character %q", c)
			}
			tokens = append(tokens, token{tokWord, s[start:i]})
		}
	}
	return tokens, nil
}

func isWordChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '_' || r == '-' || r == '\\' || r == '/' || r == ':'
}

type conditionParser struct {
	tokens  []token
	pos     int
	props   Properties
	baseDir string
}

func (p *conditionParser) peek() *token {
	if p.pos < len(p.tokens) {
		return &p.tokens[p.pos]
	}
	return nil
}

func (p *conditionParser) keyword(word string) bool {
	t := p.peek()
	if t != nil && t.kind == tokWord && strings.EqualFold(t.text, word) {
		p.pos++
		return true
	}
	return false
}

func (p *conditionParser) parseOr() (bool, error) {
	left, err := p.parseAnd()
	if err != nil {
		return false, err
	}
	for p.keyword("or") {
		right, err := p.parseAnd()
		if err != nil {
			return false, err
		}
		left = left || right
	}
	return left, nil
}

func (p *conditionParser) parseAnd() (bool, error) {
	left, err := p.parseUnary()
	if err != nil {
		return false, err
	}
	for p.keyword("and") {
		right, err := p.parseUnary()
		if err != nil {
			return false, err
		}
		left = left && right
	}
	return left, nil
}

func (p *conditionParser) parseUnary() (bool, error) {
	if t := p.peek(); t != nil && t.kind == tokNot {
		p.pos++
		v, err := p.parseUnary()
		return !v, err
	}
	return p.parsePrimary()
}

func (p *conditionParser) parsePrimary() (bool, error) {
	t := p.peek()
	if t == nil {
		return false, fmt.Errorf("unexpected end of expression")
	}

	if t.kind == tokLParen {
		p.pos++
		v, err := p.parseOr()
		if err != nil {
			return false, err
		}
		if r := p.peek(); r == nil || r.kind != tokRParen {
			return false, fmt.Errorf("missing )")
		}
		p.pos++
		return v, nil
	}

	if t.kind == tokWord && p.pos+1 < len(p.tokens) && p.tokens[p.pos+1].kind == tokLParen && !strings.HasPrefix(t.text, "$(") {
		return p.parseFunction()
	}

	left, err := p.parseOperand()
	if err != nil {
		return false, err
	}

	op := p.peek()
	if op == nil || op.kind != tokOp {
		return toBool(left)
	}
	p.pos++

	right, err := p.parseOperand()
	if err != nil {
		return false, err
	}

	return compare(left, op.text, right)
}

func (p *conditionParser) parseOperand() (string, error) {
	t := p.peek()
	if t == nil || (t.kind != tokString && t.kind != tokWord) {
		return "", fmt.Errorf("expected operand")
	}
	p.pos++
	return p.props.Expand(t.text), nil
}

func (p *conditionParser) parseFunction() (bool, error) {
	name := p.tokens[p.pos].text
	p.pos += 2

	var args []string
	for {
		t := p.peek()
		if t == nil {
			return false, fmt.Errorf("missing ) after %s", name)
		}
		if t.kind == tokRParen {
			p.pos++
			break
		}
		if t.kind == tokComma {
			p.pos++
			continue
		}
		arg, err := p.parseOperand()
		if err != nil {
			return false, err
		}
		args = append(args, arg)
	}

	if len(args) != 1 {
		return false, fmt.Errorf("%s expects one argument", name)
	}

	switch strings.ToLower(name) {
	case "exists":
		path := strings.TrimSpace(args[0])
		if path == "" {
			return false, nil
		}
		path = filepath.FromSlash(strings.ReplaceAll(path, "\\", "/"))
		if !filepath.IsAbs(path) {
			path = filepath.Join(p.baseDir, path)
		}
		_, err := os.Stat(path)
		return err == nil, nil
	case "hastrailingslash":
		return strings.HasSuffix(args[0], "/") || strings.HasSuffix(args[0], "\\"), nil
	default:
		return false, fmt.Errorf("unsupported function %s", name)
	}
}

func toBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "on", "yes", "!false", "!off", "!no":
		return true, nil
	case "false", "off", "no", "!true", "!on", "!yes":
		return false, nil
	}
	return false, fmt.Errorf("%q is not a boolean", s)
}

func compare(left, op, right string) (bool, error) {
	switch op {
	case "==":
		return strings.EqualFold(left, right), nil
	case "!=":
		return !strings.EqualFold(left, right), nil
	}

	l, lerr := strconv.ParseFloat(strings.TrimSpace(left), 64)
	r, rerr := strconv.ParseFloat(strings.TrimSpace(right), 64)
	if lerr != nil || rerr != nil {
		return false, fmt.Errorf("%s requires numeric operands, got %q and %q", op, left, right)
	}

	switch op {
	case "<":
		return l < r, nil
	case ">":
		return l > r, nil
	case "<=":
		return l <= r, nil
	default:
		return l >= r, nil
	}
}
