package nugetify

import (
	"context"
	"strings"
	"time"

	"go.trai.ch/zerr"
)

// AssemblyIdentity names an assembly. Version is empty when unknown.
type AssemblyIdentity struct {
	Name           string
	Version        string
	Culture        string
	PublicKeyToken string
}

// FullName returns the display form, e.g.
// "System.Xml, Version=4.0.0.0, Culture=neutral, PublicKeyToken=b77a5c561934e089".
func (a AssemblyIdentity) FullName() string {
	parts := []string{a.Name}
	if a.Version != "" {
		parts = append(parts, "Version="+a.Version)
	}
	if a.Culture != "" {
		parts = append(parts, "Culture="+a.Culture)
	}
	if a.PublicKeyToken != "" {
		parts = append(parts, "PublicKeyToken="+a.PublicKeyToken)
	}
	return strings.Join(parts, ", ")
}

// IsFullyQualified reports whether a Reference include is an assembly
// display name rather than a bare simple name.
func IsFullyQualified(include string) bool {
	return strings.Contains(include, ",")
}

// ParseAssemblyName parses an assembly display name. Unknown keys such as
// processorArchitecture are ignored.
func ParseAssemblyName(fullName string) AssemblyIdentity {
	parts := strings.Split(fullName, ",")
	id := AssemblyIdentity{Name: strings.TrimSpace(parts[0])}

	for _, part := range parts[1:] {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "version":
			id.Version = value
		case "culture":
			id.Culture = value
		case "publickeytoken":
			if !strings.EqualFold(value, "null") {
				id.PublicKeyToken = strings.ToLower(value)
			}
		}
	}
	return id
}

// IdentityProber reads the assembly identity of a binary on disk without
// loading it for execution.
type IdentityProber interface {
	ProbeFile(ctx context.Context, path string) (AssemblyIdentity, error)
}

// TimeoutProber bounds every probe of an inner prober. A probe that is still
// running when the deadline passes is abandoned.
type TimeoutProber struct {
	Prober  IdentityProber
	Timeout time.Duration
}

type probeResult struct {
	id  AssemblyIdentity
	err error
}

// ProbeFile runs the inner probe, giving up after Timeout.
func (p TimeoutProber) ProbeFile(ctx context.Context, path string) (AssemblyIdentity, error) {
	if p.Timeout <= 0 {
		return p.Prober.ProbeFile(ctx, path)
	}

	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	done := make(chan probeResult, 1)
	go func() {
		id, err := p.Prober.ProbeFile(ctx, path)
		done <- probeResult{id: id, err: err}
	}()

	select {
	case r := <-done:
		return r.id, r.err
	case <-ctx.Done():
		return AssemblyIdentity{}, zerr.With(zerr.Wrap(ErrProbeTimeout, ctx.Err().Error()), "path", path)
	}
}
