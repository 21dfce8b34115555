package observability

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// LogEvent is one message captured by a MemoryLogger.
type LogEvent struct {
	Level      LogLevel
	Template   string
	Args       []any
	Properties map[string]any
}

// Message renders the template, substituting each {Name} hole with the
// next argument.
func (e LogEvent) Message() string {
	var b strings.Builder
	rest := e.Template
	next := 0
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			break
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			break
		}
		b.WriteString(rest[:open])
		if next < len(e.Args) {
			fmt.Fprint(&b, e.Args[next])
			next++
		} else {
			b.WriteString(rest[open : open+end+1])
		}
		rest = rest[open+end+1:]
	}
	b.WriteString(rest)
	return b.String()
}

// MemoryLogger records events in memory. Child loggers created with
// ForContext share the parent's event list.
type MemoryLogger struct {
	store *eventStore
	props map[string]any
}

type eventStore struct {
	mu     sync.Mutex
	events []LogEvent
}

// NewMemoryLogger creates an empty MemoryLogger.
func NewMemoryLogger() *MemoryLogger {
	return &MemoryLogger{store: &eventStore{}}
}

// Events returns the captured events in order.
func (m *MemoryLogger) Events() []LogEvent {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	return append([]LogEvent(nil), m.store.events...)
}

// Messages returns the rendered messages logged at level.
func (m *MemoryLogger) Messages(level LogLevel) []string {
	var out []string
	for _, e := range m.Events() {
		if e.Level == level {
			out = append(out, e.Message())
		}
	}
	return out
}

func (m *MemoryLogger) record(level LogLevel, template string, args []any) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.store.events = append(m.store.events, LogEvent{
		Level:      level,
		Template:   template,
		Args:       args,
		Properties: m.props,
	})
}

func (m *MemoryLogger) Verbose(t string, args ...any) { m.record(VerboseLevel, t, args) }
func (m *MemoryLogger) Debug(t string, args ...any)   { m.record(DebugLevel, t, args) }
func (m *MemoryLogger) Info(t string, args ...any)    { m.record(InfoLevel, t, args) }
func (m *MemoryLogger) Warn(t string, args ...any)    { m.record(WarnLevel, t, args) }
func (m *MemoryLogger) Error(t string, args ...any)   { m.record(ErrorLevel, t, args) }
func (m *MemoryLogger) Fatal(t string, args ...any)   { m.record(FatalLevel, t, args) }

func (m *MemoryLogger) VerboseContext(_ context.Context, t string, args ...any) {
	m.record(VerboseLevel, t, args)
}
func (m *MemoryLogger) DebugContext(_ context.Context, t string, args ...any) {
	m.record(DebugLevel, t, args)
}
func (m *MemoryLogger) InfoContext(_ context.Context, t string, args ...any) {
	m.record(InfoLevel, t, args)
}
func (m *MemoryLogger) WarnContext(_ context.Context, t string, args ...any) {
	m.record(WarnLevel, t, args)
}
func (m *MemoryLogger) ErrorContext(_ context.Context, t string, args ...any) {
	m.record(ErrorLevel, t, args)
}
func (m *MemoryLogger) FatalContext(_ context.Context, t string, args ...any) {
	m.record(FatalLevel, t, args)
}

// ForContext returns a child logger carrying an extra property.
func (m *MemoryLogger) ForContext(key string, value any) Logger {
	props := make(map[string]any, len(m.props)+1)
	for k, v := range m.props {
		props[k] = v
	}
	props[key] = value
	return &MemoryLogger{store: m.store, props: props}
}

// WithProperty is an alias for ForContext.
func (m *MemoryLogger) WithProperty(key string, value any) Logger {
	return m.ForContext(key, value)
}
