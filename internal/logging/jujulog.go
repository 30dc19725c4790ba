package logging

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/go-logr/logr"
)

// Logger writes one line to the Juju unit log at a juju-log level.
type Logger interface {
	JujuLog(ctx context.Context, level, message string) error
}

// NewJujuLogger returns a logr.Logger forwarding to the juju-log hook tool.
// V(0) records are logged at INFO, V(1) and above at DEBUG, errors at ERROR.
// Records the tool refuses are written to fallback instead.
func NewJujuLogger(ctx context.Context, tool Logger, fallback io.Writer) logr.Logger {
	return logr.New(&jujuSink{ctx: ctx, tool: tool, fallback: fallback})
}

type jujuSink struct {
	ctx      context.Context
	tool     Logger
	fallback io.Writer
	name     string
	values   []any
}

func (s *jujuSink) Init(logr.RuntimeInfo) {}

func (s *jujuSink) Enabled(int) bool { return true }

func (s *jujuSink) Info(level int, msg string, keysAndValues ...any) {
	jujuLevel := "INFO"
	if level > 0 {
		jujuLevel = "DEBUG"
	}
	s.write(jujuLevel, msg, keysAndValues)
}

func (s *jujuSink) Error(err error, msg string, keysAndValues ...any) {
	if err != nil {
		keysAndValues = append([]any{"error", err.Error()}, keysAndValues...)
	}
	s.write("ERROR", msg, keysAndValues)
}

func (s *jujuSink) WithValues(keysAndValues ...any) logr.LogSink {
	out := *s
	out.values = append(append([]any(nil), s.values...), keysAndValues...)
	return &out
}

func (s *jujuSink) WithName(name string) logr.LogSink {
	out := *s
	if out.name == "" {
		out.name = name
	} else {
		out.name = out.name + "." + name
	}
	return &out
}

func (s *jujuSink) write(level, msg string, keysAndValues []any) {
	line := Format(s.name, msg, append(append([]any(nil), s.values...), keysAndValues...))
	if err := s.tool.JujuLog(s.ctx, level, line); err != nil && s.fallback != nil {
		fmt.Fprintf(s.fallback, "%s %s\n", level, line)
	}
}

// Format renders a record as "name: msg key=value ...". Values containing spaces are quoted.
func Format(name, msg string, keysAndValues []any) string {
	var b strings.Builder
	if name != "" {
		b.WriteString(name)
		b.WriteString(": ")
	}
	b.WriteString(msg)
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprint(keysAndValues[i])
		var value any = "(MISSING)"
		if i+1 < len(keysAndValues) {
			value = keysAndValues[i+1]
		}
		v := fmt.Sprint(value)
		if strings.ContainsAny(v, " \t\n\"") || v == "" {
			v = fmt.Sprintf("%q", v)
		}
		fmt.Fprintf(&b, " %s=%s", key, v)
	}
	return b.String()
}
