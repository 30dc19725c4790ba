package hookenv

import (
	"context"
	"strings"
	"sync"
)

// Call records one hook tool invocation made through a FakeRunner.
type Call struct {
	Tool  string
	Args  []string
	Stdin string
}

// FakeRunner is a Runner for tests. Responses are keyed by tool name, or by tool name
// and space-joined arguments for a more specific match.
type FakeRunner struct {
	mu        sync.Mutex
	Calls     []Call
	Responses map[string][]byte
	Errors    map[string]error
}

// NewFakeRunner returns an empty FakeRunner.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{Responses: map[string][]byte{}, Errors: map[string]error{}}
}

func (f *FakeRunner) Run(_ context.Context, stdin []byte, tool string, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls = append(f.Calls, Call{Tool: tool, Args: append([]string(nil), args...), Stdin: string(stdin)})

	full := tool + " " + strings.Join(args, " ")
	if err, ok := f.Errors[full]; ok {
		return nil, err
	}
	if err, ok := f.Errors[tool]; ok {
		return nil, err
	}
	if out, ok := f.Responses[full]; ok {
		return out, nil
	}
	return f.Responses[tool], nil
}

// CallsTo returns the recorded calls of one tool.
func (f *FakeRunner) CallsTo(tool string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Call
	for _, c := range f.Calls {
		if c.Tool == tool {
			out = append(out, c)
		}
	}
	return out
}
