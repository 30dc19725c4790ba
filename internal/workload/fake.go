package workload

import (
	"context"
	"os"
	"sync"
)

// PushedFile records one Push call against a FakeContainer.
type PushedFile struct {
	Data  []byte
	Perm  os.FileMode
	User  string
	Group string
}

// FakeContainer is an in-memory Container for tests of code that drives the workload.
type FakeContainer struct {
	mu sync.Mutex

	Connected bool
	PushErr   error
	LayerErr  error
	ReplanErr error

	// ReplanErrs is consumed one entry per Replan call before ReplanErr applies.
	ReplanErrs []error

	Files   map[string]PushedFile
	Layers  map[string]*Layer
	Replans int
}

// NewFakeContainer returns a reachable FakeContainer with no files and no layers.
func NewFakeContainer() *FakeContainer {
	return &FakeContainer{
		Connected: true,
		Files:     map[string]PushedFile{},
		Layers:    map[string]*Layer{},
	}
}

func (f *FakeContainer) CanConnect(context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

func (f *FakeContainer) Push(_ context.Context, path string, data []byte, perm os.FileMode, user, group string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PushErr != nil {
		return f.PushErr
	}
	f.Files[path] = PushedFile{Data: append([]byte(nil), data...), Perm: perm, User: user, Group: group}
	return nil
}

func (f *FakeContainer) AddLayer(_ context.Context, label string, layer *Layer, combine bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.LayerErr != nil {
		return f.LayerErr
	}
	if _, exists := f.Layers[label]; exists && !combine {
		return os.ErrExist
	}
	f.Layers[label] = layer
	return nil
}

func (f *FakeContainer) Replan(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.ReplanErrs) > 0 {
		err := f.ReplanErrs[0]
		f.ReplanErrs = f.ReplanErrs[1:]
		if err != nil {
			return err
		}
	} else if f.ReplanErr != nil {
		return f.ReplanErr
	}
	f.Replans++
	return nil
}
