package relation

import (
	"context"
	"maps"
	"sync"
)

// FakeDatabags is an in-memory Databags and Leadership for tests. Relations are
// keyed by id; local writes land in Local (unit) and LocalApp (application).
type FakeDatabags struct {
	mu sync.Mutex

	Leader    bool
	Endpoints map[string][]string
	Remotes   map[string]string
	// Remote application databags, keyed by relation id.
	ProviderApp map[string]map[string]string

	Local    map[string]map[string]string
	LocalApp map[string]map[string]string

	SetErr error
}

// NewFakeDatabags returns a leader with no relations.
func NewFakeDatabags() *FakeDatabags {
	return &FakeDatabags{
		Leader:      true,
		Endpoints:   map[string][]string{},
		Remotes:     map[string]string{},
		ProviderApp: map[string]map[string]string{},
		Local:       map[string]map[string]string{},
		LocalApp:    map[string]map[string]string{},
	}
}

// AddRelation registers relation id on endpoint with the given remote application.
func (f *FakeDatabags) AddRelation(endpoint, id, remote string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Endpoints[endpoint] = append(f.Endpoints[endpoint], id)
	f.Remotes[id] = remote
}

func (f *FakeDatabags) IsLeader(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Leader, nil
}

func (f *FakeDatabags) RelationIDs(_ context.Context, endpoint string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Endpoints[endpoint]...), nil
}

func (f *FakeDatabags) RelationGet(_ context.Context, relationID, _ string, app bool) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !app {
		return map[string]string{}, nil
	}
	return maps.Clone(f.ProviderApp[relationID]), nil
}

func (f *FakeDatabags) RelationSet(_ context.Context, relationID string, app bool, data map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetErr != nil {
		return f.SetErr
	}
	target := f.Local
	if app {
		target = f.LocalApp
	}
	bag := target[relationID]
	if bag == nil {
		bag = map[string]string{}
		target[relationID] = bag
	}
	for k, v := range data {
		if v == "" {
			delete(bag, k)
			continue
		}
		bag[k] = v
	}
	return nil
}

func (f *FakeDatabags) RemoteApp(_ context.Context, relationID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Remotes[relationID], nil
}
