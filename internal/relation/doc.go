// Package relation holds the relation-level interfaces shared by the ingress and
// catalogue protocol packages.
package relation

import "context"

// Databags reads and writes relation data. *hookenv.Tools implements it.
type Databags interface {
	RelationIDs(ctx context.Context, endpoint string) ([]string, error)
	RelationGet(ctx context.Context, relationID, member string, app bool) (map[string]string, error)
	RelationSet(ctx context.Context, relationID string, app bool, data map[string]string) error
	RemoteApp(ctx context.Context, relationID string) (string, error)
}

// Leadership reports whether this unit may write application databags.
type Leadership interface {
	IsLeader(ctx context.Context) (bool, error)
}
