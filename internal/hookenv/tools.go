package hookenv

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	operatorerrors "github.com/reductstore/reductstore-operator/internal/errors"
)

// Status names accepted by status-set.
const (
	StatusActive      = "active"
	StatusBlocked     = "blocked"
	StatusMaintenance = "maintenance"
	StatusWaiting     = "waiting"
)

// Log levels accepted by juju-log.
const (
	LevelDebug   = "DEBUG"
	LevelInfo    = "INFO"
	LevelWarning = "WARNING"
	LevelError   = "ERROR"
)

// Tools wraps the hook tools the charm needs.
type Tools struct {
	runner Runner
}

// NewTools returns Tools executing through runner.
func NewTools(runner Runner) *Tools {
	return &Tools{runner: runner}
}

// ConfigGet decodes the full charm configuration into out.
func (t *Tools) ConfigGet(ctx context.Context, out any) error {
	data, err := t.runner.Run(ctx, nil, "config-get", "--format=json", "--all")
	if err != nil {
		return fmt.Errorf("failed to read charm config: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode charm config: %w", err)
	}
	return nil
}

// Fetch returns the local path of the named resource. A resource-get failure means
// the resource is not attached and is reported as ErrResourceMissing.
func (t *Tools) Fetch(ctx context.Context, name string) (string, error) {
	out, err := t.runner.Run(ctx, nil, "resource-get", name)
	if err != nil {
		if IsToolError(err) {
			return "", operatorerrors.WrapResourceMissing(err)
		}
		return "", err
	}
	p := strings.TrimSpace(string(out))
	if p == "" {
		return "", fmt.Errorf("resource-get returned an empty path for %s", name)
	}
	return p, nil
}

// StatusSet sets the unit workload status.
func (t *Tools) StatusSet(ctx context.Context, status, message string) error {
	switch status {
	case StatusActive, StatusBlocked, StatusMaintenance, StatusWaiting:
	default:
		return fmt.Errorf("invalid status %q", status)
	}
	args := []string{status}
	if message != "" {
		args = append(args, message)
	}
	if _, err := t.runner.Run(ctx, nil, "status-set", args...); err != nil {
		return fmt.Errorf("failed to set status: %w", err)
	}
	return nil
}

// IsLeader reports whether this unit is the application leader.
func (t *Tools) IsLeader(ctx context.Context) (bool, error) {
	out, err := t.runner.Run(ctx, nil, "is-leader", "--format=json")
	if err != nil {
		return false, fmt.Errorf("failed to check leadership: %w", err)
	}
	var leader bool
	if err := json.Unmarshal(out, &leader); err != nil {
		return false, fmt.Errorf("failed to decode is-leader output: %w", err)
	}
	return leader, nil
}

// RelationIDs lists the ids of the relations established on the named endpoint.
func (t *Tools) RelationIDs(ctx context.Context, endpoint string) ([]string, error) {
	out, err := t.runner.Run(ctx, nil, "relation-ids", "--format=json", endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s relations: %w", endpoint, err)
	}
	var ids []string
	if err := json.Unmarshal(out, &ids); err != nil {
		return nil, fmt.Errorf("failed to decode relation-ids output: %w", err)
	}
	return ids, nil
}

// RelationGet reads a databag. With app set, member names an application and the
// application databag is returned; otherwise member names a unit.
func (t *Tools) RelationGet(ctx context.Context, relationID, member string, app bool) (map[string]string, error) {
	args := []string{"--format=json", "-r", relationID}
	if app {
		args = append(args, "--app")
	}
	args = append(args, "-", member)

	out, err := t.runner.Run(ctx, nil, "relation-get", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read relation %s data of %s: %w", relationID, member, err)
	}
	data := map[string]string{}
	trimmed := strings.TrimSpace(string(out))
	if trimmed == "" || trimmed == "null" {
		return data, nil
	}
	if err := json.Unmarshal([]byte(trimmed), &data); err != nil {
		return nil, fmt.Errorf("failed to decode relation data: %w", err)
	}
	return data, nil
}

// RelationSet writes data into this unit's (or, with app set, this application's)
// databag. An empty value deletes the key.
func (t *Tools) RelationSet(ctx context.Context, relationID string, app bool, data map[string]string) error {
	payload, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode relation data: %w", err)
	}
	args := []string{"-r", relationID}
	if app {
		args = append(args, "--app")
	}
	args = append(args, "--file", "-")

	if _, err := t.runner.Run(ctx, payload, "relation-set", args...); err != nil {
		return fmt.Errorf("failed to write relation %s data: %w", relationID, err)
	}
	return nil
}

// JujuLog writes message to the unit's debug log at level.
func (t *Tools) JujuLog(ctx context.Context, level, message string) error {
	_, err := t.runner.Run(ctx, nil, "juju-log", "--log-level", level, message)
	return err
}

// IngressAddress returns the address other applications should use to reach this
// unit over the named endpoint.
func (t *Tools) IngressAddress(ctx context.Context, endpoint string) (string, error) {
	out, err := t.runner.Run(ctx, nil, "network-get", "--format=json", "--ingress-address", endpoint)
	if err != nil {
		return "", fmt.Errorf("failed to get ingress address for %s: %w", endpoint, err)
	}
	var addr string
	if err := json.Unmarshal(out, &addr); err != nil {
		return "", fmt.Errorf("failed to decode network-get output: %w", err)
	}
	return addr, nil
}

// RemoteApp returns the name of the application on the other side of relationID.
func (t *Tools) RemoteApp(ctx context.Context, relationID string) (string, error) {
	out, err := t.runner.Run(ctx, nil, "relation-list", "--format=json", "--app", "-r", relationID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve remote application of %s: %w", relationID, err)
	}
	var app string
	if err := json.Unmarshal(out, &app); err != nil {
		return "", fmt.Errorf("failed to decode relation-list output: %w", err)
	}
	return app, nil
}
