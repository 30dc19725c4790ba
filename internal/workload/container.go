package workload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/canonical/pebble/client"

	"github.com/reductstore/reductstore-operator/internal/constants"
	operatorerrors "github.com/reductstore/reductstore-operator/internal/errors"
)

// Container is the handle the charm uses to act on the workload container.
type Container interface {
	// CanConnect reports whether the container's Pebble API answers.
	CanConnect(ctx context.Context) bool
	// Push writes data to path, creating parent directories.
	Push(ctx context.Context, path string, data []byte, perm os.FileMode, user, group string) error
	// AddLayer adds or combines layer under label.
	AddLayer(ctx context.Context, label string, layer *Layer, combine bool) error
	// Replan asks Pebble to converge running services onto the current plan.
	Replan(ctx context.Context) error
}

// pebbleAPI is the subset of *client.Client used by PebbleContainer.
type pebbleAPI interface {
	SysInfo() (*client.SysInfo, error)
	Push(opts *client.PushOptions) error
	AddLayer(opts *client.AddLayerOptions) error
	Replan(opts *client.ServiceOptions) (string, error)
	WaitChange(id string, opts *client.WaitChangeOptions) (*client.Change, error)
}

// PebbleContainer implements Container over a Pebble unix socket.
type PebbleContainer struct {
	name string
	api  pebbleAPI
}

// SocketPath returns the Pebble socket mounted into the charm container for the named workload.
func SocketPath(container string) string {
	return fmt.Sprintf(constants.PebbleSocketPathFormat, container)
}

// NewPebbleContainer connects lazily to the Pebble socket of the named container.
func NewPebbleContainer(name string) (*PebbleContainer, error) {
	c, err := client.New(&client.Config{Socket: SocketPath(name)})
	if err != nil {
		return nil, fmt.Errorf("failed to create pebble client for %s: %w", name, err)
	}
	return &PebbleContainer{name: name, api: c}, nil
}

// Name returns the workload container name.
func (p *PebbleContainer) Name() string {
	return p.name
}

func (p *PebbleContainer) CanConnect(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	_, err := p.api.SysInfo()
	return err == nil
}

func (p *PebbleContainer) Push(ctx context.Context, path string, data []byte, perm os.FileMode, user, group string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := p.api.Push(&client.PushOptions{
		Source:      bytes.NewReader(data),
		Path:        path,
		MakeDirs:    true,
		Permissions: perm,
		User:        user,
		Group:       group,
	})
	if err != nil {
		return classify(fmt.Errorf("failed to push %s: %w", path, err))
	}
	return nil
}

func (p *PebbleContainer) AddLayer(ctx context.Context, label string, layer *Layer, combine bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := layer.Marshal()
	if err != nil {
		return err
	}
	err = p.api.AddLayer(&client.AddLayerOptions{
		Combine:   combine,
		Label:     label,
		LayerData: data,
	})
	if err != nil {
		return classify(fmt.Errorf("failed to add layer %q: %w", label, err))
	}
	return nil
}

func (p *PebbleContainer) Replan(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	changeID, err := p.api.Replan(&client.ServiceOptions{})
	if err != nil {
		return classify(fmt.Errorf("failed to replan: %w", err))
	}
	if changeID == "" {
		return nil
	}

	timeout := constants.PebbleReplanTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(deadline))
	}
	change, err := p.api.WaitChange(changeID, &client.WaitChangeOptions{Timeout: timeout})
	if err != nil {
		return classify(fmt.Errorf("failed to wait for replan change %s: %w", changeID, err))
	}
	if change.Err != "" {
		return operatorerrors.WrapWorkloadWriteFailed(fmt.Errorf("replan change %s failed: %s", changeID, change.Err))
	}
	return nil
}

// classify maps Pebble client failures onto the workload sentinels: transport
// problems mean the API is unavailable, API responses mean the request was rejected.
func classify(err error) error {
	var connErr client.ConnectionError
	if errors.As(err, &connErr) {
		return operatorerrors.WrapWorkloadUnavailable(err)
	}
	var apiErr *client.Error
	if errors.As(err, &apiErr) {
		return operatorerrors.WrapWorkloadWriteFailed(err)
	}
	if operatorerrors.IsTransientConnection(err) {
		return operatorerrors.WrapWorkloadUnavailable(err)
	}
	return operatorerrors.WrapWorkloadWriteFailed(err)
}
