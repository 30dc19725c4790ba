// Package license copies the ReductStore license resource into the workload container.
package license

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/go-logr/logr"

	"github.com/reductstore/reductstore-operator/internal/constants"
	operatorerrors "github.com/reductstore/reductstore-operator/internal/errors"
	"github.com/reductstore/reductstore-operator/internal/logging"
	"github.com/reductstore/reductstore-operator/internal/workload"
)

// Kind tags the outcome of Ensure.
type Kind int

const (
	// OK means the license is in place and the run layer may be declared.
	OK Kind = iota
	// ResourceMissing means the resource was never attached to the application.
	ResourceMissing
	// ResourceOther means the resource could not be fetched or read.
	ResourceOther
	// WorkloadUnavailable means Pebble could not be reached.
	WorkloadUnavailable
	// WorkloadWriteFailed means Pebble rejected the push.
	WorkloadWriteFailed
)

func (k Kind) String() string {
	switch k {
	case OK:
		return "OK"
	case ResourceMissing:
		return "ResourceMissing"
	case ResourceOther:
		return "ResourceOther"
	case WorkloadUnavailable:
		return "WorkloadUnavailable"
	case WorkloadWriteFailed:
		return "WorkloadWriteFailed"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Result is the tagged outcome of Ensure. Path is the destination inside the
// workload on success; Err carries the cause otherwise.
type Result struct {
	Kind Kind
	Path string
	Err  error

	detail string
}

// Ok reports whether callers may go on to declare the run layer.
func (r Result) Ok() bool {
	return r.Kind == OK
}

// Deferrable reports whether the triggering event should be re-delivered later.
func (r Result) Deferrable() bool {
	return r.Kind == WorkloadUnavailable || r.Kind == WorkloadWriteFailed
}

// BlockedMessage is the unit status message for the resource failures.
// It is empty for every other kind.
func (r Result) BlockedMessage() string {
	switch r.Kind {
	case ResourceMissing:
		return AttachMessage("")
	case ResourceOther:
		return AttachMessage(r.detail)
	default:
		return ""
	}
}

// AttachMessage asks the operator to attach the license resource, with an
// optional detail describing what went wrong.
func AttachMessage(detail string) string {
	if detail == "" {
		return fmt.Sprintf("Attach resource '%s'", constants.ResourceNameLicense)
	}
	return fmt.Sprintf("Attach resource '%s': %s", constants.ResourceNameLicense, detail)
}

// ResourceFetcher resolves a charm resource to a local file path.
// Implementations return an error wrapping ErrResourceMissing when the resource
// is not attached.
type ResourceFetcher interface {
	Fetch(ctx context.Context, name string) (string, error)
}

// Pusher fetches the license resource and pushes it into the workload.
type Pusher struct {
	Resources ResourceFetcher
	Log       logr.Logger

	// ReadFile defaults to os.ReadFile.
	ReadFile func(string) ([]byte, error)
}

// NewPusher returns a Pusher reading resources through fetcher.
func NewPusher(fetcher ResourceFetcher, log logr.Logger) *Pusher {
	return &Pusher{Resources: fetcher, Log: log, ReadFile: os.ReadFile}
}

// Ensure places the license at destination inside container. Pushing identical
// bytes again is harmless, so Ensure runs on every event that needs the license.
func (p *Pusher) Ensure(ctx context.Context, container workload.Container, destination string) Result {
	if !container.CanConnect(ctx) {
		return Result{Kind: WorkloadUnavailable, Err: operatorerrors.ErrWorkloadUnavailable}
	}

	src, err := p.Resources.Fetch(ctx, constants.ResourceNameLicense)
	if err != nil {
		if errors.Is(err, operatorerrors.ErrResourceMissing) {
			p.Log.Info("License resource missing", "error", err.Error())
			return Result{Kind: ResourceMissing, Err: err}
		}
		p.Log.Info("License resource error", "error", err.Error())
		return otherResult(err)
	}

	readFile := p.ReadFile
	if readFile == nil {
		readFile = os.ReadFile
	}
	data, err := readFile(src)
	if err != nil {
		p.Log.Info("License resource error", "error", err.Error())
		return otherResult(err)
	}

	err = container.Push(ctx, destination, data, constants.LicenseFileMode, constants.LicenseOwner, constants.LicenseOwner)
	if err != nil {
		p.Log.Error(err, "Failed to push license", "path", destination)
		if operatorerrors.IsWorkloadUnavailable(err) {
			return Result{Kind: WorkloadUnavailable, Err: err}
		}
		return Result{Kind: WorkloadWriteFailed, Err: operatorerrors.WrapWorkloadWriteFailed(err)}
	}

	logging.LogAuditEvent(p.Log, "LicensePushed", map[string]string{
		"path":  destination,
		"bytes": fmt.Sprint(len(data)),
	})
	return Result{Kind: OK, Path: destination}
}

func otherResult(err error) Result {
	return Result{Kind: ResourceOther, Err: operatorerrors.WrapResourceOther(err), detail: err.Error()}
}
