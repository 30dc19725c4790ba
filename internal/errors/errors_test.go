package errors

import (
	"errors"
	"fmt"
	"net"
	"testing"
	"time"
)

func TestCharmSentinels(t *testing.T) {
	base := errors.New("boom")

	tests := []struct {
		name        string
		err         error
		sentinel    error
		unavailable bool
		permanent   bool
	}{
		{"config invalid", WrapConfigInvalid(base), ErrConfigInvalid, false, true},
		{"resource missing", WrapResourceMissing(base), ErrResourceMissing, false, true},
		{"resource other", WrapResourceOther(base), ErrResourceOther, false, false},
		{"workload unavailable", WrapWorkloadUnavailable(base), ErrWorkloadUnavailable, true, false},
		{"workload write failed", WrapWorkloadWriteFailed(base), ErrWorkloadWriteFailed, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Fatalf("expected %v to wrap %v", tt.err, tt.sentinel)
			}
			if !errors.Is(tt.err, base) {
				t.Fatalf("expected %v to keep the cause", tt.err)
			}
			if got := IsWorkloadUnavailable(tt.err); got != tt.unavailable {
				t.Fatalf("IsWorkloadUnavailable() = %v, want %v", got, tt.unavailable)
			}
			if got := IsPermanent(tt.err); got != tt.permanent {
				t.Fatalf("IsPermanent() = %v, want %v", got, tt.permanent)
			}
		})
	}
}

func TestWrapNil(t *testing.T) {
	for name, wrap := range map[string]func(error) error{
		"config":      WrapConfigInvalid,
		"missing":     WrapResourceMissing,
		"other":       WrapResourceOther,
		"unavailable": WrapWorkloadUnavailable,
		"write":       WrapWorkloadWriteFailed,
		"kube":        WrapTransientKubernetesAPI,
		"permanent":   WrapPermanentConfig,
	} {
		if wrap(nil) != nil {
			t.Errorf("%s: expected nil for nil input", name)
		}
	}
}

func TestWrapWorkloadUnavailableIsIdempotent(t *testing.T) {
	err := WrapWorkloadUnavailable(errors.New("socket gone"))
	if again := WrapWorkloadUnavailable(err); again != err {
		t.Fatalf("expected already-wrapped error to be returned as-is")
	}
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "op timed out" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return false }

func TestIsTransientConnection(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"sentinel error", ErrTransientConnection, true},
		{"wrapped sentinel", fmt.Errorf("ctx: %w", ErrTransientConnection), true},
		{"workload unavailable", WrapWorkloadUnavailable(errors.New("x")), true},
		{"connection refused", errors.New("dial unix /charm/containers/reductstore/pebble.socket: connect: connection refused"), true},
		{"missing socket", errors.New("dial unix pebble.socket: connect: no such file or directory"), true},
		{"DNS error", &net.DNSError{Err: "no such host", Name: "example.test"}, true},
		{"timeout net.Error", timeoutError{}, true},
		{"permission denied", errors.New("permission denied"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransientConnection(tt.err); got != tt.want {
				t.Fatalf("IsTransientConnection() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShouldRequeue(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		requeue   bool
		wantDelay time.Duration
	}{
		{"nil", nil, false, 0},
		{"permanent config", WrapPermanentConfig(errors.New("bad")), false, 0},
		{"invalid log level", WrapConfigInvalid(errors.New("bad")), false, 0},
		{"transient kube", WrapTransientKubernetesAPI(errors.New("x")), true, 5 * time.Second},
		{"unknown", errors.New("something else"), true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requeue, delay := ShouldRequeue(tt.err)
			if requeue != tt.requeue || delay != tt.wantDelay {
				t.Fatalf("ShouldRequeue() = (%v, %v), want (%v, %v)", requeue, delay, tt.requeue, tt.wantDelay)
			}
		})
	}
}

func TestIsCRDMissingError(t *testing.T) {
	if !IsCRDMissingError(errors.New(`no matches for kind "HTTPRoute" in version "gateway.networking.k8s.io/v1"`)) {
		t.Fatalf("expected HTTPRoute no-match error to be detected")
	}
	if IsCRDMissingError(errors.New("forbidden")) {
		t.Fatalf("expected forbidden not to be a CRD missing error")
	}
}
