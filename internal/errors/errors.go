package errors

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// Charm-side failures. Each maps to exactly one unit status outcome.

// ErrConfigInvalid indicates a charm configuration value the workload cannot run with.
// The unit is Blocked until the operator changes the configuration.
var ErrConfigInvalid = errors.New("invalid configuration")

// ErrResourceMissing indicates the license resource was never attached to the application.
var ErrResourceMissing = errors.New("resource not attached")

// ErrResourceOther indicates the license resource could not be fetched or read for a
// reason other than it being absent.
var ErrResourceOther = errors.New("resource unavailable")

// ErrWorkloadUnavailable indicates the workload container's Pebble API cannot be reached.
// The triggering event is deferred and the unit shows Maintenance.
var ErrWorkloadUnavailable = errors.New("workload API unavailable")

// ErrWorkloadWriteFailed indicates Pebble was reachable but rejected a file push.
// The triggering event is deferred and the status is left untouched.
var ErrWorkloadWriteFailed = errors.New("workload write failed")

// Transient errors indicate temporary conditions that should be retried.
// These errors typically result in requeue with a delay.

// ErrTransientConnection indicates a transient connection error that should be retried.
var ErrTransientConnection = errors.New("transient connection error")

// ErrTransientKubernetesAPI indicates a transient Kubernetes API error that should be retried.
var ErrTransientKubernetesAPI = errors.New("transient Kubernetes API error")

// ErrPermanentConfig indicates a permanent configuration error that requires user intervention.
var ErrPermanentConfig = errors.New("permanent configuration error")

// WrapConfigInvalid wraps an error as a configuration error.
func WrapConfigInvalid(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrConfigInvalid) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrConfigInvalid, err)
}

// WrapResourceMissing wraps an error as a missing resource error.
func WrapResourceMissing(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrResourceMissing, err)
}

// WrapResourceOther wraps an error as a resource fetch/read error.
func WrapResourceOther(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrResourceOther, err)
}

// WrapWorkloadUnavailable wraps an error as a workload connectivity error.
func WrapWorkloadUnavailable(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrWorkloadUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrWorkloadUnavailable, err)
}

// WrapWorkloadWriteFailed wraps an error as a rejected workload write.
func WrapWorkloadWriteFailed(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrWorkloadWriteFailed, err)
}

// IsWorkloadUnavailable reports whether err means the workload API could not be reached.
func IsWorkloadUnavailable(err error) bool {
	return errors.Is(err, ErrWorkloadUnavailable)
}

// IsTransientConnection checks if an error is a transient connection error.
// This includes network timeouts, connection refused, DNS failures, and similar issues.
func IsTransientConnection(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrTransientConnection) || errors.Is(err, ErrWorkloadUnavailable) {
		return true
	}

	errStr := strings.ToLower(err.Error())

	transientPatterns := []string{
		"connection refused",
		"connection reset",
		"context deadline exceeded",
		"timeout",
		"no such host",
		"network is unreachable",
		"no such file or directory",
		"broken pipe",
	}

	for _, pattern := range transientPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// IsTransientKubernetesAPI checks if an error is a transient Kubernetes API error.
func IsTransientKubernetesAPI(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrTransientKubernetesAPI) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"rate limit",
		"too many requests",
		"service unavailable",
		"internal server error",
		"context deadline exceeded",
		"timeout",
	} {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

// WrapTransientKubernetesAPI wraps an error as a transient Kubernetes API error.
func WrapTransientKubernetesAPI(err error) error {
	if err == nil {
		return nil
	}

	if IsTransientKubernetesAPI(err) {
		return err
	}

	return fmt.Errorf("%w: %w", ErrTransientKubernetesAPI, err)
}

// WrapPermanentConfig wraps an error as a permanent configuration error.
func WrapPermanentConfig(err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%w: %w", ErrPermanentConfig, err)
}

// IsTransient checks if an error is transient (should be retried).
func IsTransient(err error) bool {
	return IsTransientConnection(err) || IsTransientKubernetesAPI(err)
}

// IsPermanent checks if an error is permanent (requires user intervention).
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}

	return errors.Is(err, ErrPermanentConfig) ||
		errors.Is(err, ErrConfigInvalid) ||
		errors.Is(err, ErrResourceMissing)
}

// ShouldRequeue determines if an error should trigger a requeue.
// Returns (shouldRequeue, requeueAfter).
func ShouldRequeue(err error) (bool, time.Duration) {
	if err == nil {
		return false, 0
	}

	if IsPermanent(err) {
		return false, 0
	}

	if IsTransient(err) {
		return true, 5 * time.Second
	}

	// Unknown errors fall back to the work queue's exponential backoff.
	return true, 0
}

// IsCRDMissingError checks if an error indicates that a CRD is not installed.
func IsCRDMissingError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "no matches for kind") ||
		strings.Contains(errStr, "no kind is registered for the type") ||
		strings.Contains(errStr, "could not find the requested resource")
}
