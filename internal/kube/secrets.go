// Package kube provides Kubernetes-specific utilities and helpers.
package kube

import (
	"context"
	"errors"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

var (
	// ErrSecretNotFound is returned when the referenced Secret does not exist.
	ErrSecretNotFound = errors.New("secret not found")
	// ErrSecretKeyMissing is returned when the Secret exists but the key is absent or empty.
	ErrSecretKeyMissing = errors.New("secret key missing")
)

// SecretValue loads a single data key from a Secret. The Secret must live in
// namespace; cross-namespace references are not allowed.
//
// A missing Secret or key is reported through ErrSecretNotFound and
// ErrSecretKeyMissing so callers can tell user mistakes from API failures.
func SecretValue(ctx context.Context, c client.Reader, namespace, name, key string) ([]byte, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: no Secret name given", ErrSecretNotFound)
	}

	secret := &corev1.Secret{}
	if err := c.Get(ctx, types.NamespacedName{Namespace: namespace, Name: name}, secret); err != nil {
		if apierrors.IsNotFound(err) {
			return nil, fmt.Errorf("%w: Secret %s not found", ErrSecretNotFound, name)
		}
		return nil, fmt.Errorf("failed to get Secret %s/%s: %w", namespace, name, err)
	}

	v, ok := secret.Data[key]
	if !ok || len(v) == 0 {
		return nil, fmt.Errorf("%w: Secret %s has no key %q", ErrSecretKeyMissing, name, key)
	}
	return v, nil
}
