package reductstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/types"

	reductv1alpha1 "github.com/reductstore/reductstore-operator/api/v1alpha1"
	operatorerrors "github.com/reductstore/reductstore-operator/internal/errors"
	"github.com/reductstore/reductstore-operator/internal/kube"
	"github.com/reductstore/reductstore-operator/internal/license"
)

// licenseState is the outcome of looking up the license Secret. detail explains
// why a missing license cannot be used.
type licenseState struct {
	hash    string
	detail  string
	missing bool
}

func (l licenseState) ok() bool {
	return !l.missing
}

func (l licenseState) message() string {
	return license.AttachMessage(l.detail)
}

// readLicense looks up the Secret named by spec.license. Only Kubernetes API
// failures are returned as errors.
func (r *ReductStoreReconciler) readLicense(ctx context.Context, rs *reductv1alpha1.ReductStore) (licenseState, error) {
	src := rs.Spec.License
	if src == nil || src.SecretName == "" {
		return licenseState{missing: true, detail: "spec.license.secretName is not set"}, nil
	}

	key := src.Key
	if key == "" {
		key = reductv1alpha1.DefaultLicenseKey
	}

	data, err := kube.SecretValue(ctx, r.Client, rs.Namespace, src.SecretName, key)
	switch {
	case errors.Is(err, kube.ErrSecretNotFound):
		return licenseState{missing: true, detail: fmt.Sprintf("Secret %s not found", src.SecretName)}, nil
	case errors.Is(err, kube.ErrSecretKeyMissing):
		return licenseState{missing: true, detail: fmt.Sprintf("Secret %s has no key %q", src.SecretName, key)}, nil
	case err != nil:
		return licenseState{}, operatorerrors.WrapTransientKubernetesAPI(fmt.Errorf("failed to read license for ReductStore %s/%s: %w", rs.Namespace, rs.Name, err))
	}

	sum := sha256.Sum256(data)
	return licenseState{hash: hex.EncodeToString(sum[:])[:16]}, nil
}

// readyReplicas returns the ready replica count of the managed StatefulSet, or 0
// when it does not exist yet.
func (r *ReductStoreReconciler) readyReplicas(ctx context.Context, rs *reductv1alpha1.ReductStore) (int32, error) {
	sts := &appsv1.StatefulSet{}
	if err := r.Get(ctx, types.NamespacedName{Namespace: rs.Namespace, Name: rs.Name}, sts); err != nil {
		if apierrors.IsNotFound(err) {
			return 0, nil
		}
		return 0, operatorerrors.WrapTransientKubernetesAPI(fmt.Errorf("failed to get StatefulSet %s/%s: %w", rs.Namespace, rs.Name, err))
	}
	return sts.Status.ReadyReplicas, nil
}
