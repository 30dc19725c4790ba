package reductstore

import (
	"context"
	"time"

	"golang.org/x/time/rate"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	"k8s.io/client-go/util/workqueue"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/builder"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller"
	"sigs.k8s.io/controller-runtime/pkg/handler"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"
	gatewayv1 "sigs.k8s.io/gateway-api/apis/v1"

	reductv1alpha1 "github.com/reductstore/reductstore-operator/api/v1alpha1"
	"github.com/reductstore/reductstore-operator/internal/constants"
	controllerutil "github.com/reductstore/reductstore-operator/internal/controller"
)

// licenseSecretIndex indexes ReductStores by the name of their license Secret.
const licenseSecretIndex = ".spec.license.secretName"

// SetupWithManager registers the ReductStore controller. Owned objects trigger a
// pass when their observed state changes, and license Secrets are mapped back to
// the ReductStores that reference them.
func (r *ReductStoreReconciler) SetupWithManager(mgr ctrl.Manager) error {
	if err := mgr.GetFieldIndexer().IndexField(context.Background(), &reductv1alpha1.ReductStore{}, licenseSecretIndex, licenseSecretName); err != nil {
		return err
	}

	rateLimiter := workqueue.NewTypedMaxOfRateLimiter(
		workqueue.NewTypedItemExponentialFailureRateLimiter[ctrl.Request](1*time.Second, 60*time.Second),
		&workqueue.TypedBucketRateLimiter[ctrl.Request]{Limiter: rate.NewLimiter(rate.Limit(10), 100)},
	)

	b := ctrl.NewControllerManagedBy(mgr).
		For(&reductv1alpha1.ReductStore{}, builder.WithPredicates(controllerutil.ReductStorePredicate())).
		Owns(&appsv1.StatefulSet{}, builder.WithPredicates(controllerutil.StatefulSetReadyReplicasPredicate())).
		Owns(&corev1.Service{}).
		Owns(&corev1.ConfigMap{}).
		Owns(&networkingv1.Ingress{}, builder.WithPredicates(controllerutil.IngressAdmittedPredicate())).
		Watches(&corev1.Secret{}, handler.EnqueueRequestsFromMapFunc(r.reductStoresForSecret))

	if r.WatchHTTPRoutes {
		b = b.Owns(&gatewayv1.HTTPRoute{})
	}

	return b.
		WithOptions(controller.Options{
			MaxConcurrentReconciles: 1,
			RateLimiter:             rateLimiter,
		}).
		Named(constants.ControllerNameReductStore).
		Complete(r)
}

func licenseSecretName(obj client.Object) []string {
	rs, ok := obj.(*reductv1alpha1.ReductStore)
	if !ok || rs.Spec.License == nil || rs.Spec.License.SecretName == "" {
		return nil
	}
	return []string{rs.Spec.License.SecretName}
}

func (r *ReductStoreReconciler) reductStoresForSecret(ctx context.Context, obj client.Object) []reconcile.Request {
	list := &reductv1alpha1.ReductStoreList{}
	if err := r.List(ctx, list,
		client.InNamespace(obj.GetNamespace()),
		client.MatchingFields{licenseSecretIndex: obj.GetName()},
	); err != nil {
		ctrl.LoggerFrom(ctx).Error(err, "Failed to list ReductStores for license Secret", "secret", client.ObjectKeyFromObject(obj))
		return nil
	}

	requests := make([]reconcile.Request, 0, len(list.Items))
	for i := range list.Items {
		requests = append(requests, reconcile.Request{NamespacedName: client.ObjectKeyFromObject(&list.Items[i])})
	}
	return requests
}
