package infra

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"

	reductv1alpha1 "github.com/reductstore/reductstore-operator/api/v1alpha1"
	"github.com/reductstore/reductstore-operator/internal/constants"
	operatorerrors "github.com/reductstore/reductstore-operator/internal/errors"
	"github.com/reductstore/reductstore-operator/internal/relation/catalogue"
	"github.com/reductstore/reductstore-operator/internal/workload"
)

// Manager reconciles the Services, StatefulSet, exposure objects and catalogue
// ConfigMap that back a ReductStore.
type Manager struct {
	client client.Client
	scheme *runtime.Scheme
}

// NewManager constructs a Manager that uses the provided Kubernetes client.
// The scheme is used to set OwnerReferences on created resources for garbage collection.
func NewManager(c client.Client, scheme *runtime.Scheme) *Manager {
	return &Manager{
		client: c,
		scheme: scheme,
	}
}

// Desired carries the values the controller derives before calling Reconcile.
type Desired struct {
	// Settings are the validated run-layer inputs; the container environment is built from them.
	Settings workload.Settings
	// LicenseHash identifies the current license Secret content.
	LicenseHash string
	// Catalogue is the entry published in the catalogue ConfigMap.
	Catalogue catalogue.Item
}

// Reconcile applies every resource for rs.
//
// A missing Gateway API installation does not stop the remaining resources from
// being applied; ErrGatewayAPIMissing is returned once everything else is in place.
func (m *Manager) Reconcile(ctx context.Context, logger logr.Logger, rs *reductv1alpha1.ReductStore, desired Desired) error {
	if err := m.ensureHeadlessService(ctx, rs); err != nil {
		return err
	}

	if err := m.ensureClientService(ctx, rs); err != nil {
		return err
	}

	if err := m.ensureIngress(ctx, logger, rs, desired.Settings.APIBasePath); err != nil {
		return err
	}

	gatewayErr := m.ensureHTTPRoute(ctx, logger, rs, desired.Settings.APIBasePath)
	if gatewayErr != nil && !errors.Is(gatewayErr, ErrGatewayAPIMissing) {
		return gatewayErr
	}

	if err := m.ensureCatalogueConfigMap(ctx, rs, desired.Catalogue); err != nil {
		return err
	}

	if err := m.ensureStatefulSet(ctx, logger, rs, desired); err != nil {
		return err
	}

	return gatewayErr
}

// applyResource uses Server-Side Apply to create or update a Kubernetes resource.
//
// The resource must have TypeMeta, ObjectMeta (with Name and Namespace), and the desired Spec set.
// The ReductStore becomes the controlling owner so deleting it garbage-collects the resource.
func (m *Manager) applyResource(ctx context.Context, obj client.Object, rs *reductv1alpha1.ReductStore) error {
	if err := controllerutil.SetControllerReference(rs, obj, m.scheme); err != nil {
		return fmt.Errorf("failed to set owner reference: %w", err)
	}

	patchOpts := []client.PatchOption{
		client.ForceOwnership,
		client.FieldOwner(constants.FieldOwner),
	}

	if err := m.client.Patch(ctx, obj, client.Apply, patchOpts...); err != nil {
		if operatorerrors.IsTransientKubernetesAPI(err) || apierrors.IsConflict(err) {
			return operatorerrors.WrapTransientKubernetesAPI(fmt.Errorf("failed to apply resource %s/%s: %w", obj.GetNamespace(), obj.GetName(), err))
		}
		return fmt.Errorf("failed to apply resource %s/%s: %w", obj.GetNamespace(), obj.GetName(), err)
	}

	return nil
}

// deleteIfExists removes the named object, treating a missing object or a missing
// CRD as already deleted. It reports whether a delete was issued.
func (m *Manager) deleteIfExists(ctx context.Context, obj client.Object, namespace, name string) (bool, error) {
	err := m.client.Get(ctx, types.NamespacedName{Namespace: namespace, Name: name}, obj)
	if err != nil {
		if apierrors.IsNotFound(err) || operatorerrors.IsCRDMissingError(err) {
			return false, nil
		}
		return false, err
	}

	if err := m.client.Delete(ctx, obj); err != nil && !apierrors.IsNotFound(err) {
		return false, err
	}
	return true, nil
}

func infraLabels(rs *reductv1alpha1.ReductStore) map[string]string {
	return map[string]string{
		constants.LabelAppName:             constants.LabelValueAppNameReductStore,
		constants.LabelAppInstance:         rs.Name,
		constants.LabelAppManagedBy:        constants.LabelValueAppManagedByReductStoreOperator,
		constants.LabelReductStoreInstance: rs.Name,
	}
}

func componentLabels(rs *reductv1alpha1.ReductStore, component string) map[string]string {
	labels := infraLabels(rs)
	labels[constants.LabelAppComponent] = component
	return labels
}

func podSelectorLabels(rs *reductv1alpha1.ReductStore) map[string]string {
	return map[string]string{
		constants.LabelAppName:             constants.LabelValueAppNameReductStore,
		constants.LabelReductStoreInstance: rs.Name,
	}
}

func headlessServiceName(rs *reductv1alpha1.ReductStore) string {
	return rs.Name + constants.SuffixHeadlessService
}

func clientServiceName(rs *reductv1alpha1.ReductStore) string {
	return rs.Name
}

func statefulSetName(rs *reductv1alpha1.ReductStore) string {
	return rs.Name
}

func ingressName(rs *reductv1alpha1.ReductStore) string {
	return rs.Name
}

func httpRouteName(rs *reductv1alpha1.ReductStore) string {
	return rs.Name + constants.SuffixHTTPRoute
}

// CatalogueConfigMapName returns the name of the ConfigMap carrying the catalogue item.
func CatalogueConfigMapName(rs *reductv1alpha1.ReductStore) string {
	return rs.Name + constants.SuffixCatalogue
}

// ServiceAddress returns the in-cluster base address of the client Service.
func ServiceAddress(rs *reductv1alpha1.ReductStore) string {
	return fmt.Sprintf("http://%s.%s.svc:%d", clientServiceName(rs), rs.Namespace, constants.PortHTTP)
}
