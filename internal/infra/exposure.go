package infra

import (
	"context"
	"fmt"
	"strings"

	networkingv1 "k8s.io/api/networking/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/apimachinery/pkg/types"
	gatewayv1 "sigs.k8s.io/gateway-api/apis/v1"

	reductv1alpha1 "github.com/reductstore/reductstore-operator/api/v1alpha1"
	operatorerrors "github.com/reductstore/reductstore-operator/internal/errors"
	"github.com/reductstore/reductstore-operator/internal/urls"
)

// Exposure is the observed state of the external route to a ReductStore.
type Exposure struct {
	// Configured is true when spec.ingress or spec.gateway asks for a route.
	Configured bool
	// Admitted is true once the ingress controller or a Gateway has accepted the route.
	Admitted bool
	// URL is the normalized ingress URL, set only when Admitted.
	URL string
}

// ExposureURL returns the URL the route publishes, in the same normalized form the
// charm stores for an ingress-ready event. ok is false when no route is configured.
func ExposureURL(rs *reductv1alpha1.ReductStore) (string, bool) {
	var scheme reductv1alpha1.URLScheme
	var host string

	switch {
	case rs.Spec.Ingress != nil:
		host = rs.Spec.Ingress.Host
		scheme = rs.Spec.Ingress.Scheme
		if scheme == "" && strings.TrimSpace(rs.Spec.Ingress.TLSSecretName) != "" {
			scheme = reductv1alpha1.URLSchemeHTTPS
		}
	case rs.Spec.Gateway != nil:
		host = rs.Spec.Gateway.Hostname
		scheme = rs.Spec.Gateway.Scheme
	default:
		return "", false
	}

	if scheme == "" {
		scheme = reductv1alpha1.URLSchemeHTTP
	}
	if strings.TrimSpace(host) == "" {
		return "", false
	}

	normalized, err := urls.NormalizeIngressURL(fmt.Sprintf("%s://%s", scheme, host))
	if err != nil {
		return "", false
	}
	return normalized, true
}

// ObserveExposure reads the status of the managed Ingress or HTTPRoute.
//
// An Ingress is admitted once its load balancer status lists an address. An HTTPRoute
// is admitted once any parent Gateway reports Accepted=True.
func (m *Manager) ObserveExposure(ctx context.Context, rs *reductv1alpha1.ReductStore) (Exposure, error) {
	url, configured := ExposureURL(rs)
	if !configured {
		return Exposure{}, nil
	}

	exposure := Exposure{Configured: true}

	var admitted bool
	var err error
	if rs.Spec.Ingress != nil {
		admitted, err = m.ingressAdmitted(ctx, rs)
	} else {
		admitted, err = m.httpRouteAdmitted(ctx, rs)
	}
	if err != nil {
		return exposure, err
	}

	if admitted {
		exposure.Admitted = true
		exposure.URL = url
	}
	return exposure, nil
}

func (m *Manager) ingressAdmitted(ctx context.Context, rs *reductv1alpha1.ReductStore) (bool, error) {
	ingress := &networkingv1.Ingress{}
	if err := m.client.Get(ctx, types.NamespacedName{Namespace: rs.Namespace, Name: ingressName(rs)}, ingress); err != nil {
		if apierrors.IsNotFound(err) {
			return false, nil
		}
		return false, operatorerrors.WrapTransientKubernetesAPI(fmt.Errorf("failed to get Ingress %s/%s: %w", rs.Namespace, ingressName(rs), err))
	}

	return len(ingress.Status.LoadBalancer.Ingress) > 0, nil
}

func (m *Manager) httpRouteAdmitted(ctx context.Context, rs *reductv1alpha1.ReductStore) (bool, error) {
	route := &gatewayv1.HTTPRoute{}
	if err := m.client.Get(ctx, types.NamespacedName{Namespace: rs.Namespace, Name: httpRouteName(rs)}, route); err != nil {
		if operatorerrors.IsCRDMissingError(err) {
			return false, ErrGatewayAPIMissing
		}
		if apierrors.IsNotFound(err) {
			return false, nil
		}
		return false, operatorerrors.WrapTransientKubernetesAPI(fmt.Errorf("failed to get HTTPRoute %s/%s: %w", rs.Namespace, httpRouteName(rs), err))
	}

	for _, parent := range route.Status.Parents {
		if meta.IsStatusConditionTrue(parent.Conditions, string(gatewayv1.RouteConditionAccepted)) {
			return true, nil
		}
	}
	return false, nil
}
