package infra

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	gatewayv1 "sigs.k8s.io/gateway-api/apis/v1"

	reductv1alpha1 "github.com/reductstore/reductstore-operator/api/v1alpha1"
	"github.com/reductstore/reductstore-operator/internal/constants"
	operatorerrors "github.com/reductstore/reductstore-operator/internal/errors"
	"github.com/reductstore/reductstore-operator/internal/urls"
)

// ErrGatewayAPIMissing indicates that Gateway API CRDs are not installed in the
// cluster while spec.gateway is set. Callers surface it as a pending IngressReady
// condition instead of silently skipping the HTTPRoute.
var ErrGatewayAPIMissing = errors.New("gateway API CRDs not installed")

const portNameHTTP = "http"

// ensureHeadlessService manages the headless Service giving the pod a stable DNS name.
func (m *Manager) ensureHeadlessService(ctx context.Context, rs *reductv1alpha1.ReductStore) error {
	svcName := headlessServiceName(rs)

	service := &corev1.Service{
		TypeMeta: metav1.TypeMeta{
			Kind:       "Service",
			APIVersion: "v1",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      svcName,
			Namespace: rs.Namespace,
			Labels:    componentLabels(rs, constants.LabelValueComponentServer),
		},
		Spec: corev1.ServiceSpec{
			ClusterIP:                corev1.ClusterIPNone,
			PublishNotReadyAddresses: true,
			Selector:                 podSelectorLabels(rs),
			Ports:                    servicePorts(),
		},
	}

	if err := m.applyResource(ctx, service, rs); err != nil {
		return fmt.Errorf("failed to ensure headless Service %s/%s: %w", rs.Namespace, svcName, err)
	}

	return nil
}

// ensureClientService manages the ClusterIP Service used by clients, the Ingress
// and the HTTPRoute.
func (m *Manager) ensureClientService(ctx context.Context, rs *reductv1alpha1.ReductStore) error {
	svcName := clientServiceName(rs)

	service := &corev1.Service{
		TypeMeta: metav1.TypeMeta{
			Kind:       "Service",
			APIVersion: "v1",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      svcName,
			Namespace: rs.Namespace,
			Labels:    componentLabels(rs, constants.LabelValueComponentServer),
		},
		Spec: corev1.ServiceSpec{
			Type:     corev1.ServiceTypeClusterIP,
			Selector: podSelectorLabels(rs),
			Ports:    servicePorts(),
		},
	}

	if err := m.applyResource(ctx, service, rs); err != nil {
		return fmt.Errorf("failed to ensure Service %s/%s: %w", rs.Namespace, svcName, err)
	}

	return nil
}

func servicePorts() []corev1.ServicePort {
	return []corev1.ServicePort{
		{
			Name:     portNameHTTP,
			Port:     constants.PortHTTP,
			Protocol: corev1.ProtocolTCP,
		},
	}
}

// ensureIngress manages external access via Ingress using Server-Side Apply.
// The Ingress is removed when spec.ingress is unset.
func (m *Manager) ensureIngress(ctx context.Context, logger logr.Logger, rs *reductv1alpha1.ReductStore, basePath string) error {
	name := ingressName(rs)

	desired := buildIngress(rs, basePath)
	if desired == nil {
		deleted, err := m.deleteIfExists(ctx, &networkingv1.Ingress{}, rs.Namespace, name)
		if err != nil {
			return fmt.Errorf("failed to delete Ingress %s/%s: %w", rs.Namespace, name, err)
		}
		if deleted {
			logger.Info("Ingress no longer configured; deleted", "ingress", name)
		}
		return nil
	}

	desired.TypeMeta = metav1.TypeMeta{
		Kind:       "Ingress",
		APIVersion: "networking.k8s.io/v1",
	}

	if err := m.applyResource(ctx, desired, rs); err != nil {
		return fmt.Errorf("failed to ensure Ingress %s/%s: %w", rs.Namespace, name, err)
	}

	return nil
}

// buildIngress constructs the Ingress for rs, or nil when spec.ingress is unset or has no host.
// The rule routes the API base path prefix to the client Service without rewriting.
func buildIngress(rs *reductv1alpha1.ReductStore, basePath string) *networkingv1.Ingress {
	ing := rs.Spec.Ingress
	if ing == nil || strings.TrimSpace(ing.Host) == "" {
		return nil
	}

	pathType := networkingv1.PathTypePrefix

	rule := networkingv1.IngressRule{
		Host: ing.Host,
		IngressRuleValue: networkingv1.IngressRuleValue{
			HTTP: &networkingv1.HTTPIngressRuleValue{
				Paths: []networkingv1.HTTPIngressPath{
					{
						Path:     urls.NormalizeBasePath(basePath),
						PathType: &pathType,
						Backend: networkingv1.IngressBackend{
							Service: &networkingv1.IngressServiceBackend{
								Name: clientServiceName(rs),
								Port: networkingv1.ServiceBackendPort{
									Number: constants.PortHTTP,
								},
							},
						},
					},
				},
			},
		},
	}

	ingress := &networkingv1.Ingress{
		ObjectMeta: metav1.ObjectMeta{
			Name:        ingressName(rs),
			Namespace:   rs.Namespace,
			Labels:      componentLabels(rs, constants.LabelValueComponentServer),
			Annotations: ing.Annotations,
		},
		Spec: networkingv1.IngressSpec{
			Rules: []networkingv1.IngressRule{rule},
		},
	}

	if strings.TrimSpace(ing.TLSSecretName) != "" {
		ingress.Spec.TLS = []networkingv1.IngressTLS{
			{
				Hosts:      []string{ing.Host},
				SecretName: ing.TLSSecretName,
			},
		}
	}

	if ing.ClassName != nil && strings.TrimSpace(*ing.ClassName) != "" {
		className := strings.TrimSpace(*ing.ClassName)
		ingress.Spec.IngressClassName = &className
	}

	return ingress
}

// ensureHTTPRoute manages the Gateway API HTTPRoute for rs.
//
// When the HTTPRoute CRD is not installed the route cannot be applied and
// ErrGatewayAPIMissing is returned; with spec.gateway unset a missing CRD is not an error.
func (m *Manager) ensureHTTPRoute(ctx context.Context, logger logr.Logger, rs *reductv1alpha1.ReductStore, basePath string) error {
	name := httpRouteName(rs)

	desired := buildHTTPRoute(rs, basePath)
	if desired == nil {
		deleted, err := m.deleteIfExists(ctx, &gatewayv1.HTTPRoute{}, rs.Namespace, name)
		if err != nil {
			return fmt.Errorf("failed to delete HTTPRoute %s/%s: %w", rs.Namespace, name, err)
		}
		if deleted {
			logger.Info("HTTPRoute no longer configured; deleted", "httproute", name)
		}
		return nil
	}

	desired.TypeMeta = metav1.TypeMeta{
		Kind:       "HTTPRoute",
		APIVersion: "gateway.networking.k8s.io/v1",
	}

	if err := m.applyResource(ctx, desired, rs); err != nil {
		if operatorerrors.IsCRDMissingError(err) {
			logger.Info("Gateway API CRDs not installed; HTTPRoute left pending", "httproute", name)
			return ErrGatewayAPIMissing
		}
		return fmt.Errorf("failed to ensure HTTPRoute %s/%s: %w", rs.Namespace, name, err)
	}

	return nil
}

// buildHTTPRoute constructs the HTTPRoute for rs, or nil when spec.gateway is unset or incomplete.
func buildHTTPRoute(rs *reductv1alpha1.ReductStore, basePath string) *gatewayv1.HTTPRoute {
	gw := rs.Spec.Gateway
	if gw == nil || strings.TrimSpace(gw.Hostname) == "" || strings.TrimSpace(gw.ParentRef.Name) == "" {
		return nil
	}

	gatewayNamespace := gw.ParentRef.Namespace
	if strings.TrimSpace(gatewayNamespace) == "" {
		gatewayNamespace = rs.Namespace
	}

	path := urls.NormalizeBasePath(basePath)
	hostname := gatewayv1.Hostname(gw.Hostname)
	pathType := gatewayv1.PathMatchPathPrefix
	port := gatewayv1.PortNumber(constants.PortHTTP)
	gatewayNS := gatewayv1.Namespace(gatewayNamespace)

	return &gatewayv1.HTTPRoute{
		ObjectMeta: metav1.ObjectMeta{
			Name:        httpRouteName(rs),
			Namespace:   rs.Namespace,
			Labels:      componentLabels(rs, constants.LabelValueComponentServer),
			Annotations: gw.Annotations,
		},
		Spec: gatewayv1.HTTPRouteSpec{
			CommonRouteSpec: gatewayv1.CommonRouteSpec{
				ParentRefs: []gatewayv1.ParentReference{
					{
						Name:      gatewayv1.ObjectName(gw.ParentRef.Name),
						Namespace: &gatewayNS,
					},
				},
			},
			Hostnames: []gatewayv1.Hostname{hostname},
			Rules: []gatewayv1.HTTPRouteRule{
				{
					Matches: []gatewayv1.HTTPRouteMatch{
						{
							Path: &gatewayv1.HTTPPathMatch{
								Type:  &pathType,
								Value: &path,
							},
						},
					},
					BackendRefs: []gatewayv1.HTTPBackendRef{
						{
							BackendRef: gatewayv1.BackendRef{
								BackendObjectReference: gatewayv1.BackendObjectReference{
									Name: gatewayv1.ObjectName(clientServiceName(rs)),
									Port: &port,
								},
							},
						},
					},
				},
			},
		},
	}
}
