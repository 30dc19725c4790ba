package infra

import (
	"context"
	"encoding/json"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	reductv1alpha1 "github.com/reductstore/reductstore-operator/api/v1alpha1"
	"github.com/reductstore/reductstore-operator/internal/constants"
	"github.com/reductstore/reductstore-operator/internal/relation/catalogue"
)

// ensureCatalogueConfigMap publishes the catalogue item for dashboards that discover
// ReductStore instances through labelled ConfigMaps.
func (m *Manager) ensureCatalogueConfigMap(ctx context.Context, rs *reductv1alpha1.ReductStore, item catalogue.Item) error {
	name := CatalogueConfigMapName(rs)

	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to encode catalogue item for %s/%s: %w", rs.Namespace, rs.Name, err)
	}

	cm := &corev1.ConfigMap{
		TypeMeta: metav1.TypeMeta{
			Kind:       "ConfigMap",
			APIVersion: "v1",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: rs.Namespace,
			Labels:    componentLabels(rs, constants.LabelValueComponentCatalogue),
		},
		Data: map[string]string{
			constants.CatalogueConfigMapKey: string(data),
		},
	}

	if err := m.applyResource(ctx, cm, rs); err != nil {
		return fmt.Errorf("failed to ensure catalogue ConfigMap %s/%s: %w", rs.Namespace, name, err)
	}

	return nil
}
