/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package controller

import (
	appsv1 "k8s.io/api/apps/v1"
	networkingv1 "k8s.io/api/networking/v1"
	"k8s.io/apimachinery/pkg/api/equality"
	"sigs.k8s.io/controller-runtime/pkg/event"
	"sigs.k8s.io/controller-runtime/pkg/predicate"

	reductv1alpha1 "github.com/reductstore/reductstore-operator/api/v1alpha1"
)

// ReductStorePredicate filters ReductStore events to only reconcile on
// meaningful changes.
//
// The predicate allows reconciliation when:
//   - The resource is created or deleted
//   - The Spec changes (detected via Generation change)
//   - DeletionTimestamp, labels or annotations change
//
// Status-only updates are filtered out; the controller writes status itself and
// the periodic status check is driven by RequeueAfter.
func ReductStorePredicate() predicate.Predicate {
	return predicate.Funcs{
		CreateFunc: func(e event.CreateEvent) bool {
			return true
		},
		DeleteFunc: func(e event.DeleteEvent) bool {
			return true
		},
		UpdateFunc: func(e event.UpdateEvent) bool {
			oldRS, ok := e.ObjectOld.(*reductv1alpha1.ReductStore)
			if !ok {
				return true
			}
			newRS, ok := e.ObjectNew.(*reductv1alpha1.ReductStore)
			if !ok {
				return true
			}

			if oldRS.Generation != newRS.Generation {
				return true
			}

			if !oldRS.DeletionTimestamp.Equal(newRS.DeletionTimestamp) {
				return true
			}

			if !equality.Semantic.DeepEqual(oldRS.Labels, newRS.Labels) {
				return true
			}

			return !equality.Semantic.DeepEqual(oldRS.Annotations, newRS.Annotations)
		},
		GenericFunc: func(e event.GenericEvent) bool {
			return true
		},
	}
}

// StatefulSetReadyReplicasPredicate filters StatefulSet update events to only
// trigger reconciliation when ReadyReplicas changes. Spec changes made by the
// controller itself are ignored.
func StatefulSetReadyReplicasPredicate() predicate.Predicate {
	return predicate.Funcs{
		CreateFunc: func(e event.CreateEvent) bool {
			return true
		},
		DeleteFunc: func(e event.DeleteEvent) bool {
			return true
		},
		UpdateFunc: func(e event.UpdateEvent) bool {
			oldSts, ok := e.ObjectOld.(*appsv1.StatefulSet)
			if !ok {
				return true
			}
			newSts, ok := e.ObjectNew.(*appsv1.StatefulSet)
			if !ok {
				return true
			}

			return oldSts.Status.ReadyReplicas != newSts.Status.ReadyReplicas
		},
		GenericFunc: func(e event.GenericEvent) bool {
			return true
		},
	}
}

// IngressAdmittedPredicate triggers reconciliation when an Ingress gains or loses
// load balancer addresses, which is how admission by the ingress controller shows up.
func IngressAdmittedPredicate() predicate.Predicate {
	return predicate.Funcs{
		UpdateFunc: func(e event.UpdateEvent) bool {
			oldIng, ok := e.ObjectOld.(*networkingv1.Ingress)
			if !ok {
				return true
			}
			newIng, ok := e.ObjectNew.(*networkingv1.Ingress)
			if !ok {
				return true
			}

			return !equality.Semantic.DeepEqual(oldIng.Status.LoadBalancer, newIng.Status.LoadBalancer)
		},
	}
}
