// Package status records ReductStore conditions.
package status

import (
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	reductv1alpha1 "github.com/reductstore/reductstore-operator/api/v1alpha1"
)

// Set adds or updates a condition. LastTransitionTime only moves when the status
// changes.
func Set(conditions *[]metav1.Condition, generation int64, conditionType reductv1alpha1.ConditionType, status metav1.ConditionStatus, reason, message string) {
	meta.SetStatusCondition(conditions, metav1.Condition{
		Type:               string(conditionType),
		Status:             status,
		Reason:             reason,
		Message:            message,
		ObservedGeneration: generation,
		LastTransitionTime: metav1.Now(),
	})
}

// True sets a condition to True status.
func True(conditions *[]metav1.Condition, generation int64, conditionType reductv1alpha1.ConditionType, reason, message string) {
	Set(conditions, generation, conditionType, metav1.ConditionTrue, reason, message)
}

// False sets a condition to False status.
func False(conditions *[]metav1.Condition, generation int64, conditionType reductv1alpha1.ConditionType, reason, message string) {
	Set(conditions, generation, conditionType, metav1.ConditionFalse, reason, message)
}

// IsTrue returns true if the condition with the given type has Status=True.
func IsTrue(conditions []metav1.Condition, conditionType reductv1alpha1.ConditionType) bool {
	return meta.IsStatusConditionTrue(conditions, string(conditionType))
}

// ClearStale drops conditions whose type is not one the ReductStore controller
// manages, for example ones left behind by an older operator version.
func ClearStale(conditions *[]metav1.Condition) {
	known := map[string]bool{
		string(reductv1alpha1.ConditionConfigValid):   true,
		string(reductv1alpha1.ConditionLicenseReady):  true,
		string(reductv1alpha1.ConditionWorkloadReady): true,
		string(reductv1alpha1.ConditionIngressReady):  true,
	}
	for _, c := range append([]metav1.Condition(nil), *conditions...) {
		if !known[c.Type] {
			meta.RemoveStatusCondition(conditions, c.Type)
		}
	}
}
