package reductstore

import (
	"time"

	"github.com/robfig/cron/v3"

	reductv1alpha1 "github.com/reductstore/reductstore-operator/api/v1alpha1"
	"github.com/reductstore/reductstore-operator/internal/constants"
	"github.com/reductstore/reductstore-operator/internal/status"
)

// statusCheckDue reports whether the info endpoint should be probed in this pass.
// A spec change or a failed previous check makes the check due immediately.
func statusCheckDue(rs *reductv1alpha1.ReductStore, schedule cron.Schedule, now time.Time) bool {
	last := rs.Status.LastStatusCheck
	if last == nil || rs.Status.ObservedGeneration != rs.Generation {
		return true
	}
	if !status.IsTrue(rs.Status.Conditions, reductv1alpha1.ConditionWorkloadReady) {
		return true
	}
	return !schedule.Next(last.Time).After(now)
}

// nextRequeue returns the delay until the next pass: the next scheduled status
// check, or sooner while the instance is in Maintenance.
func nextRequeue(phase reductv1alpha1.Phase, schedule cron.Schedule, now time.Time) time.Duration {
	delay := schedule.Next(now).Sub(now)
	if delay < time.Second {
		delay = time.Second
	}
	if phase == reductv1alpha1.PhaseMaintenance && delay > constants.RequeueStandard {
		delay = constants.RequeueStandard
	}
	return delay
}
