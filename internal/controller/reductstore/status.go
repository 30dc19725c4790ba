package reductstore

import (
	reductv1alpha1 "github.com/reductstore/reductstore-operator/api/v1alpha1"
	"github.com/reductstore/reductstore-operator/internal/charm"
	"github.com/reductstore/reductstore-operator/internal/constants"
	"github.com/reductstore/reductstore-operator/internal/infra"
	"github.com/reductstore/reductstore-operator/internal/status"
)

const messagePaused = "reconciliation paused"

// observation is what a pass learned about the running instance once
// configuration and license are known to be good.
type observation struct {
	WorkloadReady bool
	Exposure      infra.Exposure
}

// derivePhase follows the same precedence as the charm's unit status: an unready
// workload wins over a pending route, and an admitted route is reported by URL.
func derivePhase(obs observation) (reductv1alpha1.Phase, string) {
	switch {
	case !obs.WorkloadReady:
		return reductv1alpha1.PhaseMaintenance, charm.MessageWaitingForWorkload
	case obs.Exposure.Configured && !obs.Exposure.Admitted:
		return reductv1alpha1.PhaseMaintenance, charm.MessageWaitingForIngress
	case obs.Exposure.Admitted:
		return reductv1alpha1.PhaseActive, charm.IngressAtMessage(obs.Exposure.URL)
	default:
		return reductv1alpha1.PhaseActive, ""
	}
}

func setPhase(rs *reductv1alpha1.ReductStore, phase reductv1alpha1.Phase, message string) {
	rs.Status.Phase = phase
	rs.Status.Message = message
}

func setIngressCondition(rs *reductv1alpha1.ReductStore, exposure infra.Exposure, gatewayMissing bool) {
	conditions := &rs.Status.Conditions
	gen := rs.Generation
	conditionType := reductv1alpha1.ConditionIngressReady

	switch {
	case gatewayMissing:
		status.False(conditions, gen, conditionType, constants.ReasonGatewayAPIMissing, infra.ErrGatewayAPIMissing.Error())
	case !exposure.Configured:
		status.True(conditions, gen, conditionType, constants.ReasonIngressNotRequired, "no ingress or gateway configured")
	case !exposure.Admitted:
		status.False(conditions, gen, conditionType, constants.ReasonIngressPending, charm.MessageWaitingForIngress)
	default:
		status.True(conditions, gen, conditionType, constants.ReasonIngressAdmitted, exposure.URL)
	}
}
