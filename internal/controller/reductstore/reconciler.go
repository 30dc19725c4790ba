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

package reductstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/robfig/cron/v3"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"

	reductv1alpha1 "github.com/reductstore/reductstore-operator/api/v1alpha1"
	"github.com/reductstore/reductstore-operator/internal/charm"
	"github.com/reductstore/reductstore-operator/internal/constants"
	controllermetrics "github.com/reductstore/reductstore-operator/internal/controller"
	operatorerrors "github.com/reductstore/reductstore-operator/internal/errors"
	"github.com/reductstore/reductstore-operator/internal/infra"
	"github.com/reductstore/reductstore-operator/internal/probe"
	"github.com/reductstore/reductstore-operator/internal/relation/catalogue"
	"github.com/reductstore/reductstore-operator/internal/status"
	"github.com/reductstore/reductstore-operator/internal/tracing"
	"github.com/reductstore/reductstore-operator/internal/urls"
	"github.com/reductstore/reductstore-operator/internal/workload"
)

// InfoProber reads the server info endpoint.
type InfoProber interface {
	Info(ctx context.Context) (*probe.ServerInfo, error)
}

// ProberFactory builds the prober used by the periodic status check.
type ProberFactory func(cfg probe.ProberConfig) (InfoProber, error)

// DefaultProberFactory probes the server over HTTP.
func DefaultProberFactory(cfg probe.ProberConfig) (InfoProber, error) {
	return probe.NewProber(cfg)
}

// ReductStoreReconciler reconciles a ReductStore object.
type ReductStoreReconciler struct {
	client.Client
	Scheme *runtime.Scheme
	Infra  *infra.Manager

	// NewProber defaults to DefaultProberFactory.
	NewProber ProberFactory
	// Now defaults to time.Now.
	Now func() time.Time
	// WatchHTTPRoutes registers an ownership watch on HTTPRoutes; set it only when
	// the Gateway API CRDs are installed.
	WatchHTTPRoutes bool
}

// NewReconciler returns a reconciler with its infrastructure manager and defaults wired.
func NewReconciler(c client.Client, scheme *runtime.Scheme) *ReductStoreReconciler {
	return &ReductStoreReconciler{
		Client:    c,
		Scheme:    scheme,
		Infra:     infra.NewManager(c, scheme),
		NewProber: DefaultProberFactory,
		Now:       time.Now,
	}
}

// +kubebuilder:rbac:groups=reduct.store,resources=reductstores,verbs=get;list;watch;update;patch
// +kubebuilder:rbac:groups=reduct.store,resources=reductstores/status,verbs=get;update;patch
// +kubebuilder:rbac:groups=apps,resources=statefulsets,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups="",resources=services;configmaps,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups="",resources=secrets,verbs=get;list;watch
// +kubebuilder:rbac:groups=networking.k8s.io,resources=ingresses,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups=gateway.networking.k8s.io,resources=httproutes,verbs=get;list;watch;create;update;patch;delete

// Reconcile moves the cluster towards the state described by a ReductStore and
// records the outcome as a phase and conditions, mirroring the unit status a
// Juju-deployed ReductStore reports.
func (r *ReductStoreReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	reconcileMetrics := controllermetrics.NewReconcileMetrics(req.Namespace, req.Name, constants.ControllerNameReductStore)
	startTime := time.Now()
	var reconcileErr error
	defer func() {
		reconcileMetrics.ObserveDuration(time.Since(startTime).Seconds())
		if reconcileErr != nil {
			reconcileMetrics.IncrementError(errorReason(reconcileErr))
		}
	}()

	ctx, span := tracing.StartReconcileSpan(ctx, "ReductStore.Reconcile", req.Name, req.Namespace)
	defer func() {
		tracing.RecordError(span, reconcileErr)
		span.End()
	}()

	logger := log.FromContext(ctx).WithValues(
		"reductstore_namespace", req.Namespace,
		"reductstore_name", req.Name,
		"controller", constants.ControllerNameReductStore,
	)

	rs := &reductv1alpha1.ReductStore{}
	if err := r.Get(ctx, req.NamespacedName, rs); err != nil {
		if apierrors.IsNotFound(err) {
			logger.V(1).Info("ReductStore not found; assuming it was deleted")
			controllermetrics.NewInstanceMetrics(req.Namespace, req.Name).Clear()
			return ctrl.Result{}, nil
		}
		reconcileErr = operatorerrors.WrapTransientKubernetesAPI(fmt.Errorf("failed to get ReductStore %s/%s: %w", req.Namespace, req.Name, err))
		return ctrl.Result{}, reconcileErr
	}

	if !rs.DeletionTimestamp.IsZero() {
		// Owned resources are garbage-collected through their owner references.
		return ctrl.Result{}, nil
	}

	original := rs.DeepCopy()

	if rs.Spec.Paused {
		logger.Info("Reconciliation is paused for ReductStore")
		rs.Status.Message = messagePaused
		if err := r.patchStatus(ctx, original, rs); err != nil {
			reconcileErr = err
			return ctrl.Result{}, reconcileErr
		}
		return ctrl.Result{}, nil
	}

	requeueAfter, err := r.reconcileInstance(ctx, logger, rs)
	if patchErr := r.patchStatus(ctx, original, rs); patchErr != nil {
		err = errors.Join(err, patchErr)
	}

	instanceMetrics := controllermetrics.NewInstanceMetrics(rs.Namespace, rs.Name)
	instanceMetrics.SetPhase(rs.Status.Phase)
	instanceMetrics.SetReadyReplicas(rs.Status.ReadyReplicas)

	if err != nil {
		reconcileErr = err
		if requeue, delay := operatorerrors.ShouldRequeue(err); requeue && delay > 0 {
			logger.Error(err, "Reconcile failed; retrying", "after", delay)
			return ctrl.Result{RequeueAfter: delay}, nil
		}
		return ctrl.Result{}, reconcileErr
	}

	logger.V(1).Info("Reconciled ReductStore", "phase", rs.Status.Phase, "message", rs.Status.Message, "requeueAfter", requeueAfter)
	return ctrl.Result{RequeueAfter: requeueAfter}, nil
}

// reconcileInstance runs one pass and fills rs.Status. Configuration and license
// problems end the pass with a Blocked phase and no error; the returned duration
// schedules the next pass.
func (r *ReductStoreReconciler) reconcileInstance(ctx context.Context, logger logr.Logger, rs *reductv1alpha1.ReductStore) (time.Duration, error) {
	now := r.now()
	gen := rs.Generation
	conditions := &rs.Status.Conditions
	status.ClearStale(conditions)

	cfg := charm.Config{
		LogLevel:    rs.Spec.LogLevel,
		LicensePath: rs.Spec.LicensePath,
		APIBasePath: rs.Spec.APIBasePath,
	}
	settings, level, err := cfg.Settings(rs.Namespace, rs.Name)
	if err != nil {
		logger.V(1).Info("Rejected configuration", "logLevel", level)
		status.False(conditions, gen, reductv1alpha1.ConditionConfigValid, constants.ReasonInvalidLogLevel, workload.InvalidLogLevelMessage(level))
		setPhase(rs, reductv1alpha1.PhaseBlocked, workload.InvalidLogLevelMessage(level))
		return 0, nil
	}
	logger.V(1).Info("Computed api base path", "path", settings.APIBasePath)

	schedule, err := reductv1alpha1.ParseStatusCheckSchedule(rs.Spec.StatusCheckSchedule)
	if err != nil {
		status.False(conditions, gen, reductv1alpha1.ConditionConfigValid, constants.ReasonInvalidSchedule, err.Error())
		setPhase(rs, reductv1alpha1.PhaseBlocked, err.Error())
		return 0, nil
	}
	status.True(conditions, gen, reductv1alpha1.ConditionConfigValid, constants.ReasonReady, "configuration is valid")

	lic, err := r.readLicense(ctx, rs)
	if err != nil {
		return 0, err
	}
	if !lic.ok() {
		status.False(conditions, gen, reductv1alpha1.ConditionLicenseReady, constants.ReasonLicenseMissing, lic.message())
		setPhase(rs, reductv1alpha1.PhaseBlocked, lic.message())
		return 0, nil
	}
	status.True(conditions, gen, reductv1alpha1.ConditionLicenseReady, constants.ReasonReady, "license Secret is present")

	exposure, err := r.Infra.ObserveExposure(ctx, rs)
	gatewayMissing := errors.Is(err, infra.ErrGatewayAPIMissing)
	if err != nil && !gatewayMissing {
		return 0, err
	}

	ingressURL := exposure.URL
	apiURL := urls.ExternalAPIURL(ingressURL, settings.APIBasePath)
	uiURL := urls.ExternalUIURL(ingressURL, settings.APIBasePath)
	logger.V(1).Info("Derived external URLs", "ingress", ingressURL, "api", apiURL, "ui", uiURL)

	desired := infra.Desired{
		Settings:    settings,
		LicenseHash: lic.hash,
		Catalogue:   catalogue.NewItem(apiURL, uiURL),
	}
	if err := r.Infra.Reconcile(ctx, logger, rs, desired); err != nil {
		if !errors.Is(err, infra.ErrGatewayAPIMissing) {
			return 0, err
		}
		gatewayMissing = true
	}

	rs.Status.IngressURL = ingressURL
	rs.Status.APIURL = apiURL
	rs.Status.UIURL = uiURL

	readyReplicas, err := r.readyReplicas(ctx, rs)
	if err != nil {
		return 0, err
	}
	rs.Status.ReadyReplicas = readyReplicas

	workloadReady := r.observeWorkload(ctx, logger, rs, settings, schedule, now)
	setIngressCondition(rs, exposure, gatewayMissing)

	phase, message := derivePhase(observation{WorkloadReady: workloadReady, Exposure: exposure})
	setPhase(rs, phase, message)

	return nextRequeue(phase, schedule, now), nil
}

// observeWorkload combines StatefulSet readiness with the scheduled info check and
// sets the WorkloadReady condition.
func (r *ReductStoreReconciler) observeWorkload(
	ctx context.Context,
	logger logr.Logger,
	rs *reductv1alpha1.ReductStore,
	settings workload.Settings,
	schedule cron.Schedule,
	now time.Time,
) bool {
	gen := rs.Generation
	conditions := &rs.Status.Conditions
	conditionType := reductv1alpha1.ConditionWorkloadReady

	if rs.Status.ReadyReplicas == 0 {
		status.False(conditions, gen, conditionType, constants.ReasonWorkloadNotReady, "no ready ReductStore pod")
		return false
	}

	if !statusCheckDue(rs, schedule, now) {
		return true
	}

	info, err := r.checkServer(ctx, rs, settings)
	rs.Status.LastStatusCheck = &metav1.Time{Time: now}
	if err != nil {
		logger.Info("ReductStore status check failed", "error", err.Error())
		status.False(conditions, gen, conditionType, constants.ReasonWorkloadNotReady, err.Error())
		return false
	}

	rs.Status.ServerVersion = info.Version
	status.True(conditions, gen, conditionType, constants.ReasonReady, fmt.Sprintf("ReductStore %s is serving", info.Version))
	return true
}

func (r *ReductStoreReconciler) checkServer(ctx context.Context, rs *reductv1alpha1.ReductStore, settings workload.Settings) (*probe.ServerInfo, error) {
	ctx, span := tracing.StartChildSpan(ctx, "ReductStore.StatusCheck")
	defer span.End()

	newProber := r.NewProber
	if newProber == nil {
		newProber = DefaultProberFactory
	}

	p, err := newProber(probe.ProberConfig{
		Addr:     infra.ServiceAddress(rs),
		BasePath: settings.APIBasePath,
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, fmt.Errorf("failed to create prober: %w", err)
	}

	info, err := p.Info(ctx)
	tracing.RecordError(span, err)
	return info, err
}

func (r *ReductStoreReconciler) patchStatus(ctx context.Context, original, rs *reductv1alpha1.ReductStore) error {
	rs.Status.ObservedGeneration = rs.Generation
	if err := r.Status().Patch(ctx, rs, client.MergeFrom(original)); err != nil {
		if apierrors.IsNotFound(err) {
			return nil
		}
		return operatorerrors.WrapTransientKubernetesAPI(fmt.Errorf("failed to update status for ReductStore %s/%s: %w", rs.Namespace, rs.Name, err))
	}
	return nil
}

func (r *ReductStoreReconciler) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

func errorReason(err error) string {
	switch {
	case operatorerrors.IsPermanent(err):
		return "PermanentError"
	case operatorerrors.IsTransientKubernetesAPI(err):
		return "KubernetesAPIError"
	default:
		return "Error"
	}
}
