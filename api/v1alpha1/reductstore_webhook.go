package v1alpha1

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/resource"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/util/validation/field"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/webhook"
	"sigs.k8s.io/controller-runtime/pkg/webhook/admission"
)

var reductStoreWebhookLog = ctrl.Log.WithName("reductstore-webhook")

// Defaults applied by the mutating webhook. The controller applies the same
// values when the webhook is not installed.
const (
	DefaultLogLevel            = "INFO"
	DefaultLicensePath         = "/reduct.lic"
	DefaultLicenseKey          = "license.key"
	DefaultStorageSize         = "10Gi"
	DefaultStatusCheckSchedule = "@every 5m"
)

const (
	fieldPathRoot = "spec"
	// warnStatusCheckInterval is the interval below which frequent probing is flagged.
	warnStatusCheckInterval = time.Minute
)

// statusCheckParser accepts standard five-field cron expressions and descriptors
// such as "@every 5m" or "@hourly".
var statusCheckParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseStatusCheckSchedule parses spec.statusCheckSchedule. An empty value
// yields the default schedule.
func ParseStatusCheckSchedule(expr string) (cron.Schedule, error) {
	if strings.TrimSpace(expr) == "" {
		expr = DefaultStatusCheckSchedule
	}
	sched, err := statusCheckParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid status check schedule %q: %w", expr, err)
	}
	return sched, nil
}

// reductStoreValidator implements admission.CustomValidator for ReductStore.
type reductStoreValidator struct{}

var _ webhook.CustomValidator = &reductStoreValidator{}

// reductStoreDefaulter implements admission.CustomDefaulter for ReductStore.
type reductStoreDefaulter struct{}

var _ webhook.CustomDefaulter = &reductStoreDefaulter{}

// SetupWebhookWithManager registers the ReductStore webhooks with the manager.
func (r *ReductStore) SetupWebhookWithManager(mgr ctrl.Manager) error {
	return ctrl.NewWebhookManagedBy(mgr).
		For(&ReductStore{}).
		WithValidator(&reductStoreValidator{}).
		WithDefaulter(&reductStoreDefaulter{}).
		Complete()
}

// +kubebuilder:webhook:path=/mutate-reduct-store-v1alpha1-reductstore,mutating=true,failurePolicy=fail,sideEffects=None,groups=reduct.store,resources=reductstores,verbs=create;update,versions=v1alpha1,name=mreductstore.kb.io,admissionReviewVersions=v1

// +kubebuilder:webhook:path=/validate-reduct-store-v1alpha1-reductstore,mutating=false,failurePolicy=fail,sideEffects=None,groups=reduct.store,resources=reductstores,verbs=create;update,versions=v1alpha1,name=vreductstore.kb.io,admissionReviewVersions=v1

// Default fills unset optional fields. The log level is deliberately left as
// written so that an invalid value surfaces as a Blocked phase.
func (d *reductStoreDefaulter) Default(_ context.Context, obj runtime.Object) error {
	rs, ok := obj.(*ReductStore)
	if !ok {
		return apierrors.NewBadRequest("expected ReductStore object for defaulting")
	}
	rs.Default()
	return nil
}

// Default fills unset optional fields in place.
func (r *ReductStore) Default() {
	if r.Spec.LogLevel == "" {
		r.Spec.LogLevel = DefaultLogLevel
	}
	if r.Spec.LicensePath == "" {
		r.Spec.LicensePath = DefaultLicensePath
	}
	if r.Spec.StatusCheckSchedule == "" {
		r.Spec.StatusCheckSchedule = DefaultStatusCheckSchedule
	}
	if r.Spec.Storage.Size == "" {
		r.Spec.Storage.Size = DefaultStorageSize
	}
	if r.Spec.License != nil && r.Spec.License.Key == "" {
		r.Spec.License.Key = DefaultLicenseKey
	}
}

// ValidateCreate validates ReductStore resources on create.
func (v *reductStoreValidator) ValidateCreate(_ context.Context, obj runtime.Object) (admission.Warnings, error) {
	rs, ok := obj.(*ReductStore)
	if !ok {
		return nil, apierrors.NewBadRequest("expected ReductStore object for validation")
	}
	reductStoreWebhookLog.Info("validating create", "name", rs.Name, "namespace", rs.Namespace)
	return validate(rs)
}

// ValidateUpdate validates ReductStore resources on update.
func (v *reductStoreValidator) ValidateUpdate(_ context.Context, _, newObj runtime.Object) (admission.Warnings, error) {
	rs, ok := newObj.(*ReductStore)
	if !ok {
		return nil, apierrors.NewBadRequest("expected ReductStore object for validation")
	}
	reductStoreWebhookLog.Info("validating update", "name", rs.Name, "namespace", rs.Namespace)
	return validate(rs)
}

// ValidateDelete accepts every delete.
func (v *reductStoreValidator) ValidateDelete(_ context.Context, _ runtime.Object) (admission.Warnings, error) {
	return nil, nil
}

func validate(rs *ReductStore) (admission.Warnings, error) {
	var allErrs field.ErrorList

	scheduleErrs, warnings := validateStatusCheckSchedule(rs)
	allErrs = append(allErrs, scheduleErrs...)
	allErrs = append(allErrs, validateAPIBasePath(rs)...)
	allErrs = append(allErrs, validateLicense(rs)...)
	allErrs = append(allErrs, validateStorage(rs)...)
	allErrs = append(allErrs, validateExposure(rs)...)

	if len(allErrs) > 0 {
		return warnings, apierrors.NewInvalid(
			GroupVersion.WithKind("ReductStore").GroupKind(),
			rs.Name,
			allErrs,
		)
	}
	return warnings, nil
}

// validateStatusCheckSchedule rejects unparsable schedules and warns about
// schedules that probe more often than once a minute.
func validateStatusCheckSchedule(rs *ReductStore) (field.ErrorList, admission.Warnings) {
	path := field.NewPath(fieldPathRoot, "statusCheckSchedule")

	sched, err := ParseStatusCheckSchedule(rs.Spec.StatusCheckSchedule)
	if err != nil {
		return field.ErrorList{field.Invalid(path, rs.Spec.StatusCheckSchedule, err.Error())}, nil
	}

	now := time.Now()
	first := sched.Next(now)
	if interval := sched.Next(first).Sub(first); interval < warnStatusCheckInterval {
		return nil, admission.Warnings{
			fmt.Sprintf("spec.statusCheckSchedule runs every %s; intervals below %s add load without faster recovery",
				interval, warnStatusCheckInterval),
		}
	}
	return nil, nil
}

func validateAPIBasePath(rs *ReductStore) field.ErrorList {
	p := rs.Spec.APIBasePath
	if p == "" {
		return nil
	}
	path := field.NewPath(fieldPathRoot, "apiBasePath")
	if strings.ContainsAny(p, " ?#") {
		return field.ErrorList{field.Invalid(path, p, "must be a URL path without spaces, query or fragment")}
	}
	return nil
}

func validateLicense(rs *ReductStore) field.ErrorList {
	var allErrs field.ErrorList
	if rs.Spec.License != nil && rs.Spec.License.SecretName == "" {
		allErrs = append(allErrs, field.Required(field.NewPath(fieldPathRoot, "license", "secretName"),
			"secretName is required when license is set"))
	}
	if p := rs.Spec.LicensePath; p != "" && !strings.HasPrefix(p, "/") {
		allErrs = append(allErrs, field.Invalid(field.NewPath(fieldPathRoot, "licensePath"), p, "must be an absolute path"))
	}
	return allErrs
}

func validateStorage(rs *ReductStore) field.ErrorList {
	size := rs.Spec.Storage.Size
	if size == "" {
		return nil
	}
	if _, err := resource.ParseQuantity(size); err != nil {
		return field.ErrorList{field.Invalid(field.NewPath(fieldPathRoot, "storage", "size"), size, err.Error())}
	}
	return nil
}

// validateExposure enforces that at most one of ingress and gateway is set and
// that the chosen one names a host.
func validateExposure(rs *ReductStore) field.ErrorList {
	var allErrs field.ErrorList
	root := field.NewPath(fieldPathRoot)

	if rs.Spec.Ingress != nil && rs.Spec.Gateway != nil {
		allErrs = append(allErrs, field.Forbidden(root.Child("gateway"), "spec.ingress and spec.gateway are mutually exclusive"))
	}
	if ing := rs.Spec.Ingress; ing != nil && ing.Host == "" {
		allErrs = append(allErrs, field.Required(root.Child("ingress", "host"), "host is required when ingress is set"))
	}
	if gw := rs.Spec.Gateway; gw != nil {
		if gw.ParentRef.Name == "" {
			allErrs = append(allErrs, field.Required(root.Child("gateway", "parentRef", "name"),
				"Gateway reference name is required when gateway is set"))
		}
		if gw.Hostname == "" {
			allErrs = append(allErrs, field.Required(root.Child("gateway", "hostname"),
				"hostname is required when gateway is set"))
		}
	}
	return allErrs
}
