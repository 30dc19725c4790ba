package constants

// Common condition reasons used by the operator for various Status conditions.
const (
	// ReasonReady indicates a resource is fully prepared and functional.
	ReasonReady = "Ready"

	ReasonInvalidLogLevel    = "InvalidLogLevel"
	ReasonInvalidSchedule    = "InvalidStatusCheckSchedule"
	ReasonLicenseMissing     = "LicenseMissing"
	ReasonWorkloadNotReady   = "WorkloadNotReady"
	ReasonIngressPending     = "IngressPending"
	ReasonIngressAdmitted    = "IngressAdmitted"
	ReasonIngressNotRequired = "IngressNotConfigured"
	ReasonGatewayAPIMissing  = "GatewayAPIMissing"
)
