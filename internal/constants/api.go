package constants

// ReductStore HTTP API paths used by the operator and helper binaries.
const (
	APIPathInfo        = "/api/v1/info"
	APIPathUIDashboard = "/ui/dashboard"
)

// Network ports exposed by the ReductStore workload.
const (
	PortHTTP int32 = 8383
)
