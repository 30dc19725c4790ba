package constants

// The ReductStore image runs as root and the license file is owned by root with
// LicenseFileMode, so the pod pins root IDs while dropping every capability.
const (
	UserRoot  int64 = 0
	GroupRoot int64 = 0
)
