package constants

// Paths inside the ReductStore workload container.
const (
	PathData           = "/data"
	PathDefaultLicense = "/reduct.lic"
)

// Paths inside the charm container.
const (
	// PebbleSocketPathFormat is formatted with the workload container name.
	PebbleSocketPathFormat = "/charm/containers/%s/pebble.socket"
	UnitStateFileName      = ".unit-state.db"
)

// Volume names used by ReductStore pods.
const (
	VolumeData    = "data"
	VolumeLicense = "license"
)

// LicenseFileMode is applied to the pushed or mounted license file (owner read/write only).
const LicenseFileMode = 0o600

// LicenseOwner is the user and group owning the license file inside the workload.
const LicenseOwner = "root"
