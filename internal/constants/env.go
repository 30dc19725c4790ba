package constants

// Environment variables understood by the ReductStore server.
const (
	EnvRSLogLevel    = "RS_LOG_LEVEL"
	EnvRSPort        = "RS_PORT"
	EnvRSDataPath    = "RS_DATA_PATH"
	EnvRSLicensePath = "RS_LICENSE_PATH"
	EnvRSAPIBasePath = "RS_API_BASE_PATH"
)

// Environment variables set by the Juju agent for every hook invocation.
const (
	EnvJujuDispatchPath = "JUJU_DISPATCH_PATH"
	EnvJujuUnitName     = "JUJU_UNIT_NAME"
	EnvJujuModelName    = "JUJU_MODEL_NAME"
	EnvJujuCharmDir     = "JUJU_CHARM_DIR"
	EnvJujuHookName     = "JUJU_HOOK_NAME"
	EnvJujuWorkloadName = "JUJU_WORKLOAD_NAME"
	EnvJujuRelation     = "JUJU_RELATION"
	EnvJujuRelationID   = "JUJU_RELATION_ID"
	EnvJujuRemoteApp    = "JUJU_REMOTE_APP"
	EnvJujuVersion      = "JUJU_VERSION"
)

