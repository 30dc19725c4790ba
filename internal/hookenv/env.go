// Package hookenv is the charm's view of the Juju agent: the hook environment
// variables and the hook tools available on PATH while a hook runs.
package hookenv

import (
	"fmt"
	"path"
	"strings"

	"github.com/reductstore/reductstore-operator/internal/constants"
)

// Environment is the per-invocation context Juju passes through environment variables.
type Environment struct {
	// DispatchPath is the hook path relative to the charm dir, e.g. "hooks/config-changed".
	DispatchPath string
	Hook         string
	UnitName     string
	AppName      string
	ModelName    string
	CharmDir     string
	JujuVersion  string

	// Set for workload (pebble) hooks only.
	WorkloadName string

	// Set for relation hooks only.
	RelationName string
	RelationID   string
	RemoteApp    string
}

// LoadEnvironment reads the hook environment through getenv (os.Getenv in production).
func LoadEnvironment(getenv func(string) string) (Environment, error) {
	env := Environment{
		DispatchPath: getenv(constants.EnvJujuDispatchPath),
		UnitName:     getenv(constants.EnvJujuUnitName),
		ModelName:    getenv(constants.EnvJujuModelName),
		CharmDir:     getenv(constants.EnvJujuCharmDir),
		JujuVersion:  getenv(constants.EnvJujuVersion),
		WorkloadName: getenv(constants.EnvJujuWorkloadName),
		RelationName: getenv(constants.EnvJujuRelation),
		RelationID:   getenv(constants.EnvJujuRelationID),
		RemoteApp:    getenv(constants.EnvJujuRemoteApp),
	}

	switch {
	case env.DispatchPath != "":
		env.Hook = path.Base(env.DispatchPath)
	case getenv(constants.EnvJujuHookName) != "":
		env.Hook = getenv(constants.EnvJujuHookName)
	default:
		return Environment{}, fmt.Errorf("%s is not set; not running under a Juju agent", constants.EnvJujuDispatchPath)
	}

	if env.UnitName == "" {
		return Environment{}, fmt.Errorf("%s is not set", constants.EnvJujuUnitName)
	}
	app, _, ok := strings.Cut(env.UnitName, "/")
	if !ok || app == "" {
		return Environment{}, fmt.Errorf("malformed unit name %q", env.UnitName)
	}
	env.AppName = app

	return env, nil
}

// IsRelationHook reports whether the current hook belongs to a relation.
func (e Environment) IsRelationHook() bool {
	return e.RelationID != ""
}
