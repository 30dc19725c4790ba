// Package workload describes how the ReductStore server runs inside its container:
// the Pebble run layer, the environment derived from charm configuration, and the
// adapter that talks to the container's Pebble API.
package workload

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/reductstore/reductstore-operator/internal/constants"
	operatorerrors "github.com/reductstore/reductstore-operator/internal/errors"
)

// LogLevels lists the accepted values of the log-level option, lower-case.
var LogLevels = []string{"info", "debug", "warning", "error", "critical"}

// ValidateLogLevel checks level case-insensitively and returns it lower-cased.
func ValidateLogLevel(level string) (string, error) {
	lower := strings.ToLower(level)
	if !slices.Contains(LogLevels, lower) {
		return lower, operatorerrors.WrapConfigInvalid(errors.New(InvalidLogLevelMessage(lower)))
	}
	return lower, nil
}

// InvalidLogLevelMessage is the status message shown for a rejected log level.
func InvalidLogLevelMessage(level string) string {
	return fmt.Sprintf("invalid log level: '%s'", level)
}

// Settings are the inputs of the run layer, already defaulted and validated.
type Settings struct {
	LogLevel    string
	LicensePath string
	APIBasePath string
}

// Layer is a Pebble layer as accepted by the AddLayer API.
type Layer struct {
	Summary     string             `yaml:"summary,omitempty"`
	Description string             `yaml:"description,omitempty"`
	Services    map[string]Service `yaml:"services,omitempty"`
}

// Service is one service entry of a Pebble layer.
type Service struct {
	Override    string            `yaml:"override"`
	Summary     string            `yaml:"summary,omitempty"`
	Command     string            `yaml:"command"`
	Startup     string            `yaml:"startup,omitempty"`
	Environment map[string]string `yaml:"environment,omitempty"`
}

// Environment returns the variables the ReductStore server reads at startup.
// The controller role uses the same set for the StatefulSet container.
func Environment(s Settings) map[string]string {
	return map[string]string{
		constants.EnvRSLogLevel:    strings.ToUpper(s.LogLevel),
		constants.EnvRSPort:        strconv.Itoa(int(constants.PortHTTP)),
		constants.EnvRSDataPath:    constants.PathData,
		constants.EnvRSLicensePath: s.LicensePath,
		constants.EnvRSAPIBasePath: s.APIBasePath,
	}
}

// BuildLayer returns the run layer for the ReductStore service.
func BuildLayer(s Settings) *Layer {
	return &Layer{
		Summary:     "ReductStore layer",
		Description: "Pebble config layer for ReductStore",
		Services: map[string]Service{
			constants.ServiceNameReductStore: {
				Override:    "replace",
				Summary:     "ReductStore server",
				Command:     constants.BinaryNameReductStore,
				Startup:     "enabled",
				Environment: Environment(s),
			},
		},
	}
}

// Marshal renders the layer as YAML.
func (l *Layer) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal layer: %w", err)
	}
	return data, nil
}
