package charm

import (
	"github.com/reductstore/reductstore-operator/internal/constants"
	"github.com/reductstore/reductstore-operator/internal/urls"
	"github.com/reductstore/reductstore-operator/internal/workload"
)

// Config is the charm configuration as returned by config-get.
type Config struct {
	LogLevel    string `json:"log-level"`
	LicensePath string `json:"license-path"`
	APIBasePath string `json:"api-base-path"`
}

// WithDefaults fills unset options. The base path default depends on the model and
// application names.
func (c Config) WithDefaults(model, app string) Config {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LicensePath == "" {
		c.LicensePath = constants.PathDefaultLicense
	}
	if c.APIBasePath == "" {
		c.APIBasePath = urls.DefaultBasePath(model, app)
	}
	return c
}

// BasePath returns the normalized API base path.
func (c Config) BasePath(model, app string) string {
	return urls.NormalizeBasePath(c.WithDefaults(model, app).APIBasePath)
}

// Settings validates the configuration and returns the run layer inputs.
// The returned string is the lower-cased log level, also on error.
func (c Config) Settings(model, app string) (workload.Settings, string, error) {
	c = c.WithDefaults(model, app)
	level, err := workload.ValidateLogLevel(c.LogLevel)
	if err != nil {
		return workload.Settings{}, level, err
	}
	return workload.Settings{
		LogLevel:    level,
		LicensePath: c.LicensePath,
		APIBasePath: urls.NormalizeBasePath(c.APIBasePath),
	}, level, nil
}
