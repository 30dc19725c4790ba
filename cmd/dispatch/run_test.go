package dispatch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reductstore/reductstore-operator/internal/hookenv"
	"github.com/reductstore/reductstore-operator/internal/state"
	"github.com/reductstore/reductstore-operator/internal/workload"
)

type fixture struct {
	runner    *hookenv.FakeRunner
	container *workload.FakeContainer
	store     *state.Store
	env       hookenv.Environment
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	lic := filepath.Join(dir, "license.key")
	require.NoError(t, os.WriteFile(lic, []byte("LICENSE"), 0o600))

	store, err := state.Open(context.Background(), state.Path(dir))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	runner := hookenv.NewFakeRunner()
	runner.Responses["config-get"] = []byte(`{"log-level":"debug"}`)
	runner.Responses["resource-get"] = []byte(lic + "\n")
	runner.Responses["is-leader"] = []byte(`true`)
	runner.Responses["relation-ids"] = []byte(`[]`)
	runner.Responses["network-get"] = []byte(`"10.1.0.7"`)

	return &fixture{
		runner:    runner,
		container: workload.NewFakeContainer(),
		store:     store,
		env: hookenv.Environment{
			UnitName:  "reductstore-k8s/0",
			AppName:   "reductstore-k8s",
			ModelName: "lab",
			CharmDir:  dir,
		},
	}
}

func (f *fixture) dispatch(t *testing.T, hook string) {
	t.Helper()
	env := f.env
	env.Hook = hook
	if hook == "reductstore-pebble-ready" {
		env.WorkloadName = "reductstore"
	}
	d := NewDispatcher(env, hookenv.NewTools(f.runner), f.store, f.container, logr.Discard())
	require.NoError(t, d.Dispatch(context.Background()))
}

func (f *fixture) lastStatus(t *testing.T) []string {
	t.Helper()
	calls := f.runner.CallsTo("status-set")
	require.NotEmpty(t, calls)
	return calls[len(calls)-1].Args
}

func TestRunRejectsArguments(t *testing.T) {
	err := Run([]string{"extra"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no arguments")
}

func TestDispatchPebbleReadyWiresLicenseAndLayer(t *testing.T) {
	f := newFixture(t)

	f.dispatch(t, "reductstore-pebble-ready")

	assert.Equal(t, []string{"active"}, f.lastStatus(t))
	require.Contains(t, f.container.Files, "/reduct.lic")
	assert.Equal(t, "LICENSE", string(f.container.Files["/reduct.lic"].Data))

	layer := f.container.Layers["reductstore"]
	require.NotNil(t, layer)
	env := layer.Services["reductstore"].Environment
	assert.Equal(t, "DEBUG", env["RS_LOG_LEVEL"])
	assert.Equal(t, "/lab-reductstore-k8s", env["RS_API_BASE_PATH"])
}

func TestDispatchLicenseNotAttached(t *testing.T) {
	f := newFixture(t)
	f.runner.Errors["resource-get"] = &hookenv.ToolError{Tool: "resource-get", ExitCode: 1, Stderr: "resource not found"}

	f.dispatch(t, "reductstore-pebble-ready")

	status := f.lastStatus(t)
	require.Len(t, status, 2)
	assert.Equal(t, "blocked", status[0])
	assert.Contains(t, status[1], "reductstore-license")
}

func TestDispatchConfigChangedInvalidLogLevel(t *testing.T) {
	f := newFixture(t)
	f.runner.Responses["config-get"] = []byte(`{"log-level":"foobar"}`)

	f.dispatch(t, "config-changed")

	assert.Equal(t, []string{"blocked", "invalid log level: 'foobar'"}, f.lastStatus(t))
	assert.Empty(t, f.container.Layers)
}
