package hookenv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envFrom(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadEnvironment(t *testing.T) {
	env, err := LoadEnvironment(envFrom(map[string]string{
		"JUJU_DISPATCH_PATH": "hooks/ingress-relation-changed",
		"JUJU_UNIT_NAME":     "reductstore-k8s/0",
		"JUJU_MODEL_NAME":    "testing",
		"JUJU_CHARM_DIR":     "/var/lib/juju/agents/unit-reductstore-k8s-0/charm",
		"JUJU_RELATION":      "ingress",
		"JUJU_RELATION_ID":   "ingress:3",
		"JUJU_REMOTE_APP":    "traefik",
	}))
	require.NoError(t, err)

	assert.Equal(t, "ingress-relation-changed", env.Hook)
	assert.Equal(t, "reductstore-k8s", env.AppName)
	assert.Equal(t, "testing", env.ModelName)
	assert.Equal(t, "ingress:3", env.RelationID)
	assert.Equal(t, "traefik", env.RemoteApp)
	assert.True(t, env.IsRelationHook())
}

func TestLoadEnvironmentHookNameFallback(t *testing.T) {
	env, err := LoadEnvironment(envFrom(map[string]string{
		"JUJU_HOOK_NAME": "update-status",
		"JUJU_UNIT_NAME": "reductstore-k8s/1",
	}))
	require.NoError(t, err)
	assert.Equal(t, "update-status", env.Hook)
	assert.False(t, env.IsRelationHook())
}

func TestLoadEnvironmentErrors(t *testing.T) {
	_, err := LoadEnvironment(envFrom(map[string]string{"JUJU_UNIT_NAME": "a/0"}))
	require.Error(t, err)

	_, err = LoadEnvironment(envFrom(map[string]string{"JUJU_DISPATCH_PATH": "hooks/install"}))
	require.Error(t, err)

	_, err = LoadEnvironment(envFrom(map[string]string{
		"JUJU_DISPATCH_PATH": "hooks/install",
		"JUJU_UNIT_NAME":     "no-slash",
	}))
	require.Error(t, err)
}
