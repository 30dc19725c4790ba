package hookenv

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	operatorerrors "github.com/reductstore/reductstore-operator/internal/errors"
)

func TestConfigGet(t *testing.T) {
	runner := NewFakeRunner()
	runner.Responses["config-get"] = []byte(`{"log-level":"debug","license-path":null,"api-base-path":"/x"}`)
	tools := NewTools(runner)

	var cfg struct {
		LogLevel    string `json:"log-level"`
		LicensePath string `json:"license-path"`
		APIBasePath string `json:"api-base-path"`
	}
	require.NoError(t, tools.ConfigGet(context.Background(), &cfg))

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Empty(t, cfg.LicensePath)
	assert.Equal(t, "/x", cfg.APIBasePath)
	assert.Equal(t, []string{"--format=json", "--all"}, runner.Calls[0].Args)
}

func TestFetch(t *testing.T) {
	ctx := context.Background()

	runner := NewFakeRunner()
	runner.Responses["resource-get"] = []byte("/var/lib/juju/resources/reductstore-license/reduct.lic\n")
	path, err := NewTools(runner).Fetch(ctx, "reductstore-license")
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/juju/resources/reductstore-license/reduct.lic", path)

	missing := NewFakeRunner()
	missing.Errors["resource-get"] = &ToolError{Tool: "resource-get", ExitCode: 1, Stderr: "resource not found"}
	_, err = NewTools(missing).Fetch(ctx, "reductstore-license")
	require.Error(t, err)
	assert.ErrorIs(t, err, operatorerrors.ErrResourceMissing)

	broken := NewFakeRunner()
	broken.Errors["resource-get"] = errors.New("exec: \"resource-get\": executable file not found in $PATH")
	_, err = NewTools(broken).Fetch(ctx, "reductstore-license")
	require.Error(t, err)
	assert.NotErrorIs(t, err, operatorerrors.ErrResourceMissing)
}

func TestStatusSet(t *testing.T) {
	runner := NewFakeRunner()
	tools := NewTools(runner)
	ctx := context.Background()

	require.NoError(t, tools.StatusSet(ctx, StatusBlocked, "invalid log level: 'trace'"))
	require.NoError(t, tools.StatusSet(ctx, StatusActive, ""))
	require.Error(t, tools.StatusSet(ctx, "broken", "x"))

	calls := runner.CallsTo("status-set")
	require.Len(t, calls, 2)
	assert.Equal(t, []string{"blocked", "invalid log level: 'trace'"}, calls[0].Args)
	assert.Equal(t, []string{"active"}, calls[1].Args)
}

func TestIsLeader(t *testing.T) {
	runner := NewFakeRunner()
	runner.Responses["is-leader"] = []byte("true\n")
	leader, err := NewTools(runner).IsLeader(context.Background())
	require.NoError(t, err)
	assert.True(t, leader)
}

func TestRelationIDs(t *testing.T) {
	runner := NewFakeRunner()
	runner.Responses["relation-ids"] = []byte(`["ingress:3"]`)
	ids, err := NewTools(runner).RelationIDs(context.Background(), "ingress")
	require.NoError(t, err)
	assert.Equal(t, []string{"ingress:3"}, ids)
}

func TestRelationGet(t *testing.T) {
	runner := NewFakeRunner()
	runner.Responses["relation-get"] = []byte(`{"ingress":"{\"url\": \"http://example.test/\"}"}`)
	data, err := NewTools(runner).RelationGet(context.Background(), "ingress:3", "traefik", true)
	require.NoError(t, err)

	assert.Equal(t, `{"url": "http://example.test/"}`, data["ingress"])
	assert.Equal(t, []string{"--format=json", "-r", "ingress:3", "--app", "-", "traefik"}, runner.Calls[0].Args)

	empty := NewFakeRunner()
	empty.Responses["relation-get"] = []byte("null\n")
	data, err = NewTools(empty).RelationGet(context.Background(), "ingress:3", "traefik", true)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestRelationSet(t *testing.T) {
	runner := NewFakeRunner()
	err := NewTools(runner).RelationSet(context.Background(), "catalogue:7", true, map[string]string{
		"name": "ReductStore",
		"url":  "",
	})
	require.NoError(t, err)

	call := runner.Calls[0]
	assert.Equal(t, "relation-set", call.Tool)
	assert.Equal(t, []string{"-r", "catalogue:7", "--app", "--file", "-"}, call.Args)

	var written map[string]string
	require.NoError(t, yaml.Unmarshal([]byte(call.Stdin), &written))
	assert.Equal(t, map[string]string{"name": "ReductStore", "url": ""}, written)
}

func TestIngressAddress(t *testing.T) {
	runner := NewFakeRunner()
	runner.Responses["network-get"] = []byte(`"10.1.2.3"`)
	addr, err := NewTools(runner).IngressAddress(context.Background(), "ingress")
	require.NoError(t, err)
	assert.Equal(t, "10.1.2.3", addr)
}

func TestToolError(t *testing.T) {
	err := &ToolError{Tool: "status-set", ExitCode: 2}
	assert.Equal(t, "status-set: exit status 2", err.Error())
	assert.True(t, IsToolError(errors.Join(errors.New("ctx"), err)))
	assert.False(t, IsToolError(errors.New("plain")))
}

func TestRemoteApp(t *testing.T) {
	runner := NewFakeRunner()
	runner.Responses["relation-list"] = []byte(`"traefik"`)
	app, err := NewTools(runner).RemoteApp(context.Background(), "ingress:3")
	require.NoError(t, err)
	assert.Equal(t, "traefik", app)
	assert.Equal(t, []string{"--format=json", "--app", "-r", "ingress:3"}, runner.Calls[0].Args)
}
