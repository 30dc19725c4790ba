/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package controller

import (
	"crypto/tls"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/apimachinery/pkg/runtime/schema"
	gatewayv1 "sigs.k8s.io/gateway-api/apis/v1"
)

func TestParseFlagsDefaults(t *testing.T) {
	o, err := parseFlags(nil)
	require.NoError(t, err)

	assert.Equal(t, ":8443", o.metricsAddr)
	assert.Equal(t, ":8081", o.probeAddr)
	assert.False(t, o.enableLeaderElection)
	assert.True(t, o.secureMetrics)
	assert.False(t, o.enableHTTP2)
	assert.True(t, o.enableWebhooks)
	assert.True(t, o.zap.Development)
}

func TestParseFlagsOverrides(t *testing.T) {
	o, err := parseFlags([]string{
		"--leader-elect",
		"--metrics-bind-address=:9090",
		"--metrics-secure=false",
		"--enable-webhooks=false",
		"--metrics-cert-path=/certs",
	})
	require.NoError(t, err)

	assert.True(t, o.enableLeaderElection)
	assert.Equal(t, ":9090", o.metricsAddr)
	assert.False(t, o.secureMetrics)
	assert.False(t, o.enableWebhooks)

	metricsOptions := o.metricsServerOptions()
	assert.Equal(t, "/certs", metricsOptions.CertDir)
	assert.Nil(t, metricsOptions.FilterProvider)
}

func TestParseFlagsRejectsUnknown(t *testing.T) {
	_, err := parseFlags([]string{"--no-such-flag"})
	assert.Error(t, err)

	_, err = parseFlags([]string{"stray"})
	assert.Error(t, err)
}

func TestMetricsServerOptionsDisablesHTTP2(t *testing.T) {
	o, err := parseFlags(nil)
	require.NoError(t, err)

	metricsOptions := o.metricsServerOptions()
	require.Len(t, metricsOptions.TLSOpts, 1)
	assert.NotNil(t, metricsOptions.FilterProvider)

	cfg := &tls.Config{NextProtos: []string{"h2", "http/1.1"}}
	metricsOptions.TLSOpts[0](cfg)
	assert.Equal(t, []string{"http/1.1"}, cfg.NextProtos)

	o.enableHTTP2 = true
	assert.Empty(t, o.metricsServerOptions().TLSOpts)
}

func TestGatewayAPIAvailable(t *testing.T) {
	empty := meta.NewDefaultRESTMapper(nil)
	available, err := gatewayAPIAvailable(empty)
	require.NoError(t, err)
	assert.False(t, available)

	withRoutes := meta.NewDefaultRESTMapper([]schema.GroupVersion{gatewayv1.SchemeGroupVersion})
	withRoutes.Add(gatewayv1.SchemeGroupVersion.WithKind("HTTPRoute"), meta.RESTScopeNamespace)
	available, err = gatewayAPIAvailable(withRoutes)
	require.NoError(t, err)
	assert.True(t, available)
}
