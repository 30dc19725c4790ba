package urls

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeBasePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/", "/"},
		{"", "/"},
		{"api", "/api"},
		{"/api/", "/api"},
		{"api/", "/api"},
		{"/custom/api/path", "/custom/api/path"},
		{"/a//", "/a/"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeBasePath(tt.in))
		})
	}
}

func TestDefaultBasePath(t *testing.T) {
	assert.Equal(t, "/testing-reductstore-k8s", DefaultBasePath("testing", "reductstore-k8s"))
}

func TestNormalizeIngressURL(t *testing.T) {
	got, err := NormalizeIngressURL("http://example.test")
	require.NoError(t, err)
	assert.Equal(t, "http://example.test/", got)

	got, err = NormalizeIngressURL("https://example.test/model-app")
	require.NoError(t, err)
	assert.Equal(t, "https://example.test/model-app", got)

	_, err = NormalizeIngressURL("example.test/path")
	require.Error(t, err)

	_, err = NormalizeIngressURL("://bad")
	require.Error(t, err)
}

func TestExternalURLs(t *testing.T) {
	tests := []struct {
		name    string
		ingress string
		base    string
		wantAPI string
		wantUI  string
	}{
		{
			name:    "no ingress",
			ingress: "",
			base:    "/model-app",
			wantAPI: "",
			wantUI:  "",
		},
		{
			name:    "custom path replaces ingress path",
			ingress: "https://custom.example.com",
			base:    "/custom/api/path",
			wantAPI: "https://custom.example.com/custom/api/path",
			wantUI:  "https://custom.example.com/custom/api/path/ui/dashboard",
		},
		{
			name:    "ingress path query and fragment dropped",
			ingress: "http://example.test/model-app/?x=1#frag",
			base:    "/model-app",
			wantAPI: "http://example.test/model-app",
			wantUI:  "http://example.test/model-app/ui/dashboard",
		},
		{
			name:    "empty base path",
			ingress: "http://example.test:8080/",
			base:    "",
			wantAPI: "http://example.test:8080/",
			wantUI:  "http://example.test:8080/ui/dashboard",
		},
		{
			name:    "root base path",
			ingress: "http://example.test/",
			base:    "/",
			wantAPI: "http://example.test/",
			wantUI:  "http://example.test/ui/dashboard",
		},
		{
			name:    "userinfo kept",
			ingress: "https://user:pw@example.test:8443/model-app/",
			base:    "/base",
			wantAPI: "https://user:pw@example.test:8443/base",
			wantUI:  "https://user:pw@example.test:8443/base/ui/dashboard",
		},
		{
			name:    "relative ingress",
			ingress: "example.test",
			base:    "/x",
			wantAPI: "",
			wantUI:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantAPI, ExternalAPIURL(tt.ingress, tt.base))
			assert.Equal(t, tt.wantUI, ExternalUIURL(tt.ingress, tt.base))
		})
	}
}

func TestInfoURL(t *testing.T) {
	assert.Equal(t, "", InfoURL(""))
	assert.Equal(t, "http://example.test/api/v1/info", InfoURL("http://example.test/"))
	assert.Equal(t, "http://example.test/m-a/api/v1/info", InfoURL("http://example.test/m-a"))
}
