package v1alpha1

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

func newReductStore() *ReductStore {
	return &ReductStore{
		ObjectMeta: metav1.ObjectMeta{Name: "store", Namespace: "lab"},
		Spec:       ReductStoreSpec{Image: "reduct/store:v1.15.0"},
	}
}

func TestDefaulterFillsOptionalFields(t *testing.T) {
	rs := newReductStore()
	rs.Spec.License = &LicenseSource{SecretName: "reduct-license"}

	require.NoError(t, (&reductStoreDefaulter{}).Default(context.Background(), rs))

	assert.Equal(t, DefaultLogLevel, rs.Spec.LogLevel)
	assert.Equal(t, DefaultLicensePath, rs.Spec.LicensePath)
	assert.Equal(t, DefaultStatusCheckSchedule, rs.Spec.StatusCheckSchedule)
	assert.Equal(t, DefaultStorageSize, rs.Spec.Storage.Size)
	assert.Equal(t, DefaultLicenseKey, rs.Spec.License.Key)
	assert.Empty(t, rs.Spec.APIBasePath)
}

func TestDefaulterKeepsInvalidLogLevel(t *testing.T) {
	rs := newReductStore()
	rs.Spec.LogLevel = "foobar"

	require.NoError(t, (&reductStoreDefaulter{}).Default(context.Background(), rs))
	assert.Equal(t, "foobar", rs.Spec.LogLevel)
}

func TestParseStatusCheckSchedule(t *testing.T) {
	for _, expr := range []string{"", "@every 5m", "@hourly", "*/10 * * * *"} {
		_, err := ParseStatusCheckSchedule(expr)
		assert.NoError(t, err, expr)
	}
	_, err := ParseStatusCheckSchedule("every five minutes")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*ReductStore)
		wantErr     string
		wantWarning bool
	}{
		{
			name:   "minimal",
			mutate: func(*ReductStore) {},
		},
		{
			name:    "invalid schedule",
			mutate:  func(rs *ReductStore) { rs.Spec.StatusCheckSchedule = "soon" },
			wantErr: "spec.statusCheckSchedule",
		},
		{
			name:        "frequent schedule warns",
			mutate:      func(rs *ReductStore) { rs.Spec.StatusCheckSchedule = "@every 10s" },
			wantWarning: true,
		},
		{
			name:    "base path with query",
			mutate:  func(rs *ReductStore) { rs.Spec.APIBasePath = "/api?x=1" },
			wantErr: "spec.apiBasePath",
		},
		{
			name:    "license without secret",
			mutate:  func(rs *ReductStore) { rs.Spec.License = &LicenseSource{} },
			wantErr: "spec.license.secretName",
		},
		{
			name:    "relative license path",
			mutate:  func(rs *ReductStore) { rs.Spec.LicensePath = "reduct.lic" },
			wantErr: "spec.licensePath",
		},
		{
			name:    "bad storage size",
			mutate:  func(rs *ReductStore) { rs.Spec.Storage.Size = "lots" },
			wantErr: "spec.storage.size",
		},
		{
			name: "ingress and gateway",
			mutate: func(rs *ReductStore) {
				rs.Spec.Ingress = &IngressConfig{Host: "reduct.example.com"}
				rs.Spec.Gateway = &GatewayConfig{ParentRef: GatewayReference{Name: "gw"}, Hostname: "reduct.example.com"}
			},
			wantErr: "mutually exclusive",
		},
		{
			name:    "gateway without parent",
			mutate:  func(rs *ReductStore) { rs.Spec.Gateway = &GatewayConfig{Hostname: "reduct.example.com"} },
			wantErr: "spec.gateway.parentRef.name",
		},
		{
			name:    "ingress without host",
			mutate:  func(rs *ReductStore) { rs.Spec.Ingress = &IngressConfig{} },
			wantErr: "spec.ingress.host",
		},
	}

	validator := &reductStoreValidator{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := newReductStore()
			tt.mutate(rs)

			warnings, err := validator.ValidateCreate(context.Background(), rs)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantWarning, len(warnings) > 0, "warnings: %v", warnings)

			_, updateErr := validator.ValidateUpdate(context.Background(), rs, rs)
			assert.Equal(t, err == nil, updateErr == nil)
		})
	}
}

func TestDeepCopyIsIndependent(t *testing.T) {
	class := "traefik"
	rs := newReductStore()
	rs.Spec.Ingress = &IngressConfig{Host: "a", ClassName: &class, Annotations: map[string]string{"k": "v"}}
	rs.Status.Conditions = []metav1.Condition{{Type: string(ConditionLicenseReady), Status: metav1.ConditionTrue}}

	cp := rs.DeepCopy()
	*cp.Spec.Ingress.ClassName = "nginx"
	cp.Spec.Ingress.Annotations["k"] = "changed"
	cp.Status.Conditions[0].Status = metav1.ConditionFalse

	assert.Equal(t, "traefik", *rs.Spec.Ingress.ClassName)
	assert.Equal(t, "v", rs.Spec.Ingress.Annotations["k"])
	assert.Equal(t, metav1.ConditionTrue, rs.Status.Conditions[0].Status)
}
