package infra

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	"k8s.io/utils/ptr"

	"github.com/reductstore/reductstore-operator/internal/constants"
)

func TestBuildStatefulSetContainer(t *testing.T) {
	rs := newMinimalReductStore("store", "lab")
	desired := newDesired(rs)
	desired.Settings.LogLevel = "debug"

	sts, err := buildStatefulSet(rs, desired)
	require.NoError(t, err)

	require.Len(t, sts.Spec.Template.Spec.Containers, 1)
	container := sts.Spec.Template.Spec.Containers[0]

	assert.Equal(t, constants.ContainerNameReductStore, container.Name)
	assert.Equal(t, "reduct/store:v1.15.0", container.Image)
	assert.Equal(t, []string{constants.BinaryNameReductStore}, container.Command)

	wantEnv := []corev1.EnvVar{
		{Name: "RS_API_BASE_PATH", Value: "/lab-store"},
		{Name: "RS_DATA_PATH", Value: "/data"},
		{Name: "RS_LICENSE_PATH", Value: "/reduct.lic"},
		{Name: "RS_LOG_LEVEL", Value: "DEBUG"},
		{Name: "RS_PORT", Value: "8383"},
	}
	if diff := cmp.Diff(wantEnv, container.Env); diff != "" {
		t.Fatalf("container env mismatch (-want +got):\n%s", diff)
	}

	require.NotNil(t, container.ReadinessProbe)
	require.NotNil(t, container.ReadinessProbe.HTTPGet)
	assert.Equal(t, "/lab-store/api/v1/info", container.ReadinessProbe.HTTPGet.Path)
	assert.Equal(t, constants.PortHTTP, container.ReadinessProbe.HTTPGet.Port.IntVal)

	assert.Equal(t, "abc123", sts.Spec.Template.Annotations[constants.AnnotationLicenseHash])
}

func TestBuildStatefulSetMountsLicense(t *testing.T) {
	rs := newMinimalReductStore("store", "lab")
	rs.Spec.LicensePath = "/etc/reduct/custom.lic"
	desired := newDesired(rs)

	sts, err := buildStatefulSet(rs, desired)
	require.NoError(t, err)

	volumes := sts.Spec.Template.Spec.Volumes
	require.Len(t, volumes, 1)
	secret := volumes[0].Secret
	require.NotNil(t, secret)
	assert.Equal(t, "store-license", secret.SecretName)
	require.Len(t, secret.Items, 1)
	assert.Equal(t, "license.key", secret.Items[0].Key)
	assert.Equal(t, "custom.lic", secret.Items[0].Path)
	assert.Equal(t, ptr.To(int32(0o600)), secret.Items[0].Mode)

	var licenseMount *corev1.VolumeMount
	for i := range sts.Spec.Template.Spec.Containers[0].VolumeMounts {
		mount := &sts.Spec.Template.Spec.Containers[0].VolumeMounts[i]
		if mount.Name == constants.VolumeLicense {
			licenseMount = mount
		}
	}
	require.NotNil(t, licenseMount)
	assert.Equal(t, "/etc/reduct/custom.lic", licenseMount.MountPath)
	assert.Equal(t, "custom.lic", licenseMount.SubPath)
	assert.True(t, licenseMount.ReadOnly)
}

func TestBuildStatefulSetRootBasePathProbe(t *testing.T) {
	rs := newMinimalReductStore("store", "lab")
	desired := newDesired(rs)
	desired.Settings.APIBasePath = "/"

	sts, err := buildStatefulSet(rs, desired)
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/info", sts.Spec.Template.Spec.Containers[0].ReadinessProbe.HTTPGet.Path)
}

func TestBuildDataPVC(t *testing.T) {
	rs := newMinimalReductStore("store", "lab")
	rs.Spec.Storage.Size = "25Gi"
	rs.Spec.Storage.StorageClassName = ptr.To("fast")

	pvc, err := buildDataPVC(rs)
	require.NoError(t, err)
	assert.Equal(t, constants.VolumeData, pvc.Name)
	assert.True(t, pvc.Spec.Resources.Requests[corev1.ResourceStorage].Equal(resource.MustParse("25Gi")))
	assert.Equal(t, ptr.To("fast"), pvc.Spec.StorageClassName)

	rs.Spec.Storage.Size = "lots"
	_, err = buildDataPVC(rs)
	assert.Error(t, err)
}

func TestBuildPodSecurityContext(t *testing.T) {
	sc := buildPodSecurityContext()
	require.NotNil(t, sc.SeccompProfile)
	assert.Equal(t, corev1.SeccompProfileTypeRuntimeDefault, sc.SeccompProfile.Type)
	assert.Equal(t, ptr.To(constants.UserRoot), sc.RunAsUser)
}
