package infra

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/go-logr/logr"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/utils/ptr"

	reductv1alpha1 "github.com/reductstore/reductstore-operator/api/v1alpha1"
	"github.com/reductstore/reductstore-operator/internal/constants"
	operatorerrors "github.com/reductstore/reductstore-operator/internal/errors"
	"github.com/reductstore/reductstore-operator/internal/workload"
)

var errLicenseNotConfigured = errors.New("spec.license is not set")

// ensureStatefulSet applies the single-replica StatefulSet running the ReductStore server.
func (m *Manager) ensureStatefulSet(ctx context.Context, logger logr.Logger, rs *reductv1alpha1.ReductStore, desired Desired) error {
	name := statefulSetName(rs)

	sts, err := buildStatefulSet(rs, desired)
	if err != nil {
		return operatorerrors.WrapPermanentConfig(fmt.Errorf("failed to build StatefulSet %s/%s: %w", rs.Namespace, name, err))
	}

	sts.TypeMeta = metav1.TypeMeta{
		Kind:       "StatefulSet",
		APIVersion: "apps/v1",
	}

	if err := m.applyResource(ctx, sts, rs); err != nil {
		return fmt.Errorf("failed to ensure StatefulSet %s/%s: %w", rs.Namespace, name, err)
	}

	logger.V(1).Info("StatefulSet applied", "statefulset", name, "licenseHash", desired.LicenseHash)
	return nil
}

func buildStatefulSet(rs *reductv1alpha1.ReductStore, desired Desired) (*appsv1.StatefulSet, error) {
	if rs.Spec.License == nil {
		return nil, errLicenseNotConfigured
	}

	pvc, err := buildDataPVC(rs)
	if err != nil {
		return nil, err
	}

	annotations := map[string]string{}
	if desired.LicenseHash != "" {
		annotations[constants.AnnotationLicenseHash] = desired.LicenseHash
	}

	return &appsv1.StatefulSet{
		ObjectMeta: metav1.ObjectMeta{
			Name:      statefulSetName(rs),
			Namespace: rs.Namespace,
			Labels:    componentLabels(rs, constants.LabelValueComponentServer),
		},
		Spec: appsv1.StatefulSetSpec{
			Replicas:    ptr.To(int32(1)),
			ServiceName: headlessServiceName(rs),
			Selector: &metav1.LabelSelector{
				MatchLabels: podSelectorLabels(rs),
			},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels:      componentLabels(rs, constants.LabelValueComponentServer),
					Annotations: annotations,
				},
				Spec: corev1.PodSpec{
					SecurityContext: buildPodSecurityContext(),
					Containers:      []corev1.Container{buildContainer(rs, desired.Settings)},
					Volumes:         []corev1.Volume{buildLicenseVolume(rs)},
				},
			},
			VolumeClaimTemplates: []corev1.PersistentVolumeClaim{pvc},
		},
	}, nil
}

func buildContainer(rs *reductv1alpha1.ReductStore, settings workload.Settings) corev1.Container {
	service := workload.BuildLayer(settings).Services[constants.ServiceNameReductStore]

	return corev1.Container{
		Name:    constants.ContainerNameReductStore,
		Image:   rs.Spec.Image,
		Command: []string{service.Command},
		Env:     envVars(service.Environment),
		Ports: []corev1.ContainerPort{
			{
				Name:          portNameHTTP,
				ContainerPort: constants.PortHTTP,
				Protocol:      corev1.ProtocolTCP,
			},
		},
		VolumeMounts: []corev1.VolumeMount{
			{
				Name:      constants.VolumeData,
				MountPath: constants.PathData,
			},
			{
				Name:      constants.VolumeLicense,
				MountPath: settings.LicensePath,
				SubPath:   path.Base(settings.LicensePath),
				ReadOnly:  true,
			},
		},
		ReadinessProbe: &corev1.Probe{
			ProbeHandler: corev1.ProbeHandler{
				HTTPGet: &corev1.HTTPGetAction{
					Path: infoPath(settings.APIBasePath),
					Port: intstr.FromInt32(constants.PortHTTP),
				},
			},
			PeriodSeconds:    10,
			FailureThreshold: 6,
		},
		LivenessProbe: &corev1.Probe{
			ProbeHandler: corev1.ProbeHandler{
				TCPSocket: &corev1.TCPSocketAction{
					Port: intstr.FromInt32(constants.PortHTTP),
				},
			},
			InitialDelaySeconds: 10,
			PeriodSeconds:       10,
			FailureThreshold:    6,
		},
		SecurityContext: &corev1.SecurityContext{
			AllowPrivilegeEscalation: ptr.To(false),
			Capabilities: &corev1.Capabilities{
				Drop: []corev1.Capability{"ALL"},
			},
		},
	}
}

// buildLicenseVolume projects the license key of the Secret to a file named after
// the configured license path, readable by its owner only.
func buildLicenseVolume(rs *reductv1alpha1.ReductStore) corev1.Volume {
	key := rs.Spec.License.Key
	if key == "" {
		key = reductv1alpha1.DefaultLicenseKey
	}
	licensePath := rs.Spec.LicensePath
	if licensePath == "" {
		licensePath = reductv1alpha1.DefaultLicensePath
	}

	return corev1.Volume{
		Name: constants.VolumeLicense,
		VolumeSource: corev1.VolumeSource{
			Secret: &corev1.SecretVolumeSource{
				SecretName: rs.Spec.License.SecretName,
				Items: []corev1.KeyToPath{
					{
						Key:  key,
						Path: path.Base(licensePath),
						Mode: ptr.To(int32(constants.LicenseFileMode)),
					},
				},
				DefaultMode: ptr.To(int32(constants.LicenseFileMode)),
			},
		},
	}
}

func buildPodSecurityContext() *corev1.PodSecurityContext {
	return &corev1.PodSecurityContext{
		RunAsUser:  ptr.To(constants.UserRoot),
		RunAsGroup: ptr.To(constants.GroupRoot),
		FSGroup:    ptr.To(constants.GroupRoot),
		SeccompProfile: &corev1.SeccompProfile{
			Type: corev1.SeccompProfileTypeRuntimeDefault,
		},
	}
}

func buildDataPVC(rs *reductv1alpha1.ReductStore) (corev1.PersistentVolumeClaim, error) {
	sizeValue := rs.Spec.Storage.Size
	if sizeValue == "" {
		sizeValue = reductv1alpha1.DefaultStorageSize
	}
	size, err := resource.ParseQuantity(sizeValue)
	if err != nil {
		return corev1.PersistentVolumeClaim{}, fmt.Errorf("invalid storage size %q: %w", sizeValue, err)
	}

	pvc := corev1.PersistentVolumeClaim{
		ObjectMeta: metav1.ObjectMeta{
			Name:   constants.VolumeData,
			Labels: infraLabels(rs),
		},
		Spec: corev1.PersistentVolumeClaimSpec{
			AccessModes: []corev1.PersistentVolumeAccessMode{
				corev1.ReadWriteOnce,
			},
			Resources: corev1.VolumeResourceRequirements{
				Requests: corev1.ResourceList{
					corev1.ResourceStorage: size,
				},
			},
		},
	}

	if rs.Spec.Storage.StorageClassName != nil && *rs.Spec.Storage.StorageClassName != "" {
		className := *rs.Spec.Storage.StorageClassName
		pvc.Spec.StorageClassName = &className
	}

	return pvc, nil
}

// envVars renders env in a stable order so repeated applies produce no diff.
func envVars(env map[string]string) []corev1.EnvVar {
	names := make([]string, 0, len(env))
	for name := range env {
		names = append(names, name)
	}
	sort.Strings(names)

	vars := make([]corev1.EnvVar, 0, len(names))
	for _, name := range names {
		vars = append(vars, corev1.EnvVar{Name: name, Value: env[name]})
	}
	return vars
}

func infoPath(basePath string) string {
	return strings.TrimSuffix(basePath, "/") + constants.APIPathInfo
}
