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

package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Phase mirrors the unit status a Juju-managed ReductStore would show.
// +kubebuilder:validation:Enum=Active;Blocked;Maintenance
type Phase string

const (
	// PhaseActive means the workload runs with the requested configuration.
	PhaseActive Phase = "Active"
	// PhaseBlocked means the operator cannot proceed without user action.
	PhaseBlocked Phase = "Blocked"
	// PhaseMaintenance means the operator is waiting on the workload or ingress.
	PhaseMaintenance Phase = "Maintenance"
)

// ConditionType identifies a specific aspect of ReductStore health.
type ConditionType string

const (
	// ConditionConfigValid reports whether logLevel and statusCheckSchedule are usable.
	ConditionConfigValid ConditionType = "ConfigValid"
	// ConditionLicenseReady reports whether the license Secret and key are present.
	ConditionLicenseReady ConditionType = "LicenseReady"
	// ConditionWorkloadReady reports whether the server answers its info endpoint.
	ConditionWorkloadReady ConditionType = "WorkloadReady"
	// ConditionIngressReady reports whether the Ingress or HTTPRoute has been admitted.
	ConditionIngressReady ConditionType = "IngressReady"
)

// URLScheme is the scheme clients use to reach ReductStore through ingress.
// +kubebuilder:validation:Enum=http;https
type URLScheme string

const (
	URLSchemeHTTP  URLScheme = "http"
	URLSchemeHTTPS URLScheme = "https"
)

// LicenseSource selects the Secret key holding the ReductStore license file.
type LicenseSource struct {
	// SecretName is the name of a Secret in the ReductStore namespace.
	// +kubebuilder:validation:MinLength=1
	SecretName string `json:"secretName"`
	// Key is the Secret data key containing the license. Defaults to "license.key".
	// +optional
	// +kubebuilder:default=license.key
	Key string `json:"key,omitempty"`
}

// StorageConfig defines the data volume.
type StorageConfig struct {
	// Size is the requested capacity of the data PVC, for example "10Gi".
	// +kubebuilder:default="10Gi"
	Size string `json:"size,omitempty"`
	// StorageClassName is an optional StorageClass for the data PVC.
	// +optional
	StorageClassName *string `json:"storageClassName,omitempty"`
}

// IngressConfig exposes ReductStore through a networking.k8s.io Ingress.
type IngressConfig struct {
	// Host is the external host, for example "reduct.example.com".
	// +kubebuilder:validation:MinLength=1
	Host string `json:"host"`
	// ClassName is an optional IngressClassName (for example, "nginx", "traefik").
	// +optional
	ClassName *string `json:"className,omitempty"`
	// Scheme is the scheme of the published URL. Defaults to https when a TLS
	// Secret is set and http otherwise.
	// +optional
	Scheme URLScheme `json:"scheme,omitempty"`
	// TLSSecretName is an optional TLS Secret name for the Ingress host.
	// +optional
	TLSSecretName string `json:"tlsSecretName,omitempty"`
	// Annotations are additional annotations to apply to the Ingress.
	// +optional
	Annotations map[string]string `json:"annotations,omitempty"`
}

// GatewayReference identifies the parent Gateway of the HTTPRoute.
type GatewayReference struct {
	// Name of the Gateway resource.
	// +kubebuilder:validation:MinLength=1
	Name string `json:"name"`
	// Namespace of the Gateway resource. If empty, uses the ReductStore namespace.
	// +optional
	Namespace string `json:"namespace,omitempty"`
}

// GatewayConfig exposes ReductStore through a Gateway API HTTPRoute.
type GatewayConfig struct {
	// ParentRef references an existing Gateway. The Gateway must already exist.
	ParentRef GatewayReference `json:"parentRef"`
	// Hostname routed to this ReductStore.
	// +kubebuilder:validation:MinLength=1
	Hostname string `json:"hostname"`
	// Scheme is the scheme of the published URL. Defaults to http.
	// +optional
	Scheme URLScheme `json:"scheme,omitempty"`
	// Annotations to apply to the HTTPRoute resource.
	// +optional
	Annotations map[string]string `json:"annotations,omitempty"`
}

// ReductStoreSpec defines the desired state of a ReductStore instance.
// +kubebuilder:validation:XValidation:rule="!(has(self.ingress) && has(self.gateway))",message="spec.ingress and spec.gateway are mutually exclusive"
type ReductStoreSpec struct {
	// Image is the ReductStore container image.
	// +kubebuilder:validation:MinLength=1
	Image string `json:"image"`
	// LogLevel is one of TRACE, DEBUG, INFO, WARNING, ERROR (case-insensitive).
	// An unknown level blocks the instance until it is corrected.
	// +optional
	// +kubebuilder:default=INFO
	LogLevel string `json:"logLevel,omitempty"`
	// LicensePath is where the license file is mounted inside the workload.
	// +optional
	// +kubebuilder:default="/reduct.lic"
	LicensePath string `json:"licensePath,omitempty"`
	// APIBasePath is the HTTP path prefix of the ReductStore API. Defaults to
	// "/<namespace>-<name>".
	// +optional
	APIBasePath string `json:"apiBasePath,omitempty"`
	// License references the Secret holding the license file.
	// +optional
	License *LicenseSource `json:"license,omitempty"`
	// Storage configures the data volume.
	// +optional
	Storage StorageConfig `json:"storage,omitempty"`
	// Ingress exposes ReductStore through an Ingress.
	// +optional
	Ingress *IngressConfig `json:"ingress,omitempty"`
	// Gateway exposes ReductStore through a Gateway API HTTPRoute.
	// +optional
	Gateway *GatewayConfig `json:"gateway,omitempty"`
	// StatusCheckSchedule is a cron expression or descriptor controlling how often
	// the workload is probed while nothing else changes.
	// +optional
	// +kubebuilder:default="@every 5m"
	StatusCheckSchedule string `json:"statusCheckSchedule,omitempty"`
	// Paused stops reconciliation of owned resources.
	// +optional
	Paused bool `json:"paused,omitempty"`
}

// ReductStoreStatus defines the observed state of a ReductStore instance.
type ReductStoreStatus struct {
	// Phase is the unit-status equivalent of the instance.
	// +optional
	Phase Phase `json:"phase,omitempty"`
	// Message explains the phase, for example "Ingress at https://reduct.example.com/".
	// +optional
	Message string `json:"message,omitempty"`
	// IngressURL is the normalized URL handed out by the Ingress or Gateway.
	// +optional
	IngressURL string `json:"ingressURL,omitempty"`
	// APIURL is the external ReductStore API URL.
	// +optional
	APIURL string `json:"apiURL,omitempty"`
	// UIURL is the external web console URL.
	// +optional
	UIURL string `json:"uiURL,omitempty"`
	// ReadyReplicas is the number of ready ReductStore pods.
	// +optional
	ReadyReplicas int32 `json:"readyReplicas,omitempty"`
	// ServerVersion is the version reported by the last successful status check.
	// +optional
	ServerVersion string `json:"serverVersion,omitempty"`
	// LastStatusCheck is when the workload was last probed.
	// +optional
	LastStatusCheck *metav1.Time `json:"lastStatusCheck,omitempty"`
	// ObservedGeneration is the last spec generation the controller acted on.
	// +optional
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`
	// Conditions represent the latest available observations.
	// +optional
	// +listType=map
	// +listMapKey=type
	Conditions []metav1.Condition `json:"conditions,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:shortName=rs
// +kubebuilder:printcolumn:name="Phase",type=string,JSONPath=`.status.phase`
// +kubebuilder:printcolumn:name="Message",type=string,JSONPath=`.status.message`
// +kubebuilder:printcolumn:name="UI",type=string,JSONPath=`.status.uiURL`,priority=1
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`

// ReductStore is the Schema for the reductstores API.
type ReductStore struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   ReductStoreSpec   `json:"spec,omitempty"`
	Status ReductStoreStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// ReductStoreList contains a list of ReductStore.
type ReductStoreList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []ReductStore `json:"items"`
}

func init() {
	SchemeBuilder.Register(&ReductStore{}, &ReductStoreList{})
}
