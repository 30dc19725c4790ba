package constants

// Common Kubernetes label keys used by the operator.
const (
	LabelAppName      = "app.kubernetes.io/name"
	LabelAppInstance  = "app.kubernetes.io/instance"
	LabelAppManagedBy = "app.kubernetes.io/managed-by"
	LabelAppComponent = "app.kubernetes.io/component"

	LabelReductStoreInstance = "reduct.store/instance"
)

// Common label values used by the operator.
const (
	LabelValueAppNameReductStore              = "reductstore"
	LabelValueAppManagedByReductStoreOperator = "reductstore-operator"
	LabelValueComponentServer                 = "server"
	LabelValueComponentCatalogue              = "catalogue"
)

// FieldOwner is the Server-Side Apply field manager used by the controller.
const FieldOwner = "reductstore-operator"

// Annotations written by the controller on managed objects.
const (
	// AnnotationLicenseHash records the license Secret content hash on the pod template
	// so a changed license rolls the pod.
	AnnotationLicenseHash = "reduct.store/license-hash"
)

// CatalogueConfigMapKey is the ConfigMap key holding the catalogue item JSON.
const CatalogueConfigMapKey = "item.json"
