package constants

// Well-known container, service, and binary names used across the operator and helper binaries.
const (
	ContainerNameReductStore = "reductstore"
	ServiceNameReductStore   = "reductstore"
	LayerNameReductStore     = "reductstore"
	BinaryNameReductStore    = "reductstore"
)

// ResourceNameLicense is the charm resource carrying the ReductStore license file.
const ResourceNameLicense = "reductstore-license"

// Relation endpoint names declared in metadata.yaml.
const (
	RelationIngress   = "ingress"
	RelationCatalogue = "catalogue"
)

// Catalogue presentation of the workload.
const (
	CatalogueName        = "ReductStore"
	CatalogueIcon        = "database"
	CatalogueDescription = "ReductStore is a time series object store for high-frequency unstructured data."
	CatalogueAPIDocs     = "https://www.reduct.store/docs"
)

// Resource name suffixes used by the controller when creating per-instance resources.
const (
	SuffixHeadlessService = "-endpoints"
	SuffixCatalogue       = "-catalogue"
	SuffixHTTPRoute       = "-httproute"
)

// Controller names registered with the manager.
const (
	ControllerNameReductStore = "reductstore"
)
