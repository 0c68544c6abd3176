package model

// Default array and field names of the in-network rate files.
const (
	DefaultRecordArray    = "in_network"
	DefaultMatchField     = "billing_code"
	DefaultDerivedPath    = "$.negotiated_rates[*].provider_references[*]"
	DefaultReferenceArray = "provider_references"
	DefaultIDField        = "provider_group_id"
	DefaultValuesPath     = "$.provider_groups[*].npi[*]"
)

// ArrayQuery names a top-level array inside a document.
type ArrayQuery struct {
	Document Path
	// ArrayKey is the key of the top-level array to scan.
	ArrayKey string
	// SkipArrays are keys of large arrays that precede ArrayKey and are
	// jumped over before the target key is searched.
	SkipArrays []string
	// DerivedPath is a JSONPath selecting derived identifiers inside a
	// matched element. Empty disables derivation.
	DerivedPath string
}

// FieldQuery selects the element whose Field equals Value.
type FieldQuery struct {
	ArrayQuery
	Field string
	Value string
}

// CollectQuery gathers dependent values for a set of identifiers.
type CollectQuery struct {
	Document    Path
	ArrayKey    string
	SkipArrays  []string
	IDField     string
	ValuesPath  string
	Identifiers []string
}

// ListQuery walks an array and records one field per element.
type ListQuery struct {
	ArrayQuery
	Field string
	// Limit stops the walk after that many elements. Zero walks the whole array.
	Limit int
}
