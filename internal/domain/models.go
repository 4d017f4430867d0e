// Package domain provides the domain models and errors shared by the harvesting and
// analysis sides of the abstract word statistics tool.
package domain

// SourceType represents the source API that provided article data.
type SourceType string

const (
	// SourceTypePubMed is the NCBI PubMed E-utilities API.
	SourceTypePubMed SourceType = "pubmed"
)

// String returns the string representation of the source type.
func (s SourceType) String() string {
	return string(s)
}

// StorageBackend selects where harvested articles are persisted.
type StorageBackend string

const (
	// StorageBackendCSV stores articles in a CSV dataset file.
	StorageBackendCSV StorageBackend = "csv"
	// StorageBackendPostgres stores articles in a PostgreSQL table.
	StorageBackendPostgres StorageBackend = "postgres"
)

// IsValid reports whether the backend is one of the supported values.
func (b StorageBackend) IsValid() bool {
	switch b {
	case StorageBackendCSV, StorageBackendPostgres:
		return true
	default:
		return false
	}
}
