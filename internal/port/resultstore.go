package port

import "github.com/desiderantes/stew/internal/domain"

// ResultStore caches extraction results between runs.
type ResultStore interface {
	// Lookup returns the cached result for path if it was produced from
	// content with the given hash.
	Lookup(path, contentHash string) (domain.FileResult, bool, error)

	Save(doc domain.Document, result domain.FileResult) error

	ListDocs() ([]domain.Document, error)

	DeleteDoc(id string) error

	UpdateStats(stats domain.Stats) error
}
