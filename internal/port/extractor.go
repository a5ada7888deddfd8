package port

import "github.com/desiderantes/stew/internal/domain"

// Extractor scans one file's content for translatable messages.
// Implementations return partial records alongside a scan error.
type Extractor interface {
	Extract(name string, src []byte) ([]domain.MessageRecord, error)
}
