package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/desiderantes/stew/internal/adapter/lexer"
	"github.com/desiderantes/stew/internal/adapter/store"
	"github.com/desiderantes/stew/internal/domain"
	"github.com/desiderantes/stew/internal/port"
)

// ExtractUseCase runs the extractor over many files. Files are scanned
// independently and in parallel; one file's failure never stops the others.
type ExtractUseCase struct {
	walker    port.FileWalker
	reader    port.FileReader
	extractor port.Extractor
	store     port.ResultStore
	workers   int
	logger    zerolog.Logger
}

// NewExtractUseCase creates a new extract use case. st may be nil to
// disable caching; workers <= 0 uses one worker per CPU.
func NewExtractUseCase(
	walker port.FileWalker,
	reader port.FileReader,
	extractor port.Extractor,
	st port.ResultStore,
	workers int,
	logger zerolog.Logger,
) *ExtractUseCase {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &ExtractUseCase{
		walker:    walker,
		reader:    reader,
		extractor: extractor,
		store:     st,
		workers:   workers,
		logger:    logger,
	}
}

// ProgressFunc is called after each file completes.
type ProgressFunc func(processed, total int, currentFile string)

// ExtractResult contains the results of an extraction run.
type ExtractResult struct {
	Files       []domain.FileResult
	FilesTotal  int
	FilesCached int
	FilesFailed int
	Diagnostics int
	Records     int
	CachePruned int
}

// Extract walks root (a directory or a single file) and extracts every
// matching file. When ctx is cancelled no new files are started and the
// results gathered so far are returned together with ctx.Err().
func (u *ExtractUseCase) Extract(ctx context.Context, root string, progress ProgressFunc) (*ExtractResult, error) {
	files, err := u.walker.Walk(root)
	if err != nil {
		return nil, err
	}
	u.logger.Debug().Int("count", len(files)).Str("root", root).Msg("Discovered files")

	result, err := u.run(ctx, files, progress)
	if err != nil {
		return result, err
	}

	if u.store != nil {
		if abs, absErr := filepath.Abs(root); absErr == nil {
			u.prune(abs, result)
		}
		u.updateStats(result)
	}
	return result, nil
}

// ExtractFiles extracts exactly the given paths without walking.
func (u *ExtractUseCase) ExtractFiles(ctx context.Context, paths []string, progress ProgressFunc) (*ExtractResult, error) {
	files := make([]port.FileInfo, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		files = append(files, port.FileInfo{Path: abs})
	}
	return u.run(ctx, files, progress)
}

func (u *ExtractUseCase) run(ctx context.Context, files []port.FileInfo, progress ProgressFunc) (*ExtractResult, error) {
	results := make([]domain.FileResult, len(files))
	done := make([]bool, len(files))

	var (
		mu        sync.Mutex
		processed int
	)

	var g errgroup.Group
	g.SetLimit(u.workers)

	for i, file := range files {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			results[i] = u.extractFile(file)
			done[i] = true

			mu.Lock()
			processed++
			if progress != nil {
				progress(processed, len(files), file.Path)
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	result := &ExtractResult{FilesTotal: len(files)}
	for i, r := range results {
		if !done[i] {
			continue
		}
		result.Files = append(result.Files, r)
		result.Records += len(r.Records)
		switch {
		case r.Err != "":
			result.FilesFailed++
		case r.Diagnostic != nil:
			result.Diagnostics++
		}
		if r.Cached {
			result.FilesCached++
		}
	}

	return result, ctx.Err()
}

// extractFile reads and scans one file, consulting the cache first.
func (u *ExtractUseCase) extractFile(file port.FileInfo) domain.FileResult {
	data, err := u.reader.ReadFile(file.Path)
	if err != nil {
		u.logger.Warn().Err(err).Str("path", file.Path).Msg("Failed to read file")
		return domain.FileResult{Path: file.Path, Err: err.Error()}
	}

	hash := contentHash(data)
	if u.store != nil {
		cached, hit, err := u.store.Lookup(file.Path, hash)
		if err != nil {
			u.logger.Warn().Err(err).Str("path", file.Path).Msg("Cache lookup failed")
		} else if hit {
			return cached
		}
	}

	result := u.ExtractSource(file.Path, data)

	if u.store != nil {
		doc := domain.Document{
			ID:          store.DocID(file.Path),
			Path:        file.Path,
			ModTime:     time.Unix(file.ModTime, 0),
			ContentHash: hash,
			Lang:        detectLanguage(file.Path),
		}
		if err := u.store.Save(doc, result); err != nil {
			u.logger.Warn().Err(err).Str("path", file.Path).Msg("Failed to cache result")
		}
	}

	return result
}

// ExtractSource scans in-memory source attributed to name. A scan that
// stops early yields the records found so far plus a diagnostic.
func (u *ExtractUseCase) ExtractSource(name string, src []byte) domain.FileResult {
	records, err := u.extractor.Extract(name, src)
	result := domain.FileResult{Path: name, Records: records}
	if err != nil {
		var scanErr *lexer.ScanError
		if errors.As(err, &scanErr) {
			diag := scanErr.Diagnostic()
			result.Diagnostic = &diag
			u.logger.Warn().
				Str("path", name).
				Stringer("pos", diag.Pos).
				Str("kind", string(diag.Kind)).
				Msg("Scan stopped early")
		} else {
			result.Err = err.Error()
		}
	}
	return result
}

// prune drops cache entries under root for files that no longer exist.
func (u *ExtractUseCase) prune(root string, result *ExtractResult) {
	docs, err := u.store.ListDocs()
	if err != nil {
		u.logger.Warn().Err(err).Msg("Failed to list cached documents")
		return
	}

	seen := make(map[string]struct{}, len(result.Files))
	for _, f := range result.Files {
		seen[f.Path] = struct{}{}
	}

	prefix := root + string(filepath.Separator)
	for _, doc := range docs {
		if !strings.HasPrefix(doc.Path, prefix) {
			continue
		}
		if _, ok := seen[doc.Path]; ok {
			continue
		}
		if err := u.store.DeleteDoc(doc.ID); err != nil {
			u.logger.Warn().Err(err).Str("path", doc.Path).Msg("Failed to prune cache entry")
			continue
		}
		result.CachePruned++
	}
}

func (u *ExtractUseCase) updateStats(result *ExtractResult) {
	stats := domain.Stats{
		TotalDocs:    len(result.Files),
		TotalRecords: result.Records,
		UpdatedAt:    time.Now().UTC(),
	}
	if err := u.store.UpdateStats(stats); err != nil {
		u.logger.Warn().Err(err).Msg("Failed to update cache stats")
	}
}

func contentHash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// detectLanguage detects the source language based on file extension.
func detectLanguage(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".c":
		return "c"
	case ".h":
		return "c-header"
	case ".cc", ".cpp", ".cxx", ".c++":
		return "cpp"
	case ".hh", ".hpp", ".hxx":
		return "cpp-header"
	default:
		return "unknown"
	}
}
