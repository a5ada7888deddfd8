//go:build js && wasm

package main

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"syscall/js"
	"time"

	"github.com/desiderantes/stew/internal/adapter/cache"
	"github.com/desiderantes/stew/internal/adapter/extractor"
	"github.com/desiderantes/stew/internal/adapter/lexer"
	"github.com/desiderantes/stew/internal/adapter/memstore"
	"github.com/desiderantes/stew/internal/domain"
	"github.com/desiderantes/stew/internal/port"
)

// contentCacheSize bounds the buffers remembered independently of their
// file name.
const contentCacheSize = 128

var (
	ex       *extractor.Extractor
	contents *cache.ContentCache
	scanner  port.Extractor
	store    *memstore.MemoryStore
)

func init() {
	ex = extractor.New(extractor.Options{})
	contents = cache.NewContentCache(contentCacheSize)
	scanner = cache.NewCachedExtractor(ex, contents)
	store = memstore.NewMemoryStore()
}

func main() {
	c := make(chan struct{})

	js.Global().Set("stewExtract", js.FuncOf(extractContent))
	js.Global().Set("stewKeywords", js.FuncOf(listKeywords))
	js.Global().Set("stewConfigure", js.FuncOf(configure))
	js.Global().Set("stewClear", js.FuncOf(clearStore))
	js.Global().Set("stewStats", js.FuncOf(getStats))

	<-c
}

func extractContent(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return makeError("usage: stewExtract(filename, content)")
	}

	filename := args[0].String()
	content := args[1].String()

	hash := contentHash(content)
	if cached, hit, _ := store.Lookup(filename, hash); hit {
		return makeResult(resultPayload(filename, cached))
	}

	records, err := scanner.Extract(filename, []byte(content))
	result := domain.FileResult{Path: filename, Records: records}
	if err != nil {
		var scanErr *lexer.ScanError
		if !errors.As(err, &scanErr) {
			return makeError("extraction failed: " + err.Error())
		}
		diag := scanErr.Diagnostic()
		result.Diagnostic = &diag
	}

	doc := domain.Document{
		ID:          generateDocID(filename),
		Path:        filename,
		ModTime:     time.Now(),
		ContentHash: hash,
		Lang:        "c",
	}
	store.Save(doc, result)

	docs, _ := store.ListDocs()
	store.UpdateStats(domain.Stats{
		TotalDocs:    len(docs),
		TotalRecords: store.Records(),
		UpdatedAt:    time.Now(),
	})

	return makeResult(resultPayload(filename, result))
}

func resultPayload(filename string, result domain.FileResult) map[string]interface{} {
	records := result.Records
	if records == nil {
		records = []domain.MessageRecord{}
	}
	payload := map[string]interface{}{
		"filename": filename,
		"records":  records,
		"cached":   result.Cached,
	}
	if result.Diagnostic != nil {
		payload["diagnostic"] = result.Diagnostic
	}
	return payload
}

func listKeywords(this js.Value, args []js.Value) interface{} {
	return makeResult(map[string]interface{}{
		"keywords": ex.Keywords().Specs(),
	})
}

// configure replaces the extractor: stewConfigure([keyword specs], [domains]).
func configure(this js.Value, args []js.Value) interface{} {
	var specs, domains []string
	if len(args) > 0 {
		specs = stringSlice(args[0])
	}
	if len(args) > 1 {
		domains = stringSlice(args[1])
	}

	keywords, err := extractor.ParseKeywords(specs)
	if err != nil {
		return makeError(err.Error())
	}
	ex = extractor.New(extractor.Options{Keywords: keywords, Domains: domains})
	contents.Invalidate()
	scanner = cache.NewCachedExtractor(ex, contents)
	store.Clear()

	return makeResult(map[string]interface{}{
		"success":  true,
		"keywords": len(keywords),
	})
}

func clearStore(this js.Value, args []js.Value) interface{} {
	store.Clear()
	contents.Invalidate()
	return makeResult(map[string]interface{}{
		"success": true,
	})
}

func getStats(this js.Value, args []js.Value) interface{} {
	stats, _ := store.GetStats()
	docs, _ := store.ListDocs()

	filenames := make([]string, len(docs))
	for i, doc := range docs {
		filenames[i] = doc.Path
	}

	hits, misses := contents.Stats()

	return makeResult(map[string]interface{}{
		"totalDocs":      stats.TotalDocs,
		"totalRecords":   stats.TotalRecords,
		"files":          filenames,
		"uniqueContents": contents.Size(),
		"contentHits":    hits,
		"contentMisses":  misses,
	})
}

func contentHash(content string) string {
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}

func generateDocID(path string) string {
	hash := sha256.Sum256([]byte(path))
	return hex.EncodeToString(hash[:8])
}

func stringSlice(v js.Value) []string {
	if v.IsUndefined() || v.IsNull() {
		return nil
	}
	out := make([]string, v.Length())
	for i := range out {
		out[i] = v.Index(i).String()
	}
	return out
}

func makeError(msg string) interface{} {
	result, _ := json.Marshal(map[string]interface{}{
		"error": msg,
	})
	return string(result)
}

func makeResult(data map[string]interface{}) interface{} {
	result, _ := json.Marshal(data)
	return string(result)
}
