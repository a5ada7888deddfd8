package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/desiderantes/stew/config"
	"github.com/desiderantes/stew/internal/adapter/extractor"
	"github.com/desiderantes/stew/internal/adapter/fs"
	"github.com/desiderantes/stew/internal/domain"
	"github.com/desiderantes/stew/internal/port"
	"github.com/desiderantes/stew/internal/usecase"
)

const defaultInlineName = "input.c"

// ExtractResponse is the JSON body returned by stew_extract.
type ExtractResponse struct {
	Files       []domain.FileResult `json:"files"`
	Records     int                 `json:"records"`
	Diagnostics int                 `json:"diagnostics"`
	Failed      int                 `json:"failed"`
	Cached      int                 `json:"cached"`
}

// KeywordsResponse is the JSON body returned by stew_keywords.
type KeywordsResponse struct {
	Keywords []string `json:"keywords"`
}

// toolSet holds what the tool handlers share.
type toolSet struct {
	root   string
	cfg    *config.Config
	store  port.ResultStore
	walker *fs.Walker
	base   *extractor.Extractor
	logger zerolog.Logger
}

func newToolSet(root string, cfg *config.Config, st port.ResultStore, logger zerolog.Logger) (*toolSet, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	keywords, err := extractor.ParseKeywords(cfg.Extract.Keywords)
	if err != nil {
		return nil, fmt.Errorf("invalid keyword: %w", err)
	}
	return &toolSet{
		root:   root,
		cfg:    cfg,
		store:  st,
		walker: fs.NewWalker(cfg.Extract.Includes, cfg.Extract.Excludes),
		base: extractor.New(extractor.Options{
			Keywords:      keywords,
			Domains:       cfg.Extract.Domains,
			DefaultDomain: cfg.Extract.DefaultDomain,
			Logger:        &logger,
		}),
		logger: logger,
	}, nil
}

// useCase returns an extraction use case for the configured keywords and
// domains extended with the request's. The result cache is only consulted
// when the request adds nothing, since cached records depend on both.
func (t *toolSet) useCase(keywords, domains []string) (*usecase.ExtractUseCase, error) {
	if len(keywords) == 0 && len(domains) == 0 {
		return usecase.NewExtractUseCase(t.walker, t.walker, t.base, t.store, t.cfg.Extract.Workers, t.logger), nil
	}

	kw, err := extractor.ParseKeywords(append(append([]string(nil), t.cfg.Extract.Keywords...), keywords...))
	if err != nil {
		return nil, err
	}
	ex := extractor.New(extractor.Options{
		Keywords:      kw,
		Domains:       append(append([]string(nil), t.cfg.Extract.Domains...), domains...),
		DefaultDomain: t.cfg.Extract.DefaultDomain,
		Logger:        &t.logger,
	})
	return usecase.NewExtractUseCase(t.walker, t.walker, ex, nil, t.cfg.Extract.Workers, t.logger), nil
}

// resolve maps a request path onto the project root. Paths outside the
// root are rejected.
func (t *toolSet) resolve(path string) (string, error) {
	if path == "" {
		return t.root, nil
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(t.root, path)
	}
	path = filepath.Clean(path)

	rel, err := filepath.Rel(t.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q is outside the project root", path)
	}
	return path, nil
}

// addExtractTool registers the stew_extract tool.
func addExtractTool(s *server.MCPServer, t *toolSet) {
	tool := mcp.NewTool(
		"stew_extract",
		mcp.WithDescription(`Extract translatable strings (gettext, dgettext, dcgettext, ngettext, dngettext, dcngettext, _ and N_ calls) from C and C++ sources.

Either scan files of the project (path: a file or directory, relative to the project root; empty scans the whole project) or scan source passed inline (content, optionally named by filename).

Returns JSON: {"files": [{"path", "records": [{"function", "keyword", "domain", "singular", "plural", "category", "position": {"line", "column", "offset"}}], "diagnostic", "error"}], "records", "diagnostics", "failed", "cached"}`),
		mcp.WithString("path",
			mcp.Description("File or directory to scan, relative to the project root")),
		mcp.WithString("content",
			mcp.Description("C or C++ source to scan instead of reading files")),
		mcp.WithString("filename",
			mcp.Description("Name reported for inline content (default: input.c)")),
		mcp.WithArray("keywords",
			mcp.Description("Extra keywords as 'name' (gettext shape) or 'name=shape', e.g. ['tr', 'trn=ngettext']")),
		mcp.WithArray("domains",
			mcp.Description("Only return messages of these domains")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createExtractHandler(t))
}

func createExtractHandler(t *toolSet) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, ok := request.Params.Arguments.(map[string]interface{})
		if !ok {
			argsMap = map[string]interface{}{}
		}

		path, err := parseStringArg(argsMap, "path", false)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		content, err := parseStringArg(argsMap, "content", false)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		filename, err := parseStringArg(argsMap, "filename", false)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		_, inline := argsMap["content"]
		if inline && path != "" {
			return mcp.NewToolResultError("path and content are mutually exclusive"), nil
		}

		uc, err := t.useCase(parseArrayArg(argsMap, "keywords"), parseArrayArg(argsMap, "domains"))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid keyword: %v", err)), nil
		}

		var files []domain.FileResult
		if inline {
			if filename == "" {
				filename = defaultInlineName
			}
			files = []domain.FileResult{uc.ExtractSource(filename, []byte(content))}
		} else {
			target, err := t.resolve(path)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			if _, err := os.Stat(target); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("path does not exist: %s", path)), nil
			}

			result, err := uc.Extract(ctx, target, nil)
			if err != nil {
				return nil, fmt.Errorf("extraction failed: %w", err)
			}
			files = result.Files
		}

		jsonData, err := json.Marshal(newExtractResponse(files))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response: %w", err)
		}
		return mcp.NewToolResultText(string(jsonData)), nil
	}
}

func newExtractResponse(files []domain.FileResult) *ExtractResponse {
	resp := &ExtractResponse{Files: make([]domain.FileResult, len(files))}
	for i, f := range files {
		if f.Records == nil {
			f.Records = []domain.MessageRecord{}
		}
		resp.Files[i] = f
		resp.Records += len(f.Records)
		if f.Diagnostic != nil {
			resp.Diagnostics++
		}
		if f.Err != "" {
			resp.Failed++
		}
		if f.Cached {
			resp.Cached++
		}
	}
	return resp
}

// addKeywordsTool registers the stew_keywords tool.
func addKeywordsTool(s *server.MCPServer, t *toolSet) {
	tool := mcp.NewTool(
		"stew_keywords",
		mcp.WithDescription("List the recognized keywords as 'name=shape' pairs, where shape is the gettext function whose argument layout the keyword follows."),
		mcp.WithArray("keywords",
			mcp.Description("Extra keywords to include, in the same form accepted by stew_extract")),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(tool, createKeywordsHandler(t))
}

func createKeywordsHandler(t *toolSet) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, _ := request.Params.Arguments.(map[string]interface{})

		keywords := t.base.Keywords()
		if extra := parseArrayArg(argsMap, "keywords"); len(extra) > 0 {
			var err error
			keywords, err = extractor.ParseKeywords(append(append([]string(nil), t.cfg.Extract.Keywords...), extra...))
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("invalid keyword: %v", err)), nil
			}
		}

		jsonData, err := json.Marshal(&KeywordsResponse{Keywords: keywords.Specs()})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response: %w", err)
		}
		return mcp.NewToolResultText(string(jsonData)), nil
	}
}
