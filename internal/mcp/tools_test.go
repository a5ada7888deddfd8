package mcp

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/desiderantes/stew/config"
	"github.com/desiderantes/stew/internal/adapter/memstore"
)

func newTestTools(t *testing.T) (*toolSet, string) {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"main.c":      "int main(void) {\n  puts(_(\"hello\"));\n}\n",
		"ui/menu.cpp": "auto s = tr(\"Open\");\nauto d = dgettext(\"menu\", \"Close\");\n",
		"notes.txt":   "_(\"ignored\")\n",
	}
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}

	tools, err := newToolSet(root, config.DefaultConfig(), memstore.NewMemoryStore(), zerolog.Nop())
	require.NoError(t, err)
	return tools, root
}

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]interface{}) (gjson.Result, *mcp.CallToolResult) {
	t.Helper()
	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}

	result, err := handler(context.Background(), request)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)

	textContent, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected TextContent")
	return gjson.Parse(textContent.Text), result
}

func TestNewServer(t *testing.T) {
	_, err := NewServer(t.TempDir(), config.DefaultConfig(), nil, "test", zerolog.Nop())
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.Extract.Keywords = []string{"bad=shape"}
	_, err = NewServer(t.TempDir(), cfg, nil, "test", zerolog.Nop())
	assert.ErrorContains(t, err, "invalid keyword")
}

func TestExtractTool_WholeProject(t *testing.T) {
	tools, root := newTestTools(t)
	handler := createExtractHandler(tools)

	body, result := callTool(t, handler, map[string]interface{}{})
	require.False(t, result.IsError, body.Raw)

	assert.Equal(t, int64(2), body.Get("files.#").Int())
	assert.Equal(t, filepath.Join(root, "main.c"), body.Get("files.0.path").String())
	assert.Equal(t, "hello", body.Get("files.0.records.0.singular").String())
	assert.Equal(t, int64(2), body.Get("files.0.records.0.position.line").Int())
	assert.Equal(t, "Close", body.Get("files.1.records.0.singular").String())
	assert.Equal(t, "menu", body.Get("files.1.records.0.domain").String())
	assert.Equal(t, int64(2), body.Get("records").Int(), "tr is not a default keyword")
	assert.Zero(t, body.Get("cached").Int())

	body, _ = callTool(t, handler, map[string]interface{}{})
	assert.Equal(t, int64(2), body.Get("cached").Int())
}

func TestExtractTool_ExtraKeywordsAndDomains(t *testing.T) {
	tools, _ := newTestTools(t)
	handler := createExtractHandler(tools)

	body, result := callTool(t, handler, map[string]interface{}{
		"path":     "ui",
		"keywords": []interface{}{"tr"},
	})
	require.False(t, result.IsError, body.Raw)
	assert.Equal(t, int64(1), body.Get("files.#").Int())
	assert.Equal(t, []string{"Open", "Close"}, stringsOf(body.Get("files.0.records.#.singular")))
	assert.Zero(t, body.Get("cached").Int())

	body, _ = callTool(t, handler, map[string]interface{}{
		"path":    "ui/menu.cpp",
		"domains": []interface{}{"menu"},
	})
	assert.Equal(t, []string{"Close"}, stringsOf(body.Get("files.0.records.#.singular")))
}

func TestExtractTool_InlineContent(t *testing.T) {
	tools, _ := newTestTools(t)
	handler := createExtractHandler(tools)

	body, result := callTool(t, handler, map[string]interface{}{
		"content": "ngettext(\"one\", \"many\", n);\n/* open",
	})
	require.False(t, result.IsError, body.Raw)
	assert.Equal(t, "input.c", body.Get("files.0.path").String())
	assert.Equal(t, "many", body.Get("files.0.records.0.plural").String())
	assert.Equal(t, "unterminated_comment", body.Get("files.0.diagnostic.kind").String())
	assert.Equal(t, int64(1), body.Get("diagnostics").Int())

	body, _ = callTool(t, handler, map[string]interface{}{
		"content":  "",
		"filename": "empty.c",
	})
	assert.Equal(t, "empty.c", body.Get("files.0.path").String())
	assert.True(t, body.Get("files.0.records").IsArray())
	assert.Zero(t, body.Get("records").Int())
}

func TestExtractTool_Errors(t *testing.T) {
	tools, _ := newTestTools(t)
	handler := createExtractHandler(tools)

	tests := []struct {
		name string
		args map[string]interface{}
		want string
	}{
		{"outside root", map[string]interface{}{"path": "../etc"}, "outside the project root"},
		{"missing path", map[string]interface{}{"path": "nope.c"}, "path does not exist"},
		{"both sources", map[string]interface{}{"path": "main.c", "content": "x"}, "mutually exclusive"},
		{"bad keyword", map[string]interface{}{"keywords": []interface{}{"tr=nope"}}, "invalid keyword"},
		{"wrong type", map[string]interface{}{"path": 3.0}, "path must be a string"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, result := callTool(t, handler, tt.args)
			assert.True(t, result.IsError)
			assert.Contains(t, textOf(result), tt.want)
		})
	}
}

func TestKeywordsTool(t *testing.T) {
	tools, _ := newTestTools(t)
	handler := createKeywordsHandler(tools)

	body, result := callTool(t, handler, nil)
	require.False(t, result.IsError)
	specs := stringsOf(body.Get("keywords"))
	assert.Contains(t, specs, "_=gettext")
	assert.Contains(t, specs, "dcngettext=dcngettext")
	assert.Len(t, specs, 8)

	body, _ = callTool(t, handler, map[string]interface{}{"keywords": []interface{}{"trn=ngettext"}})
	assert.Contains(t, stringsOf(body.Get("keywords")), "trn=ngettext")
}

func TestResolve(t *testing.T) {
	tools, root := newTestTools(t)

	got, err := tools.resolve("")
	require.NoError(t, err)
	assert.Equal(t, root, got)

	got, err = tools.resolve("ui/../main.c")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "main.c"), got)

	_, err = tools.resolve(filepath.Dir(root))
	assert.Error(t, err)
}

func stringsOf(r gjson.Result) []string {
	var out []string
	for _, v := range r.Array() {
		out = append(out, v.String())
	}
	return out
}

func textOf(result *mcp.CallToolResult) string {
	if tc, ok := result.Content[0].(mcp.TextContent); ok {
		return tc.Text
	}
	return ""
}
