package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desiderantes/stew/internal/domain"
)

func TestDefaultKeywords(t *testing.T) {
	kw := DefaultKeywords()

	assert.Equal(t, []string{
		"N_", "_", "dcgettext", "dcngettext", "dgettext", "dngettext", "gettext", "ngettext",
	}, kw.Names())
	assert.Equal(t, domain.FuncGettext, kw["_"].Function)
	assert.Equal(t, domain.FuncGettext, kw["N_"].Function)
}

func TestShapes(t *testing.T) {
	tests := []struct {
		name     string
		args     int
		singular int
		plural   int
		domain   int
		category int
	}{
		{"gettext", 1, 0, -1, -1, -1},
		{"dgettext", 2, 1, -1, 0, -1},
		{"dcgettext", 3, 1, -1, 0, 2},
		{"ngettext", 3, 0, 1, -1, -1},
		{"dngettext", 4, 1, 2, 0, -1},
		{"dcngettext", 5, 1, 2, 0, 3},
	}
	for _, tt := range tests {
		shape, err := ShapeOf(tt.name)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.args, shape.Args, tt.name)
		assert.Equal(t, tt.singular, shape.Singular, tt.name)
		assert.Equal(t, tt.plural, shape.Plural, tt.name)
		assert.Equal(t, tt.domain, shape.Domain, tt.name)
		assert.Equal(t, tt.category, shape.Category, tt.name)
	}

	_, err := ShapeOf("pgettext")
	assert.Error(t, err)
}

func TestKeywords_Add(t *testing.T) {
	kw := DefaultKeywords()

	require.NoError(t, kw.Add("tr"))
	require.NoError(t, kw.Add(" Q_ = dgettext "))
	assert.Equal(t, domain.FuncGettext, kw["tr"].Function)
	assert.Equal(t, domain.FuncDGettext, kw["Q_"].Function)

	assert.Error(t, kw.Add("1bad"))
	assert.Error(t, kw.Add(""))
	assert.Error(t, kw.Add("x=unknown"))
	assert.Error(t, kw.Add("a-b"))
}

func TestParseKeywords(t *testing.T) {
	kw, err := ParseKeywords([]string{"C_=ngettext"})
	require.NoError(t, err)
	assert.Contains(t, kw.Specs(), "C_=ngettext")
	assert.Contains(t, kw.Specs(), "_=gettext")

	_, err = ParseKeywords([]string{"bad name"})
	assert.Error(t, err)
}
