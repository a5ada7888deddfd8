package cache

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desiderantes/stew/internal/adapter/extractor"
	"github.com/desiderantes/stew/internal/adapter/lexer"
	"github.com/desiderantes/stew/internal/domain"
)

type countingExtractor struct {
	mu    sync.Mutex
	calls int
	inner *extractor.Extractor
}

func (c *countingExtractor) Extract(name string, src []byte) ([]domain.MessageRecord, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.inner.Extract(name, src)
}

func newCounting() *countingExtractor {
	return &countingExtractor{inner: extractor.New(extractor.Options{})}
}

func TestCachedExtractor_SharesIdenticalContent(t *testing.T) {
	inner := newCounting()
	cached := NewCachedExtractor(inner, NewContentCache(8))
	src := []byte(`puts(_("hello"));`)

	first, err := cached.Extract("a.c", src)
	require.NoError(t, err)
	second, err := cached.Extract("copy/a.c", src)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, first, second)
	require.Len(t, second, 1)
	assert.Equal(t, "hello", second[0].Singular)

	hits, misses := cached.cache.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
}

func TestCachedExtractor_ScanErrorRenamed(t *testing.T) {
	inner := newCounting()
	cached := NewCachedExtractor(inner, NewContentCache(8))
	src := []byte("_(\"ok\");\n/* open")

	_, err := cached.Extract("one.c", src)
	require.Error(t, err)

	records, err := cached.Extract("two.c", src)
	assert.Equal(t, 1, inner.calls)
	require.Len(t, records, 1)

	var scanErr *lexer.ScanError
	require.True(t, errors.As(err, &scanErr))
	assert.Equal(t, "two.c", scanErr.File)
	assert.ErrorIs(t, err, lexer.ErrUnterminatedComment)
	assert.Equal(t, 2, scanErr.Pos.Line)
}

func TestCachedExtractor_ReturnsCopies(t *testing.T) {
	cached := NewCachedExtractor(newCounting(), NewContentCache(8))
	src := []byte(`_("a");`)

	first, err := cached.Extract("a.c", src)
	require.NoError(t, err)
	first[0].Singular = "mutated"

	second, err := cached.Extract("a.c", src)
	require.NoError(t, err)
	assert.Equal(t, "a", second[0].Singular)
}

func TestContentCache_EvictsOldest(t *testing.T) {
	inner := newCounting()
	c := NewContentCache(2)
	cached := NewCachedExtractor(inner, c)

	for _, src := range []string{`_("1");`, `_("2");`, `_("3");`} {
		_, err := cached.Extract("x.c", []byte(src))
		require.NoError(t, err)
	}
	assert.Equal(t, 2, c.Size())

	_, err := cached.Extract("x.c", []byte(`_("1");`))
	require.NoError(t, err)
	assert.Equal(t, 4, inner.calls, "the oldest entry was evicted")

	_, err = cached.Extract("x.c", []byte(`_("3");`))
	require.NoError(t, err)
	assert.Equal(t, 4, inner.calls)
}

func TestContentCache_Invalidate(t *testing.T) {
	inner := newCounting()
	c := NewContentCache(4)
	cached := NewCachedExtractor(inner, c)
	src := []byte(`_("a");`)

	_, _ = cached.Extract("a.c", src)
	c.Invalidate()
	assert.Zero(t, c.Size())

	_, _ = cached.Extract("a.c", src)
	assert.Equal(t, 2, inner.calls)
}

func TestContentCache_InvalidateAfterKeywordChange(t *testing.T) {
	c := NewContentCache(4)
	src := []byte(`tr("custom"); _("std");`)

	records, err := NewCachedExtractor(extractor.New(extractor.Options{}), c).Extract("a.c", src)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	kw, err := extractor.ParseKeywords([]string{"tr"})
	require.NoError(t, err)
	reconfigured := NewCachedExtractor(extractor.New(extractor.Options{Keywords: kw}), c)

	stale, err := reconfigured.Extract("a.c", src)
	require.NoError(t, err)
	assert.Len(t, stale, 1, "entries outlive the extractor they came from")

	c.Invalidate()
	fresh, err := reconfigured.Extract("a.c", src)
	require.NoError(t, err)
	assert.Len(t, fresh, 2)
	assert.Equal(t, 1, c.Size())
}
