package lexer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scan(t *testing.T, src string) []Token {
	t.Helper()
	toks, err := ScanAll(NewSourceBuffer("test.c", []byte(src)))
	require.NoError(t, err)
	return toks
}

func kinds(toks []Token) []Kind {
	out := make([]Kind, len(toks))
	for i, tok := range toks {
		out[i] = tok.Kind
	}
	return out
}

func TestScanner_BasicCall(t *testing.T) {
	toks := scan(t, `char *x = gettext("hello");`)

	assert.Equal(t, []Kind{
		Identifier, Punctuation, Identifier, Punctuation, Identifier,
		Punctuation, StringLiteral, Punctuation, Punctuation,
	}, kinds(toks))
	assert.Equal(t, "gettext", toks[4].Text)
	assert.Equal(t, "hello", toks[6].Value)
	assert.Equal(t, `"hello"`, toks[6].Text)
}

func TestScanner_Comments(t *testing.T) {
	toks := scan(t, "/* _(\"a\") */ x // _(\"b\")\ny")

	require.Len(t, toks, 4)
	assert.Equal(t, BlockComment, toks[0].Kind)
	assert.Equal(t, Identifier, toks[1].Kind)
	assert.Equal(t, LineComment, toks[2].Kind)
	assert.Equal(t, `// _("b")`, toks[2].Text)
	assert.Equal(t, "y", toks[3].Text)
	assert.Equal(t, 2, toks[3].Pos.Line)
}

func TestScanner_LineCommentContinuation(t *testing.T) {
	toks := scan(t, "// one \\\n two\nz")

	require.Len(t, toks, 2)
	assert.Equal(t, LineComment, toks[0].Kind)
	assert.Equal(t, "z", toks[1].Text)
	assert.Equal(t, 3, toks[1].Pos.Line)
}

func TestScanner_BlockCommentDoesNotNest(t *testing.T) {
	toks := scan(t, "/* a /* b */ c */")

	assert.Equal(t, []Kind{BlockComment, Identifier, Punctuation, Punctuation}, kinds(toks))
}

func TestScanner_StringEscapes(t *testing.T) {
	toks := scan(t, `"say \"hi\"\n" x`)

	require.Len(t, toks, 2)
	assert.Equal(t, `say \"hi\"\n`, toks[0].Value)
	assert.Equal(t, "x", toks[1].Text)
}

func TestScanner_StringHidesCode(t *testing.T) {
	toks := scan(t, `"gettext(\"Z\")"`)

	require.Len(t, toks, 1)
	assert.Equal(t, StringLiteral, toks[0].Kind)
}

func TestScanner_AdjacentQuotesSplit(t *testing.T) {
	// "gettext("Z")" is two literals around an identifier and parens.
	toks := scan(t, `"gettext("Z")"`)

	assert.Equal(t, []Kind{StringLiteral, Identifier, StringLiteral}, kinds(toks))
	assert.Equal(t, "gettext(", toks[0].Value)
	assert.Equal(t, ")", toks[2].Value)
}

func TestScanner_EncodingPrefixes(t *testing.T) {
	tests := []struct {
		src   string
		value string
	}{
		{`L"wide"`, "wide"},
		{`u8"utf8"`, "utf8"},
		{`u"u16"`, "u16"},
		{`U"u32"`, "u32"},
	}
	for _, tt := range tests {
		toks := scan(t, tt.src)
		require.Len(t, toks, 1, tt.src)
		assert.Equal(t, StringLiteral, toks[0].Kind, tt.src)
		assert.Equal(t, tt.value, toks[0].Value, tt.src)
	}
}

func TestScanner_PrefixNeedsAdjacentQuote(t *testing.T) {
	toks := scan(t, `L "x"`)

	assert.Equal(t, []Kind{Identifier, StringLiteral}, kinds(toks))
}

func TestScanner_RawString(t *testing.T) {
	toks := scan(t, `R"xy(a "quoted" )" text)xy" z`)

	require.Len(t, toks, 2)
	assert.Equal(t, StringLiteral, toks[0].Kind)
	assert.Equal(t, `a "quoted" )" text`, toks[0].Value)
	assert.Equal(t, "z", toks[1].Text)
}

func TestScanner_CharLiterals(t *testing.T) {
	toks := scan(t, `'"' '\'' x`)

	assert.Equal(t, []Kind{Other, Other, Identifier}, kinds(toks))
}

func TestScanner_UnclosedCharLiteralEndsAtLine(t *testing.T) {
	toks := scan(t, "#error don't\n_(\"x\")")

	require.GreaterOrEqual(t, len(toks), 4)
	last := toks[len(toks)-2]
	assert.Equal(t, StringLiteral, last.Kind)
	assert.Equal(t, "x", last.Value)
}

func TestScanner_Numbers(t *testing.T) {
	toks := scan(t, "0x1F 1.5e+3 10ul 1'000 .5")

	assert.Equal(t, []Kind{Other, Other, Other, Other, Other}, kinds(toks))
	assert.Equal(t, "1.5e+3", toks[1].Text)
	assert.Equal(t, "1'000", toks[3].Text)
}

func TestScanner_Positions(t *testing.T) {
	toks := scan(t, "a\n  bé c")

	require.Len(t, toks, 4)
	assert.Equal(t, 1, toks[0].Pos.Line)
	assert.Equal(t, 1, toks[0].Pos.Column)
	assert.Equal(t, 2, toks[1].Pos.Line)
	assert.Equal(t, 3, toks[1].Pos.Column)
	assert.Equal(t, Other, toks[2].Kind)
	// é is one rune spread over two bytes.
	assert.Equal(t, 6, toks[3].Pos.Column)
}

func TestScanner_UnterminatedComment(t *testing.T) {
	toks, err := ScanAll(NewSourceBuffer("bad.c", []byte("x\n/* never closed")))

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnterminatedComment))
	require.Len(t, toks, 1)

	var scanErr *ScanError
	require.True(t, errors.As(err, &scanErr))
	assert.Equal(t, 2, scanErr.Pos.Line)
	assert.Equal(t, 1, scanErr.Pos.Column)
	assert.Equal(t, "bad.c:2:1: unterminated block comment", scanErr.Error())
}

func TestScanner_UnterminatedString(t *testing.T) {
	_, err := ScanAll(NewSourceBuffer("bad.c", []byte(`x = "open`)))

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnterminatedLiteral))
}

func TestScanner_NewlineEndsString(t *testing.T) {
	src := "_(\"ok\");\nchar *s = \"oops;\n_(\"a\");\n_(\"b\");\n"
	toks, err := ScanAll(NewSourceBuffer("p.c", []byte(src)))

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnterminatedLiteral))

	var scanErr *ScanError
	require.True(t, errors.As(err, &scanErr))
	assert.Equal(t, 2, scanErr.Pos.Line)
	assert.Equal(t, 11, scanErr.Pos.Column)
	assert.Equal(t, "p.c:2:11: unterminated string literal", scanErr.Error())

	require.NotEmpty(t, toks)
	assert.Equal(t, "=", toks[len(toks)-1].Text, "tokens before the literal are kept")
}

func TestScanner_StringBackslashNewline(t *testing.T) {
	toks := scan(t, "\"one \\\ntwo\" \"crlf \\\r\nend\" x")

	require.Len(t, toks, 3)
	assert.Equal(t, "one \\\ntwo", toks[0].Value)
	assert.Equal(t, "crlf \\\r\nend", toks[1].Value)
	assert.Equal(t, "x", toks[2].Text)
}

func TestScanner_RawStringKeepsNewlines(t *testing.T) {
	toks := scan(t, "R\"(a\nb)\"")

	require.Len(t, toks, 1)
	assert.Equal(t, "a\nb", toks[0].Value)
}

func TestScanner_ExhaustedAfterError(t *testing.T) {
	s := NewScanner(NewSourceBuffer("bad.c", []byte(`"open`)))

	_, err := s.Next()
	require.Error(t, err)

	tok, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, EOF, tok.Kind)
}

func TestSourceBuffer_Position(t *testing.T) {
	buf := NewSourceBuffer("f.c", []byte("ab\ncd\n"))

	assert.Equal(t, 3, buf.Lines())
	pos := buf.Position(4)
	assert.Equal(t, 2, pos.Line)
	assert.Equal(t, 2, pos.Column)
	assert.Equal(t, 4, pos.Offset)

	end := buf.Position(100)
	assert.Equal(t, 3, end.Line)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "StringLiteral", StringLiteral.String())
	assert.Equal(t, "Kind(42)", Kind(42).String())
}
