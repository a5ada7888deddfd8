// Package extractor finds gettext-style calls in C and C++ source and
// returns the literal message strings they carry.
//
// Extraction is lexical: there is no preprocessor, so a macro that expands
// to a string literal is still just an identifier here and is never
// extracted. Calls whose message arguments are not string literals are
// skipped silently.
package extractor

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/desiderantes/stew/internal/adapter/lexer"
	"github.com/desiderantes/stew/internal/domain"
)

// DefaultDomain is the domain of messages extracted without an explicit
// domain argument.
const DefaultDomain = "messages"

// Options configures an Extractor.
type Options struct {
	// Keywords to recognize. Nil means DefaultKeywords.
	Keywords Keywords
	// Domains restricts emission to these domains. Empty emits all.
	Domains []string
	// DefaultDomain is matched against Domains for calls without an
	// explicit domain. Empty means DefaultDomain.
	DefaultDomain string
	// Logger receives debug events for skipped calls. Nil disables them.
	Logger *zerolog.Logger
}

// Extractor is immutable after New and safe for concurrent use.
type Extractor struct {
	keywords      Keywords
	domains       map[string]struct{}
	defaultDomain string
	logger        zerolog.Logger
}

// New returns an Extractor for opts; zero Options give the default
// keywords and no domain filter.
func New(opts Options) *Extractor {
	e := &Extractor{
		keywords:      opts.Keywords,
		defaultDomain: opts.DefaultDomain,
		logger:        zerolog.Nop(),
	}
	if opts.Logger != nil {
		e.logger = *opts.Logger
	}
	if e.keywords == nil {
		e.keywords = DefaultKeywords()
	}
	if e.defaultDomain == "" {
		e.defaultDomain = DefaultDomain
	}
	if len(opts.Domains) > 0 {
		e.domains = make(map[string]struct{}, len(opts.Domains))
		for _, d := range opts.Domains {
			e.domains[d] = struct{}{}
		}
	}
	return e
}

// Keywords returns the keyword table in use.
func (e *Extractor) Keywords() Keywords { return e.keywords }

// Extract scans src in one pass and returns its records in source order.
// When the scan hits an unterminated comment or string literal it stops and
// returns the records found so far together with a *lexer.ScanError.
func (e *Extractor) Extract(name string, src []byte) ([]domain.MessageRecord, error) {
	s := &scan{e: e, file: name}
	err := s.walk(&stream{src: lexer.NewScanner(lexer.NewSourceBuffer(name, src))})
	// A call is emitted when it closes, so nested calls come out first.
	sort.SliceStable(s.records, func(i, j int) bool {
		return s.records[i].Pos.Offset < s.records[j].Pos.Offset
	})
	return s.records, err
}

// stream adds a single token of pushback to the scanner and drops comments.
type stream struct {
	src     *lexer.Scanner
	pending *lexer.Token
}

func (st *stream) next() (lexer.Token, error) {
	if st.pending != nil {
		tok := *st.pending
		st.pending = nil
		return tok, nil
	}
	for {
		tok, err := st.src.Next()
		if err != nil || !tok.IsComment() {
			return tok, err
		}
	}
}

func (st *stream) unread(tok lexer.Token) {
	st.pending = &tok
}

// slot summarizes one call argument without keeping its tokens.
type slot struct {
	text    []byte
	strings int
	others  int
	ident   string
}

func (sl *slot) add(tok lexer.Token) {
	switch tok.Kind {
	case lexer.StringLiteral:
		sl.strings++
		if sl.others == 0 {
			sl.text = append(sl.text, tok.Value...)
		}
	case lexer.Identifier:
		if sl.others == 0 && sl.strings == 0 {
			sl.ident = tok.Text
		}
		sl.others++
		sl.text = nil
	default:
		sl.others++
		sl.text = nil
	}
}

// literal returns the concatenated content of a slot made only of string
// literals.
func (sl *slot) literal() (string, bool) {
	if sl.others > 0 || sl.strings == 0 {
		return "", false
	}
	return string(sl.text), true
}

// category accepts a string literal or a known LC_* identifier.
func (sl *slot) category() string {
	if v, ok := sl.literal(); ok {
		return v
	}
	if sl.strings > 0 || sl.others != 1 {
		return ""
	}
	if _, ok := categories[sl.ident]; ok {
		return sl.ident
	}
	return ""
}

// frame is an open keyword call. open is the bracket depth just inside its
// parenthesis; only tokens at exactly that depth reach its slots.
type frame struct {
	kw    lexer.Token
	shape Shape
	open  int
	args  int
	slots []slot
}

func newFrame(kw lexer.Token, shape Shape, open int) *frame {
	f := &frame{kw: kw, shape: shape, open: open, args: 1}
	f.slots = make([]slot, 1, shape.Args)
	return f
}

func (f *frame) add(tok lexer.Token) {
	if f.args <= len(f.slots) {
		f.slots[f.args-1].add(tok)
	}
}

func (f *frame) nextArg() {
	f.args++
	if f.args <= f.shape.Args {
		f.slots = append(f.slots, slot{})
	}
}

type scan struct {
	e       *Extractor
	file    string
	records []domain.MessageRecord
}

// walk runs the token stream once. Open calls live on an explicit stack and
// a single bracket depth counter is shared by all of them, so each token
// touches at most the innermost call.
func (s *scan) walk(st *stream) error {
	var frames []*frame
	depth := 0
	for {
		tok, err := st.next()
		if err != nil {
			return err
		}
		if tok.Kind == lexer.EOF {
			for i := len(frames) - 1; i >= 0; i-- {
				s.skip(frames[i].kw, "unbalanced parentheses")
			}
			return nil
		}

		var top *frame
		if len(frames) > 0 {
			top = frames[len(frames)-1]
		}

		if top != nil && tok.Kind == lexer.Punctuation {
			switch tok.Text {
			case "(", "[", "{":
				if depth == top.open {
					top.add(tok)
				}
				depth++
				continue
			case ")", "]", "}":
				if depth == top.open {
					frames = frames[:len(frames)-1]
					if tok.Text == ")" {
						s.emit(top)
					} else {
						s.skip(top.kw, "stray closing bracket")
					}
				}
				depth--
				continue
			case ",":
				if depth == top.open {
					top.nextArg()
					continue
				}
			}
		}
		if top != nil && depth == top.open {
			top.add(tok)
		}

		if tok.Kind != lexer.Identifier {
			continue
		}
		shape, ok := s.e.keywords[tok.Text]
		if !ok {
			continue
		}
		open, err := st.next()
		if err != nil {
			return err
		}
		if !open.IsPunct('(') {
			st.unread(open)
			continue
		}
		depth++
		frames = append(frames, newFrame(tok, shape, depth))
	}
}

func (s *scan) emit(f *frame) {
	kw, shape := f.kw, f.shape
	if f.args != shape.Args {
		s.skip(kw, "argument count mismatch")
		return
	}

	singular, ok := f.slots[shape.Singular].literal()
	if !ok {
		s.skip(kw, "message argument is not a string literal")
		return
	}
	if singular == "" {
		return
	}

	rec := domain.MessageRecord{
		Function: shape.Function,
		Keyword:  kw.Text,
		Singular: singular,
		Pos:      kw.Pos,
	}
	if shape.Plural >= 0 {
		plural, ok := f.slots[shape.Plural].literal()
		if !ok {
			s.skip(kw, "plural argument is not a string literal")
			return
		}
		rec.Plural = plural
	}
	if shape.Domain >= 0 {
		rec.Domain, _ = f.slots[shape.Domain].literal()
	}
	if shape.Category >= 0 {
		rec.Category = f.slots[shape.Category].category()
		if rec.Category == "" {
			s.e.logger.Debug().
				Str("file", s.file).
				Stringer("pos", kw.Pos).
				Msg("Unknown locale category, leaving it empty")
		}
	}

	if !s.e.accepts(rec) {
		return
	}
	s.records = append(s.records, rec)
}

func (s *scan) skip(kw lexer.Token, reason string) {
	s.e.logger.Debug().
		Str("file", s.file).
		Str("keyword", kw.Text).
		Stringer("pos", kw.Pos).
		Msgf("Skipping call: %s", reason)
}

func (e *Extractor) accepts(rec domain.MessageRecord) bool {
	if e.domains == nil {
		return true
	}
	d := rec.Domain
	if d == "" {
		d = e.defaultDomain
	}
	_, ok := e.domains[d]
	return ok
}
