package extractor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/desiderantes/stew/internal/domain"
)

// Shape describes the argument layout of a translation function.
// Slot indexes are 0-based; -1 means the function has no such slot.
type Shape struct {
	Function domain.Function
	Args     int
	Singular int
	Plural   int
	Domain   int
	Category int
}

var shapes = map[domain.Function]Shape{
	domain.FuncGettext:    {Function: domain.FuncGettext, Args: 1, Singular: 0, Plural: -1, Domain: -1, Category: -1},
	domain.FuncDGettext:   {Function: domain.FuncDGettext, Args: 2, Singular: 1, Plural: -1, Domain: 0, Category: -1},
	domain.FuncDCGettext:  {Function: domain.FuncDCGettext, Args: 3, Singular: 1, Plural: -1, Domain: 0, Category: 2},
	domain.FuncNGettext:   {Function: domain.FuncNGettext, Args: 3, Singular: 0, Plural: 1, Domain: -1, Category: -1},
	domain.FuncDNGettext:  {Function: domain.FuncDNGettext, Args: 4, Singular: 1, Plural: 2, Domain: 0, Category: -1},
	domain.FuncDCNGettext: {Function: domain.FuncDCNGettext, Args: 5, Singular: 1, Plural: 2, Domain: 0, Category: 3},
}

// categories are the locale category constants accepted as bare identifiers.
var categories = map[string]struct{}{
	"LC_ALL":      {},
	"LC_COLLATE":  {},
	"LC_CTYPE":    {},
	"LC_MESSAGES": {},
	"LC_MONETARY": {},
	"LC_NUMERIC":  {},
	"LC_TIME":     {},
}

// ShapeOf returns the argument shape of a gettext function name.
func ShapeOf(name string) (Shape, error) {
	shape, ok := shapes[domain.Function(name)]
	if !ok {
		return Shape{}, fmt.Errorf("unknown keyword shape %q", name)
	}
	return shape, nil
}

// Keywords maps recognized identifiers to their argument shapes.
type Keywords map[string]Shape

// DefaultKeywords returns the six gettext functions plus the _ and N_
// shorthands, both with the gettext shape.
func DefaultKeywords() Keywords {
	kw := make(Keywords, len(shapes)+2)
	for fn, shape := range shapes {
		kw[string(fn)] = shape
	}
	kw["_"] = shapes[domain.FuncGettext]
	kw["N_"] = shapes[domain.FuncGettext]
	return kw
}

// Add registers a keyword from a spec of the form "name" (gettext shape)
// or "name=shape", e.g. "tr=ngettext".
func (k Keywords) Add(spec string) error {
	name, shapeName, found := strings.Cut(strings.TrimSpace(spec), "=")
	name = strings.TrimSpace(name)
	if !isIdentifier(name) {
		return fmt.Errorf("invalid keyword name %q", name)
	}
	shape := shapes[domain.FuncGettext]
	if found {
		var err error
		if shape, err = ShapeOf(strings.TrimSpace(shapeName)); err != nil {
			return err
		}
	}
	k[name] = shape
	return nil
}

// ParseKeywords returns the default keywords extended with specs.
func ParseKeywords(specs []string) (Keywords, error) {
	kw := DefaultKeywords()
	for _, spec := range specs {
		if err := kw.Add(spec); err != nil {
			return nil, err
		}
	}
	return kw, nil
}

// Names returns the keyword names in sorted order.
func (k Keywords) Names() []string {
	names := make([]string, 0, len(k))
	for name := range k {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Specs renders the table as "name=shape" strings, sorted by name.
func (k Keywords) Specs() []string {
	names := k.Names()
	specs := make([]string, len(names))
	for i, name := range names {
		specs[i] = name + "=" + string(k[name].Function)
	}
	return specs
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			continue
		}
		if i > 0 && c >= '0' && c <= '9' {
			continue
		}
		return false
	}
	return true
}
