package recordstore

import (
	"fmt"
	"strings"
)

// Eq is one equality term of a filter conjunction.
type Eq struct {
	Field string
	Value string
}

// Filter is an ordered equality conjunction, encoded in the record store's
// query syntax: (a='x' && b='y').
type Filter []Eq

// Where starts a filter with one equality term.
func Where(field, value string) Filter {
	return Filter{{Field: field, Value: value}}
}

// And appends an equality term.
func (f Filter) And(field, value string) Filter {
	return append(f, Eq{Field: field, Value: value})
}

// Encode renders the filter expression. Values are single-quoted with
// embedded quotes escaped.
func (f Filter) Encode() string {
	if len(f) == 0 {
		return ""
	}
	terms := make([]string, 0, len(f))
	for _, eq := range f {
		terms = append(terms, fmt.Sprintf("%s='%s'", eq.Field, escapeValue(eq.Value)))
	}
	return "(" + strings.Join(terms, " && ") + ")"
}

func escapeValue(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	return strings.ReplaceAll(value, `'`, `\'`)
}
