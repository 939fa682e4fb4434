// Package substitution turns an abstract query template into a concrete,
// executable query string. It is a pure text transform: placeholders are
// replaced by context values and everything else passes through opaque.
package substitution

import (
	"fmt"
	"regexp"
	"strconv"

	"conference-engine/internal/common/errors"
)

// placeholderPattern matches :identifier placeholders. The leading colon
// is part of the match; group 1 is the bare identifier.
var placeholderPattern = regexp.MustCompile(`:([a-z][a-z0-9_]*)`)

// Builtin context variable names always available to a query.
const (
	VarStoreID   = "store_id"
	VarDateStart = "data_inicio"
	VarDateEnd   = "data_fim"
)

// Substitute replaces every resolvable placeholder in queryTemplate with
// its context value. Values that parse as numbers are inlined bare; all
// other values are inlined as quoted string literals. Unresolved
// placeholders are left intact so the caller can detect a missing binding.
//
// The transform performs no SQL-aware escaping beyond the quote wrapping,
// so templates must be operator-authored and values confined to the
// expected-input vocabulary.
func Substitute(queryTemplate string, context map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(queryTemplate, func(match string) string {
		name := match[1:]
		value, ok := context[name]
		if !ok {
			return match
		}
		return inline(value)
	})
}

// Resolve substitutes and then requires a fully concrete query, returning
// a SubstitutionError naming every placeholder still unresolved.
func Resolve(queryTemplate string, context map[string]string) (string, error) {
	concrete := Substitute(queryTemplate, context)
	if unresolved := Unresolved(concrete); len(unresolved) > 0 {
		return "", errors.NewSubstitutionError(unresolved)
	}
	return concrete, nil
}

// Unresolved lists the placeholder identifiers remaining in a query, in
// order of first appearance without duplicates.
func Unresolved(query string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(query, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	var names []string
	for _, m := range matches {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// inline applies the value quoting policy: numbers bare, text quoted.
func inline(value string) string {
	if _, err := strconv.ParseFloat(value, 64); err == nil {
		return value
	}
	return fmt.Sprintf("'%s'", value)
}
