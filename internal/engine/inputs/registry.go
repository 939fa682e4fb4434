// Package inputs validates the expected-input registry of a checklist
// template: the typed reference values a client must supply before any
// item can be evaluated.
package inputs

import (
	"fmt"
	"strings"

	"conference-engine/internal/common/errors"
	"conference-engine/internal/models"
)

// Issue is one consistency problem found in a template. Pure data, no
// side effects; callers decide whether to block persistence.
type Issue struct {
	Field   string           `json:"field"`
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
}

// readOnlyVerbs are the statement prefixes accepted by policy. The engine
// treats query text as opaque beyond this check.
var readOnlyVerbs = []string{"select", "with", "show", "explain"}

// Validate checks the registry against the items that bind into it:
// duplicate keys, malformed keys, dangling bindings and incompatible
// scopes all come back as issues.
func Validate(registry []models.ExpectedInput, items []models.TemplateItem) []Issue {
	var issues []Issue

	seen := make(map[string]bool, len(registry))
	for _, in := range registry {
		field := fmt.Sprintf("expected_inputs.%s", in.Key)

		if !models.KeyPattern.MatchString(in.Key) {
			issues = append(issues, Issue{
				Field:   field,
				Code:    errors.ErrCodeMalformedInputKey,
				Message: fmt.Sprintf("key %q must match %s", in.Key, models.KeyPattern.String()),
			})
		}
		if seen[in.Key] {
			issues = append(issues, Issue{
				Field:   field,
				Code:    errors.ErrCodeDuplicateInputKey,
				Message: fmt.Sprintf("key %q declared more than once", in.Key),
			})
		}
		seen[in.Key] = true
	}

	byKey := make(map[string]models.ExpectedInput, len(registry))
	for _, in := range registry {
		byKey[in.Key] = in
	}

	for _, item := range items {
		issues = append(issues, validateBinding(item, byKey)...)
	}

	return issues
}

func validateBinding(item models.TemplateItem, registry map[string]models.ExpectedInput) []Issue {
	var issues []Issue
	field := fmt.Sprintf("items.%s", item.Key)

	if item.Rule.RequiresExpected() && item.ExpectedInputBinding == "" {
		issues = append(issues, Issue{
			Field:   field,
			Code:    errors.ErrCodeMissingBinding,
			Message: fmt.Sprintf("rule %s requires an expected-input binding", item.Rule.Type),
		})
		return issues
	}

	if item.ExpectedInputBinding == "" {
		return nil
	}

	bound, ok := registry[item.ExpectedInputBinding]
	if !ok {
		issues = append(issues, Issue{
			Field:   field,
			Code:    errors.ErrCodeDanglingBinding,
			Message: fmt.Sprintf("binding %q references no declared expected input", item.ExpectedInputBinding),
		})
		return issues
	}

	// A global item has no store to resolve a per-store value with.
	if item.Scope == models.ScopeGlobal && bound.Scope == models.ScopePerStore {
		issues = append(issues, Issue{
			Field:   field,
			Code:    errors.ErrCodeIncompatibleScope,
			Message: fmt.Sprintf("global item cannot bind per-store input %q", bound.Key),
		})
	}

	return issues
}

// ValidateTemplate runs the registry checks plus the per-item structural
// invariants. A non-empty result must block template save and import.
func ValidateTemplate(t *models.ChecklistTemplate) []Issue {
	var allItems []models.TemplateItem
	for _, sec := range t.Sections {
		allItems = append(allItems, sec.Items...)
	}

	issues := Validate(t.ExpectedInputs, allItems)

	for _, item := range allItems {
		field := fmt.Sprintf("items.%s", item.Key)

		query := strings.TrimSpace(item.Query)
		if query == "" {
			issues = append(issues, Issue{
				Field:   field,
				Code:    errors.ErrCodeEmptyQuery,
				Message: "query must not be empty",
			})
		} else if !hasReadOnlyVerb(query) {
			issues = append(issues, Issue{
				Field:   field,
				Code:    errors.ErrCodeForbiddenQueryVerb,
				Message: fmt.Sprintf("query must begin with one of: %s", strings.Join(readOnlyVerbs, ", ")),
			})
		}

		if item.Rule.Type == models.RuleNumberWithTolerance {
			if item.Rule.Tolerance < 0 || item.Rule.Tolerance > 1 {
				issues = append(issues, Issue{
					Field:   field,
					Code:    errors.ErrCodeInvalidTolerance,
					Message: fmt.Sprintf("tolerance %v outside [0,1]", item.Rule.Tolerance),
				})
			}
		}

		switch item.Rule.Type {
		case models.RuleSingleNumberRequired, models.RuleMustReturnRows, models.RuleMustReturnNoRows,
			models.RuleNumberEqualsExpected, models.RuleNumberWithTolerance:
		default:
			issues = append(issues, Issue{
				Field:   field,
				Code:    errors.ErrCodeTemplateValidationFail,
				Message: fmt.Sprintf("unknown rule type %q", item.Rule.Type),
			})
		}
	}

	return issues
}

func hasReadOnlyVerb(query string) bool {
	lower := strings.ToLower(query)
	for _, verb := range readOnlyVerbs {
		if strings.HasPrefix(lower, verb) {
			return true
		}
	}
	return false
}

// AsError collapses issues into one blocking configuration error, nil when
// the template is consistent.
func AsError(issues []Issue) error {
	if len(issues) == 0 {
		return nil
	}
	parts := make([]string, 0, len(issues))
	for _, is := range issues {
		parts = append(parts, fmt.Sprintf("%s: %s", is.Field, is.Message))
	}
	return errors.NewConfigurationError(
		errors.ErrCodeTemplateValidationFail,
		fmt.Sprintf("template has %d consistency issues", len(issues)),
		strings.Join(parts, "; "),
	)
}
