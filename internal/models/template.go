// internal/models/template.go
package models

import "regexp"

// Scope determines whether an item or expected input applies once per
// conference or once per configured store.
type Scope string

const (
	ScopeGlobal   Scope = "global"
	ScopePerStore Scope = "per_store"
)

// InputType is the declared type of a client-supplied expected input.
type InputType string

const (
	InputTypeNumber   InputType = "number"
	InputTypeCurrency InputType = "currency"
	InputTypeText     InputType = "text"
)

// KeyPattern constrains expected-input and placeholder identifiers.
var KeyPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ExpectedInput declares a reference value the client must supply before
// evaluation. Per-store inputs collect one value per configured store.
type ExpectedInput struct {
	Key      string    `json:"key"`
	Label    string    `json:"label"`
	Type     InputType `json:"type"`
	Scope    Scope     `json:"scope"`
	Required bool      `json:"required"`
	Hint     string    `json:"hint,omitempty"`
}

// RuleType discriminates the closed set of validation rules.
type RuleType string

const (
	RuleSingleNumberRequired RuleType = "single_number_required"
	RuleMustReturnRows       RuleType = "must_return_rows"
	RuleMustReturnNoRows     RuleType = "must_return_no_rows"
	RuleNumberEqualsExpected RuleType = "number_equals_expected"
	RuleNumberWithTolerance  RuleType = "number_matches_expected_with_tolerance"
)

// ValidationRule is the tagged variant evaluated against a query result.
// Tolerance is only meaningful for RuleNumberWithTolerance and is a
// fractional allowed deviation in [0, 1].
type ValidationRule struct {
	Type      RuleType `json:"type"`
	Tolerance float64  `json:"tolerance,omitempty"`
}

// RequiresExpected reports whether the rule compares against a
// client-supplied expected value.
func (r ValidationRule) RequiresExpected() bool {
	return r.Type == RuleNumberEqualsExpected || r.Type == RuleNumberWithTolerance
}

// TemplateItem is a single checkable unit: a parameterized read-only query
// plus the rule its result is evaluated with.
type TemplateItem struct {
	ID                   string         `json:"id"`
	Key                  string         `json:"key"`
	Title                string         `json:"title"`
	Description          string         `json:"description,omitempty"`
	Order                int            `json:"order"`
	Query                string         `json:"query"`
	Rule                 ValidationRule `json:"validationRule"`
	Scope                Scope          `json:"scope"`
	ExpectedInputBinding string         `json:"expectedInputBinding,omitempty"`
	AutoResolve          bool           `json:"autoResolve"`
}

// TemplateSection groups items; a section exclusively owns its items.
type TemplateSection struct {
	ID    string         `json:"id"`
	Key   string         `json:"key"`
	Title string         `json:"title"`
	Order int            `json:"order"`
	Items []TemplateItem `json:"items"`
}

// ChecklistTemplate is the root aggregate a collaborator edits and a
// conference is instantiated from. Version is free text.
type ChecklistTemplate struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Description    string            `json:"description,omitempty"`
	Version        string            `json:"version"`
	ExpectedInputs []ExpectedInput   `json:"expectedInputs"`
	Sections       []TemplateSection `json:"sections"`
}

// InputByKey looks up an expected input declaration.
func (t *ChecklistTemplate) InputByKey(key string) (ExpectedInput, bool) {
	for _, in := range t.ExpectedInputs {
		if in.Key == key {
			return in, true
		}
	}
	return ExpectedInput{}, false
}

// ItemByID searches every section for a template item.
func (t *ChecklistTemplate) ItemByID(id string) (TemplateItem, bool) {
	for _, sec := range t.Sections {
		for _, item := range sec.Items {
			if item.ID == id {
				return item, true
			}
		}
	}
	return TemplateItem{}, false
}

// Store is the business unit a per-store item is scoped to. StoreID is the
// external business key injected into queries; ID is the internal identity.
type Store struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	StoreID string `json:"storeId"`
}
