// Package rules computes the automated verdict for one conference item:
// a query result checked against a validation rule and, for comparison
// rules, a client-supplied expected value.
package rules

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"conference-engine/internal/common/errors"
	"conference-engine/internal/models"
)

// Verdict is the automated outcome of one evaluation.
//
// auto_ok: the check passed. warn: the computed value diverges from the
// expected one, awaiting client confirmation. fail: the query or its
// result shape is broken; no business judgement was possible.
type Verdict string

const (
	VerdictAutoOK Verdict = "auto_ok"
	VerdictWarn   Verdict = "warn"
	VerdictFail   Verdict = "fail"
)

// Status maps a verdict onto the item lifecycle state it produces.
func (v Verdict) Status() models.ItemStatus {
	switch v {
	case VerdictAutoOK:
		return models.StatusAutoOK
	case VerdictWarn:
		return models.StatusWarn
	default:
		return models.StatusFail
	}
}

// Evaluation carries the verdict plus the detail surfaced to the client
// on warn and fail outcomes.
type Evaluation struct {
	Verdict  Verdict `json:"verdict"`
	Detail   string  `json:"detail,omitempty"`
	Observed string  `json:"observed,omitempty"`
}

// Evaluate computes the verdict for a rule over a query result. Expected
// must be non-nil exactly when rule.RequiresExpected(); evaluating a
// comparison rule without a bound value is a configuration error, not a
// rule failure. The switch over rule types is exhaustive: an unknown type
// is rejected, never silently passed.
func Evaluate(rule models.ValidationRule, result models.Rows, expected *decimal.Decimal) (Evaluation, error) {
	if rule.RequiresExpected() && expected == nil {
		return Evaluation{}, errors.NewMissingExpectedValueError(string(rule.Type))
	}

	switch rule.Type {
	case models.RuleSingleNumberRequired:
		value, detail := singleNumber(result)
		if value == nil {
			return Evaluation{Verdict: VerdictFail, Detail: detail}, nil
		}
		return Evaluation{Verdict: VerdictAutoOK, Observed: value.String()}, nil

	case models.RuleMustReturnRows:
		if len(result) >= 1 {
			return Evaluation{Verdict: VerdictAutoOK, Observed: fmt.Sprintf("%d rows", len(result))}, nil
		}
		return Evaluation{Verdict: VerdictFail, Detail: "query returned no rows"}, nil

	case models.RuleMustReturnNoRows:
		if len(result) == 0 {
			return Evaluation{Verdict: VerdictAutoOK, Observed: "0 rows"}, nil
		}
		return Evaluation{Verdict: VerdictFail, Detail: fmt.Sprintf("query returned %d rows, expected none", len(result))}, nil

	case models.RuleNumberEqualsExpected:
		value, detail := singleNumber(result)
		if value == nil {
			return Evaluation{Verdict: VerdictFail, Detail: detail}, nil
		}
		if value.Equal(*expected) {
			return Evaluation{Verdict: VerdictAutoOK, Observed: value.String()}, nil
		}
		// Wrong number is a business divergence for the client to judge,
		// not a broken query.
		return Evaluation{
			Verdict:  VerdictWarn,
			Observed: value.String(),
			Detail:   fmt.Sprintf("computed %s, expected %s", value.String(), expected.String()),
		}, nil

	case models.RuleNumberWithTolerance:
		value, detail := singleNumber(result)
		if value == nil {
			return Evaluation{Verdict: VerdictFail, Detail: detail}, nil
		}
		if withinTolerance(*value, *expected, rule.Tolerance) {
			return Evaluation{Verdict: VerdictAutoOK, Observed: value.String()}, nil
		}
		return Evaluation{
			Verdict:  VerdictWarn,
			Observed: value.String(),
			Detail: fmt.Sprintf("computed %s outside tolerance %v of expected %s",
				value.String(), rule.Tolerance, expected.String()),
		}, nil

	default:
		return Evaluation{}, errors.NewConfigurationError(
			errors.ErrCodeTemplateValidationFail,
			"Unknown validation rule type",
			string(rule.Type),
		)
	}
}

// withinTolerance applies |result - expected| <= tolerance * max(|expected|, 1).
// The max() guards the denominator when expected is zero; tolerance 0
// degenerates to exact equality.
func withinTolerance(value, expected decimal.Decimal, tolerance float64) bool {
	diff := value.Sub(expected).Abs()
	bound := decimal.NewFromFloat(tolerance).Mul(decimal.Max(expected.Abs(), decimal.NewFromInt(1)))
	return diff.LessThanOrEqual(bound)
}

// singleNumber extracts the one numeric value a single-number rule
// requires: exactly one row with exactly one column that parses as a
// number. On any other shape it returns nil and a human-readable detail.
func singleNumber(result models.Rows) (*decimal.Decimal, string) {
	if len(result) != 1 {
		return nil, fmt.Sprintf("expected exactly one row, got %d", len(result))
	}
	row := result[0]
	if len(row) != 1 {
		return nil, fmt.Sprintf("expected exactly one column, got %d", len(row))
	}
	for _, raw := range row {
		value, err := toDecimal(raw)
		if err != nil {
			return nil, fmt.Sprintf("value %v is not numeric", raw)
		}
		return &value, ""
	}
	return nil, "empty row"
}

// ParseExpected parses a client-supplied expected value. Expected inputs
// arrive as strings from the wizard; a non-numeric value bound to a
// numeric rule is a configuration problem surfaced before evaluation.
func ParseExpected(value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, errors.NewConfigurationError(
			errors.ErrCodeNonNumericExpectedValue,
			"Expected value is not numeric",
			fmt.Sprintf("value: %q", value),
		)
	}
	return d, nil
}

// toDecimal converts the scalar shapes query executors produce. JSON
// decoding yields float64 and json.Number; database drivers add the
// integer types, []byte and plain strings.
func toDecimal(raw interface{}) (decimal.Decimal, error) {
	switch v := raw.(type) {
	case decimal.Decimal:
		return v, nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int32:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case json.Number:
		return decimal.NewFromString(v.String())
	case []byte:
		return decimal.NewFromString(string(v))
	case string:
		return decimal.NewFromString(v)
	default:
		return decimal.Zero, fmt.Errorf("unsupported scalar type %T", raw)
	}
}
