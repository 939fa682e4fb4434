// internal/engine/rules/evaluator_test.go
package rules

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conference-engine/internal/common/errors"
	"conference-engine/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func singleValueResult(v interface{}) models.Rows {
	return models.Rows{{"total": v}}
}

func dec(s string) *decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return &d
}

// ==========================
// single_number_required
// ==========================

func TestEvaluate_SingleNumberRequired(t *testing.T) {
	rule := models.ValidationRule{Type: models.RuleSingleNumberRequired}

	tests := []struct {
		name    string
		result  models.Rows
		verdict Verdict
	}{
		{"one numeric value", singleValueResult(1234.56), VerdictAutoOK},
		{"numeric string from driver", singleValueResult("1234.56"), VerdictAutoOK},
		{"zero rows", models.Rows{}, VerdictFail},
		{"two rows", models.Rows{{"a": 1}, {"a": 2}}, VerdictFail},
		{"two columns", models.Rows{{"a": 1, "b": 2}}, VerdictFail},
		{"non-numeric value", singleValueResult("abc"), VerdictFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval, err := Evaluate(rule, tt.result, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.verdict, eval.Verdict)
			if tt.verdict == VerdictFail {
				assert.NotEmpty(t, eval.Detail)
			}
		})
	}
}

// ==========================
// must_return_rows / must_return_no_rows
// ==========================

func TestEvaluate_MustReturnRows(t *testing.T) {
	rule := models.ValidationRule{Type: models.RuleMustReturnRows}

	eval, err := Evaluate(rule, models.Rows{{"a": 1}, {"a": 2}}, nil)
	require.NoError(t, err)
	assert.Equal(t, VerdictAutoOK, eval.Verdict)

	eval, err = Evaluate(rule, models.Rows{}, nil)
	require.NoError(t, err)
	assert.Equal(t, VerdictFail, eval.Verdict)
}

func TestEvaluate_MustReturnNoRows(t *testing.T) {
	rule := models.ValidationRule{Type: models.RuleMustReturnNoRows}

	eval, err := Evaluate(rule, models.Rows{}, nil)
	require.NoError(t, err)
	assert.Equal(t, VerdictAutoOK, eval.Verdict)

	eval, err = Evaluate(rule, models.Rows{{"pedido": "123"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, VerdictFail, eval.Verdict)
}

// ==========================
// number_equals_expected
// ==========================

func TestEvaluate_NumberEqualsExpected(t *testing.T) {
	rule := models.ValidationRule{Type: models.RuleNumberEqualsExpected}

	eval, err := Evaluate(rule, singleValueResult("1000.00"), dec("1000"))
	require.NoError(t, err)
	assert.Equal(t, VerdictAutoOK, eval.Verdict)

	// A wrong number is a divergence for the client, not a broken query.
	eval, err = Evaluate(rule, singleValueResult("950"), dec("1000"))
	require.NoError(t, err)
	assert.Equal(t, VerdictWarn, eval.Verdict)
	assert.Equal(t, "950", eval.Observed)
	assert.Contains(t, eval.Detail, "1000")

	// A broken shape is fail, never warn.
	eval, err = Evaluate(rule, models.Rows{}, dec("1000"))
	require.NoError(t, err)
	assert.Equal(t, VerdictFail, eval.Verdict)
}

func TestEvaluate_MissingExpectedValueIsError(t *testing.T) {
	for _, ruleType := range []models.RuleType{models.RuleNumberEqualsExpected, models.RuleNumberWithTolerance} {
		_, err := Evaluate(models.ValidationRule{Type: ruleType}, singleValueResult(1), nil)
		assert.Error(t, err)
		assert.Equal(t, errors.ErrCodeMissingExpectedValue, errors.CodeOf(err))
	}
}

func TestEvaluate_UnknownRuleTypeRejected(t *testing.T) {
	_, err := Evaluate(models.ValidationRule{Type: "something_else"}, singleValueResult(1), nil)

	assert.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
}

// ==========================
// number_matches_expected_with_tolerance
// ==========================

func TestEvaluate_Tolerance(t *testing.T) {
	tests := []struct {
		name      string
		value     string
		expected  string
		tolerance float64
		verdict   Verdict
	}{
		{"inside 5 percent", "950", "1000", 0.05, VerdictAutoOK},
		{"exactly at bound", "950", "1000", 0.05, VerdictAutoOK},
		{"just outside bound", "949.99", "1000", 0.05, VerdictWarn},
		{"above expected inside bound", "1050", "1000", 0.05, VerdictAutoOK},
		{"above expected outside bound", "1050.01", "1000", 0.05, VerdictWarn},
		{"negative expected inside bound", "-950", "-1000", 0.05, VerdictAutoOK},
		{"negative expected outside bound", "-949", "-1000", 0.05, VerdictWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := models.ValidationRule{Type: models.RuleNumberWithTolerance, Tolerance: tt.tolerance}
			eval, err := Evaluate(rule, singleValueResult(tt.value), dec(tt.expected))
			require.NoError(t, err)
			assert.Equal(t, tt.verdict, eval.Verdict)
		})
	}
}

// Zero tolerance must behave exactly like number_equals_expected.
func TestEvaluate_ZeroToleranceEqualsExact(t *testing.T) {
	exact := models.ValidationRule{Type: models.RuleNumberEqualsExpected}
	zero := models.ValidationRule{Type: models.RuleNumberWithTolerance, Tolerance: 0}

	cases := []struct{ value, expected string }{
		{"1000", "1000"},
		{"1000.00", "1000"},
		{"999.99", "1000"},
		{"0", "0"},
		{"-5", "5"},
	}

	for _, c := range cases {
		a, err := Evaluate(exact, singleValueResult(c.value), dec(c.expected))
		require.NoError(t, err)
		b, err := Evaluate(zero, singleValueResult(c.value), dec(c.expected))
		require.NoError(t, err)
		assert.Equal(t, a.Verdict, b.Verdict, "value %s expected %s", c.value, c.expected)
	}
}

// Widening the tolerance can only turn warn into auto_ok, never the
// reverse.
func TestEvaluate_ToleranceMonotonic(t *testing.T) {
	expected := dec("1000")
	result := singleValueResult("900")

	var last Verdict = VerdictWarn
	for _, tolerance := range []float64{0, 0.01, 0.05, 0.099, 0.1, 0.2, 1} {
		rule := models.ValidationRule{Type: models.RuleNumberWithTolerance, Tolerance: tolerance}
		eval, err := Evaluate(rule, result, expected)
		require.NoError(t, err)

		if last == VerdictAutoOK {
			assert.Equal(t, VerdictAutoOK, eval.Verdict,
				"tolerance %v regressed to %s after a pass at a tighter bound", tolerance, eval.Verdict)
		}
		last = eval.Verdict
	}
	assert.Equal(t, VerdictAutoOK, last)
}

// Tolerance around zero uses max(|expected|, 1) so the bound never
// collapses to nothing.
func TestEvaluate_ToleranceAroundZeroExpected(t *testing.T) {
	rule := models.ValidationRule{Type: models.RuleNumberWithTolerance, Tolerance: 0.05}

	eval, err := Evaluate(rule, singleValueResult("0.04"), dec("0"))
	require.NoError(t, err)
	assert.Equal(t, VerdictAutoOK, eval.Verdict)

	eval, err = Evaluate(rule, singleValueResult("0.06"), dec("0"))
	require.NoError(t, err)
	assert.Equal(t, VerdictWarn, eval.Verdict)
}

// ==========================
// Scalar conversion & parsing
// ==========================

func TestToDecimal_DriverShapes(t *testing.T) {
	for _, raw := range []interface{}{
		float64(10.5), float32(10.5), int(10), int32(10), int64(10),
		json.Number("10.5"), []byte("10.5"), "10.5",
	} {
		_, err := toDecimal(raw)
		assert.NoError(t, err, "shape %T should convert", raw)
	}

	_, err := toDecimal(struct{}{})
	assert.Error(t, err)
}

func TestParseExpected(t *testing.T) {
	d, err := ParseExpected("1234.56")
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.NewFromFloat(1234.56)))

	_, err = ParseExpected("not a number")
	assert.Error(t, err)
	assert.Equal(t, errors.ErrCodeNonNumericExpectedValue, errors.CodeOf(err))
}

func TestVerdictStatusMapping(t *testing.T) {
	assert.Equal(t, models.StatusAutoOK, VerdictAutoOK.Status())
	assert.Equal(t, models.StatusWarn, VerdictWarn.Status())
	assert.Equal(t, models.StatusFail, VerdictFail.Status())
}
