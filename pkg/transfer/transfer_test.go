// pkg/transfer/transfer_test.go
package transfer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conference-engine/internal/common/errors"
	"conference-engine/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestTemplate() *models.ChecklistTemplate {
	return &models.ChecklistTemplate{
		ID:          "tpl-1",
		Name:        "Fechamento Mensal",
		Description: "Conferência do fechamento contábil",
		Version:     "2",
		ExpectedInputs: []models.ExpectedInput{
			{Key: "faturamento_esperado", Label: "Faturamento", Type: models.InputTypeCurrency, Scope: models.ScopeGlobal, Required: true, Hint: "valor bruto do período"},
			{Key: "vendas_loja", Label: "Vendas por loja", Type: models.InputTypeNumber, Scope: models.ScopePerStore, Required: true},
		},
		Sections: []models.TemplateSection{
			{
				ID: "sec-1", Key: "faturamento", Title: "Faturamento", Order: 1,
				Items: []models.TemplateItem{
					{
						ID: "it-1", Key: "total_geral", Title: "Total geral", Description: "Soma do período", Order: 1,
						Query: "select sum(valor) from vendas where data between :data_inicio and :data_fim",
						Rule:  models.ValidationRule{Type: models.RuleNumberWithTolerance, Tolerance: 0.02},
						Scope: models.ScopeGlobal, ExpectedInputBinding: "faturamento_esperado",
					},
					{
						ID: "it-2", Key: "pendencias", Title: "Pedidos pendentes", Order: 2,
						Query: "select id from pedidos where status = 'aberto' and loja = :store_id",
						Rule:  models.ValidationRule{Type: models.RuleMustReturnNoRows},
						Scope: models.ScopePerStore, AutoResolve: true,
					},
				},
			},
		},
	}
}

// ==========================
// Round Trip
// ==========================

// Export then import must preserve everything except ids, which are
// regenerated.
func TestRoundTripLosslessExceptIDs(t *testing.T) {
	original := createTestTemplate()

	data, err := Export(original)
	require.NoError(t, err)

	restored, err := Import(data)
	require.NoError(t, err)

	ignoreIDs := []cmp.Option{
		cmpopts.IgnoreFields(models.ChecklistTemplate{}, "ID"),
		cmpopts.IgnoreFields(models.TemplateSection{}, "ID"),
		cmpopts.IgnoreFields(models.TemplateItem{}, "ID"),
	}
	if diff := cmp.Diff(original, restored, ignoreIDs...); diff != "" {
		t.Errorf("round trip mismatch (-original +restored):\n%s", diff)
	}

	assert.NotEqual(t, original.ID, restored.ID)
	assert.NotEmpty(t, restored.ID)
}

func TestExport_ToleranceOnlyForToleranceRule(t *testing.T) {
	data, err := Export(createTestTemplate())
	require.NoError(t, err)

	text := string(data)
	assert.Contains(t, text, `"tolerance": 0.02`)
	// must_return_no_rows carries no tolerance field.
	assert.Equal(t, 1, countOccurrences(text, `"tolerance"`))
}

func countOccurrences(s, sub string) int {
	count := 0
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			count++
		}
	}
	return count
}

// ==========================
// Import Validation
// ==========================

func TestImport_RejectsMalformedJSON(t *testing.T) {
	_, err := Import([]byte("{not json"))

	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
}

func TestImport_RejectsSchemaViolations(t *testing.T) {
	documents := []string{
		// missing name
		`{"version":"1","expected_inputs":[],"sections":[]}`,
		// bad input type
		`{"name":"x","version":"1","expected_inputs":[{"key":"a","label":"A","type":"date","scope":"global"}],"sections":[]}`,
		// bad rule type
		`{"name":"x","version":"1","expected_inputs":[],"sections":[{"key":"s","title":"S","order":1,"items":[{"key":"i","title":"I","order":1,"query":"select 1","validation_rule":{"type":"regex"},"scope":"global"}]}]}`,
		// tolerance out of bounds
		`{"name":"x","version":"1","expected_inputs":[],"sections":[{"key":"s","title":"S","order":1,"items":[{"key":"i","title":"I","order":1,"query":"select 1","validation_rule":{"type":"number_matches_expected_with_tolerance","tolerance":2},"scope":"global"}]}]}`,
	}

	for _, doc := range documents {
		_, err := Import([]byte(doc))
		assert.Error(t, err, "document should be rejected: %s", doc)
	}
}

func TestImport_RejectsInconsistentTemplate(t *testing.T) {
	// Schema-valid but the binding dangles.
	doc := `{
		"name": "x", "version": "1",
		"expected_inputs": [],
		"sections": [{
			"key": "s", "title": "S", "order": 1,
			"items": [{
				"key": "i", "title": "I", "order": 1,
				"query": "select 1",
				"validation_rule": {"type": "number_equals_expected"},
				"scope": "global",
				"expected_input_binding": "nao_declarado"
			}]
		}]
	}`

	_, err := Import([]byte(doc))

	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
}

func TestImport_AssignsFreshIDs(t *testing.T) {
	doc := `{
		"name": "x", "version": "1",
		"expected_inputs": [{"key": "meta", "label": "Meta", "type": "number", "scope": "global", "required": true}],
		"sections": [{
			"key": "s", "title": "S", "order": 1,
			"items": [{
				"key": "i", "title": "I", "order": 1,
				"query": "select 1",
				"validation_rule": {"type": "single_number_required"},
				"scope": "global"
			}]
		}]
	}`

	first, err := Import([]byte(doc))
	require.NoError(t, err)
	second, err := Import([]byte(doc))
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.NotEqual(t, first.Sections[0].ID, second.Sections[0].ID)
	assert.NotEqual(t, first.Sections[0].Items[0].ID, second.Sections[0].Items[0].ID)
}
