// Package transfer imports and exports checklist templates as JSON
// documents. The round trip is lossless for every template field except
// ids, which are regenerated on import.
package transfer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	"conference-engine/internal/common/errors"
	"conference-engine/internal/engine/inputs"
	"conference-engine/internal/models"
)

// Export renders a template as an interchange document.
func Export(template *models.ChecklistTemplate) ([]byte, error) {
	doc := Document{
		Name:           template.Name,
		Description:    template.Description,
		Version:        template.Version,
		ExpectedInputs: make([]InputDoc, 0, len(template.ExpectedInputs)),
		Sections:       make([]SectionDoc, 0, len(template.Sections)),
	}

	for _, in := range template.ExpectedInputs {
		doc.ExpectedInputs = append(doc.ExpectedInputs, InputDoc{
			Key:      in.Key,
			Label:    in.Label,
			Type:     string(in.Type),
			Scope:    string(in.Scope),
			Required: in.Required,
			Hint:     in.Hint,
		})
	}

	for _, sec := range template.Sections {
		secDoc := SectionDoc{
			Key:   sec.Key,
			Title: sec.Title,
			Order: sec.Order,
			Items: make([]ItemDoc, 0, len(sec.Items)),
		}
		for _, item := range sec.Items {
			rule := RuleDoc{Type: string(item.Rule.Type)}
			if item.Rule.Type == models.RuleNumberWithTolerance {
				tolerance := item.Rule.Tolerance
				rule.Tolerance = &tolerance
			}
			secDoc.Items = append(secDoc.Items, ItemDoc{
				Key:                  item.Key,
				Title:                item.Title,
				Description:          item.Description,
				Order:                item.Order,
				Query:                item.Query,
				ValidationRule:       rule,
				Scope:                string(item.Scope),
				ExpectedInputBinding: item.ExpectedInputBinding,
				AutoResolve:          item.AutoResolve,
			})
		}
		doc.Sections = append(doc.Sections, secDoc)
	}

	return json.MarshalIndent(doc, "", "  ")
}

// Import parses, schema-validates and maps a document into a template
// with fresh ids, then runs the full consistency check. Any issue blocks
// the import.
func Import(data []byte) (*models.ChecklistTemplate, error) {
	if err := validateSchema(data); err != nil {
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.NewConfigurationError(errors.ErrCodeTemplateValidationFail,
			"Document is not valid JSON", err.Error())
	}

	template := &models.ChecklistTemplate{
		ID:          uuid.NewString(),
		Name:        doc.Name,
		Description: doc.Description,
		Version:     doc.Version,
	}

	for _, in := range doc.ExpectedInputs {
		template.ExpectedInputs = append(template.ExpectedInputs, models.ExpectedInput{
			Key:      in.Key,
			Label:    in.Label,
			Type:     models.InputType(in.Type),
			Scope:    models.Scope(in.Scope),
			Required: in.Required,
			Hint:     in.Hint,
		})
	}

	for _, secDoc := range doc.Sections {
		section := models.TemplateSection{
			ID:    uuid.NewString(),
			Key:   secDoc.Key,
			Title: secDoc.Title,
			Order: secDoc.Order,
		}
		for _, itemDoc := range secDoc.Items {
			rule := models.ValidationRule{Type: models.RuleType(itemDoc.ValidationRule.Type)}
			if itemDoc.ValidationRule.Tolerance != nil {
				rule.Tolerance = *itemDoc.ValidationRule.Tolerance
			}
			section.Items = append(section.Items, models.TemplateItem{
				ID:                   uuid.NewString(),
				Key:                  itemDoc.Key,
				Title:                itemDoc.Title,
				Description:          itemDoc.Description,
				Order:                itemDoc.Order,
				Query:                itemDoc.Query,
				Rule:                 rule,
				Scope:                models.Scope(itemDoc.Scope),
				ExpectedInputBinding: itemDoc.ExpectedInputBinding,
				AutoResolve:          itemDoc.AutoResolve,
			})
		}
		template.Sections = append(template.Sections, section)
	}

	if err := inputs.AsError(inputs.ValidateTemplate(template)); err != nil {
		return nil, err
	}
	return template, nil
}

func validateSchema(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(documentSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return errors.NewConfigurationError(errors.ErrCodeTemplateValidationFail,
			"Document is not valid JSON", err.Error())
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
		}
		return errors.NewConfigurationError(errors.ErrCodeTemplateValidationFail,
			"Document does not match the template schema", strings.Join(details, "; "))
	}
	return nil
}
