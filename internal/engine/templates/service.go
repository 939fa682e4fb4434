// Package templates manages the collaborator-facing template lifecycle.
// Consistency is checked here, at save time: an inconsistent template
// never reaches the repository.
package templates

import (
	"context"

	"github.com/google/uuid"

	"conference-engine/internal/common/logger"
	"conference-engine/internal/engine/inputs"
	"conference-engine/internal/models"
	"conference-engine/internal/storage"
)

type Service struct {
	templates storage.TemplateRepository
	logger    logger.Logger
}

func NewService(repo storage.TemplateRepository, log logger.Logger) *Service {
	return &Service{
		templates: repo,
		logger:    log.WithFields(map[string]interface{}{"component": "templates"}),
	}
}

// Validate exposes the consistency check without persisting.
func (s *Service) Validate(template *models.ChecklistTemplate) []inputs.Issue {
	return inputs.ValidateTemplate(template)
}

// Save assigns ids to new entities, validates and persists. A non-empty
// issue list blocks persistence.
func (s *Service) Save(ctx context.Context, template *models.ChecklistTemplate) error {
	fillIDs(template)

	if err := inputs.AsError(inputs.ValidateTemplate(template)); err != nil {
		s.logger.WithError(err).Warn("template rejected", map[string]interface{}{
			"templateId": template.ID,
			"name":       template.Name,
		})
		return err
	}

	if err := s.templates.SaveTemplate(ctx, template); err != nil {
		return err
	}
	s.logger.Info("template saved", map[string]interface{}{
		"templateId": template.ID,
		"sections":   len(template.Sections),
	})
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.ChecklistTemplate, error) {
	return s.templates.GetTemplate(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*models.ChecklistTemplate, error) {
	return s.templates.ListTemplates(ctx)
}

// Delete removes the template. Sections and items live inside the
// aggregate, so they go with it.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.templates.DeleteTemplate(ctx, id)
}

func fillIDs(template *models.ChecklistTemplate) {
	if template.ID == "" {
		template.ID = uuid.NewString()
	}
	for i := range template.Sections {
		if template.Sections[i].ID == "" {
			template.Sections[i].ID = uuid.NewString()
		}
		for j := range template.Sections[i].Items {
			if template.Sections[i].Items[j].ID == "" {
				template.Sections[i].Items[j].ID = uuid.NewString()
			}
		}
	}
}
