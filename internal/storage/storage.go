// Package storage defines the persistence boundary for the two root
// aggregates. Durable storage is an external collaborator; the engine
// only depends on these interfaces.
package storage

import (
	"context"

	"conference-engine/internal/models"
)

// TemplateRepository persists checklist templates. Save must be rejected
// upstream for inconsistent templates; repositories store what they get.
type TemplateRepository interface {
	SaveTemplate(ctx context.Context, template *models.ChecklistTemplate) error
	GetTemplate(ctx context.Context, id string) (*models.ChecklistTemplate, error)
	ListTemplates(ctx context.Context) ([]*models.ChecklistTemplate, error)
	DeleteTemplate(ctx context.Context, id string) error
}

// ConferenceRepository persists conference aggregates. A conference and
// its items are mutated by exactly one logical client session, so the
// repository only needs to guard its own internal structures.
type ConferenceRepository interface {
	SaveConference(ctx context.Context, conference *models.Conference) error
	GetConference(ctx context.Context, id string) (*models.Conference, error)
	ListConferences(ctx context.Context) ([]*models.Conference, error)
	DeleteConference(ctx context.Context, id string) error
}
