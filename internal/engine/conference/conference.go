// Package conference instantiates a checklist template against a set of
// stores and drives each resulting item through its lifecycle: pending,
// an automated verdict, and the client's confirmation.
package conference

import (
	"time"

	"github.com/google/uuid"

	"conference-engine/internal/engine/inputs"
	"conference-engine/internal/models"
)

// New creates a conference from a template. The template is validated,
// then snapshotted by value into the conference so later edits to the
// source template never affect this instantiation.
func New(template *models.ChecklistTemplate, stores []models.Store, periodStart, periodEnd time.Time, linkTTL time.Duration) (*models.Conference, error) {
	if err := inputs.AsError(inputs.ValidateTemplate(template)); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	conf := &models.Conference{
		ID:            uuid.NewString(),
		TemplateID:    template.ID,
		Template:      snapshotTemplate(template),
		Stores:        append([]models.Store(nil), stores...),
		InputValues:   make(map[string]models.ExpectedInputValue),
		Status:        models.ConferenceOpen,
		Step:          models.StepExpectedInputs,
		SectionIndex:  0,
		PeriodStart:   periodStart,
		PeriodEnd:     periodEnd,
		LinkExpiresAt: now.Add(linkTTL),
		CreatedAt:     now,
	}
	conf.Items = ExpandItems(&conf.Template, conf.Stores)
	return conf, nil
}

// ExpandItems produces the runtime items: one per global template item,
// one per (item, store) pair for per-store items. Ids are deterministic
// so repeated expansion is idempotent.
func ExpandItems(template *models.ChecklistTemplate, stores []models.Store) []*models.ConferenceItem {
	var items []*models.ConferenceItem
	for _, section := range template.Sections {
		for _, ti := range section.Items {
			switch ti.Scope {
			case models.ScopePerStore:
				for _, store := range stores {
					items = append(items, &models.ConferenceItem{
						ID:             models.ConferenceItemID(ti.ID, store.ID),
						TemplateItemID: ti.ID,
						StoreID:        store.ID,
						Status:         models.StatusPending,
					})
				}
			default:
				items = append(items, &models.ConferenceItem{
					ID:             models.ConferenceItemID(ti.ID, ""),
					TemplateItemID: ti.ID,
					Status:         models.StatusPending,
				})
			}
		}
	}
	return items
}

// snapshotTemplate deep-copies the aggregate; the slices inside must not
// alias the editable original.
func snapshotTemplate(t *models.ChecklistTemplate) models.ChecklistTemplate {
	out := *t
	out.ExpectedInputs = append([]models.ExpectedInput(nil), t.ExpectedInputs...)
	out.Sections = make([]models.TemplateSection, len(t.Sections))
	for i, sec := range t.Sections {
		copied := sec
		copied.Items = append([]models.TemplateItem(nil), sec.Items...)
		out.Sections[i] = copied
	}
	return out
}
