// internal/models/conference.go
package models

import (
	"fmt"
	"time"
)

// ItemStatus is the lifecycle state of a conference item.
type ItemStatus string

const (
	StatusPending   ItemStatus = "pending"
	StatusAutoOK    ItemStatus = "auto_ok"
	StatusWarn      ItemStatus = "warn"
	StatusFail      ItemStatus = "fail"
	StatusCorrect   ItemStatus = "correct"
	StatusDivergent ItemStatus = "divergent"
)

// UserResponse is the client's confirmation of an automated verdict.
type UserResponse string

const (
	ResponseCorrect   UserResponse = "correct"
	ResponseDivergent UserResponse = "divergent"
)

// ConferenceStatus tracks the overall instantiation.
type ConferenceStatus string

const (
	ConferenceOpen      ConferenceStatus = "open"
	ConferenceCompleted ConferenceStatus = "completed"
	ConferenceExpired   ConferenceStatus = "expired"
)

// Row is one result row keyed by column name.
type Row map[string]interface{}

// Rows is the shape a query executor returns.
type Rows []Row

// ExpectedInputValue is one client-supplied value; StoreID is set only for
// per-store inputs.
type ExpectedInputValue struct {
	Value   string `json:"value"`
	StoreID string `json:"storeId,omitempty"`
}

// InputValueKey builds the composite key the conference stores values
// under: the bare input key for global inputs, "<key>_<storeID>" per store.
func InputValueKey(inputKey, storeID string) string {
	if storeID == "" {
		return inputKey
	}
	return fmt.Sprintf("%s_%s", inputKey, storeID)
}

// ConferenceItemID derives the deterministic id for an expanded item so
// repeated expansion is idempotent. Global items keep the template item id.
func ConferenceItemID(templateItemID, storeID string) string {
	if storeID == "" {
		return templateItemID
	}
	return fmt.Sprintf("%s_%s", templateItemID, storeID)
}

// ConferenceItem is the runtime instance of a template item, one per
// (item, store) pair for per-store items and exactly one for global items.
type ConferenceItem struct {
	ID             string       `json:"id"`
	TemplateItemID string       `json:"templateItemId"`
	StoreID        string       `json:"storeId,omitempty"`
	Status         ItemStatus   `json:"status"`
	QueryResult    Rows         `json:"queryResult,omitempty"`
	ErrorDetail    string       `json:"errorDetail,omitempty"`
	UserResponse   UserResponse `json:"userResponse,omitempty"`
	Observation    string       `json:"observation,omitempty"`
	RespondedBy    string       `json:"respondedBy,omitempty"`
	ExecutedAt     *time.Time   `json:"executedAt,omitempty"`
	RespondedAt    *time.Time   `json:"respondedAt,omitempty"`
}

// Completed reports whether the item counts toward section completion and
// progress. Auto-resolved items are correct without a recorded response.
func (ci *ConferenceItem) Completed() bool {
	return ci.Status == StatusCorrect || ci.Status == StatusDivergent
}

// Conference is one instantiation of a template against a set of stores.
// Template is a value snapshot taken at creation time; edits to the source
// template never reach an in-flight conference.
type Conference struct {
	ID            string                        `json:"id"`
	TemplateID    string                        `json:"templateId"`
	Template      ChecklistTemplate             `json:"template"`
	Stores        []Store                       `json:"stores"`
	InputValues   map[string]ExpectedInputValue `json:"expectedInputValues"`
	Items         []*ConferenceItem             `json:"items"`
	Status        ConferenceStatus              `json:"status"`
	PeriodStart   time.Time                     `json:"periodStart"`
	PeriodEnd     time.Time                     `json:"periodEnd"`
	Step          WizardStep                    `json:"step"`
	SectionIndex  int                           `json:"sectionIndex"`
	LinkExpiresAt time.Time                     `json:"linkExpiresAt"`
	CreatedAt     time.Time                     `json:"createdAt"`
}

// ItemByID returns the conference item with the given deterministic id.
func (c *Conference) ItemByID(id string) (*ConferenceItem, bool) {
	for _, item := range c.Items {
		if item.ID == id {
			return item, true
		}
	}
	return nil, false
}

// ItemsForSection filters the expanded items belonging to one section of
// the snapshot, in template order.
func (c *Conference) ItemsForSection(section TemplateSection) []*ConferenceItem {
	var out []*ConferenceItem
	for _, ti := range section.Items {
		for _, ci := range c.Items {
			if ci.TemplateItemID == ti.ID {
				out = append(out, ci)
			}
		}
	}
	return out
}

// StoreByID looks up a configured store by its internal id.
func (c *Conference) StoreByID(id string) (Store, bool) {
	for _, s := range c.Stores {
		if s.ID == id {
			return s, true
		}
	}
	return Store{}, false
}

// Progress is the summary aggregate shown on the wizard's final step.
type Progress struct {
	Completed      int `json:"completed"`
	Total          int `json:"total"`
	CorrectCount   int `json:"correctCount"`
	DivergentCount int `json:"divergentCount"`
	Percentage     int `json:"percentage"`
}
