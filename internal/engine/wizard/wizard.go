// Package wizard sequences the client flow of a conference: expected
// inputs first, then every section in order, then the summary. Navigation
// is strictly sequential; there is no skipping ahead.
package wizard

import (
	"context"
	"fmt"
	"math"
	"strings"

	"conference-engine/internal/common/errors"
	"conference-engine/internal/common/logger"
	"conference-engine/internal/common/metrics"
	"conference-engine/internal/models"
	"conference-engine/internal/storage"
)

// Controller drives wizard navigation over persisted conferences.
//
// Section-completion gating is policy, not an engine invariant: the
// completion flag is always exposed in the returned state, and
// advancement past an incomplete section is only blocked when
// enforceSectionCompletion is on.
type Controller struct {
	conferences              storage.ConferenceRepository
	enforceSectionCompletion bool
	logger                   logger.Logger
}

func NewController(repo storage.ConferenceRepository, enforceSectionCompletion bool, log logger.Logger) *Controller {
	return &Controller{
		conferences:              repo,
		enforceSectionCompletion: enforceSectionCompletion,
		logger:                   log.WithFields(map[string]interface{}{"component": "wizard"}),
	}
}

// SetExpectedInputs stores client-supplied values on the conference.
// Keys are composite: the bare input key for global inputs,
// "<key>_<storeID>" for per-store ones. Unknown keys are rejected;
// number and currency inputs must parse as numbers.
func (c *Controller) SetExpectedInputs(ctx context.Context, conferenceID string, values map[string]models.ExpectedInputValue) error {
	conf, err := c.conferences.GetConference(ctx, conferenceID)
	if err != nil {
		return err
	}

	for key, value := range values {
		input, storeID, ok := resolveInputKey(conf, key)
		if !ok {
			return errors.NewConfigurationError(errors.ErrCodeDanglingBinding,
				"Value supplied for an undeclared expected input", key)
		}
		if input.Type == models.InputTypeNumber || input.Type == models.InputTypeCurrency {
			if !isNumeric(value.Value) {
				return errors.NewConfigurationError(errors.ErrCodeNonNumericExpectedValue,
					fmt.Sprintf("Input %q requires a numeric value", input.Key), value.Value)
			}
		}
		value.StoreID = storeID
		conf.InputValues[key] = value
	}

	return c.conferences.SaveConference(ctx, conf)
}

// Advance moves one step forward. Out of expected_inputs every required
// input must have a value (one per store for per-store inputs); past the
// last section the flow lands on the summary.
func (c *Controller) Advance(ctx context.Context, conferenceID string) (*models.WizardState, error) {
	conf, err := c.conferences.GetConference(ctx, conferenceID)
	if err != nil {
		return nil, err
	}

	switch conf.Step {
	case models.StepExpectedInputs:
		if missing := missingRequiredInputs(conf); len(missing) > 0 {
			return nil, errors.NewConfigurationError(errors.ErrCodeMissingExpectedValue,
				"Required expected inputs have no value", strings.Join(missing, ", "))
		}
		conf.Step = models.StepSection
		conf.SectionIndex = 0

	case models.StepSection:
		if c.enforceSectionCompletion && !sectionComplete(conf, conf.SectionIndex) {
			return nil, errors.NewInvalidTransitionError(
				fmt.Sprintf("section %d incomplete", conf.SectionIndex), "advance")
		}
		if conf.SectionIndex+1 < len(conf.Template.Sections) {
			conf.SectionIndex++
		} else {
			conf.Step = models.StepSummary
		}

	case models.StepSummary:
		// Terminal; advancing from the summary is a no-op.
	}

	metrics.WizardTransitions.WithLabelValues("advance", string(conf.Step)).Inc()
	if err := c.conferences.SaveConference(ctx, conf); err != nil {
		return nil, err
	}
	return c.state(conf), nil
}

// Retreat moves one step back. From the summary the client re-enters
// review at the first section; from the first section the flow returns
// to expected inputs.
func (c *Controller) Retreat(ctx context.Context, conferenceID string) (*models.WizardState, error) {
	conf, err := c.conferences.GetConference(ctx, conferenceID)
	if err != nil {
		return nil, err
	}

	switch conf.Step {
	case models.StepSummary:
		conf.Step = models.StepSection
		conf.SectionIndex = 0

	case models.StepSection:
		if conf.SectionIndex > 0 {
			conf.SectionIndex--
		} else {
			conf.Step = models.StepExpectedInputs
		}

	case models.StepExpectedInputs:
		// Already at the start.
	}

	metrics.WizardTransitions.WithLabelValues("retreat", string(conf.Step)).Inc()
	if err := c.conferences.SaveConference(ctx, conf); err != nil {
		return nil, err
	}
	return c.state(conf), nil
}

// State reports the current position without navigating.
func (c *Controller) State(ctx context.Context, conferenceID string) (*models.WizardState, error) {
	conf, err := c.conferences.GetConference(ctx, conferenceID)
	if err != nil {
		return nil, err
	}
	return c.state(conf), nil
}

// GetProgress aggregates completion across every expanded item.
func (c *Controller) GetProgress(ctx context.Context, conferenceID string) (models.Progress, error) {
	conf, err := c.conferences.GetConference(ctx, conferenceID)
	if err != nil {
		return models.Progress{}, err
	}
	return Progress(conf), nil
}

// Progress computes the summary aggregate. completed/total is 0 when the
// conference has no items at all.
func Progress(conf *models.Conference) models.Progress {
	p := models.Progress{Total: len(conf.Items)}
	for _, item := range conf.Items {
		if item.Completed() {
			p.Completed++
		}
		switch item.Status {
		case models.StatusCorrect:
			p.CorrectCount++
		case models.StatusDivergent:
			p.DivergentCount++
		}
	}
	if p.Total > 0 {
		p.Percentage = int(math.Round(100 * float64(p.Completed) / float64(p.Total)))
	}
	return p
}

func (c *Controller) state(conf *models.Conference) *models.WizardState {
	state := &models.WizardState{
		Step:         conf.Step,
		SectionIndex: conf.SectionIndex,
		SectionTotal: len(conf.Template.Sections),
		Progress:     Progress(conf),
	}
	if conf.Step == models.StepSection && conf.SectionIndex < len(conf.Template.Sections) {
		state.SectionKey = conf.Template.Sections[conf.SectionIndex].Key
		state.SectionComplete = sectionComplete(conf, conf.SectionIndex)
	}
	return state
}

// sectionComplete is true when every expanded item of the section has
// reached correct or divergent, auto-resolved items included.
func sectionComplete(conf *models.Conference, sectionIndex int) bool {
	if sectionIndex < 0 || sectionIndex >= len(conf.Template.Sections) {
		return false
	}
	for _, item := range conf.ItemsForSection(conf.Template.Sections[sectionIndex]) {
		if !item.Completed() {
			return false
		}
	}
	return true
}

// missingRequiredInputs lists the composite keys of required inputs with
// no stored value.
func missingRequiredInputs(conf *models.Conference) []string {
	var missing []string
	for _, input := range conf.Template.ExpectedInputs {
		if !input.Required {
			continue
		}
		switch input.Scope {
		case models.ScopePerStore:
			for _, store := range conf.Stores {
				key := models.InputValueKey(input.Key, store.ID)
				if v, ok := conf.InputValues[key]; !ok || v.Value == "" {
					missing = append(missing, key)
				}
			}
		default:
			if v, ok := conf.InputValues[input.Key]; !ok || v.Value == "" {
				missing = append(missing, input.Key)
			}
		}
	}
	return missing
}

func resolveInputKey(conf *models.Conference, key string) (models.ExpectedInput, string, bool) {
	// Exact match first: a global input's composite key is the bare key.
	if input, ok := conf.Template.InputByKey(key); ok && input.Scope == models.ScopeGlobal {
		return input, "", true
	}
	// Per-store keys are "<inputKey>_<storeID>".
	for _, input := range conf.Template.ExpectedInputs {
		if input.Scope != models.ScopePerStore {
			continue
		}
		prefix := input.Key + "_"
		if strings.HasPrefix(key, prefix) {
			storeID := strings.TrimPrefix(key, prefix)
			if _, ok := conf.StoreByID(storeID); ok {
				return input, storeID, true
			}
		}
	}
	return models.ExpectedInput{}, "", false
}

func isNumeric(value string) bool {
	if value == "" {
		return false
	}
	var dot, digit bool
	for i, r := range value {
		switch {
		case r >= '0' && r <= '9':
			digit = true
		case r == '.' && !dot:
			dot = true
		case (r == '-' || r == '+') && i == 0:
		default:
			return false
		}
	}
	return digit
}
