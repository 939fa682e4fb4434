// internal/engine/conference/service.go
package conference

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"conference-engine/internal/common/errors"
	"conference-engine/internal/common/logger"
	"conference-engine/internal/common/metrics"
	"conference-engine/internal/engine/rules"
	"conference-engine/internal/engine/substitution"
	"conference-engine/internal/executor"
	"conference-engine/internal/models"
	"conference-engine/internal/storage"
)

// Service runs the evaluation pipeline for one item at a time:
// substitution, external execution, rule evaluation, state transition.
// Every failure stays local to its item; callers never see one item's
// problem abort another's.
type Service struct {
	conferences storage.ConferenceRepository
	executor    executor.QueryExecutor
	logger      logger.Logger
}

func NewService(repo storage.ConferenceRepository, exec executor.QueryExecutor, log logger.Logger) *Service {
	return &Service{
		conferences: repo,
		executor:    exec,
		logger:      log.WithFields(map[string]interface{}{"component": "conference"}),
	}
}

// SubstitutePreview is the non-destructive preview the template editor
// uses: substitution over a sample context, unresolved placeholders kept.
func (s *Service) SubstitutePreview(query string, sampleContext map[string]string) string {
	return substitution.Substitute(query, sampleContext)
}

// EvaluateItem runs one item out of pending (or fail, for a retry):
// resolve the query, execute it, evaluate the rule and transition the
// item. Substitution and execution problems land the item in fail with
// the detail attached; only configuration and lookup errors are returned.
func (s *Service) EvaluateItem(ctx context.Context, conferenceID, templateItemID, storeID string) (*models.ConferenceItem, error) {
	conf, err := s.conferences.GetConference(ctx, conferenceID)
	if err != nil {
		return nil, err
	}

	templateItem, ok := conf.Template.ItemByID(templateItemID)
	if !ok {
		return nil, errors.NewItemNotFoundError(templateItemID)
	}

	var store *models.Store
	if templateItem.Scope == models.ScopePerStore {
		found, ok := conf.StoreByID(storeID)
		if !ok {
			return nil, errors.NewStoreNotFoundError(storeID)
		}
		store = &found
	}

	item, ok := conf.ItemByID(models.ConferenceItemID(templateItemID, storeID))
	if !ok {
		return nil, errors.NewItemNotFoundError(models.ConferenceItemID(templateItemID, storeID))
	}

	// Re-execution is only valid from pending and fail; evaluated items
	// belong to the client now.
	if item.Status != models.StatusPending && item.Status != models.StatusFail {
		return nil, errors.NewInvalidTransitionError(string(item.Status), "execute")
	}

	start := time.Now()
	s.evaluate(ctx, conf, templateItem, store, item)
	metrics.EvaluationDuration.WithLabelValues(string(templateItem.Rule.Type)).Observe(time.Since(start).Seconds())

	if err := s.conferences.SaveConference(ctx, conf); err != nil {
		return nil, err
	}
	return item, nil
}

// evaluate mutates item in place. A fail transition carries the error
// detail; a warn or auto_ok transition carries the query result.
func (s *Service) evaluate(ctx context.Context, conf *models.Conference, templateItem models.TemplateItem, store *models.Store, item *models.ConferenceItem) {
	log := s.logger.WithFields(map[string]interface{}{
		"conferenceId": conf.ID,
		"itemId":       item.ID,
		"ruleType":     string(templateItem.Rule.Type),
	})

	now := time.Now().UTC()
	item.ExecutedAt = &now
	item.ErrorDetail = ""
	item.QueryResult = nil

	concrete, err := substitution.Resolve(templateItem.Query, s.buildContext(conf, templateItem, store))
	if err != nil {
		metrics.SubstitutionFailures.WithLabelValues(string(templateItem.Rule.Type)).Inc()
		s.failItem(item, templateItem, err, log)
		return
	}

	result, err := s.executor.Execute(ctx, concrete)
	if err != nil {
		s.failItem(item, templateItem, err, log)
		return
	}

	expected, err := s.expectedValue(conf, templateItem, store)
	if err != nil {
		// Missing or non-numeric expected value is a configuration
		// problem; still fail the item so the client sees a blocked
		// check rather than a silent verdict.
		s.failItem(item, templateItem, err, log)
		return
	}

	eval, err := rules.Evaluate(templateItem.Rule, result, expected)
	if err != nil {
		s.failItem(item, templateItem, err, log)
		return
	}

	item.QueryResult = result
	item.Status = eval.Verdict.Status()
	item.ErrorDetail = eval.Detail

	// auto_ok finalizes without client action when the item opts in.
	// UserResponse stays unset: auto-resolution is not a human response.
	if eval.Verdict == rules.VerdictAutoOK && templateItem.AutoResolve {
		item.Status = models.StatusCorrect
	}

	metrics.ItemEvaluations.WithLabelValues(string(templateItem.Rule.Type), string(eval.Verdict)).Inc()
	log.Info("item evaluated", map[string]interface{}{
		"verdict": string(eval.Verdict),
		"status":  string(item.Status),
	})
}

func (s *Service) failItem(item *models.ConferenceItem, templateItem models.TemplateItem, err error, log logger.Logger) {
	item.Status = models.StatusFail
	item.ErrorDetail = err.Error()
	if std, ok := err.(*errors.StandardError); ok && std.Details != "" {
		item.ErrorDetail = std.Details
	}
	metrics.ItemEvaluations.WithLabelValues(string(templateItem.Rule.Type), string(models.StatusFail)).Inc()
	log.WithError(err).Warn("item evaluation failed", map[string]interface{}{
		"errorCode": string(errors.CodeOf(err)),
	})
}

// buildContext assembles the substitution context: the builtins plus
// every expected-input value visible to the item's scope. Per-store
// values are stored under composite keys but exposed under the bare
// input key for the resolved store.
func (s *Service) buildContext(conf *models.Conference, templateItem models.TemplateItem, store *models.Store) map[string]string {
	context := map[string]string{
		substitution.VarDateStart: conf.PeriodStart.Format("2006-01-02"),
		substitution.VarDateEnd:   conf.PeriodEnd.Format("2006-01-02"),
	}
	if store != nil {
		context[substitution.VarStoreID] = store.StoreID
	}

	for _, input := range conf.Template.ExpectedInputs {
		switch input.Scope {
		case models.ScopePerStore:
			if store == nil {
				continue
			}
			if v, ok := conf.InputValues[models.InputValueKey(input.Key, store.ID)]; ok {
				context[input.Key] = v.Value
			}
		default:
			if v, ok := conf.InputValues[input.Key]; ok {
				context[input.Key] = v.Value
			}
		}
	}
	return context
}

// expectedValue resolves and parses the bound expected value for
// comparison rules; nil for rules that need none.
func (s *Service) expectedValue(conf *models.Conference, templateItem models.TemplateItem, store *models.Store) (*decimal.Decimal, error) {
	if !templateItem.Rule.RequiresExpected() {
		return nil, nil
	}

	binding := templateItem.ExpectedInputBinding
	input, ok := conf.Template.InputByKey(binding)
	if !ok {
		return nil, errors.NewConfigurationError(errors.ErrCodeDanglingBinding,
			"Item binds an undeclared expected input", binding)
	}

	key := binding
	if input.Scope == models.ScopePerStore {
		if store == nil {
			return nil, errors.NewConfigurationError(errors.ErrCodeIncompatibleScope,
				"Global item cannot resolve a per-store expected input", binding)
		}
		key = models.InputValueKey(binding, store.ID)
	}

	stored, ok := conf.InputValues[key]
	if !ok {
		return nil, errors.NewMissingExpectedValueError(key)
	}

	parsed, err := rules.ParseExpected(stored.Value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// RespondToItem records the client's confirmation of an automated
// verdict. Only auto_ok (without auto-resolve) and warn accept one.
func (s *Service) RespondToItem(ctx context.Context, conferenceID, itemID string, response models.UserResponse, observation, respondedBy string) (*models.ConferenceItem, error) {
	if response != models.ResponseCorrect && response != models.ResponseDivergent {
		return nil, errors.NewInvalidTransitionError("", string(response))
	}

	conf, err := s.conferences.GetConference(ctx, conferenceID)
	if err != nil {
		return nil, err
	}

	item, ok := conf.ItemByID(itemID)
	if !ok {
		return nil, errors.NewItemNotFoundError(itemID)
	}

	if item.Status != models.StatusAutoOK && item.Status != models.StatusWarn {
		return nil, errors.NewInvalidTransitionError(string(item.Status), string(response))
	}

	now := time.Now().UTC()
	if response == models.ResponseCorrect {
		item.Status = models.StatusCorrect
	} else {
		item.Status = models.StatusDivergent
	}
	item.UserResponse = response
	item.Observation = observation
	item.RespondedBy = respondedBy
	item.RespondedAt = &now

	metrics.ClientResponses.WithLabelValues(string(response)).Inc()
	s.logger.Info("client responded", map[string]interface{}{
		"conferenceId": conferenceID,
		"itemId":       itemID,
		"response":     string(response),
	})

	if err := s.conferences.SaveConference(ctx, conf); err != nil {
		return nil, err
	}
	return item, nil
}

// EvaluateSection runs every pending or failed item of one section.
// Executions are independent and run concurrently; each one only mutates
// its own item, so no further coordination is needed.
func (s *Service) EvaluateSection(ctx context.Context, conferenceID string, sectionIndex int) ([]*models.ConferenceItem, error) {
	conf, err := s.conferences.GetConference(ctx, conferenceID)
	if err != nil {
		return nil, err
	}
	if sectionIndex < 0 || sectionIndex >= len(conf.Template.Sections) {
		return nil, errors.NewInvalidTransitionError("section", "out of range")
	}
	section := conf.Template.Sections[sectionIndex]

	g, gctx := errgroup.WithContext(ctx)
	items := conf.ItemsForSection(section)
	for _, item := range items {
		if item.Status != models.StatusPending && item.Status != models.StatusFail {
			continue
		}
		templateItem, ok := conf.Template.ItemByID(item.TemplateItemID)
		if !ok {
			continue
		}
		var store *models.Store
		if item.StoreID != "" {
			if found, ok := conf.StoreByID(item.StoreID); ok {
				store = &found
			}
		}

		item := item
		g.Go(func() error {
			// Evaluation failures stay inside the item state; the group
			// only propagates context cancellation.
			s.evaluate(gctx, conf, templateItem, store, item)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := s.conferences.SaveConference(ctx, conf); err != nil {
		return nil, err
	}
	return items, nil
}
