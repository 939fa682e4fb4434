// internal/engine/conference/service_test.go
package conference

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conference-engine/internal/common/errors"
	"conference-engine/internal/common/logger"
	"conference-engine/internal/executor"
	"conference-engine/internal/models"
	"conference-engine/internal/storage/memory"
)

// ==========================
// Test Helper Functions
// ==========================

// recordingExecutor captures every concrete query and answers from a
// fixed script keyed by substring.
type recordingExecutor struct {
	mu      sync.Mutex
	queries []string
	answers map[string]models.Rows
	err     error
}

func (r *recordingExecutor) Execute(_ context.Context, query string) (models.Rows, error) {
	r.mu.Lock()
	r.queries = append(r.queries, query)
	r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for needle, rows := range r.answers {
		if strings.Contains(query, needle) {
			return rows, nil
		}
	}
	return models.Rows{}, nil
}

func setupService(t *testing.T, exec executor.QueryExecutor) (*Service, *memory.Store, *models.Conference) {
	store := memory.New()
	svc := NewService(store, exec, logger.NewTestLogger(t))

	conf, err := New(createTestTemplate(), createTestStores(),
		time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
		72*time.Hour)
	require.NoError(t, err)

	// Values a client would have supplied on the first wizard step.
	conf.InputValues["faturamento_esperado"] = models.ExpectedInputValue{Value: "1000"}
	for _, st := range conf.Stores {
		conf.InputValues[models.InputValueKey("vendas_loja", st.ID)] = models.ExpectedInputValue{Value: "500", StoreID: st.ID}
	}
	require.NoError(t, store.SaveConference(context.Background(), conf))

	return svc, store, conf
}

// ==========================
// EvaluateItem
// ==========================

func TestEvaluateItem_ExactMatchAutoOK(t *testing.T) {
	exec := &recordingExecutor{answers: map[string]models.Rows{
		"sum(valor) from vendas where data": {{"sum": "1000"}},
	}}
	svc, _, conf := setupService(t, exec)

	item, err := svc.EvaluateItem(context.Background(), conf.ID, "it-global", "")
	require.NoError(t, err)

	assert.Equal(t, models.StatusAutoOK, item.Status)
	assert.Empty(t, item.ErrorDetail)
	assert.NotNil(t, item.ExecutedAt)
	require.Len(t, item.QueryResult, 1)
}

func TestEvaluateItem_SubstitutesDatesAndStore(t *testing.T) {
	exec := &recordingExecutor{answers: map[string]models.Rows{
		"loja = 102": {{"sum": "500"}},
	}}
	svc, _, conf := setupService(t, exec)

	_, err := svc.EvaluateItem(context.Background(), conf.ID, "it-store", "st-2")
	require.NoError(t, err)

	require.Len(t, exec.queries, 1)
	// The external StoreID, not the internal id, reaches the query.
	assert.Contains(t, exec.queries[0], "loja = 102")
	assert.NotContains(t, exec.queries[0], ":store_id")
}

func TestEvaluateItem_MismatchWithinToleranceAutoOK(t *testing.T) {
	exec := &recordingExecutor{answers: map[string]models.Rows{
		"loja = 101": {{"sum": "480"}},
	}}
	svc, _, conf := setupService(t, exec)

	// 480 against expected 500 with 5% tolerance: |20| <= 25.
	item, err := svc.EvaluateItem(context.Background(), conf.ID, "it-store", "st-1")
	require.NoError(t, err)

	assert.Equal(t, models.StatusAutoOK, item.Status)
}

func TestEvaluateItem_MismatchOutsideToleranceWarns(t *testing.T) {
	exec := &recordingExecutor{answers: map[string]models.Rows{
		"loja = 101": {{"sum": "400"}},
	}}
	svc, _, conf := setupService(t, exec)

	item, err := svc.EvaluateItem(context.Background(), conf.ID, "it-store", "st-1")
	require.NoError(t, err)

	assert.Equal(t, models.StatusWarn, item.Status)
	assert.Contains(t, item.ErrorDetail, "400")
}

func TestEvaluateItem_AutoResolveSkipsClientResponse(t *testing.T) {
	// it-pend wants no rows and opts into auto-resolution.
	exec := &recordingExecutor{answers: map[string]models.Rows{
		"pedidos": {},
	}}
	svc, _, conf := setupService(t, exec)

	item, err := svc.EvaluateItem(context.Background(), conf.ID, "it-pend", "st-1")
	require.NoError(t, err)

	assert.Equal(t, models.StatusCorrect, item.Status)
	// Auto-resolution is not a human response.
	assert.Empty(t, item.UserResponse)
	assert.Nil(t, item.RespondedAt)
	assert.True(t, item.Completed())
}

func TestEvaluateItem_ExecutorFailureLandsInFail(t *testing.T) {
	exec := &recordingExecutor{err: fmt.Errorf("connection refused")}
	svc, _, conf := setupService(t, exec)

	item, err := svc.EvaluateItem(context.Background(), conf.ID, "it-global", "")
	require.NoError(t, err)

	assert.Equal(t, models.StatusFail, item.Status)
	assert.Contains(t, item.ErrorDetail, "connection refused")
}

func TestEvaluateItem_FailedItemIsRetryable(t *testing.T) {
	exec := &recordingExecutor{err: fmt.Errorf("connection refused")}
	svc, _, conf := setupService(t, exec)

	item, err := svc.EvaluateItem(context.Background(), conf.ID, "it-global", "")
	require.NoError(t, err)
	require.Equal(t, models.StatusFail, item.Status)

	// The executor recovers; retrying from fail succeeds and clears the
	// previous error detail.
	exec.err = nil
	exec.answers = map[string]models.Rows{"sum(valor)": {{"sum": "1000"}}}

	item, err = svc.EvaluateItem(context.Background(), conf.ID, "it-global", "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusAutoOK, item.Status)
	assert.Empty(t, item.ErrorDetail)
}

func TestEvaluateItem_EvaluatedItemNotReExecutable(t *testing.T) {
	exec := &recordingExecutor{answers: map[string]models.Rows{
		"sum(valor)": {{"sum": "1000"}},
	}}
	svc, _, conf := setupService(t, exec)

	_, err := svc.EvaluateItem(context.Background(), conf.ID, "it-global", "")
	require.NoError(t, err)

	_, err = svc.EvaluateItem(context.Background(), conf.ID, "it-global", "")
	assert.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidTransition, errors.CodeOf(err))
}

func TestEvaluateItem_MissingExpectedValueFailsItem(t *testing.T) {
	exec := &recordingExecutor{answers: map[string]models.Rows{
		"sum(valor)": {{"sum": "1000"}},
	}}
	svc, store, conf := setupService(t, exec)

	delete(conf.InputValues, "faturamento_esperado")
	require.NoError(t, store.SaveConference(context.Background(), conf))

	item, err := svc.EvaluateItem(context.Background(), conf.ID, "it-global", "")
	require.NoError(t, err)

	assert.Equal(t, models.StatusFail, item.Status)
	assert.Contains(t, item.ErrorDetail, "faturamento_esperado")
}

func TestEvaluateItem_UnknownLookups(t *testing.T) {
	svc, _, conf := setupService(t, &recordingExecutor{})

	_, err := svc.EvaluateItem(context.Background(), "no-such-conference", "it-global", "")
	assert.Equal(t, errors.ErrCodeConferenceNotFound, errors.CodeOf(err))

	_, err = svc.EvaluateItem(context.Background(), conf.ID, "no-such-item", "")
	assert.Equal(t, errors.ErrCodeItemNotFound, errors.CodeOf(err))

	_, err = svc.EvaluateItem(context.Background(), conf.ID, "it-store", "no-such-store")
	assert.Equal(t, errors.ErrCodeStoreNotFound, errors.CodeOf(err))
}

// ==========================
// RespondToItem
// ==========================

func TestRespondToItem_ConfirmsVerdict(t *testing.T) {
	exec := &recordingExecutor{answers: map[string]models.Rows{
		"sum(valor)": {{"sum": "1000"}},
	}}
	svc, _, conf := setupService(t, exec)

	_, err := svc.EvaluateItem(context.Background(), conf.ID, "it-global", "")
	require.NoError(t, err)

	item, err := svc.RespondToItem(context.Background(), conf.ID, "it-global",
		models.ResponseCorrect, "conferido manualmente", "user-7")
	require.NoError(t, err)

	assert.Equal(t, models.StatusCorrect, item.Status)
	assert.Equal(t, models.ResponseCorrect, item.UserResponse)
	assert.Equal(t, "conferido manualmente", item.Observation)
	assert.Equal(t, "user-7", item.RespondedBy)
	assert.NotNil(t, item.RespondedAt)
}

func TestRespondToItem_DivergentOnWarn(t *testing.T) {
	exec := &recordingExecutor{answers: map[string]models.Rows{
		"sum(valor)": {{"sum": "900"}},
	}}
	svc, _, conf := setupService(t, exec)

	item, err := svc.EvaluateItem(context.Background(), conf.ID, "it-global", "")
	require.NoError(t, err)
	require.Equal(t, models.StatusWarn, item.Status)

	item, err = svc.RespondToItem(context.Background(), conf.ID, "it-global",
		models.ResponseDivergent, "valor contestado", "user-7")
	require.NoError(t, err)

	assert.Equal(t, models.StatusDivergent, item.Status)
	assert.True(t, item.Completed())
}

func TestRespondToItem_RejectedOutsideRespondableStates(t *testing.T) {
	svc, _, conf := setupService(t, &recordingExecutor{})

	// pending
	_, err := svc.RespondToItem(context.Background(), conf.ID, "it-global",
		models.ResponseCorrect, "", "user-7")
	assert.Equal(t, errors.ErrCodeInvalidTransition, errors.CodeOf(err))
}

func TestRespondToItem_RejectsUnknownResponse(t *testing.T) {
	svc, _, conf := setupService(t, &recordingExecutor{})

	_, err := svc.RespondToItem(context.Background(), conf.ID, "it-global",
		models.UserResponse("maybe"), "", "user-7")
	assert.Equal(t, errors.ErrCodeInvalidTransition, errors.CodeOf(err))
}

// ==========================
// EvaluateSection
// ==========================

func TestEvaluateSection_RunsEveryPendingItem(t *testing.T) {
	exec := &recordingExecutor{answers: map[string]models.Rows{
		"sum(valor) from vendas where data": {{"sum": "1000"}},
		"loja = 101":                       {{"sum": "500"}},
		"loja = 102":                       {{"sum": "480"}},
		"loja = 103":                       {{"sum": "300"}},
	}}
	svc, _, conf := setupService(t, exec)

	items, err := svc.EvaluateSection(context.Background(), conf.ID, 0)
	require.NoError(t, err)

	// Section 0 holds the global item plus one per-store item per store.
	require.Len(t, items, 4)
	byID := map[string]models.ItemStatus{}
	for _, item := range items {
		byID[item.ID] = item.Status
	}
	assert.Equal(t, models.StatusAutoOK, byID["it-global"])
	assert.Equal(t, models.StatusAutoOK, byID[models.ConferenceItemID("it-store", "st-1")])
	assert.Equal(t, models.StatusAutoOK, byID[models.ConferenceItemID("it-store", "st-2")])
	assert.Equal(t, models.StatusWarn, byID[models.ConferenceItemID("it-store", "st-3")])
}

func TestEvaluateSection_OneFailureDoesNotAbortOthers(t *testing.T) {
	exec := &recordingExecutor{answers: map[string]models.Rows{
		"sum(valor) from vendas where data": {{"sum": "1000"}},
		"loja = 101":                       {{"sum": "500"}},
		"loja = 102":                       {{"a": 1, "b": 2}}, // bad shape
		"loja = 103":                       {{"sum": "500"}},
	}}
	svc, _, conf := setupService(t, exec)

	items, err := svc.EvaluateSection(context.Background(), conf.ID, 0)
	require.NoError(t, err)

	var failed, ok int
	for _, item := range items {
		switch item.Status {
		case models.StatusFail:
			failed++
		case models.StatusAutoOK:
			ok++
		}
	}
	assert.Equal(t, 1, failed)
	assert.Equal(t, 3, ok)
}

func TestEvaluateSection_SkipsCompletedItems(t *testing.T) {
	exec := &recordingExecutor{answers: map[string]models.Rows{
		"sum(valor) from vendas where data": {{"sum": "1000"}},
		"loja":                              {{"sum": "500"}},
	}}
	svc, _, conf := setupService(t, exec)

	_, err := svc.EvaluateSection(context.Background(), conf.ID, 0)
	require.NoError(t, err)
	executed := len(exec.queries)

	// All items are evaluated now; a second run touches nothing.
	_, err = svc.EvaluateSection(context.Background(), conf.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, executed, len(exec.queries))
}

func TestEvaluateSection_OutOfRange(t *testing.T) {
	svc, _, conf := setupService(t, &recordingExecutor{})

	_, err := svc.EvaluateSection(context.Background(), conf.ID, 7)
	assert.Error(t, err)

	_, err = svc.EvaluateSection(context.Background(), conf.ID, -1)
	assert.Error(t, err)
}

// ==========================
// SubstitutePreview
// ==========================

func TestSubstitutePreview_KeepsUnresolved(t *testing.T) {
	svc, _, _ := setupService(t, &recordingExecutor{})

	preview := svc.SubstitutePreview("select :known, :unknown", map[string]string{"known": "1"})

	assert.Equal(t, "select 1, :unknown", preview)
}
