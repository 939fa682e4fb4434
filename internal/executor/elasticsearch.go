// internal/executor/elasticsearch.go
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"conference-engine/internal/common/errors"
	"conference-engine/internal/common/logger"
	"conference-engine/internal/models"
)

// ElasticsearchExecutor runs concrete queries through the Elasticsearch
// SQL endpoint, so operator-authored templates stay plain SQL-like text
// regardless of the backing source.
type ElasticsearchExecutor struct {
	client  *elasticsearch.Client
	timeout time.Duration
	logger  logger.Logger
}

func NewElasticsearchExecutor(client *elasticsearch.Client, timeout time.Duration, log logger.Logger) *ElasticsearchExecutor {
	return &ElasticsearchExecutor{
		client:  client,
		timeout: timeout,
		logger:  log.WithFields(map[string]interface{}{"executor": "elasticsearch"}),
	}
}

type sqlRequest struct {
	Query string `json:"query"`
}

type sqlResponse struct {
	Columns []struct {
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"columns"`
	Rows [][]interface{} `json:"rows"`
}

// Execute posts the query to the _sql API and reshapes the columnar
// response into column-keyed rows.
func (e *ElasticsearchExecutor) Execute(ctx context.Context, query string) (models.Rows, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	body, err := json.Marshal(sqlRequest{Query: query})
	if err != nil {
		return nil, errors.NewExecutionError(err)
	}

	start := time.Now()
	res, err := e.client.SQL.Query(
		strings.NewReader(string(body)),
		e.client.SQL.Query.WithContext(ctx),
	)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.NewQueryTimeoutError(err.Error())
		}
		return nil, errors.NewExecutionError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		detail, _ := io.ReadAll(res.Body)
		return nil, errors.NewExecutionError(fmt.Errorf("elasticsearch sql error %s: %s", res.Status(), detail))
	}

	var parsed sqlResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, errors.NewExecutionError(err)
	}

	result := make(models.Rows, 0, len(parsed.Rows))
	for _, raw := range parsed.Rows {
		row := make(models.Row, len(parsed.Columns))
		for i, col := range parsed.Columns {
			if i < len(raw) {
				row[col.Name] = raw[i]
			}
		}
		result = append(result, row)
	}

	e.logger.Debug("query executed", map[string]interface{}{
		"rowCount":   len(result),
		"durationMs": time.Since(start).Milliseconds(),
	})
	return result, nil
}
