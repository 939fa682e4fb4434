// internal/executor/postgres.go
package executor

import (
	"context"
	"database/sql"
	"time"

	"conference-engine/internal/common/errors"
	"conference-engine/internal/common/logger"
	"conference-engine/internal/models"
)

// PostgresExecutor runs concrete queries against a PostgreSQL source.
type PostgresExecutor struct {
	db      *sql.DB
	timeout time.Duration
	logger  logger.Logger
}

func NewPostgresExecutor(db *sql.DB, timeout time.Duration, log logger.Logger) *PostgresExecutor {
	return &PostgresExecutor{
		db:      db,
		timeout: timeout,
		logger:  log.WithFields(map[string]interface{}{"executor": "postgres"}),
	}
}

// Execute runs the query and materializes every row as a column-keyed map.
func (e *PostgresExecutor) Execute(ctx context.Context, query string) (models.Rows, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.NewQueryTimeoutError(err.Error())
		}
		return nil, errors.NewExecutionError(err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.NewExecutionError(err)
	}

	var result models.Rows
	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, errors.NewExecutionError(err)
		}

		row := make(models.Row, len(columns))
		for i, col := range columns {
			row[col] = normalizeScalar(values[i])
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.NewQueryTimeoutError(err.Error())
		}
		return nil, errors.NewExecutionError(err)
	}

	e.logger.Debug("query executed", map[string]interface{}{
		"rowCount":   len(result),
		"durationMs": time.Since(start).Milliseconds(),
	})
	return result, nil
}

// normalizeScalar unwraps driver byte slices so downstream numeric
// parsing sees strings, matching what lib/pq returns for numerics.
func normalizeScalar(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
