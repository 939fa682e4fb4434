// Package executor defines the external query execution boundary. The
// engine only ever hands an adapter a concrete query string and receives
// rows back; running the text read-only is the adapter's concern.
package executor

import (
	"context"

	"conference-engine/internal/models"
)

// QueryExecutor runs one concrete query against the target data source.
// Executions for different items are independent and may run concurrently;
// implementations must honor the context deadline.
type QueryExecutor interface {
	Execute(ctx context.Context, query string) (models.Rows, error)
}

// Func adapts a plain function to the QueryExecutor interface, used by
// tests and previews.
type Func func(ctx context.Context, query string) (models.Rows, error)

func (f Func) Execute(ctx context.Context, query string) (models.Rows, error) {
	return f(ctx, query)
}
