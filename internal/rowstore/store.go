// Package rowstore abstracts the append-only, full-scan-read persistence
// boundary. Conceptually every table is a single unordered append log; the
// store offers no query or index primitive.
package rowstore

import "context"

// TableData is the result of a full table scan. Rows exclude the header row
// and come back in storage (append) order.
type TableData struct {
	Headers []string
	Rows    [][]string
}

// Store is the row store boundary. Append reconciles the table's header row
// before writing; the reconciliation is a best-effort read-then-write, so
// concurrent first writers race and the last header write wins. Neither
// operation retries: transient transport failures surface to the caller.
type Store interface {
	Append(ctx context.Context, table string, headers, row []string) error
	ReadAll(ctx context.Context, table string, headers []string) (*TableData, error)
}
