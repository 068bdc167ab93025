// Package export defines the outbound ports for mirroring ledger items to
// an external spreadsheet-like target.
package export

import (
	"context"

	"kakeibo/internal/core"
)

type (
	// ItemAppender writes one item as a row and returns an opaque row
	// reference for logging.
	ItemAppender interface {
		Append(ctx context.Context, item core.Item) (rowRef string, err error)
	}

	// ItemRemover erases the row for a deleted item. Removing an item
	// that was never exported is a no-op.
	ItemRemover interface {
		Remove(ctx context.Context, itemID int64) error
	}
)
