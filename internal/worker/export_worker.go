// Package worker drains the export queue and mirrors ledger items to the
// configured export target.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"kakeibo/internal/amqp"
	"kakeibo/internal/core"
	"kakeibo/internal/export"
	"kakeibo/internal/storage"
)

type exportRepository interface {
	GetItemByID(ctx context.Context, id int64) (core.Item, error)
	GetPendingExportItems(ctx context.Context, limit int) ([]storage.PendingExportItem, error)
	MarkExported(ctx context.Context, id int64) error
	MarkExportError(ctx context.Context, id int64) error
}

// ExportWorker exports items one at a time. Failed exports are marked in
// storage and retried by the periodic pending scan, so message handling
// never requeues on target errors.
type ExportWorker struct {
	repo      exportRepository
	appender  export.ItemAppender
	remover   export.ItemRemover
	batchSize int
}

// NewExportWorker creates a worker. remover may be nil when the export
// target cannot delete rows.
func NewExportWorker(repo exportRepository, appender export.ItemAppender, remover export.ItemRemover, batchSize int) *ExportWorker {
	return &ExportWorker{
		repo:      repo,
		appender:  appender,
		remover:   remover,
		batchSize: batchSize,
	}
}

// HandleExportMessage dispatches one queue message.
func (w *ExportWorker) HandleExportMessage(ctx context.Context, msg *amqp.ExportMessage) error {
	switch msg.Type {
	case amqp.TypeItemSync:
		return w.syncItem(ctx, msg.ItemID)
	case amqp.TypeItemDelete:
		return w.removeItem(ctx, msg.ItemID)
	default:
		return fmt.Errorf("unknown message type: %s", msg.Type)
	}
}

func (w *ExportWorker) syncItem(ctx context.Context, itemID int64) error {
	item, err := w.repo.GetItemByID(ctx, itemID)
	if errors.Is(err, core.ErrNotFound) {
		// Deleted between publish and delivery.
		slog.InfoContext(ctx, "Skipping export of deleted item", "item_id", itemID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load item %d: %w", itemID, err)
	}

	rowRef, err := w.appender.Append(ctx, item)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to export item", "error", err, "item_id", itemID)
		if markErr := w.repo.MarkExportError(ctx, itemID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error", "error", markErr, "item_id", itemID)
		}
		// The pending scan retries; do not bounce the message.
		return nil
	}

	if err := w.repo.MarkExported(ctx, itemID); err != nil {
		return fmt.Errorf("mark item %d exported: %w", itemID, err)
	}

	slog.InfoContext(ctx, "Item exported", "item_id", itemID, "row_ref", rowRef)
	return nil
}

func (w *ExportWorker) removeItem(ctx context.Context, itemID int64) error {
	if w.remover == nil {
		slog.InfoContext(ctx, "Export target cannot remove rows, skipping", "item_id", itemID)
		return nil
	}
	if err := w.remover.Remove(ctx, itemID); err != nil {
		slog.ErrorContext(ctx, "Failed to remove exported item", "error", err, "item_id", itemID)
		return nil
	}
	slog.InfoContext(ctx, "Exported item removed", "item_id", itemID)
	return nil
}

// ProcessPendingItems exports up to one batch of items that are not yet
// synced, including earlier failures.
func (w *ExportWorker) ProcessPendingItems(ctx context.Context) error {
	pending, err := w.repo.GetPendingExportItems(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list pending items: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending export items", "count", len(pending))

	for _, p := range pending {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := w.syncItem(ctx, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to process pending item", "error", err, "item_id", p.ID)
		}
	}

	return nil
}

// StartupSyncCheck runs one pending scan so a worker restart picks up
// whatever accumulated while it was down.
func (w *ExportWorker) StartupSyncCheck(ctx context.Context) error {
	slog.InfoContext(ctx, "Running startup export check")
	return w.ProcessPendingItems(ctx)
}
