// Package services contains the application layer that ties storage,
// caching, and the export pipeline together.
package services

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"kakeibo/internal/cache"
	"kakeibo/internal/core"
)

type itemRepository interface {
	CreateItem(ctx context.Context, userID int64, in core.ItemInput) (core.Item, error)
	GetItem(ctx context.Context, userID, id int64) (core.Item, error)
	UpdateItem(ctx context.Context, userID, id int64, in core.ItemInput) (core.Item, error)
	DeleteItem(ctx context.Context, userID, id int64) error
	ListItems(ctx context.Context, userID int64, f core.Filter) ([]core.Item, error)
	Summary(ctx context.Context, userID int64, f core.Filter) (core.Summary, error)
}

// exportPublisher queues items for the export worker. Version is advisory;
// the worker always exports the item's current state.
type exportPublisher interface {
	PublishItemSync(ctx context.Context, itemID, version int64) error
	PublishItemDelete(ctx context.Context, itemID int64) error
}

// LedgerService owns all per-user item operations. Every method takes the
// authenticated user's id and never returns another user's data.
type LedgerService struct {
	repo         itemRepository
	publisher    exportPublisher
	summaryCache *cache.LRUCache[core.Summary]
}

// NewLedgerService creates the service. publisher may be nil to disable the
// export pipeline; summaryCache may be nil to disable summary caching.
func NewLedgerService(repo itemRepository, publisher exportPublisher, summaryCache *cache.LRUCache[core.Summary]) *LedgerService {
	return &LedgerService{
		repo:         repo,
		publisher:    publisher,
		summaryCache: summaryCache,
	}
}

func (s *LedgerService) CreateItem(ctx context.Context, userID int64, in core.ItemInput) (core.Item, error) {
	if err := in.Validate(); err != nil {
		return core.Item{}, err
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now().UTC()
	}

	item, err := s.repo.CreateItem(ctx, userID, in)
	if err != nil {
		return core.Item{}, err
	}

	slog.InfoContext(ctx, "Item created",
		"item_id", item.ID,
		"user_id", userID,
		"kind", item.Kind,
		"amount", item.Amount)

	s.publishSync(ctx, item.ID, 1)
	s.invalidateSummary(userID)

	return item, nil
}

func (s *LedgerService) GetItem(ctx context.Context, userID, id int64) (core.Item, error) {
	return s.repo.GetItem(ctx, userID, id)
}

func (s *LedgerService) UpdateItem(ctx context.Context, userID, id int64, in core.ItemInput) (core.Item, error) {
	if err := in.Validate(); err != nil {
		return core.Item{}, err
	}
	if in.CreatedAt.IsZero() {
		// A missing date keeps the item's original one.
		existing, err := s.repo.GetItem(ctx, userID, id)
		if err != nil {
			return core.Item{}, err
		}
		in.CreatedAt = existing.CreatedAt
	}

	item, err := s.repo.UpdateItem(ctx, userID, id, in)
	if err != nil {
		return core.Item{}, err
	}

	slog.InfoContext(ctx, "Item updated", "item_id", item.ID, "user_id", userID)

	s.publishSync(ctx, item.ID, 0)
	s.invalidateSummary(userID)

	return item, nil
}

func (s *LedgerService) DeleteItem(ctx context.Context, userID, id int64) error {
	if err := s.repo.DeleteItem(ctx, userID, id); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Item deleted", "item_id", id, "user_id", userID)

	if s.publisher != nil {
		if err := s.publisher.PublishItemDelete(ctx, id); err != nil {
			slog.WarnContext(ctx, "Failed to publish delete message", "error", err, "item_id", id)
		}
	}
	s.invalidateSummary(userID)

	return nil
}

func (s *LedgerService) ListItems(ctx context.Context, userID int64, f core.Filter) ([]core.Item, error) {
	return s.repo.ListItems(ctx, userID, f)
}

// Summary totals income and expense for the user. Only the unfiltered
// summary is cached; windowed queries always hit storage.
func (s *LedgerService) Summary(ctx context.Context, userID int64, f core.Filter) (core.Summary, error) {
	cacheable := s.summaryCache != nil && isZeroFilter(f)
	key := summaryKey(userID)

	if cacheable {
		if summary, ok := s.summaryCache.Get(key); ok {
			return summary, nil
		}
	}

	summary, err := s.repo.Summary(ctx, userID, f)
	if err != nil {
		return core.Summary{}, err
	}

	if cacheable {
		s.summaryCache.Set(key, summary)
	}

	return summary, nil
}

func (s *LedgerService) publishSync(ctx context.Context, itemID, version int64) {
	if s.publisher == nil {
		return
	}
	// Export is best effort; the worker's pending scan picks up anything
	// that failed to publish.
	if err := s.publisher.PublishItemSync(ctx, itemID, version); err != nil {
		slog.WarnContext(ctx, "Failed to publish sync message", "error", err, "item_id", itemID)
	}
}

func (s *LedgerService) invalidateSummary(userID int64) {
	if s.summaryCache != nil {
		s.summaryCache.Delete(summaryKey(userID))
	}
}

func summaryKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

func isZeroFilter(f core.Filter) bool {
	return f.Kind == "" && f.StartDate.IsZero() && f.EndDate.IsZero()
}
