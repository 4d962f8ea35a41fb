package catalog

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"stockimport/internal/config"
	"stockimport/internal/logging"
)

const lastPriceSyncKey = "catalog.last_price_sync"

// PriceSource fetches storefront prices updated after since.
type PriceSource interface {
	StylePrices(ctx context.Context, since time.Time) (map[string]decimal.Decimal, error)
}

// PriceStore persists the synced prices and the sync watermark.
type PriceStore interface {
	UpsertStylePrices(ctx context.Context, prices map[string]decimal.Decimal) error
	SetMetadata(ctx context.Context, key, value string) error
	GetMetadata(ctx context.Context, key string) (*string, error)
}

type SyncService struct {
	store  PriceStore
	source PriceSource
	log    *logrus.Entry
	now    func() time.Time
}

func NewSyncService(store PriceStore, cfg config.Config, logger *logrus.Logger) *SyncService {
	return NewSyncServiceWithSource(store, NewClient(cfg), logger)
}

func NewSyncServiceWithSource(store PriceStore, source PriceSource, logger *logrus.Logger) *SyncService {
	return &SyncService{store: store, source: source, log: logging.Component(logger, "catalog"), now: time.Now}
}

// SyncPrices pulls storefront prices into the store. Incremental syncs ask
// only for products changed since the previous run.
func (s *SyncService) SyncPrices(ctx context.Context, full bool) (int, error) {
	started := s.now().UTC()
	var since time.Time
	if !full {
		last, err := s.store.GetMetadata(ctx, lastPriceSyncKey)
		if err != nil {
			return 0, err
		}
		if last != nil {
			if parsed, err := time.Parse(time.RFC3339, *last); err == nil {
				since = parsed
			}
		}
	}

	prices, err := s.source.StylePrices(ctx, since)
	if err != nil {
		return 0, err
	}
	if len(prices) > 0 {
		if err := s.store.UpsertStylePrices(ctx, prices); err != nil {
			return 0, err
		}
	}
	if err := s.store.SetMetadata(ctx, lastPriceSyncKey, started.Format(time.RFC3339)); err != nil {
		return 0, err
	}

	s.log.WithFields(logrus.Fields{"styles": len(prices), "full": full, "since": since}).Info("storefront prices synced")
	return len(prices), nil
}
