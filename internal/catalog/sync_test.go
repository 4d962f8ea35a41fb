package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type fakeSource struct {
	since  []time.Time
	prices map[string]decimal.Decimal
}

func (f *fakeSource) StylePrices(_ context.Context, since time.Time) (map[string]decimal.Decimal, error) {
	f.since = append(f.since, since)
	return f.prices, nil
}

type memoryStore struct {
	prices map[string]decimal.Decimal
	meta   map[string]string
}

func (m *memoryStore) UpsertStylePrices(_ context.Context, prices map[string]decimal.Decimal) error {
	for k, v := range prices {
		m.prices[k] = v
	}
	return nil
}

func (m *memoryStore) SetMetadata(_ context.Context, key, value string) error {
	m.meta[key] = value
	return nil
}

func (m *memoryStore) GetMetadata(_ context.Context, key string) (*string, error) {
	v, ok := m.meta[key]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func TestSyncPricesIncremental(t *testing.T) {
	store := &memoryStore{prices: map[string]decimal.Decimal{}, meta: map[string]string{}}
	source := &fakeSource{prices: map[string]decimal.Decimal{"A-100": decimal.NewFromInt(10)}}
	svc := NewSyncServiceWithSource(store, source, nil)
	first := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return first }

	n, err := svc.SyncPrices(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 || !store.prices["A-100"].Equal(decimal.NewFromInt(10)) {
		t.Fatalf("n=%d prices=%v", n, store.prices)
	}

	svc.now = func() time.Time { return first.Add(time.Hour) }
	if _, err := svc.SyncPrices(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SyncPrices(context.Background(), true); err != nil {
		t.Fatal(err)
	}

	if !source.since[0].IsZero() || !source.since[1].Equal(first) || !source.since[2].IsZero() {
		t.Fatalf("since=%v", source.since)
	}
}
