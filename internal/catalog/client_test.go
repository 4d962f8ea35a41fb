package catalog

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"stockimport/internal/config"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, payload any) *http.Response {
	blob, _ := json.Marshal(payload)
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(string(blob))),
		Header:     make(http.Header),
	}
}

func testConfig() config.Config {
	return config.Config{
		CatalogAPIToken:     "test",
		CatalogAPIBaseURL:   "https://example.test/api/v1",
		CatalogRateLimitRPS: 1000,
		CatalogTimeoutMs:    1000,
		CatalogPageSize:     2,
	}
}

func TestStylePricesScrollWithRetry(t *testing.T) {
	attempt := 0

	client := NewClient(testConfig())
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if r.URL.Path != "/api/v1/products/scroll" {
				t.Fatalf("unexpected path %s", r.URL.Path)
			}
			if r.Header.Get("Authorization") != "Bearer test" {
				t.Fatalf("missing auth header")
			}
			attempt++
			switch attempt {
			case 1:
				return jsonResponse(http.StatusInternalServerError, map[string]any{"error": "boom"}), nil
			case 2:
				return jsonResponse(http.StatusOK, map[string]any{"success": true, "data": map[string]any{
					"products": []map[string]any{
						{"style": "a-100", "price": "129.00"},
						{"handle": "B-200", "variants": []map[string]any{{"price": 80}, {"price": 60.5}, {"price": 0}}},
					},
					"scrollId": "abc",
				}}), nil
			case 3:
				if r.URL.Query().Get("scrollId") != "abc" {
					t.Fatalf("scrollId not forwarded: %s", r.URL.RawQuery)
				}
				return jsonResponse(http.StatusOK, map[string]any{"success": true, "data": map[string]any{
					"products": []map[string]any{{"style": "C-300"}, {"style": "A-100", "price": 999}},
					"scrollId": nil,
				}}), nil
			}
			t.Fatalf("unexpected attempt %d", attempt)
			return nil, nil
		}),
	}

	prices, err := client.StylePrices(context.Background(), time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(prices) != 2 {
		t.Fatalf("len=%d", len(prices))
	}
	if !prices["A-100"].Equal(decimal.NewFromInt(129)) {
		t.Fatalf("A-100=%s", prices["A-100"])
	}
	if !prices["B-200"].Equal(decimal.RequireFromString("60.5")) {
		t.Fatalf("B-200=%s", prices["B-200"])
	}
}

func TestStylePricesUnsuccessful(t *testing.T) {
	client := NewClient(testConfig())
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, map[string]any{"success": false, "message": "denied"}), nil
		}),
	}
	if _, err := client.StylePrices(context.Background(), time.Time{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestStylePricesRequiresToken(t *testing.T) {
	cfg := testConfig()
	cfg.CatalogAPIToken = ""
	if _, err := NewClient(cfg).StylePrices(context.Background(), time.Time{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestPriceIndex(t *testing.T) {
	idx := BuildPriceIndex(map[string]decimal.Decimal{"acme  100": decimal.NewFromInt(50), "free": decimal.Zero})
	if p, ok := idx.StylePrice("ACME 100"); !ok || !p.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("lookup failed: %v %s", ok, p)
	}
	if _, ok := idx.StylePrice("FREE"); ok {
		t.Fatal("zero price indexed")
	}
	var nilIdx *PriceIndex
	if _, ok := nilIdx.StylePrice("x"); ok {
		t.Fatal("nil index answered")
	}
}
