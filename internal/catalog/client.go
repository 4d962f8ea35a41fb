package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"stockimport/internal/config"
)

const maxAttempts = 5

type Client struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *RateLimiter
}

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Errors  json.RawMessage `json:"errors"`
	Data    json.RawMessage `json:"data"`
}

type scrollPayload struct {
	Products []storefrontProduct `json:"products"`
	ScrollID *string             `json:"scrollId"`
	Total    *int                `json:"total"`
}

type storefrontProduct struct {
	Style    string           `json:"style"`
	Handle   string           `json:"handle"`
	Price    *decimal.Decimal `json:"price"`
	Variants []struct {
		Price *decimal.Decimal `json:"price"`
	} `json:"variants"`
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.CatalogTimeoutMs) * time.Millisecond},
		limiter:    NewRateLimiter(cfg.CatalogRateLimitRPS),
	}
}

// StylePrices pages through the storefront products and returns one price
// per style. A zero since fetches everything.
func (c *Client) StylePrices(ctx context.Context, since time.Time) (map[string]decimal.Decimal, error) {
	params := map[string]string{"limit": strconv.Itoa(c.cfg.CatalogPageSize)}
	if !since.IsZero() {
		params["updatedSince"] = since.UTC().Format(time.RFC3339)
	}

	out := map[string]decimal.Decimal{}
	seen := map[string]struct{}{}
	var scrollID string
	for {
		query := map[string]string{}
		for k, v := range params {
			query[k] = v
		}
		if scrollID != "" {
			query["scrollId"] = scrollID
		}

		body, err := c.fetchJSON(ctx, "products/scroll", query)
		if err != nil {
			return nil, err
		}

		var payload scrollPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, fmt.Errorf("decode products page: %w", err)
		}

		for _, p := range payload.Products {
			style := strings.ToUpper(strings.TrimSpace(firstNonEmpty(p.Style, p.Handle)))
			if style == "" {
				continue
			}
			if price, ok := p.price(); ok {
				if _, dup := out[style]; !dup {
					out[style] = price
				}
			}
		}

		if payload.ScrollID == nil || *payload.ScrollID == "" || len(payload.Products) == 0 {
			break
		}
		if _, ok := seen[*payload.ScrollID]; ok {
			break
		}
		seen[*payload.ScrollID] = struct{}{}
		scrollID = *payload.ScrollID
	}

	return out, nil
}

// price is the product price, or the lowest positive variant price.
func (p storefrontProduct) price() (decimal.Decimal, bool) {
	if p.Price != nil && p.Price.IsPositive() {
		return *p.Price, true
	}
	var best *decimal.Decimal
	for _, v := range p.Variants {
		if v.Price == nil || !v.Price.IsPositive() {
			continue
		}
		if best == nil || v.Price.LessThan(*best) {
			best = v.Price
		}
	}
	if best == nil {
		return decimal.Decimal{}, false
	}
	return *best, true
}

func (c *Client) fetchJSON(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	if strings.TrimSpace(c.cfg.CatalogAPIToken) == "" {
		return nil, errors.New("missing CATALOG_API_TOKEN")
	}
	if strings.TrimSpace(c.cfg.CatalogAPIBaseURL) == "" {
		return nil, errors.New("missing CATALOG_API_BASE_URL")
	}

	baseURL := strings.TrimRight(c.cfg.CatalogAPIBaseURL, "/") + "/"
	u, err := url.Parse(baseURL + endpoint)
	if err != nil {
		return nil, err
	}

	q := u.Query()
	for k, v := range params {
		if strings.TrimSpace(v) != "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.CatalogAPIToken)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if isRetryableStatus(resp.StatusCode) && attempt < maxAttempts {
				lastErr = fmt.Errorf("storefront status %d", resp.StatusCode)
				backoff := time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(backoff):
				}
				continue
			}
			return nil, fmt.Errorf("storefront api error: status=%d body=%s", resp.StatusCode, string(body))
		}

		var apiResp apiResponse
		if err := json.Unmarshal(body, &apiResp); err != nil {
			return nil, err
		}
		if !apiResp.Success {
			return nil, fmt.Errorf("storefront api unsuccessful: %s %s", apiResp.Message, string(apiResp.Errors))
		}
		return apiResp.Data, nil
	}

	if lastErr == nil {
		lastErr = errors.New("storefront request failed")
	}
	return nil, lastErr
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
