package catalog

import (
	"strings"

	"github.com/shopspring/decimal"
)

// PriceIndex answers storefront prices by style, case-insensitively.
type PriceIndex struct {
	byStyle map[string]decimal.Decimal
}

func BuildPriceIndex(prices map[string]decimal.Decimal) *PriceIndex {
	idx := &PriceIndex{byStyle: make(map[string]decimal.Decimal, len(prices))}
	for style, price := range prices {
		key := normalizeStyle(style)
		if key == "" || !price.IsPositive() {
			continue
		}
		idx.byStyle[key] = price
	}
	return idx
}

func (i *PriceIndex) StylePrice(style string) (decimal.Decimal, bool) {
	if i == nil {
		return decimal.Decimal{}, false
	}
	p, ok := i.byStyle[normalizeStyle(style)]
	return p, ok
}

func (i *PriceIndex) Len() int {
	if i == nil {
		return 0
	}
	return len(i.byStyle)
}

func normalizeStyle(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}
