package internal

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// ColumnMapping maps a semantic field (style, color, size, stock, price,
// shipDate, discontinued, brand, name) to the column header chosen by the user.
type ColumnMapping map[string]string

type StockTextEntry struct {
	Text  string `json:"text" mapstructure:"text"`
	Value int    `json:"value" mapstructure:"value"`
}

// StockTextMapping is a literal text to quantity table. Configuration may
// supply it either as a list of {text, value} pairs or as a plain object.
type StockTextMapping struct {
	Entries []StockTextEntry
	Lookup  map[string]int
}

func (m StockTextMapping) Get(text string) (int, bool) {
	key := strings.ToLower(strings.TrimSpace(text))
	for _, e := range m.Entries {
		if strings.ToLower(strings.TrimSpace(e.Text)) == key {
			return e.Value, true
		}
	}
	for k, v := range m.Lookup {
		if strings.ToLower(strings.TrimSpace(k)) == key {
			return v, true
		}
	}
	return 0, false
}

func (m StockTextMapping) IsEmpty() bool {
	return len(m.Entries) == 0 && len(m.Lookup) == 0
}

func (m *StockTextMapping) UnmarshalJSON(b []byte) error {
	var entries []StockTextEntry
	if err := json.Unmarshal(b, &entries); err == nil {
		m.Entries = entries
		m.Lookup = nil
		return nil
	}
	var lookup map[string]int
	if err := json.Unmarshal(b, &lookup); err != nil {
		return fmt.Errorf("stock text mapping must be a list of {text,value} or an object: %w", err)
	}
	m.Entries = nil
	m.Lookup = lookup
	return nil
}

func (m StockTextMapping) MarshalJSON() ([]byte, error) {
	if len(m.Entries) > 0 {
		return json.Marshal(m.Entries)
	}
	if m.Lookup == nil {
		return []byte("null"), nil
	}
	return json.Marshal(m.Lookup)
}

type CellPattern struct {
	Name         string `json:"name" mapstructure:"name"`
	Match        string `json:"match" mapstructure:"match"`
	StockGroup   int    `json:"stockGroup,omitempty" mapstructure:"stock_group"`
	DateGroup    int    `json:"dateGroup,omitempty" mapstructure:"date_group"`
	Stock        *int   `json:"stock,omitempty" mapstructure:"stock"`
	Discontinued bool   `json:"discontinued,omitempty" mapstructure:"discontinued"`
	SpecialOrder bool   `json:"specialOrder,omitempty" mapstructure:"special_order"`
}

type VendorToken struct {
	Token  string   `json:"token" mapstructure:"token"`
	Format FormatID `json:"format" mapstructure:"format"`
}

type DiscontinuedRule struct {
	Column          string   `json:"column,omitempty" mapstructure:"column"`
	Values          []string `json:"values,omitempty" mapstructure:"values"`
	AllStylesInSale *bool    `json:"allStylesInSale,omitempty" mapstructure:"all_styles_in_sale"`
}

type FutureDateRule struct {
	DayOffset       *int  `json:"dayOffset,omitempty" mapstructure:"day_offset"`
	ZeroFutureStock *bool `json:"zeroFutureStock,omitempty" mapstructure:"zero_future_stock"`
}

type StockExpansionRule struct {
	Enabled       *bool `json:"enabled,omitempty" mapstructure:"enabled"`
	MinTrigger    int   `json:"minTrigger,omitempty" mapstructure:"min_trigger"`
	ExpandDown    int   `json:"expandDown,omitempty" mapstructure:"expand_down"`
	ExpandUp      int   `json:"expandUp,omitempty" mapstructure:"expand_up"`
	ExpandedStock int   `json:"expandedStock,omitempty" mapstructure:"expanded_stock"`
}

type PriceExpansionTier struct {
	MinPrice   decimal.Decimal  `json:"minPrice" mapstructure:"min_price"`
	MaxPrice   *decimal.Decimal `json:"maxPrice,omitempty" mapstructure:"max_price"`
	ExpandDown int              `json:"expandDown" mapstructure:"expand_down"`
	ExpandUp   int              `json:"expandUp" mapstructure:"expand_up"`
}

// Contains reports whether price lies in [MinPrice, MaxPrice]; a nil MaxPrice
// leaves the tier open-ended.
func (t PriceExpansionTier) Contains(price decimal.Decimal) bool {
	if price.LessThan(t.MinPrice) {
		return false
	}
	if t.MaxPrice != nil && price.GreaterThan(*t.MaxPrice) {
		return false
	}
	return true
}

type PriceExpansionRule struct {
	Enabled            *bool                `json:"enabled,omitempty" mapstructure:"enabled"`
	UseStorefrontPrice *bool                `json:"useStorefrontPrice,omitempty" mapstructure:"use_storefront_price"`
	Tiers              []PriceExpansionTier `json:"tiers,omitempty" mapstructure:"tiers"`
}

type SizeLimitOverride struct {
	Prefix string `json:"prefix" mapstructure:"prefix"`
	Min    string `json:"min,omitempty" mapstructure:"min"`
	Max    string `json:"max,omitempty" mapstructure:"max"`
}

type SizeLimitRule struct {
	Min       string              `json:"min,omitempty" mapstructure:"min"`
	Max       string              `json:"max,omitempty" mapstructure:"max"`
	Overrides []SizeLimitOverride `json:"overrides,omitempty" mapstructure:"overrides"`
}

type VariantRule struct {
	DropZeroStock   *bool `json:"dropZeroStock,omitempty" mapstructure:"drop_zero_stock"`
	KeepFutureDated *bool `json:"keepFutureDated,omitempty" mapstructure:"keep_future_dated"`
}

type FindReplace struct {
	Find    string `json:"find" mapstructure:"find"`
	Replace string `json:"replace" mapstructure:"replace"`
	Regex   bool   `json:"regex,omitempty" mapstructure:"regex"`
}

type CleaningRule struct {
	FindReplace   []FindReplace `json:"findReplace,omitempty" mapstructure:"find_replace"`
	StripPrefixes []string      `json:"stripPrefixes,omitempty" mapstructure:"strip_prefixes"`
	StripSuffixes []string      `json:"stripSuffixes,omitempty" mapstructure:"strip_suffixes"`
	StripChars    string        `json:"stripChars,omitempty" mapstructure:"strip_chars"`
	Uppercase     *bool         `json:"uppercase,omitempty" mapstructure:"uppercase"`
}

type PrefixPattern struct {
	Match  string `json:"match" mapstructure:"match"`
	Prefix string `json:"prefix" mapstructure:"prefix"`
}

type StylePrefixRule struct {
	Enabled   *bool           `json:"enabled,omitempty" mapstructure:"enabled"`
	Patterns  []PrefixPattern `json:"patterns,omitempty" mapstructure:"patterns"`
	Separator string          `json:"separator,omitempty" mapstructure:"separator"`
}

type SpotCheck struct {
	Style  string `json:"style" mapstructure:"style"`
	Color  string `json:"color,omitempty" mapstructure:"color"`
	Size   string `json:"size,omitempty" mapstructure:"size"`
	Expect string `json:"expect" mapstructure:"expect"`
}

type ChecksumRule struct {
	Enabled                *bool       `json:"enabled,omitempty" mapstructure:"enabled"`
	ItemCountTolerancePct  *float64    `json:"itemCountTolerancePct,omitempty" mapstructure:"item_count_tolerance_pct"`
	StockTolerancePct      *float64    `json:"stockTolerancePct,omitempty" mapstructure:"stock_tolerance_pct"`
	StyleCountTolerancePct *float64    `json:"styleCountTolerancePct,omitempty" mapstructure:"style_count_tolerance_pct"`
	ColorCountTolerancePct *float64    `json:"colorCountTolerancePct,omitempty" mapstructure:"color_count_tolerance_pct"`
	MinInStockPct          *float64    `json:"minInStockPct,omitempty" mapstructure:"min_in_stock_pct"`
	MinPricedPct           *float64    `json:"minPricedPct,omitempty" mapstructure:"min_priced_pct"`
	MinItems               *int        `json:"minItems,omitempty" mapstructure:"min_items"`
	MaxItems               *int        `json:"maxItems,omitempty" mapstructure:"max_items"`
	MaxStylesAddedPct      *float64    `json:"maxStylesAddedPct,omitempty" mapstructure:"max_styles_added_pct"`
	MaxStylesRemovedPct    *float64    `json:"maxStylesRemovedPct,omitempty" mapstructure:"max_styles_removed_pct"`
	SpotChecks             []SpotCheck `json:"spotChecks,omitempty" mapstructure:"spot_checks"`
}

type SourceConfig struct {
	FormatOverride     FormatID           `json:"formatOverride,omitempty" mapstructure:"format"`
	VendorTokens       []VendorToken      `json:"vendorTokens,omitempty" mapstructure:"vendor_tokens"`
	ColumnMapping      ColumnMapping      `json:"columnMapping,omitempty" mapstructure:"columns"`
	StockText          StockTextMapping   `json:"stockText,omitempty" mapstructure:"stock_text"`
	CellPatterns       []CellPattern      `json:"cellPatterns,omitempty" mapstructure:"cell_patterns"`
	SizeFamilies       []string           `json:"sizeFamilies,omitempty" mapstructure:"size_families"`
	CompositeDelimiter string             `json:"compositeDelimiter,omitempty" mapstructure:"composite_delimiter"`
	Brands             []string           `json:"brands,omitempty" mapstructure:"brands"`
	Discontinued       DiscontinuedRule   `json:"discontinued,omitempty" mapstructure:"discontinued"`
	FutureDate         FutureDateRule     `json:"futureDate,omitempty" mapstructure:"future_date"`
	StockExpansion     StockExpansionRule `json:"stockExpansion,omitempty" mapstructure:"stock_expansion"`
	PriceExpansion     PriceExpansionRule `json:"priceExpansion,omitempty" mapstructure:"price_expansion"`
	SizeLimit          SizeLimitRule      `json:"sizeLimit,omitempty" mapstructure:"size_limit"`
	Variant            VariantRule        `json:"variant,omitempty" mapstructure:"variant"`
	Cleaning           CleaningRule       `json:"cleaning,omitempty" mapstructure:"cleaning"`
	StylePrefix        StylePrefixRule    `json:"stylePrefix,omitempty" mapstructure:"style_prefix"`
	Checksum           ChecksumRule       `json:"checksum,omitempty" mapstructure:"checksum"`
}

func DefaultSourceConfig() SourceConfig {
	return SourceConfig{
		CompositeDelimiter: "-",
		Discontinued: DiscontinuedRule{
			Values:          []string{"discontinued", "disc", "d/c", "dc", "inactive", "closeout"},
			AllStylesInSale: BoolPtr(true),
		},
		FutureDate: FutureDateRule{ZeroFutureStock: BoolPtr(true)},
		StockExpansion: StockExpansionRule{
			Enabled:    BoolPtr(false),
			MinTrigger: 1,
		},
		PriceExpansion: PriceExpansionRule{
			Enabled:            BoolPtr(false),
			UseStorefrontPrice: BoolPtr(false),
		},
		Variant: VariantRule{
			DropZeroStock:   BoolPtr(false),
			KeepFutureDated: BoolPtr(true),
		},
		Cleaning:    CleaningRule{Uppercase: BoolPtr(true)},
		StylePrefix: StylePrefixRule{Enabled: BoolPtr(true), Separator: "-"},
		Checksum: ChecksumRule{
			Enabled:                BoolPtr(true),
			ItemCountTolerancePct:  FloatPtr(30),
			StockTolerancePct:      FloatPtr(40),
			StyleCountTolerancePct: FloatPtr(30),
			ColorCountTolerancePct: FloatPtr(30),
		},
	}
}

// MergeConfig resolves the effective configuration of a data source.
// Precedence is override > stored > defaults, applied field by field: a
// field set in a higher layer replaces the lower one, maps merge key by key.
func MergeConfig(defaults, stored, override SourceConfig) SourceConfig {
	return mergeConfig(mergeConfig(defaults, stored), override)
}

func mergeConfig(base, over SourceConfig) SourceConfig {
	out := base
	out.FormatOverride = pick(base.FormatOverride, over.FormatOverride)
	out.VendorTokens = pickSlice(base.VendorTokens, over.VendorTokens)
	out.ColumnMapping = mergeMap(base.ColumnMapping, over.ColumnMapping)
	out.StockText = mergeStockText(base.StockText, over.StockText)
	out.CellPatterns = pickSlice(base.CellPatterns, over.CellPatterns)
	out.SizeFamilies = pickSlice(base.SizeFamilies, over.SizeFamilies)
	out.CompositeDelimiter = pick(base.CompositeDelimiter, over.CompositeDelimiter)
	out.Brands = pickSlice(base.Brands, over.Brands)

	out.Discontinued = DiscontinuedRule{
		Column:          pick(base.Discontinued.Column, over.Discontinued.Column),
		Values:          pickSlice(base.Discontinued.Values, over.Discontinued.Values),
		AllStylesInSale: pickPtr(base.Discontinued.AllStylesInSale, over.Discontinued.AllStylesInSale),
	}
	out.FutureDate = FutureDateRule{
		DayOffset:       pickPtr(base.FutureDate.DayOffset, over.FutureDate.DayOffset),
		ZeroFutureStock: pickPtr(base.FutureDate.ZeroFutureStock, over.FutureDate.ZeroFutureStock),
	}
	out.StockExpansion = StockExpansionRule{
		Enabled:       pickPtr(base.StockExpansion.Enabled, over.StockExpansion.Enabled),
		MinTrigger:    pick(base.StockExpansion.MinTrigger, over.StockExpansion.MinTrigger),
		ExpandDown:    pick(base.StockExpansion.ExpandDown, over.StockExpansion.ExpandDown),
		ExpandUp:      pick(base.StockExpansion.ExpandUp, over.StockExpansion.ExpandUp),
		ExpandedStock: pick(base.StockExpansion.ExpandedStock, over.StockExpansion.ExpandedStock),
	}
	out.PriceExpansion = PriceExpansionRule{
		Enabled:            pickPtr(base.PriceExpansion.Enabled, over.PriceExpansion.Enabled),
		UseStorefrontPrice: pickPtr(base.PriceExpansion.UseStorefrontPrice, over.PriceExpansion.UseStorefrontPrice),
		Tiers:              pickSlice(base.PriceExpansion.Tiers, over.PriceExpansion.Tiers),
	}
	out.SizeLimit = SizeLimitRule{
		Min:       pick(base.SizeLimit.Min, over.SizeLimit.Min),
		Max:       pick(base.SizeLimit.Max, over.SizeLimit.Max),
		Overrides: pickSlice(base.SizeLimit.Overrides, over.SizeLimit.Overrides),
	}
	out.Variant = VariantRule{
		DropZeroStock:   pickPtr(base.Variant.DropZeroStock, over.Variant.DropZeroStock),
		KeepFutureDated: pickPtr(base.Variant.KeepFutureDated, over.Variant.KeepFutureDated),
	}
	out.Cleaning = CleaningRule{
		FindReplace:   pickSlice(base.Cleaning.FindReplace, over.Cleaning.FindReplace),
		StripPrefixes: pickSlice(base.Cleaning.StripPrefixes, over.Cleaning.StripPrefixes),
		StripSuffixes: pickSlice(base.Cleaning.StripSuffixes, over.Cleaning.StripSuffixes),
		StripChars:    pick(base.Cleaning.StripChars, over.Cleaning.StripChars),
		Uppercase:     pickPtr(base.Cleaning.Uppercase, over.Cleaning.Uppercase),
	}
	out.StylePrefix = StylePrefixRule{
		Enabled:   pickPtr(base.StylePrefix.Enabled, over.StylePrefix.Enabled),
		Patterns:  pickSlice(base.StylePrefix.Patterns, over.StylePrefix.Patterns),
		Separator: pick(base.StylePrefix.Separator, over.StylePrefix.Separator),
	}
	out.Checksum = ChecksumRule{
		Enabled:                pickPtr(base.Checksum.Enabled, over.Checksum.Enabled),
		ItemCountTolerancePct:  pickPtr(base.Checksum.ItemCountTolerancePct, over.Checksum.ItemCountTolerancePct),
		StockTolerancePct:      pickPtr(base.Checksum.StockTolerancePct, over.Checksum.StockTolerancePct),
		StyleCountTolerancePct: pickPtr(base.Checksum.StyleCountTolerancePct, over.Checksum.StyleCountTolerancePct),
		ColorCountTolerancePct: pickPtr(base.Checksum.ColorCountTolerancePct, over.Checksum.ColorCountTolerancePct),
		MinInStockPct:          pickPtr(base.Checksum.MinInStockPct, over.Checksum.MinInStockPct),
		MinPricedPct:           pickPtr(base.Checksum.MinPricedPct, over.Checksum.MinPricedPct),
		MinItems:               pickPtr(base.Checksum.MinItems, over.Checksum.MinItems),
		MaxItems:               pickPtr(base.Checksum.MaxItems, over.Checksum.MaxItems),
		MaxStylesAddedPct:      pickPtr(base.Checksum.MaxStylesAddedPct, over.Checksum.MaxStylesAddedPct),
		MaxStylesRemovedPct:    pickPtr(base.Checksum.MaxStylesRemovedPct, over.Checksum.MaxStylesRemovedPct),
		SpotChecks:             pickSlice(base.Checksum.SpotChecks, over.Checksum.SpotChecks),
	}
	return out
}

func pick[T comparable](base, over T) T {
	var zero T
	if over != zero {
		return over
	}
	return base
}

func pickPtr[T any](base, over *T) *T {
	if over != nil {
		return over
	}
	return base
}

func pickSlice[T any](base, over []T) []T {
	if len(over) > 0 {
		return over
	}
	return base
}

func mergeMap(base, over ColumnMapping) ColumnMapping {
	if len(base) == 0 && len(over) == 0 {
		return nil
	}
	out := ColumnMapping{}
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		if strings.TrimSpace(v) != "" {
			out[k] = v
		}
	}
	return out
}

// mergeStockText flattens both layers into a lookup; entries of the higher
// layer win on equal text.
func mergeStockText(base, over StockTextMapping) StockTextMapping {
	if over.IsEmpty() {
		return base
	}
	if base.IsEmpty() {
		return over
	}
	lookup := map[string]int{}
	for _, layer := range []StockTextMapping{base, over} {
		for _, e := range layer.Entries {
			lookup[strings.ToLower(strings.TrimSpace(e.Text))] = e.Value
		}
		keys := make([]string, 0, len(layer.Lookup))
		for k := range layer.Lookup {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			lookup[strings.ToLower(strings.TrimSpace(k))] = layer.Lookup[k]
		}
	}
	return StockTextMapping{Lookup: lookup}
}
