package rules

import (
	"time"

	"github.com/shopspring/decimal"

	"stockimport/internal"
)

// PriceLookup answers storefront prices by style.
type PriceLookup interface {
	StylePrice(style string) (decimal.Decimal, bool)
}

type Params struct {
	Source internal.DataSource
	// Config is the merged configuration of the source.
	Config internal.SourceConfig
	Colors ColorTable
	// DiscontinuedStyles are the styles registered by the linked sale
	// source's latest import.
	DiscontinuedStyles []string
	Prices             PriceLookup
	Now                time.Time
}

type Stats struct {
	Parsed                     int `json:"parsed"`
	AfterCleaning              int `json:"afterCleaning"`
	AfterVariantRules          int `json:"afterVariantRules"`
	AfterExpansion             int `json:"afterExpansion"`
	AfterDiscontinuedFilter    int `json:"afterDiscontinuedFilter"`
	Final                      int `json:"final"`
	DiscontinuedStylesFiltered int `json:"discontinuedStylesFiltered"`
	CleaningRemoved            int `json:"cleaningRemoved"`
	ColorsCanonicalized        int `json:"colorsCanonicalized"`
	Prefixed                   int `json:"prefixed"`
	VariantRemoved             int `json:"variantRemoved"`
	Expanded                   int `json:"expanded"`
	DuplicatesRemoved          int `json:"duplicatesRemoved"`
	FutureZeroed               int `json:"futureZeroed"`

	FilteredStyles []string `json:"filteredStyles,omitempty"`
	Warnings       []string `json:"warnings,omitempty"`
}

// Stage is one step of the pipeline. A stage sees only the previous stage's
// output and its own counters.
type Stage struct {
	Name  string
	Apply func(items []internal.VariantItem, st *Stats) []internal.VariantItem
	// Count records the stage's output size on the stats.
	Count func(st *Stats, n int)
}

// Stages returns the pipeline in its fixed order.
func Stages(p Params) []Stage {
	return []Stage{
		{Name: "cleaning", Apply: Clean(p.Config.Cleaning), Count: func(st *Stats, n int) { st.AfterCleaning = n }},
		{Name: "colors", Apply: CanonicalizeColors(p.Colors)},
		{Name: "prefix", Apply: PrefixStyles(p.Config.StylePrefix, p.Source)},
		{Name: "variant", Apply: VariantRules(p.Config.SizeLimit, p.Config.Variant, p.Now), Count: func(st *Stats, n int) { st.AfterVariantRules = n }},
		{Name: "price-expansion", Apply: PriceExpansion(p.Config.PriceExpansion, p.Prices), Count: func(st *Stats, n int) { st.AfterExpansion = n }},
		{Name: "discontinued", Apply: FilterDiscontinued(p.Source, p.DiscontinuedStyles), Count: func(st *Stats, n int) { st.AfterDiscontinuedFilter = n }},
		{Name: "dedupe", Apply: DedupeAndZeroFuture(p.Config.FutureDate, p.Now), Count: func(st *Stats, n int) { st.Final = n }},
	}
}

// Run applies every stage left to right.
func Run(items []internal.VariantItem, p Params) ([]internal.VariantItem, Stats) {
	st := Stats{Parsed: len(items)}
	out := append([]internal.VariantItem(nil), items...)
	for _, s := range Stages(p) {
		out = s.Apply(out, &st)
		if s.Count != nil {
			s.Count(&st, len(out))
		}
	}
	return out, st
}
