package extract

import (
	"fmt"
	"time"

	"stockimport/internal"
	"stockimport/internal/util"
)

// Extractor turns a matrix into variant items. Extractors never fail: rows
// they cannot read are skipped and recorded on the context report, and a
// missing style column yields no items.
type Extractor interface {
	Format() internal.FormatID
	Extract(m internal.RawMatrix, ctx *Context) []internal.VariantItem
}

type Report struct {
	SkippedRows int
	Warnings    []string
}

func (r *Report) Skip(row int, reason string) {
	r.SkippedRows++
	if len(r.Warnings) < maxWarnings {
		r.Warnings = append(r.Warnings, fmt.Sprintf("row %d skipped: %s", row+1, reason))
	}
}

func (r *Report) Warn(format string, args ...any) {
	if len(r.Warnings) < maxWarnings {
		r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
	}
}

const maxWarnings = 200

type Context struct {
	Config     internal.SourceConfig
	Patterns   []util.CompiledPattern
	Sizes      *util.SizeMatcher
	SourceName string
	Now        time.Time
	Report     *Report
}

// NewContext compiles the configured cell patterns and size families.
// Invalid expressions are reported and skipped.
func NewContext(cfg internal.SourceConfig, sourceName string, now time.Time) *Context {
	ctx := &Context{
		Config:     cfg,
		SourceName: sourceName,
		Now:        now,
		Report:     &Report{},
	}
	patterns, errs := util.CompilePatterns(cfg.CellPatterns)
	for _, err := range errs {
		ctx.Report.Warn("%v", err)
	}
	ctx.Patterns = patterns
	sizes, errs := util.NewSizeMatcher(cfg.SizeFamilies)
	for _, err := range errs {
		ctx.Report.Warn("%v", err)
	}
	ctx.Sizes = sizes
	return ctx
}

func (c *Context) patternsOrDefault() []util.CompiledPattern {
	if len(c.Patterns) > 0 {
		return c.Patterns
	}
	compiled, _ := util.CompilePatterns(util.DefaultCellPatterns)
	return compiled
}

// For returns the extractor registered for a format. Unknown ids get the row
// extractor.
func For(id internal.FormatID) Extractor {
	switch id {
	case internal.FormatPivot:
		return pivotExtractor{id: id}
	case internal.FormatGroupedPivot:
		return pivotExtractor{id: id, retainZero: true, styleRows: true}
	case internal.FormatAlternatingPivot:
		return pivotExtractor{id: id, reheader: true}
	case internal.FormatPatternPivot:
		return pivotExtractor{id: id, codes: true}
	case internal.FormatDateHeaderPivot:
		return dateHeaderExtractor{}
	case internal.FormatOTSPivot:
		return otsExtractor{}
	case internal.FormatInvoice:
		return rowExtractor{id: id, scanRows: invoiceScanRows, preamble: true}
	case internal.FormatMultiBrandRow:
		return rowExtractor{id: id, scanRows: headerScanRows, brands: true}
	case internal.FormatQuota:
		return quotaExtractor{}
	case internal.FormatCompositeCode:
		return compositeExtractor{}
	case internal.FormatSectionedRow:
		return sectionedExtractor{}
	}
	return rowExtractor{id: internal.FormatRow, scanRows: headerScanRows}
}

// keep is the emission policy shared by all extractors.
func keep(item internal.VariantItem, now time.Time) bool {
	return item.Stock > 0 || item.HasFutureDate(now) || item.Discontinued
}

// Cascade runs the chosen extractor and falls back to the row and then the
// generic pivot extractor while nothing is produced. It returns the items
// and the format that produced them. ctx.Report ends up holding only the
// producing extractor's skips and warnings, or the chosen one's when none
// produced anything.
func Cascade(m internal.RawMatrix, id internal.FormatID, ctx *Context) ([]internal.VariantItem, internal.FormatID) {
	base := *ctx.Report
	base.Warnings = append([]string(nil), base.Warnings...)
	var first *Report

	tried := map[internal.FormatID]bool{}
	for _, candidate := range []internal.FormatID{id, internal.FormatRow, internal.FormatPivot} {
		if tried[candidate] {
			continue
		}
		tried[candidate] = true
		attempt := base
		attempt.Warnings = append([]string(nil), base.Warnings...)
		ctx.Report = &attempt
		items := For(candidate).Extract(m, ctx)
		if len(items) > 0 {
			if candidate != id {
				ctx.Report.Warn("%s extractor produced no items, used %s", id, candidate)
			}
			return items, candidate
		}
		if first == nil {
			first = ctx.Report
		}
	}
	ctx.Report = first
	return nil, id
}
