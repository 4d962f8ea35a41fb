package internal

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawMatrix is one spreadsheet sheet: rows of string, float64, int or nil cells.
type RawMatrix [][]any

type FormatID string

const (
	FormatRow              FormatID = "row"
	FormatPivot            FormatID = "pivot"
	FormatGroupedPivot     FormatID = "grouped_pivot"
	FormatDateHeaderPivot  FormatID = "date_header_pivot"
	FormatAlternatingPivot FormatID = "alternating_pivot"
	FormatInvoice          FormatID = "invoice"
	FormatMultiBrandRow    FormatID = "multi_brand_row"
	FormatQuota            FormatID = "quota"
	FormatOTSPivot         FormatID = "ots_pivot"
	FormatCompositeCode    FormatID = "composite_code"
	FormatSectionedRow     FormatID = "sectioned_row"
	FormatPatternPivot     FormatID = "pattern_pivot"
)

var AllFormats = []FormatID{
	FormatRow, FormatPivot, FormatGroupedPivot, FormatDateHeaderPivot,
	FormatAlternatingPivot, FormatInvoice, FormatMultiBrandRow, FormatQuota,
	FormatOTSPivot, FormatCompositeCode, FormatSectionedRow, FormatPatternPivot,
}

func (f FormatID) Valid() bool {
	for _, id := range AllFormats {
		if id == f {
			return true
		}
	}
	return false
}

type Provenance string

const (
	ProvenanceConfigured Provenance = "configured"
	ProvenanceName       Provenance = "detected-by-name"
	ProvenanceContent    Provenance = "detected-by-content"
	ProvenanceHeader     Provenance = "detected-by-header"
	ProvenanceFallback   Provenance = "fallback"
)

type FormatIdentity struct {
	ID         FormatID   `json:"id"`
	Provenance Provenance `json:"provenance"`
	Reason     string     `json:"reason,omitempty"`
}

type VariantItem struct {
	Style            string            `json:"style"`
	Color            string            `json:"color"`
	Size             string            `json:"size"`
	Stock            int               `json:"stock"`
	Price            *decimal.Decimal  `json:"price,omitempty"`
	ShipDate         *time.Time        `json:"shipDate,omitempty"`
	Discontinued     bool              `json:"discontinued"`
	SpecialOrder     bool              `json:"specialOrder,omitempty"`
	IsExpandedSize   bool              `json:"isExpandedSize"`
	ExpandedFromSize string            `json:"expandedFromSize,omitempty"`
	Brand            string            `json:"brand,omitempty"`
	SKU              string            `json:"sku"`
	RawSourceRow     map[string]string `json:"rawSourceRow,omitempty"`
}

// Key identifies a style/color/size combination, case-insensitively.
func (v VariantItem) Key() string {
	return VariantKey(v.Style, v.Color, v.Size)
}

// HasFutureDate reports whether the ship date falls after the day of now.
func (v VariantItem) HasFutureDate(now time.Time) bool {
	if v.ShipDate == nil {
		return false
	}
	return v.ShipDate.After(EndOfDay(now))
}

type StyleSummary struct {
	VariantCount    int      `json:"variantCount"`
	Colors          []string `json:"colors"`
	Sizes           []string `json:"sizes"`
	TotalStock      int      `json:"totalStock"`
	HasDiscontinued bool     `json:"hasDiscontinued"`
	HasFutureDate   bool     `json:"hasFutureDate"`
	ExpandedCount   int      `json:"expandedCount"`
}

type ImportSnapshot struct {
	SourceID     string                  `json:"sourceId"`
	ItemCount    int                     `json:"itemCount"`
	TotalStock   int                     `json:"totalStock"`
	StyleCount   int                     `json:"styleCount"`
	ColorCount   int                     `json:"colorCount"`
	InStockCount int                     `json:"inStockCount"`
	PricedCount  int                     `json:"pricedCount"`
	Styles       []string                `json:"styles"`
	Colors       []string                `json:"colors"`
	Summaries    map[string]StyleSummary `json:"summaries"`
	CreatedAt    time.Time               `json:"createdAt"`
}

type SourceType string

const (
	SourceRegular SourceType = "regular"
	SourceSale    SourceType = "sale"
)

type DataSource struct {
	ID                 string       `json:"id" mapstructure:"id"`
	Name               string       `json:"name" mapstructure:"name"`
	Type               SourceType   `json:"type" mapstructure:"type"`
	LinkedSaleSourceID string       `json:"linkedSaleSourceId,omitempty" mapstructure:"linked_sale_source"`
	EmailSenders       []string     `json:"emailSenders,omitempty" mapstructure:"email_senders"`
	Config             SourceConfig `json:"config" mapstructure:"config"`
}

func (d DataSource) IsSale() bool {
	return d.Type == SourceSale
}

type CheckStatus string

const (
	CheckPass CheckStatus = "pass"
	CheckFail CheckStatus = "fail"
	CheckSkip CheckStatus = "skip"
)

type CheckResult struct {
	Name     string      `json:"name"`
	Category string      `json:"category"`
	Status   CheckStatus `json:"status"`
	Message  string      `json:"message"`
}

type ValidationReport struct {
	Passed bool          `json:"passed"`
	Checks []CheckResult `json:"checks"`
}

func (r ValidationReport) Failures() []CheckResult {
	var out []CheckResult
	for _, c := range r.Checks {
		if c.Status == CheckFail {
			out = append(out, c)
		}
	}
	return out
}

type EmailRow struct {
	ID         int
	Provider   string
	MessageID  string
	Subject    string
	Sender     string
	ReceivedAt string
	Hash       string
	Status     string
	RawRef     string
}

type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}

type ImportRun struct {
	ID         string           `json:"id"`
	SourceID   string           `json:"sourceId"`
	FileName   string           `json:"fileName"`
	Format     FormatIdentity   `json:"format"`
	Status     string           `json:"status"`
	Counts     map[string]int   `json:"counts"`
	Report     ValidationReport `json:"report"`
	Warnings   []string         `json:"warnings,omitempty"`
	StartedAt  time.Time        `json:"startedAt"`
	FinishedAt time.Time        `json:"finishedAt"`
}
