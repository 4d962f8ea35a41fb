package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"stockimport/internal"
	"stockimport/internal/catalog"
	"stockimport/internal/detect"
	"stockimport/internal/expand"
	"stockimport/internal/extract"
	"stockimport/internal/logging"
	"stockimport/internal/rules"
	"stockimport/internal/sheet"
	"stockimport/internal/validate"
)

var (
	ErrParseFailed   = errors.New("no items could be parsed")
	ErrEmptyInput    = errors.New("empty input")
	ErrUnknownSource = errors.New("unknown data source")
)

type Status string

const (
	StatusApplied Status = "applied"
	StatusDryRun  Status = "dry_run"
	StatusBlocked Status = "blocked"
)

// Store is the persistence the import needs.
type Store interface {
	GetSource(ctx context.Context, id string) (*internal.DataSource, error)
	LinkedSources(ctx context.Context, saleSourceID string) ([]internal.DataSource, error)
	Colors(ctx context.Context) (map[string]string, error)
	StylePrices(ctx context.Context) (map[string]decimal.Decimal, error)
	DiscontinuedStyles(ctx context.Context, saleSourceID string) ([]string, error)
	LatestSnapshot(ctx context.Context, sourceID string) (*internal.ImportSnapshot, error)
	CountInventory(ctx context.Context, sourceID string) (int, error)
	ReplaceInventory(ctx context.Context, sourceID, uploadID string, items []internal.VariantItem) error
	SaveSnapshot(ctx context.Context, uploadID string, snap internal.ImportSnapshot) error
	ReplaceDiscontinuedStyles(ctx context.Context, saleSourceID, uploadID string, styles []string) error
	DeleteInventoryStyles(ctx context.Context, sourceID string, styles []string) (int64, error)
	InsertRun(ctx context.Context, run internal.ImportRun) error
}

type File struct {
	Name    string
	Content []byte
}

type Request struct {
	SourceID string
	// Files are consolidated into one matrix before detection.
	Files  []File
	DryRun bool
	// Override is the per-upload configuration layer.
	Override internal.SourceConfig
}

type Result struct {
	UploadID      string                    `json:"uploadId"`
	SourceID      string                    `json:"sourceId"`
	Format        internal.FormatIdentity   `json:"format"`
	ExtractedWith internal.FormatID         `json:"extractedWith"`
	Status        Status                    `json:"status"`
	Counts        rules.Stats               `json:"counts"`
	StockExpanded int                       `json:"stockExpanded"`
	SkippedRows   int                       `json:"skippedRows"`
	Warnings      []string                  `json:"warnings,omitempty"`
	Report        internal.ValidationReport `json:"report"`
	// RegisteredStyles are the styles a sale import marked discontinued.
	RegisteredStyles []string `json:"registeredStyles,omitempty"`
	// RemovedFromLinked counts inventory rows deleted from linked sources.
	RemovedFromLinked int64                  `json:"removedFromLinked,omitempty"`
	Snapshot          internal.ImportSnapshot `json:"-"`
	Items             []internal.VariantItem  `json:"-"`
}

type ImportService struct {
	store Store
	log   *logrus.Entry
	now   func() time.Time
	locks keyedMutex
}

func NewImportService(store Store, logger *logrus.Logger) *ImportService {
	return &ImportService{store: store, log: logging.Component(logger, "import"), now: time.Now}
}

// Import runs one upload through detection, extraction, expansion, the rule
// pipeline and validation, then persists it unless the request is a dry run
// or the safety net blocks it. A blocked import returns its result together
// with a *validate.BlockedError.
func (s *ImportService) Import(ctx context.Context, req Request) (Result, error) {
	if len(req.Files) == 0 {
		return Result{}, fmt.Errorf("%w: no files", ErrEmptyInput)
	}
	unlock := s.locks.Lock(req.SourceID)
	defer unlock()

	started := s.now()
	res := Result{UploadID: uuid.NewString(), SourceID: req.SourceID}
	log := s.log.WithFields(logrus.Fields{"source": req.SourceID, "upload": res.UploadID})

	src, err := s.store.GetSource(ctx, req.SourceID)
	if err != nil {
		return res, err
	}
	if src == nil {
		return res, fmt.Errorf("%w: %s", ErrUnknownSource, req.SourceID)
	}
	cfg := internal.MergeConfig(internal.DefaultSourceConfig(), src.Config, req.Override)

	m, err := readFiles(req.Files)
	if err != nil {
		return res, err
	}

	res.Format = detect.Resolve(m, cfg, src.Name, req.Files[0].Name)
	ectx := extract.NewContext(cfg, src.Name, started)
	items, used := extract.Cascade(m, res.Format.ID, ectx)
	res.ExtractedWith = used
	res.SkippedRows = ectx.Report.SkippedRows
	res.Warnings = append(res.Warnings, ectx.Report.Warnings...)
	if len(items) == 0 {
		return res, fmt.Errorf("%w: %s and fallback extractors found no rows in %s", ErrParseFailed, res.Format.ID, req.Files[0].Name)
	}
	if used != res.Format.ID {
		log.WithFields(logrus.Fields{"format": res.Format.ID, "used": used}).Warn("extractor cascade fell back")
	}
	parsed := len(items)

	stock := expand.ByStock(items, cfg.StockExpansion)
	res.StockExpanded = stock.Added + stock.Converted
	res.Warnings = append(res.Warnings, stock.Warnings...)

	params, err := s.ruleParams(ctx, *src, cfg, started)
	if err != nil {
		return res, err
	}
	final, stats := rules.Run(stock.Items, params)
	stats.Parsed = parsed
	res.Counts = stats
	res.Warnings = append(res.Warnings, stats.Warnings...)
	res.Items = final

	previous, err := s.store.LatestSnapshot(ctx, src.ID)
	if err != nil {
		return res, err
	}
	res.Snapshot = validate.ComputeSnapshot(src.ID, final, started)
	res.Report = validate.Compare(final, res.Snapshot, previous, cfg.Checksum, started)
	if !res.Report.Passed {
		log.WithField("failures", len(res.Report.Failures())).Warn("validation checks failed")
	}

	existing, err := s.store.CountInventory(ctx, src.ID)
	if err != nil {
		return res, err
	}
	if previous != nil {
		existing = max(existing, previous.ItemCount)
	}
	if blockErr := validate.SafetyNet(existing, len(final)); blockErr != nil {
		res.Status = StatusBlocked
		log.WithFields(logrus.Fields{"existing": existing, "attempted": len(final)}).Error("import blocked by safety net")
		if !req.DryRun {
			if err := s.recordRun(ctx, res, req, started); err != nil {
				return res, err
			}
		}
		return res, blockErr
	}

	if req.DryRun {
		res.Status = StatusDryRun
		log.WithFields(stageFields(res)).Info("dry run finished")
		return res, nil
	}

	if err := s.persist(ctx, *src, cfg, &res); err != nil {
		return res, err
	}
	res.Status = StatusApplied
	if err := s.recordRun(ctx, res, req, started); err != nil {
		return res, err
	}
	log.WithFields(stageFields(res)).Info("import applied")
	return res, nil
}

// Detect reads files and reports the format an import would use. Without a
// source id, sourceName stands in for vendor name matching.
func (s *ImportService) Detect(ctx context.Context, sourceID, sourceName string, files []File) (internal.FormatIdentity, error) {
	if len(files) == 0 {
		return internal.FormatIdentity{}, fmt.Errorf("%w: no files", ErrEmptyInput)
	}
	m, err := readFiles(files)
	if err != nil {
		return internal.FormatIdentity{}, err
	}
	cfg := internal.DefaultSourceConfig()
	name := sourceName
	if sourceID != "" {
		src, err := s.store.GetSource(ctx, sourceID)
		if err != nil {
			return internal.FormatIdentity{}, err
		}
		if src == nil {
			return internal.FormatIdentity{}, fmt.Errorf("%w: %s", ErrUnknownSource, sourceID)
		}
		cfg = internal.MergeConfig(cfg, src.Config, internal.SourceConfig{})
		name = src.Name
	}
	return detect.Resolve(m, cfg, name, files[0].Name), nil
}

func readFiles(files []File) (internal.RawMatrix, error) {
	matrices := make([]internal.RawMatrix, 0, len(files))
	for _, f := range files {
		m, err := sheet.Read(f.Name, f.Content)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", ErrParseFailed, f.Name, err)
		}
		matrices = append(matrices, m)
	}
	m := sheet.Consolidate(matrices)
	if len(m) == 0 {
		return nil, fmt.Errorf("%w: no rows in %s", ErrEmptyInput, files[0].Name)
	}
	return m, nil
}

func (s *ImportService) ruleParams(ctx context.Context, src internal.DataSource, cfg internal.SourceConfig, now time.Time) (rules.Params, error) {
	colors, err := s.store.Colors(ctx)
	if err != nil {
		return rules.Params{}, err
	}
	params := rules.Params{
		Source: src,
		Config: cfg,
		Colors: rules.NewColorTable(colors),
		Now:    now,
	}
	if !src.IsSale() && src.LinkedSaleSourceID != "" {
		params.DiscontinuedStyles, err = s.store.DiscontinuedStyles(ctx, src.LinkedSaleSourceID)
		if err != nil {
			return rules.Params{}, err
		}
	}
	if internal.BoolValue(cfg.PriceExpansion.Enabled, false) && internal.BoolValue(cfg.PriceExpansion.UseStorefrontPrice, false) {
		prices, err := s.store.StylePrices(ctx)
		if err != nil {
			return rules.Params{}, err
		}
		params.Prices = catalog.BuildPriceIndex(prices)
	}
	return params, nil
}

func (s *ImportService) persist(ctx context.Context, src internal.DataSource, cfg internal.SourceConfig, res *Result) error {
	if err := s.store.ReplaceInventory(ctx, src.ID, res.UploadID, res.Items); err != nil {
		return fmt.Errorf("save inventory: %w", err)
	}
	if err := s.store.SaveSnapshot(ctx, res.UploadID, res.Snapshot); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	if !src.IsSale() {
		return nil
	}

	res.RegisteredStyles = rules.DiscontinuedStyles(res.Items, cfg.Discontinued)
	if err := s.store.ReplaceDiscontinuedStyles(ctx, src.ID, res.UploadID, res.RegisteredStyles); err != nil {
		return fmt.Errorf("register discontinued styles: %w", err)
	}
	linked, err := s.store.LinkedSources(ctx, src.ID)
	if err != nil {
		return err
	}
	for _, l := range linked {
		unlock := s.locks.Lock(l.ID)
		n, err := s.store.DeleteInventoryStyles(ctx, l.ID, res.RegisteredStyles)
		unlock()
		if err != nil {
			return fmt.Errorf("remove discontinued styles from %s: %w", l.ID, err)
		}
		res.RemovedFromLinked += n
	}
	return nil
}

func (s *ImportService) recordRun(ctx context.Context, res Result, req Request, started time.Time) error {
	run := internal.ImportRun{
		ID:         res.UploadID,
		SourceID:   res.SourceID,
		FileName:   req.Files[0].Name,
		Format:     res.Format,
		Status:     string(res.Status),
		Counts:     countsMap(res),
		Report:     res.Report,
		Warnings:   res.Warnings,
		StartedAt:  started,
		FinishedAt: s.now(),
	}
	if err := s.store.InsertRun(ctx, run); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

func countsMap(res Result) map[string]int {
	c := res.Counts
	return map[string]int{
		"parsed":                     c.Parsed,
		"stockExpanded":              res.StockExpanded,
		"afterCleaning":              c.AfterCleaning,
		"afterVariantRules":          c.AfterVariantRules,
		"afterExpansion":             c.AfterExpansion,
		"afterDiscontinuedFilter":    c.AfterDiscontinuedFilter,
		"final":                      c.Final,
		"discontinuedStylesFiltered": c.DiscontinuedStylesFiltered,
		"skippedRows":                res.SkippedRows,
	}
}

func stageFields(res Result) logrus.Fields {
	f := logrus.Fields{"format": res.Format.ID, "provenance": res.Format.Provenance}
	for k, v := range countsMap(res) {
		f[k] = v
	}
	return f
}
