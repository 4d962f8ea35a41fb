package listener

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"stockimport/internal/config"
	"stockimport/internal/connectors"
	gmailconnector "stockimport/internal/connectors/gmail"
	imapconnector "stockimport/internal/connectors/imap"
	"stockimport/internal/logging"
	"stockimport/internal/pipeline"
	"stockimport/internal/storage"
)

// Service polls the configured mailbox, stores new supplier mails and
// imports their spreadsheet attachments.
type Service struct {
	db        *storage.DB
	cfg       config.Config
	log       *logrus.Entry
	processor *pipeline.MailProcessor

	// connect is swapped in tests.
	connect func(provider string) (connectors.MailConnector, error)
}

func NewService(db *storage.DB, cfg config.Config, logger *logrus.Logger) *Service {
	s := &Service{
		db:        db,
		cfg:       cfg,
		log:       logging.Component(logger, "listener"),
		processor: pipeline.NewMailProcessor(db, pipeline.NewImportService(db, logger), logger),
	}
	s.connect = func(provider string) (connectors.MailConnector, error) {
		return MakeConnector(cfg, provider)
	}
	return s
}

func (s *Service) Run(ctx context.Context) error {
	interval := time.Duration(max(s.cfg.MailListenerIntervalSec, 1)) * time.Second
	for {
		if _, err := s.RunCycle(ctx); err != nil {
			s.log.WithError(err).Error("listener cycle failed")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

type CycleResult struct {
	Fetch    connectors.FetchResult
	Process  pipeline.ProcessSummary
	Exported []string
}

// RunCycle fetches, processes and optionally exports once.
func (s *Service) RunCycle(ctx context.Context) (CycleResult, error) {
	var out CycleResult
	provider := strings.ToLower(strings.TrimSpace(s.cfg.MailListenerProvider))
	conn, err := s.connect(provider)
	if err != nil {
		return out, err
	}

	sources, err := s.db.ListSources(ctx)
	if err != nil {
		return out, err
	}
	fetch := connectors.NewFetchService(s.db, s.cfg.RawMailDir, conn)
	out.Fetch, err = fetch.FetchAndStore(ctx, connectors.FetchQuery{
		Label:   s.cfg.MailListenerLabel,
		Max:     s.cfg.MailListenerFetchMax,
		Senders: connectors.SupplierSenders(sources),
	})
	if err != nil {
		return out, fmt.Errorf("fetch: %w", err)
	}

	out.Process, err = s.processor.ProcessPending(ctx, s.cfg.MailListenerProcessBatch, provider)
	if err != nil {
		return out, fmt.Errorf("process: %w", err)
	}

	if s.cfg.MailListenerAutoExport {
		for _, res := range out.Process.Imports {
			path, err := s.export(res)
			if err != nil {
				return out, err
			}
			out.Exported = append(out.Exported, path)
		}
	}

	s.log.WithFields(logrus.Fields{
		"provider":  provider,
		"fetched":   out.Fetch.Fetched,
		"stored":    out.Fetch.Stored,
		"processed": out.Process.Processed,
		"imported":  out.Process.Imported,
		"skipped":   out.Process.Skipped,
		"failed":    out.Process.Failed,
		"blocked":   out.Process.Blocked,
		"exported":  len(out.Exported),
	}).Info("listener cycle done")
	return out, nil
}

func (s *Service) export(res pipeline.Result) (string, error) {
	name := fmt.Sprintf("%s_%s.xlsx", sanitizeFileName(res.SourceID), res.UploadID)
	path := filepath.Join(s.cfg.OutputDir, "listener", name)
	report := res.Report
	if err := pipeline.ExportXLSX(res.Items, &report, path); err != nil {
		return "", fmt.Errorf("export %s: %w", res.SourceID, err)
	}
	return path, nil
}

// MakeConnector builds the mail connector for a provider name.
func MakeConnector(cfg config.Config, provider string) (connectors.MailConnector, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "gmail":
		return gmailconnector.NewConnector(cfg)
	case "imap":
		return imapconnector.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported mail provider: %s", provider)
	}
}

func sanitizeFileName(input string) string {
	repl := strings.NewReplacer("<", "_", ">", "_", ":", "_", "/", "_", "\\", "_", "|", "_", "?", "_", "*", "_", " ", "_")
	out := repl.Replace(input)
	if len(out) > 120 {
		out = out[:120]
	}
	return out
}
