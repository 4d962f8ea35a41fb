package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"stockimport/internal"
	"stockimport/internal/connectors"
	"stockimport/internal/logging"
	"stockimport/internal/storage"
	"stockimport/internal/validate"
)

// MailStore is what mail processing needs beyond the import itself.
type MailStore interface {
	ListEmailsByStatus(ctx context.Context, status string, limit int) ([]internal.EmailRow, error)
	UpdateEmailStatus(ctx context.Context, emailID int, status string) error
	FindSourceBySender(ctx context.Context, sender string) (*internal.DataSource, error)
}

// MailProcessor imports the spreadsheet attachments of fetched mails for the
// data source whose sender list matches.
type MailProcessor struct {
	store   MailStore
	imports *ImportService
	log     *logrus.Entry
}

func NewMailProcessor(store MailStore, imports *ImportService, logger *logrus.Logger) *MailProcessor {
	return &MailProcessor{store: store, imports: imports, log: logging.Component(logger, "mail")}
}

type ProcessResult struct {
	EmailID  int
	Status   string
	SourceID string
	Import   *Result
}

type ProcessSummary struct {
	Processed int
	Imported  int
	Skipped   int
	Failed    int
	Blocked   int
	// Imports holds the results of applied imports.
	Imports []Result
}

func (p *MailProcessor) ProcessPending(ctx context.Context, limit int, provider string) (ProcessSummary, error) {
	pending, err := p.store.ListEmailsByStatus(ctx, storage.EmailFetched, limit)
	if err != nil {
		return ProcessSummary{}, err
	}
	var sum ProcessSummary
	for _, email := range pending {
		if provider != "" && email.Provider != provider {
			continue
		}
		res, err := p.ProcessEmail(ctx, email)
		if err != nil {
			return sum, err
		}
		sum.Processed++
		switch res.Status {
		case storage.EmailImported:
			sum.Imported++
			sum.Imports = append(sum.Imports, *res.Import)
		case storage.EmailSkipped:
			sum.Skipped++
		case storage.EmailBlocked:
			sum.Blocked++
		default:
			sum.Failed++
		}
	}
	return sum, nil
}

// ProcessEmail handles one stored mail. Import problems are recorded on the
// mail status; only storage errors are returned.
func (p *MailProcessor) ProcessEmail(ctx context.Context, email internal.EmailRow) (ProcessResult, error) {
	log := p.log.WithFields(logrus.Fields{"email": email.ID, "sender": email.Sender})
	out := ProcessResult{EmailID: email.ID}

	finish := func(status string) (ProcessResult, error) {
		out.Status = status
		if err := p.store.UpdateEmailStatus(ctx, email.ID, status); err != nil {
			return out, err
		}
		return out, nil
	}

	raw, err := os.ReadFile(email.RawRef)
	if err != nil {
		log.WithError(err).Warn("raw message unreadable")
		return finish(storage.EmailFailed)
	}
	mail, err := connectors.ParseAttachments(raw)
	if err != nil {
		log.WithError(err).Warn("message could not be parsed")
		return finish(storage.EmailFailed)
	}
	if len(mail.Attachments) == 0 {
		log.Debug("no spreadsheet attachments")
		return finish(storage.EmailSkipped)
	}

	sender := email.Sender
	if sender == "" {
		sender = mail.From
	}
	src, err := p.store.FindSourceBySender(ctx, sender)
	if err != nil {
		return out, err
	}
	if src == nil {
		log.Info("sender matches no data source")
		return finish(storage.EmailSkipped)
	}
	out.SourceID = src.ID

	files := make([]File, 0, len(mail.Attachments))
	for _, a := range mail.Attachments {
		files = append(files, File{Name: a.Name, Content: a.Content})
	}
	res, err := p.imports.Import(ctx, Request{SourceID: src.ID, Files: files})
	out.Import = &res
	var blocked *validate.BlockedError
	switch {
	case errors.As(err, &blocked):
		log.WithField("source", src.ID).Warn(blocked.Error())
		return finish(storage.EmailBlocked)
	case errors.Is(err, ErrParseFailed), errors.Is(err, ErrEmptyInput):
		log.WithField("source", src.ID).WithError(err).Warn("attachments yielded no items")
		return finish(storage.EmailFailed)
	case err != nil:
		return out, fmt.Errorf("import mail %d: %w", email.ID, err)
	}
	return finish(storage.EmailImported)
}
