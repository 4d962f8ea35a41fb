package listener

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockimport/internal"
	"stockimport/internal/config"
	"stockimport/internal/connectors"
	"stockimport/internal/storage"
)

type fakeConnector struct {
	messages []internal.FetchedMailMessage
	err      error
	queries  *[]connectors.FetchQuery
}

func (f fakeConnector) FetchInbox(ctx context.Context, q connectors.FetchQuery) ([]internal.FetchedMailMessage, error) {
	if f.queries != nil {
		*f.queries = append(*f.queries, q)
	}
	return f.messages, f.err
}

func csvMail(from, csv string) []byte {
	return []byte("From: " + from + "\r\n" +
		"Subject: Stock\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/mixed; boundary=\"X\"\r\n\r\n" +
		"--X\r\nContent-Type: text/plain\r\n\r\nsee attached\r\n" +
		"--X\r\nContent-Type: text/csv\r\n" +
		"Content-Disposition: attachment; filename=\"stock.csv\"\r\n" +
		"Content-Transfer-Encoding: base64\r\n\r\n" +
		base64.StdEncoding.EncodeToString([]byte(csv)) + "\r\n" +
		"--X--\r\n")
}

func newTestListener(t *testing.T, conn connectors.MailConnector) (*Service, *storage.DB, config.Config) {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.Open(filepath.Join(dir, "stock.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.UpsertSource(context.Background(), internal.DataSource{
		ID: "acme", Name: "Acme", EmailSenders: []string{"stock@acme.example"},
	}))

	cfg := config.Config{
		RawMailDir:               filepath.Join(dir, "raw"),
		OutputDir:                filepath.Join(dir, "out"),
		MailListenerProvider:     "IMAP",
		MailListenerLabel:        "INBOX",
		MailListenerFetchMax:     10,
		MailListenerProcessBatch: 10,
		MailListenerAutoExport:   true,
	}
	s := NewService(db, cfg, nil)
	s.connect = func(provider string) (connectors.MailConnector, error) {
		if provider != "imap" {
			return nil, errors.New("unexpected provider " + provider)
		}
		return conn, nil
	}
	return s, db, cfg
}

func TestRunCycleImportsAndExports(t *testing.T) {
	ctx := context.Background()
	var queries []connectors.FetchQuery
	conn := fakeConnector{queries: &queries, messages: []internal.FetchedMailMessage{{
		Provider:  "imap",
		MessageID: "<1@acme.example>",
		Subject:   "Stock",
		From:      "Acme Stock <stock@acme.example>",
		Raw:       csvMail("stock@acme.example", "Style,Color,Size,Qty\nA1,Red,M,4\n"),
	}}}
	s, db, cfg := newTestListener(t, conn)

	res, err := s.RunCycle(ctx)
	require.NoError(t, err)
	require.Len(t, queries, 1)
	assert.Equal(t, connectors.FetchQuery{Label: "INBOX", Max: 10, Senders: []string{"stock@acme.example"}}, queries[0])
	assert.Equal(t, 1, res.Fetch.Stored)
	assert.Equal(t, 1, res.Process.Imported)
	require.Len(t, res.Exported, 1)
	assert.Equal(t, filepath.Join(cfg.OutputDir, "listener"), filepath.Dir(res.Exported[0]))
	_, err = os.Stat(res.Exported[0])
	require.NoError(t, err)

	n, err := db.CountInventory(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// The same message fetched again keeps its imported status.
	again, err := s.RunCycle(ctx)
	require.NoError(t, err)
	assert.Zero(t, again.Process.Processed)
	assert.Empty(t, again.Exported)
}

func TestRunCycleFetchError(t *testing.T) {
	s, _, _ := newTestListener(t, fakeConnector{err: errors.New("connection refused")})
	_, err := s.RunCycle(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch: connection refused")
}

func TestMakeConnectorRejectsUnknownProvider(t *testing.T) {
	_, err := MakeConnector(config.Config{}, "pop3")
	require.EqualError(t, err, "unsupported mail provider: pop3")
}

func TestSanitizeFileName(t *testing.T) {
	assert.Equal(t, "a_b_c", sanitizeFileName("a/b:c"))
}
