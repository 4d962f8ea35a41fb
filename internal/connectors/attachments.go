package connectors

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jhillyerd/enmime"

	"stockimport/internal/sheet"
)

type Attachment struct {
	Name    string
	Content []byte
}

type ParsedMail struct {
	Subject     string
	From        string
	Attachments []Attachment
}

// ParseAttachments pulls spreadsheet attachments out of a raw message. A
// message without any falls back to its html body when the body carries a
// table.
func ParseAttachments(raw []byte) (ParsedMail, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return ParsedMail{}, err
	}

	out := ParsedMail{Subject: env.GetHeader("Subject"), From: env.GetHeader("From")}
	parts := append(append([]*enmime.Part{}, env.Attachments...), env.Inlines...)
	for _, att := range parts {
		filename := strings.TrimSpace(att.FileName)
		if filename == "" || !sheet.IsSpreadsheetName(filename) || len(att.Content) == 0 {
			continue
		}
		out.Attachments = append(out.Attachments, Attachment{Name: filename, Content: att.Content})
	}

	if len(out.Attachments) == 0 && hasTable(env.HTML) {
		out.Attachments = append(out.Attachments, Attachment{Name: "message-body.html", Content: []byte(env.HTML)})
	}
	return out, nil
}

func hasTable(html string) bool {
	if strings.TrimSpace(html) == "" {
		return false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}
	return doc.Find("table tr").Length() >= 2
}
