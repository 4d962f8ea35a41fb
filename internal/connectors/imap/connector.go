package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	imapclient "github.com/emersion/go-imap/client"

	"stockimport/internal"
	"stockimport/internal/config"
	"stockimport/internal/connectors"
	"stockimport/internal/sheet"
)

type Connector struct {
	host     string
	port     int
	secure   bool
	user     string
	password string
	markSeen bool
}

func NewConnector(cfg config.Config) (*Connector, error) {
	if err := cfg.Require("IMAP_HOST", cfg.IMAPHost); err != nil {
		return nil, err
	}
	if err := cfg.Require("IMAP_USER", cfg.IMAPUser); err != nil {
		return nil, err
	}
	if err := cfg.Require("IMAP_PASSWORD", cfg.IMAPPassword); err != nil {
		return nil, err
	}

	return &Connector{
		host:     cfg.IMAPHost,
		port:     cfg.IMAPPort,
		secure:   cfg.IMAPSecure,
		user:     cfg.IMAPUser,
		password: cfg.IMAPPassword,
		markSeen: cfg.IMAPMarkSeen,
	}, nil
}

// FetchInbox lists unseen messages from the queried senders, keeps those
// whose structure shows a stock file and downloads the newest q.Max of them.
// Messages passed over stay unseen.
func (c *Connector) FetchInbox(ctx context.Context, q connectors.FetchQuery) ([]internal.FetchedMailMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	addr := fmt.Sprintf("%s:%d", c.host, c.port)
	var client *imapclient.Client
	var err error
	if c.secure {
		client, err = imapclient.DialTLS(addr, &tls.Config{ServerName: c.host})
	} else {
		client, err = imapclient.Dial(addr)
	}
	if err != nil {
		return nil, err
	}
	defer client.Logout()

	if err := client.Login(c.user, c.password); err != nil {
		return nil, err
	}

	if _, err := client.Select(q.Label, false); err != nil {
		return nil, err
	}

	ids, err := client.Search(searchCriteria(q.Senders))
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	structures, err := fetchAll(client, ids, []imap.FetchItem{imap.FetchBodyStructure})
	if err != nil {
		return nil, fmt.Errorf("fetch structure: %w", err)
	}
	candidates := pickCandidates(structures, len(q.Senders) > 0, q.Max)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	section := &imap.BodySectionName{}
	messages, err := fetchAll(client, candidates, []imap.FetchItem{imap.FetchEnvelope, imap.FetchInternalDate, imap.FetchUid, section.FetchItem()})
	if err != nil {
		return nil, err
	}

	out := make([]internal.FetchedMailMessage, 0, len(messages))
	var seen []uint32
	for _, msg := range messages {
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		raw, err := io.ReadAll(body)
		if err != nil {
			return nil, err
		}

		messageID := ""
		subject := ""
		from := ""
		if msg.Envelope != nil {
			messageID = msg.Envelope.MessageId
			subject = msg.Envelope.Subject
			from = formatAddresses(msg.Envelope.From)
		}
		if messageID == "" {
			messageID = fmt.Sprintf("imap-%d", msg.Uid)
		}

		received := time.Now().UTC().Format(time.RFC3339)
		if !msg.InternalDate.IsZero() {
			received = msg.InternalDate.UTC().Format(time.RFC3339)
		}

		out = append(out, internal.FetchedMailMessage{
			Provider:   "imap",
			MessageID:  messageID,
			Subject:    subject,
			From:       from,
			ReceivedAt: received,
			Raw:        raw,
		})
		seen = append(seen, msg.SeqNum)
	}

	if c.markSeen && len(seen) > 0 {
		seenSet := new(imap.SeqSet)
		seenSet.AddNum(seen...)
		item := imap.FormatFlagsOp(imap.AddFlags, true)
		flags := []interface{}{imap.SeenFlag}
		if err := client.Store(seenSet, item, flags, nil); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// fetchAll runs one FETCH and drains it; the client serves one command at a
// time.
func fetchAll(client *imapclient.Client, ids []uint32, items []imap.FetchItem) ([]*imap.Message, error) {
	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)
	ch := make(chan *imap.Message, len(ids))
	done := make(chan error, 1)
	go func() { done <- client.Fetch(seqset, items, ch) }()

	out := make([]*imap.Message, 0, len(ids))
	for msg := range ch {
		if msg != nil {
			out = append(out, msg)
		}
	}
	if err := <-done; err != nil {
		return nil, err
	}
	return out, nil
}

// searchCriteria selects unseen messages, from any of senders when given.
// IMAP FROM matches substrings, so "@domain" entries cover a whole domain.
func searchCriteria(senders []string) *imap.SearchCriteria {
	c := imap.NewSearchCriteria()
	c.WithoutFlags = []string{imap.SeenFlag}
	switch len(senders) {
	case 0:
	case 1:
		c.Header.Add("From", senders[0])
	default:
		c.Or = fromAny(senders).Or
	}
	return c
}

func fromAny(senders []string) *imap.SearchCriteria {
	if len(senders) == 1 {
		c := imap.NewSearchCriteria()
		c.Header.Add("From", senders[0])
		return c
	}
	one := imap.NewSearchCriteria()
	one.Header.Add("From", senders[0])
	return &imap.SearchCriteria{Or: [][2]*imap.SearchCriteria{{one, fromAny(senders[1:])}}}
}

// pickCandidates keeps the sequence numbers of messages carrying a stock
// file, newest max of them, in ascending order. An html part counts only for
// sender-narrowed searches, where the body table fallback applies to known
// suppliers.
func pickCandidates(msgs []*imap.Message, narrowed bool, max int) []uint32 {
	var out []uint32
	for _, msg := range msgs {
		if msg.BodyStructure != nil && carriesStock(msg.BodyStructure, narrowed) {
			out = append(out, msg.SeqNum)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	if max > 0 && len(out) > max {
		out = out[len(out)-max:]
	}
	return out
}

func carriesStock(bs *imap.BodyStructure, withHTML bool) bool {
	if strings.EqualFold(bs.MIMEType, "multipart") {
		for _, p := range bs.Parts {
			if carriesStock(p, withHTML) {
				return true
			}
		}
		return false
	}
	if name := partName(bs); name != "" && sheet.IsSpreadsheetName(name) {
		return true
	}
	return withHTML && strings.EqualFold(bs.MIMEType, "text") && strings.EqualFold(bs.MIMESubType, "html")
}

func partName(bs *imap.BodyStructure) string {
	if name := bs.DispositionParams["filename"]; name != "" {
		return name
	}
	return bs.Params["name"]
}

func formatAddresses(addrs []*imap.Address) string {
	if len(addrs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if a == nil {
			continue
		}
		email := strings.Trim(strings.Join([]string{a.MailboxName, a.HostName}, "@"), "@")
		if a.PersonalName != "" {
			parts = append(parts, fmt.Sprintf("%s <%s>", a.PersonalName, email))
		} else {
			parts = append(parts, email)
		}
	}
	return strings.Join(parts, ", ")
}
