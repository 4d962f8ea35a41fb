package imap

import (
	"reflect"
	"testing"

	"github.com/emersion/go-imap"

	"stockimport/internal/config"
)

func TestFormatAddresses(t *testing.T) {
	got := formatAddresses([]*imap.Address{
		{PersonalName: "Acme Stock", MailboxName: "stock", HostName: "acme.example"},
		nil,
		{MailboxName: "sales", HostName: "acme.example"},
	})
	want := "Acme Stock <stock@acme.example>, sales@acme.example"
	if got != want {
		t.Fatalf("got %q", got)
	}
}

func TestNewConnectorRequiresCredentials(t *testing.T) {
	if _, err := NewConnector(config.Config{IMAPHost: "mail.example"}); err == nil {
		t.Fatal("expected error")
	}
	c, err := NewConnector(config.Config{IMAPHost: "mail.example", IMAPUser: "u", IMAPPassword: "p", IMAPPort: 993, IMAPSecure: true})
	if err != nil {
		t.Fatal(err)
	}
	if c.host != "mail.example" || !c.secure {
		t.Fatalf("unexpected connector %+v", c)
	}
}

func fromValues(c *imap.SearchCriteria) []string {
	out := append([]string(nil), c.Header.Values("From")...)
	for _, pair := range c.Or {
		out = append(out, fromValues(pair[0])...)
		out = append(out, fromValues(pair[1])...)
	}
	return out
}

func TestSearchCriteriaNarrowsToSenders(t *testing.T) {
	c := searchCriteria(nil)
	if !reflect.DeepEqual(c.WithoutFlags, []string{imap.SeenFlag}) || len(fromValues(c)) != 0 {
		t.Fatalf("unexpected criteria %+v", c)
	}

	c = searchCriteria([]string{"@acme.example"})
	if got := fromValues(c); !reflect.DeepEqual(got, []string{"@acme.example"}) {
		t.Fatalf("got %v", got)
	}

	senders := []string{"@acme.example", "orders@bluecoast.example", "stock@vela.example"}
	c = searchCriteria(senders)
	if !reflect.DeepEqual(c.WithoutFlags, []string{imap.SeenFlag}) {
		t.Fatalf("unseen flag lost: %+v", c)
	}
	if len(c.Or) != 1 {
		t.Fatalf("want one OR at the top, got %d", len(c.Or))
	}
	if got := fromValues(c); !reflect.DeepEqual(got, senders) {
		t.Fatalf("got %v", got)
	}
}

func part(mimeType, subType, name string) *imap.BodyStructure {
	bs := &imap.BodyStructure{MIMEType: mimeType, MIMESubType: subType}
	if name != "" {
		bs.Disposition = "attachment"
		bs.DispositionParams = map[string]string{"filename": name}
	}
	return bs
}

func mixed(parts ...*imap.BodyStructure) *imap.BodyStructure {
	return &imap.BodyStructure{MIMEType: "multipart", MIMESubType: "mixed", Parts: parts}
}

func TestPickCandidatesKeepsStockMails(t *testing.T) {
	named := part("application", "octet-stream", "")
	named.Params = map[string]string{"name": "Availability.CSV"}
	msgs := []*imap.Message{
		{SeqNum: 7, BodyStructure: mixed(part("text", "plain", ""), part("application", "vnd.openxmlformats-officedocument.spreadsheetml.sheet", "stock.xlsx"))},
		{SeqNum: 3, BodyStructure: mixed(part("text", "plain", ""), part("application", "pdf", "availability.pdf"))},
		{SeqNum: 4, BodyStructure: mixed(part("text", "plain", ""), part("image", "png", "logo.png"))},
		{SeqNum: 5, BodyStructure: &imap.BodyStructure{MIMEType: "multipart", MIMESubType: "alternative", Parts: []*imap.BodyStructure{part("text", "plain", ""), part("text", "html", "")}}},
		{SeqNum: 9, BodyStructure: named},
		{SeqNum: 10},
	}

	if got := pickCandidates(msgs, false, 0); !reflect.DeepEqual(got, []uint32{3, 7, 9}) {
		t.Fatalf("got %v", got)
	}
	if got := pickCandidates(msgs, true, 0); !reflect.DeepEqual(got, []uint32{3, 5, 7, 9}) {
		t.Fatalf("narrowed: got %v", got)
	}
	if got := pickCandidates(msgs, true, 2); !reflect.DeepEqual(got, []uint32{7, 9}) {
		t.Fatalf("newest two: got %v", got)
	}
}
