package connectors

import (
	"context"
	"sort"
	"strings"

	"stockimport/internal"
)

// FetchQuery narrows a mailbox listing. Senders holds addresses or
// "@domain" entries; an empty list fetches from anyone.
type FetchQuery struct {
	Label   string
	Max     int
	Senders []string
}

type MailConnector interface {
	FetchInbox(ctx context.Context, q FetchQuery) ([]internal.FetchedMailMessage, error)
}

// SupplierSenders collects the sender entries of all data sources,
// lowercased, deduplicated and sorted. "Name <addr>" entries keep the
// address only.
func SupplierSenders(sources []internal.DataSource) []string {
	set := map[string]bool{}
	for _, src := range sources {
		for _, s := range src.EmailSenders {
			s = strings.ToLower(strings.TrimSpace(s))
			if i := strings.LastIndex(s, "<"); i >= 0 {
				s = strings.TrimSpace(strings.TrimSuffix(s[i+1:], ">"))
			}
			if s != "" && s != "@" {
				set[s] = true
			}
		}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
