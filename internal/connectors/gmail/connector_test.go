package gmail

import (
	"encoding/base64"
	"testing"
	"time"
)

func TestDecodeBase64URL(t *testing.T) {
	raw := []byte("Subject: stock?\r\n\r\n>>>")
	for _, enc := range []*base64.Encoding{base64.RawURLEncoding, base64.URLEncoding} {
		got, err := decodeBase64URL(enc.EncodeToString(raw))
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != string(raw) {
			t.Fatalf("got %q", got)
		}
	}
	if _, err := decodeBase64URL("!!!"); err == nil {
		t.Fatal("expected error")
	}
}

func TestMailDate(t *testing.T) {
	want := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	for _, v := range []string{
		"Mon, 02 Mar 2026 09:30:00 +0000",
		"Mon, 2 Mar 2026 09:30:00 +0000 (UTC)",
		"2 Mar 2026 10:30:00 +0100",
	} {
		got, err := mailDate(v)
		if err != nil {
			t.Fatalf("%q: %v", v, err)
		}
		if !got.Equal(want) {
			t.Fatalf("%q: got %s", v, got)
		}
	}
	if _, err := mailDate("yesterday"); err == nil {
		t.Fatal("expected error")
	}
}

func TestListQuery(t *testing.T) {
	if got := listQuery(nil); got != "("+spreadsheetQuery+")" {
		t.Fatalf("got %q", got)
	}
	got := listQuery([]string{"@acme.example", "orders@bluecoast.example", " "})
	want := "(" + spreadsheetQuery + ") from:(acme.example OR orders@bluecoast.example)"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
