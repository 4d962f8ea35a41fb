package sheet

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"stockimport/internal"
	"stockimport/internal/util"
)

var ErrUnsupportedFile = errors.New("unsupported file type")

var rePlainNumber = regexp.MustCompile(`^-?(?:[1-9]\d*|0)(?:\.\d+)?$`)

// Read turns file bytes into a matrix, choosing the reader by extension and
// sniffing the content for .xls files, which suppliers often send as html.
func Read(name string, content []byte) (internal.RawMatrix, error) {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".xlsx", ".xlsm":
		return ReadXLSX(content)
	case ".xls":
		if looksLikeHTML(content) {
			return ReadHTML(content)
		}
		if looksLikeZip(content) {
			return ReadXLSX(content)
		}
		return nil, fmt.Errorf("%w: legacy binary .xls %q, save it as .xlsx", ErrUnsupportedFile, name)
	case ".csv":
		return ReadCSV(content, ',')
	case ".tsv", ".tab":
		return ReadCSV(content, '\t')
	case ".txt":
		return ReadCSV(content, sniffDelimiter(content))
	case ".html", ".htm":
		return ReadHTML(content)
	case ".pdf":
		return ReadPDF(content)
	}
	switch {
	case looksLikeZip(content):
		return ReadXLSX(content)
	case looksLikeHTML(content):
		return ReadHTML(content)
	case bytes.HasPrefix(content, []byte("%PDF")):
		return ReadPDF(content)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFile, name)
}

// IsSpreadsheetName reports whether Read knows the extension.
func IsSpreadsheetName(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm", ".xls", ".csv", ".tsv", ".tab", ".txt", ".html", ".htm", ".pdf":
		return true
	}
	return false
}

func looksLikeZip(content []byte) bool {
	return bytes.HasPrefix(content, []byte("PK\x03\x04"))
}

func looksLikeHTML(content []byte) bool {
	head := content
	if len(head) > 1024 {
		head = head[:1024]
	}
	lower := bytes.ToLower(bytes.TrimSpace(head))
	return bytes.HasPrefix(lower, []byte("<")) &&
		(bytes.Contains(lower, []byte("<html")) || bytes.Contains(lower, []byte("<table")) || bytes.Contains(lower, []byte("<!doctype")))
}

// cellValue keeps text cells as strings and turns plain numbers into
// float64. Leading-zero tokens such as "00" or "02" stay strings.
func cellValue(s string) any {
	s = util.NormalizeSpaces(s)
	if s == "" {
		return nil
	}
	if rePlainNumber.MatchString(s) {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return v
		}
	}
	return s
}

func toRow(cells []string) []any {
	row := make([]any, len(cells))
	for i, c := range cells {
		row[i] = cellValue(c)
	}
	return trimRow(row)
}

func trimRow(row []any) []any {
	end := len(row)
	for end > 0 && row[end-1] == nil {
		end--
	}
	return row[:end]
}

func trimTrailingBlankRows(m internal.RawMatrix) internal.RawMatrix {
	end := len(m)
	for end > 0 && util.RowIsBlank(m[end-1]) {
		end--
	}
	return m[:end]
}
