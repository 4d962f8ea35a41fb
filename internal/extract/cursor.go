package extract

import (
	"regexp"
	"strings"
	"time"

	"stockimport/internal/util"
)

// rowCursor carries values that a sheet states once for several rows below:
// the style, its color, a brand and a delivery date.
type rowCursor struct {
	Style    string
	Color    string
	Brand    string
	ShipDate *time.Time
}

// Advance applies one row's style and color cells. A new style clears the
// carried color; blank cells keep the carried values.
func (c *rowCursor) Advance(style, color string) (string, string) {
	style = util.NormalizeSpaces(style)
	color = util.NormalizeSpaces(color)
	if style != "" && !strings.EqualFold(style, c.Style) {
		c.Style = style
		c.Color = ""
	}
	if color != "" {
		c.Color = color
	}
	return c.Style, c.Color
}

// Section starts a new style block from a section label such as
// "Style # 1042 - Wrap Dress".
func (c *rowCursor) Section(label string) string {
	c.Style = sectionStyle(label)
	c.Color = ""
	return c.Style
}

func (c *rowCursor) Reset() {
	*c = rowCursor{}
}

var reSectionLabel = regexp.MustCompile(`(?i)^\s*(style|item|model)\b\s*(#|no\.?|number|:)?\s*:?\s*`)

func sectionStyle(label string) string {
	s := reSectionLabel.ReplaceAllString(util.NormalizeSpaces(label), "")
	if i := strings.Index(s, " - "); i > 0 {
		s = s[:i]
	}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	if len(fields) > 1 && util.LooksLikeCode(fields[0]) {
		return fields[0]
	}
	if len(fields) > 1 && strings.ContainsAny(fields[0], "0123456789") {
		return fields[0]
	}
	return s
}
