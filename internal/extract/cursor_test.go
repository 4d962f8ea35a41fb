package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRowCursorCarriesStyleAndColor(t *testing.T) {
	var c rowCursor
	style, color := c.Advance("A100", "Red")
	assert.Equal(t, "A100", style)
	assert.Equal(t, "Red", color)

	style, color = c.Advance("", "")
	assert.Equal(t, "A100", style)
	assert.Equal(t, "Red", color)

	style, color = c.Advance("", "Blue")
	assert.Equal(t, "A100", style)
	assert.Equal(t, "Blue", color)

	style, color = c.Advance("B200", "")
	assert.Equal(t, "B200", style)
	assert.Empty(t, color)

	c.Reset()
	style, _ = c.Advance("", "")
	assert.Empty(t, style)
}

func TestSectionStyle(t *testing.T) {
	cases := map[string]string{
		"Style # 1042 - Wrap Dress": "1042",
		"STYLE: K-300 Midi":         "K-300",
		"A100":                      "A100",
		"Item 77 Maxi":              "77",
		"Evening Gowns":             "Evening Gowns",
	}
	for in, want := range cases {
		assert.Equal(t, want, sectionStyle(in), in)
	}
}
