package util

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

var dateLayouts = []string{
	"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
	"2006-01-02", "2006/01/02", "2006.01.02", "2006-01-02T15:04:05Z07:00", "2006-01-02 15:04:05",
	"Jan 2, 2006", "Jan 2 2006", "January 2, 2006", "2 Jan 2006", "02-Jan-2006", "2-Jan-06",
	"1/2/06", "01/02/06", "1-2-06", "01-02-06",
}

// Serial numbers outside this window are treated as plain numbers. It spans
// 1982-02-17 to 2119-01-09.
const (
	minExcelSerial = 30000
	maxExcelSerial = 80000
)

// ParseDate accepts calendar strings and 5-digit spreadsheet serials.
func ParseDate(s string) (time.Time, bool) {
	s = NormalizeSpaces(s)
	if s == "" {
		return time.Time{}, false
	}
	if serial, ok := ExcelSerial(s); ok {
		return SerialToTime(serial)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseDateCell is ParseDate for raw matrix cells.
func ParseDateCell(raw any) (time.Time, bool) {
	switch v := raw.(type) {
	case float64:
		if v >= minExcelSerial && v <= maxExcelSerial {
			return SerialToTime(v)
		}
		return time.Time{}, false
	case int:
		if v >= minExcelSerial && v <= maxExcelSerial {
			return SerialToTime(float64(v))
		}
		return time.Time{}, false
	case time.Time:
		return v, !v.IsZero()
	}
	return ParseDate(CellText(raw))
}

// ExcelSerial reports whether s is a 5-digit spreadsheet date serial.
func ExcelSerial(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	intPart := s
	if i := strings.Index(s, "."); i >= 0 {
		intPart = s[:i]
	}
	if len(intPart) != 5 {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < minExcelSerial || v > maxExcelSerial {
		return 0, false
	}
	return v, true
}

// SerialToTime converts a serial using the 1899-12-30 epoch.
func SerialToTime(serial float64) (time.Time, bool) {
	t, err := excelize.ExcelDateToTime(math.Floor(serial), false)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
}

func AddDays(t time.Time, days int) time.Time {
	return t.AddDate(0, 0, days)
}
