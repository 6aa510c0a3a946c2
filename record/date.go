package record

import (
	"strings"
	"time"
)

// NeverUsed is the used_date of a quote which has not been quote of the day since the last rotation.
const NeverUsed = "None"

// DateLayout is the canonical used_date representation, MM/DD/YYYY.
const DateLayout = "01/02/2006"

// dateLayouts are tried in order, so ambiguous inputs like 04/11/2025 are read month first.
var dateLayouts = []string{
	"2006-01-02", // YYYY-MM-DD
	"01-02-2006", // MM-DD-YYYY
	"01/02/2006", // MM/DD/YYYY
	"02-01-2006", // DD-MM-YYYY
	"02/01/2006", // DD/MM/YYYY
	"01-02-06",   // MM-DD-YY
	"02-01-06",   // DD-MM-YY
	"01/02/06",   // MM/DD/YY
	"02/01/06",   // DD/MM/YY
}

// NormalizeDate converts any of the accepted date formats into MM/DD/YYYY. "None" and the empty string yield NeverUsed.
func NormalizeDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == NeverUsed {
		return NeverUsed, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(DateLayout), nil
		}
	}
	return "", invalid(KeyUsedDate, "must be a valid date")
}

// FormatDate returns the canonical used_date string of a day.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
