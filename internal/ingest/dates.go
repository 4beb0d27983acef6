package ingest

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Spreadsheet serial day 0 (the Lotus/Excel epoch, 1899-12-30 UTC).
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

const dayMillis = 24 * 60 * 60 * 1000

// dayFirstRe matches D/M/YY[YY] dates with an optional time suffix,
// always read day-first.
var dayFirstRe = regexp.MustCompile(
	`^(\d{1,2})[/\-](\d{1,2})[/\-](\d{2,4})(?:[ T](\d{1,2}):(\d{2})(?::(\d{2}))?)?$`)

// dateLayouts tried for the generic parse, most specific first. Slash
// formats are deliberately absent: ambiguous D/M vs M/D input falls
// through to the day-first regex.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2 Jan 2006",
	"02 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2-Jan-2006",
	"02-Jan-2006",
}

// ParseDate resolves a raw statement cell to a UTC timestamp. In order:
// a spreadsheet serial in a plausible range, epoch milliseconds, a generic
// layout parse, then a day-first D/M/Y regex with two-digit years expanded
// by +2000. Unparseable input returns ok=false and the owning row is
// dropped by the caller.
func ParseDate(raw string) (time.Time, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, false
	}

	if n, err := strconv.ParseFloat(value, 64); err == nil {
		if n > 20000 && n < 60000 {
			ms := int64(n*dayMillis + 0.5)
			return serialEpoch.Add(time.Duration(ms) * time.Millisecond), true
		}
		if n > 1e12 {
			return time.UnixMilli(int64(n)).UTC(), true
		}
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}

	m := dayFirstRe.FindStringSubmatch(value)
	if m == nil {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if year < 100 {
		year += 2000
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	hour, minute, sec := 0, 0, 0
	if m[4] != "" {
		hour, _ = strconv.Atoi(m[4])
		minute, _ = strconv.Atoi(m[5])
		if m[6] != "" {
			sec, _ = strconv.Atoi(m[6])
		}
	}
	t := time.Date(year, time.Month(month), day, hour, minute, sec, 0, time.UTC)
	// Reject rollovers like 31/02.
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}
