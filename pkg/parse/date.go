package parse

import (
	"strconv"
	"strings"
	"time"
)

// serialEpoch is day zero of spreadsheet serial dates (1899-12-30). It doubles
// as the sentinel returned for unparseable input, so a sentinel date is
// trivially recognizable in a ledger.
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// SentinelDate is the fixed fallback for input no strategy recognizes.
var SentinelDate = serialEpoch

// genericLayouts are tried last, for exports that format dates as text.
var genericLayouts = []string{
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"Jan 2 2006",
	"2006/01/02",
	time.RFC3339,
}

// Date converts arbitrary spreadsheet date text into a calendar date. It
// never fails: the second return is false when no strategy matched and the
// sentinel was used. Strategies are tried in order, first success wins:
// numeric serial, slash triple (M/D/Y, D/M/Y, Y/M/D), dash separated,
// dot separated, then a list of generic layouts.
func Date(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return SentinelDate, false
	}

	if d, ok := fromSerial(s); ok {
		return d, true
	}
	if d, ok := fromSeparated(s, "/", [][3]int{{1, 0, 2}, {0, 1, 2}, {2, 1, 0}}); ok {
		return d, true
	}
	if d, ok := fromDashed(s); ok {
		return d, true
	}
	// dd.mm.yyyy
	if d, ok := fromSeparated(s, ".", [][3]int{{0, 1, 2}}); ok {
		return d, true
	}
	for _, layout := range genericLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return dateOnly(d), true
		}
	}
	return SentinelDate, false
}

// fromSerial interprets the input as days since the spreadsheet epoch.
func fromSerial(s string) (time.Time, bool) {
	serial, err := strconv.ParseFloat(s, 64)
	if err != nil || serial <= 0 || serial >= 100000 {
		return time.Time{}, false
	}
	d := serialEpoch.AddDate(0, 0, int(serial))
	if d.Year() < 1900 || d.Year() >= 2100 {
		return time.Time{}, false
	}
	return d, true
}

// fromSeparated splits on sep and tries each (day, month, year) index order
// in turn. A candidate only counts when reconstructing the date does not roll
// over, so month 13 or day 32 is rejected instead of silently wrapped.
func fromSeparated(s, sep string, orders [][3]int) (time.Time, bool) {
	parts := strings.Split(s, sep)
	if len(parts) != 3 {
		return time.Time{}, false
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return time.Time{}, false
		}
		nums[i] = n
	}
	for _, order := range orders {
		day, month, year := nums[order[0]], nums[order[1]], nums[order[2]]
		year = expandYear(year)
		if d, ok := buildDate(year, month, day); ok {
			return d, true
		}
	}
	return time.Time{}, false
}

// fromDashed handles ISO yyyy-mm-dd first, then infers which field holds the
// 4-digit year when the order is reversed.
func fromDashed(s string) (time.Time, bool) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return time.Time{}, false
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return time.Time{}, false
		}
		nums[i] = n
	}
	if len(strings.TrimSpace(parts[0])) == 4 {
		return buildDate(nums[0], nums[1], nums[2])
	}
	if len(strings.TrimSpace(parts[2])) == 4 {
		// dd-mm-yyyy
		return buildDate(nums[2], nums[1], nums[0])
	}
	return buildDate(expandYear(nums[2]), nums[1], nums[0])
}

// expandYear maps two-digit years: <50 lands in the 2000s, the rest in the
// 1900s.
func expandYear(y int) int {
	if y >= 100 {
		return y
	}
	if y < 50 {
		return 2000 + y
	}
	return 1900 + y
}

// buildDate constructs the date and verifies the components survived without
// normalization rollover.
func buildDate(year, month, day int) (time.Time, bool) {
	if year < 1900 || year >= 2100 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Year() != year || d.Month() != time.Month(month) || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
