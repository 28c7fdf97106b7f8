package capture

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	disallowed    = regexp.MustCompile(`[^0-9:/\-. ]`)
	spacedColon   = regexp.MustCompile(` ?: ?`)
	spacedDot     = regexp.MustCompile(` ?\. ?`)

	// YYYY-MM-DD ... HH:MM
	yearFirst = regexp.MustCompile(`(\d{4})[ \-/.](\d{1,2})[ \-/.](\d{1,2})[^0-9]{0,10}(\d{1,2})[:.](\d{2})`)
	// DD-MM-YYYY ... HH:MM
	dayFirst = regexp.MustCompile(`(\d{1,2})[ \-/.](\d{1,2})[ \-/.](\d{4})[^0-9]{0,10}(\d{1,2})[:.](\d{2})`)
)

// NormalizeOCRText cleans recogniser output before pattern matching.
//
// Compatibility forms are folded (full-width digits become ASCII), every
// character outside digits and date punctuation becomes a space, whitespace
// runs collapse to one space, and stray spaces around ':' and '.' are
// removed.
func NormalizeOCRText(raw string) string {
	s := norm.NFKC.String(raw)
	s = whitespaceRun.ReplaceAllString(s, " ")
	s = disallowed.ReplaceAllString(s, " ")
	s = whitespaceRun.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	s = spacedColon.ReplaceAllString(s, ":")
	s = spacedDot.ReplaceAllString(s, ".")
	return s
}

// ParseDateTime finds a date and time in noisy OCR text.
//
// Year-first (YYYY MM DD HH:MM) matches are tried before day-first
// (DD MM YYYY HH:MM). The first match forming a real calendar date and a
// valid clock time wins; seconds are zero and the result is in loc.
//
// Ordering is a heuristic with no locale awareness: MM/DD/YYYY watermarks
// are read as DD/MM/YYYY when the day is 12 or less and refused otherwise.
func ParseDateTime(raw string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	text := NormalizeOCRText(raw)
	if text == "" {
		return time.Time{}, false
	}

	for _, m := range yearFirst.FindAllStringSubmatch(text, -1) {
		if t, ok := buildTime(m[1], m[2], m[3], m[4], m[5], loc); ok {
			return t, true
		}
	}
	for _, m := range dayFirst.FindAllStringSubmatch(text, -1) {
		if t, ok := buildTime(m[3], m[2], m[1], m[4], m[5], loc); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func buildTime(ys, ms, ds, hs, mins string, loc *time.Location) (time.Time, bool) {
	var parts [5]int
	for i, s := range []string{ys, ms, ds, hs, mins} {
		n, err := strconv.Atoi(s)
		if err != nil {
			return time.Time{}, false
		}
		parts[i] = n
	}
	year, month, day, hour, minute := parts[0], parts[1], parts[2], parts[3], parts[4]
	if month < 1 || month > 12 || day < 1 || day > 31 || hour > 23 || minute > 59 {
		return time.Time{}, false
	}

	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc)
	// time.Date normalises overflow (Feb 30 becomes Mar 2); a real date
	// survives the round trip unchanged.
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}
