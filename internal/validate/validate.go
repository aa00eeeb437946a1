// Package validate holds the field rules shared by the booking services.
package validate

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// DateLayout is the ISO calendar date format used on the wire and in storage.
const DateLayout = "2006-01-02"

var (
	phonePattern = regexp.MustCompile(`^\+?[0-9]{9,15}$`)
	codePattern  = regexp.MustCompile(`^[0-9]{4,10}$`)
	phoneNoise   = strings.NewReplacer(" ", "", "-", "", "\t", "")
)

// Phone strips spaces and dashes and reports whether the remainder is an
// optional plus followed by 9 to 15 digits.
func Phone(raw string) (string, bool) {
	cleaned := phoneNoise.Replace(strings.TrimSpace(raw))
	return cleaned, phonePattern.MatchString(cleaned)
}

// Code reports whether code is a 4 to 10 digit numeric string.
func Code(code string) (string, bool) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(code), " ", "")
	return cleaned, codePattern.MatchString(cleaned)
}

// Date parses an ISO date in loc.
func Date(value string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(value), loc)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// Today returns the current calendar day in loc, truncated to midnight.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	n := now.In(loc)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, loc)
}

// Length reports whether the trimmed text has between min and max characters.
func Length(text string, min, max int) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(text))
	return n >= min && n <= max
}
