// Package validate holds the input checks applied before any user-supplied
// value is persisted. Every function is pure and never panics.
package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Length limits, counted in characters.
const (
	MaxTitleLength    = 200
	MaxContentLength  = 50000
	MaxCommentLength  = 2000
	MaxCategoryLength = 50
	MaxBioLength      = 500
	MaxSearchLength   = 100

	MinUsernameLength = 3
	MaxUsernameLength = 50
	MinPasswordLength = 6
	MaxPasswordLength = 100
)

var deviceIDPattern = regexp.MustCompile(`^device_\d+_[a-z0-9]+$`)

// Result is the outcome of a check. Error is empty when Valid is true.
type Result struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

func ok() Result { return Result{Valid: true} }

func fail(format string, args ...any) Result {
	return Result{Error: fmt.Sprintf(format, args...)}
}

func required(value, field string, max int) Result {
	if strings.TrimSpace(value) == "" {
		return fail("%s is required", field)
	}
	if utf8.RuneCountInString(value) > max {
		return fail("%s must be at most %d characters", field, max)
	}
	return ok()
}

func optional(value, field string, max int) Result {
	if utf8.RuneCountInString(value) > max {
		return fail("%s must be at most %d characters", field, max)
	}
	return ok()
}

// Title requires a non-blank title of at most 200 characters.
func Title(v string) Result { return required(v, "Title", MaxTitleLength) }

// Content requires non-blank post content of at most 50000 characters.
func Content(v string) Result { return required(v, "Content", MaxContentLength) }

// Comment requires a non-blank comment of at most 2000 characters.
func Comment(v string) Result { return required(v, "Comment content", MaxCommentLength) }

// Category allows an empty category; otherwise at most 50 characters.
func Category(v string) Result { return optional(v, "Category", MaxCategoryLength) }

// Bio allows an empty author bio; otherwise at most 500 characters.
func Bio(v string) Result { return optional(v, "Bio", MaxBioLength) }

// SearchQuery requires a non-blank query of at most 100 characters.
func SearchQuery(v string) Result {
	return required(strings.TrimSpace(v), "Search query", MaxSearchLength)
}

// Username requires 3 to 50 characters after trimming.
func Username(v string) Result {
	v = strings.TrimSpace(v)
	if v == "" {
		return fail("Username is required")
	}
	if n := utf8.RuneCountInString(v); n < MinUsernameLength || n > MaxUsernameLength {
		return fail("Username must be between %d and %d characters", MinUsernameLength, MaxUsernameLength)
	}
	return ok()
}

// Password requires 6 to 100 characters.
func Password(v string) Result {
	if n := utf8.RuneCountInString(v); n < MinPasswordLength || n > MaxPasswordLength {
		return fail("Password must be between %d and %d characters", MinPasswordLength, MaxPasswordLength)
	}
	return ok()
}

// SanitizeInput removes NUL bytes and control characters other than newline,
// carriage return and tab, then trims surrounding whitespace.
func SanitizeInput(v string) string {
	v = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', '\t':
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, v)
	return strings.TrimSpace(v)
}

// IsValidDeviceID reports whether id has the form device_<digits>_<[a-z0-9]+>.
func IsValidDeviceID(id string) bool {
	return deviceIDPattern.MatchString(id)
}
