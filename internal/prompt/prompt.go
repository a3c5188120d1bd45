// Package prompt checks that a participant asked the required question.
package prompt

import (
	"regexp"
	"strings"
)

// Warning is shown when a submission does not match the required question
const Warning = "Please check your question and make sure you are asking the required one."

var (
	disallowed = regexp.MustCompile(`[^a-z0-9 ]+`)
	spaces     = regexp.MustCompile(`\s+`)
)

// Normalize lowercases s, drops everything outside [a-z0-9 ] and
// collapses runs of spaces.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = disallowed.ReplaceAllString(s, "")
	s = spaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Validator compares submissions against a required question
type Validator struct {
	required string
}

// NewValidator normalizes the required question once
func NewValidator(required string) *Validator {
	return &Validator{required: Normalize(required)}
}

// Check reports whether text is the required question
func (v *Validator) Check(text string) bool {
	return Normalize(text) == v.required
}
