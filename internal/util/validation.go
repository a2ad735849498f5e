package util

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// subjectCodeRegex matches catalogue codes such as CS101 or MATH-2010.
var subjectCodeRegex = regexp.MustCompile(`^[A-Z]{2,6}-?[0-9]{2,5}[A-Z]?$`)

// IsValidUUID accepts only the canonical lower-case form the database
// returns, so an id that parses but is spelled differently never matches a row.
func IsValidUUID(s string) bool {
	id, err := uuid.Parse(s)
	return err == nil && id.String() == s
}

// NormalizeSubjectCode trims and upper-cases code, reporting false when the
// result is not a catalogue code.
func NormalizeSubjectCode(code string) (string, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !subjectCodeRegex.MatchString(code) {
		return code, false
	}
	return code, true
}
