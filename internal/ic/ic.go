// Package ic derives personal facts from Malaysian IC numbers
// (YYMMDD-SS-NNNN). Derivation is best-effort: anything that does not carry
// at least twelve digits yields no result rather than an error.
package ic

import (
	"fmt"
	"strings"
	"time"
)

// Gender values derived from the IC's final digit.
const (
	GenderMale   = "L" // Lelaki
	GenderFemale = "P" // Perempuan
)

// Derived holds the facts encoded in an IC number.
type Derived struct {
	DateOfBirth string // DD/MM/YYYY
	Gender      string // "L" or "P"
	Age         int    // full years at the reference date
}

// Parse derives date of birth, gender and current age from an IC number.
// The second return value is false when the input is not derivable.
func Parse(number string) (Derived, bool) {
	return ParseAt(number, time.Now())
}

// ParseAt is Parse with an explicit reference date for the age calculation.
func ParseAt(number string, now time.Time) (Derived, bool) {
	digits := stripSeparators(number)
	if len(digits) < 12 {
		return Derived{}, false
	}

	yy := int(digits[0]-'0')*10 + int(digits[1]-'0')
	mm := int(digits[2]-'0')*10 + int(digits[3]-'0')
	dd := int(digits[4]-'0')*10 + int(digits[5]-'0')

	// Two-digit year: 00-29 = 2000s, 30-99 = 1900s.
	year := 1900 + yy
	if yy <= 29 {
		year = 2000 + yy
	}

	// Final digit: odd = male, even = female.
	gender := GenderFemale
	if (digits[len(digits)-1]-'0')%2 == 1 {
		gender = GenderMale
	}

	age := now.Year() - year
	if int(now.Month()) < mm || (int(now.Month()) == mm && now.Day() < dd) {
		age--
	}

	return Derived{
		DateOfBirth: fmt.Sprintf("%02d/%02d/%04d", dd, mm, year),
		Gender:      gender,
		Age:         age,
	}, true
}

// stripSeparators removes hyphens and spaces and returns the remaining
// characters only if they are all digits.
func stripSeparators(number string) string {
	var b strings.Builder
	for _, r := range number {
		switch {
		case r == '-' || r == ' ':
			continue
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			return ""
		}
	}
	return b.String()
}
