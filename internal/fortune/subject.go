// Package fortune turns a birth datetime into the debate input of a reading
// and runs the reading end to end: validation, prompt assembly, the debate
// and the final long-form answers.
package fortune

import (
	"fmt"
	"strings"
	"time"

	"github.com/0nhc/llm-fortune-teller/internal/errors"
)

// Location is the fixed UTC+8 zone every birth time is interpreted in.
var Location = time.FixedZone("UTC+8", 8*60*60)

// Gender values accepted by Subject.
const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// Year bounds accepted by Subject.
const (
	MinYear = 1900
	MaxYear = 2100
)

// Subject is the person a reading is for.
type Subject struct {
	// Name labels the output directory and files. It is optional.
	Name   string `json:"name,omitempty" yaml:"name,omitempty"`
	Year   int    `json:"year" yaml:"year"`
	Month  int    `json:"month" yaml:"month"`
	Day    int    `json:"day" yaml:"day"`
	Hour   int    `json:"hour" yaml:"hour"`
	Minute int    `json:"minute" yaml:"minute"`
	Gender string `json:"gender" yaml:"gender"`
}

// Validate checks every field and returns all failures joined. Each failure
// is an *errors.ValidationError.
func (s Subject) Validate() error {
	var errs []error
	check := func(ok bool, field string, value any, msg string) {
		if !ok {
			errs = append(errs, errors.NewValidationError(msg).WithField(field).WithValue(value))
		}
	}

	check(s.Year >= MinYear && s.Year <= MaxYear, "year", s.Year, fmt.Sprintf("year must be between %d and %d", MinYear, MaxYear))
	check(s.Month >= 1 && s.Month <= 12, "month", s.Month, "month must be between 1 and 12")
	if s.Month >= 1 && s.Month <= 12 && s.Year >= MinYear && s.Year <= MaxYear {
		days := daysIn(s.Year, time.Month(s.Month))
		check(s.Day >= 1 && s.Day <= days, "day", s.Day, fmt.Sprintf("day must be between 1 and %d", days))
	} else {
		check(s.Day >= 1 && s.Day <= 31, "day", s.Day, "day must be between 1 and 31")
	}
	check(s.Hour >= 0 && s.Hour <= 23, "hour", s.Hour, "hour must be between 0 and 23")
	check(s.Minute >= 0 && s.Minute <= 59, "minute", s.Minute, "minute must be between 0 and 59")

	g := strings.ToLower(strings.TrimSpace(s.Gender))
	check(g == GenderMale || g == GenderFemale, "gender", s.Gender, "gender must be male or female")

	check(!strings.ContainsAny(s.Name, `/\`) && s.Name != "." && s.Name != "..", "name", s.Name, "name must not contain path separators")

	return errors.Join(errs...)
}

// Birth returns the birth time in Location. Call Validate first.
func (s Subject) Birth() time.Time {
	return time.Date(s.Year, time.Month(s.Month), s.Day, s.Hour, s.Minute, 0, 0, Location)
}

// NormalizedGender returns the gender in lower case.
func (s Subject) NormalizedGender() string {
	return strings.ToLower(strings.TrimSpace(s.Gender))
}

// Label returns a short human label: the name, or the birth date.
func (s Subject) Label() string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d", s.Year, s.Month, s.Day, s.Hour, s.Minute)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
