package api

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

var (
	dateRe  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	clockRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d(:[0-5]\d)?$`)
)

// validDate checks strict YYYY-MM-DD shape. Calendar validity is left to the
// scheduler's time parsing.
func validDate(s string) bool {
	return dateRe.MatchString(s)
}

// validClock checks strict 24-hour HH:mm or HH:mm:ss.
func validClock(s string) bool {
	return clockRe.MatchString(s)
}

func parseUUID(field, s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s must be a valid UUID", field)
	}
	return id, nil
}

// parseOptionalUUID maps an optional id string. nil stays nil; "" becomes a
// pointer to uuid.Nil, the explicit clear marker.
func parseOptionalUUID(field string, s *string) (*uuid.UUID, error) {
	if s == nil {
		return nil, nil
	}
	if *s == "" {
		cleared := uuid.Nil
		return &cleared, nil
	}
	id, err := parseUUID(field, *s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func checkOptionalDate(field string, s *string) error {
	if s != nil && !validDate(*s) {
		return fmt.Errorf("%s must be YYYY-MM-DD", field)
	}
	return nil
}

func checkOptionalClock(field string, s *string) error {
	if s != nil && !validClock(*s) {
		return fmt.Errorf("%s must be HH:mm or HH:mm:ss", field)
	}
	return nil
}
