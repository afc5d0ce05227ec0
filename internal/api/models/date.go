package models

import (
	"time"

	"github.com/pkg/errors"
)

const DateLayout = "2006-01-02"

// DateOf drops the time of day, delivery dates are stored as UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "invalid date %q, expected YYYY-MM-DD", s)
	}

	return t, nil
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
