// Package recurrence expands iCalendar RRULE strings (for example
// "FREQ=DAILY;COUNT=10") into concrete occurrence times for the
// recurring-task expander.
package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

var ErrEmptyRule = errors.New("recurrence: empty rule")

// Parse builds an RRule anchored at dtstart. The rule string itself may
// carry DTSTART; an explicit one in the rule wins over the argument.
func Parse(rule string, dtstart time.Time) (*rrule.RRule, error) {
	rule = strings.TrimSpace(rule)
	if rule == "" {
		return nil, ErrEmptyRule
	}
	opt, err := rrule.StrToROption(rule)
	if err != nil {
		return nil, fmt.Errorf("parse rrule %q: %w", rule, err)
	}
	if opt.Dtstart.IsZero() {
		opt.Dtstart = dtstart.UTC()
	}
	r, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, fmt.Errorf("build rrule %q: %w", rule, err)
	}
	return r, nil
}

// OccurrencesBetween returns every occurrence of rule inside [from, to),
// anchored at dtstart.
func OccurrencesBetween(rule string, dtstart, from, to time.Time) ([]time.Time, error) {
	r, err := Parse(rule, dtstart)
	if err != nil {
		return nil, err
	}
	return r.Between(from.UTC(), to.UTC().Add(-time.Nanosecond), true), nil
}
