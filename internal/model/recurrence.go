package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type RecurrenceKind string

const (
	RecurNone      RecurrenceKind = "none"
	RecurInterval  RecurrenceKind = "interval"
	RecurFrequency RecurrenceKind = "frequency"
)

type Unit string

const (
	UnitDay   Unit = "day"
	UnitWeek  Unit = "week"
	UnitMonth Unit = "month"
)

// Recurrence describes how a task repeats. Interval tasks come back a fixed
// time after each completion; frequency tasks need Amount completions within
// one rolling Unit.
type Recurrence struct {
	Kind   RecurrenceKind `gorm:"type:varchar(16);default:none" json:"kind"`
	Amount int            `json:"amount,omitempty"`
	Unit   Unit           `gorm:"type:varchar(8)" json:"unit,omitempty"`
}

func NoRecurrence() Recurrence { return Recurrence{Kind: RecurNone} }

func Every(amount int, unit Unit) Recurrence {
	return Recurrence{Kind: RecurInterval, Amount: amount, Unit: unit}
}

func TimesPer(amount int, unit Unit) Recurrence {
	return Recurrence{Kind: RecurFrequency, Amount: amount, Unit: unit}
}

func (r Recurrence) IsNone() bool {
	return r.Kind == "" || r.Kind == RecurNone
}

func (r Recurrence) Validate() error {
	switch r.Kind {
	case "", RecurNone:
		return nil
	case RecurInterval, RecurFrequency:
	default:
		return Validationf("unknown recurrence kind %q", r.Kind)
	}
	if r.Amount < 1 {
		return Validationf("recurrence amount must be at least 1, got %d", r.Amount)
	}
	switch r.Unit {
	case UnitDay, UnitWeek, UnitMonth:
		return nil
	default:
		return Validationf("unknown recurrence unit %q", r.Unit)
	}
}

func (r Recurrence) String() string {
	switch r.Kind {
	case RecurInterval:
		if r.Amount == 1 {
			return "every " + string(r.Unit)
		}
		return fmt.Sprintf("every %d %ss", r.Amount, r.Unit)
	case RecurFrequency:
		return fmt.Sprintf("%d per %s", r.Amount, r.Unit)
	default:
		return "none"
	}
}

// ParseRecurrence reads the compact chat syntax: "none", "every 3 days",
// "every week", "2 per week", "3 times per month".
func ParseRecurrence(raw string) (Recurrence, error) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(raw)))
	if len(fields) == 0 || (len(fields) == 1 && fields[0] == "none") {
		return NoRecurrence(), nil
	}

	var r Recurrence
	switch {
	case fields[0] == "every":
		r.Kind = RecurInterval
		fields = fields[1:]
		if len(fields) == 1 {
			unit, err := parseUnit(fields[0])
			if err != nil {
				return Recurrence{}, err
			}
			r.Amount, r.Unit = 1, unit
			return r, r.Validate()
		}
		if len(fields) != 2 {
			return Recurrence{}, Validationf("cannot parse recurrence %q", raw)
		}
	case (len(fields) == 3 && fields[1] == "per") || (len(fields) == 4 && fields[1] == "times" && fields[2] == "per"):
		r.Kind = RecurFrequency
		fields = []string{fields[0], fields[len(fields)-1]}
	default:
		return Recurrence{}, Validationf("cannot parse recurrence %q", raw)
	}

	amount, err := strconv.Atoi(fields[0])
	if err != nil {
		return Recurrence{}, Validationf("recurrence amount %q is not a number", fields[0])
	}
	unit, err := parseUnit(fields[1])
	if err != nil {
		return Recurrence{}, err
	}
	r.Amount, r.Unit = amount, unit
	return r, r.Validate()
}

// UnmarshalJSON accepts either the object form or the compact string form.
func (r *Recurrence) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		parsed, err := ParseRecurrence(text)
		if err != nil {
			return err
		}
		*r = parsed
		return nil
	}
	type plain Recurrence
	var obj plain
	if err := json.Unmarshal(data, &obj); err != nil {
		return Validationf("cannot decode recurrence: %v", err)
	}
	*r = Recurrence(obj)
	if r.Kind == "" {
		r.Kind = RecurNone
	}
	return r.Validate()
}

func parseUnit(raw string) (Unit, error) {
	switch strings.TrimSuffix(raw, "s") {
	case "day":
		return UnitDay, nil
	case "week":
		return UnitWeek, nil
	case "month":
		return UnitMonth, nil
	default:
		return "", Validationf("unknown recurrence unit %q", raw)
	}
}
