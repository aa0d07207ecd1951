// Package validate holds the field rules for event records. The same rules run
// in the form before submission and in the reference API before persisting.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/model"
	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/wallclock"
)

// DefaultGrace keeps the value the user just picked from failing the future
// check while the request is in flight.
const DefaultGrace = 5 * time.Second

const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldOccursAt    = "occursAt"
	FieldLocation    = "location"
	FieldID          = "id"
)

var wireNames = map[string]string{
	FieldTitle:       "titulo",
	FieldDescription: "descricao",
	FieldOccursAt:    "dataHora",
	FieldLocation:    "local",
	FieldID:          "id",
}

// WireName maps a form field to its API name.
func WireName(field string) string {
	if w, ok := wireNames[field]; ok {
		return w
	}
	return field
}

// FormName maps an API field name back to the form field.
func FormName(wire string) string {
	for f, w := range wireNames {
		if w == wire {
			return f
		}
	}
	return wire
}

// Candidate is the form as typed. OccursAt is the datetime-local input value.
type Candidate struct {
	Title       string `form:"title" validate:"required,max=100"`
	Description string `form:"description" validate:"max=1000"`
	OccursAt    string `form:"occursAt" validate:"required,wallclock,future"`
	Location    string `form:"location" validate:"required,max=200"`
}

// CandidateFrom converts an API input back into form values.
func CandidateFrom(in model.EventInput) Candidate {
	c := Candidate{
		Title:       in.Title,
		Description: in.Description,
		Location:    in.Location,
	}
	if !in.OccursAt.IsZero() {
		c.OccursAt = in.OccursAt.Input()
	}
	return c
}

// Violation is one failed rule on one field.
type Violation struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError lists every violation found; it is never returned empty.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Field+": "+v.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Field returns the violation on field, if any.
func (e *ValidationError) Field(field string) (Violation, bool) {
	for _, v := range e.Violations {
		if v.Field == field {
			return v, true
		}
	}
	return Violation{}, false
}

// Messages returns field -> message.
func (e *ValidationError) Messages() map[string]string {
	m := make(map[string]string, len(e.Violations))
	for _, v := range e.Violations {
		m[v.Field] = v.Message
	}
	return m
}

// Validator checks candidates against the event rules using one clock.
type Validator struct {
	v     *validator.Validate
	clock wallclock.Clock
	grace time.Duration
}

// New creates a Validator. A nil clock uses the system clock.
func New(clock wallclock.Clock) *Validator {
	if clock == nil {
		clock = wallclock.SystemClock
	}
	val := &Validator{
		v:     validator.New(validator.WithRequiredStructEnabled()),
		clock: clock,
		grace: DefaultGrace,
	}
	val.v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("form"); name != "" {
			return name
		}
		return f.Name
	})
	// Registration only fails on an empty tag or nil func.
	_ = val.v.RegisterValidation("wallclock", validWallclock)
	_ = val.v.RegisterValidation("future", val.validFuture)
	return val
}

// WithGrace returns a copy using a different grace window.
func (val *Validator) WithGrace(d time.Duration) *Validator {
	cp := *val
	cp.grace = d
	return &cp
}

// Clock returns the clock the future rule is evaluated against.
func (val *Validator) Clock() wallclock.Clock {
	return val.clock
}

// Validate returns nil or a *ValidationError with every failing field.
func (val *Validator) Validate(c Candidate) error {
	err := val.v.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate candidate: %w", err)
	}
	out := &ValidationError{Violations: make([]Violation, 0, len(verrs))}
	for _, fe := range verrs {
		out.Violations = append(out.Violations, Violation{
			Field:   fe.Field(),
			Rule:    fe.Tag(),
			Message: message(fe.Field(), fe.Tag(), fe.Param()),
		})
	}
	return out
}

// ValidateInput applies the rules to an API request body.
func (val *Validator) ValidateInput(in model.EventInput) error {
	return val.Validate(CandidateFrom(in))
}

// ParseID accepts a typed record id: a positive base-10 integer written
// with digits only.
func ParseID(s string) (int64, error) {
	s = strings.TrimSpace(s)
	var id int64
	var err error
	if s == "" || s[0] < '0' || s[0] > '9' {
		err = strconv.ErrSyntax
	} else {
		id, err = strconv.ParseInt(s, 10, 64)
	}
	if err != nil || id <= 0 {
		return 0, &ValidationError{Violations: []Violation{{
			Field:   FieldID,
			Rule:    "positive",
			Message: "Enter a valid event ID (a positive whole number).",
		}}}
	}
	return id, nil
}

func validWallclock(fl validator.FieldLevel) bool {
	_, err := wallclock.ParseInput(fl.Field().String())
	return err == nil
}

func (val *Validator) validFuture(fl validator.FieldLevel) bool {
	d, err := wallclock.ParseInput(fl.Field().String())
	if err != nil {
		// reported by the wallclock rule
		return true
	}
	now := val.clock.Now()
	return d.In(now.Location()).After(now.Add(val.grace))
}

var labels = map[string]string{
	FieldTitle:       "Title",
	FieldDescription: "Description",
	FieldOccursAt:    "Date and time",
	FieldLocation:    "Location",
}

func message(field, rule, param string) string {
	label := labels[field]
	if label == "" {
		label = field
	}
	switch rule {
	case "required":
		return label + " is required."
	case "max":
		return fmt.Sprintf("%s must be at most %s characters.", label, param)
	case "wallclock":
		return label + " is not a valid date and time."
	case "future":
		return label + " must be in the future."
	default:
		return label + " is invalid."
	}
}
