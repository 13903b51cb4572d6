package pricing

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrUnknownMode is returned for a composition mode other than snf or clr.
var ErrUnknownMode = errors.New("unknown composition mode")

// ValidationError lists the inputs that stopped a calculation. Missing holds
// fields that are empty or not a complete number; Invalid holds fields whose
// value is out of range or not a plain decimal.
type ValidationError struct {
	Missing []string
	Invalid []string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required fields: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "fields out of range: "+strings.Join(e.Invalid, ", "))
	}
	return "invalid calculation inputs: " + strings.Join(parts, "; ")
}

var maxPercent = decimal.NewFromInt(100)

// validator collects field problems so a single error reports all of them.
type validator struct {
	missing []string
	invalid []string
}

// parse records field as missing when raw is not a complete number, and as
// invalid when it is written in a form the calculator does not accept.
func (v *validator) parse(field, raw string) (decimal.Decimal, bool) {
	d, err := parseComplete(raw)
	switch {
	case errors.Is(err, errUnsupported):
		v.invalid = append(v.invalid, field)
	case err != nil:
		v.missing = append(v.missing, field)
	}
	return d, err == nil
}

func (v *validator) number(field, raw string) decimal.Decimal {
	d, _ := v.parse(field, raw)
	return d
}

func (v *validator) positive(field, raw string) decimal.Decimal {
	d, ok := v.parse(field, raw)
	if ok && !d.IsPositive() {
		v.invalid = append(v.invalid, field)
	}
	return d
}

func (v *validator) percent(field, raw string) decimal.Decimal {
	d, ok := v.parse(field, raw)
	if ok && (d.IsNegative() || d.GreaterThan(maxPercent)) {
		v.invalid = append(v.invalid, field)
	}
	return d
}

func (v *validator) err() error {
	if len(v.missing) == 0 && len(v.invalid) == 0 {
		return nil
	}
	return &ValidationError{Missing: v.missing, Invalid: v.invalid}
}

// IsValidationError reports whether err carries a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
