package pricing

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// Mode selects which composition field is authoritative.
type Mode string

const (
	ModeSNF Mode = "snf"
	ModeCLR Mode = "clr"
)

// Valid reports whether m is a known composition mode.
func (m Mode) Valid() bool {
	return m == ModeSNF || m == ModeCLR
}

// Field names, as reported in validation errors and accepted by Inputs.With.
const (
	FieldQuantity = "quantity"
	FieldRate     = "rate"
	FieldFat      = "fat"
	FieldSNF      = "snf"
	FieldCLR      = "clr"
)

// fieldPlaces is the number of decimal digits kept as the user types.
var fieldPlaces = map[string]int32{
	FieldFat: 1,
	FieldSNF: 1,
	FieldCLR: 2,
}

// Inputs is a snapshot of the calculator form, holding the raw text of each
// field. Methods return a new snapshot and never modify the receiver.
type Inputs struct {
	Quantity string `json:"quantity"`
	Rate     string `json:"rate"`
	Fat      string `json:"fat"`
	Mode     Mode   `json:"mode,omitempty"`
	SNF      string `json:"snf"`
	CLR      string `json:"clr"`
}

func (in Inputs) mode() Mode {
	if in.Mode == "" {
		return ModeSNF
	}
	return in.Mode
}

// With returns a copy of in with field set to value after applying
// FormatField.
func (in Inputs) With(field, value string) (Inputs, error) {
	value = FormatField(field, value)
	switch field {
	case FieldQuantity:
		in.Quantity = value
	case FieldRate:
		in.Rate = value
	case FieldFat:
		in.Fat = value
	case FieldSNF:
		in.SNF = value
	case FieldCLR:
		in.CLR = value
	default:
		return in, fmt.Errorf("unknown input field %q", field)
	}
	return in, nil
}

// WithMode returns a copy of in switched to mode m, with the composition
// field of the other mode cleared.
func (in Inputs) WithMode(m Mode) (Inputs, error) {
	if !m.Valid() {
		return in, fmt.Errorf("%w: %q", ErrUnknownMode, m)
	}
	in.Mode = m
	switch m {
	case ModeSNF:
		in.CLR = ""
	case ModeCLR:
		in.SNF = ""
	}
	return in, nil
}

// DerivedSNF previews the SNF derived from the CLR field. It reports false
// outside CLR mode or while the CLR field is empty or incomplete. An
// unparseable fat counts as zero, matching what the form shows while typing.
func (in Inputs) DerivedSNF() (decimal.Decimal, bool) {
	if in.mode() != ModeCLR {
		return decimal.Zero, false
	}
	clr, err := parseComplete(in.CLR)
	if err != nil {
		return decimal.Zero, false
	}
	fat, err := parseComplete(in.Fat)
	if err != nil {
		fat = decimal.Zero
	}
	return DeriveSNFFromCLR(clr, fat), true
}

// FormatField applies the per-field precision policy to raw form text. Fat and
// SNF keep one digit after the first decimal point and CLR keeps two; extra
// characters are cut off, never rounded. Other text is returned unchanged,
// including text ending in a decimal point.
func FormatField(field, value string) string {
	places, ok := fieldPlaces[field]
	if !ok || value == "" || strings.HasSuffix(value, ".") {
		return value
	}
	runes := []rune(value)
	dot := slices.Index(runes, '.')
	if dot < 0 || len(runes) <= dot+1+int(places) {
		return value
	}
	return string(runes[:dot+1+int(places)])
}

// Digit bounds for a form value.
const (
	maxIntegerDigits  = 12
	maxFractionDigits = 10
)

var (
	errIncomplete  = errors.New("incomplete number")
	errUnsupported = errors.New("unsupported number format")
)

// parseComplete parses a complete plain decimal number. Empty text, a
// trailing decimal point and non-numbers give errIncomplete. Exponent
// notation and values beyond the digit bounds give errUnsupported.
func parseComplete(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" || strings.HasSuffix(s, ".") {
		return decimal.Zero, errIncomplete
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errIncomplete
	}
	if !plainDecimal(s) {
		return decimal.Zero, errUnsupported
	}
	return d, nil
}

func plainDecimal(s string) bool {
	if s[0] == '-' || s[0] == '+' {
		s = s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	if len(whole) > maxIntegerDigits || len(frac) > maxFractionDigits {
		return false
	}
	return onlyDigits(whole) && onlyDigits(frac)
}

func onlyDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
