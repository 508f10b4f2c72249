package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// OptionValue is a canonical option value.
//
// Values arrive as JSON strings or numbers. Strings are trimmed; numbers are
// rendered in their shortest exact decimal form, so 2, 2.0 and "2" are all the
// value "2" while "2.0" (a string) stays "2.0".
type OptionValue string

// UnmarshalJSON accepts a JSON string or number.
func (v *OptionValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = OptionValue(strings.TrimSpace(s))
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("%w: value must be a string or a number", ErrInvalidOption)
	}
	canonical, err := CanonicalNumber(n.String())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOption, err)
	}
	*v = OptionValue(canonical)
	return nil
}

// CanonicalNumber renders a numeric literal in its shortest exact form.
func CanonicalNumber(literal string) (string, error) {
	d, err := decimal.NewFromString(literal)
	if err != nil {
		return "", fmt.Errorf("invalid numeric option value %q: %w", literal, err)
	}
	return d.String(), nil
}

// Options maps option name to selected value.
type Options map[string]OptionValue

// UnmarshalJSON decodes the options and trims option names. Two names that
// trim to the same name are rejected.
func (o *Options) UnmarshalJSON(data []byte) error {
	var raw map[string]OptionValue
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*o = nil
		return nil
	}
	out := make(Options, len(raw))
	for name, value := range raw {
		name = strings.TrimSpace(name)
		if _, dup := out[name]; dup {
			return fmt.Errorf("%w: duplicate option %q", ErrInvalidOption, name)
		}
		out[name] = value
	}
	*o = out
	return nil
}

// Signature returns the order-independent identity of the selection.
// Two selections are the same line iff their signatures are equal.
func (o Options) Signature() string {
	if len(o) == 0 {
		return "{}"
	}
	// encoding/json writes map keys in sorted order.
	b, err := json.Marshal(map[string]OptionValue(o))
	if err != nil {
		// map[string]string-kind values always marshal.
		panic(err)
	}
	return string(b)
}
