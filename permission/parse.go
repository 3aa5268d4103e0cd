package permission

import (
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidBits is matched by every parse and range failure.
var ErrInvalidBits = errors.New("invalid permission bits")

// RangeError reports a value that does not describe a valid mask.
type RangeError struct {
	Value string
}

func (e *RangeError) Error() string {
	return "invalid permission bits: " + strconv.Quote(e.Value)
}

func (e *RangeError) Unwrap() error { return ErrInvalidBits }

var byName = map[string]Bits{
	"read":   Read,
	"create": Create,
	"update": Update,
	"delete": Delete,
}

// Parse accepts a decimal mask ("0" to "15"), a canonical round name ("Full Access",
// "Read Only", "Read/Write", "No Access"), or capability names separated by commas
// or pipes ("read|create", "Read, Delete"). Matching is case-insensitive.
func Parse(s string) (Bits, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return None, &RangeError{Value: s}
	}

	if n, err := strconv.Atoi(trimmed); err == nil {
		return FromInt(n)
	}

	for bits, name := range roundNames {
		if strings.EqualFold(trimmed, name) {
			return bits, nil
		}
	}

	var out Bits
	fields := strings.FieldsFunc(trimmed, func(r rune) bool { return r == ',' || r == '|' })
	if len(fields) == 0 {
		return None, &RangeError{Value: s}
	}
	for _, f := range fields {
		bit, ok := byName[strings.ToLower(strings.TrimSpace(f))]
		if !ok {
			return None, &RangeError{Value: s}
		}
		out |= bit
	}
	return out, nil
}

// MustParse is like Parse but panics on error. Intended for static tables.
func MustParse(s string) Bits {
	b, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return b
}
