package fudi

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies the type of an Atom.
type Kind int

const (
	// KindString is a symbol atom.
	KindString Kind = iota
	// KindInt is an integer atom.
	KindInt
	// KindFloat is a floating-point atom. Decode never produces it; see Parse.
	KindFloat
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	default:
		return "string"
	}
}

// Atom is one immutable value inside a message.
type Atom struct {
	kind Kind
	i    int64
	f    float64
	s    string
}

// Int returns an integer atom.
func Int(v int64) Atom {
	return Atom{kind: KindInt, i: v}
}

// Float returns a floating-point atom.
func Float(v float64) Atom {
	return Atom{kind: KindFloat, f: v}
}

// String returns a symbol atom.
func String(v string) Atom {
	return Atom{kind: KindString, s: v}
}

// Kind returns the atom's type.
func (a Atom) Kind() Kind {
	return a.kind
}

// Int returns the integer value and whether the atom is an Int.
func (a Atom) Int() (int64, bool) {
	return a.i, a.kind == KindInt
}

// Float returns the float value and whether the atom is a Float.
func (a Atom) Float() (float64, bool) {
	return a.f, a.kind == KindFloat
}

// Text returns the atom's wire representation.
func (a Atom) Text() string {
	switch a.kind {
	case KindInt:
		return strconv.FormatInt(a.i, 10)
	case KindFloat:
		return formatFloat(a.f)
	default:
		return a.s
	}
}

// String implements fmt.Stringer using the wire representation.
func (a Atom) String() string {
	return a.Text()
}

// formatFloat renders integral values with a trailing ".0" so that 2.0 goes
// out as "2.0" rather than "2"; a Pd peer would otherwise read it as an int.
func formatFloat(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}

	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}

	return s
}

// Classify reports the kind a token would be inferred as.
func Classify(token string) Kind {
	if isInteger(token) {
		if _, err := strconv.ParseInt(token, 10, 64); err == nil {
			return KindInt
		}
	}

	if _, err := strconv.ParseFloat(token, 64); err == nil || errors.Is(err, strconv.ErrRange) {
		return KindFloat
	}

	return KindString
}

// Parse infers an atom from a decoded token.
//
// Float-looking tokens are returned as String atoms holding the original text.
// This passthrough is deliberate: downstream consumers receive "2.0" exactly as
// the peer spelled it.
func Parse(token string) Atom {
	if Classify(token) == KindInt {
		v, _ := strconv.ParseInt(token, 10, 64)

		return Int(v)
	}

	return String(token)
}

func isInteger(token string) bool {
	if token == "" {
		return false
	}

	if token[0] == '+' || token[0] == '-' {
		token = token[1:]
	}

	if token == "" {
		return false
	}

	for i := 0; i < len(token); i++ {
		if token[i] < '0' || token[i] > '9' {
			return false
		}
	}

	return true
}

// FromValue converts a Go value into an atom.
//
// Supported: Atom, string, all signed and unsigned integer types, float32 and
// float64, and fmt.Stringer (sent as a symbol).
func FromValue(v any) (Atom, error) {
	switch x := v.(type) {
	case Atom:
		return x, nil
	case string:
		return String(x), nil
	case int:
		return Int(int64(x)), nil
	case int8:
		return Int(int64(x)), nil
	case int16:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case uint:
		return fromUint(uint64(x))
	case uint8:
		return Int(int64(x)), nil
	case uint16:
		return Int(int64(x)), nil
	case uint32:
		return Int(int64(x)), nil
	case uint64:
		return fromUint(x)
	case float32:
		return Float(float64(x)), nil
	case float64:
		return Float(x), nil
	case fmt.Stringer:
		return String(x.String()), nil
	default:
		return Atom{}, fmt.Errorf("unsupported atom type %T", v)
	}
}

func fromUint(v uint64) (Atom, error) {
	if v > math.MaxInt64 {
		return Atom{}, fmt.Errorf("integer atom %d overflows int64", v)
	}

	return Int(int64(v)), nil
}

// FromValues converts each value with FromValue.
func FromValues(values ...any) ([]Atom, error) {
	atoms := make([]Atom, 0, len(values))

	for i, v := range values {
		a, err := FromValue(v)
		if err != nil {
			return nil, fmt.Errorf("atom %d: %w", i, err)
		}

		atoms = append(atoms, a)
	}

	return atoms, nil
}
