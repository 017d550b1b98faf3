package internal

import (
	"errors"
	"strconv"
)

// Package-level error sentinels. Callers check these with errors.Is;
// each is wrapped with offending-value context at the call site.
var (
	// ErrInvalidPosition is returned by Sheet operations given a
	// Position outside [0, Max).
	ErrInvalidPosition = errors.New("invalid position")
	// ErrCircularDependency is returned by Sheet.SetCell when
	// installing the edit would introduce a cycle in the reference
	// graph.
	ErrCircularDependency = errors.New("circular dependency detected")
	// ErrParseFormula is returned by ParseFormula, and in turn by
	// Cell.Set, when '='-prefixed text is not a well-formed formula.
	ErrParseFormula = errors.New("formula parse error")
	// ErrParsePosition is returned by ParsePosition when its argument
	// is not a well-formed A1-style address.
	ErrParsePosition = errors.New("could not parse cell address")
)

// ErrorCategory classifies a FormulaError. The category is preserved
// verbatim through propagation: a Ref error raised deep in a reference
// chain surfaces as Ref at the top, never recast as Value or Div0.
type ErrorCategory uint8

const (
	// ErrRef marks a reference to a position outside [0, Max).
	ErrRef ErrorCategory = iota
	// ErrValue marks a text operand that cannot be coerced to a number.
	ErrValue
	// ErrDiv0 marks division (or an equivalent arithmetic failure) by
	// zero.
	ErrDiv0
)

// FormulaError is a value-typed classification of an evaluation
// failure. It is embedded in a CellValue rather than thrown across the
// public Sheet API.
type FormulaError struct {
	Category ErrorCategory
}

// NewFormulaError constructs a FormulaError of the given category.
func NewFormulaError(cat ErrorCategory) *FormulaError {
	return &FormulaError{Category: cat}
}

// ToString renders the category-specific token used when printing
// values: "#REF!", "#VALUE!", "#DIV/0!".
func (e *FormulaError) ToString() string {
	switch e.Category {
	case ErrRef:
		return "#REF!"
	case ErrValue:
		return "#VALUE!"
	case ErrDiv0:
		return "#DIV/0!"
	default:
		return "#ERROR!"
	}
}

// Error implements the standard error interface so a FormulaError can
// be used anywhere Go code expects an error (e.g. errors.As in tests).
func (e *FormulaError) Error() string {
	return e.ToString()
}

// CellValueKind tags which variant a CellValue currently holds.
type CellValueKind uint8

const (
	KindNumber CellValueKind = iota
	KindText
	KindError
)

// CellValue is a tagged union holding exactly one of a Number, a Text,
// or an Error.
type CellValue struct {
	Kind   CellValueKind
	Number float64
	Text   string
	Err    *FormulaError
}

// NumberValue constructs a Number-kind CellValue.
func NumberValue(n float64) CellValue {
	return CellValue{Kind: KindNumber, Number: n}
}

// TextValue constructs a Text-kind CellValue.
func TextValue(s string) CellValue {
	return CellValue{Kind: KindText, Text: s}
}

// ErrorValue constructs an Error-kind CellValue.
func ErrorValue(e *FormulaError) CellValue {
	return CellValue{Kind: KindError, Err: e}
}

// String renders the value the way Sheet.Print* does: numbers via Go's
// default decimal rendering, text as-is, errors as their category
// token.
func (v CellValue) String() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Number, 'g', -1, 64)
	case KindText:
		return v.Text
	case KindError:
		return v.Err.ToString()
	default:
		return ""
	}
}

// AsNumber coerces v to a float64 for use as a formula operand: Number
// passes through, Text is parsed as a decimal or raises a Value error,
// Error propagates its category verbatim.
func (v CellValue) AsNumber() (float64, *FormulaError) {
	switch v.Kind {
	case KindNumber:
		return v.Number, nil
	case KindText:
		n, err := strconv.ParseFloat(v.Text, 64)
		if err != nil {
			return 0, NewFormulaError(ErrValue)
		}
		return n, nil
	case KindError:
		return 0, v.Err
	default:
		return 0, nil
	}
}
