package schema

import "fmt"

// Code classifies a single violation.
type Code uint8

const (
	CodeMissingField Code = iota + 1
	CodeWrongKind
	CodeTooShort
	CodeTooLong
	CodeNotInEnum
	CodeOutOfRange
	CodeNotInteger
	CodeUnknownField
)

func (c Code) String() string {
	switch c {
	case CodeMissingField:
		return "missing_field"
	case CodeWrongKind:
		return "wrong_kind"
	case CodeTooShort:
		return "too_short"
	case CodeTooLong:
		return "too_long"
	case CodeNotInEnum:
		return "not_in_enum"
	case CodeOutOfRange:
		return "out_of_range"
	case CodeNotInteger:
		return "not_integer"
	case CodeUnknownField:
		return "unknown_field"
	default:
		return "unknown"
	}
}

// Violation is one point of divergence between a parsed document and its
// descriptor: where it happened, what was expected, what was found.
type Violation struct {
	// Path within the document, e.g. "sections[2].title". Empty for the root.
	Path string `json:"path"`
	Code Code   `json:"-"`
	// CodeName is the stable string form of Code for JSON output.
	CodeName string `json:"code"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	// MinLen carries the bound for too-short violations so messages and
	// suggestions can name it.
	MinLen int `json:"-"`
}

func (v Violation) String() string {
	p := v.Path
	if p == "" {
		p = "(root)"
	}
	return fmt.Sprintf("%s: expected %s, got %s", p, v.Expected, v.Actual)
}
