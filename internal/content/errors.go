package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"

	"github.com/commonshub/commonshub-web/internal/schema"
)

// ErrorKind classifies a load failure. Every failure maps to exactly one kind.
type ErrorKind int

const (
	// NotFound means the file does not exist under the content root.
	NotFound ErrorKind = iota + 1
	// ParseFailure means the file exists but is not well-formed JSON.
	ParseFailure
	// ShapeMismatch means the file parsed but violates its descriptor.
	ShapeMismatch
	// Unknown covers every other I/O or runtime failure.
	Unknown
)

func (k ErrorKind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case ParseFailure:
		return "parse_failure"
	case ShapeMismatch:
		return "shape_mismatch"
	case Unknown:
		return "unknown"
	default:
		return "unknown"
	}
}

// LoadError is a classified content load failure. It carries the
// originating filename, a violation list for shape mismatches, and
// deduplicated remediation suggestions for operators.
type LoadError struct {
	Kind        ErrorKind          `json:"kind"`
	Filename    string             `json:"filename"`
	Msg         string             `json:"message"`
	Violations  []schema.Violation `json:"violations,omitempty"`
	Suggestions []string           `json:"suggestions,omitempty"`

	cause error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %s: %s", e.Filename, e.Kind, e.Msg)
}

func (e *LoadError) Unwrap() error { return e.cause }

func notFoundError(filename string, cause error) *LoadError {
	return &LoadError{
		Kind:     NotFound,
		Filename: filename,
		Msg:      "file not found under content root",
		Suggestions: []string{
			"check the filename spelling",
			"confirm the file exists under the content root",
		},
		cause: cause,
	}
}

func parseError(filename string, cause error) *LoadError {
	return &LoadError{
		Kind:     ParseFailure,
		Filename: filename,
		Msg:      "invalid JSON: " + cause.Error(),
		Suggestions: []string{
			"check for unquoted strings or trailing commas",
			"run the file through a JSON linter before committing",
		},
		cause: cause,
	}
}

func shapeError(filename string, violations []schema.Violation) *LoadError {
	return &LoadError{
		Kind:        ShapeMismatch,
		Filename:    filename,
		Msg:         fmt.Sprintf("%d shape violation(s)", len(violations)),
		Violations:  violations,
		Suggestions: suggestions(violations),
	}
}

func unknownError(filename string, cause error) *LoadError {
	return &LoadError{
		Kind:     Unknown,
		Filename: filename,
		Msg:      cause.Error(),
		cause:    cause,
	}
}

// classifyRead maps a file-read error to a LoadError kind.
func classifyRead(filename string, err error) *LoadError {
	if errors.Is(err, fs.ErrNotExist) {
		return notFoundError(filename, err)
	}
	return unknownError(filename, err)
}

// classifyParse maps a JSON decode error to a LoadError kind. Syntax and
// type errors from the decoder are parse failures; anything else is unknown.
func classifyParse(filename string, err error) *LoadError {
	var syn *json.SyntaxError
	var typ *json.UnmarshalTypeError
	if errors.As(err, &syn) || errors.As(err, &typ) {
		return parseError(filename, err)
	}
	return unknownError(filename, err)
}
