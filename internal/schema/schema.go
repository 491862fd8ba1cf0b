// Package schema declares shape descriptors for JSON content documents and
// checks parsed documents against them.
//
// A Descriptor is a static, declarative description of a document's expected
// shape: field names, kinds, optionality, enumerated value sets, string
// length and numeric range constraints, and nested object/array shapes.
// Descriptors are built once at process startup and never mutated.
//
// Checking walks the descriptor depth-first against the parsed value and
// collects every divergence as a [Violation] instead of stopping at the
// first, so a single pass surfaces all problems in a document.
package schema

// Kind identifies the expected JSON kind of a value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindString
	KindNumber
	KindInteger
	KindBool
	KindObject
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindInteger:
		return "integer"
	case KindBool:
		return "boolean"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return "invalid"
	}
}

// Descriptor describes the expected shape of a JSON value. Only the
// constraint fields matching Kind are consulted.
type Descriptor struct {
	Kind Kind

	// object shape
	Fields []Field
	// AllowExtra permits fields beyond those listed. Default is strict:
	// unknown fields are violations.
	AllowExtra bool

	// array element shape
	Elem *Descriptor

	// string constraints; MaxLen 0 means unbounded
	MinLen int
	MaxLen int
	// Enum restricts a string to the given values
	Enum []string

	// numeric bounds, inclusive
	Min *float64
	Max *float64
}

// Field is one named member of an object shape.
type Field struct {
	Name     string
	Optional bool
	Schema   *Descriptor
}

// Constructors below keep descriptor tables readable. They return fresh
// values so callers can tweak constraints without sharing state.

func String() *Descriptor  { return &Descriptor{Kind: KindString} }
func Number() *Descriptor  { return &Descriptor{Kind: KindNumber} }
func Integer() *Descriptor { return &Descriptor{Kind: KindInteger} }
func Bool() *Descriptor    { return &Descriptor{Kind: KindBool} }

// StringMin returns a string descriptor with a minimum length.
func StringMin(n int) *Descriptor { return &Descriptor{Kind: KindString, MinLen: n} }

// Enum returns a string descriptor restricted to the given values.
func Enum(values ...string) *Descriptor { return &Descriptor{Kind: KindString, Enum: values} }

// NumberRange returns a number descriptor with inclusive bounds.
func NumberRange(min, max float64) *Descriptor {
	return &Descriptor{Kind: KindNumber, Min: &min, Max: &max}
}

// Object returns an object descriptor with the given fields. Unknown
// fields are violations unless AllowExtra is set afterwards.
func Object(fields ...Field) *Descriptor { return &Descriptor{Kind: KindObject, Fields: fields} }

// Array returns an array descriptor whose elements match elem.
func Array(elem *Descriptor) *Descriptor { return &Descriptor{Kind: KindArray, Elem: elem} }

// Req declares a required field.
func Req(name string, d *Descriptor) Field { return Field{Name: name, Schema: d} }

// Opt declares an optional field.
func Opt(name string, d *Descriptor) Field { return Field{Name: name, Optional: true, Schema: d} }
