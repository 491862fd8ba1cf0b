package schema

import (
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Check walks the descriptor depth-first against a parsed JSON value and
// returns every violation found. A nil or empty result means the value
// conforms fully. Check never mutates the value and holds no state between
// calls.
func (d *Descriptor) Check(v any) []Violation {
	var out []Violation
	d.check("", v, &out)
	return out
}

func (d *Descriptor) check(path string, v any, out *[]Violation) {
	switch d.Kind {
	case KindString:
		s, ok := v.(string)
		if !ok {
			*out = append(*out, wrongKind(path, d.Kind.String(), v))
			return
		}
		d.checkString(path, s, out)

	case KindNumber, KindInteger:
		f, ok := v.(float64)
		if !ok {
			*out = append(*out, wrongKind(path, d.Kind.String(), v))
			return
		}
		d.checkNumber(path, f, out)

	case KindBool:
		if _, ok := v.(bool); !ok {
			*out = append(*out, wrongKind(path, d.Kind.String(), v))
		}

	case KindObject:
		m, ok := v.(map[string]any)
		if !ok {
			*out = append(*out, wrongKind(path, d.Kind.String(), v))
			return
		}
		d.checkObject(path, m, out)

	case KindArray:
		a, ok := v.([]any)
		if !ok {
			*out = append(*out, wrongKind(path, d.Kind.String(), v))
			return
		}
		if d.Elem == nil {
			return
		}
		for i, el := range a {
			d.Elem.check(path+"["+strconv.Itoa(i)+"]", el, out)
		}
	}
}

func (d *Descriptor) checkString(path, s string, out *[]Violation) {
	n := len([]rune(s))
	if d.MinLen > 0 && n < d.MinLen {
		*out = append(*out, Violation{
			Path:     path,
			Code:     CodeTooShort,
			CodeName: CodeTooShort.String(),
			Expected: fmt.Sprintf("string of at least %d characters", d.MinLen),
			Actual:   fmt.Sprintf("string of %d characters", n),
			MinLen:   d.MinLen,
		})
	}
	if d.MaxLen > 0 && n > d.MaxLen {
		*out = append(*out, Violation{
			Path:     path,
			Code:     CodeTooLong,
			CodeName: CodeTooLong.String(),
			Expected: fmt.Sprintf("string of at most %d characters", d.MaxLen),
			Actual:   fmt.Sprintf("string of %d characters", n),
		})
	}
	if len(d.Enum) > 0 {
		found := false
		for _, e := range d.Enum {
			if s == e {
				found = true
				break
			}
		}
		if !found {
			*out = append(*out, Violation{
				Path:     path,
				Code:     CodeNotInEnum,
				CodeName: CodeNotInEnum.String(),
				Expected: "one of " + strconv.Quote(joinEnum(d.Enum)),
				Actual:   strconv.Quote(s),
			})
		}
	}
}

func (d *Descriptor) checkNumber(path string, f float64, out *[]Violation) {
	if d.Kind == KindInteger && f != math.Trunc(f) {
		*out = append(*out, Violation{
			Path:     path,
			Code:     CodeNotInteger,
			CodeName: CodeNotInteger.String(),
			Expected: "integer",
			Actual:   formatNumber(f),
		})
	}
	if d.Min != nil && f < *d.Min {
		*out = append(*out, Violation{
			Path:     path,
			Code:     CodeOutOfRange,
			CodeName: CodeOutOfRange.String(),
			Expected: fmt.Sprintf("number >= %s", formatNumber(*d.Min)),
			Actual:   formatNumber(f),
		})
	}
	if d.Max != nil && f > *d.Max {
		*out = append(*out, Violation{
			Path:     path,
			Code:     CodeOutOfRange,
			CodeName: CodeOutOfRange.String(),
			Expected: fmt.Sprintf("number <= %s", formatNumber(*d.Max)),
			Actual:   formatNumber(f),
		})
	}
}

func (d *Descriptor) checkObject(path string, m map[string]any, out *[]Violation) {
	known := make(map[string]bool, len(d.Fields))
	for _, f := range d.Fields {
		known[f.Name] = true
		val, present := m[f.Name]
		fieldPath := joinPath(path, f.Name)
		if !present {
			if !f.Optional {
				*out = append(*out, Violation{
					Path:     fieldPath,
					Code:     CodeMissingField,
					CodeName: CodeMissingField.String(),
					Expected: f.Schema.Kind.String(),
					Actual:   "missing",
				})
			}
			continue
		}
		f.Schema.check(fieldPath, val, out)
	}

	if d.AllowExtra {
		return
	}
	// deterministic ordering for unknown-field violations
	var extras []string
	for k := range m {
		if !known[k] {
			extras = append(extras, k)
		}
	}
	sort.Strings(extras)
	for _, k := range extras {
		*out = append(*out, Violation{
			Path:     joinPath(path, k),
			Code:     CodeUnknownField,
			CodeName: CodeUnknownField.String(),
			Expected: "no such field",
			Actual:   kindOf(m[k]),
		})
	}
}

func wrongKind(path, expected string, v any) Violation {
	return Violation{
		Path:     path,
		Code:     CodeWrongKind,
		CodeName: CodeWrongKind.String(),
		Expected: expected,
		Actual:   kindOf(v),
	}
}

// kindOf names the JSON kind of a decoded value.
func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func joinPath(base, name string) string {
	if base == "" {
		return name
	}
	return base + "." + name
}

func joinEnum(vals []string) string {
	out := ""
	for i, v := range vals {
		if i > 0 {
			out += "|"
		}
		out += v
	}
	return out
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
