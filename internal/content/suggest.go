package content

import (
	"fmt"

	"github.com/commonshub/commonshub-web/internal/schema"
)

// suggestions derives remediation hints from a violation list. One hint per
// distinct problem class, duplicates removed, original order preserved.
func suggestions(violations []schema.Violation) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(s string) {
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}

	for _, v := range violations {
		add(suggestFor(v))
	}
	return out
}

func suggestFor(v schema.Violation) string {
	switch v.Code {
	case schema.CodeWrongKind:
		if v.Expected == "string" && v.Actual == "number" {
			return "wrap numeric values in quotes"
		}
		return fmt.Sprintf("use a %s value where a %s was given", v.Expected, v.Actual)
	case schema.CodeMissingField:
		return "add the missing required field"
	case schema.CodeTooShort:
		if v.MinLen > 0 {
			return fmt.Sprintf("string must be at least %d characters", v.MinLen)
		}
		return "lengthen the string value"
	case schema.CodeTooLong:
		return "shorten the string value"
	case schema.CodeNotInEnum:
		return "use one of the allowed values"
	case schema.CodeOutOfRange:
		return "use a number within the allowed range"
	case schema.CodeNotInteger:
		return "use a whole number"
	case schema.CodeUnknownField:
		return "remove unexpected fields or check for typos"
	default:
		return ""
	}
}
