package content

import (
	"reflect"
	"testing"

	"github.com/commonshub/commonshub-web/internal/schema"
)

func TestSuggestions_DeduplicatesRepeatedKinds(t *testing.T) {
	vs := []schema.Violation{
		{Path: "a", Code: schema.CodeUnknownField},
		{Path: "b", Code: schema.CodeUnknownField},
		{Path: "c", Code: schema.CodeUnknownField},
	}
	got := suggestions(vs)
	want := []string{"remove unexpected fields or check for typos"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("suggestions = %v", got)
	}
}

func TestSuggestions_PreservesFirstSeenOrder(t *testing.T) {
	vs := []schema.Violation{
		{Code: schema.CodeMissingField},
		{Code: schema.CodeWrongKind, Expected: "string", Actual: "number"},
		{Code: schema.CodeMissingField},
	}
	got := suggestions(vs)
	want := []string{
		"add the missing required field",
		"wrap numeric values in quotes",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("suggestions = %v", got)
	}
}

func TestSuggestFor_Table(t *testing.T) {
	cases := []struct {
		name string
		v    schema.Violation
		want string
	}{
		{
			name: "string given number",
			v:    schema.Violation{Code: schema.CodeWrongKind, Expected: "string", Actual: "number"},
			want: "wrap numeric values in quotes",
		},
		{
			name: "other kind mismatch",
			v:    schema.Violation{Code: schema.CodeWrongKind, Expected: "array", Actual: "object"},
			want: "use a array value where a object was given",
		},
		{
			name: "too short with bound",
			v:    schema.Violation{Code: schema.CodeTooShort, MinLen: 3},
			want: "string must be at least 3 characters",
		},
		{
			name: "too long",
			v:    schema.Violation{Code: schema.CodeTooLong},
			want: "shorten the string value",
		},
		{
			name: "enum",
			v:    schema.Violation{Code: schema.CodeNotInEnum},
			want: "use one of the allowed values",
		},
		{
			name: "range",
			v:    schema.Violation{Code: schema.CodeOutOfRange},
			want: "use a number within the allowed range",
		},
		{
			name: "integer",
			v:    schema.Violation{Code: schema.CodeNotInteger},
			want: "use a whole number",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := suggestFor(tc.v); got != tc.want {
				t.Errorf("suggestFor = %q, want %q", got, tc.want)
			}
		})
	}
}
