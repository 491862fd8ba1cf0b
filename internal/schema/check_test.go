package schema

import (
	"encoding/json"
	"testing"
)

// parse decodes a JSON literal for test input.
func parse(t *testing.T, src string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(src), &v); err != nil {
		t.Fatalf("bad test JSON: %v", err)
	}
	return v
}

// articleDesc mirrors the shape used across loader tests:
// {title: string, date: string, sections: [{title, body}]}
func articleDesc() *Descriptor {
	return Object(
		Req("title", StringMin(1)),
		Req("date", String()),
		Req("sections", Array(Object(
			Req("title", String()),
			Req("body", String()),
		))),
	)
}

func TestCheck_ConformingDocument(t *testing.T) {
	doc := parse(t, `{
		"title": "Welcome",
		"date": "2026-08-01",
		"sections": [{"title": "Intro", "body": "hello"}]
	}`)
	if vs := articleDesc().Check(doc); len(vs) != 0 {
		t.Fatalf("expected no violations, got %v", vs)
	}
}

func TestCheck_WrongKindAtField(t *testing.T) {
	doc := parse(t, `{"title": "Welcome", "date": 20260801, "sections": []}`)
	vs := articleDesc().Check(doc)
	if len(vs) != 1 {
		t.Fatalf("expected 1 violation, got %v", vs)
	}
	v := vs[0]
	if v.Path != "date" {
		t.Errorf("Path = %q", v.Path)
	}
	if v.Code != CodeWrongKind {
		t.Errorf("Code = %v", v.Code)
	}
	if v.Expected != "string" || v.Actual != "number" {
		t.Errorf("Expected/Actual = %q/%q", v.Expected, v.Actual)
	}
}

func TestCheck_CollectsAllViolationsInOnePass(t *testing.T) {
	doc := parse(t, `{
		"title": 7,
		"sections": [
			{"title": "ok", "body": "ok"},
			{"title": 1, "body": true}
		]
	}`)
	vs := articleDesc().Check(doc)
	// title wrong kind, date missing, sections[1].title wrong kind,
	// sections[1].body wrong kind
	if len(vs) != 4 {
		t.Fatalf("expected 4 violations, got %d: %v", len(vs), vs)
	}

	paths := map[string]bool{}
	for _, v := range vs {
		paths[v.Path] = true
	}
	for _, want := range []string{"title", "date", "sections[1].title", "sections[1].body"} {
		if !paths[want] {
			t.Errorf("missing violation at %q (got %v)", want, vs)
		}
	}
}

func TestCheck_MissingRequiredField(t *testing.T) {
	doc := parse(t, `{"title": "x", "sections": []}`)
	vs := articleDesc().Check(doc)
	if len(vs) != 1 || vs[0].Code != CodeMissingField || vs[0].Path != "date" {
		t.Fatalf("got %v", vs)
	}
	if vs[0].Actual != "missing" {
		t.Errorf("Actual = %q", vs[0].Actual)
	}
}

func TestCheck_OptionalFieldMayBeAbsent(t *testing.T) {
	d := Object(
		Req("name", String()),
		Opt("nickname", String()),
	)
	doc := parse(t, `{"name": "Ada"}`)
	if vs := d.Check(doc); len(vs) != 0 {
		t.Fatalf("optional absence should not violate, got %v", vs)
	}

	// but a present optional field is still shape-checked
	doc = parse(t, `{"name": "Ada", "nickname": 5}`)
	vs := d.Check(doc)
	if len(vs) != 1 || vs[0].Path != "nickname" || vs[0].Code != CodeWrongKind {
		t.Fatalf("got %v", vs)
	}
}

func TestCheck_UnknownFieldsAreViolations(t *testing.T) {
	d := Object(Req("name", String()))
	doc := parse(t, `{"name": "Ada", "zeta": 1, "alpha": 2}`)
	vs := d.Check(doc)
	if len(vs) != 2 {
		t.Fatalf("expected 2 violations, got %v", vs)
	}
	// deterministic order: sorted by field name
	if vs[0].Path != "alpha" || vs[1].Path != "zeta" {
		t.Errorf("unknown-field order = %q, %q", vs[0].Path, vs[1].Path)
	}
	for _, v := range vs {
		if v.Code != CodeUnknownField {
			t.Errorf("Code = %v", v.Code)
		}
	}
}

func TestCheck_AllowExtraSuppressesUnknownFields(t *testing.T) {
	d := Object(Req("name", String()))
	d.AllowExtra = true
	doc := parse(t, `{"name": "Ada", "extra": true}`)
	if vs := d.Check(doc); len(vs) != 0 {
		t.Fatalf("AllowExtra should permit unknown fields, got %v", vs)
	}
}

func TestCheck_StringLengthBounds(t *testing.T) {
	d := &Descriptor{Kind: KindString, MinLen: 3, MaxLen: 5}

	vs := d.Check("ab")
	if len(vs) != 1 || vs[0].Code != CodeTooShort {
		t.Fatalf("short: got %v", vs)
	}
	if vs[0].MinLen != 3 {
		t.Errorf("MinLen = %d", vs[0].MinLen)
	}

	vs = d.Check("abcdef")
	if len(vs) != 1 || vs[0].Code != CodeTooLong {
		t.Fatalf("long: got %v", vs)
	}

	if vs := d.Check("abc"); len(vs) != 0 {
		t.Fatalf("in range: got %v", vs)
	}
}

func TestCheck_StringLengthCountsRunes(t *testing.T) {
	d := &Descriptor{Kind: KindString, MinLen: 3}
	// 3 runes, more than 3 bytes
	if vs := d.Check("äöü"); len(vs) != 0 {
		t.Fatalf("rune length should satisfy MinLen, got %v", vs)
	}
}

func TestCheck_EnumMembership(t *testing.T) {
	d := Enum("draft", "published", "archived")
	if vs := d.Check("published"); len(vs) != 0 {
		t.Fatalf("member: got %v", vs)
	}
	vs := d.Check("deleted")
	if len(vs) != 1 || vs[0].Code != CodeNotInEnum {
		t.Fatalf("non-member: got %v", vs)
	}
}

func TestCheck_NumericBounds(t *testing.T) {
	min, max := 0.0, 90.0
	d := &Descriptor{Kind: KindNumber, Min: &min, Max: &max}

	if vs := d.Check(45.5); len(vs) != 0 {
		t.Fatalf("in range: got %v", vs)
	}
	if vs := d.Check(-1.0); len(vs) != 1 || vs[0].Code != CodeOutOfRange {
		t.Fatalf("below: got %v", vs)
	}
	if vs := d.Check(90.5); len(vs) != 1 || vs[0].Code != CodeOutOfRange {
		t.Fatalf("above: got %v", vs)
	}
}

func TestCheck_IntegerRejectsFraction(t *testing.T) {
	d := Integer()
	if vs := d.Check(float64(2026)); len(vs) != 0 {
		t.Fatalf("whole number: got %v", vs)
	}
	vs := d.Check(3.14)
	if len(vs) != 1 || vs[0].Code != CodeNotInteger {
		t.Fatalf("fraction: got %v", vs)
	}
}

func TestCheck_NullIsWrongKind(t *testing.T) {
	d := Object(Req("name", String()))
	doc := parse(t, `{"name": null}`)
	vs := d.Check(doc)
	if len(vs) != 1 || vs[0].Code != CodeWrongKind || vs[0].Actual != "null" {
		t.Fatalf("got %v", vs)
	}
}

func TestCheck_RootKindMismatch(t *testing.T) {
	vs := articleDesc().Check(parse(t, `[1, 2, 3]`))
	if len(vs) != 1 || vs[0].Code != CodeWrongKind || vs[0].Path != "" {
		t.Fatalf("got %v", vs)
	}
	if vs[0].String() != "(root): expected object, got array" {
		t.Errorf("String() = %q", vs[0].String())
	}
}

func TestCheck_NestedArrayPaths(t *testing.T) {
	d := Object(Req("tags", Array(Enum("a", "b"))))
	doc := parse(t, `{"tags": ["a", "c", "b", "d"]}`)
	vs := d.Check(doc)
	if len(vs) != 2 {
		t.Fatalf("got %v", vs)
	}
	if vs[0].Path != "tags[1]" || vs[1].Path != "tags[3]" {
		t.Errorf("paths = %q, %q", vs[0].Path, vs[1].Path)
	}
}

func TestCheck_Idempotent(t *testing.T) {
	doc := parse(t, `{"title": 7, "sections": "nope"}`)
	d := articleDesc()
	first := d.Check(doc)
	second := d.Check(doc)
	if len(first) != len(second) {
		t.Fatalf("repeat check diverged: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("violation %d diverged: %v vs %v", i, first[i], second[i])
		}
	}
}
