package schema

import (
	"reflect"
	"testing"
)

func TestSanitizeStripsMetaKeys(t *testing.T) {
	input := map[string]any{
		"$schema":              "http://json-schema.org/draft-07/schema#",
		"additionalProperties": false,
		"type":                 "object",
		"properties": map[string]any{
			"a": map[string]any{"type": "string"},
		},
	}

	got := Sanitize(input)
	want := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a": map[string]any{"type": "string"},
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected sanitized schema: %#v", got)
	}
}

func TestSanitizeRecursesIntoPropertiesAndItems(t *testing.T) {
	input := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"tags": map[string]any{
				"type": "array",
				"items": map[string]any{
					"$schema":              "x",
					"additionalProperties": true,
					"type":                 "string",
					"enum":                 []any{"a", "b"},
				},
			},
			"nested": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]any{
					"depth": map[string]any{"type": "number", "description": "how deep"},
				},
			},
		},
	}

	got, ok := Sanitize(input).(map[string]any)
	if !ok {
		t.Fatalf("expected object result, got %T", got)
	}

	props := got["properties"].(map[string]any)
	items := props["tags"].(map[string]any)["items"].(map[string]any)
	if _, present := items["$schema"]; present {
		t.Fatalf("$schema survived inside items: %#v", items)
	}
	if !reflect.DeepEqual(items["enum"], []any{"a", "b"}) {
		t.Fatalf("enum was not preserved: %#v", items)
	}

	nested := props["nested"].(map[string]any)
	if _, present := nested["additionalProperties"]; present {
		t.Fatalf("additionalProperties survived in nested object: %#v", nested)
	}
	depth := nested["properties"].(map[string]any)["depth"].(map[string]any)
	if depth["description"] != "how deep" {
		t.Fatalf("description dropped: %#v", depth)
	}
}

func TestSanitizeReachesCompositeForms(t *testing.T) {
	input := map[string]any{
		"type": "object",
		"anyOf": []any{
			map[string]any{"$schema": "x", "type": "string"},
			map[string]any{"oneOf": []any{
				map[string]any{"additionalProperties": false, "type": "number"},
			}},
		},
		"items": []any{
			map[string]any{"$id": "tuple-0", "type": "string"},
			map[string]any{"type": "integer"},
		},
	}

	got := Sanitize(input).(map[string]any)

	anyOf := got["anyOf"].([]any)
	if _, present := anyOf[0].(map[string]any)["$schema"]; present {
		t.Fatalf("$schema survived inside anyOf: %#v", anyOf[0])
	}
	inner := anyOf[1].(map[string]any)["oneOf"].([]any)[0].(map[string]any)
	if _, present := inner["additionalProperties"]; present {
		t.Fatalf("additionalProperties survived inside oneOf: %#v", inner)
	}

	tuple := got["items"].([]any)
	first := tuple[0].(map[string]any)
	if _, present := first["$id"]; present {
		t.Fatalf("$id survived in tuple-form items: %#v", first)
	}
	if first["type"] != "string" || tuple[1].(map[string]any)["type"] != "integer" {
		t.Fatalf("tuple entries damaged: %#v", tuple)
	}
}

func TestSanitizeKeepsPropertyNamedLikeKeyword(t *testing.T) {
	// A property literally called "$schema" is data, not a schema keyword.
	input := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"$schema": map[string]any{"type": "string"},
		},
	}

	got := Sanitize(input).(map[string]any)
	props := got["properties"].(map[string]any)
	if _, present := props["$schema"]; !present {
		t.Fatalf("property named $schema was stripped: %#v", props)
	}
}

func TestSanitizeIdempotent(t *testing.T) {
	input := map[string]any{
		"$schema": "x",
		"type":    "object",
		"properties": map[string]any{
			"a": map[string]any{"type": "string", "$schema": "y"},
		},
	}

	once := Sanitize(input)
	twice := Sanitize(once)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("sanitize is not idempotent:\nonce:  %#v\ntwice: %#v", once, twice)
	}
}

func TestSanitizeDoesNotMutateInput(t *testing.T) {
	input := map[string]any{
		"$schema": "x",
		"properties": map[string]any{
			"a": map[string]any{"type": "string"},
		},
	}

	Sanitize(input)

	if _, present := input["$schema"]; !present {
		t.Fatalf("input schema was mutated: %#v", input)
	}
}

func TestSanitizeNonObjectInput(t *testing.T) {
	for _, in := range []any{nil, "string", 42, []any{"x"}, true} {
		if got := Sanitize(in); !reflect.DeepEqual(got, in) {
			t.Fatalf("non-object input changed: in=%#v out=%#v", in, got)
		}
	}
}
