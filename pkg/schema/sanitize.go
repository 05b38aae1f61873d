// Package schema normalizes a tool's declared parameter schema into the
// subset of JSON Schema the model provider accepts. Providers such as the
// generativelanguage API reject requests whose function declarations carry
// meta-schema keys ("Unknown name" errors), so every declaration passes
// through Sanitize before it is sent.
package schema

// Keys stripped at every object level of the schema. Everything else,
// including nested structures under "properties" and "items", survives.
var forbiddenKeys = map[string]bool{
	"$schema":              true,
	"$id":                  true,
	"$defs":                true,
	"definitions":          true,
	"additionalProperties": true,
}

// Sanitize returns a deep copy of the schema with provider-incompatible keys
// removed. The input is never mutated. Non-object values are returned
// unchanged, so Sanitize always succeeds, and sanitizing twice yields the
// same result as sanitizing once.
func Sanitize(schema any) any {
	node, ok := schema.(map[string]any)
	if !ok {
		return schema
	}

	clean := make(map[string]any, len(node))
	for key, value := range node {
		if forbiddenKeys[key] {
			continue
		}
		// Property names are data, not schema keywords, so a property that
		// happens to be called "$schema" must survive; everywhere else any
		// nested object is itself a schema and gets the same treatment.
		if key == "properties" {
			clean[key] = sanitizeProperties(value)
			continue
		}
		clean[key] = sanitizeValue(value)
	}
	return clean
}

// SanitizeObject is Sanitize for callers that hold a concrete map and want
// one back without a type assertion.
func SanitizeObject(schema map[string]any) map[string]any {
	if schema == nil {
		return nil
	}
	return Sanitize(schema).(map[string]any)
}

func sanitizeProperties(value any) any {
	props, ok := value.(map[string]any)
	if !ok {
		return sanitizeValue(value)
	}
	clean := make(map[string]any, len(props))
	for name, sub := range props {
		clean[name] = Sanitize(sub)
	}
	return clean
}

// sanitizeValue deep-copies a plain JSON value, sanitizing every object it
// reaches. Arrays are walked element-wise so composite forms (anyOf, oneOf,
// tuple-form items) are cleaned too.
func sanitizeValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return Sanitize(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = sanitizeValue(item)
		}
		return out
	default:
		return v
	}
}
