package tools

import (
	"fmt"
)

// validateArguments enforces the declared schema at the registry boundary:
// required keys must be present and primitive types must match. Anything the
// schema does not constrain passes through, since the model frequently sends
// extra context keys.
func validateArguments(parameters, args map[string]any) error {
	if parameters == nil {
		return nil
	}

	if required, ok := parameters["required"].([]any); ok {
		for _, raw := range required {
			key, ok := raw.(string)
			if !ok {
				continue
			}
			if _, present := args[key]; !present {
				return fmt.Errorf("missing required argument %q", key)
			}
		}
	}
	if required, ok := parameters["required"].([]string); ok {
		for _, key := range required {
			if _, present := args[key]; !present {
				return fmt.Errorf("missing required argument %q", key)
			}
		}
	}

	props, ok := parameters["properties"].(map[string]any)
	if !ok {
		return nil
	}
	for key, value := range args {
		spec, ok := props[key].(map[string]any)
		if !ok {
			continue
		}
		declared, ok := spec["type"].(string)
		if !ok {
			continue
		}
		if err := checkType(key, declared, value); err != nil {
			return err
		}
		if enum, ok := spec["enum"].([]any); ok {
			if err := checkEnum(key, enum, value); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkType(key, declared string, value any) error {
	ok := true
	switch declared {
	case "string":
		_, ok = value.(string)
	case "number":
		switch value.(type) {
		case float64, float32, int, int64:
		default:
			ok = false
		}
	case "integer":
		switch v := value.(type) {
		case int, int64:
		case float64:
			ok = v == float64(int64(v))
		default:
			ok = false
		}
	case "boolean":
		_, ok = value.(bool)
	case "array":
		_, ok = value.([]any)
	case "object":
		_, ok = value.(map[string]any)
	}
	if !ok {
		return fmt.Errorf("argument %q is not a valid %s", key, declared)
	}
	return nil
}

func checkEnum(key string, enum []any, value any) error {
	for _, allowed := range enum {
		if allowed == value {
			return nil
		}
	}
	return fmt.Errorf("argument %q is not one of the allowed values", key)
}
