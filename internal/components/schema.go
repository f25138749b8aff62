// Copyright 2025 The mcpkit Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package components

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"
)

// Validator checks an arguments map against a compiled schema. A nil return
// means the arguments are valid; otherwise the error is a *ValidationError
// carrying one message per violation.
type Validator func(args map[string]any) error

// ValidationError collects every violation found during one validation.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid arguments: %s", strings.Join(e.Errors, "; "))
}

// CompileSchema derives a Validator from a JSON-Schema object. Only
// "object" schemas are accepted; a tool registered without one is rejected
// at registration time.
func CompileSchema(schema map[string]any) (Validator, error) {
	if schema == nil {
		return nil, fmt.Errorf("schema is required")
	}
	if t, _ := schema["type"].(string); t != "object" {
		return nil, fmt.Errorf(`schema "type" must be "object", got %q`, schema["type"])
	}
	return func(args map[string]any) error {
		if args == nil {
			args = map[string]any{}
		}
		var errs []string
		validateObject(schema, args, "", &errs)
		if len(errs) > 0 {
			return &ValidationError{Errors: errs}
		}
		return nil
	}, nil
}

func validateObject(schema map[string]any, value map[string]any, path string, errs *[]string) {
	properties, _ := schema["properties"].(map[string]any)

	if required, ok := schema["required"].([]any); ok {
		for _, r := range required {
			name, _ := r.(string)
			if _, present := value[name]; !present {
				*errs = append(*errs, fmt.Sprintf("%s: required property is missing", joinPath(path, name)))
			}
		}
	}

	for name, raw := range value {
		propSchema, ok := properties[name].(map[string]any)
		if !ok {
			if additional, set := schema["additionalProperties"].(bool); set && !additional {
				*errs = append(*errs, fmt.Sprintf("%s: unexpected property", joinPath(path, name)))
			}
			continue
		}
		validateValue(propSchema, raw, joinPath(path, name), errs)
	}
}

func validateValue(schema map[string]any, value any, path string, errs *[]string) {
	if enum, ok := schema["enum"].([]any); ok {
		if !slices.ContainsFunc(enum, func(e any) bool { return looseEqual(e, value) }) {
			*errs = append(*errs, fmt.Sprintf("%s: value is not one of the allowed values", path))
			return
		}
	}

	t, _ := schema["type"].(string)
	switch t {
	case "":
		// untyped schema accepts anything
	case "string":
		if _, ok := value.(string); !ok {
			*errs = append(*errs, fmt.Sprintf("%s: expected string", path))
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			*errs = append(*errs, fmt.Sprintf("%s: expected boolean", path))
		}
	case "integer":
		if !isInteger(value) {
			*errs = append(*errs, fmt.Sprintf("%s: expected integer", path))
		}
	case "number":
		if !isNumber(value) {
			*errs = append(*errs, fmt.Sprintf("%s: expected number", path))
		}
	case "null":
		if value != nil {
			*errs = append(*errs, fmt.Sprintf("%s: expected null", path))
		}
	case "array":
		items, ok := value.([]any)
		if !ok {
			*errs = append(*errs, fmt.Sprintf("%s: expected array", path))
			return
		}
		itemSchema, ok := schema["items"].(map[string]any)
		if !ok {
			return
		}
		for i, item := range items {
			validateValue(itemSchema, item, fmt.Sprintf("%s[%d]", path, i), errs)
		}
	case "object":
		obj, ok := value.(map[string]any)
		if !ok {
			*errs = append(*errs, fmt.Sprintf("%s: expected object", path))
			return
		}
		validateObject(schema, obj, path, errs)
	default:
		*errs = append(*errs, fmt.Sprintf("%s: unknown schema type %q", path, t))
	}
}

// isNumber accepts the shapes a JSON number can decode into. Inbound
// arguments are decoded with UseNumber, but handlers invoked directly from
// Go may pass native numeric types.
func isNumber(v any) bool {
	switch v.(type) {
	case json.Number, float64, float32, int, int32, int64:
		return true
	}
	return false
}

func isInteger(v any) bool {
	switch n := v.(type) {
	case int, int32, int64:
		return true
	case json.Number:
		_, err := n.Int64()
		return err == nil
	case float64:
		return n == math.Trunc(n)
	case float32:
		return float64(n) == math.Trunc(float64(n))
	}
	return false
}

// looseEqual compares enum members against decoded values, tolerating the
// json.Number representation on either side.
func looseEqual(a, b any) bool {
	if a == b {
		return true
	}
	an, aok := toFloat(a)
	bn, bok := toFloat(b)
	return aok && bok && an == bn
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}
