// Copyright 2025 The mcpkit Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package components

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestCompileSchemaRejectsNonObject(t *testing.T) {
	if _, err := CompileSchema(nil); err == nil {
		t.Error("nil schema must be rejected")
	}
	if _, err := CompileSchema(map[string]any{"type": "string"}); err == nil {
		t.Error("non-object schema must be rejected")
	}
}

func TestValidate(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":  map[string]any{"type": "string"},
			"count": map[string]any{"type": "integer"},
			"ratio": map[string]any{"type": "number"},
			"flag":  map[string]any{"type": "boolean"},
			"mode":  map[string]any{"type": "string", "enum": []any{"fast", "slow"}},
			"tags":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
		"required": []any{"name"},
	}
	validate, err := CompileSchema(schema)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	testCases := []struct {
		name     string
		args     map[string]any
		wantErrs int
	}{
		{
			name: "valid full set",
			args: map[string]any{
				"name":  "a",
				"count": json.Number("3"),
				"ratio": json.Number("0.5"),
				"flag":  true,
				"mode":  "fast",
				"tags":  []any{"x", "y"},
			},
		},
		{
			name:     "missing required",
			args:     map[string]any{},
			wantErrs: 1,
		},
		{
			name:     "wrong type",
			args:     map[string]any{"name": 5},
			wantErrs: 1,
		},
		{
			name:     "float is not an integer",
			args:     map[string]any{"name": "a", "count": json.Number("1.5")},
			wantErrs: 1,
		},
		{
			name: "whole float is an integer",
			args: map[string]any{"name": "a", "count": float64(2)},
		},
		{
			name:     "enum violation",
			args:     map[string]any{"name": "a", "mode": "medium"},
			wantErrs: 1,
		},
		{
			name:     "bad array item",
			args:     map[string]any{"name": "a", "tags": []any{"x", 1}},
			wantErrs: 1,
		},
		{
			name:     "multiple violations collected",
			args:     map[string]any{"count": "x", "flag": "yes"},
			wantErrs: 3,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := validate(tc.args)
			if tc.wantErrs == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %s", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if len(verr.Errors) != tc.wantErrs {
				t.Errorf("got %d errors (%v), want %d", len(verr.Errors), verr.Errors, tc.wantErrs)
			}
		})
	}
}

func TestValidateRejectsUnknownProperties(t *testing.T) {
	validate, err := CompileSchema(map[string]any{
		"type":                 "object",
		"properties":           map[string]any{"a": map[string]any{"type": "string"}},
		"additionalProperties": false,
	})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	err = validate(map[string]any{"a": "x", "b": "y"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if !strings.Contains(verr.Errors[0], "b") {
		t.Errorf("error must name the unknown property: %v", verr.Errors)
	}
}
