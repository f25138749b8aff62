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
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMatchTemplate(t *testing.T) {
	testCases := []struct {
		name     string
		template string
		uri      string
		want     map[string]string
		ok       bool
	}{
		{
			name:     "single variable",
			template: "file:///logs/{name}",
			uri:      "file:///logs/today.txt",
			want:     map[string]string{"name": "today.txt"},
			ok:       true,
		},
		{
			name:     "simple variable stops at slash",
			template: "file:///logs/{name}",
			uri:      "file:///logs/2025/today.txt",
			ok:       false,
		},
		{
			name:     "reserved variable crosses slashes",
			template: "file:///logs/{+path}",
			uri:      "file:///logs/2025/today.txt",
			want:     map[string]string{"path": "2025/today.txt"},
			ok:       true,
		},
		{
			name:     "multiple variables",
			template: "db://{table}/{id}",
			uri:      "db://users/42",
			want:     map[string]string{"table": "users", "id": "42"},
			ok:       true,
		},
		{
			name:     "literal mismatch",
			template: "db://{table}/{id}",
			uri:      "kv://users/42",
			ok:       false,
		},
		{
			name:     "empty segment does not match",
			template: "file:///logs/{name}",
			uri:      "file:///logs/",
			ok:       false,
		},
		{
			name:     "no variables is an exact match",
			template: "memo://plain",
			uri:      "memo://plain",
			want:     map[string]string{},
			ok:       true,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			vars, ok := matchTemplate(tc.template, tc.uri)
			if ok != tc.ok {
				t.Fatalf("match = %t, want %t", ok, tc.ok)
			}
			if !ok {
				return
			}
			if diff := cmp.Diff(tc.want, vars); diff != "" {
				t.Errorf("unexpected variables (-want +got):\n%s", diff)
			}
		})
	}
}
