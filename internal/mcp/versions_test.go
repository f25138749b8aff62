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

package mcp

import "testing"

func TestNegotiateVersion(t *testing.T) {
	testCases := []struct {
		name      string
		supported []string
		requested string
		want      string
	}{
		{
			name:      "requested version is supported",
			supported: DefaultSupportedVersions,
			requested: PROTOCOL_VERSION_20241105,
			want:      PROTOCOL_VERSION_20241105,
		},
		{
			name:      "unknown version falls back to preferred",
			supported: DefaultSupportedVersions,
			requested: "1999-01-01",
			want:      PROTOCOL_VERSION_20250326,
		},
		{
			name:      "empty request falls back to preferred",
			supported: DefaultSupportedVersions,
			requested: "",
			want:      PROTOCOL_VERSION_20250326,
		},
		{
			name:      "narrowed support wins over request",
			supported: []string{PROTOCOL_VERSION_20241105},
			requested: PROTOCOL_VERSION_20250326,
			want:      PROTOCOL_VERSION_20241105,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NegotiateVersion(tc.supported, tc.requested); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSupportsBatching(t *testing.T) {
	if SupportsBatching(PROTOCOL_VERSION_20241105) {
		t.Error("2024-11-05 must not support batching")
	}
	if !SupportsBatching(PROTOCOL_VERSION_20250326) {
		t.Error("2025-03-26 must support batching")
	}
}

func TestVerifyProtocolVersion(t *testing.T) {
	if !VerifyProtocolVersion(DefaultSupportedVersions, PROTOCOL_VERSION_20250326) {
		t.Error("latest version must verify")
	}
	if VerifyProtocolVersion(DefaultSupportedVersions, "2022-01-01") {
		t.Error("unknown version must not verify")
	}
}

func TestLogLevelIncludes(t *testing.T) {
	testCases := []struct {
		name    string
		minimum LogLevel
		msg     LogLevel
		want    bool
	}{
		{name: "debug includes everything", minimum: LevelDebug, msg: LevelEmergency, want: true},
		{name: "warning excludes info", minimum: LevelWarning, msg: LevelInfo, want: false},
		{name: "warning includes error", minimum: LevelWarning, msg: LevelError, want: true},
		{name: "level includes itself", minimum: LevelNotice, msg: LevelNotice, want: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.minimum.Includes(tc.msg); got != tc.want {
				t.Errorf("got %t, want %t", got, tc.want)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	if _, err := ParseLogLevel("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
	level, err := ParseLogLevel("critical")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if level != LevelCritical {
		t.Errorf("got %q, want %q", level, LevelCritical)
	}
}
