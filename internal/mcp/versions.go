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

package mcp

import "slices"

// Protocol versions understood by this server.
const (
	PROTOCOL_VERSION_20250326 = "2025-03-26"
	PROTOCOL_VERSION_20241105 = "2024-11-05"
)

// LATEST_PROTOCOL_VERSION is the most recent version of the MCP protocol.
const LATEST_PROTOCOL_VERSION = PROTOCOL_VERSION_20250326

// DefaultSupportedVersions is the default ordered list of supported protocol
// versions, newest first.
var DefaultSupportedVersions = []string{
	PROTOCOL_VERSION_20250326,
	PROTOCOL_VERSION_20241105,
}

// VerifyProtocolVersion reports whether v is in the supported list.
func VerifyProtocolVersion(supported []string, v string) bool {
	return slices.Contains(supported, v)
}

// NegotiateVersion picks the protocol version for a session: the client's
// requested version if the server supports it, otherwise the server's
// newest.
func NegotiateVersion(supported []string, requested string) string {
	if VerifyProtocolVersion(supported, requested) {
		return requested
	}
	return supported[0]
}

// SupportsBatching reports whether a protocol version allows JSON-RPC
// batches. Versions are RFC 3339 dates, so lexical order is
// chronological order.
func SupportsBatching(version string) bool {
	return version >= PROTOCOL_VERSION_20250326
}
