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

// Methods handled natively by the protocol engine.
const (
	INITIALIZE               = "initialize"
	PING                     = "ping"
	LOGGING_SET_LEVEL        = "logging/setLevel"
	TOOLS_LIST               = "tools/list"
	TOOLS_CALL               = "tools/call"
	PROMPTS_LIST             = "prompts/list"
	PROMPTS_GET              = "prompts/get"
	RESOURCES_LIST           = "resources/list"
	RESOURCES_TEMPLATES_LIST = "resources/templates/list"
	RESOURCES_READ           = "resources/read"
	COMPLETION_COMPLETE      = "completion/complete"
)

// Requests the server initiates towards clients.
const (
	SAMPLING_CREATE_MESSAGE = "sampling/createMessage"
	ROOTS_LIST              = "roots/list"
)

// Notifications.
const (
	NOTIFICATION_INITIALIZED        = "notifications/initialized"
	NOTIFICATION_CANCELLED          = "notifications/cancelled"
	NOTIFICATION_PROGRESS           = "notifications/progress"
	NOTIFICATION_MESSAGE            = "notifications/message"
	NOTIFICATION_ROOTS_LIST_CHANGED = "notifications/roots/list_changed"
	NOTIFICATION_TOOLS_LIST_CHANGED = "notifications/tools/list_changed"
	NOTIFICATION_PROMPTS_LIST_CHANGED   = "notifications/prompts/list_changed"
	NOTIFICATION_RESOURCES_LIST_CHANGED = "notifications/resources/list_changed"
	NOTIFICATION_RESOURCES_UPDATED      = "notifications/resources/updated"
)

// IsInitializeLifecycle reports whether a method is part of the initialize
// handshake.
func IsInitializeLifecycle(method string) bool {
	return method == INITIALIZE || method == NOTIFICATION_INITIALIZED
}
