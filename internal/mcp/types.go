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

// Package mcp declares the Model Context Protocol wire types shared by the
// protocol engine, the component registry and the transports.
package mcp

import (
	"fmt"

	"github.com/mcpkit/mcpkit/internal/jsonrpc"
)

// Implementation describes the name and version of an MCP implementation.
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Title   string `json:"title,omitempty"`
}

// ListChanged represents whether a capability supports change notifications.
type ListChanged struct {
	ListChanged *bool `json:"listChanged,omitempty"`
}

// ResourcesCapability describes the server's resources capability.
type ResourcesCapability struct {
	ListChanged *bool `json:"listChanged,omitempty"`
	Subscribe   *bool `json:"subscribe,omitempty"`
}

// ServerCapabilities represents capabilities that a server may support.
type ServerCapabilities struct {
	Tools      *ListChanged         `json:"tools,omitempty"`
	Prompts    *ListChanged         `json:"prompts,omitempty"`
	Resources  *ResourcesCapability `json:"resources,omitempty"`
	Logging    *struct{}            `json:"logging,omitempty"`
	Completion *struct{}            `json:"completion,omitempty"`
}

// ClientCapabilities represents capabilities a client may support. Known
// capabilities are defined here, but this is not a closed set: any client
// can define its own, additional capabilities.
type ClientCapabilities struct {
	// Experimental, non-standard capabilities that the client supports.
	Experimental map[string]interface{} `json:"experimental,omitempty"`
	// Present if the client supports listing roots.
	Roots *ListChanged `json:"roots,omitempty"`
	// Present if the client supports sampling from an LLM.
	Sampling *struct{} `json:"sampling,omitempty"`
}

/* Initialization */

// InitializeParams define the MCP client during an initialize request.
type InitializeParams struct {
	// The latest version of the Model Context Protocol that the client supports.
	// The client MAY decide to support older versions as well.
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ClientCapabilities `json:"capabilities"`
	ClientInfo      Implementation     `json:"clientInfo"`
}

// InitializeRequest is sent from the client to the server when it first
// connects, asking it to begin initialization.
type InitializeRequest struct {
	Method string           `json:"method"`
	Params InitializeParams `json:"params"`
}

// InitializeResult is sent after receiving an initialize request from the
// client.
type InitializeResult struct {
	// The version of the Model Context Protocol that the server wants to use.
	// This may not match the version that the client requested. If the client
	// cannot support this version, it MUST disconnect.
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      Implementation     `json:"serverInfo"`
	// Instructions describing how to use the server and its features.
	Instructions string `json:"instructions,omitempty"`
}

/* Pagination */

// Cursor is an opaque token used to represent a cursor for pagination.
type Cursor string

// PaginatedParams are the params accepted by every list method.
type PaginatedParams struct {
	// An opaque token representing the current pagination position.
	// If provided, the server should return results starting after this cursor.
	Cursor Cursor `json:"cursor,omitempty"`
}

/* Content */

// Role is the sender or recipient of messages and data in a conversation.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Annotations inform the client how objects are used or displayed.
type Annotations struct {
	// Describes who the intended customer of this object or data is.
	Audience []Role `json:"audience,omitempty"`
	// Describes how important this data is for operating the server,
	// from 0 (entirely optional) to 1 (effectively required).
	Priority *float64 `json:"priority,omitempty"`
	// RFC 3339 timestamp of the last modification.
	LastModified string `json:"lastModified,omitempty"`
}

// TextContent represents text provided to or from an LLM.
type TextContent struct {
	Type string `json:"type"`
	// The text content of the message.
	Text        string       `json:"text"`
	Annotations *Annotations `json:"annotations,omitempty"`
}

// ImageContent represents a base64-encoded image.
type ImageContent struct {
	Type        string       `json:"type"`
	Data        string       `json:"data"`
	MimeType    string       `json:"mimeType"`
	Annotations *Annotations `json:"annotations,omitempty"`
}

// AudioContent represents a base64-encoded audio clip.
type AudioContent struct {
	Type          string       `json:"type"`
	Data          string       `json:"data"`
	MimeType      string       `json:"mimeType"`
	Transcription string       `json:"transcription,omitempty"`
	Annotations   *Annotations `json:"annotations,omitempty"`
}

// ResourceContents is the payload of a read resource: exactly one of Text
// or Blob is set.
type ResourceContents struct {
	Uri         string       `json:"uri"`
	MimeType    string       `json:"mimeType,omitempty"`
	Text        string       `json:"text,omitempty"`
	Blob        string       `json:"blob,omitempty"`
	Name        string       `json:"name,omitempty"`
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Size        *int64       `json:"size,omitempty"`
	Annotations *Annotations `json:"annotations,omitempty"`
}

// EmbeddedResource is a resource embedded into tool or prompt content.
type EmbeddedResource struct {
	Type     string           `json:"type"`
	Resource ResourceContents `json:"resource"`
}

// ResourceLink points at a resource without embedding its contents.
type ResourceLink struct {
	Type        string       `json:"type"`
	Uri         string       `json:"uri"`
	Name        string       `json:"name"`
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	MimeType    string       `json:"mimeType,omitempty"`
	Size        *int64       `json:"size,omitempty"`
	Annotations *Annotations `json:"annotations,omitempty"`
}

/* Tools */

// ToolAnnotations carry display hints about a tool's behavior.
type ToolAnnotations struct {
	Title           string `json:"title,omitempty"`
	ReadOnlyHint    *bool  `json:"readOnlyHint,omitempty"`
	DestructiveHint *bool  `json:"destructiveHint,omitempty"`
	IdempotentHint  *bool  `json:"idempotentHint,omitempty"`
	OpenWorldHint   *bool  `json:"openWorldHint,omitempty"`
}

// ToolDescriptor is the representation of a tool sent to clients.
type ToolDescriptor struct {
	Name         string           `json:"name"`
	Title        string           `json:"title,omitempty"`
	Description  string           `json:"description,omitempty"`
	InputSchema  map[string]any   `json:"inputSchema"`
	OutputSchema map[string]any   `json:"outputSchema,omitempty"`
	Annotations  *ToolAnnotations `json:"annotations,omitempty"`
}

// ListToolsResult is the server's response to a tools/list request.
type ListToolsResult struct {
	Tools      []ToolDescriptor `json:"tools"`
	NextCursor Cursor           `json:"nextCursor,omitempty"`
}

// CallToolParams are the params of a tools/call request.
type CallToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// CallToolResult is the server's response to a tool call.
//
// Any errors that originate from the tool SHOULD be reported inside the
// result object, with `isError` set to true, _not_ as an MCP protocol-level
// error response. Otherwise, the LLM would not be able to see that an error
// occurred and self-correct.
type CallToolResult struct {
	// Content items: TextContent, ImageContent, AudioContent,
	// EmbeddedResource or ResourceLink.
	Content []any `json:"content"`
	// Whether the tool call ended in an error.
	IsError bool `json:"isError"`
	// Structured result validated against the tool's output schema.
	StructuredContent map[string]any `json:"structuredContent,omitempty"`
}

/* Prompts */

// PromptArgument describes one argument a prompt accepts.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// PromptDescriptor is the representation of a prompt sent to clients.
type PromptDescriptor struct {
	Name        string           `json:"name"`
	Title       string           `json:"title,omitempty"`
	Description string           `json:"description,omitempty"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`
}

// ListPromptsResult is the server's response to a prompts/list request.
type ListPromptsResult struct {
	Prompts    []PromptDescriptor `json:"prompts"`
	NextCursor Cursor             `json:"nextCursor,omitempty"`
}

// GetPromptParams are the params of a prompts/get request.
type GetPromptParams struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments,omitempty"`
}

// PromptMessage is one message of a prompt template.
type PromptMessage struct {
	Role    Role `json:"role"`
	Content any  `json:"content"`
}

// GetPromptResult is the server's response to a prompts/get request.
type GetPromptResult struct {
	Description string          `json:"description,omitempty"`
	Messages    []PromptMessage `json:"messages"`
}

/* Resources */

// ResourceDescriptor is the representation of a concrete resource sent to
// clients.
type ResourceDescriptor struct {
	Uri         string       `json:"uri"`
	Name        string       `json:"name"`
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	MimeType    string       `json:"mimeType,omitempty"`
	Annotations *Annotations `json:"annotations,omitempty"`
}

// ResourceTemplateDescriptor is the representation of a templated resource.
type ResourceTemplateDescriptor struct {
	UriTemplate string       `json:"uriTemplate"`
	Name        string       `json:"name"`
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	MimeType    string       `json:"mimeType,omitempty"`
	Annotations *Annotations `json:"annotations,omitempty"`
}

// ListResourcesResult is the server's response to a resources/list request.
type ListResourcesResult struct {
	Resources  []ResourceDescriptor `json:"resources"`
	NextCursor Cursor               `json:"nextCursor,omitempty"`
}

// ListResourceTemplatesResult is the server's response to a
// resources/templates/list request.
type ListResourceTemplatesResult struct {
	ResourceTemplates []ResourceTemplateDescriptor `json:"resourceTemplates"`
	NextCursor        Cursor                       `json:"nextCursor,omitempty"`
}

// ReadResourceParams are the params of a resources/read request.
type ReadResourceParams struct {
	Uri string `json:"uri"`
}

// ReadResourceResult is the server's response to a resources/read request.
type ReadResourceResult struct {
	Contents []ResourceContents `json:"contents"`
}

/* Completion */

// CompletionRef identifies the prompt or resource a completion targets.
type CompletionRef struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
	Uri  string `json:"uri,omitempty"`
}

// CompletionArgument is the argument being completed.
type CompletionArgument struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// CompleteParams are the params of a completion/complete request.
type CompleteParams struct {
	Ref      CompletionRef      `json:"ref"`
	Argument CompletionArgument `json:"argument"`
}

// CompletionValue is one completion candidate.
type CompletionValue struct {
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
	Label       string `json:"label,omitempty"`
}

// CompleteResult is the server's response to a completion/complete request.
type CompleteResult struct {
	Values  []CompletionValue `json:"values"`
	Total   *int              `json:"total,omitempty"`
	HasMore *bool             `json:"hasMore,omitempty"`
}

/* Logging */

// SetLevelParams are the params of a logging/setLevel request.
type SetLevelParams struct {
	Level LogLevel `json:"level"`
}

// LoggingMessageParams are the params of a notifications/message
// notification emitted by the server.
type LoggingMessageParams struct {
	Level   LogLevel `json:"level"`
	Message string   `json:"message,omitempty"`
	Data    any      `json:"data,omitempty"`
}

// LogLevel is a syslog-style severity used by MCP log notifications.
type LogLevel string

const (
	LevelDebug     LogLevel = "debug"
	LevelInfo      LogLevel = "info"
	LevelNotice    LogLevel = "notice"
	LevelWarning   LogLevel = "warning"
	LevelError     LogLevel = "error"
	LevelCritical  LogLevel = "critical"
	LevelAlert     LogLevel = "alert"
	LevelEmergency LogLevel = "emergency"
)

var levelRank = map[LogLevel]int{
	LevelDebug:     0,
	LevelInfo:      1,
	LevelNotice:    2,
	LevelWarning:   3,
	LevelError:     4,
	LevelCritical:  5,
	LevelAlert:     6,
	LevelEmergency: 7,
}

// Valid reports whether l is a known log level.
func (l LogLevel) Valid() bool {
	_, ok := levelRank[l]
	return ok
}

// Includes reports whether a message at level msg passes a session whose
// minimum level is l.
func (l LogLevel) Includes(msg LogLevel) bool {
	return levelRank[msg] >= levelRank[l]
}

// ParseLogLevel validates a level string from the wire.
func ParseLogLevel(s string) (LogLevel, error) {
	l := LogLevel(s)
	if !l.Valid() {
		return "", fmt.Errorf("invalid log level %q", s)
	}
	return l, nil
}

/* Cancellation and progress */

// CancelledParams are the params of a notifications/cancelled notification.
type CancelledParams struct {
	RequestId jsonrpc.RequestId `json:"requestId"`
	Reason    string            `json:"reason,omitempty"`
}

// ProgressParams are the params of a notifications/progress notification.
type ProgressParams struct {
	ProgressToken any      `json:"progressToken"`
	Progress      float64  `json:"progress"`
	Total         *float64 `json:"total,omitempty"`
	Message       string   `json:"message,omitempty"`
}

// ResourceUpdatedParams are the params of a notifications/resources/updated
// notification.
type ResourceUpdatedParams struct {
	Uri       string `json:"uri"`
	Timestamp string `json:"timestamp,omitempty"`
}

/* Sampling */

// SamplingMessage is one message in a sampling conversation.
type SamplingMessage struct {
	Role    Role `json:"role"`
	Content any  `json:"content"`
}

// ModelPreferences advise the client on model selection.
type ModelPreferences struct {
	Hints                []map[string]any `json:"hints,omitempty"`
	CostPriority         *float64         `json:"costPriority,omitempty"`
	SpeedPriority        *float64         `json:"speedPriority,omitempty"`
	IntelligencePriority *float64         `json:"intelligencePriority,omitempty"`
}

// CreateMessageParams are the params of a sampling/createMessage request
// sent to the client.
type CreateMessageParams struct {
	Messages         []SamplingMessage `json:"messages"`
	ModelPreferences *ModelPreferences `json:"modelPreferences,omitempty"`
	SystemPrompt     string            `json:"systemPrompt,omitempty"`
	MaxTokens        int               `json:"maxTokens,omitempty"`
}

// CreateMessageResult is the client's response to sampling/createMessage.
type CreateMessageResult struct {
	Role       Role   `json:"role"`
	Content    any    `json:"content"`
	Model      string `json:"model,omitempty"`
	StopReason string `json:"stopReason,omitempty"`
}

/* Roots */

// Root is one entry of a roots/list response.
type Root struct {
	Uri  string `json:"uri"`
	Name string `json:"name,omitempty"`
}

// ListRootsResult is the client's response to roots/list.
type ListRootsResult struct {
	Roots []Root `json:"roots"`
}
