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
	"fmt"

	"github.com/mcpkit/mcpkit/internal/jsonrpc"
	"github.com/mcpkit/mcpkit/internal/mcp"
)

// ToolResponse is a fluent builder for tool results. Successive calls
// append content items; ToProtocol materialises the wire shape.
type ToolResponse struct {
	content    []any
	isError    bool
	structured map[string]any
}

// NewToolResponse returns an empty tool response builder.
func NewToolResponse() *ToolResponse {
	return &ToolResponse{}
}

// Text appends a text content item.
func (t *ToolResponse) Text(text string) *ToolResponse {
	t.content = append(t.content, mcp.TextContent{Type: "text", Text: text})
	return t
}

// AnnotatedText appends a text content item with annotations.
func (t *ToolResponse) AnnotatedText(text string, annotations mcp.Annotations) *ToolResponse {
	t.content = append(t.content, mcp.TextContent{Type: "text", Text: text, Annotations: &annotations})
	return t
}

// Image appends a base64-encoded image content item.
func (t *ToolResponse) Image(data, mimeType string) *ToolResponse {
	t.content = append(t.content, mcp.ImageContent{Type: "image", Data: data, MimeType: mimeType})
	return t
}

// Audio appends a base64-encoded audio content item.
func (t *ToolResponse) Audio(data, mimeType, transcription string) *ToolResponse {
	t.content = append(t.content, mcp.AudioContent{Type: "audio", Data: data, MimeType: mimeType, Transcription: transcription})
	return t
}

// EmbeddedResource appends an embedded resource content item.
func (t *ToolResponse) EmbeddedResource(resource mcp.ResourceContents) *ToolResponse {
	t.content = append(t.content, mcp.EmbeddedResource{Type: "resource", Resource: resource})
	return t
}

// ResourceLink appends a resource link content item.
func (t *ToolResponse) ResourceLink(uri, name string) *ToolResponse {
	t.content = append(t.content, mcp.ResourceLink{Type: "resource_link", Uri: uri, Name: name})
	return t
}

// Structured sets the structured result validated against the tool's
// output schema.
func (t *ToolResponse) Structured(content map[string]any) *ToolResponse {
	t.structured = content
	return t
}

// Error marks the response as a domain failure carrying text.
func (t *ToolResponse) Error(text string) *ToolResponse {
	t.isError = true
	t.content = append(t.content, mcp.TextContent{Type: "text", Text: text})
	return t
}

// IsError reports whether the builder carries a domain failure.
func (t *ToolResponse) IsError() bool { return t.isError }

// StructuredContent returns the structured result, or nil.
func (t *ToolResponse) StructuredContent() map[string]any { return t.structured }

// ToProtocol materialises the wire shape. A structured-only response is
// mirrored into a text content item so older clients still see the result.
func (t *ToolResponse) ToProtocol() mcp.CallToolResult {
	content := t.content
	if len(content) == 0 && t.structured != nil {
		if data, err := jsonrpc.Marshal(t.structured); err == nil {
			content = append(content, mcp.TextContent{Type: "text", Text: string(data)})
		}
	}
	if content == nil {
		content = []any{}
	}
	return mcp.CallToolResult{
		Content:           content,
		IsError:           t.isError,
		StructuredContent: t.structured,
	}
}

// PromptResponse is a fluent builder for prompt results.
type PromptResponse struct {
	description string
	messages    []mcp.PromptMessage
}

// NewPromptResponse returns an empty prompt response builder.
func NewPromptResponse() *PromptResponse {
	return &PromptResponse{}
}

// Description sets the optional prompt description.
func (p *PromptResponse) Description(d string) *PromptResponse {
	p.description = d
	return p
}

// User appends a user message with text content.
func (p *PromptResponse) User(text string) *PromptResponse {
	return p.Message(mcp.RoleUser, mcp.TextContent{Type: "text", Text: text})
}

// Assistant appends an assistant message with text content.
func (p *PromptResponse) Assistant(text string) *PromptResponse {
	return p.Message(mcp.RoleAssistant, mcp.TextContent{Type: "text", Text: text})
}

// System appends a system message with text content.
func (p *PromptResponse) System(text string) *PromptResponse {
	return p.Message(mcp.RoleSystem, mcp.TextContent{Type: "text", Text: text})
}

// Message appends a message with arbitrary content.
func (p *PromptResponse) Message(role mcp.Role, content any) *PromptResponse {
	p.messages = append(p.messages, mcp.PromptMessage{Role: role, Content: content})
	return p
}

// ToProtocol materialises the wire shape.
func (p *PromptResponse) ToProtocol() mcp.GetPromptResult {
	messages := p.messages
	if messages == nil {
		messages = []mcp.PromptMessage{}
	}
	return mcp.GetPromptResult{Description: p.description, Messages: messages}
}

// ResourceResponse is the value a resource handler returns: exactly one of
// text or blob, plus optional metadata. The dispatcher enriches it with the
// resource's URI and mime type.
type ResourceResponse struct {
	text    *string
	blob    *string
	name    string
	title   string
	desc    string
	size    *int64
	mime    string
}

// NewResourceText returns a resource response carrying UTF-8 text.
func NewResourceText(text string) *ResourceResponse {
	return &ResourceResponse{text: &text}
}

// NewResourceBlob returns a resource response carrying base64 binary data.
func NewResourceBlob(blob string) *ResourceResponse {
	return &ResourceResponse{blob: &blob}
}

// Name sets the optional name metadata.
func (r *ResourceResponse) Name(name string) *ResourceResponse {
	r.name = name
	return r
}

// Title sets the optional title metadata.
func (r *ResourceResponse) Title(title string) *ResourceResponse {
	r.title = title
	return r
}

// Description sets the optional description metadata.
func (r *ResourceResponse) Description(desc string) *ResourceResponse {
	r.desc = desc
	return r
}

// Size sets the optional size metadata.
func (r *ResourceResponse) Size(size int64) *ResourceResponse {
	r.size = &size
	return r
}

// MimeType overrides the mime type of the registered resource.
func (r *ResourceResponse) MimeType(mime string) *ResourceResponse {
	r.mime = mime
	return r
}

// ToContents materialises the wire contents for uri. Handlers returning
// neither text nor blob (or both) are rejected.
func (r *ResourceResponse) ToContents(uri, defaultMime string) (mcp.ResourceContents, error) {
	if (r.text == nil) == (r.blob == nil) {
		return mcp.ResourceContents{}, fmt.Errorf("resource response must carry exactly one of text or blob")
	}
	mime := r.mime
	if mime == "" {
		mime = defaultMime
	}
	c := mcp.ResourceContents{
		Uri:         uri,
		MimeType:    mime,
		Name:        r.name,
		Title:       r.title,
		Description: r.desc,
		Size:        r.size,
	}
	if r.text != nil {
		c.Text = *r.text
	} else {
		c.Blob = *r.blob
	}
	return c, nil
}

// CompletionResponse is a fluent builder for completion/complete results.
type CompletionResponse struct {
	values  []mcp.CompletionValue
	total   *int
	hasMore *bool
}

// NewCompletionResponse returns an empty completion response builder.
func NewCompletionResponse() *CompletionResponse {
	return &CompletionResponse{}
}

// Value appends a completion candidate.
func (c *CompletionResponse) Value(value string) *CompletionResponse {
	c.values = append(c.values, mcp.CompletionValue{Value: value})
	return c
}

// DescribedValue appends a completion candidate with description and label.
func (c *CompletionResponse) DescribedValue(value, description, label string) *CompletionResponse {
	c.values = append(c.values, mcp.CompletionValue{Value: value, Description: description, Label: label})
	return c
}

// Total sets the total number of candidates available.
func (c *CompletionResponse) Total(n int) *CompletionResponse {
	c.total = &n
	return c
}

// HasMore marks the candidate list as truncated.
func (c *CompletionResponse) HasMore(more bool) *CompletionResponse {
	c.hasMore = &more
	return c
}

// ToProtocol materialises the wire shape.
func (c *CompletionResponse) ToProtocol() mcp.CompleteResult {
	values := c.values
	if values == nil {
		values = []mcp.CompletionValue{}
	}
	return mcp.CompleteResult{Values: values, Total: c.total, HasMore: c.hasMore}
}
