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
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mcpkit/mcpkit/internal/mcp"
)

func TestToolResponseContentOrder(t *testing.T) {
	res := NewToolResponse().
		Text("first").
		Image("aGk=", "image/png").
		Text("last").
		ToProtocol()

	if res.IsError {
		t.Error("plain response must not be an error")
	}
	want := []any{
		mcp.TextContent{Type: "text", Text: "first"},
		mcp.ImageContent{Type: "image", Data: "aGk=", MimeType: "image/png"},
		mcp.TextContent{Type: "text", Text: "last"},
	}
	if diff := cmp.Diff(want, res.Content); diff != "" {
		t.Errorf("unexpected content (-want +got):\n%s", diff)
	}
}

func TestToolResponseError(t *testing.T) {
	res := NewToolResponse().Error("it broke")
	if !res.IsError() {
		t.Error("Error must mark the response")
	}
	proto := res.ToProtocol()
	if !proto.IsError {
		t.Error("wire shape must carry isError")
	}
	if len(proto.Content) != 1 {
		t.Fatalf("got %d content items, want 1", len(proto.Content))
	}
}

func TestToolResponseStructuredOnlyMirrorsText(t *testing.T) {
	res := NewToolResponse().
		Structured(map[string]any{"celsius": 21.5}).
		ToProtocol()

	if res.StructuredContent == nil {
		t.Fatal("structured content lost")
	}
	if len(res.Content) != 1 {
		t.Fatalf("got %d content items, want 1 mirrored text item", len(res.Content))
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("mirrored item is %T, want TextContent", res.Content[0])
	}
	if !strings.Contains(text.Text, "celsius") {
		t.Errorf("mirrored text %q does not carry the structured payload", text.Text)
	}
}

func TestToolResponseEmptyContentIsNotNull(t *testing.T) {
	res := NewToolResponse().ToProtocol()
	if res.Content == nil {
		t.Error("content must serialise as [], not null")
	}
}

func TestPromptResponse(t *testing.T) {
	res := NewPromptResponse().
		Description("a greeting").
		User("hello").
		Assistant("hi there").
		ToProtocol()

	if res.Description != "a greeting" {
		t.Errorf("description = %q", res.Description)
	}
	want := []mcp.PromptMessage{
		{Role: mcp.RoleUser, Content: mcp.TextContent{Type: "text", Text: "hello"}},
		{Role: mcp.RoleAssistant, Content: mcp.TextContent{Type: "text", Text: "hi there"}},
	}
	if diff := cmp.Diff(want, res.Messages); diff != "" {
		t.Errorf("unexpected messages (-want +got):\n%s", diff)
	}
}

func TestResourceResponseToContents(t *testing.T) {
	c, err := NewResourceText("hello").Name("greeting").ToContents("memo://greeting", "text/plain")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if c.Uri != "memo://greeting" || c.MimeType != "text/plain" || c.Text != "hello" || c.Name != "greeting" {
		t.Errorf("unexpected contents: %+v", c)
	}

	c, err = NewResourceBlob("aGk=").MimeType("application/octet-stream").ToContents("memo://bin", "text/plain")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if c.Blob != "aGk=" || c.MimeType != "application/octet-stream" {
		t.Errorf("unexpected contents: %+v", c)
	}

	if _, err := (&ResourceResponse{}).ToContents("memo://x", ""); err == nil {
		t.Error("neither text nor blob must be rejected")
	}
}

func TestCompletionResponse(t *testing.T) {
	res := NewCompletionResponse().
		Value("alpha").
		DescribedValue("beta", "second letter", "β").
		Total(10).
		HasMore(true).
		ToProtocol()

	if len(res.Values) != 2 {
		t.Fatalf("got %d values, want 2", len(res.Values))
	}
	if res.Values[1].Description != "second letter" || res.Values[1].Label != "β" {
		t.Errorf("unexpected described value: %+v", res.Values[1])
	}
	if res.Total == nil || *res.Total != 10 {
		t.Error("total lost")
	}
	if res.HasMore == nil || !*res.HasMore {
		t.Error("hasMore lost")
	}

	empty := NewCompletionResponse().ToProtocol()
	if empty.Values == nil {
		t.Error("values must serialise as [], not null")
	}
}
