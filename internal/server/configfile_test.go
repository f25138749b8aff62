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

package server

import (
	"context"
	"strings"
	"testing"

	"github.com/mcpkit/mcpkit/internal/components"
	"github.com/mcpkit/mcpkit/internal/mcp"
)

func TestParseFileConfig(t *testing.T) {
	raw := `
server:
  instructions: use the greeting prompt
  capabilities:
    prompts:
      listChanged: true
    resources:
      listChanged: true
    logging: true
prompts:
  greeting:
    description: says hello
    arguments:
      - name: name
        description: who to greet
        required: true
    messages:
      - role: user
        text: "Say hello to {{name}}."
resources:
  motd:
    uri: memo://motd
    mimeType: text/plain
    text: welcome
`
	cfg, err := ParseFileConfig([]byte(raw))
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if cfg.Server.Instructions != "use the greeting prompt" {
		t.Errorf("instructions = %q", cfg.Server.Instructions)
	}
	if cfg.Server.Capabilities == nil || cfg.Server.Capabilities.Prompts == nil || !cfg.Server.Capabilities.Prompts.ListChanged {
		t.Errorf("capabilities not parsed: %+v", cfg.Server.Capabilities)
	}
	if len(cfg.Prompts) != 1 || len(cfg.Resources) != 1 {
		t.Fatalf("got %d prompts and %d resources", len(cfg.Prompts), len(cfg.Resources))
	}
	if cfg.Prompts["greeting"].Arguments[0].Name != "name" {
		t.Errorf("prompt arguments not parsed: %+v", cfg.Prompts["greeting"])
	}
	if cfg.Resources["motd"].Text != "welcome" {
		t.Errorf("resource not parsed: %+v", cfg.Resources["motd"])
	}
}

func TestParseFileConfigErrors(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "invalid resource kind",
			raw: `
resources:
  files:
    kind: s3
    uri: memo://x
`,
			want: "is not a valid kind of resource",
		},
		{
			name: "unknown field rejected",
			raw: `
prompts:
  greeting:
    messages:
      - role: user
        text: hello
    bogus: true
`,
			want: "unable to parse prompt",
		},
		{
			name: "prompt without messages",
			raw: `
prompts:
  empty:
    description: nothing here
`,
			want: "unable to parse prompt",
		},
		{
			name: "invalid role",
			raw: `
prompts:
  greeting:
    messages:
      - role: narrator
        text: hello
`,
			want: "unable to parse prompt",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseFileConfig([]byte(tc.raw))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not contain %q", err, tc.want)
			}
		})
	}
}

func TestFileConfigRegister(t *testing.T) {
	raw := `
prompts:
  greeting:
    description: says hello
    arguments:
      - name: name
        required: true
    messages:
      - role: user
        text: "Say hello to {{name}}."
      - role: assistant
        text: "Hello, {{name}}!"
resources:
  motd:
    uri: memo://motd
    mimeType: text/plain
    text: welcome
`
	cfg, err := ParseFileConfig([]byte(raw))
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	reg := components.NewRegistry()
	if err := cfg.Register(reg); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	prompt, ok := reg.Prompt("greeting")
	if !ok {
		t.Fatal("prompt not registered")
	}
	resp, err := prompt.Handler(context.Background(), map[string]string{"name": "Ada"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	result := resp.ToProtocol()
	if len(result.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(result.Messages))
	}
	if text := result.Messages[0].Content.(mcp.TextContent).Text; text != "Say hello to Ada." {
		t.Errorf("argument substitution failed: %q", text)
	}
	if result.Messages[1].Role != mcp.RoleAssistant {
		t.Errorf("role = %q", result.Messages[1].Role)
	}

	res, ok := reg.ResourceByName("motd")
	if !ok {
		t.Fatal("resource not registered")
	}
	rresp, err := res.Handler(context.Background(), "memo://motd", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	contents, err := rresp.ToContents("memo://motd", res.MimeType)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if contents.Text != "welcome" || contents.MimeType != "text/plain" {
		t.Errorf("unexpected contents: %+v", contents)
	}
}

func TestStaticResourceRejectsTextAndBlob(t *testing.T) {
	rc := ResourceFileConfig{Uri: "memo://x", Text: "a", Blob: "Yg=="}
	if _, err := rc.toResource("x"); err == nil {
		t.Error("text and blob together must be rejected")
	}
}

func TestSqlitefsResourceRequiresTemplate(t *testing.T) {
	rc := ResourceFileConfig{Kind: "sqlitefs", Uri: "memo://x", Path: "ignored.db"}
	if _, err := rc.toResource("x"); err == nil {
		t.Error("sqlitefs resource without a uriTemplate must be rejected")
	}
}
