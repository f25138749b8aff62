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
	"context"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mcpkit/mcpkit/internal/mcp"
)

func testTool(name string) Tool {
	return Tool{
		Name:        name,
		InputSchema: map[string]any{"type": "object"},
		Handler: func(ctx context.Context, args map[string]any, f *Frame) (*ToolResponse, error) {
			return NewToolResponse().Text(name), nil
		},
	}
}

func testResource(name, uri string) Resource {
	return Resource{
		Name: name,
		Uri:  uri,
		Handler: func(ctx context.Context, uri string, vars map[string]string, f *Frame) (*ResourceResponse, error) {
			return NewResourceText("ok"), nil
		},
	}
}

func TestRegisterToolErrors(t *testing.T) {
	r := NewRegistry()
	if err := r.RegisterTool(Tool{InputSchema: map[string]any{"type": "object"}}); err == nil {
		t.Error("missing name must be rejected")
	}
	if err := r.RegisterTool(Tool{Name: "t", InputSchema: map[string]any{"type": "object"}}); err == nil {
		t.Error("missing handler must be rejected")
	}
	bad := testTool("t")
	bad.InputSchema = map[string]any{"type": "array"}
	if err := r.RegisterTool(bad); err == nil {
		t.Error("non-object input schema must be rejected")
	}
	if err := r.RegisterTool(testTool("t")); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if err := r.RegisterTool(testTool("t")); err == nil {
		t.Error("duplicate name must be rejected")
	}
}

func TestRegisterResourceErrors(t *testing.T) {
	r := NewRegistry()
	handler := func(ctx context.Context, uri string, vars map[string]string, f *Frame) (*ResourceResponse, error) {
		return NewResourceText("ok"), nil
	}
	if err := r.RegisterResource(Resource{Name: "both", Uri: "a://b", UriTemplate: "a://{x}", Handler: handler}); err == nil {
		t.Error("setting both uri and uriTemplate must be rejected")
	}
	if err := r.RegisterResource(Resource{Name: "neither", Handler: handler}); err == nil {
		t.Error("setting neither uri nor uriTemplate must be rejected")
	}
}

func TestFindResourcePrefersExactUri(t *testing.T) {
	r := NewRegistry()
	handler := func(ctx context.Context, uri string, vars map[string]string, f *Frame) (*ResourceResponse, error) {
		return NewResourceText("ok"), nil
	}
	if err := r.RegisterResource(Resource{Name: "tmpl", UriTemplate: "file:///logs/{name}", Handler: handler}); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if err := r.RegisterResource(Resource{Name: "exact", Uri: "file:///logs/today", Handler: handler}); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	res, vars, ok := r.FindResource("file:///logs/today")
	if !ok || res.Name != "exact" {
		t.Fatalf("expected exact match, got %v (ok=%t)", res, ok)
	}
	if len(vars) != 0 {
		t.Errorf("exact match must carry no variables, got %v", vars)
	}

	res, vars, ok = r.FindResource("file:///logs/other")
	if !ok || res.Name != "tmpl" {
		t.Fatalf("expected template match, got %v (ok=%t)", res, ok)
	}
	if vars["name"] != "other" {
		t.Errorf("vars = %v, want name=other", vars)
	}

	if _, _, ok := r.FindResource("memo://nothing"); ok {
		t.Error("unmatched uri must not resolve")
	}
}

func TestResourceByTemplate(t *testing.T) {
	r := NewRegistry()
	handler := func(ctx context.Context, uri string, vars map[string]string, f *Frame) (*ResourceResponse, error) {
		return NewResourceText("ok"), nil
	}
	if err := r.RegisterResource(Resource{Name: "tmpl", UriTemplate: "file:///logs/{name}", Handler: handler}); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if res, ok := r.ResourceByTemplate("file:///logs/{name}"); !ok || res.Name != "tmpl" {
		t.Errorf("template lookup failed: %v (ok=%t)", res, ok)
	}
	if _, ok := r.ResourceByTemplate("file:///other/{name}"); ok {
		t.Error("unknown template must not resolve")
	}
}

func TestListToolsPagination(t *testing.T) {
	r := NewRegistry(WithPageLimit(2))
	for _, name := range []string{"delta", "alpha", "echo", "charlie", "bravo"} {
		if err := r.RegisterTool(testTool(name)); err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
	}

	var got []string
	var cursor mcp.Cursor
	pages := 0
	for {
		res, err := r.ListTools(cursor, nil)
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}
		pages++
		for _, d := range res.Tools {
			got = append(got, d.Name)
		}
		if res.NextCursor == "" {
			break
		}
		cursor = res.NextCursor
	}

	want := []string{"alpha", "bravo", "charlie", "delta", "echo"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected walk order (-want +got):\n%s", diff)
	}
	if pages != 3 {
		t.Errorf("got %d pages, want 3", pages)
	}
}

func TestListToolsInvalidCursor(t *testing.T) {
	r := NewRegistry()
	if _, err := r.ListTools(mcp.Cursor("%%not-base64%%"), nil); err == nil {
		t.Error("invalid cursor must be rejected")
	}
}

func TestListMergesOverlay(t *testing.T) {
	static := NewRegistry()
	overlay := NewRegistry()
	if err := static.RegisterTool(testTool("base")); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if err := overlay.RegisterTool(testTool("added")); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	res, err := static.ListTools("", overlay)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	var names []string
	for _, d := range res.Tools {
		names = append(names, d.Name)
	}
	if diff := cmp.Diff([]string{"added", "base"}, names); diff != "" {
		t.Errorf("unexpected merged list (-want +got):\n%s", diff)
	}
}

func TestListResourcesSplitsTemplates(t *testing.T) {
	r := NewRegistry()
	handler := func(ctx context.Context, uri string, vars map[string]string, f *Frame) (*ResourceResponse, error) {
		return NewResourceText("ok"), nil
	}
	if err := r.RegisterResource(Resource{Name: "plain", Uri: "memo://plain", Handler: handler}); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if err := r.RegisterResource(Resource{Name: "tmpl", UriTemplate: "memo://{id}", Handler: handler}); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	resources, err := r.ListResources("", nil)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if len(resources.Resources) != 1 || resources.Resources[0].Name != "plain" {
		t.Errorf("resources/list = %v, want only the concrete resource", resources.Resources)
	}

	templates, err := r.ListResourceTemplates("", nil)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if len(templates.ResourceTemplates) != 1 || templates.ResourceTemplates[0].Name != "tmpl" {
		t.Errorf("resources/templates/list = %v, want only the template", templates.ResourceTemplates)
	}
}

func TestPromptArgumentsFromSchema(t *testing.T) {
	r := NewRegistry()
	err := r.RegisterPrompt(Prompt{
		Name: "greet",
		ArgumentsSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name": map[string]any{"type": "string", "description": "who to greet"},
				"tone": map[string]any{"type": "string"},
			},
			"required": []any{"name"},
		},
		Handler: func(ctx context.Context, args map[string]string, f *Frame) (*PromptResponse, error) {
			return NewPromptResponse().Message(mcp.RoleUser, mcp.TextContent{Type: "text", Text: fmt.Sprintf("hi %s", args["name"])}), nil
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	p, ok := r.Prompt("greet")
	if !ok {
		t.Fatal("prompt not found")
	}
	want := []mcp.PromptArgument{
		{Name: "name", Description: "who to greet", Required: true},
		{Name: "tone"},
	}
	if diff := cmp.Diff(want, p.Arguments()); diff != "" {
		t.Errorf("unexpected arguments (-want +got):\n%s", diff)
	}

	if err := p.ValidateArgs(map[string]string{"tone": "warm"}); err == nil {
		t.Error("missing required argument must be rejected")
	}
	if err := p.ValidateArgs(map[string]string{"name": "x"}); err != nil {
		t.Errorf("unexpected error: %s", err)
	}
}
