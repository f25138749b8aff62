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

// Package components implements the registry and dispatcher for the three
// kinds of MCP components a server exposes: tools, resources and prompts.
// Registration is explicit; the protocol engine consults the registry when
// handling tools/*, resources/*, prompts/* and completion/complete.
package components

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mcpkit/mcpkit/internal/mcp"
)

// ToolHandler executes a tool call with validated arguments.
type ToolHandler func(ctx context.Context, args map[string]any, f *Frame) (*ToolResponse, error)

// PromptHandler renders a prompt's messages.
type PromptHandler func(ctx context.Context, args map[string]string, f *Frame) (*PromptResponse, error)

// ResourceHandler reads a resource. vars holds the URI-template variables
// and is empty for exact-URI resources.
type ResourceHandler func(ctx context.Context, uri string, vars map[string]string, f *Frame) (*ResourceResponse, error)

// Completer produces argument completions for a prompt or resource.
type Completer func(ctx context.Context, arg mcp.CompletionArgument, f *Frame) (*CompletionResponse, error)

// Tool is a callable component. InputSchema must be a JSON-Schema object;
// a validator is derived from it at registration.
type Tool struct {
	Name         string
	Title        string
	Description  string
	InputSchema  map[string]any
	OutputSchema map[string]any
	Annotations  *mcp.ToolAnnotations
	Handler      ToolHandler

	validateInput  Validator
	validateOutput Validator
}

// ValidateInput checks a tools/call arguments map.
func (t *Tool) ValidateInput(args map[string]any) error {
	return t.validateInput(args)
}

// ValidateOutput checks a structured tool result against the output schema,
// when one was registered.
func (t *Tool) ValidateOutput(structured map[string]any) error {
	if t.validateOutput == nil {
		return nil
	}
	return t.validateOutput(structured)
}

// Descriptor returns the tools/list representation.
func (t *Tool) Descriptor() mcp.ToolDescriptor {
	return mcp.ToolDescriptor{
		Name:         t.Name,
		Title:        t.Title,
		Description:  t.Description,
		InputSchema:  t.InputSchema,
		OutputSchema: t.OutputSchema,
		Annotations:  t.Annotations,
	}
}

// Prompt is a message-template component. ArgumentsSchema is a JSON-Schema
// object; the argument list shown to clients is derived from it.
type Prompt struct {
	Name            string
	Title           string
	Description     string
	ArgumentsSchema map[string]any
	Handler         PromptHandler
	Completer       Completer

	arguments []mcp.PromptArgument
}

// Arguments returns the derived argument descriptors.
func (p *Prompt) Arguments() []mcp.PromptArgument { return p.arguments }

// ValidateArgs checks a prompts/get argument map against the derived
// argument list.
func (p *Prompt) ValidateArgs(args map[string]string) error {
	var errs []string
	for _, a := range p.arguments {
		if !a.Required {
			continue
		}
		if _, ok := args[a.Name]; !ok {
			errs = append(errs, fmt.Sprintf("%s: required argument is missing", a.Name))
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// Descriptor returns the prompts/list representation.
func (p *Prompt) Descriptor() mcp.PromptDescriptor {
	return mcp.PromptDescriptor{
		Name:        p.Name,
		Title:       p.Title,
		Description: p.Description,
		Arguments:   p.arguments,
	}
}

// Resource is a readable component addressed by a concrete URI or an RFC
// 6570 URI template. Exactly one of Uri and UriTemplate must be set.
type Resource struct {
	Uri         string
	UriTemplate string
	Name        string
	Title       string
	Description string
	MimeType    string
	Handler     ResourceHandler
	Completer   Completer
}

// IsTemplate reports whether the resource is addressed by template.
func (r *Resource) IsTemplate() bool { return r.UriTemplate != "" }

// Descriptor returns the resources/list representation.
func (r *Resource) Descriptor() mcp.ResourceDescriptor {
	return mcp.ResourceDescriptor{
		Uri:         r.Uri,
		Name:        r.Name,
		Title:       r.Title,
		Description: r.Description,
		MimeType:    r.MimeType,
	}
}

// TemplateDescriptor returns the resources/templates/list representation.
func (r *Resource) TemplateDescriptor() mcp.ResourceTemplateDescriptor {
	return mcp.ResourceTemplateDescriptor{
		UriTemplate: r.UriTemplate,
		Name:        r.Name,
		Title:       r.Title,
		Description: r.Description,
		MimeType:    r.MimeType,
	}
}

// Registry holds registered components. The static server registry is
// read-only after startup; per-session overlays created through the frame
// use the same type.
type Registry struct {
	mu        sync.RWMutex
	tools     map[string]*Tool
	prompts   map[string]*Prompt
	resources map[string]*Resource
	pageLimit int
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithPageLimit caps the page size of list methods; zero means unbounded.
func WithPageLimit(n int) RegistryOption {
	return func(r *Registry) { r.pageLimit = n }
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		tools:     make(map[string]*Tool),
		prompts:   make(map[string]*Prompt),
		resources: make(map[string]*Resource),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// PageLimit returns the configured list page size; zero means unbounded.
func (r *Registry) PageLimit() int { return r.pageLimit }

// RegisterTool validates and adds a tool. The name must be unique within
// the kind and the input schema must be a JSON-Schema object.
func (r *Registry) RegisterTool(t Tool) error {
	if t.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if t.Handler == nil {
		return fmt.Errorf("tool %q: handler is required", t.Name)
	}
	validateInput, err := CompileSchema(t.InputSchema)
	if err != nil {
		return fmt.Errorf("tool %q: invalid input schema: %w", t.Name, err)
	}
	t.validateInput = validateInput
	if t.OutputSchema != nil {
		validateOutput, err := CompileSchema(t.OutputSchema)
		if err != nil {
			return fmt.Errorf("tool %q: invalid output schema: %w", t.Name, err)
		}
		t.validateOutput = validateOutput
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; exists {
		return fmt.Errorf("tool %q is already registered", t.Name)
	}
	r.tools[t.Name] = &t
	return nil
}

// RegisterPrompt validates and adds a prompt.
func (r *Registry) RegisterPrompt(p Prompt) error {
	if p.Name == "" {
		return fmt.Errorf("prompt name is required")
	}
	if p.Handler == nil {
		return fmt.Errorf("prompt %q: handler is required", p.Name)
	}
	args, err := promptArgumentsFromSchema(p.ArgumentsSchema)
	if err != nil {
		return fmt.Errorf("prompt %q: %w", p.Name, err)
	}
	p.arguments = args

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.prompts[p.Name]; exists {
		return fmt.Errorf("prompt %q is already registered", p.Name)
	}
	r.prompts[p.Name] = &p
	return nil
}

// promptArgumentsFromSchema derives the client-facing argument list from a
// JSON-Schema object.
func promptArgumentsFromSchema(schema map[string]any) ([]mcp.PromptArgument, error) {
	if schema == nil {
		return nil, nil
	}
	if t, _ := schema["type"].(string); t != "object" {
		return nil, fmt.Errorf(`arguments schema "type" must be "object", got %q`, schema["type"])
	}
	required := map[string]bool{}
	if rs, ok := schema["required"].([]any); ok {
		for _, r := range rs {
			if name, ok := r.(string); ok {
				required[name] = true
			}
		}
	}
	properties, _ := schema["properties"].(map[string]any)
	args := make([]mcp.PromptArgument, 0, len(properties))
	for name, raw := range properties {
		arg := mcp.PromptArgument{Name: name, Required: required[name]}
		if prop, ok := raw.(map[string]any); ok {
			arg.Description, _ = prop["description"].(string)
		}
		args = append(args, arg)
	}
	sort.Slice(args, func(i, j int) bool { return args[i].Name < args[j].Name })
	return args, nil
}

// RegisterResource validates and adds a resource.
func (r *Registry) RegisterResource(res Resource) error {
	if res.Name == "" {
		return fmt.Errorf("resource name is required")
	}
	if res.Handler == nil {
		return fmt.Errorf("resource %q: handler is required", res.Name)
	}
	if (res.Uri == "") == (res.UriTemplate == "") {
		return fmt.Errorf("resource %q: exactly one of uri and uriTemplate must be set", res.Name)
	}
	if res.UriTemplate != "" {
		if _, _, err := compileTemplate(res.UriTemplate); err != nil {
			return fmt.Errorf("resource %q: %w", res.Name, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.resources[res.Name]; exists {
		return fmt.Errorf("resource %q is already registered", res.Name)
	}
	r.resources[res.Name] = &res
	return nil
}

// Tool looks a tool up by name.
func (r *Registry) Tool(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Prompt looks a prompt up by name.
func (r *Registry) Prompt(name string) (*Prompt, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.prompts[name]
	return p, ok
}

// ResourceByName looks a resource up by name.
func (r *Registry) ResourceByName(name string) (*Resource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.resources[name]
	return res, ok
}

// ResourceByTemplate looks a template resource up by its literal template
// string, as completion references use it verbatim.
func (r *Registry) ResourceByTemplate(template string) (*Resource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, res := range r.resources {
		if res.IsTemplate() && res.UriTemplate == template {
			return res, true
		}
	}
	return nil, false
}

// FindResource resolves a resources/read URI against registered resources:
// exact URIs first, then URI templates. It returns extracted template
// variables for template matches.
func (r *Registry) FindResource(uri string) (*Resource, map[string]string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, res := range r.resources {
		if !res.IsTemplate() && res.Uri == uri {
			return res, map[string]string{}, true
		}
	}
	// deterministic template matching order
	names := make([]string, 0, len(r.resources))
	for name := range r.resources {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		res := r.resources[name]
		if !res.IsTemplate() {
			continue
		}
		if vars, ok := matchTemplate(res.UriTemplate, uri); ok {
			return res, vars, true
		}
	}
	return nil, nil, false
}

func (r *Registry) toolSlice() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	return out
}

func (r *Registry) promptSlice() []*Prompt {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Prompt, 0, len(r.prompts))
	for _, p := range r.prompts {
		out = append(out, p)
	}
	return out
}

func (r *Registry) resourceSlice() []*Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Resource, 0, len(r.resources))
	for _, res := range r.resources {
		out = append(out, res)
	}
	return out
}

// ListTools returns one page of tool descriptors sorted ascending by name,
// merging an optional overlay of session registrations.
func (r *Registry) ListTools(cursor mcp.Cursor, overlay *Registry) (mcp.ListToolsResult, error) {
	tools := r.toolSlice()
	if overlay != nil {
		tools = append(tools, overlay.toolSlice()...)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })

	page, next, err := paginate(tools, func(t *Tool) string { return t.Name }, cursor, r.pageLimit)
	if err != nil {
		return mcp.ListToolsResult{}, err
	}
	descriptors := make([]mcp.ToolDescriptor, 0, len(page))
	for _, t := range page {
		descriptors = append(descriptors, t.Descriptor())
	}
	return mcp.ListToolsResult{Tools: descriptors, NextCursor: next}, nil
}

// ListPrompts returns one page of prompt descriptors sorted ascending by
// name, merging an optional overlay.
func (r *Registry) ListPrompts(cursor mcp.Cursor, overlay *Registry) (mcp.ListPromptsResult, error) {
	prompts := r.promptSlice()
	if overlay != nil {
		prompts = append(prompts, overlay.promptSlice()...)
	}
	sort.Slice(prompts, func(i, j int) bool { return prompts[i].Name < prompts[j].Name })

	page, next, err := paginate(prompts, func(p *Prompt) string { return p.Name }, cursor, r.pageLimit)
	if err != nil {
		return mcp.ListPromptsResult{}, err
	}
	descriptors := make([]mcp.PromptDescriptor, 0, len(page))
	for _, p := range page {
		descriptors = append(descriptors, p.Descriptor())
	}
	return mcp.ListPromptsResult{Prompts: descriptors, NextCursor: next}, nil
}

// ListResources returns one page of non-template resource descriptors
// sorted ascending by name, merging an optional overlay.
func (r *Registry) ListResources(cursor mcp.Cursor, overlay *Registry) (mcp.ListResourcesResult, error) {
	resources := r.resourceSlice()
	if overlay != nil {
		resources = append(resources, overlay.resourceSlice()...)
	}
	concrete := make([]*Resource, 0, len(resources))
	for _, res := range resources {
		if !res.IsTemplate() {
			concrete = append(concrete, res)
		}
	}
	sort.Slice(concrete, func(i, j int) bool { return concrete[i].Name < concrete[j].Name })

	page, next, err := paginate(concrete, func(res *Resource) string { return res.Name }, cursor, r.pageLimit)
	if err != nil {
		return mcp.ListResourcesResult{}, err
	}
	descriptors := make([]mcp.ResourceDescriptor, 0, len(page))
	for _, res := range page {
		descriptors = append(descriptors, res.Descriptor())
	}
	return mcp.ListResourcesResult{Resources: descriptors, NextCursor: next}, nil
}

// ListResourceTemplates returns one page of template resource descriptors
// sorted ascending by name, merging an optional overlay.
func (r *Registry) ListResourceTemplates(cursor mcp.Cursor, overlay *Registry) (mcp.ListResourceTemplatesResult, error) {
	resources := r.resourceSlice()
	if overlay != nil {
		resources = append(resources, overlay.resourceSlice()...)
	}
	templates := make([]*Resource, 0, len(resources))
	for _, res := range resources {
		if res.IsTemplate() {
			templates = append(templates, res)
		}
	}
	sort.Slice(templates, func(i, j int) bool { return templates[i].Name < templates[j].Name })

	page, next, err := paginate(templates, func(res *Resource) string { return res.Name }, cursor, r.pageLimit)
	if err != nil {
		return mcp.ListResourceTemplatesResult{}, err
	}
	descriptors := make([]mcp.ResourceTemplateDescriptor, 0, len(page))
	for _, res := range page {
		descriptors = append(descriptors, res.TemplateDescriptor())
	}
	return mcp.ListResourceTemplatesResult{ResourceTemplates: descriptors, NextCursor: next}, nil
}
