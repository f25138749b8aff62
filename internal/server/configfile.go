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
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/mcpkit/mcpkit/internal/components"
	"github.com/mcpkit/mcpkit/internal/components/sqlitefs"
	"github.com/mcpkit/mcpkit/internal/mcp"
	"github.com/mcpkit/mcpkit/internal/util"
)

// FileConfig is the shape of the components config file. Prompts and
// resources can be declared fully in yaml; tools need code and are
// registered by the host.
type FileConfig struct {
	Server    ServerFileConfig `yaml:"server"`
	Prompts   PromptConfigs    `yaml:"prompts"`
	Resources ResourceConfigs  `yaml:"resources"`
}

// ServerFileConfig carries server settings that live in the config file
// rather than on the command line.
type ServerFileConfig struct {
	Instructions string              `yaml:"instructions"`
	Capabilities *CapabilitiesConfig `yaml:"capabilities"`
}

// PromptConfigs is a type used to allow unmarshal of the prompt config map
type PromptConfigs map[string]PromptFileConfig

// validate interface
var _ yaml.Unmarshaler = &PromptConfigs{}

func (c *PromptConfigs) UnmarshalYAML(node *yaml.Node) error {
	*c = make(PromptConfigs)
	var raw map[string]yaml.Node
	if err := node.Decode(&raw); err != nil {
		return err
	}
	for name, n := range raw {
		var rawMap map[string]any
		if err := n.Decode(&rawMap); err != nil {
			return fmt.Errorf("unable to parse prompt %q: %w", name, err)
		}
		dec, err := util.NewStrictDecoder(rawMap)
		if err != nil {
			return fmt.Errorf("unable to parse prompt %q: %w", name, err)
		}
		var actual PromptFileConfig
		if err := dec.Decode(&actual); err != nil {
			return fmt.Errorf("unable to parse prompt %q: %w", name, err)
		}
		(*c)[name] = actual
	}
	return nil
}

// ResourceConfigs is a type used to allow unmarshal of the resource config map
type ResourceConfigs map[string]ResourceFileConfig

// validate interface
var _ yaml.Unmarshaler = &ResourceConfigs{}

func (c *ResourceConfigs) UnmarshalYAML(node *yaml.Node) error {
	*c = make(ResourceConfigs)
	var raw map[string]yaml.Node
	if err := node.Decode(&raw); err != nil {
		return err
	}
	for name, n := range raw {
		var k struct {
			Kind string `yaml:"kind"`
		}
		if err := n.Decode(&k); err != nil {
			return fmt.Errorf("unable to parse resource %q: %w", name, err)
		}
		switch k.Kind {
		case "", "static", "sqlitefs":
		default:
			return fmt.Errorf("%q is not a valid kind of resource", k.Kind)
		}
		var rawMap map[string]any
		if err := n.Decode(&rawMap); err != nil {
			return fmt.Errorf("unable to parse resource %q: %w", name, err)
		}
		dec, err := util.NewStrictDecoder(rawMap)
		if err != nil {
			return fmt.Errorf("unable to parse resource %q: %w", name, err)
		}
		var actual ResourceFileConfig
		if err := dec.Decode(&actual); err != nil {
			return fmt.Errorf("unable to parse as %q: %w", k.Kind, err)
		}
		(*c)[name] = actual
	}
	return nil
}

// PromptFileConfig declares one templated prompt. Message text may
// reference arguments as {{name}}.
type PromptFileConfig struct {
	Title       string                    `yaml:"title"`
	Description string                    `yaml:"description"`
	Arguments   []PromptArgFileConfig     `yaml:"arguments"`
	Messages    []PromptMessageFileConfig `yaml:"messages" validate:"min=1"`
}

type PromptArgFileConfig struct {
	Name        string `yaml:"name" validate:"required"`
	Description string `yaml:"description"`
	Required    bool   `yaml:"required"`
}

type PromptMessageFileConfig struct {
	Role string `yaml:"role" validate:"oneof=user assistant system"`
	Text string `yaml:"text" validate:"required"`
}

// ResourceFileConfig declares one resource. kind selects the backing:
// "static" (the default) serves the inline text or blob, "sqlitefs" serves
// a template out of a sqlite database.
type ResourceFileConfig struct {
	Kind        string `yaml:"kind" validate:"omitempty,oneof=static sqlitefs"`
	Uri         string `yaml:"uri"`
	UriTemplate string `yaml:"uriTemplate"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	MimeType    string `yaml:"mimeType"`

	// static
	Text string `yaml:"text"`
	Blob string `yaml:"blob"`

	// sqlitefs
	Path string `yaml:"path"`
}

// ParseFileConfig parses and validates the raw yaml of a components config
// file. Unknown fields within a component are rejected.
func ParseFileConfig(raw []byte) (*FileConfig, error) {
	var cfg FileConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("unable to parse config: %w", err)
	}
	return &cfg, nil
}

// Register materialises the file's prompts and resources into reg.
func (c *FileConfig) Register(reg *components.Registry) error {
	for name, pc := range c.Prompts {
		if err := reg.RegisterPrompt(pc.toPrompt(name)); err != nil {
			return err
		}
	}
	for name, rc := range c.Resources {
		res, err := rc.toResource(name)
		if err != nil {
			return fmt.Errorf("resource %q: %w", name, err)
		}
		if err := reg.RegisterResource(res); err != nil {
			return err
		}
	}
	return nil
}

func (pc PromptFileConfig) toPrompt(name string) components.Prompt {
	properties := map[string]any{}
	var required []any
	for _, a := range pc.Arguments {
		properties[a.Name] = map[string]any{"type": "string", "description": a.Description}
		if a.Required {
			required = append(required, a.Name)
		}
	}
	schema := map[string]any{"type": "object", "properties": properties}
	if len(required) > 0 {
		schema["required"] = required
	}

	messages := pc.Messages
	return components.Prompt{
		Name:            name,
		Title:           pc.Title,
		Description:     pc.Description,
		ArgumentsSchema: schema,
		Handler: func(ctx context.Context, args map[string]string, f *components.Frame) (*components.PromptResponse, error) {
			pairs := make([]string, 0, len(args)*2)
			for k, v := range args {
				pairs = append(pairs, "{{"+k+"}}", v)
			}
			replacer := strings.NewReplacer(pairs...)
			resp := components.NewPromptResponse().Description(pc.Description)
			for _, m := range messages {
				resp.Message(mcp.Role(m.Role), mcp.TextContent{Type: "text", Text: replacer.Replace(m.Text)})
			}
			return resp, nil
		},
	}
}

func (rc ResourceFileConfig) toResource(name string) (components.Resource, error) {
	res := components.Resource{
		Uri:         rc.Uri,
		UriTemplate: rc.UriTemplate,
		Name:        name,
		Title:       rc.Title,
		Description: rc.Description,
		MimeType:    rc.MimeType,
	}
	switch rc.Kind {
	case "", "static":
		if rc.Text != "" && rc.Blob != "" {
			return res, fmt.Errorf("static resource must carry either text or blob, not both")
		}
		text, blob := rc.Text, rc.Blob
		res.Handler = func(ctx context.Context, uri string, vars map[string]string, f *components.Frame) (*components.ResourceResponse, error) {
			if blob != "" {
				return components.NewResourceBlob(blob), nil
			}
			return components.NewResourceText(text), nil
		}
	case "sqlitefs":
		if rc.UriTemplate == "" {
			return res, fmt.Errorf("sqlitefs resources require a uriTemplate with a {name} variable")
		}
		store, err := sqlitefs.Open(rc.Path)
		if err != nil {
			return res, err
		}
		res.Handler = func(ctx context.Context, uri string, vars map[string]string, f *components.Frame) (*components.ResourceResponse, error) {
			entry, ok := vars["name"]
			if !ok {
				return nil, fmt.Errorf("uri %q does not bind the {name} variable", uri)
			}
			mimeType, text, blob, err := store.Read(ctx, entry)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return nil, fmt.Errorf("no stored resource named %q", entry)
				}
				return nil, err
			}
			var resp *components.ResourceResponse
			if len(blob) > 0 {
				resp = components.NewResourceBlob(base64.StdEncoding.EncodeToString(blob))
			} else {
				resp = components.NewResourceText(text)
			}
			return resp.MimeType(mimeType), nil
		}
		res.Completer = func(ctx context.Context, arg mcp.CompletionArgument, f *components.Frame) (*components.CompletionResponse, error) {
			names, err := store.Complete(ctx, arg.Value)
			if err != nil {
				return nil, err
			}
			resp := components.NewCompletionResponse()
			for _, n := range names {
				resp.Value(n)
			}
			return resp, nil
		}
	}
	return res, nil
}

// LoadConfigFile reads, parses and registers path into the server's shared
// registry. Server settings in the file only take effect at startup; a
// reload swaps components.
func (s *Server) LoadConfigFile(ctx context.Context, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("unable to read config file at %q: %w", path, err)
	}
	cfg, err := ParseFileConfig(raw)
	if err != nil {
		return fmt.Errorf("unable to parse config file at %q: %w", path, err)
	}
	return s.ReplaceRegistry(ctx, cfg.Register)
}

// WatchConfigFile reloads the config file on every write until ctx ends. A
// reload that fails to parse keeps the previous components.
func (s *Server) WatchConfigFile(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("unable to create watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return fmt.Errorf("unable to watch %q: %w", path, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if err := s.LoadConfigFile(ctx, path); err != nil {
					s.logger.WarnContext(ctx, fmt.Sprintf("config reload failed, keeping previous components: %v", err))
					continue
				}
				s.logger.InfoContext(ctx, fmt.Sprintf("reloaded components from %q", path))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.WarnContext(ctx, fmt.Sprintf("config watcher error: %v", err))
			}
		}
	}()
	return nil
}
