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
	"fmt"
	"strings"
	"time"

	"github.com/mcpkit/mcpkit/internal/mcp"
)

// ServerConfig carries everything needed to run an instance of mcpkit.
type ServerConfig struct {
	// Server version
	Version string
	// Address is the address of the interface the server will listen on.
	Address string
	// Port is the port the server will listen on.
	Port int
	// ServerInfo identifies this server in the initialize response.
	ServerInfo mcp.Implementation
	// SupportedProtocolVersions is the ordered list of supported protocol
	// versions, newest first.
	SupportedProtocolVersions []string
	// Capabilities are the capabilities advertised during initialize.
	Capabilities CapabilitiesConfig
	// SessionIdleTimeout destroys sessions that stay silent this long.
	SessionIdleTimeout time.Duration
	// OutboundRequestTimeout bounds server-initiated requests by default.
	OutboundRequestTimeout time.Duration
	// ListPaginationLimit caps list pages; zero means unbounded.
	ListPaginationLimit int
	// Instructions are included in the initialize response when set.
	Instructions string
	// LoggingFormat defines whether structured loggings are used.
	LoggingFormat LogFormat
	// LogLevel defines the levels to log
	LogLevel StringLevel
	// TelemetryOTLP, when set, exports traces and metrics to this OTLP
	// HTTP endpoint.
	TelemetryOTLP string
}

// withDefaults fills unset fields with their documented defaults.
func (c ServerConfig) withDefaults() ServerConfig {
	if c.ServerInfo.Name == "" {
		c.ServerInfo = mcp.Implementation{Name: "mcpkit", Version: c.Version}
	}
	if len(c.SupportedProtocolVersions) == 0 {
		c.SupportedProtocolVersions = mcp.DefaultSupportedVersions
	}
	if c.SessionIdleTimeout == 0 {
		c.SessionIdleTimeout = 30 * time.Minute
	}
	if c.OutboundRequestTimeout == 0 {
		c.OutboundRequestTimeout = 30 * time.Second
	}
	return c
}

// ListChangedConfig configures a capability that may notify list changes.
type ListChangedConfig struct {
	ListChanged bool `yaml:"listChanged"`
}

// ResourcesConfig configures the resources capability.
type ResourcesConfig struct {
	ListChanged bool `yaml:"listChanged"`
	Subscribe   bool `yaml:"subscribe"`
}

// CapabilitiesConfig enumerates the capabilities the server advertises.
// A nil entry means the capability is not advertised and its methods are
// refused.
type CapabilitiesConfig struct {
	Tools      *ListChangedConfig `yaml:"tools,omitempty"`
	Prompts    *ListChangedConfig `yaml:"prompts,omitempty"`
	Resources  *ResourcesConfig   `yaml:"resources,omitempty"`
	Logging    bool               `yaml:"logging"`
	Completion bool               `yaml:"completion"`
}

// ToProtocol converts the configuration to the initialize wire shape.
func (c CapabilitiesConfig) ToProtocol() mcp.ServerCapabilities {
	var caps mcp.ServerCapabilities
	if c.Tools != nil {
		lc := c.Tools.ListChanged
		caps.Tools = &mcp.ListChanged{ListChanged: &lc}
	}
	if c.Prompts != nil {
		lc := c.Prompts.ListChanged
		caps.Prompts = &mcp.ListChanged{ListChanged: &lc}
	}
	if c.Resources != nil {
		lc := c.Resources.ListChanged
		sub := c.Resources.Subscribe
		caps.Resources = &mcp.ResourcesCapability{ListChanged: &lc, Subscribe: &sub}
	}
	if c.Logging {
		caps.Logging = &struct{}{}
	}
	if c.Completion {
		caps.Completion = &struct{}{}
	}
	return caps
}

// LogFormat is the logging format CLI flag.
type LogFormat string

// String is used by both fmt.Print and by Cobra in help text
func (f *LogFormat) String() string {
	if string(*f) != "" {
		return strings.ToLower(string(*f))
	}
	return "standard"
}

// Set validates the logging format flag
func (f *LogFormat) Set(v string) error {
	switch strings.ToLower(v) {
	case "standard", "json":
		*f = LogFormat(v)
		return nil
	default:
		return fmt.Errorf(`log format must be one of "standard", or "json"`)
	}
}

// Type is used in Cobra help text
func (f *LogFormat) Type() string {
	return "logFormat"
}

// StringLevel is the log level CLI flag.
type StringLevel string

// String is used by both fmt.Print and by Cobra in help text
func (s *StringLevel) String() string {
	if string(*s) != "" {
		return strings.ToLower(string(*s))
	}
	return "info"
}

// Set validates the log level flag
func (s *StringLevel) Set(v string) error {
	switch strings.ToLower(v) {
	case "debug", "info", "warn", "error":
		*s = StringLevel(v)
		return nil
	default:
		return fmt.Errorf(`log level must be one of "debug", "info", "warn", or "error"`)
	}
}

// Type is used in Cobra help text
func (s *StringLevel) Type() string {
	return "stringLevel"
}
