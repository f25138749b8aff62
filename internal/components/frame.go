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
	"context"
	"encoding/json"
	"time"

	"github.com/mcpkit/mcpkit/internal/jsonrpc"
	"github.com/mcpkit/mcpkit/internal/mcp"
)

// Keys of the frame's private map.
const (
	PrivateSessionID          = "session_id"
	PrivateClientInfo         = "client_info"
	PrivateClientCapabilities = "client_capabilities"
	PrivateProtocolVersion    = "protocol_version"
)

// Request is the inbound request a frame is processing.
type Request struct {
	Id     jsonrpc.RequestId
	Method string
	Params json.RawMessage
}

// Handle is the frame's private channel back into the coordinator. All
// outbound notifications and server-initiated requests go through it; there
// is no other send path.
type Handle interface {
	// SendNotification emits a notification to the session's transport.
	SendNotification(ctx context.Context, sessionID, method string, params any) error
	// RequestSampling issues sampling/createMessage, gated on the client's
	// sampling capability.
	RequestSampling(ctx context.Context, sessionID string, params mcp.CreateMessageParams, timeout time.Duration) (jsonrpc.RequestId, error)
	// RequestRoots issues roots/list, gated on the client's roots capability.
	RequestRoots(ctx context.Context, sessionID string, timeout time.Duration) (jsonrpc.RequestId, error)
	// LogToClient emits notifications/message filtered by the session's
	// log level.
	LogToClient(ctx context.Context, sessionID string, level mcp.LogLevel, message string, data any) error
}

// Frame is the immutable-by-convention per-request context passed into
// every user callback.
type Frame struct {
	// Assigns is populated by the host, e.g. with the authenticated subject.
	Assigns map[string]any
	// Transport is supplied by the transport per inbound message (headers,
	// peer info).
	Transport map[string]any
	// Private carries session identity and negotiation results.
	Private map[string]any
	// Request is the current inbound request, nil outside request dispatch.
	Request *Request
	// Initialized mirrors the session's initialization state.
	Initialized bool

	handle  Handle
	overlay *Registry
}

// NewFrame builds a frame bound to a session. overlay receives the frame's
// dynamic component registrations; it is scoped to the session.
func NewFrame(handle Handle, overlay *Registry, assigns, transport, private map[string]any) *Frame {
	if assigns == nil {
		assigns = map[string]any{}
	}
	if transport == nil {
		transport = map[string]any{}
	}
	if private == nil {
		private = map[string]any{}
	}
	return &Frame{
		Assigns:   assigns,
		Transport: transport,
		Private:   private,
		handle:    handle,
		overlay:   overlay,
	}
}

// WithRequest returns a copy of the frame carrying the current request.
func (f *Frame) WithRequest(req *Request) *Frame {
	f2 := *f
	f2.Request = req
	return &f2
}

// SessionID returns the transport-chosen session identifier.
func (f *Frame) SessionID() string {
	id, _ := f.Private[PrivateSessionID].(string)
	return id
}

// ProtocolVersion returns the session's negotiated protocol version.
func (f *Frame) ProtocolVersion() string {
	v, _ := f.Private[PrivateProtocolVersion].(string)
	return v
}

// ClientInfo returns the client implementation info from initialize.
func (f *Frame) ClientInfo() mcp.Implementation {
	info, _ := f.Private[PrivateClientInfo].(mcp.Implementation)
	return info
}

// ClientCapabilities returns the client capability map from initialize.
func (f *Frame) ClientCapabilities() mcp.ClientCapabilities {
	caps, _ := f.Private[PrivateClientCapabilities].(mcp.ClientCapabilities)
	return caps
}

// Overlay returns the session-scoped dynamic registry, or nil.
func (f *Frame) Overlay() *Registry { return f.overlay }

// RegisterTool adds a session-scoped tool, merged with static registrations
// at list time.
func (f *Frame) RegisterTool(t Tool) error {
	return f.dynamicRegistry().RegisterTool(t)
}

// RegisterPrompt adds a session-scoped prompt.
func (f *Frame) RegisterPrompt(p Prompt) error {
	return f.dynamicRegistry().RegisterPrompt(p)
}

// RegisterResource adds a session-scoped resource.
func (f *Frame) RegisterResource(res Resource) error {
	return f.dynamicRegistry().RegisterResource(res)
}

func (f *Frame) dynamicRegistry() *Registry {
	if f.overlay == nil {
		f.overlay = NewRegistry()
	}
	return f.overlay
}

// SendNotification emits an arbitrary notification to this session.
func (f *Frame) SendNotification(ctx context.Context, method string, params any) error {
	return f.handle.SendNotification(ctx, f.SessionID(), method, params)
}

// LogMessage emits notifications/message at level, subject to the session's
// minimum log level.
func (f *Frame) LogMessage(ctx context.Context, level mcp.LogLevel, message string, data any) error {
	return f.handle.LogToClient(ctx, f.SessionID(), level, message, data)
}

// Progress emits notifications/progress for the given token.
func (f *Frame) Progress(ctx context.Context, token any, progress float64, total *float64, message string) error {
	return f.handle.SendNotification(ctx, f.SessionID(), mcp.NOTIFICATION_PROGRESS, mcp.ProgressParams{
		ProgressToken: token,
		Progress:      progress,
		Total:         total,
		Message:       message,
	})
}

// ResourceUpdated emits notifications/resources/updated for uri.
func (f *Frame) ResourceUpdated(ctx context.Context, uri, timestamp string) error {
	return f.handle.SendNotification(ctx, f.SessionID(), mcp.NOTIFICATION_RESOURCES_UPDATED, mcp.ResourceUpdatedParams{
		Uri:       uri,
		Timestamp: timestamp,
	})
}

// SamplingOptions tune an outbound sampling/createMessage request.
type SamplingOptions struct {
	ModelPreferences *mcp.ModelPreferences
	SystemPrompt     string
	MaxTokens        int
	// Timeout bounds the wait for the client's response; zero means the
	// server default.
	Timeout time.Duration
}

// SendSamplingRequest issues sampling/createMessage towards the client and
// returns the allocated request id. The client must have advertised the
// sampling capability.
func (f *Frame) SendSamplingRequest(ctx context.Context, messages []mcp.SamplingMessage, opts *SamplingOptions) (jsonrpc.RequestId, error) {
	params := mcp.CreateMessageParams{Messages: messages}
	var timeout time.Duration
	if opts != nil {
		params.ModelPreferences = opts.ModelPreferences
		params.SystemPrompt = opts.SystemPrompt
		params.MaxTokens = opts.MaxTokens
		timeout = opts.Timeout
	}
	return f.handle.RequestSampling(ctx, f.SessionID(), params, timeout)
}

// RootsOptions tune an outbound roots/list request.
type RootsOptions struct {
	Timeout time.Duration
}

// SendRootsRequest issues roots/list towards the client and returns the
// allocated request id. The client must have advertised the roots
// capability.
func (f *Frame) SendRootsRequest(ctx context.Context, opts *RootsOptions) (jsonrpc.RequestId, error) {
	var timeout time.Duration
	if opts != nil {
		timeout = opts.Timeout
	}
	return f.handle.RequestRoots(ctx, f.SessionID(), timeout)
}
