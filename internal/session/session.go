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

// Package session holds per-client MCP session state: initialization
// status, the negotiated protocol version, pending inbound requests and the
// binding to the client's transport.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/mcpkit/mcpkit/internal/jsonrpc"
	"github.com/mcpkit/mcpkit/internal/mcp"
)

// Sender is the outbound half of a transport binding: the core hands it
// encoded bytes and it delivers them to the client best-effort.
type Sender interface {
	Send(ctx context.Context, data []byte) error
}

// PendingRequest records an inbound request between track and complete.
type PendingRequest struct {
	Method    string
	StartedAt time.Time
}

// Session is the per-client state. All methods are safe for concurrent use;
// mutations on a single session are linearized by its mutex.
type Session struct {
	mu sync.Mutex

	id                 string
	initialized        bool
	protocolVersion    string
	clientInfo         mcp.Implementation
	clientCapabilities mcp.ClientCapabilities
	logLevel           mcp.LogLevel
	pending            map[string]PendingRequest
	sender             Sender

	idleTimer *time.Timer
}

func newSession(id string, sender Sender) *Session {
	return &Session{
		id:       id,
		logLevel: mcp.LevelDebug,
		pending:  make(map[string]PendingRequest),
		sender:   sender,
	}
}

// ID returns the transport-chosen session identifier.
func (s *Session) ID() string { return s.id }

// Initialized reports whether the client has sent notifications/initialized.
func (s *Session) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// MarkInitialized flips the session into the initialized state. The
// transition happens at most once.
func (s *Session) MarkInitialized() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = true
}

// UpdateAfterInitialize records the outcome of the initialize request.
func (s *Session) UpdateAfterInitialize(protocolVersion string, clientInfo mcp.Implementation, caps mcp.ClientCapabilities) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.protocolVersion = protocolVersion
	s.clientInfo = clientInfo
	s.clientCapabilities = caps
}

// ProtocolVersion returns the negotiated protocol version, or "" before the
// initialize handshake completes.
func (s *Session) ProtocolVersion() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.protocolVersion
}

// ClientInfo returns the client implementation info from initialize.
func (s *Session) ClientInfo() mcp.Implementation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clientInfo
}

// ClientCapabilities returns the capability map from initialize.
func (s *Session) ClientCapabilities() mcp.ClientCapabilities {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clientCapabilities
}

// SetLogLevel updates the session's minimum log level.
func (s *Session) SetLogLevel(level mcp.LogLevel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logLevel = level
}

// LogLevel returns the session's minimum log level; default "debug".
func (s *Session) LogLevel() mcp.LogLevel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logLevel
}

// TrackRequest records an inbound request so a later cancellation can be
// validated and duration reported.
func (s *Session) TrackRequest(id jsonrpc.RequestId, method string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[jsonrpc.IdKey(id)] = PendingRequest{Method: method, StartedAt: time.Now()}
}

// CompleteRequest removes a tracked request and returns its record.
func (s *Session) CompleteRequest(id jsonrpc.RequestId) (PendingRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := jsonrpc.IdKey(id)
	p, ok := s.pending[key]
	if ok {
		delete(s.pending, key)
	}
	return p, ok
}

// HasPendingRequest reports whether id is a tracked inbound request.
func (s *Session) HasPendingRequest(id jsonrpc.RequestId) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[jsonrpc.IdKey(id)]
	return ok
}

// Sender returns the transport binding for outbound sends.
func (s *Session) Sender() Sender {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sender
}

func (s *Session) setSender(sender Sender) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sender != nil {
		s.sender = sender
	}
}
