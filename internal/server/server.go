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

// Package server ties the protocol engine, the component registry, the
// session store and the transports into a runnable MCP server.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mcpkit/mcpkit/internal/components"
	"github.com/mcpkit/mcpkit/internal/jsonrpc"
	"github.com/mcpkit/mcpkit/internal/log"
	"github.com/mcpkit/mcpkit/internal/mcp"
	"github.com/mcpkit/mcpkit/internal/outbound"
	"github.com/mcpkit/mcpkit/internal/session"
	"github.com/mcpkit/mcpkit/internal/telemetry"
	"github.com/mcpkit/mcpkit/internal/util"
)

// Hooks are the host application's extension points. All fields are
// optional; a nil hook falls back to the engine's default behavior.
type Hooks struct {
	// Assigns seeds the frame's assigns map for each inbound message,
	// e.g. with the authenticated subject derived from transport metadata.
	Assigns func(ctx context.Context, transport map[string]any) map[string]any
	// OnInitialize runs once per session, after notifications/initialized.
	OnInitialize func(ctx context.Context, frame *components.Frame)
	// HandleRequest serves request methods outside the built-in surface.
	// Returning handled=false declines the method and the engine answers
	// with method-not-found.
	HandleRequest func(ctx context.Context, frame *components.Frame) (result any, rpcErr *jsonrpc.McpError, handled bool)
	// HandleNotification observes notifications the engine does not
	// recognize.
	HandleNotification func(ctx context.Context, frame *components.Frame)
	// OnSamplingResult receives the client's reply to a
	// sampling/createMessage request. Exactly one of result and rpcErr is
	// set.
	OnSamplingResult func(ctx context.Context, rec outbound.Record, result *mcp.CreateMessageResult, rpcErr *jsonrpc.McpError)
	// OnRootsResult receives the client's reply to a roots/list request.
	OnRootsResult func(ctx context.Context, rec outbound.Record, result *mcp.ListRootsResult, rpcErr *jsonrpc.McpError)
	// OnOutboundTimeout fires when a server-initiated request expires
	// before the client replies.
	OnOutboundTimeout func(rec outbound.Record)
}

// Server is the coordinator. It owns the session store, the component
// registry and the outbound-request tracker, and every message that leaves
// the server passes through one of its send methods.
type Server struct {
	version string
	cfg     ServerConfig
	logger  log.Logger
	instrumentation *telemetry.Instrumentation

	registry *components.Registry
	sessions *session.Store
	tracker  *outbound.Tracker

	mu       sync.Mutex
	hooks    Hooks
	overlays map[string]*components.Registry

	srv        *http.Server
	listener   net.Listener
	sseManager *sseManager
}

// NewServer returns a Server based on the given config.
func NewServer(ctx context.Context, cfg ServerConfig) (*Server, error) {
	logger, err := util.LoggerFromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to get logger from ctx: %w", err)
	}
	cfg = cfg.withDefaults()

	instrumentation, err := telemetry.NewInstrumentation(cfg.Version)
	if err != nil {
		return nil, fmt.Errorf("unable to create telemetry instrumentation: %w", err)
	}

	s := &Server{
		version:         cfg.Version,
		cfg:             cfg,
		logger:          logger,
		instrumentation: instrumentation,
		registry:        components.NewRegistry(components.WithPageLimit(cfg.ListPaginationLimit)),
		tracker:         outbound.NewTracker(),
		overlays:        map[string]*components.Registry{},
		sseManager: &sseManager{
			mu:          sync.RWMutex{},
			sseSessions: make(map[string]*sseSession),
		},
	}
	s.sessions = session.NewStore(
		session.WithIdleTimeout(cfg.SessionIdleTimeout),
		session.WithDestroyHook(s.sessionDestroyed),
	)

	addr := net.JoinHostPort(cfg.Address, strconv.Itoa(cfg.Port))
	router, err := s.apiRouter(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to set up router: %w", err)
	}
	s.srv = &http.Server{Addr: addr, Handler: router, BaseContext: func(net.Listener) context.Context { return ctx }}
	return s, nil
}

// Registry returns the shared component registry; register tools, prompts
// and resources on it before serving.
func (s *Server) Registry() *components.Registry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry
}

// ReplaceRegistry atomically swaps the shared registry for one built by
// build, then broadcasts list_changed notifications. Used by config
// hot-reload.
func (s *Server) ReplaceRegistry(ctx context.Context, build func(*components.Registry) error) error {
	reg := components.NewRegistry(components.WithPageLimit(s.cfg.ListPaginationLimit))
	if err := build(reg); err != nil {
		return err
	}
	s.mu.Lock()
	s.registry = reg
	s.mu.Unlock()
	for _, kind := range []string{"tools", "prompts", "resources"} {
		s.NotifyListChanged(ctx, kind)
	}
	return nil
}

// SetHooks installs the host application's hooks. Call before serving.
func (s *Server) SetHooks(h Hooks) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = h
}

func (s *Server) hooksSnapshot() Hooks {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hooks
}

// Listen starts listening on the configured address.
func (s *Server) Listen(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return fmt.Errorf("server is already listening: %s", s.listener.Addr().String())
	}
	lc := net.ListenConfig{}
	var err error
	if s.listener, err = lc.Listen(ctx, "tcp", s.srv.Addr); err != nil {
		return fmt.Errorf("failed to open listener for %q: %w", s.srv.Addr, err)
	}
	s.logger.DebugContext(ctx, fmt.Sprintf("server listening on %s", s.srv.Addr))
	return nil
}

// Serve starts the HTTP server and blocks until shutdown.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.DebugContext(ctx, "server serving")
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()
	if listener == nil {
		return fmt.Errorf("server is not listening")
	}
	return s.srv.Serve(listener)
}

// Shutdown gracefully stops the HTTP server, destroys all sessions and
// cancels all in-flight outbound requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.DebugContext(ctx, "server shutting down")
	err := s.srv.Shutdown(ctx)
	s.sessions.Close()
	return err
}

// DestroySession removes a session explicitly, e.g. on HTTP DELETE or when
// a stdio transport closes.
func (s *Server) DestroySession(id string) {
	s.sessions.Destroy(id)
}

// sessionDestroyed is the store's destroy hook. It drops the session's
// in-flight outbound requests and its dynamic component overlay.
func (s *Server) sessionDestroyed(id string) {
	s.tracker.DropSession(id)
	s.mu.Lock()
	delete(s.overlays, id)
	s.mu.Unlock()
	s.logger.Debug(fmt.Sprintf("session %q destroyed", id))
}

// overlayFor returns the session-scoped registry holding components
// registered dynamically from frames, creating it on first use.
func (s *Server) overlayFor(sessionID string) *components.Registry {
	s.mu.Lock()
	defer s.mu.Unlock()
	overlay, ok := s.overlays[sessionID]
	if !ok {
		overlay = components.NewRegistry(components.WithPageLimit(s.cfg.ListPaginationLimit))
		s.overlays[sessionID] = overlay
	}
	return overlay
}

// buildFrame assembles the per-request context handed to user callbacks.
func (s *Server) buildFrame(ctx context.Context, sess *session.Session, transport map[string]any) *components.Frame {
	private := map[string]any{
		components.PrivateSessionID: sess.ID(),
	}
	if sess.Initialized() {
		private[components.PrivateProtocolVersion] = sess.ProtocolVersion()
		private[components.PrivateClientInfo] = sess.ClientInfo()
		private[components.PrivateClientCapabilities] = sess.ClientCapabilities()
	}
	var assigns map[string]any
	if hooks := s.hooksSnapshot(); hooks.Assigns != nil {
		assigns = hooks.Assigns(ctx, transport)
	}
	frame := components.NewFrame(s, s.overlayFor(sess.ID()), assigns, transport, private)
	frame.Initialized = sess.Initialized()
	return frame
}

// send marshals a wire message and hands it to the session's transport.
func (s *Server) send(ctx context.Context, sessionID string, payload any) error {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return fmt.Errorf("unknown session %q", sessionID)
	}
	sender := sess.Sender()
	if sender == nil {
		return fmt.Errorf("session %q has no transport attached", sessionID)
	}
	data, err := jsonrpc.Marshal(payload)
	if err != nil {
		return fmt.Errorf("unable to marshal outbound message: %w", err)
	}
	return sender.Send(ctx, data)
}

// SendNotification implements components.Handle.
func (s *Server) SendNotification(ctx context.Context, sessionID, method string, params any) error {
	return s.send(ctx, sessionID, jsonrpc.NewNotification(method, params))
}

// RequestSampling implements components.Handle. The request is refused
// unless the client advertised the sampling capability during initialize.
func (s *Server) RequestSampling(ctx context.Context, sessionID string, params mcp.CreateMessageParams, timeout time.Duration) (jsonrpc.RequestId, error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, fmt.Errorf("unknown session %q", sessionID)
	}
	if !sess.Initialized() {
		return nil, fmt.Errorf("session %q is not initialized", sessionID)
	}
	if sess.ClientCapabilities().Sampling == nil {
		return nil, fmt.Errorf("client did not advertise the sampling capability")
	}
	return s.sendOutbound(ctx, sess, mcp.SAMPLING_CREATE_MESSAGE, params, timeout)
}

// RequestRoots implements components.Handle. The request is refused unless
// the client advertised the roots capability during initialize.
func (s *Server) RequestRoots(ctx context.Context, sessionID string, timeout time.Duration) (jsonrpc.RequestId, error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, fmt.Errorf("unknown session %q", sessionID)
	}
	if !sess.Initialized() {
		return nil, fmt.Errorf("session %q is not initialized", sessionID)
	}
	if sess.ClientCapabilities().Roots == nil {
		return nil, fmt.Errorf("client did not advertise the roots capability")
	}
	return s.sendOutbound(ctx, sess, mcp.ROOTS_LIST, nil, timeout)
}

// sendOutbound allocates an id, tracks the request and writes it to the
// transport. On timeout the server tells the client to stop working on it.
func (s *Server) sendOutbound(ctx context.Context, sess *session.Session, method string, params any, timeout time.Duration) (jsonrpc.RequestId, error) {
	if timeout <= 0 {
		timeout = s.cfg.OutboundRequestTimeout
	}
	id := uuid.New().String()
	rec := outbound.Record{Id: id, Method: method, SessionID: sess.ID()}
	s.tracker.Track(rec, timeout, s.outboundTimedOut)
	if err := s.send(ctx, sess.ID(), jsonrpc.NewRequest(id, method, params)); err != nil {
		s.tracker.Resolve(id)
		return nil, fmt.Errorf("unable to send %s request: %w", method, err)
	}
	return id, nil
}

func (s *Server) outboundTimedOut(rec outbound.Record) {
	ctx := context.Background()
	s.logger.Warn(fmt.Sprintf("outbound %s request %v to session %q timed out", rec.Method, rec.Id, rec.SessionID))
	err := s.SendNotification(ctx, rec.SessionID, mcp.NOTIFICATION_CANCELLED, mcp.CancelledParams{
		RequestId: rec.Id,
		Reason:    "timeout",
	})
	if err != nil {
		s.logger.Debug(fmt.Sprintf("unable to notify session %q of cancellation: %v", rec.SessionID, err))
	}
	if hooks := s.hooksSnapshot(); hooks.OnOutboundTimeout != nil {
		hooks.OnOutboundTimeout(rec)
	}
}

// LogToClient implements components.Handle. Messages below the session's
// minimum log level are dropped.
func (s *Server) LogToClient(ctx context.Context, sessionID string, level mcp.LogLevel, message string, data any) error {
	if !level.Valid() {
		return fmt.Errorf("invalid log level %q", level)
	}
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return fmt.Errorf("unknown session %q", sessionID)
	}
	if !sess.LogLevel().Includes(level) {
		return nil
	}
	return s.SendNotification(ctx, sessionID, mcp.NOTIFICATION_MESSAGE, mcp.LoggingMessageParams{
		Level:   level,
		Message: message,
		Data:    data,
	})
}

// NotifyListChanged broadcasts a list_changed notification for kind
// ("tools", "prompts" or "resources") to every session whose capability
// advertises it.
func (s *Server) NotifyListChanged(ctx context.Context, kind string) {
	var method string
	switch kind {
	case "tools":
		if s.cfg.Capabilities.Tools == nil || !s.cfg.Capabilities.Tools.ListChanged {
			return
		}
		method = mcp.NOTIFICATION_TOOLS_LIST_CHANGED
	case "prompts":
		if s.cfg.Capabilities.Prompts == nil || !s.cfg.Capabilities.Prompts.ListChanged {
			return
		}
		method = mcp.NOTIFICATION_PROMPTS_LIST_CHANGED
	case "resources":
		if s.cfg.Capabilities.Resources == nil || !s.cfg.Capabilities.Resources.ListChanged {
			return
		}
		method = mcp.NOTIFICATION_RESOURCES_LIST_CHANGED
	default:
		return
	}
	s.sessions.ForEach(func(sess *session.Session) {
		if !sess.Initialized() {
			return
		}
		if err := s.SendNotification(ctx, sess.ID(), method, nil); err != nil {
			s.logger.Debug(fmt.Sprintf("unable to notify session %q: %v", sess.ID(), err))
		}
	})
}
