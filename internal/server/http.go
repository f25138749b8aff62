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
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/mcpkit/mcpkit/internal/jsonrpc"
	"github.com/mcpkit/mcpkit/internal/log"
	"github.com/mcpkit/mcpkit/internal/mcp"
	"github.com/mcpkit/mcpkit/internal/session"
	"github.com/mcpkit/mcpkit/internal/util"
)

// sseSession is one open text/event-stream connection. It doubles as the
// session's sender so server-initiated messages are pushed down the stream.
type sseSession struct {
	writer     http.ResponseWriter
	flusher    http.Flusher
	done       chan struct{}
	eventQueue chan string
	lastActive time.Time
}

// Send queues one wire message as an SSE event. It never blocks the
// coordinator; a stalled client loses the event.
func (s *sseSession) Send(ctx context.Context, data []byte) error {
	event := fmt.Sprintf("event: message\ndata: %s\n\n", data)
	select {
	case s.eventQueue <- event:
		return nil
	case <-s.done:
		return fmt.Errorf("sse session is closed")
	default:
		return fmt.Errorf("sse event queue is full")
	}
}

// sseManager manages and controls access to sse sessions.
type sseManager struct {
	mu          sync.RWMutex
	sseSessions map[string]*sseSession
}

func (m *sseManager) get(id string) (*sseSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sseSessions[id]
	if ok {
		sess.lastActive = time.Now()
	}
	return sess, ok
}

func (m *sseManager) add(id string, sess *sseSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sseSessions[id] = sess
	sess.lastActive = time.Now()
}

func (m *sseManager) remove(id string) {
	m.mu.Lock()
	delete(m.sseSessions, id)
	m.mu.Unlock()
}

// discardSender backs plain streamable-HTTP sessions that have no open
// stream. Responses travel in the POST body; pushes have nowhere to go.
type discardSender struct {
	logger log.Logger
}

func (d *discardSender) Send(ctx context.Context, data []byte) error {
	d.logger.DebugContext(ctx, fmt.Sprintf("dropping push message, session has no open stream: %s", data))
	return nil
}

// apiRouter sets up the top-level router with logging middleware and
// mounts the MCP routes under /mcp.
func (s *Server) apiRouter(ctx context.Context) (chi.Router, error) {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	logLevel, err := log.SeverityToLevel(s.cfg.LogLevel.String())
	if err != nil {
		return nil, fmt.Errorf("unable to initialize http log: %w", err)
	}
	var httpOpts httplog.Options
	switch s.cfg.LoggingFormat.String() {
	case "json":
		httpOpts = httplog.Options{
			JSON:             true,
			LogLevel:         logLevel,
			Concise:          true,
			RequestHeaders:   true,
			MessageFieldName: "message",
			SourceFieldName:  "logging.googleapis.com/sourceLocation",
			TimeFieldName:    "timestamp",
			LevelFieldName:   "severity",
		}
	case "standard":
		httpOpts = httplog.Options{
			LogLevel:         logLevel,
			Concise:          true,
			RequestHeaders:   true,
			MessageFieldName: "message",
		}
	default:
		return nil, fmt.Errorf("invalid logging format: %q", s.cfg.LoggingFormat.String())
	}
	httpLogger := httplog.NewLogger("httplog", httpOpts)
	r.Use(httplog.RequestLogger(httpLogger))

	mcpR, err := mcpRouter(s)
	if err != nil {
		return nil, fmt.Errorf("unable to set up mcp router: %w", err)
	}
	r.Mount("/mcp", mcpR)

	// default endpoint for validating server is running
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(fmt.Sprintf("%s %s", s.cfg.ServerInfo.Name, s.version)))
	})

	go s.sseCleanupRoutine(ctx)
	return r, nil
}

// mcpRouter creates a router that represents the routes under /mcp
func mcpRouter(s *Server) (chi.Router, error) {
	r := chi.NewRouter()

	r.Use(middleware.StripSlashes)

	r.Get("/sse", func(w http.ResponseWriter, r *http.Request) { sseHandler(s, w, r) })
	r.Group(func(r chi.Router) {
		r.Use(middleware.AllowContentType("application/json"))
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/", func(w http.ResponseWriter, r *http.Request) { methodNotAllowed(s, w, r) })
		r.Post("/", func(w http.ResponseWriter, r *http.Request) { httpHandler(s, w, r) })
		r.Delete("/", func(w http.ResponseWriter, r *http.Request) { deleteHandler(s, w, r) })
	})

	return r, nil
}

func (s *Server) sseCleanupRoutine(ctx context.Context) {
	timeout := 10 * time.Minute
	ticker := time.NewTicker(timeout)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			func() {
				s.sseManager.mu.Lock()
				defer s.sseManager.mu.Unlock()
				now := time.Now()
				for id, sess := range s.sseManager.sseSessions {
					if now.Sub(sess.lastActive) > timeout {
						delete(s.sseManager.sseSessions, id)
					}
				}
			}()
		}
	}
}

// sseHandler establishes the legacy HTTP+SSE transport: it opens the event
// stream, announces the message endpoint and then pumps queued events until
// the client disconnects.
func sseHandler(s *Server, w http.ResponseWriter, r *http.Request) {
	ctx, span := s.instrumentation.Tracer.Start(r.Context(), "mcpkit/server/mcp/sse")
	r = r.WithContext(ctx)

	sessionId := uuid.New().String()
	span.SetAttributes(attribute.String("session_id", sessionId))

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	var err error
	defer func() {
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		status := "success"
		if err != nil {
			status = "error"
		}
		s.instrumentation.McpSse.Add(
			r.Context(),
			1,
			metric.WithAttributes(attribute.String("mcpkit.sse.sessionId", sessionId)),
			metric.WithAttributes(attribute.String("mcpkit.operation.status", status)),
		)
	}()

	flusher, ok := w.(http.Flusher)
	if !ok {
		err = fmt.Errorf("unable to retrieve flusher for sse")
		s.logger.DebugContext(ctx, err.Error())
		_ = render.Render(w, r, newErrResponse(err, http.StatusInternalServerError))
		return
	}
	sseSess := &sseSession{
		writer:     w,
		flusher:    flusher,
		done:       make(chan struct{}),
		eventQueue: make(chan string, 100),
	}
	s.sseManager.add(sessionId, sseSess)
	defer s.sseManager.remove(sessionId)
	defer s.DestroySession(sessionId)

	// https scheme formatting if (forwarded) request is a TLS request
	proto := r.Header.Get("X-Forwarded-Proto")
	if proto == "" {
		if r.TLS == nil {
			proto = "http"
		} else {
			proto = "https"
		}
	}

	// send initial endpoint event
	messageEndpoint := fmt.Sprintf("%s://%s/mcp?sessionId=%s", proto, r.Host, sessionId)
	s.logger.DebugContext(ctx, fmt.Sprintf("sending endpoint event: %s", messageEndpoint))
	fmt.Fprintf(w, "event: endpoint\ndata: %s\n\n", messageEndpoint)
	flusher.Flush()

	clientClose := r.Context().Done()
	for {
		select {
		// Ensure that only a single response is written at once
		case event := <-sseSess.eventQueue:
			fmt.Fprint(w, event)
			flusher.Flush()
			// channel for client disconnection
		case <-clientClose:
			close(sseSess.done)
			s.logger.DebugContext(ctx, "client disconnected")
			return
		}
	}
}

func methodNotAllowed(s *Server, w http.ResponseWriter, r *http.Request) {
	err := fmt.Errorf("streaming GET is not supported on the streamable HTTP transport")
	s.logger.DebugContext(r.Context(), err.Error())
	_ = render.Render(w, r, newErrResponse(err, http.StatusMethodNotAllowed))
}

// deleteHandler ends a streamable-HTTP session explicitly.
func deleteHandler(s *Server, w http.ResponseWriter, r *http.Request) {
	sessionId := r.Header.Get("Mcp-Session-Id")
	if sessionId == "" {
		err := fmt.Errorf("missing Mcp-Session-Id header")
		_ = render.Render(w, r, newErrResponse(err, http.StatusBadRequest))
		return
	}
	s.DestroySession(sessionId)
	w.WriteHeader(http.StatusNoContent)
}

// httpHandler serves all POSTed MCP messages.
func httpHandler(s *Server, w http.ResponseWriter, r *http.Request) {
	ctx, span := s.instrumentation.Tracer.Start(r.Context(), "mcpkit/server/mcp")
	r = r.WithContext(ctx)
	ctx = util.WithLogger(r.Context(), s.logger)

	var sessionId string
	var sseSess *sseSession

	// v2024-11-05 clients connect via sse and post to ?sessionId=
	paramSessionId := r.URL.Query().Get("sessionId")
	if paramSessionId != "" {
		sessionId = paramSessionId
		var ok bool
		sseSess, ok = s.sseManager.get(sessionId)
		if !ok {
			s.logger.DebugContext(ctx, "sse session not available")
		}
	}

	// v2025-03-26 clients carry the session in the `Mcp-Session-Id` header
	headerSessionId := r.Header.Get("Mcp-Session-Id")
	if headerSessionId != "" {
		sessionId = headerSessionId
	}

	// a first initialize request has no session yet
	newSession := sessionId == ""
	if newSession {
		sessionId = uuid.New().String()
	}
	span.SetAttributes(attribute.String("session_id", sessionId))

	// check if client sent the `MCP-Protocol-Version` header
	headerProtocolVersion := r.Header.Get("MCP-Protocol-Version")
	if headerProtocolVersion != "" {
		if !mcp.VerifyProtocolVersion(s.cfg.SupportedProtocolVersions, headerProtocolVersion) {
			err := fmt.Errorf("invalid protocol version: %s", headerProtocolVersion)
			_ = render.Render(w, r, newErrResponse(err, http.StatusBadRequest))
			return
		}
	}

	var err error
	defer func() {
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()

		status := "success"
		if err != nil {
			status = "error"
		}
		s.instrumentation.McpPost.Add(
			r.Context(),
			1,
			metric.WithAttributes(attribute.String("mcpkit.sse.sessionId", sessionId)),
			metric.WithAttributes(attribute.String("mcpkit.operation.status", status)),
		)
	}()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.logger.DebugContext(ctx, err.Error())
		render.JSON(w, r, jsonrpc.NewError(nil, jsonrpc.PARSE_ERROR, "Parse error", nil))
		return
	}

	var sender session.Sender
	if sseSess != nil {
		sender = sseSess
	} else {
		sender = &discardSender{logger: s.logger}
	}

	res := s.HandleMessage(ctx, sessionId, body, httpTransportMeta(r), sender)

	if newSession {
		w.Header().Set("Mcp-Session-Id", sessionId)
	}
	if res == nil {
		// Notifications and responses do not expect a reply
		w.WriteHeader(http.StatusAccepted)
		return
	}

	if sseSess != nil {
		// the legacy transport answers over the event stream
		eventData, _ := jsonrpc.Marshal(res)
		if sendErr := sseSess.Send(ctx, eventData); sendErr != nil {
			s.logger.DebugContext(ctx, fmt.Sprintf("unable to queue sse event: %v", sendErr))
		}
	}
	render.JSON(w, r, res)
}

// httpTransportMeta surfaces request metadata to frames.
func httpTransportMeta(r *http.Request) map[string]any {
	headers := map[string]string{}
	for k := range r.Header {
		headers[k] = r.Header.Get(k)
	}
	return map[string]any{
		"kind":        "http",
		"remote_addr": r.RemoteAddr,
		"headers":     headers,
		"user_agent":  r.UserAgent(),
	}
}

var _ render.Renderer = &errResponse{} // Renderer interface for managing response payloads.

// newErrResponse is a helper function initalizing an errResponse
func newErrResponse(err error, code int) *errResponse {
	return &errResponse{
		Err:            err,
		HTTPStatusCode: code,

		StatusText: http.StatusText(code),
		ErrorText:  err.Error(),
	}
}

// errResponse is the response sent back when an error has been encountered.
type errResponse struct {
	Err            error `json:"-"` // low-level runtime error
	HTTPStatusCode int   `json:"-"` // http response status code

	StatusText string `json:"status"`          // user-level status message
	ErrorText  string `json:"error,omitempty"` // application-level error message, for debugging
}

func (e *errResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}
