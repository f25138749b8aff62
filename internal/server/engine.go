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
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mcpkit/mcpkit/internal/components"
	"github.com/mcpkit/mcpkit/internal/jsonrpc"
	"github.com/mcpkit/mcpkit/internal/mcp"
	"github.com/mcpkit/mcpkit/internal/session"
	"github.com/mcpkit/mcpkit/internal/util"
)

// HandleMessage processes one transport payload, a single JSON-RPC message
// or a batch, for the given session. It returns the wire value to send back
// to the client, or nil when nothing is due (notifications and responses).
//
// The session is created or refreshed as a side effect, so any traffic
// keeps a session alive.
func (s *Server) HandleMessage(ctx context.Context, sessionID string, body []byte, transport map[string]any, sender session.Sender) any {
	ctx, span := s.instrumentation.Tracer.Start(ctx, "mcpkit/server/mcp/message",
		trace.WithAttributes(attribute.String("mcp.session.id", sessionID)),
	)
	defer span.End()

	sess := s.sessions.Attach(sessionID, sender)

	if jsonrpc.IsBatch(body) {
		return s.handleBatch(ctx, sess, body, transport)
	}

	res := s.handleSingle(ctx, sess, body, transport)
	if rpcErr, ok := res.(jsonrpc.JSONRPCError); ok {
		span.SetStatus(codes.Error, rpcErr.Error.Message)
	}
	return res
}

// handleSingle processes one non-batch message.
func (s *Server) handleSingle(ctx context.Context, sess *session.Session, body []byte, transport map[string]any) any {
	m, err := jsonrpc.DecodeMessage(body)
	if err != nil {
		s.logger.DebugContext(ctx, fmt.Sprintf("session %q sent malformed JSON: %v", sess.ID(), err))
		return jsonrpc.NewError(nil, jsonrpc.PARSE_ERROR, "Parse error", nil)
	}

	// Replies to server-initiated requests are consumed here and never
	// produce a response of their own.
	if m.Method == "" && m.HasId() {
		s.handleOutboundReply(ctx, sess, m)
		return nil
	}

	if m.Jsonrpc != jsonrpc.JSONRPC_VERSION || m.Method == "" {
		var id jsonrpc.RequestId
		if m.HasId() {
			id = m.Id
		}
		return jsonrpc.NewError(id, jsonrpc.INVALID_REQUEST, "Invalid Request", nil)
	}

	if m.IsNotification() {
		s.handleNotification(ctx, sess, m, transport)
		return nil
	}
	return s.handleRequest(ctx, sess, m, transport)
}

// handleBatch processes a JSON array of messages, preserving order between
// the requests and their responses. A batch of only notifications yields
// nil.
func (s *Server) handleBatch(ctx context.Context, sess *session.Session, body []byte, transport map[string]any) any {
	elems, err := jsonrpc.DecodeBatch(body)
	if err != nil {
		if errors.Is(err, jsonrpc.ErrEmptyBatch) {
			return jsonrpc.NewError(nil, jsonrpc.INVALID_REQUEST, "Invalid Request", "batch cannot be empty")
		}
		return jsonrpc.NewError(nil, jsonrpc.PARSE_ERROR, "Parse error", nil)
	}

	// Batching is a 2025-03-26 feature. An uninitialized session has not
	// negotiated yet, so it gets the benefit of the doubt.
	if sess.Initialized() && !mcp.SupportsBatching(sess.ProtocolVersion()) {
		msg := fmt.Sprintf("batching requires protocol version %s", mcp.PROTOCOL_VERSION_20250326)
		return jsonrpc.NewError(nil, jsonrpc.INVALID_REQUEST, msg, nil)
	}

	var responses []any
	for _, elem := range elems {
		m, err := jsonrpc.DecodeMessage(elem)
		if err != nil {
			responses = append(responses, jsonrpc.NewError(nil, jsonrpc.PARSE_ERROR, "Parse error", nil))
			continue
		}
		if m.Method == mcp.INITIALIZE {
			var id jsonrpc.RequestId
			if m.HasId() {
				id = m.Id
			}
			responses = append(responses, jsonrpc.NewError(id, jsonrpc.INVALID_REQUEST, "initialize must not be part of a batch", nil))
			continue
		}
		if res := s.handleSingle(ctx, sess, elem, transport); res != nil {
			responses = append(responses, res)
		}
	}
	if len(responses) == 0 {
		return nil
	}
	return responses
}

// handleOutboundReply routes a response or error back to the outbound
// tracker and the host's result hooks. A record is only resolved by the
// session the request was sent to; replies carrying another session's id
// are dropped.
func (s *Server) handleOutboundReply(ctx context.Context, sess *session.Session, m *jsonrpc.Message) {
	rec, ok := s.tracker.ResolveFor(m.Id, sess.ID())
	if !ok {
		s.logger.DebugContext(ctx, fmt.Sprintf("discarding reply from session %q to unknown request id %v", sess.ID(), m.Id))
		return
	}
	hooks := s.hooksSnapshot()

	if m.Error != nil {
		switch rec.Method {
		case mcp.SAMPLING_CREATE_MESSAGE:
			if hooks.OnSamplingResult != nil {
				hooks.OnSamplingResult(ctx, rec, nil, m.Error)
			}
		case mcp.ROOTS_LIST:
			if hooks.OnRootsResult != nil {
				hooks.OnRootsResult(ctx, rec, nil, m.Error)
			}
		}
		return
	}

	switch rec.Method {
	case mcp.SAMPLING_CREATE_MESSAGE:
		if hooks.OnSamplingResult == nil {
			return
		}
		var result mcp.CreateMessageResult
		if err := util.DecodeJSON(bytes.NewReader(m.Result()), &result); err != nil {
			s.logger.WarnContext(ctx, fmt.Sprintf("unable to decode sampling result for request %v: %v", rec.Id, err))
			return
		}
		hooks.OnSamplingResult(ctx, rec, &result, nil)
	case mcp.ROOTS_LIST:
		if hooks.OnRootsResult == nil {
			return
		}
		var result mcp.ListRootsResult
		if err := util.DecodeJSON(bytes.NewReader(m.Result()), &result); err != nil {
			s.logger.WarnContext(ctx, fmt.Sprintf("unable to decode roots result for request %v: %v", rec.Id, err))
			return
		}
		hooks.OnRootsResult(ctx, rec, &result, nil)
	default:
		s.logger.DebugContext(ctx, fmt.Sprintf("discarding reply to untyped request %v (%s)", rec.Id, rec.Method))
	}
}

// handleNotification dispatches a notification. Notifications never produce
// a response, even on failure.
func (s *Server) handleNotification(ctx context.Context, sess *session.Session, m *jsonrpc.Message, transport map[string]any) {
	switch m.Method {
	case mcp.NOTIFICATION_INITIALIZED:
		if sess.Initialized() {
			s.logger.DebugContext(ctx, fmt.Sprintf("session %q sent a duplicate initialized notification", sess.ID()))
			return
		}
		if sess.ProtocolVersion() == "" {
			s.logger.WarnContext(ctx, fmt.Sprintf("session %q sent initialized before initialize", sess.ID()))
			return
		}
		sess.MarkInitialized()
		s.logger.InfoContext(ctx, fmt.Sprintf("session %q initialized (%s %s, protocol %s)",
			sess.ID(), sess.ClientInfo().Name, sess.ClientInfo().Version, sess.ProtocolVersion()))
		if hooks := s.hooksSnapshot(); hooks.OnInitialize != nil {
			frame := s.buildFrame(ctx, sess, transport)
			hooks.OnInitialize(ctx, frame)
		}
	case mcp.NOTIFICATION_CANCELLED:
		if !sess.Initialized() {
			s.logger.DebugContext(ctx, fmt.Sprintf("dropping %q notification from uninitialized session %q", m.Method, sess.ID()))
			return
		}
		var params mcp.CancelledParams
		if err := util.DecodeJSON(bytes.NewReader(m.Params), &params); err != nil {
			s.logger.DebugContext(ctx, fmt.Sprintf("session %q sent malformed cancellation: %v", sess.ID(), err))
			return
		}
		pending, ok := sess.CompleteRequest(params.RequestId)
		if !ok {
			s.logger.DebugContext(ctx, fmt.Sprintf("session %q cancelled unknown request %v", sess.ID(), params.RequestId))
			return
		}
		s.logger.InfoContext(ctx, fmt.Sprintf("session %q cancelled %s request %v after %s: %s",
			sess.ID(), pending.Method, params.RequestId, time.Since(pending.StartedAt).Round(time.Millisecond), params.Reason))
	default:
		if !sess.Initialized() {
			s.logger.DebugContext(ctx, fmt.Sprintf("dropping %q notification from uninitialized session %q", m.Method, sess.ID()))
			return
		}
		if hooks := s.hooksSnapshot(); hooks.HandleNotification != nil {
			frame := s.buildFrame(ctx, sess, transport)
			frame = frame.WithRequest(&components.Request{Method: m.Method, Params: m.Params})
			hooks.HandleNotification(ctx, frame)
			return
		}
		s.logger.DebugContext(ctx, fmt.Sprintf("ignoring unknown notification %q from session %q", m.Method, sess.ID()))
	}
}

// handleRequest dispatches a request and always returns a wire response.
func (s *Server) handleRequest(ctx context.Context, sess *session.Session, m *jsonrpc.Message, transport map[string]any) (res any) {
	// A panic in a handler must not take down the transport loop.
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, fmt.Sprintf("panic handling %q for session %q: %v", m.Method, sess.ID(), r))
			res = jsonrpc.NewError(m.Id, jsonrpc.INTERNAL_ERROR, "Internal error", nil)
		}
	}()

	// Ping is answered at any point of the session's life.
	if m.Method == mcp.PING {
		return jsonrpc.NewResponse(m.Id, struct{}{})
	}
	if m.Method == mcp.INITIALIZE {
		return s.handleInitialize(ctx, sess, m)
	}
	if !sess.Initialized() {
		return jsonrpc.NewError(m.Id, jsonrpc.INVALID_REQUEST, "Server not initialized", nil)
	}

	sess.TrackRequest(m.Id, m.Method)
	defer sess.CompleteRequest(m.Id)

	frame := s.buildFrame(ctx, sess, transport)
	frame = frame.WithRequest(&components.Request{Id: m.Id, Method: m.Method, Params: m.Params})

	caps := s.cfg.Capabilities
	switch m.Method {
	case mcp.TOOLS_LIST:
		if caps.Tools == nil {
			break
		}
		return s.handleToolsList(sess, m)
	case mcp.TOOLS_CALL:
		if caps.Tools == nil {
			break
		}
		return s.handleToolsCall(ctx, sess, m, frame)
	case mcp.PROMPTS_LIST:
		if caps.Prompts == nil {
			break
		}
		return s.handlePromptsList(sess, m)
	case mcp.PROMPTS_GET:
		if caps.Prompts == nil {
			break
		}
		return s.handlePromptsGet(ctx, sess, m, frame)
	case mcp.RESOURCES_LIST:
		if caps.Resources == nil {
			break
		}
		return s.handleResourcesList(sess, m)
	case mcp.RESOURCES_TEMPLATES_LIST:
		if caps.Resources == nil {
			break
		}
		return s.handleResourceTemplatesList(sess, m)
	case mcp.RESOURCES_READ:
		if caps.Resources == nil {
			break
		}
		return s.handleResourcesRead(ctx, sess, m, frame)
	case mcp.COMPLETION_COMPLETE:
		if !caps.Completion {
			break
		}
		return s.handleComplete(ctx, sess, m, frame)
	case mcp.LOGGING_SET_LEVEL:
		if !caps.Logging {
			break
		}
		return s.handleSetLevel(ctx, sess, m)
	default:
		if hooks := s.hooksSnapshot(); hooks.HandleRequest != nil {
			result, rpcErr, handled := hooks.HandleRequest(ctx, frame)
			if handled {
				if rpcErr != nil {
					return jsonrpc.NewError(m.Id, rpcErr.Code, rpcErr.Message, rpcErr.Data)
				}
				return jsonrpc.NewResponse(m.Id, result)
			}
		}
	}
	return jsonrpc.NewError(m.Id, jsonrpc.METHOD_NOT_FOUND, fmt.Sprintf("Method not found: %s", m.Method), nil)
}

// handleInitialize negotiates the protocol version and stores the client's
// identity on the session. The session only becomes initialized when the
// client follows up with notifications/initialized.
func (s *Server) handleInitialize(ctx context.Context, sess *session.Session, m *jsonrpc.Message) any {
	if sess.Initialized() {
		return jsonrpc.NewError(m.Id, jsonrpc.INVALID_REQUEST, "server is already initialized", nil)
	}
	var params mcp.InitializeParams
	if len(m.Params) > 0 {
		if err := util.DecodeJSON(bytes.NewReader(m.Params), &params); err != nil {
			return jsonrpc.NewError(m.Id, jsonrpc.INVALID_PARAMS, "Invalid params", nil)
		}
	}

	negotiated := mcp.NegotiateVersion(s.cfg.SupportedProtocolVersions, params.ProtocolVersion)
	sess.UpdateAfterInitialize(negotiated, params.ClientInfo, params.Capabilities)
	s.logger.DebugContext(ctx, fmt.Sprintf("session %q negotiated protocol %s (client requested %q)",
		sess.ID(), negotiated, params.ProtocolVersion))

	return jsonrpc.NewResponse(m.Id, mcp.InitializeResult{
		ProtocolVersion: negotiated,
		Capabilities:    s.cfg.Capabilities.ToProtocol(),
		ServerInfo:      s.cfg.ServerInfo,
		Instructions:    s.cfg.Instructions,
	})
}

func decodeParams[T any](m *jsonrpc.Message) (T, *jsonrpc.McpError) {
	var params T
	if len(m.Params) == 0 {
		return params, nil
	}
	if err := util.DecodeJSON(bytes.NewReader(m.Params), &params); err != nil {
		return params, &jsonrpc.McpError{Code: jsonrpc.INVALID_PARAMS, Message: "Invalid params"}
	}
	return params, nil
}

func (s *Server) handleToolsList(sess *session.Session, m *jsonrpc.Message) any {
	params, rpcErr := decodeParams[mcp.PaginatedParams](m)
	if rpcErr != nil {
		return jsonrpc.NewError(m.Id, rpcErr.Code, rpcErr.Message, rpcErr.Data)
	}
	result, err := s.Registry().ListTools(params.Cursor, s.overlayFor(sess.ID()))
	if err != nil {
		return jsonrpc.NewError(m.Id, jsonrpc.INVALID_PARAMS, "invalid cursor", nil)
	}
	return jsonrpc.NewResponse(m.Id, result)
}

func (s *Server) handleToolsCall(ctx context.Context, sess *session.Session, m *jsonrpc.Message, frame *components.Frame) any {
	params, rpcErr := decodeParams[mcp.CallToolParams](m)
	if rpcErr != nil {
		return jsonrpc.NewError(m.Id, rpcErr.Code, rpcErr.Message, rpcErr.Data)
	}
	tool, ok := s.Registry().Tool(params.Name)
	if !ok {
		tool, ok = s.overlayFor(sess.ID()).Tool(params.Name)
	}
	if !ok {
		return jsonrpc.NewError(m.Id, jsonrpc.INVALID_PARAMS, fmt.Sprintf("unknown tool: %s", params.Name), nil)
	}

	args := params.Arguments
	if args == nil {
		args = map[string]any{}
	}
	if err := tool.ValidateInput(args); err != nil {
		var verr *components.ValidationError
		if errors.As(err, &verr) {
			return jsonrpc.NewError(m.Id, jsonrpc.INVALID_PARAMS, "Invalid params", map[string]any{"errors": verr.Errors})
		}
		return jsonrpc.NewError(m.Id, jsonrpc.INVALID_PARAMS, "Invalid params", err.Error())
	}

	resp, err := tool.Handler(ctx, args, frame)
	if err != nil {
		return jsonrpc.NewError(m.Id, jsonrpc.SERVER_ERROR, err.Error(), nil)
	}
	result := resp.ToProtocol()
	if result.StructuredContent != nil {
		if err := tool.ValidateOutput(result.StructuredContent); err != nil {
			s.logger.WarnContext(ctx, fmt.Sprintf("tool %q returned invalid structured content: %v", params.Name, err))
			return jsonrpc.NewError(m.Id, jsonrpc.INTERNAL_ERROR, "tool returned invalid structured content", nil)
		}
	}
	return jsonrpc.NewResponse(m.Id, result)
}

func (s *Server) handlePromptsList(sess *session.Session, m *jsonrpc.Message) any {
	params, rpcErr := decodeParams[mcp.PaginatedParams](m)
	if rpcErr != nil {
		return jsonrpc.NewError(m.Id, rpcErr.Code, rpcErr.Message, rpcErr.Data)
	}
	result, err := s.Registry().ListPrompts(params.Cursor, s.overlayFor(sess.ID()))
	if err != nil {
		return jsonrpc.NewError(m.Id, jsonrpc.INVALID_PARAMS, "invalid cursor", nil)
	}
	return jsonrpc.NewResponse(m.Id, result)
}

func (s *Server) handlePromptsGet(ctx context.Context, sess *session.Session, m *jsonrpc.Message, frame *components.Frame) any {
	params, rpcErr := decodeParams[mcp.GetPromptParams](m)
	if rpcErr != nil {
		return jsonrpc.NewError(m.Id, rpcErr.Code, rpcErr.Message, rpcErr.Data)
	}
	prompt, ok := s.Registry().Prompt(params.Name)
	if !ok {
		prompt, ok = s.overlayFor(sess.ID()).Prompt(params.Name)
	}
	if !ok {
		return jsonrpc.NewError(m.Id, jsonrpc.INVALID_PARAMS, fmt.Sprintf("unknown prompt: %s", params.Name), nil)
	}

	args := params.Arguments
	if args == nil {
		args = map[string]string{}
	}
	if err := prompt.ValidateArgs(args); err != nil {
		var verr *components.ValidationError
		if errors.As(err, &verr) {
			return jsonrpc.NewError(m.Id, jsonrpc.INVALID_PARAMS, "Invalid params", map[string]any{"errors": verr.Errors})
		}
		return jsonrpc.NewError(m.Id, jsonrpc.INVALID_PARAMS, "Invalid params", err.Error())
	}

	resp, err := prompt.Handler(ctx, args, frame)
	if err != nil {
		return jsonrpc.NewError(m.Id, jsonrpc.SERVER_ERROR, err.Error(), nil)
	}
	return jsonrpc.NewResponse(m.Id, resp.ToProtocol())
}

func (s *Server) handleResourcesList(sess *session.Session, m *jsonrpc.Message) any {
	params, rpcErr := decodeParams[mcp.PaginatedParams](m)
	if rpcErr != nil {
		return jsonrpc.NewError(m.Id, rpcErr.Code, rpcErr.Message, rpcErr.Data)
	}
	result, err := s.Registry().ListResources(params.Cursor, s.overlayFor(sess.ID()))
	if err != nil {
		return jsonrpc.NewError(m.Id, jsonrpc.INVALID_PARAMS, "invalid cursor", nil)
	}
	return jsonrpc.NewResponse(m.Id, result)
}

func (s *Server) handleResourceTemplatesList(sess *session.Session, m *jsonrpc.Message) any {
	params, rpcErr := decodeParams[mcp.PaginatedParams](m)
	if rpcErr != nil {
		return jsonrpc.NewError(m.Id, rpcErr.Code, rpcErr.Message, rpcErr.Data)
	}
	result, err := s.Registry().ListResourceTemplates(params.Cursor, s.overlayFor(sess.ID()))
	if err != nil {
		return jsonrpc.NewError(m.Id, jsonrpc.INVALID_PARAMS, "invalid cursor", nil)
	}
	return jsonrpc.NewResponse(m.Id, result)
}

func (s *Server) handleResourcesRead(ctx context.Context, sess *session.Session, m *jsonrpc.Message, frame *components.Frame) any {
	params, rpcErr := decodeParams[mcp.ReadResourceParams](m)
	if rpcErr != nil {
		return jsonrpc.NewError(m.Id, rpcErr.Code, rpcErr.Message, rpcErr.Data)
	}
	if params.Uri == "" {
		return jsonrpc.NewError(m.Id, jsonrpc.INVALID_PARAMS, "uri is required", nil)
	}
	res, vars, ok := s.Registry().FindResource(params.Uri)
	if !ok {
		res, vars, ok = s.overlayFor(sess.ID()).FindResource(params.Uri)
	}
	if !ok {
		return jsonrpc.NewError(m.Id, jsonrpc.RESOURCE_NOT_FOUND, "Resource not found", map[string]any{"uri": params.Uri})
	}

	resp, err := res.Handler(ctx, params.Uri, vars, frame)
	if err != nil {
		return jsonrpc.NewError(m.Id, jsonrpc.SERVER_ERROR, err.Error(), nil)
	}
	contents, err := resp.ToContents(params.Uri, res.MimeType)
	if err != nil {
		s.logger.WarnContext(ctx, fmt.Sprintf("resource %q returned invalid contents: %v", params.Uri, err))
		return jsonrpc.NewError(m.Id, jsonrpc.INTERNAL_ERROR, "Internal error", nil)
	}
	return jsonrpc.NewResponse(m.Id, mcp.ReadResourceResult{Contents: []mcp.ResourceContents{contents}})
}

func (s *Server) handleComplete(ctx context.Context, sess *session.Session, m *jsonrpc.Message, frame *components.Frame) any {
	params, rpcErr := decodeParams[mcp.CompleteParams](m)
	if rpcErr != nil {
		return jsonrpc.NewError(m.Id, rpcErr.Code, rpcErr.Message, rpcErr.Data)
	}

	var completer components.Completer
	switch params.Ref.Type {
	case "ref/prompt":
		prompt, ok := s.Registry().Prompt(params.Ref.Name)
		if !ok {
			prompt, ok = s.overlayFor(sess.ID()).Prompt(params.Ref.Name)
		}
		if !ok {
			return jsonrpc.NewError(m.Id, jsonrpc.INVALID_PARAMS, fmt.Sprintf("unknown prompt: %s", params.Ref.Name), nil)
		}
		completer = prompt.Completer
	case "ref/resource":
		res, _, ok := s.Registry().FindResource(params.Ref.Uri)
		if !ok {
			res, _, ok = s.overlayFor(sess.ID()).FindResource(params.Ref.Uri)
		}
		if !ok {
			// Template references are matched by the template string
			// itself, which FindResource does not resolve.
			res, ok = s.resourceByTemplate(sess.ID(), params.Ref.Uri)
		}
		if !ok {
			return jsonrpc.NewError(m.Id, jsonrpc.RESOURCE_NOT_FOUND, "Resource not found", map[string]any{"uri": params.Ref.Uri})
		}
		completer = res.Completer
	default:
		return jsonrpc.NewError(m.Id, jsonrpc.INVALID_PARAMS, fmt.Sprintf("unknown completion reference type: %s", params.Ref.Type), nil)
	}

	if completer == nil {
		return jsonrpc.NewResponse(m.Id, mcp.CompleteResult{Values: []mcp.CompletionValue{}})
	}
	resp, err := completer(ctx, params.Argument, frame)
	if err != nil {
		return jsonrpc.NewError(m.Id, jsonrpc.SERVER_ERROR, err.Error(), nil)
	}
	return jsonrpc.NewResponse(m.Id, resp.ToProtocol())
}

// resourceByTemplate looks a template resource up by its literal template
// string, in the static registry and the session overlay.
func (s *Server) resourceByTemplate(sessionID, template string) (*components.Resource, bool) {
	for _, reg := range []*components.Registry{s.Registry(), s.overlayFor(sessionID)} {
		if res, ok := reg.ResourceByTemplate(template); ok {
			return res, true
		}
	}
	return nil, false
}

func (s *Server) handleSetLevel(ctx context.Context, sess *session.Session, m *jsonrpc.Message) any {
	params, rpcErr := decodeParams[mcp.SetLevelParams](m)
	if rpcErr != nil {
		return jsonrpc.NewError(m.Id, rpcErr.Code, rpcErr.Message, rpcErr.Data)
	}
	if !params.Level.Valid() {
		return jsonrpc.NewError(m.Id, jsonrpc.INVALID_PARAMS, fmt.Sprintf("unknown log level: %s", params.Level), nil)
	}
	sess.SetLogLevel(params.Level)
	s.logger.DebugContext(ctx, fmt.Sprintf("session %q set log level to %s", sess.ID(), params.Level))
	return jsonrpc.NewResponse(m.Id, struct{}{})
}
