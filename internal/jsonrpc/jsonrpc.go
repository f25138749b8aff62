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

// Package jsonrpc implements the JSON-RPC 2.0 message codec used by MCP:
// decoding and classification of requests, notifications, responses and
// batches, and constructors for the outgoing wire shapes.
package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/mcpkit/mcpkit/internal/util"
)

// JSONRPC_VERSION is the version of JSON-RPC used by MCP.
const JSONRPC_VERSION = "2.0"

// Standard JSON-RPC error codes, plus the MCP-specific ones.
const (
	PARSE_ERROR        = -32700
	INVALID_REQUEST    = -32600
	METHOD_NOT_FOUND   = -32601
	INVALID_PARAMS     = -32602
	INTERNAL_ERROR     = -32603
	RESOURCE_NOT_FOUND = -32002
	SERVER_ERROR       = -32000
)

// RequestId is a uniquely identifying ID for a request in JSON-RPC.
// After decoding it is either a string or a json.Number; the original JSON
// type is preserved end-to-end.
type RequestId interface{}

// McpError represents the error content of a JSON-RPC error response.
type McpError struct {
	// The error type that occurred.
	Code int `json:"code"`
	// A short description of the error. The message SHOULD be limited
	// to a concise single sentence.
	Message string `json:"message"`
	// Additional information about the error. The value of this member
	// is defined by the sender (e.g. detailed error information, nested errors etc.).
	Data interface{} `json:"data,omitempty"`
}

func (e *McpError) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// JSONRPCRequest represents a request that expects a response.
type JSONRPCRequest struct {
	Jsonrpc string    `json:"jsonrpc"`
	Id      RequestId `json:"id"`
	Method  string    `json:"method"`
	Params  any       `json:"params,omitempty"`
}

// JSONRPCNotification represents a notification which does not expect a response.
type JSONRPCNotification struct {
	Jsonrpc string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// JSONRPCResponse represents a successful (non-error) response to a request.
type JSONRPCResponse struct {
	Jsonrpc string      `json:"jsonrpc"`
	Id      RequestId   `json:"id"`
	Result  interface{} `json:"result"`
}

// JSONRPCError represents a non-successful (error) response to a request.
type JSONRPCError struct {
	Jsonrpc string    `json:"jsonrpc"`
	Id      RequestId `json:"id"`
	Error   McpError  `json:"error"`
}

// NewRequest builds a JSONRPCRequest for the given method.
func NewRequest(id RequestId, method string, params any) JSONRPCRequest {
	return JSONRPCRequest{Jsonrpc: JSONRPC_VERSION, Id: id, Method: method, Params: params}
}

// NewNotification builds a JSONRPCNotification for the given method.
func NewNotification(method string, params any) JSONRPCNotification {
	return JSONRPCNotification{Jsonrpc: JSONRPC_VERSION, Method: method, Params: params}
}

// NewResponse builds a successful JSONRPCResponse carrying result.
func NewResponse(id RequestId, result any) JSONRPCResponse {
	return JSONRPCResponse{Jsonrpc: JSONRPC_VERSION, Id: id, Result: result}
}

// NewError builds a JSONRPCError for the given id.
func NewError(id RequestId, code int, message string, data any) JSONRPCError {
	return JSONRPCError{
		Jsonrpc: JSONRPC_VERSION,
		Id:      id,
		Error:   McpError{Code: code, Message: message, Data: data},
	}
}

// wire is a jsoniter config compatible with encoding/json; it is used on the
// encode path where messages are marshalled once per send.
var wire = jsoniter.ConfigCompatibleWithStandardLibrary

// Marshal encodes a wire message to bytes.
func Marshal(v any) ([]byte, error) {
	return wire.Marshal(v)
}

// Message is a decoded JSON-RPC message before classification. Exactly one
// of the classification predicates below holds for a well-formed message.
type Message struct {
	Jsonrpc string
	Id      RequestId
	Method  string
	Params  json.RawMessage
	Error   *McpError

	// Raw holds the undecoded message; method handlers re-unmarshal it into
	// their typed request shapes.
	Raw []byte

	hasId     bool
	hasResult bool
	result    json.RawMessage
}

// DecodeMessage decodes a single JSON-RPC message. It fails only on
// malformed JSON; version and shape checks are left to the caller so the
// error reply can still carry the message id.
func DecodeMessage(body []byte) (*Message, error) {
	var raw struct {
		Jsonrpc string          `json:"jsonrpc"`
		Id      json.RawMessage `json:"id"`
		Method  string          `json:"method"`
		Params  json.RawMessage `json:"params"`
		Result  json.RawMessage `json:"result"`
		Error   *McpError       `json:"error"`
	}
	if err := util.DecodeJSON(bytes.NewReader(body), &raw); err != nil {
		return nil, fmt.Errorf("unable to decode message: %w", err)
	}
	m := &Message{
		Jsonrpc: raw.Jsonrpc,
		Method:  raw.Method,
		Params:  raw.Params,
		Error:   raw.Error,
		Raw:     body,
	}
	if len(raw.Id) > 0 && !bytes.Equal(raw.Id, []byte("null")) {
		var id RequestId
		if err := util.DecodeJSON(bytes.NewReader(raw.Id), &id); err != nil {
			return nil, fmt.Errorf("unable to decode message id: %w", err)
		}
		m.Id = id
		m.hasId = true
	}
	if raw.Result != nil {
		m.hasResult = true
		m.result = raw.Result
	}
	return m, nil
}

// HasId reports whether the message carries a non-null id.
func (m *Message) HasId() bool { return m.hasId }

// Result returns the raw result payload of a response message.
func (m *Message) Result() json.RawMessage { return m.result }

// IsRequest reports whether the message has a method and an id.
func (m *Message) IsRequest() bool { return m.Method != "" && m.hasId }

// IsNotification reports whether the message has a method and no id.
func (m *Message) IsNotification() bool { return m.Method != "" && !m.hasId }

// IsResponse reports whether the message has an id and a result.
func (m *Message) IsResponse() bool { return m.hasId && m.hasResult && m.Method == "" }

// IsError reports whether the message has an id and an error.
func (m *Message) IsError() bool { return m.hasId && m.Error != nil }

// IsBatch reports whether the body is a JSON array of messages.
func IsBatch(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) > 0 && trimmed[0] == '['
}

// ErrEmptyBatch is returned by DecodeBatch for a zero-element array, which
// JSON-RPC 2.0 forbids.
var ErrEmptyBatch = fmt.Errorf("batch cannot be empty")

// DecodeBatch splits a batch body into its raw elements.
func DecodeBatch(body []byte) ([]json.RawMessage, error) {
	var batch []json.RawMessage
	if err := json.Unmarshal(body, &batch); err != nil {
		return nil, fmt.Errorf("unable to decode batch: %w", err)
	}
	if len(batch) == 0 {
		return nil, ErrEmptyBatch
	}
	return batch, nil
}

// IdKey returns a map key for a request id that keeps string and numeric
// ids distinct.
func IdKey(id RequestId) string {
	switch v := id.(type) {
	case string:
		return "s:" + v
	case json.Number:
		return "n:" + v.String()
	default:
		return fmt.Sprintf("v:%v", v)
	}
}
