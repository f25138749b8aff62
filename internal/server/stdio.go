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
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mcpkit/mcpkit/internal/jsonrpc"
	"github.com/mcpkit/mcpkit/internal/util"
)

// stdioSession speaks MCP over newline-delimited JSON on stdin/stdout. One
// process serves exactly one session.
type stdioSession struct {
	sessionId string
	server    *Server
	reader    *bufio.Reader

	// mu serializes writes so responses and pushed notifications do not
	// interleave.
	mu     sync.Mutex
	writer io.Writer
}

// NewStdioSession creates a stdio transport bound to the server.
func NewStdioSession(s *Server, stdin io.Reader, stdout io.Writer) *stdioSession {
	return &stdioSession{
		sessionId: uuid.New().String(),
		server:    s,
		reader:    bufio.NewReader(stdin),
		writer:    stdout,
	}
}

// Send implements session.Sender; the coordinator pushes server-initiated
// messages through it.
func (s *stdioSession) Send(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintf(s.writer, "%s\n", data)
	return err
}

// Start runs the read loop until stdin closes or ctx is cancelled. The
// session is destroyed when the loop ends.
func (s *stdioSession) Start(ctx context.Context) error {
	ctx = util.WithLogger(ctx, s.server.logger)
	defer s.server.DestroySession(s.sessionId)
	return s.readInputStream(ctx)
}

// readInputStream reads requests/notifications from MCP clients through
// stdin, one JSON message per line.
func (s *stdioSession) readInputStream(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := s.readLine(ctx)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		s.server.instrumentation.McpStdio.Add(ctx, 1,
			metric.WithAttributes(attribute.String("mcpkit.session_id", s.sessionId)),
		)
		transport := map[string]any{"kind": "stdio"}
		res := s.server.HandleMessage(ctx, s.sessionId, []byte(line), transport, s)
		// no responses for notifications
		if res == nil {
			continue
		}
		data, err := jsonrpc.Marshal(res)
		if err != nil {
			s.server.logger.ErrorContext(ctx, fmt.Sprintf("unable to marshal response: %v", err))
			continue
		}
		if err := s.Send(ctx, data); err != nil {
			return err
		}
	}
}

// readLine reads one line from stdin without blocking past ctx
// cancellation.
func (s *stdioSession) readLine(ctx context.Context) (string, error) {
	readChan := make(chan string, 1)
	errChan := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			select {
			case errChan <- err:
			case <-done:
			}
			return
		}
		select {
		case readChan <- line:
		case <-done:
		}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case err := <-errChan:
		return "", err
	case line := <-readChan:
		return line, nil
	}
}
