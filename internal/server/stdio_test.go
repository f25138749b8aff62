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
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"
)

func TestStdioSession(t *testing.T) {
	ctx := testContext(t)
	s := newTestServer(t, ctx, ServerConfig{Capabilities: fullCapabilities()})

	input := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"stdio-client","version":"1"}}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"echo","arguments":{"text":"over stdio"}}}`,
	}, "\n") + "\n"

	outR, outW := io.Pipe()
	stdio := NewStdioSession(s, strings.NewReader(input), outW)

	done := make(chan error, 1)
	go func() { done <- stdio.Start(ctx) }()

	scanner := bufio.NewScanner(outR)
	readResponse := func() map[string]any {
		t.Helper()
		if !scanner.Scan() {
			t.Fatalf("output ended early: %v", scanner.Err())
		}
		var m map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &m); err != nil {
			t.Fatalf("non-JSON line %q: %s", scanner.Text(), err)
		}
		return m
	}

	init := readResponse()
	if init["id"].(float64) != 1 {
		t.Errorf("id = %v", init["id"])
	}
	if init["result"].(map[string]any)["protocolVersion"] != "2025-03-26" {
		t.Errorf("unexpected initialize result: %v", init["result"])
	}

	call := readResponse()
	content := call["result"].(map[string]any)["content"].([]any)
	if content[0].(map[string]any)["text"] != "over stdio" {
		t.Errorf("unexpected tool result: %v", content)
	}

	select {
	case err := <-done:
		// stdin EOF ends the loop cleanly
		if err != nil {
			t.Errorf("unexpected error: %s", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("stdio loop did not stop on EOF")
	}
}

func TestStdioSessionStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(testContext(t))
	s := newTestServer(t, ctx, ServerConfig{Capabilities: fullCapabilities()})

	// a reader that never delivers a line
	blockR, _ := io.Pipe()
	stdio := NewStdioSession(s, blockR, io.Discard)

	done := make(chan error, 1)
	go func() { done <- stdio.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err == nil {
			t.Error("cancellation must surface as an error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("stdio loop did not stop on cancellation")
	}
}
