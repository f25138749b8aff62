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
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newHTTPTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	ctx := testContext(t)
	s := newTestServer(t, ctx, ServerConfig{Capabilities: fullCapabilities()})
	ts := httptest.NewServer(s.srv.Handler)
	t.Cleanup(ts.Close)
	return s, ts
}

func postJSON(t *testing.T, url, body string, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader([]byte(body)))
	if err != nil {
		t.Fatalf("unable to build request: %s", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %s", err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("unable to read response: %s", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return resp, nil
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unable to decode response %q: %s", raw, err)
	}
	return resp, decoded
}

func TestBanner(t *testing.T) {
	_, ts := newHTTPTestServer(t)
	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("request failed: %s", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(raw), "mcpkit") {
		t.Errorf("banner = %q", raw)
	}
}

func TestStreamableHTTPLifecycle(t *testing.T) {
	_, ts := newHTTPTestServer(t)
	url := ts.URL + "/mcp"

	initBody := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"http-client","version":"1"}}}`
	resp, decoded := postJSON(t, url, initBody, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	sessionId := resp.Header.Get("Mcp-Session-Id")
	if sessionId == "" {
		t.Fatal("initialize response must allocate a session id")
	}
	result := decoded["result"].(map[string]any)
	if result["protocolVersion"] != "2025-03-26" {
		t.Errorf("negotiated %v", result["protocolVersion"])
	}

	headers := map[string]string{"Mcp-Session-Id": sessionId}
	resp, decoded = postJSON(t, url, `{"jsonrpc":"2.0","method":"notifications/initialized"}`, headers)
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("notification status = %d, want %d", resp.StatusCode, http.StatusAccepted)
	}
	if decoded != nil {
		t.Errorf("notification produced a body: %v", decoded)
	}

	resp, decoded = postJSON(t, url, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`, headers)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("tools/list status = %d", resp.StatusCode)
	}
	tools := decoded["result"].(map[string]any)["tools"].([]any)
	if len(tools) == 0 {
		t.Error("tools/list returned nothing")
	}

	// a request on a fresh session id is rejected until it initializes
	resp, decoded = postJSON(t, url, `{"jsonrpc":"2.0","id":3,"method":"tools/list"}`, map[string]string{"Mcp-Session-Id": "someone-else"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	rpcErr := decoded["error"].(map[string]any)
	if rpcErr["code"].(float64) != -32600 {
		t.Errorf("code = %v, want -32600", rpcErr["code"])
	}

	// explicit session teardown
	req, _ := http.NewRequest(http.MethodDelete, url, nil)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Mcp-Session-Id", sessionId)
	dresp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete failed: %s", err)
	}
	dresp.Body.Close()
	if dresp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d, want %d", dresp.StatusCode, http.StatusNoContent)
	}

	// the destroyed session has to start over
	resp, decoded = postJSON(t, url, `{"jsonrpc":"2.0","id":4,"method":"tools/list"}`, headers)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if _, ok := decoded["error"]; !ok {
		t.Error("request after session teardown must fail")
	}
}

func TestStreamingGetNotSupported(t *testing.T) {
	_, ts := newHTTPTestServer(t)
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/mcp", nil)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %s", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusMethodNotAllowed)
	}
}

func TestProtocolVersionHeader(t *testing.T) {
	_, ts := newHTTPTestServer(t)
	resp, _ := postJSON(t, ts.URL+"/mcp", `{"jsonrpc":"2.0","id":1,"method":"ping"}`, map[string]string{"MCP-Protocol-Version": "2020-01-01"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}

	resp, _ = postJSON(t, ts.URL+"/mcp", `{"jsonrpc":"2.0","id":2,"method":"ping"}`, map[string]string{"MCP-Protocol-Version": "2025-03-26"})
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestDeleteRequiresSessionHeader(t *testing.T) {
	_, ts := newHTTPTestServer(t)
	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/mcp", nil)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %s", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestSseTransport(t *testing.T) {
	_, ts := newHTTPTestServer(t)

	resp, err := http.Get(ts.URL + "/mcp/sse")
	if err != nil {
		t.Fatalf("unable to open sse stream: %s", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	scanner := bufio.NewScanner(resp.Body)
	readEvent := func() (string, string) {
		t.Helper()
		var event, data string
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case strings.HasPrefix(line, "event: "):
				event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			case line == "":
				return event, data
			}
		}
		t.Fatalf("sse stream ended: %v", scanner.Err())
		return "", ""
	}

	event, endpoint := readEvent()
	if event != "endpoint" {
		t.Fatalf("first event = %q, want endpoint", event)
	}
	if !strings.Contains(endpoint, "/mcp?sessionId=") {
		t.Fatalf("endpoint = %q", endpoint)
	}

	initBody := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"sse-client","version":"1"}}}`
	postResp, decoded := postJSON(t, endpoint, initBody, nil)
	if postResp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", postResp.StatusCode)
	}
	if decoded["result"].(map[string]any)["protocolVersion"] != "2024-11-05" {
		t.Errorf("negotiated %v", decoded["result"])
	}

	// the legacy transport mirrors the response onto the stream
	deadline := time.After(5 * time.Second)
	got := make(chan string, 1)
	go func() {
		event, data := readEvent()
		if event == "message" {
			got <- data
		}
	}()
	select {
	case data := <-got:
		var mirrored map[string]any
		if err := json.Unmarshal([]byte(data), &mirrored); err != nil {
			t.Fatalf("unable to decode mirrored event %q: %s", data, err)
		}
		if fmt.Sprintf("%v", mirrored["id"]) != "1" {
			t.Errorf("mirrored id = %v", mirrored["id"])
		}
	case <-deadline:
		t.Fatal("initialize response never arrived on the event stream")
	}
}

func TestUnsupportedContentType(t *testing.T) {
	_, ts := newHTTPTestServer(t)
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/mcp", strings.NewReader("jsonrpc"))
	req.Header.Set("Content-Type", "text/plain")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %s", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnsupportedMediaType)
	}
}
