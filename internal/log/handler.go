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

package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// ValueTextHandler is a slog.Handler that writes human readable logs of the
// form "2024-11-12T15:04:05 INFO \"message\" key=value" to an io.Writer.
type ValueTextHandler struct {
	opts  slog.HandlerOptions
	attrs []slog.Attr
	mu    *sync.Mutex
	out   io.Writer
}

// NewValueTextHandler creates a ValueTextHandler that writes to out.
func NewValueTextHandler(out io.Writer, opts *slog.HandlerOptions) *ValueTextHandler {
	h := &ValueTextHandler{out: out, mu: &sync.Mutex{}}
	if opts != nil {
		h.opts = *opts
	}
	if h.opts.Level == nil {
		h.opts.Level = slog.LevelInfo
	}
	return h
}

// Enabled reports whether the handler handles records at the given level.
func (h *ValueTextHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

// WithGroup is not used by the loggers in this package; it returns the
// receiver unchanged.
func (h *ValueTextHandler) WithGroup(string) slog.Handler {
	return h
}

// WithAttrs returns a new handler whose attributes include both the
// receiver's attributes and the arguments.
func (h *ValueTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := *h
	h2.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &h2
}

// Handle formats its argument Record as a single line of space-separated
// fields.
func (h *ValueTextHandler) Handle(_ context.Context, r slog.Record) error {
	buf := make([]byte, 0, 1024)

	// time
	if !r.Time.IsZero() {
		buf = fmt.Appendf(buf, "%s ", r.Time.Format("2006-01-02T15:04:05.000Z07:00"))
	}
	// level
	buf = fmt.Appendf(buf, "%s ", r.Level.String())
	// message
	buf = fmt.Appendf(buf, "%q ", r.Message)

	for _, a := range h.attrs {
		buf = h.appendAttr(buf, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		buf = h.appendAttr(buf, a)
		return true
	})
	buf = append(buf, "\n"...)

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(buf)
	return err
}

func (h *ValueTextHandler) appendAttr(buf []byte, a slog.Attr) []byte {
	// Resolve the Attr's value before doing anything else.
	a.Value = a.Value.Resolve()
	// Ignore empty Attrs.
	if a.Equal(slog.Attr{}) {
		return buf
	}
	switch a.Value.Kind() {
	case slog.KindString:
		buf = fmt.Appendf(buf, "%s=%q ", a.Key, a.Value.String())
	case slog.KindTime:
		buf = fmt.Appendf(buf, "%s=%s ", a.Key, a.Value.Time().Format("2006-01-02T15:04:05.000Z07:00"))
	default:
		buf = fmt.Appendf(buf, "%s=%s ", a.Key, a.Value)
	}
	return buf
}
