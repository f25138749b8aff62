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

// Package outbound correlates server-initiated requests
// (sampling/createMessage, roots/list) with the client responses that
// eventually answer them, and enforces a per-request timeout.
package outbound

import (
	"sync"
	"time"

	"github.com/mcpkit/mcpkit/internal/jsonrpc"
)

// DefaultTimeout bounds how long the tracker waits for a client response.
const DefaultTimeout = 30 * time.Second

// Record identifies one outstanding server-initiated request.
type Record struct {
	Id        jsonrpc.RequestId
	Method    string
	SessionID string
}

type entry struct {
	rec   Record
	timer *time.Timer
}

// Tracker is the outbound-request table. It is owned by the coordinator.
type Tracker struct {
	mu      sync.Mutex
	pending map[string]*entry
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{pending: make(map[string]*entry)}
}

// Track records an outstanding request and arms its timeout. When the timer
// fires before Resolve, the record is removed and onTimeout runs exactly
// once; after a Resolve the callback never runs.
func (t *Tracker) Track(rec Record, timeout time.Duration, onTimeout func(Record)) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	key := jsonrpc.IdKey(rec.Id)

	t.mu.Lock()
	defer t.mu.Unlock()
	e := &entry{rec: rec}
	e.timer = time.AfterFunc(timeout, func() {
		t.mu.Lock()
		cur, ok := t.pending[key]
		mine := ok && cur == e
		if mine {
			delete(t.pending, key)
		}
		t.mu.Unlock()
		if mine && onTimeout != nil {
			onTimeout(rec)
		}
	})
	t.pending[key] = e
}

// Resolve removes the record matching id, releasing its timer. It reports
// whether id belonged to an outstanding request.
func (t *Tracker) Resolve(id jsonrpc.RequestId) (Record, bool) {
	key := jsonrpc.IdKey(id)

	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.pending[key]
	if !ok {
		return Record{}, false
	}
	e.timer.Stop()
	delete(t.pending, key)
	return e.rec, true
}

// ResolveFor removes the record matching id, but only when it belongs to
// sessionID. A reply arriving on a different session leaves the record
// outstanding so the owning session can still answer it.
func (t *Tracker) ResolveFor(id jsonrpc.RequestId, sessionID string) (Record, bool) {
	key := jsonrpc.IdKey(id)

	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.pending[key]
	if !ok || e.rec.SessionID != sessionID {
		return Record{}, false
	}
	e.timer.Stop()
	delete(t.pending, key)
	return e.rec, true
}

// Matches reports whether id belongs to an outstanding request without
// removing it.
func (t *Tracker) Matches(id jsonrpc.RequestId) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.pending[jsonrpc.IdKey(id)]
	return ok
}

// DropSession releases every record bound to a destroyed session. No
// cancellation is emitted; the transport is already gone.
func (t *Tracker) DropSession(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key, e := range t.pending {
		if e.rec.SessionID == sessionID {
			e.timer.Stop()
			delete(t.pending, key)
		}
	}
}

// Len returns the number of outstanding requests.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}
