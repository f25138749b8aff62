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

package session

import (
	"sync"
	"time"
)

// DefaultIdleTimeout is how long a session survives without inbound
// messages.
const DefaultIdleTimeout = 30 * time.Minute

// Store manages and controls access to sessions. It is owned by the
// coordinator; only the coordinator mutates the session map.
type Store struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	idleTimeout time.Duration

	// onDestroy, when set, observes every session teardown (idle expiry,
	// transport close or explicit destroy).
	onDestroy func(id string)
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithIdleTimeout overrides the session idle expiry; zero disables it.
func WithIdleTimeout(d time.Duration) StoreOption {
	return func(s *Store) { s.idleTimeout = d }
}

// WithDestroyHook registers a callback invoked after a session is removed.
func WithDestroyHook(fn func(id string)) StoreOption {
	return func(s *Store) { s.onDestroy = fn }
}

// NewStore returns an empty session store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		sessions:    make(map[string]*Session),
		idleTimeout: DefaultIdleTimeout,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Attach looks up the session for id, creating it on first use, refreshes
// its idle timer and updates its transport binding. Every inbound message
// goes through Attach.
func (s *Store) Attach(id string, sender Sender) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		sess = newSession(id, sender)
		s.sessions[id] = sess
	} else {
		sess.setSender(sender)
	}
	s.rescheduleLocked(sess)
	return sess
}

// rescheduleLocked cancels and restarts the idle timer for sess.
func (s *Store) rescheduleLocked(sess *Session) {
	if sess.idleTimer != nil {
		sess.idleTimer.Stop()
		sess.idleTimer = nil
	}
	if s.idleTimeout <= 0 {
		return
	}
	id := sess.id
	sess.idleTimer = time.AfterFunc(s.idleTimeout, func() {
		s.Destroy(id)
	})
}

// Get returns the session for id without refreshing it.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// Destroy removes the session for id and stops its idle timer. A later
// Attach for the same id starts a fresh, uninitialized session.
func (s *Store) Destroy(id string) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok {
		if sess.idleTimer != nil {
			sess.idleTimer.Stop()
		}
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	if ok && s.onDestroy != nil {
		s.onDestroy(id)
	}
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close destroys every session; used on server shutdown.
func (s *Store) Close() {
	s.mu.Lock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	for _, id := range ids {
		s.Destroy(id)
	}
}

// ForEach calls fn for every live session. fn must not call back into the
// store.
func (s *Store) ForEach(fn func(*Session)) {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()
	for _, sess := range sessions {
		fn(sess)
	}
}
