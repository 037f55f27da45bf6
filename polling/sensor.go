// Copyright 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: Apache-2.0
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

package polling

import (
	"time"

	pn532 "github.com/ZaparooProject/go-pn532-presence"
	"github.com/ZaparooProject/go-pn532-presence/internal/syncutil"
)

// TagSensor is a binary sensor bound to one UID. It turns on while its card
// is in the field and off once a scan completes without it.
type TagSensor struct {
	lastSeen  time.Time
	name      string
	uid       pn532.UID
	listeners []func(bool)
	mu        syncutil.RWMutex
	state     bool
	seen      bool
}

// NewTagSensor creates a sensor for uid.
func NewTagSensor(name string, uid pn532.UID) *TagSensor {
	return &TagSensor{name: name, uid: uid.Clone()}
}

// Name returns the sensor's name.
func (s *TagSensor) Name() string {
	return s.name
}

// UID returns the UID the sensor tracks.
func (s *TagSensor) UID() pn532.UID {
	return s.uid.Clone()
}

// State returns whether the card is currently considered in the field.
func (s *TagSensor) State() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// LastSeen returns when the card was last read, or the zero time.
func (s *TagSensor) LastSeen() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSeen
}

// OnChange registers fn to be called with the new state on every change.
func (s *TagSensor) OnChange(fn func(bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// beginScan turns the sensor off if its card was missing from the previous
// scan and starts tracking the current one.
func (s *TagSensor) beginScan() {
	s.mu.Lock()
	seen := s.seen
	s.seen = false
	s.mu.Unlock()

	if !seen {
		s.publish(false)
	}
}

// process marks the sensor seen if uid is its card.
func (s *TagSensor) process(uid pn532.UID, now time.Time) bool {
	if !s.uid.Equal(uid) {
		return false
	}
	s.mu.Lock()
	s.seen = true
	s.lastSeen = now
	s.mu.Unlock()

	s.publish(true)
	return true
}

func (s *TagSensor) publish(state bool) {
	s.mu.Lock()
	if s.state == state {
		s.mu.Unlock()
		return
	}
	s.state = state
	listeners := append([]func(bool){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(state)
	}
}
