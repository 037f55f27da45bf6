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
	"fmt"

	pn532 "github.com/ZaparooProject/go-pn532-presence"
)

// Outcome is the result of one scan cycle.
type Outcome int

const (
	// OutcomeSkippedUnhealthy: the health gate was closed, nothing was sent.
	OutcomeSkippedUnhealthy Outcome = iota
	// OutcomeThrottled: backoff in effect, nothing was sent.
	OutcomeThrottled
	// OutcomeCommandFailed: the inventory failed and the backoff advanced.
	OutcomeCommandFailed
	// OutcomeNoTag: no card, none was present before.
	OutcomeNoTag
	// OutcomeNewTag: a card appeared or a different card replaced the last one.
	OutcomeNewTag
	// OutcomeSameTag: the present card was read again.
	OutcomeSameTag
	// OutcomeTagRemoved: the present card is gone.
	OutcomeTagRemoved
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkippedUnhealthy:
		return "skipped-unhealthy"
	case OutcomeThrottled:
		return "throttled"
	case OutcomeCommandFailed:
		return "command-failed"
	case OutcomeNoTag:
		return "no-tag"
	case OutcomeNewTag:
		return "new-tag"
	case OutcomeSameTag:
		return "same-tag"
	case OutcomeTagRemoved:
		return "tag-removed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Scanned reports whether the cycle completed an inventory round trip.
func (o Outcome) Scanned() bool {
	return o >= OutcomeNoTag
}

// PresenceState is the card currently considered present.
type PresenceState struct {
	UID     pn532.UID
	Present bool
}

// transition computes the next presence state from the UID read by a
// completed scan (nil when no card answered). It returns the outcome and
// the UID to notify with, if any.
func (ps *PresenceState) transition(uid pn532.UID) (Outcome, pn532.UID) {
	switch {
	case uid != nil && ps.Present && uid.Equal(ps.UID):
		return OutcomeSameTag, nil
	case uid != nil:
		ps.UID = uid.Clone()
		ps.Present = true
		return OutcomeNewTag, ps.UID
	case ps.Present:
		last := ps.UID
		ps.UID = nil
		ps.Present = false
		return OutcomeTagRemoved, last
	default:
		return OutcomeNoTag, nil
	}
}

func (ps PresenceState) clone() PresenceState {
	return PresenceState{UID: ps.UID.Clone(), Present: ps.Present}
}
