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

import "time"

// backoffLadder is the throttle applied after the 1st, 2nd and 3rd (and
// later) consecutive inventory failures.
var backoffLadder = [...]time.Duration{
	5 * time.Second,
	10 * time.Second,
	60 * time.Second,
}

// BackoffState tracks consecutive inventory failures.
type BackoffState struct {
	LastAttempt time.Time
	Throttle    time.Duration
	Retries     int
}

// ThrottleFor returns the throttle after the given number of consecutive
// failures, never less than floor.
func ThrottleFor(retries int, floor time.Duration) time.Duration {
	if retries <= 0 {
		return 0
	}
	step := backoffLadder[min(retries, len(backoffLadder))-1]
	return max(step, floor)
}

// throttled reports whether an attempt at now falls inside the throttle
// window.
func (b *BackoffState) throttled(now time.Time) bool {
	return b.Throttle > 0 && now.Sub(b.LastAttempt) < b.Throttle
}

func (b *BackoffState) fail(floor time.Duration) {
	b.Retries++
	b.Throttle = ThrottleFor(b.Retries, floor)
}

func (b *BackoffState) reset() {
	b.Retries = 0
	b.Throttle = 0
}
