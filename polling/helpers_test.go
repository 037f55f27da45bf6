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
	"context"
	"errors"
	"time"

	pn532 "github.com/ZaparooProject/go-pn532-presence"
	testutil "github.com/ZaparooProject/go-pn532-presence/internal/testing"
)

var errBus = errors.New("bus failure")

type scanResult struct {
	err     error
	payload []byte
}

// fakeScanner replays scripted inventory results. The last result repeats.
type fakeScanner struct {
	idleErr   error
	results   []scanResult
	scans     int
	idleCalls int
}

func (f *fakeScanner) ListPassiveTarget(ctx context.Context) ([]byte, error) {
	f.scans++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(f.results) == 0 {
		return []byte{0x00}, nil
	}
	r := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	return r.payload, r.err
}

func (f *fakeScanner) ApplyIdleRFPolicy(context.Context) error {
	f.idleCalls++
	return f.idleErr
}

func (f *fakeScanner) queue(results ...scanResult) {
	f.results = append(f.results, results...)
}

func tagResult(uid []byte) scanResult {
	return scanResult{payload: testutil.BuildPassiveTargetPayload([2]byte{0x00, 0x04}, 0x08, uid)}
}

func noTagResult() scanResult {
	return scanResult{payload: testutil.BuildNoTagPayload()}
}

func failResult() scanResult {
	return scanResult{err: errBus}
}

type staticGate struct {
	healthy bool
}

func (g *staticGate) Healthy() bool {
	return g.healthy
}

// recorder collects tag events.
type recorder struct {
	detected []pn532.UID
	removed  []pn532.UID
}

func (r *recorder) attach(p *Poller) {
	p.OnTagDetected(func(uid pn532.UID) { r.detected = append(r.detected, uid) })
	p.OnTagRemoved(func(uid pn532.UID) { r.removed = append(r.removed, uid) })
}

func newTestPoller(interval time.Duration) (*Poller, *fakeScanner, *testutil.FakeClock) {
	scanner := &fakeScanner{}
	clock := testutil.NewFakeClock(time.Time{})
	return NewPoller(scanner, clock, interval), scanner, clock
}
