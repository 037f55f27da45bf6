//go:build deadlock

// Package syncutil provides mutex types that can optionally use deadlock detection.
// This file is compiled when building with -tags=deadlock.
package syncutil

import (
	"io"
	"time"

	deadlock "github.com/sasha-s/go-deadlock"
)

// Enabled reports whether deadlock detection is compiled in.
const Enabled = true

// Mutex wraps deadlock.Mutex for deadlock detection.
type Mutex struct {
	deadlock.Mutex
}

// RWMutex wraps deadlock.RWMutex for deadlock detection.
type RWMutex struct {
	deadlock.RWMutex
}

// Configure sets how long a lock may be waited on before it is reported as
// a potential deadlock, and where reports are written (nil keeps stderr).
func Configure(timeout time.Duration, w io.Writer) {
	deadlock.Opts.DeadlockTimeout = timeout
	if w != nil {
		deadlock.Opts.LogBuf = w
	}
}
