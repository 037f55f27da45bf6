//go:build !deadlock

// Package syncutil provides mutex types that can optionally use deadlock detection.
// This file is compiled by default, using the standard library locks.
package syncutil

import (
	"io"
	"sync"
	"time"
)

// Enabled reports whether deadlock detection is compiled in.
const Enabled = false

// Mutex wraps sync.Mutex.
type Mutex struct {
	sync.Mutex
}

// RWMutex wraps sync.RWMutex.
type RWMutex struct {
	sync.RWMutex
}

// Configure is a no-op without the deadlock build tag.
func Configure(time.Duration, io.Writer) {}
