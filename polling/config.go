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
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("invalid polling configuration")

// Limits for HealthCheckConfig.MaxFailedChecks.
const (
	MinFailedChecks = 1
	MaxFailedChecks = 10
)

// SleepRecoveryConfig configures the reaction to host sleep/wake. A poll
// tick that arrives much later than the poll interval means the host was
// suspended and the reader may have lost power, so a health check is run
// straight away instead of waiting for the next health tick.
type SleepRecoveryConfig struct {
	// Enabled enables sleep detection
	Enabled bool

	// TimeDiscontinuityThreshold is the minimum elapsed time beyond the expected
	// poll interval that indicates a sleep occurred. Default: 2 seconds
	TimeDiscontinuityThreshold time.Duration
}

// DefaultSleepRecoveryConfig returns sensible defaults for sleep recovery
func DefaultSleepRecoveryConfig() SleepRecoveryConfig {
	return SleepRecoveryConfig{
		Enabled:                    true,
		TimeDiscontinuityThreshold: 2 * time.Second,
	}
}

// DetectSleep checks if the elapsed time since last poll indicates a system sleep.
// Returns true if elapsed time exceeds (pollInterval + TimeDiscontinuityThreshold).
func (cfg SleepRecoveryConfig) DetectSleep(elapsed, pollInterval time.Duration) bool {
	if !cfg.Enabled {
		return false
	}
	expectedMax := pollInterval + cfg.TimeDiscontinuityThreshold
	return elapsed > expectedMax
}

// HealthCheckConfig configures the HealthMonitor
type HealthCheckConfig struct {
	// Interval between liveness probes
	Interval time.Duration
	// ResetDelay is waited before re-initializing the chip
	ResetDelay time.Duration
	// MaxFailedChecks consecutive failures mark the reader unhealthy
	MaxFailedChecks int
	// Enabled turns the health tick on. When off, polling is never gated.
	Enabled bool
	// AutoReset re-runs initialization once the reader is unhealthy
	AutoReset bool
}

// DefaultHealthCheckConfig returns the default health check settings
func DefaultHealthCheckConfig() HealthCheckConfig {
	return HealthCheckConfig{
		Enabled:         true,
		Interval:        60 * time.Second,
		MaxFailedChecks: 3,
		AutoReset:       true,
		ResetDelay:      50 * time.Millisecond,
	}
}

// Config holds polling configuration options
type Config struct {
	// PollInterval is the scan period and the floor of every backoff step
	PollInterval  time.Duration
	HealthCheck   HealthCheckConfig
	SleepRecovery SleepRecoveryConfig
}

// DefaultConfig returns the default polling configuration
func DefaultConfig() *Config {
	return &Config{
		PollInterval:  time.Second,
		HealthCheck:   DefaultHealthCheckConfig(),
		SleepRecovery: DefaultSleepRecoveryConfig(),
	}
}

// Validate reports the first invalid setting. It does not modify cfg.
func (cfg *Config) Validate() error {
	if cfg.PollInterval <= 0 {
		return fmt.Errorf("%w: poll interval must be positive, got %v", ErrInvalidConfig, cfg.PollInterval)
	}
	if cfg.SleepRecovery.Enabled && cfg.SleepRecovery.TimeDiscontinuityThreshold < 0 {
		return fmt.Errorf("%w: negative sleep threshold %v", ErrInvalidConfig, cfg.SleepRecovery.TimeDiscontinuityThreshold)
	}

	hc := cfg.HealthCheck
	if !hc.Enabled {
		return nil
	}
	if hc.Interval <= 0 {
		return fmt.Errorf("%w: health check interval must be positive, got %v", ErrInvalidConfig, hc.Interval)
	}
	if hc.MaxFailedChecks < MinFailedChecks || hc.MaxFailedChecks > MaxFailedChecks {
		return fmt.Errorf("%w: max failed checks must be between %d and %d, got %d",
			ErrInvalidConfig, MinFailedChecks, MaxFailedChecks, hc.MaxFailedChecks)
	}
	if hc.ResetDelay < 0 {
		return fmt.Errorf("%w: negative reset delay %v", ErrInvalidConfig, hc.ResetDelay)
	}
	return nil
}
