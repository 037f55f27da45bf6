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

package config

import (
	"errors"
	"fmt"

	pn532 "github.com/ZaparooProject/go-pn532-presence"
	"github.com/ZaparooProject/go-pn532-presence/polling"
)

// ErrInvalid matches every error returned by Validate.
var ErrInvalid = errors.New("invalid configuration")

var transportTypes = map[string]bool{
	string(pn532.TransportUART): true,
	string(pn532.TransportI2C):  true,
	string(pn532.TransportSPI):  true,
}

// Validate checks configuration correctness.
// It performs declarative validation only and does not mutate cfg.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: no configuration", ErrInvalid)
	}

	if !transportTypes[cfg.Transport.Type] {
		return fmt.Errorf("%w: transport.type %q must be uart, i2c or spi", ErrInvalid, cfg.Transport.Type)
	}
	if cfg.Transport.Device == "" {
		return fmt.Errorf("%w: transport.device is required", ErrInvalid)
	}

	if interval := value(cfg.UpdateInterval); interval <= 0 {
		return fmt.Errorf("%w: update_interval must be positive, got %s", ErrInvalid, interval)
	}
	if boolValue(cfg.HealthCheckEnabled) {
		if interval := value(cfg.HealthCheckInterval); interval <= 0 {
			return fmt.Errorf("%w: health_check_interval must be positive, got %s", ErrInvalid, interval)
		}
		if n := value(cfg.MaxFailedChecks); n < polling.MinFailedChecks || n > polling.MaxFailedChecks {
			return fmt.Errorf("%w: max_failed_checks must be in [%d, %d], got %d",
				ErrInvalid, polling.MinFailedChecks, polling.MaxFailedChecks, n)
		}
	}

	names := make(map[string]bool, len(cfg.Sensors))
	for i, s := range cfg.Sensors {
		if s.Name == "" {
			return fmt.Errorf("%w: sensors[%d]: name is required", ErrInvalid, i)
		}
		if names[s.Name] {
			return fmt.Errorf("%w: sensor %q is defined twice", ErrInvalid, s.Name)
		}
		names[s.Name] = true

		if _, err := pn532.ParseUID(s.UID); err != nil {
			return fmt.Errorf("%w: sensor %q: %w", ErrInvalid, s.Name, err)
		}
	}
	return nil
}
