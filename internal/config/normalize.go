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
	"strings"
	"time"
)

// Defaults applied by Normalize.
const (
	DefaultUpdateInterval      = 1 * time.Second
	DefaultHealthCheckInterval = 60 * time.Second
	DefaultMaxFailedChecks     = 3
)

// Normalize fills unset keys with their defaults and canonicalizes the
// transport type. It is allowed to mutate configuration.
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	cfg.Transport.Type = strings.ToLower(strings.TrimSpace(cfg.Transport.Type))

	setDefault(&cfg.UpdateInterval, DefaultUpdateInterval)
	setDefault(&cfg.HealthCheckInterval, DefaultHealthCheckInterval)
	setDefault(&cfg.MaxFailedChecks, DefaultMaxFailedChecks)

	setDefault(&cfg.HealthCheckEnabled, true)
	setDefault(&cfg.AutoResetOnFailure, true)
	setDefault(&cfg.RFFieldEnabled, false)
	setDefault(&cfg.RFReactivate, false)
}

func setDefault[T any](field **T, value T) {
	if *field == nil {
		v := value
		*field = &v
	}
}
