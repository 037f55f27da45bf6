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
	"os"
	"path/filepath"
	"testing"
	"time"

	pn532 "github.com/ZaparooProject/go-pn532-presence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullConfig = `
transport:
  type: I2C
  device: /dev/i2c-1
update_interval: 250ms
health_check_enabled: true
health_check_interval: 30s
auto_reset_on_failure: false
max_failed_checks: 5
rf_field_enabled: true
rf_reactivate: true
sensors:
  - name: blue_card
    uid: 74-10-37-94
  - name: keyfob
    uid: "04:ab:cd:ef:12:34:56"
`

func TestParse_Full(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte(fullConfig))
	require.NoError(t, err)
	require.NoError(t, Validate(cfg))

	assert.Equal(t, TransportConfig{Type: "i2c", Device: "/dev/i2c-1"}, cfg.Transport)
	assert.Equal(t, 250*time.Millisecond, *cfg.UpdateInterval)
	assert.Equal(t, 30*time.Second, *cfg.HealthCheckInterval)
	assert.Equal(t, 5, *cfg.MaxFailedChecks)
	assert.False(t, *cfg.AutoResetOnFailure)
	assert.True(t, *cfg.RFFieldEnabled)
	assert.True(t, *cfg.RFReactivate)

	uids, err := cfg.SensorUIDs()
	require.NoError(t, err)
	assert.Equal(t, []pn532.UID{
		{0x74, 0x10, 0x37, 0x94},
		{0x04, 0xAB, 0xCD, 0xEF, 0x12, 0x34, 0x56},
	}, uids)
}

func TestParse_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte("transport: {type: uart, device: /dev/ttyUSB0}\n"))
	require.NoError(t, err)
	require.NoError(t, Validate(cfg))

	assert.Equal(t, DefaultUpdateInterval, *cfg.UpdateInterval)
	assert.Equal(t, DefaultHealthCheckInterval, *cfg.HealthCheckInterval)
	assert.Equal(t, DefaultMaxFailedChecks, *cfg.MaxFailedChecks)
	assert.True(t, *cfg.HealthCheckEnabled)
	assert.True(t, *cfg.AutoResetOnFailure)
	assert.False(t, *cfg.RFFieldEnabled)
	assert.False(t, *cfg.RFReactivate)
	assert.Empty(t, cfg.Sensors)
}

func TestParse_EmptyDocument(t *testing.T) {
	t.Parallel()

	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultUpdateInterval, *cfg.UpdateInterval)

	// Defaults alone do not name a reader.
	require.ErrorIs(t, Validate(cfg), ErrInvalid)
}

func TestParse_ExplicitZeroIsRejected(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"max_failed_checks":     "max_failed_checks: 0\n",
		"update_interval":       "update_interval: 0s\n",
		"health_check_interval": "health_check_interval: 0s\n",
	}
	for name, extra := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfg, err := Parse([]byte("transport: {type: uart, device: /dev/ttyUSB0}\n" + extra))
			require.NoError(t, err)

			err = Validate(cfg)
			require.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), name)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"unknown_key":      "transport: {type: spi, device: SPI0.0}\npoll_rate: 1s\n",
		"bad_duration":     "update_interval: soon\n",
		"bad_yaml":         "transport: [\n",
		"bool_as_sentence": "rf_field_enabled: sometimes\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(doc))
			require.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "reader.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fullConfig), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/dev/i2c-1", cfg.Transport.Device)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestPollingConfig(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte(fullConfig))
	require.NoError(t, err)

	pc := cfg.PollingConfig()
	require.NoError(t, pc.Validate())
	assert.Equal(t, 250*time.Millisecond, pc.PollInterval)
	assert.True(t, pc.HealthCheck.Enabled)
	assert.Equal(t, 30*time.Second, pc.HealthCheck.Interval)
	assert.False(t, pc.HealthCheck.AutoReset)
	assert.Equal(t, 5, pc.HealthCheck.MaxFailedChecks)
	assert.True(t, pc.SleepRecovery.Enabled)
}

func TestDeviceOptions(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte("transport: {type: uart, device: x}\n"))
	require.NoError(t, err)

	opts := cfg.DeviceOptions()
	assert.Len(t, opts, 2)

	device, err := pn532.New(nopPort{}, opts...)
	require.NoError(t, err)
	assert.NotNil(t, device)
}

type nopPort struct{}

func (nopPort) Write([]byte) error { return nil }

func (nopPort) Read(n int) ([]byte, error) { return make([]byte, n), nil }

func (nopPort) IsReady() bool { return false }
