// go-pn532
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-pn532.
//
// go-pn532 is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-pn532 is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-pn532; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Command reader watches a PN532 for cards and prints presence events.
//
//	reader -config reader.yaml
//	reader -transport uart -device /dev/ttyUSB0
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	pn532 "github.com/ZaparooProject/go-pn532-presence"
	"github.com/ZaparooProject/go-pn532-presence/internal/config"
	"github.com/ZaparooProject/go-pn532-presence/internal/syncutil"
	"github.com/ZaparooProject/go-pn532-presence/polling"
	"github.com/ZaparooProject/go-pn532-presence/transport/i2c"
	"github.com/ZaparooProject/go-pn532-presence/transport/spi"
	"github.com/ZaparooProject/go-pn532-presence/transport/uart"
)

type flags struct {
	configPath string
	transport  string
	devicePath string
	logDir     string
	debug      bool
}

func parseFlags(args []string, stderr io.Writer) (*flags, error) {
	fs := flag.NewFlagSet("reader", flag.ContinueOnError)
	fs.SetOutput(stderr)

	f := &flags{}
	fs.StringVar(&f.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&f.transport, "transport", "", "Transport type (uart, i2c, spi); overrides the config file")
	fs.StringVar(&f.devicePath, "device", "", "Device path; overrides the config file")
	fs.StringVar(&f.logDir, "log-dir", "", "Write a debug session log to this directory")
	fs.BoolVar(&f.debug, "debug", false, "Enable debug output")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}
	return f, nil
}

// loadConfig reads the config file, if any, and applies flag overrides.
func loadConfig(f *flags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if f.configPath != "" {
		cfg, err = config.Load(f.configPath)
	} else {
		cfg, err = config.Parse(nil)
	}
	if err != nil {
		return nil, err
	}

	if f.transport != "" {
		cfg.Transport.Type = f.transport
	}
	if f.devicePath != "" {
		cfg.Transport.Device = f.devicePath
	}
	config.Normalize(cfg)

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

type portOpener func(config.TransportConfig) (pn532.Port, error)

// openPort opens the adapter named by the transport settings.
func openPort(tc config.TransportConfig) (pn532.Port, error) {
	switch pn532.TransportType(tc.Type) {
	case pn532.TransportUART:
		port, err := uart.New(tc.Device)
		if err != nil {
			return nil, fmt.Errorf("failed to create UART transport: %w", err)
		}
		return port, nil
	case pn532.TransportI2C:
		port, err := i2c.New(tc.Device)
		if err != nil {
			return nil, fmt.Errorf("failed to create I2C transport: %w", err)
		}
		return port, nil
	case pn532.TransportSPI:
		port, err := spi.New(tc.Device)
		if err != nil {
			return nil, fmt.Errorf("failed to create SPI transport: %w", err)
		}
		return port, nil
	default:
		return nil, fmt.Errorf("unsupported transport type: %s", tc.Type)
	}
}

// newDriver builds the device and driver and subscribes out to every
// presence and health event.
func newDriver(cfg *config.Config, port pn532.Port, out io.Writer) (*polling.Driver, error) {
	device, err := pn532.New(port, cfg.DeviceOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to create device: %w", err)
	}

	driver, err := polling.NewDriver(device, cfg.PollingConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create driver: %w", err)
	}

	poller := driver.Poller()
	poller.OnTagDetected(func(uid pn532.UID) {
		_, _ = fmt.Fprintf(out, "Tag detected: %s\n", uid)
	})
	poller.OnTagRemoved(func(uid pn532.UID) {
		_, _ = fmt.Fprintf(out, "Tag removed: %s\n", uid)
	})

	uids, err := cfg.SensorUIDs()
	if err != nil {
		return nil, err
	}
	for i, uid := range uids {
		sensor := polling.NewTagSensor(cfg.Sensors[i].Name, uid)
		sensor.OnChange(func(present bool) {
			state := "OFF"
			if present {
				state = "ON"
			}
			_, _ = fmt.Fprintf(out, "Sensor %s (%s): %s\n", sensor.Name(), sensor.UID(), state)
		})
		poller.AddSensor(sensor)
	}

	health := driver.Health()
	health.OnUnhealthy(func(err error) {
		_, _ = fmt.Fprintf(out, "Reader unhealthy: %v\n", err)
	})
	health.OnReset(func() {
		_, _ = fmt.Fprintln(out, "Reader reset")
	})
	health.OnRecovered(func() {
		_, _ = fmt.Fprintln(out, "Reader recovered")
	})

	return driver, nil
}

func run(ctx context.Context, cfg *config.Config, open portOpener, out io.Writer) error {
	port, err := open(cfg.Transport)
	if err != nil {
		return err
	}

	driver, err := newDriver(cfg, port, out)
	if err != nil {
		_ = pn532.ClosePort(port)
		return err
	}
	defer func() {
		if err := driver.Device().Close(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Failed to close device: %v\n", err)
		}
	}()

	_, _ = fmt.Fprintf(out, "Watching %s reader on %s. Press Ctrl+C to stop...\n",
		cfg.Transport.Type, cfg.Transport.Device)

	return driver.Run(ctx)
}

func main() {
	os.Exit(mainWithExitCode(os.Args[1:], os.Stdout, os.Stderr))
}

func mainWithExitCode(args []string, stdout, stderr io.Writer) int {
	f, err := parseFlags(args, stderr)
	if err != nil {
		return 2
	}

	if f.debug {
		pn532.SetDebugEnabled(true)
		syncutil.Configure(30*time.Second, stderr)
	}
	if f.logDir != "" {
		path, err := pn532.InitSessionLog(f.logDir)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		defer func() { _ = pn532.CloseSessionLog() }()
		_, _ = fmt.Fprintf(stderr, "Session log: %s\n", path)
	}

	cfg, err := loadConfig(f)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	// Setup signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, openPort, stdout); err != nil {
		if errors.Is(err, context.Canceled) {
			// User requested shutdown, exit cleanly
			_, _ = fmt.Fprintln(stdout, "Shutting down gracefully...")
			return 0
		}
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
