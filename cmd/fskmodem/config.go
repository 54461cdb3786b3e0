// Copyright 2023 Martin Hebnes Pedersen (LA5NTA). All rights reserved.
// Use of this source code is governed by the MIT-license that can be
// found in the LICENSE file.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pd0mz/go-maidenhead"

	"github.com/la5nta/fskmodem"
	"github.com/la5nta/fskmodem/internal/buildinfo"
)

// PlaceholderMycall and PlaceholderLocator are expanded in beacon texts.
const (
	PlaceholderMycall  = "{mycall}"
	PlaceholderLocator = "{locator}"
)

type Config struct {
	// This station's callsign.
	MyCall string `json:"mycall"`

	// Maidenhead grid square (e.g. JP20qe).
	Locator string `json:"locator"`

	// The minimodem baudmode. A decimal baud rate (e.g. "300") or a
	// named mode (e.g. "rtty").
	Baudmode string `json:"baudmode"`

	// The message delimiter byte on the form "0x23", "35", a single
	// character (e.g. "#") or "none" to disable message framing.
	SyncByte string `json:"sync_byte"`

	// ALSA devices on the form "card,device" (e.g. "2,0"). Empty
	// selects the system default audio device.
	AlsaDevIn  string `json:"alsa_dev_in"`
	AlsaDevOut string `json:"alsa_dev_out"`

	// Case-insensitive device description search strings, taking
	// precedence over alsa_dev_in/alsa_dev_out (e.g. "USB Audio").
	SearchAlsaDevIn  string `json:"search_alsa_dev_in"`
	SearchAlsaDevOut string `json:"search_alsa_dev_out"`

	// Minimum time in milliseconds the channel must have been clear
	// before a queued message is transmitted.
	QuietIntervalMs int `json:"quiet_interval_ms"`

	// Minimodem's minimum SNR confidence (squelch). Negative disables.
	Confidence float64 `json:"confidence"`

	// FSK tone frequency overrides. Zero leaves the choice to minimodem.
	MarkHz  int `json:"mark_hz"`
	SpaceHz int `json:"space_hz"`

	// Transmit queue cap. Zero means unbounded.
	MaxQueueLen int `json:"max_queue_len"`

	// PTT key-to-data settle time in milliseconds.
	TxDelayMs int `json:"tx_delay_ms"`

	// Default HTTP listen address (for the JSON API and event stream).
	//
	// Use ":8080" to listen on any device, port 8080.
	HTTPAddr string `json:"http_addr"`

	// Hamlib rig (rigctld) for PTT control. Unused when address is empty.
	Rig HamlibConfig `json:"rig"`

	// Beacon schedule (cron-like syntax).
	//
	// Example:
	//   # Identify every half hour
	//   "0,30 * * * *": "DE {mycall} {locator}"
	Schedule map[string]string `json:"schedule"`

	// SpoolDir overrides the directory holding the outgoing/ and sent/
	// message queues. Empty selects the data directory.
	SpoolDir string `json:"spool_dir"`
}

type HamlibConfig struct {
	// The network type ("serial" or "tcp"). Use 'tcp' for rigctld (default).
	Network string `json:"network,omitempty"`

	// The rig address.
	//
	// For tcp (rigctld): "address:port" (e.g. localhost:4532).
	Address string `json:"address,omitempty"`

	// The rig's VFO to control ("A" or "B"). If empty, the current active VFO is used.
	VFO string `json:"VFO"`
}

var DefaultConfig = Config{
	Baudmode:        fskmodem.DefaultBaudmode,
	SyncByte:        "0x23",
	QuietIntervalMs: 500,
	Confidence:      fskmodem.DefaultConfidence,
	HTTPAddr:        "localhost:8080",
	Schedule:        map[string]string{},
}

func LoadConfig(cfgPath string, fallback Config) (config Config, err error) {
	config, err = ReadConfig(cfgPath)
	switch {
	case os.IsNotExist(err):
		config = fallback
		if err := WriteConfig(config, cfgPath); err != nil {
			return config, err
		}
	case err != nil:
		return config, err
	}

	// Environment variables override file values (e.g. FSKMODEM_MYCALL).
	if err := envconfig.Process(buildinfo.AppName, &config); err != nil {
		return config, err
	}

	if config.Schedule == nil {
		config.Schedule = map[string]string{}
	}

	if config.Locator != "" {
		if _, err := maidenhead.ParseLocator(config.Locator); err != nil {
			return config, fmt.Errorf("invalid locator %q: %w", config.Locator, err)
		}
	}

	return config, nil
}

func ReadConfig(path string) (config Config, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	err = json.Unmarshal(data, &config)
	return
}

func WriteConfig(config Config, filePath string) error {
	b, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	// Add trailing new-line
	b = append(b, '\n')

	// Ensure path dir is available
	os.Mkdir(path.Dir(filePath), os.ModePerm|os.ModeDir)

	return os.WriteFile(filePath, b, 0o600)
}

// ModemConfig translates the application configuration to a modem
// configuration.
func (c Config) ModemConfig() (fskmodem.Config, error) {
	syncByte, noSync, err := parseSyncByte(c.SyncByte)
	if err != nil {
		return fskmodem.Config{}, err
	}
	return fskmodem.Config{
		Baudmode:         c.Baudmode,
		SyncByte:         syncByte,
		NoSyncByte:       noSync,
		AlsaDevIn:        c.AlsaDevIn,
		AlsaDevOut:       c.AlsaDevOut,
		SearchAlsaDevIn:  c.SearchAlsaDevIn,
		SearchAlsaDevOut: c.SearchAlsaDevOut,
		QuietInterval:    time.Duration(c.QuietIntervalMs) * time.Millisecond,
		Confidence:       c.Confidence,
		MarkHz:           c.MarkHz,
		SpaceHz:          c.SpaceHz,
		MaxQueueLen:      c.MaxQueueLen,
		TxDelay:          time.Duration(c.TxDelayMs) * time.Millisecond,
	}, nil
}

// parseSyncByte parses the sync_byte config value. Numeric forms take
// precedence, so "35" is the byte 0x23 while "5" is the byte 0x05.
func parseSyncByte(str string) (b byte, none bool, err error) {
	str = strings.TrimSpace(str)
	switch {
	case str == "":
		return 0, false, nil
	case strings.EqualFold(str, "none"):
		return 0, true, nil
	}
	if v, err := strconv.ParseUint(str, 0, 8); err == nil {
		return byte(v), false, nil
	}
	if len(str) == 1 {
		return str[0], false, nil
	}
	return 0, false, fmt.Errorf("invalid sync byte %q", str)
}
