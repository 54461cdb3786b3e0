// Copyright 2023 Martin Hebnes Pedersen (LA5NTA). All rights reserved.
// Use of this source code is governed by the MIT-license that can be
// found in the LICENSE file.

package fskmodem

import "time"

// Config holds the modem configuration.
//
// The zero value is usable: New fills unset fields from the defaults,
// giving a 300 baud modem with '#' framing on the system default audio
// device.
type Config struct {
	// Baudmode selects minimodem's protocol mode. Either a decimal baud
	// rate ("300", "1200") or one of the named modes returned by
	// Baudmodes.
	Baudmode string

	// SyncByte delimits messages in the decoded byte stream and is
	// prepended to every transmitted message. Zero selects
	// DefaultSyncByte. Set NoSyncByte to disable framing altogether.
	SyncByte byte

	// NoSyncByte disables message framing. Received bytes are delivered
	// as they arrive and sent messages are written unmodified.
	NoSyncByte bool

	// AlsaDevIn and AlsaDevOut name the capture and playback devices on
	// the form "card,device" (e.g. "2,0"). Empty selects the system
	// default audio device. AlsaDevOut defaults to AlsaDevIn.
	AlsaDevIn  string
	AlsaDevOut string

	// SearchAlsaDevIn and SearchAlsaDevOut select the capture and
	// playback devices by a description substring at Start, taking
	// precedence over AlsaDevIn/AlsaDevOut. SearchAlsaDevOut defaults
	// to SearchAlsaDevIn. See package alsa.
	SearchAlsaDevIn  string
	SearchAlsaDevOut string

	// QuietInterval is the minimum time the channel must have been
	// clear before a queued message is transmitted. Zero selects
	// DefaultQuietInterval.
	QuietInterval time.Duration

	// Confidence is minimodem's minimum SNR confidence (squelch). Zero
	// selects DefaultConfidence, negative values disable the switch.
	Confidence float64

	// MarkHz and SpaceHz override the FSK tone frequencies. Zero leaves
	// the choice to minimodem.
	MarkHz  int
	SpaceHz int

	// MaxAssembly bounds the receive assembly buffer. A partial message
	// exceeding this size is discarded, protecting against unframed
	// noise. Zero selects DefaultMaxAssembly.
	MaxAssembly int

	// MaxQueueLen caps the transmit queue. Zero means unbounded.
	MaxQueueLen int

	// TxDelay is the settle time between keying PTT and writing data.
	// Zero selects 100 ms. Ignored unless a PTT controller is set.
	TxDelay time.Duration
}

func (cfg *Config) applyDefaults() {
	if cfg.Baudmode == "" {
		cfg.Baudmode = DefaultBaudmode
	}
	if cfg.SyncByte == 0 {
		cfg.SyncByte = DefaultSyncByte
	}
	if cfg.QuietInterval == 0 {
		cfg.QuietInterval = DefaultQuietInterval
	}
	if cfg.Confidence == 0 {
		cfg.Confidence = DefaultConfidence
	}
	if cfg.MaxAssembly == 0 {
		cfg.MaxAssembly = DefaultMaxAssembly
	}
	if cfg.TxDelay == 0 {
		cfg.TxDelay = 100 * time.Millisecond
	}
}

func (cfg Config) check() error {
	if _, err := BaudRate(cfg.Baudmode); err != nil {
		return err
	}
	if cfg.QuietInterval < 0 {
		return &ConfigError{Option: "QuietInterval", Reason: "must not be negative"}
	}
	if cfg.MaxAssembly < 0 {
		return &ConfigError{Option: "MaxAssembly", Reason: "must not be negative"}
	}
	if cfg.MaxQueueLen < 0 {
		return &ConfigError{Option: "MaxQueueLen", Reason: "must not be negative"}
	}
	if cfg.TxDelay < 0 {
		return &ConfigError{Option: "TxDelay", Reason: "must not be negative"}
	}
	if cfg.MarkHz < 0 || cfg.SpaceHz < 0 {
		return &ConfigError{Option: "MarkHz/SpaceHz", Reason: "must not be negative"}
	}
	return nil
}
