// Copyright 2023 Martin Hebnes Pedersen (LA5NTA). All rights reserved.
// Use of this source code is governed by the MIT-license that can be
// found in the LICENSE file.

// Package fskmodem provides a full-duplex FSK soft modem over the system's
// audio interfaces, delegating modulation and demodulation to the external
// minimodem program.
//
// A Modem runs two minimodem processes (one receiving, one transmitting)
// and layers message framing, carrier-sense collision avoidance and
// transmit buffering on top of them. Messages are delimited by a
// configurable sync byte, received messages are delivered through a
// callback and queued messages are transmitted once the channel has been
// clear for a configurable quiet interval.
//
// Modem implements the BusyChannelChecker, TxBuffer and Flusher interfaces
// of github.com/la5nta/wl2k-go/transport, and keys an optional
// transport.PTTController around each transmission.
package fskmodem

import "time"

const (
	// DefaultBaudmode is the baudmode passed to minimodem unless the
	// config overrides it (Bell 103 compatible, 300 baud).
	DefaultBaudmode = "300"

	// DefaultSyncByte is the message delimiter used unless the config
	// overrides it (utf-8 '#').
	DefaultSyncByte byte = 0x23

	// DefaultQuietInterval is the minimum time the channel must have
	// been clear before a queued message is transmitted.
	DefaultQuietInterval = 500 * time.Millisecond

	// DefaultConfidence is minimodem's minimum SNR squelch threshold.
	DefaultConfidence = 1.5

	// DefaultMaxAssembly bounds the receive assembly buffer.
	DefaultMaxAssembly = 1024
)

// State represents the lifecycle state of a Modem.
type State uint8

const (
	// Unconfigured is the zero value. A Modem is never in this state,
	// New validates the config before returning one.
	Unconfigured State = iota

	// Configured means the config is validated but the modem processes
	// are not running.
	Configured

	// Started means the modem processes and background loops are
	// running.
	Started

	// Stopped means the modem has been stopped and the audio devices
	// released. A stopped modem can be started again.
	Stopped
)

func (s State) String() string {
	switch s {
	case Unconfigured:
		return "unconfigured"
	case Configured:
		return "configured"
	case Started:
		return "started"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}
