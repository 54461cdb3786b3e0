// Copyright 2023 Martin Hebnes Pedersen (LA5NTA). All rights reserved.
// Use of this source code is governed by the MIT-license that can be
// found in the LICENSE file.

package fskmodem

import (
	"errors"
	"fmt"
)

var (
	// ErrNotStarted is returned by operations that require a started
	// modem.
	ErrNotStarted = errors.New("modem not started")

	// ErrTransportLost is reported on the Faults channel when a modem
	// process terminates unexpectedly.
	ErrTransportLost = errors.New("modem transport lost")

	// ErrQueueFull is returned by Send when MaxQueueLen is configured
	// and the transmit queue is at capacity.
	ErrQueueFull = errors.New("transmit queue full")
)

// ConfigError describes an invalid configuration value.
type ConfigError struct {
	Option string // The offending config field.
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Option, e.Reason)
}

// TransportUnavailableError is returned by Start when the minimodem binary
// or the audio devices cannot be acquired.
type TransportUnavailableError struct{ Err error }

func (e *TransportUnavailableError) Error() string {
	return "transport unavailable: " + e.Err.Error()
}

func (e *TransportUnavailableError) Unwrap() error { return e.Err }
