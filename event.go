// Copyright 2023 Martin Hebnes Pedersen (LA5NTA). All rights reserved.
// Use of this source code is governed by the MIT-license that can be
// found in the LICENSE file.

package fskmodem

import (
	"strconv"
	"strings"
	"time"
)

// EventKind enumerates the modem activity event types.
type EventKind string

const (
	EventCarrierOn  EventKind = "CARRIER"   // A carrier appeared on the channel.
	EventCarrierOff EventKind = "NOCARRIER" // The carrier dropped.
	EventTx         EventKind = "TX"        // A message was transmitted.
	EventRx         EventKind = "RX"        // A message was received.
	EventFault      EventKind = "FAULT"     // The transport was lost.
)

// Event is a modem activity notification, delivered on the receivers
// returned by Modem.Listen.
type Event struct {
	Kind       EventKind `json:"kind"`
	Time       time.Time `json:"time"`
	Confidence float64   `json:"confidence,omitempty"` // NOCARRIER only: SNR confidence of the ended carrier.
	Data       []byte    `json:"data,omitempty"`       // TX and RX only: the message payload.
	Err        error     `json:"-"`                    // FAULT only.
}

// parseEventLine parses one line of minimodem's diagnostic stderr output.
// Carrier transitions are reported on lines delimited by "###":
//
//	### CARRIER 300 @ 1600.0 Hz ###
//	### NOCARRIER ndata=3 confidence=5.46 ampl=1.03 bps=300.00 (rate perfect) @ 1600.0 Hz ###
//
// Lines of any other form are not events (ok is false).
func parseEventLine(line string) (event Event, ok bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "###") {
		return Event{}, false
	}
	fields := strings.Fields(strings.Trim(line, "# "))
	if len(fields) == 0 {
		return Event{}, false
	}
	switch fields[0] {
	case "CARRIER":
		return Event{Kind: EventCarrierOn, Time: time.Now()}, true
	case "NOCARRIER":
		event = Event{Kind: EventCarrierOff, Time: time.Now()}
		for _, field := range fields[1:] {
			value, found := strings.CutPrefix(field, "confidence=")
			if !found {
				continue
			}
			if confidence, err := strconv.ParseFloat(value, 64); err == nil {
				event.Confidence = confidence
			}
		}
		return event, true
	default:
		return Event{}, false
	}
}
