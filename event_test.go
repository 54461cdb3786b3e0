// Copyright 2023 Martin Hebnes Pedersen (LA5NTA). All rights reserved.
// Use of this source code is governed by the MIT-license that can be
// found in the LICENSE file.

package fskmodem

import "testing"

func TestParseEventLine(t *testing.T) {
	tests := map[string]struct {
		kind       EventKind
		confidence float64
		ok         bool
	}{
		"### CARRIER 300 @ 1600.0 Hz ###": {
			kind: EventCarrierOn,
			ok:   true,
		},
		"### NOCARRIER ndata=3 confidence=5.46 ampl=1.03 bps=300.00 (rate perfect) @ 1600.0 Hz ###": {
			kind:       EventCarrierOff,
			confidence: 5.46,
			ok:         true,
		},
		"### NOCARRIER ndata=1 ###": {
			kind: EventCarrierOff,
			ok:   true,
		},
		"  ### CARRIER 1200 @ 1200.0 Hz ###  ": {
			kind: EventCarrierOn,
			ok:   true,
		},
		"### SOMETHING ELSE ###":     {ok: false},
		"plain diagnostic output":    {ok: false},
		"":                           {ok: false},
		"#carrier but not an event#": {ok: false},
	}

	for line, expect := range tests {
		t.Run(line, func(t *testing.T) {
			event, ok := parseEventLine(line)
			if ok != expect.ok {
				t.Fatalf("got ok=%t, expected %t", ok, expect.ok)
			}
			if !ok {
				return
			}
			if event.Kind != expect.kind {
				t.Errorf("got kind %q, expected %q", event.Kind, expect.kind)
			}
			if event.Confidence != expect.confidence {
				t.Errorf("got confidence %f, expected %f", event.Confidence, expect.confidence)
			}
			if event.Time.IsZero() {
				t.Errorf("event time not set")
			}
		})
	}
}
