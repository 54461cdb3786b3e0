// Copyright 2023 Martin Hebnes Pedersen (LA5NTA). All rights reserved.
// Use of this source code is governed by the MIT-license that can be
// found in the LICENSE file.

package fskmodem

import (
	"reflect"
	"testing"
)

func TestModemArgs(t *testing.T) {
	tests := map[string]struct {
		mode   string
		dev    string
		config Config
		expect []string
	}{
		"defaults rx": {
			mode:   "--rx",
			config: Config{},
			expect: []string{"--rx", "--confidence", "1.5", "--sync-byte", "0x23", "--print-filter", "300"},
		},
		"defaults tx": {
			mode:   "--tx",
			config: Config{},
			expect: []string{"--tx", "--confidence", "1.5", "--sync-byte", "0x23", "--print-filter", "300"},
		},
		"device and tone overrides": {
			mode:   "--rx",
			dev:    "2,0",
			config: Config{Baudmode: "rtty", MarkHz: 1270, SpaceHz: 1070},
			expect: []string{"--rx", "--alsa=2,0", "--confidence", "1.5", "--sync-byte", "0x23", "--print-filter", "--mark", "1270", "--space", "1070", "rtty"},
		},
		"framing disabled": {
			mode:   "--rx",
			config: Config{NoSyncByte: true},
			expect: []string{"--rx", "--confidence", "1.5", "--print-filter", "300"},
		},
		"squelch disabled": {
			mode:   "--rx",
			config: Config{Confidence: -1},
			expect: []string{"--rx", "--sync-byte", "0x23", "--print-filter", "300"},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			config := tt.config
			config.applyDefaults()
			if got := modemArgs(tt.mode, tt.dev, config); !reflect.DeepEqual(got, tt.expect) {
				t.Errorf("got %q, expected %q", got, tt.expect)
			}
		})
	}
}

func TestResolveDevices(t *testing.T) {
	tests := map[string]struct {
		config    Config
		expectIn  string
		expectOut string
	}{
		"defaults": {},
		"playback follows capture": {
			config:   Config{AlsaDevIn: "1,0"},
			expectIn: "1,0", expectOut: "1,0",
		},
		"both explicit": {
			config:   Config{AlsaDevIn: "1,0", AlsaDevOut: "2,0"},
			expectIn: "1,0", expectOut: "2,0",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			devIn, devOut, err := resolveDevices(tt.config)
			if err != nil {
				t.Fatal(err)
			}
			if devIn != tt.expectIn || devOut != tt.expectOut {
				t.Errorf("got (%q, %q), expected (%q, %q)", devIn, devOut, tt.expectIn, tt.expectOut)
			}
		})
	}
}
