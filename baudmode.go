// Copyright 2023 Martin Hebnes Pedersen (LA5NTA). All rights reserved.
// Use of this source code is governed by the MIT-license that can be
// found in the LICENSE file.

package fskmodem

import (
	"sort"
	"strconv"
	"strings"
)

// Baud rates of minimodem's named baudmodes.
var namedBaudmodes = map[string]float64{
	"rtty":       45.45,
	"tdd":        45.45,
	"same":       520.83,
	"callerid":   1200,
	"uic-train":  600,
	"uic-ground": 600,
}

// Baudmodes returns the named baudmodes supported by minimodem. Any
// numeric baud rate is also a valid baudmode.
func Baudmodes() []string {
	modes := make([]string, 0, len(namedBaudmodes))
	for mode := range namedBaudmodes {
		modes = append(modes, mode)
	}
	sort.Strings(modes)
	return modes
}

// BaudRate returns the baud rate of the given baudmode. A numeric baudmode
// is its own rate, anything else must be one of minimodem's named modes.
func BaudRate(baudmode string) (float64, error) {
	baudmode = strings.ToLower(strings.TrimSpace(baudmode))
	if rate, ok := namedBaudmodes[baudmode]; ok {
		return rate, nil
	}
	if n, err := strconv.Atoi(baudmode); err == nil && n > 0 {
		return float64(n), nil
	}
	return 0, &ConfigError{Option: "baudmode", Reason: "unable to determine baud rate from " + strconv.Quote(baudmode)}
}
