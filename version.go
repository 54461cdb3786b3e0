// Copyright 2023 Martin Hebnes Pedersen (LA5NTA). All rights reserved.
// Use of this source code is governed by the MIT-license that can be
// found in the LICENSE file.

package fskmodem

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/hashicorp/go-version"
)

// MinimodemVersionMin is the oldest minimodem release known to work with
// this package (--sync-byte and --print-filter support).
const MinimodemVersionMin = "0.24"

// MinimodemVersion reports the version of the minimodem binary in PATH.
func MinimodemVersion() (string, error) {
	out, err := exec.Command("minimodem", "--version").Output()
	if err != nil {
		return "", &TransportUnavailableError{Err: err}
	}
	return parseMinimodemVersion(string(out))
}

// parseMinimodemVersion extracts the version number from minimodem
// --version output, e.g. "minimodem 0.24".
func parseMinimodemVersion(out string) (string, error) {
	line, _, _ := strings.Cut(out, "\n")
	fields := strings.Fields(line)
	if len(fields) < 2 || fields[0] != "minimodem" {
		return "", fmt.Errorf("unexpected minimodem version output: %q", line)
	}
	return fields[1], nil
}

// CheckMinimodemVersion returns an error if the minimodem binary in PATH
// is missing or older than MinimodemVersionMin.
func CheckMinimodemVersion() error {
	versionStr, err := MinimodemVersion()
	if err != nil {
		return err
	}
	installed, err := version.NewVersion(versionStr)
	if err != nil {
		return fmt.Errorf("unable to parse minimodem version %q: %w", versionStr, err)
	}
	if minimum := version.Must(version.NewVersion(MinimodemVersionMin)); installed.LessThan(minimum) {
		return fmt.Errorf("minimodem %s is too old, need %s or later", versionStr, MinimodemVersionMin)
	}
	return nil
}
