// Copyright 2023 Martin Hebnes Pedersen (LA5NTA). All rights reserved.
// Use of this source code is governed by the MIT-license that can be
// found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/la5nta/fskmodem/internal/buildinfo"
	"github.com/la5nta/fskmodem/internal/directories"
)

func envHandle(args []string) {
	writeEnvAll(os.Stdout)
	fmt.Println()
	directories.PrintDirectories()
}

func writeEnvAll(w io.Writer) {
	fmt.Fprintln(w, strings.Join(envAll(), "\n"))
}

func envAll() []string {
	return []string{
		`FSKMODEM_MYCALL="` + fOptions.MyCall + `"`,
		`FSKMODEM_LOCATOR="` + config.Locator + `"`,
		`FSKMODEM_BAUDMODE="` + config.Baudmode + `"`,
		`FSKMODEM_VERSION="` + buildinfo.Version + `"`,
		`FSKMODEM_ARCH="` + runtime.GOARCH + `"`,
		`FSKMODEM_OS="` + runtime.GOOS + `"`,
		`FSKMODEM_CONFIG_PATH="` + fOptions.ConfigPath + `"`,
		`FSKMODEM_LOG_PATH="` + fOptions.LogPath + `"`,
		`FSKMODEM_EVENTLOG_PATH="` + fOptions.EventLogPath + `"`,
		`FSKMODEM_DEBUG="` + os.Getenv("FSKMODEM_DEBUG") + `"`,
	}
}
