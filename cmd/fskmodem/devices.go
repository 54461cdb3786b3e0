// Copyright 2023 Martin Hebnes Pedersen (LA5NTA). All rights reserved.
// Use of this source code is governed by the MIT-license that can be
// found in the LICENSE file.

package main

import (
	"fmt"
	"log"

	"github.com/bndr/gotabulate"

	"github.com/la5nta/fskmodem/alsa"
)

func devicesHandle(args []string) {
	printDevices("Capture", alsa.ListCaptureDevices)
	printDevices("Playback", alsa.ListPlaybackDevices)
}

func printDevices(direction string, list func() ([]alsa.Device, error)) {
	devices, err := list()
	if err != nil {
		log.Printf("Unable to list %s devices: %s", direction, err)
		return
	}

	fmt.Printf("%s devices:\n", direction)
	if len(devices) == 0 {
		fmt.Println("  (none)")
		return
	}

	rows := make([][]string, len(devices))
	for i, device := range devices {
		rows[i] = []string{device.ID(), device.Name, device.Desc}
	}

	t := gotabulate.Create(rows)
	t.SetHeaders([]string{"alsa", "card", "device"})
	t.SetAlign("left")
	t.SetWrapStrings(true)
	t.SetMaxCellSize(60)
	fmt.Println(t.Render("simple"))
}
