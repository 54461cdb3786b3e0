// Copyright 2023 Martin Hebnes Pedersen (LA5NTA). All rights reserved.
// Use of this source code is governed by the MIT-license that can be
// found in the LICENSE file.

package main

import (
	"log"
	"strings"

	"github.com/la5nta/wl2k-go/rigcontrol/hamlib"
)

// loadRig opens the configured hamlib rig and selects the VFO to key PTT
// on. Rig control is optional, a missing address means no rig.
func loadRig(cfg HamlibConfig) (hamlib.VFO, bool) {
	if cfg.Address == "" {
		return nil, false
	}

	network := cfg.Network
	if network == "" {
		network = "tcp"
	}

	rig, err := hamlib.Open(network, cfg.Address)
	if err != nil {
		log.Printf("Unable to open hamlib rig at %s: %s.", cfg.Address, err)
		return nil, false
	}

	var vfo hamlib.VFO
	switch strings.ToUpper(cfg.VFO) {
	case "A", "VFOA":
		vfo, err = rig.VFOA()
	case "B", "VFOB":
		vfo, err = rig.VFOB()
	case "":
		vfo = rig.CurrentVFO()
	default:
		log.Printf("Cannot load rig: Unrecognized VFO identifier '%s'", cfg.VFO)
		return nil, false
	}
	if err != nil {
		log.Printf("Cannot load rig: Unable to select VFO: %s", err)
		return nil, false
	}

	if f, err := vfo.GetFreq(); err != nil {
		log.Printf("Unable to get frequency from rig: %s.", err)
	} else {
		log.Printf("Rig ready for PTT control. Dial frequency is %.3f kHz.", float64(f)/1e3)
	}
	return vfo, true
}
