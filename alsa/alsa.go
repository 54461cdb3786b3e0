// Copyright 2023 Martin Hebnes Pedersen (LA5NTA). All rights reserved.
// Use of this source code is governed by the MIT-license that can be
// found in the LICENSE file.

// Package alsa locates ALSA audio devices by description, wrapping the
// arecord and aplay listing tools.
package alsa

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// ErrNotFound is returned when no device matches a description search.
var ErrNotFound = errors.New("no matching audio device")

// Device is one ALSA PCM device as listed by arecord -l or aplay -l.
type Device struct {
	Card   int    // ALSA card number.
	Device int    // PCM device number on the card.
	Name   string // Card description, e.g. "QDX [QDX]".
	Desc   string // Device description, e.g. "USB Audio [USB Audio]".
}

// ID returns the "card,device" identifier accepted by minimodem's --alsa
// switch.
func (d Device) ID() string { return fmt.Sprintf("%d,%d", d.Card, d.Device) }

func (d Device) String() string {
	return fmt.Sprintf("%s: %s, %s", d.ID(), d.Name, d.Desc)
}

// ListCaptureDevices returns the system's ALSA capture devices.
func ListCaptureDevices() ([]Device, error) { return listDevices("arecord") }

// ListPlaybackDevices returns the system's ALSA playback devices.
func ListPlaybackDevices() ([]Device, error) { return listDevices("aplay") }

func listDevices(tool string) ([]Device, error) {
	out, err := exec.Command(tool, "-l").Output()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", tool, err)
	}
	return parseDeviceList(out), nil
}

func parseDeviceList(out []byte) []Device {
	var devices []Device
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		if device, ok := parseDeviceLine(scanner.Text()); ok {
			devices = append(devices, device)
		}
	}
	return devices
}

// parseDeviceLine parses one device line of arecord/aplay -l output, e.g.
//
//	card 2: QDX [QDX], device 0: USB Audio [USB Audio]
//
// Header, subdevice and any other lines are not devices (ok is false).
func parseDeviceLine(line string) (device Device, ok bool) {
	if !strings.HasPrefix(line, "card ") {
		return Device{}, false
	}
	cardPart, devPart, ok := strings.Cut(line, ", device ")
	if !ok {
		return Device{}, false
	}
	cardNum, cardDesc, ok := strings.Cut(strings.TrimPrefix(cardPart, "card "), ":")
	if !ok {
		return Device{}, false
	}
	devNum, devDesc, ok := strings.Cut(devPart, ":")
	if !ok {
		return Device{}, false
	}
	card, err := strconv.Atoi(strings.TrimSpace(cardNum))
	if err != nil {
		return Device{}, false
	}
	dev, err := strconv.Atoi(strings.TrimSpace(devNum))
	if err != nil {
		return Device{}, false
	}
	return Device{
		Card:   card,
		Device: dev,
		Name:   strings.TrimSpace(cardDesc),
		Desc:   strings.TrimSpace(devDesc),
	}, true
}

// FindCaptureDevice returns the "card,device" identifier of the first
// capture device whose description contains search (case-insensitive).
func FindCaptureDevice(search string) (string, error) {
	devices, err := ListCaptureDevices()
	if err != nil {
		return "", err
	}
	return find(devices, search)
}

// FindPlaybackDevice returns the "card,device" identifier of the first
// playback device whose description contains search (case-insensitive).
func FindPlaybackDevice(search string) (string, error) {
	devices, err := ListPlaybackDevices()
	if err != nil {
		return "", err
	}
	return find(devices, search)
}

// FindDevice searches the capture devices first, then the playback
// devices.
func FindDevice(search string) (string, error) {
	if id, err := FindCaptureDevice(search); err == nil {
		return id, nil
	} else if !errors.Is(err, ErrNotFound) {
		return "", err
	}
	return FindPlaybackDevice(search)
}

func find(devices []Device, search string) (string, error) {
	search = strings.ToLower(search)
	for _, device := range devices {
		desc := strings.ToLower(device.Name + " " + device.Desc)
		if strings.Contains(desc, search) {
			return device.ID(), nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrNotFound, search)
}
