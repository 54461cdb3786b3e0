// Copyright 2023 Martin Hebnes Pedersen (LA5NTA). All rights reserved.
// Use of this source code is governed by the MIT-license that can be
// found in the LICENSE file.

package fskmodem

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/la5nta/fskmodem/alsa"
	"github.com/la5nta/fskmodem/internal/debug"
)

// Transport is the byte-level interface between the Modem and the
// underlying soft modem processes.
//
// Implementations provide a continuous stream of demodulated bytes, accept
// raw bytes for modulation and report carrier transitions. Write is called
// by a single goroutine only.
type Transport interface {
	// Rx is the demodulated byte stream. Read returns an error when the
	// transport has terminated.
	Rx() io.Reader

	// Write submits raw bytes for modulation.
	Write(p []byte) (n int, err error)

	// Events is the carrier transition stream. The channel is closed
	// when the transport terminates.
	Events() <-chan Event

	// Close terminates the transport and releases the audio devices.
	// Safe to call multiple times.
	Close() error
}

// execTransport runs the pair of minimodem processes backing a started
// Modem. The receive process decodes audio to its stdout and reports
// carrier transitions on its stderr, the transmit process modulates bytes
// written to its stdin. If either process dies, both are terminated.
type execTransport struct {
	cancel context.CancelFunc
	group  *errgroup.Group

	rx     io.Reader
	tx     io.WriteCloser
	events chan Event

	closeOnce sync.Once
	closeErr  error
}

// openMinimodem resolves the audio devices and spawns the rx/tx minimodem
// pair for the given config.
func openMinimodem(config Config) (Transport, error) {
	if _, err := exec.LookPath("minimodem"); err != nil {
		return nil, &TransportUnavailableError{Err: err}
	}
	switch err := CheckMinimodemVersion(); {
	case err == nil:
	case errors.As(err, new(*TransportUnavailableError)):
		return nil, err
	default:
		return nil, &TransportUnavailableError{Err: err}
	}
	devIn, devOut, err := resolveDevices(config)
	if err != nil {
		return nil, &TransportUnavailableError{Err: err}
	}

	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)

	rxCmd := exec.CommandContext(ctx, "minimodem", modemArgs("--rx", devIn, config)...)
	txCmd := exec.CommandContext(ctx, "minimodem", modemArgs("--tx", devOut, config)...)
	debug.Printf("rx command: %v", rxCmd.Args)
	debug.Printf("tx command: %v", txCmd.Args)

	t := &execTransport{
		cancel: cancel,
		group:  group,
		events: make(chan Event, 8),
	}

	rxOut, err := rxCmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, &TransportUnavailableError{Err: err}
	}
	rxErr, err := rxCmd.StderrPipe()
	if err != nil {
		cancel()
		return nil, &TransportUnavailableError{Err: err}
	}
	txIn, err := txCmd.StdinPipe()
	if err != nil {
		cancel()
		return nil, &TransportUnavailableError{Err: err}
	}
	t.rx, t.tx = rxOut, txIn

	if err := rxCmd.Start(); err != nil {
		cancel()
		return nil, &TransportUnavailableError{Err: err}
	}
	if err := txCmd.Start(); err != nil {
		cancel()
		rxCmd.Wait()
		return nil, &TransportUnavailableError{Err: err}
	}

	group.Go(func() error { t.eventLoop(ctx, rxErr); return nil })
	group.Go(rxCmd.Wait)
	group.Go(txCmd.Wait)
	return t, nil
}

func (t *execTransport) Rx() io.Reader               { return t.rx }
func (t *execTransport) Write(p []byte) (int, error) { return t.tx.Write(p) }
func (t *execTransport) Events() <-chan Event        { return t.events }

func (t *execTransport) Close() error {
	t.closeOnce.Do(func() {
		t.tx.Close()
		t.cancel()
		t.closeErr = t.group.Wait()
	})
	return t.closeErr
}

// eventLoop scans the receive process' stderr for carrier transitions.
// Anything else minimodem prints there goes to the debug log.
func (t *execTransport) eventLoop(ctx context.Context, r io.Reader) {
	defer close(t.events)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		event, ok := parseEventLine(scanner.Text())
		if !ok {
			debug.Printf("minimodem: %s", scanner.Text())
			continue
		}
		select {
		case t.events <- event:
		case <-ctx.Done():
			return
		}
	}
}

// resolveDevices maps the config's device settings to the "card,device"
// identifiers passed to minimodem. Description searches take precedence,
// and the playback side falls back to the capture side when unset.
func resolveDevices(config Config) (devIn, devOut string, err error) {
	devIn, devOut = config.AlsaDevIn, config.AlsaDevOut
	searchIn, searchOut := config.SearchAlsaDevIn, config.SearchAlsaDevOut
	if searchOut == "" {
		searchOut = searchIn
	}
	if searchIn != "" {
		if devIn, err = alsa.FindCaptureDevice(searchIn); err != nil {
			return "", "", err
		}
	}
	if searchOut != "" {
		if devOut, err = alsa.FindPlaybackDevice(searchOut); err != nil {
			return "", "", err
		}
	}
	if devOut == "" {
		devOut = devIn
	}
	return devIn, devOut, nil
}

// modemArgs builds the minimodem argument list for the given direction.
// The receive and transmit invocations share the same set of switches,
// minimodem ignores the receive-only ones in transmit mode.
func modemArgs(mode, alsaDev string, config Config) []string {
	args := []string{mode}
	if alsaDev != "" {
		args = append(args, "--alsa="+alsaDev)
	}
	if config.Confidence > 0 {
		args = append(args, "--confidence", strconv.FormatFloat(config.Confidence, 'f', -1, 64))
	}
	if !config.NoSyncByte {
		args = append(args, "--sync-byte", fmt.Sprintf("0x%02x", config.SyncByte))
	}
	args = append(args, "--print-filter")
	if config.MarkHz > 0 {
		args = append(args, "--mark", strconv.Itoa(config.MarkHz))
	}
	if config.SpaceHz > 0 {
		args = append(args, "--space", strconv.Itoa(config.SpaceHz))
	}
	return append(args, config.Baudmode)
}
