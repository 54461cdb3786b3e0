// Copyright 2023 Martin Hebnes Pedersen (LA5NTA). All rights reserved.
// Use of this source code is governed by the MIT-license that can be
// found in the LICENSE file.

package fskmodem

import (
	"sync"
	"time"
)

// carrierState tracks channel activity as reported by the transport.
//
// The busy flag and the transition timestamp are updated together under a
// single lock, so readers never observe a half-applied transition.
type carrierState struct {
	mu             sync.Mutex
	busy           bool
	lastTransition time.Time
	confidence     float64
	changed        chan struct{} // Closed and replaced on every transition.
}

func newCarrierState() *carrierState {
	return &carrierState{changed: make(chan struct{})}
}

func (c *carrierState) set(busy bool, t time.Time, confidence float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = busy
	c.lastTransition = t
	if confidence != 0 {
		c.confidence = confidence
	}
	close(c.changed)
	c.changed = make(chan struct{})
}

// snapshot returns the busy flag and the time of the last transition.
func (c *carrierState) snapshot() (busy bool, lastTransition time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy, c.lastTransition
}

// lastConfidence returns the SNR confidence reported for the most recently
// ended carrier.
func (c *carrierState) lastConfidence() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.confidence
}

// changeCh returns a channel that is closed on the next transition. Grab
// the channel before reading snapshot to avoid missing a transition in
// between.
func (c *carrierState) changeCh() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.changed
}
