// Copyright 2023 Martin Hebnes Pedersen (LA5NTA). All rights reserved.
// Use of this source code is governed by the MIT-license that can be
// found in the LICENSE file.

package fskmodem

import "time"

// EventReceiver is a registered listener of modem events. Close it to
// unregister.
type EventReceiver struct {
	events chan Event    // Events are delivered on this channel.
	done   chan struct{} // Closed when the receiver is no longer listening.
}

// Events returns the receiver's event channel. The channel is closed when
// the receiver is closed or evicted.
func (r EventReceiver) Events() <-chan Event { return r.events }

// Close unregisters the receiver. The receiver's channel is closed on the
// next event broadcast.
func (r EventReceiver) Close() { close(r.done) }

// broadcaster forwards modem events to any number of registered receivers.
//
// Receivers that stop draining their channel are evicted so the modem
// loops never block on a slow listener. The broadcaster lives for the
// modem's lifetime, spanning restarts.
type broadcaster struct {
	events   chan Event
	register chan EventReceiver
}

func newBroadcaster() *broadcaster {
	b := &broadcaster{
		events:   make(chan Event),
		register: make(chan EventReceiver),
	}
	go b.run()
	return b
}

func (b *broadcaster) run() {
	var receivers []EventReceiver
	for {
		select {
		case receiver := <-b.register:
			receivers = append(receivers, receiver)
		case event := <-b.events:
			for i := 0; i < len(receivers); {
				receiver := receivers[i]
				select {
				case <-receiver.done:
					close(receiver.events)
					receivers = append(receivers[:i], receivers[i+1:]...)
					continue
				default:
				}
				select {
				case receiver.events <- event:
					i++
				case <-time.After(500 * time.Millisecond):
					close(receiver.events)
					receivers = append(receivers[:i], receivers[i+1:]...)
				}
			}
		}
	}
}

// Listen registers and returns a new event receiver.
func (b *broadcaster) Listen() EventReceiver {
	receiver := EventReceiver{
		events: make(chan Event, 16),
		done:   make(chan struct{}),
	}
	b.register <- receiver
	return receiver
}

// Send broadcasts event to all registered receivers.
func (b *broadcaster) Send(event Event) { b.events <- event }
