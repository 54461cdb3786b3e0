// Copyright 2023 Martin Hebnes Pedersen (LA5NTA). All rights reserved.
// Use of this source code is governed by the MIT-license that can be
// found in the LICENSE file.

package fskmodem

import (
	"log"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/la5nta/wl2k-go/transport"

	"github.com/la5nta/fskmodem/internal/debug"
)

// Lead-in and timing constants for the transmit duration estimate.
// minimodem keys 16 sync bytes (8 data bits plus start and stop bits each)
// ahead of the payload, and needs some slack to drain its audio buffer.
const (
	leadInBits     = 16 * (8 + 2)
	txDurationFuzz = 1.3
	txTailTime     = 500 * time.Millisecond
)

// Modem is a full-duplex FSK soft modem with carrier-sense collision
// avoidance and transmit buffering.
//
// A started Modem owns a Transport (a pair of minimodem processes) and
// three background loops: a receiver assembling messages from the decoded
// byte stream, a carrier monitor tracking channel activity and a transmit
// scheduler draining the outgoing queue when the channel is clear.
//
// All methods are safe for concurrent use.
type Modem struct {
	config   Config
	baudrate float64

	mu      sync.Mutex
	state   State
	session *session
	ptt     transport.PTTController

	rxCallback atomic.Value // of func([]byte)

	events *broadcaster
	faults chan error

	// Swapped out by tests.
	openTransport func(Config) (Transport, error)
}

// session holds the per-start resources. Loops of an old session never
// touch the resources of a new one.
type session struct {
	trans    Transport
	queue    *txQueue
	framer   *framer
	carrier  *carrierState
	inflight atomic.Bool   // A transmit burst is in progress.
	done     chan struct{} // Closed when the session ends.
}

var _ transport.BusyChannelChecker = (*Modem)(nil)
var _ transport.Flusher = (*Modem)(nil)
var _ transport.TxBuffer = (*Modem)(nil)

// New returns a Modem for the given config, filling unset fields from the
// defaults. The modem processes are not started until Start is called.
func New(config Config) (*Modem, error) {
	config.applyDefaults()
	if err := config.check(); err != nil {
		return nil, err
	}
	baudrate, err := BaudRate(config.Baudmode)
	if err != nil {
		return nil, err
	}
	return &Modem{
		config:        config,
		baudrate:      baudrate,
		state:         Configured,
		events:        newBroadcaster(),
		faults:        make(chan error, 1),
		openTransport: openMinimodem,
	}, nil
}

// Open returns a started Modem for the given config.
func Open(config Config) (*Modem, error) {
	m, err := New(config)
	if err != nil {
		return nil, err
	}
	if err := m.Start(); err != nil {
		return nil, err
	}
	return m, nil
}

// Config returns the modem's configuration with defaults applied.
func (m *Modem) Config() Config { return m.config }

// State returns the modem's lifecycle state.
func (m *Modem) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Start acquires the audio devices and starts the modem loops. Starting a
// started modem is a no-op.
func (m *Modem) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != nil {
		return nil
	}
	trans, err := m.openTransport(m.config)
	if err != nil {
		return err
	}
	s := &session{
		trans:   trans,
		queue:   newTxQueue(m.config.MaxQueueLen),
		framer:  newFramer(m.config),
		carrier: newCarrierState(),
		done:    make(chan struct{}),
	}
	m.session = s
	m.state = Started
	go m.rxLoop(s)
	go m.carrierLoop(s)
	go m.txLoop(s)
	return nil
}

// Stop terminates the modem processes and releases the audio devices.
// Pending queued messages are dropped. Stopping a modem that is not
// started is a no-op.
func (m *Modem) Stop() error {
	m.mu.Lock()
	s := m.session
	m.mu.Unlock()
	if s == nil {
		return nil
	}
	m.stopSession(s, nil)
	return nil
}

// stopSession ends the given session. It is a no-op unless s is the
// current session, making it safe to call from any goroutine, multiple
// times, for sessions that have already been replaced.
func (m *Modem) stopSession(s *session, cause error) {
	m.mu.Lock()
	if m.session != s {
		m.mu.Unlock()
		return
	}
	m.session = nil
	m.state = Stopped
	m.mu.Unlock()

	close(s.done)
	s.queue.drop()
	if err := s.trans.Close(); err != nil {
		debug.Printf("transport close: %v", err)
	}

	if cause != nil {
		log.Printf("Modem stopped: %v", cause)
		select {
		case m.faults <- cause:
		default:
		}
		m.events.Send(Event{Kind: EventFault, Time: time.Now(), Err: cause})
	}
}

// Send queues msg for transmission and returns immediately. The message is
// transmitted in submission order once the channel has been clear for the
// configured quiet interval. The msg buffer is copied and may be reused by
// the caller.
func (m *Modem) Send(msg []byte) error {
	m.mu.Lock()
	s := m.session
	m.mu.Unlock()
	if s == nil {
		return ErrNotStarted
	}
	queued := make([]byte, len(msg))
	copy(queued, msg)
	return s.queue.Push(queued)
}

// SetRxCallback sets the handler invoked for each received message. The
// handler is invoked synchronously by the receiver loop and must not
// block. A nil handler discards received messages. The callback may be
// swapped at any time, also while the modem is running.
func (m *Modem) SetRxCallback(fn func(msg []byte)) {
	m.rxCallback.Store(fn)
}

// SetPTT sets the push-to-talk controller keyed around each transmission,
// typically a rig's VFO. A nil controller disables PTT control.
func (m *Modem) SetPTT(ptt transport.PTTController) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ptt = ptt
}

func (m *Modem) pttController() transport.PTTController {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ptt
}

// Listen registers and returns a receiver of modem activity events. The
// receiver spans restarts, close it when done.
func (m *Modem) Listen() EventReceiver { return m.events.Listen() }

// Faults returns the channel on which unexpected transport terminations
// are reported. The channel has a small buffer, a fault is never lost if
// the channel is unread between Start calls.
func (m *Modem) Faults() <-chan error { return m.faults }

// Busy returns true if a carrier is currently sensed on the channel.
//
// Busy implements the BusyChannelChecker interface of
// github.com/la5nta/wl2k-go/transport.
func (m *Modem) Busy() bool {
	m.mu.Lock()
	s := m.session
	m.mu.Unlock()
	if s == nil {
		return false
	}
	busy, _ := s.carrier.snapshot()
	return busy
}

// LastTransition returns the time of the last carrier transition, or the
// zero time if no carrier has been observed since Start.
func (m *Modem) LastTransition() time.Time {
	m.mu.Lock()
	s := m.session
	m.mu.Unlock()
	if s == nil {
		return time.Time{}
	}
	_, last := s.carrier.snapshot()
	return last
}

// Confidence returns the SNR confidence reported for the most recently
// ended carrier, or 0 if none has been observed since Start.
func (m *Modem) Confidence() float64 {
	m.mu.Lock()
	s := m.session
	m.mu.Unlock()
	if s == nil {
		return 0
	}
	return s.carrier.lastConfidence()
}

// TxBufferLen returns the number of messages waiting in the transmit
// queue.
//
// TxBufferLen implements the TxBuffer interface of
// github.com/la5nta/wl2k-go/transport.
func (m *Modem) TxBufferLen() int {
	m.mu.Lock()
	s := m.session
	m.mu.Unlock()
	if s == nil {
		return 0
	}
	return s.queue.Len()
}

// Flush blocks until the transmit queue is drained and any transmission in
// progress has ended. It returns ErrNotStarted if the modem is stopped
// before the queue empties.
//
// Flush implements the Flusher interface of
// github.com/la5nta/wl2k-go/transport.
func (m *Modem) Flush() error {
	for {
		m.mu.Lock()
		s := m.session
		m.mu.Unlock()
		if s == nil {
			return ErrNotStarted
		}
		if s.queue.Len() == 0 && !s.inflight.Load() {
			return nil
		}
		select {
		case <-s.done:
			return ErrNotStarted
		case <-time.After(25 * time.Millisecond):
		}
	}
}

// rxLoop reads the demodulated byte stream, assembles messages and
// delivers them to the rx callback and the event listeners. An unexpected
// end of the stream stops the modem and reports ErrTransportLost.
func (m *Modem) rxLoop(s *session) {
	rd := s.trans.Rx()
	buf := make([]byte, 512)
	for {
		n, err := rd.Read(buf)
		if n > 0 {
			for _, msg := range s.framer.Feed(buf[:n]) {
				m.deliver(msg)
				m.events.Send(Event{Kind: EventRx, Time: time.Now(), Data: msg})
			}
		}
		if err != nil {
			select {
			case <-s.done:
			default:
				debug.Printf("rx stream ended: %v", err)
				m.stopSession(s, ErrTransportLost)
			}
			return
		}
	}
}

// deliver invokes the rx callback with msg. A panicking callback is logged
// and does not take down the receiver loop.
func (m *Modem) deliver(msg []byte) {
	fn, _ := m.rxCallback.Load().(func([]byte))
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from rx callback panic: %v", r)
		}
	}()
	fn(msg)
}

// carrierLoop tracks carrier transitions reported by the transport and
// forwards them to the event listeners.
func (m *Modem) carrierLoop(s *session) {
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.trans.Events():
			if !ok {
				return
			}
			switch event.Kind {
			case EventCarrierOn:
				s.carrier.set(true, event.Time, 0)
			case EventCarrierOff:
				s.carrier.set(false, event.Time, event.Confidence)
			default:
				continue
			}
			m.events.Send(event)
		}
	}
}

// txLoop waits for queued messages and transmits them in bursts once the
// channel is clear.
func (m *Modem) txLoop(s *session) {
	for {
		if s.queue.Len() == 0 {
			select {
			case <-s.done:
				return
			case <-s.queue.Wait():
				continue
			}
		}
		if !m.waitClear(s) {
			return
		}
		m.txBurst(s)
	}
}

// waitClear blocks until the channel has been clear for the configured
// quiet interval. Before handing the channel over it applies a short
// random backoff and verifies that the channel is still ours, so that
// stations waiting out the same carrier don't all key up at once. Returns
// false if the session ended while waiting.
func (m *Modem) waitClear(s *session) bool {
	for {
		change := s.carrier.changeCh()
		busy, last := s.carrier.snapshot()

		if busy {
			select {
			case <-s.done:
				return false
			case <-change:
			}
			continue
		}

		if remaining := m.config.QuietInterval - time.Since(last); remaining > 0 {
			if !s.sleep(remaining, change) {
				return false
			}
			continue
		}

		if !s.sleep(txBackoff(), nil) {
			return false
		}
		if busy, _ := s.carrier.snapshot(); !busy {
			return true
		}
	}
}

// sleep blocks for d, returning early if the session ends (false) or
// change is closed (true).
func (s *session) sleep(d time.Duration, change <-chan struct{}) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-s.done:
		return false
	case <-change:
		return true
	case <-timer.C:
		return true
	}
}

// txBackoff returns a random delay between 100 and 250 ms.
func txBackoff() time.Duration {
	return 100*time.Millisecond + time.Duration(rand.Int63n(int64(150*time.Millisecond)))
}

// txBurst drains the queue while the channel stays clear, keying PTT once
// for the whole burst. With PTT control the burst is held keyed until the
// estimated transmit duration has passed, as minimodem buffers audio well
// ahead of the transducer.
func (m *Modem) txBurst(s *session) {
	s.inflight.Store(true)
	defer s.inflight.Store(false)

	ptt := m.pttController()
	var (
		keyed bool
		bits  int
		start time.Time
	)
	for {
		if busy, _ := s.carrier.snapshot(); busy {
			break
		}
		msg, ok := s.queue.Pop()
		if !ok {
			break
		}
		if ptt != nil && !keyed {
			ptt.SetPTT(true)
			keyed = true
			if !s.sleep(m.config.TxDelay, nil) {
				ptt.SetPTT(false)
				return
			}
			start = time.Now()
		}
		frame := s.framer.Encode(msg)
		if _, err := s.trans.Write(frame); err != nil {
			debug.Printf("tx write: %v", err)
			if keyed {
				ptt.SetPTT(false)
			}
			m.stopSession(s, ErrTransportLost)
			return
		}
		bits += len(frame) * 8
		if !m.config.NoSyncByte {
			bits += leadInBits
		}
		m.events.Send(Event{Kind: EventTx, Time: time.Now(), Data: msg})
	}
	if keyed {
		duration := time.Duration(float64(bits) / m.baudrate * txDurationFuzz * float64(time.Second))
		if hold := duration + txTailTime - time.Since(start); hold > 0 {
			s.sleep(hold, nil)
		}
		ptt.SetPTT(false)
	}
}
