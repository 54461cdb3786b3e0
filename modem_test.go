// Copyright 2023 Martin Hebnes Pedersen (LA5NTA). All rights reserved.
// Use of this source code is governed by the MIT-license that can be
// found in the LICENSE file.

package fskmodem

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"
)

// fakeTransport stands in for the minimodem process pair. Test code feeds
// the demodulated stream through rx and injects carrier transitions, and
// inspects what the modem wrote for modulation.
type fakeTransport struct {
	rxReader *io.PipeReader
	rxWriter *io.PipeWriter
	events   chan Event

	mu     sync.Mutex
	wrote  [][]byte
	closed bool
}

func newFakeTransport() *fakeTransport {
	r, w := io.Pipe()
	return &fakeTransport{rxReader: r, rxWriter: w, events: make(chan Event, 16)}
}

func (f *fakeTransport) Rx() io.Reader { return f.rxReader }

func (f *fakeTransport) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, io.ErrClosedPipe
	}
	frame := make([]byte, len(p))
	copy(frame, p)
	f.wrote = append(f.wrote, frame)
	return len(p), nil
}

func (f *fakeTransport) Events() <-chan Event { return f.events }

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	f.rxWriter.Close()
	f.rxReader.Close()
	close(f.events)
	return nil
}

func (f *fakeTransport) rx(t *testing.T, stream string) {
	t.Helper()
	if _, err := f.rxWriter.Write([]byte(stream)); err != nil {
		t.Fatalf("rx feed: %v", err)
	}
}

func (f *fakeTransport) carrierOn() {
	f.events <- Event{Kind: EventCarrierOn, Time: time.Now()}
}

func (f *fakeTransport) carrierOff(confidence float64) {
	f.events <- Event{Kind: EventCarrierOff, Time: time.Now(), Confidence: confidence}
}

func (f *fakeTransport) writes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	frames := make([]string, len(f.wrote))
	for i, frame := range f.wrote {
		frames[i] = string(frame)
	}
	return frames
}

func (f *fakeTransport) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type fakePTT struct {
	mu    sync.Mutex
	calls []bool
}

func (p *fakePTT) SetPTT(on bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, on)
	return nil
}

func (p *fakePTT) snapshot() []bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]bool(nil), p.calls...)
}

// newTestModem returns a started modem backed by a fake transport.
func newTestModem(t *testing.T, config Config) (*Modem, *fakeTransport) {
	t.Helper()
	m, err := New(config)
	if err != nil {
		t.Fatal(err)
	}
	fake := newFakeTransport()
	m.openTransport = func(Config) (Transport, error) { return fake, nil }
	if err := m.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { m.Stop() })
	return m, fake
}

func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

func expectEvent(t *testing.T, receiver EventReceiver, kind EventKind) Event {
	t.Helper()
	select {
	case event, ok := <-receiver.Events():
		if !ok {
			t.Fatalf("event channel closed while waiting for %q", kind)
		}
		if event.Kind != kind {
			t.Fatalf("got event %q, expected %q", event.Kind, kind)
		}
		return event
	case <-time.After(3 * time.Second):
		t.Fatalf("timeout waiting for %q event", kind)
		return Event{}
	}
}

func TestSendNotStarted(t *testing.T) {
	m, err := New(Config{})
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Send([]byte("hi")); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Send: got %v, expected ErrNotStarted", err)
	}
	if err := m.Flush(); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Flush: got %v, expected ErrNotStarted", err)
	}
	if err := m.Stop(); err != nil {
		t.Errorf("Stop: got %v, expected no-op", err)
	}
	if m.State() != Configured {
		t.Errorf("got state %s, expected %s", m.State(), Configured)
	}
}

func TestStartErrorPropagates(t *testing.T) {
	m, err := New(Config{})
	if err != nil {
		t.Fatal(err)
	}
	cause := errors.New("device gone")
	m.openTransport = func(Config) (Transport, error) {
		return nil, &TransportUnavailableError{Err: cause}
	}
	err = m.Start()
	var unavailable *TransportUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("got %v, expected a TransportUnavailableError", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected wrapped cause in %v", err)
	}
	if m.State() != Configured {
		t.Errorf("got state %s, expected %s", m.State(), Configured)
	}
}

func TestReceiveFraming(t *testing.T) {
	m, fake := newTestModem(t, Config{})
	received := make(chan string, 8)
	m.SetRxCallback(func(msg []byte) { received <- string(msg) })

	fake.rx(t, "#hi#there#trail")

	for _, expect := range []string{"hi", "there"} {
		select {
		case got := <-received:
			if got != expect {
				t.Errorf("got %q, expected %q", got, expect)
			}
		case <-time.After(3 * time.Second):
			t.Fatalf("timeout waiting for %q", expect)
		}
	}
	select {
	case got := <-received:
		t.Errorf("unexpected extra message %q", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestReceivePassthrough(t *testing.T) {
	m, fake := newTestModem(t, Config{NoSyncByte: true})
	received := make(chan string, 8)
	m.SetRxCallback(func(msg []byte) { received <- string(msg) })

	fake.rx(t, "raw chunk")

	select {
	case got := <-received:
		if got != "raw chunk" {
			t.Errorf("got %q, expected %q", got, "raw chunk")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for chunk")
	}
}

func TestCallbackPanicRecovered(t *testing.T) {
	m, fake := newTestModem(t, Config{})
	received := make(chan string, 8)
	m.SetRxCallback(func(msg []byte) {
		received <- string(msg)
		if string(msg) == "boom" {
			panic("callback exploded")
		}
	})

	fake.rx(t, "#boom#fine#")

	for _, expect := range []string{"boom", "fine"} {
		select {
		case got := <-received:
			if got != expect {
				t.Errorf("got %q, expected %q", got, expect)
			}
		case <-time.After(3 * time.Second):
			t.Fatalf("timeout waiting for %q", expect)
		}
	}
}

// Messages queued while a carrier is sensed are held back until the
// channel has been clear for the quiet interval, then transmitted in
// order with the sync byte prepended.
func TestCarrierHoldoff(t *testing.T) {
	m, fake := newTestModem(t, Config{QuietInterval: 150 * time.Millisecond})

	fake.carrierOn()
	waitFor(t, time.Second, "busy channel", m.Busy)

	if err := m.Send([]byte("hi")); err != nil {
		t.Fatal(err)
	}
	if err := m.Send([]byte("there")); err != nil {
		t.Fatal(err)
	}
	if n := m.TxBufferLen(); n != 2 {
		t.Errorf("got queue length %d, expected 2", n)
	}

	time.Sleep(300 * time.Millisecond)
	if writes := fake.writes(); len(writes) != 0 {
		t.Fatalf("transmitted %q while the channel was busy", writes)
	}

	fake.carrierOff(5.46)
	waitFor(t, time.Second, "clear channel", func() bool { return !m.Busy() })

	// Still inside the quiet interval.
	time.Sleep(75 * time.Millisecond)
	if writes := fake.writes(); len(writes) != 0 {
		t.Fatalf("transmitted %q inside the quiet interval", writes)
	}

	waitFor(t, 3*time.Second, "transmission", func() bool { return len(fake.writes()) == 2 })
	writes := fake.writes()
	if writes[0] != "#hi" || writes[1] != "#there" {
		t.Errorf("got %q, expected [%q %q]", writes, "#hi", "#there")
	}
}

func TestTransmitFIFOIdle(t *testing.T) {
	m, fake := newTestModem(t, Config{QuietInterval: 50 * time.Millisecond})

	for _, msg := range []string{"a", "b", "", "c"} {
		if err := m.Send([]byte(msg)); err != nil {
			t.Fatal(err)
		}
	}
	if err := m.Flush(); err != nil {
		t.Fatal(err)
	}

	writes := fake.writes()
	expect := []string{"#a", "#b", "#", "#c"}
	if len(writes) != len(expect) {
		t.Fatalf("got %d writes %q, expected %d", len(writes), writes, len(expect))
	}
	for i := range expect {
		if writes[i] != expect[i] {
			t.Errorf("write %d: got %q, expected %q", i, writes[i], expect[i])
		}
	}
}

func TestSendQueueCap(t *testing.T) {
	m, fake := newTestModem(t, Config{MaxQueueLen: 2})

	// Keep the channel busy so nothing drains.
	fake.carrierOn()
	waitFor(t, time.Second, "busy channel", m.Busy)

	if err := m.Send([]byte("a")); err != nil {
		t.Fatal(err)
	}
	if err := m.Send([]byte("b")); err != nil {
		t.Fatal(err)
	}
	if err := m.Send([]byte("c")); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("got %v, expected ErrQueueFull", err)
	}
}

func TestStopDropsQueue(t *testing.T) {
	m, fake := newTestModem(t, Config{})

	fake.carrierOn()
	waitFor(t, time.Second, "busy channel", m.Busy)
	if err := m.Send([]byte("never sent")); err != nil {
		t.Fatal(err)
	}

	if err := m.Stop(); err != nil {
		t.Fatal(err)
	}
	if m.State() != Stopped {
		t.Errorf("got state %s, expected %s", m.State(), Stopped)
	}
	if !fake.isClosed() {
		t.Error("transport not closed on stop")
	}
	if n := m.TxBufferLen(); n != 0 {
		t.Errorf("got queue length %d, expected 0", n)
	}
	if writes := fake.writes(); len(writes) != 0 {
		t.Errorf("unexpected writes after stop: %q", writes)
	}
	if err := m.Send([]byte("hi")); !errors.Is(err, ErrNotStarted) {
		t.Errorf("got %v, expected ErrNotStarted", err)
	}
}

func TestTransportLostFault(t *testing.T) {
	m, fake := newTestModem(t, Config{})
	listener := m.Listen()
	defer listener.Close()

	// The transport dies without Stop being called.
	fake.Close()

	waitFor(t, 3*time.Second, "modem stop", func() bool { return m.State() == Stopped })

	select {
	case err := <-m.Faults():
		if !errors.Is(err, ErrTransportLost) {
			t.Errorf("got %v, expected ErrTransportLost", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no fault reported")
	}

	event := expectEvent(t, listener, EventFault)
	if !errors.Is(event.Err, ErrTransportLost) {
		t.Errorf("fault event carries %v, expected ErrTransportLost", event.Err)
	}

	if err := m.Send([]byte("hi")); !errors.Is(err, ErrNotStarted) {
		t.Errorf("got %v, expected ErrNotStarted", err)
	}
}

func TestRestartResetsAssembly(t *testing.T) {
	m, err := New(Config{QuietInterval: 50 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	var fakes []*fakeTransport
	m.openTransport = func(Config) (Transport, error) {
		fake := newFakeTransport()
		fakes = append(fakes, fake)
		return fake, nil
	}
	received := make(chan string, 8)
	m.SetRxCallback(func(msg []byte) { received <- string(msg) })

	if err := m.Start(); err != nil {
		t.Fatal(err)
	}
	defer m.Stop()
	fakes[0].rx(t, "par") // Never terminated.
	if err := m.Stop(); err != nil {
		t.Fatal(err)
	}

	if err := m.Start(); err != nil {
		t.Fatal(err)
	}
	fakes[1].rx(t, "tial#")

	select {
	case got := <-received:
		if got != "tial" {
			t.Errorf("got %q, expected %q", got, "tial")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestStopIdempotent(t *testing.T) {
	m, _ := newTestModem(t, Config{})
	for i := 0; i < 3; i++ {
		if err := m.Stop(); err != nil {
			t.Fatalf("stop %d: %v", i, err)
		}
	}
	if m.State() != Stopped {
		t.Errorf("got state %s, expected %s", m.State(), Stopped)
	}
}

func TestBusyAndConfidence(t *testing.T) {
	m, fake := newTestModem(t, Config{})

	if m.Busy() {
		t.Error("busy before any carrier")
	}
	if !m.LastTransition().IsZero() {
		t.Error("transition time before any carrier")
	}

	fake.carrierOn()
	waitFor(t, time.Second, "busy channel", m.Busy)
	if m.LastTransition().IsZero() {
		t.Error("transition time not updated")
	}

	fake.carrierOff(5.46)
	waitFor(t, time.Second, "clear channel", func() bool { return !m.Busy() })
	waitFor(t, time.Second, "confidence", func() bool { return m.Confidence() == 5.46 })
}

func TestEventListener(t *testing.T) {
	m, fake := newTestModem(t, Config{QuietInterval: 50 * time.Millisecond})
	listener := m.Listen()
	defer listener.Close()

	fake.carrierOn()
	expectEvent(t, listener, EventCarrierOn)

	fake.carrierOff(3.14)
	if event := expectEvent(t, listener, EventCarrierOff); event.Confidence != 3.14 {
		t.Errorf("got confidence %f, expected 3.14", event.Confidence)
	}

	fake.rx(t, "#msg#")
	if event := expectEvent(t, listener, EventRx); string(event.Data) != "msg" {
		t.Errorf("got data %q, expected %q", event.Data, "msg")
	}

	if err := m.Send([]byte("out")); err != nil {
		t.Fatal(err)
	}
	if event := expectEvent(t, listener, EventTx); string(event.Data) != "out" {
		t.Errorf("got data %q, expected %q", event.Data, "out")
	}
}

func TestPTTKeying(t *testing.T) {
	m, fake := newTestModem(t, Config{
		Baudmode:      "1200",
		QuietInterval: 50 * time.Millisecond,
		TxDelay:       20 * time.Millisecond,
	})
	ptt := &fakePTT{}
	m.SetPTT(ptt)

	if err := m.Send([]byte("hi")); err != nil {
		t.Fatal(err)
	}
	if err := m.Flush(); err != nil {
		t.Fatal(err)
	}

	if writes := fake.writes(); len(writes) != 1 || writes[0] != "#hi" {
		t.Fatalf("got writes %q, expected [%q]", writes, "#hi")
	}
	calls := ptt.snapshot()
	if len(calls) != 2 || !calls[0] || calls[1] {
		t.Errorf("got PTT sequence %v, expected [true false]", calls)
	}
}
