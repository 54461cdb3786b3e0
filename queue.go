// Copyright 2023 Martin Hebnes Pedersen (LA5NTA). All rights reserved.
// Use of this source code is governed by the MIT-license that can be
// found in the LICENSE file.

package fskmodem

import "sync"

// txQueue is a FIFO of pending outgoing messages. Push never blocks; the
// transmit scheduler consumes messages in submission order.
type txQueue struct {
	mu     sync.Mutex
	msgs   [][]byte
	maxLen int

	signal chan struct{} // Capacity 1, poked on every Push.
}

func newTxQueue(maxLen int) *txQueue {
	return &txQueue{maxLen: maxLen, signal: make(chan struct{}, 1)}
}

// Push appends msg to the queue, returning ErrQueueFull if a cap is
// configured and reached.
func (q *txQueue) Push(msg []byte) error {
	q.mu.Lock()
	if q.maxLen > 0 && len(q.msgs) >= q.maxLen {
		q.mu.Unlock()
		return ErrQueueFull
	}
	q.msgs = append(q.msgs, msg)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return nil
}

// Pop removes and returns the head of the queue.
func (q *txQueue) Pop() ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.msgs) == 0 {
		return nil, false
	}
	msg := q.msgs[0]
	q.msgs = q.msgs[1:]
	return msg, true
}

// Wait returns a channel that is poked after a Push. A single pending poke
// is retained, so a Push racing a concurrent Pop is never lost.
func (q *txQueue) Wait() <-chan struct{} { return q.signal }

// Len returns the number of queued messages.
func (q *txQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.msgs)
}

// drop discards all queued messages.
func (q *txQueue) drop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.msgs = nil
}
