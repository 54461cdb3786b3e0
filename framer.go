// Copyright 2023 Martin Hebnes Pedersen (LA5NTA). All rights reserved.
// Use of this source code is governed by the MIT-license that can be
// found in the LICENSE file.

package fskmodem

// framer delimits the continuous decoded byte stream into discrete
// messages using a single sync byte, and frames outgoing messages by
// prepending that byte.
//
// With framing disabled the framer is a passthrough: every chunk fed is
// emitted as a message of its own and outgoing messages are written
// unmodified.
//
// A framer is confined to the goroutine feeding it.
type framer struct {
	syncByte byte
	enabled  bool
	max      int

	buf   []byte
	drops int
}

func newFramer(cfg Config) *framer {
	return &framer{
		syncByte: cfg.SyncByte,
		enabled:  !cfg.NoSyncByte,
		max:      cfg.MaxAssembly,
	}
}

// Feed consumes a chunk of decoded bytes and returns the messages
// completed by it, in order. Sync bytes terminate messages, so a run of
// consecutive sync bytes yields no empty messages. Bytes after the last
// sync byte remain buffered until the next Feed.
func (f *framer) Feed(p []byte) [][]byte {
	if !f.enabled {
		if len(p) == 0 {
			return nil
		}
		msg := make([]byte, len(p))
		copy(msg, p)
		return [][]byte{msg}
	}

	var msgs [][]byte
	for _, b := range p {
		if b != f.syncByte {
			f.buf = append(f.buf, b)
			if f.max > 0 && len(f.buf) > f.max {
				// Unframed noise or a missed delimiter. Drop
				// the assembly and start over.
				f.buf = f.buf[:0]
				f.drops++
			}
			continue
		}
		if len(f.buf) == 0 {
			continue
		}
		msg := make([]byte, len(f.buf))
		copy(msg, f.buf)
		msgs = append(msgs, msg)
		f.buf = f.buf[:0]
	}
	return msgs
}

// Encode frames a message for transmission. An empty message encodes to a
// bare sync byte.
func (f *framer) Encode(msg []byte) []byte {
	if !f.enabled {
		out := make([]byte, len(msg))
		copy(out, msg)
		return out
	}
	out := make([]byte, 0, len(msg)+1)
	out = append(out, f.syncByte)
	return append(out, msg...)
}

// Drops returns the number of assembly buffers discarded due to overflow.
func (f *framer) Drops() int { return f.drops }
