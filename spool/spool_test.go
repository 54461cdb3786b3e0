// Copyright 2023 Martin Hebnes Pedersen (LA5NTA). All rights reserved.
// Use of this source code is governed by the MIT-license that can be
// found in the LICENSE file.

package spool

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (f *fakeSender) Send(msg []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, string(msg))
	return nil
}

func (f *fakeSender) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func TestSweep(t *testing.T) {
	dir, sentDir := t.TempDir(), t.TempDir()

	// Oldest first, with a hidden file that must be skipped.
	writeFile(t, filepath.Join(dir, "first.txt"), "first message")
	time.Sleep(10 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "second.txt"), "second message")
	writeFile(t, filepath.Join(dir, ".hidden"), "not a message")

	sender := &fakeSender{}
	if err := Sweep(sender, dir, sentDir); err != nil {
		t.Fatal(err)
	}

	sent := sender.snapshot()
	if len(sent) != 2 || sent[0] != "first message" || sent[1] != "second message" {
		t.Errorf("got %q, expected [first message, second message]", sent)
	}

	for _, name := range []string{"first.txt", "second.txt"} {
		if _, err := os.Stat(filepath.Join(sentDir, name)); err != nil {
			t.Errorf("%s not archived: %v", name, err)
		}
		if _, err := os.Stat(filepath.Join(dir, name)); !os.IsNotExist(err) {
			t.Errorf("%s still in spool", name)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, ".hidden")); err != nil {
		t.Errorf("hidden file was touched: %v", err)
	}
}

func TestSweepSendError(t *testing.T) {
	dir, sentDir := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(dir, "msg.txt"), "message")

	cause := errors.New("queue full")
	if err := Sweep(&fakeSender{err: cause}, dir, sentDir); !errors.Is(err, cause) {
		t.Fatalf("got %v, expected wrapped %v", err, cause)
	}
	// The file stays in the spool for the next sweep.
	if _, err := os.Stat(filepath.Join(dir, "msg.txt")); err != nil {
		t.Errorf("file not retained after failed send: %v", err)
	}
}

func TestWatch(t *testing.T) {
	dir, sentDir := t.TempDir(), t.TempDir()
	sender := &fakeSender{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, sender, dir, sentDir) }()

	// Give the watcher a moment to establish.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "dropped.txt"), "via watcher")

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if sent := sender.snapshot(); len(sent) == 1 {
			if sent[0] != "via watcher" {
				t.Fatalf("got %q, expected %q", sent[0], "via watcher")
			}
			cancel()
			if err := <-done; err != nil {
				t.Fatal(err)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("dropped file never transmitted")
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
