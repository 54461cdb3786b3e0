// Copyright 2023 Martin Hebnes Pedersen (LA5NTA). All rights reserved.
// Use of this source code is governed by the MIT-license that can be
// found in the LICENSE file.

// Package spool implements a file drop directory for outgoing messages.
//
// Every regular file placed in the watched directory is transmitted as one
// message and then moved to the sent directory, so any script able to
// write a file can queue traffic without speaking the modem's API.
package spool

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/la5nta/fskmodem/internal/debug"
	"github.com/la5nta/fskmodem/internal/osutil"
)

// Sender is the queueing surface of fskmodem.Modem.
type Sender interface {
	Send(msg []byte) error
}

// Watch monitors dir and transmits new files through sender until ctx is
// done. Transmitted files are moved to sentDir. Files already waiting in
// dir are picked up immediately.
func Watch(ctx context.Context, sender Sender, dir, sentDir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := os.MkdirAll(sentDir, 0o755); err != nil {
		return err
	}

	// fsnotify opens a file descriptor per watched file, which may exceed
	// the soft limit on macOS (default 256). Windows has no such limit.
	if runtime.GOOS != "windows" {
		if err := osutil.RaiseOpenFileLimit(4096); err != nil {
			log.Printf("Unable to raise open file limit: %v", err)
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return err
	}

	// Pick up anything dropped before the watch started.
	if err := Sweep(sender, dir, sentDir); err != nil {
		log.Printf("Spool sweep failed: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if e.Op == fsnotify.Chmod {
				continue
			}
			// Writers emit several events per file. Wait for the
			// directory to settle before sweeping.
			drainUntilSilence(watcher, 100*time.Millisecond)
			if err := Sweep(sender, dir, sentDir); err != nil {
				log.Printf("Spool sweep failed: %v", err)
			}
		case err := <-watcher.Errors:
			log.Println(err)
		}
	}
}

// Sweep transmits and archives every regular file in dir, oldest first.
func Sweep(sender Sender, dir, sentDir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	type spooled struct {
		path    string
		modTime time.Time
	}
	var files []spooled
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, spooled{filepath.Join(dir, entry.Name()), info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].modTime.Before(files[j].modTime) })

	for _, file := range files {
		msg, err := os.ReadFile(file.path)
		if err != nil {
			return err
		}
		if err := sender.Send(msg); err != nil {
			return fmt.Errorf("unable to queue %s: %w", filepath.Base(file.path), err)
		}
		debug.Printf("Spooled %s (%d bytes)", filepath.Base(file.path), len(msg))
		if err := archive(file.path, sentDir); err != nil {
			return err
		}
	}
	return nil
}

// archive moves path into dir, prefixing a timestamp if the name is taken.
func archive(path, dir string) error {
	target := filepath.Join(dir, filepath.Base(path))
	if _, err := os.Stat(target); err == nil {
		target = filepath.Join(dir, fmt.Sprintf("%d_%s", time.Now().UnixNano(), filepath.Base(path)))
	}
	return os.Rename(path, target)
}

// drainUntilSilence reads from w.Events and blocks until the channel has
// been silent for at least silenceDur.
func drainUntilSilence(w *fsnotify.Watcher, silenceDur time.Duration) {
	timer := time.NewTimer(silenceDur)
	defer timer.Stop()
	for {
		select {
		case <-w.Events:
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(silenceDur)
		case <-timer.C:
			return
		}
	}
}
