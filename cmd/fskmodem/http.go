// Copyright 2023 Martin Hebnes Pedersen (LA5NTA). All rights reserved.
// Use of this source code is governed by the MIT-license that can be
// found in the LICENSE file.

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/la5nta/fskmodem/api"
	"github.com/la5nta/fskmodem/internal/directories"
	"github.com/la5nta/fskmodem/spool"
)

func httpHandle(args []string) {
	addr := config.HTTPAddr
	if addr == "" {
		addr = "localhost:8080"
	}

	set := pflag.NewFlagSet("http", pflag.ExitOnError)
	set.StringVarP(&addr, "addr", "a", addr, "Listen address.")
	set.Parse(args)

	if addr == "" {
		set.Usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	spoolDir := config.SpoolDir
	if spoolDir == "" {
		spoolDir = directories.DataDir()
	}
	go func() {
		err := spool.Watch(ctx, modem, filepath.Join(spoolDir, "outgoing"), filepath.Join(spoolDir, "sent"))
		if err != nil {
			log.Printf("Unable to watch spool directory: %s", err)
		}
	}()

	if err := api.ListenAndServe(ctx, modem, addr); err != nil {
		log.Fatal(err)
	}
}
