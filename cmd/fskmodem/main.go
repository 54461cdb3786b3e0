// Copyright 2023 Martin Hebnes Pedersen (LA5NTA). All rights reserved.
// Use of this source code is governed by the MIT-license that can be
// found in the LICENSE file.

// A command line client for sending and receiving text over FSK audio links.
package main

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/la5nta/fskmodem"
	"github.com/la5nta/fskmodem/internal/buildinfo"
	"github.com/la5nta/fskmodem/internal/directories"
	"github.com/la5nta/fskmodem/internal/editor"
)

var commands = []Command{
	{
		Str:        "interactive",
		Aliases:    []string{"i"},
		Desc:       "Run interactive mode (default).",
		HandleFunc: interactiveHandle,
		NeedsModem: true,
		LongLived:  true,
	},
	{
		Str:   "send",
		Desc:  "Send a message and exit.",
		Usage: "[message]",
		Example: `
  fskmodem send "CQ CQ DE LA5NTA"
  echo "CQ CQ DE LA5NTA" | fskmodem send`,
		HandleFunc: sendHandle,
		NeedsModem: true,
	},
	{
		Str:        "devices",
		Desc:       "List the system's audio capture and playback devices.",
		HandleFunc: devicesHandle,
	},
	{
		Str:   "http",
		Desc:  "Run http server for the JSON API and event stream.",
		Usage: "[options]",
		Options: map[string]string{
			"--addr, -a": "Listen address. Default is localhost:8080.",
		},
		HandleFunc: httpHandle,
		NeedsModem: true,
		LongLived:  true,
	},
	{
		Str:        "configure",
		Desc:       "Open configuration file for editing.",
		HandleFunc: configureHandle,
	},
	{
		Str:        "env",
		Desc:       "List environment variables.",
		HandleFunc: envHandle,
	},
	{
		Str:  "version",
		Desc: "Print the application version.",
		HandleFunc: func(args []string) {
			fmt.Printf("%s %s\n", buildinfo.AppName, buildinfo.VersionString())
			if version, err := fskmodem.MinimodemVersion(); err != nil {
				fmt.Printf("minimodem: %s\n", err)
			} else {
				fmt.Printf("minimodem v%s\n", version)
			}
		},
	},
	{
		Str:  "help",
		Desc: "Print detailed help for a given command.",
		// Avoid initialization loop by invoking helpHandle in main
	},
}

var (
	config    Config
	modem     *fskmodem.Modem // The modem used by all transmitting commands
	logWriter io.Writer
	eventLog  *EventLogger
)

var fOptions struct {
	MyCall       string
	ConfigPath   string
	LogPath      string
	EventLogPath string
}

func optionsSet() *pflag.FlagSet {
	set := pflag.NewFlagSet("options", pflag.ExitOnError)

	set.StringVar(&fOptions.MyCall, `mycall`, ``, `Your callsign (used in beacon placeholders).`)
	set.StringVar(&fOptions.ConfigPath, "config", fOptions.ConfigPath, "Path to config file")
	set.StringVar(&fOptions.LogPath, "log", fOptions.LogPath, "Path to log file.")
	set.StringVar(&fOptions.EventLogPath, "event-log", fOptions.EventLogPath, "Path to event log file.")

	return set
}

func init() {
	fOptions.ConfigPath = path.Join(directories.ConfigDir(), "config.json")
	fOptions.LogPath = path.Join(directories.StateDir(), "fskmodem.log")
	fOptions.EventLogPath = path.Join(directories.StateDir(), "eventlog.json")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s is a text message client for minimodem FSK audio links.\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Usage:\n  %s [options] command [arguments]\n", os.Args[0])

		fmt.Fprintln(os.Stderr, "\nCommands:")
		for _, cmd := range commands {
			fmt.Fprintf(os.Stderr, "  %-15s %s\n", cmd.Str, cmd.Desc)
		}

		fmt.Fprintln(os.Stderr, "\nOptions:")
		optionsSet().PrintDefaults()
		fmt.Fprint(os.Stderr, "\n")
	}
}

func main() {
	var err error
	config, err = LoadConfig(fOptions.ConfigPath, DefaultConfig)
	if err != nil {
		log.Fatalf("Unable to load/write config: %s", err)
	}

	cmd, args := parseFlags(os.Args)

	// Skip initialization for some commands
	switch cmd.Str {
	case "help":
		helpHandle(args)
		return
	case "configure", "env", "version", "devices":
		cmd.HandleFunc(args)
		return
	}

	// Initialize logger
	logWriter = io.MultiWriter(&lumberjack.Logger{
		Filename:   fOptions.LogPath,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
	}, os.Stdout)
	log.SetOutput(logWriter)

	eventLog, err = NewEventLogger(fOptions.EventLogPath)
	if err != nil {
		log.Fatal("Unable to open event log file:", err)
	}

	// Read command line options from config if unset
	if fOptions.MyCall == "" {
		fOptions.MyCall = config.MyCall
	}

	// Make sure we clean up on exit, closing any open resources etc.
	defer cleanup()

	if cmd.NeedsModem {
		openModem()
		go logEvents(modem.Listen())
	}

	if cmd.LongLived {
		scheduleLoop()
	}

	// Start command execution
	cmd.HandleFunc(args)
}

// openModem builds and starts the global modem from the loaded config.
//
// PTT rig control is attached before the first transmission can happen.
func openModem() {
	mCfg, err := config.ModemConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %s", err)
	}

	modem, err = fskmodem.New(mCfg)
	if err != nil {
		log.Fatalf("Invalid configuration: %s", err)
	}

	if vfo, ok := loadRig(config.Rig); ok {
		modem.SetPTT(vfo)
	}

	if err := modem.Start(); err != nil {
		log.Fatalf("Unable to start modem: %s", err)
	}
	log.Printf("Modem started (baudmode %s).", mCfg.Baudmode)

	go func() {
		for err := range modem.Faults() {
			log.Printf("Modem fault: %s", err)
		}
	}()
}

func configureHandle(args []string) {
	if err := editor.Open(fOptions.ConfigPath); err != nil {
		log.Fatalf("Unable to start editor: %s", err)
	}
}

func sendHandle(args []string) {
	msg := []byte(strings.TrimSpace(strings.Join(args, " ")))
	if len(msg) == 0 {
		var err error
		msg, err = io.ReadAll(os.Stdin)
		if err != nil {
			log.Fatalf("Unable to read message from stdin: %s", err)
		}
		msg = bytes.TrimSuffix(msg, []byte("\n"))
	}
	if len(msg) == 0 {
		fmt.Println("Missing message, try 'send help'.")
		os.Exit(1)
	}

	if err := modem.Send(msg); err != nil {
		log.Fatalf("Send failed: %s", err)
	}
	if err := modem.Flush(); err != nil {
		log.Fatalf("Send failed: %s", err)
	}
}

func helpHandle(args []string) {
	arg := args[0]

	var cmd *Command
	for _, c := range commands {
		if c.Str == arg {
			cmd = &c
			break
		}
	}
	if arg == "" || cmd == nil {
		pflag.Usage()
		return
	}
	cmd.PrintUsage()
}

func cleanup() {
	if modem != nil {
		if err := modem.Stop(); err != nil {
			log.Printf("Failure to stop modem: %s", err)
		}
	}

	eventLog.Close()
}
