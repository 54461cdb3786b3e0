// Copyright 2023 Martin Hebnes Pedersen (LA5NTA). All rights reserved.
// Use of this source code is governed by the MIT-license that can be
// found in the LICENSE file.

package main

import (
	"bytes"
	"fmt"
	"log"
	"strings"

	"github.com/peterh/liner"
)

func interactiveHandle(args []string) {
	modem.SetRxCallback(func(msg []byte) {
		log.Printf("RX: %s", msg)
	})

	line := liner.NewLiner()
	defer line.Close()

	for {
		str, err := line.Prompt(getPrompt())
		if err != nil {
			// ^C or ^D.
			return
		}
		str = strings.TrimSpace(str)
		if str == "" {
			continue
		}
		line.AppendHistory(str)

		if str[0] == '#' {
			continue
		}

		if quit := execCmd(str); quit {
			return
		}
	}
}

// execCmd handles one line of interactive input. Lines starting with a
// slash are commands, anything else is queued for transmission.
func execCmd(line string) (quit bool) {
	if !strings.HasPrefix(line, "/") {
		if err := modem.Send([]byte(line)); err != nil {
			log.Printf("Send failed: %s", err)
		} else if modem.Busy() {
			fmt.Println("Channel busy, message queued.")
		}
		return false
	}

	cmd, _ := parseCommand(line)
	switch cmd {
	case "/status":
		printStatus()
	case "/devices":
		devicesHandle(nil)
	case "/q", "/quit":
		return true
	default:
		printInteractiveUsage()
	}
	return false
}

func printInteractiveUsage() {
	fmt.Println("Anything not starting with '/' is transmitted as a message.")

	cmds := []string{
		"/status     Print the modem status.",
		"/devices    List the system's audio devices.",
		"/quit       Exit.",
	}
	fmt.Println("Commands: ")
	for _, cmd := range cmds {
		fmt.Printf(" %s\n", cmd)
	}
}

func printStatus() {
	fmt.Printf("state:      %s\n", modem.State())
	fmt.Printf("busy:       %t\n", modem.Busy())
	if t := modem.LastTransition(); !t.IsZero() {
		fmt.Printf("transition: %s\n", t.Format("15:04:05"))
	}
	fmt.Printf("confidence: %.2f\n", modem.Confidence())
	fmt.Printf("queued:     %d\n", modem.TxBufferLen())
}

func getPrompt() string {
	var buf bytes.Buffer

	if modem.Busy() {
		fmt.Fprint(&buf, "busy")
	}

	fmt.Fprint(&buf, "> ")
	return buf.String()
}

func parseCommand(str string) (cmd, param string) {
	parts := strings.SplitN(str, " ", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}
