// Copyright 2023 Martin Hebnes Pedersen (LA5NTA). All rights reserved.
// Use of this source code is governed by the MIT-license that can be
// found in the LICENSE file.

package main

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/la5nta/fskmodem"
)

type EventLogger struct {
	file *os.File
	enc  *json.Encoder
}

func NewEventLogger(path string) (*EventLogger, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0666)
	return &EventLogger{file, json.NewEncoder(file)}, err
}

func (l *EventLogger) Close() error { return l.file.Close() }

func (l *EventLogger) Log(what string, event map[string]interface{}) {
	event["log_time"] = time.Now()
	event["what"] = what

	if err := l.enc.Encode(event); err != nil {
		panic(err)
	}
}

// logEvents records the modem's activity to the event log until the
// receiver is closed.
func logEvents(receiver fskmodem.EventReceiver) {
	for event := range receiver.Events() {
		e := map[string]interface{}{"event_time": event.Time}
		switch event.Kind {
		case fskmodem.EventCarrierOff:
			e["confidence"] = event.Confidence
		case fskmodem.EventTx, fskmodem.EventRx:
			e["size"] = len(event.Data)
			e["data"] = string(event.Data)
		case fskmodem.EventFault:
			e["error"] = event.Err.Error()
		}
		eventLog.Log(strings.ToLower(string(event.Kind)), e)
	}
}
