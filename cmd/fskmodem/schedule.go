// Copyright 2023 Martin Hebnes Pedersen (LA5NTA). All rights reserved.
// Use of this source code is governed by the MIT-license that can be
// found in the LICENSE file.

package main

import (
	"log"
	"strings"
	"time"

	"github.com/gorhill/cronexpr"
)

type Job struct {
	expr *cronexpr.Expression
	text string
	next time.Time
}

// scheduleLoop transmits the configured beacon texts on their cron
// schedules for as long as the process lives.
func scheduleLoop() {
	jobs := make([]*Job, 0, len(config.Schedule))
	for exprStr, text := range config.Schedule {
		expr, err := cronexpr.Parse(exprStr)
		if err != nil {
			log.Printf("Skipping invalid schedule expression '%s': %s", exprStr, err)
			continue
		}
		jobs = append(jobs, &Job{
			expr,
			text,
			expr.Next(time.Now()),
		})
	}
	if len(jobs) == 0 {
		return
	}
	log.Printf("Scheduled %d beacon(s).", len(jobs))

	go func() {
		for range time.Tick(time.Second) {
			for _, j := range jobs {
				if time.Now().Before(j.next) {
					continue
				}
				log.Printf("Queueing scheduled beacon '%s'...", j.text)
				sendBeacon(j.text)
				j.next = j.expr.Next(time.Now())
			}
		}
	}()
}

// sendBeacon queues text for transmission after expanding its
// placeholders.
func sendBeacon(text string) {
	text = strings.ReplaceAll(text, PlaceholderMycall, fOptions.MyCall)
	text = strings.ReplaceAll(text, PlaceholderLocator, config.Locator)
	if err := modem.Send([]byte(text)); err != nil {
		log.Printf("Unable to queue beacon: %s", err)
	}
}
