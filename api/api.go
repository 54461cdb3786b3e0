// Copyright 2023 Martin Hebnes Pedersen (LA5NTA). All rights reserved.
// Use of this source code is governed by the MIT-license that can be
// found in the LICENSE file.

// Package api provides the HTTP and WebSocket monitor interface for a
// running modem.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/la5nta/fskmodem"
	"github.com/la5nta/fskmodem/alsa"
	"github.com/la5nta/fskmodem/api/types"
	"github.com/la5nta/fskmodem/internal/buildinfo"
)

// Modem is the surface of fskmodem.Modem that the API serves. It is
// satisfied by *fskmodem.Modem.
type Modem interface {
	Config() fskmodem.Config
	State() fskmodem.State
	Busy() bool
	LastTransition() time.Time
	Confidence() float64
	TxBufferLen() int
	Send(msg []byte) error
	Listen() fskmodem.EventReceiver
}

// ListenAndServe starts the HTTP service on addr, serving the given modem
// until ctx is done.
func ListenAndServe(ctx context.Context, m Modem, addr string) error {
	log.Printf("Starting HTTP service (http://%s)...", addr)

	handler := NewHandler(m)
	go handler.wsHub.PumpEvents(ctx)
	defer handler.wsHub.Close()

	srv := http.Server{
		Addr:    addr,
		Handler: handler,
	}
	errs := make(chan error, 1)
	go func() {
		errs <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Println("Shutting down HTTP server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
		return nil
	case err := <-errs:
		return err
	}
}

type Handler struct {
	m     Modem
	wsHub *WSHub
	r     *mux.Router
}

func NewHandler(m Modem) *Handler {
	r := mux.NewRouter()
	h := &Handler{m, NewWSHub(m), r}

	r.HandleFunc("/api/status", h.statusHandler).Methods("GET")
	r.HandleFunc("/api/send", h.sendHandler).Methods("POST")
	r.HandleFunc("/api/devices", h.devicesHandler).Methods("GET")
	r.HandleFunc("/api/version", h.versionHandler).Methods("GET")
	r.HandleFunc("/ws", h.wsHandler)

	return h
}

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) { h.r.ServeHTTP(w, r) }

func (h Handler) statusHandler(w http.ResponseWriter, _ *http.Request) {
	_ = json.NewEncoder(w).Encode(getStatus(h.m, h.wsHub))
}

func (h Handler) sendHandler(w http.ResponseWriter, r *http.Request) {
	msg, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	switch err := h.m.Send(msg); {
	case errors.Is(err, fskmodem.ErrNotStarted):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, fskmodem.ErrQueueFull):
		http.Error(w, err.Error(), http.StatusTooManyRequests)
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	default:
		_ = json.NewEncoder(w).Encode(types.SendResponse{
			Queued:      true,
			QueueLength: h.m.TxBufferLen(),
		})
	}
}

func (h Handler) devicesHandler(w http.ResponseWriter, r *http.Request) {
	var (
		list types.DeviceList
		err  error
	)
	if list.Capture, err = listDevices(alsa.ListCaptureDevices); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if list.Playback, err = listDevices(alsa.ListPlaybackDevices); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(list)
}

func listDevices(list func() ([]alsa.Device, error)) ([]types.Device, error) {
	devices, err := list()
	if err != nil {
		return nil, err
	}
	out := make([]types.Device, len(devices))
	for i, device := range devices {
		out[i] = types.Device{ID: device.ID(), Name: device.Name, Desc: device.Desc}
	}
	return out, nil
}

func (h Handler) versionHandler(w http.ResponseWriter, _ *http.Request) {
	info := types.VersionInfo{
		App:          buildinfo.AppName,
		Version:      buildinfo.Version,
		GitRev:       buildinfo.GitRev,
		MinimodemMin: fskmodem.MinimodemVersionMin,
	}
	switch version, err := fskmodem.MinimodemVersion(); {
	case err != nil:
		info.Error = err.Error()
	default:
		info.Minimodem = version
		info.Supported = fskmodem.CheckMinimodemVersion() == nil
	}
	_ = json.NewEncoder(w).Encode(info)
}

func (h Handler) wsHandler(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}
	_ = conn.WriteJSON(struct{ AppName, Version string }{buildinfo.AppName, buildinfo.VersionStringShort()})
	h.wsHub.Handle(conn)
}

// getStatus assembles a status report from the modem's live state.
func getStatus(m Modem, hub *WSHub) types.Status {
	config := m.Config()
	status := types.Status{
		State:       m.State().String(),
		Busy:        m.Busy(),
		Confidence:  m.Confidence(),
		QueueLength: m.TxBufferLen(),
		Baudmode:    config.Baudmode,
		HTTPClients: hub.ClientAddrs(),
	}
	if !config.NoSyncByte {
		status.SyncByte = fmt.Sprintf("0x%02x", config.SyncByte)
	}
	if t := m.LastTransition(); !t.IsZero() {
		status.LastTransition = &t
	}
	return status
}
