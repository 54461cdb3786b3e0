package types

import "time"

// Status represents a modem status report as sent to API clients.
type Status struct {
	State          string     `json:"state"`
	Busy           bool       `json:"busy"`
	LastTransition *time.Time `json:"last_transition,omitempty"`
	Confidence     float64    `json:"confidence"`
	QueueLength    int        `json:"queue_length"`
	Baudmode       string     `json:"baudmode"`
	SyncByte       string     `json:"sync_byte,omitempty"`
	HTTPClients    []string   `json:"http_clients"`
}

// Event represents one modem activity event as sent to API clients.
type Event struct {
	Kind       string    `json:"kind"`
	Time       time.Time `json:"time"`
	Confidence float64   `json:"confidence,omitempty"`
	Data       string    `json:"data,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// Device represents one audio device as sent to API clients.
type Device struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Desc string `json:"desc"`
}

// DeviceList holds the system's audio devices by direction.
type DeviceList struct {
	Capture  []Device `json:"capture"`
	Playback []Device `json:"playback"`
}

// VersionInfo describes the running app and its minimodem backend.
type VersionInfo struct {
	App          string `json:"app"`
	Version      string `json:"version"`
	GitRev       string `json:"git_rev"`
	Minimodem    string `json:"minimodem,omitempty"`
	MinimodemMin string `json:"minimodem_min"`
	Supported    bool   `json:"supported"`
	Error        string `json:"error,omitempty"`
}

// SendResponse acknowledges a queued message.
type SendResponse struct {
	Queued      bool `json:"queued"`
	QueueLength int  `json:"queue_length"`
}
