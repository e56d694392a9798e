// Package protocol defines the JSON messages exchanged over the status
// WebSocket.
package protocol

import "encoding/json"

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// TypeSnapshot is sent by the server right after a client connects
	TypeSnapshot MessageType = "snapshot"

	// TypeStatus is sent whenever the status line or mode changes
	TypeStatus MessageType = "status"

	// TypeNotice carries one-off notices such as a detected clock change
	TypeNotice MessageType = "notice"

	// TypeCommand is sent by clients to drive the recorder
	TypeCommand MessageType = "command"

	// TypeError answers a command that failed
	TypeError MessageType = "error"
)

// Commands accepted in a CommandPayload
const (
	CommandToggleRecording = "toggle_recording"
	CommandReplay          = "replay"
	CommandStopReplay      = "stop_replay"
	CommandToggleAuto      = "toggle_auto_replay"
	CommandAddSchedule     = "add_schedule"
	CommandRemoveSchedule  = "remove_schedule"
	CommandSetAutoInterval = "set_auto_interval"
)

// Message is the generic container for all WebSocket messages
type Message struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// StatusPayload is the payload for TypeStatus, TypeNotice and TypeSnapshot
type StatusPayload struct {
	Message  string      `json:"message,omitempty"`
	Time     int64       `json:"time"` // unix milliseconds
	Snapshot interface{} `json:"snapshot,omitempty"`
}

// CommandPayload is the payload for TypeCommand
type CommandPayload struct {
	Action string `json:"action"`
	Entry  string `json:"entry,omitempty"`

	// Interval is a duration or a number of seconds
	Interval string `json:"interval,omitempty"`
}

// ErrorPayload is the payload for TypeError
type ErrorPayload struct {
	Action string `json:"action,omitempty"`
	Error  string `json:"error"`
}

// DecodePayload converts a decoded generic payload into dst
func DecodePayload(msg Message, dst interface{}) error {
	data, err := json.Marshal(msg.Payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}
