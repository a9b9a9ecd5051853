package websocket

import "time"

// MessageType defines the type of WebSocket message
type MessageType string

const (
	MessageTypeActionFinished MessageType = "action_finished"
	MessageTypeDeviceStatus   MessageType = "device_status"
	MessageTypeSystemStatus   MessageType = "system_status"
	MessageTypeWelcome        MessageType = "welcome"
)

// Message represents a WebSocket message
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      any         `json:"data"`
}

// DeviceStatusData is pushed whenever the polled device status changes.
type DeviceStatusData struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type SystemStatusData struct {
	State string `json:"state"`
}

// NewMessage creates a new message with current timestamp
func NewMessage(msgType MessageType, data any) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// NewActionMessage wraps a finished action result.
func NewActionMessage(result any) Message {
	return NewMessage(MessageTypeActionFinished, result)
}

func NewDeviceStatusMessage(status, errText string) Message {
	return NewMessage(MessageTypeDeviceStatus, DeviceStatusData{
		Status: status,
		Error:  errText,
	})
}

func NewSystemStatusMessage(state string) Message {
	return NewMessage(MessageTypeSystemStatus, SystemStatusData{State: state})
}
