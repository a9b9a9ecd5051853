package instrument

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

type DeviceStatus int

const (
	StatusUnknown DeviceStatus = iota
	StatusReady
	StatusBusy
	StatusError
)

func (s DeviceStatus) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusBusy:
		return "busy"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

func (s DeviceStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

const (
	infoStatus = "Status"
	infoError  = "Error"

	// Reported by Error() when the device answers with something that is not text.
	unknownErrorText = "unknown"
)

// NormalizeStatus maps raw device status text onto DeviceStatus. Matching is
// exact and case-sensitive after trimming; anything else is StatusUnknown.
func NormalizeStatus(raw any) DeviceStatus {
	text, ok := raw.(string)
	if !ok {
		return StatusUnknown
	}

	switch strings.TrimSpace(text) {
	case "Busy":
		return StatusBusy
	case "Ready":
		return StatusReady
	case "Error":
		return StatusError
	default:
		return StatusUnknown
	}
}

// StatusSnapshot is one status/error reading of the device.
type StatusSnapshot struct {
	Status DeviceStatus `json:"status"`
	Error  string       `json:"error"`
	At     time.Time    `json:"at"`
}

// Monitor reads status telemetry. Queries are best effort and never fail;
// nothing is cached because tray position and run progress change outside
// this process.
type Monitor struct {
	remote Remote
	logger *zap.Logger
}

func NewMonitor(remote Remote, logger *zap.Logger) *Monitor {
	return &Monitor{remote: remote, logger: logger}
}

func (m *Monitor) Status(ctx context.Context) DeviceStatus {
	raw, err := m.remote.GetInfo(ctx, infoStatus)
	if err != nil {
		m.logger.Warn("Status query failed", zap.Error(err))
		return StatusUnknown
	}
	return NormalizeStatus(raw)
}

// Error returns the device error text verbatim (trimmed).
func (m *Monitor) Error(ctx context.Context) string {
	raw, err := m.remote.GetInfo(ctx, infoError)
	if err != nil {
		m.logger.Warn("Error query failed", zap.Error(err))
		return unknownErrorText
	}

	text, ok := raw.(string)
	if !ok {
		return unknownErrorText
	}
	return strings.TrimSpace(text)
}

func (m *Monitor) IsBusy(ctx context.Context) bool {
	return m.Status(ctx) == StatusBusy
}

func (m *Monitor) Version(ctx context.Context) (string, error) {
	return m.remote.GetVersion(ctx)
}
