package interfaces

import (
	"context"

	"github.com/KevinKickass/OpenPlateReader/internal/action"
	"github.com/KevinKickass/OpenPlateReader/internal/config"
)

// SystemStatus represents the module state plus the live device reading
type SystemStatus struct {
	State            string `json:"state"`
	DeviceStatus     string `json:"device_status"`
	DeviceError      string `json:"device_error,omitempty"`
	Busy             bool   `json:"busy"`
	ConnectedClients int    `json:"connected_clients"`
}

type LifecycleManager interface {
	Config() *config.Config
	ActionServer() *action.Server
	GetCurrentStatus(ctx context.Context) SystemStatus
	Shutdown(ctx context.Context) error
}
