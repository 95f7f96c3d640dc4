package httpserver

import (
	"context"

	"github.com/msdca/minecraft-k8s-manager/internal/logic/manager"
)

// serverManager is the inbound port of the server manager logic.
type serverManager interface {
	CreateServerCommand(ctx context.Context, params manager.CreateServerParams) (*manager.CreateServerResult, error)
	DeleteServerCommand(ctx context.Context, podName, pvcName string) (string, string, error)
	PauseServerCommand(ctx context.Context, podName string) (string, error)
	DeleteVolumeCommand(ctx context.Context, pvcName string) (string, error)
	ListVolumesQuery(ctx context.Context) ([]manager.ManagedVolume, error)
	ServerStatusQuery(ctx context.Context, podName string) (*manager.ServerStatus, error)
	PingQuery(ctx context.Context) error
}
