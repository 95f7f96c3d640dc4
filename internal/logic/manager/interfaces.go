package manager

import (
	"context"
	"time"
)

// Repository is the port interface for cluster operations.
// Implementations are provided by adapters in the outbound layer.
type Repository interface {
	PingQuery(ctx context.Context) error

	PVCExistsQuery(ctx context.Context, name string) (bool, error)
	ListStoragePVCsQuery(ctx context.Context, labelSelector string) ([]ManagedVolume, error)
	ServerStatusQuery(ctx context.Context, podName string) (*ServerStatus, error)
	PodUsageQuery(ctx context.Context, podName string) (*PodUsage, error)

	UpsertProxyConfigCommand(ctx context.Context) error
	CreateServerTapConfigCommand(ctx context.Context, podName, apiKey string) error
	ProvisionVolumeDirCommand(ctx context.Context, pvcName string) error
	CreatePVCommand(ctx context.Context, pvcName, capacity string) error
	CreatePVCCommand(ctx context.Context, pvcName, capacity string) error
	WaitPVCBoundCommand(ctx context.Context, pvcName string) error
	CreateDeploymentCommand(ctx context.Context, podName, pvcName string, res ServerResources) error
	CreateServiceCommand(ctx context.Context, podName string) error
	CreateIngressCommand(ctx context.Context, podName string) error

	DeleteDeploymentCommand(ctx context.Context, podName string) error
	DeleteServiceCommand(ctx context.Context, podName string) error
	DeleteIngressCommand(ctx context.Context, podName string) error
	DeleteConfigMapCommand(ctx context.Context, name string) error
	DeletePVCCommand(ctx context.Context, pvcName string) error
	DeletePVCommand(ctx context.Context, pvcName string) error

	ListFinishedJobsQuery(ctx context.Context, prefix string, olderThan time.Duration) ([]string, error)
	DeleteJobCommand(ctx context.Context, name string) error
}

// notFound is a private interface for checking "not found" errors
// without importing the adapter package.
type notFound interface {
	IsNotFound()
}

// alreadyExists is a private interface for checking "already exists" errors
// without importing the adapter package.
type alreadyExists interface {
	IsAlreadyExists()
}
