package manager

import "time"

// CreateServerParams describes one server creation request after boundary
// validation. Resource sizing fields may be empty; defaults are applied by
// the service.
type CreateServerParams struct {
	PodName         string
	PVCName         string
	ServerTapKey    string
	MemoryLimit     string
	MemoryRequest   string
	CPULimit        string
	CPURequest      string
	StorageCapacity string
}

// ServerResources is the workload sizing handed to the cluster adapter.
type ServerResources struct {
	MemoryLimit   string
	MemoryRequest string
	CPULimit      string
	CPURequest    string
}

// VolumeOutcome tags how the storage identity of a create was satisfied.
type VolumeOutcome string

const (
	// VolumeCreated means a new PV/PVC pair was provisioned.
	VolumeCreated VolumeOutcome = "created"

	// VolumeReused means an existing PVC was found and left untouched.
	VolumeReused VolumeOutcome = "reused"
)

// CreateServerResult is returned on successful server creation. Names are
// the normalized identifiers actually used in the cluster.
type CreateServerResult struct {
	PodName       string
	PVCName       string
	GameURL       string
	APIURL        string
	VolumeOutcome VolumeOutcome
}

// ManagedVolume is a read projection of a storage claim owned by a server.
type ManagedVolume struct {
	Name              string
	Namespace         string
	CreationTimestamp time.Time
	Status            string
	Capacity          string
}

// ServerStatus is a read projection of the managed workload.
type ServerStatus struct {
	PodName     string
	Phase       string
	Ready       bool
	MemoryUsage string
	CPUUsage    string
}

// PodUsage holds live resource usage reported by the metrics API.
type PodUsage struct {
	Memory string
	CPU    string
}
