package manager

import "errors"

var (
	// ErrInvalidName is returned when a requested name normalizes to an
	// empty string and no valid cluster resource name can be derived.
	ErrInvalidName = errors.New("invalid resource name")

	// ErrServerNotFound is returned when a status query targets a server
	// with no pods in the cluster.
	ErrServerNotFound = errors.New("server not found")

	ErrCreateServer = errors.New("create server")
	ErrDeleteServer = errors.New("delete server")
	ErrPauseServer  = errors.New("pause server")
	ErrDeleteVolume = errors.New("delete volume")
	ErrListVolumes  = errors.New("list volumes")
	ErrServerStatus = errors.New("server status")
)
