package httpserver

import "time"

type rootResponse struct {
	Message string `json:"message"`
	Version string `json:"version"`
	Docs    string `json:"docs"`
}

type healthResponse struct {
	Status     string `json:"status"`
	Kubernetes string `json:"kubernetes"`
}

type createServerRequest struct {
	PodName         string `json:"pod_name"`
	PVCName         string `json:"pvc_name"`
	ServerTapKey    string `json:"servertap_key"`
	MemoryLimit     string `json:"memory_limit"`
	MemoryRequest   string `json:"memory_request"`
	CPULimit        string `json:"cpu_limit"`
	CPURequest      string `json:"cpu_request"`
	StorageCapacity string `json:"storage_capacity"`
}

type createServerResponse struct {
	Status  string `json:"status"`
	PodName string `json:"pod_name"`
	PVCName string `json:"pvc_name"`
	GameURL string `json:"game_url"`
	APIURL  string `json:"api_url"`
	Volume  string `json:"volume"`
}

type cleanedResponse struct {
	Status  string `json:"status"`
	PodName string `json:"pod_name"`
	PVCName string `json:"pvc_name"`
}

type pausedResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	PodName string `json:"pod_name"`
}

type volumeDeletedResponse struct {
	Status  string `json:"status"`
	PVCName string `json:"pvc_name"`
}

type volumeResponse struct {
	Name              string    `json:"name"`
	Namespace         string    `json:"namespace"`
	CreationTimestamp time.Time `json:"creation_timestamp"`
	Status            string    `json:"status"`
	Capacity          string    `json:"capacity"`
}

type serverStatusResponse struct {
	PodName     string `json:"pod_name"`
	Phase       string `json:"phase"`
	Ready       bool   `json:"ready"`
	MemoryUsage string `json:"memory_usage"`
	CPUUsage    string `json:"cpu_usage"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}
