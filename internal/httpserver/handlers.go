package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/msdca/minecraft-k8s-manager/internal/logic/manager"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, rootResponse{
		Message: "Minecraft K8s Manager API",
		Version: apiVersion,
		Docs:    "/docs",
	})
}

// handleHealth reports cluster connectivity. It never fails: probe errors
// are reported in the payload with HTTP 200.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "healthy", Kubernetes: "connected"}

	if err := s.manager.PingQuery(r.Context()); err != nil {
		resp = healthResponse{
			Status:     "unhealthy",
			Kubernetes: fmt.Sprintf("error: %s", err),
		}
	}

	s.writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleReadyz(w http.ResponseWriter, _ *http.Request) {
	select {
	case <-s.ready:
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusServiceUnavailable)
	}
}

func (s *Server) handleCreateServer(w http.ResponseWriter, r *http.Request) {
	var req createServerRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, r, http.StatusBadRequest, errorResponse{
			Detail: fmt.Sprintf("invalid request body: %s", err),
		})

		return
	}

	if req.PodName == "" || req.PVCName == "" || req.ServerTapKey == "" {
		s.writeJSON(w, r, http.StatusBadRequest, errorResponse{
			Detail: "pod_name, pvc_name and servertap_key are required",
		})

		return
	}

	result, err := s.manager.CreateServerCommand(r.Context(), manager.CreateServerParams{
		PodName:         req.PodName,
		PVCName:         req.PVCName,
		ServerTapKey:    req.ServerTapKey,
		MemoryLimit:     req.MemoryLimit,
		MemoryRequest:   req.MemoryRequest,
		CPULimit:        req.CPULimit,
		CPURequest:      req.CPURequest,
		StorageCapacity: req.StorageCapacity,
	})
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	s.writeJSON(w, r, http.StatusOK, createServerResponse{
		Status:  "success",
		PodName: result.PodName,
		PVCName: result.PVCName,
		GameURL: result.GameURL,
		APIURL:  result.APIURL,
		Volume:  string(result.VolumeOutcome),
	})
}

func (s *Server) handleDeleteServer(w http.ResponseWriter, r *http.Request) {
	podName := chi.URLParam(r, "pod_name")
	pvcName := chi.URLParam(r, "pvc_name")

	pod, pvc, err := s.manager.DeleteServerCommand(r.Context(), podName, pvcName)
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	s.writeJSON(w, r, http.StatusOK, cleanedResponse{
		Status:  "cleaned",
		PodName: pod,
		PVCName: pvc,
	})
}

func (s *Server) handlePauseServer(w http.ResponseWriter, r *http.Request) {
	podName := chi.URLParam(r, "pod_name")

	pod, err := s.manager.PauseServerCommand(r.Context(), podName)
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	s.writeJSON(w, r, http.StatusOK, pausedResponse{
		Status:  "success",
		Message: fmt.Sprintf("Server %s resources cleaned up (paused).", pod),
		PodName: pod,
	})
}

func (s *Server) handleServerStatus(w http.ResponseWriter, r *http.Request) {
	podName := chi.URLParam(r, "pod_name")

	status, err := s.manager.ServerStatusQuery(r.Context(), podName)
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	s.writeJSON(w, r, http.StatusOK, serverStatusResponse{
		PodName:     status.PodName,
		Phase:       status.Phase,
		Ready:       status.Ready,
		MemoryUsage: status.MemoryUsage,
		CPUUsage:    status.CPUUsage,
	})
}

func (s *Server) handleListVolumes(w http.ResponseWriter, r *http.Request) {
	volumes, err := s.manager.ListVolumesQuery(r.Context())
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	out := make([]volumeResponse, 0, len(volumes))
	for _, v := range volumes {
		out = append(out, volumeResponse{
			Name:              v.Name,
			Namespace:         v.Namespace,
			CreationTimestamp: v.CreationTimestamp,
			Status:            v.Status,
			Capacity:          v.Capacity,
		})
	}

	s.writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleDeleteVolume(w http.ResponseWriter, r *http.Request) {
	pvcName := chi.URLParam(r, "pvc_name")

	pvc, err := s.manager.DeleteVolumeCommand(r.Context(), pvcName)
	if err != nil {
		s.writeError(w, r, err)

		return
	}

	s.writeJSON(w, r, http.StatusOK, volumeDeletedResponse{
		Status:  "persistent_data_deleted",
		PVCName: pvc,
	})
}

// writeError maps logic errors to the documented status codes: validation
// failures become 400, unknown servers 404, everything else collapses to the
// blanket 500 with a detail message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	switch {
	case errors.Is(err, manager.ErrInvalidName):
		s.writeJSON(w, r, http.StatusBadRequest, errorResponse{Detail: err.Error()})
	case errors.Is(err, manager.ErrServerNotFound):
		s.writeJSON(w, r, http.StatusNotFound, errorResponse{Detail: err.Error()})
	default:
		s.logger.ErrorContext(ctx, "request failed",
			"traceID", middleware.GetReqID(ctx),
			"path", r.URL.Path,
			"reason", err,
		)
		s.writeJSON(w, r, http.StatusInternalServerError, errorResponse{Detail: err.Error()})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.ErrorContext(r.Context(), "failed to encode response",
			"error", err,
		)
	}
}
