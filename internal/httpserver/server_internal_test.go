package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/msdca/minecraft-k8s-manager/internal/logic/manager"
)

// fakeManager implements serverManager, recording calls and returning canned
// results.
type fakeManager struct {
	mu    sync.Mutex
	calls []string

	createResult *manager.CreateServerResult
	createErr    error
	deleteErr    error
	pauseErr     error
	volumeErr    error
	volumes      []manager.ManagedVolume
	listErr      error
	status       *manager.ServerStatus
	statusErr    error
	pingErr      error
}

func (f *fakeManager) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, op)
}

func (f *fakeManager) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, len(f.calls))
	copy(out, f.calls)

	return out
}

func (f *fakeManager) CreateServerCommand(_ context.Context, params manager.CreateServerParams) (*manager.CreateServerResult, error) {
	f.record("create:" + params.PodName)

	if f.createErr != nil {
		return nil, f.createErr
	}

	return f.createResult, nil
}

func (f *fakeManager) DeleteServerCommand(_ context.Context, podName, pvcName string) (string, string, error) {
	f.record("delete:" + podName + ":" + pvcName)

	return podName, pvcName, f.deleteErr
}

func (f *fakeManager) PauseServerCommand(_ context.Context, podName string) (string, error) {
	f.record("pause:" + podName)

	return podName, f.pauseErr
}

func (f *fakeManager) DeleteVolumeCommand(_ context.Context, pvcName string) (string, error) {
	f.record("delete-volume:" + pvcName)

	return pvcName, f.volumeErr
}

func (f *fakeManager) ListVolumesQuery(_ context.Context) ([]manager.ManagedVolume, error) {
	f.record("list-volumes")

	return f.volumes, f.listErr
}

func (f *fakeManager) ServerStatusQuery(_ context.Context, podName string) (*manager.ServerStatus, error) {
	f.record("status:" + podName)

	if f.statusErr != nil {
		return nil, f.statusErr
	}

	return f.status, nil
}

func (f *fakeManager) PingQuery(_ context.Context) error {
	f.record("ping")

	return f.pingErr
}

var _ serverManager = (*fakeManager)(nil)

const testAPIKey = "test-api-key"

func newTestServer(mgr serverManager) *Server {
	return New(slog.Default(), mgr, testAPIKey, "0")
}

func doRequest(t *testing.T, srv *Server, method, path, key, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set(apiKeyHeader, key)
	}

	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)

	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))

	return out
}

func TestServer_Root(t *testing.T) {
	t.Parallel()

	mgr := &fakeManager{}
	rec := doRequest(t, newTestServer(mgr), http.MethodGet, "/", "", "")

	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[rootResponse](t, rec)
	require.Equal(t, "Minecraft K8s Manager API", resp.Message)
	require.Equal(t, apiVersion, resp.Version)
}

func TestServer_Health(t *testing.T) {
	t.Parallel()

	t.Run("healthy", func(t *testing.T) {
		t.Parallel()

		mgr := &fakeManager{}
		rec := doRequest(t, newTestServer(mgr), http.MethodGet, "/health", "", "")

		require.Equal(t, http.StatusOK, rec.Code)

		resp := decodeBody[healthResponse](t, rec)
		require.Equal(t, "healthy", resp.Status)
		require.Equal(t, "connected", resp.Kubernetes)
	})

	t.Run("unhealthy still returns 200", func(t *testing.T) {
		t.Parallel()

		mgr := &fakeManager{pingErr: context.DeadlineExceeded}
		rec := doRequest(t, newTestServer(mgr), http.MethodGet, "/health", "", "")

		require.Equal(t, http.StatusOK, rec.Code)

		resp := decodeBody[healthResponse](t, rec)
		require.Equal(t, "unhealthy", resp.Status)
		require.Contains(t, resp.Kubernetes, "error:")
	})

	t.Run("no api key required", func(t *testing.T) {
		t.Parallel()

		mgr := &fakeManager{}
		rec := doRequest(t, newTestServer(mgr), http.MethodGet, "/health", "", "")

		require.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestServer_APIKeyAuth(t *testing.T) {
	t.Parallel()

	protected := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/k8s/server"},
		{http.MethodPost, "/k8s/server/my-server/pause"},
		{http.MethodGet, "/k8s/server/my-server/status"},
		{http.MethodDelete, "/k8s/server/my-server/my-data"},
		{http.MethodGet, "/k8s/volumes"},
		{http.MethodDelete, "/k8s/volume/my-data"},
	}

	for _, tt := range protected {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			t.Parallel()

			t.Run("missing key", func(t *testing.T) {
				t.Parallel()

				mgr := &fakeManager{}
				rec := doRequest(t, newTestServer(mgr), tt.method, tt.path, "", "")

				require.Equal(t, http.StatusUnauthorized, rec.Code)
				require.Equal(t, "Invalid API Key", decodeBody[errorResponse](t, rec).Detail)
				require.Empty(t, mgr.Calls())
			})

			t.Run("wrong key", func(t *testing.T) {
				t.Parallel()

				mgr := &fakeManager{}
				rec := doRequest(t, newTestServer(mgr), tt.method, tt.path, "wrong", "")

				require.Equal(t, http.StatusUnauthorized, rec.Code)
				require.Empty(t, mgr.Calls())
			})
		})
	}
}

func TestServer_CreateServer(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		mgr := &fakeManager{
			createResult: &manager.CreateServerResult{
				PodName:       "my-server",
				PVCName:       "my-data",
				GameURL:       "my-server.mc.example.com",
				APIURL:        "http://my-server-api.mc.example.com",
				VolumeOutcome: manager.VolumeReused,
			},
		}

		body := `{"pod_name":"My Server","pvc_name":"my-data","servertap_key":"tap-secret"}`
		rec := doRequest(t, newTestServer(mgr), http.MethodPost, "/k8s/server", testAPIKey, body)

		require.Equal(t, http.StatusOK, rec.Code)

		resp := decodeBody[createServerResponse](t, rec)
		require.Equal(t, "success", resp.Status)
		require.Equal(t, "my-server", resp.PodName)
		require.Equal(t, "my-data", resp.PVCName)
		require.Equal(t, "my-server.mc.example.com", resp.GameURL)
		require.Equal(t, string(manager.VolumeReused), resp.Volume)
	})

	t.Run("malformed body", func(t *testing.T) {
		t.Parallel()

		mgr := &fakeManager{}
		rec := doRequest(t, newTestServer(mgr), http.MethodPost, "/k8s/server", testAPIKey, "{not json")

		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Empty(t, mgr.Calls())
	})

	t.Run("missing required fields", func(t *testing.T) {
		t.Parallel()

		mgr := &fakeManager{}
		body := `{"pod_name":"my-server","pvc_name":"my-data"}`
		rec := doRequest(t, newTestServer(mgr), http.MethodPost, "/k8s/server", testAPIKey, body)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, decodeBody[errorResponse](t, rec).Detail, "servertap_key")
		require.Empty(t, mgr.Calls())
	})

	t.Run("invalid name maps to 400", func(t *testing.T) {
		t.Parallel()

		mgr := &fakeManager{createErr: manager.ErrInvalidName}
		body := `{"pod_name":"!!!","pvc_name":"my-data","servertap_key":"tap-secret"}`
		rec := doRequest(t, newTestServer(mgr), http.MethodPost, "/k8s/server", testAPIKey, body)

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("cluster failure maps to 500 with detail", func(t *testing.T) {
		t.Parallel()

		mgr := &fakeManager{createErr: manager.ErrCreateServer}
		body := `{"pod_name":"my-server","pvc_name":"my-data","servertap_key":"tap-secret"}`
		rec := doRequest(t, newTestServer(mgr), http.MethodPost, "/k8s/server", testAPIKey, body)

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		require.NotEmpty(t, decodeBody[errorResponse](t, rec).Detail)
	})
}

func TestServer_DeleteServer(t *testing.T) {
	t.Parallel()

	mgr := &fakeManager{}
	rec := doRequest(t, newTestServer(mgr), http.MethodDelete, "/k8s/server/my-server/my-data", testAPIKey, "")

	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[cleanedResponse](t, rec)
	require.Equal(t, "cleaned", resp.Status)
	require.Equal(t, "my-server", resp.PodName)
	require.Equal(t, "my-data", resp.PVCName)
	require.Equal(t, []string{"delete:my-server:my-data"}, mgr.Calls())
}

func TestServer_PauseServer(t *testing.T) {
	t.Parallel()

	mgr := &fakeManager{}
	rec := doRequest(t, newTestServer(mgr), http.MethodPost, "/k8s/server/my-server/pause", testAPIKey, "")

	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[pausedResponse](t, rec)
	require.Equal(t, "success", resp.Status)
	require.Equal(t, "my-server", resp.PodName)
	require.Contains(t, resp.Message, "paused")
}

func TestServer_ServerStatus(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		mgr := &fakeManager{
			status: &manager.ServerStatus{
				PodName:     "my-server",
				Phase:       "Running",
				Ready:       true,
				MemoryUsage: "512Mi",
				CPUUsage:    "250m",
			},
		}

		rec := doRequest(t, newTestServer(mgr), http.MethodGet, "/k8s/server/my-server/status", testAPIKey, "")

		require.Equal(t, http.StatusOK, rec.Code)

		resp := decodeBody[serverStatusResponse](t, rec)
		require.Equal(t, "Running", resp.Phase)
		require.True(t, resp.Ready)
		require.Equal(t, "512Mi", resp.MemoryUsage)
	})

	t.Run("unknown server maps to 404", func(t *testing.T) {
		t.Parallel()

		mgr := &fakeManager{statusErr: manager.ErrServerNotFound}
		rec := doRequest(t, newTestServer(mgr), http.MethodGet, "/k8s/server/gone/status", testAPIKey, "")

		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestServer_ListVolumes(t *testing.T) {
	t.Parallel()

	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	mgr := &fakeManager{
		volumes: []manager.ManagedVolume{
			{
				Name:              "my-data",
				Namespace:         "minecraft-servers",
				CreationTimestamp: created,
				Status:            "Bound",
				Capacity:          "10Gi",
			},
		},
	}

	rec := doRequest(t, newTestServer(mgr), http.MethodGet, "/k8s/volumes", testAPIKey, "")

	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[[]volumeResponse](t, rec)
	require.Len(t, resp, 1)
	require.Equal(t, "my-data", resp[0].Name)
	require.Equal(t, "Bound", resp[0].Status)
	require.True(t, created.Equal(resp[0].CreationTimestamp))
}

func TestServer_DeleteVolume(t *testing.T) {
	t.Parallel()

	mgr := &fakeManager{}
	rec := doRequest(t, newTestServer(mgr), http.MethodDelete, "/k8s/volume/my-data", testAPIKey, "")

	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[volumeDeletedResponse](t, rec)
	require.Equal(t, "persistent_data_deleted", resp.Status)
	require.Equal(t, "my-data", resp.PVCName)
	require.Equal(t, []string{"delete-volume:my-data"}, mgr.Calls())
}

func TestServer_Lifecycle(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&fakeManager{})

	require.Equal(t, "http-server", srv.Name())

	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()

	require.NoError(t, srv.Start(ctx))

	select {
	case <-srv.Ready():
	case <-time.After(time.Second):
		t.Fatal("server did not become ready")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer shutdownCancel()

	require.NoError(t, srv.Shutdown(shutdownCtx))
}
