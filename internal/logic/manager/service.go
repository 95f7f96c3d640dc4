package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/msdca/minecraft-k8s-manager/internal/infra/metrics"
)

// Defaults holds the resource sizing applied when a create request omits
// the corresponding fields.
type Defaults struct {
	MemoryLimit     string
	MemoryRequest   string
	CPULimit        string
	CPURequest      string
	StorageCapacity string
}

type Service struct {
	logger     *slog.Logger
	repo       Repository
	gameDomain string
	defaults   Defaults
	jobMaxAge  time.Duration
}

// New creates a new server manager service.
func New(
	logger *slog.Logger,
	repo Repository,
	gameDomain string,
	defaults Defaults,
	jobMaxAge time.Duration,
) *Service {
	return &Service{
		logger:     logger,
		repo:       repo,
		gameDomain: gameDomain,
		defaults:   defaults,
		jobMaxAge:  jobMaxAge,
	}
}

// CreateServerCommand ensures a running server identified by the normalized
// pod name, backed by the named claim. An existing claim is reused and its
// data is never touched. Re-running the command for the same names converges
// on a single resource set.
func (s *Service) CreateServerCommand(
	ctx context.Context,
	params CreateServerParams,
) (*CreateServerResult, error) {
	podName, err := NormalizeName(params.PodName)
	if err != nil {
		return nil, fmt.Errorf("normalize pod name: %w", err)
	}

	pvcName, err := NormalizeName(params.PVCName)
	if err != nil {
		return nil, fmt.Errorf("normalize pvc name: %w", err)
	}

	logger := s.logger.With("pod", podName, "pvc", pvcName)
	logger.InfoContext(ctx, "creating server")

	res := s.resolveResources(params)

	capacity := params.StorageCapacity
	if capacity == "" {
		capacity = s.defaults.StorageCapacity
	}

	// Converge on a single ephemeral set per pod name.
	if err := s.deleteEphemeral(ctx, logger, podName); err != nil {
		return nil, fmt.Errorf("%w: cleanup existing resources: %w", ErrCreateServer, err)
	}

	outcome, err := s.ensureStorage(ctx, logger, pvcName, capacity)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreateServer, err)
	}

	err = s.createEphemeral(ctx, podName, pvcName, params.ServerTapKey, res)
	if err != nil {
		// Partially created compute resources are rolled back; the claim and
		// its data are always preserved.
		s.rollbackEphemeral(ctx, logger, podName)

		return nil, fmt.Errorf("%w: %w", ErrCreateServer, err)
	}

	metrics.RecordServerCreated(string(outcome))
	logger.InfoContext(ctx, "server created", "volumeOutcome", string(outcome))

	return &CreateServerResult{
		PodName:       podName,
		PVCName:       pvcName,
		GameURL:       fmt.Sprintf("%s.%s", podName, s.gameDomain),
		APIURL:        fmt.Sprintf("http://%s-api.%s", podName, s.gameDomain),
		VolumeOutcome: outcome,
	}, nil
}

// DeleteServerCommand removes the full resource set for the given
// identifiers, persistent data included. Missing resources are not an error.
func (s *Service) DeleteServerCommand(
	ctx context.Context,
	podName,
	pvcName string,
) (string, string, error) {
	pod, err := NormalizeName(podName)
	if err != nil {
		return "", "", fmt.Errorf("normalize pod name: %w", err)
	}

	pvc, err := NormalizeName(pvcName)
	if err != nil {
		return "", "", fmt.Errorf("normalize pvc name: %w", err)
	}

	logger := s.logger.With("pod", pod, "pvc", pvc)
	logger.InfoContext(ctx, "deleting server and persistent data")

	if err := s.deleteEphemeral(ctx, logger, pod); err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrDeleteServer, err)
	}

	if err := s.deleteStorage(ctx, pvc); err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrDeleteServer, err)
	}

	metrics.RecordServerDeleted()
	logger.InfoContext(ctx, "server deleted")

	return pod, pvc, nil
}

// PauseServerCommand deletes the ephemeral resource set only, preserving the
// claim so the server can be recreated later on the same data.
func (s *Service) PauseServerCommand(ctx context.Context, podName string) (string, error) {
	pod, err := NormalizeName(podName)
	if err != nil {
		return "", fmt.Errorf("normalize pod name: %w", err)
	}

	logger := s.logger.With("pod", pod)
	logger.InfoContext(ctx, "pausing server")

	if err := s.deleteEphemeral(ctx, logger, pod); err != nil {
		return "", fmt.Errorf("%w: %w", ErrPauseServer, err)
	}

	metrics.RecordServerPaused()

	return pod, nil
}

// DeleteVolumeCommand removes the PV/PVC pair only. Any pod referencing the
// claim is left dangling on purpose; that is operator responsibility.
func (s *Service) DeleteVolumeCommand(ctx context.Context, pvcName string) (string, error) {
	pvc, err := NormalizeName(pvcName)
	if err != nil {
		return "", fmt.Errorf("normalize pvc name: %w", err)
	}

	s.logger.InfoContext(ctx, "deleting persistent data", "pvc", pvc)

	if err := s.deleteStorage(ctx, pvc); err != nil {
		return "", fmt.Errorf("%w: %w", ErrDeleteVolume, err)
	}

	return pvc, nil
}

// ListVolumesQuery lists every managed storage claim from live cluster state.
func (s *Service) ListVolumesQuery(ctx context.Context) ([]ManagedVolume, error) {
	volumes, err := s.repo.ListStoragePVCsQuery(ctx, StorageLabelSelector)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrListVolumes, err)
	}

	return volumes, nil
}

// ServerStatusQuery reports the workload phase, readiness and live usage for
// a managed server. Usage falls back to "unknown" when the metrics API has
// nothing for the pod.
func (s *Service) ServerStatusQuery(ctx context.Context, podName string) (*ServerStatus, error) {
	pod, err := NormalizeName(podName)
	if err != nil {
		return nil, fmt.Errorf("normalize pod name: %w", err)
	}

	status, err := s.repo.ServerStatusQuery(ctx, pod)
	if err != nil {
		var target notFound
		if errors.As(err, &target) {
			return nil, fmt.Errorf("%w: %w", ErrServerStatus, ErrServerNotFound)
		}

		return nil, fmt.Errorf("%w: %w", ErrServerStatus, err)
	}

	status.MemoryUsage = usageUnknown
	status.CPUUsage = usageUnknown

	usage, err := s.repo.PodUsageQuery(ctx, pod)
	if err != nil {
		s.logger.DebugContext(ctx, "pod usage unavailable", "pod", pod, "reason", err)

		return status, nil
	}

	status.MemoryUsage = usage.Memory
	status.CPUUsage = usage.CPU

	return status, nil
}

// PingQuery probes connectivity to the cluster control plane.
func (s *Service) PingQuery(ctx context.Context) error {
	return s.repo.PingQuery(ctx)
}

func (s *Service) resolveResources(params CreateServerParams) ServerResources {
	res := ServerResources{
		MemoryLimit:   params.MemoryLimit,
		MemoryRequest: params.MemoryRequest,
		CPULimit:      params.CPULimit,
		CPURequest:    params.CPURequest,
	}

	if res.MemoryLimit == "" {
		res.MemoryLimit = s.defaults.MemoryLimit
	}

	if res.MemoryRequest == "" {
		res.MemoryRequest = s.defaults.MemoryRequest
	}

	if res.CPULimit == "" {
		res.CPULimit = s.defaults.CPULimit
	}

	if res.CPURequest == "" {
		res.CPURequest = s.defaults.CPURequest
	}

	return res
}

// ensureStorage reuses an existing claim or provisions a new PV/PVC pair.
func (s *Service) ensureStorage(
	ctx context.Context,
	logger *slog.Logger,
	pvcName,
	capacity string,
) (VolumeOutcome, error) {
	exists, err := s.repo.PVCExistsQuery(ctx, pvcName)
	if err != nil {
		return "", fmt.Errorf("check pvc: %w", err)
	}

	if exists {
		logger.InfoContext(ctx, "reusing existing pvc")
		metrics.RecordPVCReused()

		return VolumeReused, nil
	}

	if err := s.repo.ProvisionVolumeDirCommand(ctx, pvcName); err != nil {
		return "", fmt.Errorf("provision volume dir: %w", err)
	}

	if err := absorbExisting(s.repo.CreatePVCommand(ctx, pvcName, capacity)); err != nil {
		return "", fmt.Errorf("create pv: %w", err)
	}

	if err := absorbExisting(s.repo.CreatePVCCommand(ctx, pvcName, capacity)); err != nil {
		return "", fmt.Errorf("create pvc: %w", err)
	}

	if err := s.repo.WaitPVCBoundCommand(ctx, pvcName); err != nil {
		return "", fmt.Errorf("wait pvc bound: %w", err)
	}

	return VolumeCreated, nil
}

func (s *Service) createEphemeral(
	ctx context.Context,
	podName,
	pvcName,
	serverTapKey string,
	res ServerResources,
) error {
	if err := s.repo.UpsertProxyConfigCommand(ctx); err != nil {
		return fmt.Errorf("upsert proxy config: %w", err)
	}

	err := absorbExisting(s.repo.CreateServerTapConfigCommand(ctx, podName, serverTapKey))
	if err != nil {
		return fmt.Errorf("create servertap config: %w", err)
	}

	if err := absorbExisting(s.repo.CreateDeploymentCommand(ctx, podName, pvcName, res)); err != nil {
		return fmt.Errorf("create deployment: %w", err)
	}

	if err := absorbExisting(s.repo.CreateServiceCommand(ctx, podName)); err != nil {
		return fmt.Errorf("create service: %w", err)
	}

	if err := absorbExisting(s.repo.CreateIngressCommand(ctx, podName)); err != nil {
		return fmt.Errorf("create ingress: %w", err)
	}

	return nil
}

// deleteEphemeral removes the compute and networking resources of a server.
// The shared proxy config and the PV/PVC pair are never touched here.
func (s *Service) deleteEphemeral(
	ctx context.Context,
	logger *slog.Logger,
	podName string,
) error {
	steps := []struct {
		kind string
		name string
		fn   func(context.Context, string) error
	}{
		{"deployment", podName, s.repo.DeleteDeploymentCommand},
		{"service", podName, s.repo.DeleteServiceCommand},
		{"ingress", podName, s.repo.DeleteIngressCommand},
		{"configmap", ServerTapConfigName(podName), s.repo.DeleteConfigMapCommand},
	}

	for _, step := range steps {
		if err := absorbMissing(step.fn(ctx, step.name)); err != nil {
			return fmt.Errorf("delete %s %s: %w", step.kind, step.name, err)
		}

		logger.DebugContext(ctx, "resource delete requested", "kind", step.kind, "name", step.name)
	}

	return nil
}

func (s *Service) deleteStorage(ctx context.Context, pvcName string) error {
	if err := absorbMissing(s.repo.DeletePVCCommand(ctx, pvcName)); err != nil {
		return fmt.Errorf("delete pvc %s: %w", pvcName, err)
	}

	if err := absorbMissing(s.repo.DeletePVCommand(ctx, pvcName)); err != nil {
		return fmt.Errorf("delete pv %s: %w", PVName(pvcName), err)
	}

	metrics.RecordVolumeDeleted()

	return nil
}

// rollbackEphemeral is a best-effort cleanup after a failed create. Errors
// are logged, not propagated; the original failure is what the caller sees.
func (s *Service) rollbackEphemeral(ctx context.Context, logger *slog.Logger, podName string) {
	logger.WarnContext(ctx, "create failed, rolling back ephemeral resources")

	if err := s.deleteEphemeral(ctx, logger, podName); err != nil {
		logger.ErrorContext(ctx, "rollback incomplete", "reason", err)
	}
}

// absorbMissing treats "not found" as success for idempotent deletes.
func absorbMissing(err error) error {
	var target notFound
	if err == nil || errors.As(err, &target) {
		return nil
	}

	return err
}

// absorbExisting treats "already exists" as success for idempotent creates.
func absorbExisting(err error) error {
	var target alreadyExists
	if err == nil || errors.As(err, &target) {
		return nil
	}

	return err
}
