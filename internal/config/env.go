package config

import "time"

// Env key constants. All service configuration env vars use the MCM_ prefix;
// duration values support explicit units (e.g. 10s, 5m).

// Port for the API HTTP server.
const envKeyHTTPPort = "MCM_HTTP_PORT"

// Port for Prometheus metrics (GET /metrics).
const envKeyMetricsPort = "MCM_METRICS_PORT"

// Log level: debug, info, warn, error.
const envKeyLogLevel = "MCM_LOG_LEVEL"

// Log format: json or text.
const envKeyLogFormat = "MCM_LOG_FORMAT"

// Internal API key expected in the X-API-Key header. Required.
const envKeyAPIKey = "MCM_API_KEY"

// Namespace holding every managed server resource.
const envKeyNamespace = "MCM_NAMESPACE"

// Base game domain; servers get <name>.<domain> and <name>-api.<domain>.
const envKeyGameDomain = "MCM_GAME_DOMAIN"

// NFS server address backing persistent volumes.
const envKeyNFSServer = "MCM_NFS_SERVER"

// NFS export path under which per-server directories are created.
const envKeyNFSBasePath = "MCM_NFS_BASE_PATH"

// Minecraft server container image.
const envKeyMinecraftImage = "MCM_MINECRAFT_IMAGE"

// Busybox image for init containers and provisioning jobs.
const envKeyBusyboxImage = "MCM_BUSYBOX_IMAGE"

// Velocity proxy forwarding secret. Required.
const envKeyVelocitySecret = "MCM_VELOCITY_SECRET"

// Default resource sizing applied when a create request omits fields.
const (
	envKeyDefaultMemoryLimit     = "MCM_DEFAULT_MEMORY_LIMIT"
	envKeyDefaultMemoryRequest   = "MCM_DEFAULT_MEMORY_REQUEST"
	envKeyDefaultCPULimit        = "MCM_DEFAULT_CPU_LIMIT"
	envKeyDefaultCPURequest      = "MCM_DEFAULT_CPU_REQUEST"
	envKeyDefaultStorageCapacity = "MCM_DEFAULT_STORAGE_CAPACITY"
)

// Timeout for a single cluster API call. Units: s, m (e.g. 10s).
const (
	envKeyClusterTimeout = "MCM_CLUSTER_TIMEOUT"
	envMinClusterTimeout = time.Second
)

// Timeout for a freshly created PVC to reach Bound. Units: s, m (e.g. 60s).
const (
	envKeyPVCBindTimeout = "MCM_PVC_BIND_TIMEOUT"
	envMinPVCBindTimeout = 5 * time.Second
)

// Cron schedule for sweeping finished provisioning jobs. Empty disables.
const envKeyJobSweepSchedule = "MCM_JOB_SWEEP_SCHEDULE"

// Minimum age before a finished provisioning job is swept.
const (
	envKeyJobSweepMaxAge = "MCM_JOB_SWEEP_MAX_AGE"
	envMinJobSweepMaxAge = time.Minute
)

// Path to kubeconfig file. If unset, KUBECONFIG is used as fallback; when
// both are empty the in-cluster config is used.
const envKeyKubeConfig = "MCM_KUBECONFIG"

// Kubernetes API server URL. If unset, KUBERNETES_MASTER is used as fallback.
const envKeyKubeMaster = "MCM_KUBE_MASTER"

// Standard k8s env keys used as fallback when MCM_* are unset.
const (
	envKeyKubeConfigFallback = "KUBECONFIG"
	envKeyKubeMasterFallback = "KUBERNETES_MASTER"
)
