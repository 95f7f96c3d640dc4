package config

import (
	"errors"
	"fmt"
	"os"
	"time"
)

var (
	ErrAPIKeyRequired         = errors.New("MCM_API_KEY must be set")
	ErrVelocitySecretRequired = errors.New("MCM_VELOCITY_SECRET must be set")
	ErrNFSServerRequired      = errors.New("MCM_NFS_SERVER must be set")
)

type Config struct {
	HTTPPort    string
	MetricsPort string
	LogLevel    string
	LogFormat   string

	APIKey string

	Namespace      string
	GameDomain     string
	NFSServer      string
	NFSBasePath    string
	MinecraftImage string
	BusyboxImage   string
	VelocitySecret string

	DefaultMemoryLimit     string
	DefaultMemoryRequest   string
	DefaultCPULimit        string
	DefaultCPURequest      string
	DefaultStorageCapacity string

	ClusterTimeout   time.Duration
	PVCBindTimeout   time.Duration
	JobSweepSchedule string
	JobSweepMaxAge   time.Duration

	KubeConfig string
	KubeMaster string
}

func Load() (*Config, error) {
	cfg := &Config{
		HTTPPort:    getEnvOrDefault(envKeyHTTPPort, "8080"),
		MetricsPort: getEnvOrDefault(envKeyMetricsPort, "9090"),
		LogLevel:    getEnvOrDefault(envKeyLogLevel, "info"),
		LogFormat:   getEnvOrDefault(envKeyLogFormat, "json"),

		APIKey: os.Getenv(envKeyAPIKey),

		Namespace:      getEnvOrDefault(envKeyNamespace, "minecraft-servers"),
		GameDomain:     getEnvOrDefault(envKeyGameDomain, "mc.msdca.shop"),
		NFSServer:      os.Getenv(envKeyNFSServer),
		NFSBasePath:    getEnvOrDefault(envKeyNFSBasePath, "/mnt/nfs-minecraft"),
		MinecraftImage: getEnvOrDefault(envKeyMinecraftImage, "itzg/minecraft-server:latest"),
		BusyboxImage:   getEnvOrDefault(envKeyBusyboxImage, "busybox:1.35"),
		VelocitySecret: os.Getenv(envKeyVelocitySecret),

		DefaultMemoryLimit:     getEnvOrDefault(envKeyDefaultMemoryLimit, "4Gi"),
		DefaultMemoryRequest:   getEnvOrDefault(envKeyDefaultMemoryRequest, "2Gi"),
		DefaultCPULimit:        getEnvOrDefault(envKeyDefaultCPULimit, "2"),
		DefaultCPURequest:      getEnvOrDefault(envKeyDefaultCPURequest, "1"),
		DefaultStorageCapacity: getEnvOrDefault(envKeyDefaultStorageCapacity, "10Gi"),

		JobSweepSchedule: getEnvOrSet(envKeyJobSweepSchedule, "*/30 * * * *"),

		KubeConfig: getEnvOrFallback(envKeyKubeConfig, envKeyKubeConfigFallback),
		KubeMaster: getEnvOrFallback(envKeyKubeMaster, envKeyKubeMasterFallback),
	}

	if cfg.APIKey == "" {
		return nil, ErrAPIKeyRequired
	}

	if cfg.VelocitySecret == "" {
		return nil, ErrVelocitySecretRequired
	}

	if cfg.NFSServer == "" {
		return nil, ErrNFSServerRequired
	}

	var err error

	cfg.ClusterTimeout, err = getDurationOrDefault(
		envKeyClusterTimeout, 10*time.Second, envMinClusterTimeout)
	if err != nil {
		return nil, err
	}

	cfg.PVCBindTimeout, err = getDurationOrDefault(
		envKeyPVCBindTimeout, 60*time.Second, envMinPVCBindTimeout)
	if err != nil {
		return nil, err
	}

	cfg.JobSweepMaxAge, err = getDurationOrDefault(
		envKeyJobSweepMaxAge, time.Hour, envMinJobSweepMaxAge)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	return value
}

// getEnvOrSet keeps an explicitly set empty value, so setting the key to ""
// differs from leaving it unset.
func getEnvOrSet(key, defaultValue string) string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}

	return value
}

func getEnvOrFallback(key, fallbackKey string) string {
	value := os.Getenv(key)
	if value == "" {
		return os.Getenv(fallbackKey)
	}

	return value
}

func getDurationOrDefault(key string, defaultValue, minValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}

	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}

	if value < minValue {
		return 0, fmt.Errorf("parse %s: value %s below minimum %s", key, value, minValue)
	}

	return value, nil
}
