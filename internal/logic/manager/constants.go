package manager

const (
	// StorageLabelSelector filters the PVCs this service manages.
	StorageLabelSelector = "type=minecraft-storage"

	// ProxyConfigMapName is the shared Velocity proxy config. It is upserted
	// on every create and never deleted per-server.
	ProxyConfigMapName = "paper-global-config"

	// ProvisionJobPrefix names the NFS directory provisioning jobs swept by
	// the background sweeper.
	ProvisionJobPrefix = "create-nfs-dir-"

	usageUnknown = "unknown"
)
