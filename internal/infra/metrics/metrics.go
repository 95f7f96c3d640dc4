package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var serversCreatedTotal = promauto.With(prometheus.DefaultRegisterer).NewCounterVec(
	prometheus.CounterOpts{
		Name: "mcmanager_servers_created_total",
		Help: "Total number of successful server creations, by volume outcome (created or reused).",
	},
	[]string{"volume_outcome"},
)

var serversDeletedTotal = promauto.With(prometheus.DefaultRegisterer).NewCounter(
	prometheus.CounterOpts{
		Name: "mcmanager_servers_deleted_total",
		Help: "Total number of full server teardowns, persistent data included.",
	},
)

var serversPausedTotal = promauto.With(prometheus.DefaultRegisterer).NewCounter(
	prometheus.CounterOpts{
		Name: "mcmanager_servers_paused_total",
		Help: "Total number of server pauses (ephemeral resources deleted, data preserved).",
	},
)

var pvcReusedTotal = promauto.With(prometheus.DefaultRegisterer).NewCounter(
	prometheus.CounterOpts{
		Name: "mcmanager_pvc_reused_total",
		Help: "Total number of creates that reused an existing claim instead of provisioning.",
	},
)

var volumesDeletedTotal = promauto.With(prometheus.DefaultRegisterer).NewCounter(
	prometheus.CounterOpts{
		Name: "mcmanager_volumes_deleted_total",
		Help: "Total number of PV/PVC pairs deleted (irreversible data loss).",
	},
)

var jobsSweptTotal = promauto.With(prometheus.DefaultRegisterer).NewCounter(
	prometheus.CounterOpts{
		Name: "mcmanager_provision_jobs_swept_total",
		Help: "Total number of finished volume provisioning jobs deleted by the sweeper.",
	},
)

var clusterErrorsTotal = promauto.With(prometheus.DefaultRegisterer).NewCounterVec(
	prometheus.CounterOpts{
		Name: "mcmanager_cluster_errors_total",
		Help: "Total number of unexpected cluster API errors, by operation.",
	},
	[]string{"operation"},
)

// RecordServerCreated increments the creation counter for the given volume
// outcome ("created" or "reused").
func RecordServerCreated(volumeOutcome string) {
	serversCreatedTotal.WithLabelValues(volumeOutcome).Inc()
}

func RecordServerDeleted() {
	serversDeletedTotal.Inc()
}

func RecordServerPaused() {
	serversPausedTotal.Inc()
}

func RecordPVCReused() {
	pvcReusedTotal.Inc()
}

func RecordVolumeDeleted() {
	volumesDeletedTotal.Inc()
}

func RecordJobsSwept(count int) {
	jobsSweptTotal.Add(float64(count))
}

// RecordClusterError increments the error counter for an adapter operation.
func RecordClusterError(operation string) {
	clusterErrorsTotal.WithLabelValues(operation).Inc()
}
