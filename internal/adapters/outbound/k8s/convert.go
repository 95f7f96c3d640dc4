package k8s

import (
	"time"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	metricsv1beta1 "k8s.io/metrics/pkg/apis/metrics/v1beta1"

	"github.com/msdca/minecraft-k8s-manager/internal/logic/manager"
)

const capacityUnknown = "N/A"

func toManagedVolume(pvc *corev1.PersistentVolumeClaim) manager.ManagedVolume {
	out := manager.ManagedVolume{
		Name:              pvc.Name,
		Namespace:         pvc.Namespace,
		CreationTimestamp: pvc.CreationTimestamp.Time,
		Status:            string(pvc.Status.Phase),
		Capacity:          capacityUnknown,
	}

	if storage, ok := pvc.Status.Capacity[corev1.ResourceStorage]; ok {
		out.Capacity = storage.String()
	}

	return out
}

func toServerStatus(podName string, pod *corev1.Pod) *manager.ServerStatus {
	ready := false

	for i := range pod.Status.Conditions {
		if pod.Status.Conditions[i].Type == corev1.PodReady {
			ready = pod.Status.Conditions[i].Status == corev1.ConditionTrue

			break
		}
	}

	return &manager.ServerStatus{
		PodName: podName,
		Phase:   string(pod.Status.Phase),
		Ready:   ready,
	}
}

func toPodUsage(podMetrics *metricsv1beta1.PodMetrics) *manager.PodUsage {
	memory := podMetrics.Containers[0].Usage.Memory().DeepCopy()
	cpu := podMetrics.Containers[0].Usage.Cpu().DeepCopy()

	for i := 1; i < len(podMetrics.Containers); i++ {
		memory.Add(*podMetrics.Containers[i].Usage.Memory())
		cpu.Add(*podMetrics.Containers[i].Usage.Cpu())
	}

	return &manager.PodUsage{
		Memory: memory.String(),
		CPU:    cpu.String(),
	}
}

// jobFinishedAt reports whether the job reached a terminal condition and when.
func jobFinishedAt(job *batchv1.Job) (time.Time, bool) {
	if job.Status.CompletionTime != nil {
		return job.Status.CompletionTime.Time, true
	}

	for i := range job.Status.Conditions {
		cond := &job.Status.Conditions[i]
		if cond.Status != corev1.ConditionTrue {
			continue
		}

		if cond.Type == batchv1.JobComplete || cond.Type == batchv1.JobFailed {
			return cond.LastTransitionTime.Time, true
		}
	}

	return time.Time{}, false
}
