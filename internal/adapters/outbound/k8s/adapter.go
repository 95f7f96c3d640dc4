package k8s

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/kubernetes"
	metricsv "k8s.io/metrics/pkg/client/clientset/versioned"

	"github.com/msdca/minecraft-k8s-manager/internal/infra/metrics"
	"github.com/msdca/minecraft-k8s-manager/internal/logic/manager"
)

const (
	provisionJobLabel         = "volume-provision"
	provisionJobLabelSelector = "type=" + provisionJobLabel

	pvcPollInterval = 2 * time.Second
	jobPollInterval = 2 * time.Second
)

// Settings carries the immutable cluster-facing configuration of the adapter.
type Settings struct {
	Namespace      string
	GameDomain     string
	NFSServer      string
	NFSBasePath    string
	MinecraftImage string
	BusyboxImage   string
	VelocitySecret string
	ClusterTimeout time.Duration
	PVCBindTimeout time.Duration
}

type adapter struct {
	logger           *slog.Logger
	clientset        kubernetes.Interface
	metricsClientset metricsv.Interface
	settings         Settings
}

// New creates a new cluster adapter implementing the manager Repository port.
func New(
	logger *slog.Logger,
	clientset kubernetes.Interface,
	metricsClientset metricsv.Interface,
	settings Settings,
) manager.Repository {
	return &adapter{
		logger:           logger,
		clientset:        clientset,
		metricsClientset: metricsClientset,
		settings:         settings,
	}
}

var _ manager.Repository = (*adapter)(nil)

// callCtx bounds a single cluster API call.
func (a *adapter) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.settings.ClusterTimeout)
}

// wrapErr maps cluster API errors to the marker error types understood by
// the logic layer and counts everything else as an unexpected cluster error.
func wrapErr(op string, err error) error {
	switch {
	case apierrors.IsNotFound(err):
		return fmt.Errorf("%s: %w", op, errNotFound)
	case apierrors.IsAlreadyExists(err):
		return fmt.Errorf("%s: %w", op, errAlreadyExists)
	}

	metrics.RecordClusterError(op)

	return fmt.Errorf("%s: %w", op, err)
}

func (a *adapter) PingQuery(ctx context.Context) error {
	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	_, err := a.clientset.CoreV1().Pods(a.settings.Namespace).List(
		ctx,
		metav1.ListOptions{Limit: 1},
	)
	if err != nil {
		return fmt.Errorf("list pods: %w", err)
	}

	return nil
}

func (a *adapter) PVCExistsQuery(ctx context.Context, name string) (bool, error) {
	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	_, err := a.clientset.CoreV1().PersistentVolumeClaims(a.settings.Namespace).Get(
		ctx,
		name,
		metav1.GetOptions{},
	)
	if err != nil {
		if apierrors.IsNotFound(err) {
			return false, nil
		}

		return false, wrapErr("get pvc", err)
	}

	return true, nil
}

func (a *adapter) ListStoragePVCsQuery(
	ctx context.Context,
	labelSelector string,
) ([]manager.ManagedVolume, error) {
	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	pvcList, err := a.clientset.CoreV1().PersistentVolumeClaims(a.settings.Namespace).List(
		ctx,
		metav1.ListOptions{LabelSelector: labelSelector},
	)
	if err != nil {
		return nil, wrapErr("list pvcs", err)
	}

	volumes := make([]manager.ManagedVolume, 0, len(pvcList.Items))
	for i := range pvcList.Items {
		volumes = append(volumes, toManagedVolume(&pvcList.Items[i]))
	}

	return volumes, nil
}

func (a *adapter) ServerStatusQuery(
	ctx context.Context,
	podName string,
) (*manager.ServerStatus, error) {
	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	podList, err := a.clientset.CoreV1().Pods(a.settings.Namespace).List(
		ctx,
		metav1.ListOptions{LabelSelector: "app=" + podName},
	)
	if err != nil {
		return nil, wrapErr("list server pods", err)
	}

	if len(podList.Items) == 0 {
		return nil, fmt.Errorf("list server pods: %w", errNotFound)
	}

	return toServerStatus(podName, &podList.Items[0]), nil
}

func (a *adapter) PodUsageQuery(ctx context.Context, podName string) (*manager.PodUsage, error) {
	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	metricsList, err := a.metricsClientset.MetricsV1beta1().PodMetricses(a.settings.Namespace).List(
		ctx,
		metav1.ListOptions{LabelSelector: "app=" + podName},
	)
	if err != nil {
		return nil, wrapErr("list pod metrics", err)
	}

	if len(metricsList.Items) == 0 || len(metricsList.Items[0].Containers) == 0 {
		return nil, fmt.Errorf("list pod metrics: %w", errNotFound)
	}

	return toPodUsage(&metricsList.Items[0]), nil
}

func (a *adapter) UpsertProxyConfigCommand(ctx context.Context) error {
	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	configMaps := a.clientset.CoreV1().ConfigMaps(a.settings.Namespace)
	data := a.buildProxyConfigData()

	existing, err := configMaps.Get(ctx, manager.ProxyConfigMapName, metav1.GetOptions{})
	if err == nil {
		existing.Data = data

		if _, err := configMaps.Update(ctx, existing, metav1.UpdateOptions{}); err != nil {
			return wrapErr("update proxy configmap", err)
		}

		return nil
	}

	if !apierrors.IsNotFound(err) {
		return wrapErr("get proxy configmap", err)
	}

	cm := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      manager.ProxyConfigMapName,
			Namespace: a.settings.Namespace,
		},
		Data: data,
	}

	if _, err := configMaps.Create(ctx, cm, metav1.CreateOptions{}); err != nil {
		return wrapErr("create proxy configmap", err)
	}

	return nil
}

func (a *adapter) CreateServerTapConfigCommand(ctx context.Context, podName, apiKey string) error {
	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	cm := a.buildServerTapConfigMap(podName, apiKey)

	_, err := a.clientset.CoreV1().ConfigMaps(a.settings.Namespace).Create(
		ctx,
		cm,
		metav1.CreateOptions{},
	)
	if err != nil {
		return wrapErr("create servertap configmap", err)
	}

	return nil
}

// ProvisionVolumeDirCommand runs a job that creates the per-volume NFS
// directory and waits for it to finish. A leftover job with the same name is
// replaced first.
func (a *adapter) ProvisionVolumeDirCommand(ctx context.Context, pvcName string) error {
	jobName := manager.ProvisionJobName(pvcName)

	if err := a.DeleteJobCommand(ctx, jobName); err != nil && !isNotFoundErr(err) {
		return fmt.Errorf("replace provision job: %w", err)
	}

	createCtx, cancel := a.callCtx(ctx)
	defer cancel()

	_, err := a.clientset.BatchV1().Jobs(a.settings.Namespace).Create(
		createCtx,
		a.buildProvisionJob(pvcName),
		metav1.CreateOptions{},
	)
	if err != nil && !apierrors.IsAlreadyExists(err) {
		return wrapErr("create provision job", err)
	}

	return a.waitJobDone(ctx, jobName)
}

func (a *adapter) waitJobDone(ctx context.Context, jobName string) error {
	err := wait.PollUntilContextTimeout(
		ctx,
		jobPollInterval,
		a.settings.PVCBindTimeout,
		true,
		func(ctx context.Context) (bool, error) {
			job, err := a.clientset.BatchV1().Jobs(a.settings.Namespace).Get(
				ctx,
				jobName,
				metav1.GetOptions{},
			)
			if err != nil {
				if apierrors.IsNotFound(err) {
					return false, nil
				}

				return false, err
			}

			if job.Status.Succeeded > 0 {
				return true, nil
			}

			if job.Status.Failed >= jobBackoffLimit {
				return false, fmt.Errorf("provision job %s failed", jobName)
			}

			return false, nil
		},
	)
	if err != nil {
		return fmt.Errorf("wait provision job %s: %w", jobName, err)
	}

	return nil
}

func (a *adapter) CreatePVCommand(ctx context.Context, pvcName, capacity string) error {
	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	_, err := a.clientset.CoreV1().PersistentVolumes().Create(
		ctx,
		a.buildPV(pvcName, capacity),
		metav1.CreateOptions{},
	)
	if err != nil {
		return wrapErr("create pv", err)
	}

	return nil
}

func (a *adapter) CreatePVCCommand(ctx context.Context, pvcName, capacity string) error {
	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	_, err := a.clientset.CoreV1().PersistentVolumeClaims(a.settings.Namespace).Create(
		ctx,
		a.buildPVC(pvcName, capacity),
		metav1.CreateOptions{},
	)
	if err != nil {
		return wrapErr("create pvc", err)
	}

	return nil
}

// WaitPVCBoundCommand polls the claim until it reaches Bound. NotFound while
// polling is tolerated: the claim may still be settling in the API server.
func (a *adapter) WaitPVCBoundCommand(ctx context.Context, pvcName string) error {
	err := wait.PollUntilContextTimeout(
		ctx,
		pvcPollInterval,
		a.settings.PVCBindTimeout,
		true,
		func(ctx context.Context) (bool, error) {
			pvc, err := a.clientset.CoreV1().PersistentVolumeClaims(a.settings.Namespace).Get(
				ctx,
				pvcName,
				metav1.GetOptions{},
			)
			if err != nil {
				if apierrors.IsNotFound(err) {
					return false, nil
				}

				return false, err
			}

			return pvc.Status.Phase == corev1.ClaimBound, nil
		},
	)
	if err != nil {
		return fmt.Errorf("wait pvc %s bound: %w", pvcName, err)
	}

	return nil
}

func (a *adapter) CreateDeploymentCommand(
	ctx context.Context,
	podName,
	pvcName string,
	res manager.ServerResources,
) error {
	deployment, err := a.buildDeployment(podName, pvcName, res)
	if err != nil {
		return fmt.Errorf("build deployment: %w", err)
	}

	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	_, err = a.clientset.AppsV1().Deployments(a.settings.Namespace).Create(
		ctx,
		deployment,
		metav1.CreateOptions{},
	)
	if err != nil {
		return wrapErr("create deployment", err)
	}

	return nil
}

func (a *adapter) CreateServiceCommand(ctx context.Context, podName string) error {
	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	_, err := a.clientset.CoreV1().Services(a.settings.Namespace).Create(
		ctx,
		a.buildService(podName),
		metav1.CreateOptions{},
	)
	if err != nil {
		return wrapErr("create service", err)
	}

	return nil
}

func (a *adapter) CreateIngressCommand(ctx context.Context, podName string) error {
	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	_, err := a.clientset.NetworkingV1().Ingresses(a.settings.Namespace).Create(
		ctx,
		a.buildIngress(podName),
		metav1.CreateOptions{},
	)
	if err != nil {
		return wrapErr("create ingress", err)
	}

	return nil
}

func (a *adapter) DeleteDeploymentCommand(ctx context.Context, podName string) error {
	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	err := a.clientset.AppsV1().Deployments(a.settings.Namespace).Delete(
		ctx,
		podName,
		metav1.DeleteOptions{},
	)
	if err != nil {
		return wrapErr("delete deployment", err)
	}

	return nil
}

func (a *adapter) DeleteServiceCommand(ctx context.Context, podName string) error {
	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	err := a.clientset.CoreV1().Services(a.settings.Namespace).Delete(
		ctx,
		manager.ServiceName(podName),
		metav1.DeleteOptions{},
	)
	if err != nil {
		return wrapErr("delete service", err)
	}

	return nil
}

func (a *adapter) DeleteIngressCommand(ctx context.Context, podName string) error {
	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	err := a.clientset.NetworkingV1().Ingresses(a.settings.Namespace).Delete(
		ctx,
		manager.IngressName(podName),
		metav1.DeleteOptions{},
	)
	if err != nil {
		return wrapErr("delete ingress", err)
	}

	return nil
}

func (a *adapter) DeleteConfigMapCommand(ctx context.Context, name string) error {
	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	err := a.clientset.CoreV1().ConfigMaps(a.settings.Namespace).Delete(
		ctx,
		name,
		metav1.DeleteOptions{},
	)
	if err != nil {
		return wrapErr("delete configmap", err)
	}

	return nil
}

func (a *adapter) DeletePVCCommand(ctx context.Context, pvcName string) error {
	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	err := a.clientset.CoreV1().PersistentVolumeClaims(a.settings.Namespace).Delete(
		ctx,
		pvcName,
		metav1.DeleteOptions{},
	)
	if err != nil {
		return wrapErr("delete pvc", err)
	}

	return nil
}

func (a *adapter) DeletePVCommand(ctx context.Context, pvcName string) error {
	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	err := a.clientset.CoreV1().PersistentVolumes().Delete(
		ctx,
		manager.PVName(pvcName),
		metav1.DeleteOptions{},
	)
	if err != nil {
		return wrapErr("delete pv", err)
	}

	return nil
}

func (a *adapter) ListFinishedJobsQuery(
	ctx context.Context,
	prefix string,
	olderThan time.Duration,
) ([]string, error) {
	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	jobList, err := a.clientset.BatchV1().Jobs(a.settings.Namespace).List(
		ctx,
		metav1.ListOptions{LabelSelector: provisionJobLabelSelector},
	)
	if err != nil {
		return nil, wrapErr("list jobs", err)
	}

	cutoff := time.Now().Add(-olderThan)
	names := make([]string, 0, len(jobList.Items))

	for i := range jobList.Items {
		job := &jobList.Items[i]

		if len(job.Name) < len(prefix) || job.Name[:len(prefix)] != prefix {
			continue
		}

		finishedAt, finished := jobFinishedAt(job)
		if !finished || finishedAt.After(cutoff) {
			continue
		}

		names = append(names, job.Name)
	}

	return names, nil
}

func (a *adapter) DeleteJobCommand(ctx context.Context, name string) error {
	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	propagation := metav1.DeletePropagationBackground

	err := a.clientset.BatchV1().Jobs(a.settings.Namespace).Delete(
		ctx,
		name,
		metav1.DeleteOptions{PropagationPolicy: &propagation},
	)
	if err != nil {
		return wrapErr("delete job", err)
	}

	return nil
}

func intOrString(port int) intstr.IntOrString {
	return intstr.FromInt32(int32(port))
}

func isNotFoundErr(err error) bool {
	var target *NotFoundError

	return errors.As(err, &target)
}
