package k8s

import (
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"

	"github.com/msdca/minecraft-k8s-manager/internal/logic/manager"
)

const (
	gamePort      = 25565
	serverTapPort = 4567

	storageClassManual = "manual"

	runAsUser  = 1000
	runAsGroup = 1000

	jobTTLSeconds   = 60
	jobBackoffLimit = 3
)

func (a *adapter) buildPV(pvcName, capacity string) *corev1.PersistentVolume {
	return &corev1.PersistentVolume{
		ObjectMeta: metav1.ObjectMeta{
			Name:   manager.PVName(pvcName),
			Labels: map[string]string{"app": pvcName},
		},
		Spec: corev1.PersistentVolumeSpec{
			Capacity: corev1.ResourceList{
				corev1.ResourceStorage: resource.MustParse(capacity),
			},
			VolumeMode:                    ptr.To(corev1.PersistentVolumeFilesystem),
			AccessModes:                   []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
			PersistentVolumeReclaimPolicy: corev1.PersistentVolumeReclaimRetain,
			StorageClassName:              storageClassManual,
			PersistentVolumeSource: corev1.PersistentVolumeSource{
				NFS: &corev1.NFSVolumeSource{
					Server: a.settings.NFSServer,
					Path:   a.nfsPath(pvcName),
				},
			},
		},
	}
}

func (a *adapter) buildPVC(pvcName, capacity string) *corev1.PersistentVolumeClaim {
	return &corev1.PersistentVolumeClaim{
		ObjectMeta: metav1.ObjectMeta{
			Name:      pvcName,
			Namespace: a.settings.Namespace,
			Labels: map[string]string{
				"app":  pvcName,
				"type": "minecraft-storage",
			},
		},
		Spec: corev1.PersistentVolumeClaimSpec{
			StorageClassName: ptr.To(storageClassManual),
			AccessModes:      []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
			Resources: corev1.VolumeResourceRequirements{
				Requests: corev1.ResourceList{
					corev1.ResourceStorage: resource.MustParse(capacity),
				},
			},
			VolumeName: manager.PVName(pvcName),
		},
	}
}

func (a *adapter) buildDeployment(
	podName,
	pvcName string,
	res manager.ServerResources,
) (*appsv1.Deployment, error) {
	limits, requests, err := buildResourceLists(res)
	if err != nil {
		return nil, err
	}

	labels := map[string]string{
		"app":  podName,
		"type": "minecraft-server",
	}

	initSecurityContext := &corev1.SecurityContext{
		RunAsUser:  ptr.To(int64(runAsUser)),
		RunAsGroup: ptr.To(int64(runAsGroup)),
	}

	podSpec := corev1.PodSpec{
		InitContainers: []corev1.Container{
			{
				Name:    "copy-plugins-from-cache",
				Image:   a.settings.BusyboxImage,
				Command: []string{"sh", "-c"},
				Args: []string{
					"set -e; " +
						"mkdir -p /data/plugins; " +
						"cp /plugins-cache/*.jar /data/plugins/ 2>/dev/null || true; " +
						"chmod 644 /data/plugins/*.jar 2>/dev/null || true",
				},
				VolumeMounts: []corev1.VolumeMount{
					{Name: "minecraft-data", MountPath: "/data"},
					{Name: "plugins-cache", MountPath: "/plugins-cache", ReadOnly: true},
				},
				SecurityContext: initSecurityContext,
			},
			{
				Name:    "copy-servertap-config",
				Image:   a.settings.BusyboxImage,
				Command: []string{"sh", "-c"},
				Args: []string{
					"set -e; mkdir -p /data/plugins/ServerTap; " +
						"cp /config/config.yml /data/plugins/ServerTap/config.yml; " +
						"chmod 644 /data/plugins/ServerTap/config.yml",
				},
				VolumeMounts: []corev1.VolumeMount{
					{Name: "minecraft-data", MountPath: "/data"},
					{Name: "servertap-config", MountPath: "/config"},
				},
				SecurityContext: initSecurityContext,
			},
			{
				Name:    "copy-paper-config",
				Image:   a.settings.BusyboxImage,
				Command: []string{"sh", "-c"},
				Args: []string{
					"set -e; mkdir -p /data/config; " +
						"cp /paper-config/paper-global.yml /data/config/paper-global.yml; " +
						"chmod 644 /data/config/paper-global.yml",
				},
				VolumeMounts: []corev1.VolumeMount{
					{Name: "minecraft-data", MountPath: "/data"},
					{Name: "paper-config", MountPath: "/paper-config"},
				},
				SecurityContext: initSecurityContext,
			},
		},
		Containers: []corev1.Container{
			{
				Name:  "minecraft",
				Image: a.settings.MinecraftImage,
				Ports: []corev1.ContainerPort{
					{ContainerPort: gamePort, Name: "minecraft"},
					{ContainerPort: serverTapPort, Name: "servertap"},
				},
				Env: []corev1.EnvVar{
					{Name: "EULA", Value: "TRUE"},
					{Name: "TYPE", Value: "PAPER"},
					{Name: "VERSION", Value: "1.21.1"},
					{Name: "MEMORY", Value: "2G"},
					{Name: "ONLINE_MODE", Value: "FALSE"},
					{Name: "MAX_TICK_TIME", Value: "-1"},
					{Name: "CFG_PAPER_PROXIES_VELOCITY_ENABLED", Value: "true"},
					{Name: "CFG_PAPER_PROXIES_VELOCITY_ONLINE_MODE", Value: "false"},
					{Name: "CFG_PAPER_PROXIES_VELOCITY_SECRET", Value: a.settings.VelocitySecret},
				},
				Resources: corev1.ResourceRequirements{
					Limits:   limits,
					Requests: requests,
				},
				SecurityContext: &corev1.SecurityContext{
					RunAsNonRoot:             ptr.To(true),
					RunAsUser:                ptr.To(int64(runAsUser)),
					RunAsGroup:               ptr.To(int64(runAsGroup)),
					AllowPrivilegeEscalation: ptr.To(false),
				},
				VolumeMounts: []corev1.VolumeMount{
					{Name: "minecraft-data", MountPath: "/data"},
				},
				ReadinessProbe: &corev1.Probe{
					ProbeHandler: corev1.ProbeHandler{
						TCPSocket: &corev1.TCPSocketAction{
							Port: intOrString(gamePort),
						},
					},
					InitialDelaySeconds: 60,
					PeriodSeconds:       5,
					FailureThreshold:    20,
				},
				LivenessProbe: &corev1.Probe{
					ProbeHandler: corev1.ProbeHandler{
						TCPSocket: &corev1.TCPSocketAction{
							Port: intOrString(gamePort),
						},
					},
					InitialDelaySeconds: 180,
					PeriodSeconds:       30,
					FailureThreshold:    3,
				},
			},
		},
		Volumes: []corev1.Volume{
			{
				Name: "minecraft-data",
				VolumeSource: corev1.VolumeSource{
					PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{
						ClaimName: pvcName,
					},
				},
			},
			{
				Name: "plugins-cache",
				VolumeSource: corev1.VolumeSource{
					PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{
						ClaimName: "plugins-cache",
						ReadOnly:  true,
					},
				},
			},
			{
				Name: "servertap-config",
				VolumeSource: corev1.VolumeSource{
					ConfigMap: &corev1.ConfigMapVolumeSource{
						LocalObjectReference: corev1.LocalObjectReference{
							Name: manager.ServerTapConfigName(podName),
						},
					},
				},
			},
			{
				Name: "paper-config",
				VolumeSource: corev1.VolumeSource{
					ConfigMap: &corev1.ConfigMapVolumeSource{
						LocalObjectReference: corev1.LocalObjectReference{
							Name: manager.ProxyConfigMapName,
						},
					},
				},
			},
		},
		SecurityContext: &corev1.PodSecurityContext{
			FSGroup:      ptr.To(int64(runAsGroup)),
			RunAsNonRoot: ptr.To(true),
		},
		RestartPolicy: corev1.RestartPolicyAlways,
	}

	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Name:      podName,
			Namespace: a.settings.Namespace,
			Labels:    labels,
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: ptr.To(int32(1)),
			Selector: &metav1.LabelSelector{MatchLabels: labels},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels},
				Spec:       podSpec,
			},
		},
	}, nil
}

func (a *adapter) buildService(podName string) *corev1.Service {
	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:      manager.ServiceName(podName),
			Namespace: a.settings.Namespace,
			Labels: map[string]string{
				"app":              podName,
				"minecraft-server": "true",
				"subdomain":        podName,
			},
		},
		Spec: corev1.ServiceSpec{
			Selector: map[string]string{"app": podName},
			Type:     corev1.ServiceTypeClusterIP,
			Ports: []corev1.ServicePort{
				{Name: "minecraft", Port: gamePort, TargetPort: intOrString(gamePort)},
				{Name: "api", Port: serverTapPort, TargetPort: intOrString(serverTapPort)},
			},
		},
	}
}

func (a *adapter) buildIngress(podName string) *networkingv1.Ingress {
	serviceName := manager.ServiceName(podName)
	pathTypePrefix := networkingv1.PathTypePrefix

	return &networkingv1.Ingress{
		ObjectMeta: metav1.ObjectMeta{
			Name:      manager.IngressName(podName),
			Namespace: a.settings.Namespace,
			Annotations: map[string]string{
				"nginx.ingress.kubernetes.io/websocket-services": serviceName,
			},
		},
		Spec: networkingv1.IngressSpec{
			IngressClassName: ptr.To("nginx"),
			Rules: []networkingv1.IngressRule{
				{
					Host: fmt.Sprintf("%s-api.%s", podName, a.settings.GameDomain),
					IngressRuleValue: networkingv1.IngressRuleValue{
						HTTP: &networkingv1.HTTPIngressRuleValue{
							Paths: []networkingv1.HTTPIngressPath{
								{
									Path:     "/",
									PathType: &pathTypePrefix,
									Backend: networkingv1.IngressBackend{
										Service: &networkingv1.IngressServiceBackend{
											Name: serviceName,
											Port: networkingv1.ServiceBackendPort{
												Number: serverTapPort,
											},
										},
									},
								},
							},
						},
					},
				},
			},
		},
	}
}

func (a *adapter) buildProvisionJob(pvcName string) *batchv1.Job {
	jobName := manager.ProvisionJobName(pvcName)
	nfsPath := a.nfsPath(pvcName)

	return &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name:      jobName,
			Namespace: a.settings.Namespace,
			Labels:    map[string]string{"type": provisionJobLabel},
		},
		Spec: batchv1.JobSpec{
			TTLSecondsAfterFinished: ptr.To(int32(jobTTLSeconds)),
			BackoffLimit:            ptr.To(int32(jobBackoffLimit)),
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels: map[string]string{"job": jobName},
				},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{
						{
							Name:    "nfs-dir-creator",
							Image:   a.settings.BusyboxImage,
							Command: []string{"sh", "-c"},
							Args: []string{
								fmt.Sprintf(
									"mkdir -p %[1]s && chmod 755 %[1]s && chown %d:%d %[1]s",
									nfsPath, runAsUser, runAsGroup,
								),
							},
							VolumeMounts: []corev1.VolumeMount{
								{Name: "nfs-root", MountPath: a.settings.NFSBasePath},
							},
						},
					},
					Volumes: []corev1.Volume{
						{
							Name: "nfs-root",
							VolumeSource: corev1.VolumeSource{
								NFS: &corev1.NFSVolumeSource{
									Server: a.settings.NFSServer,
									Path:   a.settings.NFSBasePath,
								},
							},
						},
					},
					RestartPolicy: corev1.RestartPolicyNever,
				},
			},
		},
	}
}

func (a *adapter) buildProxyConfigData() map[string]string {
	return map[string]string{
		"paper-global.yml": fmt.Sprintf(
			"proxies:\n"+
				"  velocity:\n"+
				"    enabled: true\n"+
				"    online-mode: false\n"+
				"    secret: '%s'\n",
			a.settings.VelocitySecret,
		),
	}
}

func (a *adapter) buildServerTapConfigMap(podName, apiKey string) *corev1.ConfigMap {
	configYML := fmt.Sprintf(
		"port: %d\n"+
			"debug: false\n"+
			"useKeyAuth: true\n"+
			"key: %s\n"+
			"normalizeMessages: true\n"+
			"tls:\n"+
			"  enabled: false\n"+
			"corsOrigins:\n"+
			"  - \"*\"\n"+
			"websocketConsoleBuffer: 1000\n"+
			"disable-swagger: false\n"+
			"blocked-paths: []\n",
		serverTapPort, apiKey,
	)

	return &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      manager.ServerTapConfigName(podName),
			Namespace: a.settings.Namespace,
		},
		Data: map[string]string{"config.yml": configYML},
	}
}

func (a *adapter) nfsPath(pvcName string) string {
	return a.settings.NFSBasePath + "/" + pvcName
}

func buildResourceLists(res manager.ServerResources) (corev1.ResourceList, corev1.ResourceList, error) {
	quantities := make(map[string]resource.Quantity, 4)

	for name, raw := range map[string]string{
		"memory limit":   res.MemoryLimit,
		"memory request": res.MemoryRequest,
		"cpu limit":      res.CPULimit,
		"cpu request":    res.CPURequest,
	} {
		q, err := resource.ParseQuantity(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("parse %s %q: %w", name, raw, err)
		}

		quantities[name] = q
	}

	limits := corev1.ResourceList{
		corev1.ResourceMemory: quantities["memory limit"],
		corev1.ResourceCPU:    quantities["cpu limit"],
	}
	requests := corev1.ResourceList{
		corev1.ResourceMemory: quantities["memory request"],
		corev1.ResourceCPU:    quantities["cpu request"],
	}

	return limits, requests, nil
}
