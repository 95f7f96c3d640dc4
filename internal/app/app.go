package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	metricsv "k8s.io/metrics/pkg/client/clientset/versioned"

	"github.com/msdca/minecraft-k8s-manager/internal/adapters/outbound/k8s"
	"github.com/msdca/minecraft-k8s-manager/internal/config"
	"github.com/msdca/minecraft-k8s-manager/internal/httpserver"
	"github.com/msdca/minecraft-k8s-manager/internal/infra/cronparser"
	"github.com/msdca/minecraft-k8s-manager/internal/infra/shutdown"
	"github.com/msdca/minecraft-k8s-manager/internal/logic/manager"
)

type App struct {
	logger        *slog.Logger
	cfg           *config.Config
	manager       *manager.Service
	sweeper       *manager.Sweeper
	httpServer    *httpserver.Server
	metricsServer *httpserver.MetricsServer
	signalHandler *shutdown.Handler
}

// New creates a new application instance with all dependencies wired.
func New(logger *slog.Logger, cfg *config.Config, signals <-chan os.Signal) (*App, error) {
	kubeConfig, err := buildKubeConfig(logger, cfg)
	if err != nil {
		return nil, fmt.Errorf("build k8s config: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(kubeConfig)
	if err != nil {
		return nil, fmt.Errorf("create clientset: %w", err)
	}

	metricsClientset, err := metricsv.NewForConfig(kubeConfig)
	if err != nil {
		return nil, fmt.Errorf("create metrics clientset: %w", err)
	}

	k8sRepo := k8s.New(logger, clientset, metricsClientset, k8s.Settings{
		Namespace:      cfg.Namespace,
		GameDomain:     cfg.GameDomain,
		NFSServer:      cfg.NFSServer,
		NFSBasePath:    cfg.NFSBasePath,
		MinecraftImage: cfg.MinecraftImage,
		BusyboxImage:   cfg.BusyboxImage,
		VelocitySecret: cfg.VelocitySecret,
		ClusterTimeout: cfg.ClusterTimeout,
		PVCBindTimeout: cfg.PVCBindTimeout,
	})

	managerService := manager.New(
		logger,
		k8sRepo,
		cfg.GameDomain,
		manager.Defaults{
			MemoryLimit:     cfg.DefaultMemoryLimit,
			MemoryRequest:   cfg.DefaultMemoryRequest,
			CPULimit:        cfg.DefaultCPULimit,
			CPURequest:      cfg.DefaultCPURequest,
			StorageCapacity: cfg.DefaultStorageCapacity,
		},
		cfg.JobSweepMaxAge,
	)

	sweeper := manager.NewSweeper(
		logger,
		k8sRepo,
		cronparser.New(),
		cfg.JobSweepSchedule,
		cfg.JobSweepMaxAge,
	)

	return &App{
		logger:        logger,
		cfg:           cfg,
		manager:       managerService,
		sweeper:       sweeper,
		httpServer:    httpserver.New(logger, managerService, cfg.APIKey, cfg.HTTPPort),
		metricsServer: httpserver.NewMetricsServer(logger, cfg.MetricsPort),
		signalHandler: shutdown.New(logger, signals),
	}, nil
}

// Run starts all components and blocks until a termination signal arrives,
// then shuts them down gracefully in reverse start order.
func (a *App) Run(originCtx context.Context) error {
	ctx, cancel := context.WithCancel(originCtx)
	defer cancel()

	go a.signalHandler.HandleSignals(ctx, cancel)

	a.logger.InfoContext(ctx, "starting minecraft k8s manager",
		"namespace", a.cfg.Namespace,
		"gameDomain", a.cfg.GameDomain,
	)

	if err := a.metricsServer.Start(ctx); err != nil {
		return fmt.Errorf("start metrics server: %w", err)
	}

	if err := a.httpServer.Start(ctx); err != nil {
		return fmt.Errorf("start http server: %w", err)
	}

	if err := a.sweeper.Start(ctx); err != nil {
		return fmt.Errorf("start sweeper: %w", err)
	}

	ready := allChannelsClose(ctx, a.logger,
		a.metricsServer.Ready(),
		a.httpServer.Ready(),
		a.sweeper.Ready(),
	)

	select {
	case <-ready:
		a.logger.InfoContext(ctx, "all components ready")
	case <-ctx.Done():
	}

	// Startup probe: log cluster connectivity, do not fail on it. The
	// /health endpoint keeps reporting live state either way.
	if err := a.manager.PingQuery(ctx); err != nil {
		a.logger.WarnContext(ctx, "kubernetes connection check failed", "reason", err)
	} else {
		a.logger.InfoContext(ctx, "kubernetes connection check passed")
	}

	<-ctx.Done()

	return shutdown.GracefulShutdown(ctx, a.logger, []shutdown.Shutdowner{
		a.metricsServer,
		a.httpServer,
		a.sweeper,
	})
}

// buildKubeConfig prefers the in-cluster config and falls back to the
// configured kubeconfig/master for local runs.
func buildKubeConfig(logger *slog.Logger, cfg *config.Config) (*rest.Config, error) {
	kubeConfig, err := rest.InClusterConfig()
	if err == nil {
		logger.Info("using in-cluster kubernetes config")

		return kubeConfig, nil
	}

	kubeConfig, err = clientcmd.BuildConfigFromFlags(cfg.KubeMaster, cfg.KubeConfig)
	if err != nil {
		return nil, fmt.Errorf("build config from flags: %w", err)
	}

	logger.Info("using local kubeconfig", "path", cfg.KubeConfig)

	return kubeConfig, nil
}

// allChannelsClose returns a channel that closes when every input channel
// has closed, or the context is cancelled.
func allChannelsClose(
	ctx context.Context,
	logger *slog.Logger,
	chans ...<-chan struct{},
) <-chan struct{} {
	out := make(chan struct{})

	var wg sync.WaitGroup

	for _, ch := range chans {
		wg.Add(1)

		go func(c <-chan struct{}) {
			defer wg.Done()

			select {
			case <-c:
			case <-ctx.Done():
				logger.DebugContext(ctx, "context done before channel closed")
			}
		}(ch)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}
