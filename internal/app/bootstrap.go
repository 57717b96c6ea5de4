package app

import (
	"errors"
	"fmt"

	"github.com/craftkart/api/internal/config"
	"github.com/craftkart/api/internal/logger"
	"github.com/craftkart/api/internal/provider"
	"github.com/craftkart/api/internal/router"
	"github.com/craftkart/api/internal/worker"
)

// BuildRunner 按启动模式装配 HTTP 与 Worker 服务
// all 模式下队列未启用时跳过 Worker，只有显式 worker 模式才视为错误。
func BuildRunner(cfg *config.Config, mode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	container := provider.NewContainer(cfg)

	var services []Service
	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		addr := cfg.Server.Host + ":" + cfg.Server.Port
		services = append(services, NewHTTPService(addr, engine))
	}
	switch {
	case mode == ModeWorker && !cfg.Queue.Enabled:
		return nil, errors.New("worker mode requires queue.enabled")
	case (mode == ModeAll || mode == ModeWorker) && cfg.Queue.Enabled:
		consumer := worker.NewConsumer(container)
		workerService, err := worker.NewService(&cfg.Queue, consumer)
		if err != nil {
			return nil, err
		}
		services = append(services, workerService)
	case mode == ModeAll:
		logger.Warnw("queue_disabled_worker_skipped")
	}

	if len(services) == 0 {
		return nil, fmt.Errorf("no services initialized for mode %q", mode)
	}
	return NewRunner(services...), nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}

	addr := opts.Config.Server.Host + ":" + opts.Config.Server.Port
	opts.Logger.Infow("app_start", "addr", addr, "mode", opts.Mode)
	return RunWithOptions(runner, opts)
}
