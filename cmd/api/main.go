package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/stockcore/internal/bootstrap"
	"github.com/xiebiao/stockcore/internal/infrastructure/config"
	"github.com/xiebiao/stockcore/internal/interface/http/router"
)

// @title           Stockcore API
// @version         1.0
// @description     门店库存核心: 流水、快照、预占、批次、采购收货、ASN暂存
// @BasePath        /
func main() {
	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 2. 日志
	logger, err := bootstrap.NewLogger(cfg)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	// 3. 组装依赖
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("初始化失败", zap.Error(err))
	}
	defer app.Close()

	// 4. 定时任务
	jobs, err := app.Scheduler()
	if err != nil {
		logger.Fatal("注册定时任务失败", zap.Error(err))
	}
	jobs.Start()

	// 5. HTTP服务
	engine := router.New(app.Handlers(), router.Options{
		Mode:          cfg.Server.Mode,
		EnableSwagger: cfg.Server.Mode != "release",
	}, logger)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("服务启动", zap.String("addr", srv.Addr), zap.String("mode", cfg.Server.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP服务异常退出", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("收到退出信号,开始优雅关闭")

	// 6. 先停止接收请求,再等待定时任务结束
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP服务关闭超时", zap.Error(err))
	}
	if err := jobs.Stop(shutdownCtx); err != nil {
		logger.Warn("定时任务关闭超时", zap.Error(err))
	}
	logger.Info("服务已停止")
}
