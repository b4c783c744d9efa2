//go:build wireinject
// +build wireinject

// Wire依赖注入配置
//
// main.go 目前手工调用 bootstrap 组装依赖;这里声明同样的依赖链,
// 运行 `wire gen ./cmd/api` 可生成 wire_gen.go 替代手工组装

package main

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/xiebiao/stockcore/internal/bootstrap"
	"github.com/xiebiao/stockcore/internal/infrastructure/config"
	"github.com/xiebiao/stockcore/internal/interface/http/router"
)

// infrastructureSet 配置、日志、外部连接和应用服务
var infrastructureSet = wire.NewSet(
	config.Load,
	bootstrap.NewLogger,
	provideApp,
)

// httpSet 处理器与路由
var httpSet = wire.NewSet(
	provideHandlers,
	provideRouterOptions,
	router.New,
)

// provideApp 组装应用,cleanup关闭数据库/Redis/RabbitMQ连接
func provideApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*bootstrap.App, func(), error) {
	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return app, app.Close, nil
}

func provideHandlers(app *bootstrap.App) router.Handlers {
	return app.Handlers()
}

func provideRouterOptions(cfg *config.Config) router.Options {
	return router.Options{
		Mode:          cfg.Server.Mode,
		EnableSwagger: cfg.Server.Mode != "release",
	}
}

// InitializeApp 初始化整个应用
// 返回配置好的Gin引擎和资源清理函数
func InitializeApp(ctx context.Context) (*gin.Engine, func(), error) {
	wire.Build(
		infrastructureSet,
		httpSet,
	)
	return nil, nil, nil
}
