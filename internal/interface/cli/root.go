// Package cli stockctl运维命令
//
// 与HTTP服务共用bootstrap组装逻辑,每条命令独立打开/关闭数据库连接
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xiebiao/stockcore/internal/bootstrap"
	"github.com/xiebiao/stockcore/internal/infrastructure/config"
)

type rootOptions struct {
	configDir string
}

// NewRootCommand 创建命令树
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "stockctl",
		Short:         "库存核心运维工具",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configDir, "config", "./config", "配置文件所在目录")

	root.AddCommand(
		newReceiveCommand(opts),
		newStageCommand(opts),
		newPromoteCommand(opts),
		newImportCommand(opts),
		newDiscardCommand(opts),
		newSweepCommand(opts),
		newReconcileCommand(opts),
		newRebuildCommand(opts),
		newEventsCommand(opts),
	)
	return root
}

// Execute 执行命令行
func Execute(ctx context.Context, args []string) error {
	root := NewRootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func (o *rootOptions) load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadFrom(o.configDir)
	if err != nil {
		return nil, nil, err
	}
	log, err := bootstrap.NewLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// withApp 组装应用后执行fn,结束时关闭连接
func (o *rootOptions) withApp(cmd *cobra.Command, fn func(ctx context.Context, app *bootstrap.App) error) error {
	cfg, log, err := o.load()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("初始化失败: %w", err)
	}
	defer app.Close()

	return fn(ctx, app)
}
