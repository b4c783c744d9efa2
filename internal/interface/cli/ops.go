package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xiebiao/stockcore/internal/bootstrap"
	"github.com/xiebiao/stockcore/internal/infrastructure/messaging"
	apperrors "github.com/xiebiao/stockcore/pkg/errors"
)

func newSweepCommand(opts *rootOptions) *cobra.Command {
	var batch int
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "立即释放过期预占",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				if batch <= 0 {
					batch = app.Config.Inventory.SweepBatch
				}
				n, err := app.Reservations.ExpireStale(ctx, batch)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "已释放 %d 条过期预占\n", n)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&batch, "batch", 0, "最多处理条数,默认取配置 inventory.sweep_batch")
	return cmd
}

func newReconcileCommand(opts *rootOptions) *cobra.Command {
	var (
		storeID uint
		repair  bool
	)
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "快照与流水对账",
		Long:  "列出在手数量与流水合计、预占数量与持有中预占合计不一致的SKU;--repair按流水重建这些快照",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				rows, err := app.Reporter.Reconciliation(ctx, storeID)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(rows) == 0 {
					fmt.Fprintln(out, "快照与流水一致")
					return nil
				}
				for _, row := range rows {
					fmt.Fprintf(out, "store=%d sku=%s on_hand=%d ledger=%d reserved=%d held=%d\n",
						row.StoreID, row.SKU, row.OnHand, row.LedgerOnHand, row.Reserved, row.HeldReserved)
					if !repair {
						continue
					}
					if _, err := app.Snapshots.Rebuild(ctx, row.StoreID, row.SKU); err != nil {
						return err
					}
				}
				if repair {
					fmt.Fprintf(out, "已重建 %d 个快照\n", len(rows))
				}
				return nil
			})
		},
	}
	cmd.Flags().UintVar(&storeID, "store", 0, "只检查指定门店")
	cmd.Flags().BoolVar(&repair, "repair", false, "按流水重建漂移的快照")
	return cmd
}

func newRebuildCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild <store_id> <sku>",
		Short: "按流水重建单个快照",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			storeID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil || storeID == 0 {
				return apperrors.WithDetail(apperrors.ErrInvalidParams, "门店ID无效 %q", args[0])
			}
			return opts.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				res, err := app.Snapshots.Rebuild(ctx, uint(storeID), args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "store=%d sku=%s on_hand %d→%d reserved %d→%d drifted=%t\n",
					storeID, args[1],
					res.OnHandBefore, res.Snapshot.OnHand,
					res.ReservedBefore, res.Snapshot.Reserved,
					res.Drifted())
				return nil
			})
		},
	}
}

func newEventsCommand(opts *rootOptions) *cobra.Command {
	var (
		queue string
		keys  []string
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "订阅并打印库存领域事件",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			if !cfg.MQ.Enabled {
				return apperrors.WithDetail(apperrors.ErrMessagingError, "未启用mq")
			}
			log.Info("开始订阅库存事件", zap.String("queue", queue), zap.Strings("routing_keys", keys))
			return messaging.Tail(cmd.Context(), cfg, queue, keys, messaging.EventLogHandler(log), log)
		},
	}
	cmd.Flags().StringVar(&queue, "queue", "stockctl.events", "订阅使用的队列名")
	cmd.Flags().StringSliceVar(&keys, "key", nil, "路由键,默认订阅全部库存事件")
	return cmd
}
