package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/xiebiao/stockcore/internal/application/inventory"
	"github.com/xiebiao/stockcore/internal/bootstrap"
	"github.com/xiebiao/stockcore/internal/domain/purchase"
	apperrors "github.com/xiebiao/stockcore/pkg/errors"
)

func newReceiveCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "receive <purchase_order_id>",
		Short: "采购单整单收货",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil || id == 0 {
				return apperrors.WithDetail(apperrors.ErrInvalidParams, "采购单ID无效 %q", args[0])
			}
			return opts.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				o, err := app.Receiver.Receive(ctx, uint(id))
				if err != nil {
					return err
				}
				printOrder(cmd, o)
				return nil
			})
		},
	}
}

func newStageCommand(opts *rootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "stage <session_id>",
		Short: "从CSV导入ASN暂存行",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("打开CSV失败: %w", err)
			}
			defer f.Close()

			lines, err := ReadStagedLines(f, args[0])
			if err != nil {
				return err
			}
			return opts.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				n, err := app.Promoter.Stage(ctx, args[0], lines)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "会话 %s 已导入 %d 行\n", args[0], n)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "ASN CSV文件")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newPromoteCommand(opts *rootOptions) *cobra.Command {
	var req inventory.PromoteRequest
	cmd := &cobra.Command{
		Use:   "promote <session_id>",
		Short: "ASN暂存会话生成采购单",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.SessionID = args[0]
			return opts.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				res, err := app.Promoter.Promote(ctx, req)
				if err != nil {
					return err
				}
				if res.Repaired {
					fmt.Fprintln(cmd.OutOrStdout(), "采购单此前已生成,本次只清理了暂存行")
				}
				printOrder(cmd, res.Order)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&req.PONumber, "po-number", "", "采购单号,默认 ASN-<会话ID>")
	cmd.Flags().StringVar(&req.SupplierID, "supplier", "", "供应商,默认取暂存行的供应商编码")
	return cmd
}

func printOrder(cmd *cobra.Command, o *purchase.Order) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "采购单 %s id=%d store=%d status=%s items=%d total=%s\n",
		o.PONumber, o.ID, o.StoreID, string(o.Status), len(o.Items), o.TotalValue.StringFixed(2))
	for _, item := range o.Items {
		fmt.Fprintf(out, "  %s qty=%d lot=%s\n", item.SKU, item.ReceivedQuantity(), item.LotNumber)
	}
}

func newImportCommand(opts *rootOptions) *cobra.Command {
	var (
		file string
		req  inventory.PromoteRequest
	)
	cmd := &cobra.Command{
		Use:   "import <session_id>",
		Short: "ASN一键入库: 导入CSV、生成采购单并收货",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("打开CSV失败: %w", err)
			}
			defer f.Close()

			lines, err := ReadStagedLines(f, args[0])
			if err != nil {
				return err
			}
			req.SessionID = args[0]
			return opts.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				res, err := app.Intake.Run(ctx, req, lines)
				if err != nil {
					if res != nil && res.Order != nil {
						fmt.Fprintf(cmd.OutOrStdout(), "采购单 %s 已生成但未收货,可执行 receive %d 重试\n", res.Order.PONumber, res.Order.ID)
					}
					return err
				}
				printOrder(cmd, res.Order)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "ASN CSV文件")
	cmd.Flags().StringVar(&req.PONumber, "po-number", "", "采购单号,默认 ASN-<会话ID>")
	cmd.Flags().StringVar(&req.SupplierID, "supplier", "", "供应商,默认取暂存行的供应商编码")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newDiscardCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "discard <session_id>",
		Short: "丢弃ASN会话的暂存行",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, app *bootstrap.App) error {
				n, err := app.Promoter.Discard(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "会话 %s 已丢弃 %d 行\n", args[0], n)
				return nil
			})
		},
	}
}
