package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xiebiao/stockcore/internal/domain/asn"
	"github.com/xiebiao/stockcore/internal/domain/purchase"
	apperrors "github.com/xiebiao/stockcore/pkg/errors"
)

func TestIntake_Run(t *testing.T) {
	f := newFixture(t)
	intake := NewIntake(f.promoter, f.receiver, zap.NewNop())
	ctx := context.Background()

	t.Run("暂存、生成采购单、收货一次完成", func(t *testing.T) {
		res, err := intake.Run(ctx, PromoteRequest{SessionID: "S-1"}, []*asn.StagedLine{stagedLine("A", 10), stagedLine("B", 4)})
		require.NoError(t, err)
		assert.Equal(t, 2, res.Staged)
		require.NotNil(t, res.Order)
		assert.Equal(t, purchase.StatusReceived, res.Order.Status)
		assert.Equal(t, int64(10), f.snapshot(t, 7, "A").OnHand)
		assert.Equal(t, int64(0), countRows(t, f.db, "asn_staging_lines"))
	})

	t.Run("生成采购单失败时丢弃暂存行", func(t *testing.T) {
		bad := stagedLine("C", 1)
		bad.ShipmentID = "SHP-OTHER"
		_, err := intake.Run(ctx, PromoteRequest{SessionID: "S-2"}, []*asn.StagedLine{stagedLine("A", 1), bad})
		require.Error(t, err)
		assert.True(t, errors.Is(err, asn.ErrStagingInconsistent), "got %v", err)
		assert.Equal(t, int64(0), countRows(t, f.db, "asn_staging_lines"), "补偿后无暂存行")

		// 修正后可以用同一会话重新导入
		res, err := intake.Run(ctx, PromoteRequest{SessionID: "S-2", PONumber: "PO-S2"}, []*asn.StagedLine{stagedLine("C", 1)})
		require.NoError(t, err)
		assert.Equal(t, "PO-S2", res.Order.PONumber)
		assert.Equal(t, int64(1), f.snapshot(t, 7, "C").OnHand)
	})

	t.Run("会话已有暂存行时拒绝", func(t *testing.T) {
		_, err := f.promoter.Stage(ctx, "S-3", []*asn.StagedLine{stagedLine("D", 2)})
		require.NoError(t, err)

		_, err = intake.Run(ctx, PromoteRequest{SessionID: "S-3"}, []*asn.StagedLine{stagedLine("E", 1)})
		assert.True(t, errors.Is(err, apperrors.ErrInvalidParams))

		lines, err := f.promoter.Lines(ctx, "S-3")
		require.NoError(t, err)
		assert.Len(t, lines, 1, "原有暂存行保留")
	})
}

func TestASNPromoter_Discard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.promoter.Stage(ctx, "S-1", []*asn.StagedLine{stagedLine("A", 1), stagedLine("B", 2)})
	require.NoError(t, err)

	n, err := f.promoter.Discard(ctx, "S-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = f.promoter.Discard(ctx, "S-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n, "重复丢弃是空操作")

	_, err = f.promoter.Discard(ctx, " ")
	assert.True(t, errors.Is(err, asn.ErrInvalidStagedLine))
}
