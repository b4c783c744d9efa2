package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xiebiao/stockcore/internal/infrastructure/config"
	"github.com/xiebiao/stockcore/internal/infrastructure/persistence/mysql"
	apperrors "github.com/xiebiao/stockcore/pkg/errors"
)

func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	content := fmt.Sprintf(`
database:
  driver: sqlite
  path: %s
log:
  level: error
  format: console
  output: stderr
`, filepath.Join(dir, "cli.db"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o600))
	return dir
}

func run(dir string, args ...string) (string, error) {
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", dir}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestStageAndReceive(t *testing.T) {
	dir := setup(t)
	csvFile := filepath.Join(dir, "asn.csv")
	require.NoError(t, os.WriteFile(csvFile, []byte(
		"ship_to_store_id,shipment_id,vendor_code,sku,quantity,unit_cost,lot_number\n"+
			"7,SHP-1,V01,A,10,1.50,L-1\n"+
			"7,SHP-1,V01,B,4,2.25,L-2\n"), 0o600))

	out, err := run(dir, "stage", "S-1", "--file", csvFile)
	require.NoError(t, err)
	assert.Contains(t, out, "已导入 2 行")

	out, err = run(dir, "promote", "S-1")
	require.NoError(t, err)
	assert.Contains(t, out, "采购单 ASN-S-1 id=1 store=7 status=pending items=2 total=24.00")

	t.Run("已提升的会话不能再导入", func(t *testing.T) {
		_, err := run(dir, "stage", "S-1", "--file", csvFile)
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeStagingInconsistent, apperrors.GetAppError(err).Code)
	})

	out, err = run(dir, "receive", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "status=received")
	assert.Contains(t, out, "A qty=10 lot=L-1")

	t.Run("重复收货不再入库", func(t *testing.T) {
		out, err := run(dir, "receive", "1")
		require.NoError(t, err)
		assert.Contains(t, out, "status=received")
	})

	out, err = run(dir, "reconcile")
	require.NoError(t, err)
	assert.Contains(t, out, "快照与流水一致")
}

func TestReconcileRepair(t *testing.T) {
	dir := setup(t)
	csvFile := filepath.Join(dir, "asn.csv")
	require.NoError(t, os.WriteFile(csvFile, []byte(
		"ship_to_store_id,vendor_code,sku,quantity\n3,V01,A,5\n"), 0o600))
	for _, args := range [][]string{
		{"stage", "S-2", "-f", csvFile},
		{"promote", "S-2", "--po-number", "PO-2"},
		{"receive", "1"},
	} {
		_, err := run(dir, args...)
		require.NoError(t, err, "%v", args)
	}

	// 人为制造漂移
	cfg, err := config.LoadFrom(dir)
	require.NoError(t, err)
	db, err := mysql.NewDB(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, db.Exec("UPDATE stock_snapshots SET on_hand = ? WHERE store_id = ? AND sku = ?", 99, 3, "A").Error)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	out, err := run(dir, "reconcile", "--store", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "store=3 sku=A on_hand=99 ledger=5")

	out, err = run(dir, "reconcile", "--repair")
	require.NoError(t, err)
	assert.Contains(t, out, "已重建 1 个快照")

	out, err = run(dir, "rebuild", "3", "A")
	require.NoError(t, err)
	assert.Contains(t, out, "on_hand 5→5")
	assert.Contains(t, out, "drifted=false")
}

func TestImportAndDiscard(t *testing.T) {
	dir := setup(t)
	good := filepath.Join(dir, "good.csv")
	require.NoError(t, os.WriteFile(good, []byte(
		"ship_to_store_id,shipment_id,vendor_code,sku,quantity,unit_cost\n"+
			"5,SHP-1,V01,A,6,2\n"), 0o600))
	bad := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte(
		"ship_to_store_id,shipment_id,vendor_code,sku,quantity\n"+
			"5,SHP-1,V01,A,6\n"+
			"5,SHP-2,V01,B,1\n"), 0o600))

	_, err := run(dir, "import", "S-9", "-f", bad)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeStagingInconsistent, apperrors.GetAppError(err).Code)

	out, err := run(dir, "import", "S-9", "-f", good, "--po-number", "PO-9")
	require.NoError(t, err, "失败的导入已回滚暂存行")
	assert.Contains(t, out, "采购单 PO-9 id=1 store=5 status=received items=1 total=12.00")

	_, err = run(dir, "stage", "S-10", "-f", good)
	require.NoError(t, err)
	out, err = run(dir, "discard", "S-10")
	require.NoError(t, err)
	assert.Contains(t, out, "已丢弃 1 行")
}

func TestCommandErrors(t *testing.T) {
	dir := setup(t)

	t.Run("采购单ID无效", func(t *testing.T) {
		_, err := run(dir, "receive", "abc")
		assert.True(t, errors.Is(err, apperrors.ErrInvalidParams))
	})

	t.Run("门店ID无效", func(t *testing.T) {
		_, err := run(dir, "rebuild", "0", "A")
		assert.True(t, errors.Is(err, apperrors.ErrInvalidParams))
	})

	t.Run("缺少CSV文件参数", func(t *testing.T) {
		_, err := run(dir, "stage", "S-1")
		assert.Error(t, err)
	})

	t.Run("未启用mq时不能订阅事件", func(t *testing.T) {
		_, err := run(dir, "events")
		assert.True(t, errors.Is(err, apperrors.ErrMessagingError))
	})

	t.Run("没有过期预占", func(t *testing.T) {
		out, err := run(dir, "sweep")
		require.NoError(t, err)
		assert.Contains(t, out, "已释放 0 条过期预占")
	})
}
