package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o600))
	return dir
}

func TestLoadFrom(t *testing.T) {
	dir := writeConfig(t, `
server:
  port: 8081
database:
  driver: sqlite
  path: /tmp/stock.db
inventory:
  reservation_ttl: 10m
  reservation_max_ttl: 1h
  lock_timeout: 2s
`)

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)
	assert.Equal(t, 8081, cfg.Server.Port)
	assert.True(t, cfg.Database.IsSQLite())
	assert.Equal(t, 10*time.Minute, cfg.Inventory.ReservationTTL)
	assert.Equal(t, time.Hour, cfg.Inventory.ReservationMaxTTL)
	assert.Equal(t, 2*time.Second, cfg.Inventory.LockTimeout)

	// 未配置的项使用默认值
	assert.Equal(t, "local", cfg.Inventory.LockBackend)
	assert.Equal(t, "@every 1m", cfg.Inventory.SweepSchedule)
	assert.Equal(t, 200, cfg.Inventory.SweepBatch)
	assert.Equal(t, "stockcore.events", cfg.MQ.Exchange)
}

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err, "没有配置文件时使用默认值")
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, 15*time.Minute, cfg.Inventory.ReservationTTL)
	assert.Equal(t, 2*time.Hour, cfg.Inventory.ReservationMaxTTL)
	assert.Equal(t, "topic", cfg.MQ.ExchangeType)
}

func TestLoadFrom_EnvOverride(t *testing.T) {
	t.Setenv("STOCKCORE_SERVER_PORT", "9090")
	t.Setenv("STOCKCORE_INVENTORY_SWEEP_BATCH", "50")

	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 50, cfg.Inventory.SweepBatch)
}

func TestLoadFrom_Invalid(t *testing.T) {
	cases := map[string]string{
		"sqlite缺少路径": `
database:
  driver: sqlite
`,
		"未知驱动": `
database:
  driver: postgres
`,
		"预占上限小于默认时长": `
inventory:
  reservation_ttl: 1h
  reservation_max_ttl: 10m
`,
		"未知锁实现": `
inventory:
  lock_backend: etcd
`,
		"redis锁未启用redis": `
inventory:
  lock_backend: redis
`,
		"redis锁ttl不大于等待时间": `
redis:
  enabled: true
inventory:
  lock_backend: redis
  lock_timeout: 5s
  lock_ttl: 5s
`,
		"启用mq缺少url": `
mq:
  enabled: true
  url: ""
`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFrom(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{
		User: "root", Password: "secret", Host: "db", Port: 3306, DBName: "stockcore",
		Charset: "utf8mb4", ParseTime: true, Loc: "Asia/Shanghai",
	}
	assert.Equal(t, "root:secret@tcp(db:3306)/stockcore?charset=utf8mb4&parseTime=true&loc=Asia%2FShanghai", d.DSN())
	assert.Equal(t, "127.0.0.1:6379", RedisConfig{Host: "127.0.0.1", Port: 6379}.Addr())
}
