package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("写入文件的json日志", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.log")

		log, err := New(Options{Level: "info", Format: "json", Output: path})
		require.NoError(t, err)

		log.Info("库存流水已写入")
		log.Debug("debug日志不应输出")
		_ = log.Sync()

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "库存流水已写入")
		assert.NotContains(t, string(data), "debug日志不应输出")
	})

	t.Run("非法级别返回错误", func(t *testing.T) {
		_, err := New(Options{Level: "verbose"})
		assert.Error(t, err)
	})

	t.Run("默认值", func(t *testing.T) {
		log, err := New(Options{})
		require.NoError(t, err)
		assert.NotNil(t, log)
	})
}
