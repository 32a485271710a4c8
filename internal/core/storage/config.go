package storage

import (
	"time"

	"github.com/dep2p/go-overlay/config"
	"github.com/dep2p/go-overlay/internal/core/storage/engine"
)

// Config 存储模块配置
type Config struct {
	// Path 数据库目录
	Path string

	// SyncWrites 每次写入是否同步落盘
	SyncWrites bool

	// GCInterval 值日志回收间隔
	GCInterval time.Duration

	// ReadOnly 只读打开，离线查看数据时使用
	ReadOnly bool
}

// ConfigFromUnified 从统一配置创建存储配置
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return Config{
		Path:       cfg.Storage.DBPath(),
		SyncWrites: cfg.Storage.SyncWrites,
		GCInterval: cfg.Storage.GCInterval.Duration(),
	}
}

// ToEngineConfig 转换为引擎配置
func (c Config) ToEngineConfig() *engine.Config {
	ec := engine.DefaultConfig(c.Path)
	ec.SyncWrites = c.SyncWrites
	ec.GCInterval = c.GCInterval
	ec.ReadOnly = c.ReadOnly
	return ec
}
