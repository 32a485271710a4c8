package engine

import (
	"fmt"
	"os"
	"time"
)

// Config 存储引擎配置
type Config struct {
	// Path 数据库目录（必需）
	Path string

	// SyncWrites 每次写入是否同步落盘
	SyncWrites bool

	// ReadOnly 只读打开，供离线工具检查数据
	ReadOnly bool

	// GCInterval 值日志回收间隔，0 表示不回收
	GCInterval time.Duration

	// GCDiscardRatio 值日志回收阈值
	GCDiscardRatio float64
}

// DefaultConfig 返回指定路径的默认配置
func DefaultConfig(path string) *Config {
	return &Config{
		Path:           path,
		GCInterval:     10 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidConfig)
	}
	if c.GCInterval < 0 {
		return fmt.Errorf("%w: negative gc interval", ErrInvalidConfig)
	}
	if c.GCDiscardRatio <= 0 || c.GCDiscardRatio >= 1 {
		return fmt.Errorf("%w: gc discard ratio must be within (0, 1)", ErrInvalidConfig)
	}
	return nil
}

// EnsureDir 确保数据库目录存在
func (c *Config) EnsureDir() error {
	if c.ReadOnly {
		return nil
	}
	return os.MkdirAll(c.Path, 0750)
}
