package config

import (
	"fmt"
	"path/filepath"
	"time"
)

// StorageConfig 存储配置
//
// 持久化节点集合与永久封禁列表共用一个 BadgerDB，通过键前缀隔离：
//
//	${DataDir}/
//	└── overlay.db/
type StorageConfig struct {
	// DataDir 数据目录
	DataDir string `json:"data_dir"`

	// SyncWrites 每次写入是否同步落盘
	SyncWrites bool `json:"sync_writes,omitempty"`

	// GCInterval 值日志回收间隔，0 表示不回收
	GCInterval Duration `json:"gc_interval,omitempty"`
}

// DefaultStorageConfig 返回默认存储配置
func DefaultStorageConfig() StorageConfig {
	return StorageConfig{
		DataDir:    "./data",
		GCInterval: Duration(10 * time.Minute),
	}
}

// Validate 验证存储配置
func (c StorageConfig) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("storage: data_dir cannot be empty")
	}
	if c.GCInterval < 0 {
		return fmt.Errorf("storage: gc_interval must be non-negative")
	}
	return nil
}

// DBPath 返回数据库路径
func (c StorageConfig) DBPath() string {
	return filepath.Join(c.DataDir, "overlay.db")
}
