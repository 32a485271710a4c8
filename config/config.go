// Package config 提供 overlay 的统一配置
//
// 主 Config 聚合所有子配置，每个子配置在独立文件中定义，
// 各自提供 DefaultXxxConfig 与 Validate。
//
// 使用示例：
//
//	cfg := config.NewConfig()
//	cfg.PeerGroup = cfg.PeerGroup.WithLimits(4, 8)
//
//	// 从 JSON 文件加载（未出现的字段保留默认值）
//	cfg, err := config.LoadFile("overlay.json")
package config

import "fmt"

// Config overlay 完整配置
type Config struct {
	// PeerGroup 节点组与维护周期
	PeerGroup PeerGroupConfig `json:"peer_group"`

	// Exchange 节点交换
	Exchange ExchangeConfig `json:"exchange"`

	// KeepAlive 心跳
	KeepAlive KeepAliveConfig `json:"keep_alive"`

	// AddressValidation 地址验证
	AddressValidation AddressValidationConfig `json:"address_validation"`

	// BanList 封禁列表
	BanList BanListConfig `json:"ban_list"`

	// Storage 存储
	Storage StorageConfig `json:"storage"`

	// Log 日志
	Log LogConfig `json:"log"`
}

// LogConfig 日志配置
type LogConfig struct {
	// Level debug/info/warn/error
	Level string `json:"level"`

	// File 日志文件，为空时输出到 stderr
	File string `json:"file,omitempty"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		PeerGroup:         DefaultPeerGroupConfig(),
		Exchange:          DefaultExchangeConfig(),
		KeepAlive:         DefaultKeepAliveConfig(),
		AddressValidation: DefaultAddressValidationConfig(),
		BanList:           DefaultBanListConfig(),
		Storage:           DefaultStorageConfig(),
		Log:               LogConfig{Level: "info"},
	}
}

// Validate 验证所有子配置
func (c *Config) Validate() error {
	validators := []interface{ Validate() error }{
		c.PeerGroup,
		c.Exchange,
		c.KeepAlive,
		c.AddressValidation,
		c.BanList,
		c.Storage,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	return nil
}
