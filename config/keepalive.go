package config

import (
	"errors"
	"time"
)

// KeepAliveConfig 心跳配置
type KeepAliveConfig struct {
	// Enabled 是否启用心跳
	Enabled bool `json:"enabled"`

	// Interval 探测周期，空闲超过该时长的连接会被探测
	Interval Duration `json:"interval"`

	// Timeout 单次探测超时
	Timeout Duration `json:"timeout"`

	// MaxParallel 并发探测上限
	MaxParallel int `json:"max_parallel"`
}

// DefaultKeepAliveConfig 返回默认心跳配置
func DefaultKeepAliveConfig() KeepAliveConfig {
	return KeepAliveConfig{
		Enabled:     true,
		Interval:    Duration(60 * time.Second),
		Timeout:     Duration(30 * time.Second),
		MaxParallel: 16,
	}
}

// Validate 验证心跳配置
func (c KeepAliveConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Interval <= 0 || c.Timeout <= 0 {
		return errors.New("keepalive: interval and timeout must be positive")
	}
	if c.MaxParallel <= 0 {
		return errors.New("keepalive: max_parallel must be positive")
	}
	return nil
}

// AddressValidationConfig 地址验证配置
type AddressValidationConfig struct {
	// Timeout 单次验证超时
	Timeout Duration `json:"timeout"`
}

// DefaultAddressValidationConfig 返回默认地址验证配置
func DefaultAddressValidationConfig() AddressValidationConfig {
	return AddressValidationConfig{Timeout: Duration(30 * time.Second)}
}

// Validate 验证地址验证配置
func (c AddressValidationConfig) Validate() error {
	if c.Timeout <= 0 {
		return errors.New("addrvalid: timeout must be positive")
	}
	return nil
}
