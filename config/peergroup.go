package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/dep2p/go-overlay/pkg/types"
)

// PeerGroupConfig 节点组与维护周期配置
//
// 连接数相关：
//   - MinNumConnectedPeers / MaxNumConnectedPeers 连接数上下限，目标值取中点
//   - MinNumReportedPeers 启动阶段期望收集到的报告节点数
//
// 维护周期相关：
//   - BootstrapTime 新连接保护期，期间不会因策略被断开
//   - Interval 维护周期间隔
//   - Timeout 单次操作（增量交换、入站验证）等待上限
//   - MaxAge 连接存活上限
//   - MaxReported / MaxPersisted / MaxSeeds 集合容量上限
type PeerGroupConfig struct {
	MinNumConnectedPeers int `json:"min_num_connected_peers"`
	MaxNumConnectedPeers int `json:"max_num_connected_peers"`
	MinNumReportedPeers  int `json:"min_num_reported_peers"`

	BootstrapTime Duration `json:"bootstrap_time"`
	Interval      Duration `json:"interval"`
	Timeout       Duration `json:"timeout"`
	MaxAge        Duration `json:"max_age"`

	MaxReported  int `json:"max_reported"`
	MaxPersisted int `json:"max_persisted"`
	MaxSeeds     int `json:"max_seeds"`

	// StepPause 维护步骤之间的间隔，用于分散关闭操作
	StepPause Duration `json:"step_pause"`

	// CloseRate 每秒允许发出的关闭请求数，0 表示不限制
	CloseRate float64 `json:"close_rate"`

	// CloseBurst 关闭请求突发上限
	CloseBurst int `json:"close_burst"`

	// VerifyProbability 每个周期发起入站地址验证的概率
	VerifyProbability float64 `json:"verify_probability"`

	// InitialExchangeAttempts 首轮交换最多尝试次数，1 表示不重试
	InitialExchangeAttempts int `json:"initial_exchange_attempts"`

	// InitialExchangeBackoff 首轮交换重试退避基数，第 n 次重试等待 n² 倍
	InitialExchangeBackoff Duration `json:"initial_exchange_backoff"`

	// Seeds 种子节点地址
	Seeds []string `json:"seeds,omitempty"`
}

// DefaultPeerGroupConfig 返回默认节点组配置
func DefaultPeerGroupConfig() PeerGroupConfig {
	return PeerGroupConfig{
		MinNumConnectedPeers: 8,
		MaxNumConnectedPeers: 12,
		MinNumReportedPeers:  1,

		BootstrapTime: Duration(20 * time.Second),
		Interval:      Duration(60 * time.Second),
		Timeout:       Duration(60 * time.Second),
		MaxAge:        Duration(2 * time.Hour),

		MaxReported:  500,
		MaxPersisted: 500,
		MaxSeeds:     4,

		StepPause:         Duration(time.Second),
		CloseRate:         5,
		CloseBurst:        3,
		VerifyProbability: 0.3,

		InitialExchangeAttempts: 1,
		InitialExchangeBackoff:  Duration(time.Second),
	}
}

// Validate 验证节点组配置
func (c PeerGroupConfig) Validate() error {
	if c.MinNumConnectedPeers <= 0 {
		return errors.New("peergroup: min_num_connected_peers must be positive")
	}
	if c.MaxNumConnectedPeers < c.MinNumConnectedPeers {
		return errors.New("peergroup: max_num_connected_peers must not be less than min_num_connected_peers")
	}
	if c.MinNumReportedPeers < 0 {
		return errors.New("peergroup: min_num_reported_peers must be non-negative")
	}
	if c.Interval <= 0 {
		return errors.New("peergroup: interval must be positive")
	}
	if c.Timeout <= 0 {
		return errors.New("peergroup: timeout must be positive")
	}
	if c.BootstrapTime < 0 || c.MaxAge < 0 || c.StepPause < 0 || c.InitialExchangeBackoff < 0 {
		return errors.New("peergroup: durations must be non-negative")
	}
	if c.MaxReported < 0 || c.MaxPersisted < 0 || c.MaxSeeds < 0 {
		return errors.New("peergroup: collection ceilings must be non-negative")
	}
	if c.CloseRate < 0 || c.CloseBurst < 0 {
		return errors.New("peergroup: close rate must be non-negative")
	}
	if c.VerifyProbability < 0 || c.VerifyProbability > 1 {
		return errors.New("peergroup: verify_probability must be within [0, 1]")
	}
	if c.InitialExchangeAttempts < 1 {
		return errors.New("peergroup: initial_exchange_attempts must be at least 1")
	}
	for _, s := range c.Seeds {
		if _, err := types.ParseAddress(s); err != nil {
			return fmt.Errorf("peergroup: seed %q: %w", s, err)
		}
	}
	return nil
}

// SeedAddresses 解析种子地址，无效条目被忽略（Validate 已拦截）
func (c PeerGroupConfig) SeedAddresses() []types.Address {
	out := make([]types.Address, 0, len(c.Seeds))
	for _, s := range c.Seeds {
		if addr, err := types.ParseAddress(s); err == nil {
			out = append(out, addr)
		}
	}
	return out
}

// WithLimits 设置连接数上下限
func (c PeerGroupConfig) WithLimits(lo, hi int) PeerGroupConfig {
	c.MinNumConnectedPeers = lo
	c.MaxNumConnectedPeers = hi
	return c
}

// WithSeeds 设置种子地址
func (c PeerGroupConfig) WithSeeds(seeds ...string) PeerGroupConfig {
	c.Seeds = append([]string(nil), seeds...)
	return c
}
