package peergroup

import (
	"fmt"
	"time"

	"github.com/dep2p/go-overlay/config"
	"github.com/dep2p/go-overlay/pkg/types"
)

// Config 节点组与维护周期配置
type Config struct {
	MinNumConnectedPeers int
	MaxNumConnectedPeers int
	MinNumReportedPeers  int

	// BootstrapTime 新连接保护期
	BootstrapTime time.Duration

	// Interval 维护周期间隔
	Interval time.Duration

	// Timeout 增量交换与入站验证的等待上限
	Timeout time.Duration

	// MaxAge 连接存活上限，0 表示不限制
	MaxAge time.Duration

	MaxReported  int
	MaxPersisted int
	MaxSeeds     int

	// StepPause 维护步骤之间的间隔
	StepPause time.Duration

	// CloseRate / CloseBurst 优雅关闭的速率限制，CloseRate 为 0 表示不限制
	CloseRate  float64
	CloseBurst int

	// VerifyProbability 每个周期发起入站验证的概率
	VerifyProbability float64

	// InitialExchangeAttempts 首轮交换最多尝试次数
	InitialExchangeAttempts int

	// InitialExchangeBackoff 首轮交换重试退避基数
	InitialExchangeBackoff time.Duration

	// Seeds 种子地址
	Seeds []types.Address
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return FromPeerGroupConfig(config.DefaultPeerGroupConfig())
}

// FromPeerGroupConfig 从配置文件结构转换
func FromPeerGroupConfig(c config.PeerGroupConfig) Config {
	return Config{
		MinNumConnectedPeers:    c.MinNumConnectedPeers,
		MaxNumConnectedPeers:    c.MaxNumConnectedPeers,
		MinNumReportedPeers:     c.MinNumReportedPeers,
		BootstrapTime:           c.BootstrapTime.Duration(),
		Interval:                c.Interval.Duration(),
		Timeout:                 c.Timeout.Duration(),
		MaxAge:                  c.MaxAge.Duration(),
		MaxReported:             c.MaxReported,
		MaxPersisted:            c.MaxPersisted,
		MaxSeeds:                c.MaxSeeds,
		StepPause:               c.StepPause.Duration(),
		CloseRate:               c.CloseRate,
		CloseBurst:              c.CloseBurst,
		VerifyProbability:       c.VerifyProbability,
		InitialExchangeAttempts: c.InitialExchangeAttempts,
		InitialExchangeBackoff:  c.InitialExchangeBackoff.Duration(),
		Seeds:                   c.SeedAddresses(),
	}
}

// ConfigFromUnified 从统一配置创建节点组配置
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		return DefaultConfig()
	}
	return FromPeerGroupConfig(cfg.PeerGroup)
}

// Validate 验证配置
func (c Config) Validate() error {
	if c.MinNumConnectedPeers <= 0 || c.MaxNumConnectedPeers < c.MinNumConnectedPeers {
		return fmt.Errorf("%w: need 0 < min (%d) <= max (%d)",
			ErrInvalidConfig, c.MinNumConnectedPeers, c.MaxNumConnectedPeers)
	}
	if c.Interval <= 0 || c.Timeout <= 0 {
		return fmt.Errorf("%w: interval and timeout must be positive", ErrInvalidConfig)
	}
	if c.MaxReported < 0 || c.MaxPersisted < 0 || c.MaxSeeds < 0 {
		return fmt.Errorf("%w: collection ceilings must be non-negative", ErrInvalidConfig)
	}
	if c.InitialExchangeAttempts < 1 {
		return fmt.Errorf("%w: initial exchange attempts must be at least 1", ErrInvalidConfig)
	}
	return nil
}
