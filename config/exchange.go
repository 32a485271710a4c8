package config

import (
	"errors"
	"time"
)

// ExchangeConfig 节点交换配置
type ExchangeConfig struct {
	// NumSeedNodesAtBootstrap 每轮最多选取的种子节点数
	NumSeedNodesAtBootstrap int `json:"num_seed_nodes_at_bootstrap"`

	// NumPersistedPeersAtBootstrap 每轮最多选取的持久化节点数
	NumPersistedPeersAtBootstrap int `json:"num_persisted_peers_at_bootstrap"`

	// NumReportedPeersAtBootstrap 每轮最多选取的报告节点数
	NumReportedPeersAtBootstrap int `json:"num_reported_peers_at_bootstrap"`

	// SupportPeerReporting 是否向请求方报告自己知道的节点
	SupportPeerReporting bool `json:"support_peer_reporting"`

	// MaxParallelRequests 单轮并发请求上限
	MaxParallelRequests int `json:"max_parallel_requests"`

	// InitialMinSuccess 首轮交换至少需要成功的请求数
	InitialMinSuccess int `json:"initial_min_success"`

	// RequestTimeout 单个请求超时
	RequestTimeout Duration `json:"request_timeout"`

	// MaxRetryAttempts 重试轮数上限
	MaxRetryAttempts int `json:"max_retry_attempts"`

	// RetryBackoff 重试退避基数，第 n 轮重试前等待 n² × RetryBackoff
	RetryBackoff Duration `json:"retry_backoff"`
}

// DefaultExchangeConfig 返回默认节点交换配置
func DefaultExchangeConfig() ExchangeConfig {
	return ExchangeConfig{
		NumSeedNodesAtBootstrap:      2,
		NumPersistedPeersAtBootstrap: 40,
		NumReportedPeersAtBootstrap:  40,
		SupportPeerReporting:         true,
		MaxParallelRequests:          8,
		InitialMinSuccess:            1,
		RequestTimeout:               Duration(30 * time.Second),
		MaxRetryAttempts:             10,
		RetryBackoff:                 Duration(time.Second),
	}
}

// Validate 验证节点交换配置
func (c ExchangeConfig) Validate() error {
	if c.NumSeedNodesAtBootstrap < 0 || c.NumPersistedPeersAtBootstrap < 0 || c.NumReportedPeersAtBootstrap < 0 {
		return errors.New("exchange: candidate limits must be non-negative")
	}
	if c.MaxParallelRequests <= 0 {
		return errors.New("exchange: max_parallel_requests must be positive")
	}
	if c.InitialMinSuccess <= 0 {
		return errors.New("exchange: initial_min_success must be positive")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("exchange: request_timeout must be positive")
	}
	if c.MaxRetryAttempts < 0 {
		return errors.New("exchange: max_retry_attempts must be non-negative")
	}
	if c.RetryBackoff < 0 {
		return errors.New("exchange: retry_backoff must be non-negative")
	}
	return nil
}
