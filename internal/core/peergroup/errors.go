package peergroup

import "errors"

var (
	// ErrInvalidState 当前状态不允许该操作
	ErrInvalidState = errors.New("peergroup: invalid state")

	// ErrInitialExchange 首轮节点交换失败
	ErrInitialExchange = errors.New("peergroup: initial peer exchange failed")

	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = errors.New("peergroup: invalid config")
)
