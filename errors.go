package overlay

import "errors"

var (
	// ErrNoNode 未提供传输层节点
	ErrNoNode = errors.New("overlay: node is required")

	// ErrAlreadyStarted 重复启动
	ErrAlreadyStarted = errors.New("overlay: already started")

	// ErrClosed 已关闭
	ErrClosed = errors.New("overlay: closed")
)
