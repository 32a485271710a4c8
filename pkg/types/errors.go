package types

import "errors"

// 类型解析错误
var (
	// ErrInvalidAddress 地址格式无效
	ErrInvalidAddress = errors.New("types: invalid address")

	// ErrUnknownTransport 未知的传输类型
	ErrUnknownTransport = errors.New("types: unknown transport type")
)
