package engine

import "errors"

// 存储引擎错误
//
// badger 后端把底层错误映射为以下哨兵错误，调用方不需要依赖 badger 包。
var (
	ErrNotFound            = errors.New("storage: key not found")
	ErrEmptyKey            = errors.New("storage: empty key")
	ErrClosed              = errors.New("storage: engine closed")
	ErrReadOnly            = errors.New("storage: opened read-only")
	ErrTransactionTooLarge = errors.New("storage: batch exceeds transaction limit")
	ErrInvalidConfig       = errors.New("storage: invalid configuration")
)

// IsNotFound 键不存在
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsClosed 引擎已关闭
func IsClosed(err error) bool { return errors.Is(err, ErrClosed) }
