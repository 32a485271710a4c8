package exchange

import "errors"

var (
	// ErrNoPeerReached 首轮交换所有候选均失败
	ErrNoPeerReached = errors.New("exchange: no peer reached")

	// ErrTooManyFailures 本轮失败请求超过半数
	ErrTooManyFailures = errors.New("exchange: too many failures")

	// ErrRetryLimit 重试次数达到上限
	ErrRetryLimit = errors.New("exchange: retry limit reached")

	// ErrClosed 服务已关闭
	ErrClosed = errors.New("exchange: service closed")
)
