package interfaces

import "context"

// AddressValidator 地址验证协作方
//
// 验证入站连接宣告的地址确实可达，用于区分重复连接。
type AddressValidator interface {
	// IsInProgress 连接是否正在验证中
	IsInProgress(conn Connection) bool

	// IsNotInProgress 连接是否不在验证中
	IsNotInProgress(conn Connection) bool

	// StartAddressValidationProtocol 对连接发起验证并等待结束
	StartAddressValidationProtocol(ctx context.Context, conn Connection) error

	// Shutdown 取消所有进行中的验证
	Shutdown()
}
