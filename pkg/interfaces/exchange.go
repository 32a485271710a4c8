package interfaces

import "context"

// PeerExchanger 节点交换协作方
//
// 节点交换是建立新出站连接的唯一途径，成员管理核心从不直接拨号。
type PeerExchanger interface {
	// DoInitialPeerExchange 执行启动时的首轮交换，阻塞直到完成
	DoInitialPeerExchange(ctx context.Context) error

	// DoFurtherPeerExchange 执行增量交换
	DoFurtherPeerExchange(ctx context.Context) error

	// Shutdown 停止交换并等待进行中的请求结束
	Shutdown()
}
