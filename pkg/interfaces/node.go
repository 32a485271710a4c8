package interfaces

import (
	"github.com/dep2p/go-overlay/pkg/types"
)

// Connection 传输层持有的一条连接
//
// 成员管理核心从不缓存 Connection 列表，每次都通过 Node.AllConnections
// 重新获取并按 IsRunning 过滤。
type Connection interface {
	// ID 返回连接唯一标识
	ID() string

	// Direction 返回连接方向
	Direction() types.Direction

	// PeerAddress 返回对端地址
	PeerAddress() types.Address

	// Metrics 返回连接指标快照（建立时间、活动时间、RTT）
	Metrics() types.ConnectionMetrics

	// IsRunning 连接是否仍在运行
	IsRunning() bool

	// IsPeerAddressVerified 对端宣告的地址是否已通过验证
	IsPeerAddressVerified() bool
}

// Node 传输层节点
type Node interface {
	// AllConnections 返回当前所有连接
	//
	// 返回值是调用时刻的快照，顺序为连接登记顺序。
	AllConnections() []Connection

	// CloseConnection 立即关闭连接
	CloseConnection(conn Connection, reason types.CloseReason) error

	// CloseConnectionGracefully 先向对端发送关闭通知再关闭连接
	CloseConnectionGracefully(conn Connection, reason types.CloseReason) error

	// FindMyAddress 返回本节点地址（尚未确定时 ok 为 false）
	FindMyAddress() (addr types.Address, ok bool)
}
