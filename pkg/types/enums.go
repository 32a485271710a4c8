package types

// ============================================================================
//                              Direction - 连接方向
// ============================================================================

// Direction 连接方向
type Direction int

const (
	// DirUnknown 未知方向
	DirUnknown Direction = iota
	// DirInbound 入站连接
	DirInbound
	// DirOutbound 出站连接
	DirOutbound
)

// String 返回方向的字符串表示
func (d Direction) String() string {
	switch d {
	case DirInbound:
		return "inbound"
	case DirOutbound:
		return "outbound"
	default:
		return "unknown"
	}
}

// ============================================================================
//                              CloseReason - 关闭原因
// ============================================================================

// CloseReason 连接关闭原因
//
// 关闭是策略结果而不是错误，原因会随关闭请求交给传输层，
// 优雅关闭时也会告知对端。
type CloseReason int

const (
	// CloseUnknown 未指定
	CloseUnknown CloseReason = iota
	// CloseBanned 对端地址已被封禁
	CloseBanned
	// CloseDuplicateConnection 已存在到同一地址的出站连接
	CloseDuplicateConnection
	// CloseTooManyConnectionsToSeeds 种子节点连接过多
	CloseTooManyConnectionsToSeeds
	// CloseAgedConnection 连接存活时间超过上限
	CloseAgedConnection
	// CloseTooManyInboundConnections 入站连接过多
	CloseTooManyInboundConnections
	// CloseTooManyConnections 总连接数过多
	CloseTooManyConnections
	// CloseKeepAliveFailure 心跳失败
	CloseKeepAliveFailure
	// CloseShutdown 本地节点关闭
	CloseShutdown
)

// String 返回关闭原因的字符串表示，同时用作指标标签
func (r CloseReason) String() string {
	switch r {
	case CloseBanned:
		return "banned"
	case CloseDuplicateConnection:
		return "duplicate_connection"
	case CloseTooManyConnectionsToSeeds:
		return "too_many_connections_to_seeds"
	case CloseAgedConnection:
		return "aged_connection"
	case CloseTooManyInboundConnections:
		return "too_many_inbound_connections"
	case CloseTooManyConnections:
		return "too_many_connections"
	case CloseKeepAliveFailure:
		return "keep_alive_failure"
	case CloseShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}
