// Package types 定义 overlay 的公共数据结构
//
// 这是系统最底层的包，不依赖任何其他内部包。所有类型都是值类型，
// 在模块之间按值传递。
//
// # 文件组织
//
//   - address.go    - Address, TransportType
//   - peer.go       - Peer, Capability, Load
//   - enums.go      - Direction, CloseReason
//   - connection.go - ConnectionMetrics
//   - errors.go     - 解析错误
package types
