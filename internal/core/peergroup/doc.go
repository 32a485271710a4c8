// Package peergroup 实现覆盖网络的成员管理
//
// # 组成
//
//   - PeerGroup: 节点视图。持有报告节点集合与持久化节点集合，
//     连接只通过传输层的实时集合派生查询，从不缓存。
//   - Service: 状态机与维护周期。启动时执行首轮节点交换，
//     之后按固定间隔运行维护周期，执行准入与淘汰策略。
//
// # 状态机
//
//	NEW → STARTING → RUNNING → STOPPING → TERMINATED
//
// 状态严格单调，试图回退或停留是编程错误，直接 panic。
// 状态变更异步通知监听器。
//
// # 维护周期
//
// 步骤按固定顺序执行，每一步都重新读取实时连接快照：
//
//  1. closeBanned                            关闭封禁地址的连接（不受保护期限制）
//  2. maybeVerifyInboundConnections          按概率验证入站连接地址
//  3. maybeCloseDuplicateConnections         关闭与出站重复的入站连接
//  4. maybeCloseConnectionsToSeeds           种子连接只保留最新的 maxSeeds 个
//  5. maybeCloseAgedConnections              关闭存活超过 maxAge 的连接
//  6. maybeCloseExceedingInboundConnections  入站连接只保留最新的 maxInbound 个
//  7. maybeCloseExceedingConnections         总连接只保留最早的 maxNumConnectedPeers 个
//  8. maybeCreateConnections                 连接不足时发起增量节点交换
//  9. maybeRemoveReportedPeers / maybeRemovePersistedPeers  集合超限时裁剪最旧节点
//
// 步骤 3-7 只处理 mayDisconnect 的连接：建立时间超过 bootstrapTime、
// 不在地址验证中、仍在运行。单个步骤的错误或 panic 只记录日志，
// 不影响后续步骤与后续周期。
package peergroup
