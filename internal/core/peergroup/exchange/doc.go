// Package exchange 实现节点交换
//
// 节点交换是建立新出站连接的唯一途径：向候选地址发送自己知道的节点，
// 换回对方知道的节点，收到的节点写入节点组的报告集合（同时写穿到持久化集合）。
//
// 候选地址按优先级列表选取：
//
//	首轮:   种子 → 报告 → 持久化 → 已连接
//	重试:   种子 → 报告 → 已连接
//	增量:   报告 → 持久化（已用集合重置后追加种子）
//
// 每轮选取的地址记入已用集合，同一地址不会被重复请求；
// 候选耗尽时已用集合重置一次。
package exchange
