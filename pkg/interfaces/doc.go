// Package interfaces 定义 overlay 的协作方接口
//
// 成员管理核心只通过这些接口观察和驱动外部组件，
// 传输、地址验证挑战、交换协议报文、心跳收发等实现都在核心之外。
//
// # 文件组织
//
//   - node.go        - Node（传输层）与 Connection
//   - validation.go  - AddressValidator 地址验证
//   - exchange.go    - PeerExchanger 节点交换
//   - keepalive.go   - KeepAlive 心跳
//   - storage.go     - PeerPersistence 持久化边界
//   - banlist.go     - BanList 封禁列表
//
// # 阻塞语义
//
// 需要等待网络往返的方法都接收 context.Context，
// 调用方通过 context 控制超时与取消。
package interfaces
