// Package overlay 是覆盖网络成员管理的入口
//
// overlay 决定连接哪些节点、保持多少连接、何时断开连接，
// 并通过节点交换保持地址簿的新鲜度。传输层、节点交换线路协议、
// 地址证明与心跳收发由调用方通过接口注入。
//
// # 快速开始
//
//	ov, err := overlay.New(
//	    overlay.WithNode(node),             // 传输层
//	    overlay.WithRequester(requester),   // 节点交换线路协议
//	    overlay.WithSeeds("1.2.3.4:8000"),
//	)
//	if err != nil {
//	    return err
//	}
//	if err := ov.Start(ctx); err != nil {
//	    return err
//	}
//	defer ov.Close()
//
//	ov.PeerGroupService().AddListener(myListener)
//
// # 组件
//
//   - storage:   BadgerDB 存储引擎
//   - banlist:   地址封禁（永久封禁持久化，临时封禁自动过期）
//   - peerbook:  持久化节点集合
//   - addrvalid: 入站连接地址验证
//   - keepalive: 空闲连接心跳
//   - exchange:  节点交换
//   - peergroup: 节点组与维护周期
package overlay
