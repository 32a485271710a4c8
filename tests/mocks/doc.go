// Package mocks 提供统一的测试 Mock 实现
//
// # 协作方 Mock
//
//   - MockConnection: 模拟 interfaces.Connection，可切换运行状态与验证标记
//   - MockNode: 模拟 interfaces.Node，记录每一次关闭请求及原因
//   - MockValidator: 模拟 interfaces.AddressValidator
//   - MockExchanger: 模拟 interfaces.PeerExchanger
//   - MockKeepAlive: 模拟 interfaces.KeepAlive
//   - MockPersistence: 模拟 interfaces.PeerPersistence，内存保存
//
// # 设计原则
//
// 1. 函数式注入: 通过 XxxFunc 字段注入自定义行为
// 2. 调用记录: 关键调用计数使用 atomic，可在异步断言中直接读取
// 3. 并发安全: 成员管理核心会在后台 goroutine 中调用 Mock
//
// # 使用示例
//
//	node := mocks.NewMockNode()
//	conn := mocks.NewMockConnection("c1", types.DirInbound, addr, clk.Now())
//	node.AddConnection(conn)
//
//	// ... 执行维护周期
//
//	assert.Equal(t, []string{"c1"}, node.ClosedIDs())
package mocks
