// Package engine 定义存储引擎接口
//
// 上层只依赖 Engine，具体实现位于 engine/badger。
// 所有实现必须并发安全；Batch 在 Write 之前对其他操作不可见。
package engine

// Engine 键值存储引擎
type Engine interface {
	// Put 写入键值对
	Put(key, value []byte) error

	// Delete 删除键，键不存在时不报错
	Delete(key []byte) error

	// Has 检查键是否存在
	Has(key []byte) (bool, error)

	// PrefixScan 按键序遍历指定前缀的键值对
	//
	// 回调返回 false 时停止遍历。回调收到的切片仅在回调期间有效。
	PrefixScan(prefix []byte, fn func(key, value []byte) bool) error

	// NewBatch 创建批量写入
	NewBatch() Batch

	// Start 启动后台任务（值日志回收）
	Start() error

	// Close 关闭引擎
	Close() error
}

// Batch 批量写入
//
// 所有操作在 Write 时于一个事务中原子提交。Batch 不是并发安全的。
type Batch interface {
	// Put 添加写入操作
	Put(key, value []byte)

	// Delete 添加删除操作
	Delete(key []byte)

	// Size 返回已添加的操作数
	Size() int

	// Write 原子提交所有操作
	Write() error
}
