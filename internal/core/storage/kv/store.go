// Package kv 提供带前缀隔离的 KV 存储
//
// 每个组件使用独立的前缀，共享同一个存储引擎：
//
//	p/  - 持久化节点集合（peerbook）
//	b/  - 永久封禁列表（banlist）
//
// 示例：
//
//	peers := kv.New(eng, []byte("p/"))
//	peers.PutJSON([]byte("clear:1.2.3.4:8000"), peer)  // 实际键: p/clear:1.2.3.4:8000
package kv

import (
	"encoding/json"

	"github.com/dep2p/go-overlay/internal/core/storage/engine"
)

// Store 带前缀隔离的 KV 存储
type Store struct {
	engine engine.Engine
	prefix []byte
}

// New 创建带前缀的 Store
func New(eng engine.Engine, prefix []byte) *Store {
	return &Store{engine: eng, prefix: append([]byte(nil), prefix...)}
}

// prefixKey 为键添加前缀
func (s *Store) prefixKey(key []byte) []byte {
	out := make([]byte, len(s.prefix)+len(key))
	copy(out, s.prefix)
	copy(out[len(s.prefix):], key)
	return out
}

// Put 写入值
func (s *Store) Put(key, value []byte) error {
	return s.engine.Put(s.prefixKey(key), value)
}

// Delete 删除键
func (s *Store) Delete(key []byte) error {
	return s.engine.Delete(s.prefixKey(key))
}

// Has 检查键是否存在
func (s *Store) Has(key []byte) (bool, error) {
	return s.engine.Has(s.prefixKey(key))
}

// PutJSON 序列化为 JSON 并写入
func (s *Store) PutJSON(key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Put(key, data)
}

// PrefixScan 遍历子前缀下的键值对
//
// 回调收到的 key 已去除 Store 前缀，切片仅在回调期间有效。
func (s *Store) PrefixScan(subPrefix []byte, fn func(key, value []byte) bool) error {
	n := len(s.prefix)
	return s.engine.PrefixScan(s.prefixKey(subPrefix), func(key, value []byte) bool {
		return fn(key[n:], value)
	})
}

// Keys 返回子前缀下的所有键
func (s *Store) Keys(subPrefix []byte) ([][]byte, error) {
	var keys [][]byte
	err := s.PrefixScan(subPrefix, func(key, _ []byte) bool {
		keys = append(keys, append([]byte(nil), key...))
		return true
	})
	return keys, err
}

// Count 统计子前缀下的键数量
func (s *Store) Count(subPrefix []byte) (int, error) {
	var n int
	err := s.PrefixScan(subPrefix, func(_, _ []byte) bool {
		n++
		return true
	})
	return n, err
}

// ============================================================================
//                              批量操作
// ============================================================================

// Batch 带前缀的批量写入
type Batch struct {
	store *Store
	batch engine.Batch
}

// NewBatch 创建批量写入
func (s *Store) NewBatch() *Batch {
	return &Batch{store: s, batch: s.engine.NewBatch()}
}

// Put 添加写入操作
func (b *Batch) Put(key, value []byte) {
	b.batch.Put(b.store.prefixKey(key), value)
}

// PutJSON 添加 JSON 写入操作
func (b *Batch) PutJSON(key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	b.Put(key, data)
	return nil
}

// Delete 添加删除操作
func (b *Batch) Delete(key []byte) {
	b.batch.Delete(b.store.prefixKey(key))
}

// DeletePrefix 添加删除子前缀下所有键的操作
func (b *Batch) DeletePrefix(subPrefix []byte) error {
	keys, err := b.store.Keys(subPrefix)
	if err != nil {
		return err
	}
	for _, k := range keys {
		b.Delete(k)
	}
	return nil
}

// Size 返回操作数
func (b *Batch) Size() int {
	return b.batch.Size()
}

// Write 原子提交
func (b *Batch) Write() error {
	return b.batch.Write()
}
