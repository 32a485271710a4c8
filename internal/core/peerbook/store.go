// Package peerbook 实现持久化节点集合的存储
//
// 每个节点一条 JSON 记录，键为 Address.Key()，统一位于 p/ 前缀下。
// Save 在一个事务中替换整个集合，因此读者不会看到半新半旧的集合。
package peerbook

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/dep2p/go-overlay/internal/core/storage/engine"
	"github.com/dep2p/go-overlay/internal/core/storage/kv"
	pkgif "github.com/dep2p/go-overlay/pkg/interfaces"
	"github.com/dep2p/go-overlay/pkg/lib/log"
	"github.com/dep2p/go-overlay/pkg/types"
)

var logger = log.Logger("core/peerbook")

// KeyPrefix 持久化节点的键前缀
var KeyPrefix = []byte("p/")

// Store 基于 KV 存储的持久化节点集合
type Store struct {
	kv *kv.Store
}

var _ pkgif.PeerPersistence = (*Store)(nil)

// New 在引擎上创建节点集合存储
func New(eng engine.Engine) *Store {
	return &Store{kv: kv.New(eng, KeyPrefix)}
}

// Load 读取全部节点，按 LastSeen 从新到旧排序
//
// 无法解析的记录被跳过。
func (s *Store) Load(ctx context.Context) ([]types.Peer, error) {
	var peers []types.Peer
	var skipped int
	err := s.kv.PrefixScan(nil, func(key, value []byte) bool {
		if ctx.Err() != nil {
			return false
		}
		var p types.Peer
		if err := json.Unmarshal(value, &p); err != nil {
			skipped++
			return true
		}
		peers = append(peers, p)
		return true
	})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if skipped > 0 {
		logger.Warn("跳过损坏的节点记录", "count", skipped)
	}

	sort.SliceStable(peers, func(i, j int) bool {
		return peers[i].LastSeen.After(peers[j].LastSeen)
	})
	return peers, nil
}

// Save 用 peers 替换已保存的集合
func (s *Store) Save(ctx context.Context, peers []types.Peer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b := s.kv.NewBatch()
	if err := b.DeletePrefix(nil); err != nil {
		return err
	}
	for _, p := range peers {
		if err := b.PutJSON([]byte(p.Address().Key()), p); err != nil {
			return err
		}
	}
	if err := b.Write(); err != nil {
		return err
	}
	logger.Debug("已保存持久化节点", "count", len(peers))
	return nil
}

// Stats 节点集合统计
type Stats struct {
	Count   int
	Corrupt int // 无法解码的记录数
	Newest  time.Time
	Oldest  time.Time
}

// Stats 返回统计信息
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	records, err := s.kv.Count(nil)
	if err != nil {
		return Stats{}, err
	}
	peers, err := s.Load(ctx)
	if err != nil {
		return Stats{}, err
	}
	st := Stats{Count: len(peers), Corrupt: max(records-len(peers), 0)}
	if len(peers) > 0 {
		st.Newest = peers[0].LastSeen
		st.Oldest = peers[len(peers)-1].LastSeen
	}
	return st, nil
}

// Prune 只保留最新的 keep 个节点，返回删除数量
func (s *Store) Prune(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	records, err := s.kv.Count(nil)
	if err != nil {
		return 0, err
	}
	if records <= keep {
		return 0, nil
	}

	peers, err := s.Load(ctx)
	if err != nil {
		return 0, err
	}
	if len(peers) <= keep {
		return 0, nil
	}

	b := s.kv.NewBatch()
	for _, p := range peers[keep:] {
		b.Delete([]byte(p.Address().Key()))
	}
	if err := b.Write(); err != nil {
		return 0, err
	}
	return len(peers) - keep, nil
}
