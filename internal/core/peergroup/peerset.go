package peergroup

import (
	"sort"
	"sync"

	"github.com/dep2p/go-overlay/pkg/types"
)

// peerEntry 集合条目，seq 记录首次插入顺序
type peerEntry struct {
	peer types.Peer
	seq  uint64
}

// peerSet 以地址为键的并发安全节点集合
//
// 快照按插入顺序返回。同一地址再次加入时，只有 LastSeen 更新的记录
// 才会替换旧记录，插入顺序保持不变。
type peerSet struct {
	mu      sync.RWMutex
	entries map[types.Address]*peerEntry
	next    uint64
}

func newPeerSet() *peerSet {
	return &peerSet{entries: make(map[types.Address]*peerEntry)}
}

// add 加入节点，返回集合是否发生变化
func (s *peerSet) add(peers []types.Peer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for _, p := range peers {
		addr := p.Address()
		if e, ok := s.entries[addr]; ok {
			if p.IsNewerThan(e.peer) {
				e.peer = p
				changed = true
			}
			continue
		}
		s.entries[addr] = &peerEntry{peer: p, seq: s.next}
		s.next++
		changed = true
	}
	return changed
}

// remove 按地址移除，不存在的地址被忽略
func (s *peerSet) remove(addrs []types.Address) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for _, a := range addrs {
		if _, ok := s.entries[a]; ok {
			delete(s.entries, a)
			changed = true
		}
	}
	return changed
}

func (s *peerSet) clear() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		return false
	}
	s.entries = make(map[types.Address]*peerEntry)
	return true
}

func (s *peerSet) contains(addr types.Address) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[addr]
	return ok
}

func (s *peerSet) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// snapshot 按插入顺序返回全部节点
func (s *peerSet) snapshot() []types.Peer {
	s.mu.RLock()
	entries := s.sortedLocked(func(a, b *peerEntry) bool { return a.seq < b.seq })
	s.mu.RUnlock()

	out := make([]types.Peer, len(entries))
	for i, e := range entries {
		out[i] = e.peer
	}
	return out
}

// trimTo 移除 LastSeen 最早的节点直到集合大小不超过 ceiling
//
// LastSeen 相同时先插入的先移除。返回被移除的节点。
func (s *peerSet) trimTo(ceiling int) []types.Peer {
	s.mu.Lock()
	defer s.mu.Unlock()

	excess := len(s.entries) - ceiling
	if excess <= 0 {
		return nil
	}
	entries := s.sortedLocked(func(a, b *peerEntry) bool {
		if !a.peer.LastSeen.Equal(b.peer.LastSeen) {
			return a.peer.LastSeen.Before(b.peer.LastSeen)
		}
		return a.seq < b.seq
	})

	removed := make([]types.Peer, 0, excess)
	for _, e := range entries[:excess] {
		delete(s.entries, e.peer.Address())
		removed = append(removed, e.peer)
	}
	return removed
}

func (s *peerSet) sortedLocked(less func(a, b *peerEntry) bool) []*peerEntry {
	entries := make([]*peerEntry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return less(entries[i], entries[j]) })
	return entries
}
