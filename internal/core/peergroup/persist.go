package peergroup

import (
	"context"
	"sync"
	"time"

	pkgif "github.com/dep2p/go-overlay/pkg/interfaces"
	"github.com/dep2p/go-overlay/pkg/types"
)

// saveTimeout 单次保存的超时
const saveTimeout = 30 * time.Second

// persister 合并式异步持久化
//
// 每次变更只标记脏并确保有一个后台写入者；写入者循环保存最新快照直到不再脏。
// 保存期间的多次变更只触发一次后续保存。
type persister struct {
	store    pkgif.PeerPersistence
	snapshot func() []types.Peer

	mu      sync.Mutex
	dirty   bool
	idle    chan struct{}
	lastErr error
}

func newPersister(store pkgif.PeerPersistence, snapshot func() []types.Peer) *persister {
	return &persister{store: store, snapshot: snapshot}
}

// requestSync 标记需要保存，不等待保存完成
func (p *persister) requestSync() {
	if p.store == nil {
		return
	}

	p.mu.Lock()
	p.dirty = true
	if p.idle != nil {
		p.mu.Unlock()
		return
	}
	idle := make(chan struct{})
	p.idle = idle
	p.mu.Unlock()

	go p.run(idle)
}

func (p *persister) run(idle chan struct{}) {
	defer close(idle)
	for {
		p.mu.Lock()
		if !p.dirty {
			p.idle = nil
			p.mu.Unlock()
			return
		}
		p.dirty = false
		p.mu.Unlock()

		peers := p.snapshot()
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		err := p.store.Save(ctx, peers)
		cancel()

		p.mu.Lock()
		p.lastErr = err
		p.mu.Unlock()
		if err != nil {
			logger.Warn("保存持久化节点失败", "count", len(peers), "error", err)
		} else {
			logger.Debug("已保存持久化节点", "count", len(peers))
		}
	}
}

// flush 等待进行中的保存结束，返回最后一次保存的错误
func (p *persister) flush(ctx context.Context) error {
	for {
		p.mu.Lock()
		idle := p.idle
		if idle == nil {
			err := p.lastErr
			p.mu.Unlock()
			return err
		}
		p.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
