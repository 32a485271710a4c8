package peergroup

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/dep2p/go-overlay/internal/core/peergroup/exchange"
	pkgif "github.com/dep2p/go-overlay/pkg/interfaces"
	"github.com/dep2p/go-overlay/pkg/lib/log"
	"github.com/dep2p/go-overlay/pkg/types"
)

var logger = log.Logger("core/peergroup")

// minOutboundRatio 最小连接数中出站连接至少占的比例
const minOutboundRatio = 0.4

// PeerGroup 节点视图
//
// 报告节点集合与持久化节点集合可被维护周期、地址验证回调和节点交换回调并发修改。
// 连接查询每次都从传输层读取并按 IsRunning 过滤。
type PeerGroup struct {
	node    pkgif.Node
	cfg     Config
	banList pkgif.BanList

	seedsMu sync.RWMutex
	seeds   []types.Address

	reported  *peerSet
	persisted *peerSet
	persister *persister
}

var _ exchange.Group = (*PeerGroup)(nil)

// NewPeerGroup 创建节点组
//
// banList 与 persistence 可以为 nil：前者表示没有封禁，后者表示不持久化。
func NewPeerGroup(node pkgif.Node, cfg Config, banList pkgif.BanList, persistence pkgif.PeerPersistence) (*PeerGroup, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	g := &PeerGroup{
		node:      node,
		cfg:       cfg,
		banList:   banList,
		reported:  newPeerSet(),
		persisted: newPeerSet(),
	}
	for _, s := range cfg.Seeds {
		g.AddSeedAddress(s)
	}
	g.persister = newPersister(persistence, g.persisted.snapshot)
	return g, nil
}

// Config 返回配置
func (g *PeerGroup) Config() Config {
	return g.cfg
}

// ============================================================================
//                              报告节点
// ============================================================================

// AddReportedPeers 加入报告节点，同时写穿到持久化集合
func (g *PeerGroup) AddReportedPeers(peers []types.Peer) {
	if len(peers) == 0 {
		return
	}
	g.reported.add(peers)
	g.AddPersistedPeers(peers)
}

// RemoveReportedPeers 移除报告节点，不影响持久化集合
func (g *PeerGroup) RemoveReportedPeers(peers []types.Peer) {
	g.reported.remove(types.PeerAddresses(peers))
}

// ReportedPeers 返回报告节点快照，按插入顺序
func (g *PeerGroup) ReportedPeers() []types.Peer {
	return g.reported.snapshot()
}

// NumReportedPeers 返回报告节点数量
func (g *PeerGroup) NumReportedPeers() int {
	return g.reported.len()
}

// ClearReportedPeers 清空报告节点
func (g *PeerGroup) ClearReportedPeers() {
	g.reported.clear()
}

// ============================================================================
//                              持久化节点
// ============================================================================

// AddPersistedPeers 加入持久化节点并异步同步到存储
func (g *PeerGroup) AddPersistedPeers(peers []types.Peer) {
	if g.persisted.add(peers) {
		g.persister.requestSync()
	}
}

// RemovePersistedPeers 移除持久化节点，不存在的节点被忽略
func (g *PeerGroup) RemovePersistedPeers(peers []types.Peer) {
	if g.persisted.remove(types.PeerAddresses(peers)) {
		g.persister.requestSync()
	}
}

// PersistedPeers 返回持久化节点快照，按插入顺序
func (g *PeerGroup) PersistedPeers() []types.Peer {
	return g.persisted.snapshot()
}

// NumPersistedPeers 返回持久化节点数量
func (g *PeerGroup) NumPersistedPeers() int {
	return g.persisted.len()
}

// ClearPersistedPeers 清空持久化节点
func (g *PeerGroup) ClearPersistedPeers() {
	if g.persisted.clear() {
		g.persister.requestSync()
	}
}

// RestorePersistedPeers 从存储恢复持久化节点
//
// 恢复不触发回写。读取失败只记录日志。
func (g *PeerGroup) RestorePersistedPeers(ctx context.Context) {
	if g.persister.store == nil {
		return
	}
	peers, err := g.persister.store.Load(ctx)
	if err != nil {
		logger.Warn("读取持久化节点失败", "error", err)
		return
	}
	g.persisted.add(peers)
	logger.Info("已恢复持久化节点", "count", len(peers))
}

// Flush 等待进行中的持久化完成
func (g *PeerGroup) Flush(ctx context.Context) error {
	if err := g.persister.flush(ctx); err != nil {
		return fmt.Errorf("peergroup: flush: %w", err)
	}
	return nil
}

// trimReported 裁剪报告节点到 ceiling
func (g *PeerGroup) trimReported(ceiling int) []types.Peer {
	return g.reported.trimTo(ceiling)
}

// trimPersisted 裁剪持久化节点到 ceiling
func (g *PeerGroup) trimPersisted(ceiling int) []types.Peer {
	removed := g.persisted.trimTo(ceiling)
	if len(removed) > 0 {
		g.persister.requestSync()
	}
	return removed
}

// ============================================================================
//                              种子
// ============================================================================

// AddSeedAddress 加入种子地址，重复加入无效果
func (g *PeerGroup) AddSeedAddress(addr types.Address) {
	g.seedsMu.Lock()
	defer g.seedsMu.Unlock()
	for _, s := range g.seeds {
		if s == addr {
			return
		}
	}
	g.seeds = append(g.seeds, addr)
}

// RemoveSeedAddress 移除种子地址
func (g *PeerGroup) RemoveSeedAddress(addr types.Address) {
	g.seedsMu.Lock()
	defer g.seedsMu.Unlock()
	for i, s := range g.seeds {
		if s == addr {
			g.seeds = append(g.seeds[:i], g.seeds[i+1:]...)
			return
		}
	}
}

// SeedAddresses 返回种子地址快照
func (g *PeerGroup) SeedAddresses() []types.Address {
	g.seedsMu.RLock()
	defer g.seedsMu.RUnlock()
	return append([]types.Address(nil), g.seeds...)
}

// IsASeed 地址是否与某个种子地址完全相同
func (g *PeerGroup) IsASeed(addr types.Address) bool {
	g.seedsMu.RLock()
	defer g.seedsMu.RUnlock()
	for _, s := range g.seeds {
		if s == addr {
			return true
		}
	}
	return false
}

// IsConnectionToSeed 连接对端是否为种子
func (g *PeerGroup) IsConnectionToSeed(conn pkgif.Connection) bool {
	return g.IsASeed(conn.PeerAddress())
}

// IsNotBanned 地址是否未被封禁
func (g *PeerGroup) IsNotBanned(addr types.Address) bool {
	return g.banList == nil || !g.banList.IsBanned(addr)
}

// ============================================================================
//                              连接查询
// ============================================================================

// AllConnections 运行中的全部连接
func (g *PeerGroup) AllConnections() []pkgif.Connection {
	return g.connections(types.DirUnknown)
}

// OutboundConnections 运行中的出站连接
func (g *PeerGroup) OutboundConnections() []pkgif.Connection {
	return g.connections(types.DirOutbound)
}

// InboundConnections 运行中的入站连接
func (g *PeerGroup) InboundConnections() []pkgif.Connection {
	return g.connections(types.DirInbound)
}

// connections DirUnknown 表示不按方向过滤
func (g *PeerGroup) connections(dir types.Direction) []pkgif.Connection {
	all := g.node.AllConnections()
	out := make([]pkgif.Connection, 0, len(all))
	for _, c := range all {
		if !c.IsRunning() {
			continue
		}
		if dir != types.DirUnknown && c.Direction() != dir {
			continue
		}
		out = append(out, c)
	}
	return out
}

// NumConnections 运行中的连接数
func (g *PeerGroup) NumConnections() int {
	return len(g.AllConnections())
}

// ConnectedPeers 由运行中的连接派生的节点
//
// FirstSeen 为连接建立时间，LastSeen 为最后活动时间。
// 同一地址有多条连接时只返回一次。
func (g *PeerGroup) ConnectedPeers() []types.Peer {
	conns := g.AllConnections()
	seen := make(map[types.Address]struct{}, len(conns))
	out := make([]types.Peer, 0, len(conns))
	for _, c := range conns {
		addr := c.PeerAddress()
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}

		m := c.Metrics()
		last := m.LastActivity
		if last.IsZero() {
			last = m.Created
		}
		p := types.NewPeer(addr, m.Created).WithLastSeen(last)
		out = append(out, p)
	}
	return out
}

// ============================================================================
//                              连接数目标
// ============================================================================

// MinNumConnectedPeers 最小连接数
func (g *PeerGroup) MinNumConnectedPeers() int {
	return g.cfg.MinNumConnectedPeers
}

// MaxNumConnectedPeers 最大连接数
func (g *PeerGroup) MaxNumConnectedPeers() int {
	return g.cfg.MaxNumConnectedPeers
}

// MinOutboundConnections 最少出站连接数：round(min × 0.4)
func (g *PeerGroup) MinOutboundConnections() int {
	return int(math.Round(float64(g.cfg.MinNumConnectedPeers) * minOutboundRatio))
}

// MaxInboundConnections 最多入站连接数：max − MinOutboundConnections
func (g *PeerGroup) MaxInboundConnections() int {
	return g.cfg.MaxNumConnectedPeers - g.MinOutboundConnections()
}

// TargetNumConnectedPeers 目标连接数：min 与 max 的中点
func (g *PeerGroup) TargetNumConnectedPeers() int {
	return g.cfg.MinNumConnectedPeers + (g.cfg.MaxNumConnectedPeers-g.cfg.MinNumConnectedPeers)/2
}
