package exchange

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-overlay/config"
	"github.com/dep2p/go-overlay/pkg/types"
)

const (
	// ReportedPeersLimit 单次报告与接收的节点数上限
	ReportedPeersLimit = 500

	// MaxPeerAge 超过该时长未被观察到的报告节点被丢弃
	MaxPeerAge = 5 * 24 * time.Hour
)

// Group 节点交换所需的节点组视图
type Group interface {
	SeedAddresses() []types.Address
	ReportedPeers() []types.Peer
	PersistedPeers() []types.Peer
	ConnectedPeers() []types.Peer
	IsASeed(addr types.Address) bool
	IsNotBanned(addr types.Address) bool
	MinNumConnectedPeers() int
	TargetNumConnectedPeers() int
	NumConnections() int
	AddReportedPeers(peers []types.Peer)
}

// Strategy 候选地址选取与报告节点过滤
type Strategy struct {
	group Group
	self  func() (types.Address, bool)
	cfg   config.ExchangeConfig
	clock clock.Clock

	shuffle func([]types.Address)

	mu   sync.Mutex
	used map[types.Address]struct{}
}

// NewStrategy 创建交换策略
//
// self 返回本节点地址，尚未确定时第二个返回值为 false。
func NewStrategy(group Group, self func() (types.Address, bool), cfg config.ExchangeConfig, clk clock.Clock) *Strategy {
	if clk == nil {
		clk = clock.New()
	}
	if self == nil {
		self = func() (types.Address, bool) { return types.Address{}, false }
	}
	return &Strategy{
		group: group,
		self:  self,
		cfg:   cfg,
		clock: clk,
		shuffle: func(a []types.Address) {
			rand.Shuffle(len(a), func(i, j int) { a[i], a[j] = a[j], a[i] })
		},
		used: make(map[types.Address]struct{}),
	}
}

// InitialCandidates 首轮交换候选
func (s *Strategy) InitialCandidates() []types.Address {
	return s.selectCandidates(func(bool) [][]types.Address {
		return [][]types.Address{s.seeds(), s.reported(), s.persisted(), s.connected()}
	})
}

// RetryCandidates 重试候选
func (s *Strategy) RetryCandidates() []types.Address {
	return s.selectCandidates(func(bool) [][]types.Address {
		return [][]types.Address{s.seeds(), s.reported(), s.connected()}
	})
}

// ExtendCandidates 增量交换候选
func (s *Strategy) ExtendCandidates() []types.Address {
	return s.selectCandidates(func(reset bool) [][]types.Address {
		lists := [][]types.Address{s.reported(), s.persisted()}
		if reset {
			lists = append(lists, s.seeds())
		}
		return lists
	})
}

// selectCandidates 按优先级列表选取
//
// 未用过的地址耗尽时清空已用集合并以 reset=true 重新选取，
// 每次耗尽都会重置。
func (s *Strategy) selectCandidates(lists func(reset bool) [][]types.Address) []types.Address {
	limit := s.Limit()

	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.take(lists(false), limit)
	if len(out) == 0 {
		s.used = make(map[types.Address]struct{})
		out = s.take(lists(true), limit)
	}
	for _, a := range out {
		s.used[a] = struct{}{}
	}
	return out
}

func (s *Strategy) take(lists [][]types.Address, limit int) []types.Address {
	self, hasSelf := s.self()
	seen := make(map[types.Address]struct{})
	var out []types.Address
	for _, list := range lists {
		for _, a := range list {
			if len(out) >= limit {
				return out
			}
			if _, ok := s.used[a]; ok {
				continue
			}
			if _, ok := seen[a]; ok {
				continue
			}
			if hasSelf && a == self {
				continue
			}
			if !s.group.IsNotBanned(a) {
				continue
			}
			seen[a] = struct{}{}
			out = append(out, a)
		}
	}
	return out
}

// Limit 本轮最多请求的地址数
//
// 缺口越大请求越多；报告节点稀少时放宽到 min/2。至少为 1。
func (s *Strategy) Limit() int {
	minPeers := s.group.MinNumConnectedPeers()
	quarter := minPeers / 4
	limit := max(quarter, s.group.TargetNumConnectedPeers()-s.group.NumConnections())
	if limit == quarter && len(s.group.ReportedPeers()) < s.cfg.NumReportedPeersAtBootstrap/4 {
		limit = minPeers / 2
	}
	return max(limit, 1)
}

func (s *Strategy) seeds() []types.Address {
	self, hasSelf := s.self()
	var out []types.Address
	for _, a := range s.group.SeedAddresses() {
		if hasSelf && a == self {
			continue
		}
		if !s.group.IsNotBanned(a) {
			continue
		}
		out = append(out, a)
	}
	s.shuffle(out)
	if len(out) > s.cfg.NumSeedNodesAtBootstrap {
		out = out[:s.cfg.NumSeedNodesAtBootstrap]
	}
	return out
}

func (s *Strategy) reported() []types.Address {
	return newestAddresses(s.group.ReportedPeers(), s.cfg.NumReportedPeersAtBootstrap)
}

func (s *Strategy) persisted() []types.Address {
	return newestAddresses(s.group.PersistedPeers(), s.cfg.NumPersistedPeersAtBootstrap)
}

func (s *Strategy) connected() []types.Address {
	return types.PeerAddresses(s.group.ConnectedPeers())
}

// PeersForReporting 回复给 requester 的节点：已连接节点加上报告节点
func (s *Strategy) PeersForReporting(requester types.Address) []types.Peer {
	if !s.cfg.SupportPeerReporting {
		return nil
	}

	seen := map[types.Address]struct{}{requester: {}}
	var out []types.Peer
	add := func(p types.Peer) {
		if _, ok := seen[p.Address()]; ok {
			return
		}
		seen[p.Address()] = struct{}{}
		out = append(out, p)
	}

	for _, p := range s.group.ConnectedPeers() {
		add(p)
	}
	reported := sortNewestFirst(s.group.ReportedPeers())
	if len(reported) > ReportedPeersLimit {
		reported = reported[:ReportedPeersLimit]
	}
	for _, p := range reported {
		add(p)
	}
	return out
}

// AddReportedPeers 过滤 reporter 报告的节点并写入节点组，返回写入数量
//
// 排除 reporter 自身、种子、已封禁、本节点以及超过 MaxPeerAge 的节点，
// 按 LastSeen 从新到旧保留最多 ReportedPeersLimit 个。
func (s *Strategy) AddReportedPeers(peers []types.Peer, reporter types.Address) int {
	now := s.clock.Now()
	self, hasSelf := s.self()

	filtered := make([]types.Peer, 0, len(peers))
	for _, p := range peers {
		a := p.Address()
		switch {
		case a == reporter:
		case hasSelf && a == self:
		case s.group.IsASeed(a):
		case !s.group.IsNotBanned(a):
		case p.Age(now) > MaxPeerAge:
		default:
			filtered = append(filtered, p)
		}
	}

	filtered = sortNewestFirst(filtered)
	if len(filtered) > ReportedPeersLimit {
		filtered = filtered[:ReportedPeersLimit]
	}
	if len(filtered) > 0 {
		s.group.AddReportedPeers(filtered)
	}
	return len(filtered)
}

// TooManyFailures 失败请求是否超过半数
func TooManyFailures(success, failures int) bool {
	return failures > (success+failures)/2
}

func sortNewestFirst(peers []types.Peer) []types.Peer {
	out := append([]types.Peer(nil), peers...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastSeen.After(out[j].LastSeen)
	})
	return out
}

func newestAddresses(peers []types.Peer, limit int) []types.Address {
	sorted := sortNewestFirst(peers)
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return types.PeerAddresses(sorted)
}
