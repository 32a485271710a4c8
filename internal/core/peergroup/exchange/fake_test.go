package exchange

import (
	"sync"

	"github.com/dep2p/go-overlay/pkg/types"
)

// fakeGroup 内存节点组视图
type fakeGroup struct {
	mu        sync.Mutex
	seeds     []types.Address
	reported  []types.Peer
	persisted []types.Peer
	connected []types.Peer
	banned    map[types.Address]bool
	min       int
	target    int
	numConns  int
}

func newFakeGroup() *fakeGroup {
	return &fakeGroup{banned: make(map[types.Address]bool), min: 8, target: 10}
}

func (g *fakeGroup) SeedAddresses() []types.Address {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]types.Address(nil), g.seeds...)
}

func (g *fakeGroup) ReportedPeers() []types.Peer {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]types.Peer(nil), g.reported...)
}

func (g *fakeGroup) PersistedPeers() []types.Peer {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]types.Peer(nil), g.persisted...)
}

func (g *fakeGroup) ConnectedPeers() []types.Peer {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]types.Peer(nil), g.connected...)
}

func (g *fakeGroup) IsASeed(addr types.Address) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, s := range g.seeds {
		if s == addr {
			return true
		}
	}
	return false
}

func (g *fakeGroup) IsNotBanned(addr types.Address) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.banned[addr]
}

func (g *fakeGroup) MinNumConnectedPeers() int    { return g.min }
func (g *fakeGroup) TargetNumConnectedPeers() int { return g.target }
func (g *fakeGroup) NumConnections() int          { return g.numConns }

func (g *fakeGroup) AddReportedPeers(peers []types.Peer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reported = append(g.reported, peers...)
	g.persisted = append(g.persisted, peers...)
}

func addrs(hosts ...string) []types.Address {
	out := make([]types.Address, 0, len(hosts))
	for _, h := range hosts {
		out = append(out, types.NewAddress(h, 1000))
	}
	return out
}
