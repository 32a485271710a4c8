package peergroup

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-overlay/internal/core/banlist"
	"github.com/dep2p/go-overlay/pkg/types"
	"github.com/dep2p/go-overlay/tests/mocks"
)

// testConfig 关闭步骤间隔、速率限制与随机验证，便于同步断言
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.StepPause = 0
	cfg.CloseRate = 0
	cfg.VerifyProbability = 0
	return cfg
}

type fixture struct {
	clk       *clock.Mock
	node      *mocks.MockNode
	validator *mocks.MockValidator
	exchanger *mocks.MockExchanger
	keepAlive *mocks.MockKeepAlive
	store     *mocks.MockPersistence
	bans      *banlist.BanList
	group     *PeerGroup
	svc       *Service
}

func newFixture(t *testing.T, cfg Config, opts ...Option) *fixture {
	t.Helper()

	f := &fixture{
		clk:       clock.NewMock(),
		node:      mocks.NewMockNode(),
		validator: mocks.NewMockValidator(),
		exchanger: &mocks.MockExchanger{},
		keepAlive: &mocks.MockKeepAlive{},
		store:     mocks.NewMockPersistence(),
	}
	f.clk.Set(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	f.bans = banlist.New(16, banlist.WithClock(f.clk))

	g, err := NewPeerGroup(f.node, cfg, f.bans, f.store)
	require.NoError(t, err)
	f.group = g

	opts = append([]Option{WithClock(f.clk), WithRandom(func() float64 { return 0.99 })}, opts...)
	svc, err := NewService(g, f.node, f.validator, f.exchanger, f.keepAlive, cfg, opts...)
	require.NoError(t, err)
	f.svc = svc

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = svc.Shutdown(ctx)
	})
	return f
}

func (f *fixture) start(t *testing.T) {
	t.Helper()
	require.NoError(t, f.svc.Start(context.Background()))
	require.Equal(t, StateRunning, f.svc.State())
}

// conn 登记一条建立于 age 之前的运行中连接
func (f *fixture) conn(id string, dir types.Direction, addr types.Address, age time.Duration) *mocks.MockConnection {
	c := mocks.NewMockConnection(id, dir, addr, f.clk.Now().Add(-age))
	f.node.AddConnection(c)
	return c
}

func addr(host string) types.Address {
	return types.NewAddress(host, 9999)
}

func peerAt(host string, seen time.Time) types.Peer {
	return types.NewPeer(addr(host), seen)
}

func hosts(peers []types.Peer) []string {
	out := make([]string, 0, len(peers))
	for _, p := range peers {
		out = append(out, p.Address().Host)
	}
	return out
}

func peersN(prefix string, n int, seen time.Time) []types.Peer {
	out := make([]types.Peer, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, peerAt(fmt.Sprintf("%s%d", prefix, i), seen))
	}
	return out
}
