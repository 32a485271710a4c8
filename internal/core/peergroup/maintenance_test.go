package peergroup

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgif "github.com/dep2p/go-overlay/pkg/interfaces"
	"github.com/dep2p/go-overlay/pkg/types"
)

const old = 10 * time.Minute

func runCycle(t *testing.T, f *fixture) {
	t.Helper()
	require.NoError(t, f.svc.RunMaintenance(context.Background()))
}

// TestMaintenance_BansAlwaysWin 保护期内的封禁连接也会被立即关闭
func TestMaintenance_BansAlwaysWin(t *testing.T) {
	f := newFixture(t, testConfig())
	f.start(t)

	young := f.conn("young", types.DirInbound, addr("evil"), time.Second)
	f.conn("ok", types.DirInbound, addr("good"), time.Second)
	require.NoError(t, f.bans.Ban(addr("evil"), "spam"))

	runCycle(t, f)

	closes := f.node.Closes()
	require.Len(t, closes, 1)
	assert.Equal(t, "young", closes[0].Conn.ID())
	assert.Equal(t, types.CloseBanned, closes[0].Reason)
	assert.False(t, closes[0].Graceful, "封禁连接不发送关闭通知")
	assert.False(t, young.IsRunning())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.svc.metrics.closedConnections.WithLabelValues("banned")))

	t.Log("✅ 封禁优先于保护期")
}

// TestMaintenance_DuplicateResolution 入站与出站重复时关闭入站
func TestMaintenance_DuplicateResolution(t *testing.T) {
	f := newFixture(t, testConfig())
	f.start(t)

	in := f.conn("in", types.DirInbound, addr("x"), old)
	out := f.conn("out", types.DirOutbound, addr("x"), old)

	runCycle(t, f)

	closes := f.node.Closes()
	require.Len(t, closes, 1)
	assert.Equal(t, "in", closes[0].Conn.ID())
	assert.Equal(t, types.CloseDuplicateConnection, closes[0].Reason)
	assert.True(t, closes[0].Graceful)
	assert.False(t, in.IsRunning())
	assert.True(t, out.IsRunning())
}

// TestMaintenance_GracefulCloseRateUsesClock 优雅关闭按注入时钟限速
func TestMaintenance_GracefulCloseRateUsesClock(t *testing.T) {
	cfg := testConfig()
	cfg.CloseRate = 1
	cfg.CloseBurst = 1
	f := newFixture(t, cfg)
	f.start(t)

	f.conn("in-x", types.DirInbound, addr("x"), old)
	f.conn("out-x", types.DirOutbound, addr("x"), old)
	f.conn("in-y", types.DirInbound, addr("y"), old)
	f.conn("out-y", types.DirOutbound, addr("y"), old)

	done := make(chan error, 1)
	go func() { done <- f.svc.RunMaintenance(context.Background()) }()

	require.Eventually(t, func() bool { return len(f.node.Closes()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Never(t, func() bool { return len(f.node.Closes()) > 1 }, 50*time.Millisecond, 5*time.Millisecond,
		"第二次关闭等待 mock 时钟前进")

	require.Eventually(t, func() bool {
		f.clk.Add(time.Second)
		return len(f.node.Closes()) == 2
	}, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, <-done)

	for _, c := range f.node.Closes() {
		assert.True(t, c.Graceful)
		assert.Equal(t, types.CloseDuplicateConnection, c.Reason)
	}

	t.Log("✅ 关闭限速使用注入时钟")
}

// TestMaintenance_BootstrapProtection 保护期内的连接不会被策略断开
func TestMaintenance_BootstrapProtection(t *testing.T) {
	cfg := testConfig()
	cfg.BootstrapTime = 20 * time.Second
	f := newFixture(t, cfg)
	f.start(t)

	in := f.conn("in", types.DirInbound, addr("x"), 5*time.Second)
	f.conn("out", types.DirOutbound, addr("x"), old)

	runCycle(t, f)
	assert.Empty(t, f.node.Closes(), "新连接即使重复也受保护")
	assert.True(t, in.IsRunning())

	f.clk.Add(20 * time.Second)
	runCycle(t, f)
	assert.Equal(t, []string{"in"}, f.node.ClosedIDs())

	t.Log("✅ 保护期生效")
}

// TestMaintenance_ValidationInProgressProtects 验证中的连接不会被策略断开
func TestMaintenance_ValidationInProgressProtects(t *testing.T) {
	f := newFixture(t, testConfig())
	f.start(t)

	in := f.conn("in", types.DirInbound, addr("x"), old)
	f.conn("out", types.DirOutbound, addr("x"), old)
	f.validator.SetInProgress(in, true)

	runCycle(t, f)
	assert.Empty(t, f.node.Closes())
}

// TestMaintenance_OutboundInValidationIsNotDuplicate 验证中的出站连接不算重复依据
func TestMaintenance_OutboundInValidationIsNotDuplicate(t *testing.T) {
	f := newFixture(t, testConfig())
	f.start(t)

	f.conn("in", types.DirInbound, addr("x"), old)
	out := f.conn("out", types.DirOutbound, addr("x"), old)
	f.validator.SetInProgress(out, true)

	runCycle(t, f)
	assert.Empty(t, f.node.Closes())
}

// TestMaintenance_SeedCap 5 个种子连接、maxSeeds=3 时关闭最早的 2 个
func TestMaintenance_SeedCap(t *testing.T) {
	cfg := testConfig()
	cfg.MaxSeeds = 3
	for i := 1; i <= 5; i++ {
		cfg.Seeds = append(cfg.Seeds, addr(fmt.Sprintf("seed%d", i)))
	}
	f := newFixture(t, cfg)
	f.start(t)

	for i := 1; i <= 5; i++ {
		// seed1 最早建立
		f.conn(fmt.Sprintf("s%d", i), types.DirOutbound, addr(fmt.Sprintf("seed%d", i)), time.Duration(60-i*10)*time.Minute)
	}
	f.conn("plain", types.DirOutbound, addr("plain"), time.Hour)

	runCycle(t, f)

	assert.ElementsMatch(t, []string{"s1", "s2"}, f.node.ClosedIDs())
	for _, c := range f.node.Closes() {
		assert.Equal(t, types.CloseTooManyConnectionsToSeeds, c.Reason)
		assert.True(t, c.Graceful)
	}
	assert.Len(t, f.group.AllConnections(), 4)

	t.Log("✅ 种子连接上限正确")
}

func TestMaintenance_AgedConnections(t *testing.T) {
	cfg := testConfig()
	cfg.MaxAge = 2 * time.Hour
	f := newFixture(t, cfg)
	f.start(t)

	f.conn("aged", types.DirOutbound, addr("a"), 3*time.Hour)
	f.conn("fresh", types.DirOutbound, addr("b"), time.Hour)

	runCycle(t, f)

	closes := f.node.Closes()
	require.Len(t, closes, 1)
	assert.Equal(t, "aged", closes[0].Conn.ID())
	assert.Equal(t, types.CloseAgedConnection, closes[0].Reason)
}

// TestMaintenance_ExceedingInbound 入站连接保留最新的 maxInbound 个
func TestMaintenance_ExceedingInbound(t *testing.T) {
	cfg := testConfig()
	cfg.MinNumConnectedPeers, cfg.MaxNumConnectedPeers = 5, 6
	f := newFixture(t, cfg)
	f.start(t)
	require.Equal(t, 4, f.group.MaxInboundConnections())

	for i := 1; i <= 6; i++ {
		f.conn(fmt.Sprintf("in%d", i), types.DirInbound, addr(fmt.Sprintf("h%d", i)), time.Duration(70-i*10)*time.Minute)
	}

	runCycle(t, f)

	assert.ElementsMatch(t, []string{"in1", "in2"}, f.node.ClosedIDs())
	for _, c := range f.node.Closes() {
		assert.Equal(t, types.CloseTooManyInboundConnections, c.Reason)
	}
}

// TestMaintenance_ExceedingConnections {a:10, b:5, c:1} 且上限为 2 时只关闭最新的 c
func TestMaintenance_ExceedingConnections(t *testing.T) {
	cfg := testConfig()
	cfg.MinNumConnectedPeers, cfg.MaxNumConnectedPeers = 1, 2
	f := newFixture(t, cfg)
	f.start(t)

	f.conn("c", types.DirOutbound, addr("c"), 1*time.Minute)
	f.conn("a", types.DirOutbound, addr("a"), 10*time.Minute)
	f.conn("b", types.DirOutbound, addr("b"), 5*time.Minute)

	runCycle(t, f)

	closes := f.node.Closes()
	require.Len(t, closes, 1)
	assert.Equal(t, "c", closes[0].Conn.ID())
	assert.Equal(t, types.CloseTooManyConnections, closes[0].Reason)
	assert.True(t, closes[0].Graceful)

	t.Log("✅ 总连接上限保留最早的连接")
}

// TestMaintenance_VerifyInbound 按概率验证未验证且无出站对应的入站连接
func TestMaintenance_VerifyInbound(t *testing.T) {
	cfg := testConfig()
	cfg.VerifyProbability = 0.3

	var roll atomic.Value
	roll.Store(0.1)
	f := newFixture(t, cfg, WithRandom(func() float64 { return roll.Load().(float64) }))
	f.start(t)

	var verified []string
	f.validator.StartFunc = func(_ context.Context, conn pkgif.Connection) error {
		verified = append(verified, conn.ID())
		return errors.New("unreachable")
	}

	f.conn("pending", types.DirInbound, addr("a"), time.Second)
	done := f.conn("done", types.DirInbound, addr("b"), time.Second)
	done.SetVerified(true)
	f.conn("dup-in", types.DirInbound, addr("c"), time.Second)
	f.conn("dup-out", types.DirOutbound, addr("c"), time.Second)
	busy := f.conn("busy", types.DirInbound, addr("d"), time.Second)
	f.validator.SetInProgress(busy, true)

	runCycle(t, f)
	assert.Equal(t, []string{"pending"}, verified)

	roll.Store(0.5)
	runCycle(t, f)
	assert.Equal(t, []string{"pending"}, verified, "未命中概率时不验证")
	assert.Empty(t, f.node.Closes(), "验证失败不关闭连接")
}

// TestMaintenance_CreateConnections 连接不足时发起增量交换
func TestMaintenance_CreateConnections(t *testing.T) {
	cfg := testConfig()
	cfg.MinNumConnectedPeers, cfg.MaxNumConnectedPeers = 2, 4
	f := newFixture(t, cfg)
	f.start(t)

	runCycle(t, f)
	assert.Equal(t, int32(1), f.exchanger.FurtherCalls.Load())

	f.conn("o1", types.DirOutbound, addr("a"), old)
	f.conn("o2", types.DirOutbound, addr("b"), old)
	runCycle(t, f)
	assert.Equal(t, int32(1), f.exchanger.FurtherCalls.Load(), "连接充足时不交换")
}

// TestMaintenance_CreateConnectionsFailureSwallowed 交换失败只记录
func TestMaintenance_CreateConnectionsFailureSwallowed(t *testing.T) {
	f := newFixture(t, testConfig())
	f.exchanger.FurtherFunc = func(context.Context) error { return errors.New("all peers unreachable") }
	f.start(t)

	runCycle(t, f)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.svc.metrics.exchangeFailures))
	assert.Zero(t, testutil.ToFloat64(f.svc.metrics.stepFailures.WithLabelValues("maybeCreateConnections")))
}

// TestMaintenance_CreateConnectionsTimeout 超时后继续执行后续步骤
func TestMaintenance_CreateConnectionsTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.MaxReported = 1
	cfg.Interval = 24 * time.Hour
	f := newFixture(t, cfg)
	f.exchanger.FurtherFunc = func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
	f.start(t)
	f.group.AddReportedPeers(peersN("r", 3, f.clk.Now()))

	errc := make(chan error, 1)
	go func() { errc <- f.svc.RunMaintenance(context.Background()) }()

	var err error
	require.Eventually(t, func() bool {
		f.clk.Add(cfg.Timeout)
		select {
		case err = <-errc:
			return true
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, 1, f.group.NumReportedPeers(), "后续裁剪步骤仍然执行")
	assert.Equal(t, 1.0, testutil.ToFloat64(f.svc.metrics.exchangeFailures))
}

// TestMaintenance_StepPanicIsolated 单个步骤 panic 不影响后续步骤
func TestMaintenance_StepPanicIsolated(t *testing.T) {
	f := newFixture(t, testConfig())
	f.node.CloseConnectionFunc = func(_ pkgif.Connection, reason types.CloseReason) error {
		if reason == types.CloseBanned {
			panic("transport bug")
		}
		return nil
	}
	f.start(t)

	f.conn("banned", types.DirInbound, addr("evil"), old)
	require.NoError(t, f.bans.Ban(addr("evil"), "test"))
	f.conn("in", types.DirInbound, addr("x"), old)
	f.conn("out", types.DirOutbound, addr("x"), old)

	runCycle(t, f)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.svc.metrics.stepFailures.WithLabelValues("closeBanned")))
	closes := f.node.Closes()
	require.Len(t, closes, 2)
	assert.Equal(t, "in", closes[1].Conn.ID(), "重复连接步骤照常执行")

	t.Log("✅ 步骤隔离正确")
}

// TestMaintenance_TrimPersisted 持久化集合裁剪到 maxPersisted，最旧的先移除
func TestMaintenance_TrimPersisted(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPersisted = 2
	f := newFixture(t, cfg)
	f.start(t)

	t0 := f.clk.Now()
	f.group.AddPersistedPeers([]types.Peer{
		peerAt("a", t0.Add(-1*time.Hour)),
		peerAt("b", t0.Add(-3*time.Hour)),
		peerAt("c", t0.Add(-3*time.Hour)),
		peerAt("d", t0),
		peerAt("e", t0.Add(-2*time.Hour)),
	})

	runCycle(t, f)

	assert.Equal(t, []string{"a", "d"}, hosts(f.group.PersistedPeers()))
	require.NoError(t, f.group.Flush(context.Background()))
	assert.Equal(t, []string{"a", "d"}, hosts(f.store.Saved()))
}

func TestMaintenance_TrimReported(t *testing.T) {
	cfg := testConfig()
	cfg.MaxReported = 3
	f := newFixture(t, cfg)
	f.start(t)

	f.group.AddReportedPeers(peersN("r", 5, f.clk.Now()))
	runCycle(t, f)

	assert.Equal(t, []string{"r2", "r3", "r4"}, hosts(f.group.ReportedPeers()))
	assert.Equal(t, 5, f.group.NumPersistedPeers())
}

func TestMaintenance_RegistererReceivesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := newFixture(t, testConfig(), WithRegisterer(reg))
	f.start(t)
	f.conn("o", types.DirOutbound, addr("o"), old)

	runCycle(t, f)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.svc.metrics.connections.WithLabelValues("outbound")))
	assert.Equal(t, float64(StateRunning), testutil.ToFloat64(f.svc.metrics.state))
	n, err := testutil.GatherAndCount(reg, "overlay_peergroup_maintenance_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
