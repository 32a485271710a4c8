package peergroup

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	pkgif "github.com/dep2p/go-overlay/pkg/interfaces"
	"github.com/dep2p/go-overlay/pkg/types"
)

// step 维护周期中的一个步骤
type step struct {
	name string
	run  func(ctx context.Context, lg *slog.Logger) error
}

// maintenanceSteps 维护步骤，按执行顺序排列
func (s *Service) maintenanceSteps() []step {
	return []step{
		{"closeBanned", s.closeBanned},
		{"maybeVerifyInboundConnections", s.maybeVerifyInboundConnections},
		{"maybeCloseDuplicateConnections", s.maybeCloseDuplicateConnections},
		{"maybeCloseConnectionsToSeeds", s.maybeCloseConnectionsToSeeds},
		{"maybeCloseAgedConnections", s.maybeCloseAgedConnections},
		{"maybeCloseExceedingInboundConnections", s.maybeCloseExceedingInboundConnections},
		{"maybeCloseExceedingConnections", s.maybeCloseExceedingConnections},
		{"maybeCreateConnections", s.maybeCreateConnections},
		{"maybeRemoveReportedPeers", s.maybeRemoveReportedPeers},
		{"maybeRemovePersistedPeers", s.maybeRemovePersistedPeers},
	}
}

// RunMaintenance 同步执行一次维护周期
//
// 只在 RUNNING 状态下执行。与调度器共用同一把锁，周期之间不会重叠。
// 步骤之间等待 StepPause，等待期间 ctx 结束则提前返回。
func (s *Service) RunMaintenance(ctx context.Context) error {
	if st := s.State(); st != StateRunning {
		return fmt.Errorf("%w: maintenance in %s", ErrInvalidState, st)
	}

	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	lg := logger.With("cycle", uuid.NewString())
	start := s.clock.Now()
	lg.Debug("维护周期开始", "connections", s.group.NumConnections())

	for i, st := range s.steps {
		if i > 0 && s.cfg.StepPause > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.clock.After(s.cfg.StepPause):
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		s.runStep(ctx, lg, st)
	}

	elapsed := s.clock.Since(start)
	s.metrics.maintenanceDuration.Observe(elapsed.Seconds())
	s.metrics.observeGroup(s.group)
	lg.Debug("维护周期结束", "elapsed", elapsed, "connections", s.group.NumConnections())
	return nil
}

// runStep 执行单个步骤，错误与 panic 只记录，不向外传播
func (s *Service) runStep(ctx context.Context, lg *slog.Logger, st step) {
	defer func() {
		if r := recover(); r != nil {
			s.metrics.stepFailures.WithLabelValues(st.name).Inc()
			lg.Error("维护步骤 panic", "step", st.name, "panic", r)
		}
	}()
	if err := st.run(ctx, lg); err != nil {
		s.metrics.stepFailures.WithLabelValues(st.name).Inc()
		lg.Warn("维护步骤失败", "step", st.name, "error", err)
	}
}

// mayDisconnect 连接是否可以被策略断开
//
// 建立时间超过 BootstrapTime、不在地址验证中、仍在运行。
func (s *Service) mayDisconnect(conn pkgif.Connection) bool {
	return conn.Metrics().Age(s.clock.Now()) > s.cfg.BootstrapTime &&
		s.validator.IsNotInProgress(conn) &&
		conn.IsRunning()
}

func (s *Service) eligible(conns []pkgif.Connection) []pkgif.Connection {
	out := conns[:0:0]
	for _, c := range conns {
		if s.mayDisconnect(c) {
			out = append(out, c)
		}
	}
	return out
}

// waitCloseToken 在注入的时钟上等待一个关闭令牌
func (s *Service) waitCloseToken(ctx context.Context) error {
	r := s.limiter.ReserveN(s.clock.Now(), 1)
	if !r.OK() {
		return fmt.Errorf("close limiter: burst %d too small", s.limiter.Burst())
	}
	delay := r.DelayFrom(s.clock.Now())
	if delay <= 0 {
		return nil
	}
	select {
	case <-s.clock.After(delay):
		return nil
	case <-ctx.Done():
		r.CancelAt(s.clock.Now())
		return ctx.Err()
	}
}

// closeConn 关闭连接并计数
//
// 优雅关闭经过速率限制，立即关闭不受限制。
func (s *Service) closeConn(ctx context.Context, lg *slog.Logger, conn pkgif.Connection, reason types.CloseReason, graceful bool) error {
	var err error
	if graceful {
		if err = s.waitCloseToken(ctx); err != nil {
			return err
		}
		err = s.node.CloseConnectionGracefully(conn, reason)
	} else {
		err = s.node.CloseConnection(conn, reason)
	}
	if err != nil {
		lg.Warn("关闭连接失败", "peer", conn.PeerAddress(), "reason", reason, "error", err)
		return nil
	}
	s.metrics.closedConnections.WithLabelValues(reason.String()).Inc()
	lg.Info("关闭连接", "peer", conn.PeerAddress(), "direction", conn.Direction(), "reason", reason)
	return nil
}

func (s *Service) closeAll(ctx context.Context, lg *slog.Logger, conns []pkgif.Connection, reason types.CloseReason) error {
	for _, c := range conns {
		if err := s.closeConn(ctx, lg, c, reason, true); err != nil {
			return err
		}
	}
	return nil
}

// ============================================================================
//                              步骤
// ============================================================================

func (s *Service) closeBanned(ctx context.Context, lg *slog.Logger) error {
	for _, c := range s.group.AllConnections() {
		if s.group.IsNotBanned(c.PeerAddress()) {
			continue
		}
		if err := s.closeConn(ctx, lg, c, types.CloseBanned, false); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) maybeVerifyInboundConnections(ctx context.Context, lg *slog.Logger) error {
	if s.random() >= s.cfg.VerifyProbability {
		return nil
	}

	outbound := make(map[types.Address]struct{})
	for _, c := range s.group.OutboundConnections() {
		outbound[c.PeerAddress()] = struct{}{}
	}

	var candidates []pkgif.Connection
	for _, c := range s.group.InboundConnections() {
		if c.IsPeerAddressVerified() || s.validator.IsInProgress(c) {
			continue
		}
		if _, ok := outbound[c.PeerAddress()]; ok {
			continue
		}
		candidates = append(candidates, c)
	}
	if len(candidates) == 0 {
		return nil
	}

	lg.Debug("验证入站连接地址", "count", len(candidates))
	vctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	var g errgroup.Group
	for _, c := range candidates {
		c := c
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					lg.Error("入站地址验证 panic", "peer", c.PeerAddress(), "panic", r)
				}
			}()
			if err := s.validator.StartAddressValidationProtocol(vctx, c); err != nil {
				lg.Debug("入站地址验证失败", "peer", c.PeerAddress(), "error", err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *Service) maybeCloseDuplicateConnections(ctx context.Context, lg *slog.Logger) error {
	outbound := make(map[types.Address]struct{})
	for _, c := range s.group.OutboundConnections() {
		if s.validator.IsNotInProgress(c) {
			outbound[c.PeerAddress()] = struct{}{}
		}
	}

	var dups []pkgif.Connection
	for _, c := range s.eligible(s.group.InboundConnections()) {
		if _, ok := outbound[c.PeerAddress()]; ok {
			dups = append(dups, c)
		}
	}
	return s.closeAll(ctx, lg, dups, types.CloseDuplicateConnection)
}

func (s *Service) maybeCloseConnectionsToSeeds(ctx context.Context, lg *slog.Logger) error {
	var seeds []pkgif.Connection
	for _, c := range s.eligible(s.group.AllConnections()) {
		if s.group.IsConnectionToSeed(c) {
			seeds = append(seeds, c)
		}
	}
	return s.closeAll(ctx, lg, selectExcess(seeds, s.cfg.MaxSeeds, keepNewest), types.CloseTooManyConnectionsToSeeds)
}

func (s *Service) maybeCloseAgedConnections(ctx context.Context, lg *slog.Logger) error {
	if s.cfg.MaxAge <= 0 {
		return nil
	}
	now := s.clock.Now()
	var aged []pkgif.Connection
	for _, c := range s.eligible(s.group.AllConnections()) {
		if c.Metrics().Age(now) > s.cfg.MaxAge {
			aged = append(aged, c)
		}
	}
	return s.closeAll(ctx, lg, aged, types.CloseAgedConnection)
}

func (s *Service) maybeCloseExceedingInboundConnections(ctx context.Context, lg *slog.Logger) error {
	inbound := s.eligible(s.group.InboundConnections())
	excess := selectExcess(inbound, s.group.MaxInboundConnections(), keepNewest)
	return s.closeAll(ctx, lg, excess, types.CloseTooManyInboundConnections)
}

func (s *Service) maybeCloseExceedingConnections(ctx context.Context, lg *slog.Logger) error {
	all := s.eligible(s.group.AllConnections())
	excess := selectExcess(all, s.cfg.MaxNumConnectedPeers, keepOldest)
	return s.closeAll(ctx, lg, excess, types.CloseTooManyConnections)
}

// maybeCreateConnections 出站连接低于下限或总连接低于最小值时发起增量交换
//
// 交换在服务 context 上运行，本步骤最多等待 Timeout；超时或失败只记录，
// 下一个周期会再次尝试。
func (s *Service) maybeCreateConnections(ctx context.Context, lg *slog.Logger) error {
	missingOutbound := s.group.MinOutboundConnections() - len(s.group.OutboundConnections())
	missing := s.cfg.MinNumConnectedPeers - s.group.NumConnections()
	if missingOutbound <= 0 && missing <= 0 {
		return nil
	}

	lg.Info("连接不足，发起节点交换", "missing_outbound", max(missingOutbound, 0), "missing", max(missing, 0))

	result := make(chan error, 1)
	go func() { result <- s.exchanger.DoFurtherPeerExchange(s.ctx) }()

	select {
	case err := <-result:
		if err != nil {
			s.metrics.exchangeFailures.Inc()
			lg.Warn("节点交换失败", "error", err)
		}
	case <-s.clock.After(s.cfg.Timeout):
		s.metrics.exchangeFailures.Inc()
		lg.Warn("节点交换超时", "timeout", s.cfg.Timeout)
	case <-ctx.Done():
	}
	return nil
}

func (s *Service) maybeRemoveReportedPeers(_ context.Context, lg *slog.Logger) error {
	if removed := s.group.trimReported(s.cfg.MaxReported); len(removed) > 0 {
		lg.Debug("裁剪报告节点", "removed", len(removed), "remaining", s.group.NumReportedPeers())
	}
	return nil
}

func (s *Service) maybeRemovePersistedPeers(_ context.Context, lg *slog.Logger) error {
	if removed := s.group.trimPersisted(s.cfg.MaxPersisted); len(removed) > 0 {
		lg.Debug("裁剪持久化节点", "removed", len(removed), "remaining", s.group.NumPersistedPeers())
	}
	return nil
}
