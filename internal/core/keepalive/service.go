// Package keepalive 实现空闲连接的心跳探测
//
// 每个周期探测空闲时长超过 Interval 的运行中连接，
// 探测失败的连接以 CloseKeepAliveFailure 原因关闭。
package keepalive

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-overlay/config"
	pkgif "github.com/dep2p/go-overlay/pkg/interfaces"
	"github.com/dep2p/go-overlay/pkg/lib/log"
	"github.com/dep2p/go-overlay/pkg/types"
)

var logger = log.Logger("core/keepalive")

// Pinger 单次心跳
type Pinger interface {
	// Ping 探测连接并返回往返时延
	Ping(ctx context.Context, conn pkgif.Connection) (time.Duration, error)
}

// PingerFunc 函数形式的 Pinger
type PingerFunc func(ctx context.Context, conn pkgif.Connection) (time.Duration, error)

// Ping 实现 Pinger
func (f PingerFunc) Ping(ctx context.Context, conn pkgif.Connection) (time.Duration, error) {
	return f(ctx, conn)
}

// Service 心跳服务
type Service struct {
	node   pkgif.Node
	pinger Pinger
	cfg    config.KeepAliveConfig
	clock  clock.Clock

	mu      sync.Mutex
	started bool
	stopped bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

var _ pkgif.KeepAlive = (*Service)(nil)

// Option 心跳服务选项
type Option func(*Service)

// WithClock 指定时钟
func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// New 创建心跳服务
func New(node pkgif.Node, pinger Pinger, cfg config.KeepAliveConfig, opts ...Option) *Service {
	s := &Service{
		node:   node,
		pinger: pinger,
		cfg:    cfg,
		clock:  clock.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

// Initialize 启动周期探测，重复调用无效果
func (s *Service) Initialize() {
	if !s.cfg.Enabled || s.pinger == nil {
		logger.Debug("心跳未启用")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true

	ticker := s.clock.Ticker(s.cfg.Interval.Duration())
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.ProbeOnce(s.ctx)
			}
		}
	}()
	logger.Info("心跳服务已启动", "interval", s.cfg.Interval)
}

// ProbeOnce 探测一轮空闲连接，返回被关闭的连接数
func (s *Service) ProbeOnce(ctx context.Context) int {
	now := s.clock.Now()
	interval := s.cfg.Interval.Duration()

	var idle []pkgif.Connection
	for _, conn := range s.node.AllConnections() {
		if conn.IsRunning() && conn.Metrics().Idle(now) >= interval {
			idle = append(idle, conn)
		}
	}
	if len(idle) == 0 {
		return 0
	}

	var (
		mu     sync.Mutex
		failed int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxParallel)
	for _, conn := range idle {
		conn := conn
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(gctx, s.cfg.Timeout.Duration())
			defer cancel()

			rtt, err := s.pinger.Ping(pctx, conn)
			if err == nil {
				logger.Debug("心跳成功", "peer", conn.PeerAddress(), "rtt", rtt)
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}

			logger.Info("心跳失败，关闭连接", "peer", conn.PeerAddress(), "error", err)
			if cerr := s.node.CloseConnection(conn, types.CloseKeepAliveFailure); cerr != nil {
				logger.Warn("关闭连接失败", "peer", conn.PeerAddress(), "error", cerr)
				return nil
			}
			mu.Lock()
			failed++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return failed
}

// Shutdown 停止探测并等待进行中的探测结束
func (s *Service) Shutdown() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	logger.Debug("心跳服务已停止")
}
