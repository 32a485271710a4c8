package exchange

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/dep2p/go-overlay/config"
	pkgif "github.com/dep2p/go-overlay/pkg/interfaces"
	"github.com/dep2p/go-overlay/pkg/lib/log"
	"github.com/dep2p/go-overlay/pkg/types"
)

var logger = log.Logger("core/peergroup/exchange")

// extendThreshold 首轮候选少于该数量时，首轮成功后立即追加一轮增量交换
const extendThreshold = 8

// Requester 节点交换的线路协议
type Requester interface {
	// RequestPeers 把 myPeers 发给 addr，返回对方报告的节点
	RequestPeers(ctx context.Context, addr types.Address, myPeers []types.Peer) ([]types.Peer, error)
}

// RequesterFunc 函数形式的 Requester
type RequesterFunc func(ctx context.Context, addr types.Address, myPeers []types.Peer) ([]types.Peer, error)

// RequestPeers 实现 Requester
func (f RequesterFunc) RequestPeers(ctx context.Context, addr types.Address, myPeers []types.Peer) ([]types.Peer, error) {
	return f(ctx, addr, myPeers)
}

// Service 节点交换服务
type Service struct {
	strategy  *Strategy
	requester Requester
	cfg       config.ExchangeConfig
	clock     clock.Clock

	sf       singleflight.Group
	retries  atomic.Int32
	retrying atomic.Bool

	mu     sync.Mutex
	closed bool
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ pkgif.PeerExchanger = (*Service)(nil)

// Option 交换服务选项
type Option func(*options)

type options struct {
	clock   clock.Clock
	shuffle func([]types.Address)
}

// WithClock 指定时钟
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithShuffle 指定种子地址的打乱方式
func WithShuffle(f func([]types.Address)) Option {
	return func(o *options) { o.shuffle = f }
}

// NewService 创建节点交换服务
func NewService(group Group, node pkgif.Node, requester Requester, cfg config.ExchangeConfig, opts ...Option) *Service {
	o := options{clock: clock.New()}
	for _, opt := range opts {
		opt(&o)
	}

	var self func() (types.Address, bool)
	if node != nil {
		self = node.FindMyAddress
	}
	strategy := NewStrategy(group, self, cfg, o.clock)
	if o.shuffle != nil {
		strategy.shuffle = o.shuffle
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		strategy:  strategy,
		requester: requester,
		cfg:       cfg,
		clock:     o.clock,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Strategy 返回交换策略
func (s *Service) Strategy() *Strategy {
	return s.strategy
}

// DoInitialPeerExchange 首轮交换
//
// 并行请求首轮候选，收到 InitialMinSuccess 个成功响应即返回，
// 其余请求在后台继续。没有候选时直接成功；全部失败返回 ErrNoPeerReached。
//
// 失败或成功数不足时在后台调度重试；成功且候选少于 extendThreshold 时
// 在后台追加一轮增量交换。
func (s *Service) DoInitialPeerExchange(ctx context.Context) error {
	if s.isClosed() {
		return ErrClosed
	}
	addrs := s.strategy.InitialCandidates()
	if len(addrs) == 0 {
		logger.Info("首轮交换没有候选节点")
		return nil
	}

	logger.Info("开始首轮节点交换", "candidates", len(addrs))
	success, failures, err := s.exchange(ctx, addrs, s.cfg.InitialMinSuccess)
	if err != nil {
		s.retryAsync()
		return err
	}
	if success == 0 {
		s.retryAsync()
		return fmt.Errorf("%w: %d requests failed", ErrNoPeerReached, failures)
	}
	logger.Info("首轮节点交换完成", "success", success, "failures", failures)

	if success < s.cfg.InitialMinSuccess {
		s.retryAsync()
		return nil
	}
	s.retries.Store(0)
	if len(addrs) < extendThreshold {
		s.extendAsync()
	}
	return nil
}

// extendAsync 在后台执行一轮增量交换，与进行中的增量交换合并
func (s *Service) extendAsync() {
	if !s.track() {
		return
	}
	go func() {
		defer s.wg.Done()
		if err := s.DoFurtherPeerExchange(s.ctx); err != nil && s.ctx.Err() == nil {
			logger.Debug("首轮后的增量交换失败", "error", err)
		}
	}()
}

// retryAsync 在后台按二次退避重试，同一时刻最多一个重试循环
//
// 第 n 轮重试前在注入的时钟上等待 n² × RetryBackoff，首轮立即执行。
// 重试成功、候选为空或轮数达到 MaxRetryAttempts 时结束。
func (s *Service) retryAsync() {
	if !s.retrying.CompareAndSwap(false, true) {
		return
	}
	if !s.track() {
		s.retrying.Store(false)
		return
	}
	go func() {
		defer s.wg.Done()
		defer s.retrying.Store(false)

		for {
			n := int(s.retries.Load())
			if n >= s.cfg.MaxRetryAttempts {
				logger.Warn("节点交换重试次数耗尽", "attempts", n)
				return
			}
			if delay := time.Duration(n*n) * s.cfg.RetryBackoff.Duration(); delay > 0 {
				select {
				case <-s.ctx.Done():
					return
				case <-s.clock.After(delay):
				}
			}

			err := s.Retry(s.ctx)
			switch {
			case err == nil:
				logger.Debug("节点交换重试完成", "attempt", n+1)
				return
			case errors.Is(err, ErrTooManyFailures):
				logger.Debug("节点交换重试失败", "attempt", n+1, "error", err)
			default:
				return
			}
		}
	}()
}

// track 在服务未关闭时登记一个后台任务
func (s *Service) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.wg.Add(1)
	return true
}

// DoFurtherPeerExchange 增量交换
//
// 并发调用合并为同一轮交换。该轮在服务自身的 context 上运行，
// 调用方 ctx 结束只影响等待，不会中止交换。
func (s *Service) DoFurtherPeerExchange(ctx context.Context) error {
	if s.isClosed() {
		return ErrClosed
	}
	ch := s.sf.DoChan("further", func() (any, error) {
		addrs := s.strategy.ExtendCandidates()
		if len(addrs) == 0 {
			logger.Debug("增量交换没有候选节点")
			return nil, nil
		}
		success, failures, err := s.exchange(s.ctx, addrs, 0)
		if err != nil {
			return nil, err
		}
		logger.Debug("增量交换完成", "success", success, "failures", failures)
		if TooManyFailures(success, failures) {
			return nil, fmt.Errorf("%w: %d of %d", ErrTooManyFailures, failures, success+failures)
		}
		return nil, nil
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Retry 使用重试候选再交换一轮，连续重试次数受 MaxRetryAttempts 限制
//
// 失败请求不超过半数时视为成功并清零重试计数。
func (s *Service) Retry(ctx context.Context) error {
	if s.isClosed() {
		return ErrClosed
	}
	if int(s.retries.Add(1)) > s.cfg.MaxRetryAttempts {
		return ErrRetryLimit
	}

	addrs := s.strategy.RetryCandidates()
	if len(addrs) == 0 {
		return nil
	}
	success, failures, err := s.exchange(ctx, addrs, 0)
	if err != nil {
		return err
	}
	if TooManyFailures(success, failures) {
		return fmt.Errorf("%w: %d of %d", ErrTooManyFailures, failures, success+failures)
	}
	s.retries.Store(0)
	return nil
}

// HandleRequest 处理对端发起的交换，返回回复给对端的节点
func (s *Service) HandleRequest(from types.Address, peers []types.Peer) []types.Peer {
	added := s.strategy.AddReportedPeers(peers, from)
	logger.Debug("收到节点交换请求", "from", from, "received", len(peers), "added", added)
	return s.strategy.PeersForReporting(from)
}

// Shutdown 取消进行中的请求并等待其返回
func (s *Service) Shutdown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	logger.Debug("节点交换服务已关闭")
}

func (s *Service) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type result struct {
	addr types.Address
	err  error
}

// exchange 并行请求 addrs
//
// needed > 0 时收到 needed 个成功即返回计数，剩余请求在服务 context 上继续；
// needed <= 0 时等待全部完成。
func (s *Service) exchange(ctx context.Context, addrs []types.Address, needed int) (success, failures int, err error) {
	results := make(chan result, len(addrs))

	if !s.track() {
		return 0, 0, ErrClosed
	}

	go func() {
		defer s.wg.Done()
		var g errgroup.Group
		g.SetLimit(s.cfg.MaxParallelRequests)
		for _, addr := range addrs {
			addr := addr
			g.Go(func() error {
				results <- result{addr: addr, err: s.request(addr)}
				return nil
			})
		}
		_ = g.Wait()
	}()

	for range addrs {
		select {
		case r := <-results:
			if r.err != nil {
				failures++
				logger.Debug("节点交换请求失败", "peer", r.addr, "error", r.err)
			} else {
				success++
			}
			if needed > 0 && success >= needed {
				return success, failures, nil
			}
		case <-ctx.Done():
			return success, failures, ctx.Err()
		}
	}
	return success, failures, nil
}

func (s *Service) request(addr types.Address) error {
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.RequestTimeout.Duration())
	defer cancel()

	if s.requester == nil {
		return nil
	}
	peers, err := s.requester.RequestPeers(ctx, addr, s.strategy.PeersForReporting(addr))
	if err != nil {
		return err
	}
	s.strategy.AddReportedPeers(peers, addr)
	return nil
}
