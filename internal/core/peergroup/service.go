package peergroup

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"golang.org/x/time/rate"

	pkgif "github.com/dep2p/go-overlay/pkg/interfaces"
)

// Service 节点组服务：状态机与维护周期
type Service struct {
	group     *PeerGroup
	node      pkgif.Node
	validator pkgif.AddressValidator
	exchanger pkgif.PeerExchanger
	keepAlive pkgif.KeepAlive
	cfg       Config

	clock   clock.Clock
	random  func() float64
	metrics *metrics
	limiter *rate.Limiter
	steps   []step

	mu       sync.Mutex
	state    State
	loopDone chan struct{}

	listeners *dispatcher

	// cycleMu 保证维护周期不重叠
	cycleMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc

	shutdownOnce sync.Once
	shutdownDone chan struct{}
	shutdownErr  error
}

// Option 服务选项
type Option func(*serviceOptions)

type serviceOptions struct {
	clock      clock.Clock
	random     func() float64
	registerer prometheus.Registerer
}

// WithClock 指定时钟
func WithClock(c clock.Clock) Option {
	return func(o *serviceOptions) { o.clock = c }
}

// WithRandom 指定 [0,1) 随机数源，用于入站验证的概率判断
func WithRandom(f func() float64) Option {
	return func(o *serviceOptions) { o.random = f }
}

// WithRegisterer 指定指标注册器
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *serviceOptions) { o.registerer = reg }
}

// NewService 创建节点组服务
func NewService(
	group *PeerGroup,
	node pkgif.Node,
	validator pkgif.AddressValidator,
	exchanger pkgif.PeerExchanger,
	keepAlive pkgif.KeepAlive,
	cfg Config,
	opts ...Option,
) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if group == nil || node == nil || validator == nil || exchanger == nil || keepAlive == nil {
		return nil, fmt.Errorf("%w: missing collaborator", ErrInvalidConfig)
	}

	o := serviceOptions{clock: clock.New(), random: rand.Float64}
	for _, opt := range opts {
		opt(&o)
	}

	limit := rate.Inf
	if cfg.CloseRate > 0 {
		limit = rate.Limit(cfg.CloseRate)
	}
	burst := cfg.CloseBurst
	if burst <= 0 {
		burst = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		group:        group,
		node:         node,
		validator:    validator,
		exchanger:    exchanger,
		keepAlive:    keepAlive,
		cfg:          cfg,
		clock:        o.clock,
		random:       o.random,
		metrics:      newMetrics(o.registerer),
		limiter:      rate.NewLimiter(limit, burst),
		state:        StateNew,
		listeners:    newDispatcher(),
		ctx:          ctx,
		cancel:       cancel,
		shutdownDone: make(chan struct{}),
	}
	s.steps = s.maintenanceSteps()
	return s, nil
}

// PeerGroup 返回节点组
func (s *Service) PeerGroup() *PeerGroup {
	return s.group
}

// State 返回当前状态
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// AddListener 注册状态监听器
func (s *Service) AddListener(l StateListener) {
	s.listeners.add(l)
}

// RemoveListener 移除状态监听器
func (s *Service) RemoveListener(l StateListener) {
	s.listeners.remove(l)
}

// setStateLocked 推进状态并异步通知监听器，调用方持有 s.mu
//
// 状态只能前进，违反时 panic。
func (s *Service) setStateLocked(next State) {
	if next <= s.state {
		panic(fmt.Sprintf("peergroup: illegal state transition %s -> %s", s.state, next))
	}
	logger.Info("状态变更", "from", s.state, "to", next)
	s.state = next
	s.metrics.state.Set(float64(next))
	s.listeners.publish(next)
}

// ============================================================================
//                              启动
// ============================================================================

// Start 启动服务
//
// 恢复持久化节点，阻塞执行首轮节点交换，然后启动维护周期与心跳并进入 RUNNING。
// 已在 RUNNING 时直接返回；其他非 NEW 状态返回 ErrInvalidState。
// 首轮交换失败时返回 ErrInitialExchange，服务停留在 STARTING，由调用方 Shutdown。
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateNew:
	case StateRunning:
		s.mu.Unlock()
		logger.Debug("服务已在运行")
		return nil
	default:
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: start in %s", ErrInvalidState, st)
	}
	s.setStateLocked(StateStarting)
	s.mu.Unlock()

	s.group.RestorePersistedPeers(ctx)

	if err := s.initialExchange(ctx); err != nil {
		logger.Error("首轮节点交换失败", "error", err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateStarting {
		return fmt.Errorf("%w: shut down during start", ErrInvalidState)
	}

	done := make(chan struct{})
	s.loopDone = done
	go s.loop(done)

	s.keepAlive.Initialize()
	s.setStateLocked(StateRunning)
	s.metrics.observeGroup(s.group)
	return nil
}

// initialExchange 执行首轮交换，按配置重试
//
// 第 n 次重试前等待 n² × InitialExchangeBackoff。
func (s *Service) initialExchange(ctx context.Context) error {
	var err error
	for attempt := 1; attempt <= s.cfg.InitialExchangeAttempts; attempt++ {
		if attempt > 1 {
			n := time.Duration(attempt - 1)
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %w", ErrInitialExchange, ctx.Err())
			case <-s.ctx.Done():
				return fmt.Errorf("%w: %w", ErrInitialExchange, context.Canceled)
			case <-s.clock.After(n * n * s.cfg.InitialExchangeBackoff):
			}
		}

		if err = s.exchanger.DoInitialPeerExchange(ctx); err == nil {
			logger.Info("首轮节点交换完成",
				"reported", s.group.NumReportedPeers(),
				"persisted", s.group.NumPersistedPeers())
			if n := s.group.NumReportedPeers(); n < s.cfg.MinNumReportedPeers {
				logger.Warn("报告节点不足", "reported", n, "min", s.cfg.MinNumReportedPeers)
			}
			return nil
		}
		logger.Warn("首轮节点交换尝试失败", "attempt", attempt, "error", err)
	}
	return fmt.Errorf("%w: %w", ErrInitialExchange, err)
}

// loop 维护周期调度
//
// 周期在调度 goroutine 上同步执行，执行期间错过的 tick 被丢弃。
func (s *Service) loop(done chan struct{}) {
	defer close(done)

	ticker := s.clock.Ticker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if err := s.RunMaintenance(s.ctx); err != nil && s.ctx.Err() == nil {
				logger.Warn("维护周期中断", "error", err)
			}
		}
	}
}

// ============================================================================
//                              关闭
// ============================================================================

// Shutdown 关闭服务
//
// 依次停止节点交换、地址验证、心跳与调度，等待持久化完成，最终进入 TERMINATED。
// 可从任意状态调用且幂等，并发调用者都等待同一次关闭完成；
// ctx 只限制等待时长。
func (s *Service) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		go func() {
			s.shutdownErr = s.shutdown()
			close(s.shutdownDone)
		}()
	})

	select {
	case <-s.shutdownDone:
		return s.shutdownErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) shutdown() error {
	s.mu.Lock()
	s.setStateLocked(StateStopping)
	s.mu.Unlock()

	var errs error
	errs = multierr.Append(errs, safeStop("exchange", s.exchanger.Shutdown))
	errs = multierr.Append(errs, safeStop("addrvalid", s.validator.Shutdown))
	errs = multierr.Append(errs, safeStop("keepalive", s.keepAlive.Shutdown))

	s.cancel()
	s.mu.Lock()
	done := s.loopDone
	s.mu.Unlock()
	if done != nil {
		<-done
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	errs = multierr.Append(errs, s.group.Flush(flushCtx))
	cancel()

	s.mu.Lock()
	s.setStateLocked(StateTerminated)
	s.mu.Unlock()
	<-s.listeners.close()

	if errs != nil {
		logger.Warn("服务关闭时出现错误", "error", errs)
	} else {
		logger.Info("服务已关闭")
	}
	return errs
}

// safeStop 调用协作方的 Shutdown，panic 转为错误
func safeStop(name string, stop func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("peergroup: stop %s: %v", name, r)
		}
	}()
	stop()
	return nil
}
