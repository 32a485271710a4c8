// Package addrvalid 实现入站连接的地址验证
//
// 入站连接宣告的地址需要反向证明可达，验证通过后传输层把连接标记为
// IsPeerAddressVerified，重复连接清理依赖这一标记。
//
// 具体的证明方式（回拨、挑战应答）由 Prover 提供，本包只负责
// 进行中状态的跟踪、超时与关闭时的取消。
package addrvalid

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dep2p/go-overlay/config"
	pkgif "github.com/dep2p/go-overlay/pkg/interfaces"
	"github.com/dep2p/go-overlay/pkg/lib/log"
)

var logger = log.Logger("core/addrvalid")

var (
	// ErrAlreadyInProgress 连接已有进行中的验证
	ErrAlreadyInProgress = errors.New("addrvalid: validation already in progress")

	// ErrClosed 服务已关闭
	ErrClosed = errors.New("addrvalid: service closed")
)

// Prover 地址证明
type Prover interface {
	// Prove 证明连接对端宣告的地址可达，成功返回 nil
	Prove(ctx context.Context, conn pkgif.Connection) error
}

// ProverFunc 函数形式的 Prover
type ProverFunc func(ctx context.Context, conn pkgif.Connection) error

// Prove 实现 Prover
func (f ProverFunc) Prove(ctx context.Context, conn pkgif.Connection) error {
	return f(ctx, conn)
}

// Service 地址验证服务
type Service struct {
	prover  Prover
	timeout time.Duration

	mu         sync.Mutex
	inProgress map[string]context.CancelFunc
	closed     bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ pkgif.AddressValidator = (*Service)(nil)

// New 创建地址验证服务
func New(prover Prover, cfg config.AddressValidationConfig) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		prover:     prover,
		timeout:    cfg.Timeout.Duration(),
		inProgress: make(map[string]context.CancelFunc),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// IsInProgress 连接是否正在验证中
func (s *Service) IsInProgress(conn pkgif.Connection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inProgress[conn.ID()]
	return ok
}

// IsNotInProgress 连接是否不在验证中
func (s *Service) IsNotInProgress(conn pkgif.Connection) bool {
	return !s.IsInProgress(conn)
}

// NumInProgress 返回进行中的验证数量
func (s *Service) NumInProgress() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inProgress)
}

// StartAddressValidationProtocol 对连接发起验证并等待结束
//
// 同一连接同时只允许一个验证，重复发起返回 ErrAlreadyInProgress。
// 调用方 ctx 取消、超时或 Shutdown 都会中止验证。
func (s *Service) StartAddressValidationProtocol(ctx context.Context, conn pkgif.Connection) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	id := conn.ID()
	if _, ok := s.inProgress[id]; ok {
		s.mu.Unlock()
		return ErrAlreadyInProgress
	}

	vctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	stop := context.AfterFunc(ctx, cancel)
	s.inProgress[id] = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	defer func() {
		stop()
		cancel()
		s.mu.Lock()
		delete(s.inProgress, id)
		s.mu.Unlock()
		s.wg.Done()
	}()

	logger.Debug("开始地址验证", "conn", id, "peer", conn.PeerAddress())
	if err := s.prover.Prove(vctx, conn); err != nil {
		logger.Debug("地址验证失败", "conn", id, "peer", conn.PeerAddress(), "error", err)
		return err
	}
	logger.Debug("地址验证通过", "conn", id, "peer", conn.PeerAddress())
	return nil
}

// Shutdown 取消所有进行中的验证并等待其返回
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
	logger.Debug("地址验证服务已关闭")
}
