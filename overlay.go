package overlay

import (
	"context"
	"fmt"
	"os"
	"sync"

	"go.uber.org/fx"

	"github.com/dep2p/go-overlay/config"
	"github.com/dep2p/go-overlay/internal/core/banlist"
	"github.com/dep2p/go-overlay/internal/core/peerbook"
	"github.com/dep2p/go-overlay/internal/core/peergroup"
	"github.com/dep2p/go-overlay/internal/core/peergroup/exchange"
	"github.com/dep2p/go-overlay/internal/core/storage/engine"
	"github.com/dep2p/go-overlay/pkg/lib/log"
)

var logger = log.Logger("overlay")

// Overlay 覆盖网络成员管理实例
//
// 通过 New 创建，Start 启动全部组件，Close 按依赖逆序关闭。
type Overlay struct {
	app *fx.App
	cfg *config.Config

	service  *peergroup.Service
	banList  *banlist.BanList
	exchange *exchange.Service
	peerBook *peerbook.Store
	engine   engine.Engine

	logFile *os.File

	mu      sync.Mutex
	started bool
	closed  bool
}

// New 创建 Overlay 实例
//
// 必须通过 WithNode 提供传输层节点。
func New(opts ...Option) (*Overlay, error) {
	o := &options{}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	if o.node == nil {
		return nil, ErrNoNode
	}

	cfg, err := o.resolveConfig()
	if err != nil {
		return nil, err
	}

	ov := &Overlay{cfg: cfg}
	if err := ov.setupLogging(cfg.Log); err != nil {
		return nil, err
	}

	ov.app = buildFxApp(o, cfg, ov)
	if err := ov.app.Err(); err != nil {
		ov.closeLogFile()
		return nil, fmt.Errorf("overlay: build: %w", err)
	}

	logger.Debug("overlay 已创建", "dataDir", cfg.Storage.DataDir, "seeds", len(cfg.PeerGroup.Seeds))
	return ov, nil
}

// setupLogging 按配置设置日志级别与输出
func (ov *Overlay) setupLogging(cfg config.LogConfig) error {
	log.SetLevel(log.ParseLevel(cfg.Level))
	if cfg.File == "" {
		return nil
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("overlay: open log file: %w", err)
	}
	ov.logFile = f
	log.SetOutput(f)
	return nil
}

func (ov *Overlay) closeLogFile() {
	if ov.logFile == nil {
		return
	}
	log.SetOutput(os.Stderr)
	_ = ov.logFile.Close()
	ov.logFile = nil
}

// Start 启动所有组件
//
// 依次打开存储、恢复封禁与持久化节点、执行初始节点交换，
// 然后启动维护周期。初始交换失败时返回错误，已启动的组件会被关闭。
func (ov *Overlay) Start(ctx context.Context) error {
	ov.mu.Lock()
	defer ov.mu.Unlock()

	if ov.closed {
		return ErrClosed
	}
	if ov.started {
		return ErrAlreadyStarted
	}

	if err := ov.app.Start(ctx); err != nil {
		logger.Error("overlay 启动失败", "error", err)
		ov.closed = true
		ov.closeLogFile()
		return err
	}
	ov.started = true
	logger.Info("overlay 已启动", "state", ov.service.State())
	return nil
}

// Close 关闭所有组件，可重复调用
func (ov *Overlay) Close() error {
	ov.mu.Lock()
	defer ov.mu.Unlock()

	if ov.closed {
		return nil
	}
	ov.closed = true
	defer ov.closeLogFile()

	// 未启动时 Fx 不会执行 OnStop，直接关闭已打开的存储引擎
	if !ov.started {
		return ov.engine.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), ov.app.StopTimeout())
	defer cancel()
	if err := ov.app.Stop(ctx); err != nil {
		logger.Warn("overlay 关闭出错", "error", err)
		return err
	}
	logger.Info("overlay 已关闭")
	return nil
}

// PeerGroupService 返回节点组服务
func (ov *Overlay) PeerGroupService() *peergroup.Service {
	return ov.service
}

// PeerGroup 返回节点组
func (ov *Overlay) PeerGroup() *peergroup.PeerGroup {
	return ov.service.PeerGroup()
}

// BanList 返回封禁列表
func (ov *Overlay) BanList() *banlist.BanList {
	return ov.banList
}

// PeerExchange 返回节点交换服务
func (ov *Overlay) PeerExchange() *exchange.Service {
	return ov.exchange
}

// PeerBook 返回持久化节点存储
func (ov *Overlay) PeerBook() *peerbook.Store {
	return ov.peerBook
}

// Config 返回生效的配置
func (ov *Overlay) Config() *config.Config {
	return ov.cfg
}
