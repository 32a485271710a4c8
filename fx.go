package overlay

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-overlay/config"
	"github.com/dep2p/go-overlay/internal/core/addrvalid"
	"github.com/dep2p/go-overlay/internal/core/banlist"
	"github.com/dep2p/go-overlay/internal/core/keepalive"
	"github.com/dep2p/go-overlay/internal/core/peerbook"
	"github.com/dep2p/go-overlay/internal/core/peergroup"
	"github.com/dep2p/go-overlay/internal/core/peergroup/exchange"
	"github.com/dep2p/go-overlay/internal/core/storage"
	pkgif "github.com/dep2p/go-overlay/pkg/interfaces"
)

// buildFxApp 构建 Fx 应用
//
// 加载顺序（按依赖）：
//  1. storage → banlist / peerbook
//  2. addrvalid / keepalive（依赖 Node）
//  3. peergroup.PeerGroup → exchange → peergroup.Service
func buildFxApp(o *options, cfg *config.Config, ov *Overlay) *fx.App {
	modules := []fx.Option{
		fx.Supply(cfg),
		fx.Provide(func() pkgif.Node { return o.node }),

		storage.Module(),
		banlist.Module(),
		peerbook.Module(),
		addrvalid.Module(),
		keepalive.Module(),
		exchange.Module(),
		peergroup.Module(),
	}

	if o.prover != nil {
		modules = append(modules, fx.Provide(func() addrvalid.Prover { return o.prover }))
	}
	if o.requester != nil {
		modules = append(modules, fx.Provide(func() exchange.Requester { return o.requester }))
	}
	if o.pinger != nil {
		modules = append(modules, fx.Provide(func() keepalive.Pinger { return o.pinger }))
	}
	if o.registerer != nil {
		modules = append(modules, fx.Provide(func() prometheus.Registerer { return o.registerer }))
	}

	modules = append(modules, o.fxOptions...)

	modules = append(modules,
		fx.Populate(&ov.service, &ov.banList, &ov.exchange, &ov.peerBook, &ov.engine),

		// 禁用 Fx 日志输出（避免干扰用户日志）
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
	)
	return fx.New(modules...)
}
