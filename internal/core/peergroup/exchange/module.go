package exchange

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-overlay/config"
	pkgif "github.com/dep2p/go-overlay/pkg/interfaces"
)

// Params 节点交换模块依赖
type Params struct {
	fx.In

	Group      Group
	Node       pkgif.Node
	Requester  Requester      `optional:"true"`
	UnifiedCfg *config.Config `optional:"true"`
}

// Result 节点交换模块输出
type Result struct {
	fx.Out

	Service   *Service
	Exchanger pkgif.PeerExchanger
}

// Module 返回节点交换 Fx 模块
func Module() fx.Option {
	return fx.Module("exchange",
		fx.Provide(ProvideService),
	)
}

// ProvideService 提供节点交换服务
//
// 未注入 Requester 时每个请求都视为成功但不带回节点，节点只依赖本地集合运行。
func ProvideService(p Params) Result {
	cfg := config.DefaultExchangeConfig()
	if p.UnifiedCfg != nil {
		cfg = p.UnifiedCfg.Exchange
	}
	if p.Requester == nil {
		logger.Warn("未配置节点交换协议，交换将不会带回新节点")
	}
	s := NewService(p.Group, p.Node, p.Requester, cfg)
	return Result{Service: s, Exchanger: s}
}
