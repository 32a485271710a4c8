package keepalive

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-overlay/config"
	pkgif "github.com/dep2p/go-overlay/pkg/interfaces"
)

// Params 心跳模块依赖
type Params struct {
	fx.In

	Node       pkgif.Node
	Pinger     Pinger         `optional:"true"`
	UnifiedCfg *config.Config `optional:"true"`
}

// Result 心跳模块输出
type Result struct {
	fx.Out

	Service   *Service
	KeepAlive pkgif.KeepAlive
}

// Module 返回心跳 Fx 模块
//
// 生命周期由节点组服务驱动：RUNNING 前 Initialize，STOPPING 时 Shutdown。
func Module() fx.Option {
	return fx.Module("keepalive",
		fx.Provide(ProvideService),
	)
}

// ProvideService 提供心跳服务，未注入 Pinger 时服务不会启动
func ProvideService(p Params) Result {
	cfg := config.DefaultKeepAliveConfig()
	if p.UnifiedCfg != nil {
		cfg = p.UnifiedCfg.KeepAlive
	}
	s := New(p.Node, p.Pinger, cfg)
	return Result{Service: s, KeepAlive: s}
}
