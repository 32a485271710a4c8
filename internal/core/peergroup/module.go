package peergroup

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-overlay/config"
	"github.com/dep2p/go-overlay/internal/core/peergroup/exchange"
	pkgif "github.com/dep2p/go-overlay/pkg/interfaces"
)

// GroupParams 节点组依赖
type GroupParams struct {
	fx.In

	Node        pkgif.Node
	BanList     pkgif.BanList         `optional:"true"`
	Persistence pkgif.PeerPersistence `optional:"true"`
	UnifiedCfg  *config.Config        `optional:"true"`
}

// GroupResult 节点组输出
type GroupResult struct {
	fx.Out

	Group         *PeerGroup
	ExchangeGroup exchange.Group
}

// ServiceParams 节点组服务依赖
type ServiceParams struct {
	fx.In

	Group      *PeerGroup
	Node       pkgif.Node
	Validator  pkgif.AddressValidator
	Exchanger  pkgif.PeerExchanger
	KeepAlive  pkgif.KeepAlive
	Registerer prometheus.Registerer `optional:"true"`
}

// Module 返回节点组 Fx 模块
func Module() fx.Option {
	return fx.Module("peergroup",
		fx.Provide(
			ProvidePeerGroup,
			ProvideService,
		),
		fx.Invoke(registerLifecycle),
	)
}

// ProvidePeerGroup 提供节点组
func ProvidePeerGroup(p GroupParams) (GroupResult, error) {
	g, err := NewPeerGroup(p.Node, ConfigFromUnified(p.UnifiedCfg), p.BanList, p.Persistence)
	if err != nil {
		return GroupResult{}, err
	}
	return GroupResult{Group: g, ExchangeGroup: g}, nil
}

// ProvideService 提供节点组服务
func ProvideService(p ServiceParams) (*Service, error) {
	return NewService(p.Group, p.Node, p.Validator, p.Exchanger, p.KeepAlive,
		p.Group.Config(), WithRegisterer(p.Registerer))
}

func registerLifecycle(lc fx.Lifecycle, s *Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := s.Start(ctx); err != nil {
				// 启动失败时 fx 不会调用本 hook 的 OnStop
				_ = s.Shutdown(context.WithoutCancel(ctx))
				return err
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return s.Shutdown(ctx)
		},
	})
}
