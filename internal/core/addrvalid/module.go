package addrvalid

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-overlay/config"
	pkgif "github.com/dep2p/go-overlay/pkg/interfaces"
)

// Params 地址验证模块依赖
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
	Prover     Prover         `optional:"true"`
}

// Result 地址验证模块输出
type Result struct {
	fx.Out

	Service   *Service
	Validator pkgif.AddressValidator
}

// Module 返回地址验证 Fx 模块
func Module() fx.Option {
	return fx.Module("addrvalid",
		fx.Provide(ProvideService),
	)
}

// ProvideService 提供地址验证服务
//
// 未注入 Prover 时所有验证直接通过，交给传输层自己的握手判断。
func ProvideService(p Params) Result {
	cfg := config.DefaultAddressValidationConfig()
	if p.UnifiedCfg != nil {
		cfg = p.UnifiedCfg.AddressValidation
	}
	prover := p.Prover
	if prover == nil {
		prover = ProverFunc(func(context.Context, pkgif.Connection) error { return nil })
	}
	s := New(prover, cfg)
	return Result{Service: s, Validator: s}
}
