package banlist

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"github.com/dep2p/go-overlay/config"
	"github.com/dep2p/go-overlay/internal/core/storage/engine"
	pkgif "github.com/dep2p/go-overlay/pkg/interfaces"
	"github.com/dep2p/go-overlay/pkg/types"
)

// Params 封禁列表模块依赖
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
	Engine     engine.Engine  `optional:"true"`
}

// Result 封禁列表模块输出
type Result struct {
	fx.Out

	BanList   *BanList
	Interface pkgif.BanList
}

// Module 返回封禁列表 Fx 模块
func Module() fx.Option {
	return fx.Module("banlist",
		fx.Provide(ProvideBanList),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideBanList 提供封禁列表
func ProvideBanList(p Params) Result {
	cfg := config.DefaultBanListConfig()
	if p.UnifiedCfg != nil {
		cfg = p.UnifiedCfg.BanList
	}
	b := New(cfg.MaxTemporary,
		WithStore(p.Engine),
		WithMaxDuration(cfg.MaxTemporaryDuration.Duration()))
	return Result{BanList: b, Interface: b}
}

type lifecycleInput struct {
	fx.In

	LC         fx.Lifecycle
	BanList    *BanList
	UnifiedCfg *config.Config `optional:"true"`
}

// registerLifecycle 启动时恢复永久封禁并应用配置中的静态封禁
func registerLifecycle(in lifecycleInput) {
	in.LC.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			if err := in.BanList.Load(); err != nil {
				return err
			}
			if in.UnifiedCfg == nil {
				return nil
			}
			for _, s := range in.UnifiedCfg.BanList.Banned {
				addr, err := types.ParseAddress(s)
				if err != nil {
					return fmt.Errorf("banlist: %w", err)
				}
				if in.BanList.IsBanned(addr) {
					continue
				}
				if err := in.BanList.Ban(addr, "config"); err != nil {
					return err
				}
			}
			return nil
		},
	})
}
