package peerbook

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-overlay/internal/core/storage/engine"
	pkgif "github.com/dep2p/go-overlay/pkg/interfaces"
)

// Result peerbook 模块输出
type Result struct {
	fx.Out

	Store       *Store
	Persistence pkgif.PeerPersistence
}

// Module 返回 peerbook Fx 模块
func Module() fx.Option {
	return fx.Module("peerbook",
		fx.Provide(ProvideStore),
	)
}

// ProvideStore 在存储引擎上提供节点集合存储
func ProvideStore(eng engine.Engine) Result {
	s := New(eng)
	return Result{Store: s, Persistence: s}
}
