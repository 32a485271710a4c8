package interfaces

import (
	"context"

	"github.com/dep2p/go-overlay/pkg/types"
)

// PeerPersistence 持久化节点集合的存储边界
//
// 持久化节点集合是成员管理核心唯一的持久状态。
type PeerPersistence interface {
	// Load 读取上次保存的节点集合
	Load(ctx context.Context) ([]types.Peer, error)

	// Save 用 peers 整体替换已保存的集合
	Save(ctx context.Context, peers []types.Peer) error
}
