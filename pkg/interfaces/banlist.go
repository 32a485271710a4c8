package interfaces

import "github.com/dep2p/go-overlay/pkg/types"

// BanList 封禁列表
type BanList interface {
	// IsBanned 地址当前是否被封禁
	IsBanned(addr types.Address) bool
}
