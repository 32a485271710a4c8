package types

import "time"

// Capability 节点声明的能力
type Capability struct {
	// Address 节点对外宣告的地址
	Address Address `json:"address"`

	// Features 支持的特性标识
	Features []string `json:"features,omitempty"`
}

// Load 节点负载快照
type Load struct {
	NumConnections int `json:"numConnections"`
	NumMessages    int `json:"numMessages"`
}

// Peer 远端节点记录
//
// Peer 是不可变值：需要更新时构造新的 Peer 替换旧记录。
// 两个 Peer 地址相同即视为同一节点，与能力、负载快照无关。
type Peer struct {
	Capability Capability `json:"capability"`
	Load       Load       `json:"load"`
	FirstSeen  time.Time  `json:"firstSeen"`
	LastSeen   time.Time  `json:"lastSeen"`
}

// NewPeer 创建在 seen 时刻观察到的节点
func NewPeer(addr Address, seen time.Time) Peer {
	return Peer{
		Capability: Capability{Address: addr},
		FirstSeen:  seen,
		LastSeen:   seen,
	}
}

// Address 返回节点地址
func (p Peer) Address() Address {
	return p.Capability.Address
}

// Age 返回自最后一次观察以来经过的时间
func (p Peer) Age(now time.Time) time.Duration {
	return now.Sub(p.LastSeen)
}

// IsNewerThan 是否比 other 更晚被观察到
func (p Peer) IsNewerThan(other Peer) bool {
	return p.LastSeen.After(other.LastSeen)
}

// WithLastSeen 返回更新了 LastSeen 的副本
func (p Peer) WithLastSeen(t time.Time) Peer {
	p.LastSeen = t
	if p.FirstSeen.IsZero() {
		p.FirstSeen = t
	}
	return p
}

// PeerAddresses 提取地址列表，保持顺序
func PeerAddresses(peers []Peer) []Address {
	out := make([]Address, 0, len(peers))
	for _, p := range peers {
		out = append(out, p.Address())
	}
	return out
}
