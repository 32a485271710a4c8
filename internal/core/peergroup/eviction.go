package peergroup

import (
	"sort"

	pkgif "github.com/dep2p/go-overlay/pkg/interfaces"
)

// retention 淘汰时保留哪一端
type retention int

const (
	// keepNewest 保留最新建立的连接，关闭较早的
	keepNewest retention = iota
	// keepOldest 保留最早建立的连接，关闭较新的
	keepOldest
)

// ConnectionAgeLess 按建立时间升序比较，a 比 b 更早建立时返回 true
func ConnectionAgeLess(a, b pkgif.Connection) bool {
	return a.Metrics().Created.Before(b.Metrics().Created)
}

// SortByAge 返回按建立时间升序排列的副本，建立时间相同的保持原有顺序
func SortByAge(conns []pkgif.Connection) []pkgif.Connection {
	out := append([]pkgif.Connection(nil), conns...)
	sort.SliceStable(out, func(i, j int) bool { return ConnectionAgeLess(out[i], out[j]) })
	return out
}

// selectExcess 保留 keep 个连接，返回其余应关闭的连接
//
// 稳定排序后跳过前 keep 个，建立时间相同的连接按到达顺序处理。
func selectExcess(conns []pkgif.Connection, keep int, r retention) []pkgif.Connection {
	if keep < 0 {
		keep = 0
	}
	if len(conns) <= keep {
		return nil
	}

	var sorted []pkgif.Connection
	if r == keepOldest {
		sorted = SortByAge(conns)
	} else {
		sorted = append([]pkgif.Connection(nil), conns...)
		sort.SliceStable(sorted, func(i, j int) bool { return ConnectionAgeLess(sorted[j], sorted[i]) })
	}
	return sorted[keep:]
}
