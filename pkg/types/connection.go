package types

import "time"

// ConnectionMetrics 连接指标快照
type ConnectionMetrics struct {
	// Created 连接建立时间
	Created time.Time

	// LastActivity 最后一次收发消息的时间
	LastActivity time.Time

	// RTT 最近一次测得的往返时延
	RTT time.Duration
}

// Age 返回连接存活时长
func (m ConnectionMetrics) Age(now time.Time) time.Duration {
	return now.Sub(m.Created)
}

// Idle 返回连接空闲时长
//
// 从未有过活动的连接以建立时间计算。
func (m ConnectionMetrics) Idle(now time.Time) time.Duration {
	last := m.LastActivity
	if last.IsZero() {
		last = m.Created
	}
	return now.Sub(last)
}
