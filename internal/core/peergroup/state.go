package peergroup

import "fmt"

// State 服务状态
type State int

const (
	// StateNew 已创建，尚未启动
	StateNew State = iota
	// StateStarting 启动中（首轮节点交换）
	StateStarting
	// StateRunning 运行中
	StateRunning
	// StateStopping 停止中
	StateStopping
	// StateTerminated 已终止，不可重启
	StateTerminated
)

// String 返回状态名称
func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateStarting:
		return "STARTING"
	case StateRunning:
		return "RUNNING"
	case StateStopping:
		return "STOPPING"
	case StateTerminated:
		return "TERMINATED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}
