package interfaces

// KeepAlive 心跳协作方
type KeepAlive interface {
	// Initialize 开始周期性探测空闲连接
	Initialize()

	// Shutdown 停止探测
	Shutdown()
}
