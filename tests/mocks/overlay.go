package mocks

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	pkgif "github.com/dep2p/go-overlay/pkg/interfaces"
	"github.com/dep2p/go-overlay/pkg/types"
)

// ============================================================================
//                              MockConnection
// ============================================================================

// MockConnection 模拟 Connection 接口实现
type MockConnection struct {
	mu sync.Mutex

	IDValue      string
	Dir          types.Direction
	Addr         types.Address
	MetricsValue types.ConnectionMetrics
	Running      bool
	Verified     bool

	// 可覆盖的方法
	IsRunningFunc func() bool
}

var _ pkgif.Connection = (*MockConnection)(nil)

// NewMockConnection 创建运行中的 MockConnection
func NewMockConnection(id string, dir types.Direction, addr types.Address, created time.Time) *MockConnection {
	return &MockConnection{
		IDValue:      id,
		Dir:          dir,
		Addr:         addr,
		MetricsValue: types.ConnectionMetrics{Created: created, LastActivity: created},
		Running:      true,
	}
}

// ID 返回连接标识
func (m *MockConnection) ID() string { return m.IDValue }

// Direction 返回连接方向
func (m *MockConnection) Direction() types.Direction { return m.Dir }

// PeerAddress 返回对端地址
func (m *MockConnection) PeerAddress() types.Address { return m.Addr }

// Metrics 返回连接指标
func (m *MockConnection) Metrics() types.ConnectionMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.MetricsValue
}

// SetLastActivity 更新最后活动时间
func (m *MockConnection) SetLastActivity(t time.Time) {
	m.mu.Lock()
	m.MetricsValue.LastActivity = t
	m.mu.Unlock()
}

// IsRunning 连接是否运行中
func (m *MockConnection) IsRunning() bool {
	if m.IsRunningFunc != nil {
		return m.IsRunningFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Running
}

// SetRunning 设置运行状态
func (m *MockConnection) SetRunning(running bool) {
	m.mu.Lock()
	m.Running = running
	m.mu.Unlock()
}

// IsPeerAddressVerified 对端地址是否已验证
func (m *MockConnection) IsPeerAddressVerified() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Verified
}

// SetVerified 设置验证标记
func (m *MockConnection) SetVerified(v bool) {
	m.mu.Lock()
	m.Verified = v
	m.mu.Unlock()
}

// ============================================================================
//                              MockNode
// ============================================================================

// CloseCall 一次关闭请求的记录
type CloseCall struct {
	Conn     pkgif.Connection
	Reason   types.CloseReason
	Graceful bool
}

// MockNode 模拟 Node 接口实现
//
// 关闭连接时把 MockConnection 标记为停止并从列表移除。
type MockNode struct {
	mu     sync.Mutex
	conns  []pkgif.Connection
	closes []CloseCall

	MyAddress  types.Address
	HasAddress bool

	// 可覆盖的方法
	CloseConnectionFunc func(conn pkgif.Connection, reason types.CloseReason) error
}

var _ pkgif.Node = (*MockNode)(nil)

// NewMockNode 创建 MockNode
func NewMockNode(conns ...pkgif.Connection) *MockNode {
	return &MockNode{conns: append([]pkgif.Connection(nil), conns...)}
}

// AddConnection 登记连接
func (m *MockNode) AddConnection(conns ...pkgif.Connection) {
	m.mu.Lock()
	m.conns = append(m.conns, conns...)
	m.mu.Unlock()
}

// AllConnections 返回连接快照
func (m *MockNode) AllConnections() []pkgif.Connection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]pkgif.Connection(nil), m.conns...)
}

// CloseConnection 关闭连接
func (m *MockNode) CloseConnection(conn pkgif.Connection, reason types.CloseReason) error {
	return m.close(conn, reason, false)
}

// CloseConnectionGracefully 优雅关闭连接
func (m *MockNode) CloseConnectionGracefully(conn pkgif.Connection, reason types.CloseReason) error {
	return m.close(conn, reason, true)
}

func (m *MockNode) close(conn pkgif.Connection, reason types.CloseReason, graceful bool) error {
	m.mu.Lock()
	m.closes = append(m.closes, CloseCall{Conn: conn, Reason: reason, Graceful: graceful})
	m.mu.Unlock()

	if m.CloseConnectionFunc != nil {
		if err := m.CloseConnectionFunc(conn, reason); err != nil {
			return err
		}
	}

	if mc, ok := conn.(*MockConnection); ok {
		mc.SetRunning(false)
	}
	m.mu.Lock()
	for i, c := range m.conns {
		if c == conn {
			m.conns = append(m.conns[:i], m.conns[i+1:]...)
			break
		}
	}
	m.mu.Unlock()
	return nil
}

// FindMyAddress 返回本节点地址
func (m *MockNode) FindMyAddress() (types.Address, bool) {
	return m.MyAddress, m.HasAddress
}

// Closes 返回关闭记录
func (m *MockNode) Closes() []CloseCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CloseCall(nil), m.closes...)
}

// ClosedIDs 返回被关闭的连接 ID，按关闭顺序
func (m *MockNode) ClosedIDs() []string {
	calls := m.Closes()
	out := make([]string, 0, len(calls))
	for _, c := range calls {
		out = append(out, c.Conn.ID())
	}
	return out
}

// ============================================================================
//                              MockValidator
// ============================================================================

// MockValidator 模拟 AddressValidator 接口实现
type MockValidator struct {
	mu         sync.Mutex
	inProgress map[string]bool

	// 可覆盖的方法
	StartFunc    func(ctx context.Context, conn pkgif.Connection) error
	ShutdownFunc func()

	// 调用记录
	StartCalls    atomic.Int32
	ShutdownCalls atomic.Int32
}

var _ pkgif.AddressValidator = (*MockValidator)(nil)

// NewMockValidator 创建 MockValidator
func NewMockValidator() *MockValidator {
	return &MockValidator{inProgress: make(map[string]bool)}
}

// SetInProgress 标记连接验证中
func (m *MockValidator) SetInProgress(conn pkgif.Connection, v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v {
		m.inProgress[conn.ID()] = true
	} else {
		delete(m.inProgress, conn.ID())
	}
}

// IsInProgress 连接是否验证中
func (m *MockValidator) IsInProgress(conn pkgif.Connection) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inProgress[conn.ID()]
}

// IsNotInProgress 连接是否不在验证中
func (m *MockValidator) IsNotInProgress(conn pkgif.Connection) bool {
	return !m.IsInProgress(conn)
}

// StartAddressValidationProtocol 发起验证
func (m *MockValidator) StartAddressValidationProtocol(ctx context.Context, conn pkgif.Connection) error {
	m.StartCalls.Add(1)
	if m.StartFunc != nil {
		return m.StartFunc(ctx, conn)
	}
	return nil
}

// Shutdown 关闭
func (m *MockValidator) Shutdown() {
	m.ShutdownCalls.Add(1)
	if m.ShutdownFunc != nil {
		m.ShutdownFunc()
	}
}

// ============================================================================
//                              MockExchanger
// ============================================================================

// MockExchanger 模拟 PeerExchanger 接口实现
type MockExchanger struct {
	// 可覆盖的方法
	InitialFunc  func(ctx context.Context) error
	FurtherFunc  func(ctx context.Context) error
	ShutdownFunc func()

	// 调用记录
	InitialCalls  atomic.Int32
	FurtherCalls  atomic.Int32
	ShutdownCalls atomic.Int32
}

var _ pkgif.PeerExchanger = (*MockExchanger)(nil)

// DoInitialPeerExchange 首轮交换
func (m *MockExchanger) DoInitialPeerExchange(ctx context.Context) error {
	m.InitialCalls.Add(1)
	if m.InitialFunc != nil {
		return m.InitialFunc(ctx)
	}
	return nil
}

// DoFurtherPeerExchange 增量交换
func (m *MockExchanger) DoFurtherPeerExchange(ctx context.Context) error {
	m.FurtherCalls.Add(1)
	if m.FurtherFunc != nil {
		return m.FurtherFunc(ctx)
	}
	return nil
}

// Shutdown 关闭
func (m *MockExchanger) Shutdown() {
	m.ShutdownCalls.Add(1)
	if m.ShutdownFunc != nil {
		m.ShutdownFunc()
	}
}

// ============================================================================
//                              MockKeepAlive
// ============================================================================

// MockKeepAlive 模拟 KeepAlive 接口实现
type MockKeepAlive struct {
	// 可覆盖的方法
	ShutdownFunc func()

	// 调用记录
	InitializeCalls atomic.Int32
	ShutdownCalls   atomic.Int32
}

var _ pkgif.KeepAlive = (*MockKeepAlive)(nil)

// Initialize 开始探测
func (m *MockKeepAlive) Initialize() { m.InitializeCalls.Add(1) }

// Shutdown 停止探测
func (m *MockKeepAlive) Shutdown() {
	m.ShutdownCalls.Add(1)
	if m.ShutdownFunc != nil {
		m.ShutdownFunc()
	}
}

// ============================================================================
//                              MockPersistence
// ============================================================================

// MockPersistence 模拟 PeerPersistence 接口实现
type MockPersistence struct {
	mu    sync.Mutex
	peers []types.Peer

	// 可覆盖的方法
	LoadFunc func(ctx context.Context) ([]types.Peer, error)
	SaveFunc func(ctx context.Context, peers []types.Peer) error

	// 调用记录
	SaveCalls atomic.Int32
}

var _ pkgif.PeerPersistence = (*MockPersistence)(nil)

// NewMockPersistence 创建预置了 peers 的 MockPersistence
func NewMockPersistence(peers ...types.Peer) *MockPersistence {
	return &MockPersistence{peers: append([]types.Peer(nil), peers...)}
}

// Load 读取
func (m *MockPersistence) Load(ctx context.Context) ([]types.Peer, error) {
	if m.LoadFunc != nil {
		return m.LoadFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.Peer(nil), m.peers...), nil
}

// Save 保存
func (m *MockPersistence) Save(ctx context.Context, peers []types.Peer) error {
	m.SaveCalls.Add(1)
	if m.SaveFunc != nil {
		if err := m.SaveFunc(ctx, peers); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.peers = append([]types.Peer(nil), peers...)
	m.mu.Unlock()
	return nil
}

// Saved 返回最近一次保存的集合
func (m *MockPersistence) Saved() []types.Peer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.Peer(nil), m.peers...)
}
