package types

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// ============================================================================
//                              TransportType - 传输类型
// ============================================================================

// TransportType 地址所属的传输网络
//
// 对成员管理逻辑而言地址是不透明的，传输类型只参与相等比较与展示。
type TransportType int

const (
	// TransportClear 明网 TCP
	TransportClear TransportType = iota
	// TransportTor Tor 隐藏服务
	TransportTor
	// TransportI2P I2P 目的地
	TransportI2P
)

// String 返回传输类型的字符串表示
func (t TransportType) String() string {
	switch t {
	case TransportClear:
		return "clear"
	case TransportTor:
		return "tor"
	case TransportI2P:
		return "i2p"
	default:
		return "unknown"
	}
}

// ParseTransportType 解析传输类型名称
func ParseTransportType(s string) (TransportType, error) {
	switch strings.ToLower(s) {
	case "clear", "clearnet", "tcp", "":
		return TransportClear, nil
	case "tor":
		return TransportTor, nil
	case "i2p":
		return TransportI2P, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownTransport, s)
	}
}

// ============================================================================
//                              Address - 节点地址
// ============================================================================

// Address 节点地址
//
// 由 host/port/transport 三元组构成，可直接用 == 比较，
// 也可以作为 map 的键。
type Address struct {
	Host      string        `json:"host"`
	Port      int           `json:"port"`
	Transport TransportType `json:"transport"`
}

// NewAddress 创建明网地址
func NewAddress(host string, port int) Address {
	return Address{Host: host, Port: port, Transport: TransportClear}
}

// ParseAddress 解析地址字符串
//
// 支持的格式:
//   - "1.2.3.4:8000"           明网
//   - "tor:abc.onion:9999"     Tor
//   - "i2p:xyz.b32.i2p:1234"   I2P
//
// 没有 scheme 前缀且 host 以 .onion 结尾时按 Tor 处理。
func ParseAddress(s string) (Address, error) {
	transport := TransportClear
	rest := s
	for _, t := range []TransportType{TransportClear, TransportTor, TransportI2P} {
		if prefix := t.String() + ":"; strings.HasPrefix(strings.ToLower(s), prefix) {
			transport = t
			rest = s[len(prefix):]
			break
		}
	}

	host, portStr, err := net.SplitHostPort(rest)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, s, err)
	}
	if host == "" {
		return Address{}, fmt.Errorf("%w: %q: empty host", ErrInvalidAddress, s)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return Address{}, fmt.Errorf("%w: %q: bad port", ErrInvalidAddress, s)
	}
	if transport == TransportClear && strings.HasSuffix(host, ".onion") {
		transport = TransportTor
	}

	return Address{Host: host, Port: port, Transport: transport}, nil
}

// String 返回地址的字符串形式，可被 ParseAddress 还原
func (a Address) String() string {
	hp := net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
	if a.Transport == TransportClear {
		return hp
	}
	return a.Transport.String() + ":" + hp
}

// Key 返回用于存储的规范键
//
// 与 String 相同，但总是带传输前缀，避免不同网络的同名地址冲突。
func (a Address) Key() string {
	return a.Transport.String() + ":" + net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// IsZero 是否为零值地址
func (a Address) IsZero() bool {
	return a == Address{}
}
