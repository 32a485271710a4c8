// Package banlist 实现地址封禁列表
//
// 两类封禁：
//   - 永久封禁：写入 KV 存储（b/ 前缀），重启后由 Load 恢复
//   - 临时封禁：保存在带过期时间的 LRU 中，到期自动解除，不落盘
//
// 维护周期的 closeBanned 步骤通过 IsBanned 判断连接是否需要立即关闭。
package banlist

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/dep2p/go-overlay/internal/core/storage/engine"
	"github.com/dep2p/go-overlay/internal/core/storage/kv"
	pkgif "github.com/dep2p/go-overlay/pkg/interfaces"
	"github.com/dep2p/go-overlay/pkg/lib/log"
	"github.com/dep2p/go-overlay/pkg/types"
)

var logger = log.Logger("core/banlist")

// KeyPrefix 永久封禁的键前缀
var KeyPrefix = []byte("b/")

// DefaultMaxDuration 临时封禁的默认最长时长
const DefaultMaxDuration = 24 * time.Hour

// ErrInvalidDuration 临时封禁时长无效
var ErrInvalidDuration = errors.New("banlist: ban duration must be positive")

// Entry 封禁条目
type Entry struct {
	Address types.Address `json:"address"`
	Reason  string        `json:"reason,omitempty"`
	Since   time.Time     `json:"since"`

	// Until 临时封禁的到期时间，永久封禁为零值
	Until time.Time `json:"until,omitempty"`
}

// Permanent 是否为永久封禁
func (e Entry) Permanent() bool {
	return e.Until.IsZero()
}

// BanList 封禁列表
type BanList struct {
	mu        sync.RWMutex
	permanent map[types.Address]Entry

	// temporary 的条目各自携带到期时间；LRU 的 TTL 等于 maxDuration，
	// 过期条目由 LRU 在后台清理
	temporary   *expirable.LRU[types.Address, Entry]
	maxDuration time.Duration

	store *kv.Store
	clock clock.Clock
}

var _ pkgif.BanList = (*BanList)(nil)

// Option 封禁列表选项
type Option func(*BanList)

// WithClock 指定时钟
func WithClock(c clock.Clock) Option {
	return func(b *BanList) { b.clock = c }
}

// WithMaxDuration 指定临时封禁的最长时长
func WithMaxDuration(d time.Duration) Option {
	return func(b *BanList) {
		if d > 0 {
			b.maxDuration = d
		}
	}
}

// WithStore 指定永久封禁的存储引擎，未指定时永久封禁只保存在内存
func WithStore(eng engine.Engine) Option {
	return func(b *BanList) {
		if eng != nil {
			b.store = kv.New(eng, KeyPrefix)
		}
	}
}

// New 创建封禁列表
//
// maxTemporary 为临时封禁条目上限，超出时淘汰最久未访问的条目。
func New(maxTemporary int, opts ...Option) *BanList {
	if maxTemporary <= 0 {
		maxTemporary = 1024
	}
	b := &BanList{
		permanent:   make(map[types.Address]Entry),
		maxDuration: DefaultMaxDuration,
		clock:       clock.New(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.temporary = expirable.NewLRU[types.Address, Entry](maxTemporary, nil, b.maxDuration)
	return b
}

// Load 从存储恢复永久封禁
func (b *BanList) Load() error {
	if b.store == nil {
		return nil
	}

	loaded := make(map[types.Address]Entry)
	err := b.store.PrefixScan(nil, func(_, value []byte) bool {
		var e Entry
		if err := json.Unmarshal(value, &e); err != nil {
			logger.Warn("跳过损坏的封禁记录", "error", err)
			return true
		}
		loaded[e.Address] = e
		return true
	})
	if err != nil {
		return fmt.Errorf("banlist: load: %w", err)
	}

	b.mu.Lock()
	for addr, e := range loaded {
		b.permanent[addr] = e
	}
	b.mu.Unlock()

	logger.Debug("已加载永久封禁", "count", len(loaded))
	return nil
}

// Ban 永久封禁地址
func (b *BanList) Ban(addr types.Address, reason string) error {
	e := Entry{Address: addr, Reason: reason, Since: b.clock.Now()}

	if b.store != nil {
		if err := b.store.PutJSON([]byte(addr.Key()), e); err != nil {
			return fmt.Errorf("banlist: persist %s: %w", addr, err)
		}
	}

	b.mu.Lock()
	b.permanent[addr] = e
	b.mu.Unlock()
	b.temporary.Remove(addr)

	logger.Info("封禁地址", "peer", addr, "reason", reason)
	return nil
}

// BanFor 临时封禁地址，超过最长时长的 d 被截断
func (b *BanList) BanFor(addr types.Address, reason string, d time.Duration) error {
	if d <= 0 {
		return ErrInvalidDuration
	}
	d = min(d, b.maxDuration)
	now := b.clock.Now()
	b.temporary.Add(addr, Entry{Address: addr, Reason: reason, Since: now, Until: now.Add(d)})
	logger.Info("临时封禁地址", "peer", addr, "reason", reason, "duration", d)
	return nil
}

// Unban 解除封禁，地址未被封禁时不报错
func (b *BanList) Unban(addr types.Address) error {
	b.mu.Lock()
	_, ok := b.permanent[addr]
	delete(b.permanent, addr)
	b.mu.Unlock()
	b.temporary.Remove(addr)

	if b.store == nil {
		return nil
	}
	// 未 Load 时内存中没有记录，仍以存储为准
	key := []byte(addr.Key())
	persisted, err := b.store.Has(key)
	if err != nil {
		return fmt.Errorf("banlist: lookup %s: %w", addr, err)
	}
	if !persisted {
		return nil
	}
	if err := b.store.Delete(key); err != nil {
		return fmt.Errorf("banlist: delete %s: %w", addr, err)
	}
	if !ok {
		logger.Info("解除未加载的永久封禁", "peer", addr)
	}
	return nil
}

// IsBanned 地址当前是否被封禁
func (b *BanList) IsBanned(addr types.Address) bool {
	b.mu.RLock()
	_, ok := b.permanent[addr]
	b.mu.RUnlock()
	if ok {
		return true
	}

	e, ok := b.temporary.Get(addr)
	if !ok {
		return false
	}
	if !b.clock.Now().Before(e.Until) {
		b.temporary.Remove(addr)
		return false
	}
	return true
}

// List 返回当前有效的封禁条目，按地址排序
func (b *BanList) List() []Entry {
	now := b.clock.Now()

	b.mu.RLock()
	out := make([]Entry, 0, len(b.permanent))
	for _, e := range b.permanent {
		out = append(out, e)
	}
	b.mu.RUnlock()

	for _, e := range b.temporary.Values() {
		if now.Before(e.Until) {
			out = append(out, e)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Address.Key() < out[j].Address.Key()
	})
	return out
}

// Len 返回有效封禁数量
func (b *BanList) Len() int {
	return len(b.List())
}
