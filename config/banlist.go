package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/dep2p/go-overlay/pkg/types"
)

// BanListConfig 封禁列表配置
type BanListConfig struct {
	// MaxTemporary 临时封禁条目上限，超出时淘汰最久未使用的条目
	MaxTemporary int `json:"max_temporary"`

	// MaxTemporaryDuration 临时封禁的最长时长，更长的请求被截断
	MaxTemporaryDuration Duration `json:"max_temporary_duration"`

	// Banned 启动时加载的永久封禁地址
	Banned []string `json:"banned,omitempty"`
}

// DefaultBanListConfig 返回默认封禁列表配置
func DefaultBanListConfig() BanListConfig {
	return BanListConfig{
		MaxTemporary:         1024,
		MaxTemporaryDuration: Duration(24 * time.Hour),
	}
}

// Validate 验证封禁列表配置
func (c BanListConfig) Validate() error {
	if c.MaxTemporary <= 0 {
		return errors.New("banlist: max_temporary must be positive")
	}
	if c.MaxTemporaryDuration <= 0 {
		return errors.New("banlist: max_temporary_duration must be positive")
	}
	for _, s := range c.Banned {
		if _, err := types.ParseAddress(s); err != nil {
			return fmt.Errorf("banlist: %q: %w", s, err)
		}
	}
	return nil
}
