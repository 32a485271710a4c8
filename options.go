package overlay

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-overlay/config"
	"github.com/dep2p/go-overlay/internal/core/addrvalid"
	"github.com/dep2p/go-overlay/internal/core/keepalive"
	"github.com/dep2p/go-overlay/internal/core/peergroup/exchange"
	pkgif "github.com/dep2p/go-overlay/pkg/interfaces"
	"github.com/dep2p/go-overlay/pkg/types"
)

// Option 配置选项
type Option func(*options) error

// options 内部选项
type options struct {
	config     *config.Config
	configFile string

	node       pkgif.Node
	prover     addrvalid.Prover
	requester  exchange.Requester
	pinger     keepalive.Pinger
	registerer prometheus.Registerer

	seeds   []string
	dataDir string
	logFile string

	fxOptions []fx.Option
}

// resolveConfig 合并配置来源
//
// 优先级：WithConfig > WithConfigFile > 默认配置；之后叠加 WithSeeds、WithDataDir、WithLogFile。
func (o *options) resolveConfig() (*config.Config, error) {
	cfg := config.NewConfig()
	switch {
	case o.config != nil:
		copied := *o.config
		copied.PeerGroup.Seeds = append([]string(nil), o.config.PeerGroup.Seeds...)
		copied.BanList.Banned = append([]string(nil), o.config.BanList.Banned...)
		cfg = &copied
	case o.configFile != "":
		loaded, err := config.LoadFile(o.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	cfg.PeerGroup.Seeds = append(cfg.PeerGroup.Seeds, o.seeds...)
	if o.dataDir != "" {
		cfg.Storage.DataDir = o.dataDir
	}
	if o.logFile != "" {
		cfg.Log.File = o.logFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WithConfig 使用完整配置
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return errors.New("overlay: nil config")
		}
		o.config = cfg
		return nil
	}
}

// WithConfigFile 从 JSON 文件加载配置
func WithConfigFile(path string) Option {
	return func(o *options) error {
		if path == "" {
			return errors.New("overlay: empty config path")
		}
		o.configFile = path
		return nil
	}
}

// WithNode 指定传输层节点（必需）
func WithNode(node pkgif.Node) Option {
	return func(o *options) error {
		o.node = node
		return nil
	}
}

// WithProver 指定地址证明实现
func WithProver(p addrvalid.Prover) Option {
	return func(o *options) error {
		o.prover = p
		return nil
	}
}

// WithRequester 指定节点交换线路协议
func WithRequester(r exchange.Requester) Option {
	return func(o *options) error {
		o.requester = r
		return nil
	}
}

// WithPinger 指定心跳实现，未指定时不启动心跳
func WithPinger(p keepalive.Pinger) Option {
	return func(o *options) error {
		o.pinger = p
		return nil
	}
}

// WithRegisterer 指定指标注册器
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) error {
		o.registerer = reg
		return nil
	}
}

// WithSeeds 追加种子地址
//
// 示例:
//
//	overlay.New(overlay.WithSeeds("1.2.3.4:8000", "tor:abc.onion:9999"))
func WithSeeds(seeds ...string) Option {
	return func(o *options) error {
		for _, s := range seeds {
			if _, err := types.ParseAddress(s); err != nil {
				return fmt.Errorf("overlay: seed: %w", err)
			}
		}
		o.seeds = append(o.seeds, seeds...)
		return nil
	}
}

// WithDataDir 指定数据目录
func WithDataDir(dir string) Option {
	return func(o *options) error {
		if dir == "" {
			return errors.New("overlay: empty data dir")
		}
		o.dataDir = dir
		return nil
	}
}

// WithLogFile 将日志输出重定向到指定文件
func WithLogFile(path string) Option {
	return func(o *options) error {
		if path == "" {
			return errors.New("overlay: empty log file path")
		}
		o.logFile = path
		return nil
	}
}

// WithFxOption 追加自定义 Fx 选项
func WithFxOption(opts ...fx.Option) Option {
	return func(o *options) error {
		o.fxOptions = append(o.fxOptions, opts...)
		return nil
	}
}
