package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewConfig 测试默认配置有效
func TestNewConfig(t *testing.T) {
	cfg := NewConfig()
	require.NotNil(t, cfg)
	assert.NoError(t, cfg.Validate())

	pg := cfg.PeerGroup
	assert.Equal(t, 8, pg.MinNumConnectedPeers)
	assert.Equal(t, 12, pg.MaxNumConnectedPeers)
	assert.Equal(t, 500, pg.MaxReported)
	assert.Equal(t, 500, pg.MaxPersisted)
	assert.Equal(t, 20*time.Second, pg.BootstrapTime.Duration())

	t.Log("✅ NewConfig 测试通过")
}

// TestPeerGroupConfig_Validate 测试连接数上下限约束
func TestPeerGroupConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*PeerGroupConfig)
		wantErr bool
	}{
		{"default", func(*PeerGroupConfig) {}, false},
		{"min equals max", func(c *PeerGroupConfig) { c.MinNumConnectedPeers, c.MaxNumConnectedPeers = 5, 5 }, false},
		{"zero min", func(c *PeerGroupConfig) { c.MinNumConnectedPeers = 0 }, true},
		{"negative min", func(c *PeerGroupConfig) { c.MinNumConnectedPeers = -1 }, true},
		{"max below min", func(c *PeerGroupConfig) { c.MinNumConnectedPeers, c.MaxNumConnectedPeers = 6, 5 }, true},
		{"zero interval", func(c *PeerGroupConfig) { c.Interval = 0 }, true},
		{"negative max age", func(c *PeerGroupConfig) { c.MaxAge = Duration(-time.Second) }, true},
		{"negative ceiling", func(c *PeerGroupConfig) { c.MaxPersisted = -1 }, true},
		{"probability above one", func(c *PeerGroupConfig) { c.VerifyProbability = 1.5 }, true},
		{"no attempts", func(c *PeerGroupConfig) { c.InitialExchangeAttempts = 0 }, true},
		{"bad seed", func(c *PeerGroupConfig) { c.Seeds = []string{"not-an-address"} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultPeerGroupConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// TestPeerGroupConfig_SeedAddresses 测试种子地址解析
func TestPeerGroupConfig_SeedAddresses(t *testing.T) {
	cfg := DefaultPeerGroupConfig().WithSeeds("1.2.3.4:8000", "tor:seed.onion:1000")
	require.NoError(t, cfg.Validate())

	addrs := cfg.SeedAddresses()
	require.Len(t, addrs, 2)
	assert.Equal(t, "1.2.3.4", addrs[0].Host)
	assert.Equal(t, "seed.onion", addrs[1].Host)
}

// TestFromJSON 测试 JSON 覆盖默认值
func TestFromJSON(t *testing.T) {
	data := []byte(`{
		"peer_group": {"min_num_connected_peers": 3, "max_num_connected_peers": 6, "bootstrap_time": "5s"},
		"storage": {"data_dir": "/tmp/overlay"}
	}`)

	cfg, err := FromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.PeerGroup.MinNumConnectedPeers)
	assert.Equal(t, 6, cfg.PeerGroup.MaxNumConnectedPeers)
	assert.Equal(t, 5*time.Second, cfg.PeerGroup.BootstrapTime.Duration())
	assert.Equal(t, 500, cfg.PeerGroup.MaxReported, "未指定的字段保留默认值")
	assert.Equal(t, "/tmp/overlay", cfg.Storage.DataDir)

	_, err = FromJSON([]byte(`{"peer_group": {"min_num_connected_peers": 0}}`))
	assert.Error(t, err)

	_, err = FromJSON([]byte(`{"peer_group": {"interval": "soon"}}`))
	assert.Error(t, err)

	t.Log("✅ FromJSON 测试通过")
}

// TestSaveAndLoadFile 测试配置文件往返
func TestSaveAndLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overlay.json")

	cfg := NewConfig()
	cfg.PeerGroup.MaxSeeds = 7
	require.NoError(t, cfg.SaveFile(path))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.PeerGroup.MaxSeeds)
	assert.Equal(t, cfg.PeerGroup.Interval, loaded.PeerGroup.Interval)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

// TestDuration_JSON 测试 Duration 两种输入格式
func TestDuration_JSON(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalJSON([]byte(`"1m30s"`)))
	assert.Equal(t, 90*time.Second, d.Duration())

	require.NoError(t, d.UnmarshalJSON([]byte(`1000000000`)))
	assert.Equal(t, time.Second, d.Duration())

	assert.Error(t, d.UnmarshalJSON([]byte(`"later"`)))
	assert.Error(t, d.UnmarshalJSON([]byte(`true`)))

	out, err := Duration(2 * time.Hour).MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"2h0m0s"`, string(out))
}
