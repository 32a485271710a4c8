package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-overlay/config"
	"github.com/dep2p/go-overlay/internal/core/storage/engine"
	"github.com/dep2p/go-overlay/internal/core/storage/kv"
)

func TestModule_Lifecycle(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Storage.DataDir = t.TempDir()

	var eng engine.Engine
	var storageCfg Config

	app := fxtest.New(t,
		fx.Supply(cfg),
		Module(),
		fx.Populate(&eng, &storageCfg),
	)
	app.RequireStart()

	assert.Equal(t, cfg.Storage.DBPath(), storageCfg.Path)

	store := kv.New(eng, []byte("t/"))
	require.NoError(t, store.Put([]byte("k"), []byte("v")))
	ok, err := store.Has([]byte("k"))
	require.NoError(t, err)
	assert.True(t, ok)

	app.RequireStop()

	_, err = eng.Has([]byte("t/k"))
	assert.True(t, engine.IsClosed(err), "OnStop 后引擎已关闭")

	t.Log("✅ 存储模块生命周期正确")
}

func TestConfigFromUnified_Nil(t *testing.T) {
	cfg := ConfigFromUnified(nil)
	assert.Equal(t, config.NewConfig().Storage.DBPath(), cfg.Path)
}
