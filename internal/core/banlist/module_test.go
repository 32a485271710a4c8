package banlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-overlay/config"
	pkgif "github.com/dep2p/go-overlay/pkg/interfaces"
	"github.com/dep2p/go-overlay/pkg/types"
)

func TestModule_StaticBans(t *testing.T) {
	cfg := config.NewConfig()
	cfg.BanList.Banned = []string{"6.6.6.6:666"}

	var bl pkgif.BanList
	app := fxtest.New(t,
		fx.Supply(cfg),
		Module(),
		fx.Populate(&bl),
	)
	app.RequireStart()
	defer app.RequireStop()

	assert.True(t, bl.IsBanned(types.NewAddress("6.6.6.6", 666)))
	assert.False(t, bl.IsBanned(types.NewAddress("7.7.7.7", 777)))
}
