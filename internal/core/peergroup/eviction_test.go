package peergroup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	pkgif "github.com/dep2p/go-overlay/pkg/interfaces"
	"github.com/dep2p/go-overlay/pkg/types"
	"github.com/dep2p/go-overlay/tests/mocks"
)

func ids(conns []pkgif.Connection) []string {
	out := make([]string, 0, len(conns))
	for _, c := range conns {
		out = append(out, c.ID())
	}
	return out
}

func TestSortByAge_StableTies(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	conns := []pkgif.Connection{
		mocks.NewMockConnection("new", types.DirInbound, addr("a"), t0.Add(time.Hour)),
		mocks.NewMockConnection("tie1", types.DirInbound, addr("b"), t0),
		mocks.NewMockConnection("tie2", types.DirInbound, addr("c"), t0),
	}

	assert.Equal(t, []string{"tie1", "tie2", "new"}, ids(SortByAge(conns)))
	assert.Equal(t, []string{"new", "tie1", "tie2"}, ids(conns), "不修改输入")
	assert.True(t, ConnectionAgeLess(conns[1], conns[0]))
}

func TestSelectExcess(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := mocks.NewMockConnection("a", types.DirOutbound, addr("a"), t0)
	b := mocks.NewMockConnection("b", types.DirOutbound, addr("b"), t0.Add(5*time.Minute))
	c := mocks.NewMockConnection("c", types.DirOutbound, addr("c"), t0.Add(9*time.Minute))
	conns := []pkgif.Connection{c, a, b}

	assert.Equal(t, []string{"c"}, ids(selectExcess(conns, 2, keepOldest)))
	assert.Equal(t, []string{"a"}, ids(selectExcess(conns, 2, keepNewest)))
	assert.Nil(t, selectExcess(conns, 3, keepNewest))
	assert.Len(t, selectExcess(conns, -1, keepNewest), 3)
}
