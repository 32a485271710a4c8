package peergroup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-overlay/pkg/types"
	"github.com/dep2p/go-overlay/tests/mocks"
)

// TestPersister_Coalesces 保存期间的多次变更只触发一次后续保存
func TestPersister_Coalesces(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	store := mocks.NewMockPersistence()
	store.SaveFunc = func(context.Context, []types.Peer) error {
		once.Do(func() { close(entered) })
		<-release
		return nil
	}

	g, err := NewPeerGroup(mocks.NewMockNode(), testConfig(), nil, store)
	require.NoError(t, err)

	now := time.Now()
	g.AddPersistedPeers([]types.Peer{peerAt("p0", now)})
	<-entered

	for _, p := range peersN("q", 5, now) {
		g.AddPersistedPeers([]types.Peer{p})
	}
	close(release)

	require.NoError(t, g.Flush(context.Background()))
	assert.Equal(t, int32(2), store.SaveCalls.Load())
	assert.Len(t, store.Saved(), 6, "最后一次保存包含全部变更")

	t.Log("✅ 合并保存正确")
}

func TestPersister_FlushReportsError(t *testing.T) {
	errDisk := errors.New("disk full")
	store := mocks.NewMockPersistence()
	store.SaveFunc = func(context.Context, []types.Peer) error { return errDisk }

	g, err := NewPeerGroup(mocks.NewMockNode(), testConfig(), nil, store)
	require.NoError(t, err)

	g.AddPersistedPeers([]types.Peer{peerAt("a", time.Now())})
	assert.ErrorIs(t, g.Flush(context.Background()), errDisk)
	assert.Equal(t, 1, g.NumPersistedPeers(), "内存中的变更不受保存失败影响")
}

func TestPersister_NoStore(t *testing.T) {
	g, err := NewPeerGroup(mocks.NewMockNode(), testConfig(), nil, nil)
	require.NoError(t, err)
	g.AddPersistedPeers([]types.Peer{peerAt("a", time.Now())})
	g.RestorePersistedPeers(context.Background())
	assert.NoError(t, g.Flush(context.Background()))
}
