package badger

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-overlay/internal/core/storage/engine"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	cfg := engine.DefaultConfig(filepath.Join(t.TempDir(), "test.db"))
	eng, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, eng.Start())
	t.Cleanup(func() { _ = eng.Close() })
	return eng
}

// valueOf 通过前缀遍历读取单个键
func valueOf(t *testing.T, eng *Engine, key string) (string, bool) {
	t.Helper()
	var v string
	var found bool
	require.NoError(t, eng.PrefixScan([]byte(key), func(k, value []byte) bool {
		if string(k) == key {
			v, found = string(value), true
			return false
		}
		return true
	}))
	return v, found
}

func TestEngine_PutHasDelete(t *testing.T) {
	eng := newTestEngine(t)

	require.NoError(t, eng.Put([]byte("k"), []byte("v")))

	got, ok := valueOf(t, eng, "k")
	require.True(t, ok)
	assert.Equal(t, "v", got)

	ok, err := eng.Has([]byte("k"))
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, eng.Delete([]byte("k")))
	ok, err = eng.Has([]byte("k"))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, eng.Delete([]byte("k")), "删除不存在的键不报错")

	t.Log("✅ 基本读写正确")
}

func TestEngine_EmptyKey(t *testing.T) {
	eng := newTestEngine(t)

	assert.ErrorIs(t, eng.Put(nil, []byte("v")), engine.ErrEmptyKey)
	_, err := eng.Has(nil)
	assert.ErrorIs(t, err, engine.ErrEmptyKey)
}

func TestEngine_PrefixScan(t *testing.T) {
	eng := newTestEngine(t)

	for _, k := range []string{"a/1", "a/2", "a/3", "b/1"} {
		require.NoError(t, eng.Put([]byte(k), []byte(k)))
	}

	var keys []string
	require.NoError(t, eng.PrefixScan([]byte("a/"), func(k, _ []byte) bool {
		keys = append(keys, string(k))
		return true
	}))
	assert.Equal(t, []string{"a/1", "a/2", "a/3"}, keys)

	var first []string
	require.NoError(t, eng.PrefixScan([]byte("a/"), func(k, _ []byte) bool {
		first = append(first, string(k))
		return false
	}))
	assert.Equal(t, []string{"a/1"}, first, "回调返回 false 时停止")
}

func TestEngine_Batch(t *testing.T) {
	eng := newTestEngine(t)
	require.NoError(t, eng.Put([]byte("old"), []byte("x")))

	b := eng.NewBatch()
	b.Delete([]byte("old"))
	b.Put([]byte("n1"), []byte("1"))
	b.Put([]byte("n2"), []byte("2"))
	assert.Equal(t, 3, b.Size())

	ok, err := eng.Has([]byte("n1"))
	require.NoError(t, err)
	assert.False(t, ok, "提交前不可见")

	require.NoError(t, b.Write())
	assert.Equal(t, 0, b.Size())

	ok, _ = eng.Has([]byte("old"))
	assert.False(t, ok)
	v, found := valueOf(t, eng, "n2")
	require.True(t, found)
	assert.Equal(t, "2", v)
}

func TestEngine_Closed(t *testing.T) {
	cfg := engine.DefaultConfig(filepath.Join(t.TempDir(), "closed.db"))
	eng, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, eng.Close())
	require.NoError(t, eng.Close(), "重复关闭是安全的")

	assert.True(t, engine.IsClosed(eng.Put([]byte("k"), nil)))
	_, err = eng.Has([]byte("k"))
	assert.True(t, engine.IsClosed(err))
	assert.ErrorIs(t, eng.Start(), engine.ErrClosed)
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, engine.ErrInvalidConfig)

	_, err = New(&engine.Config{})
	assert.ErrorIs(t, err, engine.ErrInvalidConfig)
}
