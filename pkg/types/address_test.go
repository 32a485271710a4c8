package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		in   string
		want Address
	}{
		{"1.2.3.4:8000", Address{Host: "1.2.3.4", Port: 8000, Transport: TransportClear}},
		{"localhost:1", Address{Host: "localhost", Port: 1, Transport: TransportClear}},
		{"[::1]:9000", Address{Host: "::1", Port: 9000, Transport: TransportClear}},
		{"tor:abcdef.onion:9999", Address{Host: "abcdef.onion", Port: 9999, Transport: TransportTor}},
		{"abcdef.onion:9999", Address{Host: "abcdef.onion", Port: 9999, Transport: TransportTor}},
		{"i2p:xyz.b32.i2p:1234", Address{Host: "xyz.b32.i2p", Port: 1234, Transport: TransportI2P}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAddress(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			back, err := ParseAddress(got.String())
			require.NoError(t, err)
			assert.Equal(t, got, back, "String() 应可被 ParseAddress 还原")
		})
	}
}

func TestParseAddress_Invalid(t *testing.T) {
	for _, in := range []string{"", "nohost", ":80", "1.2.3.4:0", "1.2.3.4:70000", "1.2.3.4:abc"} {
		_, err := ParseAddress(in)
		assert.ErrorIs(t, err, ErrInvalidAddress, in)
	}
}

func TestAddress_Equality(t *testing.T) {
	a := NewAddress("1.2.3.4", 8000)
	b := NewAddress("1.2.3.4", 8000)
	c := Address{Host: "1.2.3.4", Port: 8000, Transport: TransportTor}

	assert.True(t, a == b)
	assert.False(t, a == c, "传输类型不同即为不同地址")
	assert.NotEqual(t, a.Key(), c.Key())
	assert.True(t, Address{}.IsZero())
	assert.False(t, a.IsZero())

	set := map[Address]struct{}{a: {}}
	_, ok := set[b]
	assert.True(t, ok)

	t.Log("✅ Address 可比较且可作为 map 键")
}

func TestParseTransportType(t *testing.T) {
	tr, err := ParseTransportType("TOR")
	require.NoError(t, err)
	assert.Equal(t, TransportTor, tr)

	_, err = ParseTransportType("carrier-pigeon")
	assert.ErrorIs(t, err, ErrUnknownTransport)
}
