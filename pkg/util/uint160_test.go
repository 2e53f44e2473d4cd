package util

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUint160DecodeString(t *testing.T) {
	hexStr := "2d3b96ae1bcc5a585e075e3b81920210dec16302"
	val, err := Uint160DecodeStringBE(hexStr)
	require.NoError(t, err)
	assert.Equal(t, hexStr, val.String())

	_, err = Uint160DecodeStringBE(hexStr[1:])
	assert.Error(t, err)

	hexStr = "0x" + hexStr
	val2, err := Uint160DecodeStringBE(hexStr)
	require.NoError(t, err)
	assert.Equal(t, val, val2)

	hexStr = hexStr[:len(hexStr)-1] + "q"
	_, err = Uint160DecodeStringBE(hexStr)
	assert.Error(t, err)
}

func TestUint160DecodeBytes(t *testing.T) {
	b := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20}
	val, err := Uint160DecodeBytesBE(b)
	require.NoError(t, err)
	assert.Equal(t, b, val.BytesBE())

	_, err = Uint160DecodeBytesBE(b[1:])
	assert.Error(t, err)
}

func TestUint160Equals(t *testing.T) {
	a := RipemdHash160([]byte("a"))
	b := RipemdHash160([]byte("b"))

	assert.False(t, a.Equals(b))
	assert.True(t, a.Equals(a))
	assert.False(t, a.IsZero())
	assert.True(t, Uint160{}.IsZero())
}

func TestUint160Less(t *testing.T) {
	a := Uint160{1}
	b := Uint160{2}

	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
	assert.False(t, a.Less(a))
}

func TestUint160MarshalJSON(t *testing.T) {
	str := "0x0263c1de100292813b7e075e585acc1bae963b2d"
	expected, err := Uint160DecodeStringBE(str)
	require.NoError(t, err)

	// UnmarshalJSON decodes hex-strings prefixed by 0x.
	var u Uint160
	require.NoError(t, u.UnmarshalJSON([]byte(`"`+str+`"`)))
	assert.True(t, expected.Equals(u))

	s, err := expected.MarshalJSON()
	require.NoError(t, err)

	// UnmarshalJSON decodes hex-strings.
	var u2 Uint160
	require.NoError(t, json.Unmarshal(s, &u2))
	assert.True(t, expected.Equals(u2))
}
