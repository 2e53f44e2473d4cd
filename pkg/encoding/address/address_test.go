package address

import (
	"testing"

	"github.com/compactmint/compactmint/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUint160DecodeEncodeAddress(t *testing.T) {
	u := util.RipemdHash160([]byte("some account"))
	addr := Uint160ToString(u)
	decoded, err := StringToUint160(addr)
	require.NoError(t, err)
	assert.Equal(t, u, decoded)
}

func TestDecodeKnownAddress(t *testing.T) {
	for _, bad := range []string{
		"",
		"z",
		"AJtWeLbWvnfMEPQJuZhHTH8sMJt2rmKLPv!", // bad character
	} {
		_, err := StringToUint160(bad)
		require.Error(t, err, bad)
	}
}

func TestParseOrUint160(t *testing.T) {
	u := util.RipemdHash160([]byte("account"))

	fromAddr, err := ParseOrUint160(Uint160ToString(u))
	require.NoError(t, err)
	assert.Equal(t, u, fromAddr)

	fromHex, err := ParseOrUint160(u.StringBE())
	require.NoError(t, err)
	assert.Equal(t, u, fromHex)

	_, err = ParseOrUint160("not-an-account")
	require.Error(t, err)
}
