// Package address implements conversion of accounts between their
// Uint160 form and the human-readable base58Check representation used
// in configs, CLI parameters and RPC payloads.
package address

import (
	"errors"

	"github.com/compactmint/compactmint/pkg/encoding/base58"
	"github.com/compactmint/compactmint/pkg/util"
)

// Prefix is the byte used to prepend to addresses when encoding them,
// it distinguishes ledger account addresses from other base58-encoded
// material.
const Prefix = 0x17

// Uint160ToString returns the "ledger address" from the given Uint160.
func Uint160ToString(u util.Uint160) string {
	// Don't forget to prepend the address version.
	b := append([]byte{Prefix}, u.BytesBE()...)
	return base58.CheckEncode(b)
}

// StringToUint160 attempts to decode the given address string
// into a Uint160.
func StringToUint160(s string) (u util.Uint160, err error) {
	b, err := base58.CheckDecode(s)
	if err != nil {
		return u, err
	}
	if b[0] != Prefix {
		return u, errors.New("wrong address prefix")
	}
	return util.Uint160DecodeBytesBE(b[1:])
}

// ParseOrUint160 decodes the given string as either an address or a
// plain hex-encoded Uint160. Accepting both forms simplifies CLI and
// config handling.
func ParseOrUint160(s string) (util.Uint160, error) {
	if u, err := StringToUint160(s); err == nil {
		return u, nil
	}
	return util.Uint160DecodeStringBE(s)
}
