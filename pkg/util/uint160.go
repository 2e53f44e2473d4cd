package util

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/crypto/ripemd160"
)

// Uint160Size is the size of Uint160 in bytes.
const Uint160Size = 20

// Uint160 is a 20 byte long unsigned integer. It's used to identify
// accounts (token owners, operators, mint recipients) in the ledger.
type Uint160 [Uint160Size]uint8

// Uint160DecodeStringBE attempts to decode the given string (in BE
// representation) into a Uint160.
func Uint160DecodeStringBE(s string) (Uint160, error) {
	var u Uint160
	s = strings.TrimPrefix(s, "0x")
	if len(s) != Uint160Size*2 {
		return u, fmt.Errorf("expected string size of %d got %d", Uint160Size*2, len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return u, err
	}
	return Uint160DecodeBytesBE(b)
}

// Uint160DecodeBytesBE attempts to decode the given bytes into a Uint160.
func Uint160DecodeBytesBE(b []byte) (Uint160, error) {
	var u Uint160
	if len(b) != Uint160Size {
		return u, fmt.Errorf("expected byte size of %d got %d", Uint160Size, len(b))
	}
	copy(u[:], b)
	return u, nil
}

// RipemdHash160 returns a new Uint160 hashing the given data with
// SHA256 followed by RIPEMD160. It's used to derive account identifiers
// from arbitrary seed material.
func RipemdHash160(data []byte) Uint160 {
	sha := sha256.Sum256(data)
	ripemd := ripemd160.New()
	_, _ = ripemd.Write(sha[:])
	u, _ := Uint160DecodeBytesBE(ripemd.Sum(nil))
	return u
}

// BytesBE returns a big-endian byte representation of u.
func (u Uint160) BytesBE() []byte {
	return u[:]
}

// String implements the stringer interface.
func (u Uint160) String() string {
	return u.StringBE()
}

// StringBE returns a big-endian hex representation of u.
func (u Uint160) StringBE() string {
	return hex.EncodeToString(u.BytesBE())
}

// Equals returns true if both Uint160 values are the same.
func (u Uint160) Equals(other Uint160) bool {
	return u == other
}

// IsZero returns true if u is the zero (null) account.
func (u Uint160) IsZero() bool {
	return u == Uint160{}
}

// Less returns true if this value is less than the given Uint160 value.
func (u Uint160) Less(other Uint160) bool {
	return bytes.Compare(u.BytesBE(), other.BytesBE()) == -1
}

// UnmarshalJSON implements the json unmarshaller interface.
func (u *Uint160) UnmarshalJSON(data []byte) (err error) {
	var js string
	if err = json.Unmarshal(data, &js); err != nil {
		return err
	}
	*u, err = Uint160DecodeStringBE(js)
	return err
}

// MarshalJSON implements the json marshaller interface.
func (u Uint160) MarshalJSON() ([]byte, error) {
	return []byte(`"0x` + u.StringBE() + `"`), nil
}

// UnmarshalYAML implements the YAML unmarshaller interface.
func (u *Uint160) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	v, err := Uint160DecodeStringBE(s)
	if err != nil {
		return err
	}
	*u = v
	return nil
}

// MarshalYAML implements the YAML marshaller interface.
func (u Uint160) MarshalYAML() (any, error) {
	return "0x" + u.StringBE(), nil
}
