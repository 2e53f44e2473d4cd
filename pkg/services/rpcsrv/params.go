package rpcsrv

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/compactmint/compactmint/pkg/encoding/address"
	"github.com/compactmint/compactmint/pkg/util"
)

// params wraps positional JSON-RPC parameters with typed accessors. All
// accessors return descriptive errors suitable for an "invalid params"
// response.
type params []json.RawMessage

func (p params) uint64At(i int) (uint64, error) {
	if i >= len(p) {
		return 0, fmt.Errorf("parameter #%d is missing", i)
	}
	var v uint64
	if err := json.Unmarshal(p[i], &v); err != nil {
		return 0, fmt.Errorf("parameter #%d is not an unsigned integer: %w", i, err)
	}
	return v, nil
}

func (p params) boolAt(i int) (bool, error) {
	if i >= len(p) {
		return false, fmt.Errorf("parameter #%d is missing", i)
	}
	var v bool
	if err := json.Unmarshal(p[i], &v); err != nil {
		return false, fmt.Errorf("parameter #%d is not a boolean: %w", i, err)
	}
	return v, nil
}

func (p params) stringAt(i int) (string, error) {
	if i >= len(p) {
		return "", fmt.Errorf("parameter #%d is missing", i)
	}
	var v string
	if err := json.Unmarshal(p[i], &v); err != nil {
		return "", fmt.Errorf("parameter #%d is not a string: %w", i, err)
	}
	return v, nil
}

// addressAt accepts both base58check addresses and hex-encoded script
// hashes.
func (p params) addressAt(i int) (util.Uint160, error) {
	s, err := p.stringAt(i)
	if err != nil {
		return util.Uint160{}, err
	}
	u, err := address.ParseOrUint160(s)
	if err != nil {
		return util.Uint160{}, fmt.Errorf("parameter #%d is not an address: %w", i, err)
	}
	return u, nil
}

func (p params) uint64SliceAt(i int) ([]uint64, error) {
	if i >= len(p) {
		return nil, fmt.Errorf("parameter #%d is missing", i)
	}
	var v []uint64
	if err := json.Unmarshal(p[i], &v); err != nil {
		return nil, fmt.Errorf("parameter #%d is not an array of unsigned integers: %w", i, err)
	}
	return v, nil
}

// bytesAt decodes an optional base64 parameter, absence yields nil.
func (p params) bytesAt(i int) ([]byte, error) {
	if i >= len(p) {
		return nil, nil
	}
	s, err := p.stringAt(i)
	if err != nil {
		return nil, err
	}
	if s == "" {
		return nil, nil
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("parameter #%d is not base64: %w", i, err)
	}
	return b, nil
}
