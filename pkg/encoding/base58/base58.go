// Package base58 wraps generic base58 encoder with NEO-specific
// base58Check encoding/decoding routines (4-byte checksum of doubled
// SHA256 hash appended to the data).
package base58

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// CheckDecode decodes the given string and checks integrity of the
// encoded data.
func CheckDecode(s string) (b []byte, err error) {
	b, err = base58.Decode(s)
	if err != nil {
		return nil, err
	}

	for i := 0; i < len(s); i++ {
		if s[i] != '1' {
			break
		}
		b = append([]byte{0x00}, b...)
	}

	if len(b) < 5 {
		return nil, errors.New("invalid base-58 check string: missing checksum")
	}

	if !bytes.Equal(checksum(b[:len(b)-4]), b[len(b)-4:]) {
		return nil, errors.New("invalid base-58 check string: invalid checksum")
	}

	// Strip the 4 byte long hash.
	b = b[:len(b)-4]

	return b, nil
}

// CheckEncode encodes the given byte slice with a checksum appended.
func CheckEncode(b []byte) string {
	b = append(b, checksum(b)...)
	return base58.Encode(b)
}

func checksum(b []byte) []byte {
	first := sha256.Sum256(b)
	second := sha256.Sum256(first[:])
	return second[:4]
}

// Decode decodes the base58 encoded string.
func Decode(s string) ([]byte, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("invalid base-58 string: %w", err)
	}
	return b, nil
}

// Encode encodes the given bytes into base58 form.
func Encode(b []byte) string {
	return base58.Encode(b)
}
