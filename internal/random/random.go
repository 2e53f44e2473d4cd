// Package random contains methods for generating random test data.
package random

import (
	"math/rand"

	"github.com/compactmint/compactmint/pkg/util"
)

// String returns a random string with the n as its length.
func String(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(int('A') + rand.Intn(26))
	}
	return string(b)
}

// Bytes returns a random byte slice with specified length.
func Bytes(n int) []byte {
	b := make([]byte, n)
	Fill(b)
	return b
}

// Uint160 returns a random Uint160.
func Uint160() util.Uint160 {
	b := Bytes(util.Uint160Size)
	u, _ := util.Uint160DecodeBytesBE(b)
	return u
}

// Fill fills buffer with random bytes.
func Fill(buf []byte) {
	// Mask lint warning, math/rand is good enough for tests.
	r := rand.New(rand.NewSource(rand.Int63())) //nolint:gosec
	r.Read(buf)
}
