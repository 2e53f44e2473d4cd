package state

import (
	"github.com/compactmint/compactmint/pkg/io"
)

// TokenMetadata is a per-token metadata record. A record exists only for
// tokens with an explicitly set URI, all other tokens fall back to the
// collection-wide BaseURI template.
type TokenMetadata struct {
	URI string
	// Frozen permanently disables further URI updates for this token.
	Frozen bool
}

// EncodeBinary implements the io.Serializable interface.
func (m *TokenMetadata) EncodeBinary(w *io.BinWriter) {
	w.WriteString(m.URI)
	w.WriteBool(m.Frozen)
}

// DecodeBinary implements the io.Serializable interface.
func (m *TokenMetadata) DecodeBinary(r *io.BinReader) {
	m.URI = r.ReadString()
	m.Frozen = r.ReadBool()
}
