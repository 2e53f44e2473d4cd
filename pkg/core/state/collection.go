package state

import (
	"github.com/compactmint/compactmint/pkg/io"
)

// CollectionState is a collection-wide ledger record: the mint watermark,
// the immutable supply parameters and one-way lock flags. It's stored
// under a single key and rewritten on every mutation of its fields.
type CollectionState struct {
	// MintIndex is the next token ID to be minted, it's also the
	// exclusive upper bound of currently existing token IDs.
	MintIndex uint64 `json:"mintindex"`
	// TotalSupply is the immutable cap on the number of tokens.
	TotalSupply uint64 `json:"totalsupply"`
	// BatchSize is the maximum number of tokens mintable in one call and
	// the bound on the ownership backward-scan distance.
	BatchSize uint64 `json:"batchsize"`
	// MintLocked permanently disables minting when set.
	MintLocked bool `json:"mintlocked"`
	// BaseURI is the collection-wide metadata URI template.
	BaseURI string `json:"baseuri"`
	// BaseURILocked permanently freezes BaseURI when set.
	BaseURILocked bool `json:"baseurilocked"`
}

// EncodeBinary implements the io.Serializable interface.
func (c *CollectionState) EncodeBinary(w *io.BinWriter) {
	w.WriteU64LE(c.MintIndex)
	w.WriteU64LE(c.TotalSupply)
	w.WriteU64LE(c.BatchSize)
	w.WriteBool(c.MintLocked)
	w.WriteString(c.BaseURI)
	w.WriteBool(c.BaseURILocked)
}

// DecodeBinary implements the io.Serializable interface.
func (c *CollectionState) DecodeBinary(r *io.BinReader) {
	c.MintIndex = r.ReadU64LE()
	c.TotalSupply = r.ReadU64LE()
	c.BatchSize = r.ReadU64LE()
	c.MintLocked = r.ReadBool()
	c.BaseURI = r.ReadString()
	c.BaseURILocked = r.ReadBool()
}
