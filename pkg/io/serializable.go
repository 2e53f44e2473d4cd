package io

// Serializable defines the binary encoding/decoding interface. Errors are
// returned via BinReader/BinWriter Err field.
type Serializable interface {
	DecodeBinary(*BinReader)
	EncodeBinary(*BinWriter)
}

// ToByteArray serializes the given Serializable into a byte slice.
func ToByteArray(s Serializable) ([]byte, error) {
	w := NewBufBinWriter()
	s.EncodeBinary(w.BinWriter)
	if w.Err != nil {
		return nil, w.Err
	}
	return w.Bytes(), nil
}

// FromByteArray deserializes the given Serializable from a byte slice.
func FromByteArray(s Serializable, data []byte) error {
	r := NewBinReaderFromBuf(data)
	s.DecodeBinary(r)
	return r.Err
}
