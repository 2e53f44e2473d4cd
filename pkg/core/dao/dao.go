// Package dao provides a typed data access layer on top of the raw KV
// store. All ledger reads and writes go through a Simple instance, and
// wrapped instances provide cheap all-or-nothing transaction layers for
// batched operations.
package dao

import (
	"encoding/binary"
	"fmt"

	"github.com/compactmint/compactmint/pkg/core/state"
	"github.com/compactmint/compactmint/pkg/core/storage"
	"github.com/compactmint/compactmint/pkg/io"
	"github.com/compactmint/compactmint/pkg/util"
)

// Simple is a memCached wrapper around the DB, a simple DAO implementation.
type Simple struct {
	Store *storage.MemCachedStore
}

// NewSimple creates a new simple dao using the provided backend store.
func NewSimple(backend storage.Store) *Simple {
	return &Simple{Store: storage.NewMemCachedStore(backend)}
}

// GetWrapped returns a new DAO instance with another layer of wrapped
// MemCachedStore around the current DAO Store.
func (dao *Simple) GetWrapped() *Simple {
	return NewSimple(dao.Store)
}

// Persist flushes all the changes made into the (supposedly) persistent
// underlying store. It doesn't block accesses to DAO from other threads.
func (dao *Simple) Persist() (int, error) {
	return dao.Store.Persist()
}

// Discard drops all changes accumulated in the current layer.
func (dao *Simple) Discard() {
	dao.Store.Discard()
}

// GetCollectionState returns the collection-wide record or
// storage.ErrKeyNotFound if the ledger was never initialized.
func (dao *Simple) GetCollectionState() (*state.CollectionState, error) {
	data, err := dao.Store.Get(storage.SYSCollection.Bytes())
	if err != nil {
		return nil, err
	}
	cs := new(state.CollectionState)
	if err = io.FromByteArray(cs, data); err != nil {
		return nil, fmt.Errorf("failed to decode collection state: %w", err)
	}
	return cs, nil
}

// PutCollectionState rewrites the collection-wide record.
func (dao *Simple) PutCollectionState(cs *state.CollectionState) error {
	data, err := io.ToByteArray(cs)
	if err != nil {
		return fmt.Errorf("failed to encode collection state: %w", err)
	}
	dao.Store.Put(storage.SYSCollection.Bytes(), data)
	return nil
}

func makeTokenKey(prefix storage.KeyPrefix, id uint64) []byte {
	key := make([]byte, 9)
	key[0] = byte(prefix)
	binary.BigEndian.PutUint64(key[1:], id)
	return key
}

// GetOwnerSlot returns the explicit ownership slot for the given token ID
// if one exists. Most token IDs have no slot of their own, their owner is
// resolved via SeekOwnerSlotsBackwards.
func (dao *Simple) GetOwnerSlot(id uint64) (util.Uint160, bool) {
	data, err := dao.Store.Get(makeTokenKey(storage.STOwnerSlot, id))
	if err != nil {
		return util.Uint160{}, false
	}
	owner, err := util.Uint160DecodeBytesBE(data)
	if err != nil {
		return util.Uint160{}, false
	}
	return owner, true
}

// PutOwnerSlot writes an explicit ownership slot for the given token ID.
func (dao *Simple) PutOwnerSlot(id uint64, owner util.Uint160) {
	dao.Store.Put(makeTokenKey(storage.STOwnerSlot, id), owner.BytesBE())
}

// SeekOwnerSlotsBackwards iterates over explicit ownership slots starting
// from the given token ID (inclusive) downwards until f returns false or
// slots are exhausted. The big-endian slot keys make the store's
// backwards Seek order match descending token ID order.
func (dao *Simple) SeekOwnerSlotsBackwards(from uint64, f func(id uint64, owner util.Uint160) bool) {
	start := make([]byte, 8)
	binary.BigEndian.PutUint64(start, from)
	dao.Store.Seek(storage.SeekRange{
		Prefix:    storage.STOwnerSlot.Bytes(),
		Start:     start,
		Backwards: true,
	}, func(k, v []byte) bool {
		owner, err := util.Uint160DecodeBytesBE(v)
		if err != nil {
			return false
		}
		return f(binary.BigEndian.Uint64(k[1:]), owner)
	})
}

// SeekOwnerSlots iterates over all explicit ownership slots in ascending
// token ID order until f returns false or slots are exhausted.
func (dao *Simple) SeekOwnerSlots(f func(id uint64, owner util.Uint160) bool) {
	dao.Store.Seek(storage.SeekRange{
		Prefix: storage.STOwnerSlot.Bytes(),
	}, func(k, v []byte) bool {
		owner, err := util.Uint160DecodeBytesBE(v)
		if err != nil {
			return false
		}
		return f(binary.BigEndian.Uint64(k[1:]), owner)
	})
}

func makeAccountKey(prefix storage.KeyPrefix, acc util.Uint160) []byte {
	return storage.AppendPrefix(prefix, acc.BytesBE())
}

// GetBalance returns the number of tokens owned by the given account.
func (dao *Simple) GetBalance(acc util.Uint160) uint64 {
	data, err := dao.Store.Get(makeAccountKey(storage.STBalance, acc))
	if err != nil {
		return 0
	}
	return binary.LittleEndian.Uint64(data)
}

// PutBalance updates the number of tokens owned by the given account,
// dropping zero records to keep balance iteration compact.
func (dao *Simple) PutBalance(acc util.Uint160, balance uint64) {
	key := makeAccountKey(storage.STBalance, acc)
	if balance == 0 {
		dao.Store.Delete(key)
		return
	}
	data := make([]byte, 8)
	binary.LittleEndian.PutUint64(data, balance)
	dao.Store.Put(key, data)
}

// SeekBalances iterates over all non-zero account balances until f
// returns false or balances are exhausted.
func (dao *Simple) SeekBalances(f func(acc util.Uint160, balance uint64) bool) {
	dao.Store.Seek(storage.SeekRange{
		Prefix: storage.STBalance.Bytes(),
	}, func(k, v []byte) bool {
		acc, err := util.Uint160DecodeBytesBE(k[1:])
		if err != nil {
			return false
		}
		return f(acc, binary.LittleEndian.Uint64(v))
	})
}

// GetTokenApproval returns the account approved to transfer the given
// token if there is one.
func (dao *Simple) GetTokenApproval(id uint64) (util.Uint160, bool) {
	data, err := dao.Store.Get(makeTokenKey(storage.STTokenApproval, id))
	if err != nil {
		return util.Uint160{}, false
	}
	approved, err := util.Uint160DecodeBytesBE(data)
	if err != nil {
		return util.Uint160{}, false
	}
	return approved, true
}

// PutTokenApproval approves the given account to transfer the given token.
func (dao *Simple) PutTokenApproval(id uint64, approved util.Uint160) {
	dao.Store.Put(makeTokenKey(storage.STTokenApproval, id), approved.BytesBE())
}

// DeleteTokenApproval drops the approval entry of the given token.
func (dao *Simple) DeleteTokenApproval(id uint64) {
	dao.Store.Delete(makeTokenKey(storage.STTokenApproval, id))
}

func makeOperatorKey(owner, operator util.Uint160) []byte {
	key := make([]byte, 1+2*util.Uint160Size)
	key[0] = byte(storage.STOperatorApproval)
	copy(key[1:], owner.BytesBE())
	copy(key[1+util.Uint160Size:], operator.BytesBE())
	return key
}

// IsOperator checks an (owner, operator) approval pair.
func (dao *Simple) IsOperator(owner, operator util.Uint160) bool {
	_, err := dao.Store.Get(makeOperatorKey(owner, operator))
	return err == nil
}

// PutOperator stores an (owner, operator) approval pair.
func (dao *Simple) PutOperator(owner, operator util.Uint160) {
	dao.Store.Put(makeOperatorKey(owner, operator), []byte{1})
}

// DeleteOperator drops an (owner, operator) approval pair.
func (dao *Simple) DeleteOperator(owner, operator util.Uint160) {
	dao.Store.Delete(makeOperatorKey(owner, operator))
}

// GetTokenMetadata returns the explicit metadata record of the given
// token, if any (nil otherwise).
func (dao *Simple) GetTokenMetadata(id uint64) (*state.TokenMetadata, error) {
	data, err := dao.Store.Get(makeTokenKey(storage.STTokenMetadata, id))
	if err != nil {
		return nil, nil //nolint:nilerr // missing record is not an error
	}
	md := new(state.TokenMetadata)
	if err = io.FromByteArray(md, data); err != nil {
		return nil, fmt.Errorf("failed to decode token %d metadata: %w", id, err)
	}
	return md, nil
}

// PutTokenMetadata stores the explicit metadata record for the given token.
func (dao *Simple) PutTokenMetadata(id uint64, md *state.TokenMetadata) error {
	data, err := io.ToByteArray(md)
	if err != nil {
		return fmt.Errorf("failed to encode token %d metadata: %w", id, err)
	}
	dao.Store.Put(makeTokenKey(storage.STTokenMetadata, id), data)
	return nil
}
