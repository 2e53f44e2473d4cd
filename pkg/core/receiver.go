package core

import (
	"github.com/compactmint/compactmint/pkg/util"
)

// Receiver is the acceptance hook of a contract-like transfer recipient.
// It runs with the transfer already committed (commit-then-notify), any
// returned error rolls the whole batch back.
//
// Receivers are untrusted code: mutating ledger calls made from OnReceive
// are rejected with ErrReentrantCall, read-only queries are allowed and
// observe the committed batch.
type Receiver interface {
	OnReceive(operator, from util.Uint160, tokenID uint64, data []byte) error
}

// ReceiverResolver maps recipient accounts to their acceptance hooks. A
// nil Receiver means the account is a plain one accepting any transfer.
type ReceiverResolver interface {
	ResolveReceiver(acc util.Uint160) Receiver
}

// ReceiverResolverFunc is a functional adapter for ReceiverResolver.
type ReceiverResolverFunc func(acc util.Uint160) Receiver

// ResolveReceiver implements the ReceiverResolver interface.
func (f ReceiverResolverFunc) ResolveReceiver(acc util.Uint160) Receiver {
	return f(acc)
}

// TransferHook is called once around a whole transfer batch (before any
// per-token checks or after all of them). An error returned from the
// before hook aborts the batch with no state changed.
type TransferHook func(from, to util.Uint160, ids []uint64) error
