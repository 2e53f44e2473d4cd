package core

import (
	"errors"
)

// Ledger operation failures. All of them are terminal for the failed
// invocation, no partial effect ever persists.
var (
	// ErrNotFound is returned for token IDs at or above the mint
	// watermark.
	ErrNotFound = errors.New("token not found")
	// ErrOwnershipIndeterminate means the bounded backward scan found no
	// ownership slot. It indicates a broken ledger invariant, not a user
	// error, and is logged loudly when detected.
	ErrOwnershipIndeterminate = errors.New("ownership indeterminate")
	// ErrNotAuthorized is returned when the caller lacks ownership,
	// approval, operator or administrative rights for the operation.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrTransferNotOwner is returned when the stated transfer source
	// doesn't match the resolved token owner.
	ErrTransferNotOwner = errors.New("not the token owner")
	// ErrInvalidRecipient is returned for zero target accounts.
	ErrInvalidRecipient = errors.New("invalid recipient")
	// ErrCapacityExceeded is returned when a mint would exceed the total
	// supply cap or the per-call batch size.
	ErrCapacityExceeded = errors.New("capacity exceeded")
	// ErrAlreadyLocked is returned for mutations attempted after the
	// corresponding permanent lock flag was set.
	ErrAlreadyLocked = errors.New("already locked")
	// ErrReceiverRejected is returned when a recipient's acceptance hook
	// declines the transfer (the whole batch is rolled back).
	ErrReceiverRejected = errors.New("transfer rejected by receiver")
	// ErrReentrantCall is returned to mutating calls made while receiver
	// acceptance hooks of another transfer are still running.
	ErrReentrantCall = errors.New("reentrant mutating call")
	// ErrInvalidApproval is returned for self-approvals and approvals to
	// the current token owner.
	ErrInvalidApproval = errors.New("invalid approval")
)
