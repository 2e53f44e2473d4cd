package state

import (
	"github.com/compactmint/compactmint/pkg/util"
)

// EventType represents the type of a ledger notification.
type EventType string

// Ledger notification types.
const (
	// TransferEventType is emitted once per minted or transferred token
	// ID. Mints have a zero From account.
	TransferEventType EventType = "Transfer"
	// ApprovalEventType is emitted when a single-token approval changes.
	ApprovalEventType EventType = "Approval"
	// OperatorEventType is emitted when an (owner, operator) pair is
	// granted or revoked.
	OperatorEventType EventType = "ApprovalForAll"
)

// Notification is a ledger event sent to external observers. Storage is
// written once per minted batch, but observers still get one Transfer
// notification per token ID.
type Notification struct {
	Type EventType `json:"type"`
	// From is the previous owner, zero for mints.
	From util.Uint160 `json:"from"`
	// To is the recipient, the approved account or the operator,
	// depending on Type.
	To      util.Uint160 `json:"to"`
	TokenID uint64       `json:"tokenid"`
	// Approved is used by OperatorEventType only.
	Approved bool `json:"approved,omitempty"`
}
