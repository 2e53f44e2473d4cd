// Package rights defines the authorization oracle consulted by the
// ledger for administrative operations (minting, locking, URI updates).
// The ledger itself never evaluates policy, it only asks the oracle for
// a decision on a (caller, scope, right) capability request.
package rights

import (
	"sync"

	"github.com/compactmint/compactmint/pkg/util"
)

// Right is a single administrative capability.
type Right byte

// Rights gating ledger operations.
const (
	// Mint allows batch-minting new tokens.
	Mint Right = iota
	// Lock allows setting one-way lock flags (mint lock, base URI lock).
	Lock
	// SetURI allows updating token or collection metadata URIs.
	SetURI
)

// String implements the Stringer interface.
func (r Right) String() string {
	switch r {
	case Mint:
		return "mint"
	case Lock:
		return "lock"
	case SetURI:
		return "seturi"
	default:
		return "unknown"
	}
}

// Scope is the subject of a capability request, either the whole
// collection (wildcard) or a specific token.
type Scope struct {
	wildcard bool
	tokenID  uint64
}

// WildcardScope returns a scope covering the whole collection.
func WildcardScope() Scope {
	return Scope{wildcard: true}
}

// TokenScope returns a scope covering a single token.
func TokenScope(id uint64) Scope {
	return Scope{tokenID: id}
}

// IsWildcard returns true for collection-wide scopes.
func (s Scope) IsWildcard() bool {
	return s.wildcard
}

// TokenID returns the token covered by a non-wildcard scope.
func (s Scope) TokenID() uint64 {
	return s.tokenID
}

// Oracle makes authorization decisions for administrative ledger
// operations.
type Oracle interface {
	// HasRight tells whether the caller has the given right within the
	// given scope. A wildcard grant satisfies token-scoped requests too.
	HasRight(caller util.Uint160, scope Scope, right Right) bool
}

type grantKey struct {
	acc      util.Uint160
	right    Right
	wildcard bool
	tokenID  uint64
}

// Policy is a simple Oracle implementation: the collection owner has
// every right and additional per-right grants can be made at runtime or
// loaded from the configuration.
type Policy struct {
	mut    sync.RWMutex
	owner  util.Uint160
	grants map[grantKey]bool
}

// NewPolicy returns a Policy with the given collection owner and no
// extra grants.
func NewPolicy(owner util.Uint160) *Policy {
	return &Policy{
		owner:  owner,
		grants: make(map[grantKey]bool),
	}
}

// Grant allows the given account to exercise the given right within the
// given scope.
func (p *Policy) Grant(acc util.Uint160, scope Scope, right Right) {
	p.mut.Lock()
	p.grants[grantKey{acc: acc, right: right, wildcard: scope.wildcard, tokenID: scope.tokenID}] = true
	p.mut.Unlock()
}

// Revoke removes a previously made grant.
func (p *Policy) Revoke(acc util.Uint160, scope Scope, right Right) {
	p.mut.Lock()
	delete(p.grants, grantKey{acc: acc, right: right, wildcard: scope.wildcard, tokenID: scope.tokenID})
	p.mut.Unlock()
}

// HasRight implements the Oracle interface.
func (p *Policy) HasRight(caller util.Uint160, scope Scope, right Right) bool {
	if caller.Equals(p.owner) {
		return true
	}
	p.mut.RLock()
	defer p.mut.RUnlock()
	// A wildcard grant covers any scope.
	if p.grants[grantKey{acc: caller, right: right, wildcard: true}] {
		return true
	}
	if !scope.wildcard {
		return p.grants[grantKey{acc: caller, right: right, tokenID: scope.tokenID}]
	}
	return false
}
