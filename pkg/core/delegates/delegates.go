// Package delegates defines the external delegated-operator registry
// consulted by the ledger's IsApprovedForAll check. A registered
// delegate is treated as an approved operator for its owner bypassing
// the explicit operator approval map (the pattern known from NFT
// marketplace proxy registries).
package delegates

import (
	"sync"

	"github.com/compactmint/compactmint/pkg/util"
)

// Registry is an external allow-list of per-owner delegate accounts.
type Registry interface {
	// LookupDelegate returns the delegate registered for the given owner
	// and true, or a zero value and false when there is none.
	LookupDelegate(owner util.Uint160) (util.Uint160, bool)
}

// Static is a Registry kept in memory, usually loaded from the node
// configuration.
type Static struct {
	mut  sync.RWMutex
	regs map[util.Uint160]util.Uint160
}

// NewStatic creates an empty static registry.
func NewStatic() *Static {
	return &Static{regs: make(map[util.Uint160]util.Uint160)}
}

// Register sets the delegate for the given owner replacing the previous
// one, if any.
func (s *Static) Register(owner, delegate util.Uint160) {
	s.mut.Lock()
	s.regs[owner] = delegate
	s.mut.Unlock()
}

// Unregister drops the owner's delegate.
func (s *Static) Unregister(owner util.Uint160) {
	s.mut.Lock()
	delete(s.regs, owner)
	s.mut.Unlock()
}

// LookupDelegate implements the Registry interface.
func (s *Static) LookupDelegate(owner util.Uint160) (util.Uint160, bool) {
	s.mut.RLock()
	defer s.mut.RUnlock()
	d, ok := s.regs[owner]
	return d, ok
}
