package config

import (
	"errors"
	"fmt"

	"github.com/compactmint/compactmint/pkg/util"
)

type (
	// Ledger contains the collection parameters. TotalSupply and
	// BatchSize are fixed at initialization, reopening an existing DB
	// with different values is refused.
	Ledger struct {
		// Name is the human-readable collection name.
		Name string `yaml:"Name"`
		// TotalSupply is the immutable cap on the number of tokens.
		TotalSupply uint64 `yaml:"TotalSupply"`
		// BatchSize limits the amount of tokens minted per call and
		// bounds the ownership backward-scan distance.
		BatchSize uint64 `yaml:"BatchSize"`
		// Owner is the collection owner account, it holds every
		// administrative right.
		Owner util.Uint160 `yaml:"Owner"`
		// BaseURI is the initial collection-wide metadata URI template.
		BaseURI string `yaml:"BaseURI"`
		// Grants is the set of additional rights given out on startup.
		Grants []RightGrant `yaml:"Grants"`
		// Delegates is the delegated-operator allow-list.
		Delegates []DelegatePair `yaml:"Delegates"`
	}

	// RightGrant allows an account to exercise one administrative right,
	// either collection-wide or for a single token.
	RightGrant struct {
		Account util.Uint160 `yaml:"Account"`
		// Right is one of "mint", "lock", "seturi".
		Right string `yaml:"Right"`
		// Token scopes the grant to a single token ID when set.
		Token *uint64 `yaml:"Token,omitempty"`
	}

	// DelegatePair registers a delegate operator for an owner account.
	DelegatePair struct {
		Owner    util.Uint160 `yaml:"Owner"`
		Delegate util.Uint160 `yaml:"Delegate"`
	}
)

// Validate checks Ledger for internal consistency.
func (l Ledger) Validate() error {
	if l.TotalSupply == 0 {
		return errors.New("TotalSupply is 0")
	}
	if l.BatchSize == 0 {
		return errors.New("BatchSize is 0")
	}
	if l.Owner.IsZero() {
		return errors.New("collection Owner is not set")
	}
	for i, g := range l.Grants {
		switch g.Right {
		case "mint", "lock", "seturi":
		default:
			return fmt.Errorf("grant #%d: unknown right %q", i, g.Right)
		}
		if g.Account.IsZero() {
			return fmt.Errorf("grant #%d: account is not set", i)
		}
	}
	for i, d := range l.Delegates {
		if d.Owner.IsZero() || d.Delegate.IsZero() {
			return fmt.Errorf("delegate #%d: accounts must be set", i)
		}
	}
	return nil
}
