package core

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/compactmint/compactmint/internal/random"
	"github.com/compactmint/compactmint/pkg/config"
	"github.com/compactmint/compactmint/pkg/core/dao"
	"github.com/compactmint/compactmint/pkg/core/rights"
	"github.com/compactmint/compactmint/pkg/core/state"
	"github.com/compactmint/compactmint/pkg/core/storage"
	"github.com/compactmint/compactmint/pkg/core/storage/dbconfig"
	"github.com/compactmint/compactmint/pkg/util"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testLedgerConfig(owner util.Uint160) config.Ledger {
	return config.Ledger{
		Name:        "test collection",
		TotalSupply: 100,
		BatchSize:   10,
		Owner:       owner,
		BaseURI:     "https://tokens.example.com/{id}",
	}
}

func newTestLedger(t *testing.T, owner util.Uint160) *Ledger {
	l, err := NewLedger(storage.NewMemoryStore(), testLedgerConfig(owner), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, l.Close()) })
	return l
}

func TestNewLedger(t *testing.T) {
	owner := random.Uint160()
	t.Run("nil logger", func(t *testing.T) {
		_, err := NewLedger(storage.NewMemoryStore(), testLedgerConfig(owner), nil)
		require.Error(t, err)
	})
	t.Run("invalid config", func(t *testing.T) {
		cfg := testLedgerConfig(owner)
		cfg.BatchSize = 0
		_, err := NewLedger(storage.NewMemoryStore(), cfg, zaptest.NewLogger(t))
		require.Error(t, err)
	})
	t.Run("fresh store", func(t *testing.T) {
		l := newTestLedger(t, owner)
		require.Equal(t, uint64(0), l.MintIndex())
		require.Equal(t, uint64(100), l.TotalSupply())
		require.Equal(t, uint64(10), l.BatchSize())
		require.NoError(t, l.VerifyState())
	})
}

func TestMintBatch(t *testing.T) {
	owner := random.Uint160()
	alice := random.Uint160()
	l := newTestLedger(t, owner)

	t.Run("unauthorized", func(t *testing.T) {
		_, err := l.MintBatch(alice, alice, 1)
		require.ErrorIs(t, err, ErrNotAuthorized)
	})
	t.Run("zero recipient", func(t *testing.T) {
		_, err := l.MintBatch(owner, util.Uint160{}, 1)
		require.ErrorIs(t, err, ErrInvalidRecipient)
	})
	t.Run("zero quantity", func(t *testing.T) {
		_, err := l.MintBatch(owner, alice, 0)
		require.ErrorIs(t, err, ErrCapacityExceeded)
	})
	t.Run("batch overflow", func(t *testing.T) {
		_, err := l.MintBatch(owner, alice, l.BatchSize()+1)
		require.ErrorIs(t, err, ErrCapacityExceeded)
	})
	t.Run("sequential IDs", func(t *testing.T) {
		start, err := l.MintBatch(owner, alice, 5)
		require.NoError(t, err)
		require.Equal(t, uint64(0), start)
		require.Equal(t, uint64(5), l.MintIndex())

		start, err = l.MintBatch(owner, alice, 3)
		require.NoError(t, err)
		require.Equal(t, uint64(5), start)
		require.Equal(t, uint64(8), l.MintIndex())

		for id := uint64(0); id < 8; id++ {
			o, err := l.OwnerOf(id)
			require.NoError(t, err)
			require.Equal(t, alice, o)
		}
		require.Equal(t, uint64(8), l.BalanceOf(alice))
		require.NoError(t, l.VerifyState())
	})
	t.Run("supply cap", func(t *testing.T) {
		cfg := testLedgerConfig(owner)
		cfg.TotalSupply = 7
		small, err := NewLedger(storage.NewMemoryStore(), cfg, zaptest.NewLogger(t))
		require.NoError(t, err)
		_, err = small.MintBatch(owner, alice, 5)
		require.NoError(t, err)
		_, err = small.MintBatch(owner, alice, 5)
		require.ErrorIs(t, err, ErrCapacityExceeded)
		_, err = small.MintBatch(owner, alice, 2)
		require.NoError(t, err)
	})
	t.Run("granted minter", func(t *testing.T) {
		cfg := testLedgerConfig(owner)
		cfg.Grants = []config.RightGrant{{Account: alice, Right: "mint"}}
		granted, err := NewLedger(storage.NewMemoryStore(), cfg, zaptest.NewLogger(t))
		require.NoError(t, err)
		_, err = granted.MintBatch(alice, alice, 2)
		require.NoError(t, err)
	})
}

func TestOwnerOf(t *testing.T) {
	owner := random.Uint160()
	alice := random.Uint160()
	l := newTestLedger(t, owner)

	_, err := l.OwnerOf(0)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = l.MintBatch(owner, alice, 4)
	require.NoError(t, err)

	_, err = l.OwnerOf(4)
	require.ErrorIs(t, err, ErrNotFound)

	// Resolve twice, the second read is served from cache.
	for i := 0; i < 2; i++ {
		o, err := l.OwnerOf(3)
		require.NoError(t, err)
		require.Equal(t, alice, o)
	}
}

func TestTransfer(t *testing.T) {
	owner := random.Uint160()
	alice := random.Uint160()
	bob := random.Uint160()

	t.Run("boundary repair", func(t *testing.T) {
		l := newTestLedger(t, owner)
		_, err := l.MintBatch(owner, alice, 5)
		require.NoError(t, err)

		require.NoError(t, l.Transfer(alice, alice, bob, []uint64{2}, nil))

		// Siblings of the moved token keep their owner.
		for id, want := range map[uint64]util.Uint160{0: alice, 1: alice, 2: bob, 3: alice, 4: alice} {
			o, err := l.OwnerOf(id)
			require.NoError(t, err)
			require.Equal(t, want, o, "token %d", id)
		}
		require.Equal(t, uint64(4), l.BalanceOf(alice))
		require.Equal(t, uint64(1), l.BalanceOf(bob))
		require.NoError(t, l.VerifyState())
	})
	t.Run("last token of batch", func(t *testing.T) {
		l := newTestLedger(t, owner)
		_, err := l.MintBatch(owner, alice, 3)
		require.NoError(t, err)
		// No boundary repair needed, token 3 doesn't exist.
		require.NoError(t, l.Transfer(alice, alice, bob, []uint64{2}, nil))
		require.NoError(t, l.VerifyState())
	})
	t.Run("not the owner", func(t *testing.T) {
		l := newTestLedger(t, owner)
		_, err := l.MintBatch(owner, alice, 3)
		require.NoError(t, err)
		err = l.Transfer(bob, bob, owner, []uint64{1}, nil)
		require.ErrorIs(t, err, ErrTransferNotOwner)
	})
	t.Run("unauthorized caller", func(t *testing.T) {
		l := newTestLedger(t, owner)
		_, err := l.MintBatch(owner, alice, 3)
		require.NoError(t, err)
		err = l.Transfer(bob, alice, bob, []uint64{1}, nil)
		require.ErrorIs(t, err, ErrNotAuthorized)
	})
	t.Run("zero recipient", func(t *testing.T) {
		l := newTestLedger(t, owner)
		_, err := l.MintBatch(owner, alice, 3)
		require.NoError(t, err)
		err = l.Transfer(alice, alice, util.Uint160{}, []uint64{1}, nil)
		require.ErrorIs(t, err, ErrInvalidRecipient)
	})
	t.Run("empty batch", func(t *testing.T) {
		l := newTestLedger(t, owner)
		err := l.Transfer(alice, alice, bob, nil, nil)
		require.Error(t, err)
	})
	t.Run("all-or-nothing", func(t *testing.T) {
		l := newTestLedger(t, owner)
		_, err := l.MintBatch(owner, alice, 3)
		require.NoError(t, err)
		// Token 5 doesn't exist, the whole batch must be refused.
		err = l.Transfer(alice, alice, bob, []uint64{0, 5}, nil)
		require.ErrorIs(t, err, ErrNotFound)
		o, err := l.OwnerOf(0)
		require.NoError(t, err)
		require.Equal(t, alice, o)
		require.Equal(t, uint64(0), l.BalanceOf(bob))
	})
	t.Run("multi-token batch", func(t *testing.T) {
		l := newTestLedger(t, owner)
		_, err := l.MintBatch(owner, alice, 6)
		require.NoError(t, err)
		require.NoError(t, l.Transfer(alice, alice, bob, []uint64{1, 3, 4}, nil))
		require.Equal(t, []uint64{0, 2, 5}, l.TokensOf(alice))
		require.Equal(t, []uint64{1, 3, 4}, l.TokensOf(bob))
		require.NoError(t, l.VerifyState())
	})
	t.Run("round trip", func(t *testing.T) {
		l := newTestLedger(t, owner)
		_, err := l.MintBatch(owner, alice, 4)
		require.NoError(t, err)
		require.NoError(t, l.Transfer(alice, alice, bob, []uint64{1}, nil))
		require.NoError(t, l.Transfer(bob, bob, alice, []uint64{1}, nil))
		o, err := l.OwnerOf(1)
		require.NoError(t, err)
		require.Equal(t, alice, o)
		require.Equal(t, uint64(4), l.BalanceOf(alice))
		require.Equal(t, uint64(0), l.BalanceOf(bob))
		require.NoError(t, l.VerifyState())
	})
}

// TestTransferPermutations transfers every token of a batch out in every
// possible order and checks that the final ownership picture doesn't
// depend on the order.
func TestTransferPermutations(t *testing.T) {
	owner := random.Uint160()
	alice := random.Uint160()
	const batch = 4

	recipients := make([]util.Uint160, batch)
	for i := range recipients {
		recipients[i] = random.Uint160()
	}

	var permute func(ids []uint64, k int, run func([]uint64))
	permute = func(ids []uint64, k int, run func([]uint64)) {
		if k == len(ids) {
			run(ids)
			return
		}
		for i := k; i < len(ids); i++ {
			ids[k], ids[i] = ids[i], ids[k]
			permute(ids, k+1, run)
			ids[k], ids[i] = ids[i], ids[k]
		}
	}

	permute([]uint64{0, 1, 2, 3}, 0, func(order []uint64) {
		l, err := NewLedger(storage.NewMemoryStore(), testLedgerConfig(owner), zaptest.NewLogger(t))
		require.NoError(t, err)
		_, err = l.MintBatch(owner, alice, batch)
		require.NoError(t, err)

		for _, id := range order {
			require.NoError(t, l.Transfer(alice, alice, recipients[id], []uint64{id}, nil), "order %v", order)
		}
		for id := uint64(0); id < batch; id++ {
			o, err := l.OwnerOf(id)
			require.NoError(t, err, "order %v", order)
			require.Equal(t, recipients[id], o, "order %v, token %d", order, id)
		}
		require.NoError(t, l.VerifyState(), "order %v", order)
		require.NoError(t, l.Close())
	})
}

func TestApprovals(t *testing.T) {
	owner := random.Uint160()
	alice := random.Uint160()
	bob := random.Uint160()
	carol := random.Uint160()

	t.Run("single token", func(t *testing.T) {
		l := newTestLedger(t, owner)
		_, err := l.MintBatch(owner, alice, 3)
		require.NoError(t, err)

		require.ErrorIs(t, l.Approve(bob, bob, 1), ErrNotAuthorized)
		require.ErrorIs(t, l.Approve(alice, alice, 1), ErrInvalidApproval)
		require.NoError(t, l.Approve(alice, bob, 1))

		a, err := l.GetApproved(1)
		require.NoError(t, err)
		require.Equal(t, bob, a)

		// Approval authorizes exactly the approved token.
		require.ErrorIs(t, l.Transfer(bob, alice, carol, []uint64{0}, nil), ErrNotAuthorized)
		require.NoError(t, l.Transfer(bob, alice, carol, []uint64{1}, nil))

		// And it's consumed by the transfer.
		a, err = l.GetApproved(1)
		require.NoError(t, err)
		require.True(t, a.IsZero())
	})
	t.Run("clearing", func(t *testing.T) {
		l := newTestLedger(t, owner)
		_, err := l.MintBatch(owner, alice, 3)
		require.NoError(t, err)
		require.NoError(t, l.Approve(alice, bob, 1))
		require.NoError(t, l.Approve(alice, util.Uint160{}, 1))
		a, err := l.GetApproved(1)
		require.NoError(t, err)
		require.True(t, a.IsZero())
	})
	t.Run("operator", func(t *testing.T) {
		l := newTestLedger(t, owner)
		_, err := l.MintBatch(owner, alice, 3)
		require.NoError(t, err)

		require.ErrorIs(t, l.SetApprovalForAll(alice, alice, true), ErrInvalidApproval)
		require.NoError(t, l.SetApprovalForAll(alice, bob, true))
		require.True(t, l.IsApprovedForAll(alice, bob))

		// Operators can approve and transfer any of the owner's tokens.
		require.NoError(t, l.Approve(bob, carol, 0))
		require.NoError(t, l.Transfer(bob, alice, carol, []uint64{1, 2}, nil))

		require.NoError(t, l.SetApprovalForAll(alice, bob, false))
		require.False(t, l.IsApprovedForAll(alice, bob))
		require.ErrorIs(t, l.Transfer(bob, alice, carol, []uint64{0}, nil), ErrNotAuthorized)
	})
	t.Run("configured delegate", func(t *testing.T) {
		cfg := testLedgerConfig(owner)
		cfg.Delegates = []config.DelegatePair{{Owner: alice, Delegate: bob}}
		l, err := NewLedger(storage.NewMemoryStore(), cfg, zaptest.NewLogger(t))
		require.NoError(t, err)
		_, err = l.MintBatch(owner, alice, 2)
		require.NoError(t, err)
		require.True(t, l.IsApprovedForAll(alice, bob))
		require.NoError(t, l.Transfer(bob, alice, carol, []uint64{0}, nil))
	})
}

func TestEnumeration(t *testing.T) {
	owner := random.Uint160()
	alice := random.Uint160()
	bob := random.Uint160()
	l := newTestLedger(t, owner)

	_, err := l.TokenByIndex(0)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = l.MintBatch(owner, alice, 5)
	require.NoError(t, err)
	_, err = l.MintBatch(owner, bob, 2)
	require.NoError(t, err)

	id, err := l.TokenByIndex(6)
	require.NoError(t, err)
	require.Equal(t, uint64(6), id)
	_, err = l.TokenByIndex(7)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, l.Transfer(alice, alice, bob, []uint64{1, 3}, nil))

	require.Equal(t, []uint64{0, 2, 4}, l.TokensOf(alice))
	require.Equal(t, []uint64{1, 3, 5, 6}, l.TokensOf(bob))
	require.Empty(t, l.TokensOf(random.Uint160()))

	// Enumeration agrees with direct resolution.
	for _, acc := range []util.Uint160{alice, bob} {
		ids := l.TokensOf(acc)
		require.Equal(t, l.BalanceOf(acc), uint64(len(ids)))
		for i, id := range ids {
			o, err := l.OwnerOf(id)
			require.NoError(t, err)
			require.Equal(t, acc, o)
			got, err := l.TokenOfOwnerByIndex(acc, uint64(i))
			require.NoError(t, err)
			require.Equal(t, id, got)
		}
		_, err := l.TokenOfOwnerByIndex(acc, uint64(len(ids)))
		require.ErrorIs(t, err, ErrNotFound)
	}
}

type testReceiver struct {
	err     error
	panics  bool
	calls   []uint64
	observe func()
}

func (r *testReceiver) OnReceive(operator, from util.Uint160, tokenID uint64, data []byte) error {
	r.calls = append(r.calls, tokenID)
	if r.observe != nil {
		r.observe()
	}
	if r.panics {
		panic("bad receiver")
	}
	return r.err
}

func TestReceiverHooks(t *testing.T) {
	owner := random.Uint160()
	alice := random.Uint160()
	bob := random.Uint160()

	setup := func(t *testing.T, r *testReceiver) *Ledger {
		l := newTestLedger(t, owner)
		l.SetReceiverResolver(ReceiverResolverFunc(func(acc util.Uint160) Receiver {
			if acc.Equals(bob) {
				return r
			}
			return nil
		}))
		_, err := l.MintBatch(owner, alice, 5)
		require.NoError(t, err)
		return l
	}

	t.Run("accepted", func(t *testing.T) {
		r := &testReceiver{}
		l := setup(t, r)
		require.NoError(t, l.Transfer(alice, alice, bob, []uint64{1, 2}, []byte("hi")))
		require.Equal(t, []uint64{1, 2}, r.calls)
		require.Equal(t, uint64(2), l.BalanceOf(bob))
	})
	t.Run("hook sees committed state", func(t *testing.T) {
		r := &testReceiver{}
		l := setup(t, r)
		r.observe = func() {
			o, err := l.OwnerOf(1)
			require.NoError(t, err)
			require.Equal(t, bob, o)
		}
		require.NoError(t, l.Transfer(alice, alice, bob, []uint64{1}, nil))
	})
	t.Run("rejected rolls back", func(t *testing.T) {
		r := &testReceiver{err: errors.New("no thanks")}
		l := setup(t, r)
		err := l.Transfer(alice, alice, bob, []uint64{1, 2}, nil)
		require.ErrorIs(t, err, ErrReceiverRejected)

		for id := uint64(0); id < 5; id++ {
			o, err := l.OwnerOf(id)
			require.NoError(t, err)
			require.Equal(t, alice, o, "token %d", id)
		}
		require.Equal(t, uint64(5), l.BalanceOf(alice))
		require.Equal(t, uint64(0), l.BalanceOf(bob))
		require.NoError(t, l.VerifyState())
	})
	t.Run("panic rolls back", func(t *testing.T) {
		r := &testReceiver{panics: true}
		l := setup(t, r)
		err := l.Transfer(alice, alice, bob, []uint64{1}, nil)
		require.ErrorIs(t, err, ErrReceiverRejected)
		o, err := l.OwnerOf(1)
		require.NoError(t, err)
		require.Equal(t, alice, o)
	})
	t.Run("reentrant mutation refused", func(t *testing.T) {
		r := &testReceiver{}
		l := setup(t, r)
		r.observe = func() {
			require.ErrorIs(t, l.Transfer(bob, bob, alice, []uint64{1}, nil), ErrReentrantCall)
			_, err := l.MintBatch(owner, bob, 1)
			require.ErrorIs(t, err, ErrReentrantCall)
		}
		require.NoError(t, l.Transfer(alice, alice, bob, []uint64{1}, nil))
		require.NotEmpty(t, r.calls)

		// The window is over, mutations work again.
		require.NoError(t, l.Transfer(bob, bob, alice, []uint64{1}, nil))
	})
}

func TestTransferHooks(t *testing.T) {
	owner := random.Uint160()
	alice := random.Uint160()
	bob := random.Uint160()
	l := newTestLedger(t, owner)

	var beforeIDs, afterIDs []uint64
	l.SetTransferHooks(
		func(from, to util.Uint160, ids []uint64) error {
			beforeIDs = append(beforeIDs, ids...)
			return nil
		},
		func(from, to util.Uint160, ids []uint64) error {
			afterIDs = append(afterIDs, ids...)
			return nil
		},
	)
	_, err := l.MintBatch(owner, alice, 3)
	require.NoError(t, err)
	require.NoError(t, l.Transfer(alice, alice, bob, []uint64{0, 2}, nil))
	require.Equal(t, []uint64{0, 2}, beforeIDs)
	require.Equal(t, []uint64{0, 2}, afterIDs)

	t.Run("veto", func(t *testing.T) {
		l := newTestLedger(t, owner)
		l.SetTransferHooks(func(from, to util.Uint160, ids []uint64) error {
			return errors.New("blocked")
		}, nil)
		_, err := l.MintBatch(owner, alice, 3)
		require.NoError(t, err)
		require.Error(t, l.Transfer(alice, alice, bob, []uint64{0}, nil))
		o, err := l.OwnerOf(0)
		require.NoError(t, err)
		require.Equal(t, alice, o)
	})
}

func TestCollectionAdmin(t *testing.T) {
	owner := random.Uint160()
	alice := random.Uint160()

	t.Run("lock minting", func(t *testing.T) {
		l := newTestLedger(t, owner)
		require.ErrorIs(t, l.LockMinting(alice), ErrNotAuthorized)
		require.NoError(t, l.LockMinting(owner))
		require.ErrorIs(t, l.LockMinting(owner), ErrAlreadyLocked)
		_, err := l.MintBatch(owner, alice, 1)
		require.ErrorIs(t, err, ErrAlreadyLocked)
	})
	t.Run("base URI", func(t *testing.T) {
		l := newTestLedger(t, owner)
		require.ErrorIs(t, l.SetBaseURI(alice, "x"), ErrNotAuthorized)
		require.NoError(t, l.SetBaseURI(owner, "ipfs://meta/{id}.json"))
		require.NoError(t, l.LockBaseURI(owner))
		require.ErrorIs(t, l.SetBaseURI(owner, "y"), ErrAlreadyLocked)
		require.ErrorIs(t, l.LockBaseURI(owner), ErrAlreadyLocked)
	})
}

func TestTokenURI(t *testing.T) {
	owner := random.Uint160()
	alice := random.Uint160()
	l := newTestLedger(t, owner)

	_, err := l.TokenURI(0)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = l.MintBatch(owner, alice, 3)
	require.NoError(t, err)

	uri, err := l.TokenURI(2)
	require.NoError(t, err)
	require.Equal(t, "https://tokens.example.com/2", uri)

	t.Run("no placeholder", func(t *testing.T) {
		require.NoError(t, l.SetBaseURI(owner, "ipfs://meta/"))
		uri, err := l.TokenURI(1)
		require.NoError(t, err)
		require.Equal(t, "ipfs://meta/1", uri)
	})
	t.Run("explicit URI", func(t *testing.T) {
		require.ErrorIs(t, l.SetTokenURI(alice, 1, "x"), ErrNotAuthorized)
		require.ErrorIs(t, l.SetTokenURI(owner, 10, "x"), ErrNotFound)
		require.NoError(t, l.SetTokenURI(owner, 1, "ipfs://special"))
		uri, err := l.TokenURI(1)
		require.NoError(t, err)
		require.Equal(t, "ipfs://special", uri)
	})
	t.Run("freeze", func(t *testing.T) {
		require.ErrorIs(t, l.FreezeTokenURI(alice, 1), ErrNotAuthorized)
		require.NoError(t, l.FreezeTokenURI(owner, 1))
		require.ErrorIs(t, l.SetTokenURI(owner, 1, "y"), ErrAlreadyLocked)
		require.ErrorIs(t, l.FreezeTokenURI(owner, 1), ErrAlreadyLocked)
	})
	t.Run("per-token grant", func(t *testing.T) {
		cfg := testLedgerConfig(owner)
		two := uint64(2)
		cfg.Grants = []config.RightGrant{{Account: alice, Right: "seturi", Token: &two}}
		l, err := NewLedger(storage.NewMemoryStore(), cfg, zaptest.NewLogger(t))
		require.NoError(t, err)
		_, err = l.MintBatch(owner, alice, 3)
		require.NoError(t, err)
		require.ErrorIs(t, l.SetTokenURI(alice, 1, "x"), ErrNotAuthorized)
		require.NoError(t, l.SetTokenURI(alice, 2, "x"))
	})
}

func TestNotifications(t *testing.T) {
	owner := random.Uint160()
	alice := random.Uint160()
	bob := random.Uint160()
	l := newTestLedger(t, owner)

	ch := make(chan state.Notification, 32)
	id := l.SubscribeForNotifications(ch)
	defer l.UnsubscribeFromNotifications(id)

	_, err := l.MintBatch(owner, alice, 2)
	require.NoError(t, err)
	for i := uint64(0); i < 2; i++ {
		n := <-ch
		require.Equal(t, state.TransferEventType, n.Type)
		require.True(t, n.From.IsZero())
		require.Equal(t, alice, n.To)
		require.Equal(t, i, n.TokenID)
	}

	require.NoError(t, l.Transfer(alice, alice, bob, []uint64{1}, nil))
	n := <-ch
	require.Equal(t, state.TransferEventType, n.Type)
	require.Equal(t, alice, n.From)
	require.Equal(t, bob, n.To)
	require.Equal(t, uint64(1), n.TokenID)

	require.NoError(t, l.Approve(bob, alice, 1))
	n = <-ch
	require.Equal(t, state.ApprovalEventType, n.Type)
	require.Equal(t, bob, n.From)
	require.Equal(t, alice, n.To)

	require.NoError(t, l.SetApprovalForAll(alice, bob, true))
	n = <-ch
	require.Equal(t, state.OperatorEventType, n.Type)
	require.True(t, n.Approved)

	t.Run("nothing on rejection", func(t *testing.T) {
		l.SetReceiverResolver(ReceiverResolverFunc(func(acc util.Uint160) Receiver {
			return &testReceiver{err: errors.New("no")}
		}))
		require.Error(t, l.Transfer(bob, bob, alice, []uint64{1}, nil))
		select {
		case n := <-ch:
			t.Fatalf("unexpected notification %+v", n)
		default:
		}
	})
}

func TestRightsOracleOverride(t *testing.T) {
	owner := random.Uint160()
	alice := random.Uint160()
	l := newTestLedger(t, owner)

	p := rights.NewPolicy(owner)
	p.Grant(alice, rights.WildcardScope(), rights.Mint)
	l.SetRightsOracle(p)

	_, err := l.MintBatch(alice, alice, 1)
	require.NoError(t, err)

	p.Revoke(alice, rights.WildcardScope(), rights.Mint)
	_, err = l.MintBatch(alice, alice, 1)
	require.ErrorIs(t, err, ErrNotAuthorized)
}

func TestCorruptedState(t *testing.T) {
	owner := random.Uint160()
	alice := random.Uint160()

	// seed writes a raw pre-ledger state into a fresh store and opens a
	// ledger over it.
	seed := func(t *testing.T, fill func(d *dao.Simple)) *Ledger {
		st := storage.NewMemoryStore()
		d := dao.NewSimple(st)
		fill(d)
		_, err := d.Persist()
		require.NoError(t, err)

		l, err := NewLedger(st, testLedgerConfig(owner), zaptest.NewLogger(t))
		require.NoError(t, err)
		t.Cleanup(func() { require.NoError(t, l.Close()) })
		return l
	}

	t.Run("no slots at all", func(t *testing.T) {
		l := seed(t, func(d *dao.Simple) {
			require.NoError(t, d.PutCollectionState(&state.CollectionState{
				MintIndex:   5,
				TotalSupply: 100,
				BatchSize:   10,
			}))
		})
		_, err := l.OwnerOf(3)
		require.ErrorIs(t, err, ErrOwnershipIndeterminate)
		require.ErrorIs(t, l.VerifyState(), ErrOwnershipIndeterminate)
	})
	t.Run("slot gap wider than a batch", func(t *testing.T) {
		l := seed(t, func(d *dao.Simple) {
			require.NoError(t, d.PutCollectionState(&state.CollectionState{
				MintIndex:   25,
				TotalSupply: 100,
				BatchSize:   10,
			}))
			d.PutOwnerSlot(0, alice)
			d.PutBalance(alice, 25)
		})
		// Token 20 is more than BatchSize IDs above the only slot, the
		// bounded scan finds nothing in its window.
		_, err := l.OwnerOf(20)
		require.ErrorIs(t, err, ErrOwnershipIndeterminate)
		require.ErrorIs(t, l.VerifyState(), ErrOwnershipIndeterminate)

		// Tokens within the window of slot 0 still resolve.
		o, err := l.OwnerOf(5)
		require.NoError(t, err)
		require.Equal(t, alice, o)
	})
}

func TestLedgerPersistence(t *testing.T) {
	owner := random.Uint160()
	alice := random.Uint160()
	bob := random.Uint160()

	cfg := testLedgerConfig(owner)
	dbCfg := dbconfig.DBConfiguration{
		Type: dbconfig.BoltDB,
		BoltDBOptions: dbconfig.BoltDBOptions{
			FilePath: filepath.Join(t.TempDir(), "ledger.bolt"),
		},
	}

	open := func(t *testing.T, cfg config.Ledger) (*Ledger, error) {
		st, err := storage.NewStore(dbCfg)
		require.NoError(t, err)
		l, err := NewLedger(st, cfg, zaptest.NewLogger(t))
		if err != nil {
			require.NoError(t, st.Close())
		}
		return l, err
	}

	l, err := open(t, cfg)
	require.NoError(t, err)
	_, err = l.MintBatch(owner, alice, 5)
	require.NoError(t, err)
	require.NoError(t, l.Transfer(alice, alice, bob, []uint64{2}, nil))
	require.NoError(t, l.SetTokenURI(owner, 0, "ipfs://zero"))
	require.NoError(t, l.Close())

	t.Run("state survives reopen", func(t *testing.T) {
		l, err := open(t, cfg)
		require.NoError(t, err)
		defer func() { require.NoError(t, l.Close()) }()

		require.Equal(t, uint64(5), l.MintIndex())
		o, err := l.OwnerOf(2)
		require.NoError(t, err)
		require.Equal(t, bob, o)
		o, err = l.OwnerOf(3)
		require.NoError(t, err)
		require.Equal(t, alice, o)
		uri, err := l.TokenURI(0)
		require.NoError(t, err)
		require.Equal(t, "ipfs://zero", uri)
		require.NoError(t, l.VerifyState())
	})
	t.Run("parameter mismatch refused", func(t *testing.T) {
		bad := cfg
		bad.BatchSize = 20
		_, err := open(t, bad)
		require.Error(t, err)

		bad = cfg
		bad.TotalSupply = 1000
		_, err = open(t, bad)
		require.Error(t, err)
	})
}
