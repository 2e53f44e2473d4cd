// Package core implements the compacted ownership ledger: an NFT
// collection ledger where minting a batch of tokens writes a single
// ownership slot for the whole batch and per-token ownership is resolved
// with a bounded backward scan over the sparse slot map.
package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/compactmint/compactmint/pkg/config"
	"github.com/compactmint/compactmint/pkg/core/dao"
	"github.com/compactmint/compactmint/pkg/core/delegates"
	"github.com/compactmint/compactmint/pkg/core/rights"
	"github.com/compactmint/compactmint/pkg/core/state"
	"github.com/compactmint/compactmint/pkg/core/storage"
	"github.com/compactmint/compactmint/pkg/util"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
)

// Resolved owners are cheap to keep around and transfers only ever
// invalidate the transferred ID itself (boundary repair keeps every
// other resolution stable), so the cache can be fairly large.
const ownerCacheSize = 4096

// Ledger is the compacted ownership ledger of a single collection. All
// mutating operations are strictly serialized, read-only queries can run
// concurrently with each other but never with a mutation.
type Ledger struct {
	// Lock protects all ledger state, mutations take it exclusively.
	lock sync.RWMutex

	log *zap.Logger
	cfg config.Ledger

	// dao is the committed state layer on top of the backing store.
	dao *dao.Simple

	// collection mirrors the stored collection-wide record.
	collection state.CollectionState

	// owners caches resolved token owners against committed state.
	owners *lru.Cache

	// inNotify is set for the duration of receiver acceptance callbacks
	// (the commit-then-notify window), mutating calls made during it are
	// rejected with ErrReentrantCall.
	inNotify atomic.Bool

	rightsOracle rights.Oracle
	delegateReg  delegates.Registry
	receivers    ReceiverResolver

	beforeTransfer TransferHook
	afterTransfer  TransferHook

	hub *notificationHub
}

// NewLedger returns a Ledger using the given store as its state
// persistence layer. A fresh store is initialized from cfg, an existing
// one is validated against it (the supply cap and batch size of a
// collection never change after initialization).
func NewLedger(st storage.Store, cfg config.Ledger, log *zap.Logger) (*Ledger, error) {
	if log == nil {
		return nil, errors.New("empty logger")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ledger configuration: %w", err)
	}

	policy := rights.NewPolicy(cfg.Owner)
	for _, g := range cfg.Grants {
		scope := rights.WildcardScope()
		if g.Token != nil {
			scope = rights.TokenScope(*g.Token)
		}
		switch g.Right {
		case "mint":
			policy.Grant(g.Account, scope, rights.Mint)
		case "lock":
			policy.Grant(g.Account, scope, rights.Lock)
		case "seturi":
			policy.Grant(g.Account, scope, rights.SetURI)
		}
	}
	registry := delegates.NewStatic()
	for _, d := range cfg.Delegates {
		registry.Register(d.Owner, d.Delegate)
	}

	cache, _ := lru.New(ownerCacheSize) // Never errors for positive size.
	l := &Ledger{
		log:          log,
		cfg:          cfg,
		dao:          dao.NewSimple(st),
		owners:       cache,
		rightsOracle: policy,
		delegateReg:  registry,
		hub:          newNotificationHub(log),
	}

	if err := l.init(); err != nil {
		return nil, err
	}
	updateMintIndexMetric(l.collection.MintIndex)
	return l, nil
}

func (l *Ledger) init() error {
	cs, err := l.dao.GetCollectionState()
	if errors.Is(err, storage.ErrKeyNotFound) {
		cs = &state.CollectionState{
			TotalSupply: l.cfg.TotalSupply,
			BatchSize:   l.cfg.BatchSize,
			BaseURI:     l.cfg.BaseURI,
		}
		if err = l.dao.PutCollectionState(cs); err != nil {
			return err
		}
		if _, err = l.dao.Persist(); err != nil {
			return fmt.Errorf("failed to persist initial collection state: %w", err)
		}
		l.log.Info("initialized fresh collection",
			zap.String("name", l.cfg.Name),
			zap.Uint64("totalSupply", cs.TotalSupply),
			zap.Uint64("batchSize", cs.BatchSize))
	} else if err != nil {
		return fmt.Errorf("failed to read collection state: %w", err)
	} else {
		if cs.TotalSupply != l.cfg.TotalSupply {
			return fmt.Errorf("configured TotalSupply %d doesn't match the store (%d)", l.cfg.TotalSupply, cs.TotalSupply)
		}
		if cs.BatchSize != l.cfg.BatchSize {
			return fmt.Errorf("configured BatchSize %d doesn't match the store (%d)", l.cfg.BatchSize, cs.BatchSize)
		}
		l.log.Info("restored collection state",
			zap.String("name", l.cfg.Name),
			zap.Uint64("mintIndex", cs.MintIndex))
	}
	l.collection = *cs
	return nil
}

// SetRightsOracle replaces the authorization oracle (the default one is
// a Policy built from the configuration). Must be called before the
// first operation.
func (l *Ledger) SetRightsOracle(o rights.Oracle) {
	l.rightsOracle = o
}

// SetDelegateRegistry replaces the delegated-operator registry (the
// default one is built from the configuration). Must be called before
// the first operation.
func (l *Ledger) SetDelegateRegistry(r delegates.Registry) {
	l.delegateReg = r
}

// SetReceiverResolver sets the resolver used to find acceptance hooks of
// transfer recipients. Without a resolver every recipient is treated as
// a plain account. Must be called before the first operation.
func (l *Ledger) SetReceiverResolver(r ReceiverResolver) {
	l.receivers = r
}

// SetTransferHooks sets the hook pair called once around every transfer
// batch. Must be called before the first operation.
func (l *Ledger) SetTransferHooks(before, after TransferHook) {
	l.beforeTransfer = before
	l.afterTransfer = after
}

// SubscribeForNotifications adds the given channel to the notification
// subscribers. The channel must be buffered, events are dropped (with a
// warning logged) when it's full.
func (l *Ledger) SubscribeForNotifications(ch chan<- state.Notification) uuid.UUID {
	return l.hub.Subscribe(ch)
}

// UnsubscribeFromNotifications removes the subscription.
func (l *Ledger) UnsubscribeFromNotifications(id uuid.UUID) {
	l.hub.Unsubscribe(id)
}

// Name returns the collection name.
func (l *Ledger) Name() string {
	return l.cfg.Name
}

// TotalSupply returns the immutable cap on the number of tokens.
func (l *Ledger) TotalSupply() uint64 {
	return l.collection.TotalSupply
}

// BatchSize returns the per-mint batch limit.
func (l *Ledger) BatchSize() uint64 {
	return l.collection.BatchSize
}

// MintIndex returns the current mint watermark (the number of existing
// tokens, all of them have IDs below it).
func (l *Ledger) MintIndex() uint64 {
	l.lock.RLock()
	defer l.lock.RUnlock()
	return l.collection.MintIndex
}

// CollectionState returns a copy of the current collection-wide record.
func (l *Ledger) CollectionState() state.CollectionState {
	l.lock.RLock()
	defer l.lock.RUnlock()
	return l.collection
}

// guardMutation is the common entry check of every mutating operation,
// the returned function releases the lock. Mutations are rejected during
// the commit-then-notify window of an in-flight transfer.
func (l *Ledger) guardMutation() (func(), error) {
	l.lock.Lock()
	if l.inNotify.Load() {
		l.lock.Unlock()
		return nil, ErrReentrantCall
	}
	return l.lock.Unlock, nil
}

// MintBatch creates quantity new sequential tokens owned by to, writing
// a single ownership slot for the whole batch, and returns the first new
// token ID. The caller needs the collection-wide mint right. One
// Transfer notification per created token is emitted even though storage
// is written once.
func (l *Ledger) MintBatch(caller, to util.Uint160, quantity uint64) (uint64, error) {
	unlock, err := l.guardMutation()
	if err != nil {
		return 0, err
	}
	defer unlock()

	if !l.rightsOracle.HasRight(caller, rights.WildcardScope(), rights.Mint) {
		return 0, fmt.Errorf("%w: %s has no mint right", ErrNotAuthorized, caller.StringBE())
	}
	if l.collection.MintLocked {
		return 0, fmt.Errorf("%w: minting", ErrAlreadyLocked)
	}
	if to.IsZero() {
		return 0, ErrInvalidRecipient
	}
	if quantity == 0 || quantity > l.collection.BatchSize {
		return 0, fmt.Errorf("%w: quantity %d is out of the (0, %d] batch window", ErrCapacityExceeded, quantity, l.collection.BatchSize)
	}
	if quantity > l.collection.TotalSupply-l.collection.MintIndex {
		return 0, fmt.Errorf("%w: %d tokens left to mint, %d requested", ErrCapacityExceeded, l.collection.TotalSupply-l.collection.MintIndex, quantity)
	}

	var (
		startID = l.collection.MintIndex
		cs      = l.collection
	)
	cs.MintIndex += quantity

	// One slot for the whole batch, intermediate IDs resolve to it via
	// the backward scan.
	l.dao.PutOwnerSlot(startID, to)
	l.dao.PutBalance(to, l.dao.GetBalance(to)+quantity)
	if err := l.dao.PutCollectionState(&cs); err != nil {
		l.dao.Discard()
		return 0, err
	}
	if _, err := l.dao.Persist(); err != nil {
		l.dao.Discard()
		return 0, fmt.Errorf("failed to persist mint: %w", err)
	}
	l.collection = cs
	updateMintedCounter(quantity)
	updateMintIndexMetric(cs.MintIndex)
	l.log.Info("minted batch",
		zap.Uint64("startID", startID),
		zap.Uint64("quantity", quantity),
		zap.String("to", to.StringBE()))

	ntfs := make([]state.Notification, quantity)
	for i := range ntfs {
		ntfs[i] = state.Notification{
			Type:    state.TransferEventType,
			To:      to,
			TokenID: startID + uint64(i),
		}
	}
	l.hub.publish(ntfs...)
	return startID, nil
}

// resolveOwner finds the owner of the given token scanning backwards
// from it for the nearest explicit ownership slot. The scan never has to
// cross more than BatchSize-1 IDs, failure to find a slot within that
// window means the ledger is corrupted.
func (l *Ledger) resolveOwner(d *dao.Simple, id uint64) (util.Uint160, error) {
	if id >= l.collection.MintIndex {
		return util.Uint160{}, fmt.Errorf("%w: token %d", ErrNotFound, id)
	}
	var lowerBound uint64
	if id >= l.collection.BatchSize {
		lowerBound = id - l.collection.BatchSize + 1
	}
	var (
		owner util.Uint160
		found bool
		depth uint64
	)
	d.SeekOwnerSlotsBackwards(id, func(sid uint64, o util.Uint160) bool {
		if sid >= lowerBound {
			owner = o
			found = true
			depth = id - sid
		}
		return false
	})
	if !found {
		l.log.Error("ownership slot missing within the batch window, ledger state is corrupted",
			zap.Uint64("tokenID", id),
			zap.Uint64("lowerBound", lowerBound))
		return util.Uint160{}, fmt.Errorf("%w: token %d has no slot in [%d, %d]", ErrOwnershipIndeterminate, id, lowerBound, id)
	}
	updateOwnerScanDepthMetric(depth)
	return owner, nil
}

// OwnerOf returns the current owner of the given token.
func (l *Ledger) OwnerOf(id uint64) (util.Uint160, error) {
	l.lock.RLock()
	defer l.lock.RUnlock()
	if owner, ok := l.owners.Get(id); ok {
		return owner.(util.Uint160), nil
	}
	owner, err := l.resolveOwner(l.dao, id)
	if err != nil {
		return owner, err
	}
	l.owners.Add(id, owner)
	return owner, nil
}

// BalanceOf returns the number of tokens currently owned by the given
// account.
func (l *Ledger) BalanceOf(acc util.Uint160) uint64 {
	l.lock.RLock()
	defer l.lock.RUnlock()
	return l.dao.GetBalance(acc)
}

// TokenByIndex returns the token ID at the given position of the global
// token enumeration. IDs are dense integers assigned in mint order, so
// this is an identity function bounded by the mint watermark.
func (l *Ledger) TokenByIndex(index uint64) (uint64, error) {
	l.lock.RLock()
	defer l.lock.RUnlock()
	if index >= l.collection.MintIndex {
		return 0, fmt.Errorf("%w: index %d is out of the minted range", ErrNotFound, index)
	}
	return index, nil
}

// TokensOf returns all token IDs currently owned by the given account in
// ascending order. It walks the explicit slots carrying the current
// owner forward over implicitly-owned runs, it's a full-scan fallback
// suitable for bounded collections only.
func (l *Ledger) TokensOf(acc util.Uint160) []uint64 {
	l.lock.RLock()
	defer l.lock.RUnlock()
	return l.tokensOf(acc)
}

func (l *Ledger) tokensOf(acc util.Uint160) []uint64 {
	var (
		res      []uint64
		runOwner util.Uint160
		runStart uint64
		started  bool
	)
	appendRun := func(end uint64) {
		if started && runOwner.Equals(acc) {
			for id := runStart; id < end; id++ {
				res = append(res, id)
			}
		}
	}
	l.dao.SeekOwnerSlots(func(id uint64, owner util.Uint160) bool {
		appendRun(id)
		runOwner, runStart, started = owner, id, true
		return true
	})
	appendRun(l.collection.MintIndex)
	return res
}

// TokenOfOwnerByIndex returns the index-th (in ascending ID order) token
// owned by the given account.
func (l *Ledger) TokenOfOwnerByIndex(acc util.Uint160, index uint64) (uint64, error) {
	l.lock.RLock()
	defer l.lock.RUnlock()
	ids := l.tokensOf(acc)
	if index >= uint64(len(ids)) {
		return 0, fmt.Errorf("%w: account owns %d tokens, index %d requested", ErrNotFound, len(ids), index)
	}
	return ids[index], nil
}

// Transfer moves the given tokens from their current owner to the given
// recipient applying per-token authorization checks. It's all-or-nothing:
// any failed check aborts the whole batch with no state changed, and a
// receiver rejection rolls all of it back.
//
// When the recipient has an acceptance hook registered, the hook runs
// once per token with the batch already committed. Mutating ledger calls
// made from the hook (or concurrently with it) fail with ErrReentrantCall,
// read-only calls observe the committed batch.
func (l *Ledger) Transfer(caller, from, to util.Uint160, ids []uint64, data []byte) error {
	unlock, err := l.guardMutation()
	if err != nil {
		return err
	}

	rollback, err := l.applyTransfer(caller, from, to, ids)
	if err != nil {
		unlock()
		return err
	}

	var receiver Receiver
	if l.receivers != nil {
		receiver = l.receivers.ResolveReceiver(to)
	}
	if receiver == nil {
		l.notifyTransfer(from, to, ids)
		unlock()
		return nil
	}

	// Commit-then-notify: the batch is committed, now run acceptance
	// hooks without the lock so that the (untrusted, potentially
	// reentrant) receiver can query the ledger. inNotify makes any
	// nested or concurrent mutation fail fast instead of interleaving
	// with a batch that may still be rolled back.
	l.inNotify.Store(true)
	unlock()

	hookErr := l.runAcceptanceHooks(receiver, caller, from, ids, data)

	l.lock.Lock()
	defer l.lock.Unlock()
	l.inNotify.Store(false)
	if hookErr != nil {
		if err := l.applyRollback(rollback, ids); err != nil {
			// Failing to roll back leaves the ledger inconsistent with
			// the declared result, nothing to do but shout.
			l.log.Error("failed to roll back rejected transfer", zap.Error(err))
			return fmt.Errorf("%w (rollback failed: %v)", hookErr, err)
		}
		return hookErr
	}
	l.notifyTransfer(from, to, ids)
	return nil
}

// applyTransfer validates and applies the whole batch on a wrapped DAO
// layer, persists it and returns the changeset needed to undo it. Called
// with the lock taken.
func (l *Ledger) applyTransfer(caller, from, to util.Uint160, ids []uint64) (map[string][]byte, error) {
	if to.IsZero() {
		return nil, ErrInvalidRecipient
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: empty token list", ErrNotFound)
	}
	if l.beforeTransfer != nil {
		if err := l.beforeTransfer(from, to, ids); err != nil {
			return nil, fmt.Errorf("transfer vetoed: %w", err)
		}
	}

	d := l.dao.GetWrapped()
	for _, id := range ids {
		if err := l.transferSingle(d, caller, from, to, id); err != nil {
			return nil, err
		}
	}
	if l.afterTransfer != nil {
		if err := l.afterTransfer(from, to, ids); err != nil {
			return nil, fmt.Errorf("transfer vetoed: %w", err)
		}
	}

	// Capture prior values of everything the batch touches, rollback is
	// the inverse changeset.
	changes := d.Store.ChangeSet()
	rollback := make(map[string][]byte, len(changes))
	for k := range changes {
		if old, err := l.dao.Store.Get([]byte(k)); err == nil {
			rollback[k] = old
		} else {
			rollback[k] = nil
		}
	}

	if _, err := d.Persist(); err != nil {
		d.Discard()
		return nil, fmt.Errorf("failed to apply transfer: %w", err)
	}
	if _, err := l.dao.Persist(); err != nil {
		l.dao.Discard()
		return nil, fmt.Errorf("failed to persist transfer: %w", err)
	}
	l.dropOwnerCache(ids)
	updateTransferredCounter(len(ids))
	return rollback, nil
}

// transferSingle applies the per-token transfer steps on the given
// DAO layer: ownership and authorization checks, approval clearing,
// balance updates, the new ownership slot and the boundary repair write.
func (l *Ledger) transferSingle(d *dao.Simple, caller, from, to util.Uint160, id uint64) error {
	owner, err := l.resolveOwner(d, id)
	if err != nil {
		return err
	}
	if !owner.Equals(from) {
		return fmt.Errorf("%w: token %d belongs to %s", ErrTransferNotOwner, id, owner.StringBE())
	}
	if !caller.Equals(from) && !l.isApprovedFor(d, id, from, caller) {
		return fmt.Errorf("%w: %s can't transfer token %d", ErrNotAuthorized, caller.StringBE(), id)
	}

	d.DeleteTokenApproval(id)
	d.PutBalance(from, d.GetBalance(from)-1)
	d.PutBalance(to, d.GetBalance(to)+1)

	// The transferred token becomes a batch head of its own.
	d.PutOwnerSlot(id, to)

	// Boundary repair: if the next ID exists and has no explicit slot,
	// its backward scan would now hit the new owner's slot, so pin the
	// previous owner there to keep the rest of the original batch
	// resolving correctly.
	if next := id + 1; next < l.collection.MintIndex {
		if _, ok := d.GetOwnerSlot(next); !ok {
			d.PutOwnerSlot(next, from)
		}
	}
	return nil
}

// isApprovedFor checks whether the caller can move the given token on
// the owner's behalf: per-token approval, explicit operator approval or
// a registered delegate all qualify.
func (l *Ledger) isApprovedFor(d *dao.Simple, id uint64, owner, caller util.Uint160) bool {
	if approved, ok := d.GetTokenApproval(id); ok && approved.Equals(caller) {
		return true
	}
	return l.isOperatorFor(d, owner, caller)
}

func (l *Ledger) isOperatorFor(d *dao.Simple, owner, operator util.Uint160) bool {
	if d.IsOperator(owner, operator) {
		return true
	}
	if l.delegateReg != nil {
		if delegate, ok := l.delegateReg.LookupDelegate(owner); ok && delegate.Equals(operator) {
			return true
		}
	}
	return false
}

func (l *Ledger) runAcceptanceHooks(receiver Receiver, caller, from util.Uint160, ids []uint64, data []byte) error {
	for _, id := range ids {
		if err := l.callReceiver(receiver, caller, from, id, data); err != nil {
			return err
		}
	}
	return nil
}

// callReceiver invokes one acceptance hook converting both returned
// errors and panics (the hook is untrusted code) into a rejection.
func (l *Ledger) callReceiver(receiver Receiver, caller, from util.Uint160, id uint64, data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: token %d: receiver panicked: %v", ErrReceiverRejected, id, r)
		}
	}()
	if err := receiver.OnReceive(caller, from, id, data); err != nil {
		return fmt.Errorf("%w: token %d: %v", ErrReceiverRejected, id, err)
	}
	return nil
}

// applyRollback writes the inverse changeset captured before the batch
// was committed. Called with the lock taken.
func (l *Ledger) applyRollback(rollback map[string][]byte, ids []uint64) error {
	if err := l.dao.Store.PutChangeSet(rollback); err != nil {
		return err
	}
	if _, err := l.dao.Persist(); err != nil {
		return err
	}
	l.dropOwnerCache(ids)
	return nil
}

// dropOwnerCache invalidates cached resolutions of the transferred IDs.
// Boundary repair pins the previous owner at id+1, so resolutions of all
// other IDs are unaffected by design and stay cached.
func (l *Ledger) dropOwnerCache(ids []uint64) {
	for _, id := range ids {
		l.owners.Remove(id)
		l.owners.Remove(id + 1)
	}
}

func (l *Ledger) notifyTransfer(from, to util.Uint160, ids []uint64) {
	ntfs := make([]state.Notification, len(ids))
	for i, id := range ids {
		ntfs[i] = state.Notification{
			Type:    state.TransferEventType,
			From:    from,
			To:      to,
			TokenID: id,
		}
	}
	l.hub.publish(ntfs...)
}

// Approve sets or clears (zero approved account) the single approved
// account of the given token. The caller must be the token's owner or an
// approved operator of the owner.
func (l *Ledger) Approve(caller, approved util.Uint160, id uint64) error {
	unlock, err := l.guardMutation()
	if err != nil {
		return err
	}
	defer unlock()

	owner, err := l.resolveOwner(l.dao, id)
	if err != nil {
		return err
	}
	if approved.Equals(owner) {
		return fmt.Errorf("%w: approval to the current owner", ErrInvalidApproval)
	}
	if !caller.Equals(owner) && !l.isOperatorFor(l.dao, owner, caller) {
		return fmt.Errorf("%w: %s can't approve token %d", ErrNotAuthorized, caller.StringBE(), id)
	}

	if approved.IsZero() {
		l.dao.DeleteTokenApproval(id)
	} else {
		l.dao.PutTokenApproval(id, approved)
	}
	if _, err := l.dao.Persist(); err != nil {
		l.dao.Discard()
		return fmt.Errorf("failed to persist approval: %w", err)
	}
	l.hub.publish(state.Notification{
		Type:    state.ApprovalEventType,
		From:    owner,
		To:      approved,
		TokenID: id,
	})
	return nil
}

// GetApproved returns the approved account of the given token (zero when
// there is none).
func (l *Ledger) GetApproved(id uint64) (util.Uint160, error) {
	l.lock.RLock()
	defer l.lock.RUnlock()
	if id >= l.collection.MintIndex {
		return util.Uint160{}, fmt.Errorf("%w: token %d", ErrNotFound, id)
	}
	approved, _ := l.dao.GetTokenApproval(id)
	return approved, nil
}

// SetApprovalForAll grants or revokes the operator status over all of
// the caller's tokens, current and future.
func (l *Ledger) SetApprovalForAll(caller, operator util.Uint160, approved bool) error {
	unlock, err := l.guardMutation()
	if err != nil {
		return err
	}
	defer unlock()

	if operator.IsZero() {
		return ErrInvalidRecipient
	}
	if operator.Equals(caller) {
		return fmt.Errorf("%w: self-approval", ErrInvalidApproval)
	}

	if approved {
		l.dao.PutOperator(caller, operator)
	} else {
		l.dao.DeleteOperator(caller, operator)
	}
	if _, err := l.dao.Persist(); err != nil {
		l.dao.Discard()
		return fmt.Errorf("failed to persist operator approval: %w", err)
	}
	l.hub.publish(state.Notification{
		Type:     state.OperatorEventType,
		From:     caller,
		To:       operator,
		Approved: approved,
	})
	return nil
}

// IsApprovedForAll tells whether the operator can act on all of the
// owner's tokens, either via an explicit approval or via the external
// delegate registry.
func (l *Ledger) IsApprovedForAll(owner, operator util.Uint160) bool {
	l.lock.RLock()
	defer l.lock.RUnlock()
	return l.isOperatorFor(l.dao, owner, operator)
}

// LockMinting permanently disables minting. The caller needs the
// collection-wide lock right.
func (l *Ledger) LockMinting(caller util.Uint160) error {
	unlock, err := l.guardMutation()
	if err != nil {
		return err
	}
	defer unlock()

	if !l.rightsOracle.HasRight(caller, rights.WildcardScope(), rights.Lock) {
		return fmt.Errorf("%w: %s has no lock right", ErrNotAuthorized, caller.StringBE())
	}
	if l.collection.MintLocked {
		return fmt.Errorf("%w: minting", ErrAlreadyLocked)
	}
	cs := l.collection
	cs.MintLocked = true
	return l.persistCollection(cs)
}

// SetBaseURI updates the collection-wide URI template. The caller needs
// the collection-wide seturi right.
func (l *Ledger) SetBaseURI(caller util.Uint160, uri string) error {
	unlock, err := l.guardMutation()
	if err != nil {
		return err
	}
	defer unlock()

	if !l.rightsOracle.HasRight(caller, rights.WildcardScope(), rights.SetURI) {
		return fmt.Errorf("%w: %s has no seturi right", ErrNotAuthorized, caller.StringBE())
	}
	if l.collection.BaseURILocked {
		return fmt.Errorf("%w: base URI", ErrAlreadyLocked)
	}
	cs := l.collection
	cs.BaseURI = uri
	return l.persistCollection(cs)
}

// LockBaseURI permanently freezes the collection-wide URI template.
func (l *Ledger) LockBaseURI(caller util.Uint160) error {
	unlock, err := l.guardMutation()
	if err != nil {
		return err
	}
	defer unlock()

	if !l.rightsOracle.HasRight(caller, rights.WildcardScope(), rights.Lock) {
		return fmt.Errorf("%w: %s has no lock right", ErrNotAuthorized, caller.StringBE())
	}
	if l.collection.BaseURILocked {
		return fmt.Errorf("%w: base URI", ErrAlreadyLocked)
	}
	cs := l.collection
	cs.BaseURILocked = true
	return l.persistCollection(cs)
}

func (l *Ledger) persistCollection(cs state.CollectionState) error {
	if err := l.dao.PutCollectionState(&cs); err != nil {
		l.dao.Discard()
		return err
	}
	if _, err := l.dao.Persist(); err != nil {
		l.dao.Discard()
		return fmt.Errorf("failed to persist collection state: %w", err)
	}
	l.collection = cs
	return nil
}

// SetTokenURI sets an explicit metadata URI for the given token. The
// caller needs the seturi right for this token (or collection-wide).
func (l *Ledger) SetTokenURI(caller util.Uint160, id uint64, uri string) error {
	unlock, err := l.guardMutation()
	if err != nil {
		return err
	}
	defer unlock()

	if !l.rightsOracle.HasRight(caller, rights.TokenScope(id), rights.SetURI) {
		return fmt.Errorf("%w: %s has no seturi right for token %d", ErrNotAuthorized, caller.StringBE(), id)
	}
	if id >= l.collection.MintIndex {
		return fmt.Errorf("%w: token %d", ErrNotFound, id)
	}
	md, err := l.dao.GetTokenMetadata(id)
	if err != nil {
		return err
	}
	if md != nil && md.Frozen {
		return fmt.Errorf("%w: token %d metadata", ErrAlreadyLocked, id)
	}
	if err := l.dao.PutTokenMetadata(id, &state.TokenMetadata{URI: uri}); err != nil {
		l.dao.Discard()
		return err
	}
	if _, err := l.dao.Persist(); err != nil {
		l.dao.Discard()
		return fmt.Errorf("failed to persist token metadata: %w", err)
	}
	return nil
}

// FreezeTokenURI permanently freezes the metadata of the given token at
// its current value. The caller needs the lock right for this token (or
// collection-wide).
func (l *Ledger) FreezeTokenURI(caller util.Uint160, id uint64) error {
	unlock, err := l.guardMutation()
	if err != nil {
		return err
	}
	defer unlock()

	if !l.rightsOracle.HasRight(caller, rights.TokenScope(id), rights.Lock) {
		return fmt.Errorf("%w: %s has no lock right for token %d", ErrNotAuthorized, caller.StringBE(), id)
	}
	if id >= l.collection.MintIndex {
		return fmt.Errorf("%w: token %d", ErrNotFound, id)
	}
	md, err := l.dao.GetTokenMetadata(id)
	if err != nil {
		return err
	}
	if md == nil {
		md = &state.TokenMetadata{}
	}
	if md.Frozen {
		return fmt.Errorf("%w: token %d metadata", ErrAlreadyLocked, id)
	}
	md.Frozen = true
	if err := l.dao.PutTokenMetadata(id, md); err != nil {
		l.dao.Discard()
		return err
	}
	if _, err := l.dao.Persist(); err != nil {
		l.dao.Discard()
		return fmt.Errorf("failed to persist token metadata: %w", err)
	}
	return nil
}

// TokenURI returns the effective metadata URI of the given token: its
// explicit URI when set or the collection-wide template otherwise ({id}
// placeholders in the template are substituted with the decimal ID, a
// template without placeholders gets the ID appended).
func (l *Ledger) TokenURI(id uint64) (string, error) {
	l.lock.RLock()
	defer l.lock.RUnlock()
	if id >= l.collection.MintIndex {
		return "", fmt.Errorf("%w: token %d", ErrNotFound, id)
	}
	md, err := l.dao.GetTokenMetadata(id)
	if err != nil {
		return "", err
	}
	if md != nil && md.URI != "" {
		return md.URI, nil
	}
	base := l.collection.BaseURI
	if base == "" {
		return "", nil
	}
	dec := strconv.FormatUint(id, 10)
	if strings.Contains(base, "{id}") {
		return strings.ReplaceAll(base, "{id}", dec), nil
	}
	return base + dec, nil
}

// VerifyState checks the ledger's internal consistency invariants: the
// sum of all balances must equal the mint watermark and every existing
// token must have an explicit ownership slot within its backward-scan
// window. It's a linear scan intended for tests and operator tooling.
func (l *Ledger) VerifyState() error {
	l.lock.RLock()
	defer l.lock.RUnlock()

	var balanceSum uint64
	l.dao.SeekBalances(func(acc util.Uint160, balance uint64) bool {
		balanceSum += balance
		return true
	})
	if balanceSum != l.collection.MintIndex {
		return fmt.Errorf("%w: balance sum %d != mint index %d", ErrOwnershipIndeterminate, balanceSum, l.collection.MintIndex)
	}

	// Slots are only ever added, so it's enough to check that gaps
	// between them (and the watermark) never exceed the scan window.
	var (
		prev    uint64
		started bool
		err     error
	)
	l.dao.SeekOwnerSlots(func(id uint64, owner util.Uint160) bool {
		switch {
		case !started && id != 0:
			err = fmt.Errorf("%w: first slot is at %d, not 0", ErrOwnershipIndeterminate, id)
		case started && id-prev > l.collection.BatchSize:
			err = fmt.Errorf("%w: %d-wide slot gap at %d", ErrOwnershipIndeterminate, id-prev, prev)
		case id >= l.collection.MintIndex:
			err = fmt.Errorf("%w: slot %d is above the watermark %d", ErrOwnershipIndeterminate, id, l.collection.MintIndex)
		}
		prev, started = id, true
		return err == nil
	})
	if err != nil {
		return err
	}
	if !started && l.collection.MintIndex != 0 {
		return fmt.Errorf("%w: no slots with watermark %d", ErrOwnershipIndeterminate, l.collection.MintIndex)
	}
	if started && l.collection.MintIndex-prev > l.collection.BatchSize {
		return fmt.Errorf("%w: %d-wide slot gap at the watermark", ErrOwnershipIndeterminate, l.collection.MintIndex-prev)
	}
	return nil
}

// Close releases the resources held by the ledger (the underlying
// store included).
func (l *Ledger) Close() error {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.dao.Store.Close()
}
