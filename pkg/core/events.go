package core

import (
	"sync"

	"github.com/compactmint/compactmint/pkg/core/state"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// notificationHub fans ledger notifications out to subscribers. Slow
// subscribers have notifications dropped rather than blocking the
// ledger, so subscriber channels should be buffered generously.
type notificationHub struct {
	mut  sync.RWMutex
	log  *zap.Logger
	subs map[uuid.UUID]chan<- state.Notification
}

func newNotificationHub(log *zap.Logger) *notificationHub {
	return &notificationHub{
		log:  log,
		subs: make(map[uuid.UUID]chan<- state.Notification),
	}
}

// Subscribe registers the given channel to receive all subsequent ledger
// notifications and returns the subscription ID used to unsubscribe.
func (h *notificationHub) Subscribe(ch chan<- state.Notification) uuid.UUID {
	id := uuid.New()
	h.mut.Lock()
	h.subs[id] = ch
	h.mut.Unlock()
	return id
}

// Unsubscribe removes the subscription. The channel is never closed by
// the hub, that's up to the subscriber.
func (h *notificationHub) Unsubscribe(id uuid.UUID) {
	h.mut.Lock()
	delete(h.subs, id)
	h.mut.Unlock()
}

func (h *notificationHub) publish(ntfs ...state.Notification) {
	h.mut.RLock()
	defer h.mut.RUnlock()
	for id, ch := range h.subs {
		for _, ntf := range ntfs {
			select {
			case ch <- ntf:
			default:
				h.log.Warn("skipping notification, subscriber is too slow",
					zap.String("subscriber", id.String()),
					zap.String("type", string(ntf.Type)))
			}
		}
	}
}
