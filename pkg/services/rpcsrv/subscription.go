package rpcsrv

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/compactmint/compactmint/pkg/core/state"
	"github.com/compactmint/compactmint/pkg/rpc"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// serveWS upgrades the connection and feeds it ledger notifications
// until the client goes away or the server shuts down.
func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	maxClients := s.config.MaxWebSocketClients
	if maxClients == 0 {
		maxClients = defaultMaxWSClients
	}
	s.subsLock.Lock()
	if s.wsCount >= maxClients {
		s.subsLock.Unlock()
		http.Error(w, "too many subscribers", http.StatusServiceUnavailable)
		return
	}
	s.wsCount++
	s.subsLock.Unlock()

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Info("websocket connection upgrade failed", zap.Error(err))
		s.subsLock.Lock()
		s.wsCount--
		s.subsLock.Unlock()
		return
	}

	s.wg.Add(1)
	go s.handleWsEvents(ws)
}

func (s *Server) handleWsEvents(ws *websocket.Conn) {
	defer func() {
		ws.Close()
		s.subsLock.Lock()
		s.wsCount--
		s.subsLock.Unlock()
		s.wg.Done()
	}()

	ch := make(chan state.Notification, notificationBufSize)
	subID := s.ledger.SubscribeForNotifications(ch)
	defer s.ledger.UnsubscribeFromNotifications(subID)

	// Drain incoming frames so pings get answered, client messages on
	// the feed connection are otherwise ignored.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	pingTicker := time.NewTicker(wsPingPeriod)
	defer pingTicker.Stop()
	for {
		select {
		case <-s.shutdown:
			return
		case <-closed:
			return
		case <-pingTicker.C:
			ws.SetWriteDeadline(time.Now().Add(wsWriteLimit))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case ntf := <-ch:
			raw, err := json.Marshal(ntf)
			if err != nil {
				s.log.Error("failed to marshal notification", zap.Error(err))
				continue
			}
			event := rpc.Notification{
				JSONRPC: rpc.JSONRPCVersion,
				Method:  rpc.EventMethod,
				Params:  []json.RawMessage{raw},
			}
			ws.SetWriteDeadline(time.Now().Add(wsWriteLimit))
			if err := ws.WriteJSON(event); err != nil {
				return
			}
		}
	}
}
