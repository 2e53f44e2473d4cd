// Package rpcsrv implements the JSON-RPC 2.0 server exposing ledger
// queries and administrative operations over HTTP, plus a websocket
// event feed.
package rpcsrv

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/compactmint/compactmint/pkg/config"
	"github.com/compactmint/compactmint/pkg/core"
	"github.com/compactmint/compactmint/pkg/core/state"
	"github.com/compactmint/compactmint/pkg/encoding/address"
	"github.com/compactmint/compactmint/pkg/rpc"
	"github.com/compactmint/compactmint/pkg/util"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Timeout for a graceful shutdown of all listeners.
	shutdownTimeout = 10 * time.Second

	// Maximum time allotted to push one event into a websocket.
	wsWriteLimit = 5 * time.Second

	// Interval between websocket pings.
	wsPingPeriod = 30 * time.Second

	// Buffer of the per-connection event queue; a client lagging behind
	// it gets disconnected.
	notificationBufSize = 1024

	defaultMaxWSClients = 64
)

// Ledger is the interface the server needs from the underlying ledger.
type Ledger interface {
	Name() string
	TotalSupply() uint64
	BatchSize() uint64
	MintIndex() uint64
	CollectionState() state.CollectionState
	OwnerOf(id uint64) (util.Uint160, error)
	BalanceOf(acc util.Uint160) uint64
	TokensOf(acc util.Uint160) []uint64
	TokenOfOwnerByIndex(acc util.Uint160, index uint64) (uint64, error)
	TokenByIndex(index uint64) (uint64, error)
	TokenURI(id uint64) (string, error)
	GetApproved(id uint64) (util.Uint160, error)
	IsApprovedForAll(owner, operator util.Uint160) bool
	MintBatch(caller, to util.Uint160, quantity uint64) (uint64, error)
	Transfer(caller, from, to util.Uint160, ids []uint64, data []byte) error
	Approve(caller, approved util.Uint160, id uint64) error
	SetApprovalForAll(caller, operator util.Uint160, approved bool) error
	LockMinting(caller util.Uint160) error
	SetBaseURI(caller util.Uint160, uri string) error
	LockBaseURI(caller util.Uint160) error
	SetTokenURI(caller util.Uint160, id uint64, uri string) error
	FreezeTokenURI(caller util.Uint160, id uint64) error
	VerifyState() error
	SubscribeForNotifications(ch chan<- state.Notification) uuid.UUID
	UnsubscribeFromNotifications(id uuid.UUID)
}

// Server represents the JSON-RPC 2.0 server.
type Server struct {
	ledger Ledger
	log    *zap.Logger
	config config.RPC

	http    []*http.Server
	started bool

	upgrader websocket.Upgrader

	subsLock sync.Mutex
	wsCount  int

	shutdown chan struct{}
	wg       sync.WaitGroup
}

type handler func(params) (any, *rpc.Error)

// New creates a Server for the given ledger.
func New(ledger Ledger, cfg config.RPC, log *zap.Logger) *Server {
	addrs := cfg.GetAddresses()
	srvs := make([]*http.Server, len(addrs))
	for i, addr := range addrs {
		srvs[i] = &http.Server{Addr: addr}
	}
	s := &Server{
		ledger:   ledger,
		log:      log.With(zap.String("service", "rpc")),
		config:   cfg,
		http:     srvs,
		upgrader: websocket.Upgrader{},
		shutdown: make(chan struct{}),
	}
	for _, srv := range srvs {
		srv.Handler = s
	}
	return s
}

// Start creates a new JSON-RPC server listening on the configured ports
// (if enabled).
func (s *Server) Start() error {
	if !s.config.Enabled {
		s.log.Info("RPC server is not enabled")
		return nil
	}
	if s.started {
		return errors.New("RPC server already started")
	}
	s.started = true
	for _, srv := range s.http {
		s.log.Info("starting rpc-server", zap.String("endpoint", srv.Addr))
		go func(srv *http.Server) {
			err := srv.ListenAndServe()
			if !errors.Is(err, http.ErrServerClosed) {
				s.log.Error("failed to start RPC server", zap.String("endpoint", srv.Addr), zap.Error(err))
			}
		}(srv)
	}
	return nil
}

// Shutdown stops the server, waiting for active websocket feeds to
// drain.
func (s *Server) Shutdown() {
	if !s.started {
		return
	}
	s.started = false
	close(s.shutdown)
	for _, srv := range s.http {
		s.log.Info("shutting down RPC server", zap.String("endpoint", srv.Addr))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		err := srv.Shutdown(ctx)
		cancel()
		if err != nil {
			s.log.Error("can't shut down RPC server", zap.String("endpoint", srv.Addr), zap.Error(err))
		}
	}
	s.wg.Wait()
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		s.serveWS(w, r)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req rpc.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeResponse(w, rpc.Response{
			JSONRPC: rpc.JSONRPCVersion,
			Error:   rpc.NewError(rpc.ParseErrorCode, "Parse error", err.Error()),
		})
		return
	}
	s.writeResponse(w, s.handleRequest(&req))
}

func (s *Server) writeResponse(w http.ResponseWriter, resp rpc.Response) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.Error("failed to write response", zap.Error(err))
	}
}

func (s *Server) handleRequest(req *rpc.Request) rpc.Response {
	resp := rpc.Response{
		JSONRPC: rpc.JSONRPCVersion,
		ID:      req.ID,
	}
	if req.JSONRPC != rpc.JSONRPCVersion {
		resp.Error = rpc.NewError(rpc.InvalidRequestCode, "Invalid request", "invalid version")
		return resp
	}
	h, ok := s.methods()[req.Method]
	if !ok {
		resp.Error = rpc.NewError(rpc.MethodNotFoundCode, "Method not found", req.Method)
		return resp
	}
	incCounter(req.Method)

	start := time.Now()
	result, rpcErr := h(params(req.Params))
	observeDuration(req.Method, time.Since(start))

	if rpcErr != nil {
		resp.Error = rpcErr
		return resp
	}
	raw, err := json.Marshal(result)
	if err != nil {
		resp.Error = rpc.NewInternalError(err.Error())
		return resp
	}
	resp.Result = raw
	return resp
}

func (s *Server) methods() map[string]handler {
	return map[string]handler{
		"getcollection":        s.getCollection,
		"totalsupply":          s.totalSupply,
		"mintindex":            s.mintIndex,
		"ownerof":              s.ownerOf,
		"balanceof":            s.balanceOf,
		"tokensof":             s.tokensOf,
		"tokenofownerbyindex":  s.tokenOfOwnerByIndex,
		"tokenbyindex":         s.tokenByIndex,
		"tokenuri":             s.tokenURI,
		"getapproved":          s.getApproved,
		"isapprovedforall":     s.isApprovedForAll,
		"verifystate":          s.verifyState,
		"mint":                 s.mint,
		"transfer":             s.transfer,
		"approve":              s.approve,
		"setapprovalforall":    s.setApprovalForAll,
		"lockminting":          s.lockMinting,
		"setbaseuri":           s.setBaseURI,
		"lockbaseuri":          s.lockBaseURI,
		"settokenuri":          s.setTokenURI,
		"freezetokenuri":       s.freezeTokenURI,
	}
}

// ledgerError maps ledger sentinel errors to JSON-RPC application
// errors.
func ledgerError(err error) *rpc.Error {
	var code int64 = rpc.InternalErrorCode
	switch {
	case errors.Is(err, core.ErrNotFound):
		code = rpc.NotFoundCode
	case errors.Is(err, core.ErrNotAuthorized), errors.Is(err, core.ErrTransferNotOwner):
		code = rpc.NotAuthorizedCode
	case errors.Is(err, core.ErrAlreadyLocked):
		code = rpc.LockedCode
	case errors.Is(err, core.ErrCapacityExceeded):
		code = rpc.CapacityCode
	case errors.Is(err, core.ErrReceiverRejected):
		code = rpc.ReceiverRejectCode
	case errors.Is(err, core.ErrReentrantCall):
		code = rpc.ReentrancyCode
	case errors.Is(err, core.ErrOwnershipIndeterminate):
		code = rpc.BadStateCode
	case errors.Is(err, core.ErrInvalidRecipient), errors.Is(err, core.ErrInvalidApproval):
		code = rpc.InvalidParamsCode
	}
	return rpc.NewError(code, "Ledger error", err.Error())
}

func (s *Server) getCollection(_ params) (any, *rpc.Error) {
	cs := s.ledger.CollectionState()
	return struct {
		Name string `json:"name"`
		state.CollectionState
	}{s.ledger.Name(), cs}, nil
}

func (s *Server) totalSupply(_ params) (any, *rpc.Error) {
	return s.ledger.TotalSupply(), nil
}

func (s *Server) mintIndex(_ params) (any, *rpc.Error) {
	return s.ledger.MintIndex(), nil
}

func (s *Server) ownerOf(ps params) (any, *rpc.Error) {
	id, err := ps.uint64At(0)
	if err != nil {
		return nil, rpc.NewInvalidParamsError(err.Error())
	}
	owner, err := s.ledger.OwnerOf(id)
	if err != nil {
		return nil, ledgerError(err)
	}
	return address.Uint160ToString(owner), nil
}

func (s *Server) balanceOf(ps params) (any, *rpc.Error) {
	acc, err := ps.addressAt(0)
	if err != nil {
		return nil, rpc.NewInvalidParamsError(err.Error())
	}
	return s.ledger.BalanceOf(acc), nil
}

func (s *Server) tokensOf(ps params) (any, *rpc.Error) {
	acc, err := ps.addressAt(0)
	if err != nil {
		return nil, rpc.NewInvalidParamsError(err.Error())
	}
	ids := s.ledger.TokensOf(acc)
	if ids == nil {
		ids = []uint64{}
	}
	return ids, nil
}

func (s *Server) tokenOfOwnerByIndex(ps params) (any, *rpc.Error) {
	acc, err := ps.addressAt(0)
	if err != nil {
		return nil, rpc.NewInvalidParamsError(err.Error())
	}
	index, err := ps.uint64At(1)
	if err != nil {
		return nil, rpc.NewInvalidParamsError(err.Error())
	}
	id, err := s.ledger.TokenOfOwnerByIndex(acc, index)
	if err != nil {
		return nil, ledgerError(err)
	}
	return id, nil
}

func (s *Server) tokenByIndex(ps params) (any, *rpc.Error) {
	index, err := ps.uint64At(0)
	if err != nil {
		return nil, rpc.NewInvalidParamsError(err.Error())
	}
	id, err := s.ledger.TokenByIndex(index)
	if err != nil {
		return nil, ledgerError(err)
	}
	return id, nil
}

func (s *Server) tokenURI(ps params) (any, *rpc.Error) {
	id, err := ps.uint64At(0)
	if err != nil {
		return nil, rpc.NewInvalidParamsError(err.Error())
	}
	uri, err := s.ledger.TokenURI(id)
	if err != nil {
		return nil, ledgerError(err)
	}
	return uri, nil
}

func (s *Server) getApproved(ps params) (any, *rpc.Error) {
	id, err := ps.uint64At(0)
	if err != nil {
		return nil, rpc.NewInvalidParamsError(err.Error())
	}
	approved, err := s.ledger.GetApproved(id)
	if err != nil {
		return nil, ledgerError(err)
	}
	if approved.IsZero() {
		return "", nil
	}
	return address.Uint160ToString(approved), nil
}

func (s *Server) isApprovedForAll(ps params) (any, *rpc.Error) {
	owner, err := ps.addressAt(0)
	if err != nil {
		return nil, rpc.NewInvalidParamsError(err.Error())
	}
	operator, err := ps.addressAt(1)
	if err != nil {
		return nil, rpc.NewInvalidParamsError(err.Error())
	}
	return s.ledger.IsApprovedForAll(owner, operator), nil
}

func (s *Server) verifyState(_ params) (any, *rpc.Error) {
	if err := s.ledger.VerifyState(); err != nil {
		return nil, ledgerError(err)
	}
	return true, nil
}

func (s *Server) mint(ps params) (any, *rpc.Error) {
	caller, err := ps.addressAt(0)
	if err != nil {
		return nil, rpc.NewInvalidParamsError(err.Error())
	}
	to, err := ps.addressAt(1)
	if err != nil {
		return nil, rpc.NewInvalidParamsError(err.Error())
	}
	quantity, err := ps.uint64At(2)
	if err != nil {
		return nil, rpc.NewInvalidParamsError(err.Error())
	}
	start, err := s.ledger.MintBatch(caller, to, quantity)
	if err != nil {
		return nil, ledgerError(err)
	}
	return start, nil
}

func (s *Server) transfer(ps params) (any, *rpc.Error) {
	caller, err := ps.addressAt(0)
	if err != nil {
		return nil, rpc.NewInvalidParamsError(err.Error())
	}
	from, err := ps.addressAt(1)
	if err != nil {
		return nil, rpc.NewInvalidParamsError(err.Error())
	}
	to, err := ps.addressAt(2)
	if err != nil {
		return nil, rpc.NewInvalidParamsError(err.Error())
	}
	ids, err := ps.uint64SliceAt(3)
	if err != nil {
		return nil, rpc.NewInvalidParamsError(err.Error())
	}
	data, err := ps.bytesAt(4)
	if err != nil {
		return nil, rpc.NewInvalidParamsError(err.Error())
	}
	if err := s.ledger.Transfer(caller, from, to, ids, data); err != nil {
		return nil, ledgerError(err)
	}
	return true, nil
}

func (s *Server) approve(ps params) (any, *rpc.Error) {
	caller, err := ps.addressAt(0)
	if err != nil {
		return nil, rpc.NewInvalidParamsError(err.Error())
	}
	approved, err := ps.addressAt(1)
	if err != nil {
		return nil, rpc.NewInvalidParamsError(err.Error())
	}
	id, err := ps.uint64At(2)
	if err != nil {
		return nil, rpc.NewInvalidParamsError(err.Error())
	}
	if err := s.ledger.Approve(caller, approved, id); err != nil {
		return nil, ledgerError(err)
	}
	return true, nil
}

func (s *Server) setApprovalForAll(ps params) (any, *rpc.Error) {
	caller, err := ps.addressAt(0)
	if err != nil {
		return nil, rpc.NewInvalidParamsError(err.Error())
	}
	operator, err := ps.addressAt(1)
	if err != nil {
		return nil, rpc.NewInvalidParamsError(err.Error())
	}
	approved, err := ps.boolAt(2)
	if err != nil {
		return nil, rpc.NewInvalidParamsError(err.Error())
	}
	if err := s.ledger.SetApprovalForAll(caller, operator, approved); err != nil {
		return nil, ledgerError(err)
	}
	return true, nil
}

func (s *Server) lockMinting(ps params) (any, *rpc.Error) {
	caller, err := ps.addressAt(0)
	if err != nil {
		return nil, rpc.NewInvalidParamsError(err.Error())
	}
	if err := s.ledger.LockMinting(caller); err != nil {
		return nil, ledgerError(err)
	}
	return true, nil
}

func (s *Server) setBaseURI(ps params) (any, *rpc.Error) {
	caller, err := ps.addressAt(0)
	if err != nil {
		return nil, rpc.NewInvalidParamsError(err.Error())
	}
	uri, err := ps.stringAt(1)
	if err != nil {
		return nil, rpc.NewInvalidParamsError(err.Error())
	}
	if err := s.ledger.SetBaseURI(caller, uri); err != nil {
		return nil, ledgerError(err)
	}
	return true, nil
}

func (s *Server) lockBaseURI(ps params) (any, *rpc.Error) {
	caller, err := ps.addressAt(0)
	if err != nil {
		return nil, rpc.NewInvalidParamsError(err.Error())
	}
	if err := s.ledger.LockBaseURI(caller); err != nil {
		return nil, ledgerError(err)
	}
	return true, nil
}

func (s *Server) setTokenURI(ps params) (any, *rpc.Error) {
	caller, err := ps.addressAt(0)
	if err != nil {
		return nil, rpc.NewInvalidParamsError(err.Error())
	}
	id, err := ps.uint64At(1)
	if err != nil {
		return nil, rpc.NewInvalidParamsError(err.Error())
	}
	uri, err := ps.stringAt(2)
	if err != nil {
		return nil, rpc.NewInvalidParamsError(err.Error())
	}
	if err := s.ledger.SetTokenURI(caller, id, uri); err != nil {
		return nil, ledgerError(err)
	}
	return true, nil
}

func (s *Server) freezeTokenURI(ps params) (any, *rpc.Error) {
	caller, err := ps.addressAt(0)
	if err != nil {
		return nil, rpc.NewInvalidParamsError(err.Error())
	}
	id, err := ps.uint64At(1)
	if err != nil {
		return nil, rpc.NewInvalidParamsError(err.Error())
	}
	if err := s.ledger.FreezeTokenURI(caller, id); err != nil {
		return nil, ledgerError(err)
	}
	return true, nil
}
