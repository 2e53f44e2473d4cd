// Package rpcclient implements a client for the compactmint JSON-RPC
// server.
package rpcclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/compactmint/compactmint/pkg/core/state"
	"github.com/compactmint/compactmint/pkg/encoding/address"
	"github.com/compactmint/compactmint/pkg/rpc"
	"github.com/compactmint/compactmint/pkg/util"
)

const defaultRequestTimeout = 10 * time.Second

// Client is a JSON-RPC client over HTTP.
type Client struct {
	cli       *http.Client
	endpoint  string
	ctx       context.Context
	requestID uint64
}

// Options defines options for the RPC client.
type Options struct {
	// RequestTimeout is the timeout of a single call round trip,
	// defaultRequestTimeout is used when zero.
	RequestTimeout time.Duration
}

// CollectionInfo is the response of the getcollection call.
type CollectionInfo struct {
	Name string `json:"name"`
	state.CollectionState
}

// New returns a Client talking to the given endpoint. The context
// governs all requests made through this client.
func New(ctx context.Context, endpoint string, opts Options) *Client {
	if opts.RequestTimeout == 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	return &Client{
		cli:      &http.Client{Timeout: opts.RequestTimeout},
		endpoint: endpoint,
		ctx:      ctx,
	}
}

func (c *Client) performRequest(method string, ps []any, result any) error {
	rawPs := make([]json.RawMessage, len(ps))
	for i, p := range ps {
		raw, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to marshal parameter #%d: %w", i, err)
		}
		rawPs[i] = raw
	}
	body, err := json.Marshal(rpc.Request{
		JSONRPC: rpc.JSONRPCVersion,
		Method:  method,
		Params:  rawPs,
		ID:      atomic.AddUint64(&c.requestID, 1),
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(c.ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.cli.Do(req)
	if err != nil {
		return err
	}
	defer httpResp.Body.Close()

	var resp rpc.Response
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return fmt.Errorf("failed to decode response (HTTP %d): %w", httpResp.StatusCode, err)
	}
	if resp.Error != nil {
		return resp.Error
	}
	if result == nil {
		return nil
	}
	return json.Unmarshal(resp.Result, result)
}

// GetCollection returns the collection-wide state.
func (c *Client) GetCollection() (CollectionInfo, error) {
	var info CollectionInfo
	err := c.performRequest("getcollection", nil, &info)
	return info, err
}

// TotalSupply returns the immutable token cap.
func (c *Client) TotalSupply() (uint64, error) {
	var v uint64
	err := c.performRequest("totalsupply", nil, &v)
	return v, err
}

// MintIndex returns the current mint watermark.
func (c *Client) MintIndex() (uint64, error) {
	var v uint64
	err := c.performRequest("mintindex", nil, &v)
	return v, err
}

// OwnerOf returns the owner of the given token.
func (c *Client) OwnerOf(id uint64) (util.Uint160, error) {
	var s string
	if err := c.performRequest("ownerof", []any{id}, &s); err != nil {
		return util.Uint160{}, err
	}
	return address.StringToUint160(s)
}

// BalanceOf returns the number of tokens owned by the account.
func (c *Client) BalanceOf(acc util.Uint160) (uint64, error) {
	var v uint64
	err := c.performRequest("balanceof", []any{address.Uint160ToString(acc)}, &v)
	return v, err
}

// TokensOf returns all token IDs owned by the account.
func (c *Client) TokensOf(acc util.Uint160) ([]uint64, error) {
	var ids []uint64
	err := c.performRequest("tokensof", []any{address.Uint160ToString(acc)}, &ids)
	return ids, err
}

// TokenOfOwnerByIndex returns the index-th token of the account.
func (c *Client) TokenOfOwnerByIndex(acc util.Uint160, index uint64) (uint64, error) {
	var id uint64
	err := c.performRequest("tokenofownerbyindex", []any{address.Uint160ToString(acc), index}, &id)
	return id, err
}

// TokenByIndex returns the token ID at the given global enumeration
// position.
func (c *Client) TokenByIndex(index uint64) (uint64, error) {
	var id uint64
	err := c.performRequest("tokenbyindex", []any{index}, &id)
	return id, err
}

// TokenURI returns the effective metadata URI of the token.
func (c *Client) TokenURI(id uint64) (string, error) {
	var uri string
	err := c.performRequest("tokenuri", []any{id}, &uri)
	return uri, err
}

// GetApproved returns the approved account of the token, a zero value
// when there is none.
func (c *Client) GetApproved(id uint64) (util.Uint160, error) {
	var s string
	if err := c.performRequest("getapproved", []any{id}, &s); err != nil {
		return util.Uint160{}, err
	}
	if s == "" {
		return util.Uint160{}, nil
	}
	return address.StringToUint160(s)
}

// IsApprovedForAll tells whether the operator can act on all of the
// owner's tokens.
func (c *Client) IsApprovedForAll(owner, operator util.Uint160) (bool, error) {
	var v bool
	err := c.performRequest("isapprovedforall", []any{address.Uint160ToString(owner), address.Uint160ToString(operator)}, &v)
	return v, err
}

// VerifyState asks the server to check ledger consistency invariants.
func (c *Client) VerifyState() error {
	var v bool
	return c.performRequest("verifystate", nil, &v)
}

// Mint creates quantity new tokens owned by to and returns the first
// new token ID.
func (c *Client) Mint(caller, to util.Uint160, quantity uint64) (uint64, error) {
	var start uint64
	err := c.performRequest("mint", []any{
		address.Uint160ToString(caller),
		address.Uint160ToString(to),
		quantity,
	}, &start)
	return start, err
}

// Transfer moves the given tokens from from to to. Optional data is
// passed to the recipient's acceptance hook.
func (c *Client) Transfer(caller, from, to util.Uint160, ids []uint64, data []byte) error {
	ps := []any{
		address.Uint160ToString(caller),
		address.Uint160ToString(from),
		address.Uint160ToString(to),
		ids,
	}
	if len(data) > 0 {
		ps = append(ps, base64.StdEncoding.EncodeToString(data))
	}
	var v bool
	return c.performRequest("transfer", ps, &v)
}

// Approve sets (or clears, with a zero account) the approved account of
// the token.
func (c *Client) Approve(caller, approved util.Uint160, id uint64) error {
	var v bool
	return c.performRequest("approve", []any{
		address.Uint160ToString(caller),
		address.Uint160ToString(approved),
		id,
	}, &v)
}

// SetApprovalForAll grants or revokes operator status over all of the
// caller's tokens.
func (c *Client) SetApprovalForAll(caller, operator util.Uint160, approved bool) error {
	var v bool
	return c.performRequest("setapprovalforall", []any{
		address.Uint160ToString(caller),
		address.Uint160ToString(operator),
		approved,
	}, &v)
}

// LockMinting permanently disables minting.
func (c *Client) LockMinting(caller util.Uint160) error {
	var v bool
	return c.performRequest("lockminting", []any{address.Uint160ToString(caller)}, &v)
}

// SetBaseURI updates the collection-wide URI template.
func (c *Client) SetBaseURI(caller util.Uint160, uri string) error {
	var v bool
	return c.performRequest("setbaseuri", []any{address.Uint160ToString(caller), uri}, &v)
}

// LockBaseURI permanently freezes the collection-wide URI template.
func (c *Client) LockBaseURI(caller util.Uint160) error {
	var v bool
	return c.performRequest("lockbaseuri", []any{address.Uint160ToString(caller)}, &v)
}

// SetTokenURI sets an explicit metadata URI for the token.
func (c *Client) SetTokenURI(caller util.Uint160, id uint64, uri string) error {
	var v bool
	return c.performRequest("settokenuri", []any{address.Uint160ToString(caller), id, uri}, &v)
}

// FreezeTokenURI permanently freezes the token's metadata.
func (c *Client) FreezeTokenURI(caller util.Uint160, id uint64) error {
	var v bool
	return c.performRequest("freezetokenuri", []any{address.Uint160ToString(caller), id}, &v)
}
