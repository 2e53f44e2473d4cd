package rpcclient

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/compactmint/compactmint/internal/random"
	"github.com/compactmint/compactmint/pkg/config"
	"github.com/compactmint/compactmint/pkg/core"
	"github.com/compactmint/compactmint/pkg/core/state"
	"github.com/compactmint/compactmint/pkg/core/storage"
	"github.com/compactmint/compactmint/pkg/rpc"
	"github.com/compactmint/compactmint/pkg/services/rpcsrv"
	"github.com/compactmint/compactmint/pkg/util"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func initClientServer(t *testing.T, owner util.Uint160) (*Client, string) {
	cfg := config.Ledger{
		Name:        "client test",
		TotalSupply: 50,
		BatchSize:   10,
		Owner:       owner,
	}
	ledger, err := core.NewLedger(storage.NewMemoryStore(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	srv := rpcsrv.New(ledger, config.RPC{}, zaptest.NewLogger(t))
	ts := httptest.NewServer(srv)
	t.Cleanup(func() {
		ts.Close()
		require.NoError(t, ledger.Close())
	})
	return New(context.Background(), ts.URL, Options{}), ts.URL
}

func TestClientRoundTrip(t *testing.T) {
	owner := random.Uint160()
	alice := random.Uint160()
	bob := random.Uint160()
	c, _ := initClientServer(t, owner)

	start, err := c.Mint(owner, alice, 5)
	require.NoError(t, err)
	require.Equal(t, uint64(0), start)

	mi, err := c.MintIndex()
	require.NoError(t, err)
	require.Equal(t, uint64(5), mi)

	ts, err := c.TotalSupply()
	require.NoError(t, err)
	require.Equal(t, uint64(50), ts)

	o, err := c.OwnerOf(3)
	require.NoError(t, err)
	require.Equal(t, alice, o)

	require.NoError(t, c.Transfer(alice, alice, bob, []uint64{3}, []byte("gift")))
	o, err = c.OwnerOf(3)
	require.NoError(t, err)
	require.Equal(t, bob, o)

	bal, err := c.BalanceOf(bob)
	require.NoError(t, err)
	require.Equal(t, uint64(1), bal)

	ids, err := c.TokensOf(alice)
	require.NoError(t, err)
	require.Equal(t, []uint64{0, 1, 2, 4}, ids)

	id, err := c.TokenOfOwnerByIndex(bob, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(3), id)

	id, err = c.TokenByIndex(2)
	require.NoError(t, err)
	require.Equal(t, uint64(2), id)

	require.NoError(t, c.Approve(bob, alice, 3))
	a, err := c.GetApproved(3)
	require.NoError(t, err)
	require.Equal(t, alice, a)

	require.NoError(t, c.SetApprovalForAll(alice, bob, true))
	ok, err := c.IsApprovedForAll(alice, bob)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, c.SetBaseURI(owner, "ipfs://c/{id}"))
	uri, err := c.TokenURI(1)
	require.NoError(t, err)
	require.Equal(t, "ipfs://c/1", uri)

	require.NoError(t, c.SetTokenURI(owner, 1, "ipfs://one"))
	require.NoError(t, c.FreezeTokenURI(owner, 1))
	require.NoError(t, c.LockBaseURI(owner))
	require.NoError(t, c.VerifyState())

	info, err := c.GetCollection()
	require.NoError(t, err)
	require.Equal(t, "client test", info.Name)
	require.Equal(t, uint64(5), info.MintIndex)
	require.True(t, info.BaseURILocked)

	require.NoError(t, c.LockMinting(owner))
	_, err = c.Mint(owner, alice, 1)
	require.Error(t, err)
	var rpcErr *rpc.Error
	require.ErrorAs(t, err, &rpcErr)
	require.EqualValues(t, rpc.LockedCode, rpcErr.Code)
}

func TestClientErrors(t *testing.T) {
	owner := random.Uint160()
	c, _ := initClientServer(t, owner)

	_, err := c.OwnerOf(0)
	var rpcErr *rpc.Error
	require.ErrorAs(t, err, &rpcErr)
	require.EqualValues(t, rpc.NotFoundCode, rpcErr.Code)

	t.Run("dead endpoint", func(t *testing.T) {
		dead := New(context.Background(), "http://127.0.0.1:1", Options{RequestTimeout: time.Second})
		_, err := dead.MintIndex()
		require.Error(t, err)
	})
}

func TestWSClientNotifications(t *testing.T) {
	owner := random.Uint160()
	alice := random.Uint160()
	c, url := initClientServer(t, owner)

	wsc, err := NewWS("ws" + strings.TrimPrefix(url, "http"))
	require.NoError(t, err)
	defer wsc.Close()

	_, err = c.Mint(owner, alice, 2)
	require.NoError(t, err)

	for i := uint64(0); i < 2; i++ {
		select {
		case ntf := <-wsc.Notifications:
			require.Equal(t, state.TransferEventType, ntf.Type)
			require.Equal(t, alice, ntf.To)
			require.Equal(t, i, ntf.TokenID)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for notification")
		}
	}
	require.NoError(t, wsc.CloseErr())
}
