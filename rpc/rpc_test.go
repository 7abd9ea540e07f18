package rpc

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whiskylabs/whisky-protocol-core-sub001/core"
	"github.com/whiskylabs/whisky-protocol-core-sub001/indexer"
	"github.com/whiskylabs/whisky-protocol-core-sub001/internal/ledgertest"
	"github.com/whiskylabs/whisky-protocol-core-sub001/internal/testutil"
)

type directView struct{ st core.State }

func (v directView) View(fn func(core.State) error) error { return fn(v.st) }

func newHandler(t *testing.T) (*Handler, *ledgertest.Ledger) {
	t.Helper()
	l := ledgertest.New(t)
	idx := indexer.New(testutil.NewMemDB(), l.Emitter)
	return NewHandler(testutil.NewChain(), core.NewMempool(), directView{l.State}, idx, l.Addr), l
}

func call(h *Handler, method string, params any) Response {
	raw, _ := json.Marshal(params)
	return h.Dispatch(Request{JSONRPC: "2.0", ID: 1, Method: method, Params: raw})
}

func TestGetConfigAndPool(t *testing.T) {
	h, l := newHandler(t)
	pool, _ := l.CreatePool()

	resp := call(h, "getConfig", nil)
	require.Nil(t, resp.Error)
	cfg := resp.Result.(*core.ProtocolConfig)
	assert.Equal(t, l.Authority.PubKey(), cfg.Authority)

	resp = call(h, "getPool", map[string]any{"mint": l.Mint})
	require.Nil(t, resp.Error)
	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var view struct {
		Address   string `json:"address"`
		Liquidity uint64 `json:"liquidity"`
		LpSupply  uint64 `json:"lp_supply"`
	}
	require.NoError(t, json.Unmarshal(raw, &view))
	assert.Equal(t, pool.String(), view.Address)
	assert.Equal(t, uint64(ledgertest.LPDeposit), view.Liquidity)
	assert.Equal(t, uint64(ledgertest.LPDeposit), view.LpSupply)

	resp = call(h, "getPoolHistory", map[string]any{"pool": pool})
	require.Nil(t, resp.Error)
	history := resp.Result.([]indexer.PricePoint)
	require.Len(t, history, 1)
	assert.Equal(t, "1", history[0].Price.String())
}

// TestProgramErrorData checks ledger rejections surface their identity in
// error.data.
func TestProgramErrorData(t *testing.T) {
	h, l := newHandler(t)
	stranger := l.NewUser()

	resp := call(h, "getPlayer", map[string]any{"user": stranger.PubKey()})
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeProgramError, resp.Error.Code)
	require.NotNil(t, resp.Error.Data)
	assert.Equal(t, core.ErrPlayerNotInitialized.Code, resp.Error.Data.Code)
	assert.Equal(t, "PlayerNotInitialized", resp.Error.Data.Name)
	assert.Equal(t, core.KindPlayer, resp.Error.Data.Kind)

	resp = call(h, "getPool", map[string]any{"pool": stranger.PubKey()})
	require.NotNil(t, resp.Error)
	assert.Equal(t, core.ErrPoolNotFound.Code, resp.Error.Data.Code)

	resp = call(h, "getPlayer", map[string]any{})
	assert.Equal(t, CodeInvalidParams, resp.Error.Code)

	resp = call(h, "noSuchMethod", nil)
	assert.Equal(t, CodeMethodNotFound, resp.Error.Code)
}

func TestGetBalanceAndDerive(t *testing.T) {
	h, l := newHandler(t)
	user := l.NewUser()

	resp := call(h, "getBalance", map[string]any{"owner": user.PubKey(), "mint": l.Mint})
	require.Nil(t, resp.Error)
	assert.Equal(t, uint64(ledgertest.UserUnderlying), resp.Result.(map[string]any)["amount"])

	resp = call(h, "getBalance", map[string]any{"owner": user.PubKey()})
	require.Nil(t, resp.Error)
	assert.Equal(t, uint64(ledgertest.UserNative), resp.Result.(map[string]any)["amount"])

	resp = call(h, "deriveAddresses", map[string]any{"mint": l.Mint, "user": user.PubKey()})
	require.Nil(t, resp.Error)
	out := resp.Result.(map[string]any)
	assert.Equal(t, l.Addr.PoolSet(l.Mint, solana.PublicKey{}), out["pool"])
	assert.Equal(t, l.Addr.Game(user.PubKey()), out["game"])
}

func post(s *Server, token string, req Request) Response {
	body, _ := json.Marshal(req)
	r := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.serveHTTP(w, r)
	var resp Response
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

// TestSendTxRequiresToken verifies only submission sits behind the bearer
// token and that a queued tx reports as pending.
func TestSendTxRequiresToken(t *testing.T) {
	h, l := newHandler(t)
	s := NewServer("127.0.0.1:0", h, "secret")
	user := l.NewUser()
	tx, err := user.Transfer(l.Authority.PubKey(), core.NativeMint, 1, 0)
	require.NoError(t, err)
	raw, err := json.Marshal(tx)
	require.NoError(t, err)
	send := Request{JSONRPC: "2.0", ID: 7, Method: "sendTx", Params: raw}

	resp := post(s, "", send)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeUnauthorized, resp.Error.Code)

	resp = post(s, "", Request{JSONRPC: "2.0", ID: 8, Method: "getMempoolSize"})
	require.Nil(t, resp.Error)
	assert.EqualValues(t, 0, resp.Result)

	resp = post(s, "secret", send)
	require.Nil(t, resp.Error)
	assert.Equal(t, tx.ID, resp.Result.(map[string]any)["tx_id"])

	resp = call(h, "getTxResult", map[string]any{"tx_id": tx.ID})
	require.Nil(t, resp.Error)
	assert.Equal(t, "pending", resp.Result.(map[string]any)["status"])

	resp = post(s, "secret", Request{JSONRPC: "1.0", ID: 9, Method: "getSlotHeight"})
	assert.Equal(t, CodeInvalidRequest, resp.Error.Code)
}

// TestSendTxRejectsForgery checks a tampered payload is refused with the
// Unauthorized program error.
func TestSendTxRejectsForgery(t *testing.T) {
	h, l := newHandler(t)
	user := l.NewUser()
	tx, err := user.Transfer(l.Authority.PubKey(), core.NativeMint, 1, 0)
	require.NoError(t, err)
	tx.Payload = json.RawMessage(`{"to":"` + user.PubKey().String() + `","mint":"` + core.NativeMint.String() + `","amount":999}`)

	resp := call(h, "sendTx", tx)
	require.NotNil(t, resp.Error)
	require.NotNil(t, resp.Error.Data)
	assert.Equal(t, core.ErrUnauthorized.Code, resp.Error.Data.Code)
	assert.Zero(t, h.mempool.Size())

	tx.Type = "mint"
	resp = call(h, "sendTx", tx)
	assert.Equal(t, CodeInvalidParams, resp.Error.Code)
}
