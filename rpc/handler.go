package rpc

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/whiskylabs/whisky-protocol-core-sub001/core"
	"github.com/whiskylabs/whisky-protocol-core-sub001/fixedpoint"
	"github.com/whiskylabs/whisky-protocol-core-sub001/indexer"
	"github.com/whiskylabs/whisky-protocol-core-sub001/pda"
	"github.com/whiskylabs/whisky-protocol-core-sub001/vm"
)

// writeMethods change ledger state and sit behind the bearer token.
var writeMethods = map[string]bool{
	"sendTx": true,
}

// StateReader runs fn against a consistent view of the ledger state.
// *sequencer.Sequencer satisfies it.
type StateReader interface {
	View(fn func(core.State) error) error
}

// Handler holds all dependencies needed to serve RPC methods.
type Handler struct {
	chain   *core.Chain
	mempool *core.Mempool
	state   StateReader
	indexer *indexer.Indexer
	addr    *pda.Deriver
}

// NewHandler creates an RPC Handler.
func NewHandler(chain *core.Chain, mempool *core.Mempool, state StateReader, idx *indexer.Indexer, addr *pda.Deriver) *Handler {
	return &Handler{chain: chain, mempool: mempool, state: state, indexer: idx, addr: addr}
}

// Dispatch routes an RPC request to the correct method.
func (h *Handler) Dispatch(req Request) Response {
	switch req.Method {
	case "getSlotHeight":
		return okResponse(req.ID, h.chain.Height())
	case "getSlot":
		return h.getSlot(req)
	case "getConfig":
		return h.getConfig(req)
	case "getPool":
		return h.getPool(req)
	case "getPlayer":
		return h.getPlayer(req)
	case "getGame":
		return h.getGame(req)
	case "getBalance":
		return h.getBalance(req)
	case "getPoolHistory":
		return h.getPoolHistory(req)
	case "getGamesByPlayer":
		return h.getGamesByPlayer(req)
	case "getTxResult":
		return h.getTxResult(req)
	case "deriveAddresses":
		return h.deriveAddresses(req)
	case "sendTx":
		return h.sendTx(req)
	case "getMempoolSize":
		return okResponse(req.ID, h.mempool.Size())
	default:
		return errResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("method %q not found", req.Method))
	}
}

// params decodes req.Params into v. Absent params decode as an empty object.
func params(req Request, v any) error {
	if len(req.Params) == 0 {
		return nil
	}
	return json.Unmarshal(req.Params, v)
}

func (h *Handler) getSlot(req Request) Response {
	var p struct {
		Hash   string `json:"hash"`
		Height *int64 `json:"height"`
	}
	if err := params(req, &p); err != nil {
		return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
	}

	var slot *core.Slot
	var err error
	switch {
	case p.Hash != "":
		slot, err = h.chain.GetSlot(p.Hash)
	case p.Height != nil:
		slot, err = h.chain.GetSlotByHeight(*p.Height)
	default:
		slot = h.chain.Tip()
	}
	if err != nil {
		return failResponse(req.ID, err)
	}
	if slot == nil {
		return errResponse(req.ID, CodeNotFound, "no slot found")
	}
	return okResponse(req.ID, slot)
}

func (h *Handler) getConfig(req Request) Response {
	var cfg *core.ProtocolConfig
	err := h.state.View(func(st core.State) error {
		var err error
		cfg, err = st.GetConfig()
		if errors.Is(err, core.ErrNotFound) {
			return core.ErrNotInitialized
		}
		return err
	})
	if err != nil {
		return failResponse(req.ID, err)
	}
	return okResponse(req.ID, cfg)
}

// getPool accepts either the pool address or its (mint, pool_authority) seeds.
func (h *Handler) getPool(req Request) Response {
	var p struct {
		Pool          solana.PublicKey `json:"pool"`
		Mint          solana.PublicKey `json:"mint"`
		PoolAuthority solana.PublicKey `json:"pool_authority"`
	}
	if err := params(req, &p); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	address := p.Pool
	if address.IsZero() {
		if p.Mint.IsZero() {
			return errResponse(req.ID, CodeInvalidParams, "pool or mint is required")
		}
		address = h.addr.Pool(p.Mint, p.PoolAuthority)
	}

	type poolView struct {
		*core.Pool
		Liquidity uint64         `json:"liquidity"`
		LpSupply  uint64         `json:"lp_supply"`
		Jackpot   uint64         `json:"jackpot"`
		Fees      map[string]any `json:"effective_fees_percent"`
	}
	var out poolView
	err := h.state.View(func(st core.State) error {
		pool, err := vm.LoadPool(st, address)
		if err != nil {
			return err
		}
		out.Pool = pool
		cfg, err := st.GetConfig()
		if err != nil {
			return err
		}
		out.Fees = map[string]any{
			"pool":        fixedpoint.BpsToPercent(pool.PoolFeeBps(cfg)),
			"whisky":      fixedpoint.BpsToPercent(pool.WhiskyFeeBps(cfg)),
			"max_creator": fixedpoint.BpsToPercent(pool.MaxCreatorFeeBps(cfg)),
			"max_payout":  fixedpoint.BpsToPercent(pool.MaxPayoutBps(cfg)),
		}
		if out.Liquidity, err = vm.Balance(st, pool.UnderlyingTokenMint, h.addr.PoolReserve(address)); err != nil {
			return err
		}
		if out.Jackpot, err = vm.Balance(st, pool.UnderlyingTokenMint, h.addr.PoolJackpot(address)); err != nil {
			return err
		}
		out.LpSupply, err = vm.Supply(st, h.addr.PoolLPMint(address))
		return err
	})
	if err != nil {
		return failResponse(req.ID, err)
	}
	return okResponse(req.ID, out)
}

func (h *Handler) userParam(req Request) (solana.PublicKey, *Response) {
	var p struct {
		User solana.PublicKey `json:"user"`
	}
	if err := params(req, &p); err != nil {
		resp := errResponse(req.ID, CodeInvalidParams, err.Error())
		return solana.PublicKey{}, &resp
	}
	if p.User.IsZero() {
		resp := errResponse(req.ID, CodeInvalidParams, "user is required")
		return solana.PublicKey{}, &resp
	}
	return p.User, nil
}

func (h *Handler) getPlayer(req Request) Response {
	user, bad := h.userParam(req)
	if bad != nil {
		return *bad
	}
	var player *core.Player
	err := h.state.View(func(st core.State) error {
		var err error
		player, err = st.GetPlayer(h.addr.Player(user))
		if errors.Is(err, core.ErrNotFound) {
			return core.ErrPlayerNotInitialized
		}
		return err
	})
	if err != nil {
		return failResponse(req.ID, err)
	}
	return okResponse(req.ID, player)
}

// getGame returns the player's game slot with its current escrow balance.
func (h *Handler) getGame(req Request) Response {
	user, bad := h.userParam(req)
	if bad != nil {
		return *bad
	}
	type gameView struct {
		*core.Game
		Escrow uint64 `json:"escrow"`
	}
	var out gameView
	err := h.state.View(func(st core.State) error {
		game, err := st.GetGame(h.addr.Game(user))
		if errors.Is(err, core.ErrNotFound) {
			return core.ErrPlayerNotInitialized
		}
		if err != nil {
			return err
		}
		out.Game = game
		if !game.TokenMint.IsZero() {
			out.Escrow, err = vm.Balance(st, game.TokenMint, h.addr.Player(user))
		}
		return err
	})
	if err != nil {
		return failResponse(req.ID, err)
	}
	return okResponse(req.ID, out)
}

// getBalance reads owner's balance of mint, defaulting to the native asset.
func (h *Handler) getBalance(req Request) Response {
	var p struct {
		Owner solana.PublicKey `json:"owner"`
		Mint  solana.PublicKey `json:"mint"`
	}
	if err := params(req, &p); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if p.Owner.IsZero() {
		return errResponse(req.ID, CodeInvalidParams, "owner is required")
	}
	if p.Mint.IsZero() {
		p.Mint = core.NativeMint
	}
	var amount, nonce uint64
	err := h.state.View(func(st core.State) error {
		var err error
		if amount, err = vm.Balance(st, p.Mint, p.Owner); err != nil {
			return err
		}
		acc, err := st.GetAccount(p.Owner)
		if err != nil {
			return err
		}
		nonce = acc.Nonce
		return nil
	})
	if err != nil {
		return failResponse(req.ID, err)
	}
	return okResponse(req.ID, map[string]any{"owner": p.Owner, "mint": p.Mint, "amount": amount, "nonce": nonce})
}

func (h *Handler) getPoolHistory(req Request) Response {
	var p struct {
		Pool solana.PublicKey `json:"pool"`
	}
	if err := params(req, &p); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if p.Pool.IsZero() {
		return errResponse(req.ID, CodeInvalidParams, "pool is required")
	}
	points, err := h.indexer.PoolHistory(p.Pool)
	if err != nil {
		return failResponse(req.ID, err)
	}
	return okResponse(req.ID, points)
}

func (h *Handler) getGamesByPlayer(req Request) Response {
	user, bad := h.userParam(req)
	if bad != nil {
		return *bad
	}
	games, err := h.indexer.GamesByPlayer(user)
	if err != nil {
		return failResponse(req.ID, err)
	}
	return okResponse(req.ID, games)
}

// getTxResult returns the receipt of an executed transaction, or its pending
// status while it waits in the mempool.
func (h *Handler) getTxResult(req Request) Response {
	var p struct {
		TxID string `json:"tx_id"`
	}
	if err := params(req, &p); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if p.TxID == "" {
		return errResponse(req.ID, CodeInvalidParams, "tx_id is required")
	}
	receipt, err := h.chain.GetReceipt(p.TxID)
	if errors.Is(err, core.ErrNotFound) {
		if _, pending := h.mempool.Get(p.TxID); pending {
			return okResponse(req.ID, map[string]any{"tx_id": p.TxID, "status": "pending"})
		}
	}
	if err != nil {
		return failResponse(req.ID, err)
	}
	out := map[string]any{"status": "executed", "receipt": receipt}
	if def, ok := core.LookupError(receipt.ErrorCode); ok && !receipt.Success {
		out["error"] = errorData(def)
	}
	return okResponse(req.ID, out)
}

// deriveAddresses returns the ledger addresses clients need to build
// instructions.
func (h *Handler) deriveAddresses(req Request) Response {
	var p struct {
		Mint          solana.PublicKey `json:"mint"`
		PoolAuthority solana.PublicKey `json:"pool_authority"`
		User          solana.PublicKey `json:"user"`
	}
	if err := params(req, &p); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	out := map[string]any{
		"program_id":   h.addr.ProgramID(),
		"whisky_state": h.addr.WhiskyState(),
	}
	if !p.Mint.IsZero() {
		out["pool"] = h.addr.PoolSet(p.Mint, p.PoolAuthority)
	}
	if !p.User.IsZero() {
		out["player"] = h.addr.Player(p.User)
		out["game"] = h.addr.Game(p.User)
	}
	return okResponse(req.ID, out)
}

func (h *Handler) sendTx(req Request) Response {
	var tx core.Transaction
	if err := json.Unmarshal(req.Params, &tx); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if !vm.IsRegistered(tx.Type) {
		return errResponse(req.ID, CodeInvalidParams, fmt.Sprintf("unknown instruction %q", tx.Type))
	}
	// Recompute the ID server-side; do not trust the client-provided value.
	tx.ID = tx.Hash()
	if err := tx.Verify(); err != nil {
		return failResponse(req.ID, core.ErrUnauthorized.Withf("%v", err))
	}
	if err := h.mempool.Add(&tx); err != nil {
		return errResponse(req.ID, CodeInvalidRequest, err.Error())
	}
	return okResponse(req.ID, map[string]string{"tx_id": tx.ID})
}
