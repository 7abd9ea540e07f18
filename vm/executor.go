package vm

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/whiskylabs/whisky-protocol-core-sub001/core"
	"github.com/whiskylabs/whisky-protocol-core-sub001/events"
	"github.com/whiskylabs/whisky-protocol-core-sub001/pda"
)

// Rejections raised before an instruction handler runs.
var (
	ErrUnknownInstruction = core.ErrUnknownInstruction
	ErrBadPayload         = core.ErrInvalidInstructionData
	ErrInvalidNonce       = core.ErrInvalidNonce
)

// Context is passed to every Handler. It exposes the ledger state, the slot
// and transaction being executed and the address deriver. Events emitted
// through it are buffered and only delivered if the instruction succeeds.
type Context struct {
	State core.State
	Slot  *core.Slot
	Tx    *core.Transaction
	Addr  *pda.Deriver

	events []events.Event
}

// Signer is the key that signed the instruction.
func (c *Context) Signer() solana.PublicKey {
	return c.Tx.From
}

// Now returns the slot timestamp in unix seconds.
func (c *Context) Now() int64 {
	return time.Unix(0, c.Slot.Header.Timestamp).Unix()
}

// Emit buffers an event for delivery after the instruction commits.
func (c *Context) Emit(typ events.EventType, data any) {
	c.events = append(c.events, events.Event{
		Type:   typ,
		TxID:   c.Tx.ID,
		Height: c.Slot.Header.Height,
		Data:   data,
	})
}

// Config loads the protocol configuration, failing with NotInitialized
// before whiskyInitialize.
func (c *Context) Config() (*core.ProtocolConfig, error) {
	cfg, err := c.State.GetConfig()
	if errors.Is(err, core.ErrNotFound) {
		return nil, core.ErrNotInitialized
	}
	return cfg, err
}

// Executor applies transactions to the state using the global Handler registry.
type Executor struct {
	state    core.State
	emitter  *events.Emitter
	addr     *pda.Deriver
	registry *Registry
}

// NewExecutor creates an Executor with the given state, event emitter and
// address deriver.
func NewExecutor(state core.State, emitter *events.Emitter, addr *pda.Deriver) *Executor {
	return &Executor{state: state, emitter: emitter, addr: addr, registry: globalRegistry}
}

// State returns the state the executor writes to.
func (e *Executor) State() core.State {
	return e.state
}

// Addr returns the executor's address deriver.
func (e *Executor) Addr() *pda.Deriver {
	return e.addr
}

// ExecuteSlot applies all transactions in slot sequentially. A failing
// transaction is reverted and recorded in its receipt; it does not abort the
// slot. The slot's events are returned undelivered so the caller can publish
// them with Deliver once the slot is stored.
func (e *Executor) ExecuteSlot(slot *core.Slot) ([]*core.Receipt, []events.Event) {
	receipts := make([]*core.Receipt, 0, len(slot.Transactions))
	var pending []events.Event
	collect := func(ev events.Event) { pending = append(pending, ev) }
	for _, tx := range slot.Transactions {
		err := e.execute(slot, tx, collect)
		receipts = append(receipts, core.NewReceipt(tx, slot.Header.Height, err))
	}
	return receipts, pending
}

// Deliver publishes events returned by ExecuteSlot.
func (e *Executor) Deliver(evs []events.Event) {
	for _, ev := range evs {
		e.emit(ev)
	}
}

// ExecuteTx verifies and executes a single transaction, delivering its events
// immediately. The signer nonce is consumed even when the instruction fails;
// everything else the instruction wrote is rolled back and its events are
// dropped.
func (e *Executor) ExecuteTx(slot *core.Slot, tx *core.Transaction) error {
	return e.execute(slot, tx, e.emit)
}

func (e *Executor) execute(slot *core.Slot, tx *core.Transaction, emit func(events.Event)) error {
	if err := tx.Verify(); err != nil {
		return core.ErrUnauthorized.Withf("%v", err)
	}
	if err := e.consumeNonce(tx); err != nil {
		return err
	}

	snapID, err := e.state.Snapshot()
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}

	ctx := &Context{State: e.state, Slot: slot, Tx: tx, Addr: e.addr}
	if err := e.registry.Execute(tx.Type, ctx, tx.Payload); err != nil {
		if revertErr := e.state.RevertToSnapshot(snapID); revertErr != nil {
			return fmt.Errorf("revert snapshot after tx failure: %w (revert: %v)", err, revertErr)
		}
		emit(failureEvent(slot, tx, err))
		return err
	}

	for _, ev := range ctx.events {
		emit(ev)
	}
	emit(events.Event{
		Type:   events.EventTxExecuted,
		TxID:   tx.ID,
		Height: slot.Header.Height,
		Data:   events.TxExecuted{Type: tx.Type, From: tx.From},
	})
	return nil
}

func (e *Executor) emit(ev events.Event) {
	if e.emitter != nil {
		e.emitter.Emit(ev)
	}
}

func (e *Executor) consumeNonce(tx *core.Transaction) error {
	acc, err := e.state.GetAccount(tx.From)
	if err != nil {
		return fmt.Errorf("get account: %w", err)
	}
	if acc.Nonce != tx.Nonce {
		return ErrInvalidNonce.Withf("expected %d got %d", acc.Nonce, tx.Nonce)
	}
	if acc.Nonce == math.MaxUint64 {
		return core.ErrMathOverflow.Withf("nonce of %s", tx.From)
	}
	acc.Nonce++
	return e.state.SetAccount(acc)
}

func failureEvent(slot *core.Slot, tx *core.Transaction, err error) events.Event {
	data := events.TxFailed{Type: tx.Type, From: tx.From, Error: err.Error()}
	if pe, ok := core.AsProgramError(err); ok {
		data.Code = pe.Code
	}
	return events.Event{
		Type:   events.EventTxFailed,
		TxID:   tx.ID,
		Height: slot.Header.Height,
		Data:   data,
	}
}
