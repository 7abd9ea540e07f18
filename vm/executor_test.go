package vm_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whiskylabs/whisky-protocol-core-sub001/core"
	"github.com/whiskylabs/whisky-protocol-core-sub001/events"
	"github.com/whiskylabs/whisky-protocol-core-sub001/internal/ledgertest"
	"github.com/whiskylabs/whisky-protocol-core-sub001/vm"
)

// TestTransferAndEvents verifies a successful instruction delivers its own
// events followed by TxExecuted.
func TestTransferAndEvents(t *testing.T) {
	l := ledgertest.New(t)
	alice, bob := l.NewUser(), l.NewUser()
	l.Events = nil

	l.MustDo(alice, core.TxTransfer, core.TransferPayload{To: bob.PubKey(), Mint: l.Mint, Amount: 300})
	assert.Equal(t, uint64(ledgertest.UserUnderlying-300), l.Balance(l.Mint, alice.PubKey()))
	assert.Equal(t, uint64(ledgertest.UserUnderlying+300), l.Balance(l.Mint, bob.PubKey()))

	require.Len(t, l.Events, 2)
	assert.Equal(t, events.EventTransfer, l.Events[0].Type)
	assert.Equal(t, events.EventTxExecuted, l.Events[1].Type)
}

// TestFailedInstructionReverts verifies a failure drops writes and events
// but keeps the signer nonce consumed.
func TestFailedInstructionReverts(t *testing.T) {
	l := ledgertest.New(t)
	alice, bob := l.NewUser(), l.NewUser()
	l.Events = nil

	err := l.Do(alice, core.TxTransfer, core.TransferPayload{To: bob.PubKey(), Mint: l.Mint, Amount: ledgertest.UserUnderlying + 1})
	assert.ErrorIs(t, err, core.ErrInsufficientBalance)
	assert.Equal(t, uint64(ledgertest.UserUnderlying), l.Balance(l.Mint, alice.PubKey()))

	require.Len(t, l.Events, 1)
	assert.Equal(t, events.EventTxFailed, l.Events[0].Type)
	assert.Equal(t, core.ErrInsufficientBalance.Code, l.Events[0].Data.(events.TxFailed).Code)

	acc, err := l.State.GetAccount(alice.PubKey())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), acc.Nonce)
}

// TestNonceReplay verifies a replayed transaction is rejected.
func TestNonceReplay(t *testing.T) {
	l := ledgertest.New(t)
	alice := l.NewUser()
	tx, err := alice.Transfer(l.NewUser().PubKey(), l.Mint, 1, 0)
	require.NoError(t, err)

	slot := core.NewSlot(1, "", l.Authority.PubKey(), []*core.Transaction{tx, tx})
	receipts, _ := l.Executor.ExecuteSlot(slot)
	require.Len(t, receipts, 2)
	assert.True(t, receipts[0].Success)
	assert.False(t, receipts[1].Success)
	assert.Contains(t, receipts[1].Error, "nonce")
	assert.Equal(t, core.ErrInvalidNonce.Code, receipts[1].ErrorCode)
}

// TestRejectsBadTransactions covers signature, type and payload checks.
func TestRejectsBadTransactions(t *testing.T) {
	l := ledgertest.New(t)
	alice := l.NewUser()
	slot := core.NewSlot(1, "", l.Authority.PubKey(), nil)

	tx, err := alice.Transfer(l.NewUser().PubKey(), l.Mint, 1, 0)
	require.NoError(t, err)
	tx.Payload = json.RawMessage(`{"to":"` + alice.PubKey().String() + `","amount":2}`)
	assert.ErrorIs(t, l.Executor.ExecuteTx(slot, tx), core.ErrUnauthorized)

	tx, err = alice.NewTx("noSuchInstruction", 0, struct{}{})
	require.NoError(t, err)
	assert.ErrorIs(t, l.Executor.ExecuteTx(slot, tx), vm.ErrUnknownInstruction)

	tx, err = alice.NewTx(core.TxTransfer, 1, map[string]any{"amount": 1, "memo": "hi"})
	require.NoError(t, err)
	assert.ErrorIs(t, l.Executor.ExecuteTx(slot, tx), vm.ErrBadPayload)

	var codes []uint32
	for _, ev := range l.EventsOf(events.EventTxFailed) {
		codes = append(codes, ev.Data.(events.TxFailed).Code)
	}
	assert.Equal(t, []uint32{core.ErrUnknownInstruction.Code, core.ErrInvalidInstructionData.Code}, codes)
}

// TestMissingAccountsAreCoded verifies zero addresses in required fields are
// rejected with a program error code.
func TestMissingAccountsAreCoded(t *testing.T) {
	l := ledgertest.New(t)
	l.SetConfig(func(p *core.WhiskySetConfigPayload) { p.DistributionRecipient = l.NewUser().PubKey() })
	cases := []struct {
		name    string
		typ     core.TxType
		payload any
	}{
		{"transfer recipient", core.TxTransfer, core.TransferPayload{Mint: l.Mint, Amount: 1}},
		{"pool mint", core.TxPoolInitialize, core.PoolInitializePayload{}},
		{"fee mint", core.TxDistributeFees, core.DistributeFeesPayload{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l.Events = nil
			err := l.Do(l.Authority, tc.typ, tc.payload)
			assert.ErrorIs(t, err, core.ErrMissingAccount)
			failed := l.EventsOf(events.EventTxFailed)
			require.Len(t, failed, 1)
			assert.Equal(t, core.ErrMissingAccount.Code, failed[0].Data.(events.TxFailed).Code)
		})
	}
}

// TestRegisteredTypes verifies every instruction is linked in.
func TestRegisteredTypes(t *testing.T) {
	types := vm.RegisteredTypes()
	for _, typ := range []core.TxType{
		core.TxWhiskyInitialize, core.TxWhiskySetAuthority, core.TxWhiskySetConfig, core.TxDistributeFees,
		core.TxPoolInitialize, core.TxPoolDeposit, core.TxPoolWithdraw, core.TxPoolMintBonusTokens,
		core.TxPoolAuthorityConfig, core.TxPoolWhiskyConfig,
		core.TxPlayerInitialize, core.TxPlayGame, core.TxPlayerClaim, core.TxPlayerClose,
		core.TxRngSettle, core.TxRngProvideHashedSeed, core.TxTransfer,
	} {
		assert.Contains(t, types, typ)
	}
}
