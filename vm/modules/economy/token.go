// Package economy holds plain token movements between holders. Funding a
// wallet with underlying or native tokens goes through here.
package economy

import (
	"encoding/json"
	"fmt"

	"github.com/whiskylabs/whisky-protocol-core-sub001/core"
	"github.com/whiskylabs/whisky-protocol-core-sub001/events"
	"github.com/whiskylabs/whisky-protocol-core-sub001/vm"
)

func init() {
	vm.Register(core.TxTransfer, handleTransfer)
}

func handleTransfer(ctx *vm.Context, payload json.RawMessage) error {
	var p core.TransferPayload
	if err := vm.Decode(payload, &p); err != nil {
		return fmt.Errorf("decode transfer payload: %w", err)
	}
	if p.Amount == 0 {
		return core.ErrZeroAmount
	}
	if p.To.IsZero() {
		return core.ErrMissingAccount.Withf("transfer recipient")
	}

	if err := vm.Transfer(ctx.State, p.Mint, ctx.Signer(), p.To, p.Amount); err != nil {
		return err
	}
	ctx.Emit(events.EventTransfer, events.Transfer{
		From:   ctx.Signer(),
		To:     p.To,
		Mint:   p.Mint,
		Amount: p.Amount,
	})
	return nil
}
