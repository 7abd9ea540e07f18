package events

import (
	"github.com/gagliardetto/solana-go"

	"github.com/whiskylabs/whisky-protocol-core-sub001/core"
)

const (
	EventSlotCommit  EventType = "slot_commit"
	EventTxExecuted  EventType = "tx_executed"
	EventTxFailed    EventType = "tx_failed"
	EventTransfer    EventType = "token_transfer"
	EventInitialized EventType = "whisky_initialized"
	EventAuthority   EventType = "whisky_authority_set"
	EventConfigSet   EventType = "whisky_config_set"
	EventFees        EventType = "fees_distributed"

	EventPoolInitialized EventType = "pool_initialized"
	EventPoolChange      EventType = "pool_change"
	EventBonusMinted     EventType = "bonus_minted"
	EventPoolConfigured  EventType = "pool_configured"

	EventPlayerInitialized EventType = "player_initialized"
	EventGameStarted       EventType = "game_started"
	EventGameSettled       EventType = "game_settled"
	EventSeedCommitted     EventType = "rng_seed_committed"
	EventPlayerClaimed     EventType = "player_claimed"
	EventPlayerClosed      EventType = "player_closed"
)

// PoolAction distinguishes the two liquidity operations.
type PoolAction string

const (
	PoolDeposit  PoolAction = "Deposit"
	PoolWithdraw PoolAction = "Withdraw"
)

// PoolChange is emitted after a deposit or withdrawal has moved balances.
// PostLiquidity and LpSupply are the values after the mutation.
type PoolChange struct {
	User          solana.PublicKey `json:"user"`
	Pool          solana.PublicKey `json:"pool"`
	TokenMint     solana.PublicKey `json:"token_mint"`
	Action        PoolAction       `json:"action"`
	Amount        uint64           `json:"amount"`
	PostLiquidity uint64           `json:"post_liquidity"`
	LpSupply      uint64           `json:"lp_supply"`
}

// GameSettled describes one resolved game.
type GameSettled struct {
	User                   solana.PublicKey `json:"user"`
	Pool                   solana.PublicKey `json:"pool"`
	TokenMint              solana.PublicKey `json:"token_mint"`
	Creator                solana.PublicKey `json:"creator"`
	CreatorFee             uint64           `json:"creator_fee"`
	WhiskyFee              uint64           `json:"whisky_fee"`
	PoolFee                uint64           `json:"pool_fee"`
	JackpotFee             uint64           `json:"jackpot_fee"`
	UnderlyingUsed         uint64           `json:"underlying_used"`
	BonusUsed              uint64           `json:"bonus_used"`
	Wager                  uint64           `json:"wager"`
	Payout                 uint64           `json:"payout"`
	Multiplier             uint64           `json:"multiplier_bps"`
	Result                 uint32           `json:"result"`
	Profit                 int64            `json:"profit"`
	JackpotPayout          uint64           `json:"jackpot_payout_to_user"`
	JackpotProbabilityUbps uint64           `json:"jackpot_probability_ubps"`
	JackpotResult          uint8            `json:"jackpot_result"`
	PayoutFromBonusPool    uint64           `json:"payout_from_bonus_pool"`
	PayoutFromNormalPool   uint64           `json:"payout_from_normal_pool"`
	Nonce                  uint64           `json:"nonce"`
	ClientSeed             string           `json:"client_seed"`
	RngSeed                string           `json:"rng_seed"`
	NextRngSeedHashed      core.Hash        `json:"next_rng_seed_hashed"`
	Metadata               string           `json:"metadata"`
	PointsAuthority        solana.PublicKey `json:"points_authority"`
}

// GameStarted is emitted when a wager is escrowed and a result requested.
type GameStarted struct {
	User       solana.PublicKey `json:"user"`
	Pool       solana.PublicKey `json:"pool"`
	TokenMint  solana.PublicKey `json:"token_mint"`
	Nonce      uint64           `json:"nonce"`
	Wager      uint64           `json:"wager"`
	Bet        []uint32         `json:"bet"`
	ClientSeed string           `json:"client_seed"`
	Commitment core.Hash        `json:"commitment"`
}

type PlayerInitialized struct {
	User   solana.PublicKey `json:"user"`
	Player solana.PublicKey `json:"player"`
}

// SeedCommitted is emitted when the RNG provider stores the commitment for a
// player's next game.
type SeedCommitted struct {
	User       solana.PublicKey `json:"user"`
	Nonce      uint64           `json:"nonce"`
	Commitment core.Hash        `json:"commitment"`
}

type PlayerClaimed struct {
	User      solana.PublicKey `json:"user"`
	TokenMint solana.PublicKey `json:"token_mint"`
	Amount    uint64           `json:"amount"`
}

type PlayerClosed struct {
	User solana.PublicKey `json:"user"`
}

type FeesDistributed struct {
	Mint      solana.PublicKey `json:"mint"`
	Recipient solana.PublicKey `json:"recipient"`
	Amount    uint64           `json:"amount"`
}

type PoolInitialized struct {
	Pool          solana.PublicKey `json:"pool"`
	TokenMint     solana.PublicKey `json:"token_mint"`
	PoolAuthority solana.PublicKey `json:"pool_authority"`
	Creator       solana.PublicKey `json:"creator"`
}

type BonusMinted struct {
	User   solana.PublicKey `json:"user"`
	Pool   solana.PublicKey `json:"pool"`
	Amount uint64           `json:"amount"`
}

// PoolConfigured carries the pool after an authority or protocol update.
type PoolConfigured struct {
	Pool *core.Pool `json:"pool"`
}

// ConfigSet carries the protocol configuration after an update.
type ConfigSet struct {
	Config *core.ProtocolConfig `json:"config"`
}

type AuthoritySet struct {
	Previous solana.PublicKey `json:"previous"`
	Current  solana.PublicKey `json:"current"`
}

type Transfer struct {
	From   solana.PublicKey `json:"from"`
	To     solana.PublicKey `json:"to"`
	Mint   solana.PublicKey `json:"mint"`
	Amount uint64           `json:"amount"`
}

type TxExecuted struct {
	Type core.TxType      `json:"type"`
	From solana.PublicKey `json:"from"`
}

type TxFailed struct {
	Type  core.TxType      `json:"type"`
	From  solana.PublicKey `json:"from"`
	Error string           `json:"error"`
	Code  uint32           `json:"code,omitempty"`
}

type SlotCommit struct {
	Hash      string `json:"hash"`
	StateRoot string `json:"state_root"`
	TxCount   int    `json:"tx_count"`
}
