package core

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// NativeMint stands for the chain's native asset (lamports) in token
// balances. Pool creation and anti-spam fees are charged in it.
var NativeMint = solana.SolMint

// Account holds a signer's replay-protection nonce. It is host bookkeeping,
// separate from the Player nonce that sequences games.
type Account struct {
	Address solana.PublicKey `json:"address"`
	Nonce   uint64           `json:"nonce"`
}

// ProtocolConfig is the singleton protocol state created by whiskyInitialize.
type ProtocolConfig struct {
	Authority   solana.PublicKey `json:"authority"`
	RngAddress  solana.PublicKey `json:"rng_address"`
	RngAddress2 solana.PublicKey `json:"rng_address2"`

	WhiskyFeeBps       uint64 `json:"whisky_fee_bps"`
	PoolCreationFee    uint64 `json:"pool_creation_fee"` // native
	AntiSpamFee        uint64 `json:"anti_spam_fee"`     // native, per play
	MaxCreatorFeeBps   uint64 `json:"max_creator_fee_bps"`
	MaxHouseEdgeBps    uint64 `json:"max_house_edge_bps"`
	DefaultPoolFeeBps  uint64 `json:"default_pool_fee_bps"`
	MaxPayoutBps       uint64 `json:"max_payout_bps"`
	PoolWithdrawFeeBps uint64 `json:"pool_withdraw_fee_bps"`

	JackpotPayoutToUserBps    uint64 `json:"jackpot_payout_to_user_bps"`
	JackpotPayoutToCreatorBps uint64 `json:"jackpot_payout_to_creator_bps"`
	JackpotPayoutToPoolBps    uint64 `json:"jackpot_payout_to_pool_bps"`
	JackpotPayoutToWhiskyBps  uint64 `json:"jackpot_payout_to_whisky_bps"`
	BonusToJackpotRatioBps    uint64 `json:"bonus_to_jackpot_ratio_bps"`

	PoolCreationAllowed bool `json:"pool_creation_allowed"`
	PoolDepositAllowed  bool `json:"pool_deposit_allowed"`
	PoolWithdrawAllowed bool `json:"pool_withdraw_allowed"`
	PlayingAllowed      bool `json:"playing_allowed"`

	DistributionRecipient solana.PublicKey `json:"distribution_recipient"`
}

// IsRngAuthority reports whether key may reveal seeds.
func (c *ProtocolConfig) IsRngAuthority(key solana.PublicKey) bool {
	if key.IsZero() {
		return false
	}
	return key.Equals(c.RngAddress) || key.Equals(c.RngAddress2)
}

// Paused reports whether every feature flag is off.
func (c *ProtocolConfig) Paused() bool {
	return !c.PoolCreationAllowed && !c.PoolDepositAllowed && !c.PoolWithdrawAllowed && !c.PlayingAllowed
}

// Pool is a liquidity pool for one underlying mint, keyed by
// (underlying mint, pool authority). A zero PoolAuthority marks a public pool.
type Pool struct {
	Address             solana.PublicKey `json:"address"`
	PoolAuthority       solana.PublicKey `json:"pool_authority"`
	UnderlyingTokenMint solana.PublicKey `json:"underlying_token_mint"`
	LookupAddress       solana.PublicKey `json:"lookup_address"`
	AntiSpamFeeExempt   bool             `json:"anti_spam_fee_exempt"`
	MinWager            uint64           `json:"min_wager"`
	Plays               uint64           `json:"plays"`
	LiquidityCheckpoint uint64           `json:"liquidity_checkpoint"`
	// PendingExposure is the sum of potential payouts of games awaiting
	// settlement. Withdrawals may not dip the reserve below it.
	PendingExposure uint64 `json:"pending_exposure"`

	DepositLimit       bool   `json:"deposit_limit"`
	DepositLimitAmount uint64 `json:"deposit_limit_amount"`

	CustomPoolFee          bool   `json:"custom_pool_fee"`
	CustomPoolFeeBps       uint64 `json:"custom_pool_fee_bps"`
	CustomWhiskyFee        bool   `json:"custom_whisky_fee"`
	CustomWhiskyFeeBps     uint64 `json:"custom_whisky_fee_bps"`
	CustomMaxPayout        bool   `json:"custom_max_payout"`
	CustomMaxPayoutBps     uint64 `json:"custom_max_payout_bps"`
	CustomMaxCreatorFee    bool   `json:"custom_max_creator_fee"`
	CustomMaxCreatorFeeBps uint64 `json:"custom_max_creator_fee_bps"`

	CustomBonusToken     bool             `json:"custom_bonus_token"`
	CustomBonusTokenMint solana.PublicKey `json:"custom_bonus_token_mint"`

	DepositWhitelistRequired bool             `json:"deposit_whitelist_required"`
	DepositWhitelistAddress  solana.PublicKey `json:"deposit_whitelist_address"`

	Paused bool `json:"paused"`
}

// PoolFeeBps returns the pool fee, honouring the pool override.
func (p *Pool) PoolFeeBps(cfg *ProtocolConfig) uint64 {
	if p.CustomPoolFee {
		return p.CustomPoolFeeBps
	}
	return cfg.DefaultPoolFeeBps
}

// WhiskyFeeBps returns the protocol fee, honouring the pool override.
func (p *Pool) WhiskyFeeBps(cfg *ProtocolConfig) uint64 {
	if p.CustomWhiskyFee {
		return p.CustomWhiskyFeeBps
	}
	return cfg.WhiskyFeeBps
}

// MaxPayoutBps returns the max payout share of free liquidity.
func (p *Pool) MaxPayoutBps(cfg *ProtocolConfig) uint64 {
	if p.CustomMaxPayout {
		return p.CustomMaxPayoutBps
	}
	return cfg.MaxPayoutBps
}

// MaxCreatorFeeBps returns the creator fee ceiling.
func (p *Pool) MaxCreatorFeeBps(cfg *ProtocolConfig) uint64 {
	if p.CustomMaxCreatorFee {
		return p.CustomMaxCreatorFeeBps
	}
	return cfg.MaxCreatorFeeBps
}

// Player is the per-user sequence holder. Nonce increments on every play.
type Player struct {
	Address   solana.PublicKey `json:"address"`
	User      solana.PublicKey `json:"user"`
	Nonce     uint64           `json:"nonce"`
	CreatedAt int64            `json:"created_at"`
}

// GameStatus is the state of a player's game slot.
type GameStatus uint8

const (
	GameStatusNone GameStatus = iota
	GameStatusResultRequested
	GameStatusReady
)

func (s GameStatus) String() string {
	switch s {
	case GameStatusNone:
		return "None"
	case GameStatusResultRequested:
		return "ResultRequested"
	case GameStatusReady:
		return "Ready"
	default:
		return "Unknown"
	}
}

func (s GameStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *GameStatus) UnmarshalText(b []byte) error {
	switch string(b) {
	case "None":
		*s = GameStatusNone
	case "ResultRequested":
		*s = GameStatusResultRequested
	case "Ready":
		*s = GameStatusReady
	default:
		return fmt.Errorf("unknown game status %q", b)
	}
	return nil
}

// Game is the single re-used game slot of a player.
type Game struct {
	Address   solana.PublicKey `json:"address"`
	Nonce     uint64           `json:"nonce"`
	User      solana.PublicKey `json:"user"`
	TokenMint solana.PublicKey `json:"token_mint"`
	Pool      solana.PublicKey `json:"pool"`
	Status    GameStatus       `json:"status"`

	// NextRngSeedHashed is the commitment the next settlement must reveal.
	NextRngSeedHashed Hash   `json:"next_rng_seed_hashed"`
	RngSeed           string `json:"rng_seed"`
	Timestamp         int64  `json:"timestamp"`

	Creator     solana.PublicKey `json:"creator"`
	CreatorMeta string           `json:"creator_meta"`

	Wager          uint64 `json:"wager"`
	UnderlyingUsed uint64 `json:"underlying_used"`
	BonusUsed      uint64 `json:"bonus_used"`
	CreatorFee     uint64 `json:"creator_fee"`
	WhiskyFee      uint64 `json:"whisky_fee"`
	PoolFee        uint64 `json:"pool_fee"`
	JackpotFee     uint64 `json:"jackpot_fee"`

	JackpotResult          uint8  `json:"jackpot_result"`
	JackpotProbabilityUbps uint64 `json:"jackpot_probability_ubps"`
	JackpotPayout          uint64 `json:"jackpot_payout"`

	ClientSeed string   `json:"client_seed"`
	Bet        []uint32 `json:"bet"`
	Result     uint32   `json:"result"`
	Payout     uint64   `json:"payout"`
	MaxPayout  uint64   `json:"max_payout"`

	PointsAuthority solana.PublicKey `json:"points_authority"`
}

// TokenAccount is the balance of one mint held by one owner.
type TokenAccount struct {
	Mint   solana.PublicKey `json:"mint"`
	Owner  solana.PublicKey `json:"owner"`
	Amount uint64           `json:"amount"`
}

// Mint tracks the supply of a ledger-issued token (LP shares, bonus tokens).
type Mint struct {
	Address   solana.PublicKey `json:"address"`
	Authority solana.PublicKey `json:"authority"`
	Supply    uint64           `json:"supply"`
}
