package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/whiskylabs/whisky-protocol-core-sub001/crypto"
)

// TxType identifies the instruction a transaction carries.
type TxType string

const (
	TxWhiskyInitialize     TxType = "whiskyInitialize"
	TxWhiskySetAuthority   TxType = "whiskySetAuthority"
	TxWhiskySetConfig      TxType = "whiskySetConfig"
	TxDistributeFees       TxType = "distributeFees"
	TxPoolInitialize       TxType = "poolInitialize"
	TxPoolDeposit          TxType = "poolDeposit"
	TxPoolWithdraw         TxType = "poolWithdraw"
	TxPoolMintBonusTokens  TxType = "poolMintBonusTokens"
	TxPoolAuthorityConfig  TxType = "poolAuthorityConfig"
	TxPoolWhiskyConfig     TxType = "poolWhiskyConfig"
	TxPlayerInitialize     TxType = "playerInitialize"
	TxPlayGame             TxType = "playGame"
	TxPlayerClaim          TxType = "playerClaim"
	TxPlayerClose          TxType = "playerClose"
	TxRngSettle            TxType = "rngSettle"
	TxRngProvideHashedSeed TxType = "rngProvideHashedSeed"
	TxTransfer             TxType = "transfer"
)

// Transaction is the atomic unit of work on the ledger. From is the signer's
// base58 public key; Signature covers every field except ID and Signature.
type Transaction struct {
	ID        string           `json:"id"`
	Type      TxType           `json:"type"`
	From      solana.PublicKey `json:"from"`
	Nonce     uint64           `json:"nonce"`
	Timestamp int64            `json:"timestamp"`
	Payload   json.RawMessage  `json:"payload"`
	Signature solana.Signature `json:"signature"`
}

type signingBody struct {
	Type      TxType           `json:"type"`
	From      solana.PublicKey `json:"from"`
	Nonce     uint64           `json:"nonce"`
	Timestamp int64            `json:"timestamp"`
	Payload   json.RawMessage  `json:"payload"`
}

// Hash returns a deterministic hash of the transaction (sans Signature).
func (tx *Transaction) Hash() string {
	data, err := json.Marshal(signingBody{
		Type:      tx.Type,
		From:      tx.From,
		Nonce:     tx.Nonce,
		Timestamp: tx.Timestamp,
		Payload:   tx.Payload,
	})
	if err != nil {
		return ""
	}
	return crypto.Hash(data)
}

// Sign computes the signature and sets ID.
func (tx *Transaction) Sign(priv solana.PrivateKey) error {
	hash := tx.Hash()
	sig, err := crypto.Sign(priv, []byte(hash))
	if err != nil {
		return fmt.Errorf("sign tx: %w", err)
	}
	tx.Signature = sig
	tx.ID = hash
	return nil
}

// Verify checks the signature against From.
func (tx *Transaction) Verify() error {
	if tx.From.IsZero() {
		return errors.New("missing from field")
	}
	return crypto.Verify(tx.From, []byte(tx.Hash()), tx.Signature)
}

// NewTransaction creates an unsigned transaction with the current timestamp.
func NewTransaction(typ TxType, from solana.PublicKey, nonce uint64, payload any) (*Transaction, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Transaction{
		Type:      typ,
		From:      from,
		Nonce:     nonce,
		Timestamp: time.Now().UnixNano(),
		Payload:   raw,
	}, nil
}

// ---- Payload types ----

// WhiskyInitializePayload is empty; the signer becomes the authority.
type WhiskyInitializePayload struct{}

type WhiskySetAuthorityPayload struct {
	Authority solana.PublicKey `json:"authority"`
}

// WhiskySetConfigPayload replaces every mutable protocol parameter at once.
type WhiskySetConfigPayload struct {
	RngAddress                solana.PublicKey `json:"rng_address"`
	RngAddress2               solana.PublicKey `json:"rng_address2"`
	WhiskyFeeBps              uint64           `json:"whisky_fee_bps"`
	MaxCreatorFeeBps          uint64           `json:"max_creator_fee_bps"`
	PoolCreationFee           uint64           `json:"pool_creation_fee"`
	AntiSpamFee               uint64           `json:"anti_spam_fee"`
	MaxHouseEdgeBps           uint64           `json:"max_house_edge_bps"`
	DefaultPoolFeeBps         uint64           `json:"default_pool_fee_bps"`
	JackpotPayoutToUserBps    uint64           `json:"jackpot_payout_to_user_bps"`
	JackpotPayoutToCreatorBps uint64           `json:"jackpot_payout_to_creator_bps"`
	JackpotPayoutToPoolBps    uint64           `json:"jackpot_payout_to_pool_bps"`
	JackpotPayoutToWhiskyBps  uint64           `json:"jackpot_payout_to_whisky_bps"`
	BonusToJackpotRatioBps    uint64           `json:"bonus_to_jackpot_ratio_bps"`
	MaxPayoutBps              uint64           `json:"max_payout_bps"`
	PoolWithdrawFeeBps        uint64           `json:"pool_withdraw_fee_bps"`
	PoolCreationAllowed       bool             `json:"pool_creation_allowed"`
	PoolDepositAllowed        bool             `json:"pool_deposit_allowed"`
	PoolWithdrawAllowed       bool             `json:"pool_withdraw_allowed"`
	PlayingAllowed            bool             `json:"playing_allowed"`
	DistributionRecipient     solana.PublicKey `json:"distribution_recipient"`
}

// DistributeFeesPayload sweeps the protocol vault for the native asset or Mint.
type DistributeFeesPayload struct {
	NativeSol bool             `json:"native_sol"`
	Mint      solana.PublicKey `json:"mint"`
}

type PoolInitializePayload struct {
	UnderlyingTokenMint solana.PublicKey `json:"underlying_token_mint"`
	PoolAuthority       solana.PublicKey `json:"pool_authority"`
	LookupAddress       solana.PublicKey `json:"lookup_address"`
}

// PoolDepositPayload deposits Amount of underlying.
type PoolDepositPayload struct {
	Pool   solana.PublicKey `json:"pool"`
	Amount uint64           `json:"amount"`
}

// PoolWithdrawPayload burns Amount of LP shares.
type PoolWithdrawPayload struct {
	Pool   solana.PublicKey `json:"pool"`
	Amount uint64           `json:"amount"`
}

type PoolMintBonusTokensPayload struct {
	Pool   solana.PublicKey `json:"pool"`
	Amount uint64           `json:"amount"`
}

// PoolAuthorityConfigPayload is applied by the pool authority.
type PoolAuthorityConfigPayload struct {
	Pool                     solana.PublicKey `json:"pool"`
	MinWager                 uint64           `json:"min_wager"`
	DepositLimit             bool             `json:"deposit_limit"`
	DepositLimitAmount       uint64           `json:"deposit_limit_amount"`
	DepositWhitelistRequired bool             `json:"deposit_whitelist_required"`
	DepositWhitelistAddress  solana.PublicKey `json:"deposit_whitelist_address"`
}

// PoolWhiskyConfigPayload is applied by the protocol authority.
type PoolWhiskyConfigPayload struct {
	Pool                   solana.PublicKey `json:"pool"`
	AntiSpamFeeExempt      bool             `json:"anti_spam_fee_exempt"`
	CustomPoolFee          bool             `json:"custom_pool_fee"`
	CustomPoolFeeBps       uint64           `json:"custom_pool_fee_bps"`
	CustomWhiskyFee        bool             `json:"custom_whisky_fee"`
	CustomWhiskyFeeBps     uint64           `json:"custom_whisky_fee_bps"`
	CustomMaxPayout        bool             `json:"custom_max_payout"`
	CustomMaxPayoutBps     uint64           `json:"custom_max_payout_bps"`
	CustomMaxCreatorFee    bool             `json:"custom_max_creator_fee"`
	CustomMaxCreatorFeeBps uint64           `json:"custom_max_creator_fee_bps"`
	CustomBonusToken       bool             `json:"custom_bonus_token"`
	CustomBonusTokenMint   solana.PublicKey `json:"custom_bonus_token_mint"`
	Paused                 bool             `json:"paused"`
}

type PlayerInitializePayload struct{}

// PlayGamePayload places a wager against Pool.
type PlayGamePayload struct {
	Pool            solana.PublicKey `json:"pool"`
	Wager           uint64           `json:"wager"`
	Bet             []uint32         `json:"bet"` // multiplier per outcome, bps
	ClientSeed      string           `json:"client_seed"`
	Creator         solana.PublicKey `json:"creator"`
	CreatorFeeBps   uint64           `json:"creator_fee_bps"`
	JackpotFeeBps   uint64           `json:"jackpot_fee_bps"`
	Metadata        string           `json:"metadata"`
	PointsAuthority solana.PublicKey `json:"points_authority,omitempty"`
}

type PlayerClaimPayload struct{}

type PlayerClosePayload struct{}

// RngSettlePayload reveals the seed of User's pending game and commits the
// hash of the next one.
type RngSettlePayload struct {
	User              solana.PublicKey `json:"user"`
	RngSeed           string           `json:"rng_seed"`
	NextRngSeedHashed Hash             `json:"next_rng_seed_hashed"`
}

type RngProvideHashedSeedPayload struct {
	User              solana.PublicKey `json:"user"`
	NextRngSeedHashed Hash             `json:"next_rng_seed_hashed"`
}

// TransferPayload moves tokens between holders.
type TransferPayload struct {
	To     solana.PublicKey `json:"to"`
	Mint   solana.PublicKey `json:"mint"`
	Amount uint64           `json:"amount"`
}
