package core

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested object does not exist in storage.
var ErrNotFound = errors.New("not found")

// ErrorKind names the taxonomy a ProgramError belongs to.
type ErrorKind string

const (
	KindProgram     ErrorKind = "ProgramError"
	KindWhiskyState ErrorKind = "WhiskyStateError"
	KindPlayer      ErrorKind = "PlayerError"
	KindRng         ErrorKind = "RngError"
	KindGame        ErrorKind = "GameError"
	KindPool        ErrorKind = "PoolError"
)

// ProgramError is the rejection returned by every ledger instruction.
// Two ProgramErrors match under errors.Is when their codes are equal, so
// callers branch on the package-level sentinels regardless of Detail.
type ProgramError struct {
	Code   uint32    `json:"code"`
	Name   string    `json:"name"`
	Kind   ErrorKind `json:"kind"`
	Msg    string    `json:"msg"`
	Detail string    `json:"detail,omitempty"`
}

func (e *ProgramError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s(%d) %s: %s: %s", e.Kind, e.Code, e.Name, e.Msg, e.Detail)
	}
	return fmt.Sprintf("%s(%d) %s: %s", e.Kind, e.Code, e.Name, e.Msg)
}

// Is reports whether target is a ProgramError with the same code.
func (e *ProgramError) Is(target error) bool {
	t, ok := target.(*ProgramError)
	return ok && t.Code == e.Code
}

// Withf returns a copy of e carrying a formatted detail message.
func (e *ProgramError) Withf(format string, args ...any) *ProgramError {
	cp := *e
	cp.Detail = fmt.Sprintf(format, args...)
	return &cp
}

// AsProgramError extracts the ProgramError wrapped in err, if any.
func AsProgramError(err error) (*ProgramError, bool) {
	var pe *ProgramError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

var errorsByCode = make(map[uint32]*ProgramError)

func define(kind ErrorKind, code uint32, name, msg string) *ProgramError {
	if _, dup := errorsByCode[code]; dup {
		panic(fmt.Sprintf("core: duplicate error code %d", code))
	}
	e := &ProgramError{Code: code, Name: name, Kind: kind, Msg: msg}
	errorsByCode[code] = e
	return e
}

// LookupError resolves a numeric code to its definition.
func LookupError(code uint32) (*ProgramError, bool) {
	e, ok := errorsByCode[code]
	return e, ok
}

// Global error codes 6000-6021.
var (
	ErrUnauthorized                = define(KindProgram, 6000, "Unauthorized", "transaction signature missing or invalid")
	ErrInvalidAuthority            = define(KindProgram, 6001, "InvalidAuthority", "signer is not the required authority")
	ErrInvalidRngAuthority         = define(KindProgram, 6002, "InvalidRngAuthority", "signer is not an authorized rng provider")
	ErrConfigurationOutOfBounds    = define(KindProgram, 6003, "ConfigurationOutOfBounds", "configuration value out of bounds")
	ErrInvalidFeeConfiguration     = define(KindProgram, 6004, "InvalidFeeConfiguration", "fee legs exceed 10000 bps")
	ErrInvalidJackpotConfiguration = define(KindProgram, 6005, "InvalidJackpotConfiguration", "jackpot payout split must sum to 10000 bps")
	ErrMathOverflow                = define(KindProgram, 6006, "MathOverflow", "arithmetic overflow")
	ErrCalculationError            = define(KindProgram, 6007, "CalculationError", "calculation error")
	ErrInsufficientLiquidity       = define(KindProgram, 6008, "InsufficientLiquidity", "pool liquidity too low")
	ErrInsufficientBalance         = define(KindProgram, 6009, "InsufficientBalance", "insufficient token balance")
	ErrFeatureDisabled             = define(KindProgram, 6010, "FeatureDisabled", "feature disabled for this pool")
	ErrProtocolPaused              = define(KindProgram, 6011, "ProtocolPaused", "protocol paused")
	ErrPoolPaused                  = define(KindProgram, 6012, "PoolPaused", "pool paused")
	ErrInvalidMetadata             = define(KindProgram, 6013, "InvalidMetadata", "invalid game metadata")
	ErrSeedHashMismatch            = define(KindProgram, 6014, "SeedHashMismatch", "revealed seed does not match commitment")
	ErrDuplicateSettlement         = define(KindProgram, 6015, "DuplicateSettlement", "game already settled")
	ErrGameInProgress              = define(KindProgram, 6016, "GameInProgress", "game result pending")
	ErrGameNotSettled              = define(KindProgram, 6017, "GameNotSettled", "game not settled yet")
	ErrUnknownInstruction          = define(KindProgram, 6018, "UnknownInstruction", "unknown instruction")
	ErrInvalidInstructionData      = define(KindProgram, 6019, "InvalidInstructionData", "malformed instruction payload")
	ErrInvalidNonce                = define(KindProgram, 6020, "InvalidNonce", "signer nonce does not match")
	ErrMissingAccount              = define(KindProgram, 6021, "MissingAccount", "required account address not provided")
)

// WhiskyStateError
var (
	ErrAlreadyInitialized      = define(KindWhiskyState, 6100, "AlreadyInitialized", "protocol state already initialized")
	ErrNotInitialized          = define(KindWhiskyState, 6101, "NotInitialized", "protocol state not initialized")
	ErrPoolCreationNotAllowed  = define(KindWhiskyState, 6102, "PoolCreationNotAllowed", "pool creation not allowed")
	ErrPoolDepositNotAllowed   = define(KindWhiskyState, 6103, "PoolDepositNotAllowed", "pool deposits not allowed")
	ErrPoolWithdrawNotAllowed  = define(KindWhiskyState, 6104, "PoolWithdrawNotAllowed", "pool withdrawals not allowed")
	ErrPlayingNotAllowed       = define(KindWhiskyState, 6105, "PlayingNotAllowed", "playing not allowed")
	ErrNoDistributionRecipient = define(KindWhiskyState, 6106, "NoDistributionRecipient", "no fee distribution recipient configured")
)

// PlayerError
var (
	ErrPlayerAlreadyInitialized = define(KindPlayer, 6200, "PlayerAlreadyInitialized", "player already initialized")
	ErrPlayerNotInitialized     = define(KindPlayer, 6201, "PlayerNotInitialized", "player not initialized")
	ErrCannotClaim              = define(KindPlayer, 6202, "CannotClaim", "nothing to claim")
	ErrUnclaimedBalance         = define(KindPlayer, 6203, "UnclaimedBalance", "claim escrowed winnings before closing")
)

// RngError
var (
	ErrHashedSeedNotProvided = define(KindRng, 6300, "HashedSeedNotProvided", "rng provider has not committed a seed hash")
	ErrResultNotRequested    = define(KindRng, 6301, "ResultNotRequested", "no result requested")
	ErrInvalidRngSeed        = define(KindRng, 6302, "InvalidRngSeed", "invalid rng seed")
)

// GameError
var (
	ErrTooFewOutcomes    = define(KindGame, 6400, "TooFewOutcomes", "too few outcomes")
	ErrTooManyOutcomes   = define(KindGame, 6401, "TooManyOutcomes", "too many outcomes")
	ErrInvalidHouseEdge  = define(KindGame, 6402, "InvalidHouseEdge", "bet returns more than the wager on average")
	ErrHouseEdgeTooHigh  = define(KindGame, 6403, "HouseEdgeTooHigh", "house edge too high")
	ErrMaxPayoutExceeded = define(KindGame, 6404, "MaxPayoutExceeded", "potential payout exceeds pool max payout")
	ErrWagerTooLow       = define(KindGame, 6405, "WagerTooLow", "wager below pool minimum")
	ErrWagerTooHigh      = define(KindGame, 6406, "WagerTooHigh", "wager above pool max payout")
	ErrCreatorFeeTooHigh = define(KindGame, 6407, "CreatorFeeTooHigh", "creator fee too high")
	ErrInvalidClientSeed = define(KindGame, 6408, "InvalidClientSeed", "invalid client seed")
)

// PoolError
var (
	ErrPoolAlreadyExists       = define(KindPool, 6500, "PoolAlreadyExists", "pool already exists")
	ErrPoolNotFound            = define(KindPool, 6501, "PoolNotFound", "pool not found")
	ErrDepositLimitExceeded    = define(KindPool, 6502, "DepositLimitExceeded", "deposit limit exceeded")
	ErrWhitelistCheckFailed    = define(KindPool, 6503, "WhitelistCheckFailed", "depositor not whitelisted")
	ErrWithdrawalLimitExceeded = define(KindPool, 6504, "WithdrawalLimitExceeded", "withdrawal would release liquidity reserved for pending games")
	ErrZeroAmount              = define(KindPool, 6505, "ZeroAmount", "amount must be > 0")
)
