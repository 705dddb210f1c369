package farming

import (
	"errors"
	"fmt"
)

// Error categories. Specific failures wrap one of these so callers classify
// with errors.Is instead of matching message text. Every failed operation
// aborts with zero partial effects; resubmission after correcting the
// condition is always safe.
var (
	// ErrValidation covers caller mistakes: bad windows, short balances,
	// mismatched attached value, amounts exceeding stake.
	ErrValidation = errors.New("farming: validation failed")
	// ErrAuthorization covers privileged calls from the wrong identity.
	ErrAuthorization = errors.New("farming: unauthorized")
	// ErrArithmetic covers overflow, underflow and division by zero in the
	// checked arithmetic helpers. Never silently saturated.
	ErrArithmetic = errors.New("farming: arithmetic failure")
	// ErrInvariant marks accounting states that must be unreachable through
	// the public operation set. Surfacing one is a bug, not a caller error.
	ErrInvariant = errors.New("farming: invariant violated")
)

var (
	errNilState  = errors.New("farming engine: state not configured")
	errNilTokens = errors.New("farming engine: token registry not configured")
	errNilConfig = errors.New("farming engine: global config not initialised")

	errUnknownPool       = fmt.Errorf("%w: unknown pool", ErrValidation)
	errInvalidAmount     = fmt.Errorf("%w: amount must be positive", ErrValidation)
	errPoolNotActive     = fmt.Errorf("%w: pool window not active", ErrValidation)
	errPoolNotStarted    = fmt.Errorf("%w: pool has not started", ErrValidation)
	errWindowOrder       = fmt.Errorf("%w: start time must precede end time", ErrValidation)
	errZeroRate          = fmt.Errorf("%w: reward rate must be positive", ErrValidation)
	errAttachedValue     = fmt.Errorf("%w: attached value mismatch", ErrValidation)
	errExceedsStake      = fmt.Errorf("%w: amount exceeds deposited stake", ErrValidation)
	errNothingDeposited  = fmt.Errorf("%w: nothing deposited", ErrValidation)
	errInsufficientFunds = fmt.Errorf("%w: insufficient caller balance", ErrValidation)
	errTransferRejected  = fmt.Errorf("%w: token transfer rejected", ErrValidation)
	errRatioRange        = fmt.Errorf("%w: ratio exceeds base", ErrValidation)
	errHarvestSplit      = fmt.Errorf("%w: harvest split must sum to ratio base", ErrValidation)
	errRewardCutTotal    = fmt.Errorf("%w: reward cuts must leave pool remainder", ErrValidation)
	errMintRatioRange    = fmt.Errorf("%w: mint ratio outside (0, ratio base]", ErrValidation)
	errZeroAddress       = fmt.Errorf("%w: address must not be zero", ErrValidation)

	errNotAdmin = fmt.Errorf("%w: caller is not the administrator", ErrAuthorization)

	errAddOverflow    = fmt.Errorf("%w: addition overflow", ErrArithmetic)
	errSubUnderflow   = fmt.Errorf("%w: subtraction underflow", ErrArithmetic)
	errMulOverflow    = fmt.Errorf("%w: multiplication overflow", ErrArithmetic)
	errDivisionByZero = fmt.Errorf("%w: division by zero", ErrArithmetic)

	// errRewardDebt fires when a position's checkpoint exceeds its accrued
	// value, which means a mutation skipped the mandatory settlement.
	errRewardDebt = fmt.Errorf("%w: reward debt exceeds accrued value", ErrInvariant)
)
