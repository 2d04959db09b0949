package orchestrator

// errors.go — transaction-level failure classification.
//
// Revert reasons come back from the node as free-text inside the error
// string (usually at gas estimation, which executes the call). Known
// markers map to a distinct user-facing explanation; anything else is
// truncated and pointed at the history log.

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// ErrBusy is returned when an operation is requested while another one
// is still in flight. The machine admits one non-idle phase at a time.
var ErrBusy = errors.New("another operation is in progress")

// ErrNotConnected is returned when a write is requested without a
// signing session.
var ErrNotConnected = errors.New("wallet not connected")

// ErrWrongNetwork is returned when the wallet is on a different chain
// than the configured protocol deployment. The caller must switch and
// re-trigger; the operation does not auto-continue.
type ErrWrongNetwork struct {
	Want, Got *big.Int
}

func (e *ErrWrongNetwork) Error() string {
	return fmt.Sprintf("wrong network: protocol lives on chain %s, wallet is on chain %s — switch and retry", e.Want, e.Got)
}

// ErrBelowMinBurn is the client-side rejection of a burn whose quoted
// value falls under the protocol minimum. NeedAmount tells the user how
// many tokens would clear it.
type ErrBelowMinBurn struct {
	Quote      *big.Int
	MinValue   *big.Int
	NeedAmount *big.Int
}

func (e *ErrBelowMinBurn) Error() string {
	return fmt.Sprintf(
		"burn value %s wei is below the protocol minimum %s wei; burn at least %s tokens",
		e.Quote, e.MinValue, e.NeedAmount,
	)
}

// ErrInsufficientBalance rejects a subscribe the account cannot pay for.
type ErrInsufficientBalance struct {
	Need, Have *big.Int
}

func (e *ErrInsufficientBalance) Error() string {
	return fmt.Sprintf("insufficient BNB: need %s wei, have %s wei", e.Need, e.Have)
}

// Reason buckets a failed transaction for presentation.
type Reason int

const (
	ReasonUnknown Reason = iota
	ReasonBelowMinBurn
	ReasonShallowLiquidity
	ReasonStaleAllowance
)

// revert-reason markers emitted by the protocol and the pool router
const (
	markerBelowMin  = "BELOW_MIN_BURN_VALUE"
	markerLiquidity = "INSUFFICIENT_LIQUIDITY"
	markerAllowance = "exceeds allowance"
)

const maxRawLen = 160

// TxError wraps a submission failure with its classification. Error()
// is the user-facing message.
type TxError struct {
	Reason Reason
	Msg    string
	Err    error
}

func (e *TxError) Error() string { return e.Msg }
func (e *TxError) Unwrap() error { return e.Err }

// Classify maps a raw submission error onto a TxError.
func Classify(err error) *TxError {
	raw := err.Error()

	switch {
	case strings.Contains(raw, markerBelowMin):
		return &TxError{
			Reason: ReasonBelowMinBurn,
			Msg:    "burn rejected on-chain: slippage pushed the effective value below the protocol minimum — try a larger amount",
			Err:    err,
		}
	case strings.Contains(raw, markerLiquidity):
		return &TxError{
			Reason: ReasonShallowLiquidity,
			Msg:    "pool liquidity is too shallow for this amount — try a smaller amount",
			Err:    err,
		}
	case strings.Contains(raw, markerAllowance):
		return &TxError{
			Reason: ReasonStaleAllowance,
			Msg:    "the approval on record no longer covers this amount — retry to re-approve",
			Err:    err,
		}
	}

	if len(raw) > maxRawLen {
		raw = raw[:maxRawLen] + "…"
	}
	return &TxError{
		Reason: ReasonUnknown,
		Msg:    "transaction failed: " + raw + " (see the history log for details)",
		Err:    err,
	}
}
