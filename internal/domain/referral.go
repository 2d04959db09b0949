package domain

import (
	"github.com/ethereum/go-ethereum/common"
)

// InviterCandidates carries every possible source of a referral identity
// for one account. Candidates are re-collected on every refresh; once the
// registry reports a bound inviter that binding is permanent and always
// wins — the contract would reject anything else.
type InviterCandidates struct {
	// Bound is the inviter already recorded on-chain for this account.
	// The zero address means "not bound yet".
	Bound common.Address

	// Manual is free-form user input. Malformed text counts as absent.
	Manual string

	// Referral is the ?ref= value carried on the share link (or the -ref
	// flag). Malformed text counts as absent.
	Referral string

	// Root is the protocol's declared default inviter.
	Root common.Address
}

var zeroAddress common.Address

// Resolve picks exactly one inviter for the burn flow:
// bound > manual > referral > root > zero address.
func (c InviterCandidates) Resolve() common.Address {
	if c.Bound != zeroAddress {
		return c.Bound
	}
	if addr, ok := parseAddress(c.Manual); ok {
		return addr
	}
	return c.resolveTail()
}

// ResolveSubscribe is the subscription-flow variant: that flow has no
// manual entry field, the remaining priorities are unchanged.
func (c InviterCandidates) ResolveSubscribe() common.Address {
	if c.Bound != zeroAddress {
		return c.Bound
	}
	return c.resolveTail()
}

func (c InviterCandidates) resolveTail() common.Address {
	if addr, ok := parseAddress(c.Referral); ok {
		return addr
	}
	if c.Root != zeroAddress {
		return c.Root
	}
	return zeroAddress
}

// parseAddress validates a candidate. Anything that is not a well-formed,
// non-zero hex address is discarded silently.
func parseAddress(s string) (common.Address, bool) {
	if !common.IsHexAddress(s) {
		return zeroAddress, false
	}
	addr := common.HexToAddress(s)
	if addr == zeroAddress {
		return zeroAddress, false
	}
	return addr, true
}
