package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Source identifies which side won reconciliation for a position.
type Source int

const (
	SourceChain Source = iota
	SourceOffchain
)

func (s Source) String() string {
	if s == SourceOffchain {
		return "offchain"
	}
	return "chain"
}

// ReservePair holds the AMM pool reserves oriented as (token, BNB).
// A pair is only meaningful for the refresh cycle that read it.
type ReservePair struct {
	TokenReserve *big.Int
	BNBReserve   *big.Int
}

// Valid reports whether both reserves are present and strictly positive.
func (r ReservePair) Valid() bool {
	return r.TokenReserve != nil && r.BNBReserve != nil &&
		r.TokenReserve.Sign() > 0 && r.BNBReserve.Sign() > 0
}

// CachedLoss is the protocol's on-chain precomputed realized loss.
// Valid == false means the contract could not compute it cheaply; the
// loss is unknown, not zero.
type CachedLoss struct {
	Loss  *big.Int
	Valid bool
}

// PositionSnapshot is the loss-dividend contract's per-user accounting
// tuple (userSnapshots). Monotonically updated by the protocol; read-only
// to this client.
type PositionSnapshot struct {
	CostBasis        *big.Int
	SoldValue        *big.Int
	DividendReceived *big.Int
}

// OffchainSnapshot is the optional user-status document served by the
// indexer. All amounts are decimal-string wei to survive JSON without
// precision loss. A nil *OffchainSnapshot means the service is absent or
// answered non-2xx — never "all zeroes".
type OffchainSnapshot struct {
	CostBasis           string            `json:"costBasis"`
	SoldValue           string            `json:"soldValue"`
	CurrentHoldingValue string            `json:"currentHoldingValue"`
	LossAmount          string            `json:"lossAmount"`
	CanClaim            bool              `json:"canClaim"`
	Thresholds          map[string]string `json:"thresholds,omitempty"`
}

// EffectivePosition is the reconciled view shown to the user. Every field
// comes from the same side: off-chain when the snapshot is present,
// on-chain otherwise.
type EffectivePosition struct {
	CostBasis    *big.Int
	SoldValue    *big.Int
	HoldingValue *big.Int
	LossAmount   *big.Int
	Source       Source
}

// TokenView is the ERC-20 contract group: balance plus the registry
// allowance for the tracked account.
type TokenView struct {
	Symbol    string
	Balance   *big.Int
	Allowance *big.Int
}

// BurnView is the registry group: the account's burn history, the
// referral binding, and the protocol totals shown in the stats table.
type BurnView struct {
	BurnedValue  *big.Int
	TotalBurned  *big.Int
	MinBurnValue *big.Int
	InviteeCount uint64
	Inviter      common.Address
	RootInviter  common.Address
}

// BurnDividendView is the burn-dividend group's unpaid claimables.
type BurnDividendView struct {
	UnpaidBNB   *big.Int
	UnpaidToken *big.Int
}

// LossDividendView is the loss-dividend group: the user snapshot, the
// cached loss, the unpaid dividend derived from it, and the pool totals.
type LossDividendView struct {
	Snapshot       PositionSnapshot
	Loss           CachedLoss
	Unpaid         *big.Int
	TotalAllocated *big.Int
	TotalClaimed   *big.Int
	Pool           common.Address
}

// NFTView is the NFT-dividend group's per-user tuple.
type NFTView struct {
	Performance      *big.Int
	NFTCount         *big.Int
	TotalDividends   *big.Int
	PendingDividends *big.Int
	ClaimableNFTs    uint64
}

// SubscriptionView is the NFT-subscription group's per-user state.
type SubscriptionView struct {
	PricePerShare *big.Int
	TwoLevel      uint64
	Team          uint64
	Inviter       common.Address
	RootInviter   common.Address
}

// AccountState is everything one refresh produced for an account: the raw
// per-group reads, the optional off-chain snapshot, and the reconciled
// position derived from them.
type AccountState struct {
	Address common.Address

	Token        TokenView
	Burn         BurnView
	BurnDividend BurnDividendView
	LossDividend LossDividendView
	NFT          NFTView
	Subscription SubscriptionView

	Reserves ReservePair
	Offchain *OffchainSnapshot

	// HoldingValue is the forward AMM quote of the account's token
	// balance, in BNB. Zero when the pool was unreadable this cycle.
	HoldingValue *big.Int

	Position    EffectivePosition
	RefreshedAt time.Time
}

// TxRecord is one transaction attempt as written to the history log.
type TxRecord struct {
	ID          string
	Kind        string
	TxHash      string
	Amount      string
	Inviter     string
	Err         string
	SubmittedAt time.Time
}

// Succeeded reports whether the attempt confirmed without error.
func (r TxRecord) Succeeded() bool { return r.Err == "" && r.TxHash != "" }

// RefreshRecord is one refresh summary as written to the history log.
// Amounts are decimal-string wei; the log is diagnostics, not a data
// source, so nothing ever parses these back.
type RefreshRecord struct {
	RefreshedAt  time.Time
	Address      string
	Source       string
	CostBasis    string
	SoldValue    string
	HoldingValue string
	LossAmount   string
}
