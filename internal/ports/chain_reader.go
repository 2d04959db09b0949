package ports

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/emberfi/burndeck/internal/domain"
)

// ChainReader reads protocol state from the RPC endpoint, one method per
// contract group. A method returns an error only for a group-level
// failure (contract not deployed at the configured address, endpoint
// unreachable); individual call failures inside a group degrade to the
// view's typed defaults and never abort sibling fields.
type ChainReader interface {
	// ReadToken returns symbol, balance, and the registry allowance.
	ReadToken(ctx context.Context, owner common.Address) (domain.TokenView, error)

	// ReadBurn returns the registry group: burn totals, referral binding,
	// minimum burn value.
	ReadBurn(ctx context.Context, owner common.Address) (domain.BurnView, error)

	// ReadBurnDividend returns the burn-dividend unpaid claimables.
	ReadBurnDividend(ctx context.Context, owner common.Address) (domain.BurnDividendView, error)

	// ReadLossDividend returns the user snapshot, cached loss, unpaid
	// loss dividend, and pool totals.
	ReadLossDividend(ctx context.Context, owner common.Address) (domain.LossDividendView, error)

	// ReadNFT returns the NFT-dividend per-user tuple.
	ReadNFT(ctx context.Context, owner common.Address) (domain.NFTView, error)

	// ReadSubscription returns the NFT-subscription per-user state.
	ReadSubscription(ctx context.Context, owner common.Address) (domain.SubscriptionView, error)

	// ReadReserves returns pool reserves oriented as (token, BNB) via
	// token0(). An unrecognized or zero token0 is a group-level error.
	ReadReserves(ctx context.Context) (domain.ReservePair, error)

	// Allowance re-reads the registry allowance. The orchestrator calls
	// this at submit time; a polled value is never trusted for a write.
	Allowance(ctx context.Context, owner common.Address) (*big.Int, error)

	// NativeBalance returns the account's BNB balance.
	NativeBalance(ctx context.Context, owner common.Address) (*big.Int, error)
}
