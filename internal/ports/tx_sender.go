package ports

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TxSender submits the protocol's state-changing transactions. Every
// method blocks until finality (receipt observed) or failure, and returns
// the transaction hash. A reverted transaction is an error carrying the
// revert reason when the node exposes one.
type TxSender interface {
	// Approve grants the registry an unlimited token allowance.
	Approve(ctx context.Context) (common.Hash, error)

	// Burn sends amount tokens to the registry's burn with the resolved
	// inviter.
	Burn(ctx context.Context, amount *big.Int, inviter common.Address) (common.Hash, error)

	// ClaimBurnBNB claims the burn-dividend BNB payout.
	ClaimBurnBNB(ctx context.Context) (common.Hash, error)

	// ClaimBurnToken claims the burn-dividend token payout.
	ClaimBurnToken(ctx context.Context) (common.Hash, error)

	// ClaimLoss claims the loss-dividend payout.
	ClaimLoss(ctx context.Context) (common.Hash, error)

	// ClaimNFTDividend claims the NFT-dividend payout.
	ClaimNFTDividend(ctx context.Context) (common.Hash, error)

	// ClaimNFT mints the NFTs the account has earned.
	ClaimNFT(ctx context.Context) (common.Hash, error)

	// Subscribe buys shares at the fixed per-share price; value must be
	// pricePerShare*shares and rides as the transaction's native value.
	Subscribe(ctx context.Context, shares, value *big.Int, inviter common.Address) (common.Hash, error)
}
