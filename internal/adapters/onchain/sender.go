package onchain

// sender.go — signed transaction submission for the protocol's write
// surface: approve, burn, the four claims, and subscribe.
//
// Gas is estimated per transaction with the node; an estimation failure
// is a hard error, not a fallback — estimation executes the call, so this
// is where revert reasons (BELOW_MIN_BURN_VALUE, allowance, liquidity)
// surface before any gas is spent. Every method waits for the receipt;
// there is no client-side deadline beyond the caller's context, finality
// is the terminal signal.

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

const (
	gasPriceTTL    = 5 * time.Minute
	receiptPoll    = 3 * time.Second
	fallbackGasWei = 3_000_000_000 // 3 gwei, BSC floor
)

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Sender implements ports.TxSender and ports.Wallet with a local key.
type Sender struct {
	client    *ethclient.Client
	contracts Contracts
	chainID   *big.Int
	key       []byte
	address   common.Address
	dryRun    bool

	mu           sync.Mutex
	cachedGasWei *big.Int
	gasUpdatedAt time.Time
}

// NewSender builds a sender from a hex private key (0x prefix optional).
// An empty key yields a disconnected sender: reads still work through the
// reader, but Connected() is false and every submit fails fast.
func NewSender(client *ethclient.Client, contracts Contracts, chainID *big.Int, privateKeyHex string, dryRun bool) (*Sender, error) {
	s := &Sender{client: client, contracts: contracts, chainID: chainID, dryRun: dryRun}
	if privateKeyHex == "" {
		return s, nil
	}

	pkBytes, err := hex.DecodeString(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("onchain: decode private key: %w", err)
	}
	privKey, err := crypto.ToECDSA(pkBytes)
	if err != nil {
		return nil, fmt.Errorf("onchain: invalid private key: %w", err)
	}

	s.key = pkBytes
	s.address = crypto.PubkeyToAddress(privKey.PublicKey)
	return s, nil
}

// Connected reports whether a signing key is loaded.
func (s *Sender) Connected() bool { return len(s.key) > 0 }

// Address returns the signer's account (zero when disconnected).
func (s *Sender) Address() common.Address { return s.address }

// ChainID returns the network the sender signs for.
func (s *Sender) ChainID() *big.Int { return new(big.Int).Set(s.chainID) }

func (s *Sender) Approve(ctx context.Context) (common.Hash, error) {
	data, err := erc20ABI.Pack("approve", s.contracts.Registry, maxUint256)
	if err != nil {
		return common.Hash{}, fmt.Errorf("onchain: pack approve: %w", err)
	}
	return s.submit(ctx, "approve", s.contracts.Token, nil, data)
}

func (s *Sender) Burn(ctx context.Context, amount *big.Int, inviter common.Address) (common.Hash, error) {
	data, err := registryABI.Pack("burn", amount, inviter)
	if err != nil {
		return common.Hash{}, fmt.Errorf("onchain: pack burn: %w", err)
	}
	return s.submit(ctx, "burn", s.contracts.Registry, nil, data)
}

func (s *Sender) ClaimBurnBNB(ctx context.Context) (common.Hash, error) {
	return s.claim(ctx, "claimBNB", burnDividendABI, s.contracts.BurnDividend, "claimBNB")
}

func (s *Sender) ClaimBurnToken(ctx context.Context) (common.Hash, error) {
	return s.claim(ctx, "claimToken", burnDividendABI, s.contracts.BurnDividend, "claimToken")
}

func (s *Sender) ClaimLoss(ctx context.Context) (common.Hash, error) {
	return s.claim(ctx, "claim-loss", lossDividendABI, s.contracts.LossDividend, "claim")
}

func (s *Sender) ClaimNFTDividend(ctx context.Context) (common.Hash, error) {
	return s.claim(ctx, "claim-nft-dividend", nftDividendABI, s.contracts.NFTDividend, "claim")
}

func (s *Sender) ClaimNFT(ctx context.Context) (common.Hash, error) {
	return s.claim(ctx, "claim-nft", nftDividendABI, s.contracts.NFTDividend, "claimNFT")
}

func (s *Sender) Subscribe(ctx context.Context, shares, value *big.Int, inviter common.Address) (common.Hash, error) {
	data, err := nftSubABI.Pack("subscribe", shares, inviter)
	if err != nil {
		return common.Hash{}, fmt.Errorf("onchain: pack subscribe: %w", err)
	}
	return s.submit(ctx, "subscribe", s.contracts.NFTSubscription, value, data)
}

func (s *Sender) claim(ctx context.Context, op string, a abi.ABI, addr common.Address, method string) (common.Hash, error) {
	data, err := a.Pack(method)
	if err != nil {
		return common.Hash{}, fmt.Errorf("onchain: pack %s: %w", op, err)
	}
	return s.submit(ctx, op, addr, nil, data)
}

// submit estimates, signs, sends, and waits for finality.
func (s *Sender) submit(ctx context.Context, op string, to common.Address, value *big.Int, data []byte) (common.Hash, error) {
	if !s.Connected() {
		return common.Hash{}, fmt.Errorf("onchain: %s: no signing key loaded", op)
	}
	if value == nil {
		value = new(big.Int)
	}

	privKey, err := crypto.ToECDSA(s.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("onchain: %s: private key: %w", op, err)
	}

	nonce, err := s.client.PendingNonceAt(ctx, s.address)
	if err != nil {
		return common.Hash{}, fmt.Errorf("onchain: %s: nonce: %w", op, err)
	}

	gasPrice := s.gasPrice(ctx)

	gasLimit, err := s.client.EstimateGas(ctx, ethereum.CallMsg{
		From:     s.address,
		To:       &to,
		Value:    value,
		GasPrice: gasPrice,
		Data:     data,
	})
	if err != nil {
		// Estimation runs the call; this error carries the revert reason.
		return common.Hash{}, fmt.Errorf("onchain: %s: estimate gas: %w", op, err)
	}
	gasLimit = gasLimit * 12 / 10

	if s.dryRun {
		slog.Info("dry-run: transaction not sent",
			"op", op, "to", to, "value", value, "gas", gasLimit)
		return common.Hash{}, nil
	}

	tx := types.NewTransaction(nonce, to, value, gasLimit, gasPrice, data)
	signed, err := types.SignTx(tx, types.NewEIP155Signer(s.chainID), privKey)
	if err != nil {
		return common.Hash{}, fmt.Errorf("onchain: %s: sign tx: %w", op, err)
	}

	if err := s.client.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("onchain: %s: send tx: %w", op, err)
	}

	txHash := signed.Hash()
	slog.Info("transaction sent", "op", op, "tx", txHash.Hex())

	receipt, err := s.waitForReceipt(ctx, txHash)
	if err != nil {
		return txHash, fmt.Errorf("onchain: %s: wait receipt: %w", op, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return txHash, fmt.Errorf("onchain: %s: transaction reverted: %s", op, txHash.Hex())
	}

	slog.Info("transaction confirmed", "op", op, "tx", txHash.Hex(), "gas_used", receipt.GasUsed)
	return txHash, nil
}

// gasPrice returns a 10%-buffered suggested price, cached for a few
// minutes. Falls back to the BSC floor when the node won't answer.
func (s *Sender) gasPrice(ctx context.Context) *big.Int {
	s.mu.Lock()
	cached, updatedAt := s.cachedGasWei, s.gasUpdatedAt
	s.mu.Unlock()

	if cached != nil && time.Since(updatedAt) < gasPriceTTL {
		return cached
	}

	price, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		slog.Warn("gas price query failed, using fallback", "err", err)
		if cached != nil {
			return cached
		}
		return big.NewInt(fallbackGasWei)
	}

	buffered := new(big.Int).Mul(price, big.NewInt(11))
	buffered.Div(buffered, big.NewInt(10))

	s.mu.Lock()
	s.cachedGasWei = buffered
	s.gasUpdatedAt = time.Now()
	s.mu.Unlock()

	return buffered
}

// waitForReceipt polls until the transaction is mined or the context
// ends. Finality is the only terminal signal; there is no extra timeout.
func (s *Sender) waitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(receiptPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			receipt, err := s.client.TransactionReceipt(ctx, txHash)
			if err != nil {
				continue // not yet mined
			}
			return receipt, nil
		}
	}
}
