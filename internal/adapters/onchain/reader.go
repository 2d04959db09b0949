package onchain

// reader.go — read-only RPC access to the protocol contracts.
//
// Failure policy follows the three tiers the rest of the system expects:
//   - field level: a failing eth_call resolves to the field's typed
//     default (zero, zero address, empty string) and is logged at debug;
//     sibling calls in the same group are unaffected.
//   - group level: a contract with no bytecode at its configured address,
//     or an unreachable endpoint, fails the whole group with an error so
//     the caller can reset that group's state instead of keeping stale
//     values from a previous address.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/emberfi/burndeck/internal/domain"
)

// ErrNotDeployed marks a group-level failure: the configured address has
// no contract bytecode on the active network.
var ErrNotDeployed = errors.New("no contract code at address")

// errInvalidPool marks a pool whose token0 is zero or matches neither
// side we know about; reserves from such a pool must not be used.
var errInvalidPool = errors.New("pool token0 unrecognized")

// Contracts holds the per-network protocol addresses.
type Contracts struct {
	Registry        common.Address
	Token           common.Address
	BurnDividend    common.Address
	LossDividend    common.Address
	NFTDividend     common.Address
	NFTSubscription common.Address
	Pool            common.Address // optional; discovered via lossDividend.pool() when zero
}

// Reader implements ports.ChainReader over a single ethclient.
type Reader struct {
	client    *ethclient.Client
	contracts Contracts

	mu   sync.Mutex
	pool common.Address // resolved pair address, cached after discovery
}

// NewReader wraps an already-dialed client.
func NewReader(client *ethclient.Client, contracts Contracts) *Reader {
	return &Reader{client: client, contracts: contracts, pool: contracts.Pool}
}

// Dial connects to the RPC endpoint and returns a reader over it.
func Dial(rpcURL string, contracts Contracts) (*Reader, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("onchain: dial rpc %s: %w", rpcURL, err)
	}
	return NewReader(client, contracts), nil
}

// Client exposes the underlying connection for the tx sender.
func (r *Reader) Client() *ethclient.Client { return r.client }

func (r *Reader) ReadToken(ctx context.Context, owner common.Address) (domain.TokenView, error) {
	view := domain.TokenView{Balance: new(big.Int), Allowance: new(big.Int)}
	if err := r.requireCode(ctx, "token", r.contracts.Token); err != nil {
		return view, err
	}

	batch(
		func() { view.Symbol = r.callString(ctx, erc20ABI, r.contracts.Token, "symbol") },
		func() { view.Balance = r.callUint(ctx, erc20ABI, r.contracts.Token, "balanceOf", owner) },
		func() {
			view.Allowance = r.callUint(ctx, erc20ABI, r.contracts.Token, "allowance", owner, r.contracts.Registry)
		},
	)
	return view, nil
}

func (r *Reader) ReadBurn(ctx context.Context, owner common.Address) (domain.BurnView, error) {
	view := domain.BurnView{
		BurnedValue:  new(big.Int),
		TotalBurned:  new(big.Int),
		MinBurnValue: new(big.Int),
	}
	if err := r.requireCode(ctx, "registry", r.contracts.Registry); err != nil {
		return view, err
	}

	reg := r.contracts.Registry
	batch(
		func() { view.BurnedValue = r.callUint(ctx, registryABI, reg, "burnedValueOf", owner) },
		func() { view.TotalBurned = r.callUint(ctx, registryABI, reg, "totalBurnedValue") },
		func() { view.MinBurnValue = r.callUint(ctx, registryABI, reg, "minBurnValue") },
		func() { view.InviteeCount = toCount(r.callUint(ctx, registryABI, reg, "inviteeCount", owner)) },
		func() { view.Inviter = r.callAddress(ctx, registryABI, reg, "inviterOf", owner) },
		func() { view.RootInviter = r.callAddress(ctx, registryABI, reg, "rootInviter") },
	)
	return view, nil
}

func (r *Reader) ReadBurnDividend(ctx context.Context, owner common.Address) (domain.BurnDividendView, error) {
	view := domain.BurnDividendView{UnpaidBNB: new(big.Int), UnpaidToken: new(big.Int)}
	if err := r.requireCode(ctx, "burn-dividend", r.contracts.BurnDividend); err != nil {
		return view, err
	}

	div := r.contracts.BurnDividend
	batch(
		func() { view.UnpaidBNB = r.callUint(ctx, burnDividendABI, div, "getUnpaidDividendBNB", owner) },
		func() { view.UnpaidToken = r.callUint(ctx, burnDividendABI, div, "getUnpaidDividendToken", owner) },
	)
	return view, nil
}

func (r *Reader) ReadLossDividend(ctx context.Context, owner common.Address) (domain.LossDividendView, error) {
	view := domain.LossDividendView{
		Snapshot: domain.PositionSnapshot{
			CostBasis:        new(big.Int),
			SoldValue:        new(big.Int),
			DividendReceived: new(big.Int),
		},
		Loss:           domain.CachedLoss{Loss: new(big.Int)},
		Unpaid:         new(big.Int),
		TotalAllocated: new(big.Int),
		TotalClaimed:   new(big.Int),
	}
	if err := r.requireCode(ctx, "loss-dividend", r.contracts.LossDividend); err != nil {
		return view, err
	}

	div := r.contracts.LossDividend
	batch(
		func() { view.Snapshot = r.readUserSnapshot(ctx, owner) },
		func() { view.Loss = r.readCachedLoss(ctx, owner) },
		func() { view.TotalAllocated = r.callUint(ctx, lossDividendABI, div, "totalDividendsAllocated") },
		func() { view.TotalClaimed = r.callUint(ctx, lossDividendABI, div, "totalDividendsClaimed") },
		func() { view.Pool = r.callAddress(ctx, lossDividendABI, div, "pool") },
	)

	// getUnpaidDividend takes the cached loss as an argument, so it has to
	// wait for the first batch.
	view.Unpaid = r.callUint(ctx, lossDividendABI, div, "getUnpaidDividend", owner, view.Loss.Loss)
	return view, nil
}

func (r *Reader) ReadNFT(ctx context.Context, owner common.Address) (domain.NFTView, error) {
	view := domain.NFTView{
		Performance:      new(big.Int),
		NFTCount:         new(big.Int),
		TotalDividends:   new(big.Int),
		PendingDividends: new(big.Int),
	}
	if err := r.requireCode(ctx, "nft-dividend", r.contracts.NFTDividend); err != nil {
		return view, err
	}

	div := r.contracts.NFTDividend
	batch(
		func() {
			out, err := r.call(ctx, nftDividendABI, div, "getUserInfo", owner)
			if err != nil || len(out) < 4 {
				logCallErr("getUserInfo", err)
				return
			}
			view.Performance = asUint(out[0])
			view.NFTCount = asUint(out[1])
			view.TotalDividends = asUint(out[2])
			view.PendingDividends = asUint(out[3])
		},
		func() { view.ClaimableNFTs = toCount(r.callUint(ctx, nftDividendABI, div, "getClaimableNFTCount", owner)) },
	)
	return view, nil
}

func (r *Reader) ReadSubscription(ctx context.Context, owner common.Address) (domain.SubscriptionView, error) {
	view := domain.SubscriptionView{PricePerShare: new(big.Int)}
	if err := r.requireCode(ctx, "nft-subscription", r.contracts.NFTSubscription); err != nil {
		return view, err
	}

	sub := r.contracts.NFTSubscription
	batch(
		func() { view.PricePerShare = r.callUint(ctx, nftSubABI, sub, "pricePerShare") },
		func() { view.TwoLevel = toCount(r.callUint(ctx, nftSubABI, sub, "getTwoLevelSubscribed", owner)) },
		func() { view.Team = toCount(r.callUint(ctx, nftSubABI, sub, "teamSubscribed", owner)) },
		func() { view.Inviter = r.callAddress(ctx, nftSubABI, sub, "inviterOf", owner) },
		func() { view.RootInviter = r.callAddress(ctx, nftSubABI, sub, "rootInviter") },
	)
	return view, nil
}

// ReadReserves reads the pair and orients reserves as (token, BNB) by
// comparing token0 against the protocol token. Zero or unrecognized
// token0 fails the group — never guess an orientation and divide by it.
func (r *Reader) ReadReserves(ctx context.Context) (domain.ReservePair, error) {
	pair := domain.ReservePair{TokenReserve: new(big.Int), BNBReserve: new(big.Int)}

	pool, err := r.poolAddress(ctx)
	if err != nil {
		return pair, err
	}
	if err := r.requireCode(ctx, "pool", pool); err != nil {
		return pair, err
	}

	var (
		token0             common.Address
		reserve0, reserve1 *big.Int
		reservesErr        error
	)
	batch(
		func() { token0 = r.callAddress(ctx, pairABI, pool, "token0") },
		func() {
			out, err := r.call(ctx, pairABI, pool, "getReserves")
			if err != nil {
				reservesErr = fmt.Errorf("onchain: getReserves: %w", err)
				return
			}
			if len(out) < 2 {
				reservesErr = errors.New("onchain: getReserves: short output")
				return
			}
			reserve0, reserve1 = asUint(out[0]), asUint(out[1])
		},
	)
	if reservesErr != nil {
		return pair, reservesErr
	}

	switch token0 {
	case r.contracts.Token:
		pair.TokenReserve, pair.BNBReserve = reserve0, reserve1
	case (common.Address{}):
		return pair, errInvalidPool
	default:
		pair.TokenReserve, pair.BNBReserve = reserve1, reserve0
	}
	return pair, nil
}

// Allowance re-reads the registry allowance with no fallback; submit-time
// decisions need the real value or a real error.
func (r *Reader) Allowance(ctx context.Context, owner common.Address) (*big.Int, error) {
	out, err := r.call(ctx, erc20ABI, r.contracts.Token, "allowance", owner, r.contracts.Registry)
	if err != nil {
		return nil, fmt.Errorf("onchain: allowance: %w", err)
	}
	if len(out) == 0 {
		return nil, errors.New("onchain: allowance: empty result")
	}
	return asUint(out[0]), nil
}

func (r *Reader) NativeBalance(ctx context.Context, owner common.Address) (*big.Int, error) {
	bal, err := r.client.BalanceAt(ctx, owner, nil)
	if err != nil {
		return nil, fmt.Errorf("onchain: balance at %s: %w", owner, err)
	}
	return bal, nil
}

// poolAddress returns the pair address, discovering it through
// lossDividend.pool() on first use when not configured.
func (r *Reader) poolAddress(ctx context.Context) (common.Address, error) {
	r.mu.Lock()
	cached := r.pool
	r.mu.Unlock()
	if cached != (common.Address{}) {
		return cached, nil
	}

	out, err := r.call(ctx, lossDividendABI, r.contracts.LossDividend, "pool")
	if err != nil {
		return common.Address{}, fmt.Errorf("onchain: discover pool: %w", err)
	}
	if len(out) == 0 {
		return common.Address{}, errors.New("onchain: discover pool: empty result")
	}
	addr, ok := out[0].(common.Address)
	if !ok || addr == (common.Address{}) {
		return common.Address{}, errInvalidPool
	}

	r.mu.Lock()
	r.pool = addr
	r.mu.Unlock()
	return addr, nil
}

// requireCode probes for deployed bytecode before a group's batch runs.
func (r *Reader) requireCode(ctx context.Context, group string, addr common.Address) error {
	if addr == (common.Address{}) {
		return fmt.Errorf("onchain: %s: address not configured: %w", group, ErrNotDeployed)
	}
	code, err := r.client.CodeAt(ctx, addr, nil)
	if err != nil {
		return fmt.Errorf("onchain: %s: code probe: %w", group, err)
	}
	if len(code) == 0 {
		return fmt.Errorf("onchain: %s at %s: %w", group, addr, ErrNotDeployed)
	}
	return nil
}

func (r *Reader) readUserSnapshot(ctx context.Context, owner common.Address) domain.PositionSnapshot {
	snap := domain.PositionSnapshot{
		CostBasis:        new(big.Int),
		SoldValue:        new(big.Int),
		DividendReceived: new(big.Int),
	}
	out, err := r.call(ctx, lossDividendABI, r.contracts.LossDividend, "userSnapshots", owner)
	if err != nil || len(out) < 3 {
		logCallErr("userSnapshots", err)
		return snap
	}
	snap.CostBasis = asUint(out[0])
	snap.SoldValue = asUint(out[1])
	snap.DividendReceived = asUint(out[2])
	return snap
}

func (r *Reader) readCachedLoss(ctx context.Context, owner common.Address) domain.CachedLoss {
	loss := domain.CachedLoss{Loss: new(big.Int)}
	out, err := r.call(ctx, lossDividendABI, r.contracts.LossDividend, "getCachedLoss", owner)
	if err != nil || len(out) < 2 {
		logCallErr("getCachedLoss", err)
		return loss
	}
	loss.Loss = asUint(out[0])
	if valid, ok := out[1].(bool); ok {
		loss.Valid = valid
	}
	return loss
}

// call packs, executes, and unpacks one eth_call.
func (r *Reader) call(ctx context.Context, a abi.ABI, addr common.Address, method string, args ...any) ([]any, error) {
	data, err := a.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	raw, err := r.client.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	out, err := a.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return out, nil
}

// callUint is a field-level read: zero on any failure.
func (r *Reader) callUint(ctx context.Context, a abi.ABI, addr common.Address, method string, args ...any) *big.Int {
	out, err := r.call(ctx, a, addr, method, args...)
	if err != nil || len(out) == 0 {
		logCallErr(method, err)
		return new(big.Int)
	}
	return asUint(out[0])
}

// callString is a field-level read: empty string on any failure.
func (r *Reader) callString(ctx context.Context, a abi.ABI, addr common.Address, method string, args ...any) string {
	out, err := r.call(ctx, a, addr, method, args...)
	if err != nil || len(out) == 0 {
		logCallErr(method, err)
		return ""
	}
	s, _ := out[0].(string)
	return s
}

// callAddress is a field-level read: zero address on any failure.
func (r *Reader) callAddress(ctx context.Context, a abi.ABI, addr common.Address, method string, args ...any) common.Address {
	out, err := r.call(ctx, a, addr, method, args...)
	if err != nil || len(out) == 0 {
		logCallErr(method, err)
		return common.Address{}
	}
	a0, _ := out[0].(common.Address)
	return a0
}

// batch runs a group's independent calls concurrently and joins them.
// Each closure owns its destination fields, so no synchronization beyond
// the join is needed.
func batch(fns ...func()) {
	var wg sync.WaitGroup
	for _, fn := range fns {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}
	wg.Wait()
}

func asUint(v any) *big.Int {
	if b, ok := v.(*big.Int); ok && b != nil {
		return b
	}
	return new(big.Int)
}

// toCount narrows a uint256 counter to uint64 for display fields.
func toCount(v *big.Int) uint64 {
	if v == nil || !v.IsUint64() {
		return 0
	}
	return v.Uint64()
}

func logCallErr(method string, err error) {
	if err != nil {
		slog.Debug("onchain: read defaulted", "method", method, "err", err)
	}
}
