package orchestrator

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberfi/burndeck/internal/domain"
)

var (
	testOwner   = common.HexToAddress("0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B")
	testHash    = common.HexToHash("0xdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef")
	boundInvite = common.HexToAddress("0x1111111111111111111111111111111111111111")
	rootInvite  = common.HexToAddress("0x4444444444444444444444444444444444444444")
	chainBSC    = big.NewInt(56)
)

func bnb(f float64) *big.Int {
	v, _ := new(big.Float).Mul(big.NewFloat(f), big.NewFloat(1e18)).Int(nil)
	return v
}

type fakeWallet struct {
	connected bool
	chainID   *big.Int
}

func (w fakeWallet) Connected() bool         { return w.connected }
func (w fakeWallet) Address() common.Address { return testOwner }
func (w fakeWallet) ChainID() *big.Int       { return w.chainID }

type fakeReader struct {
	allowance    *big.Int
	balance      *big.Int
	minBurn      *big.Int
	reserves     domain.ReservePair
	lossUnpaid   *big.Int
	burnUnpaid   *big.Int
	nftPending   *big.Int
	nftClaimable uint64
	price        *big.Int
}

func (r *fakeReader) ReadToken(context.Context, common.Address) (domain.TokenView, error) {
	return domain.TokenView{Balance: new(big.Int), Allowance: new(big.Int)}, nil
}

func (r *fakeReader) ReadBurn(context.Context, common.Address) (domain.BurnView, error) {
	return domain.BurnView{
		BurnedValue:  new(big.Int),
		TotalBurned:  new(big.Int),
		MinBurnValue: r.minBurn,
		RootInviter:  rootInvite,
	}, nil
}

func (r *fakeReader) ReadBurnDividend(context.Context, common.Address) (domain.BurnDividendView, error) {
	return domain.BurnDividendView{UnpaidBNB: r.burnUnpaid, UnpaidToken: r.burnUnpaid}, nil
}

func (r *fakeReader) ReadLossDividend(context.Context, common.Address) (domain.LossDividendView, error) {
	return domain.LossDividendView{
		Snapshot: domain.PositionSnapshot{CostBasis: new(big.Int), SoldValue: new(big.Int), DividendReceived: new(big.Int)},
		Loss:     domain.CachedLoss{Loss: new(big.Int)},
		Unpaid:   r.lossUnpaid,
	}, nil
}

func (r *fakeReader) ReadNFT(context.Context, common.Address) (domain.NFTView, error) {
	return domain.NFTView{
		Performance:      new(big.Int),
		NFTCount:         new(big.Int),
		TotalDividends:   new(big.Int),
		PendingDividends: r.nftPending,
		ClaimableNFTs:    r.nftClaimable,
	}, nil
}

func (r *fakeReader) ReadSubscription(context.Context, common.Address) (domain.SubscriptionView, error) {
	return domain.SubscriptionView{PricePerShare: r.price, RootInviter: rootInvite}, nil
}

func (r *fakeReader) ReadReserves(context.Context) (domain.ReservePair, error) {
	return r.reserves, nil
}

func (r *fakeReader) Allowance(context.Context, common.Address) (*big.Int, error) {
	return r.allowance, nil
}

func (r *fakeReader) NativeBalance(context.Context, common.Address) (*big.Int, error) {
	return r.balance, nil
}

type fakeSender struct {
	calls   []string
	burnInv common.Address
	subInv  common.Address
	failOn  string
	failErr error
}

func (s *fakeSender) do(op string) (common.Hash, error) {
	s.calls = append(s.calls, op)
	if s.failOn == op {
		return common.Hash{}, s.failErr
	}
	return testHash, nil
}

func (s *fakeSender) Approve(context.Context) (common.Hash, error) { return s.do("approve") }

func (s *fakeSender) Burn(_ context.Context, _ *big.Int, inviter common.Address) (common.Hash, error) {
	s.burnInv = inviter
	return s.do("burn")
}

func (s *fakeSender) ClaimBurnBNB(context.Context) (common.Hash, error)   { return s.do("claimBNB") }
func (s *fakeSender) ClaimBurnToken(context.Context) (common.Hash, error) { return s.do("claimToken") }
func (s *fakeSender) ClaimLoss(context.Context) (common.Hash, error)      { return s.do("claimLoss") }
func (s *fakeSender) ClaimNFTDividend(context.Context) (common.Hash, error) {
	return s.do("claimNFTDiv")
}
func (s *fakeSender) ClaimNFT(context.Context) (common.Hash, error) { return s.do("claimNFT") }

func (s *fakeSender) Subscribe(_ context.Context, _, _ *big.Int, inviter common.Address) (common.Hash, error) {
	s.subInv = inviter
	return s.do("subscribe")
}

func healthyReader() *fakeReader {
	return &fakeReader{
		allowance:    bnb(1_000_000),
		balance:      bnb(10),
		minBurn:      bnb(0.05),
		reserves:     domain.ReservePair{TokenReserve: bnb(1_000_000), BNBReserve: bnb(10)},
		lossUnpaid:   bnb(0.01),
		burnUnpaid:   bnb(0.5),
		nftPending:   bnb(0.2),
		nftClaimable: 2,
		price:        bnb(0.1),
	}
}

func newTestOrchestrator(reader *fakeReader, sender *fakeSender) (*Orchestrator, *int) {
	refreshes := 0
	refresh := func(context.Context) (domain.AccountState, error) {
		refreshes++
		return domain.AccountState{}, nil
	}
	o := New(reader, sender, fakeWallet{connected: true, chainID: chainBSC}, nil, refresh, chainBSC)
	return o, &refreshes
}

// --- gating ---

func TestBusyMachineRejectsEveryOperation(t *testing.T) {
	o, _ := newTestOrchestrator(healthyReader(), &fakeSender{})
	require.NoError(t, o.begin(PhaseBurning, 0))

	assert.ErrorIs(t, o.Burn(context.Background(), bnb(1000), "", ""), ErrBusy)
	assert.ErrorIs(t, o.Subscribe(context.Background(), 1, ""), ErrBusy)
	for _, kind := range []ClaimKind{ClaimBurnBNB, ClaimBurnToken, ClaimLoss, ClaimNFTDividend, ClaimNFT} {
		assert.ErrorIs(t, o.Claim(context.Background(), kind), ErrBusy, kind.String())
	}
}

func TestEveryOperationReturnsToIdle(t *testing.T) {
	ops := []func(o *Orchestrator) error{
		func(o *Orchestrator) error { return o.Burn(context.Background(), bnb(100_000), "", "") },
		func(o *Orchestrator) error { return o.Subscribe(context.Background(), 1, "") },
		func(o *Orchestrator) error { return o.Claim(context.Background(), ClaimBurnBNB) },
		func(o *Orchestrator) error { return o.Claim(context.Background(), ClaimBurnToken) },
		func(o *Orchestrator) error { return o.Claim(context.Background(), ClaimLoss) },
		func(o *Orchestrator) error { return o.Claim(context.Background(), ClaimNFTDividend) },
		func(o *Orchestrator) error { return o.Claim(context.Background(), ClaimNFT) },
	}

	for i, op := range ops {
		// success path
		o, _ := newTestOrchestrator(healthyReader(), &fakeSender{})
		require.NoError(t, op(o), "op %d", i)
		assert.Equal(t, PhaseIdle, o.State().Phase, "op %d success", i)

		// failure path: the sender errors, the machine still settles
		o, _ = newTestOrchestrator(healthyReader(), failingSenderForOp(i))
		_ = op(o)
		assert.Equal(t, PhaseIdle, o.State().Phase, "op %d failure", i)
	}
}

func failingSenderForOp(i int) *fakeSender {
	ops := []string{"burn", "subscribe", "claimBNB", "claimToken", "claimLoss", "claimNFTDiv", "claimNFT"}
	return &fakeSender{failOn: ops[i], failErr: errors.New("execution reverted")}
}

func TestOperationsTriggerRefresh(t *testing.T) {
	o, refreshes := newTestOrchestrator(healthyReader(), &fakeSender{})
	require.NoError(t, o.Claim(context.Background(), ClaimBurnBNB))
	assert.Equal(t, 1, *refreshes)
}

// --- burn ---

func TestBurn_BelowMinimumRejectedClientSide(t *testing.T) {
	// 100 tokens into a 1M/10 pool quotes ≈0.000996 BNB, under the 0.05
	// minimum: rejected before submission, with the required input figure.
	sender := &fakeSender{}
	o, _ := newTestOrchestrator(healthyReader(), sender)

	err := o.Burn(context.Background(), bnb(100), "", "")

	var below *ErrBelowMinBurn
	require.ErrorAs(t, err, &below)
	assert.Equal(t, 1, below.NeedAmount.Sign())
	assert.Equal(t, 1, below.NeedAmount.Cmp(bnb(100)))
	assert.Contains(t, err.Error(), below.NeedAmount.String())
	assert.Empty(t, sender.calls, "nothing may reach the chain")
	assert.Equal(t, PhaseIdle, o.State().Phase)
}

func TestBurn_FreshAllowanceSkipsApproval(t *testing.T) {
	// Stale-allowance race: the poll saw 1 token, but the live read shows
	// 5 — the machine goes straight to the burn.
	reader := healthyReader()
	reader.allowance = bnb(5)
	reader.minBurn = big.NewInt(1) // keep the economics gate out of the way
	sender := &fakeSender{}
	o, _ := newTestOrchestrator(reader, sender)

	require.NoError(t, o.Burn(context.Background(), bnb(2), "", ""))
	assert.Equal(t, []string{"burn"}, sender.calls)
}

func TestBurn_ShortAllowanceDetoursThroughApproval(t *testing.T) {
	reader := healthyReader()
	reader.allowance = bnb(1)
	reader.minBurn = big.NewInt(1)
	sender := &fakeSender{}
	o, _ := newTestOrchestrator(reader, sender)

	require.NoError(t, o.Burn(context.Background(), bnb(2), "", ""))
	assert.Equal(t, []string{"approve", "burn"}, sender.calls)
}

func TestBurn_ApprovalFailureAbortsBurn(t *testing.T) {
	reader := healthyReader()
	reader.allowance = bnb(1)
	reader.minBurn = big.NewInt(1)
	sender := &fakeSender{failOn: "approve", failErr: errors.New("execution reverted")}
	o, _ := newTestOrchestrator(reader, sender)

	err := o.Burn(context.Background(), bnb(2), "", "")
	require.Error(t, err)
	assert.Equal(t, []string{"approve"}, sender.calls)
	assert.Equal(t, PhaseIdle, o.State().Phase)
}

func TestBurn_ResolvesInviterThroughPriorityChain(t *testing.T) {
	sender := &fakeSender{}
	o, _ := newTestOrchestrator(healthyReader(), sender)

	// no binding, no manual entry: the referral wins over the root
	ref := "0x3333333333333333333333333333333333333333"
	require.NoError(t, o.Burn(context.Background(), bnb(100_000), "", ref))
	assert.Equal(t, common.HexToAddress(ref), sender.burnInv)
}

func TestBurn_BoundInviterAlwaysWins(t *testing.T) {
	reader := healthyReader()
	sender := &fakeSender{}
	refreshes := 0
	o := New(boundReader{reader}, sender, fakeWallet{connected: true, chainID: chainBSC}, nil,
		func(context.Context) (domain.AccountState, error) { refreshes++; return domain.AccountState{}, nil }, chainBSC)

	require.NoError(t, o.Burn(context.Background(), bnb(100_000), "0x2222222222222222222222222222222222222222", ""))
	assert.Equal(t, boundInvite, sender.burnInv)
}

type boundReader struct{ *fakeReader }

func (r boundReader) ReadBurn(ctx context.Context, owner common.Address) (domain.BurnView, error) {
	view, err := r.fakeReader.ReadBurn(ctx, owner)
	view.Inviter = boundInvite
	return view, err
}

func TestBurn_RequiresConnection(t *testing.T) {
	o := New(healthyReader(), &fakeSender{}, fakeWallet{connected: false}, nil,
		func(context.Context) (domain.AccountState, error) { return domain.AccountState{}, nil }, chainBSC)
	assert.ErrorIs(t, o.Burn(context.Background(), bnb(1), "", ""), ErrNotConnected)
}

// --- claims ---

func TestClaimLoss_BelowThresholdBlocked(t *testing.T) {
	reader := healthyReader()
	reader.lossUnpaid = bnb(0.0005) // under the 0.001 BNB floor
	sender := &fakeSender{}
	o, _ := newTestOrchestrator(reader, sender)

	err := o.Claim(context.Background(), ClaimLoss)
	require.Error(t, err)
	assert.Empty(t, sender.calls)
	assert.Equal(t, PhaseIdle, o.State().Phase)
}

func TestClaimNFT_RequiresClaimableCount(t *testing.T) {
	reader := healthyReader()
	reader.nftClaimable = 0
	sender := &fakeSender{}
	o, _ := newTestOrchestrator(reader, sender)

	require.Error(t, o.Claim(context.Background(), ClaimNFT))
	assert.Empty(t, sender.calls)
}

// --- subscribe ---

func TestSubscribe_WrongNetworkAborts(t *testing.T) {
	sender := &fakeSender{}
	o := New(healthyReader(), sender, fakeWallet{connected: true, chainID: big.NewInt(1)}, nil,
		func(context.Context) (domain.AccountState, error) { return domain.AccountState{}, nil }, chainBSC)

	err := o.Subscribe(context.Background(), 1, "")
	var wrong *ErrWrongNetwork
	require.ErrorAs(t, err, &wrong)
	assert.Empty(t, sender.calls)
	// no auto-continue: the machine is idle, the user must re-trigger
	assert.Equal(t, PhaseIdle, o.State().Phase)
}

func TestSubscribe_InsufficientBalanceBlocked(t *testing.T) {
	reader := healthyReader()
	reader.balance = bnb(0.05) // one share costs 0.1
	sender := &fakeSender{}
	o, _ := newTestOrchestrator(reader, sender)

	err := o.Subscribe(context.Background(), 1, "")
	var short *ErrInsufficientBalance
	require.ErrorAs(t, err, &short)
	assert.Equal(t, bnb(0.1), short.Need)
	assert.Empty(t, sender.calls)
}

func TestSubscribe_CostIsPriceTimesShares(t *testing.T) {
	reader := healthyReader()
	sender := &fakeSender{}
	o, _ := newTestOrchestrator(reader, sender)

	require.NoError(t, o.Subscribe(context.Background(), 3, ""))
	assert.Equal(t, []string{"subscribe"}, sender.calls)
	assert.Equal(t, rootInvite, sender.subInv) // no referral, root wins
}

// --- classification ---

func TestClassify_KnownMarkers(t *testing.T) {
	cases := []struct {
		raw    string
		reason Reason
	}{
		{"execution reverted: BELOW_MIN_BURN_VALUE", ReasonBelowMinBurn},
		{"execution reverted: Pancake: INSUFFICIENT_LIQUIDITY", ReasonShallowLiquidity},
		{"ERC20: transfer amount exceeds allowance", ReasonStaleAllowance},
	}
	for _, tc := range cases {
		classified := Classify(errors.New(tc.raw))
		assert.Equal(t, tc.reason, classified.Reason, tc.raw)
		assert.NotContains(t, classified.Msg, tc.raw)
	}
}

func TestClassify_UnknownTruncated(t *testing.T) {
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	classified := Classify(errors.New(string(long)))
	assert.Equal(t, ReasonUnknown, classified.Reason)
	assert.Less(t, len(classified.Msg), 250)
	assert.Contains(t, classified.Msg, "history log")
}
