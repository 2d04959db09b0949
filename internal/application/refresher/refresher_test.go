package refresher

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberfi/burndeck/internal/domain"
)

var testOwner = common.HexToAddress("0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B")

type fakeWallet struct{ connected bool }

func (f fakeWallet) Connected() bool         { return f.connected }
func (f fakeWallet) Address() common.Address { return testOwner }
func (f fakeWallet) ChainID() *big.Int       { return big.NewInt(56) }

type fakeStatus struct{ snap *domain.OffchainSnapshot }

func (f fakeStatus) UserStatus(context.Context, common.Address) (*domain.OffchainSnapshot, error) {
	return f.snap, nil
}

// fakeReader serves canned views; group errors are set per group name.
type fakeReader struct {
	fail map[string]bool
}

func (f fakeReader) groupErr(name string) error {
	if f.fail[name] {
		return errors.New(name + " unavailable")
	}
	return nil
}

func (f fakeReader) ReadToken(context.Context, common.Address) (domain.TokenView, error) {
	return domain.TokenView{
		Symbol:    "EMBR",
		Balance:   big.NewInt(1_000_000),
		Allowance: big.NewInt(500),
	}, f.groupErr("token")
}

func (f fakeReader) ReadBurn(context.Context, common.Address) (domain.BurnView, error) {
	return domain.BurnView{
		BurnedValue:  big.NewInt(10),
		TotalBurned:  big.NewInt(1000),
		MinBurnValue: big.NewInt(5),
		InviteeCount: 3,
	}, f.groupErr("registry")
}

func (f fakeReader) ReadBurnDividend(context.Context, common.Address) (domain.BurnDividendView, error) {
	return domain.BurnDividendView{UnpaidBNB: big.NewInt(7), UnpaidToken: big.NewInt(8)}, f.groupErr("burndiv")
}

func (f fakeReader) ReadLossDividend(context.Context, common.Address) (domain.LossDividendView, error) {
	return domain.LossDividendView{
		Snapshot: domain.PositionSnapshot{
			CostBasis:        big.NewInt(900),
			SoldValue:        big.NewInt(300),
			DividendReceived: big.NewInt(20),
		},
		Loss:           domain.CachedLoss{Loss: big.NewInt(150), Valid: true},
		Unpaid:         big.NewInt(4),
		TotalAllocated: big.NewInt(5000),
		TotalClaimed:   big.NewInt(2500),
	}, f.groupErr("lossdiv")
}

func (f fakeReader) ReadNFT(context.Context, common.Address) (domain.NFTView, error) {
	return domain.NFTView{
		Performance:      big.NewInt(1),
		NFTCount:         big.NewInt(2),
		TotalDividends:   big.NewInt(3),
		PendingDividends: big.NewInt(4),
	}, f.groupErr("nft")
}

func (f fakeReader) ReadSubscription(context.Context, common.Address) (domain.SubscriptionView, error) {
	return domain.SubscriptionView{PricePerShare: big.NewInt(100)}, f.groupErr("sub")
}

func (f fakeReader) ReadReserves(context.Context) (domain.ReservePair, error) {
	return domain.ReservePair{
		TokenReserve: big.NewInt(10_000_000),
		BNBReserve:   big.NewInt(100_000),
	}, f.groupErr("pool")
}

func (f fakeReader) Allowance(context.Context, common.Address) (*big.Int, error) {
	return big.NewInt(500), nil
}

func (f fakeReader) NativeBalance(context.Context, common.Address) (*big.Int, error) {
	return big.NewInt(1_000_000), nil
}

func newTestRefresher(reader fakeReader, snap *domain.OffchainSnapshot) *Refresher {
	return New(Config{}, reader, fakeStatus{snap: snap}, fakeWallet{connected: true}, nil, nil, NewStore())
}

func TestRefreshOnce_ChainOnly(t *testing.T) {
	r := newTestRefresher(fakeReader{}, nil)

	state, err := r.RefreshOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, testOwner, state.Address)
	assert.Equal(t, domain.SourceChain, state.Position.Source)
	assert.Equal(t, big.NewInt(900), state.Position.CostBasis)
	assert.Equal(t, big.NewInt(150), state.Position.LossAmount)

	// holding value = forward quote of the balance against the reserves
	want := domain.AmountOut(big.NewInt(1_000_000), big.NewInt(10_000_000), big.NewInt(100_000))
	assert.Equal(t, want, state.HoldingValue)
	assert.Equal(t, 1, want.Sign())

	published, ok := r.Store().Current()
	require.True(t, ok)
	assert.Equal(t, state.Position, published.Position)
}

func TestRefreshOnce_OffchainWins(t *testing.T) {
	snap := &domain.OffchainSnapshot{
		CostBasis:           "111",
		SoldValue:           "222",
		CurrentHoldingValue: "333",
		LossAmount:          "444",
	}
	r := newTestRefresher(fakeReader{}, snap)

	state, err := r.RefreshOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.SourceOffchain, state.Position.Source)
	assert.Equal(t, big.NewInt(111), state.Position.CostBasis)
	assert.Equal(t, big.NewInt(333), state.Position.HoldingValue)
	assert.Equal(t, big.NewInt(444), state.Position.LossAmount)
}

func TestRefreshOnce_OneGroupDownDegradesGracefully(t *testing.T) {
	r := newTestRefresher(fakeReader{fail: map[string]bool{"pool": true}}, nil)

	state, err := r.RefreshOnce(context.Background())
	require.NoError(t, err)

	// pool group defaulted: holding value degrades to zero, the rest of
	// the refresh is intact
	assert.Zero(t, state.HoldingValue.Sign())
	assert.Equal(t, big.NewInt(900), state.Position.CostBasis)
	assert.Equal(t, "EMBR", state.Token.Symbol)
}

func TestRefreshOnce_TotalFailureKeepsPreviousState(t *testing.T) {
	good := newTestRefresher(fakeReader{}, nil)
	_, err := good.RefreshOnce(context.Background())
	require.NoError(t, err)
	prev, ok := good.Store().Current()
	require.True(t, ok)

	allDown := map[string]bool{
		"token": true, "registry": true, "burndiv": true, "lossdiv": true,
		"nft": true, "sub": true, "pool": true,
	}
	bad := New(Config{}, fakeReader{fail: allDown}, fakeStatus{}, fakeWallet{connected: true}, nil, nil, good.store)

	_, err = bad.RefreshOnce(context.Background())
	assert.ErrorIs(t, err, errAllGroupsFailed)

	// no flicker to zero: store still has the last good state
	cur, ok := bad.Store().Current()
	require.True(t, ok)
	assert.Equal(t, prev.Position, cur.Position)
}

func TestRefreshOnce_InvalidCachedLossShowsZero(t *testing.T) {
	reader := fakeReader{}
	r := New(Config{}, invalidLossReader{reader}, fakeStatus{}, fakeWallet{connected: true}, nil, nil, NewStore())

	state, err := r.RefreshOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, state.Position.LossAmount.Sign())
}

type invalidLossReader struct{ fakeReader }

func (r invalidLossReader) ReadLossDividend(ctx context.Context, owner common.Address) (domain.LossDividendView, error) {
	view, err := r.fakeReader.ReadLossDividend(ctx, owner)
	view.Loss = domain.CachedLoss{Loss: big.NewInt(150), Valid: false}
	return view, err
}

func TestStore_SubscribeSeesNewestState(t *testing.T) {
	store := NewStore()
	ch := store.Subscribe()

	store.publish(domain.AccountState{RefreshedAt: mustTime(t, 1)})
	store.publish(domain.AccountState{RefreshedAt: mustTime(t, 2)})

	// consumer lagged; it gets the newest update, not the first
	got := <-ch
	assert.Equal(t, mustTime(t, 2), got.RefreshedAt)
}

func mustTime(t *testing.T, sec int64) time.Time {
	t.Helper()
	return time.Unix(sec, 0).UTC()
}
