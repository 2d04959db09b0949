package refresher

// refresher.go — the multi-source read pipeline.
//
// One refresh fans out over the seven contract groups plus the optional
// off-chain snapshot, joins, reconciles, and publishes. A failing group
// resets its own slice of the state to defaults and the refresh carries
// on; only a refresh where every chain group failed is discarded, so the
// previous position never flickers to zeroes because the RPC blinked.

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/emberfi/burndeck/internal/domain"
	"github.com/emberfi/burndeck/internal/ports"
)

const (
	// DefaultInterval between polls; a refresh is also forced after every
	// transaction.
	DefaultInterval = 15 * time.Second

	// connectPromptDelay before nudging a user who started without a
	// signing key. Fires at most once per run.
	connectPromptDelay = 800 * time.Millisecond
)

var errAllGroupsFailed = errors.New("refresher: all contract groups failed, keeping previous state")

// Config controls the polling loop.
type Config struct {
	Interval time.Duration
}

// Refresher owns the read pipeline and the store it publishes into.
type Refresher struct {
	cfg      Config
	reader   ports.ChainReader
	status   ports.StatusProvider
	wallet   ports.Wallet
	notifier ports.Notifier
	storage  ports.Storage // optional
	store    *Store

	promptOnce sync.Once
}

// New wires a refresher. notifier and storage may be nil.
func New(cfg Config, reader ports.ChainReader, status ports.StatusProvider, wallet ports.Wallet, notifier ports.Notifier, storage ports.Storage, store *Store) *Refresher {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Refresher{
		cfg:      cfg,
		reader:   reader,
		status:   status,
		wallet:   wallet,
		notifier: notifier,
		storage:  storage,
		store:    store,
	}
}

// Store returns the store this refresher publishes into.
func (r *Refresher) Store() *Store { return r.store }

// Run polls until the context is cancelled. The ticker and the connect
// prompt are torn down with the context — no orphaned timers survive
// this function.
func (r *Refresher) Run(ctx context.Context) error {
	slog.Info("refresher starting", "interval", r.cfg.Interval, "account", r.wallet.Address())

	connectPrompt := time.AfterFunc(connectPromptDelay, func() {
		r.promptOnce.Do(func() {
			if !r.wallet.Connected() {
				slog.Warn("no signing key loaded — running read-only; set BURNDECK_PRIVATE_KEY to enable transactions")
			}
		})
	})
	defer connectPrompt.Stop()

	if _, err := r.RefreshOnce(ctx); err != nil {
		slog.Error("refresh failed", "err", err)
	}

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("refresher stopped")
			return nil
		case <-ticker.C:
			if _, err := r.RefreshOnce(ctx); err != nil {
				slog.Error("refresh failed", "err", err)
			}
		}
	}
}

// RefreshOnce performs one read-reconcile-publish cycle and returns the
// state it produced. On total read failure nothing is published — the
// store keeps the previous position.
func (r *Refresher) RefreshOnce(ctx context.Context) (domain.AccountState, error) {
	owner := r.wallet.Address()
	started := time.Now()

	state := domain.AccountState{Address: owner}
	var (
		groupErr [7]error
		offErr   error
		wg       sync.WaitGroup
	)
	run := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	run(func() { state.Token, groupErr[0] = r.reader.ReadToken(ctx, owner) })
	run(func() { state.Burn, groupErr[1] = r.reader.ReadBurn(ctx, owner) })
	run(func() { state.BurnDividend, groupErr[2] = r.reader.ReadBurnDividend(ctx, owner) })
	run(func() { state.LossDividend, groupErr[3] = r.reader.ReadLossDividend(ctx, owner) })
	run(func() { state.NFT, groupErr[4] = r.reader.ReadNFT(ctx, owner) })
	run(func() { state.Subscription, groupErr[5] = r.reader.ReadSubscription(ctx, owner) })
	run(func() { state.Reserves, groupErr[6] = r.reader.ReadReserves(ctx) })
	run(func() { state.Offchain, offErr = r.status.UserStatus(ctx, owner) })
	wg.Wait()

	if offErr != nil {
		// the status provider only errors on context cancellation
		return domain.AccountState{}, offErr
	}

	groupNames := [...]string{"token", "registry", "burn-dividend", "loss-dividend", "nft-dividend", "nft-subscription", "pool"}
	failed := 0
	for i, err := range groupErr {
		if err != nil {
			failed++
			slog.Warn("contract group unavailable, reset to defaults", "group", groupNames[i], "err", err)
		}
	}
	if failed == len(groupErr) {
		return domain.AccountState{}, errAllGroupsFailed
	}

	// Holding value is the forward quote of the balance; AmountOut is
	// total, so an unreadable pool simply values the holding at zero.
	state.HoldingValue = domain.AmountOut(state.Token.Balance, state.Reserves.TokenReserve, state.Reserves.BNBReserve)
	state.Position = domain.Reconcile(state.LossDividend.Snapshot, state.LossDividend.Loss, state.HoldingValue, state.Offchain)
	state.RefreshedAt = time.Now().UTC()

	r.store.publish(state)

	if r.storage != nil {
		if err := r.storage.SaveRefresh(ctx, state); err != nil {
			slog.Warn("refresh history write failed", "err", err)
		}
	}
	if r.notifier != nil {
		if err := r.notifier.Notify(ctx, state); err != nil {
			slog.Warn("notifier error", "err", err)
		}
	}

	slog.Debug("refresh complete",
		"took", time.Since(started),
		"source", state.Position.Source,
		"groups_failed", failed,
	)
	return state, nil
}
