package orchestrator

// orchestrator.go — the transaction state machine.
//
// Phases: Idle → {Approving, Burning, Claiming(kind), Subscribing} → Idle.
// One non-idle phase at a time; a request against a busy machine no-ops
// with ErrBusy. The approve→burn continuation is an explicit transition:
// Burn re-reads the allowance at submit time and detours through
// Approving when it is short, then carries on into the burn — one user
// intent may traverse both phases. Every operation returns to Idle on
// every exit path and forces a refresh so the view catches up.

import (
	"context"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/emberfi/burndeck/internal/domain"
	"github.com/emberfi/burndeck/internal/ports"
)

// Phase is the machine's current activity.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseApproving
	PhaseBurning
	PhaseClaiming
	PhaseSubscribing
)

func (p Phase) String() string {
	switch p {
	case PhaseApproving:
		return "approving"
	case PhaseBurning:
		return "burning"
	case PhaseClaiming:
		return "claiming"
	case PhaseSubscribing:
		return "subscribing"
	default:
		return "idle"
	}
}

// ClaimKind selects one of the structurally identical claim operations.
type ClaimKind int

const (
	ClaimBurnBNB ClaimKind = iota
	ClaimBurnToken
	ClaimLoss
	ClaimNFTDividend
	ClaimNFT
)

func (k ClaimKind) String() string {
	switch k {
	case ClaimBurnBNB:
		return "burn-dividend-bnb"
	case ClaimBurnToken:
		return "burn-dividend-token"
	case ClaimLoss:
		return "loss-dividend"
	case ClaimNFTDividend:
		return "nft-dividend"
	case ClaimNFT:
		return "nft-mint"
	default:
		return "unknown"
	}
}

// minLossClaimWei gates the loss-dividend claim: 0.001 BNB.
var minLossClaimWei = big.NewInt(1_000_000_000_000_000)

// State is the externally visible machine state.
type State struct {
	Phase        Phase
	Claim        ClaimKind
	PendingSince time.Time
}

// RefreshFunc re-runs the read pipeline after a transaction settles.
type RefreshFunc func(context.Context) (domain.AccountState, error)

// Orchestrator drives the write surface. It owns TransactionState
// exclusively; nothing else mutates the phase.
type Orchestrator struct {
	reader  ports.ChainReader
	sender  ports.TxSender
	wallet  ports.Wallet
	storage ports.Storage // optional
	refresh RefreshFunc
	chainID *big.Int // network the protocol is deployed on

	mu    sync.Mutex
	state State
}

// New wires an orchestrator. storage may be nil; refresh must not be.
func New(reader ports.ChainReader, sender ports.TxSender, wallet ports.Wallet, storage ports.Storage, refresh RefreshFunc, chainID *big.Int) *Orchestrator {
	return &Orchestrator{
		reader:  reader,
		sender:  sender,
		wallet:  wallet,
		storage: storage,
		refresh: refresh,
		chainID: chainID,
	}
}

// State returns the current machine state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// begin claims the machine. Fails with ErrBusy unless Idle.
func (o *Orchestrator) begin(p Phase, kind ClaimKind) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state.Phase != PhaseIdle {
		return ErrBusy
	}
	o.state = State{Phase: p, Claim: kind, PendingSince: time.Now()}
	return nil
}

// transition moves an already-claimed machine between non-idle phases
// (the approve→burn edge).
func (o *Orchestrator) transition(p Phase) {
	o.mu.Lock()
	o.state.Phase = p
	o.mu.Unlock()
}

// settle returns the machine to Idle and refreshes the view. Runs on
// every exit path, success or failure.
func (o *Orchestrator) settle(ctx context.Context) {
	o.mu.Lock()
	o.state = State{}
	o.mu.Unlock()

	if _, err := o.refresh(ctx); err != nil {
		slog.Warn("post-transaction refresh failed", "err", err)
	}
}

// Burn submits a burn of amount tokens, detouring through approval when
// the live allowance is short. manualInviter and referral feed the
// resolver alongside the on-chain binding and the protocol root.
func (o *Orchestrator) Burn(ctx context.Context, amount *big.Int, manualInviter, referral string) error {
	if amount == nil || amount.Sign() <= 0 {
		return &TxError{Reason: ReasonUnknown, Msg: "burn amount must be positive"}
	}
	if !o.wallet.Connected() {
		return ErrNotConnected
	}
	if err := o.begin(PhaseBurning, 0); err != nil {
		return err
	}
	defer o.settle(ctx)

	owner := o.wallet.Address()

	// Fresh economics: quote the burn against live reserves and reject
	// below-minimum burns client-side, reporting how much would clear.
	burn, err := o.reader.ReadBurn(ctx, owner)
	if err != nil {
		return Classify(err)
	}
	reserves, err := o.reader.ReadReserves(ctx)
	if err != nil {
		return Classify(err)
	}
	quote := domain.AmountOut(amount, reserves.TokenReserve, reserves.BNBReserve)
	if quote.Cmp(burn.MinBurnValue) < 0 {
		return &ErrBelowMinBurn{
			Quote:      quote,
			MinValue:   burn.MinBurnValue,
			NeedAmount: domain.MinAmountIn(burn.MinBurnValue, reserves.TokenReserve, reserves.BNBReserve),
		}
	}

	// The polled allowance is never trusted here: re-read it at submit
	// time and only approve when the live value is short.
	allowance, err := o.reader.Allowance(ctx, owner)
	if err != nil {
		return Classify(err)
	}
	if allowance.Cmp(amount) < 0 {
		o.transition(PhaseApproving)
		slog.Info("allowance short, approving first", "have", allowance, "need", amount)

		hash, err := o.sender.Approve(ctx)
		o.record(ctx, "approve", hash, "", common.Address{}, err)
		if err != nil {
			return Classify(err)
		}
		o.transition(PhaseBurning)
	}

	inviter := domain.InviterCandidates{
		Bound:    burn.Inviter,
		Manual:   manualInviter,
		Referral: referral,
		Root:     burn.RootInviter,
	}.Resolve()

	hash, err := o.sender.Burn(ctx, amount, inviter)
	o.record(ctx, "burn", hash, amount.String(), inviter, err)
	if err != nil {
		return Classify(err)
	}

	slog.Info("burn confirmed", "amount", amount, "inviter", inviter, "tx", hash.Hex())
	return nil
}

// Claim runs one of the five claim operations. All share the same shape:
// threshold gate on a fresh read, submit, record, refresh, Idle.
func (o *Orchestrator) Claim(ctx context.Context, kind ClaimKind) error {
	if !o.wallet.Connected() {
		return ErrNotConnected
	}
	if err := o.begin(PhaseClaiming, kind); err != nil {
		return err
	}
	defer o.settle(ctx)

	if err := o.claimable(ctx, kind); err != nil {
		return err
	}

	var (
		hash common.Hash
		err  error
	)
	switch kind {
	case ClaimBurnBNB:
		hash, err = o.sender.ClaimBurnBNB(ctx)
	case ClaimBurnToken:
		hash, err = o.sender.ClaimBurnToken(ctx)
	case ClaimLoss:
		hash, err = o.sender.ClaimLoss(ctx)
	case ClaimNFTDividend:
		hash, err = o.sender.ClaimNFTDividend(ctx)
	case ClaimNFT:
		hash, err = o.sender.ClaimNFT(ctx)
	}

	o.record(ctx, "claim:"+kind.String(), hash, "", common.Address{}, err)
	if err != nil {
		return Classify(err)
	}

	slog.Info("claim confirmed", "kind", kind, "tx", hash.Hex())
	return nil
}

// claimable enforces the per-kind minimum on a fresh read.
func (o *Orchestrator) claimable(ctx context.Context, kind ClaimKind) error {
	owner := o.wallet.Address()

	switch kind {
	case ClaimBurnBNB, ClaimBurnToken:
		view, err := o.reader.ReadBurnDividend(ctx, owner)
		if err != nil {
			return Classify(err)
		}
		unpaid := view.UnpaidBNB
		if kind == ClaimBurnToken {
			unpaid = view.UnpaidToken
		}
		if unpaid.Sign() <= 0 {
			return &TxError{Reason: ReasonUnknown, Msg: "nothing to claim yet"}
		}
	case ClaimLoss:
		view, err := o.reader.ReadLossDividend(ctx, owner)
		if err != nil {
			return Classify(err)
		}
		if view.Unpaid.Cmp(minLossClaimWei) < 0 {
			return &TxError{Reason: ReasonUnknown, Msg: "loss dividend below the 0.001 BNB claim minimum"}
		}
	case ClaimNFTDividend:
		view, err := o.reader.ReadNFT(ctx, owner)
		if err != nil {
			return Classify(err)
		}
		if view.PendingDividends.Sign() <= 0 {
			return &TxError{Reason: ReasonUnknown, Msg: "nothing to claim yet"}
		}
	case ClaimNFT:
		view, err := o.reader.ReadNFT(ctx, owner)
		if err != nil {
			return Classify(err)
		}
		if view.ClaimableNFTs == 0 {
			return &TxError{Reason: ReasonUnknown, Msg: "no NFTs to mint yet"}
		}
	}
	return nil
}

// Subscribe buys shares at the fixed per-share price. Gates: a signing
// session, the right network, and a live balance covering the cost. The
// subscription flow has no manual inviter entry.
func (o *Orchestrator) Subscribe(ctx context.Context, shares int64, referral string) error {
	if shares <= 0 {
		return &TxError{Reason: ReasonUnknown, Msg: "share count must be positive"}
	}
	if !o.wallet.Connected() {
		return ErrNotConnected
	}
	if wantID := o.chainID; wantID != nil {
		if got := o.wallet.ChainID(); got == nil || got.Cmp(wantID) != 0 {
			return &ErrWrongNetwork{Want: wantID, Got: got}
		}
	}
	if err := o.begin(PhaseSubscribing, 0); err != nil {
		return err
	}
	defer o.settle(ctx)

	owner := o.wallet.Address()

	sub, err := o.reader.ReadSubscription(ctx, owner)
	if err != nil {
		return Classify(err)
	}
	if sub.PricePerShare.Sign() <= 0 {
		return &TxError{Reason: ReasonUnknown, Msg: "subscription price unavailable"}
	}

	shareCount := big.NewInt(shares)
	cost := new(big.Int).Mul(sub.PricePerShare, shareCount)

	// Balance is checked against a fresh read immediately before
	// submission, not against the last poll.
	balance, err := o.reader.NativeBalance(ctx, owner)
	if err != nil {
		return Classify(err)
	}
	if balance.Cmp(cost) < 0 {
		return &ErrInsufficientBalance{Need: cost, Have: balance}
	}

	inviter := domain.InviterCandidates{
		Bound:    sub.Inviter,
		Referral: referral,
		Root:     sub.RootInviter,
	}.ResolveSubscribe()

	hash, err := o.sender.Subscribe(ctx, shareCount, cost, inviter)
	o.record(ctx, "subscribe", hash, cost.String(), inviter, err)
	if err != nil {
		return Classify(err)
	}

	slog.Info("subscribe confirmed", "shares", shares, "cost", cost, "tx", hash.Hex())
	return nil
}

// record writes one attempt to the history log. Best effort; a logging
// failure never fails the operation.
func (o *Orchestrator) record(ctx context.Context, kind string, hash common.Hash, amount string, inviter common.Address, opErr error) {
	if o.storage == nil {
		return
	}
	rec := domain.TxRecord{
		ID:          uuid.New().String(),
		Kind:        kind,
		Amount:      amount,
		SubmittedAt: time.Now().UTC(),
	}
	if hash != (common.Hash{}) {
		rec.TxHash = hash.Hex()
	}
	if inviter != (common.Address{}) {
		rec.Inviter = inviter.Hex()
	}
	if opErr != nil {
		rec.Err = opErr.Error()
	}
	if err := o.storage.SaveTx(ctx, rec); err != nil {
		slog.Warn("tx history write failed", "err", err)
	}
}
