package notify

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/olekukonko/tablewriter"

	"github.com/emberfi/burndeck/internal/domain"
)

// Console implements ports.Notifier. It renders the account state either
// as a one-line ticker or as the full dashboard with tables.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole creates a notifier that writes to stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter creates a notifier for tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// Notify prints the state in the configured mode.
func (c *Console) Notify(_ context.Context, state domain.AccountState) error {
	if c.table {
		c.printFull(state)
	} else {
		c.printCompact(state)
	}
	return nil
}

// printCompact prints the essentials in one line.
func (c *Console) printCompact(state domain.AccountState) {
	now := state.RefreshedAt.Format("15:04:05")
	if state.RefreshedAt.IsZero() {
		now = time.Now().Format("15:04:05")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s | bal %s %s | hold %s BNB | loss %s BNB (%s)",
		now, shortAddr(state.Address.Hex()),
		fmtWei(state.Token.Balance), tokenSymbol(state),
		fmtWei(state.HoldingValue),
		fmtWei(state.Position.LossAmount), state.Position.Source)

	if unpaid := sumUnpaid(state); unpaid.Sign() > 0 {
		fmt.Fprintf(&sb, " | claimable %s BNB", fmtWei(unpaid))
	}
	if state.NFT.ClaimableNFTs > 0 {
		fmt.Fprintf(&sb, " | %d NFT ready", state.NFT.ClaimableNFTs)
	}

	fmt.Fprintln(c.out, sb.String())
}

// printFull prints the dashboard: position, claimables, and burn stats.
func (c *Console) printFull(state domain.AccountState) {
	now := state.RefreshedAt.Format("15:04:05")

	fmt.Fprintf(c.out, "\n[%s] account %s — position source: %s\n",
		now, state.Address.Hex(), state.Position.Source)

	c.printPosition(state)
	c.printClaimables(state)
	c.printStats(state)
}

// printPosition prints the reconciled position table.
func (c *Console) printPosition(state domain.AccountState) {
	pos := state.Position

	table := tablewriter.NewWriter(c.out)
	table.Header("Cost Basis", "Sold", "Holding", "Loss", "Source")
	table.Append(
		fmtWei(pos.CostBasis),
		fmtWei(pos.SoldValue),
		fmtWei(pos.HoldingValue),
		fmtWei(pos.LossAmount),
		pos.Source.String(),
	)
	table.Render()

	fmt.Fprintf(c.out, "  balance: %s %s  allowance: %s  reserves: %s %s / %s BNB\n",
		fmtWei(state.Token.Balance), tokenSymbol(state),
		fmtWei(state.Token.Allowance),
		fmtWei(state.Reserves.TokenReserve), tokenSymbol(state),
		fmtWei(state.Reserves.BNBReserve))
	if !state.LossDividend.Loss.Valid {
		fmt.Fprintln(c.out, "  note: on-chain cached loss is stale; showing zero until it recomputes")
	}
}

// printClaimables prints the per-contract unpaid dividends.
func (c *Console) printClaimables(state domain.AccountState) {
	table := tablewriter.NewWriter(c.out)
	table.Header("Contract", "Claimable", "Unit")
	table.Append("burn dividend", fmtWei(state.BurnDividend.UnpaidBNB), "BNB")
	table.Append("burn dividend", fmtWei(state.BurnDividend.UnpaidToken), tokenSymbol(state))
	table.Append("loss dividend", fmtWei(state.LossDividend.Unpaid), "BNB")
	table.Append("nft dividend", fmtWei(state.NFT.PendingDividends), "BNB")
	table.Append("claimable nfts", fmt.Sprintf("%d", state.NFT.ClaimableNFTs), "NFT")
	table.Render()
}

// printStats prints the burn, referral, and subscription stats.
func (c *Console) printStats(state domain.AccountState) {
	fmt.Fprintf(c.out, "  burned: %s BNB (protocol total %s)  min burn: %s BNB\n",
		fmtWei(state.Burn.BurnedValue), fmtWei(state.Burn.TotalBurned),
		fmtWei(state.Burn.MinBurnValue))
	fmt.Fprintf(c.out, "  invitees: %d  inviter: %s  root: %s\n",
		state.Burn.InviteeCount,
		addrOrDash(state.Burn.Inviter.Hex(), state.Burn.Inviter == (common.Address{})),
		shortAddr(state.Burn.RootInviter.Hex()))
	fmt.Fprintf(c.out, "  loss pool: allocated %s BNB, claimed %s BNB\n",
		fmtWei(state.LossDividend.TotalAllocated), fmtWei(state.LossDividend.TotalClaimed))
	fmt.Fprintf(c.out, "  subscription: %s BNB/share  two-level: %d  team: %d\n\n",
		fmtWei(state.Subscription.PricePerShare),
		state.Subscription.TwoLevel, state.Subscription.Team)
}

// PrintHistory renders the transaction history log.
func (c *Console) PrintHistory(records []domain.TxRecord) {
	if len(records) == 0 {
		fmt.Fprintln(c.out, "no transactions recorded")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("When", "Kind", "Amount", "Hash", "Result")

	for _, r := range records {
		result := "ok"
		if !r.Succeeded() {
			result = truncate(r.Err, 60)
		}
		table.Append(
			r.SubmittedAt.Format("01-02 15:04:05"),
			r.Kind,
			r.Amount,
			shortAddr(r.TxHash),
			result,
		)
	}
	table.Render()
}

// PrintRefreshHistory renders the recent refresh summaries.
func (c *Console) PrintRefreshHistory(records []domain.RefreshRecord) {
	if len(records) == 0 {
		fmt.Fprintln(c.out, "no refreshes recorded")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("When", "Source", "Cost Basis", "Sold", "Holding", "Loss")

	for _, r := range records {
		table.Append(
			r.RefreshedAt.Format("01-02 15:04:05"),
			r.Source,
			fmtWeiString(r.CostBasis),
			fmtWeiString(r.SoldValue),
			fmtWeiString(r.HoldingValue),
			fmtWeiString(r.LossAmount),
		)
	}
	table.Render()
}

// --- helpers ---

// fmtWei renders a wei amount as a decimal with up to 6 fractional
// digits. Values are display-only; all math stays in wei.
func fmtWei(v *big.Int) string {
	if v == nil || v.Sign() == 0 {
		return "0"
	}
	f := new(big.Float).SetInt(v)
	f.Quo(f, big.NewFloat(1e18))
	s := f.Text('f', 6)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "0" || s == "-0" {
		// nonzero wei below display precision
		return "~0"
	}
	return s
}

// fmtWeiString formats a decimal-string wei amount from the history log.
func fmtWeiString(s string) string {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return s
	}
	return fmtWei(v)
}

func tokenSymbol(state domain.AccountState) string {
	if state.Token.Symbol == "" {
		return "TOKEN"
	}
	return state.Token.Symbol
}

func sumUnpaid(state domain.AccountState) *big.Int {
	total := new(big.Int)
	for _, v := range []*big.Int{state.BurnDividend.UnpaidBNB, state.LossDividend.Unpaid, state.NFT.PendingDividends} {
		if v != nil {
			total.Add(total, v)
		}
	}
	return total
}

func shortAddr(hex string) string {
	if len(hex) <= 12 {
		return hex
	}
	return hex[:8] + "…" + hex[len(hex)-4:]
}

func addrOrDash(hex string, zero bool) string {
	if zero {
		return "-"
	}
	return shortAddr(hex)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
