package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/ethereum/go-ethereum/common"

	"github.com/emberfi/burndeck/config"
	"github.com/emberfi/burndeck/internal/adapters/notify"
	"github.com/emberfi/burndeck/internal/adapters/offchain"
	"github.com/emberfi/burndeck/internal/adapters/onchain"
	"github.com/emberfi/burndeck/internal/adapters/storage"
	"github.com/emberfi/burndeck/internal/application/orchestrator"
	"github.com/emberfi/burndeck/internal/application/refresher"
)

const usage = `usage: burndeck [flags] [command]

commands:
  (none)              watch the account, refreshing every interval
  burn <amount>       burn <amount> tokens (approves first if needed)
  claim <kind>        claim one of: burn-bnb, burn-token, loss, nft-dividend, nft
  subscribe <shares>  buy <shares> subscription shares
  history             print the transaction history log
`

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "refresh once, print the state, and exit")
	dryRun := flag.Bool("dry-run", false, "build and sign transactions but never broadcast")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print the full dashboard (default: compact 1-line)")
	inviter := flag.String("inviter", "", "manual inviter address for burn")
	ref := flag.String("ref", "", "referral code or URL")
	limit := flag.Int("limit", 50, "rows to show for the history command")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	chainID := big.NewInt(cfg.Network.ChainID)
	contracts := onchain.Contracts{
		Token:           common.HexToAddress(cfg.Contracts.Token),
		Registry:        common.HexToAddress(cfg.Contracts.Registry),
		BurnDividend:    common.HexToAddress(cfg.Contracts.BurnDividend),
		LossDividend:    common.HexToAddress(cfg.Contracts.LossDividend),
		NFTDividend:     common.HexToAddress(cfg.Contracts.NFTDividend),
		NFTSubscription: common.HexToAddress(cfg.Contracts.NFTSubscription),
		Pool:            common.HexToAddress(cfg.Contracts.Pool),
	}

	reader, err := onchain.Dial(cfg.Network.RPCURL, contracts)
	if err != nil {
		slog.Error("failed to connect to RPC", "err", err, "url", cfg.Network.RPCURL)
		os.Exit(1)
	}

	sender, err := onchain.NewSender(reader.Client(), contracts, chainID, cfg.PrivateKey(), *dryRun)
	if err != nil {
		slog.Error("failed to load signing key", "err", err)
		os.Exit(1)
	}

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	command := flag.Arg(0)
	notifier := notify.NewConsole(*table)

	refr := refresher.New(
		refresher.Config{Interval: cfg.RefreshInterval()},
		reader,
		offchain.NewClient(cfg.Offchain.StatusBase),
		sender,
		notifier,
		store,
		refresher.NewStore(),
	)
	orch := orchestrator.New(reader, sender, sender, store, refr.RefreshOnce, chainID)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("burndeck starting",
		"config", *configPath,
		"chain", chainID,
		"account", sender.Address(),
		"dry_run", *dryRun,
	)

	switch command {
	case "":
		if *once {
			err = runOnce(ctx, refr)
		} else {
			err = refr.Run(ctx)
		}
	case "burn":
		err = runBurn(ctx, orch, flag.Arg(1), *inviter, *ref)
	case "claim":
		err = runClaim(ctx, orch, flag.Arg(1))
	case "subscribe":
		err = runSubscribe(ctx, orch, flag.Arg(1), *ref)
	case "history":
		err = runHistory(ctx, store, notifier, *limit)
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		slog.Error("command failed", "command", commandName(command), "err", err)
		os.Exit(1)
	}
	slog.Info("burndeck stopped cleanly")
}

func runOnce(ctx context.Context, r *refresher.Refresher) error {
	_, err := r.RefreshOnce(ctx)
	return err
}

func runBurn(ctx context.Context, orch *orchestrator.Orchestrator, amountArg, inviter, ref string) error {
	amount, err := parseTokenAmount(amountArg)
	if err != nil {
		return err
	}
	return orch.Burn(ctx, amount, inviter, ref)
}

func runClaim(ctx context.Context, orch *orchestrator.Orchestrator, kindArg string) error {
	kind, ok := claimKinds[kindArg]
	if !ok {
		return fmt.Errorf("unknown claim kind %q (want one of: burn-bnb, burn-token, loss, nft-dividend, nft)", kindArg)
	}
	return orch.Claim(ctx, kind)
}

func runSubscribe(ctx context.Context, orch *orchestrator.Orchestrator, sharesArg, ref string) error {
	shares, err := strconv.ParseInt(sharesArg, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid share count %q", sharesArg)
	}
	return orch.Subscribe(ctx, shares, ref)
}

func runHistory(ctx context.Context, store *storage.SQLiteStorage, notifier *notify.Console, limit int) error {
	txs, err := store.TxHistory(ctx, limit)
	if err != nil {
		return err
	}
	notifier.PrintHistory(txs)

	refreshes, err := store.RefreshHistory(ctx, limit)
	if err != nil {
		return err
	}
	notifier.PrintRefreshHistory(refreshes)
	return nil
}

var claimKinds = map[string]orchestrator.ClaimKind{
	"burn-bnb":     orchestrator.ClaimBurnBNB,
	"burn-token":   orchestrator.ClaimBurnToken,
	"loss":         orchestrator.ClaimLoss,
	"nft-dividend": orchestrator.ClaimNFTDividend,
	"nft":          orchestrator.ClaimNFT,
}

func commandName(cmd string) string {
	if cmd == "" {
		return "watch"
	}
	return cmd
}

// parseTokenAmount converts a human decimal like "1.5" into wei. All
// arithmetic downstream is integer; this is the only place decimals are
// accepted.
func parseTokenAmount(arg string) (*big.Int, error) {
	if arg == "" {
		return nil, fmt.Errorf("burn needs an amount, e.g. `burndeck burn 1.5`")
	}
	r, ok := new(big.Rat).SetString(arg)
	if !ok || r.Sign() <= 0 {
		return nil, fmt.Errorf("invalid amount %q", arg)
	}
	wei := new(big.Rat).Mul(r, new(big.Rat).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)))
	if !wei.IsInt() {
		return nil, fmt.Errorf("amount %q has more than 18 decimal places", arg)
	}
	return wei.Num(), nil
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
