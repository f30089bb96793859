package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	tumbler "github.com/bnb-chain/zkbnb-tumbler"
	"github.com/bnb-chain/zkbnb-tumbler/config"
	"github.com/bnb-chain/zkbnb-tumbler/leaflog"
	"github.com/bnb-chain/zkbnb-tumbler/ledger"
	"github.com/bnb-chain/zkbnb-tumbler/logger"
	tumblerprom "github.com/bnb-chain/zkbnb-tumbler/metrics/prometheus"
	"github.com/bnb-chain/zkbnb-tumbler/server"
)

var (
	poolFlag = &cli.StringFlag{
		Name:     "pool",
		Usage:    "Name of the pool account",
		Required: true,
	}
	amountFlag = &cli.Uint64Flag{
		Name:     "amount",
		Usage:    "Amount of value",
		Required: true,
	}
	indexFlag = &cli.Uint64Flag{
		Name:     "index",
		Usage:    "Leaf index of the deposit",
		Required: true,
	}
)

var initCommand = &cli.Command{
	Name:   "init",
	Usage:  "Create an empty pool",
	Flags:  []cli.Flag{poolFlag},
	Action: withLedger(runInit),
}

var fundCommand = &cli.Command{
	Name:  "fund",
	Usage: "Credit value to an account",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "account", Usage: "Account to credit", Required: true},
		amountFlag,
	},
	Action: withLedger(runFund),
}

var balanceCommand = &cli.Command{
	Name:  "balance",
	Usage: "Show the balance of an account",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "account", Usage: "Account to show", Required: true},
	},
	Action: withLedger(runBalance),
}

var depositCommand = &cli.Command{
	Name:  "deposit",
	Usage: "Deposit value into a pool",
	Flags: []cli.Flag{
		poolFlag,
		&cli.StringFlag{Name: "payer", Usage: "Account the value is taken from", Required: true},
		amountFlag,
		&cli.StringFlag{Name: "secret", Usage: "Hex secret of the deposit, random when omitted"},
	},
	Action: withLedger(runDeposit),
}

var withdrawCommand = &cli.Command{
	Name:  "withdraw",
	Usage: "Withdraw a deposit from a pool",
	Flags: []cli.Flag{
		poolFlag,
		&cli.StringFlag{Name: "recipient", Usage: "Account that receives the value", Required: true},
		indexFlag,
		amountFlag,
		&cli.StringFlag{Name: "secret", Usage: "Hex secret of the deposit", Required: true},
	},
	Action: withLedger(runWithdraw),
}

var proofCommand = &cli.Command{
	Name:   "proof",
	Usage:  "Print the membership proof of a leaf",
	Flags:  []cli.Flag{poolFlag, indexFlag},
	Action: withLedger(runProof),
}

var statusCommand = &cli.Command{
	Name:   "status",
	Usage:  "Print the state of a pool",
	Flags:  []cli.Flag{poolFlag},
	Action: withLedger(runStatus),
}

var auditCommand = &cli.Command{
	Name:  "audit",
	Usage: "Check a pool against its leaf log",
	Flags: []cli.Flag{
		poolFlag,
		&cli.IntFlag{Name: "workers", Usage: "Number of verification workers, one per CPU by default"},
	},
	Action: withLedger(runAudit),
}

var serveCommand = &cli.Command{
	Name:  "serve",
	Usage: "Serve the ledger over HTTP",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "listen",
			Usage:   "Listen address",
			Value:   config.DefaultListenAddr,
			EnvVars: []string{config.EnvListenAddr},
		},
	},
	Action: runServe,
}

type env struct {
	cfg    *config.Config
	ledger *ledger.Ledger
	logger *zap.Logger
}

// setup validates the configuration and opens the ledger on the configured
// store. The returned function closes the store.
func setup(c *cli.Context, processorOpts ...tumbler.Option) (*env, func(), error) {
	cfg := parseConfig(c)
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Verbose})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	hashType, err := cfg.Pool.Hash()
	if err != nil {
		return nil, nil, err
	}
	opts := append([]tumbler.Option{tumbler.WithHashType(hashType), tumbler.WithLogger(l)}, processorOpts...)
	processor, err := tumbler.NewProcessor(cfg.Pool.Depth, cfg.Pool.NullifierCapacity, opts...)
	if err != nil {
		return nil, nil, err
	}
	db, err := openStore(&cfg.Storage, l)
	if err != nil {
		return nil, nil, err
	}
	var proverOpts []ledger.Option
	if c.IsSet("workers") {
		proverOpts = append(proverOpts, ledger.WithProverOptions(leaflog.AuditWorkers(c.Int("workers"))))
	}
	lg, err := ledger.New(db, processor, append([]ledger.Option{ledger.WithLogger(l)}, proverOpts...)...)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	closer := func() {
		if err := db.Close(); err != nil {
			l.Sugar().Warnw("Failed to close store", "error", err)
		}
		_ = l.Sync()
	}
	return &env{cfg: cfg, ledger: lg, logger: l}, closer, nil
}

func withLedger(action func(c *cli.Context, e *env) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		e, closer, err := setup(c)
		if err != nil {
			return err
		}
		defer closer()
		return action(c, e)
	}
}

func printJSON(c *cli.Context, v interface{}) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runInit(c *cli.Context, e *env) error {
	state, err := e.ledger.CreatePool(c.String("pool"))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "pool %s created, root %s\n", c.String("pool"), state.Root())
	return nil
}

func runFund(c *cli.Context, e *env) error {
	balance, err := e.ledger.Fund(c.String("account"), c.Uint64("amount"))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%s balance %d\n", c.String("account"), balance)
	return nil
}

func runBalance(c *cli.Context, e *env) error {
	balance, err := e.ledger.Balance(c.String("account"))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%d\n", balance)
	return nil
}

func runDeposit(c *cli.Context, e *env) error {
	var (
		secret tumbler.Secret
		err    error
	)
	if c.IsSet("secret") {
		secret, err = tumbler.HexToSecret(c.String("secret"))
	} else {
		secret, err = tumbler.NewSecret()
	}
	if err != nil {
		return err
	}
	receipt, err := e.ledger.Deposit(c.Context, c.String("pool"), c.String("payer"), c.Uint64("amount"), secret)
	if err != nil {
		return fmt.Errorf("deposit rejected (%s): %w", tumbler.Kind(err), err)
	}
	return printJSON(c, map[string]interface{}{
		"index":      receipt.LeafIndex,
		"amount":     receipt.Amount,
		"secret":     secret.String(),
		"commitment": receipt.Commitment,
		"root":       receipt.Root,
	})
}

func runWithdraw(c *cli.Context, e *env) error {
	secret, err := tumbler.HexToSecret(c.String("secret"))
	if err != nil {
		return err
	}
	receipt, err := e.ledger.Withdraw(c.Context, c.String("pool"), c.String("recipient"),
		c.Uint64("index"), c.Uint64("amount"), secret)
	if err != nil {
		return fmt.Errorf("withdraw rejected (%s): %w", tumbler.Kind(err), err)
	}
	return printJSON(c, map[string]interface{}{
		"amount":    receipt.Amount,
		"nullifier": receipt.Nullifier,
		"recipient": c.String("recipient"),
	})
}

func runProof(c *cli.Context, e *env) error {
	proof, err := e.ledger.Proof(c.String("pool"), c.Uint64("index"))
	if err != nil {
		return err
	}
	return printJSON(c, proof)
}

func runStatus(c *cli.Context, e *env) error {
	pool := c.String("pool")
	state, err := e.ledger.PoolState(pool)
	if err != nil {
		return err
	}
	balance, err := e.ledger.Balance(pool)
	if err != nil {
		return err
	}
	return printJSON(c, map[string]interface{}{
		"pool":              pool,
		"root":              state.Root(),
		"leafCount":         state.LeafCount(),
		"capacity":          state.Tree.Capacity(),
		"nullifiers":        state.Nullifiers.Len(),
		"nullifierCapacity": state.Nullifiers.Capacity(),
		"balance":           balance,
	})
}

func runAudit(c *cli.Context, e *env) error {
	report, err := e.ledger.Audit(c.Context, c.String("pool"))
	if err != nil {
		return err
	}
	if err := printJSON(c, report); err != nil {
		return err
	}
	if len(report.Failed) > 0 {
		return cli.Exit(fmt.Sprintf("%d leaves failed verification", len(report.Failed)), 1)
	}
	return nil
}

func runServe(c *cli.Context) error {
	reg := prometheus.NewRegistry()
	collector, err := tumblerprom.NewCollector(reg)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}
	e, closer, err := setup(c, tumbler.EnableMetrics(collector))
	if err != nil {
		return err
	}
	defer closer()

	srv := server.NewServer(e.ledger, e.cfg.ListenAddr, reg, e.logger)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	e.logger.Sugar().Infow("Tumbler ledger running",
		"addr", e.cfg.ListenAddr,
		"storage", e.cfg.Storage.Type,
		"depth", e.cfg.Pool.Depth,
		"hash", e.cfg.Pool.HashType,
	)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdown)
}
