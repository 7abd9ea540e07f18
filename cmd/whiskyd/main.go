// Command whiskyd runs a Whisky ledger node.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/whiskylabs/whisky-protocol-core-sub001/config"
	"github.com/whiskylabs/whisky-protocol-core-sub001/core"
	"github.com/whiskylabs/whisky-protocol-core-sub001/crypto"
	"github.com/whiskylabs/whisky-protocol-core-sub001/events"
	"github.com/whiskylabs/whisky-protocol-core-sub001/fixedpoint"
	"github.com/whiskylabs/whisky-protocol-core-sub001/indexer"
	"github.com/whiskylabs/whisky-protocol-core-sub001/internal/logger"
	"github.com/whiskylabs/whisky-protocol-core-sub001/pda"
	"github.com/whiskylabs/whisky-protocol-core-sub001/rng"
	"github.com/whiskylabs/whisky-protocol-core-sub001/rngprovider"
	"github.com/whiskylabs/whisky-protocol-core-sub001/rpc"
	"github.com/whiskylabs/whisky-protocol-core-sub001/sequencer"
	"github.com/whiskylabs/whisky-protocol-core-sub001/storage"
	"github.com/whiskylabs/whisky-protocol-core-sub001/vm"
	"github.com/whiskylabs/whisky-protocol-core-sub001/wallet"

	// Instruction modules register themselves in init().
	_ "github.com/whiskylabs/whisky-protocol-core-sub001/vm/modules/economy"
	_ "github.com/whiskylabs/whisky-protocol-core-sub001/vm/modules/oracle"
	_ "github.com/whiskylabs/whisky-protocol-core-sub001/vm/modules/player"
	_ "github.com/whiskylabs/whisky-protocol-core-sub001/vm/modules/pool"
	_ "github.com/whiskylabs/whisky-protocol-core-sub001/vm/modules/whisky"
)

// passwordEnv holds the keystore password; flags would leak it via ps.
const passwordEnv = "WHISKY_PASSWORD"

func main() {
	root := &cobra.Command{
		Use:           "whiskyd",
		Short:         "Whisky settlement and pool-accounting ledger node",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(runCmd(), keygenCmd(), commitCmd(), bpsCmd())
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	var cfgPath, keyPath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the node",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cfgPath)
			if err != nil {
				return err
			}
			logger.Init(&logger.Options{Level: logger.ParseLevel(cfg.LogLevel), TimeFormat: time.RFC3339})
			return run(cmd.Context(), cfg, keyPath)
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", "whisky.yaml", "path to config file")
	cmd.Flags().StringVar(&keyPath, "key", "leader.key", "path to leader keystore")
	return cmd
}

func keygenCmd() *cobra.Command {
	var out, importKey string
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an encrypted keystore",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var w *wallet.Wallet
			if importKey != "" {
				priv, err := crypto.PrivKeyFromBase58(importKey)
				if err != nil {
					return err
				}
				w = wallet.New(priv)
			} else {
				var err error
				if w, err = wallet.Generate(); err != nil {
					return err
				}
			}
			if err := wallet.SaveKey(out, password(), w.PrivKey()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "public key: %s\nsaved to:   %s\n", w.PubKey(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "leader.key", "keystore path")
	cmd.Flags().StringVar(&importKey, "import", "", "encrypt an existing base58 private key instead of generating one")
	return cmd
}

// commitCmd prints the commitment of a seed for operators running the RNG
// role by hand.
func commitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "commit <seed>",
		Short: "Print the sha256 commitment of an rng seed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rng.ValidateSeed(args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), rng.Commit(args[0]))
			return nil
		},
	}
}

// bpsCmd converts fee percentages to the basis points whiskySetConfig takes.
func bpsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bps <percent>...",
		Short: "Convert percentages to basis points",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				pct, err := decimal.NewFromString(arg)
				if err != nil {
					return fmt.Errorf("parse %q: %w", arg, err)
				}
				bps, err := fixedpoint.PercentToBps(pct)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s%%\t%d\n", pct, bps)
			}
			return nil
		},
	}
}

func run(ctx context.Context, cfg *config.Config, keyPath string) error {
	leader, err := wallet.LoadKey(keyPath, password())
	if err != nil {
		return fmt.Errorf("load leader key: %w", err)
	}
	programID, err := cfg.Program()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("mkdir data dir: %w", err)
	}
	db, err := storage.Open(cfg.Storage.Type, filepath.Join(cfg.DataDir, "ledger"))
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	state := storage.NewStateDB(db)
	chain := core.NewChain(storage.NewSlotStore(db))
	if err := chain.Init(); err != nil {
		return fmt.Errorf("chain init: %w", err)
	}
	if chain.Tip() == nil {
		genesis, err := config.CreateGenesisSlot(cfg, state, leader)
		if err != nil {
			return fmt.Errorf("genesis: %w", err)
		}
		if err := chain.AddSlot(genesis, nil); err != nil {
			return fmt.Errorf("add genesis: %w", err)
		}
		logger.Info("genesis slot committed", "hash", genesis.Hash, "chain_id", cfg.Genesis.ChainID)
	}

	emitter := events.NewEmitter()
	idx := indexer.New(db, emitter)
	mempool := core.NewMempool()
	addr := pda.NewDeriver(programID)
	exec := vm.NewExecutor(state, emitter, addr)
	seq := sequencer.New(chain, state, mempool, exec, emitter, leader, cfg.MaxSlotTxs)

	if cfg.NATS.URL != "" {
		nc, err := events.ConnectNATS(cfg.NATS.URL)
		if err != nil {
			return err
		}
		defer nc.Drain()
		events.NewNATSBridge(emitter, nc, cfg.NATS.SubjectPrefix)
		logger.Info("publishing events to nats", "url", cfg.NATS.URL, "prefix", cfg.NATS.SubjectPrefix)
	}

	if cfg.Rng.Enabled {
		closeSeeds, err := startRngProvider(cfg, seq, mempool, emitter)
		if err != nil {
			return err
		}
		defer closeSeeds()
	}

	rpcAddr := fmt.Sprintf(":%d", cfg.RPC.Port)
	server := rpc.NewServer(rpcAddr, rpc.NewHandler(chain, mempool, seq, idx, addr), cfg.RPC.AuthToken)
	if err := server.Start(); err != nil {
		return fmt.Errorf("rpc start: %w", err)
	}
	defer server.Stop()
	logger.Info("rpc listening", "addr", rpcAddr, "auth", cfg.RPC.AuthToken != "")

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		seq.Run(ctx, cfg.SlotInterval)
	}()
	logger.Info("sequencer running",
		"leader", seq.Leader(),
		"program", programID,
		"interval", cfg.SlotInterval,
		"instructions", len(vm.RegisteredTypes()),
	)

	<-ctx.Done()
	logger.Info("shutting down")
	// Stop producing slots before the deferred closers run.
	wg.Wait()
	return nil
}

// startRngProvider opens the seed store and subscribes the provider. The
// returned func closes the store.
func startRngProvider(cfg *config.Config, seq *sequencer.Sequencer, mempool *core.Mempool, emitter *events.Emitter) (func() error, error) {
	priv, err := wallet.LoadKey(cfg.Rng.Keystore, password())
	if err != nil {
		return nil, fmt.Errorf("load rng key: %w", err)
	}
	key := wallet.New(priv)

	seeds, err := storage.NewBadgerDB(cfg.Rng.SeedDir)
	if err != nil {
		return nil, fmt.Errorf("open seed store: %w", err)
	}

	var nonce uint64
	err = seq.View(func(st core.State) error {
		acc, err := st.GetAccount(key.PubKey())
		if err != nil {
			return err
		}
		nonce = acc.Nonce
		return checkRngAddress(st, key.PubKey())
	})
	if err != nil {
		seeds.Close()
		return nil, err
	}

	rngprovider.New(key, seeds, mempool, emitter, nonce)
	logger.Info("rng provider enabled", "address", key.PubKey(), "nonce", nonce, "seeds", cfg.Rng.SeedDir)
	return seeds.Close, nil
}

// checkRngAddress warns when the configured protocol does not accept key as
// an rng authority yet; settlement instructions would fail until it does.
func checkRngAddress(st core.State, key solana.PublicKey) error {
	cfg, err := st.GetConfig()
	if errors.Is(err, core.ErrNotFound) {
		logger.Warn("protocol not initialized; rng provider waits for whiskyInitialize")
		return nil
	}
	if err != nil {
		return err
	}
	if !cfg.IsRngAuthority(key) {
		logger.Warn("rng provider key is not an rng address in the protocol config", "key", key)
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Warn("config file not found, using defaults", "path", path)
		return config.DefaultConfig(), nil
	}
	return cfg, err
}

func password() string {
	pw := os.Getenv(passwordEnv)
	if pw == "" {
		logger.Warn(passwordEnv + " not set; keystore uses an empty password")
	}
	return pw
}
