package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"farmchain/config"
	nativecommon "farmchain/native/common"
	"farmchain/native/farming"
	"farmchain/native/oracle"
	"farmchain/observability/logging"
	"farmchain/rpc"
	"farmchain/state"
	"farmchain/storage"
)

func main() {
	configPath := flag.String("config", "./farmd.toml", "path to the daemon configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "farmd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := logging.Setup("farmd", cfg.LogEnvironment, logging.Options{
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})

	vault, err := cfg.VaultAddress()
	if err != nil {
		return err
	}

	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "ledger"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	manager := state.NewManager(db, vault)
	pauses := nativecommon.NewPauseSet()
	engine := farming.NewEngine(vault)
	engine.SetState(manager)
	engine.SetTokens(manager)
	engine.SetPauses(pauses)
	engine.SetClock(uint64(time.Now().Unix()))

	converter, err := buildConverter(cfg)
	if err != nil {
		return err
	}
	if converter != nil {
		engine.SetConverter(converter)
	}

	global, err := cfg.GlobalConfig()
	if err != nil {
		return err
	}
	initialized, err := manager.Initialized()
	if err != nil {
		return err
	}
	if !initialized {
		if err := seedGenesis(cfg, manager, engine, global); err != nil {
			return err
		}
		logger.Info("genesis state seeded", "pools", len(cfg.Pools), "balances", len(cfg.Genesis))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := rpc.NewServer(engine, manager)
	server.SetPauses(pauses)
	logger.Info("farmd ready", "rpc", cfg.RPCAddress, "data", cfg.DataDir)
	return server.Start(ctx, cfg.RPCAddress)
}

// buildConverter assembles the harvest fee oracle from the configured
// sources. Returns nil when no source is configured, which disables harvest
// fees entirely.
func buildConverter(cfg *config.Config) (*oracle.Converter, error) {
	maxAge := time.Duration(cfg.Oracle.MaxAgeSeconds) * time.Second
	agg := oracle.NewAggregator(cfg.Oracle.Priority, maxAge)

	registered := 0
	if len(cfg.Oracle.ManualRates) > 0 {
		manual := oracle.NewManual()
		for i, entry := range cfg.Oracle.ManualRates {
			base, err := parseHexAddress(entry.Base)
			if err != nil {
				return nil, fmt.Errorf("oracle.ManualRates[%d]: %w", i, err)
			}
			quote, err := parseHexAddress(entry.Quote)
			if err != nil {
				return nil, fmt.Errorf("oracle.ManualRates[%d]: %w", i, err)
			}
			if err := manual.SetDecimal(base, quote, entry.Rate, time.Now()); err != nil {
				return nil, fmt.Errorf("oracle.ManualRates[%d]: %w", i, err)
			}
		}
		agg.Register("manual", manual)
		registered++
	}
	if cfg.Oracle.Endpoint != "" {
		agg.Register("http", oracle.NewHTTPSource(nil, cfg.Oracle.Endpoint, cfg.Oracle.APIKey))
		registered++
	}
	if registered == 0 {
		return nil, nil
	}
	return oracle.NewConverter(agg), nil
}

func seedGenesis(cfg *config.Config, manager *state.Manager, engine *farming.Engine, global *farming.GlobalConfig) error {
	if err := manager.SetGlobalConfig(global); err != nil {
		return err
	}
	balances, err := cfg.GenesisBalances()
	if err != nil {
		return err
	}
	for _, balance := range balances {
		if err := manager.Credit(balance.Asset, balance.Address, balance.Amount); err != nil {
			return err
		}
	}
	specs, err := cfg.PoolSpecs()
	if err != nil {
		return err
	}
	for i, spec := range specs {
		if _, err := engine.CreatePool(global.Admin, spec); err != nil {
			return fmt.Errorf("create pool %d: %w", i, err)
		}
	}
	return nil
}

func parseHexAddress(raw string) (common.Address, error) {
	trimmed := strings.TrimSpace(raw)
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("invalid address %q", raw)
	}
	return common.HexToAddress(trimmed), nil
}
