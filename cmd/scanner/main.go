package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"yieldScope/internal/app"
	"yieldScope/internal/chain"
	"yieldScope/internal/config"
)

func main() {
	root := &cobra.Command{
		Use:          "scanner",
		Short:        "DEX swap scanner and pool fee-yield ranker",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Scan blocks from the chain head and rank pools continuously",
		RunE:  runScanner,
	}
	addCommonFlags(runCmd.Flags())
	runCmd.Flags().StringToString("swap-topics", nil, "swap topic0 to protocol mappings (topic=protocol,...)")
	runCmd.Flags().Duration("liquidity-ttl", 300*time.Second, "pool liquidity cache lifetime")
	runCmd.Flags().Duration("poll-interval", time.Second, "wait when the cursor is ahead of the chain head")
	runCmd.Flags().Duration("retry-delay", time.Second, "wait before retrying a failed block")
	runCmd.Flags().Duration("price-interval", 60*time.Second, "native price refresh interval")
	runCmd.Flags().Duration("persist-interval", 10*time.Second, "volume cache save interval")
	runCmd.Flags().Duration("rank-interval", 60*time.Second, "ranking report interval")
	runCmd.Flags().String("http-bind", "127.0.0.1", "status server bind address")
	runCmd.Flags().Int("http-port", 8711, "status server port, 0 disables it")
	root.AddCommand(runCmd)

	rankCmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank pools once from the stored pools and volume cache",
		RunE:  runRank,
	}
	addCommonFlags(rankCmd.Flags())
	root.AddCommand(rankCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addCommonFlags(flags *pflag.FlagSet) {
	flags.String("rpc", "", "BSC RPC URL")
	flags.Duration("rpc-timeout", 30*time.Second, "timeout for each RPC call")
	flags.String("db-path", "db.sqlite", "SQLite pool store path")
	flags.String("pg-dsn", "", "Postgres DSN, overrides db-path when set")
	flags.String("volume-cache", "volume_cache.json", "volume window cache file")
	flags.StringSlice("factories", nil, "allowed factory addresses (comma-separated)")
	flags.String("native-token", config.DefaultNativeToken, "wrapped native token address")
	flags.StringSlice("stable-tokens", nil, "stable token addresses (comma-separated)")
	flags.String("native-price-pool", "", "reference pool for the native token price")
	flags.Int("top-n", 10, "number of pools to report")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
}

type session struct {
	app    *app.App
	logger *zap.Logger
	close  func()
}

func open(ctx context.Context, cmd *cobra.Command) (*session, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool store: %w", err)
	}

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL, cfg.RPCTimeout)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("connect rpc: %w", err)
	}

	a, err := app.New(cfg, chainClient, store, logger)
	if err != nil {
		chainClient.Close()
		store.Close()
		return nil, err
	}

	logger.Info("scanner configured",
		zap.String("rpc", cfg.RPCURL),
		zap.Bool("postgres", cfg.PGDSN != ""),
		zap.String("db_path", cfg.DBPath),
		zap.String("volume_cache", cfg.VolumeCache),
		zap.Strings("factories", cfg.Factories),
		zap.String("native_price_pool", cfg.NativePricePool),
		zap.Duration("liquidity_ttl", cfg.LiquidityTTL),
	)

	return &session{
		app:    a,
		logger: logger,
		close: func() {
			chainClient.Close()
			store.Close()
			_ = logger.Sync()
		},
	}, nil
}

func runScanner(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := open(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.app.Init(ctx); err != nil {
		return err
	}
	return s.app.Run(ctx)
}

func runRank(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := open(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.close()

	top, err := s.app.RankOnce(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%-4s %-44s %-14s %8s %16s %16s %12s\n", "#", "POOL", "PROTOCOL", "FEE", "VOLUME", "LIQUIDITY", "APH")
	for i, p := range top {
		fmt.Fprintf(cmd.OutOrStdout(), "%-4d %-44s %-14s %8d %16.2f %16.2f %12.6f\n",
			i+1, p.Pool, p.Protocol, p.Fee, p.Volume, p.Liquidity, p.FeeRatePerHour)
	}
	return nil
}
