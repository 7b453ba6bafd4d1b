package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"yieldScope/internal/aggregate"
	"yieldScope/internal/api"
	"yieldScope/internal/config"
	"yieldScope/internal/dex"
	"yieldScope/internal/metrics"
	"yieldScope/internal/model"
	"yieldScope/internal/oracle"
	"yieldScope/internal/ranking"
	"yieldScope/internal/registry"
	"yieldScope/internal/scanner"
	"yieldScope/internal/storage"
	"yieldScope/internal/storage/postgres"
	"yieldScope/internal/storage/sqlite"
)

// Chain is everything the app needs from the RPC client.
type Chain interface {
	scanner.ChainReader
	dex.ContractCaller
}

// App owns the shared scanner state and the loops that use it.
type App struct {
	cfg    config.Config
	logger *zap.Logger

	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	Pools      *registry.Registry
	Windows    *aggregate.Windows
	WindowFile *aggregate.WindowFile
	Price      *oracle.NativePrice
	Refresher  *oracle.Refresher
	Reporter   *ranking.Reporter
	Scanner    *scanner.Scanner

	// Cron runs the price, persistence and ranking loops.
	Cron *cron.Cron
}

// OpenStore picks Postgres when a DSN is configured and SQLite otherwise.
func OpenStore(ctx context.Context, cfg config.Config) (storage.PoolStore, error) {
	if cfg.PGDSN != "" {
		return postgres.NewStore(ctx, cfg.PGDSN)
	}
	return sqlite.NewStore(ctx, cfg.DBPath)
}

func New(cfg config.Config, chain Chain, store storage.PoolStore, logger *zap.Logger) (*App, error) {
	if chain == nil {
		return nil, fmt.Errorf("chain client is nil")
	}
	if store == nil {
		return nil, fmt.Errorf("pool store is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	topics := cfg.SwapTopics
	if len(topics) == 0 {
		topics = dex.DefaultSwapTopics()
	}
	decoder, err := dex.NewSwapDecoder(topics)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	reader := dex.NewPoolReader(chain)
	quotes := model.NewQuoteTokens(cfg.NativeToken, cfg.StableTokens)

	a := &App{
		cfg:        cfg,
		logger:     logger,
		Registry:   reg,
		Metrics:    m,
		Windows:    aggregate.NewWindows(),
		WindowFile: &aggregate.WindowFile{Path: cfg.VolumeCache},
		Price:      &oracle.NativePrice{},
	}
	a.Pools = registry.New(reader, store, registry.Options{
		Factories: cfg.Factories,
		TTL:       cfg.LiquidityTTL,
		Logger:    logger.Named("registry"),
		Metrics:   m,
	})
	a.Refresher = oracle.NewRefresher(reader, common.HexToAddress(cfg.NativePricePool), a.Price, logger.Named("oracle"), m)

	opts := ranking.DefaultOptions()
	if cfg.TopN > 0 {
		opts.TopN = cfg.TopN
	}
	a.Reporter = ranking.NewReporter(a.Pools, a.Windows, a.Price, quotes, opts, logger.Named("ranking"))

	handler := scanner.NewSwapHandler(decoder, a.Pools, a.Windows, a.Price, quotes, logger.Named("swap"), m)
	a.Scanner = scanner.New(chain, handler, scanner.Config{
		PollInterval: cfg.PollInterval,
		Retry:        scanner.FixedDelay{Delay: cfg.RetryDelay},
	}, logger.Named("scanner"), m)

	return a, nil
}

// Init restores state before scanning. A store failure is fatal; a bad
// window file or a failed price read is logged and tolerated.
func (a *App) Init(ctx context.Context) error {
	n, err := a.Pools.Load(ctx)
	if err != nil {
		return err
	}
	a.logger.Info("pools loaded", zap.Int("count", n))

	windows, err := a.WindowFile.Load()
	if err != nil {
		a.logger.Warn("volume cache unreadable, starting empty", zap.String("path", a.WindowFile.Path), zap.Error(err))
	}
	a.Windows.Replace(windows)
	a.logger.Info("volume cache loaded", zap.Int("pools", a.Windows.Len()))

	if err := a.Refresher.Refresh(ctx); err != nil {
		a.logger.Warn("initial native price refresh failed", zap.Error(err))
	}
	return nil
}

// PersistWindows writes the current window map to the volume cache.
func (a *App) PersistWindows() error {
	return a.WindowFile.Save(a.Windows.Snapshot())
}

// SetupScheduler registers the periodic loops on a fresh cron.
func (a *App) SetupScheduler(ctx context.Context) error {
	cronLogger := &zapCronLogger{logger: a.logger.Named("cron")}
	a.Cron = cron.New(cron.WithChain(cron.Recover(cronLogger)), cron.WithLogger(cronLogger))

	jobs := []struct {
		name     string
		interval time.Duration
		fallback time.Duration
		fn       func()
	}{
		{"price", a.cfg.PriceInterval, 60 * time.Second, func() {
			rctx, cancel := context.WithTimeout(ctx, a.jobTimeout())
			defer cancel()
			if err := a.Refresher.Refresh(rctx); err != nil {
				a.logger.Warn("native price refresh failed", zap.Error(err))
			}
		}},
		{"persist", a.cfg.PersistInterval, 10 * time.Second, func() {
			if err := a.PersistWindows(); err != nil {
				a.logger.Warn("persist volume cache failed", zap.Error(err))
			}
		}},
		{"rank", a.cfg.RankInterval, 60 * time.Second, func() {
			a.Reporter.Report(ctx)
		}},
	}
	for _, job := range jobs {
		interval := job.interval
		if interval <= 0 {
			interval = job.fallback
		}
		if _, err := a.Cron.AddFunc("@every "+interval.String(), job.fn); err != nil {
			return fmt.Errorf("schedule %s loop: %w", job.name, err)
		}
	}
	return nil
}

func (a *App) jobTimeout() time.Duration {
	if a.cfg.RPCTimeout > 0 {
		return a.cfg.RPCTimeout
	}
	return 30 * time.Second
}

// Run starts the loops, the scan and the status server, and blocks until
// ctx ends or one of them fails.
func (a *App) Run(ctx context.Context) error {
	if err := a.SetupScheduler(ctx); err != nil {
		return err
	}
	a.Cron.Start()
	a.logger.Info("cron started", zap.Int("jobs", len(a.Cron.Entries())))
	defer func() {
		<-a.Cron.Stop().Done()
		if err := a.PersistWindows(); err != nil {
			a.logger.Warn("final volume cache save failed", zap.Error(err))
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.Scanner.Run(gctx)
	})
	if a.cfg.HTTPPort > 0 {
		server := api.NewServer(a.Reporter, a.Registry, a.logger.Named("api"))
		g.Go(func() error {
			return server.ListenAndServe(gctx, a.cfg.HTTPBind, a.cfg.HTTPPort)
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// RankOnce restores persisted state and ranks it a single time.
func (a *App) RankOnce(ctx context.Context) ([]model.PoolYield, error) {
	if err := a.Init(ctx); err != nil {
		return nil, err
	}
	return a.Reporter.Report(ctx), nil
}

type zapCronLogger struct {
	logger *zap.Logger
}

func (l *zapCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l *zapCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
