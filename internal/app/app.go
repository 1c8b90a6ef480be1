// Package app aggregates configuration and shared dependencies behind the CLI
// commands.
package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"solarb/internal/alerting"
	"solarb/internal/config"
	"solarb/internal/dashboard"
	"solarb/internal/engine"
	"solarb/internal/executor"
	"solarb/internal/funding"
	"solarb/internal/pnl"
	"solarb/internal/scheduler"
	"solarb/internal/solana"
	"solarb/internal/storage"
	"solarb/internal/venue"
	"solarb/internal/wallet"
)

const heartbeatInterval = time.Minute

// App is the application handle shared by the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

// newVenues builds the enabled venue clients. The returned slice order is the
// registration order and therefore the detector's tie-break order.
func (a *App) newVenues() []venue.Client {
	vcfg := a.Config.Venues
	timeout := a.Config.QuoteTimeout

	clients := make([]venue.Client, 0, 4)
	if vcfg.Jupiter.Enabled {
		clients = append(clients, venue.NewJupiter(venue.JupiterOptions{
			BaseURL: vcfg.Jupiter.BaseURL,
			Timeout: timeout,
		}, a.Logger))
	}
	if vcfg.Raydium.Enabled {
		clients = append(clients, venue.NewRaydium(venue.RaydiumOptions{
			BaseURL: vcfg.Raydium.BaseURL,
			Timeout: timeout,
		}, a.Logger))
	}
	if vcfg.Orca.Enabled {
		clients = append(clients, venue.NewOrca(venue.OrcaOptions{
			BaseURL: vcfg.Orca.BaseURL,
			Timeout: timeout,
		}, a.Logger))
	}
	if vcfg.Meteora.Enabled {
		clients = append(clients, venue.NewMeteora(venue.MeteoraOptions{
			BaseURL: vcfg.Meteora.BaseURL,
			Timeout: timeout,
		}, a.Logger))
	}
	return clients
}

func venueMap(clients []venue.Client) map[string]venue.Client {
	m := make(map[string]venue.Client, len(clients))
	for _, c := range clients {
		m[c.Name()] = c
	}
	return m
}

func (a *App) newRPC() *solana.Client {
	return solana.NewClient(solana.Options{URL: a.Config.RPC}, a.Logger)
}

func (a *App) newFunding() funding.Provider {
	fcfg := a.Config.Funding
	if len(fcfg.Markets) == 0 {
		return nil
	}
	return funding.NewDrift(funding.DriftOptions{
		BaseURL: fcfg.BaseURL,
		Markets: fcfg.Markets,
		Timeout: fcfg.RequestTimeout,
	}, a.Logger)
}

func (a *App) newNotifier() executor.Notifier {
	if a.Config.Alerting.Enabled {
		tcfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(tcfg.BotToken, tcfg.ChatID, tcfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// Run executes the live trading engine until interrupted.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rpcClient := a.newRPC()
	if err := rpcClient.CheckHealth(ctx); err != nil {
		a.Logger.Error().Err(err).Str("rpc", a.Config.RPC).Msg("rpc endpoint unreachable")
		return err
	}
	if ver, err := rpcClient.Version(ctx); err == nil {
		a.Logger.Info().Str("solana_core", ver).Msg("rpc endpoint healthy")
	}

	keypair, err := wallet.Load(a.Config.WalletPath)
	if err != nil {
		if errors.Is(err, wallet.ErrNoCredential) {
			a.Logger.Error().Msg("no wallet configured; set walletPath or " + wallet.EnvKey)
		}
		return err
	}
	a.Logger.Info().Str("wallet", keypair.ShortPublicKey()).Msg("wallet loaded")

	if balance, err := rpcClient.Balance(ctx, keypair.PublicKey()); err == nil {
		a.Logger.Info().Str("sol_balance", balance.StringFixed(4)).Msg("wallet balance")
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	var journal pnl.Journal
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; trade journal disabled")
	} else {
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		unlock, acquired, err := store.TryAdvisoryLock(ctx, a.Config.Database.AdvisoryLockKey)
		if err != nil {
			return err
		}
		if !acquired {
			return errors.New("another instance holds the trading lock")
		}
		defer unlock()
		journal = store
	}

	tracker := pnl.NewTracker(journal)
	venues := a.newVenues()
	if len(venues) < 2 {
		return errors.New("at least two venues must be enabled")
	}

	exec := executor.New(executor.Options{
		MinProfitBps:   a.Config.MinProfitBps,
		MaxSlippageBps: a.Config.MaxSlippageBps,
		MaxPositionUsd: decimal.NewFromFloat(a.Config.MaxPositionUsd),
		SwapTimeout:    a.Config.SwapTimeout,
	}, venueMap(venues), tracker, a.newNotifier(), keypair.PublicKey(), a.Logger)

	eng := engine.New(engine.Options{
		Pairs:        a.Config.Pairs,
		NotionalUsd:  decimal.NewFromFloat(a.Config.NotionalUsd),
		ScanInterval: a.Config.ScanInterval(),
		QuoteTimeout: a.Config.QuoteTimeout,
	}, venues, exec, tracker, a.Logger)

	eng.Start()

	g, gctx := errgroup.WithContext(ctx)

	if a.Config.Dashboard.Enabled {
		srv := dashboard.New(a.Config.Dashboard, eng, a.newFunding(), a.Config.RPC, a.Logger)
		g.Go(func() error {
			return srv.Run(gctx)
		})
	}

	g.Go(func() error {
		heartbeat := scheduler.New(scheduler.Options{Interval: heartbeatInterval}, a.Logger)
		return heartbeat.Run(gctx, func(hctx context.Context) error {
			stats := tracker.Stats()
			event := a.Logger.Info().
				Stringer("engine_state", eng.CurrentState()).
				Int("trades", stats.AllTime.Trades).
				Str("profit_usd", stats.AllTime.ProfitUsd.StringFixed(2))
			if balance, err := rpcClient.Balance(hctx, keypair.PublicKey()); err == nil {
				event = event.Str("sol_balance", balance.StringFixed(4))
			}
			event.Msg("heartbeat")
			return nil
		})
	})

	err = g.Wait()
	eng.Stop()

	stats := tracker.Stats()
	a.Logger.Info().
		Int("trades", stats.AllTime.Trades).
		Str("profit_usd", stats.AllTime.ProfitUsd.StringFixed(2)).
		Msg("session summary")

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// ExportOptions hold parameters for exporting the trade journal.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	CSVPath   string
	PNGPath   string
	MaxPoints int
}

// ScanOptions configure a one-shot scan.
type ScanOptions struct {
	NotionalUsd float64
}

// SimulateOptions feed a synthetic spread through detection and execution.
type SimulateOptions struct {
	Pair      string
	BuyPrice  float64
	SellPrice float64
	DepthUsd  float64
}
