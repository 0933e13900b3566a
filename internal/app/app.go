// Package app aggregates configuration and shared dependencies for the
// CLI commands, and owns the run-mode wiring.
package app

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"wallet-bot/internal/alerting"
	"wallet-bot/internal/bot"
	"wallet-bot/internal/chains"
	"wallet-bot/internal/config"
	"wallet-bot/internal/domain"
	"wallet-bot/internal/monitor"
	"wallet-bot/internal/pricefeed"
	"wallet-bot/internal/retry"
	"wallet-bot/internal/scheduler"
	"wallet-bot/internal/session"
	"wallet-bot/internal/storage"
	"wallet-bot/internal/trading"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
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

func (a *App) newFeed() pricefeed.Feed {
	var feed pricefeed.Feed = pricefeed.NewCoinGecko(pricefeed.CoinGeckoOptions{
		BaseURL:  a.Config.Pricefeed.APIBase,
		Timeout:  a.Config.Pricefeed.RequestTimeout,
		TokenIDs: a.Config.Pricefeed.TokenIDs,
	}, a.Logger)

	if a.Config.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     a.Config.Redis.Addr,
			Password: a.Config.Redis.Password,
			DB:       a.Config.Redis.DB,
		})
		feed = pricefeed.NewCachedFeed(feed, client, a.Config.Redis.PriceTTL, a.Logger)
	}
	return feed
}

func (a *App) newChains() chains.Registry {
	return chains.Registry{
		domain.ChainTON: chains.NewTon(chains.TonOptions{
			APIBase: a.Config.Chains.Ton.APIBase,
			APIKey:  a.Config.Chains.Ton.APIKey,
			Timeout: a.Config.Chains.Ton.RequestTimeout,
		}, a.Logger),
		domain.ChainSolana: chains.NewSolana(chains.SolanaOptions{
			APIBase: a.Config.Chains.Solana.APIBase,
			Timeout: a.Config.Chains.Solana.RequestTimeout,
		}, a.Logger),
	}
}

func (a *App) retryPolicy() retry.Policy {
	return retry.Policy{
		BaseDelay:   a.Config.Retry.BaseDelay,
		MaxAttempts: a.Config.Retry.MaxAttempts,
	}
}

// Run executes the long-running bot service: monitor, session janitor,
// health endpoint, and the Telegram event loop.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if a.Config.Telegram.BotToken == "" {
		return errors.New("telegram.bot_token is required")
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	notifier := alerting.NewTelegramNotifier(
		a.Config.Telegram.BotToken, a.Config.Telegram.APIBase, 10*time.Second, a.Logger)

	registry := a.newChains()
	policy := a.retryPolicy()

	sessions := session.NewStore(a.Config.Session.IdleTimeout, a.Logger)
	manager := session.NewManager(session.Options{
		Store:            sessions,
		Chains:           registry,
		Secrets:          storage.NewSecrets(store),
		Wallets:          store,
		Orders:           store,
		Policy:           policy,
		DefaultBuyAmount: decimal.NewFromFloat(a.Config.Session.DefaultBuyAmount),
	}, a.Logger)

	feed := a.newFeed()
	trader := trading.New(store, store, a.Logger)
	router := bot.NewRouter(manager, trader, feed, a.Logger)

	mon := monitor.New(monitor.Options{
		Feed:     feed,
		Alerts:   store,
		Samples:  store,
		Notifier: notifier,
		Policy:   policy,
		Symbols:  a.Config.Monitor.Symbols,
	}, a.Logger)

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Monitor.Interval,
		StartupDelay: a.Config.Monitor.StartupDelay,
	}, a.Logger)

	poller := bot.NewClient(
		a.Config.Telegram.BotToken, a.Config.Telegram.APIBase, a.Config.Telegram.PollTimeout)
	front := bot.New(poller, notifier, router, a.Logger)

	healthSrv := a.startHealthServer()

	go func() {
		if err := sched.Run(ctx, mon.Tick); err != nil && !errors.Is(err, context.Canceled) {
			a.Logger.Error().Err(err).Msg("monitor loop terminated")
		}
	}()
	go sessions.RunJanitor(ctx, a.Config.Session.SweepInterval)

	a.Logger.Info().Msg("starting bot service")
	err = front.Run(ctx)

	if healthSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = healthSrv.Shutdown(shutdownCtx)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("bot service terminated with error")
		return err
	}

	a.Logger.Info().Msg("bot service stopped")
	return nil
}

func (a *App) startHealthServer() *http.Server {
	if a.Config.Health.Addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: a.Config.Health.Addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.Error().Err(err).Msg("health endpoint failed")
		}
	}()
	return srv
}

// ExportOptions hold parameters for exporting historical price samples.
type ExportOptions struct {
	Symbol    string
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}
