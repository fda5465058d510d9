package app

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"p2pool-monitor/internal/alerting"
	"p2pool-monitor/internal/config"
	"p2pool-monitor/internal/logging"
	"p2pool-monitor/internal/service"
	"p2pool-monitor/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	// Out receives command output; defaults to stdout.
	Out io.Writer
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logging.Component(logger, "app"), Out: os.Stdout}
}

func (a *App) out() io.Writer {
	if a.Out == nil {
		return os.Stdout
	}
	return a.Out
}

// newNotifier returns nil when alerting is off or no channel is usable.
func (a *App) newNotifier() alerting.Notifier {
	if !a.Config.Alerting.Enabled {
		return nil
	}
	var notifiers alerting.Multi
	for _, channel := range a.Config.Alerting.Channels {
		switch strings.ToLower(strings.TrimSpace(channel)) {
		case "telegram":
			cfg := a.Config.Alerting.Telegram
			if !cfg.Enabled {
				a.Logger.Warn().Msg("telegram channel listed but alerting.telegram.enabled is false")
				continue
			}
			notifiers = append(notifiers, alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, a.Config.HTTP.Timeout, a.Logger))
		case "log":
			notifiers = append(notifiers, alerting.NewLogNotifier(a.Logger))
		default:
			a.Logger.Warn().Str("channel", channel).Msg("unknown alert channel ignored")
		}
	}
	switch len(notifiers) {
	case 0:
		return nil
	case 1:
		return notifiers[0]
	default:
		return notifiers
	}
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	store, err := storage.Open(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}
	return store, store.Close, nil
}

// Run executes the long-running monitoring service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	opts := service.Options{
		Polling:  service.PollOptions(a.Config),
		Notifier: a.newNotifier(),
		Channels: a.Config.Alerting.Channels,
		Cooldown: a.Config.Alerting.Cooldown,
	}
	if store != nil {
		opts.Store = store
	} else {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}

	svc, err := service.New(service.NewEndpoints(a.Config, a.Logger), opts, a.Logger)
	if err != nil {
		return err
	}

	// SIGHUP polls every source immediately.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				a.Logger.Info().Msg("refresh requested")
				svc.Refresh()
			}
		}
	}()

	a.Logger.Info().Str("base_url", a.Config.P2Pool.BaseURL).Msg("starting monitoring service")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("monitoring service stopped")
	return nil
}

// ShowOptions configure the show command.
type ShowOptions struct {
	// Stored reads the persisted latest snapshots instead of the live API.
	Stored bool
	Blocks int
}

// ExportOptions configure the worker export.
type ExportOptions struct {
	CSVPath string
	PNGPath string
	MaxBars int
}

// ServeOptions override the proxy configuration.
type ServeOptions struct {
	Root   string
	Listen string
	Prefix string
}
