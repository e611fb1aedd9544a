package cmd

import (
	"context"

	"github.com/fatih/color"
	"github.com/go-faster/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Geergon/fedstat-userbot/internal/actionlog"
	"github.com/Geergon/fedstat-userbot/internal/config"
	"github.com/Geergon/fedstat-userbot/internal/database"
	"github.com/Geergon/fedstat-userbot/internal/fanout"
	"github.com/Geergon/fedstat-userbot/internal/gban"
	"github.com/Geergon/fedstat-userbot/internal/logging"
	"github.com/Geergon/fedstat-userbot/internal/telegram"
	"github.com/Geergon/fedstat-userbot/internal/tgbot"
)

func newRunCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Log in and handle commands until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBot(cmd.Context(), opts)
		},
	}
}

func runBot(ctx context.Context, opts *options) error {
	cfg, err := config.Load(opts.dir)
	if err != nil {
		return err
	}
	log := logging.New(logging.Options{File: cfg.LogFile(), Debug: opts.debug})
	defer func() { _ = log.Sync() }()

	store, err := database.InitDB(cfg.DatabasePath())
	if err != nil {
		log.Error("Open database", zap.String("path", cfg.DatabasePath()), zap.Error(err))
		return err
	}
	defer func() { _ = store.Close() }()

	client, err := telegram.Connect(cfg, log)
	if err != nil {
		log.Error("Log in", zap.Error(err))
		return err
	}

	registry := fanout.NewRegistry(log)
	adapter := telegram.NewAdapter(client, registry, log)
	notifier, err := actionlog.New(cfg.Telegram.LogChannel, cfg.Telegram.LogBotToken, adapter, log)
	if err != nil {
		return errors.Wrap(err, "action log")
	}

	router := tgbot.NewRouter(tgbot.Deps{
		Config:     cfg,
		Store:      store,
		Chat:       adapter,
		Aggregator: fanout.NewAggregator(adapter, registry, fanout.NewLocks(), log),
		Sweeper:    gban.NewSweeper(log),
		Groups:     adapter,
		Notifier:   notifier,
		Self:       adapter.SelfID(),
		Context:    ctx,
		Log:        log,
	})
	router.Register(client.Dispatcher, adapter.HandleUpdate)

	color.Green("Userbot (@%s) started, prefix %q", client.Self.Username, cfg.Prefix())
	log.Info("Userbot started",
		zap.Int64("id", adapter.SelfID()),
		zap.String("username", client.Self.Username),
	)

	go func() {
		<-ctx.Done()
		log.Info("Shutting down")
		client.Stop()
	}()
	return client.Idle()
}
