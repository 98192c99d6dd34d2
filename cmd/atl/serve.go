package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zulandar/atelier/internal/config"
	"github.com/zulandar/atelier/internal/dashboard"
	"github.com/zulandar/atelier/internal/notify"
	discordadapter "github.com/zulandar/atelier/internal/notify/discord"
	slackadapter "github.com/zulandar/atelier/internal/notify/slack"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Atelier API server",
		Long: `Launches the JSON API with SSE streaming. When chat platforms are
configured, also watches for artifact activity and announces it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "atelier.yaml", "path to Atelier config file")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "port to listen on")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	svc, err := buildService(cmd, cfg, gormDB)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	adapters, err := notifyAdapters(cfg)
	if err != nil {
		return err
	}
	if len(adapters) > 0 {
		watcher, err := notify.NewWatcher(notify.WatcherOpts{
			DB:         gormDB,
			DigestCron: cfg.Notify.DigestCron,
		})
		if err != nil {
			return err
		}
		notifier := notify.NewNotifier(adapters, nil)
		defer notifier.Close()
		go notifier.Run(ctx, watcher.Run(ctx))
		fmt.Fprintf(cmd.OutOrStdout(), "Announcing artifact activity to %d platform(s)\n", len(adapters))
	}

	return dashboard.Start(ctx, dashboard.StartOpts{
		DB:      gormDB,
		Service: svc,
		Port:    port,
		Out:     cmd.OutOrStdout(),
	})
}

// notifyAdapters builds one chat adapter per configured platform.
func notifyAdapters(cfg *config.Config) ([]notify.Adapter, error) {
	var adapters []notify.Adapter
	if cfg.Notify.Slack.BotToken != "" {
		a, err := slackadapter.New(slackadapter.AdapterOpts{
			BotToken:  cfg.Notify.Slack.BotToken,
			ChannelID: cfg.Notify.Slack.Channel,
		})
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}
	if cfg.Notify.Discord.BotToken != "" {
		a, err := discordadapter.New(discordadapter.AdapterOpts{
			BotToken:  cfg.Notify.Discord.BotToken,
			ChannelID: cfg.Notify.Discord.ChannelID,
		})
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}
	return adapters, nil
}
