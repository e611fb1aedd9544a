package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Execute runs the command line until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newRootCmd().ExecuteContext(ctx)
}

type options struct {
	dir   string
	debug bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:          "fedstat-userbot",
		Short:        "Telegram userbot that checks and applies federation bans",
		Long:         "fedstat-userbot logs in as a Telegram user and fans fedstat, fban and gban commands out to every configured federation bot, collecting the answers into one report.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBot(cmd.Context(), opts)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&opts.dir, "config-dir", "c", ".", "directory holding .env and config.yaml")
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "log debug messages to the console")

	rootCmd.AddCommand(
		newRunCmd(opts),
		newFedsCmd(opts),
		newGbanChatsCmd(opts),
		newSudoCmd(opts),
	)
	return rootCmd
}
