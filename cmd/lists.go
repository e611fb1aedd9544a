package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/Geergon/fedstat-userbot/internal/config"
	"github.com/Geergon/fedstat-userbot/internal/database"
	"github.com/Geergon/fedstat-userbot/internal/telegram"
)

// withStore opens the configured database for one offline command.
func withStore(opts *options, fn func(*database.Store) error) error {
	cfg, err := config.Load(opts.dir)
	if err != nil {
		return err
	}
	store, err := database.InitDB(cfg.DatabasePath())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	return fn(store)
}

func newFedsCmd(opts *options) *cobra.Command {
	return newPeerListCmd(opts, "feds", "Manage the chats fban commands go to",
		func(s *database.Store) *database.PeerList { return s.Feds })
}

func newGbanChatsCmd(opts *options) *cobra.Command {
	return newPeerListCmd(opts, "gchats", "Manage the gban bot chats",
		func(s *database.Store) *database.PeerList { return s.GbanChats })
}

func newPeerListCmd(opts *options, use, short string, pick func(*database.Store) *database.PeerList) *cobra.Command {
	cmd := &cobra.Command{Use: use, Short: short}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Show the list",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withStore(opts, func(s *database.Store) error {
					peers, err := pick(s).Peers(cmd.Context())
					if err != nil {
						return err
					}
					out := cmd.OutOrStdout()
					if len(peers) == 0 {
						_, _ = fmt.Fprintln(out, "none configured")
						return nil
					}
					for _, p := range peers {
						_, _ = color.New(color.Bold).Fprintf(out, "%d", p.ID)
						_, _ = fmt.Fprintf(out, "\t%s\n", p.Name)
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:     "add [--] <chat_id> [name]",
			Short:   "Add a chat, or rename one already listed",
			Example: "  fedstat-userbot " + use + " add -- -1001234567890 Spam Fed",
			Args:    cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseChatID(args[0])
				if err != nil {
					return err
				}
				name := strings.Join(args[1:], " ")
				if name == "" {
					name = args[0]
				}
				return withStore(opts, func(s *database.Store) error {
					created, err := pick(s).Add(cmd.Context(), id, name)
					if err != nil {
						return err
					}
					verb := "added"
					if !created {
						verb = "updated"
					}
					_, _ = color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "%s %s (%d)\n", verb, name, id)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "rm [--] <chat_id>",
			Short: "Remove a chat",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseChatID(args[0])
				if err != nil {
					return err
				}
				return withStore(opts, func(s *database.Store) error {
					if err := pick(s).Remove(cmd.Context(), id); err != nil {
						return err
					}
					_, _ = color.New(color.FgYellow).Fprintf(cmd.OutOrStdout(), "removed %d\n", id)
					return nil
				})
			},
		},
	)
	return cmd
}

func parseChatID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "chat id %q", s)
	}
	return telegram.RawID(id), nil
}

func newSudoCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{Use: "sudo", Short: "Manage users allowed to run commands"}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Show sudo users",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withStore(opts, func(s *database.Store) error {
					users, err := database.ListSudo(cmd.Context(), s)
					if err != nil {
						return err
					}
					for _, u := range users {
						_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", u.UserID, u.Username)
					}
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "rm <user_id>",
			Short: "Revoke a sudo user",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return errors.Wrapf(err, "user id %q", args[0])
				}
				return withStore(opts, func(s *database.Store) error {
					return removeSudo(cmd.Context(), s, id)
				})
			},
		},
	)
	return cmd
}

func removeSudo(ctx context.Context, s *database.Store, id int64) error {
	if err := database.RemoveSudo(ctx, s, id); err != nil {
		if errors.Is(err, database.ErrPeerNotFound) {
			return errors.Errorf("%d is not a sudo user", id)
		}
		return err
	}
	return nil
}
