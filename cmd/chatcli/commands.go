package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"gwi.com/deepchat/internal/tui"
)

func NewTUICommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive chat UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context())
		},
	}
}

func runTUI(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	// Log lines would tear the alternate screen.
	log.SetOutput(io.Discard)
	defer log.SetOutput(os.Stderr)

	_, err := tea.NewProgram(tui.New(ctx, newClient()), tea.WithAltScreen()).Run()
	return errors.Wrap(err, "chat UI failed")
}

func NewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List chats, most recently updated first",
		RunE: func(cmd *cobra.Command, args []string) error {
			chats, err := newClient().ListChats(cmd.Context())
			if err != nil {
				return err
			}
			sort.SliceStable(chats, func(i, j int) bool {
				return chats[i].UpdatedAt.After(chats[j].UpdatedAt)
			})
			for _, c := range chats {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d messages\t%s\n",
					c.ID, c.Name, len(c.Messages), c.UpdatedAt.Local().Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

func NewCreateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Create an empty chat",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newClient().CreateChat(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Chat created")
			return nil
		},
	}
}

func NewRenameCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rename CHAT_ID NAME...",
		Short: "Rename a chat",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient().RenameChat(cmd.Context(), args[0], strings.Join(args[1:], " "))
		},
	}
}

func NewDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete CHAT_ID",
		Short: "Delete a chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient().DeleteChat(cmd.Context(), args[0])
		},
	}
}

func NewSendCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "send CHAT_ID PROMPT...",
		Short: "Send a prompt and stream the reply to stdout",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			_, err := newClient().SendPrompt(cmd.Context(), args[0], strings.Join(args[1:], " "), func(fragment string) {
				fmt.Fprint(out, fragment)
			})
			fmt.Fprintln(out)
			return err
		},
	}
}
