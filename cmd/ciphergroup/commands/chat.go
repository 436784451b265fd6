package commands

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ciphergroup/internal/domain"
)

const quitCommand = "/quit"

// chat <guid>: show the group's log, then print live lines while sending
// every line typed on stdin. The receive loop runs alongside.
func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat <guid>",
		Short: "Chat in a group interactively (" + quitCommand + " to leave)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := unlock()
			if err != nil {
				return err
			}
			guid := domain.GroupID(args[0])
			tr := s.State.Trust()
			out := cmd.OutOrStdout()

			for _, line := range tr.History(guid) {
				fmt.Fprintln(out, line)
			}
			feed, err := tr.Open(guid)
			if err != nil {
				return err
			}
			defer tr.Close()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			go func() { _ = s.Receiver.Run(ctx) }()
			go func() {
				for line := range feed {
					fmt.Fprintln(out, line)
				}
			}()

			lines := make(chan string)
			sc := bufio.NewScanner(cmd.InOrStdin())
			go func() {
				defer close(lines)
				for sc.Scan() {
					select {
					case lines <- sc.Text():
					case <-ctx.Done():
						return
					}
				}
			}()

			for {
				select {
				case <-ctx.Done():
					return nil
				case line, ok := <-lines:
					if !ok {
						return sc.Err()
					}
					text := strings.TrimSpace(line)
					if text == "" {
						continue
					}
					if text == quitCommand {
						return nil
					}
					if err := s.Messages.SendText(ctx, guid, text); err != nil {
						wire.Log.WithError(err).Warn("send failed")
					}
				}
			}
		},
	}
}
