package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ciphergroup/internal/domain"
)

// send <guid> <text...>: sign and fan out one line to the group.
func sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <guid> <text>...",
		Short: "Send a line of text to a group",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := unlock()
			if err != nil {
				return err
			}
			text := strings.Join(args[1:], " ")
			if err := s.Messages.SendText(cmd.Context(), domain.GroupID(args[0]), text); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "sent")
			return nil
		},
	}
}
