package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// recv: poll the relay once and process whatever is waiting.
func recvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recv",
		Short: "Fetch and process queued messages once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := unlock()
			if err != nil {
				return err
			}
			n, err := s.Messages.Poll(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d item(s) processed\n", n)
			return nil
		},
	}
}

// listen: run the receive loop until interrupted.
func listenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "listen",
		Short: "Poll the relay until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := unlock()
			if err != nil {
				return err
			}
			wire.Log.WithField("mailbox", s.State.Identifier()).Info("listening")
			_ = s.Receiver.Run(cmd.Context())
			return nil
		},
	}
}
