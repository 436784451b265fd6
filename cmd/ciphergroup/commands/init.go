package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Generate an identity key pair and store it securely",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := readPassphrase()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "Generating key pair, this can take a few seconds...")
			kp, id, err := wire.Identity.GenerateIdentity(p)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Identity created.\nMailbox: %s\n\nShare this public key with your friends:\n%s", id, kp.PublicKey.PEM())
			return nil
		},
	}
}
