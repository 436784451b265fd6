package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"ciphergroup/internal/crypto"
)

func whoamiCmd() *cobra.Command {
	var keyOnly bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Print your mailbox identifier and public key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := readPassphrase()
			if err != nil {
				return err
			}
			kp, err := wire.Identity.LoadIdentity(p)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !keyOnly {
				fmt.Fprintf(out, "Mailbox: %s\n", crypto.Identifier(kp.PublicKey))
			}
			fmt.Fprint(out, kp.PublicKey.PEM())
			return nil
		},
	}
	cmd.Flags().BoolVar(&keyOnly, "key", false, "print only the public key")
	return cmd
}
