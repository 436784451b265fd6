package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"ciphergroup/internal/crypto"
	"ciphergroup/internal/domain"
)

func friendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "friend",
		Short: "Manage trusted public keys",
	}
	cmd.AddCommand(friendAddCmd(), friendListCmd())
	return cmd
}

// friend add <name> <file|->: trust the PEM public key in file (or stdin).
func friendAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <name> <pem-file|->",
		Short: "Trust a friend's public key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readKeyFile(cmd, args[1])
			if err != nil {
				return err
			}
			token := domain.ParseToken(string(raw))
			if _, err := crypto.ParsePublicKey(token); err != nil {
				return fmt.Errorf("not a public key: %w", err)
			}

			s, err := unlock()
			if err != nil {
				return err
			}
			if err := s.Groups.AddFriend(cmd.Context(), args[0], token); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", args[0], crypto.Identifier(token))
			return nil
		},
	}
}

func friendListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List friends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := unlock()
			if err != nil {
				return err
			}
			tr := s.State.Trust()
			for _, name := range tr.Friends() {
				tok, _ := tr.FriendByName(name)
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", name, crypto.Identifier(tok))
			}
			return nil
		},
	}
}

func readKeyFile(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}
