package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"ciphergroup/internal/domain"
	"ciphergroup/internal/trust"
)

func groupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Create and inspect groups",
	}
	cmd.AddCommand(groupCreateCmd(), groupListCmd(), groupHistoryCmd())
	return cmd
}

func groupCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name> <friend>...",
		Short: "Create a group with you and the named friends, and announce it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := unlock()
			if err != nil {
				return err
			}
			guid, err := s.Groups.CreateGroup(cmd.Context(), args[0], args[1:])
			if guid != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Group %s created.\n", guid)
			}
			return err
		},
	}
}

func groupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := unlock()
			if err != nil {
				return err
			}
			tr := s.State.Trust()
			for _, guid := range tr.Groups() {
				members, _ := tr.Participants(guid)
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", guid, memberNames(s.State.Self(), tr, members))
			}
			return nil
		},
	}
}

func groupHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <guid>",
		Short: "Print the message log of a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := unlock()
			if err != nil {
				return err
			}
			guid := domain.GroupID(args[0])
			if _, ok := s.State.Trust().Participants(guid); !ok {
				return fmt.Errorf("%w: %s", trust.ErrUnknownGroup, guid)
			}
			for _, line := range s.State.Trust().History(guid) {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
}

func memberNames(self domain.Token, tr *trust.Store, members []domain.Token) string {
	out := ""
	for i, m := range members {
		if i > 0 {
			out += ", "
		}
		if m.Equal(self) {
			out += "you"
			continue
		}
		out += tr.ResolveName(m)
	}
	return out
}
