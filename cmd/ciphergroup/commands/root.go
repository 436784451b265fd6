package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"ciphergroup/internal/app"
	"ciphergroup/internal/logging"
)

var (
	home       string
	relayURL   string
	logLevel   string
	passphrase string

	wire *app.Wire
)

// Execute runs the CLI until ctx is cancelled or the command returns.
func Execute(ctx context.Context) error {
	root := &cobra.Command{
		Use:           "ciphergroup",
		Short:         "End-to-end encrypted group chat over an untrusted relay",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			if home != "" {
				cfg.Home = home
			}
			if relayURL != "" {
				cfg.RelayURL = relayURL
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			wire, err = app.NewWire(cfg, logging.New(cfg.LogLevel, os.Stderr))
			return err
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "state dir (default ~/.ciphergroup)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase protecting the local state")
	root.PersistentFlags().StringVar(&relayURL, "relay", "", "relay base URL (e.g. http://127.0.0.1:8080)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		initCmd(),
		whoamiCmd(),
		friendCmd(),
		groupCmd(),
		sendCmd(),
		recvCmd(),
		listenCmd(),
		chatCmd(),
	)
	return root.ExecuteContext(ctx)
}

// readPassphrase returns the -p value, or prompts for one on a terminal.
func readPassphrase() (string, error) {
	if passphrase != "" {
		return passphrase, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("passphrase required (-p)")
	}
	fmt.Fprint(os.Stderr, "Passphrase: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	passphrase = string(b)
	return passphrase, nil
}

// unlock opens the local state.
func unlock() (*app.Session, error) {
	p, err := readPassphrase()
	if err != nil {
		return nil, err
	}
	return wire.Open(p)
}
