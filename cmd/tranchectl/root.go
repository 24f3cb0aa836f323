package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/holiman/uint256"
	"github.com/rpggio/tranche/internal/app"
	"github.com/rpggio/tranche/internal/config"
	"github.com/rpggio/tranche/internal/domain/vesting"
	"github.com/rpggio/tranche/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	configKey = "config"
	asKey     = "as"
	unitsKey  = "units"
)

// cli holds the ledger opened for one command.
type cli struct {
	cfg   config.Config
	app   *app.App
	as    vesting.Account
	units bool
}

// execute runs one command line. The ledger is closed even when the
// command fails.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root, c := newRootCommand()
	defer c.close()

	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

func newRootCommand() (*cobra.Command, *cli) {
	c := &cli{}
	root := &cobra.Command{
		Use:           "tranchectl",
		Short:         "Administer a tranche vesting ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.open(cmd)
		},
	}
	addGlobalFlags(root.PersistentFlags())

	root.AddCommand(
		grantCommand(c),
		importCommand(c),
		totalsCommand(c),
		grantsCommand(c),
		claimCommand(c),
		pauseCommand(c),
		unpauseCommand(c),
		rescueCommand(c),
		fundCommand(c),
		balanceCommand(c),
		stateCommand(c),
		eventsCommand(c),
		apikeyCommand(c),
	)
	return root, c
}

func addGlobalFlags(flags *pflag.FlagSet) {
	flags.String(configKey, "", "path to YAML config (default $TRANCHE_CONFIG_PATH)")
	flags.String(asKey, "", "account to act as (default: the configured owner)")
	flags.Bool(unitsKey, false, "read and print amounts as decimal token units")
}

func (c *cli) open(cmd *cobra.Command) error {
	flags := cmd.Flags()
	path, err := flags.GetString(configKey)
	if err != nil {
		return err
	}
	if c.cfg, err = config.Load(path); err != nil {
		return err
	}
	as, err := flags.GetString(asKey)
	if err != nil {
		return err
	}
	if c.units, err = flags.GetBool(unitsKey); err != nil {
		return err
	}

	// Counters live in the server process.
	c.cfg.Metrics.Enabled = false
	logger, _, err := logging.New(config.LogConfig{Level: c.cfg.Log.Level}, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if c.app, err = app.Open(cmd.Context(), c.cfg, app.Options{Logger: logger}); err != nil {
		return err
	}

	c.as = c.app.Ledger.Roles().Owner
	if as != "" {
		c.as = vesting.ParseAccount(as)
	}
	return nil
}

func (c *cli) close() error {
	if c.app == nil {
		return nil
	}
	err := c.app.Close()
	c.app = nil
	return err
}

func (c *cli) parseAmount(s string) (uint256.Int, error) {
	if c.units {
		return vesting.ParseUnits(s, c.cfg.Ledger.Decimals)
	}
	return vesting.ParseAmount(s)
}

func (c *cli) formatAmount(v uint256.Int) string {
	if c.units {
		return vesting.FormatUnits(v, c.cfg.Ledger.Decimals)
	}
	return v.Dec()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseAccountArg(args []string) (vesting.Account, error) {
	account := vesting.ParseAccount(args[0])
	if account.IsNull() {
		return "", fmt.Errorf("invalid account %q", args[0])
	}
	return account, nil
}
