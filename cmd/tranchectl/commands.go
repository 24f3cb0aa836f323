package main

import (
	"fmt"
	"time"

	"github.com/rpggio/tranche/internal/domain/event"
	"github.com/rpggio/tranche/internal/domain/vesting"
	"github.com/rpggio/tranche/internal/grantfile"
	"github.com/rpggio/tranche/internal/sqlite"
	"github.com/spf13/cobra"
)

const (
	beneficiaryKey = "beneficiary"
	principalKey   = "principal"
	bonusKey       = "bonus"
	startKey       = "start"
	durationKey    = "duration"
	atKey          = "at"
	toKey          = "to"
	accountKey     = "account"
	typeKey        = "type"
	afterKey       = "after"
	limitKey       = "limit"
	descriptionKey = "description"
)

func grantCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grant",
		Short: "Create a grant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			beneficiary, _ := flags.GetString(beneficiaryKey)
			principalStr, _ := flags.GetString(principalKey)
			bonusStr, _ := flags.GetString(bonusKey)
			startStr, _ := flags.GetString(startKey)
			durationStr, _ := flags.GetString(durationKey)

			principal, err := c.parseAmount(principalStr)
			if err != nil {
				return fmt.Errorf("principal: %w", err)
			}
			bonus, err := c.parseAmount(bonusStr)
			if err != nil {
				return fmt.Errorf("bonus: %w", err)
			}
			start := time.Now()
			if startStr != "" {
				if start, err = time.Parse(time.RFC3339, startStr); err != nil {
					return fmt.Errorf("start: %w", err)
				}
			}
			duration, err := grantfile.ParseDuration(durationStr)
			if err != nil {
				return fmt.Errorf("duration: %w", err)
			}

			g, err := c.app.Ledger.CreateGrant(cmd.Context(), c.as, vesting.CreateGrantRequest{
				Beneficiary: vesting.ParseAccount(beneficiary),
				Principal:   principal,
				Bonus:       bonus,
				Start:       start,
				Duration:    duration,
			})
			if err != nil {
				return err
			}
			c.printGrant(cmd, *g)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.String(beneficiaryKey, "", "account receiving the grant (required)")
	flags.String(principalKey, "", "principal, released at the end (required)")
	flags.String(bonusKey, "0", "bonus, released linearly")
	flags.String(startKey, "", "RFC3339 start time (default now)")
	flags.String(durationKey, "", "duration, e.g. 365d or 720h (required)")
	_ = cmd.MarkFlagRequired(beneficiaryKey)
	_ = cmd.MarkFlagRequired(principalKey)
	_ = cmd.MarkFlagRequired(durationKey)
	return cmd
}

func importCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Create every grant in a YAML batch, stopping at the first failure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := grantfile.Load(args[0])
			if err != nil {
				return err
			}
			// --units forces token units for the whole batch.
			if c.units {
				f.Units = true
			}
			reqs, err := f.Requests(c.cfg.Ledger.Decimals)
			if err != nil {
				return err
			}

			created, err := grantfile.Import(cmd.Context(), c.app.Ledger, c.as, reqs)
			for _, g := range created {
				c.printGrant(cmd, g)
			}
			if err != nil {
				return fmt.Errorf("imported %d of %d: %w", len(created), len(reqs), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d grants\n", len(created))
			return nil
		},
	}
}

func totalsCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "totals ACCOUNT",
		Short: "Show an account's vesting totals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := parseAccountArg(args)
			if err != nil {
				return err
			}
			atStr, _ := cmd.Flags().GetString(atKey)

			var totals vesting.Totals
			if atStr == "" {
				totals, err = c.app.Ledger.TotalsNow(cmd.Context(), account)
			} else {
				var at time.Time
				if at, err = time.Parse(time.RFC3339, atStr); err != nil {
					return fmt.Errorf("at: %w", err)
				}
				totals, err = c.app.Ledger.TotalsAt(cmd.Context(), account, at)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "principal  total=%s available=%s claimed=%s\n",
				c.formatAmount(totals.PrincipalTotal), c.formatAmount(totals.PrincipalAvailable), c.formatAmount(totals.PrincipalClaimed))
			fmt.Fprintf(out, "bonus      total=%s available=%s claimed=%s\n",
				c.formatAmount(totals.BonusTotal), c.formatAmount(totals.BonusAvailable), c.formatAmount(totals.BonusClaimed))
			fmt.Fprintf(out, "claimable  %s\n", c.formatAmount(totals.Claimable()))
			return nil
		},
	}
	cmd.Flags().String(atKey, "", "evaluate at this RFC3339 time instead of now")
	return cmd
}

func grantsCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "grants ACCOUNT",
		Short: "List an account's grants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := parseAccountArg(args)
			if err != nil {
				return err
			}
			grants, err := c.app.Ledger.Grants(cmd.Context(), account)
			if err != nil {
				return err
			}
			for _, g := range grants {
				c.printGrant(cmd, g)
			}
			return nil
		},
	}
}

func claimCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "claim ACCOUNT",
		Short: "Pay an account everything unlocked and unclaimed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := parseAccountArg(args)
			if err != nil {
				return err
			}
			ev, err := c.app.Ledger.ClaimAll(cmd.Context(), c.as, account)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "claimed %s (principal %s, bonus %s) for %s\n",
				c.formatAmount(ev.Amount), c.formatAmount(ev.Principal), c.formatAmount(ev.Bonus), ev.Account)
			return nil
		},
	}
}

func pauseCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Pause grant creation and claims",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ev, err := c.app.Ledger.Pause(cmd.Context(), c.as)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "paused by %s at %s\n", ev.By, formatTime(ev.At))
			return nil
		},
	}
}

func unpauseCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "unpause",
		Short: "Resume grant creation and claims",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ev, err := c.app.Ledger.Unpause(cmd.Context(), c.as)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "unpaused by %s at %s\n", ev.By, formatTime(ev.At))
			return nil
		},
	}
}

func rescueCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "rescue",
		Short: "Sweep custody to the rescuer (acts as the configured rescuer unless --as is set)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			caller := c.as
			if !cmd.Flags().Changed(asKey) {
				caller = c.app.Ledger.Roles().Rescuer
			}
			ev, err := c.app.Ledger.RescueAll(cmd.Context(), caller)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rescued %s to %s\n", c.formatAmount(ev.Amount), ev.Rescuer)
			return nil
		},
	}
}

func fundCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fund AMOUNT",
		Short: "Deposit tokens into custody (or --to another holder)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := c.parseAmount(args[0])
			if err != nil {
				return err
			}
			holder := c.app.Ledger.Roles().Custody
			if to, _ := cmd.Flags().GetString(toKey); to != "" {
				holder = vesting.ParseAccount(to)
			}
			if err := c.app.Assets.Deposit(cmd.Context(), holder, amount); err != nil {
				return err
			}
			balance, err := c.app.Assets.BalanceOf(cmd.Context(), holder)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s balance %s\n", holder, c.formatAmount(balance))
			return nil
		},
	}
	cmd.Flags().String(toKey, "", "holder to credit (default: custody)")
	return cmd
}

func balanceCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "balance ACCOUNT",
		Short: "Show an account's token balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			balance, err := c.app.Assets.BalanceOf(cmd.Context(), vesting.ParseAccount(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), c.formatAmount(balance))
			return nil
		},
	}
}

func stateCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Show roles, pause flag and custody balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			state, err := c.app.Ledger.State(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "owner    %s\n", state.Owner)
			fmt.Fprintf(out, "rescuer  %s\n", state.Rescuer)
			fmt.Fprintf(out, "custody  %s (%s)\n", state.Custody, c.formatAmount(state.CustodyBalance))
			fmt.Fprintf(out, "paused   %t\n", state.Paused)
			return nil
		},
	}
}

func eventsCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List ledger events oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			account, _ := flags.GetString(accountKey)
			typ, _ := flags.GetString(typeKey)
			after, _ := flags.GetInt64(afterKey)
			limit, _ := flags.GetInt(limitKey)

			entries, err := c.app.Events.List(cmd.Context(), event.ListOptions{
				Account: vesting.ParseAccount(account),
				Type:    vesting.EventType(typ),
				AfterID: after,
				Limit:   limit,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, e := range entries {
				fmt.Fprintf(out, "%d\t%s\t%s\t%s\t%v\n", e.ID, formatTime(e.OccurredAt), e.Type, e.Account, e.Data)
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.String(accountKey, "", "only events about this account")
	flags.String(typeKey, "", "only events of this type")
	flags.Int64(afterKey, 0, "only events with a larger id")
	flags.Int(limitKey, 0, "maximum number of events (0 = all)")
	return cmd
}

func apikeyCommand(c *cli) *cobra.Command {
	apikey := &cobra.Command{
		Use:   "apikey",
		Short: "Manage bearer tokens for the HTTP transport",
	}
	add := &cobra.Command{
		Use:   "add ACCOUNT",
		Short: "Issue a token acting as ACCOUNT and print it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := parseAccountArg(args)
			if err != nil {
				return err
			}
			description, _ := cmd.Flags().GetString(descriptionKey)
			token := sqlite.GenerateToken()
			if err := c.app.APIKeys.Add(cmd.Context(), token, account, description); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	add.Flags().String(descriptionKey, "", "note stored with the token")
	apikey.AddCommand(add)
	return apikey
}

func (c *cli) printGrant(cmd *cobra.Command, g vesting.Grant) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\tprincipal=%s\tbonus=%s\t%s..%s\n",
		g.ID, g.Beneficiary, c.formatAmount(g.Principal), c.formatAmount(g.Bonus), formatTime(g.Start), formatTime(g.End()))
}

