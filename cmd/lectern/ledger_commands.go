package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"lectern/internal/ipc"
)

func newLedgerCommand(ctx *commandContext) *cobra.Command {
	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect and manage conversion records",
	}

	ledgerCmd.AddCommand(newLedgerListCommand(ctx))
	ledgerCmd.AddCommand(newLedgerRemoveCommand(ctx))

	return ledgerCmd
}

func newLedgerListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List completed conversions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.LedgerList()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(resp.Records) == 0 {
					fmt.Fprintln(out, "Ledger is empty")
					return nil
				}

				rows := make([][]string, 0, len(resp.Records))
				for _, rec := range resp.Records {
					rows = append(rows, []string{
						strconv.FormatInt(rec.ID, 10),
						rec.ConvertedPath,
						shortFingerprint(rec.Fingerprint),
						yesNo(rec.HasSubtitles),
						rec.CreatedAt.Local().Format(time.DateTime),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Converted", "Fingerprint", "Subs", "Recorded"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}

func newLedgerRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a conversion record and its archived original",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid record id %q", args[0])
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.LedgerDelete(id)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if !resp.Removed {
					fmt.Fprintf(out, "Record %d not found\n", id)
					return nil
				}
				fmt.Fprintf(out, "Removed record %d (%s)\n", id, resp.Record.ConvertedPath)
				return nil
			})
		},
	}
}

func shortFingerprint(fingerprint string) string {
	if len(fingerprint) <= 12 {
		return fingerprint
	}
	return fingerprint[:12]
}
