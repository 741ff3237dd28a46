package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"lectern/internal/ipc"
)

func newCandidatesCommand(ctx *commandContext) *cobra.Command {
	var onlyPending bool

	cmd := &cobra.Command{
		Use:   "candidates",
		Short: "Show the catalog from the most recent library scan",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Candidates()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()

				if resp.ScannedAt.IsZero() {
					fmt.Fprintf(out, "No scan completed yet (catalog %s)\n", resp.CacheState)
					return nil
				}
				fmt.Fprintf(out, "Catalog %s, scanned %s\n", resp.CacheState, resp.ScannedAt.Format(time.RFC3339))

				rows := make([][]string, 0, len(resp.Candidates))
				for _, c := range resp.Candidates {
					if onlyPending && (!c.NeedsConversion || c.Processed) {
						continue
					}
					rows = append(rows, []string{
						c.Course,
						c.Section,
						c.Filename,
						c.Codec,
						fmt.Sprintf("%.1f", c.SizeMB),
						formatDuration(c.DurationSeconds),
						yesNo(c.NeedsConversion),
						c.Status,
					})
				}
				if len(rows) == 0 {
					fmt.Fprintln(out, "No matching candidates")
					return nil
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Course", "Section", "File", "Codec", "MB", "Length", "Convert", "State"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&onlyPending, "pending", false, "Show only unconverted files that need conversion")
	return cmd
}

func formatDuration(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	return d.String()
}
