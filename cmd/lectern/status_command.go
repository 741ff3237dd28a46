package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"lectern/internal/ipc"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and conversion status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Status()
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)

				fmt.Fprintf(out, "Daemon:      %s (pid %d)\n", runningLabel(resp.Running, colorize), resp.PID)
				fmt.Fprintf(out, "Library:     %s\n", resp.LibraryDir)
				fmt.Fprintf(out, "Catalog:     %s\n", resp.CacheState)
				fmt.Fprintf(out, "Queue:       %d/%d\n", resp.QueueLength, resp.QueueCapacity)

				for _, dep := range resp.Dependencies {
					label := withColor("ok", ansiGreen, colorize)
					if !dep.Available {
						detail := dep.Detail
						if dep.Optional {
							label = withColor("missing (optional)", ansiYellow, colorize)
						} else {
							label = withColor("missing", ansiRed, colorize)
						}
						if detail != "" {
							label += " - " + detail
						}
					}
					fmt.Fprintf(out, "Tool %-9s %s\n", dep.Name+":", label)
				}

				if len(resp.Entries) == 0 {
					fmt.Fprintln(out, "No conversions tracked")
					return nil
				}

				rows := make([][]string, 0, len(resp.Entries))
				for _, entry := range resp.Entries {
					rows = append(rows, []string{
						entry.Path,
						stateLabel(entry.State, colorize),
						strconv.Itoa(entry.Percent) + "%",
						entry.ETA,
						entry.Message,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Path", "State", "Progress", "ETA", "Detail"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
}

func runningLabel(running, colorize bool) string {
	if running {
		return withColor("running", ansiGreen, colorize)
	}
	return withColor("stopped", ansiRed, colorize)
}

func stateLabel(state string, colorize bool) string {
	switch state {
	case "completed":
		return withColor(state, ansiGreen, colorize)
	case "failed":
		return withColor(state, ansiRed, colorize)
	case "processing":
		return withColor(state, ansiYellow, colorize)
	case "queued":
		return withColor(state, ansiBlue, colorize)
	default:
		return state
	}
}

func withColor(s, color string, colorize bool) string {
	if !colorize {
		return s
	}
	return color + s + ansiReset
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
