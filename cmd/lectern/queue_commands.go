package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"lectern/internal/ipc"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the conversion queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueAddCommand(ctx))
	queueCmd.AddCommand(newQueueResizeCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pending conversions in FIFO order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueList()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(resp.Items) == 0 {
					fmt.Fprintf(out, "Queue is empty (capacity %d)\n", resp.Capacity)
					return nil
				}

				rows := make([][]string, 0, len(resp.Items))
				for _, item := range resp.Items {
					position := strconv.Itoa(item.Position)
					if item.Position == 0 {
						position = "*"
					}
					rows = append(rows, []string{
						position,
						item.Path,
						item.State,
						strconv.Itoa(item.Percent) + "%",
						item.ETA,
						item.Message,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"#", "Path", "State", "Progress", "ETA", "Detail"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				))
				fmt.Fprintf(out, "%d of %d slots used\n", len(resp.Items), resp.Capacity)
				return nil
			})
		},
	}
}

func newQueueAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <path>",
		Short: "Submit a media file for conversion ahead of the next scan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueAdd(path)
				if err != nil {
					return err
				}
				if !resp.Added {
					return fmt.Errorf("queue add rejected: %s", resp.Message)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued %s\n", path)
				return nil
			})
		},
	}
}

func newQueueResizeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resize <capacity>",
		Short: "Change the queue capacity",
		Long: "Change the queue capacity while the daemon runs. Shrinking below the " +
			"current backlog drops the newest items; they are reported here and marked " +
			"failed so a later scan can pick them up again.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			capacity, err := strconv.Atoi(args[0])
			if err != nil || capacity < 1 {
				return fmt.Errorf("invalid capacity %q", args[0])
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueResize(capacity)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Queue capacity set to %d\n", resp.Capacity)
				for _, dropped := range resp.Dropped {
					fmt.Fprintf(out, "Dropped: %s\n", dropped)
				}
				return nil
			})
		},
	}
}
