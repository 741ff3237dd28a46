package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"lectern/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and bootstrap configuration",
	}

	configCmd.AddCommand(newConfigShowCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())

	return configCmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			rows := [][]string{
				{"paths.library_dir", cfg.Paths.LibraryDir},
				{"paths.log_dir", cfg.Paths.LogDir},
				{"paths.socket_path", cfg.Paths.SocketPath},
				{"scanner.interval", cfg.ScanInterval().String()},
				{"scanner.extensions", strings.Join(cfg.Scanner.Extensions, ", ")},
				{"scanner.acceptable_codecs", strings.Join(cfg.Scanner.AcceptableCodecs, ", ")},
				{"encoding.ffmpeg_binary", cfg.Encoding.FFmpegBinary},
				{"encoding.ffprobe_binary", cfg.Encoding.FFprobeBinary},
				{"encoding.target_codec", cfg.Encoding.TargetCodec},
				{"encoding.preset", cfg.Encoding.Preset},
				{"queue.capacity", fmt.Sprint(cfg.Queue.Capacity)},
				{"subtitles.enabled", yesNo(cfg.Subtitles.Enabled)},
				{"logging.format", cfg.Logging.Format},
				{"logging.level", cfg.Logging.Level},
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Setting", "Value"},
				rows,
				[]columnAlignment{alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func newConfigInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a sample configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return err
				}
				path = defaultPath
			}
			if !force {
				if _, _, exists, err := config.Load(path); err == nil && exists {
					return fmt.Errorf("config %s already exists; use --force to overwrite", path)
				}
			}
			if err := config.CreateSample(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration file")
	return cmd
}
