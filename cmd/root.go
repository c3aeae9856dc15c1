package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/dhcgn/olm-to-eml/config"
	"github.com/dhcgn/olm-to-eml/runner"
)

var rootCmd = &cobra.Command{
	Use:   "olm-to-eml",
	Short: "Convert Outlook for Mac .olm archives into individual .eml files",
	Long: `olm-to-eml unpacks an Outlook for Mac archive, extracts every message
entry it contains (XML or blob encoded), and writes one RFC 5322 .eml file
per message. Subcommands tabulate, chunk, and classify the converted
messages, or upload them to an IMAP mailbox.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(cmd)
		if err != nil {
			return err
		}

		logger, cleanup, err := setupLogger(cfg.LogLevel, cfg.LogDir)
		if err != nil {
			return err
		}
		defer func() {
			_ = cleanup()
		}()

		slog.SetDefault(logger)
		logger.Info("starting conversion", "olm", cfg.OLMPath, "out", cfg.OutputDir, "dedupe", cfg.Dedupe)

		r, err := runner.New(cfg, logger)
		if err != nil {
			return err
		}

		summary, err := r.Run()
		if err != nil {
			return err
		}

		fmt.Printf("Converted %d of %d messages (%d duplicates, %d failed)\n",
			summary.Converted, summary.Discovered, summary.Duplicates, summary.Failed)
		return nil
	},
}

// Execute runs the CLI.
func Execute() {
	if err := config.RegisterFlags(rootCmd); err != nil {
		fmt.Fprintf(os.Stderr, "failed to register CLI flags: %v\n", err)
		os.Exit(1)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogger(logLevel, logDir string) (*slog.Logger, func() error, error) {
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)

	switch logLevel {
	case "debug":
		level.Set(slog.LevelDebug)
	case "info":
		level.Set(slog.LevelInfo)
	case "warn":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	}

	opts := &slog.HandlerOptions{Level: level}
	cleanup := func() error { return nil }

	var out io.Writer = os.Stderr
	if logDir != "" {
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return nil, cleanup, err
		}

		logFilePath := filepath.Join(logDir, fmt.Sprintf("olm-to-eml-%s.log", time.Now().Format("20060102T150405")))
		file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, cleanup, err
		}
		out = io.MultiWriter(os.Stderr, file)
		cleanup = file.Close
	}

	return slog.New(slog.NewTextHandler(out, opts)), cleanup, nil
}
