package config

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"
)

// DefaultAddressPattern recognizes local-part@domain shaped substrings in
// opaque message blobs. It is deliberately loose; the blob extractor is a
// best-effort scanner.
const DefaultAddressPattern = `[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`

// DefaultMinPrintableRun is the minimum length of a printable byte run the
// blob extractor considers text.
const DefaultMinPrintableRun = 6

// Config captures all command-line options for an OLM conversion run.
type Config struct {
	OLMPath   string
	OutputDir string
	// MboxPath, when set, mirrors every converted message into a single
	// mbox file in addition to the per-message EML files.
	MboxPath string
	Dedupe   bool

	MinPrintableRun int
	AddressPattern  string

	LogLevel string
	LogDir   string
}

// RegisterFlags attaches the conversion flags to the provided command.
func RegisterFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	flags.String("olm", "", "Path to the .olm archive to convert")
	flags.String("out", "", "Output directory for the .eml files")
	flags.String("mbox", "", "Optional path of an mbox file mirroring all converted messages")
	flags.Bool("dedupe", false, "Skip messages whose content repeats within the run")
	flags.Int("min-printable-run", DefaultMinPrintableRun, "Minimum printable byte run length the blob scanner treats as text")
	flags.String("address-pattern", DefaultAddressPattern, "Regex used to recognize email addresses in message blobs")
	flags.String("log-level", "info", "Logging level: debug, info, warn, error")
	flags.String("log-dir", "", "Directory for log files (stderr only if empty)")

	if err := cmd.MarkFlagRequired("olm"); err != nil {
		return err
	}
	if err := cmd.MarkFlagRequired("out"); err != nil {
		return err
	}

	return nil
}

// LoadConfig converts the parsed Cobra flags into a Config struct with
// validation.
func LoadConfig(cmd *cobra.Command) (Config, error) {
	flags := cmd.Flags()

	olmPath, err := flags.GetString("olm")
	if err != nil {
		return Config{}, err
	}
	outputDir, err := flags.GetString("out")
	if err != nil {
		return Config{}, err
	}
	mboxPath, err := flags.GetString("mbox")
	if err != nil {
		return Config{}, err
	}
	dedupe, err := flags.GetBool("dedupe")
	if err != nil {
		return Config{}, err
	}
	minPrintableRun, err := flags.GetInt("min-printable-run")
	if err != nil {
		return Config{}, err
	}
	addressPattern, err := flags.GetString("address-pattern")
	if err != nil {
		return Config{}, err
	}
	logLevel, err := flags.GetString("log-level")
	if err != nil {
		return Config{}, err
	}
	logDir, err := flags.GetString("log-dir")
	if err != nil {
		return Config{}, err
	}

	logLevel = strings.ToLower(logLevel)
	if logLevel == "warning" {
		logLevel = "warn"
	}

	cfg := Config{
		OLMPath:         filepath.Clean(olmPath),
		OutputDir:       filepath.Clean(outputDir),
		MboxPath:        mboxPath,
		Dedupe:          dedupe,
		MinPrintableRun: minPrintableRun,
		AddressPattern:  addressPattern,
		LogLevel:        logLevel,
		LogDir:          logDir,
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validateConfig(cfg Config) error {
	if cfg.OLMPath == "" {
		return fmt.Errorf("--olm is required")
	}
	if cfg.OutputDir == "" {
		return fmt.Errorf("--out is required")
	}
	if cfg.MinPrintableRun < 1 {
		return fmt.Errorf("--min-printable-run must be positive")
	}
	if _, err := regexp.Compile(cfg.AddressPattern); err != nil {
		return fmt.Errorf("invalid --address-pattern: %w", err)
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid --log-level: %s", cfg.LogLevel)
	}

	return nil
}
