package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dhcgn/olm-to-eml/imap"
)

var (
	uploadHost               string
	uploadPort               int
	uploadUser               string
	uploadPass               string
	uploadUseTLS             bool
	uploadInsecureSkipVerify bool
	uploadTargetFolder       string
	uploadDryRun             bool
)

var uploadCmd = &cobra.Command{
	Use:   "upload [eml dir]",
	Short: "Append converted .eml files to an IMAP mailbox",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if uploadPass == "" {
			uploadPass = os.Getenv("IMAP_PASS")
		}
		if uploadPass == "" && !uploadDryRun {
			return fmt.Errorf("IMAP password must be provided via --imap-pass or IMAP_PASS env var")
		}

		uploader, err := imap.NewUploader(imap.Options{
			Host:               uploadHost,
			Port:               uploadPort,
			Username:           uploadUser,
			Password:           uploadPass,
			UseTLS:             uploadUseTLS,
			InsecureSkipVerify: uploadInsecureSkipVerify,
			TargetFolder:       uploadTargetFolder,
			DryRun:             uploadDryRun,
		}, slog.Default())
		if err != nil {
			return err
		}

		uploaded, err := uploader.UploadDir(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Uploaded %d messages to %s\n", uploaded, uploadTargetFolder)
		return nil
	},
}

func init() {
	flags := uploadCmd.Flags()
	flags.StringVar(&uploadHost, "imap-host", "", "IMAP server hostname")
	flags.IntVar(&uploadPort, "imap-port", 993, "IMAP server port")
	flags.StringVar(&uploadUser, "imap-user", "", "IMAP username")
	flags.StringVar(&uploadPass, "imap-pass", "", "IMAP password (falls back to IMAP_PASS env var)")
	flags.BoolVar(&uploadUseTLS, "use-tls", true, "Use TLS for the IMAP connection")
	flags.BoolVar(&uploadInsecureSkipVerify, "insecure-skip-verify", false, "Skip TLS certificate verification (not recommended)")
	flags.StringVar(&uploadTargetFolder, "target-folder", "INBOX", "Target IMAP folder for uploaded mail")
	flags.BoolVar(&uploadDryRun, "dry-run", false, "List what would be uploaded without connecting")

	_ = uploadCmd.MarkFlagRequired("imap-host")
	_ = uploadCmd.MarkFlagRequired("imap-user")

	rootCmd.AddCommand(uploadCmd)
}
