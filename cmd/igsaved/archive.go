package main

import (
	"os"

	"github.com/spf13/cobra"

	"igsaved/pkg/archive"
	"igsaved/pkg/logger"
	"igsaved/pkg/ui"
)

var (
	archiveOut          string
	archiveMetadataOnly bool
)

// archiveCmd represents the archive command
var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Bundle an existing download directory into a ZIP",
	Long: `Create a ZIP backup from a previously downloaded tree without going
near the network. Useful after a run with --no-archive.`,
	Example: `  # Archive the configured output directory
  igsaved archive

  # Archive only the metadata records
  igsaved archive --metadata-only -o metadata_backup.zip`,
	RunE: func(cmd *cobra.Command, args []string) error {
		runArchive()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(archiveCmd)

	archiveCmd.Flags().StringVarP(&archiveOut, "out", "o", "", "archive path (default: from config)")
	archiveCmd.Flags().BoolVar(&archiveMetadataOnly, "metadata-only", false, "archive only the metadata files")
}

func runArchive() {
	cfg, err := loadRunConfig()
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		ui.PrintError("Failed to initialize logger", err.Error())
		os.Exit(1)
	}

	outPath := archiveOut
	if outPath == "" {
		outPath = cfg.Archive.Path
	}

	if _, err := os.Stat(cfg.Output.BaseDirectory); os.IsNotExist(err) {
		ui.PrintError("Nothing to archive", cfg.Output.BaseDirectory+" does not exist")
		os.Exit(1)
	}

	opts := archive.Options{MetadataOnly: archiveMetadataOnly}
	if err := archive.Create(cfg.Output.BaseDirectory, outPath, opts, logger.GetLogger()); err != nil {
		ui.PrintError("Archive failed", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Archive written to " + outPath)
}
