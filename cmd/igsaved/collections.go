package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"igsaved/pkg/instagram"
	"igsaved/pkg/logger"
	"igsaved/pkg/ui"
)

// collectionsCmd represents the collections command
var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "List your saved-post collections",
	Long: `List the collections you created for your saved posts, with their IDs.

Pass an ID to 'igsaved backup --collection' to back up just one of them.`,
	Example: `  igsaved collections`,
	RunE: func(cmd *cobra.Command, args []string) error {
		runCollections()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(collectionsCmd)
}

func runCollections() {
	cfg, err := loadRunConfig()
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		ui.PrintError("Failed to initialize logger", err.Error())
		os.Exit(1)
	}

	if err := resolveCredentials(cfg); err != nil {
		ui.PrintError("No Instagram session found", err.Error())
		ui.PrintWarning("Run 'igsaved auth login' or set IGSAVED_SESSION_ID")
		os.Exit(1)
	}

	client, err := instagram.NewClient(cfg, logger.GetLogger())
	if err != nil {
		ui.PrintError("Failed to create client", err.Error())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collections, err := client.ListCollections(ctx)
	if err != nil {
		ui.PrintError("Failed to list collections", err.Error())
		os.Exit(1)
	}

	ui.PrintCollections(os.Stdout, collections)
}
