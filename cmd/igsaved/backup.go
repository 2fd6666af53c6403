package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"igsaved/pkg/auth"
	"igsaved/pkg/config"
	"igsaved/pkg/errors"
	"igsaved/pkg/instagram"
	"igsaved/pkg/logger"
	"igsaved/pkg/models"
	"igsaved/pkg/pipeline"
	"igsaved/pkg/ui"
	"igsaved/pkg/ui/tui"
)

var (
	// Backup command flags
	backupCollection   string
	backupLimit        int
	backupOutput       string
	backupConcurrent   int
	backupRateLimit    int
	backupMaxRetries   int
	backupSessionID    string
	backupAccount      string
	backupNoArchive    bool
	backupMetadataZip  bool
	backupUseTUI       bool
)

// backupCmd represents the backup command
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Download your saved posts and bundle them into an archive",
	Long: `Download the media and metadata of every post you saved on Instagram.

Posts recorded in a previous run are skipped, so re-running only fetches
what is new. Credentials come from (in order): the --session-id flag, a
stored account ('igsaved auth login'), or the IGSAVED_SESSION_ID
environment variable.`,
	Example: `  # Back up the whole saved feed
  igsaved backup

  # Back up one collection, at most 50 posts
  igsaved backup --collection 17843729156855020 --limit 50

  # Watch progress in a full-screen terminal UI
  igsaved backup --tui

  # Skip the final ZIP
  igsaved backup --no-archive`,
	RunE: runBackup,
}

func init() {
	rootCmd.AddCommand(backupCmd)

	backupCmd.Flags().StringVar(&backupCollection, "collection", "", "collection ID to back up (default: the whole saved feed)")
	backupCmd.Flags().IntVarP(&backupLimit, "limit", "n", 0, "maximum number of posts to process (0 = no limit)")
	backupCmd.Flags().StringVarP(&backupOutput, "output", "o", "", "output directory for downloads")
	backupCmd.Flags().IntVar(&backupConcurrent, "concurrent", 0, "number of concurrent downloads")
	backupCmd.Flags().IntVar(&backupRateLimit, "rate-limit", 0, "requests per minute")
	backupCmd.Flags().IntVar(&backupMaxRetries, "max-retries", 0, "maximum number of retry attempts")
	backupCmd.Flags().StringVar(&backupSessionID, "session-id", "", "Instagram session ID (overrides stored credentials)")
	backupCmd.Flags().StringVarP(&backupAccount, "account", "a", "", "use a specific stored account")
	backupCmd.Flags().BoolVar(&backupNoArchive, "no-archive", false, "skip the final ZIP archive")
	backupCmd.Flags().BoolVar(&backupMetadataZip, "metadata-only-archive", false, "archive only the metadata files")
	backupCmd.Flags().BoolVar(&backupUseTUI, "tui", false, "full-screen terminal UI with live progress")
}

func runBackup(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig()
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		ui.PrintError("Failed to initialize logger", err.Error())
		os.Exit(1)
	}
	log := logger.GetLogger()

	if err := resolveCredentials(cfg); err != nil {
		ui.PrintError("No Instagram session found", err.Error())
		ui.PrintWarning("Run 'igsaved auth login' or set IGSAVED_SESSION_ID")
		os.Exit(1)
	}

	client, err := instagram.NewClient(cfg, log)
	if err != nil {
		ui.PrintError("Failed to create client", err.Error())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := pipeline.New(cfg, client, log)
	opts := pipeline.Options{
		CollectionID:        backupCollection,
		Limit:               backupLimit,
		SkipArchive:         backupNoArchive,
		MetadataOnlyArchive: backupMetadataZip,
	}

	start := time.Now()

	if backupUseTUI {
		return runBackupTUI(ctx, p, opts, start)
	}

	ui.PrintBanner()
	if backupCollection != "" {
		ui.PrintInfo("Collection", backupCollection)
	} else {
		ui.PrintInfo("Source", "saved feed")
	}

	printer := ui.NewPrinter(os.Stdout)
	consumed := make(chan struct{})
	go func() {
		defer close(consumed)
		printer.Consume(p.Events())
	}()

	summary, runErr := p.Run(ctx, opts)
	<-consumed

	printer.PrintSummary(summary, time.Since(start))

	if runErr != nil {
		if ctx.Err() != nil {
			ui.PrintWarning("Cancelled; progress has been saved")
			return nil
		}
		if errors.Is(runErr, errors.KindAuth) {
			ui.PrintError("Session rejected", runErr.Error())
			ui.PrintWarning("Your session may have expired; run 'igsaved auth login' again")
			os.Exit(1)
		}
		ui.PrintError("Backup failed", runErr.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Backup finished")
	return nil
}

// runBackupTUI drives the run under the bubbletea program.
func runBackupTUI(ctx context.Context, p *pipeline.Pipeline, opts pipeline.Options, start time.Time) error {
	program := tui.New(opts.Limit)

	// Quitting the view cancels the run.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		for ev := range p.Events() {
			program.Send(ev)
		}
	}()

	var (
		done    = make(chan struct{})
		summary *models.Summary
		runErr  error
	)
	go func() {
		defer close(done)
		summary, runErr = p.Run(ctx, opts)
		program.Finish(summary, runErr)
	}()

	if err := program.Run(); err != nil {
		cancel()
		<-done
		return err
	}
	cancel()
	<-done

	printer := ui.NewPrinter(os.Stdout)
	printer.PrintSummary(summary, time.Since(start))
	if runErr != nil && ctx.Err() == nil {
		ui.PrintError("Backup failed", runErr.Error())
		os.Exit(1)
	}
	return nil
}

// loadRunConfig folds the backup flags into the layered configuration.
func loadRunConfig() (*config.Config, error) {
	flags := make(map[string]interface{})
	if backupSessionID != "" {
		flags["session-id"] = backupSessionID
	}
	if backupOutput != "" {
		flags["output"] = backupOutput
	}
	if backupConcurrent > 0 {
		flags["concurrent"] = backupConcurrent
	}
	if backupRateLimit > 0 {
		flags["rate-limit"] = backupRateLimit
	}
	if backupMaxRetries > 0 {
		flags["max-retries"] = backupMaxRetries
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}
	return config.Load(configFile, flags)
}

// resolveCredentials fills in the session from stored accounts when the
// config and flags did not provide one.
func resolveCredentials(cfg *config.Config) error {
	if cfg.Instagram.SessionID != "" {
		return nil
	}

	manager, err := auth.NewManager()
	if err != nil {
		return err
	}

	var account *auth.Account
	if backupAccount != "" {
		account, err = manager.Retrieve(backupAccount)
	} else {
		account, err = manager.RetrieveDefault()
	}
	if err != nil {
		return err
	}

	cfg.Instagram.SessionID = account.SessionID
	if account.UserAgent != "" {
		cfg.Instagram.UserAgent = account.UserAgent
	}
	return nil
}
