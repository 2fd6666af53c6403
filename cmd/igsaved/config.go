package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"igsaved/pkg/config"
	"igsaved/pkg/ui"
)

var configInitForce bool

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Inspect and bootstrap the igsaved configuration file.`,
}

// configInitCmd represents the config init command
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the defaults",
	Long: `Write a starter configuration file to $HOME/.igsaved.yaml (or the path
given with --config) containing the default settings.`,
	Example: `  igsaved config init

  # Overwrite an existing file
  igsaved config init --force`,
	Run: runConfigInit,
}

// configShowCmd represents the config show command
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after merging defaults, config file,
environment variables, and flags. The session token is masked.`,
	Run: runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false, "overwrite an existing config file")
}

func runConfigInit(cmd *cobra.Command, args []string) {
	path := configFile
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			ui.PrintError("Failed to determine home directory", err.Error())
			os.Exit(1)
		}
		path = filepath.Join(home, ".igsaved.yaml")
	}

	if _, err := os.Stat(path); err == nil && !configInitForce {
		ui.PrintError("Config file already exists", path)
		ui.PrintWarning("Use --force to overwrite")
		os.Exit(1)
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(path); err != nil {
		ui.PrintError("Failed to write config file", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Config written to " + path)
	ui.PrintInfo("Next step", "edit the file or run 'igsaved auth login' to store a session")
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	// Never print the real token.
	if cfg.Instagram.SessionID != "" {
		cfg.Instagram.SessionID = maskToken(cfg.Instagram.SessionID)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		ui.PrintError("Failed to render configuration", err.Error())
		os.Exit(1)
	}

	fmt.Print(string(data))
}

func maskToken(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
