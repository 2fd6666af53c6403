package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"igsaved/pkg/auth"
	"igsaved/pkg/config"
	"igsaved/pkg/instagram"
	"igsaved/pkg/logger"
	"igsaved/pkg/ui"
)

var loginSkipVerify bool

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Instagram session credentials",
	Long: `Manage stored Instagram session credentials securely.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (read-only fallback)

Never share your session token or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store an Instagram session token securely",
	Long: `Store an Instagram session token in the system keychain or an
encrypted file.

You will be prompted for the sessionid cookie (input is hidden) and an
optional browser user agent. The session is verified against Instagram
before it is saved, which also determines the account's username.`,
	Example: `  # Interactive login
  igsaved auth login

  # Store without the online verification step
  igsaved auth login --no-verify`,
	Run: runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout [username]",
	Short: "Remove stored credentials",
	Long: `Remove stored Instagram credentials.

If no username is provided, you will be shown the stored accounts to
choose from.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogout,
}

// authListCmd represents the auth list command
var authListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored accounts",
	Long:  `List all stored Instagram accounts with the session token masked.`,
	Run:   runAuthList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(authListCmd)

	loginCmd.Flags().BoolVar(&loginSkipVerify, "no-verify", false, "store the session without checking it against Instagram")
}

func runLogin(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	reader := bufio.NewReader(os.Stdin)

	auth.ShowSessionExtractionGuide()

	fmt.Print("Ready to enter your session token? (Y/n): ")
	ready, _ := reader.ReadString('\n')
	if strings.ToLower(strings.TrimSpace(ready)) == "n" {
		fmt.Println("\nRun 'igsaved auth login' when you're ready.")
		return
	}
	fmt.Println()

	fmt.Print("Session ID (hidden): ")
	sessionBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		ui.PrintError("Failed to read session ID", err.Error())
		os.Exit(1)
	}
	sessionID := strings.TrimSpace(string(sessionBytes))
	if sessionID == "" {
		ui.PrintError("Session ID is required")
		os.Exit(1)
	}

	fmt.Print("User agent (press Enter for default): ")
	userAgent, _ := reader.ReadString('\n')
	userAgent = strings.TrimSpace(userAgent)

	account := &auth.Account{
		SessionID: sessionID,
		UserAgent: userAgent,
	}

	if loginSkipVerify {
		fmt.Print("Instagram username: ")
		username, err := reader.ReadString('\n')
		if err != nil {
			ui.PrintError("Failed to read username", err.Error())
			os.Exit(1)
		}
		account.Username = strings.TrimSpace(username)
	} else {
		username, err := verifySession(sessionID, userAgent)
		if err != nil {
			ui.PrintError("Session verification failed", err.Error())
			ui.PrintWarning("The token may be wrong or expired; re-extract it and try again")
			os.Exit(1)
		}
		account.Username = username
		ui.PrintSuccess("Session verified for @" + username)
	}

	if account.Username == "" {
		ui.PrintError("Username is required")
		os.Exit(1)
	}

	if err := manager.Store(account); err != nil {
		ui.PrintError("Failed to store credentials", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Credentials stored for " + account.Username)
}

// verifySession checks the token against Instagram and returns the
// account's username.
func verifySession(sessionID, userAgent string) (string, error) {
	cfg := config.DefaultConfig()
	cfg.Instagram.SessionID = sessionID
	if userAgent != "" {
		cfg.Instagram.UserAgent = userAgent
	}

	client, err := instagram.NewClient(cfg, logger.GetLogger())
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return client.VerifySession(ctx)
}

func runLogout(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	var username string
	if len(args) > 0 {
		username = args[0]
	} else {
		accounts, err := manager.List()
		if err != nil || len(accounts) == 0 {
			ui.PrintWarning("No stored accounts")
			return
		}

		fmt.Println("Stored accounts:")
		for i, account := range accounts {
			fmt.Printf("  %d. %s\n", i+1, account.Username)
		}
		fmt.Print("Account to remove (number or name): ")

		reader := bufio.NewReader(os.Stdin)
		choice, _ := reader.ReadString('\n')
		choice = strings.TrimSpace(choice)

		var idx int
		if _, err := fmt.Sscanf(choice, "%d", &idx); err == nil && idx >= 1 && idx <= len(accounts) {
			username = accounts[idx-1].Username
		} else {
			username = choice
		}
	}

	if username == "" {
		ui.PrintError("No account selected")
		os.Exit(1)
	}

	if err := manager.Delete(username); err != nil {
		ui.PrintError("Failed to remove credentials", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Credentials removed for " + username)
}

func runAuthList(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	accounts, err := manager.List()
	if err != nil {
		ui.PrintError("Failed to list accounts", err.Error())
		os.Exit(1)
	}

	if len(accounts) == 0 {
		ui.PrintWarning("No stored accounts; run 'igsaved auth login'")
		return
	}

	fmt.Printf("%-20s %-24s %s\n", "USERNAME", "SESSION", "LAST MODIFIED")
	for _, account := range accounts {
		masked := auth.SanitizeAccount(account)
		fmt.Printf("%-20s %-24s %s\n", masked.Username, masked.SessionID,
			masked.LastModified.Format("2006-01-02 15:04"))
	}
}
