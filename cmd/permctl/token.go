package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/orgperm/pkg/server/middleware"
)

// tokenCmd represents the token command
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage operator tokens",
	Long:  `Manage the bearer tokens operators use to call the API.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("error: Command 'token' requires a subcommand (issue)")
		fmt.Println()
		_ = cmd.Help()
		os.Exit(1)
	},
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue <organization> <subject>",
	Short: "Issue an operator token",
	Long: `Issue an operator token for one organization.

The token is signed with PERMCTL_JWT_SECRET and is valid for token_ttl
seconds unless --ttl is given.

Example:
  permctl token issue acme ops@acme.io
  permctl token issue acme ops@acme.io --ttl 15m`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ttl, _ := cmd.Flags().GetDuration("ttl")

		cfg, err := loadConfig()
		if err != nil {
			fail("Failed to issue token", err)
		}
		if cfg.JWTSecret == "" {
			fmt.Fprintln(os.Stderr, "PERMCTL_JWT_SECRET environment variable is required")
			os.Exit(1)
		}
		if ttl <= 0 {
			ttl = cfg.TokenDuration()
		}

		auth := middleware.NewJWTAuthenticator([]byte(cfg.JWTSecret), ttl)
		token, expires, err := auth.Issue(args[1], args[0])
		if err != nil {
			fail("Failed to issue token", err)
		}
		fmt.Println(token)
		fmt.Fprintf(os.Stderr, "expires at %s\n", expires.Format(time.RFC3339))
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenIssueCmd)
	tokenIssueCmd.Flags().Duration("ttl", 0, "token lifetime (defaults to token_ttl)")
}
