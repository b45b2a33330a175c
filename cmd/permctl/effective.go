package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/orgperm/pkg/audit"
)

// effectiveCmd represents the effective command
var effectiveCmd = &cobra.Command{
	Use:   "effective <organization> <user>",
	Short: "List a user's effective permissions",
	Long: `List the permission ids a user effectively holds: the role and
department grants plus the user's own grants, minus the user's denials.

Example:
  permctl effective acme ada@acme.io`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		output, _ := cmd.Flags().GetString("output")

		ctx := context.Background()
		env, err := newEnvironment(ctx)
		if err != nil {
			fail("Failed to resolve permissions", err)
		}
		defer env.Close()

		ids, err := env.resolver.Effective(ctx, args[0], args[1])
		if err != nil {
			fail("Failed to resolve permissions", err)
		}
		if output == "json" {
			_ = printJSON(os.Stdout, ids)
			return
		}
		printIDs(os.Stdout, ids.Sorted())
	},
}

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check <organization> <user> <permission-key>",
	Short: "Check whether a user holds a permission",
	Long: `Check whether a user holds a permission, addressed by its key.

The command exits 0 when the permission is held and 2 when it is not.

Example:
  permctl check acme ada@acme.io jobs.post`,
	Args: cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		org, user, key := args[0], args[1], args[2]

		ctx := context.Background()
		env, err := newEnvironment(ctx)
		if err != nil {
			fail("Failed to check permission", err)
		}
		defer env.Close()
		audit.SetEnabled(env.cfg.AuditEnabled)

		allowed, err := env.resolver.Check(ctx, org, user, key)
		if err != nil {
			fail("Failed to check permission", err)
		}
		audit.Log(audit.CheckEvent{
			OperatorID:     operator(),
			ClientIP:       "local",
			OrganizationID: org,
			UserID:         user,
			PermissionKey:  key,
			Allowed:        allowed,
		})

		if !allowed {
			fmt.Println("denied")
			os.Exit(2)
		}
		fmt.Println("allowed")
	},
}

func init() {
	rootCmd.AddCommand(effectiveCmd)
	rootCmd.AddCommand(checkCmd)

	effectiveCmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
}
