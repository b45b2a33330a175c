package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/orgperm/pkg/audit"
	"github.com/doodlesbykumbi/orgperm/pkg/permission"
	"github.com/doodlesbykumbi/orgperm/pkg/render"
)

// matrixCmd represents the matrix command
var matrixCmd = &cobra.Command{
	Use:   "matrix",
	Short: "Show and edit permission matrices",
	Long: `Show and edit the permission matrix of a role, department or user.

A target is addressed as <organization> <type> <id>, where type is one of
role, department or user.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("error: Command 'matrix' requires a subcommand (show, save, apply, watch)")
		fmt.Println()
		_ = cmd.Help()
		os.Exit(1)
	},
}

var matrixShowCmd = &cobra.Command{
	Use:   "show <organization> <type> <id>",
	Short: "Show a target's permission matrix",
	Long: `Show a target's permission matrix.

Inherited permissions carry a [ROLE] or [DEPT] badge. Permissions a user
has been denied are struck through.

Example:
  permctl matrix show acme role admin
  permctl matrix show acme department eng --parent-role admin
  permctl matrix show acme user ada@acme.io --output html > ada.html`,
	Args: cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		parentRole, _ := cmd.Flags().GetString("parent-role")
		output, _ := cmd.Flags().GetString("output")

		target, err := parseTarget(args[0], args[1], args[2], parentRole)
		if err != nil {
			fail("Invalid target", err)
		}

		ctx := context.Background()
		env, err := newEnvironment(ctx)
		if err != nil {
			fail("Failed to load matrix", err)
		}
		defer env.Close()

		m, err := env.resolver.Load(ctx, target)
		if err != nil {
			fail("Failed to load matrix", err)
		}

		switch output {
		case "json":
			_ = printJSON(os.Stdout, m)
		case "html":
			page, err := render.Page(m)
			if err != nil {
				fail("Failed to render matrix", err)
			}
			_, _ = os.Stdout.Write(page)
		default:
			fmt.Print(render.Markdown(m))
		}
	},
}

var matrixSaveCmd = &cobra.Command{
	Use:   "save <organization> <type> <id> [permission...]",
	Short: "Replace a target's grants",
	Long: `Replace a target's grants with the given permissions, named by id or
by key.

The target's existing grants are replaced in one transaction. For users,
inherited permissions that are not listed are recorded as denials. Pass
--clear to save an empty selection.

Example:
  permctl matrix save acme role admin users.read jobs.post
  permctl matrix save acme department eng --parent-role admin users.read
  permctl matrix save acme user ada@acme.io --clear`,
	Args: cobra.MinimumNArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		parentRole, _ := cmd.Flags().GetString("parent-role")
		clearAll, _ := cmd.Flags().GetBool("clear")

		selected := args[3:]
		if len(selected) == 0 && !clearAll {
			fmt.Fprintln(os.Stderr, "No permissions given; pass --clear to remove every grant")
			os.Exit(1)
		}

		target, err := parseTarget(args[0], args[1], args[2], parentRole)
		if err != nil {
			fail("Invalid target", err)
		}

		ctx := context.Background()
		env, err := newEnvironment(ctx)
		if err != nil {
			fail("Failed to save matrix", err)
		}
		defer env.Close()
		audit.SetEnabled(env.cfg.AuditEnabled)

		catalog, err := env.resolver.Catalog(ctx, target.OrganizationID)
		if err != nil {
			fail("Failed to save matrix", err)
		}
		result, err := env.resolver.Save(ctx, target, resolveSelection(catalog, selected))
		audit.Log(saveEvent(target, result, err))
		if err != nil {
			fail("Failed to save matrix", err)
		}
		fmt.Printf("Saved %s: %d granted, %d denied\n", target, len(result.Granted), len(result.Denied))
	},
}

func init() {
	rootCmd.AddCommand(matrixCmd)
	matrixCmd.AddCommand(matrixShowCmd)
	matrixCmd.AddCommand(matrixSaveCmd)

	matrixShowCmd.Flags().String("parent-role", "", "role the department sits under")
	matrixShowCmd.Flags().StringP("output", "o", "markdown", "Output format (markdown, json or html)")
	matrixSaveCmd.Flags().String("parent-role", "", "role the department sits under")
	matrixSaveCmd.Flags().Bool("clear", false, "save an empty selection")
}

// resolveSelection maps permission keys to ids. Ids and unknown refs pass
// through so Save can reject the ones outside the catalog.
func resolveSelection(catalog []permission.SuiteGroup, refs []string) []string {
	byKey := make(map[string]string)
	for _, g := range catalog {
		for _, e := range g.Entries {
			byKey[e.Key] = e.ID
		}
	}
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		if id, ok := byKey[ref]; ok {
			ref = id
		}
		ids = append(ids, ref)
	}
	return ids
}

func saveEvent(target permission.Target, result *permission.SaveResult, err error) audit.MatrixSaveEvent {
	event := audit.MatrixSaveEvent{
		OperatorID:     operator(),
		ClientIP:       "local",
		OrganizationID: target.OrganizationID,
		TargetType:     target.Type.String(),
		TargetID:       target.ID,
		Success:        err == nil,
	}
	if err != nil {
		event.ErrorMessage = err.Error()
	}
	if result != nil {
		event.Granted = len(result.Granted)
		event.Denied = len(result.Denied)
	}
	return event
}
