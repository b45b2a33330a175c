package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/orgperm/pkg/manifest"
)

// catalogCmd represents the catalog command
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the permission catalog",
	Long:  `Show and import the permissions available to an organization.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("error: Command 'catalog' requires a subcommand (show, import)")
		fmt.Println()
		_ = cmd.Help()
		os.Exit(1)
	},
}

var catalogShowCmd = &cobra.Command{
	Use:   "show <organization>",
	Short: "Show the permissions an organization may grant",
	Long: `Show the permissions an organization may grant, grouped by suite.

Example:
  permctl catalog show acme
  permctl catalog show acme --output json`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		output, _ := cmd.Flags().GetString("output")

		ctx := context.Background()
		env, err := newEnvironment(ctx)
		if err != nil {
			fail("Failed to show catalog", err)
		}
		defer env.Close()

		groups, err := env.resolver.Catalog(ctx, args[0])
		if err != nil {
			fail("Failed to show catalog", err)
		}
		if output == "json" {
			_ = printJSON(os.Stdout, groups)
			return
		}
		printCatalog(os.Stdout, groups)
	},
}

var catalogImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import catalog entries from a manifest",
	Long: `Import catalog entries from a manifest.

Only the organization and permissions sections of the manifest are applied.
Every listed permission is created or updated and added to the
organization's allow-list. Grants are left untouched.

Example:
  permctl catalog import catalog.yml`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		f, err := os.Open(args[0])
		if err != nil {
			fail("Failed to open manifest", err)
		}
		defer func() { _ = f.Close() }()

		m, err := manifest.Parse(f)
		if err != nil {
			fail("Failed to import catalog", err)
		}
		catalogOnly := &manifest.Manifest{Organization: m.Organization, Permissions: m.Permissions}

		ctx := context.Background()
		env, err := newEnvironment(ctx)
		if err != nil {
			fail("Failed to import catalog", err)
		}
		defer env.Close()

		result, err := newApplier(env).Apply(ctx, catalogOnly)
		if err != nil {
			fail("Failed to import catalog", err)
		}
		fmt.Printf("Imported %d permissions into %s\n", result.Permissions, result.Organization)
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogShowCmd)
	catalogCmd.AddCommand(catalogImportCmd)

	catalogShowCmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
}
