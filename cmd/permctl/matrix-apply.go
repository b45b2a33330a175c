package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/orgperm/pkg/audit"
	"github.com/doodlesbykumbi/orgperm/pkg/manifest"
)

// matrixApplyCmd represents the matrix apply command
var matrixApplyCmd = &cobra.Command{
	Use:   "apply <file>",
	Short: "Apply a permission manifest",
	Long: `Apply a permission manifest.

The manifest's catalog entries, roles, departments, employees and grants
are written in one transaction. Targets without a permissions list keep
their grants; an empty list clears them.

Example:
  permctl matrix apply acme.yml
  permctl matrix apply acme.yml --dry-run`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		ctx := context.Background()
		env, err := newEnvironment(ctx)
		if err != nil {
			fail("Failed to apply manifest", err)
		}
		defer env.Close()
		audit.SetEnabled(env.cfg.AuditEnabled)

		result, err := applyManifestFile(ctx, newApplier(env).WithDryRun(dryRun), args[0])
		if err != nil {
			fail("Failed to apply manifest", err)
		}
		printApplyResult(result)
	},
}

func init() {
	matrixCmd.AddCommand(matrixApplyCmd)
	matrixApplyCmd.Flags().Bool("dry-run", false, "validate the manifest and roll back instead of committing")
}

func newApplier(env *environment) *manifest.Applier {
	return manifest.NewApplier(manifest.NewGormStore(env.db)).
		WithCache(env.cache).
		WithLogger(env.logger.Logger)
}

// applyManifestFile applies the manifest at path and records the attempt in
// the audit log. Successful dry runs are not audited.
func applyManifestFile(ctx context.Context, applier *manifest.Applier, path string) (*manifest.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer func() { _ = f.Close() }()

	m, err := manifest.Parse(f)
	if err != nil {
		return nil, err
	}

	result, err := applier.Apply(ctx, m)
	if result != nil && result.DryRun {
		return result, err
	}

	event := audit.ManifestEvent{
		OperatorID:     operator(),
		Path:           path,
		OrganizationID: m.Organization,
		Targets:        m.Targets(),
		Success:        err == nil,
	}
	if err != nil {
		event.ErrorMessage = err.Error()
	}
	audit.Log(event)
	return result, err
}

func printApplyResult(result *manifest.Result) {
	verb := "Applied"
	if result.DryRun {
		verb = "Dry run of"
	}
	fmt.Printf("%s manifest for %s: %d permissions, %d roles, %d departments, %d employees, %d grant sets\n",
		verb, result.Organization, result.Permissions, result.Roles, result.Departments, result.Employees, len(result.Saved))
	for _, saved := range result.Saved {
		fmt.Printf("  %s: %d granted, %d denied\n", saved.Target, len(saved.Granted), len(saved.Denied))
	}
}
