package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/orgperm/pkg/audit"
)

// matrixWatchCmd represents the matrix watch command
var matrixWatchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Watch a manifest and apply it whenever it's modified",
	Long: `Watch a manifest and apply it whenever it's modified.

The manifest is applied once on start. A manifest that fails to apply is
reported and the previous grants stay in place until the next change.

Example:
  permctl matrix watch /etc/orgperm/acme.yml`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := watchManifest(args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to watch manifest: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	matrixCmd.AddCommand(matrixWatchCmd)
}

func watchManifest(filename string) error {
	ctx := context.Background()
	env, err := newEnvironment(ctx)
	if err != nil {
		return err
	}
	defer env.Close()
	audit.SetEnabled(env.cfg.AuditEnabled)

	apply := func() {
		fmt.Printf("[%s] Applying %s...\n", time.Now().Format(time.RFC3339), filename)
		result, err := applyManifestFile(ctx, newApplier(env), filename)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error applying manifest: %v\n", err)
			return
		}
		printApplyResult(result)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Editors replace the file on save, which drops a watch on the file itself.
	dir := filepath.Dir(filename)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	fmt.Printf("Watching %s for manifest changes\n", filename)
	apply()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(filename) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				apply()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Watcher error: %v\n", err)
		case <-sigChan:
			fmt.Println("\nShutting down...")
			return nil
		}
	}
}
