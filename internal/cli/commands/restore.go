package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"docstack/internal/backup"
	"docstack/internal/errors"
)

// RestoreCommand creates the restore command
func RestoreCommand(deps *Deps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <backup-id-or-directory>",
		Short: "Restore the stack from a backup",
		Long: `Restore the stack from a backup identified by its manifest ID or by
the path to its archive directory. The entire stack is stopped, the
captured config and media are unpacked, the database is dropped and
replayed from the dump, and the stack is brought back up through the
readiness sequence.

This replaces the current database and media. It cannot be undone.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, _ := cmd.Flags().GetBool("yes")

			manifest, err := resolveManifest(cmd.Context(), deps, args[0])
			if err != nil {
				return err
			}

			fmt.Printf("Restoring from backup %s (%s, created %s)\n",
				manifest.ID, manifest.Tier, manifest.CreatedAt.Format("2006-01-02 15:04:05"))
			fmt.Printf("  artifacts: %v\n", manifest.Artifacts)
			if !manifest.Has(backup.ArtifactDatabase) {
				fmt.Println("  note: backup has no database dump; database will not be touched")
			}

			if !yes && !confirm("This replaces the current data. Continue? [y/N] ") {
				fmt.Println("Aborted.")
				return nil
			}

			report, err := deps.Backups.Restore(cmd.Context(), manifest)
			if err != nil {
				return err
			}
			fmt.Println("Restore complete:", report.Summary())
			return nil
		},
	}
	cmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

// resolveManifest accepts either a recorded backup ID or a path to a backup
// directory holding a manifest.json.
func resolveManifest(ctx context.Context, deps *Deps, ref string) (*backup.Manifest, error) {
	if info, err := os.Stat(ref); err == nil && info.IsDir() {
		return backup.ReadManifest(ref)
	}

	rec, err := deps.BackupRepo.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, errors.Newf(errors.ErrManifestNotFound, "no backup with id %q; run docstack backup list", ref)
	}
	return backup.FromRecord(rec)
}

func confirm(prompt string) bool {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
