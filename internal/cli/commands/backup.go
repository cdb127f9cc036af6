package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"docstack/internal/backup"
	"docstack/internal/types"
)

// BackupCommands creates the backup command group
func BackupCommands(deps *Deps) *cobra.Command {
	backupCmd := &cobra.Command{
		Use:   "backup",
		Short: "Backup operations",
	}

	// docstack backup create
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a backup of the stack",
		Long: `Create a backup. A quick backup captures the database dump and the
deployment configuration live. A full backup additionally stops the
primary service and captures the media files, so the archive is
consistent at the cost of downtime.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			tierName, _ := cmd.Flags().GetString("tier")
			tier := backup.Tier(tierName)
			if tier != backup.TierQuick && tier != backup.TierFull {
				return fmt.Errorf("unknown tier %q: use quick or full", tierName)
			}

			manifest, err := deps.Backups.Snapshot(cmd.Context(), tier)
			if err != nil {
				return err
			}

			fmt.Printf("Backup %s created (%s, %s)\n", manifest.ID, manifest.Tier, formatBytes(manifest.SizeBytes))
			fmt.Printf("  archive:   %s\n", manifest.ArchivePath)
			fmt.Printf("  artifacts: %v\n", manifest.Artifacts)
			for _, w := range manifest.Warnings {
				fmt.Printf("  warning:   %s\n", w)
			}
			return nil
		},
	}
	createCmd.Flags().StringP("tier", "t", string(backup.TierQuick), "Backup tier: quick or full")
	backupCmd.AddCommand(createCmd)

	// docstack backup list
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded backups",
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")

			records, err := deps.BackupRepo.List(cmd.Context())
			if err != nil {
				return err
			}

			summaries := make([]types.BackupSummary, 0, len(records))
			for i := range records {
				manifest, err := backup.FromRecord(&records[i])
				if err != nil {
					return err
				}
				summaries = append(summaries, types.NewBackupSummary(manifest))
			}

			if asJSON {
				return printJSON(summaries)
			}
			if len(summaries) == 0 {
				fmt.Println("No backups recorded.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTIER\tCREATED\tSIZE\tCONSISTENT\tARTIFACTS")
			for _, s := range summaries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%v\n",
					s.ID, s.Tier, s.CreatedAt.Format("2006-01-02 15:04:05"),
					formatBytes(s.SizeBytes), s.Consistent, s.Artifacts)
			}
			return w.Flush()
		},
	}
	listCmd.Flags().Bool("json", false, "Output as JSON")
	backupCmd.AddCommand(listCmd)

	// docstack backup prune
	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete backups beyond the retention limits",
		Long: `Delete the oldest backups so that at most keep_quick quick backups
and keep_full full backups remain. Archives are removed from disk and
their manifest records deleted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := deps.Backups.Prune(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Pruned %d backup(s).\n", removed)
			return nil
		},
	}
	backupCmd.AddCommand(pruneCmd)

	return backupCmd
}
