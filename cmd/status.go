package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/sw33tLie/scopediff/pkg/snapshot"
	"github.com/sw33tLie/scopediff/pkg/storage"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Prints which snapshots are cached in the store.",
	Long:  "Prints every tracked key, whether a snapshot is cached for it, its size and when it was last written.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		store, _, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		infos, err := store.List(ctx)
		if err != nil {
			return err
		}
		cached := make(map[snapshot.Key]storage.Info, len(infos))
		for _, info := range infos {
			cached[info.Key] = info
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "KEY\tKIND\tCACHED\tSIZE\tUPDATED\t")

		missing := 0
		for _, key := range keySetFromConfig().Keys() {
			info, ok := cached[key]
			if !ok {
				missing++
				fmt.Fprintf(w, "%s\t%s\tno\t-\t-\t\n", key.FileName(), key.Kind)
				continue
			}
			fmt.Fprintf(w, "%s\t%s\tyes\t%d\t%s\t\n", key.FileName(), key.Kind, info.Size, info.UpdatedAt.Format("2006-01-02 15:04:05"))
		}
		w.Flush()

		if missing > 0 {
			fmt.Printf("\n%d snapshots missing, run 'scopediff seed' before 'scopediff run'.\n", missing)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
