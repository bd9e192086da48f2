package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/sw33tLie/scopediff/internal/utils"
	"github.com/sw33tLie/scopediff/pkg/watch"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Download and store the current snapshots without notifying",
	Long: `Download every tracked snapshot and store it as the known state.
Run this once before the first 'scopediff run'. Keys that are already cached are
kept unless --force is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		proxy, _ := cmd.Flags().GetString("proxy")
		force, _ := cmd.Flags().GetBool("force")
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		store, lockDir, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		lock, err := utils.NewRunLock(lockDir)
		if err != nil {
			return err
		}
		if err := lock.Lock(); err != nil {
			return err
		}
		defer lock.Unlock()

		src, err := newSource(proxy)
		if err != nil {
			return err
		}

		report := watch.Seed(ctx, watch.Config{
			Keys:        keySetFromConfig(),
			Source:      src,
			Store:       store,
			Concurrency: viper.GetInt("run.concurrency"),
			Log:         utils.Log,
		}, force)

		utils.Log.Infof("Seeded %d keys, %d already cached, %d skipped",
			report.Count(watch.StatusSeeded), report.Count(watch.StatusUnchanged), report.Count(watch.StatusSkipped))
		if n := report.Count(watch.StatusSkipped); n > 0 {
			return fmt.Errorf("%d keys could not be seeded", n)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().Bool("force", false, "Overwrite snapshots that are already cached")
}
