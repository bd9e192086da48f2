package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/sw33tLie/scopediff/internal/utils"
	"github.com/sw33tLie/scopediff/pkg/watch"
)

// runCmd implements: scopediff run
//
//	--dry-run           Compare only: print changes, notify nothing, store nothing
//	--print             Also print changes to stdout when a webhook is configured
//	--concurrency int   Number of keys compared in parallel
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch the latest snapshots and notify about scope changes",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			return fmt.Errorf("unknown command: '%s'. See 'scopediff run --help'", args[0])
		}

		proxy, _ := cmd.Flags().GetString("proxy")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		printAll, _ := cmd.Flags().GetBool("print")
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

		cfg := watch.Config{
			Keys:        keySetFromConfig(),
			Source:      src,
			Store:       store,
			Rules:       rulesFromConfig(),
			Concurrency: viper.GetInt("run.concurrency"),
			DryRun:      dryRun,
			Log:         utils.Log,
		}
		if !dryRun {
			n, err := newNotifier(proxy, printAll)
			if err != nil {
				return err
			}
			cfg.Notifier = n
		}

		report, err := watch.Run(ctx, cfg)
		if err != nil {
			if errors.Is(err, watch.ErrMissingSnapshots) {
				return fmt.Errorf("%w (run 'scopediff seed' first)", err)
			}
			return err
		}

		if dryRun {
			printEvents(ctx, os.Stdout, report.Events())
		}

		for _, k := range report.Keys {
			for _, name := range k.Added {
				utils.Log.Infof("[%s] new program: %s", k.Key, name)
			}
			for _, name := range k.Removed {
				utils.Log.Infof("[%s] program removed: %s", k.Key, name)
			}
		}
		if report.NotifyFailures > 0 {
			utils.Log.Warnf("%d of %d notification(s) failed", report.NotifyFailures, report.NotifyFailures+report.Notified)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Bool("dry-run", false, "Print changes without notifying or updating the store")
	runCmd.Flags().Bool("print", false, "Print changes to stdout in addition to the webhook")
	runCmd.Flags().Int("concurrency", 1, "Number of keys compared in parallel")
	viper.BindPFlag("run.concurrency", runCmd.Flags().Lookup("concurrency"))
}
