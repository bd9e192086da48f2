package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/spf13/viper"
	"github.com/sw33tLie/scopediff/internal/utils"
	"github.com/sw33tLie/scopediff/pkg/diff"
	"github.com/sw33tLie/scopediff/pkg/notify"
	"github.com/sw33tLie/scopediff/pkg/snapshot"
	"github.com/sw33tLie/scopediff/pkg/source"
	"github.com/sw33tLie/scopediff/pkg/storage"
	"github.com/sw33tLie/scopediff/pkg/whttp"
)

// SCOPEDIFF_NOTIFY_WEBHOOK -> notify.webhook
var envKeyReplacer = strings.NewReplacer(".", "_")

func rulesFromConfig() diff.Rules {
	return diff.NewRules(diff.RuleConfig{
		Fields:          viper.GetStringSlice("rules.fields"),
		AssetCategories: viper.GetStringSlice("rules.assetcategories"),
		ValueKeys:       viper.GetStringSlice("rules.valuekeys"),
		IdentityKeys:    viper.GetStringSlice("rules.identitykeys"),
		TypeKeys:        viper.GetStringSlice("rules.typekeys"),
	})
}

func keySetFromConfig() snapshot.KeySet {
	return snapshot.KeySet{
		Platforms: viper.GetStringSlice("keys.platforms"),
		Lists:     viper.GetStringSlice("keys.lists"),
	}
}

func httpClient(proxy string) (*retryablehttp.Client, error) {
	return whttp.NewClient(whttp.ClientOptions{
		RetryMax: viper.GetInt("source.retries"),
		Timeout:  time.Duration(viper.GetInt("source.timeout")) * time.Second,
		Proxy:    proxy,
	})
}

func newSource(proxy string) (*source.HTTP, error) {
	client, err := httpClient(proxy)
	if err != nil {
		return nil, err
	}
	return source.NewHTTP(viper.GetString("source.baseurl"), client), nil
}

// newNotifier returns the configured webhook, the console printer, or both.
func newNotifier(proxy string, printEvents bool) (notify.Notifier, error) {
	var ns notify.Multi
	if hook := viper.GetString("notify.webhook"); hook != "" {
		client, err := httpClient(proxy)
		if err != nil {
			return nil, err
		}
		ns = append(ns, notify.NewWebhook(hook, client))
	} else {
		utils.Log.Info("No webhook configured (notify.webhook), printing changes instead.")
		printEvents = true
	}
	if printEvents {
		ns = append(ns, &notify.Console{W: os.Stdout})
	}
	return ns, nil
}

// openStore opens the configured backend and returns the directory that holds
// the run lock.
func openStore(ctx context.Context) (storage.Backend, string, error) {
	dataDir, err := utils.GetAbsDataDir(viper.GetString("store.dir"))
	if err != nil {
		return nil, "", err
	}

	switch backend := viper.GetString("store.backend"); backend {
	case "", "file":
		fs, err := storage.NewFileStore(dataDir)
		if err != nil {
			return nil, "", err
		}
		return fs, dataDir, nil
	case "sqlite":
		dbPath := viper.GetString("store.dbpath")
		if dbPath == "" {
			if err := os.MkdirAll(dataDir, 0o755); err != nil {
				return nil, "", err
			}
			dbPath = filepath.Join(dataDir, "scopediff.sqlite")
		}
		db, err := storage.Open(dbPath)
		if err != nil {
			return nil, "", err
		}
		return db, filepath.Dir(dbPath), nil
	case "postgres":
		dsn := viper.GetString("store.dsn")
		if dsn == "" {
			return nil, "", fmt.Errorf("store.dsn is required for the postgres backend")
		}
		pg, err := storage.OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, "", err
		}
		return pg, dataDir, nil
	default:
		return nil, "", fmt.Errorf("unknown store backend: %s", backend)
	}
}

// printEvents writes events to w through the console notifier. Failed writes
// are logged and counted, the remaining events are still printed.
func printEvents(ctx context.Context, w io.Writer, events []diff.Event) int {
	console := &notify.Console{W: w}
	failed := 0
	for _, ev := range events {
		if err := console.Notify(ctx, ev); err != nil {
			failed++
			utils.Log.Warnf("Could not print change for %s: %v", ev.Subject(), err)
		}
	}
	return failed
}
