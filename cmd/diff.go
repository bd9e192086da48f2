package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"
	"github.com/sw33tLie/scopediff/pkg/diff"
	"github.com/sw33tLie/scopediff/pkg/snapshot"
)

// diffCmd compares two local snapshot files for one key, offline.
var diffCmd = &cobra.Command{
	Use:   "diff <old> <new>",
	Short: "Compare two local snapshot files and print the detected changes",
	Long: `Compare two local snapshot files with the same rules 'run' uses.
The key is taken from the file name of <new> (hackerone_data.json, domains.txt)
unless --key says otherwise. Files ending in .txt are compared as flat lists.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		oldPath, newPath := args[0], args[1]
		keyName, _ := cmd.Flags().GetString("key")
		isList, _ := cmd.Flags().GetBool("list")
		unified, _ := cmd.Flags().GetBool("unified")

		key, err := diffKey(newPath, keyName, isList)
		if err != nil {
			return err
		}

		oldData, err := os.ReadFile(oldPath)
		if err != nil {
			return err
		}
		newData, err := os.ReadFile(newPath)
		if err != nil {
			return err
		}

		events, added, removed, err := compareFiles(key, oldData, newData)
		if err != nil {
			return err
		}

		if unified {
			text, err := unifiedDiff(key, oldPath, newPath, oldData, newData)
			if err != nil {
				return err
			}
			fmt.Print(text)
		}

		printEvents(context.Background(), os.Stdout, events)
		for _, name := range added {
			fmt.Printf("+  %s  %s (new program)\n", key, name)
		}
		for _, name := range removed {
			fmt.Printf("-  %s  %s (removed program)\n", key, name)
		}
		if len(events) == 0 && len(added) == 0 && len(removed) == 0 {
			fmt.Println("No relevant changes.")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(diffCmd)
	diffCmd.Flags().String("key", "", "Key name (platform or list), defaults to the name of <new>")
	diffCmd.Flags().Bool("list", false, "Treat the files as flat domain lists")
	diffCmd.Flags().Bool("unified", false, "Also print a unified diff of the two files")
}

func diffKey(newPath, name string, isList bool) (snapshot.Key, error) {
	if name == "" {
		if key, err := snapshot.ParseKey(filepath.Base(newPath)); err == nil {
			if isList {
				key.Kind = snapshot.KindList
			}
			return key, nil
		}
		name = strings.TrimSuffix(filepath.Base(newPath), filepath.Ext(newPath))
	}
	if name == "" {
		return snapshot.Key{}, fmt.Errorf("cannot derive a key from %s, use --key", newPath)
	}
	kind := snapshot.KindProgram
	if isList || filepath.Ext(newPath) == ".txt" {
		kind = snapshot.KindList
	}
	return snapshot.Key{Name: name, Kind: kind}, nil
}

func compareFiles(key snapshot.Key, oldData, newData []byte) (events []diff.Event, added, removed []string, err error) {
	if key.Kind == snapshot.KindList {
		if ev := diff.NewDomainListChange(key.Name, diff.DiffLines(diff.ParseLines(oldData), diff.ParseLines(newData))); ev != nil {
			events = append(events, ev)
		}
		return events, nil, nil, nil
	}

	oldRecs, err := diff.ParsePrograms(oldData)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("old snapshot: %w", err)
	}
	newRecs, err := diff.ParsePrograms(newData)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("new snapshot: %w", err)
	}
	res, err := diff.DiffPrograms(key.Name, oldRecs, newRecs, rulesFromConfig())
	if err != nil {
		return nil, nil, nil, err
	}
	return res.Events, res.Added, res.Removed, nil
}

// unifiedDiff renders lists as sorted lines and program snapshots as
// indented JSON before diffing them.
func unifiedDiff(key snapshot.Key, oldPath, newPath string, oldData, newData []byte) (string, error) {
	a, err := diffText(key, oldData)
	if err != nil {
		return "", err
	}
	b, err := diffText(key, newData)
	if err != nil {
		return "", err
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(a),
		B:        difflib.SplitLines(b),
		FromFile: oldPath,
		ToFile:   newPath,
		Context:  3,
	})
}

func diffText(key snapshot.Key, data []byte) (string, error) {
	if key.Kind == snapshot.KindList {
		return strings.Join(diff.ParseLines(data).Sorted(), "\n") + "\n", nil
	}
	return indentJSON(data)
}

func indentJSON(data []byte) (string, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return "", err
	}
	buf.WriteByte('\n')
	return buf.String(), nil
}
