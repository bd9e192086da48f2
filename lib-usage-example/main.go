package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/sw33tLie/scopediff/pkg/diff"
	"github.com/sw33tLie/scopediff/pkg/snapshot"
	"github.com/sw33tLie/scopediff/pkg/source"
	"github.com/sw33tLie/scopediff/pkg/whttp"
)

func main() {
	// Usage: go run *.go -platform hackerone -old ./hackerone_data.json

	platformFlag := flag.String("platform", "hackerone", "Platform snapshot to fetch")
	oldFlag := flag.String("old", "", "Previously saved snapshot of the same platform")

	// Parse the command-line flags
	flag.Parse()

	if *oldFlag == "" {
		fmt.Println("A previous snapshot is required. Please provide it using -old flag.")
		return
	}

	oldData, err := os.ReadFile(*oldFlag)
	if err != nil {
		fmt.Println(err)
		return
	}

	client, err := whttp.NewClient(whttp.ClientOptions{RetryMax: 3})
	if err != nil {
		fmt.Println(err)
		return
	}

	// Lists work the same way with snapshot.KindList and diff.DiffLines
	key := snapshot.Key{Name: *platformFlag, Kind: snapshot.KindProgram}
	newData, err := source.NewHTTP(source.DefaultBaseURL, client).Fetch(context.Background(), key)
	if err != nil {
		fmt.Println(err)
		return
	}

	oldRecs, err := diff.ParsePrograms(oldData)
	if err != nil {
		fmt.Println(err)
		return
	}
	newRecs, err := diff.ParsePrograms(newData)
	if err != nil {
		fmt.Println(err)
		return
	}

	res, err := diff.DiffPrograms(key.Name, oldRecs, newRecs, diff.DefaultRules())
	if err != nil {
		fmt.Println(err)
		return
	}

	for _, ev := range res.Events {
		if tc, ok := ev.(*diff.TargetsChange); ok {
			for _, v := range tc.InScope {
				fmt.Println(tc.ProgramName, v.Value, v.AssetType)
			}
		}
	}
}
