package cmd

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/spf13/viper"
	"github.com/sw33tLie/scopediff/pkg/diff"
)

func TestRulesFromConfigTypeKeys(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("rules.typekeys", []string{"kind"})

	rules := rulesFromConfig()
	if got := rules.AssetType(diff.Target{"kind": "url", "type": "hardware"}); got != "url" {
		t.Fatalf("expected asset type from kind, got %q", got)
	}
}

func TestRulesFromConfigDefaults(t *testing.T) {
	t.Cleanup(viper.Reset)

	rules := rulesFromConfig()
	if got := rules.AssetType(diff.Target{"asset_type": "CIDR"}); got != "CIDR" {
		t.Fatalf("expected asset_type fallback, got %q", got)
	}
	if rules.AllowsAssetType("WILDCARD") {
		t.Fatalf("expected wildcard targets to be excluded by default")
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestPrintEventsCountsFailures(t *testing.T) {
	events := []diff.Event{
		diff.NewDomainListChange("domains", diff.NewLineSet("a.com")),
		&diff.ProgramAttributeChange{ProgramName: "Acme", Platform: "hackerone", Attribute: "submission_state", NewValue: "open"},
	}

	if failed := printEvents(context.Background(), failingWriter{}, events); failed != 2 {
		t.Fatalf("expected 2 failures, got %d", failed)
	}

	var buf bytes.Buffer
	if failed := printEvents(context.Background(), &buf, events); failed != 0 {
		t.Fatalf("expected no failures, got %d", failed)
	}
	if !bytes.Contains(buf.Bytes(), []byte("a.com")) || !bytes.Contains(buf.Bytes(), []byte("Acme")) {
		t.Fatalf("expected both events printed, got %q", buf.String())
	}
}
