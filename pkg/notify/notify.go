// Package notify delivers change events.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sw33tLie/scopediff/pkg/diff"
)

// Notifier delivers one event. Delivery failures are reported to the caller,
// which logs them; nothing is retried or rolled back.
type Notifier interface {
	Notify(ctx context.Context, ev diff.Event) error
}

// Multi fans an event out to several notifiers and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, ev diff.Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Console prints one line per changed value.
type Console struct {
	W io.Writer
}

func (c *Console) Notify(_ context.Context, ev diff.Event) error {
	switch e := ev.(type) {
	case *diff.ProgramAttributeChange:
		_, err := fmt.Fprintf(c.W, "🔄  %s  %s  %s=%s\n", e.Platform, e.ProgramName, e.Attribute, diff.FormatValue(e.NewValue))
		return err
	case *diff.TargetsChange:
		for _, v := range e.InScope {
			if _, err := fmt.Fprintf(c.W, "🆕  %s  %s  %s\n", e.Platform, e.ProgramName, v.Value); err != nil {
				return err
			}
		}
		for _, v := range e.OutOfScope {
			if _, err := fmt.Fprintf(c.W, "🆕  %s  %s  %s [OOS]\n", e.Platform, e.ProgramName, v.Value); err != nil {
				return err
			}
		}
		return nil
	case *diff.DomainListChange:
		for _, entry := range e.Entries.Sorted() {
			if _, err := fmt.Fprintf(c.W, "🆕  %s  %s\n", e.ListName, entry); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("unsupported event type %T", ev)
}

// Message renders ev as chat markdown.
func Message(ev diff.Event) string {
	switch e := ev.(type) {
	case *diff.ProgramAttributeChange:
		return fmt.Sprintf("Program **%s** (%s) was changed ***%s*** attribute :\n```%s```",
			e.ProgramName, e.Platform, e.Attribute, diff.FormatValue(e.NewValue))
	case *diff.TargetsChange:
		var b strings.Builder
		fmt.Fprintf(&b, "Program **%s** (%s) was changed ***targets*** attribute :", e.ProgramName, e.Platform)
		if len(e.InScope) > 0 {
			fmt.Fprintf(&b, "\nIn scope:\n```%s```", strings.Join(diff.Values(e.InScope), "\n"))
		}
		if len(e.OutOfScope) > 0 {
			fmt.Fprintf(&b, "\nOut of scope:\n```%s```", strings.Join(diff.Values(e.OutOfScope), "\n"))
		}
		return b.String()
	case *diff.DomainListChange:
		groups := GroupByRootDomain(e.Entries.Sorted())
		var lines []string
		for _, g := range groups {
			lines = append(lines, g.Entries...)
		}
		return fmt.Sprintf("Changes of **Domains/WildCards** (%s, %d new across %d root domains) :\n```%s```",
			e.ListName, len(e.Entries), len(groups), strings.Join(lines, "\n"))
	}
	return fmt.Sprintf("unsupported event %T", ev)
}
