package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sw33tLie/scopediff/pkg/diff"
	"github.com/sw33tLie/scopediff/pkg/whttp"
)

// Discord rejects messages longer than this.
const maxContentLength = 2000

// Webhook posts events to a Discord-compatible webhook as {"content": ...}.
type Webhook struct {
	URL    string
	Client *retryablehttp.Client
}

func NewWebhook(url string, client *retryablehttp.Client) *Webhook {
	return &Webhook{URL: url, Client: client}
}

func (w *Webhook) Notify(ctx context.Context, ev diff.Event) error {
	for _, content := range splitContent(Message(ev), maxContentLength) {
		payload, err := json.Marshal(map[string]string{"content": content})
		if err != nil {
			return err
		}
		res, err := whttp.SendHTTPRequest(ctx, &whttp.WHTTPReq{
			Method:  "POST",
			URL:     w.URL,
			Headers: []whttp.WHTTPHeader{{Name: "Content-Type", Value: "application/json"}},
			Body:    payload,
		}, w.Client)
		if err != nil {
			return fmt.Errorf("webhook delivery for %s failed: %w", ev.Subject(), err)
		}
		if !res.OK() {
			return fmt.Errorf("webhook delivery for %s failed: %s", ev.Subject(), res.Summary())
		}
	}
	return nil
}

// splitContent cuts msg into chunks of at most limit bytes, breaking on lines.
// A code fence left open by a cut is closed and reopened in the next chunk.
// Lines that cannot fit in a chunk on their own are truncated.
func splitContent(msg string, limit int) []string {
	if len(msg) <= limit {
		return []string{msg}
	}

	const fence = "```"
	// room for a reopened fence with its newline and a closing fence
	maxLine := limit - 2*len(fence) - 1

	var (
		chunks []string
		cur    strings.Builder
		inCode bool
	)
	for _, line := range strings.SplitAfter(msg, "\n") {
		if len(line) > maxLine {
			line = truncateLine(line, maxLine)
		}
		if cur.Len()+len(line)+len(fence) > limit {
			s := cur.String()
			if inCode {
				s += fence
			}
			chunks = append(chunks, s)
			cur.Reset()
			if inCode {
				cur.WriteString(fence + "\n")
			}
		}
		cur.WriteString(line)
		if strings.Count(line, fence)%2 == 1 {
			inCode = !inCode
		}
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}

// truncateLine shortens line to at most max bytes. A fence lost in the cut is
// put back so the line opens or closes a code block like the original did.
func truncateLine(line string, max int) string {
	const fence = "```"
	nl := ""
	if strings.HasSuffix(line, "\n") {
		nl = "\n"
	}
	cut := strings.ToValidUTF8(line[:max-len(nl)-len(fence)], "")
	if strings.Count(cut, fence)%2 != strings.Count(line, fence)%2 {
		cut += fence
	}
	return cut + nl
}
