// Package whttp wraps the retrying HTTP client shared by the snapshot source
// and the webhook notifier.
package whttp

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/hashicorp/go-retryablehttp"
)

const USER_AGENT = "scopediff (+https://github.com/sw33tLie/scopediff)"

type WHTTPHeader struct {
	Name  string
	Value string
}

type WHTTPReq struct {
	URL     string
	Method  string
	Headers []WHTTPHeader
	Body    []byte
}

type WHTTPRes struct {
	StatusCode int
	Body       []byte
}

// ClientOptions configures NewClient.
type ClientOptions struct {
	RetryMax int
	Timeout  time.Duration
	Proxy    string
}

// NewClient returns a retryablehttp client that retries connection errors and
// 429/5xx responses. Its logger is silenced; callers log outcomes themselves.
func NewClient(opts ClientOptions) (*retryablehttp.Client, error) {
	c := retryablehttp.NewClient()
	c.Logger = log.New(io.Discard, "", 0)
	c.RetryMax = opts.RetryMax
	c.RetryWaitMin = 500 * time.Millisecond
	c.RetryWaitMax = 5 * time.Second
	if opts.Timeout > 0 {
		c.HTTPClient.Timeout = opts.Timeout
	}
	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}
		c.HTTPClient.Transport = &http.Transport{
			Proxy:           http.ProxyURL(proxyURL),
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	// Hand the final response back instead of a generic "giving up" error so
	// callers can report the status code.
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return c, nil
}

func SendHTTPRequest(ctx context.Context, wReq *WHTTPReq, client *retryablehttp.Client) (*WHTTPRes, error) {
	var body io.Reader
	if wReq.Body != nil {
		body = bytes.NewReader(wReq.Body)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, wReq.Method, wReq.URL, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", USER_AGENT)
	req.Header.Set("Cache-Control", "no-transform")
	req.Header.Set("Accept-Language", "en")

	for _, h := range wReq.Headers {
		req.Header.Set(h.Name, h.Value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &WHTTPRes{StatusCode: resp.StatusCode, Body: bodyBytes}, nil
}

// OK reports whether the response carries a 2xx status.
func (r *WHTTPRes) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Summary describes a failed response in one line. HTML error pages are
// reduced to their title.
func (r *WHTTPRes) Summary() string {
	if title, ok := getHTMLTitle(r.Body); ok && title != "" {
		return fmt.Sprintf("status %d (%s)", r.StatusCode, title)
	}
	text := strings.TrimSpace(string(r.Body))
	if len(text) > 120 {
		text = text[:120] + "..."
	}
	if text == "" {
		return fmt.Sprintf("status %d", r.StatusCode)
	}
	return fmt.Sprintf("status %d: %s", r.StatusCode, text)
}

func getHTMLTitle(body []byte) (string, bool) {
	if !bytes.Contains(bytes.ToLower(body), []byte("<title")) {
		return "", false
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", false
	}
	title := doc.Find("title").First().Text()
	title = strings.ToValidUTF8(strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(title, "\n", ""), "\r", "")), "")
	return title, true
}
