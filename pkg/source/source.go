// Package source fetches the latest published snapshots.
package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sw33tLie/scopediff/pkg/snapshot"
	"github.com/sw33tLie/scopediff/pkg/whttp"
	"github.com/tidwall/gjson"
)

const DefaultBaseURL = "https://raw.githubusercontent.com/arkadiyt/bounty-targets-data/main/data"

// HTTP reads snapshots from a bounty-targets-data style tree:
// <base>/<platform>_data.json and <base>/<list>.txt.
type HTTP struct {
	BaseURL string
	Client  *retryablehttp.Client
}

// NewHTTP returns a source rooted at baseURL (DefaultBaseURL when empty).
func NewHTTP(baseURL string, client *retryablehttp.Client) *HTTP {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &HTTP{BaseURL: strings.TrimRight(baseURL, "/"), Client: client}
}

// URL returns the location of the snapshot for key.
func (s *HTTP) URL(key snapshot.Key) string {
	if key.Kind == snapshot.KindList {
		return fmt.Sprintf("%s/%s.txt", s.BaseURL, key.Name)
	}
	return fmt.Sprintf("%s/%s_data.json", s.BaseURL, key.Name)
}

// Fetch downloads the snapshot for key. Failures and malformed program
// payloads are reported as snapshot.ErrSourceUnavailable.
func (s *HTTP) Fetch(ctx context.Context, key snapshot.Key) ([]byte, error) {
	u := s.URL(key)
	res, err := whttp.SendHTTPRequest(ctx, &whttp.WHTTPReq{Method: "GET", URL: u}, s.Client)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", snapshot.ErrSourceUnavailable, key, err)
	}
	if !res.OK() {
		return nil, fmt.Errorf("%w: %s: %s", snapshot.ErrSourceUnavailable, key, res.Summary())
	}
	if key.Kind == snapshot.KindProgram {
		if !gjson.ValidBytes(res.Body) || !gjson.ParseBytes(res.Body).IsArray() {
			return nil, fmt.Errorf("%w: %s: payload is not a JSON array", snapshot.ErrSourceUnavailable, key)
		}
	}
	return res.Body, nil
}
