package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sw33tLie/scopediff/pkg/snapshot"
	"github.com/sw33tLie/scopediff/pkg/whttp"
)

func newTestSource(t *testing.T, handler http.HandlerFunc) *HTTP {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := whttp.NewClient(whttp.ClientOptions{RetryMax: 0})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return NewHTTP(srv.URL+"/data/", client)
}

func TestFetchPaths(t *testing.T) {
	var paths []string
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/data/hackerone_data.json" {
			w.Write([]byte(`[{"name":"Acme"}]`))
			return
		}
		w.Write([]byte("a.com\nb.com\n"))
	})

	body, err := src.Fetch(context.Background(), snapshot.Key{Name: "hackerone", Kind: snapshot.KindProgram})
	if err != nil || string(body) != `[{"name":"Acme"}]` {
		t.Fatalf("unexpected program fetch: %q %v", body, err)
	}
	body, err = src.Fetch(context.Background(), snapshot.Key{Name: "domains", Kind: snapshot.KindList})
	if err != nil || string(body) != "a.com\nb.com\n" {
		t.Fatalf("unexpected list fetch: %q %v", body, err)
	}
	if len(paths) != 2 || paths[0] != "/data/hackerone_data.json" || paths[1] != "/data/domains.txt" {
		t.Fatalf("unexpected request paths: %v", paths)
	}
}

func TestFetchFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"not found", func(w http.ResponseWriter, r *http.Request) { http.Error(w, "404: Not Found", http.StatusNotFound) }},
		{"malformed json", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`[{"name":`)) }},
		{"not an array", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`{"name":"Acme"}`)) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newTestSource(t, tt.handler)
			_, err := src.Fetch(context.Background(), snapshot.Key{Name: "bugcrowd", Kind: snapshot.KindProgram})
			if !errors.Is(err, snapshot.ErrSourceUnavailable) {
				t.Fatalf("expected ErrSourceUnavailable, got %v", err)
			}
		})
	}
}
