package whttp

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestSendHTTPRequestRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		body, _ := io.ReadAll(r.Body)
		w.Write(body)
	}))
	defer srv.Close()

	client, err := NewClient(ClientOptions{RetryMax: 2})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	client.RetryWaitMin = 0
	client.RetryWaitMax = 0

	res, err := SendHTTPRequest(context.Background(), &WHTTPReq{Method: "POST", URL: srv.URL, Body: []byte("ping")}, client)
	if err != nil {
		t.Fatalf("SendHTTPRequest: %v", err)
	}
	if !res.OK() || string(res.Body) != "ping" {
		t.Fatalf("unexpected response: %d %q", res.StatusCode, res.Body)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestSendHTTPRequestReturnsFinalStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("<html><head><title>Service Unavailable</title></head></html>"))
	}))
	defer srv.Close()

	client, _ := NewClient(ClientOptions{RetryMax: 0})
	res, err := SendHTTPRequest(context.Background(), &WHTTPReq{Method: "GET", URL: srv.URL}, client)
	if err != nil {
		t.Fatalf("SendHTTPRequest: %v", err)
	}
	if res.OK() {
		t.Fatalf("expected failure status, got %d", res.StatusCode)
	}
	if got := res.Summary(); got != "status 503 (Service Unavailable)" {
		t.Fatalf("unexpected summary: %q", got)
	}
}

func TestSummaryPlainText(t *testing.T) {
	res := &WHTTPRes{StatusCode: 404, Body: []byte("404: Not Found\n")}
	if got := res.Summary(); got != "status 404: 404: Not Found" {
		t.Fatalf("unexpected summary: %q", got)
	}
}
