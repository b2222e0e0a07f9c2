package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGetHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			if !strings.Contains(r.Header.Get("User-Agent"), "chip-gate") {
				t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
			}
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte("<html><body><h1>Hi</h1></body></html>"))
		case "/json":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewWithClient(srv.Client())
	ctx := context.Background()

	html, err := f.GetHTML(ctx, srv.URL+"/ok")
	if err != nil {
		t.Fatalf("GetHTML() error = %v", err)
	}
	if !strings.Contains(html, "<h1>Hi</h1>") {
		t.Errorf("GetHTML() = %q", html)
	}

	if _, err := f.GetHTML(ctx, srv.URL+"/missing"); err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("GetHTML(404) error = %v", err)
	}
	if _, err := f.GetHTML(ctx, srv.URL+"/json"); err == nil {
		t.Error("GetHTML(json) expected content type error")
	}
}

func TestGetHTML_Cancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewWithClient(srv.Client()).GetHTML(ctx, srv.URL); err == nil {
		t.Error("GetHTML() with cancelled context returned nil error")
	}
}

func TestRendererOptions(t *testing.T) {
	r := NewRenderer()
	base := len(r.allocatorOptions())
	r.ExecPath = "/usr/bin/chromium"
	if got := len(r.allocatorOptions()); got != base+1 {
		t.Errorf("allocatorOptions() with ExecPath = %d options, want %d", got, base+1)
	}
}
