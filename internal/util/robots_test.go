package util

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestRobotsChecker_Allowed(t *testing.T) {
	var robotsHits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			robotsHits.Add(1)
			_, _ = fmt.Fprint(w, "User-agent: simtriage\nDisallow: /private/\nCrawl-delay: 2\n")
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	checker := NewRobotsChecker(server.Client(), "simtriage/0.1")
	ctx := context.Background()

	allowed, delay, err := checker.Allowed(ctx, server.URL+"/course/submissions.json")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !allowed {
		t.Error("Expected public path to be allowed")
	}
	if delay != 2*time.Second {
		t.Errorf("Expected crawl delay 2s, got %v", delay)
	}

	allowed, _, _ = checker.Allowed(ctx, server.URL+"/private/grades.json")
	if allowed {
		t.Error("Expected private path to be disallowed")
	}

	if robotsHits.Load() != 1 {
		t.Errorf("Expected robots.txt fetched once, got %d", robotsHits.Load())
	}
}

func TestRobotsChecker_MissingRobotsAllowsAll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	checker := NewRobotsChecker(server.Client(), "simtriage")
	allowed, _, err := checker.Allowed(context.Background(), server.URL+"/anything")
	if err != nil || !allowed {
		t.Errorf("Expected allow-all without robots.txt, got allowed=%v err=%v", allowed, err)
	}
}

func TestNormalizeUserAgent(t *testing.T) {
	tests := map[string]string{
		"simtriage/0.1":             "simtriage",
		"simtriage/0.1 (+ops@x.io)": "simtriage",
		"plain":                     "plain",
		"":                          "",
	}
	for in, want := range tests {
		if got := NormalizeUserAgent(in); got != want {
			t.Errorf("NormalizeUserAgent(%q): expected %q, got %q", in, want, got)
		}
	}
}
