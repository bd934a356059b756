package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestGet(t *testing.T) {
	content := "package file bytes"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-xz")
		w.Header().Set("Content-Length", "18")
		w.Header().Set("ETag", `"abc123"`)
		w.Header().Set("Last-Modified", "Fri, 07 Jun 2019 15:29:26 GMT")
		_, _ = w.Write([]byte(content))
	}))
	defer server.Close()

	resp, err := NewFetcher().Get(context.Background(), server.URL+"/core/os/x86_64/linux.pkg.tar.xz")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.Size != 18 {
		t.Errorf("Size = %d, want 18", resp.Size)
	}
	if resp.ContentType != "application/x-xz" {
		t.Errorf("ContentType = %q, want %q", resp.ContentType, "application/x-xz")
	}
	if resp.ETag != `"abc123"` {
		t.Errorf("ETag = %q, want %q", resp.ETag, `"abc123"`)
	}
	if resp.LastModified == "" {
		t.Error("LastModified is empty")
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(body) != content {
		t.Errorf("body = %q, want %q", body, content)
	}
}

func TestGetStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		want     error
		attempts int32
	}{
		{"not found", http.StatusNotFound, ErrNotFound, 1},
		{"rate limited", http.StatusTooManyRequests, ErrRateLimited, 3},
		{"server error", http.StatusBadGateway, ErrUnavailable, 3},
		{"forbidden", http.StatusForbidden, nil, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var attempts atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				attempts.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			f := NewFetcher(WithMaxRetries(2), WithBaseDelay(time.Millisecond))
			_, err := f.Get(context.Background(), server.URL+"/x")
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("Get = %v, want %v", err, tt.want)
			}
			if got := attempts.Load(); got != tt.attempts {
				t.Errorf("attempts = %d, want %d", got, tt.attempts)
			}
		})
	}
}

func TestGetRetriesUntilSuccess(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	resp, err := NewFetcher(WithBaseDelay(10*time.Millisecond)).Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	_ = resp.Body.Close()
	if got := attempts.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestGetContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		_, _ = w.Write([]byte("late"))
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := NewFetcher().Get(ctx, server.URL); err == nil {
		t.Error("expected error on context cancellation")
	}
}

func TestGetUnknownSize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Transfer-Encoding", "chunked")
		_, _ = w.Write([]byte("chunk"))
	}))
	defer server.Close()

	resp, err := NewFetcher().Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.Size != -1 {
		t.Errorf("Size = %d, want -1", resp.Size)
	}
}

func TestHead(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("Method = %s, want HEAD", r.Method)
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Length", "12345")
	}))
	defer server.Close()

	resp, err := NewFetcher().Head(context.Background(), server.URL+"/core.db")
	if err != nil {
		t.Fatalf("Head failed: %v", err)
	}
	if resp.Body != nil {
		t.Error("Head returned a body")
	}
	if resp.Size != 12345 {
		t.Errorf("Size = %d, want 12345", resp.Size)
	}
}

func TestUserAgent(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
	}))
	defer server.Close()

	if _, err := NewFetcher().Head(context.Background(), server.URL); err != nil {
		t.Fatal(err)
	}
	if got != "alpmq/1.0" {
		t.Errorf("default User-Agent = %q", got)
	}
	if _, err := NewFetcher(WithUserAgent("custom/2.0")).Head(context.Background(), server.URL); err != nil {
		t.Fatal(err)
	}
	if got != "custom/2.0" {
		t.Errorf("User-Agent = %q, want %q", got, "custom/2.0")
	}
}
