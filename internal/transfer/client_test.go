package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func newTestClient(url string) *Client {
	c := NewClient(url)
	c.httpClient.RetryWaitMin = time.Millisecond
	c.httpClient.RetryWaitMax = 5 * time.Millisecond
	return c
}

func TestTransfer_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/api/transfers" {
			t.Fatalf("path = %s, want /api/transfers", r.URL.Path)
		}
		if r.Header.Get(idempotencyHeader) == "" {
			t.Fatalf("missing %s header", idempotencyHeader)
		}

		var req transferRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.Recipient != "alice" || req.Amount != 100 {
			t.Fatalf("unexpected request: %+v", req)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer ts.Close()

	client := newTestClient(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := client.Transfer(ctx, "", "alice", 100); err != nil {
		t.Fatalf("Transfer error: %v", err)
	}
}

func TestTransfer_RetriesWithSameKey(t *testing.T) {
	var (
		mu   sync.Mutex
		keys []string
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		keys = append(keys, r.Header.Get(idempotencyHeader))
		attempt := len(keys)
		mu.Unlock()

		if attempt == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := newTestClient(ts.URL)

	if err := client.Transfer(context.Background(), "", "bob", 5); err != nil {
		t.Fatalf("Transfer error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(keys) != 2 {
		t.Fatalf("attempts = %d, want 2", len(keys))
	}
	if keys[0] != keys[1] {
		t.Fatalf("idempotency key changed between retries: %q != %q", keys[0], keys[1])
	}
}

func TestTransfer_CallerKeyReusedAcrossCalls(t *testing.T) {
	var (
		mu   sync.Mutex
		keys []string
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		keys = append(keys, r.Header.Get(idempotencyHeader))
		attempt := len(keys)
		mu.Unlock()

		if attempt == 1 {
			http.Error(w, "ledger busy", http.StatusUnprocessableEntity)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer ts.Close()

	client := newTestClient(ts.URL)

	if err := client.Transfer(context.Background(), "settle-refund-a", "alice", 100); err == nil {
		t.Fatalf("expected first call to be rejected")
	}
	if err := client.Transfer(context.Background(), "settle-refund-a", "alice", 100); err != nil {
		t.Fatalf("Transfer error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(keys) != 2 {
		t.Fatalf("attempts = %d, want 2", len(keys))
	}
	for i, k := range keys {
		if k != "settle-refund-a" {
			t.Fatalf("attempt %d sent key %q, want settle-refund-a", i, k)
		}
	}
}

func TestTransfer_ConflictMeansAlreadyApplied(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer ts.Close()

	if err := newTestClient(ts.URL).Transfer(context.Background(), "", "bob", 5); err != nil {
		t.Fatalf("Transfer error: %v", err)
	}
}

func TestTransfer_Rejected(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "insufficient funds", http.StatusUnprocessableEntity)
	}))
	defer ts.Close()

	err := newTestClient(ts.URL).Transfer(context.Background(), "", "bob", 5)
	if !errors.Is(err, ErrTransferRejected) {
		t.Fatalf("expected ErrTransferRejected, got %v", err)
	}
	if !strings.Contains(err.Error(), "insufficient funds") {
		t.Fatalf("error %q does not carry ledger message", err)
	}
	if calls != 1 {
		t.Fatalf("4xx must not be retried, calls = %d", calls)
	}
}

func TestTransfer_ServerDown(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	if err := newTestClient(ts.URL).Transfer(context.Background(), "", "bob", 5); err == nil {
		t.Fatalf("expected error after exhausting retries")
	}
}

func TestTransfer_NotConfigured(t *testing.T) {
	var c *Client
	if err := c.Transfer(context.Background(), "", "bob", 5); err == nil {
		t.Fatalf("expected error for nil client")
	}
}
