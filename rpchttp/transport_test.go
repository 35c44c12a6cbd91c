package rpchttp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/mnehpets/rpcserve/jsonrpc"
	"github.com/mnehpets/rpcserve/rpc"
)

func TestTransportRoundTrip(t *testing.T) {
	srv := httptest.NewServer(Handler(newTestExecutor(t)))
	defer srv.Close()

	clt := jsonrpc.NewClient(Transport(srv.URL))
	value, err := clt.Exec(context.Background(), "echo", map[string]any{"text": "net"})
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	if string(value) != `"echo: net"` {
		t.Errorf("got %s", value)
	}
}

func TestTransportServerError(t *testing.T) {
	srv := httptest.NewServer(Handler(newTestExecutor(t)))
	defer srv.Close()

	clt := jsonrpc.NewClient(Transport(srv.URL))
	_, err := clt.Exec(context.Background(), "nope", nil)
	re, ok := err.(*rpc.Error)
	if !ok {
		t.Fatalf("got %T (%v), want *rpc.Error", err, err)
	}
	if re.Code != rpc.CodeMethodNotFound {
		t.Errorf("got code %d", re.Code)
	}
}

func TestTransportHeaders(t *testing.T) {
	var gotAuth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":null}`))
	}))
	defer srv.Close()

	fn := Transport(srv.URL, WithHeader("Authorization", "Bearer tok"))
	if _, err := fn(context.Background(), []byte(`{}`)); err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if gotAuth.Load() != "Bearer tok" {
		t.Errorf("got auth header %q", gotAuth.Load())
	}
}

func TestTransportRetriesTransientFailure(t *testing.T) {
	var attempts atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			// Drop the connection so the client sees a transient failure.
			panic(http.ErrAbortHandler)
		}
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"ok"}`))
	}))
	defer srv.Close()

	fn := Transport(srv.URL)
	body, err := fn(context.Background(), []byte(`{}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if !strings.Contains(string(body), `"ok"`) {
		t.Errorf("got body %s", body)
	}
	if attempts.Load() != 2 {
		t.Errorf("server saw %d attempts, want 2", attempts.Load())
	}
}

func TestTransportGivesUpAfterRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	defer srv.Close()

	fn := Transport(srv.URL, WithRetries(2))
	if _, err := fn(context.Background(), []byte(`{}`)); err == nil {
		t.Error("expected failure after exhausting retries")
	}
}

func TestTransportBadStatus(t *testing.T) {
	var attempts atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, "teapot", http.StatusTeapot)
	}))
	defer srv.Close()

	fn := Transport(srv.URL)
	if _, err := fn(context.Background(), []byte(`{}`)); err == nil {
		t.Error("expected error for non-2xx status")
	}
	if attempts.Load() != 1 {
		t.Errorf("server saw %d attempts, want 1 (status errors are not retried)", attempts.Load())
	}
}

func TestTransportContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	srv := httptest.NewServer(Handler(newTestExecutor(t)))
	defer srv.Close()

	fn := Transport(srv.URL)
	if _, err := fn(ctx, []byte(`{}`)); err == nil {
		t.Error("expected context error")
	}
}
