package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestDoJSONSendsHeadersAndAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" || r.Header.Get("Accept") != "application/json" {
			t.Errorf("missing json headers: %v", r.Header)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "username" || pass != "password" {
			t.Errorf("unexpected basic auth %q %q %v", user, pass, ok)
		}
		var in map[string]string
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"echo": in["msg"]})
	}))
	defer srv.Close()

	c := New(WithBasicAuth("username", "password"))
	var out map[string]string
	if err := c.DoJSON(context.Background(), http.MethodPost, srv.URL, map[string]string{"msg": "hi"}, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["echo"] != "hi" {
		t.Fatalf("unexpected response %v", out)
	}
}

func TestDoJSONClientErrorIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"errorMessages":["nope"]}`))
	}))
	defer srv.Close()

	c := New(WithRetry(3, 0))
	err := c.DoJSON(context.Background(), http.MethodGet, srv.URL, nil, nil)

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *HTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusNotFound || httpErr.Reason != "Not Found" {
		t.Fatalf("unexpected status %d %q", httpErr.StatusCode, httpErr.Reason)
	}
	if httpErr.Body != `{"errorMessages":["nope"]}` {
		t.Fatalf("unexpected body %q", httpErr.Body)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected 1 call, got %d", got)
	}
}

func TestDoJSONRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := New(WithRetry(3, 0))
	if err := c.DoJSON(context.Background(), http.MethodPost, srv.URL, map[string]int{"n": 1}, nil, Idempotent()); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 3 calls, got %d", got)
	}
}

func TestDoJSONGivesUpAfterAttempts(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(WithRetry(2, 0))
	err := c.DoJSON(context.Background(), http.MethodGet, srv.URL, nil, nil)
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502 HTTPError, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected 2 calls, got %d", got)
	}
}

func TestDoJSONSendsPostOnce(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// the request is acted on, only the response is lost
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(WithRetry(3, time.Millisecond))
	for _, method := range []string{http.MethodPost, http.MethodPatch} {
		atomic.StoreInt32(&calls, 0)
		err := c.DoJSON(context.Background(), method, srv.URL, map[string]string{"body": "hi"}, nil)
		var httpErr *HTTPError
		if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusBadGateway {
			t.Fatalf("%s: expected 502 HTTPError, got %v", method, err)
		}
		if got := atomic.LoadInt32(&calls); got != 1 {
			t.Fatalf("%s: expected 1 call, got %d", method, got)
		}
	}
}

func TestIdempotentMethod(t *testing.T) {
	tests := []struct {
		method string
		want   bool
	}{
		{http.MethodGet, true},
		{http.MethodHead, true},
		{http.MethodPut, true},
		{http.MethodDelete, true},
		{http.MethodPost, false},
		{http.MethodPatch, false},
	}
	for _, test := range tests {
		if got := idempotentMethod(test.method); got != test.want {
			t.Errorf("idempotentMethod(%s) = %v, want %v", test.method, got, test.want)
		}
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.Canceled, false},
		{&HTTPError{StatusCode: 400}, false},
		{&HTTPError{StatusCode: 429}, true},
		{&HTTPError{StatusCode: 500}, true},
		{&decodeError{err: errors.New("bad json")}, false},
		{errors.New("connection reset by peer"), true},
	}
	for _, test := range tests {
		if got := Retryable(test.err); got != test.want {
			t.Errorf("Retryable(%v) = %v, want %v", test.err, got, test.want)
		}
	}
}
