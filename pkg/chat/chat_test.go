package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/krux/aws-analysis-tools/pkg/transport"
)

func TestFlowdockPost(t *testing.T) {
	var got flowdockMessage
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	f, err := NewFlowdock(srv.URL+"/", "fake-flow-token", nil)
	if err != nil {
		t.Fatalf("NewFlowdock: %v", err)
	}
	if err := f.Post(context.Background(), "line1\nline2", "ec2 event checker", []string{"#ec2_events"}); err != nil {
		t.Fatalf("Post: %v", err)
	}

	if path != "/v1/messages/chat/fake-flow-token" {
		t.Fatalf("unexpected path %q", path)
	}
	want := flowdockMessage{Content: "line1\nline2", ExternalUserName: "ec2-event-checker", Tags: []string{"#ec2_events"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestFlowdockRequiresToken(t *testing.T) {
	if _, err := NewFlowdock("", "", nil); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestFlowdockPostErrorCarriesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("bad token"))
	}))
	defer srv.Close()

	f, _ := NewFlowdock(srv.URL, "token", transport.New(transport.WithRetry(1, 0)))
	err := f.Post(context.Background(), "body", "name", nil)
	var httpErr *transport.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusUnauthorized || httpErr.Body != "bad token" {
		t.Fatalf("expected 401 HTTPError, got %v", err)
	}
}

func TestSlackPostAppendsTags(t *testing.T) {
	var got slackMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s, err := NewSlack(srv.URL, nil)
	if err != nil {
		t.Fatalf("NewSlack: %v", err)
	}
	if err := s.Post(context.Background(), "hello", "ec2-event-checker", []string{"#ec2_events"}); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if got.Text != "hello\n#ec2_events" || got.Username != "ec2-event-checker" {
		t.Fatalf("unexpected message %+v", got)
	}
}

func TestPostersSendOnceOnServerError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusGatewayTimeout)
	}))
	defer srv.Close()

	client := transport.New(transport.WithRetry(3, time.Millisecond))
	f, _ := NewFlowdock(srv.URL, "token", client)
	s, _ := NewSlack(srv.URL, client)

	for _, p := range []Poster{f, s} {
		atomic.StoreInt32(&calls, 0)
		if err := p.Post(context.Background(), "body", "name", nil); err == nil {
			t.Fatalf("%T: expected error", p)
		}
		if got := atomic.LoadInt32(&calls); got != 1 {
			t.Fatalf("%T: expected a single post, got %d", p, got)
		}
	}
}
