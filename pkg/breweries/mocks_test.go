package breweries

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/brewdex/brewery-harvester/pkg/httpclient"
)

type stubResponse struct {
	body       []byte
	statusCode int
}

func (s stubResponse) Body() []byte    { return s.body }
func (s stubResponse) StatusCode() int { return s.statusCode }

type spyReply struct {
	resp httpclient.Response
	err  error
}

type spyRequest struct {
	url     string
	headers map[string]string
	reply   chan spyReply
}

// httpClientSpy records requests and blocks each one until the test completes it.
type httpClientSpy struct {
	mu       sync.Mutex
	requests []spyRequest
}

func (s *httpClientSpy) Get(ctx context.Context, url string, headers map[string]string) (httpclient.Response, error) {
	req := spyRequest{url: url, headers: headers, reply: make(chan spyReply, 1)}
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	select {
	case r := <-req.reply:
		return r.resp, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *httpClientSpy) requestedURLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return nil
	}
	out := make([]string, len(s.requests))
	for i, r := range s.requests {
		out[i] = r.url
	}
	return out
}

// waitForRequests blocks until at least n requests arrived.
func (s *httpClientSpy) waitForRequests(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for {
		s.mu.Lock()
		got := len(s.requests)
		s.mu.Unlock()
		if got >= n {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected %d requests, got %d", n, got)
		}
		time.Sleep(time.Millisecond)
	}
}

func (s *httpClientSpy) request(t *testing.T, index int) spyRequest {
	t.Helper()
	s.waitForRequests(t, index+1)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[index]
}

func (s *httpClientSpy) complete(t *testing.T, status int, body []byte, index int) {
	t.Helper()
	s.request(t, index).reply <- spyReply{resp: stubResponse{body: body, statusCode: status}}
}

func (s *httpClientSpy) completeWithError(t *testing.T, index int) {
	t.Helper()
	s.request(t, index).reply <- spyReply{err: errors.New("connection refused")}
}

// stubClient answers every request immediately with a fixed outcome.
type stubClient struct {
	mu     sync.Mutex
	status int
	body   []byte
	err    error
	panics bool
	calls  int
}

func (s *stubClient) Get(context.Context, string, map[string]string) (httpclient.Response, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.panics {
		panic("transport exploded")
	}
	if s.err != nil {
		return nil, s.err
	}
	return stubResponse{body: s.body, statusCode: s.status}, nil
}
