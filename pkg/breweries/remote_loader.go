package breweries

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/brewdex/brewery-harvester/internal/domain"
	"github.com/brewdex/brewery-harvester/pkg/httpclient"
)

// StateQueryParam is the query parameter the Open Brewery DB API filters states by.
const StateQueryParam = "by_state"

// RemoteLoader loads breweries from an HTTP endpoint.
// It holds only immutable configuration and is safe for concurrent use.
type RemoteLoader struct {
	client  HTTPClient
	baseURL url.URL
	headers map[string]string
}

// Option customises a RemoteLoader during construction.
type Option func(*RemoteLoader)

// WithHeaders sends the given headers with every request. Empty keys or values are skipped.
func WithHeaders(headers map[string]string) Option {
	return func(l *RemoteLoader) {
		for k, v := range headers {
			k, v = strings.TrimSpace(k), strings.TrimSpace(v)
			if k == "" || v == "" {
				continue
			}
			if l.headers == nil {
				l.headers = make(map[string]string, len(headers))
			}
			l.headers[k] = v
		}
	}
}

// NewRemoteLoader builds a loader for baseURL. A nil client falls back to a resty-backed client.
// Construction performs no requests.
func NewRemoteLoader(client HTTPClient, baseURL string, opts ...Option) (*RemoteLoader, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("breweries base url is empty")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse breweries base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("breweries base url %q must be absolute", baseURL)
	}
	if client == nil {
		client = httpclient.NewRestyClient(httpclient.DefaultTimeout)
	}

	l := &RemoteLoader{client: client, baseURL: *parsed}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l, nil
}

// URLFor returns the request URL for the state filter. A blank filter requests the unfiltered list.
func (l *RemoteLoader) URLFor(state string) string {
	u := l.baseURL
	state = strings.TrimSpace(state)
	if state == "" {
		return u.String()
	}
	q := u.Query()
	q.Set(StateQueryParam, state)
	u.RawQuery = q.Encode()
	return u.String()
}

// Load starts one fetch for the state and returns a channel that yields its single result.
func (l *RemoteLoader) Load(ctx context.Context, state string) <-chan LoadResult {
	if ctx == nil {
		ctx = context.Background()
	}
	out := make(chan LoadResult, 1)

	// Capture fields, not l: a pending load must not retain the loader.
	client, target, headers := l.client, l.URLFor(state), l.headers
	go func() {
		defer close(out)
		out <- load(ctx, client, target, headers)
	}()
	return out
}

func load(ctx context.Context, client HTTPClient, target string, headers map[string]string) LoadResult {
	resp, err := get(ctx, client, target, headers)
	if err != nil || resp == nil {
		return failure(ErrClientError)
	}
	if resp.StatusCode() != http.StatusOK {
		return failure(ErrInvalidData)
	}
	list, err := decodeBreweries(resp.Body())
	if err != nil {
		return failure(ErrInvalidData)
	}
	return success(list)
}

// get shields the single-delivery guarantee from a panicking transport.
func get(ctx context.Context, client HTTPClient, target string, headers map[string]string) (resp httpclient.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp, err = nil, fmt.Errorf("http client panic: %v", r)
		}
	}()
	return client.Get(ctx, target, headers)
}

// Fetch runs one load and waits for its result.
func Fetch(ctx context.Context, l Loader, state string) ([]domain.Brewery, error) {
	res := <-l.Load(ctx, state)
	return res.Breweries, res.Err
}
