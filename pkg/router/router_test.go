package router

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/lk2023060901/flotilla/pkg/balancer"
	"github.com/lk2023060901/flotilla/pkg/errs"
	"github.com/lk2023060901/flotilla/pkg/prometheus"
	"github.com/lk2023060901/flotilla/pkg/routing"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingTransport 记录每次调用
type recordingTransport struct {
	mu    sync.Mutex
	calls []Call
	resp  *Response
	err   error
}

func (t *recordingTransport) Do(_ context.Context, call Call) (*Response, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = append(t.calls, call)
	if t.err != nil {
		return nil, t.err
	}
	return t.resp, nil
}

func TestNewServiceRequestDefaults(t *testing.T) {
	req := NewServiceRequest("api")
	assert.Equal(t, "/", req.Path)
	assert.Equal(t, http.MethodGet, req.Method)
	assert.NotEmpty(t, req.ID)
	assert.False(t, req.Created.IsZero())
	assert.True(t, req.Sent.IsZero())

	req = NewServiceRequest("api", WithPath("/v1"), WithMethod(http.MethodPost))
	assert.Equal(t, "/v1", req.Path)
	assert.Equal(t, http.MethodPost, req.Method)
}

func TestStaticRouterSingleCall(t *testing.T) {
	transport := &recordingTransport{resp: &Response{StatusCode: 204}}
	r, err := New(&Config{Kind: KindStatic, Prefix: "http://x/"}, transport)
	require.NoError(t, err)

	req := NewServiceRequest("ignored", WithPath("/a"))
	resp, err := r.Request(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 204, resp.StatusCode)

	require.Len(t, transport.calls, 1)
	assert.Equal(t, "http://x/a", transport.calls[0].URL)
	assert.Equal(t, http.MethodGet, transport.calls[0].Method)
	assert.False(t, req.Sent.IsZero())
	assert.False(t, req.Done.Before(req.Sent))
}

func TestStaticRouterTransportErrorNoRetry(t *testing.T) {
	cause := errors.New("connection refused")
	transport := &recordingTransport{err: NewTransportError(Call{URL: "http://x/a"}, cause)}
	r, err := New(&Config{Kind: KindStatic, Prefix: "http://x/"}, transport)
	require.NoError(t, err)

	_, err = r.Request(context.Background(), NewServiceRequest("svc", WithPath("/a")))
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrTransport)
	assert.ErrorIs(t, err, cause)

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "http://x/a", te.URL)
	assert.Len(t, transport.calls, 1)
}

func TestURLAssembly(t *testing.T) {
	static, err := balancer.NewStatic("10.0.0.1:8080")
	require.NoError(t, err)
	transport := &recordingTransport{}

	tests := []struct {
		name string
		cfg  *Config
		path string
		want string
	}{
		{"static with slash", &Config{Kind: KindStatic, Prefix: "http://x/"}, "/a", "http://x/a"},
		{"static without slash", &Config{Kind: KindStatic, Prefix: "http://x"}, "/a", "http://x/a"},
		{"static prefix only slash", &Config{Kind: KindStatic, Prefix: "http://x/"}, "a", "http://x/a"},
		{"host", &Config{Kind: KindHost}, "/a/b", "http://10.0.0.1:8080/a/b"},
		{"service", &Config{Kind: KindService}, "/a", "http://10.0.0.1:8080/api/a"},
		{"service https", &Config{Kind: KindService, Scheme: "https"}, "/", "https://10.0.0.1:8080/api/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := New(tt.cfg, transport, WithBalancer(static))
			require.NoError(t, err)
			got, err := r.URL(NewServiceRequest("api", WithPath(tt.path)))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewValidation(t *testing.T) {
	transport := &recordingTransport{}

	_, err := New(&Config{Kind: KindHost}, transport)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
	_, err = New(&Config{Kind: KindStatic}, transport)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
	_, err = New(&Config{Kind: "grpc"}, transport)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
	_, err = New(&Config{Kind: KindStatic, Prefix: "http://x"}, nil)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestBalancedRouterRoutingError(t *testing.T) {
	table := routing.NewTable()
	require.NoError(t, table.Set("zero", &routing.Record{Hosts: []string{"a"}, Weights: []int{0}}))
	wrr := balancer.NewWeightedRoundRobin(table)

	client, err := prometheus.New(&prometheus.Config{Namespace: "test"}, nil)
	require.NoError(t, err)
	defer client.Close()
	metrics, err := NewMetrics(client)
	require.NoError(t, err)

	transport := &recordingTransport{resp: &Response{StatusCode: 200}}
	r, err := New(&Config{Kind: KindService}, transport, WithBalancer(wrr), WithMetrics(metrics))
	require.NoError(t, err)

	_, err = r.Request(context.Background(), NewServiceRequest("missing"))
	assert.ErrorIs(t, err, errs.ErrNotFound)
	_, err = r.Request(context.Background(), NewServiceRequest("zero"))
	assert.ErrorIs(t, err, errs.ErrRouting)
	assert.Empty(t, transport.calls)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues("zero", "service", outcomeRoutingError)))
}

func TestServiceRouterFollowsWRR(t *testing.T) {
	table := routing.NewTable()
	require.NoError(t, table.Set("api", &routing.Record{Hosts: []string{"A", "B"}, Weights: []int{2, 1}}))

	transport := &recordingTransport{resp: &Response{StatusCode: 200}}
	r, err := New(&Config{Kind: KindService}, transport, WithBalancer(balancer.NewWeightedRoundRobin(table)))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := r.Request(context.Background(), NewServiceRequest("api", WithPath("/ping")))
		require.NoError(t, err)
	}

	var urls []string
	for _, c := range transport.calls {
		urls = append(urls, c.URL)
	}
	assert.Equal(t, []string{"http://A/api/ping", "http://A/api/ping", "http://B/api/ping"}, urls)
}

func TestHTTPTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("X-Echo-Query", r.URL.Query().Get("q"))
		w.Header().Set("X-Echo-Header", r.Header.Get("X-Token"))
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write(append([]byte(r.Method+":"), body...))
	}))
	defer srv.Close()

	r, err := New(&Config{Kind: KindStatic, Prefix: srv.URL}, NewHTTPTransport(nil))
	require.NoError(t, err)

	req := NewServiceRequest("svc", WithPath("/echo"), WithMethod(http.MethodPost), WithOptions(Options{
		Header:  http.Header{"X-Token": []string{"t1"}},
		Query:   map[string][]string{"q": {"v"}},
		Body:    []byte("hello"),
		Timeout: time.Second,
	}))
	resp, err := r.Request(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
	assert.Equal(t, "POST:hello", string(resp.Body))
	assert.Equal(t, "v", resp.Header.Get("X-Echo-Query"))
	assert.Equal(t, "t1", resp.Header.Get("X-Echo-Header"))
}

func TestHTTPTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	r, err := New(&Config{Kind: KindStatic, Prefix: addr}, NewHTTPTransport(nil))
	require.NoError(t, err)

	_, err = r.Request(context.Background(), NewServiceRequest("svc"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrTransport)
}
