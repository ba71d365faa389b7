package prometheus

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(&Config{Namespace: "test"}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Namespace != "flotilla" {
		t.Errorf("Expected Namespace=flotilla, got %s", cfg.Namespace)
	}
	if cfg.HTTPServer.Enabled {
		t.Error("Expected HTTPServer.Enabled=false")
	}
	if cfg.HTTPServer.Path != "/metrics" {
		t.Errorf("Expected Path=/metrics, got %s", cfg.HTTPServer.Path)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name:    "valid config",
			config:  DefaultConfig(),
			wantErr: false,
		},
		{
			name:    "empty namespace",
			config:  &Config{Namespace: ""},
			wantErr: true,
		},
		{
			name: "http server enabled without addr",
			config: &Config{
				Namespace:  "test",
				HTTPServer: HTTPServerConfig{Enabled: true},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCounterGetOrCreate(t *testing.T) {
	client := newTestClient(t)

	counter, err := client.Counter("requests_total", "Total requests", []string{"service", "outcome"})
	if err != nil {
		t.Fatalf("Counter() error = %v", err)
	}
	counter.WithLabelValues("api", "ok").Inc()

	again, err := client.Counter("requests_total", "Total requests", []string{"service", "outcome"})
	if err != nil {
		t.Fatalf("Counter() second call error = %v", err)
	}
	if again != counter {
		t.Error("Expected the same counter instance")
	}

	if _, err := client.Histogram("requests_total", "dup", nil, nil); !errors.Is(err, ErrMetricExists) {
		t.Errorf("Expected ErrMetricExists, got %v", err)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	client := newTestClient(t)

	client.MustCounter("deploys_total", "Deploys", []string{"outcome"}).WithLabelValues("ok").Add(2)
	client.MustHistogram("deploy_seconds", "Deploy duration", []string{"op"}, []float64{0.1, 1}).
		WithLabelValues("deploy").Observe(0.5)
	gauge, err := client.Gauge("nodes", "Fleet size", nil)
	if err != nil {
		t.Fatalf("Gauge() error = %v", err)
	}
	gauge.WithLabelValues().Set(3)

	rec := httptest.NewRecorder()
	client.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, want := range []string{
		`test_deploys_total{outcome="ok"} 2`,
		`test_deploy_seconds_bucket{op="deploy",le="1"} 1`,
		`test_nodes 3`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("Expected metrics output to contain %q", want)
		}
	}
}

func TestClientClose(t *testing.T) {
	client, err := New(&Config{Namespace: "test"}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if !client.IsClosed() {
		t.Error("Expected client to be closed")
	}
	if err := client.Close(); !errors.Is(err, ErrClientClosed) {
		t.Errorf("Expected ErrClientClosed, got %v", err)
	}
	if _, err := client.Counter("after_close", "After close", nil); !errors.Is(err, ErrClientClosed) {
		t.Errorf("Expected ErrClientClosed, got %v", err)
	}
}
