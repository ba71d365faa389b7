package sentry

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDSN = "https://public@sentry.example.com/1"

type eventSink struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (s *eventSink) beforeSend(e *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *eventSink) list() []*sentry.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*sentry.Event(nil), s.events...)
}

func TestReportErrorAndPanic(t *testing.T) {
	sink := &eventSink{}
	c, err := New(&Config{DSN: testDSN, Tags: map[string]string{"app": "flotilla"}}, WithBeforeSend(sink.beforeSend))
	require.NoError(t, err)

	c.ReportError(context.Background(), errors.New("store unavailable"), map[string]string{"route": "/v1/services"})
	c.ReportPanic(context.Background(), "nil map write", map[string]string{"route": "/v1/services/:id"})
	assert.Empty(t, c.ReportError(context.Background(), nil, nil))

	events := sink.list()
	require.Len(t, events, 2)
	assert.Equal(t, "flotilla", events[0].Tags["app"])
	assert.Equal(t, "/v1/services", events[0].Tags["route"])
	require.NotEmpty(t, events[0].Exception)
	assert.Equal(t, "store unavailable", events[0].Exception[0].Value)
	assert.Equal(t, "/v1/services/:id", events[1].Tags["route"])

	// BeforeSend 返回 nil 的事件计为丢弃
	stats := c.Stats()
	assert.Equal(t, uint64(2), stats.EventsTotal)
	assert.Equal(t, uint64(2), stats.EventsDropped)

	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Close(), ErrClientClosed)
	assert.Empty(t, c.ReportError(context.Background(), errors.New("late"), nil))
	assert.Len(t, sink.list(), 2)
}

func TestScopeTagsDoNotLeak(t *testing.T) {
	sink := &eventSink{}
	c, err := New(&Config{DSN: testDSN}, WithBeforeSend(sink.beforeSend))
	require.NoError(t, err)

	c.ReportError(context.Background(), errors.New("a"), map[string]string{"only": "first"})
	c.ReportError(context.Background(), errors.New("b"), nil)

	events := sink.list()
	require.Len(t, events, 2)
	assert.Equal(t, "first", events[0].Tags["only"])
	assert.NotContains(t, events[1].Tags, "only")
}

func TestConfig(t *testing.T) {
	assert.False(t, (&Config{}).Enabled())
	assert.False(t, (*Config)(nil).Enabled())
	assert.True(t, (&Config{DSN: testDSN}).Enabled())

	_, err := New(&Config{})
	assert.ErrorIs(t, err, ErrInvalidDSN)

	_, err = New(&Config{DSN: testDSN, SampleRate: 1.5})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
