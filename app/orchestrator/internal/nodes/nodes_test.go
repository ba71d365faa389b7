package nodes

import (
	"context"
	"errors"
	"testing"

	"github.com/lk2023060901/flotilla/app/orchestrator/internal/model"
	"github.com/lk2023060901/flotilla/pkg/etcd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeKV struct {
	prefix string
	kvs    []*etcd.KeyValue
	err    error
}

func (f *fakeKV) GetWithPrefix(_ context.Context, prefix string) ([]*etcd.KeyValue, error) {
	f.prefix = prefix
	if f.err != nil {
		return nil, f.err
	}
	if len(f.kvs) == 0 {
		return nil, etcd.ErrKeyNotFound
	}
	return f.kvs, nil
}

func TestEtcdLister(t *testing.T) {
	kv := &fakeKV{kvs: []*etcd.KeyValue{
		{Key: "/flotilla/nodes/a", Value: `{"node_id":"a","host":"10.0.0.1"}`},
		{Key: "/flotilla/nodes/b", Value: `{"host":"10.0.0.2"}`},
		{Key: "/flotilla/nodes/c", Value: `not-json`},
		{Key: "/flotilla/nodes/d", Value: `{"node_id":"d"}`},
		{Key: "/flotilla/nodes/e", Value: `{"node_id":"e","host":"10.0.0.5"}`},
	}}
	lister := NewEtcdLister(kv, "/flotilla/nodes/", nil)

	got, err := lister.Nodes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/flotilla/nodes/", kv.prefix)
	assert.Equal(t, []model.NodeInfo{
		{NodeID: "a", Host: "10.0.0.1"},
		{NodeID: "b", Host: "10.0.0.2"},
		{NodeID: "e", Host: "10.0.0.5"},
	}, got)
}

func TestEtcdListerEmpty(t *testing.T) {
	lister := NewEtcdLister(&fakeKV{}, "/flotilla/nodes", nil)
	got, err := lister.Nodes(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestEtcdListerError(t *testing.T) {
	boom := errors.New("etcd unavailable")
	lister := NewEtcdLister(&fakeKV{err: boom}, "/flotilla/nodes", nil)
	_, err := lister.Nodes(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestStaticLister(t *testing.T) {
	src := []model.NodeInfo{{NodeID: "a", Host: "h1"}, {NodeID: "b", Host: "h2"}}
	lister := NewStaticLister(src)
	src[0].Host = "changed"

	got, err := lister.Nodes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "h1", got[0].Host)

	got[1].Host = "changed"
	again, _ := lister.Nodes(context.Background())
	assert.Equal(t, "h2", again[1].Host)
}

func TestNew(t *testing.T) {
	lister, err := New(&Config{
		Source: SourceStatic,
		Static: []model.NodeInfo{{NodeID: "a", Host: "h1"}},
	}, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &StaticLister{}, lister)

	_, err = New(&Config{Source: SourceEtcd}, nil, nil)
	assert.Error(t, err)

	_, err = New(&Config{Source: "consul"}, nil, nil)
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	dup := &Config{Source: SourceStatic, Static: []model.NodeInfo{
		{NodeID: "a", Host: "h1"}, {NodeID: "a", Host: "h2"},
	}}
	assert.Error(t, dup.Validate())

	missing := &Config{Source: SourceStatic, Static: []model.NodeInfo{{NodeID: "a"}}}
	assert.Error(t, missing.Validate())

	assert.Error(t, (&Config{Source: SourceEtcd, Prefix: "/"}).Validate())
}
