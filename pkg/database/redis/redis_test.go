package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testObject struct {
	ID    string   `json:"id"`
	Nodes []string `json:"nodes"`
}

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewClient(&Config{Addrs: []string{mr.Addr()}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestConfigValidate(t *testing.T) {
	var nilCfg *Config
	assert.ErrorIs(t, nilCfg.Validate(), ErrNilConfig)
	assert.ErrorIs(t, (&Config{}).Validate(), ErrInvalidConfig)
	assert.ErrorIs(t, (&Config{Addrs: []string{""}}).Validate(), ErrInvalidConfig)
	assert.ErrorIs(t, (&Config{Addrs: []string{"a:1"}, DB: 16}).Validate(), ErrInvalidConfig)
	assert.NoError(t, DefaultConfig().Validate())

	assert.False(t, (&Config{Addrs: []string{"a:1"}}).IsCluster())
	assert.True(t, (&Config{Addrs: []string{"a:1", "b:1"}}).IsCluster())
}

func TestNewClientUnreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = NewClient(&Config{Addrs: []string{addr}})
	assert.Error(t, err)
}

func TestStringCommands(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	_, err := client.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNil)

	require.NoError(t, client.Set(ctx, "k", "v", 0))
	val, err := client.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", val)

	n, err := client.Exists(ctx, "k", "missing")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = client.Del(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	for want := int64(1); want <= 3; want++ {
		got, err := client.Incr(ctx, "counter")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestSetCommands(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	_, err := client.SAdd(ctx, "s", "a", "b")
	require.NoError(t, err)

	ok, err := client.SIsMember(ctx, "s", "a")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = client.SRem(ctx, "s", "a")
	require.NoError(t, err)

	members, err := client.SMembers(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, members)
}

func TestTxPipelined(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()

	err := client.TxPipelined(ctx, func(p *Pipeline) error {
		p.Set("obj:1", "x", 0).SAdd("objs", "1")
		return nil
	})
	require.NoError(t, err)
	assert.True(t, mr.Exists("obj:1"))
	ok, err := mr.SIsMember("objs", "1")
	require.NoError(t, err)
	assert.True(t, ok)

	err = client.TxPipelined(ctx, func(p *Pipeline) error {
		p.Del("obj:1").SRem("objs", "1")
		return nil
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists("obj:1"))
}

func TestObjectSerialization(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	_, err := GetObject[testObject](client, ctx, "obj")
	assert.ErrorIs(t, err, ErrNil)

	require.NoError(t, client.Set(ctx, "obj", `{"id":"svc","nodes":["n1"]}`, 0))
	got, err := GetObject[testObject](client, ctx, "obj")
	require.NoError(t, err)
	assert.Equal(t, "svc", got.ID)
	assert.Equal(t, []string{"n1"}, got.Nodes)

	require.NoError(t, client.Set(ctx, "bad", "not-json", 0))
	_, err = GetObject[testObject](client, ctx, "bad")
	assert.Error(t, err)
}
