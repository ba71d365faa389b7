package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/lk2023060901/flotilla/app/orchestrator/internal/fleet"
	"github.com/lk2023060901/flotilla/app/orchestrator/internal/model"
	"github.com/lk2023060901/flotilla/pkg/database/redis"
	"github.com/lk2023060901/flotilla/pkg/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisRepo(t *testing.T) (*RedisRepository, *RedisPortAllocator, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := redis.NewClient(&redis.Config{Addrs: []string{mr.Addr()}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisRepository(client, "flotilla"), NewRedisPortAllocator(client, "flotilla", 20000, 20001), mr
}

// testRepository 两种实现共用的行为检查
func testRepository(t *testing.T, repo fleet.MetadataRepository) {
	ctx := context.Background()

	has, err := repo.Has(ctx, "web")
	require.NoError(t, err)
	assert.False(t, has)

	_, err = repo.Get(ctx, "web")
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.ErrorIs(t, repo.Remove(ctx, "web"), errs.ErrNotFound)
	assert.ErrorIs(t, repo.SetDeployedNodes(ctx, "web", []string{"n1"}), errs.ErrNotFound)

	desc := &model.ServiceDescription{
		ID:            "web",
		Image:         "nginx:1.27",
		Env:           map[string]string{"A": "1"},
		ContainerPort: 80,
		CreatedAt:     time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, repo.Save(ctx, desc))
	require.NoError(t, repo.Save(ctx, &model.ServiceDescription{ID: "api", Image: "api:1"}))

	has, err = repo.Has(ctx, "web")
	require.NoError(t, err)
	assert.True(t, has)

	got, err := repo.Get(ctx, "web")
	require.NoError(t, err)
	assert.Equal(t, "nginx:1.27", got.Image)
	assert.Equal(t, "1", got.Env["A"])
	assert.Equal(t, model.StateCreated, got.State())

	require.NoError(t, repo.SetDeployedNodes(ctx, "web", []string{"n1", "n2"}))
	got, err = repo.Get(ctx, "web")
	require.NoError(t, err)
	assert.Equal(t, []string{"n1", "n2"}, got.DeployedNodes)

	require.NoError(t, repo.SetDeployedNodes(ctx, "web", []string{}))
	got, err = repo.Get(ctx, "web")
	require.NoError(t, err)
	assert.Equal(t, model.StateUndeployed, got.State())

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "api", all[0].ID)
	assert.Equal(t, "web", all[1].ID)

	require.NoError(t, repo.Remove(ctx, "web"))
	_, err = repo.Get(ctx, "web")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestMemoryRepository(t *testing.T) {
	testRepository(t, NewMemoryRepository())
}

func TestMemoryRepositoryIsolation(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	desc := &model.ServiceDescription{ID: "web", Command: []string{"run"}}
	require.NoError(t, repo.Save(ctx, desc))
	desc.Command[0] = "mutated"

	got, err := repo.Get(ctx, "web")
	require.NoError(t, err)
	assert.Equal(t, "run", got.Command[0])

	got.Command[0] = "mutated"
	again, err := repo.Get(ctx, "web")
	require.NoError(t, err)
	assert.Equal(t, "run", again.Command[0])
}

func TestMemoryPortAllocator(t *testing.T) {
	a := NewMemoryPortAllocator(100, 101)
	ctx := context.Background()

	p, err := a.Allocate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100, p)

	p, err = a.Allocate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 101, p)

	_, err = a.Allocate(ctx)
	assert.ErrorIs(t, err, ErrPortsExhausted)
}

func TestRedisRepository(t *testing.T) {
	repo, _, mr := newRedisRepo(t)
	testRepository(t, repo)

	assert.False(t, mr.Exists("flotilla:service:web"))
	assert.True(t, mr.Exists("flotilla:service:api"))
	members, err := mr.Members("flotilla:services")
	require.NoError(t, err)
	assert.Equal(t, []string{"api"}, members)
}

func TestRedisRepositorySkipsDanglingIndex(t *testing.T) {
	repo, _, mr := newRedisRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &model.ServiceDescription{ID: "web", Image: "nginx"}))
	_, err := mr.SAdd("flotilla:services", "ghost")
	require.NoError(t, err)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "web", all[0].ID)
}

func TestRedisPortAllocator(t *testing.T) {
	_, ports, mr := newRedisRepo(t)
	ctx := context.Background()

	p, err := ports.Allocate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20000, p)

	p, err = ports.Allocate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20001, p)

	_, err = ports.Allocate(ctx)
	assert.ErrorIs(t, err, ErrPortsExhausted)

	counter, err := mr.Get("flotilla:ports:next")
	require.NoError(t, err)
	assert.Equal(t, "3", counter)
}

func TestPortFromSequence(t *testing.T) {
	p, err := portFromSequence(20000, 20010, 1)
	require.NoError(t, err)
	assert.Equal(t, 20000, p)

	p, err = portFromSequence(20000, 20010, 11)
	require.NoError(t, err)
	assert.Equal(t, 20010, p)

	_, err = portFromSequence(20000, 20010, 12)
	assert.ErrorIs(t, err, ErrPortsExhausted)

	_, err = portFromSequence(20000, 20010, 0)
	assert.ErrorIs(t, err, ErrPortsExhausted)
}

func TestPostgresQueries(t *testing.T) {
	query, args, err := buildHas("web")
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1 FROM services WHERE id = $1", query)
	assert.Equal(t, []any{"web"}, args)

	query, _, err = buildGet("web")
	require.NoError(t, err)
	assert.Equal(t, "SELECT description FROM services WHERE id = $1", query)

	now := time.Now()
	query, args, err = buildSave(&model.ServiceDescription{ID: "web", Image: "nginx", SymmetryPort: 20001, CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(query,
		"INSERT INTO services (id,description,symmetry_port,deployed_nodes,created_at,updated_at) VALUES ($1,$2,$3,$4,$5,$6) ON CONFLICT (id) DO UPDATE SET"))
	assert.NotContains(t, query, "created_at = EXCLUDED")
	require.Len(t, args, 6)
	assert.Equal(t, "web", args[0])
	assert.Equal(t, 20001, args[2])

	query, args, err = buildSetDeployedNodes("web", nil, now)
	require.NoError(t, err)
	assert.Equal(t,
		"UPDATE services SET description = jsonb_set(description, '{deployed_nodes}', $1::jsonb), deployed_nodes = $2, updated_at = $3 WHERE id = $4",
		query)
	assert.Equal(t, "[]", args[0])
	assert.Equal(t, []string{}, args[1])
	assert.Equal(t, "web", args[3])
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Driver = "mysql"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.PortMax = cfg.PortBase - 1
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Driver = DriverRedis
	cfg.KeyPrefix = ""
	assert.Error(t, cfg.Validate())
}

func TestNewMemoryStore(t *testing.T) {
	s, err := New(context.Background(), &Config{PortBase: 30000, PortMax: 30000}, nil)
	require.NoError(t, err)
	defer s.Close()

	assert.IsType(t, &MemoryRepository{}, s.Repository)
	p, err := s.Ports.Allocate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 30000, p)
}

func TestNewRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := New(context.Background(), &Config{
		Driver: DriverRedis,
		Redis:  &redis.Config{Addrs: []string{mr.Addr()}},
	}, nil)
	require.NoError(t, err)
	defer s.Close()

	assert.IsType(t, &RedisRepository{}, s.Repository)
	p, err := s.Ports.Allocate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 20000, p)
}
