package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lk2023060901/flotilla/app/orchestrator/internal/fleet"
	"github.com/lk2023060901/flotilla/app/orchestrator/internal/model"
	"github.com/lk2023060901/flotilla/app/orchestrator/internal/store"
	"github.com/lk2023060901/flotilla/pkg/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ========== fakes ==========

type fakeLister struct {
	mu    sync.Mutex
	nodes []model.NodeInfo
}

func (l *fakeLister) Nodes(context.Context) ([]model.NodeInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.NodeInfo(nil), l.nodes...), nil
}

func (l *fakeLister) set(nodes ...model.NodeInfo) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nodes = nodes
}

type fakeGateway struct {
	mu         sync.Mutex
	started    map[string]int
	removed    map[string]int
	failStart  map[string]error
	failRemove map[string]error
	failPing   map[string]error
	failList   map[string]error
	containers map[string][]model.Container
	listDelay  map[string]time.Duration
	block      map[string]chan struct{}
	onStart    func(host string)
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		started:    make(map[string]int),
		removed:    make(map[string]int),
		failStart:  make(map[string]error),
		failRemove: make(map[string]error),
		failPing:   make(map[string]error),
		failList:   make(map[string]error),
		containers: make(map[string][]model.Container),
		listDelay:  make(map[string]time.Duration),
		block:      make(map[string]chan struct{}),
	}
}

func (g *fakeGateway) Ping(_ context.Context, host string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.failPing[host]
}

func (g *fakeGateway) Start(_ context.Context, host string, desc *model.ServiceDescription, _ int) error {
	g.mu.Lock()
	hook := g.onStart
	if err := g.failStart[host]; err != nil {
		g.mu.Unlock()
		return err
	}
	g.started[host]++
	g.containers[host] = []model.Container{{Name: desc.ID, Status: "running"}}
	g.mu.Unlock()

	if hook != nil {
		hook(host)
	}
	return nil
}

func (g *fakeGateway) Remove(_ context.Context, host, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failRemove[host]; err != nil {
		return err
	}
	g.removed[host]++
	delete(g.containers, host)
	return nil
}

// List 可按主机注入延迟；block 中的主机忽略 ctx，直到通道关闭
func (g *fakeGateway) List(ctx context.Context, host string) ([]model.Container, error) {
	g.mu.Lock()
	delay := g.listDelay[host]
	block := g.block[host]
	g.mu.Unlock()

	if block != nil {
		<-block
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failList[host]; err != nil {
		return nil, err
	}
	return append([]model.Container(nil), g.containers[host]...), nil
}

func (g *fakeGateway) startCount(host string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.started[host]
}

func (g *fakeGateway) removeCount(host string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.removed[host]
}

type fakeProxy struct {
	mu      sync.Mutex
	entries map[string]int
}

func newFakeProxy() *fakeProxy {
	return &fakeProxy{entries: make(map[string]int)}
}

func (p *fakeProxy) CreateEntry(_ context.Context, host, serviceID string, port int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[host+"/"+serviceID] = port
	return nil
}

func (p *fakeProxy) RemoveEntry(_ context.Context, host, serviceID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.entries, host+"/"+serviceID)
	return nil
}

func (p *fakeProxy) entry(host, serviceID string) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	port, ok := p.entries[host+"/"+serviceID]
	return port, ok
}

type countingPorts struct {
	inner fleet.PortAllocator
	calls atomic.Int32
}

func (c *countingPorts) Allocate(ctx context.Context) (int, error) {
	c.calls.Add(1)
	return c.inner.Allocate(ctx)
}

type recordingSink struct {
	mu     sync.Mutex
	events []fleet.Event
}

func (s *recordingSink) Publish(_ context.Context, e fleet.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) types() []fleet.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]fleet.EventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Type)
	}
	return out
}

type harness struct {
	mgr     *Manager
	lister  *fakeLister
	gateway *fakeGateway
	proxy   *fakeProxy
	ports   *countingPorts
	repo    *store.MemoryRepository
	events  *recordingSink
}

func nodes(n int) []model.NodeInfo {
	out := make([]model.NodeInfo, n)
	for i := range out {
		out[i] = model.NodeInfo{NodeID: fmt.Sprintf("n%d", i+1), Host: fmt.Sprintf("10.0.0.%d", i+1)}
	}
	return out
}

func newHarness(t *testing.T, cfg *Config, fleetNodes []model.NodeInfo) *harness {
	t.Helper()
	h := &harness{
		lister:  &fakeLister{nodes: fleetNodes},
		gateway: newFakeGateway(),
		proxy:   newFakeProxy(),
		ports:   &countingPorts{inner: store.NewMemoryPortAllocator(20000, 20100)},
		repo:    store.NewMemoryRepository(),
		events:  &recordingSink{},
	}
	mgr, err := NewManager(cfg, h.lister, h.gateway, h.proxy, h.ports, h.repo, h.events, nil, nil)
	require.NoError(t, err)
	h.mgr = mgr
	return h
}

func (h *harness) create(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, h.mgr.Create(context.Background(), &model.ServiceDescription{ID: id, Image: "nginx:1.27", ContainerPort: 80}))
}

// ========== tests ==========

func TestNewManagerDefaults(t *testing.T) {
	h := newHarness(t, nil, nil)
	assert.Equal(t, 4, h.mgr.config.PoolSize)
	assert.Equal(t, 2*time.Second, h.mgr.config.InfoTimeout)

	_, err := NewManager(&Config{PoolSize: -1}, nil, nil, nil, nil, nil, nil, nil, nil)
	assert.Error(t, err)
}

func TestCreateAndDescribe(t *testing.T) {
	h := newHarness(t, nil, nodes(2))
	ctx := context.Background()

	h.create(t, "web")

	desc, err := h.mgr.Describe(ctx, "web")
	require.NoError(t, err)
	assert.Equal(t, "nginx:1.27", desc.Image)
	assert.Equal(t, 0, desc.SymmetryPort)
	assert.Equal(t, model.StateCreated, desc.State())
	assert.False(t, desc.CreatedAt.IsZero())

	err = h.mgr.Create(ctx, &model.ServiceDescription{ID: "web", Image: "other"})
	assert.ErrorIs(t, err, errs.ErrAlreadyExists)

	desc, err = h.mgr.Describe(ctx, "web")
	require.NoError(t, err)
	assert.Equal(t, "nginx:1.27", desc.Image)

	_, err = h.mgr.Describe(ctx, "missing")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	// create 不触碰节点
	assert.Zero(t, h.gateway.startCount("10.0.0.1"))
	assert.Equal(t, []fleet.EventType{fleet.EventCreated}, h.events.types())
}

func TestCreateValidation(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()

	tests := []*model.ServiceDescription{
		nil,
		{ID: "", Image: "nginx"},
		{ID: "web", Image: ""},
		{ID: "Bad_ID", Image: "nginx"},
		{ID: "web", Image: "nginx", ContainerPort: 70000},
	}
	for i, desc := range tests {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			assert.ErrorIs(t, h.mgr.Create(ctx, desc), errs.ErrInvalidArgument)
		})
	}

	all, err := h.mgr.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestDeploySuccess(t *testing.T) {
	h := newHarness(t, nil, nodes(3))
	ctx := context.Background()
	h.create(t, "web")

	report, err := h.mgr.Deploy(ctx, "web")
	require.NoError(t, err)
	assert.Equal(t, 20000, report.SymmetryPort)
	require.Len(t, report.Results, 3)
	for i, r := range report.Results {
		assert.True(t, r.OK())
		assert.Equal(t, fmt.Sprintf("n%d", i+1), r.NodeID)
	}

	for _, n := range nodes(3) {
		assert.Equal(t, 1, h.gateway.startCount(n.Host))
		port, ok := h.proxy.entry(n.Host, "web")
		assert.True(t, ok)
		assert.Equal(t, 20000, port)
	}

	desc, err := h.mgr.Describe(ctx, "web")
	require.NoError(t, err)
	assert.Equal(t, []string{"n1", "n2", "n3"}, desc.DeployedNodes)
	assert.Equal(t, model.StateDeployed, desc.State())
	assert.Equal(t, []fleet.EventType{fleet.EventCreated, fleet.EventDeployed}, h.events.types())
}

func TestDeployUnknownService(t *testing.T) {
	h := newHarness(t, nil, nodes(1))
	_, err := h.mgr.Deploy(context.Background(), "missing")
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.Zero(t, h.ports.calls.Load())
}

func TestDeployPartialFailure(t *testing.T) {
	h := newHarness(t, nil, nodes(3))
	ctx := context.Background()
	h.create(t, "web")

	boom := errors.New("image pull failed")
	h.gateway.failStart["10.0.0.2"] = boom

	// 端口必须在任何节点操作之前落盘
	var portAtStart atomic.Int64
	h.gateway.onStart = func(host string) {
		if host != "10.0.0.1" {
			return
		}
		desc, err := h.repo.Get(ctx, "web")
		if err == nil {
			portAtStart.Store(int64(desc.SymmetryPort))
		}
	}

	report, err := h.mgr.Deploy(ctx, "web")
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrFleetOperation)
	assert.ErrorIs(t, err, boom)

	var ferr *FleetError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, OpDeploy, ferr.Op)
	require.Len(t, ferr.Results, 3)
	assert.True(t, ferr.Results[0].OK())
	assert.False(t, ferr.Results[1].OK())
	assert.True(t, ferr.Results[2].OK())
	require.Len(t, ferr.Failed(), 1)
	assert.Equal(t, "n2", ferr.Failed()[0].NodeID)
	assert.Contains(t, err.Error(), "n2")

	require.NotNil(t, report)
	assert.Equal(t, 20000, report.SymmetryPort)

	// 其他节点的任务照常完成
	assert.Equal(t, 1, h.gateway.startCount("10.0.0.1"))
	assert.Equal(t, 1, h.gateway.startCount("10.0.0.3"))
	assert.Equal(t, int64(20000), portAtStart.Load())

	desc, err := h.mgr.Describe(ctx, "web")
	require.NoError(t, err)
	assert.Equal(t, 20000, desc.SymmetryPort)
	assert.Nil(t, desc.DeployedNodes)

	types := h.events.types()
	assert.Equal(t, fleet.EventFailed, types[len(types)-1])
}

func TestRedeployReusesPort(t *testing.T) {
	h := newHarness(t, nil, nodes(2))
	ctx := context.Background()
	h.create(t, "web")
	h.create(t, "api")

	first, err := h.mgr.Deploy(ctx, "web")
	require.NoError(t, err)
	second, err := h.mgr.Deploy(ctx, "web")
	require.NoError(t, err)

	assert.Equal(t, first.SymmetryPort, second.SymmetryPort)
	assert.Equal(t, int32(1), h.ports.calls.Load())
	assert.Equal(t, 2, h.gateway.startCount("10.0.0.1"))

	other, err := h.mgr.Deploy(ctx, "api")
	require.NoError(t, err)
	assert.NotEqual(t, first.SymmetryPort, other.SymmetryPort)
}

func TestRedeployForgetsDepartedNodes(t *testing.T) {
	h := newHarness(t, nil, nodes(3))
	ctx := context.Background()
	h.create(t, "web")

	_, err := h.mgr.Deploy(ctx, "web")
	require.NoError(t, err)

	h.lister.set(nodes(3)[0], model.NodeInfo{NodeID: "n4", Host: "10.0.0.4"})
	report, err := h.mgr.Deploy(ctx, "web")
	require.NoError(t, err)
	assert.Equal(t, []string{"n2", "n3"}, report.Forgotten)

	desc, err := h.mgr.Describe(ctx, "web")
	require.NoError(t, err)
	assert.Equal(t, []string{"n1", "n4"}, desc.DeployedNodes)
}

func TestUndeploy(t *testing.T) {
	h := newHarness(t, nil, nodes(2))
	ctx := context.Background()
	h.create(t, "web")
	_, err := h.mgr.Deploy(ctx, "web")
	require.NoError(t, err)

	report, err := h.mgr.Undeploy(ctx, "web")
	require.NoError(t, err)
	assert.Equal(t, 20000, report.SymmetryPort)

	for _, n := range nodes(2) {
		assert.Equal(t, 1, h.gateway.removeCount(n.Host))
		_, ok := h.proxy.entry(n.Host, "web")
		assert.False(t, ok)
	}

	desc, err := h.mgr.Describe(ctx, "web")
	require.NoError(t, err)
	assert.NotNil(t, desc.DeployedNodes)
	assert.Empty(t, desc.DeployedNodes)
	assert.Equal(t, model.StateUndeployed, desc.State())
	assert.Equal(t, 20000, desc.SymmetryPort)

	// 撤销后可以删除，且不会产生新的端口分配
	require.NoError(t, h.mgr.Remove(ctx, "web"))
	assert.Equal(t, int32(1), h.ports.calls.Load())

	_, err = h.mgr.Undeploy(ctx, "web")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestRemove(t *testing.T) {
	h := newHarness(t, nil, nodes(2))
	ctx := context.Background()

	assert.ErrorIs(t, h.mgr.Remove(ctx, "missing"), errs.ErrNotFound)

	h.create(t, "web")
	_, err := h.mgr.Deploy(ctx, "web")
	require.NoError(t, err)

	// 不检查部署状态：描述被删除，节点上的容器保持原样
	require.NoError(t, h.mgr.Remove(ctx, "web"))
	_, err = h.mgr.Describe(ctx, "web")
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.Zero(t, h.gateway.removeCount("10.0.0.1"))
	_, ok := h.proxy.entry("10.0.0.1", "web")
	assert.True(t, ok)

	h.events.mu.Lock()
	last := h.events.events[len(h.events.events)-1]
	h.events.mu.Unlock()
	assert.Equal(t, fleet.EventRemoved, last.Type)
	assert.Equal(t, []string{"n1", "n2"}, last.Nodes)

	h.create(t, "api")
	require.NoError(t, h.mgr.Remove(ctx, "api"))
	_, err = h.mgr.Describe(ctx, "api")
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.Zero(t, h.mgr.locks.size())
}

// rendezvousPorts 每次分配都等待另一个调用者最多 wait，用来放大并发分配的窗口
type rendezvousPorts struct {
	inner   fleet.PortAllocator
	arrived chan struct{}
	wait    time.Duration
	calls   atomic.Int32
}

func (p *rendezvousPorts) Allocate(ctx context.Context) (int, error) {
	p.calls.Add(1)
	select {
	case p.arrived <- struct{}{}:
	case <-p.arrived:
	case <-time.After(p.wait):
	}
	return p.inner.Allocate(ctx)
}

func TestConcurrentDeployKeepsPort(t *testing.T) {
	h := newHarness(t, nil, nodes(2))
	ports := &rendezvousPorts{
		inner:   store.NewMemoryPortAllocator(20000, 20100),
		arrived: make(chan struct{}),
		wait:    100 * time.Millisecond,
	}
	mgr, err := NewManager(nil, h.lister, h.gateway, h.proxy, ports, h.repo, h.events, nil, nil)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, mgr.Create(ctx, &model.ServiceDescription{ID: "web", Image: "nginx:1.27"}))

	var wg sync.WaitGroup
	reports := make([]*Report, 2)
	for i := range reports {
		wg.Add(1)
		go func() {
			defer wg.Done()
			report, err := mgr.Deploy(ctx, "web")
			assert.NoError(t, err)
			reports[i] = report
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ports.calls.Load())
	require.NotNil(t, reports[0])
	require.NotNil(t, reports[1])
	assert.Equal(t, 20000, reports[0].SymmetryPort)
	assert.Equal(t, 20000, reports[1].SymmetryPort)

	desc, err := mgr.Describe(ctx, "web")
	require.NoError(t, err)
	assert.Equal(t, 20000, desc.SymmetryPort)
	for _, n := range nodes(2) {
		port, ok := h.proxy.entry(n.Host, "web")
		assert.True(t, ok)
		assert.Equal(t, 20000, port)
	}
}

func TestKeyedMutex(t *testing.T) {
	k := newKeyedMutex()

	unlockA := k.lock("a")
	unlockB := k.lock("b")
	assert.Equal(t, 2, k.size())

	acquired := make(chan struct{})
	go func() {
		unlock := k.lock("a")
		close(acquired)
		unlock()
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired a locked key")
	case <-time.After(50 * time.Millisecond):
	}

	unlockA()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock not released")
	}

	unlockB()
	assert.Eventually(t, func() bool { return k.size() == 0 }, time.Second, 10*time.Millisecond)
}

func TestDestroy(t *testing.T) {
	h := newHarness(t, nil, nodes(2))
	ctx := context.Background()
	h.create(t, "web")
	_, err := h.mgr.Deploy(ctx, "web")
	require.NoError(t, err)

	_, err = h.mgr.Destroy(ctx, "web")
	require.NoError(t, err)

	_, err = h.mgr.Describe(ctx, "web")
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.Equal(t, 1, h.gateway.removeCount("10.0.0.1"))

	types := h.events.types()
	assert.Equal(t, fleet.EventDestroyed, types[len(types)-1])
}

func TestDestroyKeepsMetadataOnFailure(t *testing.T) {
	h := newHarness(t, nil, nodes(3))
	ctx := context.Background()
	h.create(t, "web")
	_, err := h.mgr.Deploy(ctx, "web")
	require.NoError(t, err)

	h.gateway.failRemove["10.0.0.3"] = errors.New("daemon unreachable")

	_, err = h.mgr.Destroy(ctx, "web")
	require.Error(t, err)
	var ferr *FleetError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, OpDestroy, ferr.Op)
	assert.Equal(t, "n3", ferr.Failed()[0].NodeID)

	desc, err := h.mgr.Describe(ctx, "web")
	require.NoError(t, err)
	assert.Equal(t, []string{"n1", "n2", "n3"}, desc.DeployedNodes)
	assert.Equal(t, 20000, desc.SymmetryPort)

	// 故障恢复后重试成功
	delete(h.gateway.failRemove, "10.0.0.3")
	_, err = h.mgr.Destroy(ctx, "web")
	require.NoError(t, err)
	_, err = h.mgr.Describe(ctx, "web")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestFanOutBoundedConcurrency(t *testing.T) {
	h := newHarness(t, &Config{PoolSize: 2}, nodes(6))
	ctx := context.Background()
	h.create(t, "web")

	var running, peak atomic.Int32
	h.gateway.onStart = func(string) {
		cur := running.Add(1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		running.Add(-1)
	}

	_, err := h.mgr.Deploy(ctx, "web")
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(2))
	for _, n := range nodes(6) {
		assert.Equal(t, 1, h.gateway.startCount(n.Host))
	}
}

func TestInfo(t *testing.T) {
	h := newHarness(t, nil, nodes(3))
	ctx := context.Background()
	h.create(t, "web")
	_, err := h.mgr.Deploy(ctx, "web")
	require.NoError(t, err)

	h.gateway.failPing["10.0.0.2"] = errors.New("connection refused")
	h.gateway.mu.Lock()
	delete(h.gateway.containers, "10.0.0.3")
	h.gateway.mu.Unlock()

	info, err := h.mgr.Info(ctx, "web")
	require.NoError(t, err)
	assert.Equal(t, "web", info.ServiceID)
	assert.Equal(t, 20000, info.SymmetryPort)
	assert.Equal(t, []model.ServiceStatus{
		{NodeID: "n1", Host: "10.0.0.1", Status: "running"},
		{NodeID: "n2", Host: "10.0.0.2", Status: model.StatusUnknown},
		{NodeID: "n3", Host: "10.0.0.3", Status: model.StatusCreated},
	}, info.Nodes)

	_, err = h.mgr.Info(ctx, "missing")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestInfoListFailure(t *testing.T) {
	h := newHarness(t, nil, nodes(2))
	ctx := context.Background()
	h.create(t, "web")
	_, err := h.mgr.Deploy(ctx, "web")
	require.NoError(t, err)

	h.gateway.failList["10.0.0.2"] = errors.New("permission denied")

	info, err := h.mgr.Info(ctx, "web")
	require.NoError(t, err)
	assert.Equal(t, "running", info.Nodes[0].Status)
	assert.Equal(t, model.StatusError, info.Nodes[1].Status)
}

func TestInfoPreservesOrder(t *testing.T) {
	h := newHarness(t, nil, nodes(4))
	ctx := context.Background()
	h.create(t, "web")
	_, err := h.mgr.Deploy(ctx, "web")
	require.NoError(t, err)

	// 先到的节点最后完成
	for i, n := range nodes(4) {
		h.gateway.listDelay[n.Host] = time.Duration(4-i) * 30 * time.Millisecond
	}

	info, err := h.mgr.Info(ctx, "web")
	require.NoError(t, err)
	require.Len(t, info.Nodes, 4)
	for i, s := range info.Nodes {
		assert.Equal(t, fmt.Sprintf("n%d", i+1), s.NodeID)
		assert.Equal(t, "running", s.Status)
	}
}

func TestInfoDeadline(t *testing.T) {
	h := newHarness(t, &Config{PoolSize: 1, InfoTimeout: 100 * time.Millisecond}, nodes(3))
	ctx := context.Background()
	h.create(t, "web")
	_, err := h.mgr.Deploy(ctx, "web")
	require.NoError(t, err)

	// n1 无视 ctx 一直阻塞，占满唯一的 worker
	release := make(chan struct{})
	defer close(release)
	h.gateway.block["10.0.0.1"] = release

	start := time.Now()
	info, err := h.mgr.Info(ctx, "web")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)

	require.Len(t, info.Nodes, 3)
	for i, s := range info.Nodes {
		assert.Equal(t, fmt.Sprintf("n%d", i+1), s.NodeID)
		assert.Equal(t, model.StatusUnknown, s.Status)
	}
}

func TestFleetErrorIs(t *testing.T) {
	cause := errors.New("boom")
	err := fleetError(OpUndeploy, "web", []NodeResult{
		{NodeID: "n1", Host: "h1"},
		{NodeID: "n2", Host: "h2", Err: cause},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrFleetOperation)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, errs.ErrNotFound)
	assert.Equal(t, "undeploy web: 1 of 2 nodes failed: n2(h2): boom", err.Error())

	assert.NoError(t, fleetError(OpUndeploy, "web", []NodeResult{{NodeID: "n1"}}))
	assert.NoError(t, fleetError(OpUndeploy, "web", nil))
}
