// Package docker 通过 Docker Engine SDK 实现节点容器操作
package docker

import (
	"context"
	"fmt"
	"io"
	"net"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/docker/go-connections/nat"

	"github.com/lk2023060901/flotilla/app/orchestrator/internal/fleet"
	"github.com/lk2023060901/flotilla/app/orchestrator/internal/model"
	"github.com/lk2023060901/flotilla/pkg/config"
	"github.com/lk2023060901/flotilla/pkg/logger"
)

// ServiceLabel 标记由编排器创建的容器
const ServiceLabel = "flotilla.service"

var _ fleet.ContainerGateway = (*Gateway)(nil)

// Gateway 容器名即服务 ID；每个节点一个 SDK 客户端，首次访问时创建
type Gateway struct {
	config *Config
	logger logger.Logger

	mu      sync.Mutex
	clients map[string]*client.Client
	closed  bool
}

// New 创建 Docker 网关
func New(cfg *Config, l logger.Logger) (*Gateway, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}
	if err := newCfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid docker config: %w", err)
	}
	if l == nil {
		l = logger.NewNoop()
	}
	return &Gateway{
		config:  newCfg,
		logger:  l.Named("docker"),
		clients: make(map[string]*client.Client),
	}, nil
}

// address 节点的 Engine 地址，host 不带端口时使用配置的端口
func (g *Gateway) address(host string) string {
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, strconv.Itoa(g.config.Port))
	}
	return host
}

// client 取得节点的 SDK 客户端
func (g *Gateway) client(host string) (*client.Client, error) {
	addr := g.address(host)

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil, ErrGatewayClosed
	}
	if cli, ok := g.clients[addr]; ok {
		return cli, nil
	}

	opts := []client.Opt{
		client.WithHost("tcp://" + addr),
		client.WithScheme(g.config.Scheme),
		client.WithTimeout(g.config.Timeout),
	}
	if v := strings.TrimPrefix(g.config.APIVersion, "v"); v != "" {
		opts = append(opts, client.WithVersion(v))
	} else {
		opts = append(opts, client.WithAPIVersionNegotiation())
	}
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("docker client for %s: %w", addr, err)
	}
	g.clients[addr] = cli
	return cli, nil
}

// wrap 为 SDK 错误附加操作与节点
func wrap(err error, op, host string) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, "docker %s on %s", op, host)
}

func (g *Gateway) Ping(ctx context.Context, host string) error {
	cli, err := g.client(host)
	if err != nil {
		return err
	}
	_, err = cli.Ping(ctx)
	return wrap(err, "ping", host)
}

// Start 创建（已存在则跳过）并启动容器，端口绑定 ContainerPort/tcp → port
func (g *Gateway) Start(ctx context.Context, host string, desc *model.ServiceDescription, port int) error {
	cli, err := g.client(host)
	if err != nil {
		return err
	}
	if err := g.create(ctx, cli, host, desc, port); err != nil {
		return err
	}

	// 已在运行时 Engine 返回 304，SDK 视为成功
	if err := cli.ContainerStart(ctx, desc.ID, container.StartOptions{}); err != nil {
		return wrap(err, "start", host)
	}
	g.logger.DebugContext(ctx, "container started", "host", host, "service", desc.ID, "port", port)
	return nil
}

func (g *Gateway) create(ctx context.Context, cli *client.Client, host string, desc *model.ServiceDescription, port int) error {
	cfg, hostCfg := buildContainerConfig(desc, port, g.config.RestartPolicy)

	_, err := cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, desc.ID)
	switch {
	case err == nil:
		return nil
	case errdefs.IsConflict(err):
		g.logger.DebugContext(ctx, "container already exists", "host", host, "service", desc.ID)
		return nil
	case !errdefs.IsNotFound(err) || g.config.SkipPull:
		return wrap(err, "create", host)
	}

	g.logger.InfoContext(ctx, "pulling missing image", "host", host, "image", desc.Image)
	if err := g.pull(ctx, cli, host, desc.Image); err != nil {
		return err
	}
	_, err = cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, desc.ID)
	if errdefs.IsConflict(err) {
		return nil
	}
	return wrap(err, "create", host)
}

// pull 拉取镜像并读完进度流，流中的错误消息作为失败返回
func (g *Gateway) pull(ctx context.Context, cli *client.Client, host, ref string) error {
	name, tag := splitImage(ref)
	rc, err := cli.ImagePull(ctx, name+":"+tag, image.PullOptions{})
	if err != nil {
		return wrap(err, "pull", host)
	}
	defer rc.Close()

	return wrap(jsonmessage.DisplayJSONMessagesStream(rc, io.Discard, 0, false, nil), "pull", host)
}

// Remove 强制删除容器，容器不存在视为成功
func (g *Gateway) Remove(ctx context.Context, host, serviceID string) error {
	cli, err := g.client(host)
	if err != nil {
		return err
	}
	err = cli.ContainerRemove(ctx, serviceID, container.RemoveOptions{Force: true})
	if errdefs.IsNotFound(err) {
		return nil
	}
	return wrap(err, "remove", host)
}

// List 列出节点上全部容器（含已停止），名称去掉前导 "/"，状态取 State
func (g *Gateway) List(ctx context.Context, host string) ([]model.Container, error) {
	cli, err := g.client(host)
	if err != nil {
		return nil, err
	}
	summaries, err := cli.ContainerList(ctx, container.ListOptions{All: true})
	if err != nil {
		return nil, wrap(err, "list", host)
	}

	out := make([]model.Container, 0, len(summaries))
	for _, s := range summaries {
		if len(s.Names) == 0 {
			continue
		}
		out = append(out, model.Container{
			Name:   strings.TrimPrefix(s.Names[0], "/"),
			Status: s.State,
		})
	}
	return out, nil
}

// Close 关闭全部节点客户端
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true

	var errs []error
	for addr, cli := range g.clients {
		if err := cli.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close docker client %s: %w", addr, err))
		}
	}
	g.clients = nil
	return errors.Join(errs...)
}

func buildContainerConfig(desc *model.ServiceDescription, port int, restart string) (*container.Config, *container.HostConfig) {
	containerPort := desc.ContainerPort
	if containerPort == 0 {
		containerPort = port
	}
	key := nat.Port(strconv.Itoa(containerPort) + "/tcp")

	env := make([]string, 0, len(desc.Env))
	for k, v := range desc.Env {
		env = append(env, k+"="+v)
	}
	slices.Sort(env)

	cfg := &container.Config{
		Image:        desc.Image,
		Cmd:          desc.Command,
		Env:          env,
		Labels:       map[string]string{ServiceLabel: desc.ID},
		ExposedPorts: nat.PortSet{key: struct{}{}},
	}
	hostCfg := &container.HostConfig{
		PortBindings:  nat.PortMap{key: {{HostPort: strconv.Itoa(port)}}},
		RestartPolicy: container.RestartPolicy{Name: container.RestartPolicyMode(restart)},
	}
	return cfg, hostCfg
}

// splitImage 拆分镜像名与 tag，registry 端口中的冒号不算 tag 分隔符
func splitImage(ref string) (string, string) {
	i := strings.LastIndex(ref, ":")
	if i < 0 || strings.Contains(ref[i:], "/") {
		return ref, "latest"
	}
	return ref[:i], ref[i+1:]
}
