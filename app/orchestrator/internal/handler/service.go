// Package handler 编排服务的 HTTP API
package handler

import (
	"context"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"

	"github.com/lk2023060901/flotilla/app/orchestrator/internal/model"
	"github.com/lk2023060901/flotilla/app/orchestrator/internal/service"
	"github.com/lk2023060901/flotilla/pkg/errs"
	"github.com/lk2023060901/flotilla/pkg/logger"
	"github.com/lk2023060901/flotilla/pkg/web"
	codes "github.com/lk2023060901/flotilla/pkg/web/errors"
)

// ServiceManager 服务编排操作，由 *service.Manager 实现
type ServiceManager interface {
	Create(ctx context.Context, desc *model.ServiceDescription) error
	Describe(ctx context.Context, id string) (*model.ServiceDescription, error)
	List(ctx context.Context) ([]*model.ServiceDescription, error)
	Remove(ctx context.Context, id string) error
	Deploy(ctx context.Context, id string) (*service.Report, error)
	Undeploy(ctx context.Context, id string) (*service.Report, error)
	Destroy(ctx context.Context, id string) (*service.Report, error)
	Info(ctx context.Context, id string) (*model.ServiceInfo, error)
}

var _ ServiceManager = (*service.Manager)(nil)

// ServiceHandler /v1/services 路由
type ServiceHandler struct {
	manager  ServiceManager
	logger   logger.Logger
	reporter ErrorReporter
}

// ErrorReporter 上报未归类的内部错误，由 *sentry.Client 实现
type ErrorReporter interface {
	ReportError(ctx context.Context, err error, tags map[string]string) string
}

// ServiceOption ServiceHandler 选项
type ServiceOption func(*ServiceHandler)

// WithErrorReporter 500 错误额外交给 reporter
func WithErrorReporter(r ErrorReporter) ServiceOption {
	return func(h *ServiceHandler) { h.reporter = r }
}

// NewServiceHandler 创建服务处理器
func NewServiceHandler(m ServiceManager, l logger.Logger, opts ...ServiceOption) *ServiceHandler {
	h := &ServiceHandler{
		manager: m,
		logger:  l.Named("handler.service"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// CreateServiceRequest 创建服务请求体
type CreateServiceRequest struct {
	ID            string            `json:"id" binding:"required"`
	Image         string            `json:"image" binding:"required"`
	Command       []string          `json:"command"`
	Env           map[string]string `json:"env"`
	ContainerPort int               `json:"container_port" binding:"min=0,max=65535"`
}

// NodeResultView 单节点结果
type NodeResultView struct {
	NodeID string `json:"node_id"`
	Host   string `json:"host"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
}

// ReportView 扇出操作的响应体
type ReportView struct {
	ServiceID    string           `json:"service_id"`
	SymmetryPort int              `json:"symmetry_port"`
	Nodes        []NodeResultView `json:"nodes"`
	Forgotten    []string         `json:"forgotten,omitempty"`
}

func newReportView(r *service.Report) *ReportView {
	if r == nil {
		return nil
	}
	nodes := make([]NodeResultView, 0, len(r.Results))
	for _, res := range r.Results {
		v := NodeResultView{NodeID: res.NodeID, Host: res.Host, OK: res.OK()}
		if res.Err != nil {
			v.Error = res.Err.Error()
		}
		nodes = append(nodes, v)
	}
	return &ReportView{
		ServiceID:    r.ServiceID,
		SymmetryPort: r.SymmetryPort,
		Nodes:        nodes,
		Forgotten:    r.Forgotten,
	}
}

// Register 注册路由
func (h *ServiceHandler) Register(r gin.IRouter) {
	g := r.Group("/v1/services")
	{
		g.POST("", h.Create)
		g.GET("", h.List)
		g.GET("/:id", h.Describe)
		g.DELETE("/:id", h.Remove)
		g.POST("/:id/deploy", h.fanOut(h.manager.Deploy))
		g.POST("/:id/undeploy", h.fanOut(h.manager.Undeploy))
		g.POST("/:id/destroy", h.fanOut(h.manager.Destroy))
		g.GET("/:id/info", h.Info)
	}
}

// Create POST /v1/services
func (h *ServiceHandler) Create(c *gin.Context) {
	var req CreateServiceRequest
	if !web.BindJSON(c, &req) {
		return
	}

	desc := &model.ServiceDescription{
		ID:            req.ID,
		Image:         req.Image,
		Command:       req.Command,
		Env:           req.Env,
		ContainerPort: req.ContainerPort,
	}
	if err := h.manager.Create(c.Request.Context(), desc); err != nil {
		h.fail(c, err, nil)
		return
	}

	created, err := h.manager.Describe(c.Request.Context(), req.ID)
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	web.SuccessWithStatus(c, http.StatusCreated, created)
}

// List GET /v1/services
func (h *ServiceHandler) List(c *gin.Context) {
	descs, err := h.manager.List(c.Request.Context())
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	if descs == nil {
		descs = []*model.ServiceDescription{}
	}
	web.Success(c, descs)
}

// Describe GET /v1/services/:id
func (h *ServiceHandler) Describe(c *gin.Context) {
	desc, err := h.manager.Describe(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	web.Success(c, desc)
}

// RemoveView 删除服务的响应体
// OrphanedNodes 删除前仍记录为已部署的节点，这些节点上的容器不会被清理
type RemoveView struct {
	ServiceID     string   `json:"service_id"`
	OrphanedNodes []string `json:"orphaned_nodes,omitempty"`
}

// Remove DELETE /v1/services/:id
// 只删除描述；服务仍有部署时在响应中列出这些节点
func (h *ServiceHandler) Remove(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	desc, err := h.manager.Describe(ctx, id)
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	if err := h.manager.Remove(ctx, id); err != nil {
		h.fail(c, err, nil)
		return
	}

	view := RemoveView{ServiceID: id}
	if desc.Deployed() {
		view.OrphanedNodes = desc.DeployedNodes
		h.logger.WarnContext(ctx, "removed a deployed service, containers left on nodes",
			"service", id, "nodes", desc.DeployedNodes)
	}
	web.Success(c, view)
}

// Info GET /v1/services/:id/info
func (h *ServiceHandler) Info(c *gin.Context) {
	info, err := h.manager.Info(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	web.Success(c, info)
}

// fanOut deploy、undeploy、destroy 共用的处理流程
func (h *ServiceHandler) fanOut(op func(ctx context.Context, id string) (*service.Report, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := op(c.Request.Context(), c.Param("id"))
		if err != nil {
			h.fail(c, err, report)
			return
		}
		web.Success(c, newReportView(report))
	}
}

// fail 按错误类别写出响应；集群操作失败时附带每个节点的结果
func (h *ServiceHandler) fail(c *gin.Context, err error, report *service.Report) {
	switch {
	case errors.Is(err, errs.ErrFleetOperation):
		var ferr *service.FleetError
		if report == nil && errors.As(err, &ferr) {
			report = &service.Report{ServiceID: ferr.ServiceID, Results: ferr.Results}
		}
		web.ErrorWithData(c, codes.CodeUpstreamError, err.Error(), newReportView(report))
	case errors.Is(err, errs.ErrNotFound):
		web.Error(c, codes.CodeNotFound, err.Error())
	case errors.Is(err, errs.ErrAlreadyExists):
		web.Error(c, codes.CodeConflict, err.Error())
	case errors.Is(err, errs.ErrInvalidArgument):
		web.Error(c, codes.CodeInvalidParams, err.Error())
	default:
		h.logger.ErrorContext(c.Request.Context(), "request failed",
			"path", c.FullPath(),
			"service", c.Param("id"),
			"error", err,
		)
		if h.reporter != nil {
			h.reporter.ReportError(c.Request.Context(), err, map[string]string{
				"route":   c.FullPath(),
				"service": c.Param("id"),
			})
		}
		_ = c.Error(err)
		web.Error(c, codes.CodeInternalError, "internal error")
	}
}
