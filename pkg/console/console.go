// Package console flowprobe 对外的 HTTP 接口
//
// 文档上传和解析 任务到接口的解析 生成预览在本地完成
// 映射 生成和执行转发给分析后端 结果记录到运行历史
package console

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/parkingwang/flowprobe/pkg/backend"
	"github.com/parkingwang/flowprobe/pkg/http/code"
	"github.com/parkingwang/flowprobe/pkg/http/web"
	"github.com/parkingwang/flowprobe/pkg/mapping"
	"github.com/parkingwang/flowprobe/pkg/oas"
	"github.com/parkingwang/flowprobe/pkg/store"
)

// Backend 分析后端 见 backend.Client
type Backend interface {
	Map(ctx context.Context, bpmnXML, openAPI string) (*mapping.MappingResult, error)
	Recommendations(ctx context.Context, bpmnXML, openAPI string) (*oas.Object, error)
	Generate(ctx context.Context, req *backend.GenerateRequest) (*oas.Object, error)
	ExecuteSimple(ctx context.Context, req *backend.ExecuteRequest) (*backend.ExecutionResult, error)
}

// RunNotifier 运行记录保存后的通知
type RunNotifier interface {
	Notify(ctx context.Context, run *store.Run) error
}

type Console struct {
	docs     store.Documents
	runs     store.Runs
	backend  Backend
	notifier RunNotifier
	now      func() time.Time
}

func New(docs store.Documents, runs store.Runs, b Backend, n RunNotifier) *Console {
	return &Console{
		docs:     docs,
		runs:     runs,
		backend:  b,
		notifier: n,
		now:      time.Now,
	}
}

// Register 注册所有路由
func (c *Console) Register(r web.Router) {
	docs := r.Group("/api/documents")
	docs.Comment("OpenAPI 文档")
	docs.Post("", c.UploadDocument).Comment("上传文档\n返回文档id和按声明顺序排列的路径")
	docs.Get("/:id/paths", c.DocumentPaths).Comment("文档中的路径模板")
	docs.Post("/:id/resolve", c.Resolve).Comment("解析任务对应的接口和请求参数")

	api := r.Group("/api")
	api.Comment("流程测试")
	api.Post("/preview", c.Preview).Comment("生成前预览每个任务需要的字段")
	api.Post("/mapping/map", c.Map).Comment("流程任务与接口匹配")
	api.Post("/mapping/recommendations", c.Recommendations).Comment("匹配建议")
	api.Post("/generator/generate", c.Generate).Comment("生成测试数据")
	api.Post("/execution/execute-simple", c.ExecuteSimple).Comment("执行流程")
	api.Get("/runs", c.ListRuns).Comment("运行历史")
	api.Get("/runs/:id", c.GetRun).Comment("运行详情")
	api.Get("/stats", c.Stats).Comment("按类型统计")
}

// loadDocument 按id读取并解析文档
func (c *Console) loadDocument(ctx context.Context, id string) (*oas.Document, []byte, error) {
	raw, err := c.docs.Get(ctx, id)
	if err != nil {
		return nil, nil, storeError(err, "document "+id)
	}
	doc, err := oas.ParseDocument(raw)
	if err != nil {
		return nil, nil, resolveError(err)
	}
	return doc, raw, nil
}

// record 保存运行记录 失败只记录日志 不影响接口返回
func (c *Console) record(ctx context.Context, run *store.Run, payload any) {
	run.ID = uuid.NewString()
	run.CreatedAt = c.now()
	if payload != nil {
		if b, err := json.Marshal(payload); err == nil {
			run.Payload = string(b)
		}
	}
	if err := c.runs.Save(ctx, run); err != nil {
		slog.ErrorContext(ctx, "save run failed", slog.String("kind", string(run.Kind)), slog.Any("err", err))
		return
	}
	// gin.Context 在请求结束后会被复用
	if gc, ok := web.GinContext(ctx); ok {
		ctx = gc.Request.Context()
	}
	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := c.notifier.Notify(ctx, run); err != nil {
			slog.WarnContext(ctx, "notify run failed", slog.String("id", run.ID), slog.Any("err", err))
		}
	}()
}

func resolveError(err error) error {
	switch {
	case errors.Is(err, oas.ErrNotFound):
		return code.Wrap(http.StatusNotFound, err)
	case errors.Is(err, oas.ErrUnparseable):
		return code.Wrap(http.StatusUnprocessableEntity, err)
	}
	return err
}

func storeError(err error, what string) error {
	if errors.Is(err, store.ErrNotFound) {
		return code.NewNotfoundError(what + " not found")
	}
	return err
}
