package console

import (
	"context"
	"errors"

	"github.com/parkingwang/flowprobe/pkg/http/code"
	"github.com/parkingwang/flowprobe/pkg/mapping"
	"github.com/parkingwang/flowprobe/pkg/oas"
)

type UploadRequest struct {
	Content string `json:"content" binding:"required" comment:"OpenAPI 文档 JSON 或 YAML"`
}

type DocumentResponse struct {
	ID      string        `json:"id"`
	Title   string        `json:"title"`
	Version string        `json:"version"`
	Paths   []PathSummary `json:"paths"`
}

type PathSummary struct {
	Template string   `json:"template"`
	Methods  []string `json:"methods"`
}

func pathSummaries(doc *oas.Document) []PathSummary {
	out := make([]PathSummary, 0, len(doc.Templates()))
	for _, tpl := range doc.Templates() {
		item, _ := doc.PathItem(tpl)
		methods := item.Methods()
		if methods == nil {
			methods = make([]string, 0)
		}
		out = append(out, PathSummary{Template: tpl, Methods: methods})
	}
	return out
}

// UploadDocument 解析通过后保存 相同内容返回相同id
func (c *Console) UploadDocument(ctx context.Context, in *UploadRequest) (*DocumentResponse, error) {
	doc, err := oas.ParseDocument([]byte(in.Content))
	if err != nil {
		return nil, resolveError(err)
	}
	id, err := c.docs.Put(ctx, []byte(in.Content))
	if err != nil {
		return nil, err
	}
	return &DocumentResponse{
		ID:      id,
		Title:   doc.Title,
		Version: doc.Version,
		Paths:   pathSummaries(doc),
	}, nil
}

type DocumentRequest struct {
	ID string `uri:"id" binding:"required"`
}

type PathsResponse struct {
	Paths []PathSummary `json:"paths"`
}

func (c *Console) DocumentPaths(ctx context.Context, in *DocumentRequest) (*PathsResponse, error) {
	doc, _, err := c.loadDocument(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	return &PathsResponse{Paths: pathSummaries(doc)}, nil
}

type ResolveRequest struct {
	ID   string               `uri:"id" binding:"required"`
	Task *mapping.TaskMapping `json:"task" binding:"required" comment:"任务映射 method/path 支持别名"`
}

type ResolveResponse struct {
	Template    string          `json:"template"`
	Method      string          `json:"method"`
	OperationID string          `json:"operationId,omitempty"`
	Schema      *oas.SchemaInfo `json:"schema"`
}

// Resolve 未匹配到路径或方法时返回404
func (c *Console) Resolve(ctx context.Context, in *ResolveRequest) (*ResolveResponse, error) {
	doc, _, err := c.loadDocument(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	op, err := doc.ResolveOperation(in.Task)
	if err != nil {
		if errors.Is(err, oas.ErrNotFound) {
			return nil, code.NewNotfoundError("no operation for " + describe(in.Task))
		}
		return nil, err
	}
	info, err := oas.ExtractSchema(op)
	if err != nil {
		return nil, resolveError(err)
	}
	return &ResolveResponse{
		Template:    op.Template,
		Method:      op.Method,
		OperationID: op.OperationID,
		Schema:      info,
	}, nil
}

func describe(e oas.Endpoint) string {
	m := e.EndpointMethod()
	if m == "" {
		m = "get"
	}
	return m + " " + e.EndpointPath()
}
