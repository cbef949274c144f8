package console

import (
	"context"
	"log/slog"

	"github.com/parkingwang/flowprobe/pkg/mapping"
	"github.com/parkingwang/flowprobe/pkg/oas"
)

// DocumentSource 已上传文档的id或文档内容 都为空时没有文档
type DocumentSource struct {
	DocumentID  string `json:"documentId" comment:"已上传文档的id"`
	OpenAPIJSON string `json:"openApiJson" comment:"文档内容 documentId为空时使用"`
}

type PreviewRequest struct {
	DocumentSource
	mapping.PreviewOptions
	MappingResult *mapping.MappingResult `json:"mappingResult" binding:"required"`
}

// Preview 文档无法解析时字段提示为空 不返回错误
func (c *Console) Preview(ctx context.Context, in *PreviewRequest) (*mapping.GenerationPreview, error) {
	doc, _, err := c.documentFrom(ctx, in.DocumentSource)
	if err != nil {
		return nil, err
	}
	return mapping.BuildPreview(doc, in.MappingResult, in.PreviewOptions), nil
}

// documentFrom documentId 不存在时返回404
// 内联文档无法解析时返回nil 由调用方按无文档处理
func (c *Console) documentFrom(ctx context.Context, src DocumentSource) (*oas.Document, []byte, error) {
	if src.DocumentID != "" {
		return c.loadDocument(ctx, src.DocumentID)
	}
	if src.OpenAPIJSON == "" {
		return nil, nil, nil
	}
	doc, err := oas.ParseDocument([]byte(src.OpenAPIJSON))
	if err != nil {
		slog.DebugContext(ctx, "inline document unparseable", slog.Any("err", err))
		return nil, []byte(src.OpenAPIJSON), nil
	}
	return doc, []byte(src.OpenAPIJSON), nil
}
