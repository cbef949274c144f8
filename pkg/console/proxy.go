package console

import (
	"context"

	"github.com/parkingwang/flowprobe/pkg/backend"
	"github.com/parkingwang/flowprobe/pkg/http/code"
	"github.com/parkingwang/flowprobe/pkg/mapping"
	"github.com/parkingwang/flowprobe/pkg/oas"
	"github.com/parkingwang/flowprobe/pkg/store"
)

type MapRequest struct {
	BpmnXML     string `form:"bpmnXml" binding:"required" comment:"BPMN 流程定义"`
	OpenAPIJSON string `form:"openApiJson" comment:"OpenAPI 文档 documentId为空时必填"`
	DocumentID  string `form:"documentId" comment:"已上传文档的id"`
}

// openAPI 返回需要转发给后端的文档内容
func (c *Console) openAPI(ctx context.Context, in *MapRequest) (string, error) {
	if in.OpenAPIJSON != "" {
		return in.OpenAPIJSON, nil
	}
	if in.DocumentID == "" {
		return "", code.NewBadRequestError("openApiJson or documentId is required")
	}
	raw, err := c.docs.Get(ctx, in.DocumentID)
	if err != nil {
		return "", storeError(err, "document "+in.DocumentID)
	}
	return string(raw), nil
}

// Map 映射结果记录到运行历史
func (c *Console) Map(ctx context.Context, in *MapRequest) (*mapping.MappingResult, error) {
	doc, err := c.openAPI(ctx, in)
	if err != nil {
		return nil, err
	}
	start := c.now()
	res, err := c.backend.Map(ctx, in.BpmnXML, doc)
	if err != nil {
		return nil, err
	}
	sum := res.Summary()
	c.record(ctx, &store.Run{
		Kind:         store.RunMapping,
		DocumentID:   in.DocumentID,
		TotalTasks:   sum.TotalTasks,
		MatchedTasks: sum.MatchedTasks,
		Confidence:   sum.OverallConfidence,
		DurationMs:   c.now().Sub(start).Milliseconds(),
	}, res)
	return res, nil
}

func (c *Console) Recommendations(ctx context.Context, in *MapRequest) (*oas.Object, error) {
	doc, err := c.openAPI(ctx, in)
	if err != nil {
		return nil, err
	}
	start := c.now()
	res, err := c.backend.Recommendations(ctx, in.BpmnXML, doc)
	if err != nil {
		return nil, err
	}
	c.record(ctx, &store.Run{
		Kind:       store.RunRecommendations,
		DocumentID: in.DocumentID,
		DurationMs: c.now().Sub(start).Milliseconds(),
	}, res)
	return res, nil
}

type GenerateRequest struct {
	DocumentSource
	mapping.PreviewOptions
	MappingResult *mapping.MappingResult `json:"mappingResult" binding:"required"`
	// 按任务id覆盖请求数据 不存在的任务忽略
	Overrides map[string]*oas.Object `json:"overrides" comment:"taskId -> customRequestData"`
}

// Generate 合并覆盖数据后转发 文档以解析后的结构发送
func (c *Console) Generate(ctx context.Context, in *GenerateRequest) (*oas.Object, error) {
	doc, _, err := c.documentFrom(ctx, in.DocumentSource)
	if err != nil {
		return nil, err
	}
	result := mapping.ApplyOverrides(in.MappingResult, in.Overrides)
	req := &backend.GenerateRequest{
		GenerationType: in.GenerationType,
		MappingResult:  result,
		Scenario:       in.Scenario,
		VariantsCount:  in.VariantsCount,
	}
	if doc != nil {
		req.OpenAPIModel = doc.Raw()
	}
	start := c.now()
	out, err := c.backend.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	sum := result.Summary()
	c.record(ctx, &store.Run{
		Kind:         store.RunGeneration,
		DocumentID:   in.DocumentID,
		TotalTasks:   len(result.Tasks()),
		MatchedTasks: sum.MatchedTasks,
		Confidence:   sum.OverallConfidence,
		DurationMs:   c.now().Sub(start).Milliseconds(),
	}, out)
	return out, nil
}

type ExecuteRequest struct {
	backend.ExecuteRequest
}

// ExecuteSimple 执行结果记录到运行历史
func (c *Console) ExecuteSimple(ctx context.Context, in *ExecuteRequest) (*backend.ExecutionResult, error) {
	res, err := c.backend.ExecuteSimple(ctx, &in.ExecuteRequest)
	if err != nil {
		return nil, err
	}
	steps := res.Steps()
	c.record(ctx, &store.Run{
		Kind:         store.RunExecution,
		ProcessName:  res.ProcessName(),
		Status:       res.Status(),
		TotalTasks:   steps,
		MatchedTasks: steps - res.FailedSteps(),
		DurationMs:   res.DurationMs(),
	}, res)
	return res, nil
}
