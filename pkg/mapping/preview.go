package mapping

import (
	"errors"
	"fmt"

	"github.com/parkingwang/flowprobe/pkg/oas"
)

// PreviewOptions 生成参数 原样写入预览
type PreviewOptions struct {
	GenerationType string `json:"generationType" form:"generationType"`
	Scenario       string `json:"scenario" form:"scenario"`
	VariantsCount  int    `json:"variantsCount" form:"variantsCount"`
}

// GenerationPreview 提交生成前展示给用户的请求预览
type GenerationPreview struct {
	GenerationType string          `json:"generationType"`
	Scenario       string          `json:"scenario"`
	VariantsCount  int             `json:"variantsCount"`
	Variants       [][]TaskPreview `json:"variants"`
}

type TaskPreview struct {
	TaskID         string         `json:"taskId"`
	TaskName       string         `json:"taskName"`
	Method         string         `json:"method"`
	Path           string         `json:"path"`
	RequiredFields RequiredFields `json:"requiredFields"`
}

// RequiredFields Body 为 nil 表示请求体无法展开或未声明
type RequiredFields struct {
	Parameters []FieldHint `json:"parameters"`
	Body       []FieldHint `json:"body"`
}

type FieldHint struct {
	Name        string `json:"name"`
	In          string `json:"in,omitempty"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Description string `json:"description,omitempty"`
}

// BuildPreview 按任务声明顺序生成预览
// doc 为空或任务无法解析时 字段列表为空 不影响其他任务
func BuildPreview(doc *oas.Document, result *MappingResult, opts PreviewOptions) *GenerationPreview {
	tasks := make([]TaskPreview, 0, len(result.Tasks()))
	for _, m := range result.Tasks() {
		tasks = append(tasks, previewTask(doc, m))
	}
	return &GenerationPreview{
		GenerationType: opts.GenerationType,
		Scenario:       opts.Scenario,
		VariantsCount:  opts.VariantsCount,
		Variants:       [][]TaskPreview{tasks},
	}
}

func previewTask(doc *oas.Document, m *TaskMapping) TaskPreview {
	p := TaskPreview{
		TaskID:   m.ID,
		TaskName: m.TaskName(),
		Method:   m.EndpointMethod(),
		Path:     m.EndpointPath(),
		RequiredFields: RequiredFields{
			Parameters: make([]FieldHint, 0),
		},
	}
	info, err := doc.FindOperationSchema(m)
	if err != nil {
		return p
	}
	for _, param := range info.Parameters {
		p.RequiredFields.Parameters = append(p.RequiredFields.Parameters, FieldHint{
			Name:        param.Name,
			In:          param.In,
			Type:        param.Type(),
			Required:    param.Required,
			Description: param.Description,
		})
	}
	p.RequiredFields.Body = bodyFields(info.RequestBody)
	return p
}

func bodyFields(b *oas.BodyInfo) []FieldHint {
	if !b.Flattened() {
		return nil
	}
	required := make(map[string]struct{}, len(b.RequiredProps))
	for _, name := range b.RequiredProps {
		required[name] = struct{}{}
	}
	out := make([]FieldHint, 0)
	props, ok := b.Properties.(*oas.Object)
	if !ok {
		return out
	}
	for _, name := range props.Keys() {
		v, _ := props.Get(name)
		f := FieldHint{Name: name}
		if o, ok := v.(*oas.Object); ok {
			t, _ := o.Get("type")
			d, _ := o.Get("description")
			f.Type = oas.String(t)
			f.Description = oas.String(d)
		}
		_, f.Required = required[name]
		out = append(out, f)
	}
	return out
}

var ErrInvalidOverride = errors.New("mapping: override must be a JSON object")

// ParseOverride 解析单个任务的自定义请求数据
func ParseOverride(data []byte) (*oas.Object, error) {
	v, err := oas.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOverride, err)
	}
	o, ok := v.(*oas.Object)
	if !ok {
		return nil, ErrInvalidOverride
	}
	return o, nil
}

// ApplyOverrides 返回合并了覆盖数据的浅拷贝
// 不存在的任务忽略 原结果不做修改
func ApplyOverrides(result *MappingResult, overrides map[string]*oas.Object) *MappingResult {
	if result == nil {
		return nil
	}
	out := &MappingResult{
		raw:   result.raw,
		tasks: make([]*TaskMapping, len(result.tasks)),
	}
	for i, t := range result.tasks {
		if data, ok := overrides[t.ID]; ok {
			out.tasks[i] = t.WithCustomRequestData(data)
		} else {
			out.tasks[i] = t
		}
	}
	return out
}
