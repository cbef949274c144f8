package mapping

import (
	"fmt"

	"github.com/parkingwang/flowprobe/pkg/oas"
)

// 字段别名 按优先级排列 第一个存在且非空的生效
var (
	methodAliases = []string{"method", "endpointMethod", "endpoint_method"}
	pathAliases   = []string{"path", "endpointPath", "endpoint_path"}
)

const (
	keyTaskID            = "taskId"
	keyTaskName          = "taskName"
	keyOperationID       = "operationId"
	keyConfidence        = "confidenceScore"
	keyStrategy          = "matchingStrategy"
	keyCustomRequestData = "customRequestData"
	keyTaskMappings      = "taskMappings"
)

// TaskMapping 流程中的一个任务与接口的对应关系
// 保留后端返回的所有字段 转发时原样输出
type TaskMapping struct {
	ID     string
	fields *oas.Object
}

var _ oas.Endpoint = (*TaskMapping)(nil)

func NewTaskMapping(id string, fields *oas.Object) *TaskMapping {
	if fields == nil {
		fields = oas.NewObject()
	}
	if id == "" {
		v, _ := fields.Get(keyTaskID)
		id = oas.String(v)
	}
	return &TaskMapping{ID: id, fields: fields}
}

func (m *TaskMapping) str(keys ...string) string {
	v, _ := oas.FirstPresent(m.fields, keys...)
	return oas.String(v)
}

func (m *TaskMapping) TaskName() string { return m.str(keyTaskName) }

// EndpointMethod 未声明时返回空字符串 由解析方决定默认值
func (m *TaskMapping) EndpointMethod() string { return m.str(methodAliases...) }

func (m *TaskMapping) EndpointPath() string { return m.str(pathAliases...) }

func (m *TaskMapping) OperationID() string { return m.str(keyOperationID) }

func (m *TaskMapping) MatchingStrategy() string { return m.str(keyStrategy) }

func (m *TaskMapping) Confidence() float64 {
	v, _ := m.fields.Get(keyConfidence)
	n, _ := oas.Number(v)
	return n
}

func (m *TaskMapping) CustomRequestData() *oas.Object {
	v, _ := m.fields.Get(keyCustomRequestData)
	o, _ := v.(*oas.Object)
	return o
}

// WithCustomRequestData 返回带覆盖数据的副本 原对象不变
func (m *TaskMapping) WithCustomRequestData(data *oas.Object) *TaskMapping {
	fields := m.fields.Clone()
	fields.Set(keyCustomRequestData, data)
	return &TaskMapping{ID: m.ID, fields: fields}
}

func (m *TaskMapping) MarshalJSON() ([]byte, error) {
	return m.fields.MarshalJSON()
}

func (m *TaskMapping) UnmarshalJSON(b []byte) error {
	var o oas.Object
	if err := o.UnmarshalJSON(b); err != nil {
		return err
	}
	*m = *NewTaskMapping("", &o)
	return nil
}

// MappingResult 后端返回的完整映射结果
// taskMappings 按声明顺序保存
type MappingResult struct {
	raw   *oas.Object
	tasks []*TaskMapping
}

// Summary 映射统计
type Summary struct {
	OverallConfidence float64 `json:"overallConfidence"`
	TotalTasks        int     `json:"totalTasks"`
	MatchedTasks      int     `json:"matchedTasks"`
	TotalEndpoints    int     `json:"totalEndpoints"`
	MatchedEndpoints  int     `json:"matchedEndpoints"`
	UnmatchedTasks    int     `json:"unmatchedTasks"`
}

// NewMappingResult builds a result from a decoded object.
func NewMappingResult(raw *oas.Object) *MappingResult {
	if raw == nil {
		raw = oas.NewObject()
	}
	r := &MappingResult{raw: raw}
	v, _ := raw.Get(keyTaskMappings)
	tm, _ := v.(*oas.Object)
	for _, id := range tm.Keys() {
		tv, _ := tm.Get(id)
		fields, _ := tv.(*oas.Object)
		r.tasks = append(r.tasks, NewTaskMapping(id, fields))
	}
	return r
}

// ParseMappingResult decodes a JSON (or YAML) mapping result.
func ParseMappingResult(data []byte) (*MappingResult, error) {
	v, err := oas.Decode(data)
	if err != nil {
		return nil, err
	}
	o, ok := v.(*oas.Object)
	if !ok {
		return nil, fmt.Errorf("%w: mapping result must be an object", oas.ErrUnparseable)
	}
	return NewMappingResult(o), nil
}

func (r *MappingResult) Tasks() []*TaskMapping {
	if r == nil {
		return nil
	}
	return r.tasks
}

func (r *MappingResult) Task(id string) (*TaskMapping, bool) {
	for _, t := range r.Tasks() {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}

func (r *MappingResult) Summary() Summary {
	if r == nil {
		return Summary{}
	}
	num := func(k string) float64 {
		v, _ := r.raw.Get(k)
		n, _ := oas.Number(v)
		return n
	}
	s := Summary{
		OverallConfidence: num("overallConfidence"),
		TotalTasks:        int(num("totalTasks")),
		MatchedTasks:      int(num("matchedTasks")),
		TotalEndpoints:    int(num("totalEndpoints")),
		MatchedEndpoints:  int(num("matchedEndpoints")),
	}
	if v, ok := r.raw.Get("unmatchedTasks"); ok {
		if list, ok := v.([]any); ok {
			s.UnmatchedTasks = len(list)
		}
	}
	return s
}

// object 重新组装 taskMappings 后的完整结构
func (r *MappingResult) object() *oas.Object {
	out := r.raw.Clone()
	if _, ok := r.raw.Get(keyTaskMappings); !ok && len(r.tasks) == 0 {
		return out
	}
	tm := oas.NewObject()
	for _, t := range r.tasks {
		tm.Set(t.ID, t.fields)
	}
	out.Set(keyTaskMappings, tm)
	return out
}

func (r *MappingResult) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}
	return r.object().MarshalJSON()
}

func (r *MappingResult) UnmarshalJSON(b []byte) error {
	res, err := ParseMappingResult(b)
	if err != nil {
		return err
	}
	*r = *res
	return nil
}
