package oas

import (
	"encoding/json"
	"strings"
)

const defaultMethod = "get"

// Endpoint 任务映射中指向的接口
// 方法为空时按 GET 处理
type Endpoint interface {
	EndpointMethod() string
	EndpointPath() string
}

// Target 最简单的 Endpoint 实现
type Target struct {
	Method string
	Path   string
}

func (t Target) EndpointMethod() string { return t.Method }
func (t Target) EndpointPath() string   { return t.Path }

// SchemaInfo 构造请求时需要的字段提示
type SchemaInfo struct {
	Parameters  []ParameterSpec `json:"parameters"`
	RequestBody *BodyInfo       `json:"requestBody"`
}

// BodyInfo 请求体提示
// schema 声明了 properties 时展开为 Properties/RequiredProps
// 否则原样返回 Schema 由调用方直接展示
type BodyInfo struct {
	MediaType     string
	Properties    any
	RequiredProps []string
	Schema        any
}

// Flattened reports whether the body schema could be expanded into named properties.
func (b *BodyInfo) Flattened() bool {
	return b != nil && b.Properties != nil
}

func (b *BodyInfo) MarshalJSON() ([]byte, error) {
	if b.Flattened() {
		return json.Marshal(struct {
			MediaType     string   `json:"mediaType,omitempty"`
			Properties    any      `json:"properties"`
			RequiredProps []string `json:"requiredProps"`
		}{b.MediaType, b.Properties, b.RequiredProps})
	}
	return json.Marshal(struct {
		MediaType string `json:"mediaType,omitempty"`
		Schema    any    `json:"schema"`
	}{b.MediaType, b.Schema})
}

// ResolvePath 查找与具体请求路径对应的路径模板
// 优先完全匹配 其次按声明顺序进行模板匹配 无法编译的模板直接跳过
func (d *Document) ResolvePath(e Endpoint) (string, error) {
	if d == nil || e == nil {
		return "", ErrNotFound
	}
	path := e.EndpointPath()
	if _, ok := d.byTemplate[path]; ok {
		return path, nil
	}
	for _, p := range d.paths {
		if p.matcher.Match(path) {
			return p.Template, nil
		}
	}
	return "", ErrNotFound
}

// ResolveOperation 查找任务映射指向的操作
func (d *Document) ResolveOperation(e Endpoint) (*Operation, error) {
	tpl, err := d.ResolvePath(e)
	if err != nil {
		return nil, err
	}
	method := strings.ToLower(e.EndpointMethod())
	if method == "" {
		method = defaultMethod
	}
	op, ok := d.byTemplate[tpl].operations[method]
	if !ok {
		return nil, ErrNotFound
	}
	return op, nil
}

// FindOperationSchema resolves e and extracts its field hints.
func (d *Document) FindOperationSchema(e Endpoint) (*SchemaInfo, error) {
	op, err := d.ResolveOperation(e)
	if err != nil {
		return nil, err
	}
	return ExtractSchema(op)
}

// ExtractSchema 提取参数和请求体提示
// op 为空时返回 ErrNotFound 其余情况只返回部分结果 不报错
func ExtractSchema(op *Operation) (*SchemaInfo, error) {
	if op == nil {
		return nil, ErrNotFound
	}
	info := &SchemaInfo{
		Parameters: make([]ParameterSpec, len(op.Parameters)),
	}
	copy(info.Parameters, op.Parameters)
	info.RequestBody = extractBody(op.RequestBody)
	return info, nil
}

const mediaTypeJSON = "application/json"

func extractBody(rb *RequestBodySpec) *BodyInfo {
	mt, ok := selectMediaType(rb)
	if !ok || !truthy(mt.Schema) {
		return nil
	}
	body := &BodyInfo{MediaType: mt.Name}
	if s, ok := mt.Schema.(*Object); ok {
		if props, ok := s.Get("properties"); ok && truthy(props) {
			body.Properties = props
			body.RequiredProps = requiredList(s)
			return body
		}
	}
	body.Schema = mt.Schema
	return body
}

// selectMediaType 优先 application/json 否则取第一个声明的 media type
func selectMediaType(rb *RequestBodySpec) (MediaType, bool) {
	if rb == nil || len(rb.Content) == 0 {
		return MediaType{}, false
	}
	for _, mt := range rb.Content {
		if mt.Name == mediaTypeJSON && mt.Defined {
			return mt, true
		}
	}
	first := rb.Content[0]
	return first, first.Defined
}

func requiredList(s *Object) []string {
	out := make([]string, 0)
	v, _ := s.Get("required")
	list, ok := v.([]any)
	if !ok {
		return out
	}
	for _, x := range list {
		if name, ok := x.(string); ok {
			out = append(out, name)
		}
	}
	return out
}
