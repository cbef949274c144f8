package oas

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound 未找到路径模板或对应的操作
	ErrNotFound = errors.New("oas: not found")
	// ErrUnparseable 文档不是合法的 JSON/YAML 结构
	ErrUnparseable = errors.New("oas: unparseable document")
)

// httpMethods path item 下可以作为操作的key
var httpMethods = map[string]struct{}{
	"get":     {},
	"put":     {},
	"post":    {},
	"delete":  {},
	"options": {},
	"head":    {},
	"patch":   {},
	"trace":   {},
}

// Document 解析后的 OpenAPI 文档
// 解析完成后不再修改 可以被多个goroutine并发读取
type Document struct {
	Version string
	Title   string

	raw        *Object
	paths      []*PathItem
	byTemplate map[string]*PathItem
}

// PathItem 一个路径模板及其下的所有操作
type PathItem struct {
	Template   string
	matcher    *templateMatcher
	operations map[string]*Operation
	methods    []string
}

// Methods 按声明顺序返回方法名
func (p *PathItem) Methods() []string {
	return p.methods
}

type Operation struct {
	Method      string
	Template    string
	OperationID string
	Summary     string
	Parameters  []ParameterSpec
	RequestBody *RequestBodySpec
}

// ParameterSpec OpenAPI Parameter Object 中用于构造请求的部分
type ParameterSpec struct {
	Name        string `json:"name"`
	In          string `json:"in"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
	Schema      any    `json:"schema,omitempty"`
}

// Type 只读取 schema.type
func (p ParameterSpec) Type() string {
	obj, ok := p.Schema.(*Object)
	if !ok {
		return ""
	}
	t, _ := obj.Get("type")
	return String(t)
}

// RequestBodySpec 按声明顺序保存的 media type
type RequestBodySpec struct {
	Content []MediaType
}

// MediaType 值为 null 的条目 Defined 为 false
type MediaType struct {
	Name    string
	Defined bool
	Schema  any
}

// ParseDocument 解析 JSON 或 YAML 格式的 OpenAPI 文档
func ParseDocument(data []byte) (*Document, error) {
	v, err := Decode(data)
	if err != nil {
		return nil, err
	}
	root, ok := v.(*Object)
	if !ok || root == nil {
		return nil, fmt.Errorf("%w: document root must be an object", ErrUnparseable)
	}
	return NewDocument(root), nil
}

// NewDocument builds a Document from an already decoded root object.
// Missing or malformed sections yield an empty document rather than an error.
func NewDocument(root *Object) *Document {
	doc := &Document{
		raw:        root,
		byTemplate: make(map[string]*PathItem),
	}
	if v, ok := FirstPresent(root, "openapi", "swagger"); ok {
		doc.Version = String(v)
	}
	if info, ok := root.Get("info"); ok {
		if o, ok := info.(*Object); ok {
			t, _ := o.Get("title")
			doc.Title = String(t)
		}
	}

	pv, _ := root.Get("paths")
	paths, _ := pv.(*Object)
	for _, tpl := range paths.Keys() {
		v, _ := paths.Get(tpl)
		item := &PathItem{
			Template:   tpl,
			matcher:    compileTemplate(tpl),
			operations: make(map[string]*Operation),
		}
		if o, ok := v.(*Object); ok {
			for _, m := range o.Keys() {
				if _, ok := httpMethods[m]; !ok {
					continue
				}
				opv, _ := o.Get(m)
				op, ok := opv.(*Object)
				if !ok {
					continue
				}
				item.operations[m] = parseOperation(tpl, m, op)
				item.methods = append(item.methods, m)
			}
		}
		doc.paths = append(doc.paths, item)
		doc.byTemplate[tpl] = item
	}
	return doc
}

// Raw 返回原始解析结果 用于转发给后端
func (d *Document) Raw() *Object {
	if d == nil {
		return nil
	}
	return d.raw
}

// Templates 按声明顺序返回所有路径模板
func (d *Document) Templates() []string {
	if d == nil {
		return nil
	}
	out := make([]string, len(d.paths))
	for i, p := range d.paths {
		out[i] = p.Template
	}
	return out
}

// PathItem returns the path item declared under template exactly.
func (d *Document) PathItem(template string) (*PathItem, bool) {
	if d == nil {
		return nil, false
	}
	p, ok := d.byTemplate[template]
	return p, ok
}

// Operations returns every operation in declaration order.
func (d *Document) Operations() []*Operation {
	if d == nil {
		return nil
	}
	var out []*Operation
	for _, p := range d.paths {
		for _, m := range p.methods {
			out = append(out, p.operations[m])
		}
	}
	return out
}

func parseOperation(tpl, method string, o *Object) *Operation {
	op := &Operation{Method: method, Template: tpl}
	if v, ok := o.Get("operationId"); ok {
		op.OperationID = String(v)
	}
	if v, ok := o.Get("summary"); ok {
		op.Summary = String(v)
	}

	if v, ok := o.Get("parameters"); ok {
		if list, ok := v.([]any); ok {
			op.Parameters = make([]ParameterSpec, 0, len(list))
			for _, item := range list {
				op.Parameters = append(op.Parameters, parseParameter(item))
			}
		}
	}

	if v, ok := o.Get("requestBody"); ok {
		if body, ok := v.(*Object); ok {
			cv, _ := body.Get("content")
			if content, ok := cv.(*Object); ok {
				rb := &RequestBodySpec{Content: make([]MediaType, 0, content.Len())}
				for _, name := range content.Keys() {
					mv, _ := content.Get(name)
					mt := MediaType{Name: name, Defined: truthy(mv)}
					if mo, ok := mv.(*Object); ok {
						mt.Schema, _ = mo.Get("schema")
					}
					rb.Content = append(rb.Content, mt)
				}
				op.RequestBody = rb
			}
		}
	}
	return op
}

// parseParameter 非对象的条目保留为空参数 保持数量和顺序不变
func parseParameter(v any) ParameterSpec {
	o, ok := v.(*Object)
	if !ok {
		return ParameterSpec{}
	}
	var p ParameterSpec
	if x, ok := o.Get("name"); ok {
		p.Name = String(x)
	}
	if x, ok := o.Get("in"); ok {
		p.In = String(x)
	}
	if x, ok := o.Get("description"); ok {
		p.Description = String(x)
	}
	if x, ok := o.Get("required"); ok {
		p.Required = Bool(x)
	}
	p.Schema, _ = o.Get("schema")
	return p
}
